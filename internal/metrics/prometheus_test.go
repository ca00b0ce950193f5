package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_Counters(t *testing.T) {
	p := NewPrometheus()

	p.TelemetryReceived()
	p.TelemetryReceived()
	p.TelemetryDropped()
	p.EntryAppended("gas")
	p.EntryAppended("door")
	p.EntryAppended("door")
	p.EntryAppended("Door state: <script>")
	p.CandidateSuppressed("debounce")
	p.CandidateSuppressed("debounce")
	p.CommandDispatched("open-door", "sent")
	p.CommandDispatched("rm -rf", "invalid")

	assert.Equal(t, 2.0, testutil.ToFloat64(p.telemetryReceived))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.telemetryDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.entriesAppended.WithLabelValues("gas")))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.entriesAppended.WithLabelValues("door")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.entriesAppended.WithLabelValues("other")))
	assert.Equal(t, 3, testutil.CollectAndCount(p.entriesAppended))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.suppressed.WithLabelValues("debounce")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.commands.WithLabelValues("open-door", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.commands.WithLabelValues("unknown", "invalid")))
}

func TestPrometheus_Handler(t *testing.T) {
	p := NewPrometheus()
	p.TelemetryReceived()

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "enclosure_telemetry_lines_total 1"), body)
	assert.Contains(t, body, "go_goroutines")
}
