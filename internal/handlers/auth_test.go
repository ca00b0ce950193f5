package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"enclosure_gateway/internal/repository"
	"enclosure_gateway/internal/repository/db"
	"enclosure_gateway/internal/service"

	"github.com/gin-gonic/gin"
)

// newOperatorRouter serves the auth and command routes with operator auth
// backed by a temporary sqlite database.
func newOperatorRouter(t *testing.T, cmds *mockCommands) *gin.Engine {
	t.Helper()
	database, err := db.InitDB(filepath.Join(t.TempDir(), "operators.db"))
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	auth := service.NewOperatorAuth(repository.NewOperatorRepository(database), service.OperatorAuthOptions{
		SigningKey: "handler-test-key",
		TokenTTL:   time.Minute,
	}, nil)
	return newTestRouter(&service.Service{Authorization: auth, Commands: cmds}, Options{AuthEnabled: true})
}

func postJSON(r http.Handler, path, body string, header http.Header) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, vv := range header {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	return w
}

func TestOperatorCanCommandAfterSignIn(t *testing.T) {
	cmds := &mockCommands{}
	r := newOperatorRouter(t, cmds)

	w := postJSON(r, "/auth/sign-up", `{"username":"night-shift","password":"canopy-closed"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sign-up status=%d, body=%s", w.Code, w.Body.String())
	}

	w = postJSON(r, "/auth/sign-in", `{"username":"Night-Shift","password":"canopy-closed"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sign-in status=%d, body=%s", w.Code, w.Body.String())
	}
	var signIn struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &signIn); err != nil || signIn.Token == "" {
		t.Fatalf("sign-in body=%s err=%v", w.Body.String(), err)
	}

	w = postJSON(r, "/api/v1/command?type=close-canopy", "", nil)
	if w.Code != http.StatusUnauthorized || cmds.calls != 0 {
		t.Fatalf("anonymous command: status=%d calls=%d", w.Code, cmds.calls)
	}

	w = postJSON(r, "/api/v1/command?type=close-canopy", "", authHeader(signIn.Token+"x"))
	if w.Code != http.StatusUnauthorized || cmds.calls != 0 {
		t.Fatalf("tampered token: status=%d calls=%d", w.Code, cmds.calls)
	}

	w = postJSON(r, "/api/v1/command?type=close-canopy", "", authHeader(signIn.Token))
	if w.Code != http.StatusOK {
		t.Fatalf("command status=%d, body=%s", w.Code, w.Body.String())
	}
	if cmds.calls != 1 || cmds.lastToken != "close-canopy" {
		t.Fatalf("dispatch calls=%d token=%q", cmds.calls, cmds.lastToken)
	}
}

func TestOperatorSignUpAndSignInErrors(t *testing.T) {
	r := newOperatorRouter(t, &mockCommands{})

	cases := []struct {
		name string
		path string
		body string
		want int
	}{
		{name: "missing password", path: "/auth/sign-up", body: `{"username":"op"}`, want: http.StatusBadRequest},
		{name: "short password", path: "/auth/sign-up", body: `{"username":"op","password":"123"}`, want: http.StatusBadRequest},
		{name: "wrong field type", path: "/auth/sign-in", body: `{"username":1}`, want: http.StatusBadRequest},
		{name: "unknown operator", path: "/auth/sign-in", body: `{"username":"ghost","password":"whatever"}`, want: http.StatusUnauthorized},
		{name: "first registration", path: "/auth/sign-up", body: `{"username":"op","password":"door-open-1"}`, want: http.StatusOK},
		{name: "duplicate registration", path: "/auth/sign-up", body: `{"username":"OP","password":"door-open-2"}`, want: http.StatusConflict},
		{name: "wrong password", path: "/auth/sign-in", body: `{"username":"op","password":"door-open-2"}`, want: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		if w := postJSON(r, tc.path, tc.body, nil); w.Code != tc.want {
			t.Fatalf("%s: status=%d want %d, body=%s", tc.name, w.Code, tc.want, w.Body.String())
		}
	}
}

func TestSignInStoreFailureIs500(t *testing.T) {
	auth := &mockAuth{signInErr: errors.New("database is locked")}
	r := newTestRouter(&service.Service{Authorization: auth}, Options{})

	w := postJSON(r, "/auth/sign-in", `{"username":"op","password":"door-open-1"}`, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
	}
	if bytes.Contains(w.Body.Bytes(), []byte("locked")) {
		t.Fatalf("internal error leaked: %s", w.Body.String())
	}
}
