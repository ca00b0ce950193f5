package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"enclosure_gateway/internal/models"
	"enclosure_gateway/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

// mockAuth accepts any non-empty token listed in tokens.
type mockAuth struct {
	tokens    map[string]int
	verified  []string
	signInErr error
}

func (m *mockAuth) Register(ctx context.Context, username, password string) (int, error) {
	return 0, errors.New("not supported")
}

func (m *mockAuth) SignIn(ctx context.Context, username, password string) (string, error) {
	return "", m.signInErr
}

func (m *mockAuth) Verify(token string) (int, error) {
	m.verified = append(m.verified, token)
	id, ok := m.tokens[token]
	if !ok {
		return 0, service.ErrInvalidToken
	}
	return id, nil
}

type mockCommands struct {
	err       error
	calls     int
	lastToken string
}

func (m *mockCommands) Dispatch(ctx context.Context, token string) error {
	m.calls++
	m.lastToken = token
	return m.err
}

type mockMonitoring struct {
	state models.DeviceState
}

func (m *mockMonitoring) GetState(ctx context.Context) models.DeviceState {
	return m.state
}

type mockHistory struct {
	entries []models.LogEntry

	mu   sync.Mutex
	feed chan models.LogEntry
}

func (m *mockHistory) List(ctx context.Context) []models.LogEntry {
	if m.entries == nil {
		return []models.LogEntry{}
	}
	return m.entries
}

func (m *mockHistory) Subscribe(buffer int) (<-chan models.LogEntry, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.feed == nil {
		m.feed = make(chan models.LogEntry, buffer)
	}
	return m.feed, func() {}
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service, opts Options) *gin.Engine {
	h := NewHandler(s, nil, opts)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
