package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"enclosure_gateway/internal/logger"
	"enclosure_gateway/internal/models"
	"enclosure_gateway/internal/repository"
	"enclosure_gateway/internal/repository/db"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "enclosure-test-key"

// memOperators is an in-memory repository.Operators.
type memOperators struct {
	mu     sync.Mutex
	byName map[string]models.Operator
	err    error
}

func newMemOperators() *memOperators {
	return &memOperators{byName: map[string]models.Operator{}}
}

func (m *memOperators) Create(_ context.Context, username, hash string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	if _, ok := m.byName[username]; ok {
		return 0, errors.New("operator exists")
	}
	id := len(m.byName) + 1
	m.byName[username] = models.Operator{ID: id, Username: username, PasswordHash: hash}
	return id, nil
}

func (m *memOperators) GetByUsername(_ context.Context, username string) (*models.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	op, ok := m.byName[username]
	if !ok {
		return nil, nil
	}
	return &op, nil
}

func newTestAuth(ops repository.Operators, clock Clock, ttl time.Duration) *OperatorAuth {
	return NewOperatorAuth(ops, OperatorAuthOptions{
		SigningKey: testSigningKey,
		TokenTTL:   ttl,
		Clock:      clock,
	}, logger.Nop())
}

func TestOperatorAuth_RegisterSignInVerify(t *testing.T) {
	ops := newMemOperators()
	auth := newTestAuth(ops, newFakeClock(), 10*time.Minute)
	ctx := context.Background()

	id, err := auth.Register(ctx, "  Shift-Lead ", "hatch-open-42")
	require.NoError(t, err)

	stored, err := ops.GetByUsername(ctx, "shift-lead")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "hatch-open-42", stored.PasswordHash)

	token, err := auth.SignIn(ctx, "SHIFT-LEAD", "hatch-open-42")
	require.NoError(t, err)

	got, err := auth.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestOperatorAuth_RegisterRejects(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		repoErr  error
		want     error
	}{
		{name: "blank username", username: "  ", password: "long-enough", want: ErrInvalidUsername},
		{name: "short password", username: "op", password: "12345", want: ErrWeakPassword},
		{name: "blank password", username: "op", password: "        ", want: ErrWeakPassword},
		{name: "store failure", username: "op", password: "long-enough", repoErr: errStoreDown, want: errStoreDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := newMemOperators()
			ops.err = tt.repoErr
			_, err := newTestAuth(ops, newFakeClock(), time.Hour).Register(context.Background(), tt.username, tt.password)
			require.ErrorIs(t, err, tt.want)
			assert.Empty(t, ops.byName)
		})
	}
}

func TestOperatorAuth_SignInFailures(t *testing.T) {
	ops := newMemOperators()
	auth := newTestAuth(ops, newFakeClock(), time.Hour)
	ctx := context.Background()
	_, err := auth.Register(ctx, "op", "correct-horse")
	require.NoError(t, err)

	_, err = auth.SignIn(ctx, "op", "wrong-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.SignIn(ctx, "ghost", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	ops.err = errStoreDown
	_, err = auth.SignIn(ctx, "op", "correct-horse")
	assert.ErrorIs(t, err, errStoreDown)
}

func TestOperatorAuth_TokenExpiresAfterTTL(t *testing.T) {
	clock := newFakeClock()
	auth := newTestAuth(newMemOperators(), clock, 5*time.Minute)
	ctx := context.Background()
	_, err := auth.Register(ctx, "op", "correct-horse")
	require.NoError(t, err)

	token, err := auth.SignIn(ctx, "op", "correct-horse")
	require.NoError(t, err)

	clock.Advance(4 * time.Minute)
	_, err = auth.Verify(token)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = auth.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestOperatorAuth_DefaultTTL(t *testing.T) {
	clock := newFakeClock()
	auth := newTestAuth(newMemOperators(), clock, 0)
	token, err := auth.issue(1, "op")
	require.NoError(t, err)

	clock.Advance(defaultTokenTTL - time.Second)
	_, err = auth.Verify(token)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	_, err = auth.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestOperatorAuth_VerifyRejectsForeignTokens(t *testing.T) {
	clock := newFakeClock()
	auth := newTestAuth(newMemOperators(), clock, time.Hour)
	now := clock.Now()

	sign := func(method jwt.SigningMethod, key any, issuer string) string {
		t.Helper()
		tok, err := jwt.NewWithClaims(method, &OperatorClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    issuer,
				Subject:   "1",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}).SignedString(key)
		require.NoError(t, err)
		return tok
	}

	tests := map[string]string{
		"other key":    sign(jwt.SigningMethodHS256, []byte("another-gateway"), tokenIssuer),
		"other issuer": sign(jwt.SigningMethodHS256, []byte(testSigningKey), "someone-else"),
		"alg none":     sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, tokenIssuer),
		"HS512":        sign(jwt.SigningMethodHS512, []byte(testSigningKey), tokenIssuer),
		"malformed":    "not-a-token",
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := auth.Verify(tok)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestOperatorAuth_SQLiteOperators(t *testing.T) {
	database, err := db.InitDB(filepath.Join(t.TempDir(), "operators.db"))
	require.NoError(t, err)
	defer database.Close()
	auth := newTestAuth(repository.NewOperatorRepository(database), newFakeClock(), time.Hour)
	ctx := context.Background()

	id, err := auth.Register(ctx, "Night-Shift", "canopy-closed")
	require.NoError(t, err)

	_, err = auth.Register(ctx, "night-shift", "another-pass")
	require.Error(t, err, "usernames are unique regardless of case")

	token, err := auth.SignIn(ctx, "night-shift", "canopy-closed")
	require.NoError(t, err)
	got, err := auth.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}
