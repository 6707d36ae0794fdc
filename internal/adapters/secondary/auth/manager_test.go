package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testclock "k8s.io/utils/clock/testing"

	"vision-platform-client/internal/core/domain"
	"vision-platform-client/internal/dto"
)

// tokenServer is a minimal token endpoint recording the grants it receives.
type tokenServer struct {
	mu            sync.Mutex
	grants        []string
	status        int // forced status, 0 = normal behaviour
	expiresIn     int64
	rejectRefresh bool
	issued        int
	accessFn      func(n int) string
}

func (s *tokenServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var req dto.TokenRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.grants = append(s.grants, req.GrantType)

	w.Header().Set("Content-Type", "application/json")
	if s.status != 0 {
		w.WriteHeader(s.status)
		_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: "forced"})
		return
	}

	switch req.GrantType {
	case dto.GrantTypePassword:
		if req.Username != "alice" || req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: "invalid credentials"})
			return
		}
	case dto.GrantTypeRefreshToken:
		if s.rejectRefresh {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: "refresh token revoked"})
			return
		}
	case dto.GrantTypePersonalAccessToken:
		if req.Token != "pat-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	}

	s.issued++
	access := "access-" + string(rune('0'+s.issued))
	if s.accessFn != nil {
		access = s.accessFn(s.issued)
	}
	_ = json.NewEncoder(w).Encode(dto.TokenResponse{
		AccessToken:  access,
		RefreshToken: "refresh-token",
		TokenType:    "Bearer",
		ExpiresIn:    s.expiresIn,
	})
}

func (s *tokenServer) grantLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.grants...)
}

func newTestManager(t *testing.T, ts *tokenServer, clk *testclock.FakePassiveClock) *Manager {
	t.Helper()
	srv := httptest.NewServer(http.StripPrefix("/api/v1", ts))
	t.Cleanup(srv.Close)
	return NewManager(Config{BaseURL: srv.URL, Timeout: 5 * time.Second, RefreshSkew: 30 * time.Second}, WithClock(clk))
}

func TestManager_Acquire(t *testing.T) {
	clk := testclock.NewFakePassiveClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	ts := &tokenServer{expiresIn: 300}
	m := newTestManager(t, ts, clk)

	s, err := m.Acquire(context.Background(), Credentials{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	token, err := s.Token(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "access-1", token)
	assert.Equal(t, clk.Now().Add(300*time.Second), s.ExpiresAt())
	assert.Equal(t, []string{dto.GrantTypePassword}, ts.grantLog())
}

func TestManager_Acquire_InvalidCredentials(t *testing.T) {
	clk := testclock.NewFakePassiveClock(time.Now())
	m := newTestManager(t, &tokenServer{}, clk)

	_, err := m.Acquire(context.Background(), Credentials{Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrAuth)
	assert.False(t, domain.IsRetryable(err))

	var remote *domain.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusUnauthorized, remote.StatusCode)
}

func TestManager_Acquire_MissingCredentials(t *testing.T) {
	ts := &tokenServer{}
	m := newTestManager(t, ts, testclock.NewFakePassiveClock(time.Now()))

	_, err := m.Acquire(context.Background(), Credentials{Username: "alice"})
	assert.ErrorIs(t, err, domain.ErrAuth)
	assert.Empty(t, ts.grantLog())
}

func TestManager_Acquire_PersonalAccessToken(t *testing.T) {
	ts := &tokenServer{expiresIn: 60}
	m := newTestManager(t, ts, testclock.NewFakePassiveClock(time.Now()))

	_, err := m.Acquire(context.Background(), Credentials{Token: "pat-123"})
	assert.NoError(t, err)
	assert.Equal(t, []string{dto.GrantTypePersonalAccessToken}, ts.grantLog())
}

func TestManager_Acquire_ServerUnavailable(t *testing.T) {
	ts := &tokenServer{status: http.StatusServiceUnavailable}
	m := newTestManager(t, ts, testclock.NewFakePassiveClock(time.Now()))

	_, err := m.Acquire(context.Background(), Credentials{Username: "alice", Password: "secret"})
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.True(t, domain.IsRetryable(err))
}

func TestManager_ExpiryFromJWTClaim(t *testing.T) {
	clk := testclock.NewFakePassiveClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	exp := clk.Now().Add(10 * time.Minute).Truncate(time.Second)
	ts := &tokenServer{accessFn: func(int) string {
		signed, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(exp),
		}).SignedString([]byte("k"))
		return signed
	}}
	m := newTestManager(t, ts, clk)

	s, err := m.Acquire(context.Background(), Credentials{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	assert.True(t, s.ExpiresAt().Equal(exp))
}

func TestSession_Token_ProactiveRefresh(t *testing.T) {
	clk := testclock.NewFakePassiveClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	ts := &tokenServer{expiresIn: 120}
	m := newTestManager(t, ts, clk)

	s, err := m.Acquire(context.Background(), Credentials{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	// still well before expiry minus skew
	clk.SetTime(clk.Now().Add(60 * time.Second))
	token, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)

	// inside the 30s skew window
	clk.SetTime(clk.Now().Add(35 * time.Second))
	token, err = s.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-2", token)
	assert.Equal(t, []string{dto.GrantTypePassword, dto.GrantTypeRefreshToken}, ts.grantLog())
}

func TestSession_Refresh_FallsBackToCredentials(t *testing.T) {
	ts := &tokenServer{expiresIn: 300, rejectRefresh: true}
	m := newTestManager(t, ts, testclock.NewFakePassiveClock(time.Now()))

	s, err := m.Acquire(context.Background(), Credentials{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	token, err := s.Refresh(context.Background(), "access-1")
	require.NoError(t, err)
	assert.Equal(t, "access-2", token)
	assert.Equal(t, []string{
		dto.GrantTypePassword,
		dto.GrantTypeRefreshToken,
		dto.GrantTypePassword,
	}, ts.grantLog())
}

func TestSession_Refresh_AlreadyReplaced(t *testing.T) {
	ts := &tokenServer{expiresIn: 300}
	m := newTestManager(t, ts, testclock.NewFakePassiveClock(time.Now()))

	s, err := m.Acquire(context.Background(), Credentials{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	_, err = s.Refresh(context.Background(), "access-1")
	require.NoError(t, err)

	// a second caller holding the same stale token must not refresh again
	token, err := s.Refresh(context.Background(), "access-1")
	require.NoError(t, err)
	assert.Equal(t, "access-2", token)
	assert.Len(t, ts.grantLog(), 2)
}
