package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testclock "k8s.io/utils/clock/testing"

	"vision-platform-client/internal/core/domain"
)

func newTestTokenService() (*TokenService, *testclock.FakePassiveClock) {
	clk := testclock.NewFakePassiveClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	svc := NewTokenService(TokenConfig{
		Secret:         "test-secret",
		Issuer:         "test",
		AccessTokenTTL: time.Minute,
		Users:          map[string]string{"alice": "secret"},
		AccessTokens:   map[string]string{"pat-1": "bob"},
	}, clk)
	return svc, clk
}

func TestTokenService_Issue(t *testing.T) {
	svc, _ := newTestTokenService()

	tok, err := svc.Issue(TokenGrant{GrantType: "password", Username: "alice", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, time.Minute, tok.ExpiresIn)
	assert.NotEmpty(t, tok.RefreshToken)

	subject, err := svc.Verify(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)

	tok, err = svc.Issue(TokenGrant{GrantType: "personal_access_token", Token: "pat-1"})
	require.NoError(t, err)
	subject, err = svc.Verify(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "bob", subject)
}

func TestTokenService_IssueRejectsBadGrants(t *testing.T) {
	svc, _ := newTestTokenService()

	tests := []struct {
		name  string
		grant TokenGrant
	}{
		{"wrong password", TokenGrant{GrantType: "password", Username: "alice", Password: "nope"}},
		{"unknown user", TokenGrant{GrantType: "password", Username: "eve", Password: "secret"}},
		{"unknown token", TokenGrant{GrantType: "personal_access_token", Token: "pat-2"}},
		{"unknown refresh", TokenGrant{GrantType: "refresh_token", RefreshToken: "r"}},
		{"unknown grant type", TokenGrant{GrantType: "client_credentials"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Issue(tt.grant)
			assert.ErrorIs(t, err, domain.ErrAuth)
		})
	}
}

func TestTokenService_Expiry(t *testing.T) {
	svc, clk := newTestTokenService()

	tok, err := svc.Issue(TokenGrant{GrantType: "password", Username: "alice", Password: "secret"})
	require.NoError(t, err)

	clk.SetTime(clk.Now().Add(2 * time.Minute))
	_, err = svc.Verify(tok.AccessToken)
	assert.ErrorIs(t, err, domain.ErrExpiredToken)

	// the refresh token is still good, once
	refreshed, err := svc.Issue(TokenGrant{GrantType: "refresh_token", RefreshToken: tok.RefreshToken})
	require.NoError(t, err)
	subject, err := svc.Verify(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)

	_, err = svc.Issue(TokenGrant{GrantType: "refresh_token", RefreshToken: tok.RefreshToken})
	assert.ErrorIs(t, err, domain.ErrAuth)
}

func TestTokenService_VerifyRejectsForeignTokens(t *testing.T) {
	svc, clk := newTestTokenService()
	other := NewTokenService(TokenConfig{Secret: "other-secret", Users: map[string]string{"alice": "secret"}}, clk)

	tok, err := other.Issue(TokenGrant{GrantType: "password", Username: "alice", Password: "secret"})
	require.NoError(t, err)

	_, err = svc.Verify(tok.AccessToken)
	assert.ErrorIs(t, err, domain.ErrAuth)
	assert.NotErrorIs(t, err, domain.ErrExpiredToken)

	_, err = svc.Verify("not-a-jwt")
	assert.ErrorIs(t, err, domain.ErrAuth)
}
