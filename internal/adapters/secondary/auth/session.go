package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"vision-platform-client/internal/core/domain"
	"vision-platform-client/internal/dto"
	"vision-platform-client/internal/metrics"
)

// Session holds the tokens of an authenticated caller. It is safe for
// concurrent use.
type Session struct {
	manager *Manager
	creds   Credentials

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

// Token returns a usable access token, refreshing it first when it is
// within the refresh skew of its expiry.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dueLocked() {
		if err := s.refreshLocked(ctx, "proactive"); err != nil {
			return "", err
		}
	}
	return s.accessToken, nil
}

// Refresh replaces a token the platform rejected as expired. If another
// caller already replaced stale, the current token is returned untouched.
func (s *Session) Refresh(ctx context.Context, stale string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken != stale {
		return s.accessToken, nil
	}
	if err := s.refreshLocked(ctx, "expired"); err != nil {
		return "", err
	}
	return s.accessToken, nil
}

func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

func (s *Session) dueLocked() bool {
	if s.expiresAt.IsZero() {
		return false
	}
	return !s.manager.clock.Now().Add(s.manager.skew).Before(s.expiresAt)
}

func (s *Session) refreshLocked(ctx context.Context, reason string) error {
	var (
		tok *dto.TokenResponse
		err error
	)
	if s.refreshToken != "" {
		tok, err = s.manager.exchange(ctx, "auth.refresh", dto.TokenRequest{
			GrantType:    dto.GrantTypeRefreshToken,
			RefreshToken: s.refreshToken,
		})
	}
	// No refresh token, or the platform rejected it: authenticate again.
	if s.refreshToken == "" || errors.Is(err, domain.ErrAuth) {
		req, gerr := s.creds.grant()
		if gerr != nil {
			return gerr
		}
		tok, err = s.manager.exchange(ctx, "auth.refresh", req)
	}
	metrics.RecordTokenRefresh(reason, err)
	if err != nil {
		log.WithError(err).WithField("reason", reason).Warn("session refresh failed")
		return err
	}

	s.store(tok)
	log.WithFields(log.Fields{
		"reason":     reason,
		"expires_at": s.expiresAt,
	}).Debug("session refreshed")
	return nil
}

func (s *Session) store(tok *dto.TokenResponse) {
	s.accessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		s.refreshToken = tok.RefreshToken
	}
	s.expiresAt = s.manager.expiry(tok)
}
