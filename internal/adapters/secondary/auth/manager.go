package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"vision-platform-client/internal/core/domain"
	"vision-platform-client/internal/dto"
)

const tokenPath = "/auth/token"

type Config struct {
	BaseURL     string
	Timeout     time.Duration
	RefreshSkew time.Duration // refresh this long before the token expires
}

// Manager exchanges credentials for sessions against the platform token endpoint.
type Manager struct {
	rc    *resty.Client
	clock clock.PassiveClock
	skew  time.Duration
}

type Option func(*Manager)

// WithClock replaces the clock used to compute token expiry.
func WithClock(c clock.PassiveClock) Option {
	return func(m *Manager) { m.clock = c }
}

func NewManager(cfg Config, opts ...Option) *Manager {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/api/v1").
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}

	m := &Manager{
		rc:    rc,
		clock: clock.RealClock{},
		skew:  cfg.RefreshSkew,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire authenticates and returns a live session.
func (m *Manager) Acquire(ctx context.Context, creds Credentials) (*Session, error) {
	req, err := creds.grant()
	if err != nil {
		return nil, err
	}

	tok, err := m.exchange(ctx, "auth.acquire", req)
	if err != nil {
		return nil, err
	}

	s := &Session{manager: m, creds: creds}
	s.store(tok)

	log.WithFields(log.Fields{
		"principal":  creds.principal(),
		"expires_at": s.expiresAt,
	}).Info("session acquired")
	return s, nil
}

func (m *Manager) exchange(ctx context.Context, op string, body dto.TokenRequest) (*dto.TokenResponse, error) {
	res, err := m.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Request-ID", uuid.NewString()).
		SetBody(body).
		Post(tokenPath)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.RemoteError{Kind: domain.ErrNetwork, Op: op, Message: "token endpoint unreachable", Err: err}
	}

	if !res.IsSuccess() {
		var e dto.ErrorResponse
		_ = json.Unmarshal(res.Body(), &e)
		kind := domain.ErrAuth
		if isTransientStatus(res.StatusCode()) {
			kind = domain.ErrNetwork
		}
		return nil, &domain.RemoteError{
			Kind:       kind,
			Op:         op,
			StatusCode: res.StatusCode(),
			Message:    e.Error,
			Detail:     e.Detail,
		}
	}

	var tok dto.TokenResponse
	if err := json.Unmarshal(res.Body(), &tok); err != nil || tok.AccessToken == "" {
		return nil, &domain.RemoteError{
			Kind:       domain.ErrAuth,
			Op:         op,
			StatusCode: res.StatusCode(),
			Message:    "malformed token response",
			Err:        err,
		}
	}
	return &tok, nil
}

// expiry derives the absolute expiry of a token, preferring expires_in over
// the exp claim. A zero time means the lifetime is unknown.
func (m *Manager) expiry(tok *dto.TokenResponse) time.Time {
	if tok.ExpiresIn > 0 {
		return m.clock.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok.AccessToken, claims); err != nil {
		log.WithError(err).Debug("access token is not a parseable JWT")
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

func isTransientStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}
