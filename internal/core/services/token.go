package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"vision-platform-client/internal/core/domain"
)

type TokenConfig struct {
	Secret          string
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Users           map[string]string // username -> password
	AccessTokens    map[string]string // personal access token -> username
}

// TokenGrant is a token request as received by the token endpoint.
type TokenGrant struct {
	GrantType    string
	Username     string
	Password     string
	RefreshToken string
	Token        string
}

type IssuedToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

type refreshGrant struct {
	subject   string
	expiresAt time.Time
}

// TokenService issues and verifies HS256 access tokens for the reference platform.
type TokenService struct {
	cfg   TokenConfig
	clock clock.PassiveClock

	mu      sync.Mutex
	refresh map[string]refreshGrant
}

func NewTokenService(cfg TokenConfig, clk clock.PassiveClock) *TokenService {
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 15 * time.Minute
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = 24 * time.Hour
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &TokenService{cfg: cfg, clock: clk, refresh: make(map[string]refreshGrant)}
}

var errInvalidGrant = fmt.Errorf("invalid grant: %w", domain.ErrAuth)

func (s *TokenService) Issue(grant TokenGrant) (*IssuedToken, error) {
	var subject string
	switch grant.GrantType {
	case "password":
		pw, ok := s.cfg.Users[grant.Username]
		if !ok || pw != grant.Password {
			return nil, errInvalidGrant
		}
		subject = grant.Username

	case "personal_access_token":
		user, ok := s.cfg.AccessTokens[grant.Token]
		if !ok {
			return nil, errInvalidGrant
		}
		subject = user

	case "refresh_token":
		s.mu.Lock()
		rg, ok := s.refresh[grant.RefreshToken]
		delete(s.refresh, grant.RefreshToken)
		s.mu.Unlock()
		if !ok || !s.clock.Now().Before(rg.expiresAt) {
			return nil, errInvalidGrant
		}
		subject = rg.subject

	default:
		return nil, errInvalidGrant
	}

	return s.issueFor(subject)
}

func (s *TokenService) issueFor(subject string) (*IssuedToken, error) {
	now := s.clock.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.cfg.Issuer,
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenTTL)),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh := uuid.NewString()
	s.mu.Lock()
	s.refresh[refresh] = refreshGrant{subject: subject, expiresAt: now.Add(s.cfg.RefreshTokenTTL)}
	s.mu.Unlock()

	return &IssuedToken{AccessToken: access, RefreshToken: refresh, ExpiresIn: s.cfg.AccessTokenTTL}, nil
}

// Verify checks an access token and returns its subject. Expired tokens
// fail with ErrExpiredToken, anything else invalid with ErrAuth.
func (s *TokenService) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) {
			return []byte(s.cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", domain.ErrExpiredToken
	case err != nil:
		return "", fmt.Errorf("%w: %v", domain.ErrAuth, err)
	}
	return claims.Subject, nil
}
