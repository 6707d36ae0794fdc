package auth

import (
	"vision-platform-client/internal/core/domain"
	"vision-platform-client/internal/dto"
)

// Credentials identify the caller. Either Username/Password or Token
// (a personal access token) must be set.
type Credentials struct {
	Username string
	Password string
	Token    string
}

func (c Credentials) principal() string {
	if c.Username != "" {
		return c.Username
	}
	return "personal-access-token"
}

// grant builds the token request the credentials exchange for.
func (c Credentials) grant() (dto.TokenRequest, error) {
	switch {
	case c.Token != "":
		return dto.TokenRequest{GrantType: dto.GrantTypePersonalAccessToken, Token: c.Token}, nil
	case c.Username != "" && c.Password != "":
		return dto.TokenRequest{GrantType: dto.GrantTypePassword, Username: c.Username, Password: c.Password}, nil
	}
	return dto.TokenRequest{}, &domain.RemoteError{
		Kind:    domain.ErrAuth,
		Op:      "auth.acquire",
		Message: "username and password, or a personal access token, are required",
	}
}
