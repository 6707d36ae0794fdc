package dto

const (
	GrantTypePassword            = "password"
	GrantTypeRefreshToken        = "refresh_token"
	GrantTypePersonalAccessToken = "personal_access_token"
)

type TokenRequest struct {
	GrantType    string `json:"grant_type" binding:"required,oneof=password refresh_token personal_access_token"`
	Username     string `json:"username,omitempty"`
	Password     string `json:"password,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Token        string `json:"token,omitempty"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// ErrorCodeTokenExpired marks a 401 caused by a stale access token.
const ErrorCodeTokenExpired = "token_expired"

type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code,omitempty"`
	Detail    string `json:"detail,omitempty"`
}
