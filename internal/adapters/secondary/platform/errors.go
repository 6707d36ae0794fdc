package platform

import (
	"encoding/json"
	"errors"
	"net/http"

	"vision-platform-client/internal/core/domain"
	"vision-platform-client/internal/dto"
)

// kindForStatus maps an HTTP failure onto the client error taxonomy.
func kindForStatus(status int, code string) error {
	switch {
	case status == http.StatusUnauthorized && code == dto.ErrorCodeTokenExpired:
		return domain.ErrExpiredToken
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return domain.ErrAuth
	case status == http.StatusNotFound:
		return domain.ErrNotFound
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= 500:
		return domain.ErrNetwork
	default:
		// 400, 409, 422 and anything else the platform refuses to process.
		return domain.ErrValidation
	}
}

func errorFromResponse(op string, status int, body []byte, payload any) error {
	var e dto.ErrorResponse
	_ = json.Unmarshal(body, &e)

	msg := e.Error
	if msg == "" {
		msg = http.StatusText(status)
	}

	rerr := &domain.RemoteError{
		Kind:       kindForStatus(status, e.ErrorCode),
		Op:         op,
		StatusCode: status,
		Message:    msg,
		Detail:     e.Detail,
	}
	if rerr.Kind == domain.ErrValidation {
		rerr.Payload = payload
	}
	return rerr
}

func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrExpiredToken):
		return "expired"
	case errors.Is(err, domain.ErrAuth):
		return "auth"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrNetwork):
		return "network"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	}
	return "error"
}
