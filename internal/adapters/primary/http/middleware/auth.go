package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"vision-platform-client/internal/core/domain"
	"vision-platform-client/internal/dto"
)

// ContextSubject holds the authenticated principal of a request.
const ContextSubject = "subject"

// TokenVerifier validates bearer tokens and returns their subject.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// RequireToken rejects requests without a valid bearer token. Expired
// tokens are answered with error_code "token_expired" so clients can refresh.
func RequireToken(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "missing bearer token"})
			return
		}

		subject, err := v.Verify(token)
		if errors.Is(err, domain.ErrExpiredToken) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:     "access token expired",
				ErrorCode: dto.ErrorCodeTokenExpired,
			})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid access token"})
			return
		}

		c.Set(ContextSubject, subject)
		c.Next()
	}
}
