package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"vision-platform-client/internal/core/services"
	"vision-platform-client/internal/dto"
)

func (h *Handler) IssueToken(c *gin.Context) {
	var req dto.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	tok, err := h.tokenSvc.Issue(services.TokenGrant{
		GrantType:    req.GrantType,
		Username:     req.Username,
		Password:     req.Password,
		RefreshToken: req.RefreshToken,
		Token:        req.Token,
	})
	if err != nil {
		log.WithField("grant_type", req.GrantType).Warn("token request rejected")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TokenResponse{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(tok.ExpiresIn.Seconds()),
	})
}
