package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"vision-platform-client/internal/core/domain"
	"vision-platform-client/internal/dto"
)

func mapDomainError(c *gin.Context, err error) {
	switch {
	// Conflict errors
	case errors.Is(err, domain.ErrProjectNameConflict):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})

	// Not found errors
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})

	// Annotation content the platform cannot accept
	case errors.Is(err, domain.ErrUnknownLabel),
		errors.Is(err, domain.ErrSchemaVersionMismatch),
		errors.Is(err, domain.ErrInvalidShape),
		errors.Is(err, domain.ErrEmptyAnnotation),
		errors.Is(err, domain.ErrNoTrainingData),
		errors.Is(err, domain.ErrTaskNotTrainable):
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{Error: err.Error()})

	// Bad request / validation errors
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})

	case errors.Is(err, domain.ErrExpiredToken):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: err.Error(), ErrorCode: dto.ErrorCodeTokenExpired})

	case errors.Is(err, domain.ErrAuth):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body", Detail: err.Error()})
}
