package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"vision-platform-client/internal/core/domain"
	"vision-platform-client/internal/dto"
)

func (h *Handler) ListModels(c *gin.Context) {
	models, err := h.modelSvc.List(c.Request.Context(), c.Param("projectID"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	items := make([]dto.ModelResponse, 0, len(models))
	for _, m := range models {
		items = append(items, dto.ToModelResponse(m))
	}

	c.JSON(http.StatusOK, dto.ListModelsResponse{Models: items})
}

func (h *Handler) GetModel(c *gin.Context) {
	model, err := h.modelSvc.Get(c.Request.Context(), c.Param("projectID"), c.Param("modelID"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToModelResponse(model))
}

func (h *Handler) UpdateModel(c *gin.Context) {
	var req dto.UpdateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	model, err := h.modelSvc.Update(c.Request.Context(), c.Param("projectID"), c.Param("modelID"), domain.ModelUpdate{Name: req.Name})
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToModelResponse(model))
}

func (h *Handler) DeleteModel(c *gin.Context) {
	if err := h.modelSvc.Delete(c.Request.Context(), c.Param("projectID"), c.Param("modelID")); err != nil {
		mapDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ExportModel(c *gin.Context) {
	model, artifact, err := h.modelSvc.Artifact(c.Request.Context(), c.Param("projectID"), c.Param("modelID"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", model.ID+".zip"))
	c.Data(http.StatusOK, "application/zip", artifact)
}
