package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"vision-platform-client/internal/core/domain"
	"vision-platform-client/internal/dto"
)

func annotationFromRequest(req dto.AnnotationSceneRequest) *domain.Annotation {
	return &domain.Annotation{
		Shapes:             dto.ToDomainShapes(req.Annotations),
		LabelSchemaVersion: req.LabelSchemaVersion,
	}
}

func (h *Handler) ListAnnotations(c *gin.Context) {
	anns, err := h.annotationSvc.List(c.Request.Context(), c.Param("projectID"), c.Param("mediaID"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	items := make([]dto.AnnotationSceneResponse, 0, len(anns))
	for _, a := range anns {
		items = append(items, dto.ToAnnotationSceneResponse(a))
	}

	c.JSON(http.StatusOK, dto.ListAnnotationsResponse{Annotations: items})
}

func (h *Handler) CreateAnnotation(c *gin.Context) {
	var req dto.AnnotationSceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ann, err := h.annotationSvc.Create(c.Request.Context(), c.Param("projectID"), c.Param("mediaID"), annotationFromRequest(req))
	if err != nil {
		log.WithError(err).WithField("media_id", c.Param("mediaID")).Warn("create annotation failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToAnnotationSceneResponse(ann))
}

// GetLatestAnnotation answers 204 for a media item without annotations.
func (h *Handler) GetLatestAnnotation(c *gin.Context) {
	ann, err := h.annotationSvc.Latest(c.Request.Context(), c.Param("projectID"), c.Param("mediaID"))
	if errors.Is(err, domain.ErrAnnotationNotFound) {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAnnotationSceneResponse(ann))
}

func (h *Handler) GetAnnotation(c *gin.Context) {
	ann, err := h.annotationSvc.Get(c.Request.Context(), c.Param("projectID"), c.Param("annotationID"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAnnotationSceneResponse(ann))
}

func (h *Handler) UpdateAnnotation(c *gin.Context) {
	var req dto.AnnotationSceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ann, err := h.annotationSvc.Update(c.Request.Context(), c.Param("projectID"), c.Param("annotationID"), annotationFromRequest(req))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAnnotationSceneResponse(ann))
}

func (h *Handler) DeleteAnnotation(c *gin.Context) {
	if err := h.annotationSvc.Delete(c.Request.Context(), c.Param("projectID"), c.Param("annotationID")); err != nil {
		mapDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
