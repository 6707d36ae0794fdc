package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vision-platform-client/internal/adapters/primary/http/middleware"
	"vision-platform-client/internal/core/services"
)

type Handler struct {
	projectSvc    *services.ProjectService
	mediaSvc      *services.MediaService
	annotationSvc *services.AnnotationService
	jobSvc        *services.JobService
	modelSvc      *services.ModelService
	tokenSvc      *services.TokenService
}

func New(
	projectSvc *services.ProjectService,
	mediaSvc *services.MediaService,
	annotationSvc *services.AnnotationService,
	jobSvc *services.JobService,
	modelSvc *services.ModelService,
	tokenSvc *services.TokenService,
) *Handler {
	return &Handler{
		projectSvc:    projectSvc,
		mediaSvc:      mediaSvc,
		annotationSvc: annotationSvc,
		jobSvc:        jobSvc,
		modelSvc:      modelSvc,
		tokenSvc:      tokenSvc,
	}
}

// RegisterRoutes mounts the token endpoint and the authenticated resource API.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Auth
	r.POST("/auth/token", h.IssueToken)

	api := r.Group("", middleware.RequireToken(h.tokenSvc))

	// Projects
	api.GET("/projects", h.ListProjects)
	api.POST("/projects", h.CreateProject)
	api.GET("/projects/:projectID", h.GetProject)
	api.PUT("/projects/:projectID", h.UpdateProject)
	api.DELETE("/projects/:projectID", h.DeleteProject)

	// Media
	api.GET("/projects/:projectID/media/images", h.ListImages)
	api.POST("/projects/:projectID/media/images", h.UploadImage)
	api.GET("/projects/:projectID/media/images/:mediaID", h.GetImage)
	api.GET("/projects/:projectID/media/images/:mediaID/full", h.DownloadImage)
	api.DELETE("/projects/:projectID/media/images/:mediaID", h.DeleteImage)

	// Annotations
	api.GET("/projects/:projectID/media/images/:mediaID/annotations", h.ListAnnotations)
	api.POST("/projects/:projectID/media/images/:mediaID/annotations", h.CreateAnnotation)
	api.GET("/projects/:projectID/media/images/:mediaID/annotations/latest", h.GetLatestAnnotation)
	api.GET("/projects/:projectID/annotations/:annotationID", h.GetAnnotation)
	api.PUT("/projects/:projectID/annotations/:annotationID", h.UpdateAnnotation)
	api.DELETE("/projects/:projectID/annotations/:annotationID", h.DeleteAnnotation)

	// Training jobs
	api.POST("/projects/:projectID/train", h.SubmitTraining)
	api.GET("/jobs", h.ListJobs)
	api.GET("/jobs/:jobID", h.GetJob)
	api.DELETE("/jobs/:jobID", h.CancelJob)

	// Models
	api.GET("/projects/:projectID/models", h.ListModels)
	api.GET("/projects/:projectID/models/:modelID", h.GetModel)
	api.PATCH("/projects/:projectID/models/:modelID", h.UpdateModel)
	api.DELETE("/projects/:projectID/models/:modelID", h.DeleteModel)
	api.GET("/projects/:projectID/models/:modelID/export", h.ExportModel)
}

// NewRouter builds the reference platform's gin engine. ready backs /healthz.
func NewRouter(h *Handler, ready func(*gin.Context) error) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())

	h.RegisterRoutes(router.Group("/api/v1"))

	router.GET("/healthz", func(c *gin.Context) {
		if ready != nil {
			if err := ready(c); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
