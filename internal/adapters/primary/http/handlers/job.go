package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"vision-platform-client/internal/core/domain"
	"vision-platform-client/internal/dto"
)

func (h *Handler) SubmitTraining(c *gin.Context) {
	var req dto.TrainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	job, err := h.jobSvc.Submit(c.Request.Context(), c.Param("projectID"), req.TaskID)
	if err != nil {
		log.WithError(err).WithField("task_id", req.TaskID).Warn("submit training failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToJobResponse(job))
}

func (h *Handler) ListJobs(c *gin.Context) {
	filter := domain.JobFilter{
		ProjectID: c.Query("project_id"),
		State:     domain.JobState(c.Query("state")),
	}
	if filter.State != "" && !filter.State.IsValid() {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid job state filter"})
		return
	}

	jobs, err := h.jobSvc.List(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("list jobs failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.JobResponse, 0, len(jobs))
	for _, j := range jobs {
		items = append(items, dto.ToJobResponse(j))
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{Jobs: items})
}

func (h *Handler) GetJob(c *gin.Context) {
	job, err := h.jobSvc.Get(c.Request.Context(), c.Param("jobID"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToJobResponse(job))
}

func (h *Handler) CancelJob(c *gin.Context) {
	job, err := h.jobSvc.Cancel(c.Request.Context(), c.Param("jobID"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToJobResponse(job))
}
