package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"vision-platform-client/internal/core/domain"
	output "vision-platform-client/internal/core/ports/output"
	"vision-platform-client/internal/dto"
)

// listWindow reads the top/skip paging parameters.
func listWindow(c *gin.Context) output.ListFilter {
	top, _ := strconv.Atoi(c.DefaultQuery("top", "100"))
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if top <= 0 {
		top = 100
	}
	if skip < 0 {
		skip = 0
	}
	return output.ListFilter{Limit: top, Offset: skip}
}

// nextPage returns the link to the following page, or "" on the last one.
func nextPage(c *gin.Context, filter output.ListFilter, returned, total int) string {
	next := filter.Offset + returned
	if returned == 0 || next >= total {
		return ""
	}
	q := c.Request.URL.Query()
	q.Set("top", strconv.Itoa(filter.Limit))
	q.Set("skip", strconv.Itoa(next))
	return c.Request.URL.Path + "?" + q.Encode()
}

func (h *Handler) ListProjects(c *gin.Context) {
	filter := listWindow(c)

	projects, total, err := h.projectSvc.List(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("list projects failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.ProjectResponse, 0, len(projects))
	for _, p := range projects {
		items = append(items, dto.ToProjectResponse(p))
	}

	c.JSON(http.StatusOK, dto.ListProjectsResponse{
		Projects: items,
		Total:    total,
		NextPage: nextPage(c, filter, len(items), total),
	})
}

func (h *Handler) CreateProject(c *gin.Context) {
	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	project, err := h.projectSvc.Create(c.Request.Context(), domain.ProjectSpec{
		Name:       req.Name,
		Tasks:      dto.ToDomainTasks(req.Pipeline),
		Parameters: req.Parameters,
	})
	if err != nil {
		log.WithError(err).WithField("name", req.Name).Warn("create project failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToProjectResponse(project))
}

func (h *Handler) GetProject(c *gin.Context) {
	project, err := h.projectSvc.Get(c.Request.Context(), c.Param("projectID"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectResponse(project))
}

func (h *Handler) UpdateProject(c *gin.Context) {
	var req dto.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	project, err := h.projectSvc.Update(c.Request.Context(), c.Param("projectID"), dto.ToDomainProjectUpdate(req))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectResponse(project))
}

func (h *Handler) DeleteProject(c *gin.Context) {
	if err := h.projectSvc.Delete(c.Request.Context(), c.Param("projectID")); err != nil {
		mapDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
