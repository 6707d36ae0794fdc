package platform

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"

	"vision-platform-client/internal/core/domain"
	"vision-platform-client/internal/dto"
)

func (c *Client) CreateProject(ctx context.Context, spec domain.ProjectSpec) (*domain.Project, error) {
	const op = "project.create"
	body := dto.ToCreateProjectRequest(spec)
	if err := spec.Validate(); err != nil {
		return nil, &domain.RemoteError{Kind: domain.ErrValidation, Op: op, Message: err.Error(), Payload: body, Err: err}
	}

	res, err := c.execute(ctx, call{
		op:      op,
		method:  http.MethodPost,
		path:    "/projects",
		payload: body,
		prepare: func(r *resty.Request) {
			r.SetHeader("Content-Type", "application/json").SetBody(body)
		},
	})
	if err != nil {
		return nil, err
	}

	var out dto.ProjectResponse
	if err := decode(op, res, &out); err != nil {
		return nil, err
	}
	return dto.ToDomainProject(out), nil
}

func (c *Client) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	const op = "project.list"
	var projects []*domain.Project
	for skip := 0; ; {
		res, err := c.execute(ctx, call{
			op:     op,
			method: http.MethodGet,
			path:   "/projects",
			prepare: func(r *resty.Request) {
				r.SetQueryParams(map[string]string{
					"top":  strconv.Itoa(c.pageSize),
					"skip": strconv.Itoa(skip),
				})
			},
		})
		if err != nil {
			return nil, err
		}

		var page dto.ListProjectsResponse
		if err := decode(op, res, &page); err != nil {
			return nil, err
		}
		for _, p := range page.Projects {
			projects = append(projects, dto.ToDomainProject(p))
		}
		if page.NextPage == "" || len(page.Projects) == 0 {
			return projects, nil
		}
		skip += len(page.Projects)
	}
}

func (c *Client) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	const op = "project.get"
	if blank(projectID) {
		return nil, missing(op, domain.ErrMissingProjectID)
	}

	res, err := c.execute(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/projects/{projectID}",
		prepare: func(r *resty.Request) {
			r.SetPathParam("projectID", projectID)
		},
	})
	if err != nil {
		return nil, err
	}

	var out dto.ProjectResponse
	if err := decode(op, res, &out); err != nil {
		return nil, err
	}
	return dto.ToDomainProject(out), nil
}

func (c *Client) UpdateProject(ctx context.Context, projectID string, update domain.ProjectUpdate) (*domain.Project, error) {
	const op = "project.update"
	if blank(projectID) {
		return nil, missing(op, domain.ErrMissingProjectID)
	}
	body := dto.ToUpdateProjectRequest(update)
	if update.Name != nil && blank(*update.Name) {
		return nil, &domain.RemoteError{Kind: domain.ErrValidation, Op: op, Message: domain.ErrInvalidProjectName.Error(), Payload: body, Err: domain.ErrInvalidProjectName}
	}

	res, err := c.execute(ctx, call{
		op:      op,
		method:  http.MethodPut,
		path:    "/projects/{projectID}",
		payload: body,
		prepare: func(r *resty.Request) {
			r.SetPathParam("projectID", projectID).
				SetHeader("Content-Type", "application/json").
				SetBody(body)
		},
	})
	if err != nil {
		return nil, err
	}

	var out dto.ProjectResponse
	if err := decode(op, res, &out); err != nil {
		return nil, err
	}
	return dto.ToDomainProject(out), nil
}

func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	const op = "project.delete"
	if blank(projectID) {
		return missing(op, domain.ErrMissingProjectID)
	}

	_, err := c.execute(ctx, call{
		op:     op,
		method: http.MethodDelete,
		path:   "/projects/{projectID}",
		prepare: func(r *resty.Request) {
			r.SetPathParam("projectID", projectID)
		},
	})
	return err
}
