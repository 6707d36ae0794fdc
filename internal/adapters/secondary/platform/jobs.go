package platform

import (
	"context"
	"net/http"

	"github.com/go-resty/resty/v2"

	"vision-platform-client/internal/core/domain"
	"vision-platform-client/internal/dto"
)

// SubmitTraining creates a training job for one task of a project.
func (c *Client) SubmitTraining(ctx context.Context, projectID, taskID string) (*domain.Job, error) {
	const op = "job.submit"
	if blank(projectID) {
		return nil, missing(op, domain.ErrMissingProjectID)
	}
	body := dto.TrainRequest{TaskID: taskID}
	if blank(taskID) {
		return nil, &domain.RemoteError{Kind: domain.ErrValidation, Op: op, Message: "task ID is required", Payload: body}
	}

	res, err := c.execute(ctx, call{
		op:      op,
		method:  http.MethodPost,
		path:    "/projects/{projectID}/train",
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

	var out dto.JobResponse
	if err := decode(op, res, &out); err != nil {
		return nil, err
	}
	return dto.ToDomainJob(out), nil
}

func (c *Client) ListJobs(ctx context.Context, filter domain.JobFilter) ([]*domain.Job, error) {
	const op = "job.list"
	res, err := c.execute(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/jobs",
		prepare: func(r *resty.Request) {
			if filter.ProjectID != "" {
				r.SetQueryParam("project_id", filter.ProjectID)
			}
			if filter.State != "" {
				r.SetQueryParam("state", string(filter.State))
			}
		},
	})
	if err != nil {
		return nil, err
	}

	var out dto.ListJobsResponse
	if err := decode(op, res, &out); err != nil {
		return nil, err
	}
	jobs := make([]*domain.Job, 0, len(out.Jobs))
	for _, j := range out.Jobs {
		jobs = append(jobs, dto.ToDomainJob(j))
	}
	return jobs, nil
}

func (c *Client) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	const op = "job.get"
	if blank(jobID) {
		return nil, missing(op, domain.ErrMissingJobID)
	}

	res, err := c.execute(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/jobs/{jobID}",
		prepare: func(r *resty.Request) {
			r.SetPathParam("jobID", jobID)
		},
	})
	if err != nil {
		return nil, err
	}

	var out dto.JobResponse
	if err := decode(op, res, &out); err != nil {
		return nil, err
	}
	return dto.ToDomainJob(out), nil
}

// CancelJob asks the platform to stop a job. The job ends CANCELLED.
func (c *Client) CancelJob(ctx context.Context, jobID string) error {
	const op = "job.cancel"
	if blank(jobID) {
		return missing(op, domain.ErrMissingJobID)
	}

	_, err := c.execute(ctx, call{
		op:     op,
		method: http.MethodDelete,
		path:   "/jobs/{jobID}",
		prepare: func(r *resty.Request) {
			r.SetPathParam("jobID", jobID)
		},
	})
	return err
}
