package platform

import (
	"context"
	"io"
	"net/http"

	"github.com/go-resty/resty/v2"

	"vision-platform-client/internal/core/domain"
	"vision-platform-client/internal/dto"
)

func (c *Client) ListModels(ctx context.Context, projectID string) ([]*domain.Model, error) {
	const op = "model.list"
	if blank(projectID) {
		return nil, missing(op, domain.ErrMissingProjectID)
	}

	res, err := c.execute(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/projects/{projectID}/models",
		prepare: func(r *resty.Request) {
			r.SetPathParam("projectID", projectID)
		},
	})
	if err != nil {
		return nil, err
	}

	var out dto.ListModelsResponse
	if err := decode(op, res, &out); err != nil {
		return nil, err
	}
	models := make([]*domain.Model, 0, len(out.Models))
	for _, m := range out.Models {
		models = append(models, dto.ToDomainModel(m))
	}
	return models, nil
}

func (c *Client) GetModel(ctx context.Context, projectID, modelID string) (*domain.Model, error) {
	const op = "model.get"
	if blank(projectID) {
		return nil, missing(op, domain.ErrMissingProjectID)
	}
	if blank(modelID) {
		return nil, missing(op, domain.ErrMissingModelID)
	}

	res, err := c.execute(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/projects/{projectID}/models/{modelID}",
		prepare: func(r *resty.Request) {
			r.SetPathParams(map[string]string{"projectID": projectID, "modelID": modelID})
		},
	})
	if err != nil {
		return nil, err
	}

	var out dto.ModelResponse
	if err := decode(op, res, &out); err != nil {
		return nil, err
	}
	return dto.ToDomainModel(out), nil
}

func (c *Client) UpdateModel(ctx context.Context, projectID, modelID string, update domain.ModelUpdate) (*domain.Model, error) {
	const op = "model.update"
	if blank(projectID) {
		return nil, missing(op, domain.ErrMissingProjectID)
	}
	if blank(modelID) {
		return nil, missing(op, domain.ErrMissingModelID)
	}
	body := dto.UpdateModelRequest{Name: update.Name}

	res, err := c.execute(ctx, call{
		op:      op,
		method:  http.MethodPatch,
		path:    "/projects/{projectID}/models/{modelID}",
		payload: body,
		prepare: func(r *resty.Request) {
			r.SetPathParams(map[string]string{"projectID": projectID, "modelID": modelID}).
				SetHeader("Content-Type", "application/json").
				SetBody(body)
		},
	})
	if err != nil {
		return nil, err
	}

	var out dto.ModelResponse
	if err := decode(op, res, &out); err != nil {
		return nil, err
	}
	return dto.ToDomainModel(out), nil
}

func (c *Client) DeleteModel(ctx context.Context, projectID, modelID string) error {
	const op = "model.delete"
	if blank(projectID) {
		return missing(op, domain.ErrMissingProjectID)
	}
	if blank(modelID) {
		return missing(op, domain.ErrMissingModelID)
	}

	_, err := c.execute(ctx, call{
		op:     op,
		method: http.MethodDelete,
		path:   "/projects/{projectID}/models/{modelID}",
		prepare: func(r *resty.Request) {
			r.SetPathParams(map[string]string{"projectID": projectID, "modelID": modelID})
		},
	})
	return err
}

// DownloadModelArtifact streams the exported model archive into w.
func (c *Client) DownloadModelArtifact(ctx context.Context, projectID, modelID string, w io.Writer) (int64, error) {
	const op = "model.export"
	if blank(projectID) {
		return 0, missing(op, domain.ErrMissingProjectID)
	}
	if blank(modelID) {
		return 0, missing(op, domain.ErrMissingModelID)
	}

	res, err := c.execute(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/projects/{projectID}/models/{modelID}/export",
		sink:   w,
		prepare: func(r *resty.Request) {
			r.SetPathParams(map[string]string{"projectID": projectID, "modelID": modelID}).
				SetHeader("Accept", "application/zip")
		},
	})
	if err != nil {
		return 0, err
	}
	return res.written, nil
}
