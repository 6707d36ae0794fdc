package platform

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-resty/resty/v2"

	"vision-platform-client/internal/core/domain"
	"vision-platform-client/internal/dto"
)

// CreateAnnotation posts a new annotation scene for a media item. The
// platform keeps history; the newest scene becomes the latest annotation.
func (c *Client) CreateAnnotation(ctx context.Context, projectID, mediaID string, ann *domain.Annotation) (*domain.Annotation, error) {
	const op = "annotation.create"
	if blank(projectID) {
		return nil, missing(op, domain.ErrMissingProjectID)
	}
	if blank(mediaID) {
		return nil, missing(op, domain.ErrMissingMediaID)
	}
	body := dto.ToAnnotationSceneRequest(ann)
	if err := ann.Validate(nil); err != nil {
		return nil, &domain.RemoteError{Kind: domain.ErrValidation, Op: op, Message: err.Error(), Payload: body, Err: err}
	}

	res, err := c.execute(ctx, call{
		op:      op,
		method:  http.MethodPost,
		path:    "/projects/{projectID}/media/images/{mediaID}/annotations",
		payload: body,
		prepare: func(r *resty.Request) {
			r.SetPathParams(map[string]string{"projectID": projectID, "mediaID": mediaID}).
				SetHeader("Content-Type", "application/json").
				SetBody(body)
		},
	})
	if err != nil {
		return nil, err
	}

	var out dto.AnnotationSceneResponse
	if err := decode(op, res, &out); err != nil {
		return nil, err
	}
	return dto.ToDomainAnnotation(out), nil
}

func (c *Client) ListAnnotations(ctx context.Context, projectID, mediaID string) ([]*domain.Annotation, error) {
	const op = "annotation.list"
	if blank(projectID) {
		return nil, missing(op, domain.ErrMissingProjectID)
	}
	if blank(mediaID) {
		return nil, missing(op, domain.ErrMissingMediaID)
	}

	res, err := c.execute(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/projects/{projectID}/media/images/{mediaID}/annotations",
		prepare: func(r *resty.Request) {
			r.SetPathParams(map[string]string{"projectID": projectID, "mediaID": mediaID})
		},
	})
	if err != nil {
		return nil, err
	}

	var out dto.ListAnnotationsResponse
	if err := decode(op, res, &out); err != nil {
		return nil, err
	}
	anns := make([]*domain.Annotation, 0, len(out.Annotations))
	for _, a := range out.Annotations {
		anns = append(anns, dto.ToDomainAnnotation(a))
	}
	return anns, nil
}

// GetLatestAnnotation returns nil, nil when the media item is unannotated.
func (c *Client) GetLatestAnnotation(ctx context.Context, projectID, mediaID string) (*domain.Annotation, error) {
	const op = "annotation.latest"
	if blank(projectID) {
		return nil, missing(op, domain.ErrMissingProjectID)
	}
	if blank(mediaID) {
		return nil, missing(op, domain.ErrMissingMediaID)
	}

	res, err := c.execute(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/projects/{projectID}/media/images/{mediaID}/annotations/latest",
		prepare: func(r *resty.Request) {
			r.SetPathParams(map[string]string{"projectID": projectID, "mediaID": mediaID})
		},
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if res.status == http.StatusNoContent || len(res.body) == 0 {
		return nil, nil
	}

	var out dto.AnnotationSceneResponse
	if err := decode(op, res, &out); err != nil {
		return nil, err
	}
	return dto.ToDomainAnnotation(out), nil
}

func (c *Client) GetAnnotation(ctx context.Context, projectID, annotationID string) (*domain.Annotation, error) {
	const op = "annotation.get"
	if blank(projectID) {
		return nil, missing(op, domain.ErrMissingProjectID)
	}
	if blank(annotationID) {
		return nil, missing(op, domain.ErrMissingAnnotationID)
	}

	res, err := c.execute(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/projects/{projectID}/annotations/{annotationID}",
		prepare: func(r *resty.Request) {
			r.SetPathParams(map[string]string{"projectID": projectID, "annotationID": annotationID})
		},
	})
	if err != nil {
		return nil, err
	}

	var out dto.AnnotationSceneResponse
	if err := decode(op, res, &out); err != nil {
		return nil, err
	}
	return dto.ToDomainAnnotation(out), nil
}

func (c *Client) UpdateAnnotation(ctx context.Context, projectID string, ann *domain.Annotation) (*domain.Annotation, error) {
	const op = "annotation.update"
	if blank(projectID) {
		return nil, missing(op, domain.ErrMissingProjectID)
	}
	if ann == nil || blank(ann.ID) {
		return nil, missing(op, domain.ErrMissingAnnotationID)
	}
	body := dto.ToAnnotationSceneRequest(ann)
	if err := ann.Validate(nil); err != nil {
		return nil, &domain.RemoteError{Kind: domain.ErrValidation, Op: op, Message: err.Error(), Payload: body, Err: err}
	}

	res, err := c.execute(ctx, call{
		op:      op,
		method:  http.MethodPut,
		path:    "/projects/{projectID}/annotations/{annotationID}",
		payload: body,
		prepare: func(r *resty.Request) {
			r.SetPathParams(map[string]string{"projectID": projectID, "annotationID": ann.ID}).
				SetHeader("Content-Type", "application/json").
				SetBody(body)
		},
	})
	if err != nil {
		return nil, err
	}

	var out dto.AnnotationSceneResponse
	if err := decode(op, res, &out); err != nil {
		return nil, err
	}
	return dto.ToDomainAnnotation(out), nil
}

func (c *Client) DeleteAnnotation(ctx context.Context, projectID, annotationID string) error {
	const op = "annotation.delete"
	if blank(projectID) {
		return missing(op, domain.ErrMissingProjectID)
	}
	if blank(annotationID) {
		return missing(op, domain.ErrMissingAnnotationID)
	}

	_, err := c.execute(ctx, call{
		op:     op,
		method: http.MethodDelete,
		path:   "/projects/{projectID}/annotations/{annotationID}",
		prepare: func(r *resty.Request) {
			r.SetPathParams(map[string]string{"projectID": projectID, "annotationID": annotationID})
		},
	})
	return err
}
