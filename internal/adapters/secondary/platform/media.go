package platform

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-resty/resty/v2"

	"vision-platform-client/internal/core/domain"
	"vision-platform-client/internal/dto"
)

func (c *Client) UploadImage(ctx context.Context, projectID string, upload domain.MediaUpload) (*domain.Image, error) {
	const op = "media.upload"
	if blank(projectID) {
		return nil, missing(op, domain.ErrMissingProjectID)
	}
	if err := upload.Validate(); err != nil {
		return nil, &domain.RemoteError{Kind: domain.ErrValidation, Op: op, Message: err.Error(), Payload: upload.Name, Err: err}
	}

	res, err := c.execute(ctx, call{
		op:      op,
		method:  http.MethodPost,
		path:    "/projects/{projectID}/media/images",
		payload: upload.Name,
		prepare: func(r *resty.Request) {
			// a fresh reader per attempt; the body may be sent twice
			r.SetPathParam("projectID", projectID).
				SetFileReader(dto.MediaFormField, upload.Name, bytes.NewReader(upload.Data))
		},
	})
	if err != nil {
		return nil, err
	}

	var out dto.ImageResponse
	if err := decode(op, res, &out); err != nil {
		return nil, err
	}
	return dto.ToDomainImage(out), nil
}

// ListImages walks every page and returns the images in upload order.
func (c *Client) ListImages(ctx context.Context, projectID string) ([]*domain.Image, error) {
	const op = "media.list"
	if blank(projectID) {
		return nil, missing(op, domain.ErrMissingProjectID)
	}

	var images []*domain.Image
	for skip := 0; ; {
		res, err := c.execute(ctx, call{
			op:     op,
			method: http.MethodGet,
			path:   "/projects/{projectID}/media/images",
			prepare: func(r *resty.Request) {
				r.SetPathParam("projectID", projectID).
					SetQueryParams(map[string]string{
						"top":  strconv.Itoa(c.pageSize),
						"skip": strconv.Itoa(skip),
					})
			},
		})
		if err != nil {
			return nil, err
		}

		var page dto.ListMediaResponse
		if err := decode(op, res, &page); err != nil {
			return nil, err
		}
		for _, m := range page.Media {
			images = append(images, dto.ToDomainImage(m))
		}
		if page.NextPage == "" || len(page.Media) == 0 || len(images) >= page.MediaCount.Images {
			break
		}
		skip += len(page.Media)
	}

	sort.SliceStable(images, func(i, j int) bool {
		return images[i].UploadedAt.Before(images[j].UploadedAt)
	})
	return images, nil
}

func (c *Client) GetImage(ctx context.Context, projectID, mediaID string) (*domain.Image, error) {
	const op = "media.get"
	if blank(projectID) {
		return nil, missing(op, domain.ErrMissingProjectID)
	}
	if blank(mediaID) {
		return nil, missing(op, domain.ErrMissingMediaID)
	}

	res, err := c.execute(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/projects/{projectID}/media/images/{mediaID}",
		prepare: func(r *resty.Request) {
			r.SetPathParams(map[string]string{"projectID": projectID, "mediaID": mediaID})
		},
	})
	if err != nil {
		return nil, err
	}

	var out dto.ImageResponse
	if err := decode(op, res, &out); err != nil {
		return nil, err
	}
	return dto.ToDomainImage(out), nil
}

// DownloadImage streams the full-resolution payload into w.
func (c *Client) DownloadImage(ctx context.Context, projectID, mediaID string, w io.Writer) (int64, error) {
	const op = "media.download"
	if blank(projectID) {
		return 0, missing(op, domain.ErrMissingProjectID)
	}
	if blank(mediaID) {
		return 0, missing(op, domain.ErrMissingMediaID)
	}

	res, err := c.execute(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/projects/{projectID}/media/images/{mediaID}/full",
		sink:   w,
		prepare: func(r *resty.Request) {
			r.SetPathParams(map[string]string{"projectID": projectID, "mediaID": mediaID}).
				SetHeader("Accept", "application/octet-stream")
		},
	})
	if err != nil {
		return 0, err
	}
	return res.written, nil
}

func (c *Client) DeleteImage(ctx context.Context, projectID, mediaID string) error {
	const op = "media.delete"
	if blank(projectID) {
		return missing(op, domain.ErrMissingProjectID)
	}
	if blank(mediaID) {
		return missing(op, domain.ErrMissingMediaID)
	}

	_, err := c.execute(ctx, call{
		op:     op,
		method: http.MethodDelete,
		path:   "/projects/{projectID}/media/images/{mediaID}",
		prepare: func(r *resty.Request) {
			r.SetPathParams(map[string]string{"projectID": projectID, "mediaID": mediaID})
		},
	})
	return err
}
