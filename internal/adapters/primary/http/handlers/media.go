package handlers

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"vision-platform-client/internal/core/domain"
	"vision-platform-client/internal/dto"
)

func (h *Handler) ListImages(c *gin.Context) {
	filter := listWindow(c)

	images, total, err := h.mediaSvc.List(c.Request.Context(), c.Param("projectID"), filter)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	items := make([]dto.ImageResponse, 0, len(images))
	for _, img := range images {
		items = append(items, dto.ToImageResponse(img))
	}

	c.JSON(http.StatusOK, dto.ListMediaResponse{
		Media:      items,
		MediaCount: dto.MediaCount{Images: total},
		NextPage:   nextPage(c, filter, len(items), total),
	})
}

func (h *Handler) UploadImage(c *gin.Context) {
	fh, err := c.FormFile(dto.MediaFormField)
	if err != nil {
		badRequest(c, err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		badRequest(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		badRequest(c, err)
		return
	}

	img, err := h.mediaSvc.Upload(c.Request.Context(), c.Param("projectID"), domain.MediaUpload{
		Name: fh.Filename,
		Data: data,
	})
	if err != nil {
		log.WithError(err).WithField("name", fh.Filename).Warn("upload image failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToImageResponse(img))
}

func (h *Handler) GetImage(c *gin.Context) {
	img, err := h.mediaSvc.Get(c.Request.Context(), c.Param("projectID"), c.Param("mediaID"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToImageResponse(img))
}

func (h *Handler) DownloadImage(c *gin.Context) {
	img, data, err := h.mediaSvc.Data(c.Request.Context(), c.Param("projectID"), c.Param("mediaID"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(img.Name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, data)
}

func (h *Handler) DeleteImage(c *gin.Context) {
	if err := h.mediaSvc.Delete(c.Request.Context(), c.Param("projectID"), c.Param("mediaID")); err != nil {
		mapDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
