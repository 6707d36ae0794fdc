package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"time"
)

// SupportedImageExtensions lists the file extensions accepted as images.
var SupportedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// IsSupportedImage reports whether the file name has an image extension.
func IsSupportedImage(name string) bool {
	return SupportedImageExtensions[strings.ToLower(filepath.Ext(name))]
}

// Image is a media item stored in a project.
type Image struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Name        string    `json:"name"`
	UploadedAt  time.Time `json:"uploaded_at"`
	Size        int64     `json:"size"`
	ContentHash string    `json:"content_hash"`
}

// ContentHash returns the hex sha256 of a media payload.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MediaUpload is a media payload waiting to be sent.
type MediaUpload struct {
	Name string
	Data []byte
}

func (m MediaUpload) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrInvalidMediaName
	}
	if len(m.Data) == 0 {
		return ErrEmptyMedia
	}
	return nil
}
