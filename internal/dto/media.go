package dto

// MediaFormField is the multipart field carrying the uploaded file.
const MediaFormField = "file"

type ImageResponse struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Name        string `json:"name"`
	UploadedAt  string `json:"uploaded_at"`
	Size        int64  `json:"size"`
	ContentHash string `json:"content_hash"`
}

type MediaCount struct {
	Images int `json:"images"`
}

type ListMediaResponse struct {
	Media      []ImageResponse `json:"media"`
	MediaCount MediaCount      `json:"media_count"`
	NextPage   string          `json:"next_page,omitempty"`
}
