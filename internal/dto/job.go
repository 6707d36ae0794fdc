package dto

type TrainRequest struct {
	TaskID string `json:"task_id" binding:"required"`
}

type JobResponse struct {
	ID        string  `json:"id"`
	ProjectID string  `json:"project_id"`
	TaskID    string  `json:"task_id"`
	Type      string  `json:"type"`
	State     string  `json:"state"`
	Progress  float64 `json:"progress"`
	Message   string  `json:"message,omitempty"`
	ModelID   string  `json:"model_id,omitempty"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type ListJobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type ModelResponse struct {
	ID           string  `json:"id"`
	ProjectID    string  `json:"project_id"`
	TaskID       string  `json:"task_id"`
	JobID        string  `json:"job_id"`
	Name         string  `json:"name"`
	Architecture string  `json:"architecture"`
	Score        float64 `json:"score"`
	Deployable   bool    `json:"deployable"`
	ArtifactSize int64   `json:"artifact_size"`
	CreatedAt    string  `json:"created_at"`
}

type ListModelsResponse struct {
	Models []ModelResponse `json:"models"`
}

type UpdateModelRequest struct {
	Name *string `json:"name"`
}
