package dto

type LabelDTO struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name" binding:"required"`
	Color string `json:"color,omitempty"`
	Group string `json:"group,omitempty"`
}

type TaskDTO struct {
	ID       string     `json:"id,omitempty"`
	Title    string     `json:"title"`
	TaskType string     `json:"task_type" binding:"required"`
	Labels   []LabelDTO `json:"labels"`
}

type PipelineDTO struct {
	Tasks []TaskDTO `json:"tasks" binding:"required,min=1,dive"`
}

type CreateProjectRequest struct {
	Name       string            `json:"name" binding:"required,max=255"`
	Pipeline   PipelineDTO       `json:"pipeline" binding:"required"`
	Parameters map[string]string `json:"parameters"`
}

type UpdateProjectRequest struct {
	Name       *string               `json:"name"`
	Parameters map[string]string     `json:"parameters"`
	Labels     map[string][]LabelDTO `json:"labels"` // task ID -> labels
}

type ProjectResponse struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	CreatedAt          string            `json:"created_at"`
	UpdatedAt          string            `json:"updated_at"`
	Pipeline           PipelineDTO       `json:"pipeline"`
	LabelSchemaVersion int               `json:"label_schema_version"`
	Parameters         map[string]string `json:"parameters,omitempty"`
}

type ListProjectsResponse struct {
	Projects []ProjectResponse `json:"projects"`
	Total    int               `json:"total"`
	NextPage string            `json:"next_page,omitempty"`
}
