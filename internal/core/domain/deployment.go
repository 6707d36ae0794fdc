package domain

import "time"

const (
	DeploymentManifestName = "deployment.yaml"
	DeploymentModelsDir    = "models"
	DeploymentArtifactName = "model.zip"
)

// DeployedModel is one model inside a local deployment package.
type DeployedModel struct {
	TaskID       string   `yaml:"task_id"`
	TaskTitle    string   `yaml:"task_title"`
	TaskType     TaskType `yaml:"task_type"`
	ModelID      string   `yaml:"model_id"`
	JobID        string   `yaml:"job_id"`
	Name         string   `yaml:"name"`
	Architecture string   `yaml:"architecture"`
	Score        float64  `yaml:"score"`
	Path         string   `yaml:"path"` // relative to the deployment directory
}

// Deployment is a local inference package built from one model per trainable task.
type Deployment struct {
	ProjectID   string          `yaml:"project_id"`
	ProjectName string          `yaml:"project_name"`
	CreatedAt   time.Time       `yaml:"created_at"`
	Models      []DeployedModel `yaml:"models"`

	Dir string `yaml:"-"`
}

// ServingTarget describes where a deployment should be published for serving.
type ServingTarget struct {
	Name      string
	Namespace string
	Runtime   string
	Labels    map[string]string
}

// PublishResult mirrors the state of a published deployment.
type PublishResult struct {
	ArchiveURI string `json:"archive_uri"`
	Name       string `json:"name,omitempty"`
	Namespace  string `json:"namespace,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
	Status     string `json:"status"` // "archived" | "published"
	Message    string `json:"message,omitempty"`
}

// ServingStatus is the observed state of a published InferenceService.
type ServingStatus struct {
	URL     string
	Ready   bool
	Message string
}
