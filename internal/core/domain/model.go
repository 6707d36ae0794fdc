package domain

import (
	"sort"
	"time"
)

// Model is a trained model produced by a successful training job.
type Model struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	TaskID       string    `json:"task_id"`
	JobID        string    `json:"job_id"`
	Name         string    `json:"name"`
	Architecture string    `json:"architecture"`
	Score        float64   `json:"score"`
	Deployable   bool      `json:"deployable"`
	ArtifactSize int64     `json:"artifact_size"`
	CreatedAt    time.Time `json:"created_at"`
}

// DefaultArchitecture is the model architecture trained for each task type.
var DefaultArchitecture = map[TaskType]string{
	TaskTypeClassification: "EfficientNet-B0",
	TaskTypeDetection:      "SSD",
	TaskTypeSegmentation:   "Lite-HRNet-18",
	TaskTypeAnomaly:        "PADIM",
}

// NewestPerTask returns the most recently created model for every task.
func NewestPerTask(models []*Model) map[string]*Model {
	sorted := make([]*Model, len(models))
	copy(sorted, models)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	newest := make(map[string]*Model)
	for _, m := range sorted {
		newest[m.TaskID] = m
	}
	return newest
}

type ModelUpdate struct {
	Name *string
}
