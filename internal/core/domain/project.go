package domain

import (
	"strings"
	"time"
)

// TaskType is the kind of computer-vision task a pipeline step performs.
type TaskType string

const (
	TaskTypeClassification TaskType = "classification"
	TaskTypeDetection      TaskType = "detection"
	TaskTypeSegmentation   TaskType = "segmentation"
	TaskTypeAnomaly        TaskType = "anomaly"
	TaskTypeCrop           TaskType = "crop"
)

// IsValid checks if the task type is known
func (t TaskType) IsValid() bool {
	switch t {
	case TaskTypeClassification, TaskTypeDetection, TaskTypeSegmentation, TaskTypeAnomaly, TaskTypeCrop:
		return true
	}
	return false
}

// IsTrainable reports whether a model can be trained for this task type.
// Crop tasks only connect two trainable tasks in a pipeline.
func (t TaskType) IsTrainable() bool {
	return t.IsValid() && t != TaskTypeCrop
}

type Label struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
	Group string `json:"group,omitempty" yaml:"group,omitempty"`
}

type Task struct {
	ID     string   `json:"id" yaml:"id"`
	Title  string   `json:"title" yaml:"title"`
	Type   TaskType `json:"task_type" yaml:"task_type"`
	Labels []Label  `json:"labels" yaml:"labels"`
}

// Validate checks the task type and that label names are unique.
func (t Task) Validate() error {
	if !t.Type.IsValid() {
		return ErrInvalidTaskType
	}
	seen := make(map[string]bool, len(t.Labels))
	for _, l := range t.Labels {
		key := strings.ToLower(l.Name)
		if key == "" || seen[key] {
			return ErrDuplicateLabel
		}
		seen[key] = true
	}
	return nil
}

// Project is a named unit of work holding a pipeline of one or more tasks.
type Project struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	Tasks              []Task            `json:"tasks"`
	LabelSchemaVersion int               `json:"label_schema_version"`
	Parameters         map[string]string `json:"parameters"`
}

// IsPipeline reports whether the project chains more than one trainable task.
func (p *Project) IsPipeline() bool {
	return len(p.TrainableTasks()) > 1
}

func (p *Project) TrainableTasks() []Task {
	var tasks []Task
	for _, t := range p.Tasks {
		if t.Type.IsTrainable() {
			tasks = append(tasks, t)
		}
	}
	return tasks
}

func (p *Project) TaskByID(id string) (Task, bool) {
	for _, t := range p.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// LabelIndex maps every label ID in the project to its label.
func (p *Project) LabelIndex() map[string]Label {
	idx := make(map[string]Label)
	for _, t := range p.Tasks {
		for _, l := range t.Labels {
			idx[l.ID] = l
		}
	}
	return idx
}

// ValidateLabelNames checks that no two labels of a pipeline share a name,
// so a label name identifies exactly one label of the project.
func ValidateLabelNames(tasks []Task) error {
	seen := make(map[string]bool)
	for _, t := range tasks {
		for _, l := range t.Labels {
			key := strings.ToLower(l.Name)
			if seen[key] {
				return ErrDuplicateLabel
			}
			seen[key] = true
		}
	}
	return nil
}

// LabelIDsByName maps label names to IDs. Names are matched case-insensitively.
func (p *Project) LabelIDsByName() map[string]string {
	idx := make(map[string]string)
	for _, t := range p.Tasks {
		for _, l := range t.Labels {
			idx[strings.ToLower(l.Name)] = l.ID
		}
	}
	return idx
}

// ProjectSpec is what callers supply to create a project.
type ProjectSpec struct {
	Name       string
	Tasks      []Task
	Parameters map[string]string
}

// Validate checks name and pipeline shape before anything is sent.
func (s ProjectSpec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrInvalidProjectName
	}
	if len(s.Tasks) == 0 {
		return ErrEmptyPipeline
	}
	trainable := 0
	for _, t := range s.Tasks {
		if err := t.Validate(); err != nil {
			return err
		}
		if t.Type.IsTrainable() {
			trainable++
		}
	}
	if trainable == 0 {
		return ErrEmptyPipeline
	}
	return ValidateLabelNames(s.Tasks)
}

// ProjectUpdate carries a partial configuration update.
type ProjectUpdate struct {
	Name       *string
	Parameters map[string]string
	Labels     map[string][]Label // task ID -> replacement label set
}
