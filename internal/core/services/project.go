package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"vision-platform-client/internal/core/domain"
	output "vision-platform-client/internal/core/ports/output"
)

// ProjectService implements project management for the reference platform.
type ProjectService struct {
	repo output.ProjectRepository
}

func NewProjectService(repo output.ProjectRepository) *ProjectService {
	return &ProjectService{repo: repo}
}

func (s *ProjectService) Create(ctx context.Context, spec domain.ProjectSpec) (*domain.Project, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	project := &domain.Project{
		ID:                 uuid.NewString(),
		Name:               strings.TrimSpace(spec.Name),
		CreatedAt:          now,
		UpdatedAt:          now,
		LabelSchemaVersion: 1,
		Parameters:         spec.Parameters,
	}
	for _, t := range spec.Tasks {
		t.ID = uuid.NewString()
		if t.Title == "" {
			t.Title = string(t.Type)
		}
		t.Labels = assignLabelIDs(nil, t.Labels)
		project.Tasks = append(project.Tasks, t)
	}
	if project.Parameters == nil {
		project.Parameters = make(map[string]string)
	}

	if err := s.repo.Create(ctx, project); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, project.ID)
}

func (s *ProjectService) Get(ctx context.Context, id string) (*domain.Project, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ProjectService) List(ctx context.Context, filter output.ListFilter) ([]*domain.Project, int, error) {
	return s.repo.List(ctx, filter)
}

// Update applies a partial update. Replacing a task's labels bumps the
// project's label schema version.
func (s *ProjectService) Update(ctx context.Context, id string, update domain.ProjectUpdate) (*domain.Project, error) {
	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, domain.ErrInvalidProjectName
		}
		project.Name = name
	}
	if project.Parameters == nil {
		project.Parameters = make(map[string]string)
	}
	for k, v := range update.Parameters {
		project.Parameters[k] = v
	}

	schemaChanged := false
	for taskID, labels := range update.Labels {
		idx := -1
		for i, t := range project.Tasks {
			if t.ID == taskID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, domain.ErrTaskNotFound
		}

		task := project.Tasks[idx]
		task.Labels = assignLabelIDs(task.Labels, labels)
		if err := task.Validate(); err != nil {
			return nil, err
		}
		project.Tasks[idx] = task
		schemaChanged = true
	}
	if schemaChanged {
		if err := domain.ValidateLabelNames(project.Tasks); err != nil {
			return nil, err
		}
		project.LabelSchemaVersion++
	}

	project.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, project); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *ProjectService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// assignLabelIDs gives every label an ID, reusing the ID of an existing
// label with the same name.
func assignLabelIDs(existing, labels []domain.Label) []domain.Label {
	byName := make(map[string]string, len(existing))
	for _, l := range existing {
		byName[strings.ToLower(l.Name)] = l.ID
	}

	out := make([]domain.Label, 0, len(labels))
	for _, l := range labels {
		if id, ok := byName[strings.ToLower(l.Name)]; ok {
			l.ID = id
		} else {
			l.ID = uuid.NewString()
		}
		out = append(out, l)
	}
	return out
}
