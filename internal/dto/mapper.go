package dto

import (
	"time"

	"vision-platform-client/internal/core/domain"
)

// TimeFormat is used for every timestamp on the wire.
const TimeFormat = time.RFC3339Nano

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeFormat)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(TimeFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ============================================================================
// Projects
// ============================================================================

func ToLabelDTOs(labels []domain.Label) []LabelDTO {
	out := make([]LabelDTO, 0, len(labels))
	for _, l := range labels {
		out = append(out, LabelDTO{ID: l.ID, Name: l.Name, Color: l.Color, Group: l.Group})
	}
	return out
}

func ToDomainLabels(labels []LabelDTO) []domain.Label {
	out := make([]domain.Label, 0, len(labels))
	for _, l := range labels {
		out = append(out, domain.Label{ID: l.ID, Name: l.Name, Color: l.Color, Group: l.Group})
	}
	return out
}

func ToPipelineDTO(tasks []domain.Task) PipelineDTO {
	p := PipelineDTO{Tasks: make([]TaskDTO, 0, len(tasks))}
	for _, t := range tasks {
		p.Tasks = append(p.Tasks, TaskDTO{
			ID:       t.ID,
			Title:    t.Title,
			TaskType: string(t.Type),
			Labels:   ToLabelDTOs(t.Labels),
		})
	}
	return p
}

func ToDomainTasks(p PipelineDTO) []domain.Task {
	tasks := make([]domain.Task, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		tasks = append(tasks, domain.Task{
			ID:     t.ID,
			Title:  t.Title,
			Type:   domain.TaskType(t.TaskType),
			Labels: ToDomainLabels(t.Labels),
		})
	}
	return tasks
}

func ToCreateProjectRequest(spec domain.ProjectSpec) CreateProjectRequest {
	return CreateProjectRequest{
		Name:       spec.Name,
		Pipeline:   ToPipelineDTO(spec.Tasks),
		Parameters: spec.Parameters,
	}
}

func ToUpdateProjectRequest(u domain.ProjectUpdate) UpdateProjectRequest {
	req := UpdateProjectRequest{Name: u.Name, Parameters: u.Parameters}
	if len(u.Labels) > 0 {
		req.Labels = make(map[string][]LabelDTO, len(u.Labels))
		for taskID, labels := range u.Labels {
			req.Labels[taskID] = ToLabelDTOs(labels)
		}
	}
	return req
}

func ToDomainProjectUpdate(req UpdateProjectRequest) domain.ProjectUpdate {
	u := domain.ProjectUpdate{Name: req.Name, Parameters: req.Parameters}
	if len(req.Labels) > 0 {
		u.Labels = make(map[string][]domain.Label, len(req.Labels))
		for taskID, labels := range req.Labels {
			u.Labels[taskID] = ToDomainLabels(labels)
		}
	}
	return u
}

func ToProjectResponse(p *domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:                 p.ID,
		Name:               p.Name,
		CreatedAt:          formatTime(p.CreatedAt),
		UpdatedAt:          formatTime(p.UpdatedAt),
		Pipeline:           ToPipelineDTO(p.Tasks),
		LabelSchemaVersion: p.LabelSchemaVersion,
		Parameters:         p.Parameters,
	}
}

func ToDomainProject(r ProjectResponse) *domain.Project {
	return &domain.Project{
		ID:                 r.ID,
		Name:               r.Name,
		CreatedAt:          parseTime(r.CreatedAt),
		UpdatedAt:          parseTime(r.UpdatedAt),
		Tasks:              ToDomainTasks(r.Pipeline),
		LabelSchemaVersion: r.LabelSchemaVersion,
		Parameters:         r.Parameters,
	}
}

// ============================================================================
// Media
// ============================================================================

func ToImageResponse(img *domain.Image) ImageResponse {
	return ImageResponse{
		ID:          img.ID,
		ProjectID:   img.ProjectID,
		Name:        img.Name,
		UploadedAt:  formatTime(img.UploadedAt),
		Size:        img.Size,
		ContentHash: img.ContentHash,
	}
}

func ToDomainImage(r ImageResponse) *domain.Image {
	return &domain.Image{
		ID:          r.ID,
		ProjectID:   r.ProjectID,
		Name:        r.Name,
		UploadedAt:  parseTime(r.UploadedAt),
		Size:        r.Size,
		ContentHash: r.ContentHash,
	}
}

// ============================================================================
// Annotations
// ============================================================================

func ToAnnotatedShapeDTOs(shapes []domain.AnnotatedShape) []AnnotatedShapeDTO {
	out := make([]AnnotatedShapeDTO, 0, len(shapes))
	for _, s := range shapes {
		shape := ShapeDTO{
			Type:   string(s.Shape.Type),
			X:      s.Shape.X,
			Y:      s.Shape.Y,
			Width:  s.Shape.Width,
			Height: s.Shape.Height,
		}
		for _, p := range s.Shape.Points {
			shape.Points = append(shape.Points, PointDTO{X: p.X, Y: p.Y})
		}
		labels := make([]ScoredLabelDTO, 0, len(s.Labels))
		for _, l := range s.Labels {
			labels = append(labels, ScoredLabelDTO{ID: l.ID, Probability: l.Probability})
		}
		out = append(out, AnnotatedShapeDTO{Shape: shape, Labels: labels})
	}
	return out
}

func ToDomainShapes(shapes []AnnotatedShapeDTO) []domain.AnnotatedShape {
	out := make([]domain.AnnotatedShape, 0, len(shapes))
	for _, s := range shapes {
		shape := domain.Shape{
			Type:   domain.ShapeType(s.Shape.Type),
			X:      s.Shape.X,
			Y:      s.Shape.Y,
			Width:  s.Shape.Width,
			Height: s.Shape.Height,
		}
		for _, p := range s.Shape.Points {
			shape.Points = append(shape.Points, domain.Point{X: p.X, Y: p.Y})
		}
		labels := make([]domain.ScoredLabel, 0, len(s.Labels))
		for _, l := range s.Labels {
			labels = append(labels, domain.ScoredLabel{ID: l.ID, Probability: l.Probability})
		}
		out = append(out, domain.AnnotatedShape{Shape: shape, Labels: labels})
	}
	return out
}

func ToAnnotationSceneRequest(a *domain.Annotation) AnnotationSceneRequest {
	return AnnotationSceneRequest{
		Annotations:        ToAnnotatedShapeDTOs(a.Shapes),
		LabelSchemaVersion: a.LabelSchemaVersion,
	}
}

func ToAnnotationSceneResponse(a *domain.Annotation) AnnotationSceneResponse {
	return AnnotationSceneResponse{
		ID:                 a.ID,
		ProjectID:          a.ProjectID,
		MediaID:            a.MediaID,
		Kind:               a.Kind,
		Annotations:        ToAnnotatedShapeDTOs(a.Shapes),
		LabelSchemaVersion: a.LabelSchemaVersion,
		CreatedAt:          formatTime(a.CreatedAt),
	}
}

func ToDomainAnnotation(r AnnotationSceneResponse) *domain.Annotation {
	return &domain.Annotation{
		ID:                 r.ID,
		ProjectID:          r.ProjectID,
		MediaID:            r.MediaID,
		Kind:               r.Kind,
		Shapes:             ToDomainShapes(r.Annotations),
		LabelSchemaVersion: r.LabelSchemaVersion,
		CreatedAt:          parseTime(r.CreatedAt),
	}
}

// ============================================================================
// Jobs & Models
// ============================================================================

func ToJobResponse(j *domain.Job) JobResponse {
	return JobResponse{
		ID:        j.ID,
		ProjectID: j.ProjectID,
		TaskID:    j.TaskID,
		Type:      j.Type,
		State:     string(j.State),
		Progress:  j.Progress,
		Message:   j.Message,
		ModelID:   j.ModelID,
		CreatedAt: formatTime(j.CreatedAt),
		UpdatedAt: formatTime(j.UpdatedAt),
	}
}

func ToDomainJob(r JobResponse) *domain.Job {
	return &domain.Job{
		ID:        r.ID,
		ProjectID: r.ProjectID,
		TaskID:    r.TaskID,
		Type:      r.Type,
		State:     domain.JobState(r.State),
		Progress:  r.Progress,
		Message:   r.Message,
		ModelID:   r.ModelID,
		CreatedAt: parseTime(r.CreatedAt),
		UpdatedAt: parseTime(r.UpdatedAt),
	}
}

func ToModelResponse(m *domain.Model) ModelResponse {
	return ModelResponse{
		ID:           m.ID,
		ProjectID:    m.ProjectID,
		TaskID:       m.TaskID,
		JobID:        m.JobID,
		Name:         m.Name,
		Architecture: m.Architecture,
		Score:        m.Score,
		Deployable:   m.Deployable,
		ArtifactSize: m.ArtifactSize,
		CreatedAt:    formatTime(m.CreatedAt),
	}
}

func ToDomainModel(r ModelResponse) *domain.Model {
	return &domain.Model{
		ID:           r.ID,
		ProjectID:    r.ProjectID,
		TaskID:       r.TaskID,
		JobID:        r.JobID,
		Name:         r.Name,
		Architecture: r.Architecture,
		Score:        r.Score,
		Deployable:   r.Deployable,
		ArtifactSize: r.ArtifactSize,
		CreatedAt:    parseTime(r.CreatedAt),
	}
}
