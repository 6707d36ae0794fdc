package memory

import (
	"context"
	"strings"

	"vision-platform-client/internal/core/domain"
	output "vision-platform-client/internal/core/ports/output"
)

// ============================================================================
// Projects
// ============================================================================

type projectRepo struct{ s *Store }

func NewProjectRepository(s *Store) output.ProjectRepository {
	return &projectRepo{s: s}
}

func (r *projectRepo) Create(_ context.Context, p *domain.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.projects {
		if strings.EqualFold(existing.Name, p.Name) {
			return domain.ErrProjectNameConflict
		}
	}
	r.s.projects[p.ID] = cloneProject(p)
	r.s.projectOrder = append(r.s.projectOrder, p.ID)
	return nil
}

func (r *projectRepo) GetByID(_ context.Context, id string) (*domain.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return cloneProject(p), nil
}

func (r *projectRepo) GetByName(_ context.Context, name string) (*domain.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, id := range r.s.projectOrder {
		if p := r.s.projects[id]; strings.EqualFold(p.Name, name) {
			return cloneProject(p), nil
		}
	}
	return nil, domain.ErrProjectNotFound
}

func (r *projectRepo) Update(_ context.Context, p *domain.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[p.ID]; !ok {
		return domain.ErrProjectNotFound
	}
	for id, existing := range r.s.projects {
		if id != p.ID && strings.EqualFold(existing.Name, p.Name) {
			return domain.ErrProjectNameConflict
		}
	}
	r.s.projects[p.ID] = cloneProject(p)
	return nil
}

func (r *projectRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[id]; !ok {
		return domain.ErrProjectNotFound
	}
	delete(r.s.projects, id)
	r.s.projectOrder = remove(r.s.projectOrder, id)

	for mid, rec := range r.s.images {
		if rec.image.ProjectID == id {
			delete(r.s.images, mid)
			r.s.imageOrder = remove(r.s.imageOrder, mid)
		}
	}
	for aid, a := range r.s.annotations {
		if a.ProjectID == id {
			delete(r.s.annotations, aid)
			r.s.annotationOrder = remove(r.s.annotationOrder, aid)
		}
	}
	for jid, j := range r.s.jobs {
		if j.ProjectID == id {
			delete(r.s.jobs, jid)
			r.s.jobOrder = remove(r.s.jobOrder, jid)
		}
	}
	for mid, rec := range r.s.models {
		if rec.model.ProjectID == id {
			delete(r.s.models, mid)
			r.s.modelOrder = remove(r.s.modelOrder, mid)
		}
	}
	return nil
}

func (r *projectRepo) List(_ context.Context, filter output.ListFilter) ([]*domain.Project, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := make([]*domain.Project, 0, len(r.s.projectOrder))
	for _, id := range r.s.projectOrder {
		all = append(all, cloneProject(r.s.projects[id]))
	}
	return page(all, filter), len(all), nil
}

// ============================================================================
// Media
// ============================================================================

type mediaRepo struct{ s *Store }

func NewMediaRepository(s *Store) output.MediaRepository {
	return &mediaRepo{s: s}
}

func (r *mediaRepo) Create(_ context.Context, img *domain.Image, data []byte) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[img.ProjectID]; !ok {
		return domain.ErrProjectNotFound
	}
	r.s.images[img.ID] = &imageRecord{image: *img, data: append([]byte(nil), data...)}
	r.s.imageOrder = append(r.s.imageOrder, img.ID)
	return nil
}

func (r *mediaRepo) GetByID(_ context.Context, projectID, id string) (*domain.Image, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.images[id]
	if !ok || rec.image.ProjectID != projectID {
		return nil, domain.ErrMediaNotFound
	}
	img := rec.image
	return &img, nil
}

func (r *mediaRepo) GetData(_ context.Context, projectID, id string) ([]byte, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.images[id]
	if !ok || rec.image.ProjectID != projectID {
		return nil, domain.ErrMediaNotFound
	}
	return append([]byte(nil), rec.data...), nil
}

func (r *mediaRepo) Delete(_ context.Context, projectID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.images[id]
	if !ok || rec.image.ProjectID != projectID {
		return domain.ErrMediaNotFound
	}
	delete(r.s.images, id)
	r.s.imageOrder = remove(r.s.imageOrder, id)
	for aid, a := range r.s.annotations {
		if a.MediaID == id {
			delete(r.s.annotations, aid)
			r.s.annotationOrder = remove(r.s.annotationOrder, aid)
		}
	}
	return nil
}

func (r *mediaRepo) List(_ context.Context, projectID string, filter output.ListFilter) ([]*domain.Image, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var all []*domain.Image
	for _, id := range r.s.imageOrder {
		if rec := r.s.images[id]; rec.image.ProjectID == projectID {
			img := rec.image
			all = append(all, &img)
		}
	}
	return page(all, filter), len(all), nil
}

// ============================================================================
// Annotations
// ============================================================================

type annotationRepo struct{ s *Store }

func NewAnnotationRepository(s *Store) output.AnnotationRepository {
	return &annotationRepo{s: s}
}

func (r *annotationRepo) Create(_ context.Context, a *domain.Annotation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.images[a.MediaID]
	if !ok || rec.image.ProjectID != a.ProjectID {
		return domain.ErrMediaNotFound
	}
	r.s.annotations[a.ID] = cloneAnnotation(a)
	r.s.annotationOrder = append(r.s.annotationOrder, a.ID)
	return nil
}

func (r *annotationRepo) GetByID(_ context.Context, projectID, id string) (*domain.Annotation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.annotations[id]
	if !ok || a.ProjectID != projectID {
		return nil, domain.ErrAnnotationNotFound
	}
	return cloneAnnotation(a), nil
}

func (r *annotationRepo) Update(_ context.Context, a *domain.Annotation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.annotations[a.ID]
	if !ok || existing.ProjectID != a.ProjectID {
		return domain.ErrAnnotationNotFound
	}
	r.s.annotations[a.ID] = cloneAnnotation(a)
	return nil
}

func (r *annotationRepo) Delete(_ context.Context, projectID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.annotations[id]
	if !ok || a.ProjectID != projectID {
		return domain.ErrAnnotationNotFound
	}
	delete(r.s.annotations, id)
	r.s.annotationOrder = remove(r.s.annotationOrder, id)
	return nil
}

func (r *annotationRepo) ListByMedia(_ context.Context, projectID, mediaID string) ([]*domain.Annotation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.Annotation
	for _, id := range r.s.annotationOrder {
		if a := r.s.annotations[id]; a.ProjectID == projectID && a.MediaID == mediaID {
			out = append(out, cloneAnnotation(a))
		}
	}
	return out, nil
}

func (r *annotationRepo) CountAnnotatedMedia(_ context.Context, projectID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	seen := make(map[string]bool)
	for _, a := range r.s.annotations {
		if a.ProjectID == projectID {
			seen[a.MediaID] = true
		}
	}
	return len(seen), nil
}

// ============================================================================
// Jobs
// ============================================================================

type jobRepo struct{ s *Store }

func NewJobRepository(s *Store) output.JobRepository {
	return &jobRepo{s: s}
}

func (r *jobRepo) Create(_ context.Context, j *domain.Job) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.jobs[j.ID] = cloneJob(j)
	r.s.jobOrder = append(r.s.jobOrder, j.ID)
	return nil
}

func (r *jobRepo) GetByID(_ context.Context, id string) (*domain.Job, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	j, ok := r.s.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return cloneJob(j), nil
}

func (r *jobRepo) Update(_ context.Context, j *domain.Job) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.jobs[j.ID]; !ok {
		return domain.ErrJobNotFound
	}
	r.s.jobs[j.ID] = cloneJob(j)
	return nil
}

func (r *jobRepo) List(_ context.Context, filter domain.JobFilter) ([]*domain.Job, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.Job
	for _, id := range r.s.jobOrder {
		j := r.s.jobs[id]
		if filter.ProjectID != "" && j.ProjectID != filter.ProjectID {
			continue
		}
		if filter.State != "" && j.State != filter.State {
			continue
		}
		out = append(out, cloneJob(j))
	}
	return out, nil
}

// ============================================================================
// Models
// ============================================================================

type modelRepo struct{ s *Store }

func NewModelRepository(s *Store) output.ModelRepository {
	return &modelRepo{s: s}
}

func (r *modelRepo) Create(_ context.Context, m *domain.Model, artifact []byte) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.models[m.ID] = &modelRecord{model: *m, artifact: append([]byte(nil), artifact...)}
	r.s.modelOrder = append(r.s.modelOrder, m.ID)
	return nil
}

func (r *modelRepo) GetByID(_ context.Context, projectID, id string) (*domain.Model, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.models[id]
	if !ok || rec.model.ProjectID != projectID {
		return nil, domain.ErrModelNotFound
	}
	m := rec.model
	return &m, nil
}

func (r *modelRepo) GetArtifact(_ context.Context, projectID, id string) ([]byte, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.models[id]
	if !ok || rec.model.ProjectID != projectID {
		return nil, domain.ErrModelNotFound
	}
	return append([]byte(nil), rec.artifact...), nil
}

func (r *modelRepo) Update(_ context.Context, m *domain.Model) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.models[m.ID]
	if !ok || rec.model.ProjectID != m.ProjectID {
		return domain.ErrModelNotFound
	}
	rec.model = *m
	return nil
}

func (r *modelRepo) Delete(_ context.Context, projectID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.models[id]
	if !ok || rec.model.ProjectID != projectID {
		return domain.ErrModelNotFound
	}
	delete(r.s.models, id)
	r.s.modelOrder = remove(r.s.modelOrder, id)
	return nil
}

func (r *modelRepo) List(_ context.Context, projectID string) ([]*domain.Model, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.Model
	for _, id := range r.s.modelOrder {
		if rec := r.s.models[id]; rec.model.ProjectID == projectID {
			m := rec.model
			out = append(out, &m)
		}
	}
	return out, nil
}
