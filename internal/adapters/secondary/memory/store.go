package memory

import (
	"sync"

	"vision-platform-client/internal/core/domain"
	output "vision-platform-client/internal/core/ports/output"
)

// Store is an in-process backing store for the reference platform.
// Repositories built on the same Store share its data and lock.
type Store struct {
	mu sync.RWMutex

	projects    map[string]*domain.Project
	images      map[string]*imageRecord
	annotations map[string]*domain.Annotation
	jobs        map[string]*domain.Job
	models      map[string]*modelRecord

	// insertion order per table
	projectOrder    []string
	imageOrder      []string
	annotationOrder []string
	jobOrder        []string
	modelOrder      []string
}

type imageRecord struct {
	image domain.Image
	data  []byte
}

type modelRecord struct {
	model    domain.Model
	artifact []byte
}

func NewStore() *Store {
	return &Store{
		projects:    make(map[string]*domain.Project),
		images:      make(map[string]*imageRecord),
		annotations: make(map[string]*domain.Annotation),
		jobs:        make(map[string]*domain.Job),
		models:      make(map[string]*modelRecord),
	}
}

func remove(order []string, id string) []string {
	for i, v := range order {
		if v == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

func page[T any](items []T, filter output.ListFilter) []T {
	if filter.Offset >= len(items) {
		return []T{}
	}
	items = items[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(items) {
		items = items[:filter.Limit]
	}
	return items
}

// ============================================================================
// Copies
// ============================================================================

func cloneProject(p *domain.Project) *domain.Project {
	out := *p
	out.Tasks = make([]domain.Task, len(p.Tasks))
	for i, t := range p.Tasks {
		t.Labels = append([]domain.Label(nil), t.Labels...)
		out.Tasks[i] = t
	}
	if p.Parameters != nil {
		out.Parameters = make(map[string]string, len(p.Parameters))
		for k, v := range p.Parameters {
			out.Parameters[k] = v
		}
	}
	return &out
}

func cloneAnnotation(a *domain.Annotation) *domain.Annotation {
	out := *a
	out.Shapes = make([]domain.AnnotatedShape, len(a.Shapes))
	for i, s := range a.Shapes {
		s.Shape.Points = append([]domain.Point(nil), s.Shape.Points...)
		s.Labels = append([]domain.ScoredLabel(nil), s.Labels...)
		out.Shapes[i] = s
	}
	return &out
}

func cloneJob(j *domain.Job) *domain.Job {
	out := *j
	return &out
}
