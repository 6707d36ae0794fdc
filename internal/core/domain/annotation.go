package domain

import "time"

const AnnotationKindAnnotation = "annotation"

type ShapeType string

const (
	ShapeRectangle ShapeType = "RECTANGLE"
	ShapePolygon   ShapeType = "POLYGON"
	ShapeEllipse   ShapeType = "ELLIPSE"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Shape is a geometry in normalized image coordinates.
type Shape struct {
	Type   ShapeType `json:"type"`
	X      float64   `json:"x,omitempty"`
	Y      float64   `json:"y,omitempty"`
	Width  float64   `json:"width,omitempty"`
	Height float64   `json:"height,omitempty"`
	Points []Point   `json:"points,omitempty"`
}

func (s Shape) Validate() error {
	switch s.Type {
	case ShapeRectangle, ShapeEllipse:
		if s.Width <= 0 || s.Height <= 0 {
			return ErrInvalidShape
		}
	case ShapePolygon:
		if len(s.Points) < 3 {
			return ErrInvalidShape
		}
	default:
		return ErrInvalidShape
	}
	return nil
}

type ScoredLabel struct {
	ID          string  `json:"id"`
	Probability float64 `json:"probability,omitempty"`
}

// AnnotatedShape is one shape with the labels assigned to it.
type AnnotatedShape struct {
	Shape  Shape         `json:"shape"`
	Labels []ScoredLabel `json:"labels"`
}

// Annotation is the labelled scene attached to a single media item.
type Annotation struct {
	ID                 string           `json:"id"`
	ProjectID          string           `json:"project_id"`
	MediaID            string           `json:"media_id"`
	Kind               string           `json:"kind"`
	Shapes             []AnnotatedShape `json:"annotations"`
	LabelSchemaVersion int              `json:"label_schema_version"`
	CreatedAt          time.Time        `json:"created_at"`
}

// Validate checks geometry and that every label is known to the project.
// A nil labels index skips the label check.
func (a *Annotation) Validate(labels map[string]Label) error {
	if len(a.Shapes) == 0 {
		return ErrEmptyAnnotation
	}
	for _, s := range a.Shapes {
		if err := s.Shape.Validate(); err != nil {
			return err
		}
		if len(s.Labels) == 0 {
			return ErrUnknownLabel
		}
		if labels == nil {
			continue
		}
		for _, l := range s.Labels {
			if _, ok := labels[l.ID]; !ok {
				return ErrUnknownLabel
			}
		}
	}
	return nil
}

// LabelIDs returns the distinct label IDs the annotation references.
func (a *Annotation) LabelIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, s := range a.Shapes {
		for _, l := range s.Labels {
			if !seen[l.ID] {
				seen[l.ID] = true
				ids = append(ids, l.ID)
			}
		}
	}
	return ids
}

// RemapLabels returns a copy with label IDs translated through mapping.
// It fails with ErrUnknownLabel when an ID has no mapping.
func (a *Annotation) RemapLabels(mapping map[string]string) (*Annotation, error) {
	out := *a
	out.Shapes = make([]AnnotatedShape, len(a.Shapes))
	for i, s := range a.Shapes {
		ns := AnnotatedShape{Shape: s.Shape, Labels: make([]ScoredLabel, len(s.Labels))}
		for j, l := range s.Labels {
			id, ok := mapping[l.ID]
			if !ok {
				return nil, ErrUnknownLabel
			}
			ns.Labels[j] = ScoredLabel{ID: id, Probability: l.Probability}
		}
		out.Shapes[i] = ns
	}
	return &out, nil
}
