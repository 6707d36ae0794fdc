package dto

type PointDTO struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type ShapeDTO struct {
	Type   string     `json:"type" binding:"required"`
	X      float64    `json:"x,omitempty"`
	Y      float64    `json:"y,omitempty"`
	Width  float64    `json:"width,omitempty"`
	Height float64    `json:"height,omitempty"`
	Points []PointDTO `json:"points,omitempty"`
}

type ScoredLabelDTO struct {
	ID          string  `json:"id" binding:"required"`
	Probability float64 `json:"probability,omitempty"`
}

type AnnotatedShapeDTO struct {
	Shape  ShapeDTO         `json:"shape"`
	Labels []ScoredLabelDTO `json:"labels"`
}

// AnnotationSceneRequest is the body for creating or replacing an annotation.
type AnnotationSceneRequest struct {
	Annotations        []AnnotatedShapeDTO `json:"annotations"`
	LabelSchemaVersion int                 `json:"label_schema_version"`
}

type AnnotationSceneResponse struct {
	ID                 string              `json:"id"`
	ProjectID          string              `json:"project_id"`
	MediaID            string              `json:"media_id"`
	Kind               string              `json:"kind"`
	Annotations        []AnnotatedShapeDTO `json:"annotations"`
	LabelSchemaVersion int                 `json:"label_schema_version"`
	CreatedAt          string              `json:"created_at"`
}

type ListAnnotationsResponse struct {
	Annotations []AnnotationSceneResponse `json:"annotations"`
}
