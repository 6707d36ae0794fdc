package domain

import "time"

// ArchiveFormatVersion is written into every exported project manifest.
const ArchiveFormatVersion = 1

const (
	ArchiveManifestName  = "manifest.yaml"
	ArchiveMediaDir      = "media"
	ArchiveAnnotationDir = "annotations"
)

// ArchiveRef points at a stored project archive.
type ArchiveRef struct {
	Name     string `json:"name"` // <sha256>.tar.gz
	URI      string `json:"uri"`
	Checksum string `json:"checksum"`
	Size     int64  `json:"size"`
}

// ArchiveManifest describes the content of an exported project.
type ArchiveManifest struct {
	FormatVersion int             `yaml:"format_version"`
	ExportedAt    time.Time       `yaml:"exported_at"`
	Project       ArchivedProject `yaml:"project"`
	Media         []ArchivedMedia `yaml:"media"`
}

type ArchivedProject struct {
	ID                 string            `yaml:"id"`
	Name               string            `yaml:"name"`
	LabelSchemaVersion int               `yaml:"label_schema_version"`
	Tasks              []Task            `yaml:"tasks"`
	Parameters         map[string]string `yaml:"parameters,omitempty"`
}

// ArchivedMedia is one media entry, listed in upload order.
type ArchivedMedia struct {
	Index      int    `yaml:"index"`
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	File       string `yaml:"file"`
	Annotation string `yaml:"annotation,omitempty"`
	Hash       string `yaml:"content_hash"`
}
