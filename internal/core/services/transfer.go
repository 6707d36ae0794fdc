package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"vision-platform-client/internal/core/domain"
	output "vision-platform-client/internal/core/ports/output"
	"vision-platform-client/internal/metrics"
)

// ImportResult is a DatasetResult for a project re-created from an archive.
// MediaIDs maps archived media IDs to the IDs on the target platform.
type ImportResult struct {
	DatasetResult
	Source   domain.ArchiveRef
	MediaIDs map[string]string
}

// DownloadProject exports a project with its media and latest annotations
// into the archive store. Media are kept in upload order.
func (o *Orchestrator) DownloadProject(ctx context.Context, projectID string) (*domain.ArchiveRef, error) {
	if o.archives == nil {
		return nil, domain.ErrArchiveStoreNotConfigured
	}

	project, err := retry(ctx, o, "project.get", func() (*domain.Project, error) {
		return o.client.GetProject(ctx, projectID)
	})
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	images, err := retry(ctx, o, "media.list", func() ([]*domain.Image, error) {
		return o.client.ListImages(ctx, projectID)
	})
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}

	stage, err := os.MkdirTemp(o.workDir, "export-*")
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(stage)
	for _, sub := range []string{domain.ArchiveMediaDir, domain.ArchiveAnnotationDir} {
		if err := os.MkdirAll(filepath.Join(stage, sub), 0o755); err != nil {
			return nil, err
		}
	}

	manifest := domain.ArchiveManifest{
		FormatVersion: domain.ArchiveFormatVersion,
		ExportedAt:    o.clock.Now().UTC(),
		Project: domain.ArchivedProject{
			ID:                 project.ID,
			Name:               project.Name,
			LabelSchemaVersion: project.LabelSchemaVersion,
			Tasks:              project.Tasks,
			Parameters:         project.Parameters,
		},
	}

	logger := log.WithFields(log.Fields{"project_id": projectID, "media": len(images)})
	logger.Info("exporting project")

	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, err := o.exportMedia(ctx, stage, projectID, i, img)
		metrics.RecordWorkflowItem("export", err)
		o.report(ProgressEvent{Workflow: "export", Done: i + 1, Total: len(images), Item: img.Name, Err: err})
		// an archive holds every media item of the project or is not written
		if err != nil {
			return nil, fmt.Errorf("export media %s: %w", img.Name, err)
		}
		manifest.Media = append(manifest.Media, *entry)
	}

	raw, err := yaml.Marshal(&manifest)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(stage, domain.ArchiveManifestName), raw, 0o644); err != nil {
		return nil, err
	}

	ref, err := o.storeDir(ctx, stage)
	if err != nil {
		return nil, err
	}
	logger.WithField("archive", ref.URI).Info("project exported")
	return ref, nil
}

func (o *Orchestrator) exportMedia(ctx context.Context, stage, projectID string, index int, img *domain.Image) (*domain.ArchivedMedia, error) {
	var buf bytes.Buffer
	_, err := retry(ctx, o, "media.download", func() (int64, error) {
		buf.Reset()
		return o.client.DownloadImage(ctx, projectID, img.ID, &buf)
	})
	if err != nil {
		return nil, err
	}

	entry := &domain.ArchivedMedia{
		Index: index,
		ID:    img.ID,
		Name:  img.Name,
		File:  path.Join(domain.ArchiveMediaDir, fmt.Sprintf("%d_%s", index, safeName(img.Name))),
		Hash:  domain.ContentHash(buf.Bytes()),
	}
	if err := os.WriteFile(filepath.Join(stage, filepath.FromSlash(entry.File)), buf.Bytes(), 0o644); err != nil {
		return nil, err
	}

	ann, err := retry(ctx, o, "annotation.latest", func() (*domain.Annotation, error) {
		return o.client.GetLatestAnnotation(ctx, projectID, img.ID)
	})
	if err != nil {
		return nil, err
	}
	if ann == nil {
		return entry, nil
	}

	raw, err := json.MarshalIndent(ann, "", "  ")
	if err != nil {
		return nil, err
	}
	entry.Annotation = path.Join(domain.ArchiveAnnotationDir, fmt.Sprintf("%d.json", index))
	if err := os.WriteFile(filepath.Join(stage, filepath.FromSlash(entry.Annotation)), raw, 0o644); err != nil {
		return nil, err
	}
	return entry, nil
}

// UploadProject re-creates an archived project on this orchestrator's
// platform. name overrides the archived project name when set.
func (o *Orchestrator) UploadProject(ctx context.Context, ref domain.ArchiveRef, name string) (*ImportResult, error) {
	return o.importFrom(ctx, o.archives, ref, name)
}

// ReuploadProject copies a project from source's platform to target's.
// The archive is written to source's store and read back from there.
func ReuploadProject(ctx context.Context, source, target *Orchestrator, projectID, name string) (*ImportResult, error) {
	ref, err := source.DownloadProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("download project: %w", err)
	}
	return target.importFrom(ctx, source.archives, *ref, name)
}

func (o *Orchestrator) importFrom(ctx context.Context, store output.ArchiveStore, ref domain.ArchiveRef, name string) (*ImportResult, error) {
	dir, err := o.fetchDir(ctx, store, ref)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	manifest, err := readManifest(dir)
	if err != nil {
		return nil, err
	}

	spec := domain.ProjectSpec{
		Name:       manifest.Project.Name,
		Parameters: manifest.Project.Parameters,
	}
	if strings.TrimSpace(name) != "" {
		spec.Name = name
	}
	for _, t := range manifest.Project.Tasks {
		t.ID = ""
		labels := make([]domain.Label, 0, len(t.Labels))
		for _, l := range t.Labels {
			l.ID = ""
			labels = append(labels, l)
		}
		t.Labels = labels
		spec.Tasks = append(spec.Tasks, t)
	}

	project, err := retry(ctx, o, "project.create", func() (*domain.Project, error) {
		return o.client.CreateProject(ctx, spec)
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	labelMap, err := mapLabels(manifest.Project.Tasks, project.Tasks)
	if err != nil {
		return nil, err
	}

	res := &ImportResult{
		DatasetResult: DatasetResult{Project: project},
		Source:        ref,
		MediaIDs:      make(map[string]string, len(manifest.Media)),
	}
	logger := log.WithFields(log.Fields{"project_id": project.ID, "archive": ref.Name})
	logger.Info("importing project")

	for i, m := range manifest.Media {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		ok, failure := o.importMedia(ctx, dir, project, m, labelMap)
		if failure != nil {
			res.Failures = append(res.Failures, *failure)
		} else {
			res.Succeeded = append(res.Succeeded, *ok)
			res.MediaIDs[m.ID] = ok.Media.ID
		}

		var itemErr error
		if failure != nil {
			itemErr = failure
		}
		metrics.RecordWorkflowItem("import", itemErr)
		o.report(ProgressEvent{Workflow: "import", Done: i + 1, Total: len(manifest.Media), Item: m.Name, Err: itemErr})
	}

	logger.WithFields(log.Fields{
		"succeeded": len(res.Succeeded),
		"failed":    len(res.Failures),
	}).Info("project imported")
	return res, nil
}

func (o *Orchestrator) importMedia(ctx context.Context, dir string, project *domain.Project, m domain.ArchivedMedia, labelMap map[string]string) (*ItemResult, *ItemFailure) {
	data, err := readArchived(dir, m.File)
	if err != nil {
		return nil, &ItemFailure{Index: m.Index, Name: m.Name, Stage: StageMedia, Err: err}
	}

	var ann *domain.Annotation
	if m.Annotation != "" {
		ann, err = readAnnotation(dir, m.Annotation, labelMap)
		if err != nil {
			return nil, &ItemFailure{Index: m.Index, Name: m.Name, Stage: StageAnnotation, Err: err}
		}
		ann.LabelSchemaVersion = project.LabelSchemaVersion
	}

	return o.uploadItem(ctx, project.ID, m.Index, domain.MediaUpload{Name: m.Name, Data: data}, ann)
}

func readManifest(dir string) (*domain.ArchiveManifest, error) {
	raw, err := os.ReadFile(filepath.Join(dir, domain.ArchiveManifestName))
	if err != nil {
		return nil, fmt.Errorf("%w: missing %s", domain.ErrArchiveCorrupt, domain.ArchiveManifestName)
	}
	var m domain.ArchiveManifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrArchiveCorrupt, err)
	}
	if m.FormatVersion != domain.ArchiveFormatVersion {
		return nil, fmt.Errorf("version %d: %w", m.FormatVersion, domain.ErrUnsupportedArchive)
	}
	return &m, nil
}

// readArchived reads a file named by the manifest, refusing paths outside dir.
func readArchived(dir, name string) ([]byte, error) {
	p := filepath.Join(dir, filepath.FromSlash(name))
	if !strings.HasPrefix(p, filepath.Clean(dir)+string(os.PathSeparator)) {
		return nil, fmt.Errorf("%w: path %q escapes the archive", domain.ErrArchiveCorrupt, name)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrArchiveCorrupt, err)
	}
	return data, nil
}

func readAnnotation(dir, name string, labelMap map[string]string) (*domain.Annotation, error) {
	raw, err := readArchived(dir, name)
	if err != nil {
		return nil, err
	}
	var ann domain.Annotation
	if err := json.Unmarshal(raw, &ann); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrArchiveCorrupt, err)
	}
	return ann.RemapLabels(labelMap)
}

// mapLabels pairs archived label IDs with the IDs the target platform
// assigned, matching tasks by position and labels by name.
func mapLabels(archived, created []domain.Task) (map[string]string, error) {
	if len(archived) != len(created) {
		return nil, fmt.Errorf("%w: project has %d tasks, archive %d", domain.ErrArchiveCorrupt, len(created), len(archived))
	}
	out := make(map[string]string)
	for i, t := range archived {
		byName := make(map[string]string, len(created[i].Labels))
		for _, l := range created[i].Labels {
			byName[strings.ToLower(l.Name)] = l.ID
		}
		for _, l := range t.Labels {
			id, ok := byName[strings.ToLower(l.Name)]
			if !ok {
				return nil, fmt.Errorf("label %q: %w", l.Name, domain.ErrUnknownLabel)
			}
			out[l.ID] = id
		}
	}
	return out, nil
}

// safeName strips directories and separators from a media name.
func safeName(name string) string {
	name = filepath.Base(filepath.FromSlash(name))
	return strings.NewReplacer(" ", "_", string(os.PathSeparator), "_").Replace(name)
}
