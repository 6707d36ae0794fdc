package services

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"vision-platform-client/internal/core/domain"
	"vision-platform-client/internal/metrics"
)

// Stages at which a dataset item can fail.
const (
	StageMedia      = "media"
	StageAnnotation = "annotation"
)

// LabeledShape is a shape whose labels are named, not yet resolved to IDs.
type LabeledShape struct {
	Shape  domain.Shape
	Labels []string
}

// DatasetItem is one image with its optional annotation.
type DatasetItem struct {
	Name   string
	Data   []byte
	Shapes []LabeledShape
}

type DatasetRequest struct {
	Project domain.ProjectSpec
	Items   []DatasetItem
}

// ItemResult is an item that reached the platform completely.
type ItemResult struct {
	Index      int
	Name       string
	Media      *domain.Image
	Annotation *domain.Annotation
}

// ItemFailure is an item that did not. Orphaned is set when its media was
// uploaded but could not be removed after the annotation failed.
type ItemFailure struct {
	Index    int
	Name     string
	Stage    string
	Err      error
	Orphaned bool
}

func (f ItemFailure) Error() string {
	msg := fmt.Sprintf("item %d (%s) failed at %s: %v", f.Index, f.Name, f.Stage, f.Err)
	if f.Orphaned {
		msg += " (media left behind)"
	}
	return msg
}

func (f ItemFailure) Unwrap() error { return f.Err }

type DatasetResult struct {
	Project   *domain.Project
	Succeeded []ItemResult
	Failures  []ItemFailure
}

// CreateProjectFromDataset creates a project and uploads every item into it,
// media first and then its annotation. A failing item is recorded and the
// batch continues. Only a failure to create the project, or ctx ending,
// stops the workflow; the partial result is returned alongside ctx's error.
func (o *Orchestrator) CreateProjectFromDataset(ctx context.Context, req DatasetRequest) (*DatasetResult, error) {
	project, err := retry(ctx, o, "project.create", func() (*domain.Project, error) {
		return o.client.CreateProject(ctx, req.Project)
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	logger := log.WithFields(log.Fields{
		"project_id": project.ID,
		"items":      len(req.Items),
	})
	logger.Info("uploading dataset")

	labelIDs := project.LabelIDsByName()
	res := &DatasetResult{Project: project}
	for i, item := range req.Items {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		ann, err := resolveShapes(item.Shapes, labelIDs, project.LabelSchemaVersion)
		if err != nil {
			res.Failures = append(res.Failures, ItemFailure{Index: i, Name: item.Name, Stage: StageAnnotation, Err: err})
		} else {
			ok, failure := o.uploadItem(ctx, project.ID, i, domain.MediaUpload{Name: item.Name, Data: item.Data}, ann)
			if failure != nil {
				res.Failures = append(res.Failures, *failure)
				err = failure
			} else {
				res.Succeeded = append(res.Succeeded, *ok)
			}
		}

		metrics.RecordWorkflowItem("dataset", err)
		o.report(ProgressEvent{Workflow: "dataset", Done: i + 1, Total: len(req.Items), Item: item.Name, Err: err})
	}

	logger.WithFields(log.Fields{
		"succeeded": len(res.Succeeded),
		"failed":    len(res.Failures),
	}).Info("dataset uploaded")
	return res, nil
}

// resolveShapes turns named labels into an annotation for the project.
// No shapes means the item is uploaded without an annotation.
func resolveShapes(shapes []LabeledShape, labelIDs map[string]string, schemaVersion int) (*domain.Annotation, error) {
	if len(shapes) == 0 {
		return nil, nil
	}
	ann := &domain.Annotation{Kind: domain.AnnotationKindAnnotation, LabelSchemaVersion: schemaVersion}
	for _, s := range shapes {
		shape := domain.AnnotatedShape{Shape: s.Shape}
		for _, name := range s.Labels {
			id, ok := labelIDs[strings.ToLower(name)]
			if !ok {
				return nil, fmt.Errorf("label %q: %w", name, domain.ErrUnknownLabel)
			}
			shape.Labels = append(shape.Labels, domain.ScoredLabel{ID: id, Probability: 1})
		}
		ann.Shapes = append(ann.Shapes, shape)
	}
	if err := ann.Validate(nil); err != nil {
		return nil, err
	}
	return ann, nil
}

// uploadItem uploads one media item and, when given, its annotation. If the
// annotation is refused the media is deleted again so the project only holds
// complete items.
func (o *Orchestrator) uploadItem(ctx context.Context, projectID string, index int, upload domain.MediaUpload, ann *domain.Annotation) (*ItemResult, *ItemFailure) {
	img, err := retry(ctx, o, "media.upload", func() (*domain.Image, error) {
		return o.client.UploadImage(ctx, projectID, upload)
	})
	if err != nil {
		log.WithError(err).WithField("name", upload.Name).Warn("media upload failed")
		return nil, &ItemFailure{Index: index, Name: upload.Name, Stage: StageMedia, Err: err}
	}

	res := &ItemResult{Index: index, Name: upload.Name, Media: img}
	if ann == nil {
		return res, nil
	}

	created, err := retry(ctx, o, "annotation.create", func() (*domain.Annotation, error) {
		return o.client.CreateAnnotation(ctx, projectID, img.ID, ann)
	})
	if err == nil {
		res.Annotation = created
		return res, nil
	}

	failure := &ItemFailure{Index: index, Name: upload.Name, Stage: StageAnnotation, Err: err}
	// a cancelled ctx must not prevent the cleanup
	cleanupCtx := context.WithoutCancel(ctx)
	if derr := retryErr(cleanupCtx, o, "media.delete", func() error {
		return o.client.DeleteImage(cleanupCtx, projectID, img.ID)
	}); derr != nil {
		failure.Orphaned = true
		log.WithError(derr).WithField("media_id", img.ID).Error("could not remove media of failed item")
	}
	log.WithError(err).WithField("name", upload.Name).Warn("annotation upload failed")
	return nil, failure
}
