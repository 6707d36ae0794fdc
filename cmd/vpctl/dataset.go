package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"vision-platform-client/internal/core/domain"
	"vision-platform-client/internal/core/services"
)

// Dataset folder layout:
//
//	project.yaml                  project name, pipeline and parameters
//	<image>.jpg|.jpeg|.png|.bmp   media, uploaded in name order
//	annotations/<image stem>.json shapes with label names, optional per image
const (
	datasetProjectFile    = "project.yaml"
	datasetAnnotationsDir = "annotations"
)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".tif": true, ".tiff": true}

type projectFile struct {
	Name       string            `yaml:"name"`
	Tasks      []domain.Task     `yaml:"tasks"`
	Parameters map[string]string `yaml:"parameters,omitempty"`
}

type annotationFile struct {
	Shapes []struct {
		Shape  domain.Shape `json:"shape"`
		Labels []string     `json:"labels"`
	} `json:"shapes"`
}

// loadDataset reads a dataset folder. name overrides the project name in project.yaml.
func loadDataset(dir, name string) (services.DatasetRequest, error) {
	var req services.DatasetRequest

	raw, err := os.ReadFile(filepath.Join(dir, datasetProjectFile))
	if err != nil {
		return req, fmt.Errorf("read %s: %w", datasetProjectFile, err)
	}
	var pf projectFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return req, fmt.Errorf("parse %s: %w", datasetProjectFile, err)
	}
	if name != "" {
		pf.Name = name
	}
	req.Project = domain.ProjectSpec{Name: pf.Name, Tasks: pf.Tasks, Parameters: pf.Parameters}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return req, err
	}
	var images []string
	for _, e := range entries {
		if !e.IsDir() && imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			images = append(images, e.Name())
		}
	}
	sort.Strings(images)

	for _, img := range images {
		data, err := os.ReadFile(filepath.Join(dir, img))
		if err != nil {
			return req, err
		}
		shapes, err := loadShapes(dir, img)
		if err != nil {
			return req, err
		}
		req.Items = append(req.Items, services.DatasetItem{Name: img, Data: data, Shapes: shapes})
	}
	return req, nil
}

func loadShapes(dir, image string) ([]services.LabeledShape, error) {
	stem := strings.TrimSuffix(image, filepath.Ext(image))
	raw, err := os.ReadFile(filepath.Join(dir, datasetAnnotationsDir, stem+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var af annotationFile
	if err := json.Unmarshal(raw, &af); err != nil {
		return nil, fmt.Errorf("parse annotation for %s: %w", image, err)
	}
	shapes := make([]services.LabeledShape, 0, len(af.Shapes))
	for _, s := range af.Shapes {
		shapes = append(shapes, services.LabeledShape{Shape: s.Shape, Labels: s.Labels})
	}
	return shapes, nil
}
