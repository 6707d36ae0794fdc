package kserve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"vision-platform-client/internal/config"
	"vision-platform-client/internal/core/domain"
	output "vision-platform-client/internal/core/ports/output"
)

var inferenceServiceGVR = schema.GroupVersionResource{
	Group:    "serving.kserve.io",
	Version:  "v1beta1",
	Resource: "inferenceservices",
}

const (
	labelProjectID = "vision-platform/project-id"
	labelModelID   = "vision-platform/model-id"

	defaultRuntime = "openvino"
)

type publisher struct {
	client         dynamic.Interface
	enabled        bool
	defaultNS      string
	defaultRuntime string
}

// NewPublisher creates the KServe serving publisher from configuration.
func NewPublisher(cfg *config.KubernetesConfig) (output.ServingPublisher, error) {
	if !cfg.Enabled {
		return &publisher{enabled: false}, nil
	}

	var restCfg *rest.Config
	var err error

	if cfg.InCluster {
		restCfg, err = rest.InClusterConfig()
	} else if cfg.KubeConfigPath != "" {
		restCfg, err = clientcmd.BuildConfigFromFlags("", cfg.KubeConfigPath)
	} else {
		// Try default kubeconfig location
		home, _ := os.UserHomeDir()
		kubeconfig := filepath.Join(home, ".kube", "config")
		restCfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		return nil, fmt.Errorf("build k8s config: %w", err)
	}

	client, err := dynamic.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("create dynamic client: %w", err)
	}

	return NewPublisherForClient(client, cfg.DefaultNS, cfg.Runtime), nil
}

// NewPublisherForClient wraps an existing dynamic client.
func NewPublisherForClient(client dynamic.Interface, defaultNS, runtime string) output.ServingPublisher {
	if defaultNS == "" {
		defaultNS = "model-serving"
	}
	if runtime == "" {
		runtime = defaultRuntime
	}
	return &publisher{
		client:         client,
		enabled:        true,
		defaultNS:      defaultNS,
		defaultRuntime: runtime,
	}
}

func (p *publisher) IsAvailable() bool {
	return p.enabled
}

func (p *publisher) namespace(ns string) string {
	if ns == "" {
		return p.defaultNS
	}
	return ns
}

func (p *publisher) Publish(
	ctx context.Context,
	target domain.ServingTarget,
	deployment *domain.Deployment,
	storageURI string,
) (*domain.PublishResult, error) {
	namespace := p.namespace(target.Namespace)
	name := target.Name
	if name == "" {
		name = resourceName(deployment.ProjectName)
	}

	obj := p.buildInferenceServiceCR(name, target, deployment, storageURI)

	created, err := p.client.Resource(inferenceServiceGVR).
		Namespace(namespace).
		Create(ctx, obj, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("create kserve inferenceservice: %w", err)
	}

	return &domain.PublishResult{
		ArchiveURI: storageURI,
		Name:       created.GetName(),
		Namespace:  namespace,
		ExternalID: string(created.GetUID()),
		Status:     "published",
		Message:    "inference service created",
	}, nil
}

// Unpublish deletes the InferenceService. A missing service is not an error.
func (p *publisher) Unpublish(ctx context.Context, namespace, name string) error {
	err := p.client.Resource(inferenceServiceGVR).
		Namespace(p.namespace(namespace)).
		Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete kserve inferenceservice: %w", err)
	}
	return nil
}

func (p *publisher) GetStatus(ctx context.Context, namespace, name string) (*domain.ServingStatus, error) {
	obj, err := p.client.Resource(inferenceServiceGVR).
		Namespace(p.namespace(namespace)).
		Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return nil, fmt.Errorf("inference service %s: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get kserve inferenceservice: %w", err)
	}

	return parseStatus(obj), nil
}

func (p *publisher) buildInferenceServiceCR(
	name string,
	target domain.ServingTarget,
	deployment *domain.Deployment,
	storageURI string,
) *unstructured.Unstructured {
	labels := map[string]interface{}{
		labelProjectID: deployment.ProjectID,
	}
	// single-model deployments also carry the model ID
	if len(deployment.Models) == 1 {
		labels[labelModelID] = deployment.Models[0].ModelID
	}

	// Merge user labels
	for k, v := range target.Labels {
		labels[k] = v
	}

	runtime := target.Runtime
	if runtime == "" {
		runtime = p.defaultRuntime
	}

	modelSpec := map[string]interface{}{
		"storageUri": storageURI,
		"modelFormat": map[string]interface{}{
			"name": "vision-deployment",
		},
		"runtime": runtime,
	}

	return &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": "serving.kserve.io/v1beta1",
			"kind":       "InferenceService",
			"metadata": map[string]interface{}{
				"name":   name,
				"labels": labels,
			},
			"spec": map[string]interface{}{
				"predictor": map[string]interface{}{
					"model": modelSpec,
				},
			},
		},
	}
}

func parseStatus(obj *unstructured.Unstructured) *domain.ServingStatus {
	status := &domain.ServingStatus{}

	statusMap, found, _ := unstructured.NestedMap(obj.Object, "status")
	if !found {
		return status
	}

	status.URL, _, _ = unstructured.NestedString(statusMap, "url")

	// Check conditions for ready state
	conditions, found, _ := unstructured.NestedSlice(statusMap, "conditions")
	if !found {
		return status
	}
	for _, cond := range conditions {
		condMap, ok := cond.(map[string]interface{})
		if !ok {
			continue
		}
		condType, _ := condMap["type"].(string)
		condStatus, _ := condMap["status"].(string)
		if condType != "Ready" {
			continue
		}
		status.Ready = condStatus == "True"
		if msg, ok := condMap["message"].(string); ok && !status.Ready {
			status.Message = msg
		}
		break
	}

	return status
}

var invalidName = regexp.MustCompile(`[^a-z0-9-]+`)

// resourceName turns a project name into a DNS-1035 label.
func resourceName(s string) string {
	name := strings.Trim(invalidName.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if name == "" || name[0] < 'a' || name[0] > 'z' {
		name = "vp-" + name
	}
	if len(name) > 63 {
		name = strings.TrimRight(name[:63], "-")
	}
	return name
}

var _ output.ServingPublisher = (*publisher)(nil)
