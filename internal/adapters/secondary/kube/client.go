package kube

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"price-prediction-service/internal/config"
	"price-prediction-service/internal/core/domain"
	ports "price-prediction-service/internal/core/ports/output"
)

var (
	deploymentGVR = schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "deployments"}
	serviceGVR    = schema.GroupVersionResource{Group: "", Version: "v1", Resource: "services"}
)

type clusterClient struct {
	client       dynamic.Interface
	fieldManager string
}

// NewClusterClient creates a dynamic-client backed ClusterClient
func NewClusterClient(cfg *config.KubernetesConfig) (ports.ClusterClient, error) {
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

	return NewClusterClientFromDynamic(client, cfg.FieldManager), nil
}

// NewClusterClientFromDynamic wraps an existing dynamic client.
func NewClusterClientFromDynamic(client dynamic.Interface, fieldManager string) ports.ClusterClient {
	if fieldManager == "" {
		fieldManager = "price-predictor-deployer"
	}
	return &clusterClient{client: client, fieldManager: fieldManager}
}

func (c *clusterClient) IsAvailable() bool {
	return c.client != nil
}

// Apply server-side applies the Service first so the load balancer is
// provisioning while the Deployment rolls out.
func (c *clusterClient) Apply(ctx context.Context, release *domain.Release) ([]ports.AppliedObject, error) {
	objects := []struct {
		gvr schema.GroupVersionResource
		obj runtime.Object
	}{
		{serviceGVR, BuildService(release)},
		{deploymentGVR, BuildDeployment(release)},
	}

	applied := make([]ports.AppliedObject, 0, len(objects))
	for _, o := range objects {
		u, err := toUnstructured(o.obj)
		if err != nil {
			return applied, err
		}

		result, err := c.apply(ctx, o.gvr, u)
		if err != nil {
			return applied, fmt.Errorf("apply %s %s/%s: %w", u.GetKind(), u.GetNamespace(), u.GetName(), err)
		}

		applied = append(applied, ports.AppliedObject{
			Kind:            u.GetKind(),
			Namespace:       result.GetNamespace(),
			Name:            result.GetName(),
			ResourceVersion: result.GetResourceVersion(),
		})
	}

	return applied, nil
}

func (c *clusterClient) apply(ctx context.Context, gvr schema.GroupVersionResource, u *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	return c.client.Resource(gvr).
		Namespace(u.GetNamespace()).
		Apply(ctx, u.GetName(), u, metav1.ApplyOptions{
			FieldManager: c.fieldManager,
			Force:        true,
		})
}
