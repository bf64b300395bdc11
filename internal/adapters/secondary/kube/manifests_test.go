package kube

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"sigs.k8s.io/yaml"

	"price-prediction-service/internal/core/domain"
)

func testRelease() *domain.Release {
	return &domain.Release{
		Name:                  "housing-predictor",
		Namespace:             "ml",
		ProjectID:             "demo-project",
		Image:                 "gcr.io/demo-project/housing-predictor:abc123",
		Replicas:              3,
		ServerPort:            8080,
		ProxyPort:             8081,
		ReadinessInitialDelay: 10 * time.Second,
		ReadinessPeriod:       5 * time.Second,
		TerminationGrace:      30 * time.Second,
		Labels:                map[string]string{"team": "pricing"},
	}
}

func container(t *testing.T, d *appsv1.Deployment, name string) corev1.Container {
	t.Helper()
	for _, c := range d.Spec.Template.Spec.Containers {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("container %q not found", name)
	return corev1.Container{}
}

func TestBuildDeployment(t *testing.T) {
	d := BuildDeployment(testRelease())

	assert.Equal(t, "housing-predictor", d.Name)
	assert.Equal(t, "ml", d.Namespace)
	assert.Equal(t, int32(3), *d.Spec.Replicas)
	assert.Equal(t, map[string]string{"app": "housing-predictor"}, d.Spec.Selector.MatchLabels)
	assert.Equal(t, map[string]string{"app": "housing-predictor", "team": "pricing"}, d.Spec.Template.Labels)

	require.NotNil(t, d.Spec.Strategy.RollingUpdate)
	assert.Equal(t, appsv1.RollingUpdateDeploymentStrategyType, d.Spec.Strategy.Type)
	assert.Equal(t, intstr.FromInt32(1), *d.Spec.Strategy.RollingUpdate.MaxSurge)
	assert.Equal(t, intstr.FromInt32(0), *d.Spec.Strategy.RollingUpdate.MaxUnavailable)
	assert.Equal(t, int64(30), *d.Spec.Template.Spec.TerminationGracePeriodSeconds)

	predictor := container(t, d, predictorContainer)
	assert.Equal(t, "gcr.io/demo-project/housing-predictor:abc123", predictor.Image)
	assert.Equal(t, int32(8080), predictor.Ports[0].ContainerPort)
	require.NotNil(t, predictor.ReadinessProbe)
	assert.Equal(t, "/", predictor.ReadinessProbe.HTTPGet.Path)
	assert.Equal(t, intstr.FromInt32(8080), predictor.ReadinessProbe.HTTPGet.Port)
	assert.Equal(t, int32(10), predictor.ReadinessProbe.InitialDelaySeconds)
	assert.Equal(t, int32(5), predictor.ReadinessProbe.PeriodSeconds)
	assert.Equal(t, int32(15), predictor.LivenessProbe.InitialDelaySeconds)
	assert.Nil(t, predictor.Lifecycle)

	esp := container(t, d, gatewayContainer)
	assert.Equal(t, defaultGatewayImg, esp.Image)
	wantArgs := []string{
		"--http_port=8081",
		"--backend=127.0.0.1:8080",
		"--service=housing-predictor.endpoints.demo-project.cloud.goog",
		"--rollout_strategy=managed",
	}
	if diff := cmp.Diff(wantArgs, esp.Args); diff != "" {
		t.Errorf("esp args mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildDeployment_PreStop(t *testing.T) {
	release := testRelease()
	release.PreStopDelay = 5 * time.Second

	predictor := container(t, BuildDeployment(release), predictorContainer)
	require.NotNil(t, predictor.Lifecycle)
	assert.Equal(t, []string{"sleep", "5"}, predictor.Lifecycle.PreStop.Exec.Command)
}

func TestBuildService(t *testing.T) {
	s := BuildService(testRelease())

	assert.Equal(t, corev1.ServiceTypeLoadBalancer, s.Spec.Type)
	assert.Equal(t, map[string]string{"app": "housing-predictor"}, s.Spec.Selector)

	want := []corev1.ServicePort{{
		Name:       "http",
		Port:       80,
		TargetPort: intstr.FromInt32(8081),
		Protocol:   corev1.ProtocolTCP,
	}}
	if diff := cmp.Diff(want, s.Spec.Ports); diff != "" {
		t.Errorf("service ports mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderer_RenderDeployment(t *testing.T) {
	out, err := NewRenderer().RenderDeployment(testRelease())
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal(out, &doc))

	assert.Equal(t, "apps/v1", doc["apiVersion"])
	assert.Equal(t, "Deployment", doc["kind"])
	assert.NotContains(t, doc, "status")
	assert.NotContains(t, string(out), "creationTimestamp")
}

func TestRenderer_RenderService(t *testing.T) {
	out, err := NewRenderer().RenderService(testRelease())
	require.NoError(t, err)

	var s corev1.Service
	require.NoError(t, yaml.Unmarshal(out, &s))
	assert.Equal(t, "Service", s.Kind)
	assert.Equal(t, int32(80), s.Spec.Ports[0].Port)
	assert.Equal(t, intstr.FromInt32(8081), s.Spec.Ports[0].TargetPort)
}

func TestNamespaceDefault(t *testing.T) {
	release := testRelease()
	release.Namespace = ""
	assert.Equal(t, "default", BuildService(release).Namespace)
}
