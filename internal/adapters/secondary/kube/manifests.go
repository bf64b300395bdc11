package kube

import (
	"fmt"
	"strconv"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/intstr"
	"sigs.k8s.io/yaml"

	"price-prediction-service/internal/core/domain"
)

const (
	predictorContainer = "predictor"
	gatewayContainer   = "esp"
	defaultGatewayImg  = "gcr.io/endpoints-release/endpoints-runtime:1"
	defaultNamespace   = "default"
	servicePort        = 80
)

// Renderer renders releases as Kubernetes YAML.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) RenderDeployment(release *domain.Release) ([]byte, error) {
	return render(BuildDeployment(release))
}

func (r *Renderer) RenderService(release *domain.Release) ([]byte, error) {
	return render(BuildService(release))
}

// BuildDeployment returns the rolling-update Deployment running the prediction
// server behind the gateway sidecar.
func BuildDeployment(release *domain.Release) *appsv1.Deployment {
	labels := releaseLabels(release)
	replicas := release.Replicas
	maxSurge := intstr.FromInt32(1)
	maxUnavailable := intstr.FromInt32(0)
	grace := int64(release.TerminationGrace / time.Second)

	predictor := corev1.Container{
		Name:  predictorContainer,
		Image: release.Image,
		Ports: []corev1.ContainerPort{{
			Name:          "http",
			ContainerPort: release.ServerPort,
			Protocol:      corev1.ProtocolTCP,
		}},
		Env: []corev1.EnvVar{
			{Name: "SERVER_PORT", Value: strconv.Itoa(int(release.ServerPort))},
		},
		ReadinessProbe: rootProbe(release, release.ReadinessInitialDelay),
		LivenessProbe:  rootProbe(release, release.ReadinessInitialDelay+release.ReadinessPeriod),
	}
	if release.PreStopDelay > 0 {
		predictor.Lifecycle = &corev1.Lifecycle{
			PreStop: &corev1.LifecycleHandler{
				Exec: &corev1.ExecAction{
					Command: []string{"sleep", strconv.Itoa(int(release.PreStopDelay / time.Second))},
				},
			},
		}
	}

	gatewayImage := release.GatewayImage
	if gatewayImage == "" {
		gatewayImage = defaultGatewayImg
	}
	gateway := corev1.Container{
		Name:  gatewayContainer,
		Image: gatewayImage,
		Args: []string{
			fmt.Sprintf("--http_port=%d", release.ProxyPort),
			fmt.Sprintf("--backend=127.0.0.1:%d", release.ServerPort),
			"--service=" + release.GatewayHost(),
			"--rollout_strategy=managed",
		},
		Ports: []corev1.ContainerPort{{
			Name:          "proxy",
			ContainerPort: release.ProxyPort,
			Protocol:      corev1.ProtocolTCP,
		}},
	}

	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      release.Name,
			Namespace: namespace(release),
			Labels:    labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: release.SelectorLabels()},
			Strategy: appsv1.DeploymentStrategy{
				Type: appsv1.RollingUpdateDeploymentStrategyType,
				RollingUpdate: &appsv1.RollingUpdateDeployment{
					MaxSurge:       &maxSurge,
					MaxUnavailable: &maxUnavailable,
				},
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					TerminationGracePeriodSeconds: &grace,
					Containers:                    []corev1.Container{gateway, predictor},
				},
			},
		},
	}
}

// BuildService returns the load-balanced Service fronting the gateway port.
func BuildService(release *domain.Release) *corev1.Service {
	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      release.Name,
			Namespace: namespace(release),
			Labels:    releaseLabels(release),
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeLoadBalancer,
			Selector: release.SelectorLabels(),
			Ports: []corev1.ServicePort{{
				Name:       "http",
				Port:       servicePort,
				TargetPort: intstr.FromInt32(release.ProxyPort),
				Protocol:   corev1.ProtocolTCP,
			}},
		},
	}
}

func rootProbe(release *domain.Release, initialDelay time.Duration) *corev1.Probe {
	period := int32(release.ReadinessPeriod / time.Second)
	if period < 1 {
		period = 1
	}
	return &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			HTTPGet: &corev1.HTTPGetAction{
				Path: "/",
				Port: intstr.FromInt32(release.ServerPort),
			},
		},
		InitialDelaySeconds: int32(initialDelay / time.Second),
		PeriodSeconds:       period,
		FailureThreshold:    3,
	}
}

func releaseLabels(release *domain.Release) map[string]string {
	labels := make(map[string]string, len(release.Labels)+1)
	for k, v := range release.Labels {
		labels[k] = v
	}
	for k, v := range release.SelectorLabels() {
		labels[k] = v
	}
	return labels
}

func namespace(release *domain.Release) string {
	if release.Namespace == "" {
		return defaultNamespace
	}
	return release.Namespace
}

// toUnstructured converts a typed object and strips the fields the API server
// owns, so the result is suitable for both rendering and server-side apply.
func toUnstructured(obj runtime.Object) (*unstructured.Unstructured, error) {
	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		return nil, fmt.Errorf("convert to unstructured: %w", err)
	}

	u := &unstructured.Unstructured{Object: content}
	unstructured.RemoveNestedField(u.Object, "status")
	unstructured.RemoveNestedField(u.Object, "metadata", "creationTimestamp")
	unstructured.RemoveNestedField(u.Object, "spec", "template", "metadata", "creationTimestamp")
	return u, nil
}

func render(obj runtime.Object) ([]byte, error) {
	u, err := toUnstructured(obj)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(u.Object)
}
