package domain

import "time"

// Release describes one rollout of the prediction server onto a cluster:
// a Deployment with the gateway sidecar, a load-balanced Service, and the
// gateway configuration document.
type Release struct {
	Name      string
	Namespace string
	ProjectID string
	Image     string
	Replicas  int32

	ServerPort int32
	ProxyPort  int32

	// GatewayService is the managed API service name the sidecar serves.
	GatewayService string
	GatewayImage   string

	ReadinessInitialDelay time.Duration
	ReadinessPeriod       time.Duration
	TerminationGrace      time.Duration
	PreStopDelay          time.Duration

	// ModelFeatures, when set, are published as the required request schema.
	ModelFeatures []string

	Labels map[string]string
}

// Validate checks the fields every release needs before rendering.
func (r *Release) Validate() error {
	if r.Name == "" {
		return ErrInvalidReleaseName
	}
	if r.Image == "" {
		return ErrInvalidImage
	}
	if r.ProjectID == "" {
		return ErrInvalidProject
	}
	if r.Replicas < 1 {
		return ErrInvalidReplicas
	}
	if !validPort(r.ServerPort) || !validPort(r.ProxyPort) {
		return ErrInvalidPort
	}
	if r.ServerPort == r.ProxyPort {
		return ErrPortConflict
	}
	return nil
}

// GatewayHost is the managed API host name for this release.
func (r *Release) GatewayHost() string {
	if r.GatewayService != "" {
		return r.GatewayService
	}
	return r.Name + ".endpoints." + r.ProjectID + ".cloud.goog"
}

// SelectorLabels are the labels pods and the Service select on.
func (r *Release) SelectorLabels() map[string]string {
	return map[string]string{"app": r.Name}
}

func validPort(p int32) bool {
	return p > 0 && p <= 65535
}
