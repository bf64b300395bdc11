package ports

import (
	"context"

	"price-prediction-service/internal/core/domain"
)

// AppliedObject identifies one object written to the cluster.
type AppliedObject struct {
	Kind            string
	Namespace       string
	Name            string
	ResourceVersion string
}

// ClusterClient defines the contract for applying a release to Kubernetes
type ClusterClient interface {
	// Apply server-side applies the Deployment and Service of a release
	Apply(ctx context.Context, release *domain.Release) ([]AppliedObject, error)

	// IsAvailable checks if a cluster connection is configured
	IsAvailable() bool
}

// ManifestRenderer turns a release into deployable documents.
type ManifestRenderer interface {
	RenderDeployment(release *domain.Release) ([]byte, error)
	RenderService(release *domain.Release) ([]byte, error)
}

// GatewayConfigRenderer produces the API gateway configuration document.
type GatewayConfigRenderer interface {
	Render(release *domain.Release) ([]byte, error)
}
