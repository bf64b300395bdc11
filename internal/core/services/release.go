package services

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"price-prediction-service/internal/core/domain"
	ports "price-prediction-service/internal/core/ports/output"
)

// Rendered file names, in the order they are produced.
const (
	DeploymentFile = "deployment.yaml"
	ServiceFile    = "service.yaml"
	GatewayFile    = "openapi.yaml"
)

type RenderedFile struct {
	Name    string
	Content []byte
}

type ReleaseService struct {
	manifests ports.ManifestRenderer
	gateway   ports.GatewayConfigRenderer
	cluster   ports.ClusterClient
}

func NewReleaseService(
	manifests ports.ManifestRenderer,
	gateway ports.GatewayConfigRenderer,
	cluster ports.ClusterClient,
) *ReleaseService {
	return &ReleaseService{
		manifests: manifests,
		gateway:   gateway,
		cluster:   cluster,
	}
}

// Render produces the Deployment, Service and gateway documents of a release.
func (s *ReleaseService) Render(release *domain.Release) ([]RenderedFile, error) {
	if err := release.Validate(); err != nil {
		return nil, err
	}

	deployment, err := s.manifests.RenderDeployment(release)
	if err != nil {
		return nil, fmt.Errorf("render deployment: %w", err)
	}

	service, err := s.manifests.RenderService(release)
	if err != nil {
		return nil, fmt.Errorf("render service: %w", err)
	}

	gateway, err := s.gateway.Render(release)
	if err != nil {
		return nil, fmt.Errorf("render gateway config: %w", err)
	}

	return []RenderedFile{
		{Name: DeploymentFile, Content: deployment},
		{Name: ServiceFile, Content: service},
		{Name: GatewayFile, Content: gateway},
	}, nil
}

// Apply writes the Deployment and Service of a release to the cluster.
func (s *ReleaseService) Apply(ctx context.Context, release *domain.Release) ([]ports.AppliedObject, error) {
	if err := release.Validate(); err != nil {
		return nil, err
	}
	if s.cluster == nil || !s.cluster.IsAvailable() {
		return nil, domain.ErrClusterUnavailable
	}

	applied, err := s.cluster.Apply(ctx, release)
	if err != nil {
		return nil, fmt.Errorf("apply release %s: %w", release.Name, err)
	}

	for _, obj := range applied {
		log.WithFields(log.Fields{
			"kind":             obj.Kind,
			"namespace":        obj.Namespace,
			"name":             obj.Name,
			"resource_version": obj.ResourceVersion,
		}).Info("object applied")
	}

	return applied, nil
}
