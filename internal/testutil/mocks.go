package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"price-prediction-service/internal/core/domain"
	ports "price-prediction-service/internal/core/ports/output"
)

// MockPredictionRecorder is a mock of PredictionRecorder.
type MockPredictionRecorder struct {
	mock.Mock
}

func (m *MockPredictionRecorder) Record(rec *domain.PredictionRecord) {
	m.Called(rec)
}

func (m *MockPredictionRecorder) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockPredictionMetrics is a mock of PredictionMetrics.
type MockPredictionMetrics struct {
	mock.Mock
}

func (m *MockPredictionMetrics) ObservePrediction(status, errorCode string, latency time.Duration) {
	m.Called(status, errorCode, latency)
}

func (m *MockPredictionMetrics) RecordDropped() {
	m.Called()
}

// MockClusterClient is a mock of ClusterClient.
type MockClusterClient struct {
	mock.Mock
}

func (m *MockClusterClient) Apply(ctx context.Context, release *domain.Release) ([]ports.AppliedObject, error) {
	args := m.Called(ctx, release)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ports.AppliedObject), args.Error(1)
}

func (m *MockClusterClient) IsAvailable() bool {
	args := m.Called()
	return args.Bool(0)
}

// MockManifestRenderer is a mock of ManifestRenderer.
type MockManifestRenderer struct {
	mock.Mock
}

func (m *MockManifestRenderer) RenderDeployment(release *domain.Release) ([]byte, error) {
	args := m.Called(release)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockManifestRenderer) RenderService(release *domain.Release) ([]byte, error) {
	args := m.Called(release)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockGatewayRenderer is a mock of GatewayConfigRenderer.
type MockGatewayRenderer struct {
	mock.Mock
}

func (m *MockGatewayRenderer) Render(release *domain.Release) ([]byte, error) {
	args := m.Called(release)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
