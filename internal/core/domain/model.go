package domain

import (
	"fmt"
	"math"
)

// ============================================================================
// Value Objects
// ============================================================================

// ModelKind identifies the family of a serialized model.
type ModelKind string

const (
	ModelKindLinearRegression ModelKind = "linear_regression"
)

// IsValid checks if the kind is one the server can evaluate
func (k ModelKind) IsValid() bool {
	return k == ModelKindLinearRegression
}

// ArtifactFormatVersion is the only artifact layout this build understands.
const ArtifactFormatVersion = 1

// ============================================================================
// Entities
// ============================================================================

// ModelSpec is the decoded content of a model artifact.
type ModelSpec struct {
	FormatVersion int
	Name          string
	Version       string
	Kind          ModelKind
	Features      []string
	Intercept     float64
	Coefficients  []float64
	Metadata      map[string]interface{}
}

// Model is a loaded regression model. It is never mutated after NewModel
// returns, so one instance can serve concurrent requests without locking.
type Model struct {
	name         string
	version      string
	kind         ModelKind
	features     []string
	index        map[string]int
	intercept    float64
	coefficients []float64
	metadata     map[string]interface{}
}

// NewModel validates spec and builds an immutable model from it.
func NewModel(spec ModelSpec) (*Model, error) {
	if spec.FormatVersion != ArtifactFormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormatVersion, spec.FormatVersion)
	}
	if !spec.Kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModelKind, spec.Kind)
	}
	if len(spec.Features) == 0 {
		return nil, ErrNoFeatures
	}
	if len(spec.Coefficients) != len(spec.Features) {
		return nil, fmt.Errorf("%w: %d coefficients, %d features",
			ErrCoefficientMismatch, len(spec.Coefficients), len(spec.Features))
	}
	if !isFinite(spec.Intercept) {
		return nil, fmt.Errorf("%w: intercept", ErrNonFiniteParameter)
	}

	index := make(map[string]int, len(spec.Features))
	for i, name := range spec.Features {
		if name == "" {
			return nil, fmt.Errorf("%w: position %d", ErrEmptyFeatureName, i)
		}
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateFeature, name)
		}
		if !isFinite(spec.Coefficients[i]) {
			return nil, fmt.Errorf("%w: coefficient for %q", ErrNonFiniteParameter, name)
		}
		index[name] = i
	}

	metadata := make(map[string]interface{}, len(spec.Metadata))
	for k, v := range spec.Metadata {
		metadata[k] = v
	}

	return &Model{
		name:         spec.Name,
		version:      spec.Version,
		kind:         spec.Kind,
		features:     append([]string(nil), spec.Features...),
		index:        index,
		intercept:    spec.Intercept,
		coefficients: append([]float64(nil), spec.Coefficients...),
		metadata:     metadata,
	}, nil
}

func (m *Model) Name() string    { return m.name }
func (m *Model) Version() string { return m.version }
func (m *Model) Kind() ModelKind { return m.kind }

// Features returns the training-time feature order.
func (m *Model) Features() []string {
	return append([]string(nil), m.features...)
}

// NumFeatures returns the length of the feature vector the model expects.
func (m *Model) NumFeatures() int {
	return len(m.features)
}

// FeatureIndex returns the position of name in the feature vector.
func (m *Model) FeatureIndex(name string) (int, bool) {
	i, ok := m.index[name]
	return i, ok
}

// Metadata returns a shallow copy of the informational artifact metadata.
func (m *Model) Metadata() map[string]interface{} {
	out := make(map[string]interface{}, len(m.metadata))
	for k, v := range m.metadata {
		out[k] = v
	}
	return out
}

// Predict evaluates the model on a vector already in training order.
func (m *Model) Predict(vector []float64) (float64, error) {
	if len(vector) != len(m.coefficients) {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrFeatureVectorLength, len(vector), len(m.coefficients))
	}

	y := m.intercept
	for i, x := range vector {
		y += m.coefficients[i] * x
	}
	if !isFinite(y) {
		return 0, ErrNonFinitePrediction
	}
	return y, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
