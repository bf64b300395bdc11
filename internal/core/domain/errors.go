package domain

import (
	"errors"
	"fmt"
)

// ============================================================================
// Model Artifact Errors
// ============================================================================

var (
	ErrUnsupportedFormatVersion = errors.New("unsupported model artifact format version")
	ErrUnsupportedModelKind     = errors.New("unsupported model kind")
	ErrNoFeatures               = errors.New("model has no features")
	ErrEmptyFeatureName         = errors.New("feature name is empty")
	ErrDuplicateFeature         = errors.New("duplicate feature name")
	ErrCoefficientMismatch      = errors.New("coefficient count does not match feature count")
	ErrNonFiniteParameter       = errors.New("model parameter is not finite")
	ErrFeatureVectorLength      = errors.New("feature vector length does not match model")
)

// ============================================================================
// Prediction Errors
// ============================================================================

// Input schema errors
var (
	ErrMalformedInput      = errors.New("request body must be a JSON object")
	ErrMissingFeature      = errors.New("required feature is missing")
	ErrInvalidFeatureValue = errors.New("feature value must be a number")
	ErrUnknownFeature      = errors.New("feature is not part of the model")
)

var ErrNonFinitePrediction = errors.New("model produced a non-finite prediction")

// InputError ties an input schema error to the offending field.
type InputError struct {
	Field string
	Err   error
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %q", e.Err.Error(), e.Field)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err was caused by the caller's input.
func IsInputError(err error) bool {
	var inErr *InputError
	return errors.As(err, &inErr) || errors.Is(err, ErrMalformedInput)
}

// ============================================================================
// Release Errors
// ============================================================================

var (
	ErrInvalidReleaseName = errors.New("release name is required")
	ErrInvalidImage       = errors.New("container image is required")
	ErrInvalidProject     = errors.New("project ID is required")
	ErrInvalidReplicas    = errors.New("replicas must be >= 1")
	ErrInvalidPort        = errors.New("port must be between 1 and 65535")
	ErrPortConflict       = errors.New("proxy port and server port must differ")
	ErrClusterUnavailable = errors.New("kubernetes cluster client not available")
)

// ErrorCode returns the stable machine-readable code reported to callers.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedInput):
		return "malformed_input"
	case errors.Is(err, ErrMissingFeature):
		return "missing_feature"
	case errors.Is(err, ErrInvalidFeatureValue):
		return "invalid_feature_value"
	case errors.Is(err, ErrUnknownFeature):
		return "unknown_feature"
	case errors.Is(err, ErrNonFinitePrediction):
		return "non_finite_prediction"
	default:
		return "internal"
	}
}
