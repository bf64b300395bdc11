package dto

import (
	"price-prediction-service/internal/core/domain"
)

// ============================================================================
// Prediction DTOs
// ============================================================================

type PredictResponse struct {
	Status  string       `json:"status"`
	Predict float64      `json:"predict"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func ToPredictResponse(p *domain.Prediction) PredictResponse {
	return PredictResponse{
		Status:  string(domain.PredictionStatusSuccess),
		Predict: p.Value,
	}
}

func ToPredictErrorResponse(code, message string) PredictResponse {
	return PredictResponse{
		Status:  string(domain.PredictionStatusError),
		Predict: domain.PredictionErrorValue,
		Error:   &ErrorDetail{Code: code, Message: message},
	}
}

// ============================================================================
// Model DTOs
// ============================================================================

type ModelResponse struct {
	Name     string                 `json:"name"`
	Version  string                 `json:"version"`
	Kind     string                 `json:"kind"`
	Features []string               `json:"features"`
	Metadata map[string]interface{} `json:"metadata"`
}

func ToModelResponse(m *domain.Model) ModelResponse {
	return ModelResponse{
		Name:     m.Name(),
		Version:  m.Version(),
		Kind:     string(m.Kind()),
		Features: m.Features(),
		Metadata: m.Metadata(),
	}
}
