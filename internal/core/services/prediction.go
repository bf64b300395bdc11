package services

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"price-prediction-service/internal/core/domain"
	ports "price-prediction-service/internal/core/ports/output"
)

type PredictionService struct {
	model        *domain.Model
	strictFields bool
	recorder     ports.PredictionRecorder
	metrics      ports.PredictionMetrics
}

func NewPredictionService(
	model *domain.Model,
	strictFields bool,
	recorder ports.PredictionRecorder,
	metrics ports.PredictionMetrics,
) *PredictionService {
	if recorder == nil {
		recorder = ports.NopRecorder{}
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &PredictionService{
		model:        model,
		strictFields: strictFields,
		recorder:     recorder,
		metrics:      metrics,
	}
}

// Model returns the loaded model handle.
func (s *PredictionService) Model() *domain.Model {
	return s.model
}

// Project validates input against the model schema and returns the values in
// training order. Missing and non-numeric fields are reported in training
// order; unknown fields are reported in lexical order.
func (s *PredictionService) Project(input map[string]interface{}) ([]float64, error) {
	features := s.model.Features()
	vector := make([]float64, len(features))

	for i, name := range features {
		raw, ok := input[name]
		if !ok {
			return nil, &domain.InputError{Field: name, Err: domain.ErrMissingFeature}
		}
		v, ok := toFloat(raw)
		if !ok {
			return nil, &domain.InputError{Field: name, Err: domain.ErrInvalidFeatureValue}
		}
		vector[i] = v
	}

	if s.strictFields && len(input) > len(features) {
		extra := make([]string, 0, len(input)-len(features))
		for name := range input {
			if _, known := s.model.FeatureIndex(name); !known {
				extra = append(extra, name)
			}
		}
		sort.Strings(extra)
		return nil, &domain.InputError{Field: extra[0], Err: domain.ErrUnknownFeature}
	}

	return vector, nil
}

// Predict evaluates the model on one input row.
func (s *PredictionService) Predict(ctx context.Context, requestID string, input map[string]interface{}) (*domain.Prediction, error) {
	start := time.Now()

	value, err := s.evaluate(input)
	s.observe(requestID, value, err, start)
	if err != nil {
		return nil, err
	}

	return &domain.Prediction{
		ModelName:    s.model.Name(),
		ModelVersion: s.model.Version(),
		Value:        value,
	}, nil
}

// Reject accounts for a request that failed before reaching the model, such
// as an unparseable body.
func (s *PredictionService) Reject(ctx context.Context, requestID string, err error) {
	s.observe(requestID, 0, err, time.Now())
}

func (s *PredictionService) evaluate(input map[string]interface{}) (float64, error) {
	vector, err := s.Project(input)
	if err != nil {
		return 0, err
	}
	return s.model.Predict(vector)
}

func (s *PredictionService) observe(requestID string, value float64, err error, start time.Time) {
	latency := time.Since(start)
	rec := &domain.PredictionRecord{
		ID:           uuid.New(),
		RequestID:    requestID,
		ModelName:    s.model.Name(),
		ModelVersion: s.model.Version(),
		Status:       domain.PredictionStatusSuccess,
		Value:        value,
		Latency:      latency,
		CreatedAt:    start,
	}
	if err != nil {
		rec.Status = domain.PredictionStatusError
		rec.Value = domain.PredictionErrorValue
		rec.ErrorCode = domain.ErrorCode(err)
	}

	s.metrics.ObservePrediction(string(rec.Status), rec.ErrorCode, latency)
	s.recorder.Record(rec)
}

func toFloat(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
