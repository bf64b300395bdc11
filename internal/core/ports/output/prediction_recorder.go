package ports

import (
	"context"

	"price-prediction-service/internal/core/domain"
)

// PredictionRecorder accepts prediction audit records. Record must not block
// the request path; implementations may drop records under pressure.
type PredictionRecorder interface {
	Record(rec *domain.PredictionRecord)
	Close(ctx context.Context) error
}

// NopRecorder discards every record. Used when the prediction log is disabled.
type NopRecorder struct{}

func (NopRecorder) Record(*domain.PredictionRecord) {}

func (NopRecorder) Close(context.Context) error { return nil }
