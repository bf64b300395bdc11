package domain

import (
	"time"

	"github.com/google/uuid"
)

// PredictionStatus is the outcome reported to the caller.
type PredictionStatus string

const (
	PredictionStatusSuccess PredictionStatus = "success"
	PredictionStatusError   PredictionStatus = "error"
)

// PredictionErrorValue is returned in place of a prediction when a request fails.
const PredictionErrorValue = -1.0

// Prediction is the result of evaluating the model on one input row.
type Prediction struct {
	ModelName    string
	ModelVersion string
	Value        float64
}

// PredictionRecord is one entry of the prediction audit log.
type PredictionRecord struct {
	ID           uuid.UUID
	RequestID    string
	ModelName    string
	ModelVersion string
	Status       PredictionStatus
	Value        float64
	ErrorCode    string
	Latency      time.Duration
	CreatedAt    time.Time
}
