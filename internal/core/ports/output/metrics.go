package ports

import "time"

// PredictionMetrics observes prediction outcomes.
type PredictionMetrics interface {
	ObservePrediction(status, errorCode string, latency time.Duration)
	RecordDropped()
}

// NopMetrics is used when metrics are disabled.
type NopMetrics struct{}

func (NopMetrics) ObservePrediction(string, string, time.Duration) {}

func (NopMetrics) RecordDropped() {}
