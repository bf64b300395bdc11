package services

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"price-prediction-service/internal/core/domain"
	"price-prediction-service/internal/testutil"
)

func newPredictionService(strict bool) (*PredictionService, *testutil.MockPredictionRecorder, *testutil.MockPredictionMetrics) {
	recorder := new(testutil.MockPredictionRecorder)
	metrics := new(testutil.MockPredictionMetrics)
	recorder.On("Record", mock.Anything).Return()
	metrics.On("ObservePrediction", mock.Anything, mock.Anything, mock.Anything).Return()
	return NewPredictionService(testutil.HousingModel(), strict, recorder, metrics), recorder, metrics
}

func TestPredictionService_Predict(t *testing.T) {
	svc, recorder, metrics := newPredictionService(true)

	result, err := svc.Predict(context.Background(), "req-1", testutil.HousingRow())
	require.NoError(t, err)

	assert.Equal(t, "housing-linear", result.ModelName)
	assert.Equal(t, "1", result.ModelVersion)
	assert.False(t, math.IsNaN(result.Value))
	assert.False(t, math.IsInf(result.Value, 0))
	assert.InDelta(t, 30.0, result.Value, 2.0)

	metrics.AssertCalled(t, "ObservePrediction", "success", "", mock.Anything)
	recorder.AssertCalled(t, "Record", mock.MatchedBy(func(rec *domain.PredictionRecord) bool {
		return rec.RequestID == "req-1" &&
			rec.Status == domain.PredictionStatusSuccess &&
			rec.Value == result.Value &&
			rec.ModelName == "housing-linear"
	}))
}

func TestPredictionService_Idempotent(t *testing.T) {
	svc, _, _ := newPredictionService(true)

	first, err := svc.Predict(context.Background(), "", testutil.HousingRow())
	require.NoError(t, err)
	second, err := svc.Predict(context.Background(), "", testutil.HousingRow())
	require.NoError(t, err)

	assert.Equal(t, first.Value, second.Value)
}

func TestPredictionService_Project(t *testing.T) {
	svc, _, _ := newPredictionService(true)

	vector, err := svc.Project(testutil.HousingRow())
	require.NoError(t, err)
	require.Len(t, vector, len(testutil.HousingFeatures))

	assert.Equal(t, 0.00632, vector[0])
	assert.Equal(t, 6.575, vector[5])
	assert.Equal(t, 4.98, vector[12])
}

func TestPredictionService_ProjectAcceptsNumericTypes(t *testing.T) {
	svc, _, _ := newPredictionService(true)

	input := testutil.HousingRow()
	input["CHAS"] = 0
	input["RAD"] = int64(1)
	input["TAX"] = json.Number("296")
	input["ZN"] = float32(18)

	vector, err := svc.Project(input)
	require.NoError(t, err)
	assert.Equal(t, 296.0, vector[9])
	assert.Equal(t, 18.0, vector[1])
}

func TestPredictionService_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]interface{}) map[string]interface{}
		want   error
		field  string
		code   string
	}{
		{
			name:   "empty input",
			mutate: func(map[string]interface{}) map[string]interface{} { return map[string]interface{}{} },
			want:   domain.ErrMissingFeature,
			field:  "CRIM",
			code:   "missing_feature",
		},
		{
			name:   "nil input",
			mutate: func(map[string]interface{}) map[string]interface{} { return nil },
			want:   domain.ErrMissingFeature,
			field:  "CRIM",
			code:   "missing_feature",
		},
		{
			name: "missing field",
			mutate: func(in map[string]interface{}) map[string]interface{} {
				delete(in, "LSTAT")
				return in
			},
			want:  domain.ErrMissingFeature,
			field: "LSTAT",
			code:  "missing_feature",
		},
		{
			name: "misspelled field",
			mutate: func(in map[string]interface{}) map[string]interface{} {
				in["RMM"] = in["RM"]
				delete(in, "RM")
				return in
			},
			want:  domain.ErrMissingFeature,
			field: "RM",
			code:  "missing_feature",
		},
		{
			name: "string value",
			mutate: func(in map[string]interface{}) map[string]interface{} {
				in["AGE"] = "65.2"
				return in
			},
			want:  domain.ErrInvalidFeatureValue,
			field: "AGE",
			code:  "invalid_feature_value",
		},
		{
			name: "null value",
			mutate: func(in map[string]interface{}) map[string]interface{} {
				in["NOX"] = nil
				return in
			},
			want:  domain.ErrInvalidFeatureValue,
			field: "NOX",
			code:  "invalid_feature_value",
		},
		{
			name: "out of range number",
			mutate: func(in map[string]interface{}) map[string]interface{} {
				in["DIS"] = json.Number("1e400")
				return in
			},
			want:  domain.ErrInvalidFeatureValue,
			field: "DIS",
			code:  "invalid_feature_value",
		},
		{
			name: "extra fields",
			mutate: func(in map[string]interface{}) map[string]interface{} {
				in["ZZZ"] = 1.0
				in["MEDV"] = 24.0
				return in
			},
			want:  domain.ErrUnknownFeature,
			field: "MEDV",
			code:  "unknown_feature",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, recorder, metrics := newPredictionService(true)

			result, err := svc.Predict(context.Background(), "req-err", tt.mutate(testutil.HousingRow()))
			assert.Nil(t, result)
			require.ErrorIs(t, err, tt.want)

			var inErr *domain.InputError
			require.ErrorAs(t, err, &inErr)
			assert.Equal(t, tt.field, inErr.Field)
			assert.True(t, domain.IsInputError(err))

			metrics.AssertCalled(t, "ObservePrediction", "error", tt.code, mock.Anything)
			recorder.AssertCalled(t, "Record", mock.MatchedBy(func(rec *domain.PredictionRecord) bool {
				return rec.Status == domain.PredictionStatusError &&
					rec.Value == domain.PredictionErrorValue &&
					rec.ErrorCode == tt.code
			}))
		})
	}
}

func TestPredictionService_LenientIgnoresExtraFields(t *testing.T) {
	svc, _, _ := newPredictionService(false)

	input := testutil.HousingRow()
	input["MEDV"] = 24.0

	withExtra, err := svc.Predict(context.Background(), "", input)
	require.NoError(t, err)

	plain, err := svc.Predict(context.Background(), "", testutil.HousingRow())
	require.NoError(t, err)

	assert.Equal(t, plain.Value, withExtra.Value)
}

func TestPredictionService_Reject(t *testing.T) {
	svc, recorder, metrics := newPredictionService(true)

	svc.Reject(context.Background(), "req-bad", domain.ErrMalformedInput)

	metrics.AssertCalled(t, "ObservePrediction", "error", "malformed_input", mock.Anything)
	recorder.AssertCalled(t, "Record", mock.MatchedBy(func(rec *domain.PredictionRecord) bool {
		return rec.RequestID == "req-bad" && rec.ErrorCode == "malformed_input"
	}))
}

func TestPredictionService_NilCollaborators(t *testing.T) {
	svc := NewPredictionService(testutil.HousingModel(), true, nil, nil)

	_, err := svc.Predict(context.Background(), "", testutil.HousingRow())
	assert.NoError(t, err)
}
