package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"price-prediction-service/internal/adapters/primary/http/middleware"
	"price-prediction-service/internal/core/domain"
	"price-prediction-service/internal/core/services"
	"price-prediction-service/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupRouter(strict bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := services.NewPredictionService(testutil.HousingModel(), strict, nil, nil)

	h := New(svc)
	r := gin.New()
	r.Use(middleware.RequestID())
	h.RegisterRoutes(r)
	return r
}

type predictResult struct {
	Status  string   `json:"status"`
	Predict *float64 `json:"predict"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func postPredict(t *testing.T, r http.Handler, body string) (int, predictResult) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp predictResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.NotNil(t, resp.Predict, "response missing field \"predict\"")
	return w.Code, resp
}

func rowJSON(t *testing.T, row map[string]interface{}) string {
	t.Helper()
	body, err := json.Marshal(row)
	require.NoError(t, err)
	return string(body)
}

func TestHealth(t *testing.T) {
	r := setupRouter(true)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, LivenessText, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

func TestPredict_Success(t *testing.T) {
	r := setupRouter(true)

	code, resp := postPredict(t, r, rowJSON(t, testutil.HousingRow()))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", resp.Status)
	assert.Nil(t, resp.Error)
	assert.False(t, math.IsNaN(*resp.Predict) || math.IsInf(*resp.Predict, 0))
	assert.InDelta(t, 30.0, *resp.Predict, 2.0)
}

func TestPredict_KeyOrderIndependent(t *testing.T) {
	r := setupRouter(true)
	row := testutil.HousingRow()

	canonical := make([]string, 0, len(testutil.HousingFeatures))
	reversed := make([]string, 0, len(testutil.HousingFeatures))
	for i, name := range testutil.HousingFeatures {
		canonical = append(canonical, fmt.Sprintf("%q: %v", name, row[name]))
		rev := testutil.HousingFeatures[len(testutil.HousingFeatures)-1-i]
		reversed = append(reversed, fmt.Sprintf("%q: %v", rev, row[rev]))
	}

	_, a := postPredict(t, r, "{"+strings.Join(canonical, ", ")+"}")
	_, b := postPredict(t, r, "{"+strings.Join(reversed, ", ")+"}")

	require.Equal(t, "success", a.Status)
	require.Equal(t, "success", b.Status)
	assert.Equal(t, *a.Predict, *b.Predict)
}

func TestPredict_Idempotent(t *testing.T) {
	r := setupRouter(true)
	body := rowJSON(t, testutil.HousingRow())

	_, first := postPredict(t, r, body)
	_, second := postPredict(t, r, body)
	assert.Equal(t, *first.Predict, *second.Predict)
}

func TestPredict_Concurrent(t *testing.T) {
	r := setupRouter(true)
	body := rowJSON(t, testutil.HousingRow())
	_, want := postPredict(t, r, body)

	var wg sync.WaitGroup
	results := make([]float64, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			var resp predictResult
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err == nil && resp.Predict != nil {
				results[i] = *resp.Predict
			}
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, *want.Predict, got)
	}
}

func TestPredict_Errors(t *testing.T) {
	misspelled := testutil.HousingRow()
	misspelled["LSTAAT"] = misspelled["LSTAT"]
	delete(misspelled, "LSTAT")

	missing := testutil.HousingRow()
	delete(missing, "RM")

	stringValue := testutil.HousingRow()
	stringValue["TAX"] = "296"

	extra := testutil.HousingRow()
	extra["MEDV"] = 24.0

	tests := []struct {
		name string
		body string
		code string
	}{
		{"empty object", `{}`, "missing_feature"},
		{"missing field", rowJSON(t, missing), "missing_feature"},
		{"misspelled field", rowJSON(t, misspelled), "missing_feature"},
		{"string value", rowJSON(t, stringValue), "invalid_feature_value"},
		{"unknown field", rowJSON(t, extra), "unknown_feature"},
		{"malformed json", `{"RM": `, "malformed_input"},
		{"empty body", ``, "malformed_input"},
		{"array body", `[1, 2, 3]`, "malformed_input"},
		{"null body", `null`, "malformed_input"},
		{"trailing data", `{} {}`, "malformed_input"},
	}

	r := setupRouter(true)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := postPredict(t, r, tt.body)

			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, -1.0, *resp.Predict)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestPredict_LenientAcceptsExtraFields(t *testing.T) {
	r := setupRouter(false)

	row := testutil.HousingRow()
	row["MEDV"] = 24.0

	status, resp := postPredict(t, r, rowJSON(t, row))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", resp.Status)
}

func TestPredict_NonFinite(t *testing.T) {
	r := setupRouter(true)

	row := testutil.HousingRow()
	row["RM"] = 1e308
	status, resp := postPredict(t, r, rowJSON(t, row))

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, -1.0, *resp.Predict)
	assert.Equal(t, "non_finite_prediction", resp.Error.Code)
}

func TestPredict_BodyTooLarge(t *testing.T) {
	r := setupRouter(true)

	body := `{"pad": "` + strings.Repeat("x", 2<<20) + `"}`
	status, resp := postPredict(t, r, body)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "malformed_input", resp.Error.Code)
}

func TestPredict_RecordsRejectedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := new(testutil.MockPredictionRecorder)
	recorder.On("Record", mock.Anything).Return()

	h := New(services.NewPredictionService(testutil.HousingModel(), true, recorder, nil))
	r := gin.New()
	r.Use(middleware.RequestID())
	h.RegisterRoutes(r)

	req, _ := http.NewRequest(http.MethodPost, "/predict", bytes.NewBufferString("not json"))
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	recorder.AssertCalled(t, "Record", mock.MatchedBy(func(rec *domain.PredictionRecord) bool {
		return rec.RequestID == "req-42" && rec.ErrorCode == "malformed_input"
	}))
}

func TestGetModel(t *testing.T) {
	r := setupRouter(true)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/model", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "housing-linear", resp["name"])
	assert.Equal(t, "linear_regression", resp["kind"])

	features, ok := resp["features"].([]interface{})
	require.True(t, ok)
	require.Len(t, features, len(testutil.HousingFeatures))
	assert.Equal(t, "CRIM", features[0])
	assert.Equal(t, "LSTAT", features[12])
}
