package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"price-prediction-service/internal/adapters/primary/http/dto"
	"price-prediction-service/internal/adapters/primary/http/middleware"
	"price-prediction-service/internal/core/domain"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Predict(c *gin.Context) {
	ctx := c.Request.Context()
	requestID := c.GetString(middleware.ContextKeyRequestID)

	input, err := decodeFeatures(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes))
	if err != nil {
		h.predictionSvc.Reject(ctx, requestID, err)
		mapPredictionError(c, requestID, err)
		return
	}

	result, err := h.predictionSvc.Predict(ctx, requestID, input)
	if err != nil {
		mapPredictionError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToPredictResponse(result))
}

// decodeFeatures reads exactly one JSON object. Numbers are kept as
// json.Number so the service can tell them apart from other types.
func decodeFeatures(body io.Reader) (map[string]interface{}, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty body", domain.ErrMalformedInput)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedInput, err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after object", domain.ErrMalformedInput)
	}

	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, domain.ErrMalformedInput
	}
	return obj, nil
}
