package handlers

import (
	"errors"
	"net/http"

	"price-prediction-service/internal/adapters/primary/http/dto"
	"price-prediction-service/internal/core/domain"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// mapPredictionError always answers with the error sentinel body; only the
// HTTP status and the error detail vary with the cause.
func mapPredictionError(c *gin.Context, requestID string, err error) {
	code := domain.ErrorCode(err)
	entry := log.WithError(err).WithFields(log.Fields{
		"request_id": requestID,
		"error_code": code,
	})

	switch {
	// Bad request / validation errors
	case domain.IsInputError(err):
		entry.Warn("prediction rejected")
		c.JSON(http.StatusBadRequest, dto.ToPredictErrorResponse(code, err.Error()))

	case errors.Is(err, domain.ErrNonFinitePrediction):
		entry.Error("prediction failed")
		c.JSON(http.StatusInternalServerError, dto.ToPredictErrorResponse(code, err.Error()))

	default:
		entry.Error("prediction failed")
		c.JSON(http.StatusInternalServerError, dto.ToPredictErrorResponse(code, "internal server error"))
	}
}
