package handlers

import (
	"net/http"

	"price-prediction-service/internal/adapters/primary/http/dto"
	"price-prediction-service/internal/core/services"

	"github.com/gin-gonic/gin"
)

// LivenessText is the body served on GET /.
const LivenessText = "OK"

type Handler struct {
	predictionSvc *services.PredictionService
	maxBodyBytes  int64
}

func New(predictionSvc *services.PredictionService) *Handler {
	return &Handler{
		predictionSvc: predictionSvc,
		maxBodyBytes:  1 << 20,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", h.Health)
	r.POST("/predict", h.Predict)
	r.GET("/model", h.GetModel)
}

// Health answers readiness and liveness probes. The router is only built
// after the model has loaded, so reaching this handler means ready.
func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, LivenessText)
}

func (h *Handler) GetModel(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ToModelResponse(h.predictionSvc.Model()))
}
