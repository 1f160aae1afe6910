package handlers

import (
	"errors"
	"net/http"

	"pharmacare_backend/internal/ai"
	"pharmacare_backend/internal/services"
	"pharmacare_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AIHandler holds the AI assistant service dependency.
type AIHandler struct {
	aiService services.AIService
}

// NewAIHandler creates a new AIHandler.
func NewAIHandler(aiService services.AIService) *AIHandler {
	return &AIHandler{aiService: aiService}
}

func respondAIError(c *gin.Context, err error) {
	if errors.Is(err, ai.ErrNotConfigured) {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusServiceUnavailable, utils.ErrCodeInternalServerError, "AI assistant is not configured", ""))
		return
	}
	handleServiceError(c, err)
}

type interactionsRequest struct {
	ProductIDs []int64 `json:"product_ids" binding:"required,min=2"`
}

// CheckInteractions handles POST /ai/interactions.
func (h *AIHandler) CheckInteractions(c *gin.Context) {
	var req interactionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid request payload", err.Error()))
		return
	}

	answer, err := h.aiService.CheckInteractions(req.ProductIDs)
	if err != nil {
		respondAIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

type parsePrescriptionRequest struct {
	Text string `json:"text" binding:"required"`
}

// ParsePrescription handles POST /ai/prescription-parse.
func (h *AIHandler) ParsePrescription(c *gin.Context) {
	var req parsePrescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid request payload", err.Error()))
		return
	}

	answer, err := h.aiService.ParsePrescription(req.Text)
	if err != nil {
		respondAIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

// PredictDemand handles GET /ai/demand/:id.
func (h *AIHandler) PredictDemand(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	answer, err := h.aiService.PredictDemand(productID)
	if err != nil {
		respondAIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}
