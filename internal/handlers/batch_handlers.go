package handlers

import (
	"net/http"
	"strconv"

	"pharmacare_backend/internal/models"
	"pharmacare_backend/internal/services"
	"pharmacare_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// BatchHandler holds the batch service dependency.
type BatchHandler struct {
	batchService services.BatchService
}

// NewBatchHandler creates a new BatchHandler.
func NewBatchHandler(batchService services.BatchService) *BatchHandler {
	return &BatchHandler{batchService: batchService}
}

// CreateBatch handles POST /batches.
func (h *BatchHandler) CreateBatch(c *gin.Context) {
	var req services.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid request payload", err.Error()))
		return
	}

	batch, err := h.batchService.CreateBatch(req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, batch)
}

// GetBatchByID handles GET /batches/:id.
func (h *BatchHandler) GetBatchByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	batch, err := h.batchService.GetBatchByID(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// GetBatches handles GET /batches.
func (h *BatchHandler) GetBatches(c *gin.Context) {
	var filters models.BatchFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid query parameters", err.Error()))
		return
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 {
		filters.PageSize = 20
	}

	batches, totalCount, err := h.batchService.GetBatches(filters)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, paginatedResponse(batches, totalCount, filters.Page, filters.PageSize))
}

// UpdateBatch handles PUT /batches/:id.
func (h *BatchHandler) UpdateBatch(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid request payload", err.Error()))
		return
	}

	batch, err := h.batchService.UpdateBatch(id, req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// DeleteBatch handles DELETE /batches/:id.
func (h *BatchHandler) DeleteBatch(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.batchService.DeleteBatch(id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Batch deleted successfully"})
}

// GetBatchOptions handles GET /products/:id/batch-options?quantity=N.
// It returns the product's active batches in first-expiry-first-out order,
// annotated against the requested quantity.
func (h *BatchHandler) GetBatchOptions(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	quantity, err := strconv.Atoi(c.DefaultQuery("quantity", "1"))
	if err != nil || quantity <= 0 {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid quantity", "quantity must be a positive integer"))
		return
	}

	options, err := h.batchService.GetBatchOptions(productID, quantity)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": options, "requested_quantity": quantity})
}
