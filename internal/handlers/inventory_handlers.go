package handlers

import (
	"net/http"
	"strconv"

	"pharmacare_backend/internal/middleware"
	"pharmacare_backend/internal/models"
	"pharmacare_backend/internal/services"
	"pharmacare_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// InventoryHandler holds the inventory service dependency.
type InventoryHandler struct {
	inventoryService services.InventoryService
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(inventoryService services.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

// CreateLot handles POST /inventory/lots.
func (h *InventoryHandler) CreateLot(c *gin.Context) {
	var req services.CreateLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid request payload", err.Error()))
		return
	}

	lot, err := h.inventoryService.CreateLot(req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, lot)
}

// GetLotByID handles GET /inventory/lots/:id.
func (h *InventoryHandler) GetLotByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	lot, err := h.inventoryService.GetLotByID(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

// GetLots handles GET /inventory/lots.
func (h *InventoryHandler) GetLots(c *gin.Context) {
	var filters models.LotFilters
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

	lots, totalCount, err := h.inventoryService.GetLots(filters)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, paginatedResponse(lots, totalCount, filters.Page, filters.PageSize))
}

// UpdateLot handles PUT /inventory/lots/:id.
func (h *InventoryHandler) UpdateLot(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid request payload", err.Error()))
		return
	}

	lot, err := h.inventoryService.UpdateLot(id, req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

// DeleteLot handles DELETE /inventory/lots/:id.
func (h *InventoryHandler) DeleteLot(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.inventoryService.DeleteLot(id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Inventory lot deleted successfully"})
}

// AdjustLot handles POST /inventory/lots/:id/adjust.
func (h *InventoryHandler) AdjustLot(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User identity is missing", ""))
		return
	}

	var req services.AdjustLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid request payload", err.Error()))
		return
	}

	lot, err := h.inventoryService.AdjustLotQuantity(id, userID, req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

// GetMovements handles GET /inventory/movements.
func (h *InventoryHandler) GetMovements(c *gin.Context) {
	var lotID *int64
	if raw := c.Query("lot_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid lot_id", "lot_id must be a positive integer"))
			return
		}
		lotID = &parsed
	}

	var movementType *string
	if raw := c.Query("movement_type"); raw != "" {
		movementType = &raw
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	movements, totalCount, err := h.inventoryService.GetMovements(lotID, movementType, page, pageSize)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, paginatedResponse(movements, totalCount, page, pageSize))
}
