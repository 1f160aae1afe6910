package handlers

import (
	"mime/multipart"
	"net/http"

	"pharmacare_backend/internal/middleware"
	"pharmacare_backend/internal/services"
	"pharmacare_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ImportHandler holds the import service dependency.
type ImportHandler struct {
	importService services.ImportService
}

// NewImportHandler creates a new ImportHandler.
func NewImportHandler(importService services.ImportService) *ImportHandler {
	return &ImportHandler{importService: importService}
}

func openUploadedCSV(c *gin.Context) (multipart.File, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Missing CSV file", "expected a multipart form field named 'file'"))
		return nil, false
	}
	file, err := fileHeader.Open()
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Could not read uploaded file", err.Error()))
		return nil, false
	}
	return file, true
}

// ImportLots handles POST /imports/lots with a multipart CSV file.
func (h *ImportHandler) ImportLots(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User identity is missing", ""))
		return
	}

	file, ok := openUploadedCSV(c)
	if !ok {
		return
	}
	defer file.Close()

	result, err := h.importService.ImportLots(file, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	status := http.StatusCreated
	if len(result.Errors) > 0 {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

// ImportBatches handles POST /imports/batches with a multipart CSV file.
func (h *ImportHandler) ImportBatches(c *gin.Context) {
	file, ok := openUploadedCSV(c)
	if !ok {
		return
	}
	defer file.Close()

	result, err := h.importService.ImportBatches(file)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	status := http.StatusCreated
	if len(result.Errors) > 0 {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}
