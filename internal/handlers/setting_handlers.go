package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"pharmacare_backend/internal/database"
	"pharmacare_backend/internal/models"
	"pharmacare_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// GetSettings handles GET /settings.
func GetSettings(c *gin.Context) {
	db := database.GetDB()
	rows, err := db.Query(`SELECT id, setting_key, setting_value, description, created_at, updated_at
	                       FROM application_settings ORDER BY setting_key`)
	if err != nil {
		utils.LogError(err, "Failed to query settings")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to load settings", ""))
		return
	}
	defer rows.Close()

	settings := []models.ApplicationSetting{}
	for rows.Next() {
		var setting models.ApplicationSetting
		if err := rows.Scan(&setting.ID, &setting.SettingKey, &setting.SettingValue, &setting.Description,
			&setting.CreatedAt, &setting.UpdatedAt); err != nil {
			utils.LogError(err, "Failed to scan setting row")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to load settings", ""))
			return
		}
		settings = append(settings, setting)
	}
	if err := rows.Err(); err != nil {
		utils.LogError(err, "Failed to iterate setting rows")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to load settings", ""))
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": settings})
}

// GetSettingByKey handles GET /settings/:key.
func GetSettingByKey(c *gin.Context) {
	key := c.Param("key")
	if utils.IsEmpty(key) {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Setting key is required", ""))
		return
	}

	db := database.GetDB()
	var setting models.ApplicationSetting
	err := db.QueryRow(`SELECT id, setting_key, setting_value, description, created_at, updated_at
	                    FROM application_settings WHERE setting_key = $1`, key).Scan(
		&setting.ID, &setting.SettingKey, &setting.SettingValue, &setting.Description,
		&setting.CreatedAt, &setting.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Setting not found", ""))
			return
		}
		utils.LogError(err, "Failed to query setting")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to load setting", ""))
		return
	}

	c.JSON(http.StatusOK, setting)
}

type upsertSettingRequest struct {
	SettingValue *string `json:"setting_value"`
	Description  *string `json:"description"`
}

// UpsertSetting handles PUT /settings/:key.
func UpsertSetting(c *gin.Context) {
	key := c.Param("key")
	if utils.IsEmpty(key) {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Setting key is required", ""))
		return
	}

	var req upsertSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid request payload", err.Error()))
		return
	}

	db := database.GetDB()
	var setting models.ApplicationSetting
	err := db.QueryRow(`
		INSERT INTO application_settings (setting_key, setting_value, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (setting_key) DO UPDATE
		SET setting_value = EXCLUDED.setting_value,
		    description = COALESCE(EXCLUDED.description, application_settings.description),
		    updated_at = EXCLUDED.updated_at
		RETURNING id, setting_key, setting_value, description, created_at, updated_at`,
		key, req.SettingValue, req.Description, time.Now()).Scan(
		&setting.ID, &setting.SettingKey, &setting.SettingValue, &setting.Description,
		&setting.CreatedAt, &setting.UpdatedAt)
	if err != nil {
		utils.LogError(err, "Failed to upsert setting")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to save setting", ""))
		return
	}

	c.JSON(http.StatusOK, setting)
}
