package handlers

import (
	"net/http"
	"strings"

	"courier_track_go/db"
	"courier_track_go/middleware"
	"courier_track_go/models"
	"courier_track_go/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// GetEmailSettingsHandler returns the stored email settings, creating the
// single row with defaults on first read
func GetEmailSettingsHandler(c echo.Context) error {
	settings, err := loadOrCreateEmailSettings()
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to load email settings")
	}
	return c.JSON(http.StatusOK, settings)
}

type emailSettingsRequest struct {
	FromName    string `json:"from_name"`
	FromAddress string `json:"from_address"`
	TestMode    *bool  `json:"test_mode"`
	BaseURL     string `json:"base_url"`
}

// UpdateEmailSettingsHandler edits the runtime email configuration
func UpdateEmailSettingsHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	settings, err := loadOrCreateEmailSettings()
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to load email settings")
	}

	var req emailSettingsRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	if req.FromAddress != "" && !strings.Contains(req.FromAddress, "@") {
		return jsonError(c, http.StatusBadRequest, "Invalid from address")
	}

	updates := map[string]interface{}{
		"from_name":     strings.TrimSpace(req.FromName),
		"from_address":  strings.ToLower(strings.TrimSpace(req.FromAddress)),
		"base_url":      strings.TrimRight(strings.TrimSpace(req.BaseURL), "/"),
		"updated_by_id": user.ID,
	}
	if req.TestMode != nil {
		updates["test_mode"] = *req.TestMode
	}

	if err := db.DB.Model(settings).Updates(updates).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to save email settings")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionUpdate, "EmailSettings", settings.ID, "",
		"Email settings updated", nil, settings)

	return c.JSON(http.StatusOK, settings)
}

func loadOrCreateEmailSettings() (*models.EmailSettings, error) {
	var settings models.EmailSettings
	err := db.DB.First(&settings).Error
	if err == gorm.ErrRecordNotFound {
		settings = models.EmailSettings{TestMode: true}
		if err := db.DB.Create(&settings).Error; err != nil {
			return nil, err
		}
		return &settings, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// GetSamlSettingsHandler returns the stored SSO configuration (admin only,
// includes the certificate)
func GetSamlSettingsHandler(c echo.Context) error {
	settings, err := loadOrCreateSamlSettings()
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to load SAML settings")
	}
	return c.JSON(http.StatusOK, settings)
}

// GetPublicSamlSettingsHandler exposes only what the login page needs:
// whether SSO is enabled and where to redirect
func GetPublicSamlSettingsHandler(c echo.Context) error {
	settings, err := loadOrCreateSamlSettings()
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to load SAML settings")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"enabled": settings.Enabled,
		"sso_url": settings.SSOURL,
	})
}

type samlSettingsRequest struct {
	Enabled     *bool  `json:"enabled"`
	EntityID    string `json:"entity_id"`
	SSOURL      string `json:"sso_url"`
	Certificate string `json:"certificate"`
}

// UpdateSamlSettingsHandler edits the SSO configuration
func UpdateSamlSettingsHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	settings, err := loadOrCreateSamlSettings()
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to load SAML settings")
	}

	var req samlSettingsRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	if req.Enabled != nil && *req.Enabled {
		if strings.TrimSpace(req.EntityID) == "" || strings.TrimSpace(req.SSOURL) == "" {
			return jsonError(c, http.StatusBadRequest, "entity_id and sso_url are required to enable SSO")
		}
	}

	updates := map[string]interface{}{
		"entity_id":     strings.TrimSpace(req.EntityID),
		"sso_url":       strings.TrimSpace(req.SSOURL),
		"certificate":   strings.TrimSpace(req.Certificate),
		"updated_by_id": user.ID,
	}
	if req.Enabled != nil {
		updates["enabled"] = *req.Enabled
	}

	if err := db.DB.Model(settings).Updates(updates).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to save SAML settings")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionUpdate, "SamlSettings", settings.ID, "",
		"SAML settings updated", nil, nil)

	return c.JSON(http.StatusOK, settings)
}

func loadOrCreateSamlSettings() (*models.SamlSettings, error) {
	var settings models.SamlSettings
	err := db.DB.First(&settings).Error
	if err == gorm.ErrRecordNotFound {
		settings = models.SamlSettings{}
		if err := db.DB.Create(&settings).Error; err != nil {
			return nil, err
		}
		return &settings, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}
