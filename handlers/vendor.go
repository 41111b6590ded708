package handlers

import (
	"net/http"
	"strings"

	"courier_track_go/db"
	"courier_track_go/middleware"
	"courier_track_go/models"
	"courier_track_go/services"

	"github.com/labstack/echo/v4"
)

type vendorRequest struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	TrackingURL   string `json:"tracking_url"`
	IsActive      *bool  `json:"is_active"`
}

func strPtr(s string) *string {
	return &s
}

// ListVendorsHandler returns vendors, optionally only active ones
func ListVendorsHandler(c echo.Context) error {
	query := db.DB.Model(&models.Vendor{}).Order("name ASC")
	if c.QueryParam("active") == "true" {
		query = query.Where("is_active = ?", true)
	}

	var vendors []models.Vendor
	if err := query.Find(&vendors).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to load vendors")
	}
	return c.JSON(http.StatusOK, vendors)
}

// GetVendorHandler returns a single vendor
func GetVendorHandler(c echo.Context) error {
	var vendor models.Vendor
	if err := db.DB.First(&vendor, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Vendor not found")
	}
	return c.JSON(http.StatusOK, vendor)
}

// CreateVendorHandler adds a courier vendor
func CreateVendorHandler(c echo.Context) error {
	var req vendorRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return jsonError(c, http.StatusBadRequest, "Name is required")
	}

	var count int64
	db.DB.Model(&models.Vendor{}).Where("name = ? COLLATE NOCASE", name).Count(&count)
	if count > 0 {
		return jsonError(c, http.StatusConflict, "A vendor with this name already exists")
	}

	vendor := models.Vendor{
		Name:          name,
		ContactPerson: strPtr(strings.TrimSpace(req.ContactPerson)),
		Phone:         strPtr(strings.TrimSpace(req.Phone)),
		Email:         strPtr(strings.ToLower(strings.TrimSpace(req.Email))),
		TrackingURL:   strPtr(strings.TrimSpace(req.TrackingURL)),
		IsActive:      true,
	}
	if req.IsActive != nil {
		vendor.IsActive = *req.IsActive
	}

	if err := db.DB.Create(&vendor).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to create vendor")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionCreate, "Vendor", vendor.ID, vendor.Name,
		"Vendor created", nil, vendor)

	return c.JSON(http.StatusCreated, vendor)
}

// UpdateVendorHandler edits a vendor
func UpdateVendorHandler(c echo.Context) error {
	var vendor models.Vendor
	if err := db.DB.First(&vendor, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Vendor not found")
	}

	var req vendorRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return jsonError(c, http.StatusBadRequest, "Name is required")
	}

	var count int64
	db.DB.Model(&models.Vendor{}).
		Where("name = ? COLLATE NOCASE AND id != ?", name, vendor.ID).
		Count(&count)
	if count > 0 {
		return jsonError(c, http.StatusConflict, "A vendor with this name already exists")
	}

	old := vendor
	updates := map[string]interface{}{
		"name":           name,
		"contact_person": strings.TrimSpace(req.ContactPerson),
		"phone":          strings.TrimSpace(req.Phone),
		"email":          strings.ToLower(strings.TrimSpace(req.Email)),
		"tracking_url":   strings.TrimSpace(req.TrackingURL),
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if err := db.DB.Model(&vendor).Updates(updates).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to update vendor")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionUpdate, "Vendor", vendor.ID, vendor.Name,
		"Vendor updated", old, vendor)

	return c.JSON(http.StatusOK, vendor)
}

// DeleteVendorHandler removes a vendor that no courier references
func DeleteVendorHandler(c echo.Context) error {
	var vendor models.Vendor
	if err := db.DB.First(&vendor, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Vendor not found")
	}

	var count int64
	db.DB.Model(&models.Courier{}).Where("vendor_id = ?", vendor.ID).Count(&count)
	if count > 0 {
		return jsonError(c, http.StatusConflict, "Vendor is still referenced by couriers, deactivate it instead")
	}

	if err := db.DB.Delete(&vendor).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to delete vendor")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionDelete, "Vendor", vendor.ID, vendor.Name,
		"Vendor deleted", vendor, nil)

	return c.NoContent(http.StatusNoContent)
}
