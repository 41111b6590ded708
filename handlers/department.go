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

type departmentRequest struct {
	Name string `json:"name"`
}

// ListDepartmentsHandler returns all departments ordered by name
func ListDepartmentsHandler(c echo.Context) error {
	var departments []models.Department
	if err := db.DB.Order("name ASC").Find(&departments).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to load departments")
	}
	return c.JSON(http.StatusOK, departments)
}

// GetDepartmentHandler returns a department with its branches and templates
func GetDepartmentHandler(c echo.Context) error {
	var department models.Department
	if err := db.DB.
		Preload("Branches").
		Preload("Templates", "is_active = ?", true).
		First(&department, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Department not found")
	}
	return c.JSON(http.StatusOK, department)
}

// CreateDepartmentHandler adds a department
func CreateDepartmentHandler(c echo.Context) error {
	var req departmentRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return jsonError(c, http.StatusBadRequest, "Name is required")
	}

	var count int64
	db.DB.Model(&models.Department{}).Where("name = ? COLLATE NOCASE", name).Count(&count)
	if count > 0 {
		return jsonError(c, http.StatusConflict, "A department with this name already exists")
	}

	department := models.Department{Name: name}
	if err := db.DB.Create(&department).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to create department")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionCreate, "Department", department.ID, department.Name,
		"Department created", nil, department)

	return c.JSON(http.StatusCreated, department)
}

// UpdateDepartmentHandler renames a department
func UpdateDepartmentHandler(c echo.Context) error {
	var department models.Department
	if err := db.DB.First(&department, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Department not found")
	}

	var req departmentRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return jsonError(c, http.StatusBadRequest, "Name is required")
	}

	var count int64
	db.DB.Model(&models.Department{}).
		Where("name = ? COLLATE NOCASE AND id != ?", name, department.ID).
		Count(&count)
	if count > 0 {
		return jsonError(c, http.StatusConflict, "A department with this name already exists")
	}

	oldName := department.Name
	if err := db.DB.Model(&department).Update("name", name).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to update department")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionUpdate, "Department", department.ID, name,
		"Department renamed from "+oldName, nil, nil)

	return c.JSON(http.StatusOK, department)
}

// DeleteDepartmentHandler soft-deletes a department. Couriers, branches and
// templates referencing it are left untouched; they keep their department_id.
func DeleteDepartmentHandler(c echo.Context) error {
	var department models.Department
	if err := db.DB.First(&department, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Department not found")
	}

	if err := db.DB.Delete(&department).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to delete department")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionDelete, "Department", department.ID, department.Name,
		"Department deleted", department, nil)

	return c.NoContent(http.StatusNoContent)
}
