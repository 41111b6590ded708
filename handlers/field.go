package handlers

import (
	"net/http"
	"regexp"
	"strings"

	"courier_track_go/db"
	"courier_track_go/middleware"
	"courier_track_go/models"
	"courier_track_go/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// fieldNamePattern restricts placeholder names to what the template engine
// will actually match inside ##...##
var fieldNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

type dropdownOptionRequest struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type fieldRequest struct {
	Name            string                  `json:"name"`
	Label           string                  `json:"label"`
	Type            string                  `json:"type"`
	Format          string                  `json:"format"`
	Required        *bool                   `json:"required"`
	DropdownOptions []dropdownOptionRequest `json:"dropdown_options"`
}

func (r *fieldRequest) validate() services.ValidationErrors {
	var errs services.ValidationErrors

	name := strings.TrimSpace(r.Name)
	if name == "" {
		errs = append(errs, services.FieldError{Field: "name", Message: "name is required"})
	} else if !fieldNamePattern.MatchString(name) {
		errs = append(errs, services.FieldError{Field: "name", Message: "name may only contain letters, digits and underscores", Value: name})
	}
	if strings.TrimSpace(r.Label) == "" {
		errs = append(errs, services.FieldError{Field: "label", Message: "label is required"})
	}
	if !models.IsValidFieldType(r.Type) {
		errs = append(errs, services.FieldError{Field: "type", Message: "unknown field type", Value: r.Type})
	}

	switch r.Type {
	case models.FieldTypeDate:
		if r.Format != "" {
			if _, ok := services.DateLayoutFor(r.Format); !ok {
				errs = append(errs, services.FieldError{Field: "format", Message: "unsupported date format", Value: r.Format})
			}
		}
	case models.FieldTypeNumber:
		switch r.Format {
		case "", models.NumberFormatPlain, models.NumberFormatWithCommas:
		default:
			errs = append(errs, services.FieldError{Field: "format", Message: "unsupported number format", Value: r.Format})
		}
	case models.FieldTypeText, models.FieldTypeTextarea, models.FieldTypeDropdown:
		switch r.Format {
		case "", models.TextFormatNone, models.TextFormatSentence, models.TextFormatLowercase,
			models.TextFormatUppercase, models.TextFormatCapitalizeWords, models.TextFormatToggle:
		default:
			errs = append(errs, services.FieldError{Field: "format", Message: "unsupported text transform", Value: r.Format})
		}
	}

	if r.Type == models.FieldTypeDropdown && len(r.DropdownOptions) == 0 {
		errs = append(errs, services.FieldError{Field: "dropdown_options", Message: "dropdown fields need at least one option"})
	}

	return errs
}

// ListTemplateFieldsHandler returns a template's fields in display order
func ListTemplateFieldsHandler(c echo.Context) error {
	templateID := c.Param("id")

	var template models.AuthorityLetterTemplate
	if err := db.DB.First(&template, "id = ?", templateID).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Template not found")
	}

	var fields []models.AuthorityLetterField
	if err := db.DB.
		Preload("DropdownOptions", func(q *gorm.DB) *gorm.DB { return q.Order("sort_order ASC") }).
		Where("template_id = ?", templateID).
		Order("sort_order ASC").
		Find(&fields).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to load fields")
	}

	return c.JSON(http.StatusOK, fields)
}

// CreateTemplateFieldHandler adds a field definition to a template
func CreateTemplateFieldHandler(c echo.Context) error {
	templateID := c.Param("id")

	var template models.AuthorityLetterTemplate
	if err := db.DB.First(&template, "id = ?", templateID).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Template not found")
	}

	var req fieldRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if errs := req.validate(); len(errs) > 0 {
		return jsonValidationError(c, errs)
	}

	name := strings.TrimSpace(req.Name)
	var count int64
	db.DB.Model(&models.AuthorityLetterField{}).
		Where("template_id = ? AND name = ?", templateID, name).
		Count(&count)
	if count > 0 {
		return jsonError(c, http.StatusConflict, "A field with this name already exists on the template")
	}

	var maxOrder int
	db.DB.Model(&models.AuthorityLetterField{}).
		Where("template_id = ?", templateID).
		Select("COALESCE(MAX(sort_order), -1)").
		Scan(&maxOrder)

	field := models.AuthorityLetterField{
		TemplateID: templateID,
		Name:       name,
		Label:      strings.TrimSpace(req.Label),
		Type:       req.Type,
		Format:     req.Format,
		SortOrder:  maxOrder + 1,
	}
	if field.Format == "" {
		field.Format = models.TextFormatNone
	}
	if req.Required != nil {
		field.Required = *req.Required
	}
	for i, opt := range req.DropdownOptions {
		field.DropdownOptions = append(field.DropdownOptions, models.FieldDropdownOption{
			Value:     strings.TrimSpace(opt.Value),
			Label:     strings.TrimSpace(opt.Label),
			SortOrder: i,
		})
	}

	if err := db.DB.Create(&field).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to create field")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionCreate, "AuthorityLetterField", field.ID, field.Name,
		"Field added to template "+template.Name, nil, field)

	return c.JSON(http.StatusCreated, field)
}

// UpdateTemplateFieldHandler edits a field definition
func UpdateTemplateFieldHandler(c echo.Context) error {
	var field models.AuthorityLetterField
	if err := db.DB.First(&field, "id = ? AND template_id = ?", c.Param("fieldId"), c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Field not found")
	}

	var req fieldRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if errs := req.validate(); len(errs) > 0 {
		return jsonValidationError(c, errs)
	}

	name := strings.TrimSpace(req.Name)
	var count int64
	db.DB.Model(&models.AuthorityLetterField{}).
		Where("template_id = ? AND name = ? AND id != ?", field.TemplateID, name, field.ID).
		Count(&count)
	if count > 0 {
		return jsonError(c, http.StatusConflict, "A field with this name already exists on the template")
	}

	old := field
	updates := map[string]interface{}{
		"name":   name,
		"label":  strings.TrimSpace(req.Label),
		"type":   req.Type,
		"format": req.Format,
	}
	if req.Format == "" {
		updates["format"] = models.TextFormatNone
	}
	if req.Required != nil {
		updates["required"] = *req.Required
	}

	if err := db.DB.Model(&field).Updates(updates).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to update field")
	}

	// Dropdown options are replaced wholesale when provided
	if req.DropdownOptions != nil {
		if err := db.DB.Where("field_id = ?", field.ID).Delete(&models.FieldDropdownOption{}).Error; err != nil {
			return jsonError(c, http.StatusInternalServerError, "Failed to update dropdown options")
		}
		for i, opt := range req.DropdownOptions {
			option := models.FieldDropdownOption{
				FieldID:   field.ID,
				Value:     strings.TrimSpace(opt.Value),
				Label:     strings.TrimSpace(opt.Label),
				SortOrder: i,
			}
			if err := db.DB.Create(&option).Error; err != nil {
				return jsonError(c, http.StatusInternalServerError, "Failed to update dropdown options")
			}
		}
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionUpdate, "AuthorityLetterField", field.ID, field.Name,
		"Field updated", old, field)

	return c.JSON(http.StatusOK, field)
}

// DeleteTemplateFieldHandler removes a field definition and its options
func DeleteTemplateFieldHandler(c echo.Context) error {
	var field models.AuthorityLetterField
	if err := db.DB.First(&field, "id = ? AND template_id = ?", c.Param("fieldId"), c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Field not found")
	}

	db.DB.Where("field_id = ?", field.ID).Delete(&models.FieldDropdownOption{})
	if err := db.DB.Delete(&field).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to delete field")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionDelete, "AuthorityLetterField", field.ID, field.Name,
		"Field deleted", field, nil)

	return c.NoContent(http.StatusNoContent)
}

type reorderFieldsRequest struct {
	FieldIDs []string `json:"field_ids"`
}

// ReorderTemplateFieldsHandler sets the display order of a template's fields
// to the given id sequence
func ReorderTemplateFieldsHandler(c echo.Context) error {
	templateID := c.Param("id")

	var req reorderFieldsRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if len(req.FieldIDs) == 0 {
		return jsonError(c, http.StatusBadRequest, "field_ids is required")
	}

	var existingIDs []string
	if err := db.DB.Model(&models.AuthorityLetterField{}).
		Where("template_id = ?", templateID).
		Pluck("id", &existingIDs).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to reorder fields")
	}

	// The request must be a permutation of the template's field ids: no
	// omissions, no repeats, nothing from another template.
	remaining := make(map[string]bool, len(existingIDs))
	for _, id := range existingIDs {
		remaining[id] = true
	}
	for _, id := range req.FieldIDs {
		if !remaining[id] {
			return jsonError(c, http.StatusBadRequest, "field_ids must name every field of the template exactly once")
		}
		delete(remaining, id)
	}
	if len(remaining) > 0 {
		return jsonError(c, http.StatusBadRequest, "field_ids must name every field of the template exactly once")
	}

	tx := db.DB.Begin()
	for i, id := range req.FieldIDs {
		if err := tx.Model(&models.AuthorityLetterField{}).
			Where("id = ? AND template_id = ?", id, templateID).
			Update("sort_order", i).Error; err != nil {
			tx.Rollback()
			return jsonError(c, http.StatusInternalServerError, "Failed to reorder fields")
		}
	}
	if err := tx.Commit().Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to reorder fields")
	}

	return c.NoContent(http.StatusNoContent)
}
