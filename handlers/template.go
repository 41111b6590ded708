package handlers

import (
	"io"
	"net/http"
	"strings"

	"courier_track_go/config"
	"courier_track_go/db"
	"courier_track_go/middleware"
	"courier_track_go/models"
	"courier_track_go/services"

	"github.com/labstack/echo/v4"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

// templateSanitizer strips scripts and event handlers from template HTML
// while keeping the formatting tags the editor produces
var templateSanitizer = bluemonday.UGCPolicy()

type templateRequest struct {
	DepartmentID    string `json:"department_id"`
	Name            string `json:"name"`
	Content         string `json:"content"`
	IsDefault       *bool  `json:"is_default"`
	IsActive        *bool  `json:"is_active"`
	PageOrientation string `json:"page_orientation"`
	PageSize        string `json:"page_size"`
}

func (r *templateRequest) validate() services.ValidationErrors {
	var errs services.ValidationErrors
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, services.FieldError{Field: "name", Message: "name is required"})
	}
	if strings.TrimSpace(r.DepartmentID) == "" {
		errs = append(errs, services.FieldError{Field: "department_id", Message: "department is required"})
	}
	if strings.TrimSpace(r.Content) == "" {
		errs = append(errs, services.FieldError{Field: "content", Message: "content is required"})
	}
	if r.PageOrientation != "" && r.PageOrientation != "portrait" && r.PageOrientation != "landscape" {
		errs = append(errs, services.FieldError{Field: "page_orientation", Message: "must be portrait or landscape", Value: r.PageOrientation})
	}
	switch r.PageSize {
	case "", "A4", "letter", "legal":
	default:
		errs = append(errs, services.FieldError{Field: "page_size", Message: "must be A4, letter or legal", Value: r.PageSize})
	}
	return errs
}

// ListTemplatesHandler returns templates, optionally scoped to a department
func ListTemplatesHandler(c echo.Context) error {
	query := db.DB.Model(&models.AuthorityLetterTemplate{}).
		Preload("Department").
		Order("name ASC")

	if departmentID := c.QueryParam("department_id"); departmentID != "" {
		query = query.Where("department_id = ?", departmentID)
	}
	if c.QueryParam("active") == "true" {
		query = query.Where("is_active = ?", true)
	}

	var templates []models.AuthorityLetterTemplate
	if err := query.Find(&templates).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to load templates")
	}
	return c.JSON(http.StatusOK, templates)
}

// GetTemplateHandler returns a template with its field definitions
func GetTemplateHandler(c echo.Context) error {
	var template models.AuthorityLetterTemplate
	if err := db.DB.
		Preload("Department").
		Preload("Fields", func(q *gorm.DB) *gorm.DB { return q.Order("sort_order ASC") }).
		Preload("Fields.DropdownOptions").
		First(&template, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Template not found")
	}
	return c.JSON(http.StatusOK, template)
}

// CreateTemplateHandler adds an authority letter template. The HTML content
// is sanitized on the way in; placeholders survive sanitization since they
// are plain text.
func CreateTemplateHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var req templateRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if errs := req.validate(); len(errs) > 0 {
		return jsonValidationError(c, errs)
	}

	var department models.Department
	if err := db.DB.First(&department, "id = ?", req.DepartmentID).Error; err != nil {
		return jsonError(c, http.StatusBadRequest, "Department not found")
	}

	template := models.AuthorityLetterTemplate{
		DepartmentID:    req.DepartmentID,
		Name:            strings.TrimSpace(req.Name),
		Content:         templateSanitizer.Sanitize(req.Content),
		CreatedByID:     user.ID,
		IsActive:        true,
		PageOrientation: "portrait",
		PageSize:        "A4",
	}
	if req.IsDefault != nil {
		template.IsDefault = *req.IsDefault
	}
	if req.IsActive != nil {
		template.IsActive = *req.IsActive
	}
	if req.PageOrientation != "" {
		template.PageOrientation = req.PageOrientation
	}
	if req.PageSize != "" {
		template.PageSize = req.PageSize
	}

	if template.IsDefault {
		// Only one default per department
		db.DB.Model(&models.AuthorityLetterTemplate{}).
			Where("department_id = ?", req.DepartmentID).
			Update("is_default", false)
	}

	if err := db.DB.Create(&template).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to create template")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionCreate, "AuthorityLetterTemplate", template.ID, template.Name,
		"Template created", nil, template)

	return c.JSON(http.StatusCreated, template)
}

// UpdateTemplateHandler edits a template
func UpdateTemplateHandler(c echo.Context) error {
	var template models.AuthorityLetterTemplate
	if err := db.DB.First(&template, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Template not found")
	}

	var req templateRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if errs := req.validate(); len(errs) > 0 {
		return jsonValidationError(c, errs)
	}

	old := template
	updates := map[string]interface{}{
		"department_id": req.DepartmentID,
		"name":          strings.TrimSpace(req.Name),
		"content":       templateSanitizer.Sanitize(req.Content),
	}
	if req.IsDefault != nil {
		updates["is_default"] = *req.IsDefault
		if *req.IsDefault {
			db.DB.Model(&models.AuthorityLetterTemplate{}).
				Where("department_id = ? AND id != ?", req.DepartmentID, template.ID).
				Update("is_default", false)
		}
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.PageOrientation != "" {
		updates["page_orientation"] = req.PageOrientation
	}
	if req.PageSize != "" {
		updates["page_size"] = req.PageSize
	}

	if err := db.DB.Model(&template).Updates(updates).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to update template")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionUpdate, "AuthorityLetterTemplate", template.ID, template.Name,
		"Template updated", old, template)

	return c.JSON(http.StatusOK, template)
}

// DeleteTemplateHandler soft-deletes a template and its stored Word document
func DeleteTemplateHandler(c echo.Context) error {
	cfg, _ := c.Get("config").(*config.Config)

	var template models.AuthorityLetterTemplate
	if err := db.DB.First(&template, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Template not found")
	}

	if err := db.DB.Delete(&template).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to delete template")
	}

	if template.WordFilePath != nil {
		_ = services.DeleteUploadedFile(cfg.UploadDir, *template.WordFilePath)
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionDelete, "AuthorityLetterTemplate", template.ID, template.Name,
		"Template deleted", template, nil)

	return c.NoContent(http.StatusNoContent)
}

// TemplatePlaceholdersHandler lists the distinct placeholders appearing in
// the template content, in order of first appearance
func TemplatePlaceholdersHandler(c echo.Context) error {
	var template models.AuthorityLetterTemplate
	if err := db.DB.First(&template, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Template not found")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"placeholders": services.CompilePlaceholders(template.Content),
	})
}

// UploadWordTemplateHandler attaches a Word document to a template, switching
// generation to the DOCX path
func UploadWordTemplateHandler(c echo.Context) error {
	cfg, _ := c.Get("config").(*config.Config)

	var template models.AuthorityLetterTemplate
	if err := db.DB.First(&template, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Template not found")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "No file uploaded")
	}
	if err := services.ValidateWordUpload(fileHeader); err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}

	result, err := services.SaveUploadedFile(fileHeader, cfg.UploadDir, "templates/"+template.ID+"/word")
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to save file")
	}

	if template.WordFilePath != nil {
		_ = services.DeleteUploadedFile(cfg.UploadDir, *template.WordFilePath)
	}

	updates := map[string]interface{}{
		"word_file_path":     result.FilePath,
		"word_original_name": result.FileOriginalName,
	}
	if err := db.DB.Model(&template).Updates(updates).Error; err != nil {
		_ = services.DeleteUploadedFile(cfg.UploadDir, result.FilePath)
		return jsonError(c, http.StatusInternalServerError, "Failed to record file")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionUpdate, "AuthorityLetterTemplate", template.ID, template.Name,
		"Word document attached: "+result.FileOriginalName, nil, nil)

	return c.JSON(http.StatusOK, template)
}

// RemoveWordTemplateHandler detaches the Word document, reverting generation
// to the HTML/PDF path
func RemoveWordTemplateHandler(c echo.Context) error {
	cfg, _ := c.Get("config").(*config.Config)

	var template models.AuthorityLetterTemplate
	if err := db.DB.First(&template, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Template not found")
	}
	if template.WordFilePath == nil {
		return jsonError(c, http.StatusNotFound, "Template has no Word document attached")
	}

	path := *template.WordFilePath
	updates := map[string]interface{}{
		"word_file_path":     nil,
		"word_original_name": nil,
	}
	if err := db.DB.Model(&template).Updates(updates).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to update template")
	}
	_ = services.DeleteUploadedFile(cfg.UploadDir, path)

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionUpdate, "AuthorityLetterTemplate", template.ID, template.Name,
		"Word document removed", nil, nil)

	return c.JSON(http.StatusOK, template)
}

// ExtractWordContentHandler converts an uploaded Word document's paragraphs
// to HTML so the client can seed the template editor from it. Nothing is
// stored; the document is parsed in memory.
func ExtractWordContentHandler(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "No file uploaded")
	}
	if err := services.ValidateWordUpload(fileHeader); err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".docx") {
		return jsonError(c, http.StatusBadRequest, "Content extraction supports .docx files only")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "Failed to open uploaded file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "Failed to read uploaded file")
	}

	content, err := services.ExtractWordContent(data)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "Failed to parse Word document: "+err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"content":      content,
		"placeholders": services.CompilePlaceholders(content),
	})
}
