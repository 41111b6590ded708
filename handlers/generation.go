package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"courier_track_go/config"
	"courier_track_go/db"
	"courier_track_go/middleware"
	"courier_track_go/models"
	"courier_track_go/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type generateRequest struct {
	Values map[string]string `json:"values"`
}

// loadTemplateWithFields fetches a template and its field definitions in
// display order
func loadTemplateWithFields(id string) (*models.AuthorityLetterTemplate, error) {
	var template models.AuthorityLetterTemplate
	err := db.DB.
		Preload("Fields", func(q *gorm.DB) *gorm.DB { return q.Order("sort_order ASC") }).
		Preload("Fields.DropdownOptions").
		First(&template, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

// PreviewLetterHandler renders the template with the supplied values and
// returns the substituted HTML plus any warnings, without producing a file
func PreviewLetterHandler(c echo.Context) error {
	template, err := loadTemplateWithFields(c.Param("id"))
	if err != nil {
		return jsonError(c, http.StatusNotFound, "Template not found")
	}

	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	result, err := services.RenderAuthorityLetter(template.Content, template.Fields, req.Values)
	if err != nil {
		var verr services.ValidationErrors
		if errors.As(err, &verr) {
			return jsonValidationError(c, verr)
		}
		return jsonError(c, http.StatusInternalServerError, "Failed to render template")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"content":  result.Output,
		"warnings": result.Warnings,
	})
}

// GenerateLetterHandler produces the final document for one set of values:
// DOCX when the template carries a Word document, PDF otherwise
func GenerateLetterHandler(c echo.Context) error {
	cfg, _ := c.Get("config").(*config.Config)

	template, err := loadTemplateWithFields(c.Param("id"))
	if err != nil {
		return jsonError(c, http.StatusNotFound, "Template not found")
	}
	if !template.IsActive {
		return jsonError(c, http.StatusConflict, "Template is inactive")
	}

	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	var output []byte
	var render *services.RenderResult
	var contentType, ext string

	if template.HasWordDocument() {
		wordDoc, err := services.ReadUploadedFile(cfg.UploadDir, *template.WordFilePath)
		if err != nil {
			return jsonError(c, http.StatusInternalServerError, "Stored Word document is missing")
		}
		output, render, err = services.RenderDocx(wordDoc, template.Fields, req.Values)
		if err != nil {
			var verr services.ValidationErrors
			if errors.As(err, &verr) {
				return jsonValidationError(c, verr)
			}
			return jsonError(c, http.StatusInternalServerError, "Failed to generate document")
		}
		contentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
		ext = "docx"
	} else {
		render, err = services.RenderAuthorityLetter(template.Content, template.Fields, req.Values)
		if err != nil {
			var verr services.ValidationErrors
			if errors.As(err, &verr) {
				return jsonValidationError(c, verr)
			}
			return jsonError(c, http.StatusInternalServerError, "Failed to render template")
		}

		options := services.DefaultPDFOptions()
		options.PageOrientation = template.PageOrientation
		options.PageSize = template.PageSize
		output, err = services.GenerateLetterPDF(render.Output, options)
		if err != nil {
			return jsonError(c, http.StatusInternalServerError, "Failed to generate PDF")
		}
		contentType = "application/pdf"
		ext = "pdf"
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionGenerate, "AuthorityLetterTemplate", template.ID, template.Name,
		"Authority letter generated", nil, nil)

	for _, w := range render.Warnings {
		c.Response().Header().Add("X-Render-Warning", w)
	}

	filename := fmt.Sprintf("%s_%s.%s", template.Name, time.Now().Format("20060102_150405"), ext)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Blob(http.StatusOK, contentType, output)
}

// BulkGenerateHandler produces one document per uploaded row and streams a
// zip containing the documents and a manifest.csv
func BulkGenerateHandler(c echo.Context) error {
	cfg, _ := c.Get("config").(*config.Config)

	template, err := loadTemplateWithFields(c.Param("id"))
	if err != nil {
		return jsonError(c, http.StatusNotFound, "Template not found")
	}
	if !template.IsActive {
		return jsonError(c, http.StatusConflict, "Template is inactive")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "No file uploaded")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "Failed to open uploaded file")
	}
	defer file.Close()

	limit := 500
	if cfg != nil {
		limit = cfg.BulkGenerateRowLimit
	}

	rows, err := services.ParseBulkGenerateFile(fileHeader.Filename, file, limit)
	if err != nil {
		if tooMany, ok := err.(services.ErrTooManyRows); ok {
			return jsonError(c, http.StatusRequestEntityTooLarge, tooMany.Error())
		}
		return jsonError(c, http.StatusBadRequest, err.Error())
	}
	if len(rows) == 0 {
		return jsonError(c, http.StatusBadRequest, "File contains no data rows")
	}

	var wordDoc []byte
	if template.HasWordDocument() {
		wordDoc, err = services.ReadUploadedFile(cfg.UploadDir, *template.WordFilePath)
		if err != nil {
			return jsonError(c, http.StatusInternalServerError, "Stored Word document is missing")
		}
	}

	result, err := services.BulkGenerateDocuments(template, wordDoc, rows)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "Bulk generation failed")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionGenerate, "AuthorityLetterTemplate", template.ID, template.Name,
		fmt.Sprintf("Bulk generation: %d documents, %d failed rows", result.Generated, result.Failed), nil, nil)

	c.Response().Header().Set("X-Generated-Count", fmt.Sprintf("%d", result.Generated))
	c.Response().Header().Set("X-Failed-Count", fmt.Sprintf("%d", result.Failed))

	filename := fmt.Sprintf("%s_bulk_%s.zip", template.Name, time.Now().Format("20060102_150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Blob(http.StatusOK, "application/zip", result.Archive)
}

// SampleTemplateCSVHandler downloads a sample bulk-generation file whose
// header matches the template's field names
func SampleTemplateCSVHandler(c echo.Context) error {
	template, err := loadTemplateWithFields(c.Param("id"))
	if err != nil {
		return jsonError(c, http.StatusNotFound, "Template not found")
	}
	if len(template.Fields) == 0 {
		return jsonError(c, http.StatusConflict, "Template has no fields defined")
	}

	filename := fmt.Sprintf("%s_sample.csv", template.Name)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Blob(http.StatusOK, "text/csv", services.SampleTemplateCSV(template))
}

// DateFormatsHandler lists the date format names accepted on date fields
func DateFormatsHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"formats": services.SupportedDateFormats(),
	})
}
