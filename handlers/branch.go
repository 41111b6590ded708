package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"courier_track_go/config"
	"courier_track_go/db"
	"courier_track_go/middleware"
	"courier_track_go/models"
	"courier_track_go/services"

	"github.com/labstack/echo/v4"
)

type branchRequest struct {
	Name         string   `json:"name"`
	Code         string   `json:"code"`
	Address      string   `json:"address"`
	Pincode      string   `json:"pincode"`
	State        string   `json:"state"`
	Email        *string  `json:"email"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	DepartmentID *string  `json:"department_id"`
}

func (r *branchRequest) validate() services.ValidationErrors {
	var errs services.ValidationErrors
	for _, f := range []struct{ name, value string }{
		{"name", r.Name}, {"code", r.Code}, {"address", r.Address},
		{"pincode", r.Pincode}, {"state", r.State},
	} {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, services.FieldError{Field: f.name, Message: f.name + " is required"})
		}
	}
	if r.Email != nil && *r.Email != "" && !strings.Contains(*r.Email, "@") {
		errs = append(errs, services.FieldError{Field: "email", Message: "invalid email address", Value: *r.Email})
	}
	return errs
}

// ListBranchesHandler returns branches filtered by status, state and search
func ListBranchesHandler(c echo.Context) error {
	page, pageSize := paginationParams(c)

	query := db.DB.Model(&models.Branch{})

	if status := c.QueryParam("status"); status != "" {
		if !models.IsValidBranchStatus(status) {
			return jsonError(c, http.StatusBadRequest, "Unknown status: "+status)
		}
		query = query.Where("status = ?", status)
	}
	if state := c.QueryParam("state"); state != "" {
		query = query.Where("state = ?", state)
	}
	if search := c.QueryParam("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR code LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to count branches")
	}

	var branches []models.Branch
	if err := query.
		Order("code ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&branches).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to load branches")
	}

	return c.JSON(http.StatusOK, listResponse{Items: branches, Total: total, Page: page, PageSize: pageSize})
}

// GetBranchHandler returns a single branch
func GetBranchHandler(c echo.Context) error {
	var branch models.Branch
	if err := db.DB.First(&branch, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Branch not found")
	}
	return c.JSON(http.StatusOK, branch)
}

// CreateBranchHandler adds a single branch
func CreateBranchHandler(c echo.Context) error {
	var req branchRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if errs := req.validate(); len(errs) > 0 {
		return jsonValidationError(c, errs)
	}

	code := strings.TrimSpace(req.Code)
	var count int64
	db.DB.Unscoped().Model(&models.Branch{}).Where("code = ? COLLATE NOCASE", code).Count(&count)
	if count > 0 {
		return jsonError(c, http.StatusConflict, "A branch with this code already exists")
	}

	branch := models.Branch{
		Name:         strings.TrimSpace(req.Name),
		Code:         code,
		Address:      strings.TrimSpace(req.Address),
		Pincode:      strings.TrimSpace(req.Pincode),
		State:        strings.TrimSpace(req.State),
		Email:        req.Email,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Status:       models.BranchStatusActive,
		DepartmentID: req.DepartmentID,
	}

	if err := db.DB.Create(&branch).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to create branch")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionCreate, "Branch", branch.ID, branch.Code,
		"Branch created", nil, branch)

	return c.JSON(http.StatusCreated, branch)
}

// UpdateBranchHandler edits a branch. The code stays unique across all
// branches including soft-deleted ones.
func UpdateBranchHandler(c echo.Context) error {
	var branch models.Branch
	if err := db.DB.First(&branch, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Branch not found")
	}

	var req branchRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if errs := req.validate(); len(errs) > 0 {
		return jsonValidationError(c, errs)
	}

	code := strings.TrimSpace(req.Code)
	var count int64
	db.DB.Unscoped().Model(&models.Branch{}).
		Where("code = ? COLLATE NOCASE AND id != ?", code, branch.ID).
		Count(&count)
	if count > 0 {
		return jsonError(c, http.StatusConflict, "A branch with this code already exists")
	}

	old := branch
	updates := map[string]interface{}{
		"name":          strings.TrimSpace(req.Name),
		"code":          code,
		"address":       strings.TrimSpace(req.Address),
		"pincode":       strings.TrimSpace(req.Pincode),
		"state":         strings.TrimSpace(req.State),
		"email":         req.Email,
		"latitude":      req.Latitude,
		"longitude":     req.Longitude,
		"department_id": req.DepartmentID,
	}
	if err := db.DB.Model(&branch).Updates(updates).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to update branch")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionUpdate, "Branch", branch.ID, branch.Code,
		"Branch updated", old, branch)

	return c.JSON(http.StatusOK, branch)
}

type branchStatusRequest struct {
	Status string `json:"status"`
}

// UpdateBranchStatusHandler toggles a branch between active and closed
func UpdateBranchStatusHandler(c echo.Context) error {
	var branch models.Branch
	if err := db.DB.First(&branch, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Branch not found")
	}

	var req branchStatusRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	status := req.Status
	if !models.IsValidBranchStatus(status) {
		return jsonError(c, http.StatusBadRequest, "Unknown status: "+req.Status)
	}

	oldStatus := branch.Status
	if err := db.DB.Model(&branch).Update("status", status).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to update status")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionStatusChange, "Branch", branch.ID, branch.Code,
		fmt.Sprintf("Branch status changed from %s to %s", oldStatus, status), nil, nil)

	return c.JSON(http.StatusOK, branch)
}

// DeleteBranchHandler soft-deletes one branch
func DeleteBranchHandler(c echo.Context) error {
	var branch models.Branch
	if err := db.DB.First(&branch, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Branch not found")
	}

	if err := db.DB.Delete(&branch).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to delete branch")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionDelete, "Branch", branch.ID, branch.Code,
		"Branch deleted", branch, nil)

	return c.NoContent(http.StatusNoContent)
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// BulkDeleteBranchesHandler soft-deletes a set of branches in one call
func BulkDeleteBranchesHandler(c echo.Context) error {
	var req bulkDeleteRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if len(req.IDs) == 0 {
		return jsonError(c, http.StatusBadRequest, "No branch ids provided")
	}

	result := db.DB.Where("id IN ?", req.IDs).Delete(&models.Branch{})
	if result.Error != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to delete branches")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionDelete, "Branch", "bulk", "",
		fmt.Sprintf("Bulk delete: %d branches removed", result.RowsAffected), nil, nil)

	return c.JSON(http.StatusOK, map[string]int64{"deleted": result.RowsAffected})
}

// ValidateBranchUploadHandler is phase one of the bulk upload: parse and
// validate the file, persist a report, insert nothing
func ValidateBranchUploadHandler(c echo.Context) error {
	cfg, _ := c.Get("config").(*config.Config)
	user := middleware.GetCurrentUser(c)

	rows, err := parseBranchUpload(c, cfg)
	if err != nil {
		if tooMany, ok := err.(services.ErrTooManyRows); ok {
			return jsonError(c, http.StatusRequestEntityTooLarge, tooMany.Error())
		}
		return jsonError(c, http.StatusBadRequest, err.Error())
	}

	result := services.ValidateBranchRows(db.DB, rows)
	if _, err := services.CreateBulkUploadReport(db.DB, user.ID, result); err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to save validation report")
	}

	return c.JSON(http.StatusOK, result)
}

type commitUploadRequest struct {
	ReportID string `json:"report_id"`
}

// CommitBranchUploadHandler is phase two: insert the valid rows of a
// previously validated report
func CommitBranchUploadHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var req commitUploadRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.ReportID == "" {
		return jsonError(c, http.StatusBadRequest, "report_id is required")
	}

	actor := middleware.AuditContextFromRequest(c)
	commit, err := services.CommitBulkUploadReport(db.DB, req.ReportID, user.ID, actor)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, commit)
}

// BulkUploadBranchesHandler is the single-shot path: validate and insert in
// one request. Duplicates block the batch unless approve_duplicates is set,
// and approved duplicates are skipped, never overwritten.
func BulkUploadBranchesHandler(c echo.Context) error {
	cfg, _ := c.Get("config").(*config.Config)

	rows, err := parseBranchUpload(c, cfg)
	if err != nil {
		if tooMany, ok := err.(services.ErrTooManyRows); ok {
			return jsonError(c, http.StatusRequestEntityTooLarge, tooMany.Error())
		}
		return jsonError(c, http.StatusBadRequest, err.Error())
	}

	approve, _ := strconv.ParseBool(c.FormValue("approve_duplicates"))

	actor := middleware.AuditContextFromRequest(c)
	result, commit, err := services.BulkUploadBranches(db.DB, rows, approve, actor)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "Bulk upload failed")
	}

	if commit == nil {
		// Nothing inserted: report back for an explicit approval round
		return c.JSON(http.StatusConflict, result)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"validation": result,
		"commit":     commit,
	})
}

func parseBranchUpload(c echo.Context, cfg *config.Config) ([]services.BranchRow, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("no file uploaded")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file")
	}
	defer file.Close()

	limit := 5000
	if cfg != nil {
		limit = cfg.BulkBranchRowLimit
	}

	return services.ParseBranchFile(fileHeader.Filename, file, limit)
}

// ExportBranchesHandler downloads the branch list as CSV or XLSX
func ExportBranchesHandler(c echo.Context) error {
	status := c.QueryParam("status")
	if status != "" && !models.IsValidBranchStatus(status) {
		return jsonError(c, http.StatusBadRequest, "Unknown status: "+status)
	}

	format := c.QueryParam("format")
	var data []byte
	var err error
	var contentType, ext string

	switch format {
	case "xlsx":
		data, err = services.ExportBranchesXLSX(db.DB, status)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		ext = "xlsx"
	case "", "csv":
		data, err = services.ExportBranchesCSV(db.DB, status)
		contentType = "text/csv"
		ext = "csv"
	default:
		return jsonError(c, http.StatusBadRequest, "Unknown format: "+format)
	}
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to export branches")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionDownload, "Branch", "export", "",
		"Branch export downloaded", nil, nil)

	filename := fmt.Sprintf("branches_%s.%s", time.Now().Format("20060102_150405"), ext)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Blob(http.StatusOK, contentType, data)
}

// SampleBranchCSVHandler downloads the sample file documenting the bulk
// upload header contract
func SampleBranchCSVHandler(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="branch_upload_sample.csv"`)
	return c.Blob(http.StatusOK, "text/csv", services.SampleBranchCSV())
}
