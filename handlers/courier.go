package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"courier_track_go/config"
	"courier_track_go/db"
	"courier_track_go/middleware"
	"courier_track_go/models"
	"courier_track_go/services"

	"github.com/labstack/echo/v4"
)

type courierRequest struct {
	DepartmentID   string  `json:"department_id"`
	VendorID       *string `json:"vendor_id"`
	ToBranchID     *string `json:"to_branch_id"`
	PODNumber      string  `json:"pod_number"`
	CourierDate    string  `json:"courier_date"` // YYYY-MM-DD
	RecipientName  string  `json:"recipient_name"`
	RecipientPhone string  `json:"recipient_phone"`
	Address        string  `json:"address"`
	Remarks        string  `json:"remarks"`
	Details        string  `json:"details"`
}

func (r *courierRequest) validate() services.ValidationErrors {
	var errs services.ValidationErrors
	if strings.TrimSpace(r.PODNumber) == "" {
		errs = append(errs, services.FieldError{Field: "pod_number", Message: "POD number is required"})
	}
	if strings.TrimSpace(r.DepartmentID) == "" {
		errs = append(errs, services.FieldError{Field: "department_id", Message: "department is required"})
	}
	if r.CourierDate == "" {
		errs = append(errs, services.FieldError{Field: "courier_date", Message: "courier date is required"})
	} else if _, err := services.ParseDate(r.CourierDate); err != nil {
		errs = append(errs, services.FieldError{Field: "courier_date", Message: "invalid date, expected YYYY-MM-DD", Value: r.CourierDate})
	}
	if r.ToBranchID == nil && strings.TrimSpace(r.RecipientName) == "" {
		errs = append(errs, services.FieldError{Field: "recipient_name", Message: "recipient name is required when no branch is selected"})
	}
	return errs
}

// ListCouriersHandler returns couriers filtered by status, department, vendor,
// branch, POD search and date range, newest first
func ListCouriersHandler(c echo.Context) error {
	page, pageSize := paginationParams(c)

	query := db.DB.Model(&models.Courier{}).
		Preload("Department").
		Preload("Vendor").
		Preload("ToBranch").
		Preload("CreatedBy")

	if status := c.QueryParam("status"); status != "" {
		if !models.IsValidCourierStatus(models.CourierStatus(status)) {
			return jsonError(c, http.StatusBadRequest, "Unknown status: "+status)
		}
		query = query.Where("status = ?", status)
	}
	if departmentID := c.QueryParam("department_id"); departmentID != "" {
		query = query.Where("department_id = ?", departmentID)
	}
	if vendorID := c.QueryParam("vendor_id"); vendorID != "" {
		query = query.Where("vendor_id = ?", vendorID)
	}
	if branchID := c.QueryParam("to_branch_id"); branchID != "" {
		query = query.Where("to_branch_id = ?", branchID)
	}
	if search := c.QueryParam("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("pod_number LIKE ? OR recipient_name LIKE ?", like, like)
	}

	from, to, err := dateRangeParams(c)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}
	if !from.IsZero() {
		query = query.Where("courier_date >= ?", services.DateOnly(from))
	}
	if !to.IsZero() {
		query = query.Where("courier_date < ?", services.DateOnly(to).AddDate(0, 0, 1))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to count couriers")
	}

	var couriers []models.Courier
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&couriers).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to load couriers")
	}

	return c.JSON(http.StatusOK, listResponse{Items: couriers, Total: total, Page: page, PageSize: pageSize})
}

// GetCourierHandler returns a single courier by id
func GetCourierHandler(c echo.Context) error {
	var courier models.Courier
	if err := db.DB.
		Preload("Department").
		Preload("Vendor").
		Preload("ToBranch").
		Preload("CreatedBy").
		First(&courier, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Courier not found")
	}
	return c.JSON(http.StatusOK, courier)
}

// CreateCourierHandler records a new outbound courier
func CreateCourierHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var req courierRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if errs := req.validate(); len(errs) > 0 {
		return jsonValidationError(c, errs)
	}

	courierDate, _ := services.ParseDate(req.CourierDate)

	var department models.Department
	if err := db.DB.First(&department, "id = ?", req.DepartmentID).Error; err != nil {
		return jsonError(c, http.StatusBadRequest, "Department not found")
	}
	if req.ToBranchID != nil {
		var branch models.Branch
		if err := db.DB.First(&branch, "id = ?", *req.ToBranchID).Error; err != nil {
			return jsonError(c, http.StatusBadRequest, "Branch not found")
		}
	}
	if req.VendorID != nil {
		var vendor models.Vendor
		if err := db.DB.First(&vendor, "id = ?", *req.VendorID).Error; err != nil {
			return jsonError(c, http.StatusBadRequest, "Vendor not found")
		}
	}

	courier := models.Courier{
		DepartmentID:   req.DepartmentID,
		CreatedByID:    user.ID,
		VendorID:       req.VendorID,
		ToBranchID:     req.ToBranchID,
		PODNumber:      strings.TrimSpace(req.PODNumber),
		CourierDate:    services.DateOnly(courierDate),
		RecipientName:  strings.TrimSpace(req.RecipientName),
		RecipientPhone: strings.TrimSpace(req.RecipientPhone),
		Address:        req.Address,
		Remarks:        req.Remarks,
		Details:        req.Details,
		Status:         models.CourierStatusOnTheWay,
	}

	if err := db.DB.Create(&courier).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to create courier")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionCreate, "Courier", courier.ID, courier.PODNumber,
		"Courier created", nil, courier)

	return c.JSON(http.StatusCreated, courier)
}

// UpdateCourierHandler edits courier details. Status changes go through the
// dedicated status endpoint.
func UpdateCourierHandler(c echo.Context) error {
	var courier models.Courier
	if err := db.DB.First(&courier, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Courier not found")
	}

	if courier.Status == models.CourierStatusDeleted {
		return jsonError(c, http.StatusConflict, "Deleted couriers cannot be edited, restore first")
	}

	var req courierRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if errs := req.validate(); len(errs) > 0 {
		return jsonValidationError(c, errs)
	}

	courierDate, _ := services.ParseDate(req.CourierDate)
	old := courier

	updates := map[string]interface{}{
		"department_id":   req.DepartmentID,
		"vendor_id":       req.VendorID,
		"to_branch_id":    req.ToBranchID,
		"pod_number":      strings.TrimSpace(req.PODNumber),
		"courier_date":    services.DateOnly(courierDate),
		"recipient_name":  strings.TrimSpace(req.RecipientName),
		"recipient_phone": strings.TrimSpace(req.RecipientPhone),
		"address":         req.Address,
		"remarks":         req.Remarks,
		"details":         req.Details,
	}
	if err := db.DB.Model(&courier).Updates(updates).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to update courier")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionUpdate, "Courier", courier.ID, courier.PODNumber,
		"Courier updated", old, courier)

	return c.JSON(http.StatusOK, courier)
}

type courierStatusRequest struct {
	Status string `json:"status"`
}

// UpdateCourierStatusHandler moves a courier along its lifecycle. Disallowed
// transitions return 409 with the attempted edge.
func UpdateCourierStatusHandler(c echo.Context) error {
	var courier models.Courier
	if err := db.DB.First(&courier, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Courier not found")
	}

	var req courierStatusRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	target := models.CourierStatus(req.Status)
	if !models.IsValidCourierStatus(target) {
		return jsonError(c, http.StatusBadRequest, "Unknown status: "+req.Status)
	}

	actor := middleware.AuditContextFromRequest(c)
	if err := services.TransitionCourier(db.DB, &courier, target, actor); err != nil {
		if te, ok := err.(services.ErrTransitionNotAllowed); ok {
			return c.JSON(http.StatusConflict, map[string]string{
				"error": fmt.Sprintf("cannot change status from %s to %s", te.From, te.To),
				"from":  te.From,
				"to":    te.To,
			})
		}
		return jsonError(c, http.StatusInternalServerError, "Failed to update status")
	}

	return c.JSON(http.StatusOK, courier)
}

// DeleteCourierHandler marks a courier deleted (recoverable via restore)
func DeleteCourierHandler(c echo.Context) error {
	var courier models.Courier
	if err := db.DB.First(&courier, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Courier not found")
	}

	actor := middleware.AuditContextFromRequest(c)
	if err := services.SoftDeleteCourier(db.DB, &courier, actor); err != nil {
		if te, ok := err.(services.ErrTransitionNotAllowed); ok {
			return jsonError(c, http.StatusConflict, fmt.Sprintf("cannot change status from %s to %s", te.From, te.To))
		}
		return jsonError(c, http.StatusInternalServerError, "Failed to delete courier")
	}

	return c.NoContent(http.StatusNoContent)
}

// RestoreCourierHandler brings a deleted courier back to on_the_way
func RestoreCourierHandler(c echo.Context) error {
	var courier models.Courier
	if err := db.DB.First(&courier, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Courier not found")
	}

	actor := middleware.AuditContextFromRequest(c)
	if err := services.RestoreCourier(db.DB, &courier, actor); err != nil {
		if te, ok := err.(services.ErrTransitionNotAllowed); ok {
			return jsonError(c, http.StatusConflict, fmt.Sprintf("cannot change status from %s to %s", te.From, te.To))
		}
		return jsonError(c, http.StatusInternalServerError, "Failed to restore courier")
	}

	return c.JSON(http.StatusOK, courier)
}

// UploadPODCopyHandler attaches a proof-of-delivery scan to a courier
func UploadPODCopyHandler(c echo.Context) error {
	cfg, _ := c.Get("config").(*config.Config)

	var courier models.Courier
	if err := db.DB.First(&courier, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Courier not found")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "No file uploaded")
	}

	if err := services.ValidatePODCopyUpload(fileHeader); err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}

	result, err := services.SaveUploadedFile(fileHeader, cfg.UploadDir, "couriers/"+courier.ID+"/pod")
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to save file")
	}

	// Replace any previous copy
	if courier.PODCopyPath != nil {
		_ = services.DeleteUploadedFile(cfg.UploadDir, *courier.PODCopyPath)
	}

	updates := map[string]interface{}{
		"pod_copy_path":          result.FilePath,
		"pod_copy_original_name": result.FileOriginalName,
	}
	if err := db.DB.Model(&courier).Updates(updates).Error; err != nil {
		_ = services.DeleteUploadedFile(cfg.UploadDir, result.FilePath)
		return jsonError(c, http.StatusInternalServerError, "Failed to record file")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionUpdate, "Courier", courier.ID, courier.PODNumber,
		"POD copy uploaded: "+result.FileOriginalName, nil, nil)

	return c.JSON(http.StatusOK, courier)
}

// DownloadPODCopyHandler streams the stored POD copy
func DownloadPODCopyHandler(c echo.Context) error {
	cfg, _ := c.Get("config").(*config.Config)

	var courier models.Courier
	if err := db.DB.First(&courier, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Courier not found")
	}
	if courier.PODCopyPath == nil {
		return jsonError(c, http.StatusNotFound, "No POD copy uploaded for this courier")
	}

	data, err := services.ReadUploadedFile(cfg.UploadDir, *courier.PODCopyPath)
	if err != nil {
		return jsonError(c, http.StatusNotFound, "File not found")
	}

	name := "pod_copy"
	if courier.PODCopyOriginalName != nil {
		name = *courier.PODCopyOriginalName
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionDownload, "Courier", courier.ID, courier.PODNumber,
		"POD copy downloaded", nil, nil)

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))
	return c.Blob(http.StatusOK, contentTypeForFile(name), data)
}

func contentTypeForFile(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".docx"):
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case strings.HasSuffix(lower, ".csv"):
		return "text/csv"
	}
	return "application/octet-stream"
}

// ExportCouriersHandler downloads couriers in a date range as CSV
func ExportCouriersHandler(c echo.Context) error {
	from, to, err := dateRangeParams(c)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}

	data, err := services.ExportCouriersCSV(db.DB, from, to)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to export couriers")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionDownload, "Courier", "export", "",
		"Courier export downloaded", nil, nil)

	filename := fmt.Sprintf("couriers_%s.csv", time.Now().Format("20060102_150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Blob(http.StatusOK, "text/csv", data)
}
