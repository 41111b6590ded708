package handlers

import (
	"errors"
	"net/http"
	"strings"

	"courier_track_go/config"
	"courier_track_go/db"
	"courier_track_go/middleware"
	"courier_track_go/models"
	"courier_track_go/services"

	"github.com/labstack/echo/v4"
)

type receivedCourierRequest struct {
	PODNumber      string  `json:"pod_number"`
	ReceiveDate    string  `json:"receive_date"` // YYYY-MM-DD
	SenderName     string  `json:"sender_name"`
	SenderAddress  string  `json:"sender_address"`
	ReceiverName   string  `json:"receiver_name"`
	ReceiverEmail  string  `json:"receiver_email"`
	Remarks        string  `json:"remarks"`
	DepartmentID   *string `json:"department_id"`
	DepartmentName string  `json:"department_name"`
}

func (r *receivedCourierRequest) validate() services.ValidationErrors {
	var errs services.ValidationErrors
	if strings.TrimSpace(r.PODNumber) == "" {
		errs = append(errs, services.FieldError{Field: "pod_number", Message: "POD number is required"})
	}
	if r.ReceiveDate == "" {
		errs = append(errs, services.FieldError{Field: "receive_date", Message: "receive date is required"})
	} else if _, err := services.ParseDate(r.ReceiveDate); err != nil {
		errs = append(errs, services.FieldError{Field: "receive_date", Message: "invalid date, expected YYYY-MM-DD", Value: r.ReceiveDate})
	}
	if strings.TrimSpace(r.ReceiverName) == "" {
		errs = append(errs, services.FieldError{Field: "receiver_name", Message: "receiver name is required"})
	}
	email := strings.TrimSpace(r.ReceiverEmail)
	if email == "" {
		errs = append(errs, services.FieldError{Field: "receiver_email", Message: "receiver email is required"})
	} else if !strings.Contains(email, "@") {
		errs = append(errs, services.FieldError{Field: "receiver_email", Message: "invalid email address", Value: email})
	}
	return errs
}

// ListReceivedCouriersHandler returns inbound couriers with status, search
// and date filters
func ListReceivedCouriersHandler(c echo.Context) error {
	page, pageSize := paginationParams(c)

	query := db.DB.Model(&models.ReceivedCourier{}).
		Preload("Department").
		Preload("CreatedBy")

	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if departmentID := c.QueryParam("department_id"); departmentID != "" {
		query = query.Where("department_id = ?", departmentID)
	}
	if search := c.QueryParam("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("pod_number LIKE ? OR receiver_name LIKE ? OR sender_name LIKE ?", like, like, like)
	}

	from, to, err := dateRangeParams(c)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}
	if !from.IsZero() {
		query = query.Where("receive_date >= ?", services.DateOnly(from))
	}
	if !to.IsZero() {
		query = query.Where("receive_date < ?", services.DateOnly(to).AddDate(0, 0, 1))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to count received couriers")
	}

	var items []models.ReceivedCourier
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to load received couriers")
	}

	return c.JSON(http.StatusOK, listResponse{Items: items, Total: total, Page: page, PageSize: pageSize})
}

// GetReceivedCourierHandler returns one inbound courier by id
func GetReceivedCourierHandler(c echo.Context) error {
	var rc models.ReceivedCourier
	if err := db.DB.
		Preload("Department").
		Preload("CreatedBy").
		First(&rc, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Received courier not found")
	}
	return c.JSON(http.StatusOK, rc)
}

// CreateReceivedCourierHandler logs an inbound courier at the mailroom
func CreateReceivedCourierHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var req receivedCourierRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if errs := req.validate(); len(errs) > 0 {
		return jsonValidationError(c, errs)
	}

	receiveDate, _ := services.ParseDate(req.ReceiveDate)

	podNumber := strings.TrimSpace(req.PODNumber)
	var existing models.ReceivedCourier
	if err := db.DB.First(&existing, "pod_number = ?", podNumber).Error; err == nil {
		return jsonError(c, http.StatusConflict, "A received courier with this POD number already exists")
	}

	if req.DepartmentID != nil {
		var department models.Department
		if err := db.DB.First(&department, "id = ?", *req.DepartmentID).Error; err != nil {
			return jsonError(c, http.StatusBadRequest, "Department not found")
		}
	}

	rc := models.ReceivedCourier{
		PODNumber:      podNumber,
		ReceiveDate:    services.DateOnly(receiveDate),
		SenderName:     strings.TrimSpace(req.SenderName),
		SenderAddress:  req.SenderAddress,
		ReceiverName:   strings.TrimSpace(req.ReceiverName),
		ReceiverEmail:  strings.ToLower(strings.TrimSpace(req.ReceiverEmail)),
		Remarks:        req.Remarks,
		DepartmentID:   req.DepartmentID,
		DepartmentName: strings.TrimSpace(req.DepartmentName),
		Status:         models.ReceivedCourierStatusReceived,
		CreatedByID:    user.ID,
	}

	if err := db.DB.Create(&rc).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to create received courier")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionCreate, "ReceivedCourier", rc.ID, rc.PODNumber,
		"Received courier logged", nil, rc)

	return c.JSON(http.StatusCreated, rc)
}

// UpdateReceivedCourierHandler edits an inbound courier while it is still in
// the received state
func UpdateReceivedCourierHandler(c echo.Context) error {
	var rc models.ReceivedCourier
	if err := db.DB.First(&rc, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Received courier not found")
	}

	if rc.Status != models.ReceivedCourierStatusReceived {
		return jsonError(c, http.StatusConflict, "Only couriers awaiting dispatch can be edited")
	}

	var req receivedCourierRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if errs := req.validate(); len(errs) > 0 {
		return jsonValidationError(c, errs)
	}

	receiveDate, _ := services.ParseDate(req.ReceiveDate)

	podNumber := strings.TrimSpace(req.PODNumber)
	var existing models.ReceivedCourier
	if err := db.DB.Where("pod_number = ? AND id != ?", podNumber, rc.ID).First(&existing).Error; err == nil {
		return jsonError(c, http.StatusConflict, "A received courier with this POD number already exists")
	}

	old := rc
	updates := map[string]interface{}{
		"pod_number":      podNumber,
		"receive_date":    services.DateOnly(receiveDate),
		"sender_name":     strings.TrimSpace(req.SenderName),
		"sender_address":  req.SenderAddress,
		"receiver_name":   strings.TrimSpace(req.ReceiverName),
		"receiver_email":  strings.ToLower(strings.TrimSpace(req.ReceiverEmail)),
		"remarks":         req.Remarks,
		"department_id":   req.DepartmentID,
		"department_name": strings.TrimSpace(req.DepartmentName),
	}
	if err := db.DB.Model(&rc).Updates(updates).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to update received courier")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionUpdate, "ReceivedCourier", rc.ID, rc.PODNumber,
		"Received courier updated", old, rc)

	return c.JSON(http.StatusOK, rc)
}

// DispatchReceivedCourierHandler forwards an inbound courier to its addressee
// and emails the confirmation link
func DispatchReceivedCourierHandler(c echo.Context) error {
	cfg, _ := c.Get("config").(*config.Config)

	var rc models.ReceivedCourier
	if err := db.DB.First(&rc, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Received courier not found")
	}

	actor := middleware.AuditContextFromRequest(c)
	if err := services.DispatchReceivedCourier(db.DB, cfg, &rc, actor); err != nil {
		if te, ok := err.(services.ErrTransitionNotAllowed); ok {
			return jsonError(c, http.StatusConflict, "cannot dispatch from status "+te.From)
		}
		return jsonError(c, http.StatusInternalServerError, "Failed to dispatch courier")
	}

	return c.JSON(http.StatusOK, rc)
}

// ConfirmReceivedCourierHandler is the unauthenticated endpoint behind the
// emailed confirmation link. The token is single-use.
func ConfirmReceivedCourierHandler(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return jsonError(c, http.StatusBadRequest, "Missing confirmation token")
	}

	rc, err := services.ConfirmReceivedCourier(db.DB, token)
	if err != nil {
		if errors.Is(err, services.ErrAlreadyConfirmed) {
			return jsonError(c, http.StatusConflict, "This confirmation link has already been used or has expired")
		}
		return jsonError(c, http.StatusInternalServerError, "Failed to confirm delivery")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":    "Delivery confirmed, thank you",
		"pod_number": rc.PODNumber,
	})
}

// DeleteReceivedCourierHandler removes an inbound courier record
func DeleteReceivedCourierHandler(c echo.Context) error {
	var rc models.ReceivedCourier
	if err := db.DB.First(&rc, "id = ?", c.Param("id")).Error; err != nil {
		return jsonError(c, http.StatusNotFound, "Received courier not found")
	}

	if err := db.DB.Delete(&rc).Error; err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to delete received courier")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionDelete, "ReceivedCourier", rc.ID, rc.PODNumber,
		"Received courier deleted", rc, nil)

	return c.NoContent(http.StatusNoContent)
}
