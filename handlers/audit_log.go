package handlers

import (
	"fmt"
	"net/http"
	"time"

	"courier_track_go/db"
	"courier_track_go/middleware"
	"courier_track_go/models"
	"courier_track_go/services"

	"github.com/labstack/echo/v4"
)

// ListAuditLogsHandler returns paginated audit entries with filters
func ListAuditLogsHandler(c echo.Context) error {
	page, pageSize := paginationParams(c)

	from, to, err := dateRangeParams(c)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}

	filters := services.AuditLogFilters{
		UserID:       c.QueryParam("user_id"),
		ResourceType: c.QueryParam("resource_type"),
		Action:       c.QueryParam("action"),
		SearchQuery:  c.QueryParam("search"),
		DateFrom:     from,
		DateTo:       to,
	}

	logs, total, err := services.GetAuditLogs(db.DB, filters, page, pageSize)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to load audit logs")
	}

	return c.JSON(http.StatusOK, listResponse{Items: logs, Total: total, Page: page, PageSize: pageSize})
}

// auditHistoryEntry is an audit log plus the field-level diff parsed out of
// its stored old/new snapshots.
type auditHistoryEntry struct {
	models.AuditLog
	Changes []models.AuditChange `json:"changes,omitempty"`
}

// ResourceAuditHistoryHandler returns every audit entry for one resource,
// newest first, each with its field-level changes
func ResourceAuditHistoryHandler(c echo.Context) error {
	resourceType := c.Param("resourceType")
	resourceID := c.Param("resourceId")

	logs, err := services.GetResourceAuditHistory(db.DB, resourceType, resourceID)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to load audit history")
	}

	entries := make([]auditHistoryEntry, len(logs))
	for i := range logs {
		entries[i] = auditHistoryEntry{AuditLog: logs[i], Changes: logs[i].Changes()}
	}

	return c.JSON(http.StatusOK, entries)
}

// ExportAuditLogsHandler downloads audit entries in a date range as CSV
func ExportAuditLogsHandler(c echo.Context) error {
	from, to, err := dateRangeParams(c)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}

	data, err := services.ExportAuditLogsCSV(db.DB, from, to)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to export audit logs")
	}

	actor := middleware.AuditContextFromRequest(c)
	services.LogAuditEvent(db.DB, actor, models.AuditActionDownload, "AuditLog", "export", "",
		"Audit log export downloaded", nil, nil)

	filename := fmt.Sprintf("audit_logs_%s.csv", time.Now().Format("20060102_150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Blob(http.StatusOK, "text/csv", data)
}
