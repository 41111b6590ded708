package handlers

import (
	"net/http"

	"courier_track_go/db"
	"courier_track_go/middleware"
	"courier_track_go/models"
	"courier_track_go/services"

	"github.com/labstack/echo/v4"
)

// DashboardStatsHandler returns the dashboard counters. Non-admin users with
// a department assignment see courier counts scoped to their department.
func DashboardStatsHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	departmentID := ""
	if user.Role != models.RoleAdmin && user.Role != models.RoleSubAdmin && user.DepartmentID != nil {
		departmentID = *user.DepartmentID
	}

	stats, err := services.GetDashboardStats(db.DB, departmentID)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to compute statistics")
	}

	return c.JSON(http.StatusOK, stats)
}
