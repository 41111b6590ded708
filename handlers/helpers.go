package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"courier_track_go/services"

	"github.com/labstack/echo/v4"
)

// jsonError writes a uniform error envelope
func jsonError(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}

// jsonValidationError writes a 422 with per-field details
func jsonValidationError(c echo.Context, errs services.ValidationErrors) error {
	return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
		"error":  "validation failed",
		"fields": []services.FieldError(errs),
	})
}

// paginationParams reads page/page_size query parameters with sane bounds
func paginationParams(c echo.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.QueryParam("page_size"))
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// dateRangeParams reads startDate/endDate query parameters as YYYY-MM-DD
// dates. from/to are accepted as aliases. Zero values mean the bound is open.
func dateRangeParams(c echo.Context) (from, to time.Time, err error) {
	fromParam := c.QueryParam("startDate")
	if fromParam == "" {
		fromParam = c.QueryParam("from")
	}
	toParam := c.QueryParam("endDate")
	if toParam == "" {
		toParam = c.QueryParam("to")
	}
	if fromParam != "" {
		from, err = services.ParseDate(fromParam)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid startDate, expected YYYY-MM-DD")
		}
	}
	if toParam != "" {
		to, err = services.ParseDate(toParam)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid endDate, expected YYYY-MM-DD")
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("endDate must not precede startDate")
	}
	return from, to, nil
}

// listResponse is the envelope for paginated collections
type listResponse struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}
