package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"courier_track_go/models"

	"github.com/stretchr/testify/assert"
)

func TestCreateDepartmentHandler(t *testing.T) {
	testDB := setupTestDB(t)
	user := createTestUser(t, testDB, models.RoleAdmin)

	create := func(body string) (int, []byte) {
		_, c, rec := setupEcho(http.MethodPost, "/api/departments", strings.NewReader(body))
		c.Request().Header.Set("Content-Type", "application/json")
		authenticate(t, testDB, c, user)
		assert.NoError(t, CreateDepartmentHandler(c))
		return rec.Code, rec.Body.Bytes()
	}

	t.Run("creates a department", func(t *testing.T) {
		code, respBody := create(`{"name":"Recovery"}`)
		assert.Equal(t, http.StatusCreated, code)

		var dept models.Department
		assert.NoError(t, json.Unmarshal(respBody, &dept))
		assert.Equal(t, "Recovery", dept.Name)
	})

	t.Run("duplicate name is rejected case-insensitively", func(t *testing.T) {
		code, _ := create(`{"name":"recovery"}`)
		assert.Equal(t, http.StatusConflict, code)
	})

	t.Run("blank name is rejected", func(t *testing.T) {
		code, _ := create(`{"name":"  "}`)
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestDeleteDepartmentHandler(t *testing.T) {
	testDB := setupTestDB(t)
	user := createTestUser(t, testDB, models.RoleAdmin)

	remove := func(departmentID string) int {
		_, c, rec := setupEcho(http.MethodDelete, "/api/departments/"+departmentID, nil)
		c.SetParamNames("id")
		c.SetParamValues(departmentID)
		authenticate(t, testDB, c, user)
		assert.NoError(t, DeleteDepartmentHandler(c))
		return rec.Code
	}

	t.Run("soft delete leaves referencing couriers intact", func(t *testing.T) {
		dept := createTestDepartment(t, testDB)
		courier := createTestCourier(t, testDB, dept, user)

		assert.Equal(t, http.StatusNoContent, remove(dept.ID))

		// Department is gone from normal queries but still on disk
		var found models.Department
		assert.Error(t, testDB.First(&found, "id = ?", dept.ID).Error)
		assert.NoError(t, testDB.Unscoped().First(&found, "id = ?", dept.ID).Error)

		// The courier was not cascaded and keeps its reference
		var kept models.Courier
		assert.NoError(t, testDB.First(&kept, "id = ?", courier.ID).Error)
		assert.Equal(t, dept.ID, kept.DepartmentID)
		assert.Equal(t, models.CourierStatusOnTheWay, kept.Status)
	})

	t.Run("unknown department returns 404", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, remove("no-such-department"))
	})
}
