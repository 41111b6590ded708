package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"courier_track_go/models"
	"courier_track_go/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func createTestReceivedCourier(t *testing.T, testDB *gorm.DB, user *models.User) *models.ReceivedCourier {
	rc := &models.ReceivedCourier{
		PODNumber:     "IN-" + uuid.New().String()[:8],
		ReceiveDate:   services.DateOnly(time.Now()),
		SenderName:    "State Bank Regional Office",
		ReceiverName:  "Priya Nair",
		ReceiverEmail: "priya@example.com",
		Status:        models.ReceivedCourierStatusReceived,
		CreatedByID:   user.ID,
	}
	assert.NoError(t, testDB.Create(rc).Error)
	return rc
}

func TestCreateReceivedCourierHandler(t *testing.T) {
	testDB := setupTestDB(t)
	user := createTestUser(t, testDB, models.RoleUser)

	create := func(body string) (int, []byte) {
		_, c, rec := setupEcho(http.MethodPost, "/api/received-couriers", strings.NewReader(body))
		c.Request().Header.Set("Content-Type", "application/json")
		authenticate(t, testDB, c, user)
		assert.NoError(t, CreateReceivedCourierHandler(c))
		return rec.Code, rec.Body.Bytes()
	}

	t.Run("logs an inbound courier", func(t *testing.T) {
		code, body := create(`{"pod_number":"IN-5001","receive_date":"2025-08-25","sender_name":"Head Office","receiver_name":"Priya Nair","receiver_email":"priya@example.com"}`)
		assert.Equal(t, http.StatusCreated, code)

		var rc models.ReceivedCourier
		assert.NoError(t, json.Unmarshal(body, &rc))
		assert.Equal(t, models.ReceivedCourierStatusReceived, rc.Status)
	})

	t.Run("duplicate POD number returns 409", func(t *testing.T) {
		code, _ := create(`{"pod_number":"IN-5001","receive_date":"2025-08-25","sender_name":"X","receiver_name":"Y","receiver_email":"y@example.com"}`)
		assert.Equal(t, http.StatusConflict, code)
	})

	t.Run("missing receiver returns 422", func(t *testing.T) {
		code, _ := create(`{"pod_number":"IN-5002","receive_date":"2025-08-25"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, code)
	})
}

func TestDispatchAndConfirmHandlers(t *testing.T) {
	testDB := setupTestDB(t)
	user := createTestUser(t, testDB, models.RoleUser)
	rc := createTestReceivedCourier(t, testDB, user)

	dispatch := func(id string) (int, []byte) {
		_, c, rec := setupEcho(http.MethodPost, "/api/received-couriers/"+id+"/dispatch", nil)
		c.SetParamNames("id")
		c.SetParamValues(id)
		authenticate(t, testDB, c, user)
		assert.NoError(t, DispatchReceivedCourierHandler(c))
		return rec.Code, rec.Body.Bytes()
	}

	confirm := func(token string) (int, []byte) {
		_, c, rec := setupEcho(http.MethodGet, "/api/received-couriers/confirm?token="+token, nil)
		assert.NoError(t, ConfirmReceivedCourierHandler(c))
		return rec.Code, rec.Body.Bytes()
	}

	t.Run("dispatch flips status and issues a token", func(t *testing.T) {
		code, body := dispatch(rc.ID)
		assert.Equal(t, http.StatusOK, code)

		var resp models.ReceivedCourier
		assert.NoError(t, json.Unmarshal(body, &resp))
		assert.Equal(t, models.ReceivedCourierStatusDispatched, resp.Status)

		var stored models.ReceivedCourier
		assert.NoError(t, testDB.First(&stored, "id = ?", rc.ID).Error)
		assert.NotNil(t, stored.ConfirmationToken)
	})

	t.Run("second dispatch returns 409", func(t *testing.T) {
		code, _ := dispatch(rc.ID)
		assert.Equal(t, http.StatusConflict, code)
	})

	t.Run("confirmation link delivers once", func(t *testing.T) {
		var stored models.ReceivedCourier
		assert.NoError(t, testDB.First(&stored, "id = ?", rc.ID).Error)
		token := *stored.ConfirmationToken

		code, body := confirm(token)
		assert.Equal(t, http.StatusOK, code)

		var resp map[string]interface{}
		assert.NoError(t, json.Unmarshal(body, &resp))
		assert.Equal(t, stored.PODNumber, resp["pod_number"])

		// Reusing the link conflicts, not OK
		code, _ = confirm(token)
		assert.Equal(t, http.StatusConflict, code)
	})

	t.Run("missing token returns 400", func(t *testing.T) {
		code, _ := confirm("")
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("unknown courier returns 404", func(t *testing.T) {
		code, _ := dispatch("no-such-id")
		assert.Equal(t, http.StatusNotFound, code)
	})
}
