package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"courier_track_go/models"
	"courier_track_go/services"

	"github.com/stretchr/testify/assert"
)

func TestLoginHandler(t *testing.T) {
	testDB := setupTestDB(t)
	user := createTestUser(t, testDB, models.RoleUser)

	login := func(body string) (int, map[string]interface{}) {
		_, c, rec := setupEcho(http.MethodPost, "/api/auth/login", strings.NewReader(body))
		c.Request().Header.Set("Content-Type", "application/json")
		assert.NoError(t, LoginHandler(c))

		var resp map[string]interface{}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return rec.Code, resp
	}

	t.Run("valid credentials issue a token", func(t *testing.T) {
		code, resp := login(`{"email":"` + user.Email + `","password":"secret-password"}`)
		assert.Equal(t, http.StatusOK, code)
		assert.NotEmpty(t, resp["token"])

		respUser := resp["user"].(map[string]interface{})
		assert.Equal(t, user.Email, respUser["email"])
		_, leaked := respUser["password"]
		assert.False(t, leaked && respUser["password"] != "", "password must not be returned")

		// Token is a usable session
		_, err := services.ValidateSession(testDB, resp["token"].(string))
		assert.NoError(t, err)
	})

	t.Run("email is case-insensitive", func(t *testing.T) {
		code, _ := login(`{"email":"` + strings.ToUpper(user.Email) + `","password":"secret-password"}`)
		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		code, resp := login(`{"email":"` + user.Email + `","password":"nope"}`)
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, "Invalid email or password", resp["error"])
	})

	t.Run("unknown email gets the same message", func(t *testing.T) {
		code, resp := login(`{"email":"ghost@example.com","password":"whatever"}`)
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, "Invalid email or password", resp["error"])
	})

	t.Run("inactive account is rejected", func(t *testing.T) {
		inactive := createTestUser(t, testDB, models.RoleUser)
		assert.NoError(t, testDB.Model(inactive).Update("is_active", false).Error)

		code, resp := login(`{"email":"` + inactive.Email + `","password":"secret-password"}`)
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, "Account is disabled", resp["error"])
	})

	t.Run("missing fields", func(t *testing.T) {
		code, _ := login(`{"email":"","password":""}`)
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestLogoutHandler(t *testing.T) {
	testDB := setupTestDB(t)
	user := createTestUser(t, testDB, models.RoleUser)

	_, c, rec := setupEcho(http.MethodPost, "/api/auth/logout", nil)
	session := authenticate(t, testDB, c, user)

	assert.NoError(t, LogoutHandler(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := services.ValidateSession(testDB, session.Token)
	assert.Error(t, err, "session must be revoked")
}

func TestMeHandler(t *testing.T) {
	testDB := setupTestDB(t)
	dept := createTestDepartment(t, testDB)
	user := createTestUser(t, testDB, models.RoleManager)
	assert.NoError(t, testDB.Model(user).Update("department_id", dept.ID).Error)

	_, c, rec := setupEcho(http.MethodGet, "/api/auth/me", nil)
	authenticate(t, testDB, c, user)

	assert.NoError(t, MeHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp models.User
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, user.ID, resp.ID)
	assert.NotNil(t, resp.Department)
	assert.Equal(t, dept.Name, resp.Department.Name)
}

func TestForgotAndResetPassword(t *testing.T) {
	testDB := setupTestDB(t)
	user := createTestUser(t, testDB, models.RoleUser)

	t.Run("response does not reveal account existence", func(t *testing.T) {
		for _, email := range []string{user.Email, "ghost@example.com"} {
			_, c, rec := setupEcho(http.MethodPost, "/api/auth/forgot-password",
				strings.NewReader(`{"email":"`+email+`"}`))
			c.Request().Header.Set("Content-Type", "application/json")

			assert.NoError(t, ForgotPasswordHandler(c))
			assert.Equal(t, http.StatusOK, rec.Code)
		}

		var count int64
		testDB.Model(&models.PasswordResetToken{}).Count(&count)
		assert.Equal(t, int64(1), count, "only the real account gets a token")
	})

	t.Run("reset with issued token", func(t *testing.T) {
		var token models.PasswordResetToken
		assert.NoError(t, testDB.First(&token, "user_id = ?", user.ID).Error)

		_, c, rec := setupEcho(http.MethodPost, "/api/auth/reset-password",
			strings.NewReader(`{"token":"`+token.Token+`","password":"a-new-password"}`))
		c.Request().Header.Set("Content-Type", "application/json")

		assert.NoError(t, ResetPasswordHandler(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var updated models.User
		assert.NoError(t, testDB.First(&updated, "id = ?", user.ID).Error)
		assert.True(t, services.CheckPassword("a-new-password", updated.Password))
	})

	t.Run("bad token is rejected", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodPost, "/api/auth/reset-password",
			strings.NewReader(`{"token":"bogus-token-value","password":"a-new-password"}`))
		c.Request().Header.Set("Content-Type", "application/json")

		assert.NoError(t, ResetPasswordHandler(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRegisterHandler(t *testing.T) {
	testDB := setupTestDB(t)

	register := func(body string) (int, map[string]interface{}) {
		_, c, rec := setupEcho(http.MethodPost, "/api/auth/register", strings.NewReader(body))
		c.Request().Header.Set("Content-Type", "application/json")
		assert.NoError(t, RegisterHandler(c))

		var resp map[string]interface{}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return rec.Code, resp
	}

	t.Run("creates an account and logs it in", func(t *testing.T) {
		code, resp := register(`{"name":"Ravi Kumar","email":"Ravi.Kumar@example.com","employee_code":"EMP-9001","password":"long-enough-pass"}`)
		assert.Equal(t, http.StatusCreated, code)
		assert.NotEmpty(t, resp["token"])

		respUser := resp["user"].(map[string]interface{})
		assert.Equal(t, "ravi.kumar@example.com", respUser["email"])
		assert.Equal(t, models.RoleUser, respUser["role"])

		_, err := services.ValidateSession(testDB, resp["token"].(string))
		assert.NoError(t, err)
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		user := createTestUser(t, testDB, models.RoleUser)
		code, resp := register(`{"name":"Dup","email":"` + user.Email + `","employee_code":"EMP-9002","password":"long-enough-pass"}`)
		assert.Equal(t, http.StatusConflict, code)
		assert.Contains(t, resp["error"], "already exists")
	})

	t.Run("short password fails validation", func(t *testing.T) {
		code, resp := register(`{"name":"Short","email":"short@example.com","employee_code":"EMP-9003","password":"tiny"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.NotNil(t, resp["errors"])
	})

	t.Run("role in the payload is ignored", func(t *testing.T) {
		code, resp := register(`{"name":"Sneaky","email":"sneaky@example.com","employee_code":"EMP-9004","password":"long-enough-pass","role":"admin"}`)
		assert.Equal(t, http.StatusCreated, code)
		respUser := resp["user"].(map[string]interface{})
		assert.Equal(t, models.RoleUser, respUser["role"])
	})
}
