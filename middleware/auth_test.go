package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"courier_track_go/db"
	"courier_track_go/models"
	"courier_track_go/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	testDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	err = testDB.AutoMigrate(&models.User{}, &models.Session{})
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	// Set the global DB variable used by middleware
	db.DB = testDB
	return testDB
}

func createActiveUser(t *testing.T, testDB *gorm.DB, role string) *models.User {
	t.Helper()

	user := models.User{
		Name:         "Test User",
		Email:        uuid.New().String() + "@example.com",
		EmployeeCode: uuid.New().String()[:8],
		Password:     "not-used-here",
		Role:         role,
		IsActive:     true,
	}
	if err := testDB.Create(&user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return &user
}

func TestRequireAuth(t *testing.T) {
	testDB := setupTestDB(t)
	e := echo.New()

	user := createActiveUser(t, testDB, models.RoleUser)
	session, err := services.CreateSession(testDB, user.ID, "127.0.0.1", "test-agent")
	assert.NoError(t, err)

	handler := RequireAuth()(func(c echo.Context) error {
		current := GetCurrentUser(c)
		assert.NotNil(t, current)
		assert.Equal(t, user.ID, current.ID)
		return c.NoContent(http.StatusOK)
	})

	t.Run("ValidToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+session.Token)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler(c)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("MissingToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler(c)
		httpErr, ok := err.(*echo.HTTPError)
		assert.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	})

	t.Run("InvalidToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-real-token")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler(c)
		httpErr, ok := err.(*echo.HTTPError)
		assert.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	})

	t.Run("DisabledAccount", func(t *testing.T) {
		disabled := createActiveUser(t, testDB, models.RoleUser)
		disabledSession, err := services.CreateSession(testDB, disabled.ID, "127.0.0.1", "test-agent")
		assert.NoError(t, err)
		testDB.Model(&models.User{}).Where("id = ?", disabled.ID).Update("is_active", false)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+disabledSession.Token)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err = handler(c)
		httpErr, ok := err.(*echo.HTTPError)
		assert.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
		assert.Equal(t, "Account is disabled", httpErr.Message)
	})

	t.Run("MalformedHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, session.Token)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler(c)
		httpErr, ok := err.(*echo.HTTPError)
		assert.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	})
}

func TestRequireRole(t *testing.T) {
	setupTestDB(t)
	e := echo.New()

	handler := RequireRole(models.RoleAdmin, models.RoleSubAdmin)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	makeContext := func(user *models.User) (echo.Context, *httptest.ResponseRecorder) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if user != nil {
			c.Set(ContextKeyUser, user)
		}
		return c, rec
	}

	t.Run("AllowedRole", func(t *testing.T) {
		c, rec := makeContext(&models.User{Role: models.RoleAdmin})
		assert.NoError(t, handler(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("ForbiddenRole", func(t *testing.T) {
		c, _ := makeContext(&models.User{Role: models.RoleUser})
		err := handler(c)
		httpErr, ok := err.(*echo.HTTPError)
		assert.True(t, ok)
		assert.Equal(t, http.StatusForbidden, httpErr.Code)
	})

	t.Run("NotAuthenticated", func(t *testing.T) {
		c, _ := makeContext(nil)
		err := handler(c)
		httpErr, ok := err.(*echo.HTTPError)
		assert.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	})
}

func TestCanModifyUser(t *testing.T) {
	setupTestDB(t)
	e := echo.New()

	makeContext := func(user *models.User) echo.Context {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if user != nil {
			c.Set(ContextKeyUser, user)
		}
		return c
	}

	admin := &models.User{ID: uuid.New().String(), Role: models.RoleAdmin}
	subAdmin := &models.User{ID: uuid.New().String(), Role: models.RoleSubAdmin}
	regular := &models.User{ID: uuid.New().String(), Role: models.RoleUser}

	assert.True(t, CanModifyUser(makeContext(admin), regular.ID))
	assert.True(t, CanModifyUser(makeContext(subAdmin), regular.ID))
	assert.True(t, CanModifyUser(makeContext(regular), regular.ID))
	assert.False(t, CanModifyUser(makeContext(regular), admin.ID))
	assert.False(t, CanModifyUser(makeContext(nil), regular.ID))
}

func TestAuditContextFromRequest(t *testing.T) {
	setupTestDB(t)
	e := echo.New()

	user := &models.User{ID: uuid.New().String(), Name: "Meera Joshi", Role: models.RoleManager}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "test-agent/1.0")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(ContextKeyUser, user)

	ctx := AuditContextFromRequest(c)
	assert.Equal(t, user.ID, ctx.UserID)
	assert.Equal(t, "Meera Joshi", ctx.UserName)
	assert.Equal(t, models.RoleManager, ctx.UserRole)
	assert.Equal(t, "test-agent/1.0", ctx.UserAgent)
	assert.NotEmpty(t, ctx.IPAddress)
}
