package handlers

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"courier_track_go/config"
	"courier_track_go/db"
	"courier_track_go/middleware"
	"courier_track_go/models"
	"courier_track_go/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// Unique shared memory name isolates tests while keeping the cache shared
	// for the async audit writes
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{})
	assert.NoError(t, err)

	err = testDB.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.PasswordResetToken{},
		&models.Department{},
		&models.Vendor{},
		&models.Branch{},
		&models.Courier{},
		&models.ReceivedCourier{},
		&models.AuthorityLetterTemplate{},
		&models.AuthorityLetterField{},
		&models.FieldDropdownOption{},
		&models.AuditLog{},
		&models.EmailSettings{},
		&models.SamlSettings{},
		&models.BulkUploadReport{},
	)
	assert.NoError(t, err)

	// Handlers reach the database through the package-level handle
	db.DB = testDB

	return testDB
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:          "test",
		UploadDir:            "tmp/test_uploads",
		EmailTestMode:        true,
		AppURL:               "http://localhost:8080",
		BulkBranchRowLimit:   100,
		BulkGenerateRowLimit: 50,
	}
}

func setupEcho(method, path string, body io.Reader) (*echo.Echo, echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	c.Set("config", testConfig())

	return e, c, rec
}

func createTestUser(t *testing.T, testDB *gorm.DB, role string) *models.User {
	hash, err := services.HashPassword("secret-password")
	assert.NoError(t, err)

	user := &models.User{
		Name:         "Test User",
		Email:        "user-" + uuid.New().String()[:8] + "@example.com",
		EmployeeCode: "EMP-" + uuid.New().String()[:8],
		Password:     hash,
		Role:         role,
		IsActive:     true,
	}
	assert.NoError(t, testDB.Create(user).Error)
	return user
}

// authenticate attaches the user (and a session) to the echo context the way
// the auth middleware does
func authenticate(t *testing.T, testDB *gorm.DB, c echo.Context, user *models.User) *models.Session {
	session, err := services.CreateSession(testDB, user.ID, "127.0.0.1", "go-test")
	assert.NoError(t, err)
	session.User = *user

	c.Set(middleware.ContextKeyUser, user)
	c.Set(middleware.ContextKeySession, session)
	return session
}

func createTestDepartment(t *testing.T, testDB *gorm.DB) *models.Department {
	dept := &models.Department{Name: "Operations " + uuid.New().String()[:8]}
	assert.NoError(t, testDB.Create(dept).Error)
	return dept
}

func createTestCourier(t *testing.T, testDB *gorm.DB, dept *models.Department, user *models.User) *models.Courier {
	courier := &models.Courier{
		DepartmentID:  dept.ID,
		CreatedByID:   user.ID,
		PODNumber:     "POD-" + uuid.New().String()[:8],
		CourierDate:   services.DateOnly(time.Now()),
		RecipientName: "Asha Verma",
		Status:        models.CourierStatusOnTheWay,
	}
	assert.NoError(t, testDB.Create(courier).Error)
	return courier
}
