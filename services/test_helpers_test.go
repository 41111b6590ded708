package services

import (
	"testing"
	"time"

	"courier_track_go/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
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

	return testDB
}

func createTestUser(t *testing.T, db *gorm.DB) *models.User {
	hash, err := HashPassword("secret-password")
	assert.NoError(t, err)

	user := &models.User{
		Name:         "Test User",
		Email:        "test-" + uuid.New().String() + "@example.com",
		EmployeeCode: "EMP-" + uuid.New().String()[:8],
		Password:     hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	assert.NoError(t, db.Create(user).Error)
	return user
}

func createTestDepartment(t *testing.T, db *gorm.DB) *models.Department {
	dept := &models.Department{Name: "Operations " + uuid.New().String()[:8]}
	assert.NoError(t, db.Create(dept).Error)
	return dept
}

func createTestCourier(t *testing.T, db *gorm.DB, dept *models.Department, user *models.User) *models.Courier {
	courier := &models.Courier{
		DepartmentID: dept.ID,
		CreatedByID:  user.ID,
		PODNumber:    "POD-" + uuid.New().String()[:8],
		CourierDate:  DateOnly(time.Now()),
		RecipientName: "Asha Verma",
		Status:       models.CourierStatusOnTheWay,
	}
	assert.NoError(t, db.Create(courier).Error)
	return courier
}

func testActor(user *models.User) AuditContext {
	return AuditContext{
		UserID:    user.ID,
		UserName:  user.Name,
		UserRole:  user.Role,
		IPAddress: "127.0.0.1",
	}
}
