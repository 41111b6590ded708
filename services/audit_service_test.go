package services

import (
	"testing"
	"time"

	"courier_track_go/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func waitForAuditLogs(t *testing.T, db *gorm.DB, want int64) {
	var count int64
	for i := 0; i < 50; i++ {
		db.Model(&models.AuditLog{}).Count(&count)
		if count >= want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("expected %d audit logs, found %d", want, count)
}

func TestLogAuditEvent(t *testing.T) {
	db := setupServiceTestDB(t)
	user := createTestUser(t, db)

	LogAuditEvent(db, testActor(user), models.AuditActionCreate, "Courier", "courier-1", "POD-100",
		"Courier created",
		nil,
		map[string]interface{}{"status": "on_the_way"},
	)
	waitForAuditLogs(t, db, 1)

	var entry models.AuditLog
	assert.NoError(t, db.First(&entry).Error)
	assert.Equal(t, user.ID, *entry.UserID)
	assert.Equal(t, user.Name, entry.UserName)
	assert.Equal(t, models.AuditActionCreate, entry.Action)
	assert.Equal(t, "Courier", entry.ResourceType)
	assert.Equal(t, "POD-100", entry.ResourceName)
	assert.Empty(t, entry.OldValues)
	assert.Contains(t, entry.NewValues, "on_the_way")
	assert.Equal(t, "127.0.0.1", entry.IPAddress)
}

func TestLogAuditEvent_AnonymousActor(t *testing.T) {
	db := setupServiceTestDB(t)

	LogAuditEvent(db, AuditContext{UserName: "Priya Nair", UserRole: "recipient"},
		models.AuditActionConfirm, "ReceivedCourier", "rc-1", "IN-200", "Receipt confirmed", nil, nil)
	waitForAuditLogs(t, db, 1)

	var entry models.AuditLog
	assert.NoError(t, db.First(&entry).Error)
	assert.Nil(t, entry.UserID)
	assert.Equal(t, "recipient", entry.UserRole)
}

func TestGetResourceAuditHistory(t *testing.T) {
	db := setupServiceTestDB(t)
	user := createTestUser(t, db)
	actor := testActor(user)

	LogAuditEvent(db, actor, models.AuditActionCreate, "Branch", "branch-1", "HO001", "Branch created", nil, nil)
	LogAuditEvent(db, actor, models.AuditActionUpdate, "Branch", "branch-1", "HO001", "Branch updated", nil, nil)
	LogAuditEvent(db, actor, models.AuditActionCreate, "Branch", "branch-2", "PN002", "Branch created", nil, nil)
	waitForAuditLogs(t, db, 3)

	history, err := GetResourceAuditHistory(db, "Branch", "branch-1")
	assert.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestGetAuditLogs(t *testing.T) {
	db := setupServiceTestDB(t)
	user := createTestUser(t, db)
	actor := testActor(user)

	LogAuditEvent(db, actor, models.AuditActionCreate, "Courier", "c-1", "POD-1", "Courier created", nil, nil)
	LogAuditEvent(db, actor, models.AuditActionDelete, "Courier", "c-1", "POD-1", "Courier deleted", nil, nil)
	LogAuditEvent(db, actor, models.AuditActionCreate, "Vendor", "v-1", "BlueDart", "Vendor created", nil, nil)
	waitForAuditLogs(t, db, 3)

	t.Run("filter by resource type", func(t *testing.T) {
		logs, total, err := GetAuditLogs(db, AuditLogFilters{ResourceType: "Courier"}, 1, 20)
		assert.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, logs, 2)
	})

	t.Run("filter by action", func(t *testing.T) {
		_, total, err := GetAuditLogs(db, AuditLogFilters{Action: "DELETE"}, 1, 20)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("search matches resource name", func(t *testing.T) {
		_, total, err := GetAuditLogs(db, AuditLogFilters{SearchQuery: "BlueDart"}, 1, 20)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("pagination", func(t *testing.T) {
		logs, total, err := GetAuditLogs(db, AuditLogFilters{}, 1, 2)
		assert.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, logs, 2)

		logs, _, err = GetAuditLogs(db, AuditLogFilters{}, 2, 2)
		assert.NoError(t, err)
		assert.Len(t, logs, 1)
	})

	t.Run("date range excludes old entries", func(t *testing.T) {
		_, total, err := GetAuditLogs(db, AuditLogFilters{
			DateFrom: time.Now().Add(-time.Hour),
			DateTo:   time.Now().Add(time.Hour),
		}, 1, 20)
		assert.NoError(t, err)
		assert.Equal(t, int64(3), total)

		_, total, err = GetAuditLogs(db, AuditLogFilters{DateTo: time.Now().Add(-time.Hour)}, 1, 20)
		assert.NoError(t, err)
		assert.Zero(t, total)
	})
}
