package services

import (
	"testing"
	"time"

	"courier_track_go/models"

	"github.com/stretchr/testify/assert"
)

func TestGetDashboardStats(t *testing.T) {
	db := setupServiceTestDB(t)
	user := createTestUser(t, db)
	opsDept := createTestDepartment(t, db)
	legalDept := createTestDepartment(t, db)

	newCourier := func(dept *models.Department, status models.CourierStatus) {
		courier := createTestCourier(t, db, dept, user)
		assert.NoError(t, db.Model(courier).Update("status", status).Error)
	}

	newCourier(opsDept, models.CourierStatusOnTheWay)
	newCourier(opsDept, models.CourierStatusReceived)
	newCourier(legalDept, models.CourierStatusCompleted)

	rc := createTestReceivedCourier(t, db, user)
	assert.NoError(t, db.Model(rc).Update("status", models.ReceivedCourierStatusDispatched).Error)
	createTestReceivedCourier(t, db, user)

	assert.NoError(t, db.Create(&models.Branch{
		Name: "Active", Code: "AC001", Address: "Addr", Pincode: "1",
		State: "S", Status: models.BranchStatusActive,
	}).Error)
	assert.NoError(t, db.Create(&models.Branch{
		Name: "Closed", Code: "CL900", Address: "Addr", Pincode: "1",
		State: "S", Status: models.BranchStatusClosed,
	}).Error)
	assert.NoError(t, db.Create(&models.Vendor{Name: "BlueDart", IsActive: true}).Error)
	assert.NoError(t, db.Create(&models.AuthorityLetterTemplate{
		DepartmentID: opsDept.ID, Name: "Default", Content: "##name##",
		CreatedByID: user.ID, IsActive: true,
	}).Error)

	t.Run("global stats", func(t *testing.T) {
		stats, err := GetDashboardStats(db, "")
		assert.NoError(t, err)

		assert.Equal(t, int64(3), stats.TotalCouriers)
		assert.Equal(t, int64(1), stats.CouriersByStatus["on_the_way"])
		assert.Equal(t, int64(1), stats.CouriersByStatus["completed"])
		assert.Equal(t, int64(2), stats.TotalReceived)
		assert.Equal(t, int64(1), stats.ReceivedByStatus["dispatched"])
		assert.Equal(t, int64(1), stats.ActiveBranches)
		assert.Equal(t, int64(1), stats.ClosedBranches)
		assert.Equal(t, int64(1), stats.TotalVendors)
		assert.Equal(t, int64(1), stats.TotalTemplates)
		assert.Equal(t, int64(1), stats.PendingConfirmations)
		assert.Equal(t, int64(3), stats.CouriersThisMonth)

		thisMonth := time.Now().UTC().Format("2006-01")
		found := false
		for _, mc := range stats.MonthlyCourierCounts {
			if mc.Month == thisMonth {
				assert.Equal(t, int64(3), mc.Count)
				found = true
			}
		}
		assert.True(t, found, "current month must appear in the trailing counts")
	})

	t.Run("department scoping applies to courier counts only", func(t *testing.T) {
		stats, err := GetDashboardStats(db, opsDept.ID)
		assert.NoError(t, err)

		assert.Equal(t, int64(2), stats.TotalCouriers)
		assert.Zero(t, stats.CouriersByStatus["completed"])
		// Shared counters stay global
		assert.Equal(t, int64(2), stats.TotalReceived)
		assert.Equal(t, int64(1), stats.ActiveBranches)
	})
}
