package services

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"courier_track_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"
)

func parseCSV(t *testing.T, data []byte) [][]string {
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	assert.NoError(t, err)
	return records
}

func TestExportCouriersCSV(t *testing.T) {
	db := setupServiceTestDB(t)
	user := createTestUser(t, db)
	dept := createTestDepartment(t, db)

	day := func(d string) time.Time {
		parsed, err := ParseDate(d)
		assert.NoError(t, err)
		return parsed
	}

	for i, date := range []string{"2025-03-01", "2025-03-15", "2025-03-31", "2025-04-01"} {
		courier := &models.Courier{
			DepartmentID:  dept.ID,
			CreatedByID:   user.ID,
			PODNumber:     "EXP-" + date,
			CourierDate:   day(date),
			RecipientName: "Recipient",
			Status:        models.CourierStatusOnTheWay,
		}
		assert.NoError(t, db.Create(courier).Error, i)
	}

	t.Run("date bounds are inclusive", func(t *testing.T) {
		data, err := ExportCouriersCSV(db, day("2025-03-01"), day("2025-03-31"))
		assert.NoError(t, err)

		records := parseCSV(t, data)
		assert.Len(t, records, 4) // header + three March couriers
		assert.Equal(t, "pod_number", records[0][0])
		assert.Equal(t, "EXP-2025-03-01", records[1][0])
		assert.Equal(t, "EXP-2025-03-31", records[3][0])
	})

	t.Run("zero bounds leave the range open", func(t *testing.T) {
		data, err := ExportCouriersCSV(db, time.Time{}, time.Time{})
		assert.NoError(t, err)
		assert.Len(t, parseCSV(t, data), 5)
	})

	t.Run("relations resolve to names", func(t *testing.T) {
		data, err := ExportCouriersCSV(db, day("2025-03-01"), day("2025-03-01"))
		assert.NoError(t, err)

		records := parseCSV(t, data)
		assert.Len(t, records, 2)
		row := records[1]
		assert.Equal(t, dept.Name, row[3])
		assert.Empty(t, row[4], "no vendor set")
		assert.Equal(t, user.Name, row[11])
	})
}

func TestExportBranches(t *testing.T) {
	db := setupServiceTestDB(t)

	email := "mumbai@example.com"
	lat, lng := 19.076, 72.8777
	assert.NoError(t, db.Create(&models.Branch{
		Name: "Mumbai Central", Code: "MC001", Address: "12 Main St", Pincode: "400001",
		State: "Maharashtra", Email: &email, Latitude: &lat, Longitude: &lng,
		Status: models.BranchStatusActive,
	}).Error)
	assert.NoError(t, db.Create(&models.Branch{
		Name: "Closed Branch", Code: "CB001", Address: "Old Rd", Pincode: "110001",
		State: "Delhi", Status: models.BranchStatusClosed,
	}).Error)

	t.Run("CSV includes all branches ordered by code", func(t *testing.T) {
		data, err := ExportBranchesCSV(db, "")
		assert.NoError(t, err)

		records := parseCSV(t, data)
		assert.Len(t, records, 3)
		assert.Equal(t, "CB001", records[1][1])
		assert.Equal(t, "MC001", records[2][1])
		assert.Equal(t, "19.076", records[2][6])
	})

	t.Run("status filter applies", func(t *testing.T) {
		data, err := ExportBranchesCSV(db, models.BranchStatusActive)
		assert.NoError(t, err)

		records := parseCSV(t, data)
		assert.Len(t, records, 2)
		assert.Equal(t, "MC001", records[1][1])
	})

	t.Run("XLSX carries the same rows", func(t *testing.T) {
		data, err := ExportBranchesXLSX(db, "")
		assert.NoError(t, err)

		f, err := excelize.OpenReader(bytes.NewReader(data))
		assert.NoError(t, err)
		defer f.Close()

		rows, err := f.GetRows(f.GetSheetName(0))
		assert.NoError(t, err)
		assert.Len(t, rows, 3)
		assert.Equal(t, "Name", rows[0][0])
		assert.Equal(t, "CB001", rows[1][1])
	})
}

func TestExportAuditLogsCSV(t *testing.T) {
	db := setupServiceTestDB(t)
	user := createTestUser(t, db)

	logs := []models.AuditLog{
		{UserID: &user.ID, UserName: user.Name, UserRole: user.Role, Action: models.AuditActionLogin,
			ResourceType: "Session", ResourceID: user.ID, Description: "User logged in", IPAddress: "10.0.0.1"},
		{UserID: &user.ID, UserName: user.Name, UserRole: user.Role, Action: models.AuditActionCreate,
			ResourceType: "Courier", ResourceID: "some-id", Description: "Courier created", IPAddress: "10.0.0.1"},
	}
	for i := range logs {
		assert.NoError(t, db.Create(&logs[i]).Error)
	}

	data, err := ExportAuditLogsCSV(db, time.Time{}, time.Time{})
	assert.NoError(t, err)

	records := parseCSV(t, data)
	assert.Len(t, records, 3)
	assert.Equal(t, "timestamp", records[0][0])
	assert.Equal(t, user.Name, records[1][1])
	assert.Equal(t, "LOGIN", records[1][3])

	// Entries outside the range are excluded
	past, err := ExportAuditLogsCSV(db, mustParseDate("2020-01-01"), mustParseDate("2020-12-31"))
	assert.NoError(t, err)
	assert.Len(t, parseCSV(t, past), 1)
}

func mustParseDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}
