package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"courier_track_go/models"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ExportCouriersCSV writes couriers whose courier_date falls inside the
// inclusive [from, to] range. Zero dates leave that bound open.
func ExportCouriersCSV(db *gorm.DB, from, to time.Time) ([]byte, error) {
	query := db.Model(&models.Courier{}).
		Preload("Department").
		Preload("Vendor").
		Preload("ToBranch").
		Preload("CreatedBy").
		Order("courier_date ASC, created_at ASC")

	if !from.IsZero() {
		query = query.Where("courier_date >= ?", DateOnly(from))
	}
	if !to.IsZero() {
		// Inclusive upper bound: anything before the next midnight
		query = query.Where("courier_date < ?", DateOnly(to).AddDate(0, 0, 1))
	}

	var couriers []models.Courier
	if err := query.Find(&couriers).Error; err != nil {
		return nil, fmt.Errorf("failed to load couriers: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"pod_number", "courier_date", "status", "department", "vendor", "to_branch", "recipient_name", "recipient_phone", "address", "received_date", "remarks", "created_by"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, c := range couriers {
		receivedDate := ""
		if c.ReceivedDate != nil {
			receivedDate = c.ReceivedDate.Format("2006-01-02")
		}
		vendorName, branchName := "", ""
		if c.Vendor != nil {
			vendorName = c.Vendor.Name
		}
		if c.ToBranch != nil {
			branchName = c.ToBranch.Name
		}
		record := []string{
			c.PODNumber,
			c.CourierDate.Format("2006-01-02"),
			string(c.Status),
			c.Department.Name,
			vendorName,
			branchName,
			c.RecipientName,
			c.RecipientPhone,
			c.Address,
			receivedDate,
			c.Remarks,
			c.CreatedBy.Name,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportBranchesCSV writes branches, optionally filtered by status
func ExportBranchesCSV(db *gorm.DB, status string) ([]byte, error) {
	branches, err := loadBranchesForExport(db, status)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"name", "code", "address", "pincode", "state", "email", "latitude", "longitude", "status"}); err != nil {
		return nil, err
	}
	for _, b := range branches {
		if err := w.Write(branchExportRecord(b)); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportBranchesXLSX writes the same branch listing as a spreadsheet
func ExportBranchesXLSX(db *gorm.DB, status string) ([]byte, error) {
	branches, err := loadBranchesForExport(db, status)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := []interface{}{"Name", "Code", "Address", "Pincode", "State", "Email", "Latitude", "Longitude", "Status"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, b := range branches {
		record := branchExportRecord(b)
		row := make([]interface{}, len(record))
		for j, v := range record {
			row[j] = v
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func loadBranchesForExport(db *gorm.DB, status string) ([]models.Branch, error) {
	query := db.Model(&models.Branch{}).Order("code ASC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var branches []models.Branch
	if err := query.Find(&branches).Error; err != nil {
		return nil, fmt.Errorf("failed to load branches: %w", err)
	}
	return branches, nil
}

func branchExportRecord(b models.Branch) []string {
	email := ""
	if b.Email != nil {
		email = *b.Email
	}
	lat, lng := "", ""
	if b.Latitude != nil {
		lat = fmt.Sprintf("%g", *b.Latitude)
	}
	if b.Longitude != nil {
		lng = fmt.Sprintf("%g", *b.Longitude)
	}
	return []string{b.Name, b.Code, b.Address, b.Pincode, b.State, email, lat, lng, string(b.Status)}
}

// ExportAuditLogsCSV writes audit entries created inside the inclusive
// [from, to] date range
func ExportAuditLogsCSV(db *gorm.DB, from, to time.Time) ([]byte, error) {
	query := db.Model(&models.AuditLog{}).Order("created_at ASC")
	if !from.IsZero() {
		query = query.Where("created_at >= ?", DateOnly(from))
	}
	if !to.IsZero() {
		query = query.Where("created_at < ?", DateOnly(to).AddDate(0, 0, 1))
	}

	var logs []models.AuditLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to load audit logs: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"timestamp", "user", "role", "action", "resource_type", "resource_id", "resource_name", "description", "ip_address"}); err != nil {
		return nil, err
	}
	for _, l := range logs {
		record := []string{
			l.CreatedAt.Format(time.RFC3339),
			l.UserName,
			l.UserRole,
			string(l.Action),
			l.ResourceType,
			l.ResourceID,
			l.ResourceName,
			l.Description,
			l.IPAddress,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}
