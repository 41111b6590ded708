package services

import (
	"time"

	"courier_track_go/models"

	"gorm.io/gorm"
)

// DashboardStats aggregates the counters shown on the dashboard
type DashboardStats struct {
	TotalCouriers         int64            `json:"total_couriers"`
	CouriersByStatus      map[string]int64 `json:"couriers_by_status"`
	TotalReceived         int64            `json:"total_received"`
	ReceivedByStatus      map[string]int64 `json:"received_by_status"`
	ActiveBranches        int64            `json:"active_branches"`
	ClosedBranches        int64            `json:"closed_branches"`
	TotalVendors          int64            `json:"total_vendors"`
	TotalTemplates        int64            `json:"total_templates"`
	CouriersThisMonth     int64            `json:"couriers_this_month"`
	ReceivedThisMonth     int64            `json:"received_this_month"`
	PendingConfirmations  int64            `json:"pending_confirmations"`
	MonthlyCourierCounts  []MonthlyCount   `json:"monthly_courier_counts"`
	MonthlyReceivedCounts []MonthlyCount   `json:"monthly_received_counts"`
}

// MonthlyCount is one month's courier volume
type MonthlyCount struct {
	Month string `json:"month"` // YYYY-MM
	Count int64  `json:"count"`
}

// GetDashboardStats computes the dashboard counters. When departmentID is
// non-empty, courier counts are scoped to that department.
func GetDashboardStats(db *gorm.DB, departmentID string) (*DashboardStats, error) {
	stats := &DashboardStats{
		CouriersByStatus: make(map[string]int64),
		ReceivedByStatus: make(map[string]int64),
	}

	courierQuery := func() *gorm.DB {
		q := db.Model(&models.Courier{})
		if departmentID != "" {
			q = q.Where("department_id = ?", departmentID)
		}
		return q
	}

	if err := courierQuery().Count(&stats.TotalCouriers).Error; err != nil {
		return nil, err
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var courierStatuses []statusCount
	if err := courierQuery().
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&courierStatuses).Error; err != nil {
		return nil, err
	}
	for _, sc := range courierStatuses {
		stats.CouriersByStatus[sc.Status] = sc.Count
	}

	if err := db.Model(&models.ReceivedCourier{}).Count(&stats.TotalReceived).Error; err != nil {
		return nil, err
	}
	var receivedStatuses []statusCount
	if err := db.Model(&models.ReceivedCourier{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&receivedStatuses).Error; err != nil {
		return nil, err
	}
	for _, sc := range receivedStatuses {
		stats.ReceivedByStatus[sc.Status] = sc.Count
	}

	db.Model(&models.Branch{}).Where("status = ?", models.BranchStatusActive).Count(&stats.ActiveBranches)
	db.Model(&models.Branch{}).Where("status = ?", models.BranchStatusClosed).Count(&stats.ClosedBranches)
	db.Model(&models.Vendor{}).Count(&stats.TotalVendors)
	db.Model(&models.AuthorityLetterTemplate{}).Where("is_active = ?", true).Count(&stats.TotalTemplates)

	monthStart := time.Date(time.Now().Year(), time.Now().Month(), 1, 0, 0, 0, 0, time.UTC)
	courierQuery().Where("created_at >= ?", monthStart).Count(&stats.CouriersThisMonth)
	db.Model(&models.ReceivedCourier{}).Where("created_at >= ?", monthStart).Count(&stats.ReceivedThisMonth)
	db.Model(&models.ReceivedCourier{}).Where("status = ?", models.ReceivedCourierStatusDispatched).Count(&stats.PendingConfirmations)

	var err error
	stats.MonthlyCourierCounts, err = monthlyCounts(courierQuery(), "courier_date")
	if err != nil {
		return nil, err
	}
	stats.MonthlyReceivedCounts, err = monthlyCounts(db.Model(&models.ReceivedCourier{}), "receive_date")
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// monthlyCounts groups rows by month over the trailing twelve months
func monthlyCounts(query *gorm.DB, dateColumn string) ([]MonthlyCount, error) {
	since := time.Now().AddDate(-1, 0, 0)

	var counts []MonthlyCount
	err := query.
		Select("strftime('%Y-%m', "+dateColumn+") as month, COUNT(*) as count").
		Where(dateColumn+" >= ?", since).
		Group("month").
		Order("month ASC").
		Scan(&counts).Error
	return counts, err
}
