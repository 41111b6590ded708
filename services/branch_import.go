package services

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"courier_track_go/models"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// BulkReportExpiration is how long a validation report stays committable
const BulkReportExpiration = 1 * time.Hour

// branchCSVHeader is the fixed header contract for branch bulk uploads
var branchCSVHeader = []string{"name", "code", "address", "pincode", "state", "email", "latitude", "longitude"}

// ErrTooManyRows is returned when an upload exceeds the configured row cap.
// Handlers map it to 413.
type ErrTooManyRows struct {
	Rows  int
	Limit int
}

func (e ErrTooManyRows) Error() string {
	return fmt.Sprintf("file contains %d rows, exceeding the limit of %d", e.Rows, e.Limit)
}

// BranchRow is one parsed data row of a branch upload
type BranchRow struct {
	Line      int    `json:"line"` // 1-based line in the source file, header excluded
	Name      string `json:"name"`
	Code      string `json:"code"`
	Address   string `json:"address"`
	Pincode   string `json:"pincode"`
	State     string `json:"state"`
	Email     string `json:"email,omitempty"`
	Latitude  string `json:"latitude,omitempty"`
	Longitude string `json:"longitude,omitempty"`
}

// Row verdict statuses
const (
	RowVerdictValid     = "valid"
	RowVerdictDuplicate = "duplicate"
	RowVerdictInvalid   = "invalid"
)

// RowVerdict is the per-row result of validation
type RowVerdict struct {
	Row         BranchRow    `json:"row"`
	Status      string       `json:"status"`
	DuplicateOf string       `json:"duplicate_of,omitempty"` // "database" or "batch"
	Errors      []FieldError `json:"errors,omitempty"`
}

// BulkValidationResult summarizes a dry-run validation
type BulkValidationResult struct {
	ReportID         string       `json:"report_id,omitempty"`
	TotalRows        int          `json:"total_rows"`
	ValidRows        int          `json:"valid_rows"`
	DuplicateRows    int          `json:"duplicate_rows"`
	InvalidRows      int          `json:"invalid_rows"`
	RequiresApproval bool         `json:"requires_approval"`
	Verdicts         []RowVerdict `json:"verdicts"`
}

// BulkCommitResult reports what a commit actually inserted
type BulkCommitResult struct {
	Inserted int          `json:"inserted"`
	Skipped  []RowVerdict `json:"skipped"`
}

// ParseBranchFile reads branch rows from a CSV or XLSX upload. The first row
// must be the fixed header; column order is fixed by the header contract.
func ParseBranchFile(filename string, file io.Reader, limit int) ([]BranchRow, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var records [][]string
	var err error
	switch ext {
	case ".xlsx":
		records, err = readXLSXRows(file)
	default: // .csv and anything else claiming to be text
		records, err = readCSVRows(file)
	}
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("file is empty")
	}
	if len(records)-1 > limit {
		return nil, ErrTooManyRows{Rows: len(records) - 1, Limit: limit}
	}

	var rows []BranchRow
	for i, record := range records {
		if i == 0 {
			continue // header
		}
		// Pad short records so optional trailing columns can be omitted
		for len(record) < len(branchCSVHeader) {
			record = append(record, "")
		}
		row := BranchRow{
			Line:      i,
			Name:      strings.TrimSpace(record[0]),
			Code:      strings.TrimSpace(record[1]),
			Address:   strings.TrimSpace(record[2]),
			Pincode:   strings.TrimSpace(record[3]),
			State:     strings.TrimSpace(record[4]),
			Email:     strings.TrimSpace(record[5]),
			Latitude:  strings.TrimSpace(record[6]),
			Longitude: strings.TrimSpace(record[7]),
		}
		// Skip fully blank lines
		if row.Name == "" && row.Code == "" && row.Address == "" {
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func readCSVRows(file io.Reader) ([][]string, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // validated per row
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return records, nil
}

func readXLSXRows(file io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read excel rows: %w", err)
	}
	return rows, nil
}

// ValidateBranchRows checks each row against the branch schema and detects
// duplicate codes both against existing branches and within the batch itself
func ValidateBranchRows(db *gorm.DB, rows []BranchRow) *BulkValidationResult {
	result := &BulkValidationResult{TotalRows: len(rows)}

	// Existing codes, including soft-deleted branches: codes are unique forever
	existingCodes := make(map[string]struct{})
	var codes []string
	if err := db.Unscoped().Model(&models.Branch{}).Pluck("code", &codes).Error; err == nil {
		for _, c := range codes {
			existingCodes[strings.ToUpper(c)] = struct{}{}
		}
	}

	seenInBatch := make(map[string]struct{})

	for _, row := range rows {
		verdict := RowVerdict{Row: row, Status: RowVerdictValid}

		if errs := validateBranchRow(row); len(errs) > 0 {
			verdict.Status = RowVerdictInvalid
			verdict.Errors = errs
		} else {
			code := strings.ToUpper(row.Code)
			if _, ok := existingCodes[code]; ok {
				verdict.Status = RowVerdictDuplicate
				verdict.DuplicateOf = "database"
			} else if _, ok := seenInBatch[code]; ok {
				verdict.Status = RowVerdictDuplicate
				verdict.DuplicateOf = "batch"
			}
			seenInBatch[code] = struct{}{}
		}

		switch verdict.Status {
		case RowVerdictValid:
			result.ValidRows++
		case RowVerdictDuplicate:
			result.DuplicateRows++
		case RowVerdictInvalid:
			result.InvalidRows++
		}
		result.Verdicts = append(result.Verdicts, verdict)
	}

	result.RequiresApproval = result.DuplicateRows > 0 || result.InvalidRows > 0
	return result
}

func validateBranchRow(row BranchRow) []FieldError {
	var errs []FieldError

	required := []struct {
		field string
		value string
	}{
		{"name", row.Name},
		{"code", row.Code},
		{"address", row.Address},
		{"pincode", row.Pincode},
		{"state", row.State},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, FieldError{Field: r.field, Message: r.field + " is required"})
		}
	}

	if row.Email != "" && !strings.Contains(row.Email, "@") {
		errs = append(errs, FieldError{Field: "email", Message: "invalid email address", Value: row.Email})
	}
	if row.Latitude != "" {
		if _, err := strconv.ParseFloat(row.Latitude, 64); err != nil {
			errs = append(errs, FieldError{Field: "latitude", Message: "invalid coordinate", Value: row.Latitude})
		}
	}
	if row.Longitude != "" {
		if _, err := strconv.ParseFloat(row.Longitude, 64); err != nil {
			errs = append(errs, FieldError{Field: "longitude", Message: "invalid coordinate", Value: row.Longitude})
		}
	}

	return errs
}

// CreateBulkUploadReport persists a dry-run validation so the commit step can
// reference it by id instead of resending the file
func CreateBulkUploadReport(db *gorm.DB, userID string, result *BulkValidationResult) (*models.BulkUploadReport, error) {
	rowsJSON, err := json.Marshal(result.Verdicts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report rows: %w", err)
	}

	report := &models.BulkUploadReport{
		UploadedByID:  userID,
		Rows:          string(rowsJSON),
		TotalRows:     result.TotalRows,
		ValidRows:     result.ValidRows,
		DuplicateRows: result.DuplicateRows,
		InvalidRows:   result.InvalidRows,
		ExpiresAt:     time.Now().Add(BulkReportExpiration),
	}
	if err := db.Create(report).Error; err != nil {
		return nil, fmt.Errorf("failed to save bulk upload report: %w", err)
	}

	result.ReportID = report.ID
	return report, nil
}

// CommitBulkUploadReport inserts the valid rows of a previously validated
// report. Duplicates are never overwritten, only skipped and enumerated. The
// report is single-use.
func CommitBulkUploadReport(db *gorm.DB, reportID, userID string, actor AuditContext) (*BulkCommitResult, error) {
	var report models.BulkUploadReport
	if err := db.First(&report, "id = ?", reportID).Error; err != nil {
		return nil, fmt.Errorf("report not found")
	}
	if report.Consumed {
		return nil, fmt.Errorf("report already committed")
	}
	if report.IsExpired() {
		return nil, fmt.Errorf("report has expired, re-validate the file")
	}
	if report.UploadedByID != userID {
		return nil, fmt.Errorf("report belongs to a different user")
	}

	var verdicts []RowVerdict
	if err := json.Unmarshal([]byte(report.Rows), &verdicts); err != nil {
		return nil, fmt.Errorf("failed to decode report rows: %w", err)
	}

	commit, err := insertBranchRows(db, verdicts, actor)
	if err != nil {
		return nil, err
	}

	if err := db.Model(&report).Update("consumed", true).Error; err != nil {
		return nil, fmt.Errorf("failed to mark report consumed: %w", err)
	}

	return commit, nil
}

// BulkUploadBranches is the single-shot path: validate and, when approved (or
// clean), insert in one request. Without the approval flag any duplicate or
// invalid row blocks the whole batch.
func BulkUploadBranches(db *gorm.DB, rows []BranchRow, approveDuplicates bool, actor AuditContext) (*BulkValidationResult, *BulkCommitResult, error) {
	result := ValidateBranchRows(db, rows)

	if result.RequiresApproval && !approveDuplicates {
		// All-or-nothing gate pending admin confirmation: nothing inserted
		return result, nil, nil
	}

	commit, err := insertBranchRows(db, result.Verdicts, actor)
	if err != nil {
		return result, nil, err
	}
	return result, commit, nil
}

// insertBranchRows inserts valid rows inside one transaction, re-checking
// codes against the database so rows that became duplicates since validation
// are skipped rather than failing the batch
func insertBranchRows(db *gorm.DB, verdicts []RowVerdict, actor AuditContext) (*BulkCommitResult, error) {
	commit := &BulkCommitResult{}

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, verdict := range verdicts {
		if verdict.Status != RowVerdictValid {
			commit.Skipped = append(commit.Skipped, verdict)
			continue
		}

		var count int64
		if err := tx.Unscoped().Model(&models.Branch{}).
			Where("code = ? COLLATE NOCASE", verdict.Row.Code).
			Count(&count).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to check branch code: %w", err)
		}
		if count > 0 {
			verdict.Status = RowVerdictDuplicate
			verdict.DuplicateOf = "database"
			commit.Skipped = append(commit.Skipped, verdict)
			continue
		}

		branch := models.Branch{
			Name:    verdict.Row.Name,
			Code:    verdict.Row.Code,
			Address: verdict.Row.Address,
			Pincode: verdict.Row.Pincode,
			State:   verdict.Row.State,
			Status:  models.BranchStatusActive,
		}
		if verdict.Row.Email != "" {
			branch.Email = &verdict.Row.Email
		}
		if lat, err := strconv.ParseFloat(verdict.Row.Latitude, 64); err == nil && verdict.Row.Latitude != "" {
			branch.Latitude = &lat
		}
		if lng, err := strconv.ParseFloat(verdict.Row.Longitude, 64); err == nil && verdict.Row.Longitude != "" {
			branch.Longitude = &lng
		}

		if err := tx.Create(&branch).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to insert branch %s: %w", verdict.Row.Code, err)
		}
		commit.Inserted++
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	LogAuditEvent(db, actor, models.AuditActionBulkImport, "Branch", "bulk", "",
		fmt.Sprintf("Bulk import: %d inserted, %d skipped", commit.Inserted, len(commit.Skipped)),
		nil, map[string]interface{}{"inserted": commit.Inserted, "skipped": len(commit.Skipped)},
	)

	return commit, nil
}

// CleanupExpiredReports deletes validation reports past their expiry
func CleanupExpiredReports(db *gorm.DB) error {
	result := db.Where("expires_at < ?", time.Now()).Delete(&models.BulkUploadReport{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("Cleaned up %d expired bulk upload reports", result.RowsAffected)
	}
	return nil
}

// SampleBranchCSV returns the downloadable sample file documenting the
// branch upload header contract
func SampleBranchCSV() []byte {
	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.Write(branchCSVHeader)
	_ = w.Write([]string{"Head Office", "HO001", "12 Main Street, Center", "400001", "Maharashtra", "ho@example.com", "19.0760", "72.8777"})
	_ = w.Write([]string{"Pune Branch", "PN002", "5 FC Road", "411004", "Maharashtra", "", "", ""})
	w.Flush()
	return []byte(b.String())
}
