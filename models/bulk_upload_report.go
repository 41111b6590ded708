package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BulkUploadReport is the persisted dry-run result of a branch bulk upload.
// The validate step writes one, the commit step consumes it by id, so the
// client never has to resend the file together with an approval flag.
type BulkUploadReport struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UploadedByID string `gorm:"type:uuid;not null;index" json:"uploaded_by_id"`

	// Parsed rows and per-row verdicts, JSON encoded
	Rows string `gorm:"type:text;not null" json:"-"`

	TotalRows     int  `json:"total_rows"`
	ValidRows     int  `json:"valid_rows"`
	DuplicateRows int  `json:"duplicate_rows"`
	InvalidRows   int  `json:"invalid_rows"`
	Consumed      bool `gorm:"not null;default:false" json:"consumed"`

	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
}

// BeforeCreate hook to generate UUID
func (r *BulkUploadReport) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// IsExpired checks if the report has expired
func (r *BulkUploadReport) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

// TableName specifies the table name
func (BulkUploadReport) TableName() string {
	return "bulk_upload_reports"
}
