package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Branch statuses
const (
	BranchStatusActive = "active"
	BranchStatusClosed = "closed"
)

// Branch represents a company branch office couriers can be addressed to
type Branch struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name    string `gorm:"not null" json:"name"`
	Code    string `gorm:"uniqueIndex;not null" json:"code"`
	Address string `gorm:"type:text;not null" json:"address"`
	Pincode string `gorm:"not null" json:"pincode"`
	State   string `gorm:"not null" json:"state"`

	Email     *string  `json:"email,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	Status string `gorm:"not null;default:active;index" json:"status"` // active, closed

	DepartmentID *string `gorm:"type:uuid;index" json:"department_id,omitempty"`

	// Relationships
	Department *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
}

// BeforeCreate hook to generate UUID
func (b *Branch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}

// IsValidBranchStatus checks if the status is valid
func IsValidBranchStatus(status string) bool {
	return status == BranchStatusActive || status == BranchStatusClosed
}

// TableName specifies the table name
func (Branch) TableName() string {
	return "branches"
}
