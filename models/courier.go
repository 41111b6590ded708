package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CourierStatus represents the lifecycle state of an outbound courier
type CourierStatus string

const (
	CourierStatusOnTheWay  CourierStatus = "on_the_way"
	CourierStatusReceived  CourierStatus = "received"
	CourierStatusCompleted CourierStatus = "completed"
	CourierStatusDeleted   CourierStatus = "deleted"
)

// IsValidCourierStatus checks if the status is a member of the courier enum
func IsValidCourierStatus(s CourierStatus) bool {
	switch s {
	case CourierStatusOnTheWay, CourierStatusReceived, CourierStatusCompleted, CourierStatusDeleted:
		return true
	}
	return false
}

// Courier represents an outbound courier dispatched to a branch or recipient
type Courier struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	DepartmentID string  `gorm:"type:uuid;not null;index" json:"department_id"`
	CreatedByID  string  `gorm:"type:uuid;not null;index" json:"created_by_id"`
	VendorID     *string `gorm:"type:uuid;index" json:"vendor_id,omitempty"`
	ToBranchID   *string `gorm:"type:uuid;index" json:"to_branch_id,omitempty"`

	PODNumber   string    `gorm:"not null;index" json:"pod_number"`
	CourierDate time.Time `gorm:"not null;index" json:"courier_date"` // date-only semantics

	// Free-text recipient details, used when the destination is not a branch
	RecipientName  string `json:"recipient_name"`
	RecipientPhone string `json:"recipient_phone"`
	Address        string `gorm:"type:text" json:"address"`
	Remarks        string `gorm:"type:text" json:"remarks"`
	Details        string `gorm:"type:text" json:"details"`

	Status       CourierStatus `gorm:"not null;default:on_the_way;index" json:"status"`
	ReceivedDate *time.Time    `json:"received_date,omitempty"`

	// Uploaded proof-of-delivery copy (pdf/jpg/png)
	PODCopyPath         *string `json:"pod_copy_path,omitempty"`
	PODCopyOriginalName *string `json:"pod_copy_original_name,omitempty"`

	// Relationships
	Department Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	CreatedBy  User       `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	Vendor     *Vendor    `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
	ToBranch   *Branch    `gorm:"foreignKey:ToBranchID" json:"to_branch,omitempty"`
}

// BeforeCreate hook to generate UUID
func (c *Courier) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Courier) TableName() string {
	return "couriers"
}
