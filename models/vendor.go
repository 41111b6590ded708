package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vendor represents a courier company couriers are dispatched through
type Vendor struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name          string  `gorm:"uniqueIndex;not null" json:"name"`
	ContactPerson *string `json:"contact_person,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	Email         *string `json:"email,omitempty"`
	TrackingURL   *string `json:"tracking_url,omitempty"` // optional URL pattern for the vendor's tracking page
	IsActive      bool    `gorm:"not null;default:true" json:"is_active"`
}

// BeforeCreate hook to generate UUID
func (v *Vendor) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Vendor) TableName() string {
	return "vendors"
}
