package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Department groups couriers, branches and authority letter templates
type Department struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name string `gorm:"uniqueIndex;not null" json:"name"`

	// Legacy single-document path kept for departments migrated from the
	// pre-template era. New departments use AuthorityLetterTemplate rows.
	LegacyDocumentPath *string `json:"legacy_document_path,omitempty"`

	// Relationships
	Branches  []Branch                  `gorm:"foreignKey:DepartmentID" json:"branches,omitempty"`
	Templates []AuthorityLetterTemplate `gorm:"foreignKey:DepartmentID" json:"templates,omitempty"`
}

// BeforeCreate hook to generate UUID
func (d *Department) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Department) TableName() string {
	return "departments"
}
