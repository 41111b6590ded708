package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Field types
const (
	FieldTypeText     = "text"
	FieldTypeNumber   = "number"
	FieldTypeDate     = "date"
	FieldTypeTextarea = "textarea"
	FieldTypeDropdown = "dropdown"
)

// Text transforms (FieldTypeText / FieldTypeTextarea / FieldTypeDropdown)
const (
	TextFormatNone            = "none"
	TextFormatSentence        = "sentence"
	TextFormatLowercase       = "lowercase"
	TextFormatUppercase       = "uppercase"
	TextFormatCapitalizeWords = "capitalize_words"
	TextFormatToggle          = "toggle"
)

// Number formats (FieldTypeNumber)
const (
	NumberFormatPlain      = "plain"
	NumberFormatWithCommas = "with_commas"
)

// AuthorityLetterField defines one ##placeholder## of a template: it drives
// both the dynamic form the client renders and the substitution step.
type AuthorityLetterField struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	TemplateID string `gorm:"type:uuid;not null;index" json:"template_id"`

	Name     string `gorm:"not null" json:"name"`  // placeholder name, matched literally as ##name##
	Label    string `gorm:"not null" json:"label"` // display label for the form
	Type     string `gorm:"not null;default:text" json:"type"`
	Format   string `gorm:"not null;default:none" json:"format"` // text transform, number format or date pattern
	Required bool   `gorm:"not null;default:false" json:"required"`
	SortOrder int   `gorm:"not null;default:0;index" json:"sort_order"`

	// Relationships
	Template        AuthorityLetterTemplate `gorm:"foreignKey:TemplateID" json:"-"`
	DropdownOptions []FieldDropdownOption   `gorm:"foreignKey:FieldID" json:"dropdown_options,omitempty"`
}

// IsValidFieldType checks if the type is one of the supported field types
func IsValidFieldType(t string) bool {
	switch t {
	case FieldTypeText, FieldTypeNumber, FieldTypeDate, FieldTypeTextarea, FieldTypeDropdown:
		return true
	}
	return false
}

// BeforeCreate hook to generate UUID
func (f *AuthorityLetterField) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (AuthorityLetterField) TableName() string {
	return "authority_letter_fields"
}

// FieldDropdownOption is one selectable value of a dropdown field
type FieldDropdownOption struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	FieldID   string `gorm:"type:uuid;not null;index" json:"field_id"`
	Value     string `gorm:"not null" json:"value"`
	Label     string `gorm:"not null" json:"label"`
	SortOrder int    `gorm:"not null;default:0" json:"sort_order"`
}

// BeforeCreate hook to generate UUID
func (o *FieldDropdownOption) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (FieldDropdownOption) TableName() string {
	return "field_dropdown_options"
}
