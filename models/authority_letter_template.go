package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuthorityLetterTemplate holds the HTML content (and optionally an uploaded
// Word document) an authority letter is generated from. Placeholders use the
// ##field_name## form and are defined by the template's AuthorityLetterFields.
type AuthorityLetterTemplate struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	DepartmentID string `gorm:"type:uuid;not null;index" json:"department_id"`

	Name    string `gorm:"not null" json:"name"`
	Content string `gorm:"type:text;not null" json:"content"` // sanitized HTML with ##placeholder## tokens

	// When a Word document is attached, generation substitutes placeholders
	// inside the document XML and emits DOCX instead of rendering PDF.
	WordFilePath     *string `json:"word_file_path,omitempty"`
	WordOriginalName *string `json:"word_original_name,omitempty"`

	IsDefault bool `gorm:"not null;default:false" json:"is_default"`
	IsActive  bool `gorm:"not null;default:true" json:"is_active"`

	CreatedByID string `gorm:"type:uuid;not null" json:"created_by_id"`

	// PDF settings used when rendering the HTML path
	PageOrientation string `gorm:"not null;default:portrait" json:"page_orientation"`
	PageSize        string `gorm:"not null;default:A4" json:"page_size"`

	// Relationships
	Department Department             `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	CreatedBy  User                   `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	Fields     []AuthorityLetterField `gorm:"foreignKey:TemplateID" json:"fields,omitempty"`
}

// HasWordDocument reports whether generation should take the DOCX path
func (t *AuthorityLetterTemplate) HasWordDocument() bool {
	return t.WordFilePath != nil && *t.WordFilePath != ""
}

// BeforeCreate hook to generate UUID
func (t *AuthorityLetterTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (AuthorityLetterTemplate) TableName() string {
	return "authority_letter_templates"
}
