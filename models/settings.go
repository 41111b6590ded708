package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmailSettings is a single-row table of runtime email configuration,
// editable by admins. Values here override the environment defaults.
type EmailSettings struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	FromName    string `json:"from_name"`
	FromAddress string `json:"from_address"`
	TestMode    bool   `gorm:"not null;default:true" json:"test_mode"`
	// Overrides config.AppURL in confirmation links when set
	BaseURL string `json:"base_url"`

	UpdatedByID *string `gorm:"type:uuid" json:"updated_by_id,omitempty"`
}

// BeforeCreate hook to generate UUID
func (s *EmailSettings) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (EmailSettings) TableName() string {
	return "email_settings"
}

// SamlSettings is a single-row table of SSO configuration. The handshake
// itself is handled by an external identity provider integration; this
// service only stores and exposes the configuration.
type SamlSettings struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Enabled     bool   `gorm:"not null;default:false" json:"enabled"`
	EntityID    string `json:"entity_id"`
	SSOURL      string `json:"sso_url"`
	Certificate string `gorm:"type:text" json:"certificate"`

	UpdatedByID *string `gorm:"type:uuid" json:"updated_by_id,omitempty"`
}

// BeforeCreate hook to generate UUID
func (s *SamlSettings) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (SamlSettings) TableName() string {
	return "saml_settings"
}
