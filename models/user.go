package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles
const (
	RoleAdmin    = "admin"
	RoleSubAdmin = "sub_admin"
	RoleManager  = "manager"
	RoleUser     = "user"
)

type User struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name         string  `gorm:"not null" json:"name"`
	Email        string  `gorm:"uniqueIndex;not null" json:"email"`
	EmployeeCode string  `gorm:"uniqueIndex;not null" json:"employee_code"`
	Password     string  `gorm:"not null" json:"-"`
	Role         string  `gorm:"not null;default:user" json:"role"` // admin, sub_admin, manager, user
	DepartmentID *string `gorm:"type:uuid;index" json:"department_id"`
	Phone        *string `json:"phone,omitempty"`
	ProfileImage *string `json:"profile_image,omitempty"`
	IsActive     bool    `gorm:"not null;default:true" json:"is_active"`

	LastLoginAt *time.Time `json:"last_login_at"`

	// Relationships
	Department *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
}

// BeforeCreate hook to generate UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// IsValidRole checks if the role is one of the supported roles
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleSubAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}
