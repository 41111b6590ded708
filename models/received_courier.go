package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReceivedCourierStatus represents the lifecycle state of an inbound courier
type ReceivedCourierStatus string

const (
	ReceivedCourierStatusReceived   ReceivedCourierStatus = "received"   // logged at the mailroom, ready to dispatch internally
	ReceivedCourierStatusDispatched ReceivedCourierStatus = "dispatched" // sent on to the addressee, awaiting confirmation
	ReceivedCourierStatusDelivered  ReceivedCourierStatus = "delivered"  // addressee confirmed via emailed link
)

// Email delivery states recorded on the row so admins can see whether
// the dispatch notification actually went out.
const (
	EmailStatusSent   = "sent"
	EmailStatusFailed = "failed"
)

// ReceivedCourier represents an inbound courier logged at the mailroom
type ReceivedCourier struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PODNumber   string    `gorm:"uniqueIndex;not null" json:"pod_number"`
	ReceiveDate time.Time `gorm:"not null;index" json:"receive_date"`

	SenderName    string `json:"sender_name"`
	SenderAddress string `gorm:"type:text" json:"sender_address"`
	ReceiverName  string `gorm:"not null" json:"receiver_name"`
	ReceiverEmail string `gorm:"not null" json:"receiver_email"`
	Remarks       string `gorm:"type:text" json:"remarks"`

	// Either a department link or a free-text department name
	DepartmentID   *string `gorm:"type:uuid;index" json:"department_id,omitempty"`
	DepartmentName string  `json:"department_name,omitempty"`

	Status ReceivedCourierStatus `gorm:"not null;default:received;index" json:"status"`

	DispatchedAt *time.Time `json:"dispatched_at,omitempty"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`

	// One-time confirmation token; cleared when consumed
	ConfirmationToken *string `gorm:"index" json:"-"`

	// Best-effort notification bookkeeping (the state change is never rolled
	// back when the email fails; the failure is recorded here instead)
	LastEmailStatus string     `json:"last_email_status,omitempty"`
	LastEmailError  string     `json:"last_email_error,omitempty"`
	LastEmailAt     *time.Time `json:"last_email_at,omitempty"`

	CreatedByID string `gorm:"type:uuid;not null;index" json:"created_by_id"`

	// Relationships
	Department *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	CreatedBy  User        `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
}

// BeforeCreate hook to generate UUID
func (r *ReceivedCourier) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (ReceivedCourier) TableName() string {
	return "received_couriers"
}
