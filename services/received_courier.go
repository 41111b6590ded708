package services

import (
	"fmt"
	"log"
	"time"

	"courier_track_go/config"
	"courier_track_go/models"

	"gorm.io/gorm"
)

// ErrAlreadyConfirmed is returned when a confirmation token is used twice
// or does not match any dispatched courier. Handlers map it to 409.
var ErrAlreadyConfirmed = fmt.Errorf("confirmation already processed or token invalid")

// DispatchReceivedCourier flips an inbound courier from received to
// dispatched and sends the addressee a notification email carrying a one-time
// confirmation link.
//
// The email is best-effort: a send failure never rolls back the status
// change. The outcome is recorded on the row (LastEmailStatus/LastEmailError)
// so admins can see whether the notification went out.
func DispatchReceivedCourier(db *gorm.DB, cfg *config.Config, rc *models.ReceivedCourier, actor AuditContext) error {
	if rc.Status != models.ReceivedCourierStatusReceived {
		return ErrTransitionNotAllowed{
			From: string(rc.Status),
			To:   string(models.ReceivedCourierStatusDispatched),
		}
	}

	token, err := GenerateToken()
	if err != nil {
		return err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":             models.ReceivedCourierStatusDispatched,
		"dispatched_at":      now,
		"confirmation_token": token,
	}
	if err := db.Model(rc).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to dispatch courier: %w", err)
	}
	rc.Status = models.ReceivedCourierStatusDispatched
	rc.DispatchedAt = &now
	rc.ConfirmationToken = &token

	LogAuditEvent(db, actor, models.AuditActionDispatch, "ReceivedCourier", rc.ID, rc.PODNumber,
		"Courier dispatched to addressee",
		map[string]interface{}{"status": models.ReceivedCourierStatusReceived},
		map[string]interface{}{"status": models.ReceivedCourierStatusDispatched},
	)

	// Notify the addressee in the background and record the outcome
	settings := GetEmailSettings(db)
	confirmLink := fmt.Sprintf("%s/api/received-couriers/confirm?token=%s", BaseURL(cfg, settings), token)
	email := BuildDispatchNotificationEmail(rc.ReceiverEmail, DispatchNotificationEmailData{
		ReceiverName: rc.ReceiverName,
		PODNumber:    rc.PODNumber,
		SenderName:   rc.SenderName,
		ReceiveDate:  rc.ReceiveDate.Format("2006-01-02"),
		ConfirmLink:  confirmLink,
	})

	id := rc.ID
	go func() {
		sentAt := time.Now()
		emailUpdates := map[string]interface{}{
			"last_email_status": models.EmailStatusSent,
			"last_email_error":  "",
			"last_email_at":     sentAt,
		}
		if err := SendEmail(cfg, settings, email); err != nil {
			emailUpdates["last_email_status"] = models.EmailStatusFailed
			emailUpdates["last_email_error"] = err.Error()
		}
		if err := db.Model(&models.ReceivedCourier{}).Where("id = ?", id).Updates(emailUpdates).Error; err != nil {
			log.Printf("failed to record email status for courier %s: %v", id, err)
		}
	}()

	return nil
}

// ConfirmReceivedCourier consumes a one-time confirmation token, flipping the
// courier to delivered. The token is cleared in the same conditional UPDATE
// that checks it, so a second use of the same token finds no row and fails
// with ErrAlreadyConfirmed instead of silently succeeding.
func ConfirmReceivedCourier(db *gorm.DB, token string) (*models.ReceivedCourier, error) {
	if token == "" {
		return nil, ErrAlreadyConfirmed
	}

	var rc models.ReceivedCourier
	if err := db.Where("confirmation_token = ? AND status = ?", token, models.ReceivedCourierStatusDispatched).
		First(&rc).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrAlreadyConfirmed
		}
		return nil, fmt.Errorf("failed to look up confirmation token: %w", err)
	}

	// Clear the token in the same conditional UPDATE that checks it, so a
	// concurrent second use finds no matching row
	now := time.Now()
	result := db.Model(&models.ReceivedCourier{}).
		Where("id = ? AND confirmation_token = ?", rc.ID, token).
		Updates(map[string]interface{}{
			"status":             models.ReceivedCourierStatusDelivered,
			"confirmed_at":       now,
			"confirmation_token": nil,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to confirm courier: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrAlreadyConfirmed
	}

	rc.Status = models.ReceivedCourierStatusDelivered
	rc.ConfirmedAt = &now
	rc.ConfirmationToken = nil

	LogAuditEvent(db, AuditContext{UserName: rc.ReceiverName, UserRole: "recipient"},
		models.AuditActionConfirm, "ReceivedCourier", rc.ID, rc.PODNumber,
		"Receipt confirmed via emailed link", nil, nil)

	return &rc, nil
}
