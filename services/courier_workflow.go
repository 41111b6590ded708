package services

import (
	"fmt"
	"time"

	"courier_track_go/models"

	"gorm.io/gorm"
)

// ErrTransitionNotAllowed is returned when a status change violates a
// courier lifecycle. Handlers map it to 409.
type ErrTransitionNotAllowed struct {
	From string
	To   string
}

func (e ErrTransitionNotAllowed) Error() string {
	return fmt.Sprintf("status transition from %s to %s is not allowed", e.From, e.To)
}

// courierTransitions is the outbound courier lifecycle:
// on_the_way -> received -> completed, any -> deleted, deleted -> on_the_way.
var courierTransitions = map[models.CourierStatus][]models.CourierStatus{
	models.CourierStatusOnTheWay:  {models.CourierStatusReceived, models.CourierStatusDeleted},
	models.CourierStatusReceived:  {models.CourierStatusCompleted, models.CourierStatusDeleted},
	models.CourierStatusCompleted: {models.CourierStatusDeleted},
	models.CourierStatusDeleted:   {models.CourierStatusOnTheWay},
}

// CourierTransitionAllowed reports whether the lifecycle permits from -> to
func CourierTransitionAllowed(from, to models.CourierStatus) bool {
	for _, allowed := range courierTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionCourier applies a status change, enforcing the transition table
// and recording the side effects each transition carries:
//   - on_the_way -> received sets ReceivedDate
//   - received -> completed appends the POD number into Details
//   - deleted -> on_the_way clears ReceivedDate (restore is lossy: the
//     status held before deletion is not tracked)
//
// Every applied transition writes an AuditLog entry.
func TransitionCourier(db *gorm.DB, courier *models.Courier, to models.CourierStatus, actor AuditContext) error {
	if !models.IsValidCourierStatus(to) {
		return fmt.Errorf("unknown courier status: %s", to)
	}

	from := courier.Status
	if from == to {
		return nil // idempotent no-op
	}
	if !CourierTransitionAllowed(from, to) {
		return ErrTransitionNotAllowed{From: string(from), To: string(to)}
	}

	updates := map[string]interface{}{"status": to}
	now := time.Now()

	switch {
	case from == models.CourierStatusOnTheWay && to == models.CourierStatusReceived:
		updates["received_date"] = now
	case from == models.CourierStatusReceived && to == models.CourierStatusCompleted:
		details := courier.Details
		if details != "" {
			details += "\n"
		}
		details += fmt.Sprintf("Completed with POD %s", courier.PODNumber)
		updates["details"] = details
	case from == models.CourierStatusDeleted && to == models.CourierStatusOnTheWay:
		updates["received_date"] = nil
	}

	if err := db.Model(courier).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update courier status: %w", err)
	}

	LogAuditEvent(db, actor, models.AuditActionStatusChange, "Courier", courier.ID, courier.PODNumber,
		fmt.Sprintf("Status changed from %s to %s", from, to),
		map[string]interface{}{"status": from},
		map[string]interface{}{"status": to},
	)

	courier.Status = to
	return nil
}

// SoftDeleteCourier moves a courier of any live status to deleted
func SoftDeleteCourier(db *gorm.DB, courier *models.Courier, actor AuditContext) error {
	return TransitionCourier(db, courier, models.CourierStatusDeleted, actor)
}

// RestoreCourier returns a deleted courier to on_the_way. The pre-deletion
// status is not preserved.
func RestoreCourier(db *gorm.DB, courier *models.Courier, actor AuditContext) error {
	if courier.Status != models.CourierStatusDeleted {
		return ErrTransitionNotAllowed{From: string(courier.Status), To: string(models.CourierStatusOnTheWay)}
	}

	if err := TransitionCourier(db, courier, models.CourierStatusOnTheWay, actor); err != nil {
		return err
	}

	LogAuditEvent(db, actor, models.AuditActionRestore, "Courier", courier.ID, courier.PODNumber,
		"Courier restored", nil, nil)
	return nil
}
