package services

import (
	"errors"
	"testing"
	"time"

	"courier_track_go/models"

	"github.com/stretchr/testify/assert"
)

func TestCourierTransitionAllowed(t *testing.T) {
	allowed := []struct{ from, to models.CourierStatus }{
		{models.CourierStatusOnTheWay, models.CourierStatusReceived},
		{models.CourierStatusOnTheWay, models.CourierStatusDeleted},
		{models.CourierStatusReceived, models.CourierStatusCompleted},
		{models.CourierStatusReceived, models.CourierStatusDeleted},
		{models.CourierStatusCompleted, models.CourierStatusDeleted},
		{models.CourierStatusDeleted, models.CourierStatusOnTheWay},
	}
	for _, tc := range allowed {
		assert.True(t, CourierTransitionAllowed(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	blocked := []struct{ from, to models.CourierStatus }{
		{models.CourierStatusOnTheWay, models.CourierStatusCompleted},
		{models.CourierStatusReceived, models.CourierStatusOnTheWay},
		{models.CourierStatusCompleted, models.CourierStatusReceived},
		{models.CourierStatusCompleted, models.CourierStatusOnTheWay},
		{models.CourierStatusDeleted, models.CourierStatusReceived},
		{models.CourierStatusDeleted, models.CourierStatusCompleted},
	}
	for _, tc := range blocked {
		assert.False(t, CourierTransitionAllowed(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTransitionCourier(t *testing.T) {
	db := setupServiceTestDB(t)
	user := createTestUser(t, db)
	dept := createTestDepartment(t, db)
	actor := testActor(user)

	t.Run("receive sets received date", func(t *testing.T) {
		courier := createTestCourier(t, db, dept, user)

		err := TransitionCourier(db, courier, models.CourierStatusReceived, actor)
		assert.NoError(t, err)
		assert.Equal(t, models.CourierStatusReceived, courier.Status)

		var stored models.Courier
		assert.NoError(t, db.First(&stored, "id = ?", courier.ID).Error)
		assert.Equal(t, models.CourierStatusReceived, stored.Status)
		assert.NotNil(t, stored.ReceivedDate)
	})

	t.Run("complete appends POD number to details", func(t *testing.T) {
		courier := createTestCourier(t, db, dept, user)
		courier.Details = "handed to front desk"
		assert.NoError(t, db.Model(courier).Update("details", courier.Details).Error)

		assert.NoError(t, TransitionCourier(db, courier, models.CourierStatusReceived, actor))
		assert.NoError(t, TransitionCourier(db, courier, models.CourierStatusCompleted, actor))

		var stored models.Courier
		assert.NoError(t, db.First(&stored, "id = ?", courier.ID).Error)
		assert.Equal(t, models.CourierStatusCompleted, stored.Status)
		assert.Contains(t, stored.Details, "handed to front desk")
		assert.Contains(t, stored.Details, "Completed with POD "+courier.PODNumber)
	})

	t.Run("skipping a stage is rejected", func(t *testing.T) {
		courier := createTestCourier(t, db, dept, user)

		err := TransitionCourier(db, courier, models.CourierStatusCompleted, actor)
		var notAllowed ErrTransitionNotAllowed
		assert.True(t, errors.As(err, &notAllowed))
		assert.Equal(t, "on_the_way", notAllowed.From)
		assert.Equal(t, "completed", notAllowed.To)

		// Row untouched
		var stored models.Courier
		assert.NoError(t, db.First(&stored, "id = ?", courier.ID).Error)
		assert.Equal(t, models.CourierStatusOnTheWay, stored.Status)
	})

	t.Run("same status is an idempotent no-op", func(t *testing.T) {
		courier := createTestCourier(t, db, dept, user)
		assert.NoError(t, TransitionCourier(db, courier, models.CourierStatusOnTheWay, actor))
		assert.Equal(t, models.CourierStatusOnTheWay, courier.Status)
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		courier := createTestCourier(t, db, dept, user)
		err := TransitionCourier(db, courier, models.CourierStatus("lost_in_transit"), actor)
		assert.Error(t, err)
		var notAllowed ErrTransitionNotAllowed
		assert.False(t, errors.As(err, &notAllowed))
	})
}

func TestSoftDeleteAndRestoreCourier(t *testing.T) {
	db := setupServiceTestDB(t)
	user := createTestUser(t, db)
	dept := createTestDepartment(t, db)
	actor := testActor(user)

	t.Run("deletable from any live status", func(t *testing.T) {
		for _, status := range []models.CourierStatus{
			models.CourierStatusOnTheWay,
			models.CourierStatusReceived,
			models.CourierStatusCompleted,
		} {
			courier := createTestCourier(t, db, dept, user)
			assert.NoError(t, db.Model(courier).Update("status", status).Error)
			courier.Status = status

			assert.NoError(t, SoftDeleteCourier(db, courier, actor), string(status))
			assert.Equal(t, models.CourierStatusDeleted, courier.Status)
		}
	})

	t.Run("restore returns to on_the_way and clears received date", func(t *testing.T) {
		courier := createTestCourier(t, db, dept, user)
		assert.NoError(t, TransitionCourier(db, courier, models.CourierStatusReceived, actor))
		assert.NoError(t, SoftDeleteCourier(db, courier, actor))

		assert.NoError(t, RestoreCourier(db, courier, actor))
		assert.Equal(t, models.CourierStatusOnTheWay, courier.Status)

		var stored models.Courier
		assert.NoError(t, db.First(&stored, "id = ?", courier.ID).Error)
		assert.Equal(t, models.CourierStatusOnTheWay, stored.Status)
		assert.Nil(t, stored.ReceivedDate)
	})

	t.Run("restore of a live courier is rejected", func(t *testing.T) {
		courier := createTestCourier(t, db, dept, user)
		err := RestoreCourier(db, courier, actor)
		var notAllowed ErrTransitionNotAllowed
		assert.True(t, errors.As(err, &notAllowed))
	})

	t.Run("status change is audited", func(t *testing.T) {
		courier := createTestCourier(t, db, dept, user)
		assert.NoError(t, TransitionCourier(db, courier, models.CourierStatusReceived, actor))

		// Audit writes are async
		var count int64
		for i := 0; i < 50; i++ {
			db.Model(&models.AuditLog{}).
				Where("resource_type = ? AND resource_id = ? AND action = ?", "Courier", courier.ID, models.AuditActionStatusChange).
				Count(&count)
			if count > 0 {
				break
			}
			time.Sleep(20 * time.Millisecond)
		}
		assert.Equal(t, int64(1), count)
	})
}
