package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"spotrunner-api/models"
)

func TestParticipateLastSlotThenFull(t *testing.T) {
	db := setupDB(t)
	svc := newAttendanceService(db)
	ctx := context.Background()

	org := createOrganizer(t, db, "org")
	alice := createRunner(t, db, "alice", 0)
	bob := createRunner(t, db, "bob", 0)
	event := createEvent(t, db, org, eventOpts{capacity: 1})

	result, err := svc.Participate(ctx, alice, "alice", event.ID, "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeRegistered, result.Outcome)
	assert.Equal(t, 1, result.TotalParticipants)
	assert.True(t, result.Full)

	_, err = svc.Participate(ctx, bob, "bob", event.ID, "")
	assert.ErrorIs(t, err, ErrEventFull)

	stored := reloadEvent(t, db, event.ID)
	assert.Equal(t, 1, stored.TotalParticipants)
	assert.True(t, stored.Full)

	var count int64
	require.NoError(t, db.Model(&models.Attendance{}).Where("event_id = ?", event.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestParticipateCategoryMustBelongToEvent(t *testing.T) {
	db := setupDB(t)
	svc := newAttendanceService(db)
	ctx := context.Background()

	org := createOrganizer(t, db, "org")
	alice := createRunner(t, db, "alice", 0)
	event := createEvent(t, db, org, eventOpts{categories: []string{"5k", "10k"}})

	_, err := svc.Participate(ctx, alice, "alice", event.ID, "half_marathon")
	assert.ErrorIs(t, err, ErrInvalidCategory)

	var count int64
	require.NoError(t, db.Model(&models.Attendance{}).Where("event_id = ?", event.ID).Count(&count).Error)
	assert.Zero(t, count)
	assert.Zero(t, reloadEvent(t, db, event.ID).TotalParticipants)

	result, err := svc.Participate(ctx, alice, "alice", event.ID, "5k")
	require.NoError(t, err)
	assert.Equal(t, "5k", result.Attendance.Category)
	assert.Equal(t, models.AttendanceAttending, result.Attendance.Status)
}

func TestParticipateTwiceIsAWarning(t *testing.T) {
	db := setupDB(t)
	svc := newAttendanceService(db)
	ctx := context.Background()

	org := createOrganizer(t, db, "org")
	alice := createRunner(t, db, "alice", 0)
	event := createEvent(t, db, org, eventOpts{})

	_, err := svc.Participate(ctx, alice, "alice", event.ID, "")
	require.NoError(t, err)

	result, err := svc.Participate(ctx, alice, "alice", event.ID, "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyRegistered, result.Outcome)
	assert.True(t, result.Outcome.Warning())
	assert.Equal(t, 1, reloadEvent(t, db, event.ID).TotalParticipants)
}

func TestCancelAndReregisterKeepsParticipantID(t *testing.T) {
	db := setupDB(t)
	svc := newAttendanceService(db)
	ctx := context.Background()

	org := createOrganizer(t, db, "org")
	alice := createRunner(t, db, "alice", 0)
	event := createEvent(t, db, org, eventOpts{capacity: 1, categories: []string{"5k", "10k"}})

	first, err := svc.Participate(ctx, alice, "alice", event.ID, "5k")
	require.NoError(t, err)
	participantID := first.Attendance.ParticipantID
	assert.Regexp(t, `^SR-[0-9A-F]{12}$`, participantID)

	canceled, err := svc.CancelAttendance(ctx, alice, "alice", event.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCanceled, canceled.Outcome)
	assert.Equal(t, 0, canceled.TotalParticipants)
	assert.False(t, canceled.Full)

	again, err := svc.CancelAttendance(ctx, alice, "alice", event.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyCanceled, again.Outcome)
	assert.Equal(t, 0, reloadEvent(t, db, event.ID).TotalParticipants)

	back, err := svc.Participate(ctx, alice, "alice", event.ID, "10k")
	require.NoError(t, err)
	assert.Equal(t, OutcomeReregistered, back.Outcome)
	assert.Equal(t, participantID, back.Attendance.ParticipantID)
	assert.Equal(t, "10k", back.Attendance.Category)
	assert.True(t, back.Full)

	var count int64
	require.NoError(t, db.Model(&models.Attendance{}).Where("runner_id = ?", alice.User.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCancelFinishedAttendanceRejected(t *testing.T) {
	db := setupDB(t)
	svc := newAttendanceService(db)
	ctx := context.Background()

	org := createOrganizer(t, db, "org")
	alice := createRunner(t, db, "alice", 0)
	event := createEvent(t, db, org, eventOpts{})

	_, err := svc.Participate(ctx, alice, "alice", event.ID, "")
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Attendance{}).
		Where("runner_id = ? AND event_id = ?", alice.User.ID, event.ID).
		Update("status", models.AttendanceFinished).Error)

	_, err = svc.CancelAttendance(ctx, alice, "alice", event.ID)
	assert.ErrorIs(t, err, ErrCannotCancelFinish)

	var attendance models.Attendance
	require.NoError(t, db.First(&attendance, "runner_id = ?", alice.User.ID).Error)
	assert.Equal(t, models.AttendanceFinished, attendance.Status)
	assert.Equal(t, 1, reloadEvent(t, db, event.ID).TotalParticipants)
}

func TestCancelWithoutRegistration(t *testing.T) {
	db := setupDB(t)
	svc := newAttendanceService(db)

	org := createOrganizer(t, db, "org")
	alice := createRunner(t, db, "alice", 0)
	event := createEvent(t, db, org, eventOpts{})

	_, err := svc.CancelAttendance(context.Background(), alice, "alice", event.ID)
	assert.ErrorIs(t, err, ErrAttendanceNotFound)
}

func TestParticipateAuthorization(t *testing.T) {
	db := setupDB(t)
	svc := newAttendanceService(db)
	ctx := context.Background()

	org := createOrganizer(t, db, "org")
	alice := createRunner(t, db, "alice", 0)
	createRunner(t, db, "bob", 0)
	event := createEvent(t, db, org, eventOpts{})

	_, err := svc.Participate(ctx, alice, "bob", event.ID, "")
	assert.ErrorIs(t, err, ErrNotSelf)

	_, err = svc.Participate(ctx, org, "org", event.ID, "")
	assert.ErrorIs(t, err, ErrRunnerOnly)

	_, err = svc.Participate(ctx, alice, "alice", "missing", "")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestParticipateClosedRegistration(t *testing.T) {
	db := setupDB(t)
	svc := newAttendanceService(db)
	ctx := context.Background()

	org := createOrganizer(t, db, "org")
	alice := createRunner(t, db, "alice", 0)

	pastDeadline := createEvent(t, db, org, eventOpts{deadline: testNow.AddDate(0, 0, -1)})
	_, err := svc.Participate(ctx, alice, "alice", pastDeadline.ID, "")
	assert.ErrorIs(t, err, ErrRegistrationClosed)

	canceled := createEvent(t, db, org, eventOpts{status: models.StatusCanceled})
	_, err = svc.Participate(ctx, alice, "alice", canceled.ID, "")
	assert.ErrorIs(t, err, ErrRegistrationClosed)

	finished := createEvent(t, db, org, eventOpts{
		date:     testNow.AddDate(0, 0, -3),
		deadline: testNow.AddDate(0, 0, -5),
	})
	_, err = svc.Participate(ctx, alice, "alice", finished.ID, "")
	assert.ErrorIs(t, err, ErrRegistrationClosed)
}

func TestCompleteEventAwardsCoinsOnce(t *testing.T) {
	db := setupDB(t)
	svc := newAttendanceService(db)
	ctx := context.Background()

	org := createOrganizer(t, db, "org")
	alice := createRunner(t, db, "alice", 10)
	bob := createRunner(t, db, "bob", 0)
	carol := createRunner(t, db, "carol", 0)
	event := createEvent(t, db, org, eventOpts{coin: 50})

	for _, r := range []struct {
		id   *models.Identity
		name string
	}{{alice, "alice"}, {bob, "bob"}, {carol, "carol"}} {
		_, err := svc.Participate(ctx, r.id, r.name, event.ID, "")
		require.NoError(t, err)
	}
	_, err := svc.CancelAttendance(ctx, carol, "carol", event.ID)
	require.NoError(t, err)

	_, err = svc.CompleteEvent(ctx, org, event.ID)
	assert.ErrorIs(t, err, ErrEventNotStarted)

	svc.Now = func() time.Time { return event.EventDate }
	result, err := svc.CompleteEvent(ctx, org, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Finished)
	assert.Equal(t, 100, result.CoinsAwarded)

	assert.Equal(t, 60, runnerCoin(t, db, alice))
	assert.Equal(t, 50, runnerCoin(t, db, bob))
	assert.Equal(t, 0, runnerCoin(t, db, carol))

	stored := reloadEvent(t, db, event.ID)
	assert.Equal(t, models.StatusFinished, stored.EventStatus)
	require.NotNil(t, stored.CompletedAt)

	again, err := svc.CompleteEvent(ctx, org, event.ID)
	require.NoError(t, err)
	assert.Zero(t, again.Finished)
	assert.Equal(t, 60, runnerCoin(t, db, alice))

	_, err = svc.CancelAttendance(ctx, alice, "alice", event.ID)
	assert.ErrorIs(t, err, ErrCannotCancelFinish)
}

func TestCompleteEventOwnerOnly(t *testing.T) {
	db := setupDB(t)
	svc := newAttendanceService(db)

	org := createOrganizer(t, db, "org")
	other := createOrganizer(t, db, "other")
	alice := createRunner(t, db, "alice", 0)
	event := createEvent(t, db, org, eventOpts{date: testNow})

	_, err := svc.CompleteEvent(context.Background(), other, event.ID)
	assert.ErrorIs(t, err, ErrNotEventOwner)

	_, err = svc.CompleteEvent(context.Background(), alice, event.ID)
	assert.ErrorIs(t, err, ErrOrganizerOnly)
}

func TestConcurrentRegistrationsNeverExceedCapacity(t *testing.T) {
	db := setupDB(t)
	svc := newAttendanceService(db)

	org := createOrganizer(t, db, "org")
	event := createEvent(t, db, org, eventOpts{capacity: 3})

	const runners = 12
	identities := make([]*models.Identity, runners)
	for i := range identities {
		identities[i] = createRunner(t, db, fmt.Sprintf("runner%d", i), 0)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < runners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := svc.Participate(context.Background(), identities[i], identities[i].User.Username, event.ID, "")
			if err != nil {
				// lock contention on SQLite surfaces as an error and is a valid rejection
				if !errors.Is(err, ErrEventFull) {
					t.Logf("registration %d failed: %v", i, err)
				}
				return
			}
			if result.Outcome == OutcomeRegistered {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	stored := reloadEvent(t, db, event.ID)
	assert.LessOrEqual(t, successes, 3)
	assert.Equal(t, successes, stored.TotalParticipants)
	assert.Equal(t, stored.TotalParticipants >= stored.Capacity, stored.Full)

	var attending int64
	require.NoError(t, db.Model(&models.Attendance{}).
		Where("event_id = ? AND status = ?", event.ID, models.AttendanceAttending).
		Count(&attending).Error)
	assert.Equal(t, int64(successes), attending)
}
