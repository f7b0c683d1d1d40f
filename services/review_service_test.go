package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"spotrunner-api/models"
)

func attend(t *testing.T, db *gorm.DB, runner *models.Identity, event *models.Event) {
	t.Helper()
	_, err := newAttendanceService(db).Participate(context.Background(), runner, runner.User.Username, event.ID, "")
	require.NoError(t, err)
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr error
	}{
		{"5", 5, nil},
		{" 1 ", 1, nil},
		{"0", 0, ErrRatingOutOfRange},
		{"6", 0, ErrRatingOutOfRange},
		{"abc", 0, ErrInvalidRating},
		{"", 0, ErrInvalidRating},
		{"4.5", 0, ErrInvalidRating},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseRating(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRawNumberAcceptsNumbersAndStrings(t *testing.T) {
	var in ReviewInput
	require.NoError(t, json.Unmarshal([]byte(`{"rating": 4}`), &in))
	assert.Equal(t, RawNumber("4"), in.Rating)

	require.NoError(t, json.Unmarshal([]byte(`{"rating": "3"}`), &in))
	assert.Equal(t, RawNumber("3"), in.Rating)
}

func TestRoundRating(t *testing.T) {
	assert.Equal(t, 4.3, RoundRating(13.0/3.0))
	assert.Equal(t, 3.5, RoundRating(3.5))
	assert.Equal(t, 4.7, RoundRating(4.66))
}

func TestCreateReviewOncePerEvent(t *testing.T) {
	db := setupDB(t)
	svc := NewReviewService(db)
	ctx := context.Background()

	org := createOrganizer(t, db, "org")
	alice := createRunner(t, db, "alice", 0)
	event := createEvent(t, db, org, eventOpts{})
	attend(t, db, alice, event)

	review, err := svc.Create(ctx, alice, ReviewInput{EventID: event.ID, Rating: "4", ReviewText: " Great course "})
	require.NoError(t, err)
	assert.Equal(t, 4, review.Rating)
	assert.Equal(t, "Great course", review.ReviewText)

	_, err = svc.Create(ctx, alice, ReviewInput{EventID: event.ID, Rating: "5"})
	assert.ErrorIs(t, err, ErrAlreadyReviewed)

	var count int64
	require.NoError(t, db.Model(&models.Review{}).Where("event_id = ?", event.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	profile := organizerProfile(t, db, org)
	assert.Equal(t, 1, profile.ReviewCount)
	assert.Equal(t, 4.0, profile.Rating)
}

func TestCreateReviewRequiresAttendance(t *testing.T) {
	db := setupDB(t)
	svc := NewReviewService(db)
	ctx := context.Background()

	org := createOrganizer(t, db, "org")
	alice := createRunner(t, db, "alice", 0)
	bob := createRunner(t, db, "bob", 0)
	event := createEvent(t, db, org, eventOpts{})

	_, err := svc.Create(ctx, alice, ReviewInput{EventID: event.ID, Rating: "5"})
	assert.ErrorIs(t, err, ErrReviewNotAllowed)

	attend(t, db, bob, event)
	_, err = newAttendanceService(db).CancelAttendance(ctx, bob, "bob", event.ID)
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob, ReviewInput{EventID: event.ID, Rating: "5"})
	assert.ErrorIs(t, err, ErrReviewNotAllowed)

	_, err = svc.Create(ctx, org, ReviewInput{EventID: event.ID, Rating: "5"})
	assert.ErrorIs(t, err, ErrRunnersOnlyReview)

	_, err = svc.Create(ctx, alice, ReviewInput{EventID: "missing", Rating: "5"})
	assert.ErrorIs(t, err, ErrEventNotFound)

	_, err = svc.Create(ctx, alice, ReviewInput{EventID: event.ID, Rating: "9"})
	assert.ErrorIs(t, err, ErrRatingOutOfRange)
}

func TestReviewUpdateDeleteRefreshStats(t *testing.T) {
	db := setupDB(t)
	svc := NewReviewService(db)
	ctx := context.Background()

	org := createOrganizer(t, db, "org")
	alice := createRunner(t, db, "alice", 0)
	bob := createRunner(t, db, "bob", 0)
	event := createEvent(t, db, org, eventOpts{})
	attend(t, db, alice, event)
	attend(t, db, bob, event)

	first, err := svc.Create(ctx, alice, ReviewInput{EventID: event.ID, Rating: "5"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob, ReviewInput{EventID: event.ID, Rating: "4"})
	require.NoError(t, err)
	assert.Equal(t, 4.5, organizerProfile(t, db, org).Rating)

	_, err = svc.Update(ctx, bob, first.ID, ReviewInput{Rating: "1"})
	assert.ErrorIs(t, err, ErrNotReviewOwner)

	updated, err := svc.Update(ctx, alice, first.ID, ReviewInput{Rating: "3", ReviewText: "Crowded start"})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Rating)
	assert.Equal(t, 3.5, organizerProfile(t, db, org).Rating)

	assert.ErrorIs(t, svc.Delete(ctx, bob, first.ID), ErrNotReviewOwner)
	require.NoError(t, svc.Delete(ctx, alice, first.ID))
	assert.ErrorIs(t, svc.Delete(ctx, alice, first.ID), ErrReviewNotFound)

	profile := organizerProfile(t, db, org)
	assert.Equal(t, 1, profile.ReviewCount)
	assert.Equal(t, 4.0, profile.Rating)

	reviews, err := svc.ListForEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	require.NotNil(t, reviews[0].Runner)
	assert.Equal(t, "bob", reviews[0].Runner.User.Username)

	reviews, err = svc.ListForOrganizer(ctx, org.User.ID, 5)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
}
