package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"spotrunner-api/database"
	"spotrunner-api/models"
	"spotrunner-api/repositories"
)

// RawNumber keeps a numeric field as the client sent it, so 5 and "5" both
// bind and malformed values reach the domain checks.
type RawNumber string

func (n *RawNumber) UnmarshalJSON(b []byte) error {
	*n = RawNumber(strings.Trim(strings.TrimSpace(string(b)), `"`))
	return nil
}

type ReviewInput struct {
	EventID    string    `json:"event_id" form:"event_id"`
	Rating     RawNumber `json:"rating" form:"rating"`
	ReviewText string    `json:"review_text" form:"review_text"`
}

// ParseRating accepts the raw rating as submitted by a client.
func ParseRating(raw string) (int, error) {
	rating, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, ErrInvalidRating
	}
	if rating < models.MinRating || rating > models.MaxRating {
		return 0, ErrRatingOutOfRange
	}
	return rating, nil
}

type ReviewService struct {
	db *gorm.DB
}

func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

// Create posts the runner's review of an event. The runner must hold an
// attending or finished attendance and may review each event once.
func (s *ReviewService) Create(ctx context.Context, actor *models.Identity, in ReviewInput) (*models.Review, error) {
	runner, ok := actor.AsRunner()
	if !ok {
		return nil, ErrRunnersOnlyReview
	}
	rating, err := ParseRating(string(in.Rating))
	if err != nil {
		return nil, err
	}

	var review *models.Review
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.First(&event, "id = ?", in.EventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}

		var attendance models.Attendance
		if err := tx.Where("runner_id = ? AND event_id = ?", runner.UserID, event.ID).
			First(&attendance).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReviewNotAllowed
			}
			return err
		}
		if !attendance.Reviewable() {
			return ErrReviewNotAllowed
		}

		var existing int64
		if err := tx.Model(&models.Review{}).
			Where("runner_id = ? AND event_id = ?", runner.UserID, event.ID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyReviewed
		}

		organizerID := event.OrganizerID
		review = &models.Review{
			RunnerID:    runner.UserID,
			EventID:     event.ID,
			OrganizerID: &organizerID,
			Rating:      rating,
			ReviewText:  strings.TrimSpace(in.ReviewText),
		}
		if err := tx.Create(review).Error; err != nil {
			// a concurrent create for the same pair lost the unique index race
			if database.IsUniqueViolation(err) {
				return ErrAlreadyReviewed
			}
			return err
		}
		return RefreshOrganizerStats(tx, organizerID)
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) Update(ctx context.Context, actor *models.Identity, id uint, in ReviewInput) (*models.Review, error) {
	rating, err := ParseRating(string(in.Rating))
	if err != nil {
		return nil, err
	}

	var review models.Review
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ownedReview(tx, actor, id, &review); err != nil {
			return err
		}
		review.Rating = rating
		review.ReviewText = strings.TrimSpace(in.ReviewText)
		if err := tx.Model(&review).Updates(map[string]interface{}{
			"rating":      review.Rating,
			"review_text": review.ReviewText,
		}).Error; err != nil {
			return err
		}
		if review.OrganizerID == nil {
			return nil
		}
		return RefreshOrganizerStats(tx, *review.OrganizerID)
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (s *ReviewService) Delete(ctx context.Context, actor *models.Identity, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var review models.Review
		if err := s.ownedReview(tx, actor, id, &review); err != nil {
			return err
		}
		if err := tx.Delete(&review).Error; err != nil {
			return err
		}
		if review.OrganizerID == nil {
			return nil
		}
		return RefreshOrganizerStats(tx, *review.OrganizerID)
	})
}

func (s *ReviewService) ownedReview(tx *gorm.DB, actor *models.Identity, id uint, review *models.Review) error {
	if err := repositories.ForUpdate(tx).First(review, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReviewNotFound
		}
		return err
	}
	runner, ok := actor.AsRunner()
	if !ok || runner.UserID != review.RunnerID {
		return ErrNotReviewOwner
	}
	return nil
}

func (s *ReviewService) ListForEvent(ctx context.Context, eventID string) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.WithContext(ctx).
		Preload("Runner.User").
		Where("event_id = ?", eventID).
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}

func (s *ReviewService) ListForOrganizer(ctx context.Context, organizerID string, limit int) ([]models.Review, error) {
	var reviews []models.Review
	q := s.db.WithContext(ctx).
		Preload("Runner.User").
		Preload("Event").
		Where("organizer_id = ?", organizerID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&reviews).Error
	return reviews, err
}
