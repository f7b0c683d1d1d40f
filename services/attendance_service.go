package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"spotrunner-api/models"
	"spotrunner-api/monitoring"
	"spotrunner-api/repositories"
)

type Outcome string

const (
	OutcomeRegistered        Outcome = "registered"
	OutcomeReregistered      Outcome = "reregistered"
	OutcomeAlreadyRegistered Outcome = "already_registered"
	OutcomeCanceled          Outcome = "canceled"
	OutcomeAlreadyCanceled   Outcome = "already_canceled"
)

// Warning reports outcomes that changed nothing.
func (o Outcome) Warning() bool {
	return o == OutcomeAlreadyRegistered || o == OutcomeAlreadyCanceled
}

type AttendanceResult struct {
	Outcome           Outcome           `json:"outcome"`
	Attendance        models.Attendance `json:"attendance"`
	EventName         string            `json:"event_name"`
	TotalParticipants int               `json:"total_participants"`
	Full              bool              `json:"full"`
}

func (r *AttendanceResult) Message() string {
	switch r.Outcome {
	case OutcomeRegistered:
		return fmt.Sprintf("You are now registered to attend %s.", r.EventName)
	case OutcomeReregistered:
		return fmt.Sprintf("You have re-registered for %s.", r.EventName)
	case OutcomeAlreadyRegistered:
		return fmt.Sprintf("You are already registered for %s.", r.EventName)
	case OutcomeCanceled:
		return fmt.Sprintf("You have successfully canceled your attendance for %s.", r.EventName)
	case OutcomeAlreadyCanceled:
		return fmt.Sprintf("Your attendance for %s is already canceled.", r.EventName)
	}
	return ""
}

type AttendanceService struct {
	db       *gorm.DB
	notifier Notifier
	Cache    EventCache
	Now      func() time.Time
}

func (s *AttendanceService) invalidate(ctx context.Context, id string) {
	if s.Cache != nil {
		s.Cache.Invalidate(ctx, id)
	}
}

func NewAttendanceService(db *gorm.DB, notifier Notifier) *AttendanceService {
	return &AttendanceService{db: db, notifier: notifier, Now: time.Now}
}

// actingRunner checks that the actor is the runner named in the request.
func actingRunner(actor *models.Identity, username string) (*models.RunnerProfile, error) {
	if actor == nil || actor.User.Username != username {
		return nil, ErrNotSelf
	}
	runner, ok := actor.AsRunner()
	if !ok {
		return nil, ErrRunnerOnly
	}
	return runner, nil
}

// Participate registers the runner for an event in the chosen category.
func (s *AttendanceService) Participate(ctx context.Context, actor *models.Identity, username, eventID, category string) (*AttendanceResult, error) {
	runner, err := actingRunner(actor, username)
	if err != nil {
		return nil, err
	}
	now := s.Now()

	var result *AttendanceResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events := repositories.NewEventRepository(tx)

		event, err := events.FindForUpdate(eventID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}

		var attendance models.Attendance
		found := true
		if err := repositories.ForUpdate(tx).
			Where("runner_id = ? AND event_id = ?", runner.UserID, event.ID).
			First(&attendance).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			found = false
		}

		if found && attendance.Status != models.AttendanceCanceled {
			result = &AttendanceResult{
				Outcome:           OutcomeAlreadyRegistered,
				Attendance:        attendance,
				EventName:         event.Name,
				TotalParticipants: event.TotalParticipants,
				Full:              event.IsFull(),
			}
			return nil
		}

		if status := event.StatusAt(now); status == models.StatusCanceled || status == models.StatusFinished {
			return ErrRegistrationClosed
		}
		if !event.RegistDeadline.IsZero() && now.After(event.RegistDeadline) {
			return ErrRegistrationClosed
		}
		if !categoryAllowed(event, category) {
			return ErrInvalidCategory
		}

		ok, err := events.IncrementParticipants(event.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrEventFull
		}

		outcome := OutcomeRegistered
		if found {
			outcome = OutcomeReregistered
			attendance.Status = models.AttendanceAttending
			attendance.Category = category
			attendance.EventName = event.Name
			if err := tx.Model(&attendance).Updates(map[string]interface{}{
				"status":     attendance.Status,
				"category":   attendance.Category,
				"event_name": attendance.EventName,
			}).Error; err != nil {
				return err
			}
		} else {
			eventRef := event.ID
			attendance = models.Attendance{
				RunnerID:      runner.UserID,
				EventID:       &eventRef,
				EventName:     event.Name,
				Status:        models.AttendanceAttending,
				Category:      category,
				ParticipantID: newParticipantID(),
				RegisteredAt:  now,
			}
			if err := tx.Create(&attendance).Error; err != nil {
				return err
			}
		}

		total, full, err := events.Counters(event.ID)
		if err != nil {
			return err
		}
		result = &AttendanceResult{
			Outcome:           outcome,
			Attendance:        attendance,
			EventName:         event.Name,
			TotalParticipants: total,
			Full:              full,
		}
		return nil
	})
	if err != nil {
		monitoring.TrackAttendance("participate", outcomeLabel(err))
		return nil, err
	}

	monitoring.TrackAttendance("participate", string(result.Outcome))
	if !result.Outcome.Warning() {
		s.invalidate(ctx, eventID)
	}
	slog.Info("participation", "runner", runner.UserID, "event", eventID, "outcome", result.Outcome)
	if s.notifier != nil && !result.Outcome.Warning() {
		go s.notifier.RegistrationConfirmed(actor.User, result)
	}
	return result, nil
}

// CancelAttendance withdraws the runner from an event.
func (s *AttendanceService) CancelAttendance(ctx context.Context, actor *models.Identity, username, eventID string) (*AttendanceResult, error) {
	runner, err := actingRunner(actor, username)
	if err != nil {
		return nil, err
	}

	var result *AttendanceResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events := repositories.NewEventRepository(tx)

		event, err := events.FindForUpdate(eventID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}

		var attendance models.Attendance
		if err := repositories.ForUpdate(tx).
			Where("runner_id = ? AND event_id = ?", runner.UserID, event.ID).
			First(&attendance).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAttendanceNotFound
			}
			return err
		}

		outcome := OutcomeCanceled
		switch attendance.Status {
		case models.AttendanceFinished:
			return ErrCannotCancelFinish
		case models.AttendanceCanceled:
			outcome = OutcomeAlreadyCanceled
		case models.AttendanceAttending:
			if err := tx.Model(&attendance).Update("status", models.AttendanceCanceled).Error; err != nil {
				return err
			}
			attendance.Status = models.AttendanceCanceled
			if err := events.DecrementParticipants(event.ID); err != nil {
				return err
			}
		}

		total, full, err := events.Counters(event.ID)
		if err != nil {
			return err
		}
		result = &AttendanceResult{
			Outcome:           outcome,
			Attendance:        attendance,
			EventName:         event.Name,
			TotalParticipants: total,
			Full:              full,
		}
		return nil
	})
	if err != nil {
		monitoring.TrackAttendance("cancel", outcomeLabel(err))
		return nil, err
	}

	monitoring.TrackAttendance("cancel", string(result.Outcome))
	if !result.Outcome.Warning() {
		s.invalidate(ctx, eventID)
	}
	return result, nil
}

type CompletionResult struct {
	EventID       string `json:"event_id"`
	Finished      int    `json:"finished_attendances"`
	CoinsAwarded  int    `json:"coins_awarded"`
	CoinPerRunner int    `json:"coin_per_runner"`
}

// CompleteEvent closes an event that has taken place: every attending runner
// is marked finished and credited the event's coin reward. Completing twice
// credits nobody the second time.
func (s *AttendanceService) CompleteEvent(ctx context.Context, actor *models.Identity, eventID string) (*CompletionResult, error) {
	organizer, ok := actor.AsOrganizer()
	if !ok {
		return nil, ErrOrganizerOnly
	}
	now := s.Now()

	result := &CompletionResult{EventID: eventID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events := repositories.NewEventRepository(tx)
		profiles := repositories.NewProfileRepository(tx)

		event, err := events.FindForUpdate(eventID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}
		if event.OrganizerID != organizer.UserID {
			return ErrNotEventOwner
		}
		switch event.StatusAt(now) {
		case models.StatusCanceled:
			return ErrEventCanceled
		case models.StatusComingSoon:
			return ErrEventNotStarted
		}

		var attending []models.Attendance
		if err := tx.Where("event_id = ? AND status = ?", event.ID, models.AttendanceAttending).
			Find(&attending).Error; err != nil {
			return err
		}
		for _, a := range attending {
			if err := tx.Model(&models.Attendance{}).Where("id = ?", a.ID).
				Update("status", models.AttendanceFinished).Error; err != nil {
				return err
			}
			if event.Coin > 0 {
				if err := profiles.CreditRunner(a.RunnerID, event.Coin); err != nil {
					return err
				}
			}
		}

		result.Finished = len(attending)
		result.CoinPerRunner = event.Coin
		result.CoinsAwarded = event.Coin * len(attending)

		updates := map[string]interface{}{"event_status": models.StatusFinished}
		if event.CompletedAt == nil {
			updates["completed_at"] = now.UTC()
		}
		return tx.Model(&models.Event{}).Where("id = ?", event.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, eventID)
	slog.Info("event completed", "event", eventID, "finished", result.Finished, "coins", result.CoinsAwarded)
	return result, nil
}

func categoryAllowed(event *models.Event, category string) bool {
	if len(event.Categories) == 0 {
		return category == ""
	}
	return event.HasCategory(category)
}

func newParticipantID() string {
	return "SR-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

func outcomeLabel(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return strings.ToLower(strings.ReplaceAll(se.Message, " ", "_"))
	}
	return "error"
}
