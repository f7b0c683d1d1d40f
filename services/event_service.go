package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"spotrunner-api/models"
	"spotrunner-api/repositories"
)

const MaxEventCoin = 100_000

type EventInput struct {
	Name           string    `json:"name" binding:"required,max=255"`
	Description    string    `json:"description"`
	Location       string    `json:"location" binding:"required,location"`
	Categories     []string  `json:"categories" binding:"required,min=1,dive,event_category"`
	EventDate      time.Time `json:"event_date" binding:"required"`
	RegistDeadline time.Time `json:"regist_deadline" binding:"required"`
	Distance       int       `json:"distance" binding:"min=0"`
	Contact        string    `json:"contact"`
	ImageURLs      []string  `json:"image_urls" binding:"max=3,dive,url"`
	Capacity       int       `json:"capacity" binding:"required,min=1"`
	Coin           int       `json:"coin" binding:"min=0,max=100000"`
}

func (in *EventInput) validate() error {
	// stored in UTC so day-boundary comparisons in SQL agree on every driver
	in.EventDate = in.EventDate.UTC()
	in.RegistDeadline = in.RegistDeadline.UTC()
	if strings.TrimSpace(in.Name) == "" {
		return Validationf("Event name is required")
	}
	if !models.Location(in.Location).Valid() {
		return Validationf("Invalid location %q", in.Location)
	}
	if in.Capacity < 1 {
		return Validationf("Capacity must be at least 1")
	}
	if in.Coin < 0 || in.Coin > MaxEventCoin {
		return Validationf("Coin reward must be between 0 and %d", MaxEventCoin)
	}
	if in.RegistDeadline.After(in.EventDate) {
		return Validationf("Registration deadline must not be after the event date")
	}
	if len(in.Categories) == 0 {
		return Validationf("Select at least one category")
	}
	for _, c := range in.Categories {
		if !models.IsEventCategory(c) {
			return Validationf("Invalid category %q", c)
		}
	}
	return nil
}

// EventCache holds event detail payloads between requests.
type EventCache interface {
	Get(ctx context.Context, id string) (*models.Event, bool)
	Set(ctx context.Context, event *models.Event)
	Invalidate(ctx context.Context, ids ...string)
}

type EventService struct {
	db    *gorm.DB
	Cache EventCache
	Now   func() time.Time
}

func (s *EventService) invalidate(ctx context.Context, id string) {
	if s.Cache != nil {
		s.Cache.Invalidate(ctx, id)
	}
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{db: db, Now: time.Now}
}

func (s *EventService) List(ctx context.Context, filter repositories.EventFilter) ([]models.Event, int64, error) {
	return repositories.NewEventRepository(s.db.WithContext(ctx)).List(filter, s.Now())
}

// Get returns the event with its status derived at the current time.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	if s.Cache != nil {
		if event, ok := s.Cache.Get(ctx, id); ok {
			event.EventStatus = event.StatusAt(s.Now())
			return event, nil
		}
	}

	event, err := repositories.NewEventRepository(s.db.WithContext(ctx)).FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	event.EventStatus = event.StatusAt(s.Now())
	if s.Cache != nil {
		s.Cache.Set(ctx, event)
	}
	return event, nil
}

func (s *EventService) Create(ctx context.Context, actor *models.Identity, in EventInput) (*models.Event, error) {
	organizer, ok := actor.AsOrganizer()
	if !ok {
		return nil, ErrOrganizerOnly
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var event *models.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events := repositories.NewEventRepository(tx)
		categories, err := events.ResolveCategories(in.Categories)
		if err != nil {
			return ErrInvalidCategory
		}

		event = &models.Event{
			ID:             uuid.New().String(),
			Name:           strings.TrimSpace(in.Name),
			Description:    in.Description,
			Location:       models.Location(in.Location),
			EventDate:      in.EventDate,
			RegistDeadline: in.RegistDeadline,
			Distance:       in.Distance,
			Contact:        in.Contact,
			ImageURLs:      models.StringSlice(in.ImageURLs),
			Capacity:       in.Capacity,
			Coin:           in.Coin,
			OrganizerID:    organizer.UserID,
			Categories:     categories,
		}
		event.EventStatus = models.DeriveStatus(event.EventDate, s.Now(), "")
		if err := tx.Create(event).Error; err != nil {
			return err
		}
		return RefreshOrganizerStats(tx, organizer.UserID)
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *EventService) Update(ctx context.Context, actor *models.Identity, id string, in EventInput) (*models.Event, error) {
	organizer, ok := actor.AsOrganizer()
	if !ok {
		return nil, ErrOrganizerOnly
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events := repositories.NewEventRepository(tx)
		event, err := events.FindForUpdate(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}
		if event.OrganizerID != organizer.UserID {
			return ErrNotEventOwner
		}
		if in.Capacity < event.TotalParticipants {
			return ErrCapacityBelowCount
		}

		categories, err := events.ResolveCategories(in.Categories)
		if err != nil {
			return ErrInvalidCategory
		}

		event.EventDate = in.EventDate
		updates := map[string]interface{}{
			"name":            strings.TrimSpace(in.Name),
			"description":     in.Description,
			"location":        in.Location,
			"event_date":      in.EventDate,
			"regist_deadline": in.RegistDeadline,
			"distance":        in.Distance,
			"contact":         in.Contact,
			"image_urls":      models.StringSlice(in.ImageURLs),
			"capacity":        in.Capacity,
			"coin":            in.Coin,
			"is_full":         event.TotalParticipants >= in.Capacity,
			"event_status":    event.StatusAt(s.Now()),
		}
		if err := tx.Model(&models.Event{}).Where("id = ?", event.ID).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Model(event).Association("Categories").Replace(categories)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return s.Get(ctx, id)
}

func (s *EventService) Delete(ctx context.Context, actor *models.Identity, id string) error {
	organizer, ok := actor.AsOrganizer()
	if !ok {
		return ErrOrganizerOnly
	}
	defer s.invalidate(ctx, id)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events := repositories.NewEventRepository(tx)
		event, err := events.FindForUpdate(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}
		if event.OrganizerID != organizer.UserID {
			return ErrNotEventOwner
		}
		if err := events.Delete(event); err != nil {
			return err
		}
		return RefreshOrganizerStats(tx, organizer.UserID)
	})
}

// Cancel marks the event canceled. The status sticks regardless of date and
// closes registration.
func (s *EventService) Cancel(ctx context.Context, actor *models.Identity, id string) (*models.Event, error) {
	organizer, ok := actor.AsOrganizer()
	if !ok {
		return nil, ErrOrganizerOnly
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event, err := repositories.NewEventRepository(tx).FindForUpdate(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}
		if event.OrganizerID != organizer.UserID {
			return ErrNotEventOwner
		}
		if event.CompletedAt != nil {
			return newError(KindConflict, "Event has already been completed")
		}
		return tx.Model(&models.Event{}).Where("id = ?", event.ID).
			Update("event_status", models.StatusCanceled).Error
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return s.Get(ctx, id)
}

// Participants lists the active registrations of an event for its owner.
func (s *EventService) Participants(ctx context.Context, actor *models.Identity, id string) ([]models.Attendance, error) {
	organizer, ok := actor.AsOrganizer()
	if !ok {
		return nil, ErrOrganizerOnly
	}
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != organizer.UserID {
		return nil, ErrNotEventOwner
	}
	return repositories.NewEventRepository(s.db.WithContext(ctx)).Participants(id)
}
