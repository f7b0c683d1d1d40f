package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"spotrunner-api/models"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

type EventFilter struct {
	Category    string
	Location    string
	Status      models.EventStatus
	OrganizerID string
	Search      string
	Offset      int
	Limit       int
}

// FindByID loads an event with its categories and organizer.
func (r *EventRepository) FindByID(id string) (*models.Event, error) {
	var event models.Event
	err := r.db.Preload("Categories").Preload("Organizer.User").First(&event, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// FindForUpdate loads and row-locks an event inside a transaction.
func (r *EventRepository) FindForUpdate(id string) (*models.Event, error) {
	var event models.Event
	if err := ForUpdate(r.db).First(&event, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&event).Association("Categories").Find(&event.Categories); err != nil {
		return nil, err
	}
	return &event, nil
}

// List returns events ordered by date. Status filtering uses the event date,
// never the cached event_status column.
func (r *EventRepository) List(filter EventFilter, now time.Time) ([]models.Event, int64, error) {
	query := r.db.Model(&models.Event{}).Session(&gorm.Session{})

	if filter.Category != "" {
		query = query.Where("events.id IN (?)",
			r.db.Table("event_category_links").
				Select("event_category_links.event_id").
				Joins("JOIN event_categories ON event_categories.id = event_category_links.event_category_id").
				Where("event_categories.category = ?", filter.Category))
	}
	if filter.Location != "" {
		query = query.Where("location = ?", filter.Location)
	}
	if filter.OrganizerID != "" {
		query = query.Where("organizer_id = ?", filter.OrganizerID)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("(name LIKE ? OR description LIKE ?)", like, like)
	}
	if filter.Status != "" {
		start, end := models.DayBounds(now)
		switch filter.Status {
		case models.StatusCanceled:
			query = query.Where("event_status = ?", models.StatusCanceled)
		case models.StatusFinished:
			query = query.Where("event_status <> ? AND (completed_at IS NOT NULL OR event_date < ?)", models.StatusCanceled, start)
		case models.StatusOnGoing:
			query = query.Where("event_status <> ? AND completed_at IS NULL AND event_date >= ? AND event_date < ?", models.StatusCanceled, start, end)
		case models.StatusComingSoon:
			query = query.Where("event_status <> ? AND completed_at IS NULL AND event_date >= ?", models.StatusCanceled, end)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []models.Event
	q := query.Preload("Categories").Preload("Organizer.User").Order("event_date ASC")
	if filter.Limit > 0 {
		q = q.Offset(filter.Offset).Limit(filter.Limit)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, 0, err
	}
	for i := range events {
		events[i].EventStatus = events[i].StatusAt(now)
	}
	return events, total, nil
}

// IncrementParticipants adds one participant only while the event is below
// capacity. It reports false when the event was already full.
func (r *EventRepository) IncrementParticipants(id string) (bool, error) {
	res := r.db.Model(&models.Event{}).
		Where("id = ? AND total_participants < capacity", id).
		UpdateColumn("total_participants", gorm.Expr("total_participants + ?", 1))
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, r.refreshFull(id)
}

// DecrementParticipants removes one participant, never going below zero.
func (r *EventRepository) DecrementParticipants(id string) error {
	res := r.db.Model(&models.Event{}).
		Where("id = ? AND total_participants > 0", id).
		UpdateColumn("total_participants", gorm.Expr("total_participants - ?", 1))
	if res.Error != nil {
		return res.Error
	}
	return r.refreshFull(id)
}

func (r *EventRepository) refreshFull(id string) error {
	return r.db.Model(&models.Event{}).Where("id = ?", id).
		UpdateColumn("is_full", gorm.Expr("total_participants >= capacity")).Error
}

// Counters re-reads the participant counter and full flag.
func (r *EventRepository) Counters(id string) (int, bool, error) {
	var event models.Event
	if err := r.db.Select("id", "total_participants", "is_full").First(&event, "id = ?", id).Error; err != nil {
		return 0, false, err
	}
	return event.TotalParticipants, event.Full, nil
}

// RefreshStatuses rewrites the cached event_status column of every
// non-canceled event from its date.
func (r *EventRepository) RefreshStatuses(now time.Time) (int64, error) {
	start, end := models.DayBounds(now)
	var updated int64
	steps := []struct {
		status models.EventStatus
		where  string
		args   []interface{}
	}{
		{models.StatusFinished, "(completed_at IS NOT NULL OR event_date < ?)", []interface{}{start}},
		{models.StatusOnGoing, "completed_at IS NULL AND event_date >= ? AND event_date < ?", []interface{}{start, end}},
		{models.StatusComingSoon, "completed_at IS NULL AND event_date >= ?", []interface{}{end}},
	}
	for _, step := range steps {
		res := r.db.Model(&models.Event{}).
			Where("event_status NOT IN ?", []models.EventStatus{models.StatusCanceled, step.status}).
			Where(step.where, step.args...).
			UpdateColumn("event_status", step.status)
		if res.Error != nil {
			return updated, res.Error
		}
		updated += res.RowsAffected
	}
	return updated, nil
}

// Delete removes an event. Attendance rows keep their snapshot and lose the
// reference; reviews and category links go with the event.
func (r *EventRepository) Delete(event *models.Event) error {
	if err := r.db.Model(&models.Attendance{}).Where("event_id = ?", event.ID).
		UpdateColumn("event_id", nil).Error; err != nil {
		return err
	}
	if err := r.db.Where("event_id = ?", event.ID).Delete(&models.Review{}).Error; err != nil {
		return err
	}
	if err := r.db.Model(event).Association("Categories").Clear(); err != nil {
		return err
	}
	return r.db.Delete(event).Error
}

// ResolveCategories maps category names to seeded rows.
func (r *EventRepository) ResolveCategories(names []string) ([]models.EventCategory, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var categories []models.EventCategory
	if err := r.db.Where("category IN ?", names).Find(&categories).Error; err != nil {
		return nil, err
	}
	if len(categories) != len(uniqueStrings(names)) {
		return nil, errors.New("unknown event category")
	}
	return categories, nil
}

// Participants lists attendances of an event with their runners.
func (r *EventRepository) Participants(eventID string) ([]models.Attendance, error) {
	var attendances []models.Attendance
	err := r.db.Preload("Runner.User").Where("event_id = ? AND status <> ?", eventID, models.AttendanceCanceled).
		Order("registered_at ASC").Find(&attendances).Error
	return attendances, err
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
