package models

import (
	"time"
)

type EventStatus string

const (
	StatusComingSoon EventStatus = "coming_soon"
	StatusOnGoing    EventStatus = "on_going"
	StatusFinished   EventStatus = "finished"
	StatusCanceled   EventStatus = "canceled"
)

func (s EventStatus) Valid() bool {
	switch s {
	case StatusComingSoon, StatusOnGoing, StatusFinished, StatusCanceled:
		return true
	}
	return false
}

type EventCategory struct {
	ID       uint   `json:"-" gorm:"primaryKey"`
	Category string `json:"category" gorm:"uniqueIndex;not null;size:50"`
}

var EventCategoryNames = []string{
	"fun_run",
	"5k",
	"10k",
	"half_marathon",
	"full_marathon",
}

func IsEventCategory(name string) bool {
	for _, c := range EventCategoryNames {
		if c == name {
			return true
		}
	}
	return false
}

type Event struct {
	ID                string          `json:"id" gorm:"primaryKey;size:191"`
	Name              string          `json:"name" gorm:"not null;size:255"`
	Description       string          `json:"description" gorm:"type:text"`
	Location          Location        `json:"location" gorm:"not null;size:50;index"`
	EventDate         time.Time       `json:"event_date" gorm:"not null;index"`
	RegistDeadline    time.Time       `json:"regist_deadline" gorm:"not null"`
	Distance          int             `json:"distance"`
	Contact           string          `json:"contact" gorm:"size:255"`
	ImageURLs         StringSlice     `json:"image_urls" gorm:"type:text"`
	Capacity          int             `json:"capacity" gorm:"not null"`
	TotalParticipants int             `json:"total_participants" gorm:"not null;default:0"`
	Full              bool            `json:"full" gorm:"column:is_full;not null;default:false"`
	EventStatus       EventStatus     `json:"event_status" gorm:"not null;size:20;default:'coming_soon'"`
	Coin              int             `json:"coin" gorm:"not null;default:0"`
	CompletedAt       *time.Time      `json:"completed_at"`
	OrganizerID       string          `json:"organizer_id" gorm:"not null;size:191;index"`
	Categories        []EventCategory `json:"categories" gorm:"many2many:event_category_links"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	Organizer *OrganizerProfile `json:"organizer,omitempty" gorm:"foreignKey:OrganizerID;references:UserID"`
}

// DeriveStatus computes the status of an event at now. A canceled event
// stays canceled; otherwise the calendar day of the event relative to the
// calendar day of now decides.
func DeriveStatus(eventDate, now time.Time, stored EventStatus) EventStatus {
	if stored == StatusCanceled {
		return StatusCanceled
	}
	today := startOfDay(now)
	day := startOfDay(eventDate.In(now.Location()))
	switch {
	case day.Before(today):
		return StatusFinished
	case day.Equal(today):
		return StatusOnGoing
	default:
		return StatusComingSoon
	}
}

// StatusAt is DeriveStatus for this event; an event its organizer has
// completed is finished regardless of date.
func (e *Event) StatusAt(now time.Time) EventStatus {
	if e.CompletedAt != nil && e.EventStatus != StatusCanceled {
		return StatusFinished
	}
	return DeriveStatus(e.EventDate, now, e.EventStatus)
}

// IsFull recomputes the full flag from the counter; the stored Full column
// is only a cache of this.
func (e *Event) IsFull() bool {
	return e.TotalParticipants >= e.Capacity
}

func (e *Event) HasCategory(name string) bool {
	for _, c := range e.Categories {
		if c.Category == name {
			return true
		}
	}
	return false
}

func (e *Event) CategoryNames() []string {
	names := make([]string, 0, len(e.Categories))
	for _, c := range e.Categories {
		names = append(names, c.Category)
	}
	return names
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayBounds returns the start of the day containing now and the start of the
// next day, used to filter events by derived status in queries. The day is
// taken in now's zone and both bounds are returned in UTC, matching how event
// dates are stored.
func DayBounds(now time.Time) (time.Time, time.Time) {
	start := startOfDay(now)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}
