package models

import (
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	RunnerID    string    `json:"runner_id" gorm:"not null;size:191;uniqueIndex:uk_review_runner_event"`
	EventID     string    `json:"event_id" gorm:"not null;size:191;uniqueIndex:uk_review_runner_event;index"`
	OrganizerID *string   `json:"organizer_id" gorm:"size:191;index"`
	Rating      int       `json:"rating" gorm:"not null"`
	ReviewText  string    `json:"review_text" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Runner *RunnerProfile `json:"runner,omitempty" gorm:"foreignKey:RunnerID;references:UserID"`
	Event  *Event         `json:"event,omitempty" gorm:"foreignKey:EventID"`
}
