package models

import (
	"time"
)

type AttendanceStatus string

const (
	AttendanceAttending AttendanceStatus = "attending"
	AttendanceCanceled  AttendanceStatus = "canceled"
	AttendanceFinished  AttendanceStatus = "finished"
)

// Attendance links a runner to an event. The row is reused across
// cancel/re-register cycles, so ParticipantID stays stable.
type Attendance struct {
	ID            uint             `json:"id" gorm:"primaryKey"`
	RunnerID      string           `json:"runner_id" gorm:"not null;size:191;uniqueIndex:uk_attendance_runner_event"`
	EventID       *string          `json:"event_id" gorm:"size:191;uniqueIndex:uk_attendance_runner_event"`
	EventName     string           `json:"event_name" gorm:"size:255"`
	Status        AttendanceStatus `json:"status" gorm:"not null;size:20;default:'attending'"`
	Category      string           `json:"category" gorm:"size:50"`
	ParticipantID string           `json:"participant_id" gorm:"not null;size:64;uniqueIndex"`
	RegisteredAt  time.Time        `json:"registered_at"`
	UpdatedAt     time.Time        `json:"updated_at"`

	Event  *Event         `json:"event,omitempty" gorm:"foreignKey:EventID"`
	Runner *RunnerProfile `json:"runner,omitempty" gorm:"foreignKey:RunnerID;references:UserID"`
}

// Reviewable reports whether the attendance allows its runner to review the
// event.
func (a *Attendance) Reviewable() bool {
	return a.Status == AttendanceAttending || a.Status == AttendanceFinished
}
