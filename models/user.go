package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleRunner    Role = "runner"
	RoleOrganizer Role = "event_organizer"
)

func (r Role) Valid() bool {
	return r == RoleRunner || r == RoleOrganizer
}

type User struct {
	ID           string    `json:"id" gorm:"primaryKey;size:191"`
	Username     string    `json:"username" gorm:"uniqueIndex;not null;size:150"`
	Email        string    `json:"email" gorm:"size:255"`
	Password     string    `json:"-" gorm:"not null;size:255"`
	FirstName    string    `json:"first_name" gorm:"size:150"`
	LastName     string    `json:"last_name" gorm:"size:150"`
	Role         Role      `json:"role" gorm:"not null;size:20;default:'runner'"`
	TokenVersion int       `json:"-" gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DisplayName falls back to the handle when no real name is set.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

type RunnerProfile struct {
	UserID       string    `json:"user_id" gorm:"primaryKey;size:191"`
	BaseLocation Location  `json:"base_location" gorm:"not null;size:50;default:'depok'"`
	Coin         int       `json:"coin" gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	User User `json:"user" gorm:"foreignKey:UserID"`
}

type OrganizerProfile struct {
	UserID         string    `json:"user_id" gorm:"primaryKey;size:191"`
	BaseLocation   Location  `json:"base_location" gorm:"not null;size:50"`
	ProfilePicture *string   `json:"profile_picture" gorm:"size:500"`
	Coin           int       `json:"coin" gorm:"not null;default:0"`
	TotalEvents    int       `json:"total_events" gorm:"not null;default:0"`
	Rating         float64   `json:"rating" gorm:"not null;default:0"`
	ReviewCount    int       `json:"review_count" gorm:"not null;default:0"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	User User `json:"user" gorm:"foreignKey:UserID"`
}

// Identity is the authenticated actor with exactly one of its profiles
// loaded, resolved once per request.
type Identity struct {
	User      User
	runner    *RunnerProfile
	organizer *OrganizerProfile
}

func NewRunnerIdentity(user User, profile *RunnerProfile) *Identity {
	return &Identity{User: user, runner: profile}
}

func NewOrganizerIdentity(user User, profile *OrganizerProfile) *Identity {
	return &Identity{User: user, organizer: profile}
}

func (i *Identity) Role() Role {
	if i.organizer != nil {
		return RoleOrganizer
	}
	return RoleRunner
}

func (i *Identity) AsRunner() (*RunnerProfile, bool) {
	if i == nil {
		return nil, false
	}
	return i.runner, i.runner != nil
}

func (i *Identity) AsOrganizer() (*OrganizerProfile, bool) {
	if i == nil {
		return nil, false
	}
	return i.organizer, i.organizer != nil
}
