package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"spotrunner-api/models"
	"spotrunner-api/repositories"
)

type RunnerProfileInput struct {
	FirstName    string `json:"first_name" binding:"max=150"`
	LastName     string `json:"last_name" binding:"max=150"`
	Email        string `json:"email" binding:"omitempty,email"`
	BaseLocation string `json:"base_location" binding:"required,location"`
}

type OrganizerProfileInput struct {
	FirstName      string `json:"first_name" binding:"max=150"`
	LastName       string `json:"last_name" binding:"max=150"`
	Email          string `json:"email" binding:"omitempty,email"`
	BaseLocation   string `json:"base_location" binding:"required,location"`
	ProfilePicture string `json:"profile_picture" binding:"omitempty,url,max=500"`
}

type RunnerDashboard struct {
	Profile     models.RunnerProfile `json:"profile"`
	Attending   []models.Attendance  `json:"attending"`
	Finished    []models.Attendance  `json:"finished"`
	Canceled    []models.Attendance  `json:"canceled"`
	CoinsEarned int                  `json:"coins_earned"`
}

type OrganizerPage struct {
	Profile models.OrganizerProfile `json:"profile"`
	Events  []models.Event          `json:"events"`
	Reviews []models.Review         `json:"reviews"`
}

type OrganizerDashboard struct {
	OrganizerPage
	StatusCounts    map[models.EventStatus]int `json:"status_counts"`
	TotalRunners    int                        `json:"total_runners"`
	OrganizerEarned int                        `json:"organizer_earned"`
}

type ProfileService struct {
	db  *gorm.DB
	Now func() time.Time
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db, Now: time.Now}
}

// RunnerDashboard shows the runner their own registrations grouped by status.
func (s *ProfileService) RunnerDashboard(ctx context.Context, actor *models.Identity, username string) (*RunnerDashboard, error) {
	runner, err := actingRunner(actor, username)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	dashboard := &RunnerDashboard{}
	if err := db.Preload("User").First(&dashboard.Profile, "user_id = ?", runner.UserID).Error; err != nil {
		return nil, err
	}

	var attendances []models.Attendance
	if err := db.Preload("Event").Where("runner_id = ?", runner.UserID).
		Order("registered_at DESC").Find(&attendances).Error; err != nil {
		return nil, err
	}
	now := s.Now()
	for _, a := range attendances {
		if a.Event != nil {
			a.Event.EventStatus = a.Event.StatusAt(now)
		}
		switch a.Status {
		case models.AttendanceAttending:
			dashboard.Attending = append(dashboard.Attending, a)
		case models.AttendanceFinished:
			dashboard.Finished = append(dashboard.Finished, a)
			if a.Event != nil {
				dashboard.CoinsEarned += a.Event.Coin
			}
		case models.AttendanceCanceled:
			dashboard.Canceled = append(dashboard.Canceled, a)
		}
	}
	return dashboard, nil
}

func (s *ProfileService) UpdateRunner(ctx context.Context, actor *models.Identity, username string, in RunnerProfileInput) (*models.RunnerProfile, error) {
	runner, err := actingRunner(actor, username)
	if err != nil {
		return nil, err
	}
	if !models.Location(in.BaseLocation).Valid() {
		return nil, ErrInvalidBaseLocation
	}

	var profile models.RunnerProfile
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateUserNames(tx, runner.UserID, in.FirstName, in.LastName, in.Email); err != nil {
			return err
		}
		if err := tx.Model(&models.RunnerProfile{}).Where("user_id = ?", runner.UserID).
			Update("base_location", in.BaseLocation).Error; err != nil {
			return err
		}
		return tx.Preload("User").First(&profile, "user_id = ?", runner.UserID).Error
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *ProfileService) UpdateOrganizer(ctx context.Context, actor *models.Identity, in OrganizerProfileInput) (*models.OrganizerProfile, error) {
	organizer, ok := actor.AsOrganizer()
	if !ok {
		return nil, ErrOrganizerOnly
	}
	if !models.Location(in.BaseLocation).Valid() {
		return nil, ErrInvalidBaseLocation
	}

	var picture *string
	if p := strings.TrimSpace(in.ProfilePicture); p != "" {
		picture = &p
	}

	var profile models.OrganizerProfile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateUserNames(tx, organizer.UserID, in.FirstName, in.LastName, in.Email); err != nil {
			return err
		}
		if err := tx.Model(&models.OrganizerProfile{}).Where("user_id = ?", organizer.UserID).
			Updates(map[string]interface{}{
				"base_location":   in.BaseLocation,
				"profile_picture": picture,
			}).Error; err != nil {
			return err
		}
		return tx.Preload("User").First(&profile, "user_id = ?", organizer.UserID).Error
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func updateUserNames(tx *gorm.DB, userID, firstName, lastName, email string) error {
	return tx.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"first_name": strings.TrimSpace(firstName),
		"last_name":  strings.TrimSpace(lastName),
		"email":      strings.ToLower(strings.TrimSpace(email)),
	}).Error
}

// OrganizerPage is the public profile of an organizer with their events and
// latest reviews.
func (s *ProfileService) OrganizerPage(ctx context.Context, organizerID string) (*OrganizerPage, error) {
	db := s.db.WithContext(ctx)
	page := &OrganizerPage{}
	if err := db.Preload("User").First(&page.Profile, "user_id = ?", organizerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	events, _, err := repositories.NewEventRepository(db).List(repositories.EventFilter{OrganizerID: organizerID}, s.Now())
	if err != nil {
		return nil, err
	}
	page.Events = events

	if err := db.Preload("Runner.User").Where("organizer_id = ?", organizerID).
		Order("created_at DESC").Limit(10).Find(&page.Reviews).Error; err != nil {
		return nil, err
	}
	return page, nil
}

// OrganizerDashboard adds the organizer's own aggregates to their page.
func (s *ProfileService) OrganizerDashboard(ctx context.Context, actor *models.Identity) (*OrganizerDashboard, error) {
	organizer, ok := actor.AsOrganizer()
	if !ok {
		return nil, ErrOrganizerOnly
	}
	page, err := s.OrganizerPage(ctx, organizer.UserID)
	if err != nil {
		return nil, err
	}

	dashboard := &OrganizerDashboard{
		OrganizerPage: *page,
		StatusCounts:  make(map[models.EventStatus]int),
	}
	for _, e := range page.Events {
		dashboard.StatusCounts[e.EventStatus]++
		dashboard.TotalRunners += e.TotalParticipants
	}

	var earned struct{ Total int64 }
	if err := s.db.WithContext(ctx).Model(&models.Redemption{}).
		Select("COALESCE(SUM(total_coins), 0) AS total").
		Where("organizer_id = ?", organizer.UserID).
		Scan(&earned).Error; err != nil {
		return nil, err
	}
	dashboard.OrganizerEarned = int(earned.Total)
	return dashboard, nil
}
