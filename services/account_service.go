package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"spotrunner-api/database"
	"spotrunner-api/models"
	"spotrunner-api/repositories"
)

type RegisterInput struct {
	Username        string `json:"username" binding:"required,min=3,max=150"`
	Email           string `json:"email" binding:"omitempty,email"`
	Password        string `json:"password" binding:"required,min=6"`
	PasswordConfirm string `json:"password_confirm" binding:"required"`
	FirstName       string `json:"first_name" binding:"max=150"`
	LastName        string `json:"last_name" binding:"max=150"`
	Role            string `json:"role" binding:"required"`
	BaseLocation    string `json:"base_location" binding:"required,location"`
}

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AccountService struct {
	db    *gorm.DB
	Cache EventCache
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{db: db}
}

// Register creates a user together with the profile of its role.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.Identity, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, Validationf("Username is required")
	}
	if in.Password != in.PasswordConfirm {
		return nil, ErrPasswordMismatch
	}
	role := models.Role(in.Role)
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	location := models.Location(in.BaseLocation)
	if !location.Valid() {
		return nil, ErrInvalidBaseLocation
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		ID:        uuid.New().String(),
		Username:  username,
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Password:  string(hash),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      role,
	}

	var identity *models.Identity
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.User{}).Where("username = ?", username).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ErrUsernameTaken
		}

		if err := tx.Create(&user).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return ErrUsernameTaken
			}
			return err
		}

		switch role {
		case models.RoleRunner:
			profile := &models.RunnerProfile{UserID: user.ID, BaseLocation: location}
			if err := tx.Create(profile).Error; err != nil {
				return err
			}
			identity = models.NewRunnerIdentity(user, profile)
		case models.RoleOrganizer:
			profile := &models.OrganizerProfile{UserID: user.ID, BaseLocation: location}
			if err := tx.Create(profile).Error; err != nil {
				return err
			}
			identity = models.NewOrganizerIdentity(user, profile)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("user registered", "user_id", user.ID, "role", role)
	return identity, nil
}

// Login checks the credentials and returns the user's identity.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (*models.Identity, error) {
	profiles := repositories.NewProfileRepository(s.db.WithContext(ctx))
	user, err := profiles.FindUserByUsername(strings.TrimSpace(in.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return profiles.ResolveIdentity(user.ID)
}

// Logout revokes every token issued to the user so far.
func (s *AccountService) Logout(ctx context.Context, actor *models.Identity) error {
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", actor.User.ID).
		UpdateColumn("token_version", gorm.Expr("token_version + 1")).Error
}

// DeleteAccount removes the actor after re-checking the password. A runner's
// active registrations are released first so event counters stay exact.
func (s *AccountService) DeleteAccount(ctx context.Context, actor *models.Identity, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(actor.User.Password), []byte(password)); err != nil {
		return ErrInvalidPassword
	}

	var touched []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if runner, ok := actor.AsRunner(); ok {
			if touched, err = deleteRunnerData(tx, runner.UserID); err != nil {
				return err
			}
		}
		if organizer, ok := actor.AsOrganizer(); ok {
			if touched, err = deleteOrganizerData(tx, organizer.UserID); err != nil {
				return err
			}
		}
		return tx.Delete(&models.User{}, "id = ?", actor.User.ID).Error
	})
	if err != nil {
		return err
	}
	if s.Cache != nil {
		s.Cache.Invalidate(ctx, touched...)
	}

	slog.Info("account deleted", "user_id", actor.User.ID, "role", actor.Role())
	return nil
}

// deleteRunnerData releases the runner's registrations and removes their
// rows. It returns the ids of events whose counters changed.
func deleteRunnerData(tx *gorm.DB, runnerID string) ([]string, error) {
	events := repositories.NewEventRepository(tx)

	var attending []models.Attendance
	if err := tx.Where("runner_id = ? AND status = ? AND event_id IS NOT NULL", runnerID, models.AttendanceAttending).
		Find(&attending).Error; err != nil {
		return nil, err
	}
	var touched []string
	for _, a := range attending {
		if _, err := events.FindForUpdate(*a.EventID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		if err := events.DecrementParticipants(*a.EventID); err != nil {
			return nil, err
		}
		touched = append(touched, *a.EventID)
	}
	if err := tx.Where("runner_id = ?", runnerID).Delete(&models.Attendance{}).Error; err != nil {
		return nil, err
	}

	var organizerIDs []string
	if err := tx.Model(&models.Review{}).Where("runner_id = ? AND organizer_id IS NOT NULL", runnerID).
		Distinct().Pluck("organizer_id", &organizerIDs).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("runner_id = ?", runnerID).Delete(&models.Review{}).Error; err != nil {
		return nil, err
	}
	for _, id := range organizerIDs {
		if err := RefreshOrganizerStats(tx, id); err != nil {
			return nil, err
		}
	}

	if err := tx.Where("runner_id = ?", runnerID).Delete(&models.Redemption{}).Error; err != nil {
		return nil, err
	}
	return touched, tx.Delete(&models.RunnerProfile{}, "user_id = ?", runnerID).Error
}

// deleteOrganizerData removes the organizer's events and products. Runners
// keep their attendance and redemption history as snapshots.
func deleteOrganizerData(tx *gorm.DB, organizerID string) ([]string, error) {
	events := repositories.NewEventRepository(tx)

	var owned []models.Event
	if err := tx.Where("organizer_id = ?", organizerID).Find(&owned).Error; err != nil {
		return nil, err
	}
	touched := make([]string, 0, len(owned))
	for i := range owned {
		if err := events.Delete(&owned[i]); err != nil {
			return nil, err
		}
		touched = append(touched, owned[i].ID)
	}

	if err := tx.Model(&models.Redemption{}).Where("organizer_id = ?", organizerID).
		Updates(map[string]interface{}{"merchandise_id": nil, "organizer_id": nil}).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("organizer_id = ?", organizerID).Delete(&models.Merchandise{}).Error; err != nil {
		return nil, err
	}
	return touched, tx.Delete(&models.OrganizerProfile{}, "user_id = ?", organizerID).Error
}
