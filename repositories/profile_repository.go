package repositories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"spotrunner-api/models"
)

var (
	ErrNoProfile     = errors.New("user has no profile")
	ErrInvalidAmount = errors.New("coin amount must be positive")
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// ResolveIdentity loads a user and the profile matching its role.
func (r *ProfileRepository) ResolveIdentity(userID string) (*models.Identity, error) {
	var user models.User
	if err := r.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}

	switch user.Role {
	case models.RoleOrganizer:
		var profile models.OrganizerProfile
		if err := r.db.First(&profile, "user_id = ?", user.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNoProfile
			}
			return nil, err
		}
		return models.NewOrganizerIdentity(user, &profile), nil
	case models.RoleRunner:
		var profile models.RunnerProfile
		if err := r.db.First(&profile, "user_id = ?", user.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNoProfile
			}
			return nil, err
		}
		return models.NewRunnerIdentity(user, &profile), nil
	default:
		return nil, fmt.Errorf("unknown role %q", user.Role)
	}
}

func (r *ProfileRepository) FindUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "username = ?", username).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *ProfileRepository) RunnerForUpdate(userID string) (*models.RunnerProfile, error) {
	var profile models.RunnerProfile
	if err := ForUpdate(r.db).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepository) OrganizerForUpdate(userID string) (*models.OrganizerProfile, error) {
	var profile models.OrganizerProfile
	if err := ForUpdate(r.db).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// DebitRunner subtracts coins only when the balance covers them.
func (r *ProfileRepository) DebitRunner(userID string, amount int) (bool, error) {
	if amount <= 0 {
		return false, ErrInvalidAmount
	}
	res := r.db.Model(&models.RunnerProfile{}).
		Where("user_id = ? AND coin >= ?", userID, amount).
		UpdateColumn("coin", gorm.Expr("coin - ?", amount))
	return res.RowsAffected == 1, res.Error
}

func (r *ProfileRepository) CreditRunner(userID string, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return r.db.Model(&models.RunnerProfile{}).Where("user_id = ?", userID).
		UpdateColumn("coin", gorm.Expr("coin + ?", amount)).Error
}

func (r *ProfileRepository) CreditOrganizer(userID string, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return r.db.Model(&models.OrganizerProfile{}).Where("user_id = ?", userID).
		UpdateColumn("coin", gorm.Expr("coin + ?", amount)).Error
}
