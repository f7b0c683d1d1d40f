package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"spotrunner-api/database"
	"spotrunner-api/models"
)

const testPassword = "Secret123!"

var testNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)"
	db, err := database.Initialize("sqlite", dsn, logger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func hashed(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func createRunner(t *testing.T, db *gorm.DB, username string, coin int) *models.Identity {
	t.Helper()
	user := models.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    username + "@example.com",
		Password: hashed(t),
		Role:     models.RoleRunner,
	}
	require.NoError(t, db.Create(&user).Error)
	profile := &models.RunnerProfile{UserID: user.ID, BaseLocation: "depok", Coin: coin}
	require.NoError(t, db.Create(profile).Error)
	return models.NewRunnerIdentity(user, profile)
}

func createOrganizer(t *testing.T, db *gorm.DB, username string) *models.Identity {
	t.Helper()
	user := models.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    username + "@example.com",
		Password: hashed(t),
		Role:     models.RoleOrganizer,
	}
	require.NoError(t, db.Create(&user).Error)
	profile := &models.OrganizerProfile{UserID: user.ID, BaseLocation: "jakarta_selatan"}
	require.NoError(t, db.Create(profile).Error)
	return models.NewOrganizerIdentity(user, profile)
}

type eventOpts struct {
	capacity   int
	categories []string
	date       time.Time
	deadline   time.Time
	coin       int
	status     models.EventStatus
}

func createEvent(t *testing.T, db *gorm.DB, organizer *models.Identity, opts eventOpts) *models.Event {
	t.Helper()
	if opts.capacity == 0 {
		opts.capacity = 10
	}
	if opts.date.IsZero() {
		opts.date = testNow.AddDate(0, 0, 14)
	}
	if opts.deadline.IsZero() {
		opts.deadline = opts.date.AddDate(0, 0, -1)
	}
	if opts.status == "" {
		opts.status = models.DeriveStatus(opts.date, testNow, "")
	}

	var categories []models.EventCategory
	if len(opts.categories) > 0 {
		require.NoError(t, db.Where("category IN ?", opts.categories).Find(&categories).Error)
		require.Len(t, categories, len(opts.categories))
	}

	profile, _ := organizer.AsOrganizer()
	event := &models.Event{
		ID:             uuid.NewString(),
		Name:           "Jakarta Night Run",
		Location:       "jakarta_pusat",
		EventDate:      opts.date,
		RegistDeadline: opts.deadline,
		Capacity:       opts.capacity,
		EventStatus:    opts.status,
		Coin:           opts.coin,
		OrganizerID:    profile.UserID,
		Categories:     categories,
	}
	require.NoError(t, db.Create(event).Error)
	return event
}

func createMerch(t *testing.T, db *gorm.DB, organizer *models.Identity, price, stock int) *models.Merchandise {
	t.Helper()
	profile, _ := organizer.AsOrganizer()
	item := &models.Merchandise{
		ID:          uuid.NewString(),
		OrganizerID: profile.UserID,
		Name:        "Finisher Tee",
		Category:    "apparel",
		PriceCoins:  price,
		Stock:       stock,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func reloadEvent(t *testing.T, db *gorm.DB, id string) models.Event {
	t.Helper()
	var event models.Event
	require.NoError(t, db.First(&event, "id = ?", id).Error)
	return event
}

func runnerCoin(t *testing.T, db *gorm.DB, identity *models.Identity) int {
	t.Helper()
	var profile models.RunnerProfile
	require.NoError(t, db.First(&profile, "user_id = ?", identity.User.ID).Error)
	return profile.Coin
}

func organizerProfile(t *testing.T, db *gorm.DB, identity *models.Identity) models.OrganizerProfile {
	t.Helper()
	var profile models.OrganizerProfile
	require.NoError(t, db.First(&profile, "user_id = ?", identity.User.ID).Error)
	return profile
}

func newAttendanceService(db *gorm.DB) *AttendanceService {
	s := NewAttendanceService(db, nil)
	s.Now = fixedNow
	return s
}
