package database

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"spotrunner-api/models"
)

// Initialize opens the database for the configured driver: mysql (default),
// postgres or sqlite.
func Initialize(driver, databaseURL string, logLevel logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "", "mysql":
		dialector = mysql.Open(databaseURL)
	case "postgres", "postgresql":
		dialector = postgres.Open(databaseURL)
	case "sqlite":
		dialector = sqlite.Open(databaseURL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logLevel),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.RunnerProfile{},
		&models.OrganizerProfile{},
		&models.EventCategory{},
		&models.Event{},
		&models.Attendance{},
		&models.Review{},
		&models.Merchandise{},
		&models.Redemption{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := addCustomIndexes(db); err != nil {
		return fmt.Errorf("failed to add custom indexes: %w", err)
	}

	if err := addDatabaseConstraints(db); err != nil {
		return fmt.Errorf("failed to add database constraints: %w", err)
	}

	if err := seedEventCategories(db); err != nil {
		return fmt.Errorf("failed to seed event categories: %w", err)
	}

	return nil
}

func addCustomIndexes(db *gorm.DB) error {
	statements := map[string]string{
		"idx_attendances_event_status":  "CREATE INDEX IF NOT EXISTS idx_attendances_event_status ON attendances(event_id, status)",
		"idx_redemptions_runner_time":   "CREATE INDEX IF NOT EXISTS idx_redemptions_runner_time ON redemptions(runner_id, redeemed_at DESC)",
		"idx_reviews_organizer_created": "CREATE INDEX IF NOT EXISTS idx_reviews_organizer_created ON reviews(organizer_id, created_at DESC)",
	}
	for name, stmt := range statements {
		if db.Dialector.Name() == "mysql" {
			// MySQL has no CREATE INDEX IF NOT EXISTS.
			stmt = strings.Replace(stmt, " IF NOT EXISTS", "", 1)
			if db.Migrator().HasIndex(indexTable(name), name) {
				continue
			}
		}
		if err := db.Exec(stmt).Error; err != nil {
			slog.Warn("could not create index", "index", name, "error", err)
		}
	}
	return nil
}

func indexTable(name string) string {
	switch {
	case strings.HasPrefix(name, "idx_attendances"):
		return "attendances"
	case strings.HasPrefix(name, "idx_redemptions"):
		return "redemptions"
	default:
		return "reviews"
	}
}

func addDatabaseConstraints(db *gorm.DB) error {
	// SQLite cannot add constraints to an existing table.
	if db.Dialector.Name() == "sqlite" {
		return nil
	}

	constraints := []struct {
		name string
		stmt string
	}{
		{"ck_events_participants", "ALTER TABLE events ADD CONSTRAINT ck_events_participants CHECK (total_participants >= 0 AND total_participants <= capacity)"},
		{"ck_runner_profiles_coin", "ALTER TABLE runner_profiles ADD CONSTRAINT ck_runner_profiles_coin CHECK (coin >= 0)"},
		{"ck_merchandises_stock", "ALTER TABLE merchandises ADD CONSTRAINT ck_merchandises_stock CHECK (stock >= 0)"},
		{"ck_reviews_rating", "ALTER TABLE reviews ADD CONSTRAINT ck_reviews_rating CHECK (rating BETWEEN 1 AND 5)"},
	}
	for _, c := range constraints {
		if err := db.Exec(c.stmt).Error; err != nil {
			// Ignore error if constraint already exists
			slog.Warn("could not add constraint", "constraint", c.name, "error", err)
		}
	}
	return nil
}

func seedEventCategories(db *gorm.DB) error {
	for _, name := range models.EventCategoryNames {
		category := models.EventCategory{Category: name}
		if err := db.Where(models.EventCategory{Category: name}).FirstOrCreate(&category).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedData populates an empty database with a runner and an organizer for
// development.
func SeedData(db *gorm.DB) error {
	var userCount int64
	if err := db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		return err
	}

	if userCount > 0 {
		slog.Info("database already has data, skipping seed")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		runner := models.User{ID: uuid.New().String(), Username: "runner_demo", Email: "runner@example.com", Password: string(hash), Role: models.RoleRunner}
		organizer := models.User{ID: uuid.New().String(), Username: "organizer_demo", Email: "organizer@example.com", Password: string(hash), Role: models.RoleOrganizer}

		for _, u := range []*models.User{&runner, &organizer} {
			if err := tx.Create(u).Error; err != nil {
				return fmt.Errorf("could not create seed user %s: %w", u.Username, err)
			}
		}
		if err := tx.Create(&models.RunnerProfile{UserID: runner.ID, BaseLocation: "depok", Coin: 500}).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.OrganizerProfile{UserID: organizer.ID, BaseLocation: "jakarta_selatan"}).Error; err != nil {
			return err
		}

		slog.Info("database seeded", "runner", runner.Username, "organizer", organizer.Username)
		return nil
	})
}

// IsUniqueViolation reports whether err came from a unique index, across the
// supported drivers.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "duplicate key")
}
