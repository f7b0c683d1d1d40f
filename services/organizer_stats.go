package services

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"spotrunner-api/models"
)

// RefreshOrganizerStats recomputes the cached total_events, rating and
// review_count of an organizer. Callers run it inside the transaction that
// changed events or reviews.
func RefreshOrganizerStats(tx *gorm.DB, organizerID string) error {
	var totalEvents int64
	if err := tx.Model(&models.Event{}).Where("organizer_id = ?", organizerID).Count(&totalEvents).Error; err != nil {
		return err
	}

	var agg struct {
		Count int64
		Avg   *float64
	}
	if err := tx.Model(&models.Review{}).
		Select("COUNT(*) AS count, AVG(rating) AS avg").
		Where("organizer_id = ?", organizerID).
		Scan(&agg).Error; err != nil {
		return err
	}

	rating := 0.0
	if agg.Avg != nil {
		rating = RoundRating(*agg.Avg)
	}

	return tx.Model(&models.OrganizerProfile{}).Where("user_id = ?", organizerID).
		Updates(map[string]interface{}{
			"total_events": totalEvents,
			"review_count": agg.Count,
			"rating":       rating,
		}).Error
}

// RoundRating rounds an average rating to one decimal place.
func RoundRating(avg float64) float64 {
	f, _ := decimal.NewFromFloat(avg).Round(1).Float64()
	return f
}
