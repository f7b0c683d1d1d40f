package services

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"spotrunner-api/models"
	"spotrunner-api/monitoring"
	"spotrunner-api/repositories"
)

type RedemptionResult struct {
	Redemption     models.Redemption `json:"redemption"`
	ProductName    string            `json:"product_name"`
	RemainingCoins int               `json:"remaining_coins"`
	RemainingStock int               `json:"remaining_stock"`
	TotalCoins     int               `json:"total_coins"`
}

// RedemptionView is a ledger row as shown in purchase history.
type RedemptionView struct {
	models.Redemption
	ProductName string `json:"product_name"`
	RunnerName  string `json:"runner_name,omitempty"`
}

type RedemptionHistory struct {
	Redemptions     []RedemptionView `json:"redemptions"`
	OrganizerEarned int              `json:"organizer_earned,omitempty"`
}

type RedemptionService struct {
	db       *gorm.DB
	notifier Notifier
	Now      func() time.Time
}

func NewRedemptionService(db *gorm.DB, notifier Notifier) *RedemptionService {
	return &RedemptionService{db: db, notifier: notifier, Now: time.Now}
}

// Redeem exchanges the runner's coins for quantity items. Stock, both coin
// balances and the ledger row change together or not at all.
func (s *RedemptionService) Redeem(ctx context.Context, actor *models.Identity, merchID string, quantity int) (*RedemptionResult, error) {
	var result *RedemptionResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profiles := repositories.NewProfileRepository(tx)

		var item models.Merchandise
		if err := repositories.ForUpdate(tx).First(&item, "id = ?", merchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMerchNotFound
			}
			return err
		}

		identity, ok := actor.AsRunner()
		if !ok {
			return ErrRunnersOnlyRedeem
		}
		if quantity < 1 {
			return ErrInvalidQuantity
		}
		if quantity > item.Stock {
			return ErrInsufficientStock
		}

		runner, err := profiles.RunnerForUpdate(identity.UserID)
		if err != nil {
			return err
		}
		if item.PriceCoins < 1 || quantity > math.MaxInt/item.PriceCoins {
			return ErrInsufficientCoins
		}
		total := item.PriceCoins * quantity
		if runner.Coin < total {
			return ErrInsufficientCoins
		}
		if _, err := profiles.OrganizerForUpdate(item.OrganizerID); err != nil {
			return err
		}

		res := tx.Model(&models.Merchandise{}).
			Where("id = ? AND stock >= ?", item.ID, quantity).
			UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrInsufficientStock
		}

		debited, err := profiles.DebitRunner(runner.UserID, total)
		if err != nil {
			return err
		}
		if !debited {
			return ErrInsufficientCoins
		}
		if err := profiles.CreditOrganizer(item.OrganizerID, total); err != nil {
			return err
		}

		merchRef, organizerRef := item.ID, item.OrganizerID
		redemption := models.Redemption{
			ID:              uuid.New().String(),
			RunnerID:        runner.UserID,
			MerchandiseID:   &merchRef,
			OrganizerID:     &organizerRef,
			MerchandiseName: item.Name,
			Quantity:        quantity,
			PricePerItem:    item.PriceCoins,
			TotalCoins:      total,
			RedeemedAt:      s.Now().UTC(),
		}
		if err := tx.Create(&redemption).Error; err != nil {
			return err
		}

		result = &RedemptionResult{
			Redemption:     redemption,
			ProductName:    redemption.ProductName(),
			RemainingCoins: runner.Coin - total,
			RemainingStock: item.Stock - quantity,
			TotalCoins:     total,
		}
		return nil
	})
	if err != nil {
		monitoring.TrackRedemption(outcomeLabel(err), 0)
		return nil, err
	}

	monitoring.TrackRedemption("success", result.TotalCoins)
	slog.Info("merchandise redeemed",
		"runner", result.Redemption.RunnerID,
		"merchandise", merchID,
		"quantity", quantity,
		"total_coins", result.TotalCoins)

	if s.notifier != nil {
		go s.notifier.RedemptionReceipt(actor.User, result)
	}
	return result, nil
}

// History lists the runner's purchases, or for an organizer the sales of
// their products together with the coins earned.
func (s *RedemptionService) History(ctx context.Context, actor *models.Identity) (*RedemptionHistory, error) {
	db := s.db.WithContext(ctx)
	var rows []models.Redemption
	history := &RedemptionHistory{}

	if organizer, ok := actor.AsOrganizer(); ok {
		if err := db.Where("organizer_id = ?", organizer.UserID).
			Order("redeemed_at DESC").Find(&rows).Error; err != nil {
			return nil, err
		}
		runnerNames, err := s.runnerNames(db, rows)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			history.OrganizerEarned += r.TotalCoins
			history.Redemptions = append(history.Redemptions, RedemptionView{
				Redemption:  r,
				ProductName: r.ProductName(),
				RunnerName:  runnerNames[r.RunnerID],
			})
		}
		return history, nil
	}

	runner, ok := actor.AsRunner()
	if !ok {
		return nil, ErrUserNotFound
	}
	if err := db.Where("runner_id = ?", runner.UserID).
		Order("redeemed_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		history.Redemptions = append(history.Redemptions, RedemptionView{
			Redemption:  r,
			ProductName: r.ProductName(),
		})
	}
	return history, nil
}

func (s *RedemptionService) runnerNames(db *gorm.DB, rows []models.Redemption) (map[string]string, error) {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.RunnerID)
	}
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var users []models.User
	if err := db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		names[u.ID] = u.DisplayName()
	}
	return names, nil
}
