package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"spotrunner-api/models"
	"spotrunner-api/repositories"
)

// Upper bounds keep price * quantity and coin balances far from int overflow.
const (
	MaxPriceCoins = 1_000_000
	MaxStock      = 100_000
)

type MerchandiseInput struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"required,merch_category"`
	PriceCoins  int    `json:"price_coins" binding:"min=1,max=1000000"`
	Stock       int    `json:"stock" binding:"min=0,max=100000"`
	ImageURL    string `json:"image_url" binding:"omitempty,url,max=500"`
}

func (in *MerchandiseInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return Validationf("Product name is required")
	}
	if !models.MerchCategory(in.Category).Valid() {
		return Validationf("Invalid category %q", in.Category)
	}
	if in.PriceCoins < 1 || in.PriceCoins > MaxPriceCoins {
		return Validationf("Price must be between 1 and %d coins", MaxPriceCoins)
	}
	if in.Stock < 0 || in.Stock > MaxStock {
		return Validationf("Stock must be between 0 and %d", MaxStock)
	}
	return nil
}

type MerchandiseService struct {
	db *gorm.DB
}

func NewMerchandiseService(db *gorm.DB) *MerchandiseService {
	return &MerchandiseService{db: db}
}

// Viewer is what the catalog shows about the signed-in caller: a runner's
// coin balance, or the coins an organizer has earned from redemptions.
type Viewer struct {
	UserCoins       *int `json:"user_coins,omitempty"`
	OrganizerEarned *int `json:"organizer_earned,omitempty"`
	IsOrganizer     bool `json:"is_organizer"`
}

type Catalog struct {
	Items []models.Merchandise `json:"items"`
	Viewer
}

type CatalogItem struct {
	Merchandise *models.Merchandise `json:"merchandise"`
	IsOwner     bool                `json:"is_owner"`
	Viewer
}

// Catalog lists the products for actor, who may be nil for anonymous
// visitors.
func (s *MerchandiseService) Catalog(ctx context.Context, actor *models.Identity, category string) (*Catalog, error) {
	items, err := s.List(ctx, category)
	if err != nil {
		return nil, err
	}
	viewer, err := s.viewer(ctx, actor)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Merchandise{}
	}
	return &Catalog{Items: items, Viewer: viewer}, nil
}

// Detail returns one product for actor, who may be nil.
func (s *MerchandiseService) Detail(ctx context.Context, actor *models.Identity, id string) (*CatalogItem, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	viewer, err := s.viewer(ctx, actor)
	if err != nil {
		return nil, err
	}
	view := &CatalogItem{Merchandise: item, Viewer: viewer}
	if organizer, ok := actor.AsOrganizer(); ok {
		view.IsOwner = item.OrganizerID == organizer.UserID
	}
	return view, nil
}

func (s *MerchandiseService) viewer(ctx context.Context, actor *models.Identity) (Viewer, error) {
	var v Viewer
	if runner, ok := actor.AsRunner(); ok {
		coins := runner.Coin
		v.UserCoins = &coins
	}
	if organizer, ok := actor.AsOrganizer(); ok {
		var earned int
		if err := s.db.WithContext(ctx).Model(&models.Redemption{}).
			Where("organizer_id = ?", organizer.UserID).
			Select("COALESCE(SUM(total_coins), 0)").Scan(&earned).Error; err != nil {
			return v, err
		}
		v.IsOrganizer = true
		v.OrganizerEarned = &earned
	}
	return v, nil
}

// List returns the catalog, optionally narrowed to one category.
func (s *MerchandiseService) List(ctx context.Context, category string) ([]models.Merchandise, error) {
	var items []models.Merchandise
	q := s.db.WithContext(ctx).Preload("Organizer.User").Order("created_at DESC")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	err := q.Find(&items).Error
	return items, err
}

func (s *MerchandiseService) Get(ctx context.Context, id string) (*models.Merchandise, error) {
	var item models.Merchandise
	if err := s.db.WithContext(ctx).Preload("Organizer.User").First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMerchNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (s *MerchandiseService) Create(ctx context.Context, actor *models.Identity, in MerchandiseInput) (*models.Merchandise, error) {
	organizer, ok := actor.AsOrganizer()
	if !ok {
		return nil, ErrNotMerchOwner
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	item := &models.Merchandise{
		ID:          uuid.New().String(),
		OrganizerID: organizer.UserID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Category:    models.MerchCategory(in.Category),
		PriceCoins:  in.PriceCoins,
		Stock:       in.Stock,
		ImageURL:    in.ImageURL,
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// Update changes the product. Past redemptions keep the price they were
// charged.
func (s *MerchandiseService) Update(ctx context.Context, actor *models.Identity, id string, in MerchandiseInput) (*models.Merchandise, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var item models.Merchandise
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ownedMerchandise(tx, actor, id, &item); err != nil {
			return err
		}
		item.Name = strings.TrimSpace(in.Name)
		item.Description = in.Description
		item.Category = models.MerchCategory(in.Category)
		item.PriceCoins = in.PriceCoins
		item.Stock = in.Stock
		item.ImageURL = in.ImageURL
		return tx.Model(&item).Updates(map[string]interface{}{
			"name":        item.Name,
			"description": item.Description,
			"category":    item.Category,
			"price_coins": item.PriceCoins,
			"stock":       item.Stock,
			"image_url":   item.ImageURL,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Delete removes the product. Redemptions of it survive with a null
// reference and their name snapshot.
func (s *MerchandiseService) Delete(ctx context.Context, actor *models.Identity, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.Merchandise
		if err := ownedMerchandise(tx, actor, id, &item); err != nil {
			return err
		}
		if err := tx.Model(&models.Redemption{}).Where("merchandise_id = ?", item.ID).
			UpdateColumn("merchandise_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&item).Error
	})
}

func ownedMerchandise(tx *gorm.DB, actor *models.Identity, id string, item *models.Merchandise) error {
	if err := repositories.ForUpdate(tx).First(item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMerchNotFound
		}
		return err
	}
	organizer, ok := actor.AsOrganizer()
	if !ok || organizer.UserID != item.OrganizerID {
		return ErrNotMerchOwner
	}
	return nil
}
