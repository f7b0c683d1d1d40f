package models

import (
	"time"
)

type MerchCategory string

var MerchCategories = []MerchCategory{
	"apparel",
	"accessories",
	"water_bottle",
	"equipment",
	"nutrition",
	"other",
}

func (c MerchCategory) Valid() bool {
	for _, mc := range MerchCategories {
		if mc == c {
			return true
		}
	}
	return false
}

type Merchandise struct {
	ID          string        `json:"id" gorm:"primaryKey;size:191"`
	OrganizerID string        `json:"organizer_id" gorm:"not null;size:191;index"`
	Name        string        `json:"name" gorm:"not null;size:255"`
	Description string        `json:"description" gorm:"type:text"`
	Category    MerchCategory `json:"category" gorm:"not null;size:50;index"`
	PriceCoins  int           `json:"price_coins" gorm:"not null"`
	Stock       int           `json:"stock" gorm:"not null;default:0"`
	ImageURL    string        `json:"image_url" gorm:"size:500"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	Organizer *OrganizerProfile `json:"organizer,omitempty" gorm:"foreignKey:OrganizerID;references:UserID"`
}

func (m *Merchandise) Available() bool {
	return m.Stock > 0
}

const DeletedProductName = "[Deleted Product]"

// Redemption is a completed coin-for-merchandise transaction. Price and
// name are snapshots taken at redemption time; the row is never updated
// except to drop the merchandise reference when the product is deleted.
type Redemption struct {
	ID              string    `json:"id" gorm:"primaryKey;size:191"`
	RunnerID        string    `json:"runner_id" gorm:"not null;size:191;index"`
	MerchandiseID   *string   `json:"merchandise_id" gorm:"size:191;index"`
	OrganizerID     *string   `json:"organizer_id" gorm:"size:191;index"`
	MerchandiseName string    `json:"-" gorm:"size:255"`
	Quantity        int       `json:"quantity" gorm:"not null"`
	PricePerItem    int       `json:"price_per_item" gorm:"not null"`
	TotalCoins      int       `json:"total_coins" gorm:"not null"`
	RedeemedAt      time.Time `json:"redeemed_at" gorm:"not null;index"`
}

func (r *Redemption) ProductName() string {
	if r.MerchandiseID == nil {
		return DeletedProductName
	}
	return r.MerchandiseName
}
