package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/nurpe/orderflow/internal/units"
)

// Product is a catalog entry. Price lists and template copies read current
// pricing from here; nothing written here flows into existing documents.
type Product struct {
	ID             string          `gorm:"size:64;primaryKey" json:"id"`
	Name           string          `gorm:"size:255;not null" json:"name"`
	Category       string          `gorm:"size:128" json:"category"`
	Unit           units.Mode      `gorm:"size:8;not null;default:kg" json:"unit"`
	BoxWeight      decimal.Decimal `gorm:"type:numeric(18,3)" json:"box_weight"`
	CostPrice      decimal.Decimal `gorm:"type:numeric(18,2)" json:"cost_price"`
	WholesalePrice decimal.Decimal `gorm:"type:numeric(18,2)" json:"wholesale_price"`
	SupplyPrice    decimal.Decimal `gorm:"type:numeric(18,2)" json:"supply_price"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type PriceListItem struct {
	ProductID      string          `json:"product_id"`
	Name           string          `json:"name"`
	CostPrice      decimal.Decimal `json:"cost_price"`
	WholesalePrice decimal.Decimal `json:"wholesale_price"`
	SupplyPrice    decimal.Decimal `json:"supply_price"`
	Unit           units.Mode      `json:"unit"`
	Category       string          `json:"category"`
	BoxWeight      decimal.Decimal `json:"box_weight"`
}

// PriceListItemFromProduct snapshots the product's current prices.
func PriceListItemFromProduct(p Product) PriceListItem {
	return PriceListItem{
		ProductID:      p.ID,
		Name:           p.Name,
		CostPrice:      p.CostPrice,
		WholesalePrice: p.WholesalePrice,
		SupplyPrice:    p.SupplyPrice,
		Unit:           p.Unit,
		Category:       p.Category,
		BoxWeight:      p.BoxWeight,
	}
}

type PriceList struct {
	ID              uuid.UUID                          `gorm:"type:uuid;primaryKey" json:"id"`
	Title           string                             `gorm:"size:255;not null" json:"title"`
	Status          Status                             `gorm:"size:32;not null;default:ACTIVE" json:"status"`
	Items           datatypes.JSONSlice[PriceListItem] `json:"items"`
	ValidUntil      *time.Time                         `json:"valid_until,omitempty"`
	ShareTokenID    *string                            `gorm:"size:64" json:"share_token_id,omitempty"`
	ReachCount      int64                              `gorm:"not null;default:0" json:"reach_count"`
	ConversionCount int64                              `gorm:"not null;default:0" json:"conversion_count"`
	AdminComment    string                             `gorm:"type:text" json:"admin_comment,omitempty"`
	CreatedAt       time.Time                          `json:"created_at"`
	UpdatedAt       time.Time                          `json:"updated_at"`
}

// Expired is evaluated against the wall clock on every read; there is no
// background sweep.
func (p PriceList) Expired(now time.Time) bool {
	return p.ValidUntil != nil && now.After(*p.ValidUntil)
}

func (p PriceList) EffectiveStatus(now time.Time) Status {
	if p.Expired(now) {
		return StatusExpired
	}
	return StatusActive
}
