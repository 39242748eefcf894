package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/nurpe/orderflow/internal/units"
)

type OrderSheetItem struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Category     string          `json:"category"`
	Unit         units.Mode      `json:"unit"`
	BoxWeight    decimal.Decimal `json:"box_weight"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	QtyRequested decimal.Decimal `json:"qty_requested"`
	EstimatedKg  decimal.Decimal `json:"estimated_kg"`
	Amount       decimal.Decimal `json:"amount"`
}

type OrderSheet struct {
	ID                uuid.UUID                           `gorm:"type:uuid;primaryKey" json:"id"`
	Status            Status                              `gorm:"size:32;not null;index" json:"status"`
	CustomerName      string                              `gorm:"size:255;not null" json:"customer_name"`
	IsGuest           bool                                `gorm:"not null;default:false" json:"is_guest"`
	CutOffAt          time.Time                           `gorm:"not null" json:"cut_off_at"`
	ShipTo            string                              `gorm:"size:500" json:"ship_to"`
	InviteTokenID     *string                             `gorm:"size:64" json:"invite_token_id,omitempty"`
	SourcePriceListID *uuid.UUID                          `gorm:"type:uuid;index" json:"source_price_list_id,omitempty"`
	ReachCount        int64                               `gorm:"not null;default:0" json:"reach_count"`
	Items             datatypes.JSONSlice[OrderSheetItem] `json:"items"`
	TotalsKg          decimal.Decimal                     `gorm:"type:numeric(18,3)" json:"totals_kg"`
	TotalsAmount      decimal.Decimal                     `gorm:"type:numeric(18,2)" json:"totals_amount"`
	Warnings          datatypes.JSONSlice[Warning]        `json:"warnings,omitempty"`
	SubmittedAt       *time.Time                          `json:"submitted_at,omitempty"`
	History           datatypes.JSONSlice[HistoryEntry]   `json:"history"`
	CreatedAt         time.Time                           `json:"created_at"`
	UpdatedAt         time.Time                           `json:"updated_at"`
}

func (s *OrderSheet) Kind() DocumentType {
	return DocumentOrderSheet
}

func (s *OrderSheet) DocumentID() uuid.UUID {
	return s.ID
}

func (s *OrderSheet) State() Status {
	return s.Status
}

func (s *OrderSheet) SetState(status Status) {
	s.Status = status
}

func (s *OrderSheet) AppendHistory(e HistoryEntry) {
	s.History = append(s.History, e)
}

// PastCutOff reports whether the submission deadline has passed at now.
func (s *OrderSheet) PastCutOff(now time.Time) bool {
	return !s.CutOffAt.IsZero() && now.After(s.CutOffAt)
}

// HasRequestedQuantity reports whether at least one line asks for a positive
// quantity.
func (s *OrderSheet) HasRequestedQuantity() bool {
	for _, item := range s.Items {
		if item.QtyRequested.IsPositive() {
			return true
		}
	}
	return false
}

// Recompute re-derives every line and the document totals from scratch.
// Derived fields are never patched incrementally.
func (s *OrderSheet) Recompute() []Warning {
	lines := make([]units.Line, 0, len(s.Items))
	var warnings []Warning
	for i := range s.Items {
		item := &s.Items[i]
		if item.QtyRequested.IsNegative() {
			item.QtyRequested = decimal.Zero
		}
		line := units.Resolve(item.QtyRequested, item.Unit, item.BoxWeight, item.UnitPrice)
		item.EstimatedKg = line.EstimatedKg
		item.Amount = line.Amount
		if line.MissingBoxWeight {
			warnings = append(warnings, Warning{
				Code:      WarningDataQuality,
				ProductID: item.ProductID,
				Message:   fmt.Sprintf("%s is ordered in boxes but has no box weight", item.ProductName),
			})
		}
		lines = append(lines, line)
	}
	totals := units.Sum(lines)
	s.TotalsKg = totals.Kg
	s.TotalsAmount = totals.Amount
	s.Warnings = warnings
	return warnings
}

// OrderSheetItemFromPriceList turns a price list snapshot row into an empty
// order line priced at the list's supply price.
func OrderSheetItemFromPriceList(item PriceListItem) OrderSheetItem {
	unit := item.Unit
	if unit != units.ModeBox {
		unit = units.ModeKg
	}
	return OrderSheetItem{
		ProductID:    item.ProductID,
		ProductName:  item.Name,
		Category:     item.Category,
		Unit:         unit,
		BoxWeight:    item.BoxWeight,
		UnitPrice:    item.SupplyPrice,
		QtyRequested: decimal.Zero,
		EstimatedKg:  decimal.Zero,
		Amount:       decimal.Zero,
	}
}
