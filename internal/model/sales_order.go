package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type SalesOrderItem struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Category    string          `json:"category,omitempty"`
	QtyKg       decimal.Decimal `json:"qty_kg"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// SalesOrder is an immutable snapshot of a confirmed order sheet.
type SalesOrder struct {
	ID                 uuid.UUID                           `gorm:"type:uuid;primaryKey" json:"id"`
	Status             Status                              `gorm:"size:32;not null" json:"status"`
	SourceOrderSheetID uuid.UUID                           `gorm:"type:uuid;not null;uniqueIndex" json:"source_order_sheet_id"`
	CustomerName       string                              `gorm:"size:255;not null" json:"customer_name"`
	TotalsKg           decimal.Decimal                     `gorm:"type:numeric(18,3)" json:"totals_kg"`
	TotalsAmount       decimal.Decimal                     `gorm:"type:numeric(18,2)" json:"totals_amount"`
	ConfirmedAt        time.Time                           `gorm:"not null" json:"confirmed_at"`
	Items              datatypes.JSONSlice[SalesOrderItem] `json:"items"`
	History            datatypes.JSONSlice[HistoryEntry]   `json:"history"`
	CreatedAt          time.Time                           `json:"created_at"`
	UpdatedAt          time.Time                           `json:"updated_at"`
}

func (o *SalesOrder) Kind() DocumentType {
	return DocumentSalesOrder
}

func (o *SalesOrder) DocumentID() uuid.UUID {
	return o.ID
}

func (o *SalesOrder) State() Status {
	return o.Status
}

func (o *SalesOrder) SetState(status Status) {
	o.Status = status
}

func (o *SalesOrder) AppendHistory(e HistoryEntry) {
	o.History = append(o.History, e)
}

func (o *SalesOrder) Item(id uuid.UUID) (SalesOrderItem, bool) {
	for _, item := range o.Items {
		if item.ID == id {
			return item, true
		}
	}
	return SalesOrderItem{}, false
}
