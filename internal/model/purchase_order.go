package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PurchaseOrderItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	QtyKg       decimal.Decimal `json:"qty_kg"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

type ReceiptLineStatus string

const (
	ReceiptLinePending ReceiptLineStatus = "PENDING"
	ReceiptLineChecked ReceiptLineStatus = "CHECKED"
	ReceiptLineIssue   ReceiptLineStatus = "ISSUE"
)

func (s ReceiptLineStatus) Terminal() bool {
	return s == ReceiptLineChecked || s == ReceiptLineIssue
}

type ReceiptLine struct {
	ProductID   string            `json:"product_id"`
	ProductName string            `json:"product_name"`
	ExpectedKg  decimal.Decimal   `json:"expected_kg"`
	ActualKg    decimal.Decimal   `json:"actual_kg"`
	BoxCount    int               `json:"box_count"`
	Status      ReceiptLineStatus `json:"status"`
	Note        string            `json:"note,omitempty"`
}

type PurchaseOrder struct {
	ID                     uuid.UUID                              `gorm:"type:uuid;primaryKey" json:"id"`
	Status                 Status                                 `gorm:"size:32;not null;index" json:"status"`
	SalesOrderID           *uuid.UUID                             `gorm:"type:uuid;index" json:"sales_order_id,omitempty"`
	SupplierOrgID          uuid.UUID                              `gorm:"type:uuid;not null;index" json:"supplier_org_id"`
	SupplierName           string                                 `gorm:"size:255" json:"supplier_name"`
	InviteTokenID          *string                                `gorm:"size:64" json:"invite_token_id,omitempty"`
	TotalsKg               decimal.Decimal                        `gorm:"type:numeric(18,3)" json:"totals_kg"`
	TotalsAmount           decimal.Decimal                        `gorm:"type:numeric(18,2)" json:"totals_amount"`
	ExpectedArrivalDate    *time.Time                             `json:"expected_arrival_date,omitempty"`
	Memo                   string                                 `gorm:"type:text" json:"memo,omitempty"`
	Items                  datatypes.JSONSlice[PurchaseOrderItem] `json:"items"`
	SupplierSubmittedAt    *time.Time                             `json:"supplier_submitted_at,omitempty"`
	ReceiptStage           Status                                 `gorm:"size:32" json:"receipt_stage,omitempty"`
	ReceiptLines           datatypes.JSONSlice[ReceiptLine]       `json:"receipt_lines,omitempty"`
	DocsInvoiceChecked     bool                                   `gorm:"not null;default:false" json:"docs_invoice_checked"`
	DocsCertificateChecked bool                                   `gorm:"not null;default:false" json:"docs_certificate_checked"`
	VehicleChecked         bool                                   `gorm:"not null;default:false" json:"vehicle_checked"`
	ReceivedAt             *time.Time                             `json:"received_at,omitempty"`
	History                datatypes.JSONSlice[HistoryEntry]      `json:"history"`
	CreatedAt              time.Time                              `json:"created_at"`
	UpdatedAt              time.Time                              `json:"updated_at"`
}

func (o *PurchaseOrder) Kind() DocumentType {
	return DocumentPurchaseOrder
}

func (o *PurchaseOrder) DocumentID() uuid.UUID {
	return o.ID
}

func (o *PurchaseOrder) State() Status {
	return o.Status
}

func (o *PurchaseOrder) SetState(status Status) {
	o.Status = status
}

func (o *PurchaseOrder) AppendHistory(e HistoryEntry) {
	o.History = append(o.History, e)
}

// ReceiptGate exposes the inbound verification steps of the order to the
// lifecycle engine. History is shared with the order itself.
func (o *PurchaseOrder) ReceiptGate() Stateful {
	return &receiptGate{po: o}
}

type receiptGate struct {
	po *PurchaseOrder
}

func (g *receiptGate) Kind() DocumentType {
	return DocumentReceiptGate
}

func (g *receiptGate) DocumentID() uuid.UUID {
	return g.po.ID
}

func (g *receiptGate) State() Status {
	return g.po.ReceiptStage
}

func (g *receiptGate) SetState(status Status) {
	g.po.ReceiptStage = status
}

func (g *receiptGate) AppendHistory(e HistoryEntry) {
	g.po.AppendHistory(e)
}

// ActualReceivedKg sums the weighed quantities, never the expected ones.
func (o *PurchaseOrder) ActualReceivedKg() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.ReceiptLines {
		total = total.Add(line.ActualKg)
	}
	return total
}

// ApplyReceivedTotals replaces the totals with the inspected weight, priced
// at each product's purchase order unit price. Items keep the ordered
// quantities.
func (o *PurchaseOrder) ApplyReceivedTotals() {
	prices := make(map[string]decimal.Decimal, len(o.Items))
	for _, item := range o.Items {
		prices[item.ProductID] = item.UnitPrice
	}
	amount := decimal.Zero
	for _, line := range o.ReceiptLines {
		amount = amount.Add(line.ActualKg.Mul(prices[line.ProductID]))
	}
	o.TotalsKg = o.ActualReceivedKg()
	o.TotalsAmount = amount
}

// RecomputeTotals sums the current lines from scratch.
func (o *PurchaseOrder) RecomputeTotals() {
	kg := decimal.Zero
	amount := decimal.Zero
	for i := range o.Items {
		o.Items[i].Amount = o.Items[i].QtyKg.Mul(o.Items[i].UnitPrice)
		kg = kg.Add(o.Items[i].QtyKg)
		amount = amount.Add(o.Items[i].Amount)
	}
	o.TotalsKg = kg
	o.TotalsAmount = amount
}

// Allocation is one (sales order line, supplier) cell. Re-allocating the
// same cell replaces its quantity.
type Allocation struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SalesOrderID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"sales_order_id"`
	SalesOrderItemID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_allocation_cell,priority:1" json:"sales_order_item_id"`
	SupplierOrgID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_allocation_cell,priority:2" json:"supplier_org_id"`
	PurchaseOrderID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"purchase_order_id"`
	QtyKg            decimal.Decimal `gorm:"type:numeric(18,3);not null" json:"qty_kg"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
