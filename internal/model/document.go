package model

import (
	"time"

	"github.com/google/uuid"
)

type DocumentType string

const (
	DocumentPriceList     DocumentType = "price-list"
	DocumentOrderSheet    DocumentType = "order-sheet"
	DocumentSalesOrder    DocumentType = "sales-order"
	DocumentPurchaseOrder DocumentType = "purchase-order"
	DocumentShipment      DocumentType = "shipment"
	DocumentReceiptGate   DocumentType = "receipt-gate"
	DocumentOutboundGate  DocumentType = "outbound-gate"
)

type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusExpired Status = "EXPIRED"

	StatusDraft     Status = "DRAFT"
	StatusSent      Status = "SENT"
	StatusConfirmed Status = "CONFIRMED"
	StatusReceived  Status = "RECEIVED"

	StatusPreparing Status = "PREPARING"
	StatusInTransit Status = "IN_TRANSIT"
	StatusDelivered Status = "DELIVERED"

	// Gate steps shared by the inbound and outbound gates.
	StageDocs      Status = "DOCS"
	StageVehicle   Status = "VEHICLE"
	StageInspect   Status = "INSPECT"
	StageChecklist Status = "CHECKLIST"
	StageSignature Status = "SIGNATURE"
	StageDone      Status = "DONE"
)

type ActorKind string

const (
	ActorStaff    ActorKind = "STAFF"
	ActorGuest    ActorKind = "GUEST"
	ActorSupplier ActorKind = "SUPPLIER"
	ActorCarrier  ActorKind = "CARRIER"
	ActorSystem   ActorKind = "SYSTEM"
)

// Actor identifies who caused a change. For token holders ID is the bound
// organization (or empty for anonymous guests).
type Actor struct {
	Kind ActorKind `json:"kind"`
	ID   string    `json:"id,omitempty"`
	Name string    `json:"name,omitempty"`
}

type HistoryEntry struct {
	Actor Actor     `json:"actor"`
	Event string    `json:"event"`
	From  Status    `json:"from,omitempty"`
	To    Status    `json:"to,omitempty"`
	At    time.Time `json:"at"`
	Note  string    `json:"note,omitempty"`
}

// Stateful is implemented by every document (and gate) driven by the
// lifecycle engine.
type Stateful interface {
	Kind() DocumentType
	DocumentID() uuid.UUID
	State() Status
	SetState(Status)
	AppendHistory(HistoryEntry)
}
