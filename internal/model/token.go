package model

import (
	"time"

	"github.com/google/uuid"
)

type Capability string

const (
	CapabilityViewPriceList       Capability = "view-pricelist"
	CapabilityEditOrderSheet      Capability = "edit-ordersheet"
	CapabilitySubmitPurchaseOrder Capability = "submit-purchaseorder"
	CapabilitySubmitDispatch      Capability = "submit-dispatch"
)

// Expires reports whether tokens of this capability honour ExpiresAt.
// Only price-list view tokens carry a validity window; the rest are
// open-ended.
func (c Capability) Expires() bool {
	return c == CapabilityViewPriceList
}

// DocumentType is the only document type a capability can be bound to.
func (c Capability) DocumentType() DocumentType {
	switch c {
	case CapabilityViewPriceList:
		return DocumentPriceList
	case CapabilityEditOrderSheet:
		return DocumentOrderSheet
	case CapabilitySubmitPurchaseOrder:
		return DocumentPurchaseOrder
	case CapabilitySubmitDispatch:
		return DocumentShipment
	default:
		return ""
	}
}

// LinkPath is the public path segment used in deep links for the capability.
func (c Capability) LinkPath() string {
	switch c {
	case CapabilityViewPriceList:
		return "price-view"
	case CapabilityEditOrderSheet:
		return "order"
	case CapabilitySubmitPurchaseOrder:
		return "purchase-order"
	case CapabilitySubmitDispatch:
		return "dispatch"
	default:
		return ""
	}
}

// Token is a bearer capability: whoever holds ID gets Capability on exactly
// one document.
type Token struct {
	ID           string       `gorm:"size:64;primaryKey" json:"id"`
	DocumentType DocumentType `gorm:"size:32;not null;index:idx_tokens_document,priority:1" json:"document_type"`
	DocumentID   uuid.UUID    `gorm:"type:uuid;not null;index:idx_tokens_document,priority:2" json:"document_id"`
	Capability   Capability   `gorm:"size:32;not null" json:"capability"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

func (t Token) Expired(now time.Time) bool {
	if !t.Capability.Expires() || t.ExpiresAt == nil {
		return false
	}
	return now.After(*t.ExpiresAt)
}
