package model

type WarningCode string

const (
	WarningOverAllocation WarningCode = "OVER_ALLOCATION"
	WarningDataQuality    WarningCode = "DATA_QUALITY"
)

// Warning is surfaced to the caller next to a successful result. It never
// blocks the operation that produced it.
type Warning struct {
	Code      WarningCode `json:"code"`
	ProductID string      `json:"product_id,omitempty"`
	ItemID    string      `json:"item_id,omitempty"`
	Message   string      `json:"message"`
}
