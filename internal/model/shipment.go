package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ChecklistEntry struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Checked  bool   `json:"checked"`
}

type Shipment struct {
	ID                 uuid.UUID                           `gorm:"type:uuid;primaryKey" json:"id"`
	Status             Status                              `gorm:"size:32;not null;index" json:"status"`
	SourceSalesOrderID uuid.UUID                           `gorm:"type:uuid;not null;uniqueIndex" json:"source_sales_order_id"`
	CarrierOrgID       *uuid.UUID                          `gorm:"type:uuid;index" json:"carrier_org_id,omitempty"`
	Company            string                              `gorm:"size:255" json:"company"`
	VehicleTypeID      string                              `gorm:"size:64" json:"vehicle_type_id"`
	VehicleNumber      string                              `gorm:"size:64" json:"vehicle_number"`
	DriverName         string                              `gorm:"size:255" json:"driver_name"`
	DriverPhone        string                              `gorm:"size:64" json:"driver_phone"`
	EtaAt              *time.Time                          `json:"eta_at,omitempty"`
	DispatcherToken    *string                             `gorm:"size:64" json:"dispatcher_token,omitempty"`
	IsModified         bool                                `gorm:"not null;default:false" json:"is_modified"`
	ModifiedAt         *time.Time                          `json:"modified_at,omitempty"`
	OutboundStage      Status                              `gorm:"size:32;not null" json:"outbound_stage"`
	DocsMatched        bool                                `gorm:"not null;default:false" json:"docs_matched"`
	Checklist          datatypes.JSONSlice[ChecklistEntry] `json:"checklist"`
	SignatureRef       string                              `gorm:"size:500" json:"signature_ref,omitempty"`
	DeliveredAt        *time.Time                          `json:"delivered_at,omitempty"`
	History            datatypes.JSONSlice[HistoryEntry]   `json:"history"`
	CreatedAt          time.Time                           `json:"created_at"`
	UpdatedAt          time.Time                           `json:"updated_at"`
}

func (s *Shipment) Kind() DocumentType {
	return DocumentShipment
}

func (s *Shipment) DocumentID() uuid.UUID {
	return s.ID
}

func (s *Shipment) State() Status {
	return s.Status
}

func (s *Shipment) SetState(status Status) {
	s.Status = status
}

func (s *Shipment) AppendHistory(e HistoryEntry) {
	s.History = append(s.History, e)
}

// OutboundGate exposes the outbound verification steps of the shipment.
func (s *Shipment) OutboundGate() Stateful {
	return &outboundGate{shipment: s}
}

type outboundGate struct {
	shipment *Shipment
}

func (g *outboundGate) Kind() DocumentType {
	return DocumentOutboundGate
}

func (g *outboundGate) DocumentID() uuid.UUID {
	return g.shipment.ID
}

func (g *outboundGate) State() Status {
	return g.shipment.OutboundStage
}

func (g *outboundGate) SetState(status Status) {
	g.shipment.OutboundStage = status
}

func (g *outboundGate) AppendHistory(e HistoryEntry) {
	g.shipment.AppendHistory(e)
}

// MissingChecklistItems returns the keys of required entries not yet ticked.
func (s *Shipment) MissingChecklistItems() []string {
	var missing []string
	for _, entry := range s.Checklist {
		if entry.Required && !entry.Checked {
			missing = append(missing, entry.Key)
		}
	}
	return missing
}

// CarrierProfile is the last vehicle/driver a carrier submitted, used to
// pre-fill the next dispatch form.
type CarrierProfile struct {
	CarrierOrgID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"carrier_org_id"`
	Company       string    `gorm:"size:255" json:"company"`
	DriverName    string    `gorm:"size:255" json:"driver_name"`
	DriverPhone   string    `gorm:"size:64" json:"driver_phone"`
	VehicleNumber string    `gorm:"size:64" json:"vehicle_number"`
	VehicleTypeID string    `gorm:"size:64" json:"vehicle_type_id"`
	UpdatedAt     time.Time `json:"updated_at"`
}
