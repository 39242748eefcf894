package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/orderflow/internal/lifecycle"
	"github.com/nurpe/orderflow/internal/model"
	"github.com/nurpe/orderflow/internal/repository"
)

type DispatchNoteRenderer interface {
	Generate(shipment model.Shipment, order model.SalesOrder) ([]byte, error)
}

type DispatchService struct {
	*Deps
	pdf DispatchNoteRenderer
}

func NewDispatchService(deps *Deps, pdf DispatchNoteRenderer) *DispatchService {
	return &DispatchService{Deps: deps, pdf: pdf}
}

// ShipmentDetails are the vehicle and driver fields. Empty fields leave the
// current value in place.
type ShipmentDetails struct {
	Company       string     `json:"company"`
	VehicleTypeID string     `json:"vehicle_type_id"`
	VehicleNumber string     `json:"vehicle_number"`
	DriverName    string     `json:"driver_name"`
	DriverPhone   string     `json:"driver_phone"`
	EtaAt         *time.Time `json:"eta_at,omitempty"`
}

func (d ShipmentDetails) applyTo(shipment *model.Shipment) bool {
	changed := false
	set := func(dst *string, v string) {
		v = strings.TrimSpace(v)
		if v != "" && v != *dst {
			*dst = v
			changed = true
		}
	}
	set(&shipment.Company, d.Company)
	set(&shipment.VehicleTypeID, d.VehicleTypeID)
	set(&shipment.VehicleNumber, d.VehicleNumber)
	set(&shipment.DriverName, d.DriverName)
	set(&shipment.DriverPhone, d.DriverPhone)
	if d.EtaAt != nil {
		shipment.EtaAt = utcPtr(d.EtaAt)
		changed = true
	}
	return changed
}

type CreateShipmentInput struct {
	Principal    model.Principal
	SalesOrderID uuid.UUID
	CarrierOrgID *uuid.UUID
	Details      ShipmentDetails
}

// CreateShipment opens the single shipment of a sales order with its
// outbound gate at DOCS.
func (s *DispatchService) CreateShipment(ctx context.Context, input CreateShipmentInput) (*model.Shipment, error) {
	if err := requireManager(input.Principal); err != nil {
		return nil, err
	}
	if _, err := s.Store.GetSalesOrder(ctx, input.SalesOrderID); err != nil {
		return nil, notFound(err)
	}
	if input.CarrierOrgID != nil {
		if _, err := s.carrier(ctx, s.Store, *input.CarrierOrgID); err != nil {
			return nil, err
		}
	}

	shipment := &model.Shipment{
		ID:                 uuid.New(),
		SourceSalesOrderID: input.SalesOrderID,
		CarrierOrgID:       input.CarrierOrgID,
		Checklist:          s.checklist(),
	}
	input.Details.applyTo(shipment)
	actor := input.Principal.Actor()
	if err := s.Engine.Start(shipment, actor); err != nil {
		return nil, err
	}
	if err := s.Engine.Start(shipment.OutboundGate(), actor); err != nil {
		return nil, err
	}
	if err := s.Store.CreateShipment(ctx, shipment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: sales order %s already has a shipment", ErrAlreadyExists, input.SalesOrderID)
		}
		return nil, err
	}
	return shipment, nil
}

func (s *DispatchService) checklist() []model.ChecklistEntry {
	entries := make([]model.ChecklistEntry, 0, len(s.Orders.OutboundChecklist))
	for _, key := range s.Orders.OutboundChecklist {
		label := strings.ReplaceAll(key, "_", " ")
		if label != "" {
			label = strings.ToUpper(label[:1]) + label[1:]
		}
		entries = append(entries, model.ChecklistEntry{Key: key, Label: label, Required: true})
	}
	return entries
}

func (s *DispatchService) GetShipment(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Shipment, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	shipment, err := s.Store.GetShipment(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return shipment, nil
}

// UpdateShipmentDetails is the staff edit of vehicle and driver details.
// Edits after dispatch mark the shipment modified; status never moves back.
func (s *DispatchService) UpdateShipmentDetails(ctx context.Context, principal model.Principal, id uuid.UUID, details ShipmentDetails) (*model.Shipment, error) {
	if err := requireManager(principal); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(tx *repository.Store, shipment *model.Shipment) error {
		if shipment.Status == model.StatusDelivered {
			return lifecycle.Unmet("shipment is not delivered")
		}
		if !details.applyTo(shipment) {
			return nil
		}
		if shipment.Status == model.StatusInTransit {
			now := s.now()
			shipment.IsModified = true
			shipment.ModifiedAt = &now
			s.Engine.Record(shipment, "modify", principal.Actor(), "details changed after dispatch")
		}
		return nil
	})
}

type DispatchRequestResult struct {
	Shipment *model.Shipment `json:"shipment"`
	Token    *model.Token    `json:"token"`
	Link     string          `json:"link"`
}

// RequestDispatch hands the carrier a one-form link that dispatches the
// shipment. A new request replaces any earlier link.
func (s *DispatchService) RequestDispatch(ctx context.Context, principal model.Principal, id, carrierOrgID uuid.UUID) (*DispatchRequestResult, error) {
	if err := requireManager(principal); err != nil {
		return nil, err
	}
	var (
		shipment *model.Shipment
		carrier  *model.Organization
		tok      *model.Token
	)
	err := s.Store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		shipment, err = tx.LockShipment(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if shipment.Status != model.StatusPreparing {
			return lifecycle.Unmet("shipment is preparing")
		}
		carrier, err = s.carrier(ctx, tx, carrierOrgID)
		if err != nil {
			return err
		}
		tokens := s.Tokens.With(tx)
		if err := tokens.Revoke(ctx, model.DocumentShipment, shipment.ID); err != nil {
			return err
		}
		tok, err = tokens.Issue(ctx, model.DocumentShipment, shipment.ID, model.CapabilitySubmitDispatch, nil)
		if err != nil {
			return err
		}
		shipment.CarrierOrgID = &carrier.ID
		if shipment.Company == "" {
			shipment.Company = carrier.Name
		}
		shipment.DispatcherToken = &tok.ID
		s.Engine.Record(shipment, "request-dispatch", principal.Actor(), carrier.Name)
		return tx.SaveShipment(ctx, shipment)
	})
	if err != nil {
		return nil, err
	}
	link := s.notify(ctx, tok, carrier.Name, "Please submit vehicle and driver details for pickup")
	return &DispatchRequestResult{Shipment: shipment, Token: tok, Link: link}, nil
}

type DispatchForm struct {
	Shipment *model.Shipment       `json:"shipment"`
	Profile  *model.CarrierProfile `json:"profile,omitempty"`
	Prefill  ShipmentDetails       `json:"prefill"`
}

// DispatchFormByToken returns the shipment with the form pre-filled from
// the carrier's last submission.
func (s *DispatchService) DispatchFormByToken(ctx context.Context, tokenID string) (*DispatchForm, error) {
	tok, err := s.Tokens.Resolve(ctx, tokenID, model.CapabilitySubmitDispatch)
	if err != nil {
		return nil, err
	}
	shipment, err := s.Store.GetShipment(ctx, tok.DocumentID)
	if err != nil {
		return nil, hidden(err)
	}
	form := &DispatchForm{
		Shipment: shipment,
		Prefill: ShipmentDetails{
			Company:       shipment.Company,
			VehicleTypeID: shipment.VehicleTypeID,
			VehicleNumber: shipment.VehicleNumber,
			DriverName:    shipment.DriverName,
			DriverPhone:   shipment.DriverPhone,
			EtaAt:         shipment.EtaAt,
		},
	}
	if shipment.CarrierOrgID == nil {
		return form, nil
	}
	profile, err := s.Store.GetCarrierProfile(ctx, *shipment.CarrierOrgID)
	if err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return form, nil
		}
		return nil, err
	}
	form.Profile = profile
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&form.Prefill.Company, profile.Company)
	fill(&form.Prefill.VehicleTypeID, profile.VehicleTypeID)
	fill(&form.Prefill.VehicleNumber, profile.VehicleNumber)
	fill(&form.Prefill.DriverName, profile.DriverName)
	fill(&form.Prefill.DriverPhone, profile.DriverPhone)
	return form, nil
}

// SubmitDispatchByToken is the carrier's single form submission: it fills
// the details, dispatches the shipment and remembers the details for the
// next request.
func (s *DispatchService) SubmitDispatchByToken(ctx context.Context, tokenID string, details ShipmentDetails) (*model.Shipment, error) {
	tok, err := s.Tokens.Resolve(ctx, tokenID, model.CapabilitySubmitDispatch)
	if err != nil {
		return nil, err
	}
	var shipment *model.Shipment
	err = s.Store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		shipment, err = tx.LockShipment(ctx, tok.DocumentID)
		if err != nil {
			return hidden(err)
		}
		actor := model.Actor{Kind: model.ActorCarrier, Name: shipment.Company}
		if shipment.CarrierOrgID != nil {
			actor.ID = shipment.CarrierOrgID.String()
		}
		if err := s.dispatch(shipment, details, actor); err != nil {
			return err
		}
		if shipment.CarrierOrgID != nil {
			err := tx.UpsertCarrierProfile(ctx, &model.CarrierProfile{
				CarrierOrgID:  *shipment.CarrierOrgID,
				Company:       shipment.Company,
				DriverName:    shipment.DriverName,
				DriverPhone:   shipment.DriverPhone,
				VehicleNumber: shipment.VehicleNumber,
				VehicleTypeID: shipment.VehicleTypeID,
				UpdatedAt:     s.now(),
			})
			if err != nil {
				return err
			}
		}
		return tx.SaveShipment(ctx, shipment)
	})
	if err != nil {
		return nil, err
	}
	return shipment, nil
}

// Dispatch is the staff equivalent of the carrier form.
func (s *DispatchService) Dispatch(ctx context.Context, principal model.Principal, id uuid.UUID, details ShipmentDetails) (*model.Shipment, error) {
	if err := requireManager(principal); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(tx *repository.Store, shipment *model.Shipment) error {
		return s.dispatch(shipment, details, principal.Actor())
	})
}

// dispatch applies details to a copy first so a failed guard leaves the
// shipment untouched.
func (s *DispatchService) dispatch(shipment *model.Shipment, details ShipmentDetails, actor model.Actor) error {
	next := *shipment
	details.applyTo(&next)
	err := s.Engine.Transition(shipment, lifecycle.EventDispatch, actor,
		lifecycle.Require(next.VehicleNumber != "", "vehicle number provided"),
		lifecycle.Require(next.DriverName != "", "driver name provided"),
	)
	if err != nil {
		return err
	}
	details.applyTo(shipment)
	return nil
}

// ConfirmDocsMatch records that the outgoing paperwork matches the order.
func (s *DispatchService) ConfirmDocsMatch(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Shipment, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(tx *repository.Store, shipment *model.Shipment) error {
		if shipment.OutboundStage != model.StageDocs {
			return lifecycle.Unmet("outbound gate is at DOCS")
		}
		shipment.DocsMatched = true
		return nil
	})
}

func (s *DispatchService) SetChecklistItem(ctx context.Context, principal model.Principal, id uuid.UUID, key string, checked bool) (*model.Shipment, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(tx *repository.Store, shipment *model.Shipment) error {
		if shipment.OutboundStage != model.StageDocs && shipment.OutboundStage != model.StageChecklist {
			return lifecycle.Unmet("outbound gate has not passed CHECKLIST")
		}
		for i := range shipment.Checklist {
			if shipment.Checklist[i].Key == key {
				shipment.Checklist[i].Checked = checked
				return nil
			}
		}
		return fmt.Errorf("%w: unknown checklist item %q", ErrInvalidInput, key)
	})
}

// AttachSignature stores the reference of the uploaded signature artifact.
func (s *DispatchService) AttachSignature(ctx context.Context, principal model.Principal, id uuid.UUID, ref string) (*model.Shipment, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: signature reference is required", ErrInvalidInput)
	}
	return s.mutate(ctx, id, func(tx *repository.Store, shipment *model.Shipment) error {
		if shipment.OutboundStage == model.StageDone {
			return lifecycle.Unmet("outbound gate is not done")
		}
		shipment.SignatureRef = ref
		return nil
	})
}

// AdvanceOutbound moves the outbound gate one step, checking the condition
// of the step being left.
func (s *DispatchService) AdvanceOutbound(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Shipment, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(tx *repository.Store, shipment *model.Shipment) error {
		var guard lifecycle.Guard
		switch shipment.OutboundStage {
		case model.StageDocs:
			guard = lifecycle.Require(shipment.DocsMatched, "documents match the order")
		case model.StageChecklist:
			missing := shipment.MissingChecklistItems()
			guard = lifecycle.Require(len(missing) == 0,
				"required checklist items checked (missing: "+strings.Join(missing, ", ")+")")
		case model.StageSignature:
			guard = lifecycle.Require(shipment.SignatureRef != "", "signature attached")
		default:
			guard = func() error { return nil }
		}
		return s.Engine.Transition(shipment.OutboundGate(), lifecycle.EventAdvance, principal.Actor(), guard)
	})
}

// Deliver confirms delivery of a dispatched shipment whose outbound gate is
// complete.
func (s *DispatchService) Deliver(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Shipment, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(tx *repository.Store, shipment *model.Shipment) error {
		err := s.Engine.Transition(shipment, lifecycle.EventDeliver, principal.Actor(),
			lifecycle.Require(shipment.OutboundStage == model.StageDone, "outbound gate is done"),
		)
		if err != nil {
			return err
		}
		now := s.now()
		shipment.DeliveredAt = &now
		return nil
	})
}

func (s *DispatchService) DispatchNote(ctx context.Context, principal model.Principal, id uuid.UUID) (*ExportResult, error) {
	shipment, err := s.GetShipment(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	order, err := s.Store.GetSalesOrder(ctx, shipment.SourceSalesOrderID)
	if err != nil {
		return nil, notFound(err)
	}
	content, err := s.pdf.Generate(*shipment, *order)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		FileName: fmt.Sprintf("dispatch_note_%s.pdf", shortID(shipment.ID)),
		Content:  content,
	}, nil
}

func (s *DispatchService) mutate(ctx context.Context, id uuid.UUID, fn func(tx *repository.Store, shipment *model.Shipment) error) (*model.Shipment, error) {
	var shipment *model.Shipment
	err := s.Store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		shipment, err = tx.LockShipment(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if err := fn(tx, shipment); err != nil {
			return err
		}
		return tx.SaveShipment(ctx, shipment)
	})
	if err != nil {
		return nil, err
	}
	return shipment, nil
}

func (s *DispatchService) carrier(ctx context.Context, store *repository.Store, id uuid.UUID) (*model.Organization, error) {
	org, err := store.GetOrganization(ctx, id)
	if err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return nil, fmt.Errorf("%w: carrier %s", ErrNotFound, id)
		}
		return nil, err
	}
	if org.Type != model.OrganizationCarrier {
		return nil, fmt.Errorf("%w: organization %s is not a carrier", ErrInvalidInput, id)
	}
	return org, nil
}
