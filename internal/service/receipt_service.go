package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nurpe/orderflow/internal/lifecycle"
	"github.com/nurpe/orderflow/internal/model"
	"github.com/nurpe/orderflow/internal/repository"
)

// ReceiptService drives the inbound gate of a purchase order: paperwork,
// vehicle, line inspection, then receipt.
type ReceiptService struct {
	*Deps
}

func NewReceiptService(deps *Deps) *ReceiptService {
	return &ReceiptService{Deps: deps}
}

// StartReceipt opens the gate at DOCS with one pending line per ordered
// product.
func (s *ReceiptService) StartReceipt(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.PurchaseOrder, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(order *model.PurchaseOrder) error {
		if order.Status != model.StatusSent {
			return lifecycle.Unmet("purchase order is sent")
		}
		if err := s.Engine.Start(order.ReceiptGate(), principal.Actor()); err != nil {
			return err
		}
		lines := make([]model.ReceiptLine, 0, len(order.Items))
		for _, item := range order.Items {
			lines = append(lines, model.ReceiptLine{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				ExpectedKg:  item.QtyKg,
				ActualKg:    decimal.Zero,
				Status:      model.ReceiptLinePending,
			})
		}
		order.ReceiptLines = lines
		return nil
	})
}

type CheckDocsInput struct {
	Principal   model.Principal
	ID          uuid.UUID
	Invoice     bool
	Certificate bool
}

// CheckDocs records the two paperwork checks.
func (s *ReceiptService) CheckDocs(ctx context.Context, input CheckDocsInput) (*model.PurchaseOrder, error) {
	if err := requireStaff(input.Principal); err != nil {
		return nil, err
	}
	return s.mutate(ctx, input.ID, func(order *model.PurchaseOrder) error {
		if err := atStage(order, model.StageDocs); err != nil {
			return err
		}
		order.DocsInvoiceChecked = input.Invoice
		order.DocsCertificateChecked = input.Certificate
		return nil
	})
}

func (s *ReceiptService) CheckVehicle(ctx context.Context, principal model.Principal, id uuid.UUID, checked bool) (*model.PurchaseOrder, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(order *model.PurchaseOrder) error {
		if err := atStage(order, model.StageVehicle); err != nil {
			return err
		}
		order.VehicleChecked = checked
		return nil
	})
}

type RecordLineInput struct {
	Principal       model.Principal
	PurchaseOrderID uuid.UUID
	ProductID       string
	ActualKg        decimal.Decimal
	BoxCount        int
	Status          model.ReceiptLineStatus
	Note            string
}

// RecordLine stores the weighed result of one line during inspection.
func (s *ReceiptService) RecordLine(ctx context.Context, input RecordLineInput) (*model.PurchaseOrder, error) {
	if err := requireStaff(input.Principal); err != nil {
		return nil, err
	}
	if input.ActualKg.IsNegative() || input.BoxCount < 0 {
		return nil, fmt.Errorf("%w: actual_kg and box_count must not be negative", ErrInvalidInput)
	}
	switch input.Status {
	case model.ReceiptLinePending, model.ReceiptLineChecked, model.ReceiptLineIssue:
	default:
		return nil, fmt.Errorf("%w: unknown line status %q", ErrInvalidInput, input.Status)
	}
	return s.mutate(ctx, input.PurchaseOrderID, func(order *model.PurchaseOrder) error {
		if err := atStage(order, model.StageInspect); err != nil {
			return err
		}
		for i := range order.ReceiptLines {
			line := &order.ReceiptLines[i]
			if line.ProductID != input.ProductID {
				continue
			}
			line.ActualKg = input.ActualKg
			line.BoxCount = input.BoxCount
			line.Status = input.Status
			line.Note = input.Note
			return nil
		}
		return fmt.Errorf("%w: product %q is not on the receipt", ErrInvalidInput, input.ProductID)
	})
}

// AdvanceReceipt moves the gate one step. Completing inspection writes the
// actual received weight and its amount and marks the purchase order RECEIVED.
func (s *ReceiptService) AdvanceReceipt(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.PurchaseOrder, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	actor := principal.Actor()
	return s.mutate(ctx, id, func(order *model.PurchaseOrder) error {
		var guard lifecycle.Guard
		switch order.ReceiptStage {
		case model.StageDocs:
			guard = lifecycle.Require(order.DocsInvoiceChecked && order.DocsCertificateChecked,
				"invoice and certificate checked")
		case model.StageVehicle:
			guard = lifecycle.Require(order.VehicleChecked, "vehicle checked")
		case model.StageInspect:
			var pending []string
			for _, line := range order.ReceiptLines {
				if !line.Status.Terminal() {
					pending = append(pending, line.ProductID)
				}
			}
			guard = lifecycle.Require(len(pending) == 0,
				"every line inspected (pending: "+strings.Join(pending, ", ")+")")
		default:
			guard = func() error { return nil }
		}
		if err := s.Engine.Transition(order.ReceiptGate(), lifecycle.EventAdvance, actor, guard); err != nil {
			return err
		}
		if order.ReceiptStage != model.StageDone {
			return nil
		}

		order.ApplyReceivedTotals()
		if err := s.Engine.Transition(order, lifecycle.EventReceive, actor); err != nil {
			return err
		}
		now := s.now()
		order.ReceivedAt = &now
		return nil
	})
}

func (s *ReceiptService) mutate(ctx context.Context, id uuid.UUID, fn func(order *model.PurchaseOrder) error) (*model.PurchaseOrder, error) {
	var order *model.PurchaseOrder
	err := s.Store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		order, err = tx.LockPurchaseOrder(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if err := fn(order); err != nil {
			return err
		}
		return tx.SavePurchaseOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func atStage(order *model.PurchaseOrder, stage model.Status) error {
	if order.ReceiptStage != stage {
		return lifecycle.Unmet(fmt.Sprintf("receipt gate is at %s", stage))
	}
	return nil
}
