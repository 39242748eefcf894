package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nurpe/orderflow/internal/lifecycle"
	"github.com/nurpe/orderflow/internal/model"
	"github.com/nurpe/orderflow/internal/repository"
)

type AllocationExporter interface {
	Generate(report model.AllocationReport) ([]byte, error)
}

type AllocationService struct {
	*Deps
	excel AllocationExporter
}

func NewAllocationService(deps *Deps, excel AllocationExporter) *AllocationService {
	return &AllocationService{Deps: deps, excel: excel}
}

type CreatePurchaseOrderInput struct {
	Principal           model.Principal
	SalesOrderID        *uuid.UUID
	SupplierOrgID       uuid.UUID
	ExpectedArrivalDate *time.Time
	Memo                string
}

func (s *AllocationService) CreatePurchaseOrder(ctx context.Context, input CreatePurchaseOrderInput) (*model.PurchaseOrder, error) {
	if err := requireManager(input.Principal); err != nil {
		return nil, err
	}
	supplier, err := s.supplier(ctx, s.Store, input.SupplierOrgID)
	if err != nil {
		return nil, err
	}
	if input.SalesOrderID != nil {
		if _, err := s.Store.GetSalesOrder(ctx, *input.SalesOrderID); err != nil {
			if errors.Is(notFound(err), ErrNotFound) {
				return nil, fmt.Errorf("%w: sales order %s", ErrNotFound, *input.SalesOrderID)
			}
			return nil, err
		}
	}

	order := &model.PurchaseOrder{
		ID:                  uuid.New(),
		SalesOrderID:        input.SalesOrderID,
		SupplierOrgID:       supplier.ID,
		SupplierName:        supplier.Name,
		ExpectedArrivalDate: utcPtr(input.ExpectedArrivalDate),
		Memo:                input.Memo,
		TotalsKg:            decimal.Zero,
		TotalsAmount:        decimal.Zero,
	}
	if err := s.Engine.Start(order, input.Principal.Actor()); err != nil {
		return nil, err
	}
	if err := s.Store.CreatePurchaseOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

type AllocateInput struct {
	Principal        model.Principal
	PurchaseOrderID  uuid.UUID
	SalesOrderItemID uuid.UUID
	SupplierOrgID    uuid.UUID
	QtyKg            decimal.Decimal
}

type AllocationResult struct {
	PurchaseOrder    *model.PurchaseOrder `json:"purchase_order"`
	SalesOrderItemID uuid.UUID            `json:"sales_order_item_id"`
	ItemQtyKg        decimal.Decimal      `json:"item_qty_kg"`
	AllocatedTotal   decimal.Decimal      `json:"allocated_total"`
	FullyAllocated   bool                 `json:"fully_allocated"`
	OverAllocated    bool                 `json:"over_allocated"`
	Warnings         []model.Warning      `json:"warnings,omitempty"`
}

// Allocate writes the (item, supplier) cell, replacing any earlier quantity,
// and rebuilds the purchase order lines from its cells. Zero clears the
// cell. Over-allocation is recorded and flagged.
func (s *AllocationService) Allocate(ctx context.Context, input AllocateInput) (*AllocationResult, error) {
	if err := requireManager(input.Principal); err != nil {
		return nil, err
	}
	if input.QtyKg.IsNegative() {
		return nil, fmt.Errorf("%w: qty_kg must not be negative", ErrInvalidInput)
	}

	var result *AllocationResult
	err := s.Store.InTx(ctx, func(tx *repository.Store) error {
		order, err := tx.GetPurchaseOrder(ctx, input.PurchaseOrderID)
		if err != nil {
			return notFound(err)
		}
		if order.SalesOrderID == nil {
			return lifecycle.Unmet("purchase order is allocated from a sales order")
		}
		// Sales order first, then purchase order, for every allocation writer.
		salesOrder, err := tx.LockSalesOrder(ctx, *order.SalesOrderID)
		if err != nil {
			return notFound(err)
		}
		order, err = tx.LockPurchaseOrder(ctx, input.PurchaseOrderID)
		if err != nil {
			return notFound(err)
		}
		if order.Status != model.StatusDraft {
			return lifecycle.Unmet("purchase order is a draft")
		}
		if input.SupplierOrgID != order.SupplierOrgID {
			return fmt.Errorf("%w: supplier does not match the purchase order", ErrInvalidInput)
		}
		item, ok := salesOrder.Item(input.SalesOrderItemID)
		if !ok {
			return fmt.Errorf("%w: sales order item %s", ErrNotFound, input.SalesOrderItemID)
		}

		// A cell belongs to one purchase order; moving it would leave the
		// other order's lines stale.
		existing, err := tx.GetAllocation(ctx, item.ID, order.SupplierOrgID)
		switch {
		case err == nil:
			if existing.PurchaseOrderID != order.ID {
				return lifecycle.Unmet(fmt.Sprintf("line is already allocated to %s through purchase order %s", order.SupplierName, existing.PurchaseOrderID))
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if input.QtyKg.IsZero() {
			err = tx.DeleteAllocation(ctx, item.ID, order.SupplierOrgID)
		} else {
			err = tx.UpsertAllocation(ctx, &model.Allocation{
				ID:               uuid.New(),
				SalesOrderID:     salesOrder.ID,
				SalesOrderItemID: item.ID,
				SupplierOrgID:    order.SupplierOrgID,
				PurchaseOrderID:  order.ID,
				QtyKg:            input.QtyKg,
			})
		}
		if err != nil {
			return err
		}

		if err := s.rebuildLines(ctx, tx, order, salesOrder); err != nil {
			return err
		}
		if err := tx.SavePurchaseOrder(ctx, order); err != nil {
			return err
		}

		report, err := s.report(ctx, tx, salesOrder)
		if err != nil {
			return err
		}
		line, _ := report.Line(item.ID)
		result = &AllocationResult{
			PurchaseOrder:    order,
			SalesOrderItemID: item.ID,
			ItemQtyKg:        item.QtyKg,
			AllocatedTotal:   line.AllocatedKg,
			FullyAllocated:   line.FullyAllocated,
			OverAllocated:    line.OverAllocated,
		}
		for _, w := range report.Warnings {
			if w.ItemID == item.ID.String() {
				result.Warnings = append(result.Warnings, w)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.OverAllocated {
		s.Log.Warn().
			Str("sales_order_item_id", result.SalesOrderItemID.String()).
			Str("allocated_kg", result.AllocatedTotal.String()).
			Str("ordered_kg", result.ItemQtyKg.String()).
			Msg("over-allocation recorded")
	}
	return result, nil
}

// rebuildLines derives the purchase order lines from its allocation cells,
// one line per product. Lines are priced at the catalog cost price, falling
// back to the sales price when the product has none.
func (s *AllocationService) rebuildLines(ctx context.Context, tx *repository.Store, order *model.PurchaseOrder, salesOrder *model.SalesOrder) error {
	cells, err := tx.ListAllocationsByPurchaseOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	var productIDs []string
	byProduct := make(map[string]*model.PurchaseOrderItem)
	for _, cell := range cells {
		item, ok := salesOrder.Item(cell.SalesOrderItemID)
		if !ok {
			continue
		}
		line, ok := byProduct[item.ProductID]
		if !ok {
			line = &model.PurchaseOrderItem{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				QtyKg:       decimal.Zero,
				UnitPrice:   item.UnitPrice,
			}
			byProduct[item.ProductID] = line
			productIDs = append(productIDs, item.ProductID)
		}
		line.QtyKg = line.QtyKg.Add(cell.QtyKg)
	}

	products, err := tx.ProductsByID(ctx, productIDs)
	if err != nil {
		return err
	}
	items := make([]model.PurchaseOrderItem, 0, len(productIDs))
	for _, id := range productIDs {
		line := byProduct[id]
		if product, ok := products[id]; ok && product.CostPrice.IsPositive() {
			line.UnitPrice = product.CostPrice
		}
		items = append(items, *line)
	}
	order.Items = items
	order.RecomputeTotals()
	return nil
}

func (s *AllocationService) report(ctx context.Context, store *repository.Store, salesOrder *model.SalesOrder) (model.AllocationReport, error) {
	cells, err := store.ListAllocationsBySalesOrder(ctx, salesOrder.ID)
	if err != nil {
		return model.AllocationReport{}, err
	}
	orders, err := store.ListPurchaseOrdersBySalesOrder(ctx, salesOrder.ID)
	if err != nil {
		return model.AllocationReport{}, err
	}
	names := make(map[uuid.UUID]string, len(orders))
	for _, order := range orders {
		names[order.SupplierOrgID] = order.SupplierName
	}
	return model.BuildAllocationReport(salesOrder, cells, names, s.now()), nil
}

// AllocationStatus reports per line and per supplier how much of the sales
// order is covered.
func (s *AllocationService) AllocationStatus(ctx context.Context, principal model.Principal, salesOrderID uuid.UUID) (*model.AllocationReport, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	salesOrder, err := s.Store.GetSalesOrder(ctx, salesOrderID)
	if err != nil {
		return nil, notFound(err)
	}
	report, err := s.report(ctx, s.Store, salesOrder)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

type PurchaseLineInput struct {
	ProductID string           `json:"product_id"`
	QtyKg     decimal.Decimal  `json:"qty_kg"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type SetPurchaseOrderLinesInput struct {
	Principal model.Principal
	ID        uuid.UUID
	Lines     []PurchaseLineInput
}

// SetPurchaseOrderLines replaces the lines of a direct purchase order, one
// that is not fed by sales order allocations.
func (s *AllocationService) SetPurchaseOrderLines(ctx context.Context, input SetPurchaseOrderLinesInput) (*model.PurchaseOrder, error) {
	if err := requireManager(input.Principal); err != nil {
		return nil, err
	}
	var order *model.PurchaseOrder
	err := s.Store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		order, err = tx.LockPurchaseOrder(ctx, input.ID)
		if err != nil {
			return notFound(err)
		}
		if order.SalesOrderID != nil {
			return lifecycle.Unmet("purchase order is not allocated from a sales order")
		}
		if order.Status != model.StatusDraft {
			return lifecycle.Unmet("purchase order is a draft")
		}

		ids := make([]string, 0, len(input.Lines))
		for _, line := range input.Lines {
			ids = append(ids, line.ProductID)
		}
		products, err := tx.ProductsByID(ctx, ids)
		if err != nil {
			return err
		}
		items := make([]model.PurchaseOrderItem, 0, len(input.Lines))
		for _, line := range input.Lines {
			product, ok := products[line.ProductID]
			if !ok {
				return fmt.Errorf("%w: unknown product %q", ErrInvalidInput, line.ProductID)
			}
			if line.QtyKg.IsNegative() {
				return fmt.Errorf("%w: negative quantity for %q", ErrInvalidInput, line.ProductID)
			}
			price := product.CostPrice
			if line.UnitPrice != nil {
				if line.UnitPrice.IsNegative() {
					return fmt.Errorf("%w: negative price for %q", ErrInvalidInput, line.ProductID)
				}
				price = *line.UnitPrice
			}
			items = append(items, model.PurchaseOrderItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				QtyKg:       line.QtyKg,
				UnitPrice:   price,
			})
		}
		order.Items = items
		order.RecomputeTotals()
		return tx.SavePurchaseOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

type SendPurchaseOrderResult struct {
	PurchaseOrder *model.PurchaseOrder `json:"purchase_order"`
	Token         *model.Token         `json:"token"`
	Link          string               `json:"link"`
}

func (s *AllocationService) SendPurchaseOrder(ctx context.Context, principal model.Principal, id uuid.UUID) (*SendPurchaseOrderResult, error) {
	if err := requireManager(principal); err != nil {
		return nil, err
	}
	var (
		order *model.PurchaseOrder
		tok   *model.Token
	)
	err := s.Store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		order, err = tx.LockPurchaseOrder(ctx, id)
		if err != nil {
			return notFound(err)
		}
		err = s.Engine.Transition(order, lifecycle.EventSend, principal.Actor(),
			lifecycle.Require(order.TotalsKg.IsPositive(), "purchase order has a quantity"),
		)
		if err != nil {
			return err
		}
		tok, err = s.Tokens.With(tx).Issue(ctx, model.DocumentPurchaseOrder, order.ID, model.CapabilitySubmitPurchaseOrder, nil)
		if err != nil {
			return err
		}
		order.InviteTokenID = &tok.ID
		return tx.SavePurchaseOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	link := s.notify(ctx, tok, order.SupplierName, fmt.Sprintf("Purchase order for %s kg is waiting for confirmation", order.TotalsKg.String()))
	return &SendPurchaseOrderResult{PurchaseOrder: order, Token: tok, Link: link}, nil
}

func (s *AllocationService) GetPurchaseOrder(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.PurchaseOrder, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	order, err := s.Store.GetPurchaseOrder(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return order, nil
}

// ViewBySupplierToken opens the purchase order for the supplier holding the
// link.
func (s *AllocationService) ViewBySupplierToken(ctx context.Context, tokenID string) (*model.PurchaseOrder, error) {
	tok, err := s.Tokens.Resolve(ctx, tokenID, model.CapabilitySubmitPurchaseOrder)
	if err != nil {
		return nil, err
	}
	order, err := s.Store.GetPurchaseOrder(ctx, tok.DocumentID)
	if err != nil {
		return nil, hidden(err)
	}
	return order, nil
}

type SupplierLineInput struct {
	ProductID string          `json:"product_id"`
	QtyKg     decimal.Decimal `json:"qty_kg"`
}

type SupplierSubmitInput struct {
	ExpectedArrivalDate *time.Time
	Memo                string
	Lines               []SupplierLineInput
}

// SubmitBySupplier records the supplier's confirmed arrival date, memo and
// quantities. It is accepted until the warehouse has checked the paperwork.
func (s *AllocationService) SubmitBySupplier(ctx context.Context, tokenID string, input SupplierSubmitInput) (*model.PurchaseOrder, error) {
	tok, err := s.Tokens.Resolve(ctx, tokenID, model.CapabilitySubmitPurchaseOrder)
	if err != nil {
		return nil, err
	}
	var order *model.PurchaseOrder
	err = s.Store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		order, err = tx.LockPurchaseOrder(ctx, tok.DocumentID)
		if err != nil {
			return hidden(err)
		}
		if order.Status != model.StatusSent {
			return lifecycle.Unmet("purchase order is awaiting delivery")
		}
		if order.ReceiptStage != "" && order.ReceiptStage != model.StageDocs {
			return lifecycle.Unmet("receipt has not passed the paperwork check")
		}

		for _, line := range input.Lines {
			if line.QtyKg.IsNegative() {
				return fmt.Errorf("%w: negative quantity for %q", ErrInvalidInput, line.ProductID)
			}
			found := false
			for i := range order.Items {
				if order.Items[i].ProductID == line.ProductID {
					order.Items[i].QtyKg = line.QtyKg
					found = true
				}
			}
			if !found {
				return fmt.Errorf("%w: product %q is not on the purchase order", ErrInvalidInput, line.ProductID)
			}
			for i := range order.ReceiptLines {
				if order.ReceiptLines[i].ProductID == line.ProductID {
					order.ReceiptLines[i].ExpectedKg = line.QtyKg
				}
			}
		}
		order.RecomputeTotals()
		if input.ExpectedArrivalDate != nil {
			order.ExpectedArrivalDate = utcPtr(input.ExpectedArrivalDate)
		}
		if memo := strings.TrimSpace(input.Memo); memo != "" {
			order.Memo = memo
		}
		now := s.now()
		order.SupplierSubmittedAt = &now
		s.Engine.Record(order, "supplier-submit", model.Actor{
			Kind: model.ActorSupplier,
			ID:   order.SupplierOrgID.String(),
			Name: order.SupplierName,
		}, "")
		return tx.SavePurchaseOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *AllocationService) ListBySupplier(ctx context.Context, principal model.Principal, supplierOrgID uuid.UUID) ([]model.PurchaseOrder, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	return s.Store.ListPurchaseOrdersBySupplier(ctx, supplierOrgID)
}

type CopyResult struct {
	Rows     []TemplateRow   `json:"rows"`
	Warnings []model.Warning `json:"warnings,omitempty"`
}

// CopyFromPastOrder returns the product lines of a past order sheet or
// purchase order as an independent template with current catalog prices.
func (s *AllocationService) CopyFromPastOrder(ctx context.Context, principal model.Principal, source CopySource) (*CopyResult, error) {
	if err := requireManager(principal); err != nil {
		return nil, err
	}
	rows, warnings, err := templateRows(ctx, s.Store, source.Type, source.ID)
	if err != nil {
		return nil, err
	}
	return &CopyResult{Rows: rows, Warnings: warnings}, nil
}

type ExportResult struct {
	FileName string
	Content  []byte
}

func (s *AllocationService) ExportAllocation(ctx context.Context, principal model.Principal, salesOrderID uuid.UUID) (*ExportResult, error) {
	report, err := s.AllocationStatus(ctx, principal, salesOrderID)
	if err != nil {
		return nil, err
	}
	content, err := s.excel.Generate(*report)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		FileName: fmt.Sprintf("allocation_%s_%s.xlsx", shortID(salesOrderID), report.GeneratedAt.Format("20060102")),
		Content:  content,
	}, nil
}

func (s *AllocationService) supplier(ctx context.Context, store *repository.Store, id uuid.UUID) (*model.Organization, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: supplier_org_id is required", ErrInvalidInput)
	}
	org, err := store.GetOrganization(ctx, id)
	if err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return nil, fmt.Errorf("%w: supplier %s", ErrNotFound, id)
		}
		return nil, err
	}
	if org.Type != model.OrganizationSupplier {
		return nil, fmt.Errorf("%w: organization %s is not a supplier", ErrInvalidInput, id)
	}
	return org, nil
}

func shortID(id uuid.UUID) string {
	return strings.SplitN(id.String(), "-", 2)[0]
}
