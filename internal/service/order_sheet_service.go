package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nurpe/orderflow/internal/lifecycle"
	"github.com/nurpe/orderflow/internal/model"
	"github.com/nurpe/orderflow/internal/repository"
	"github.com/nurpe/orderflow/internal/units"
)

type OrderSheetService struct {
	*Deps
}

func NewOrderSheetService(deps *Deps) *OrderSheetService {
	return &OrderSheetService{Deps: deps}
}

// LineInput sets the requested quantity of one product. An empty Unit keeps
// the line's current unit.
type LineInput struct {
	ProductID string          `json:"product_id"`
	Qty       decimal.Decimal `json:"qty"`
	Unit      units.Mode      `json:"unit"`
}

type OrderSheetView struct {
	*model.OrderSheet
	PastCutOff bool `json:"past_cut_off"`
	Editable   bool `json:"editable"`
}

func (s *OrderSheetService) view(sheet *model.OrderSheet) *OrderSheetView {
	past := sheet.PastCutOff(s.now())
	return &OrderSheetView{
		OrderSheet: sheet,
		PastCutOff: past,
		Editable:   sheet.Status != model.StatusConfirmed && !past,
	}
}

type CopySource struct {
	Type model.DocumentType `json:"type"`
	ID   uuid.UUID          `json:"id"`
}

type CreateOrderSheetInput struct {
	Principal    model.Principal
	CustomerName string
	ShipTo       string
	CutOffAt     *time.Time
	Lines        []LineInput
	// CopyFrom seeds the lines from a past order sheet or purchase order.
	// Lines then set quantities on the copied rows.
	CopyFrom *CopySource
}

type OrderSheetResult struct {
	OrderSheet *OrderSheetView `json:"order_sheet"`
	Warnings   []model.Warning `json:"warnings,omitempty"`
}

func (s *OrderSheetService) CreateOrderSheet(ctx context.Context, input CreateOrderSheetInput) (*OrderSheetResult, error) {
	if err := requireManager(input.Principal); err != nil {
		return nil, err
	}
	customer := strings.TrimSpace(input.CustomerName)
	if customer == "" {
		return nil, fmt.Errorf("%w: customer_name is required", ErrInvalidInput)
	}

	sheet := &model.OrderSheet{
		ID:           uuid.New(),
		CustomerName: customer,
		ShipTo:       input.ShipTo,
	}
	if input.CutOffAt != nil {
		sheet.CutOffAt = input.CutOffAt.UTC()
	}

	var warnings []model.Warning
	if input.CopyFrom != nil {
		rows, copyWarnings, err := templateRows(ctx, s.Store, input.CopyFrom.Type, input.CopyFrom.ID)
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, copyWarnings...)
		for _, row := range rows {
			sheet.Items = append(sheet.Items, itemFromTemplate(row))
		}
	}
	if err := addCatalogLines(ctx, s.Store, sheet, input.Lines); err != nil {
		return nil, err
	}
	for _, line := range input.Lines {
		if err := applyLine(sheet, line); err != nil {
			return nil, err
		}
	}
	if len(sheet.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one line is required", ErrInvalidInput)
	}

	warnings = mergeWarnings(warnings, sheet.Recompute())
	if err := s.Engine.Start(sheet, input.Principal.Actor()); err != nil {
		return nil, err
	}
	if err := s.Store.CreateOrderSheet(ctx, sheet); err != nil {
		return nil, err
	}
	return &OrderSheetResult{OrderSheet: s.view(sheet), Warnings: warnings}, nil
}

// SendOrderSheet moves a staff-created sheet to SENT and hands the customer
// the edit link. A sheet without a cut-off gets the default window.
func (s *OrderSheetService) SendOrderSheet(ctx context.Context, principal model.Principal, id uuid.UUID) (*ShareResult, error) {
	if err := requireManager(principal); err != nil {
		return nil, err
	}
	var (
		sheet *model.OrderSheet
		tok   *model.Token
	)
	err := s.Store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		sheet, err = tx.LockOrderSheet(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if err := s.Engine.Transition(sheet, lifecycle.EventSend, principal.Actor()); err != nil {
			return err
		}
		if sheet.CutOffAt.IsZero() {
			sheet.CutOffAt = s.now().Add(s.Orders.CutOff)
		}
		tok, err = s.Tokens.With(tx).Issue(ctx, model.DocumentOrderSheet, sheet.ID, model.CapabilityEditOrderSheet, nil)
		if err != nil {
			return err
		}
		sheet.InviteTokenID = &tok.ID
		return tx.SaveOrderSheet(ctx, sheet)
	})
	if err != nil {
		return nil, err
	}
	link := s.notify(ctx, tok, sheet.CustomerName, fmt.Sprintf("Order form for %s is ready", sheet.CustomerName))
	return &ShareResult{OrderSheet: sheet, Token: tok, Link: link, Warnings: sheet.Warnings}, nil
}

func (s *OrderSheetService) GetOrderSheet(ctx context.Context, principal model.Principal, id uuid.UUID) (*OrderSheetView, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	sheet, err := s.Store.GetOrderSheet(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return s.view(sheet), nil
}

// ViewByToken opens the order sheet for a guest and counts the view.
func (s *OrderSheetService) ViewByToken(ctx context.Context, tokenID string) (*OrderSheetView, error) {
	tok, err := s.Tokens.Resolve(ctx, tokenID, model.CapabilityEditOrderSheet)
	if err != nil {
		return nil, err
	}
	if err := s.Store.IncrementOrderSheetReach(ctx, tok.DocumentID); err != nil {
		return nil, hidden(err)
	}
	sheet, err := s.Store.GetOrderSheet(ctx, tok.DocumentID)
	if err != nil {
		return nil, hidden(err)
	}
	return s.view(sheet), nil
}

type UpdateLineInput struct {
	Principal model.Principal
	ID        uuid.UUID
	Line      LineInput
}

// UpdateLine is the staff edit of a single line. Staff may still edit after
// the cut-off, but never a confirmed sheet. Products not yet on the sheet
// are added from the catalog.
func (s *OrderSheetService) UpdateLine(ctx context.Context, input UpdateLineInput) (*OrderSheetResult, error) {
	if err := requireManager(input.Principal); err != nil {
		return nil, err
	}
	return s.mutate(ctx, input.ID, func(tx *repository.Store, sheet *model.OrderSheet) error {
		if err := addCatalogLines(ctx, tx, sheet, []LineInput{input.Line}); err != nil {
			return err
		}
		return applyLine(sheet, input.Line)
	})
}

type ReplaceItemsInput struct {
	Principal model.Principal
	ID        uuid.UUID
	Lines     []LineInput
}

// ReplaceItems overwrites the whole item set. Lines missing from the input
// are dropped.
func (s *OrderSheetService) ReplaceItems(ctx context.Context, input ReplaceItemsInput) (*OrderSheetResult, error) {
	if err := requireManager(input.Principal); err != nil {
		return nil, err
	}
	if len(input.Lines) == 0 {
		return nil, fmt.Errorf("%w: at least one line is required", ErrInvalidInput)
	}
	return s.mutate(ctx, input.ID, func(tx *repository.Store, sheet *model.OrderSheet) error {
		keep := make(map[string]struct{}, len(input.Lines))
		for _, line := range input.Lines {
			keep[line.ProductID] = struct{}{}
		}
		items := sheet.Items[:0]
		for _, item := range sheet.Items {
			if _, ok := keep[item.ProductID]; ok {
				items = append(items, item)
			}
		}
		sheet.Items = items
		if err := addCatalogLines(ctx, tx, sheet, input.Lines); err != nil {
			return err
		}
		for _, line := range input.Lines {
			if err := applyLine(sheet, line); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateLineByToken is the guest edit of a single line; only products on
// the sheet can be ordered and the cut-off is enforced.
func (s *OrderSheetService) UpdateLineByToken(ctx context.Context, tokenID string, line LineInput) (*OrderSheetResult, error) {
	return s.UpdateLinesByToken(ctx, tokenID, []LineInput{line})
}

func (s *OrderSheetService) UpdateLinesByToken(ctx context.Context, tokenID string, lines []LineInput) (*OrderSheetResult, error) {
	tok, err := s.Tokens.Resolve(ctx, tokenID, model.CapabilityEditOrderSheet)
	if err != nil {
		return nil, err
	}
	result, err := s.mutate(ctx, tok.DocumentID, func(tx *repository.Store, sheet *model.OrderSheet) error {
		if sheet.PastCutOff(s.now()) {
			return lifecycle.Unmet("cut-off has not passed")
		}
		for _, line := range lines {
			if err := applyLine(sheet, line); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrTokenNotFound
	}
	return result, err
}

type SubmitInput struct {
	Lines        []LineInput
	ShipTo       string
	CustomerName string
}

// SubmitByToken records the guest's final lines and stamps the submission.
// Confirmation remains a staff decision.
func (s *OrderSheetService) SubmitByToken(ctx context.Context, tokenID string, input SubmitInput) (*OrderSheetResult, error) {
	tok, err := s.Tokens.Resolve(ctx, tokenID, model.CapabilityEditOrderSheet)
	if err != nil {
		return nil, err
	}
	result, err := s.mutate(ctx, tok.DocumentID, func(tx *repository.Store, sheet *model.OrderSheet) error {
		now := s.now()
		if sheet.PastCutOff(now) {
			return lifecycle.Unmet("cut-off has not passed")
		}
		for _, line := range input.Lines {
			if err := applyLine(sheet, line); err != nil {
				return err
			}
		}
		if !sheet.HasRequestedQuantity() {
			return lifecycle.Unmet("at least one item has a requested quantity")
		}
		if shipTo := strings.TrimSpace(input.ShipTo); shipTo != "" {
			sheet.ShipTo = shipTo
		}
		if name := strings.TrimSpace(input.CustomerName); name != "" && sheet.IsGuest {
			sheet.CustomerName = name
		}
		sheet.SubmittedAt = &now
		s.Engine.Record(sheet, "submit", guestActor(sheet.CustomerName), "")
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrTokenNotFound
	}
	return result, err
}

// ExtendCutOff moves the submission deadline of an unconfirmed sheet.
func (s *OrderSheetService) ExtendCutOff(ctx context.Context, principal model.Principal, id uuid.UUID, cutOffAt time.Time) (*OrderSheetResult, error) {
	if err := requireManager(principal); err != nil {
		return nil, err
	}
	if !cutOffAt.After(s.now()) {
		return nil, fmt.Errorf("%w: cut_off_at must be in the future", ErrInvalidInput)
	}
	return s.mutate(ctx, id, func(tx *repository.Store, sheet *model.OrderSheet) error {
		sheet.CutOffAt = cutOffAt.UTC()
		s.Engine.Record(sheet, "extend-cut-off", principal.Actor(), sheet.CutOffAt.Format(time.RFC3339))
		return nil
	})
}

// mutate runs fn against the freshly locked sheet, then recomputes every
// derived field and saves. Confirmed sheets are read-only.
func (s *OrderSheetService) mutate(ctx context.Context, id uuid.UUID, fn func(tx *repository.Store, sheet *model.OrderSheet) error) (*OrderSheetResult, error) {
	var (
		sheet    *model.OrderSheet
		warnings []model.Warning
	)
	err := s.Store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		sheet, err = tx.LockOrderSheet(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if sheet.Status == model.StatusConfirmed {
			return lifecycle.Unmet("order sheet is not confirmed")
		}
		if err := fn(tx, sheet); err != nil {
			return err
		}
		warnings = sheet.Recompute()
		return tx.SaveOrderSheet(ctx, sheet)
	})
	if err != nil {
		return nil, err
	}
	return &OrderSheetResult{OrderSheet: s.view(sheet), Warnings: warnings}, nil
}

type ConfirmResult struct {
	OrderSheet *model.OrderSheet `json:"order_sheet"`
	SalesOrder *model.SalesOrder `json:"sales_order"`
}

// Confirm closes the sheet and snapshots it into a sales order in the same
// transaction. If either step fails nothing is written.
func (s *OrderSheetService) Confirm(ctx context.Context, principal model.Principal, id uuid.UUID) (*ConfirmResult, error) {
	if err := requireManager(principal); err != nil {
		return nil, err
	}
	actor := principal.Actor()
	var (
		sheet *model.OrderSheet
		order *model.SalesOrder
	)
	err := s.Store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		sheet, err = tx.LockOrderSheet(ctx, id)
		if err != nil {
			return notFound(err)
		}
		now := s.now()
		sheet.Recompute()
		err = s.Engine.Transition(sheet, lifecycle.EventConfirm, actor,
			lifecycle.Require(sheet.HasRequestedQuantity(), "at least one item has a requested quantity"),
			lifecycle.Require(!sheet.PastCutOff(now), "cut-off has not passed"),
		)
		if err != nil {
			return err
		}

		order = salesOrderFrom(sheet, now)
		if err := s.Engine.Start(order, actor); err != nil {
			return err
		}
		if err := tx.CreateSalesOrder(ctx, order); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return fmt.Errorf("%w: order sheet already has a sales order", ErrAlreadyExists)
			}
			return err
		}
		return tx.SaveOrderSheet(ctx, sheet)
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info().
		Str("order_sheet_id", sheet.ID.String()).
		Str("sales_order_id", order.ID.String()).
		Str("totals_kg", order.TotalsKg.String()).
		Msg("order sheet confirmed")
	return &ConfirmResult{OrderSheet: sheet, SalesOrder: order}, nil
}

func (s *OrderSheetService) GetSalesOrder(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.SalesOrder, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	order, err := s.Store.GetSalesOrder(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return order, nil
}

func salesOrderFrom(sheet *model.OrderSheet, now time.Time) *model.SalesOrder {
	items := make([]model.SalesOrderItem, 0, len(sheet.Items))
	for _, item := range sheet.Items {
		if !item.QtyRequested.IsPositive() {
			continue
		}
		items = append(items, model.SalesOrderItem{
			ID:          uuid.New(),
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Category:    item.Category,
			QtyKg:       item.EstimatedKg,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
		})
	}
	return &model.SalesOrder{
		ID:                 uuid.New(),
		SourceOrderSheetID: sheet.ID,
		CustomerName:       sheet.CustomerName,
		TotalsKg:           sheet.TotalsKg,
		TotalsAmount:       sheet.TotalsAmount,
		ConfirmedAt:        now,
		Items:              items,
	}
}

// addCatalogLines appends catalog products referenced by lines that are not
// on the sheet yet, priced at the current supply price.
func addCatalogLines(ctx context.Context, store *repository.Store, sheet *model.OrderSheet, lines []LineInput) error {
	var missing []string
	for _, line := range lines {
		if findItem(sheet, line.ProductID) < 0 {
			missing = append(missing, line.ProductID)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	products, err := store.ProductsByID(ctx, missing)
	if err != nil {
		return err
	}
	for _, id := range missing {
		if findItem(sheet, id) >= 0 {
			continue
		}
		product, ok := products[id]
		if !ok {
			return fmt.Errorf("%w: unknown product %q", ErrInvalidInput, id)
		}
		sheet.Items = append(sheet.Items, model.OrderSheetItemFromPriceList(model.PriceListItemFromProduct(product)))
	}
	return nil
}

func applyLine(sheet *model.OrderSheet, line LineInput) error {
	i := findItem(sheet, line.ProductID)
	if i < 0 {
		return fmt.Errorf("%w: product %q is not on the order sheet", ErrInvalidInput, line.ProductID)
	}
	if line.Unit != "" {
		mode, err := units.ParseMode(string(line.Unit))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		sheet.Items[i].Unit = mode
	}
	qty := line.Qty
	if qty.IsNegative() {
		qty = decimal.Zero
	}
	sheet.Items[i].QtyRequested = qty
	return nil
}

func findItem(sheet *model.OrderSheet, productID string) int {
	for i := range sheet.Items {
		if sheet.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func itemFromTemplate(row TemplateRow) model.OrderSheetItem {
	unit := row.Unit
	if unit != units.ModeBox {
		unit = units.ModeKg
	}
	return model.OrderSheetItem{
		ProductID:    row.ProductID,
		ProductName:  row.ProductName,
		Category:     row.Category,
		Unit:         unit,
		BoxWeight:    row.BoxWeight,
		UnitPrice:    row.UnitPrice,
		QtyRequested: decimal.Zero,
	}
}

// mergeWarnings drops duplicates of the same code and product.
func mergeWarnings(a, b []model.Warning) []model.Warning {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]model.Warning, 0, len(a)+len(b))
	for _, w := range append(append([]model.Warning(nil), a...), b...) {
		key := string(w.Code) + "/" + w.ProductID + "/" + w.ItemID
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, w)
	}
	return out
}

func (s *OrderSheetService) ListSalesOrders(ctx context.Context, principal model.Principal) ([]model.SalesOrder, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	return s.Store.ListSalesOrders(ctx)
}
