package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nurpe/orderflow/internal/model"
	"github.com/nurpe/orderflow/internal/units"
)

func TestConfirmRequiresSent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "p1", "Sirloin", units.ModeKg, "0", "70000", "85000")
	svc := NewOrderSheetService(f.deps)

	created, err := svc.CreateOrderSheet(ctx, CreateOrderSheetInput{
		Principal:    f.manager,
		CustomerName: "Acme Co",
		Lines:        []LineInput{{ProductID: "p1", Qty: dec("5")}},
	})
	if err != nil {
		t.Fatalf("CreateOrderSheet: %v", err)
	}
	if created.OrderSheet.Status != model.StatusDraft {
		t.Fatalf("Status = %s, want DRAFT", created.OrderSheet.Status)
	}

	if _, err := svc.Confirm(ctx, f.manager, created.OrderSheet.ID); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("Confirm from DRAFT: got %v, want ErrIllegalTransition", err)
	}
	if _, err := f.deps.Store.GetSalesOrderByOrderSheet(ctx, created.OrderSheet.ID); err == nil {
		t.Fatalf("sales order created by failed confirm")
	}

	sent, err := svc.SendOrderSheet(ctx, f.manager, created.OrderSheet.ID)
	if err != nil {
		t.Fatalf("SendOrderSheet: %v", err)
	}
	if sent.OrderSheet.CutOffAt.IsZero() {
		t.Errorf("SendOrderSheet left cut-off unset")
	}
	if want := "https://orders.example.com/order/" + sent.Token.ID; sent.Link != want {
		t.Errorf("Link = %q, want %q", sent.Link, want)
	}

	confirmed, err := svc.Confirm(ctx, f.manager, created.OrderSheet.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	order := confirmed.SalesOrder
	if order.Status != model.StatusConfirmed || order.SourceOrderSheetID != created.OrderSheet.ID {
		t.Errorf("sales order = %+v", order)
	}
	if !order.TotalsKg.Equal(dec("5")) || !order.TotalsAmount.Equal(dec("425000")) {
		t.Errorf("totals = %s kg / %s, want 5 / 425000", order.TotalsKg, order.TotalsAmount)
	}
	if len(order.Items) != 1 || !order.Items[0].QtyKg.Equal(dec("5")) {
		t.Errorf("items = %+v", order.Items)
	}

	if _, err := svc.Confirm(ctx, f.manager, created.OrderSheet.ID); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("second Confirm: got %v, want ErrIllegalTransition", err)
	}

	history := confirmed.OrderSheet.History
	if len(history) != 3 || history[len(history)-1].To != model.StatusConfirmed {
		t.Errorf("history = %+v", history)
	}
}

func TestConfirmWithoutQuantityFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "p1", "Sirloin", units.ModeKg, "0", "70000", "85000")
	list := f.priceList(t, "p1")
	shared, err := NewPriceListService(f.deps).Share(ctx, f.manager, list.ID, "Acme Co")
	if err != nil {
		t.Fatalf("Share: %v", err)
	}

	svc := NewOrderSheetService(f.deps)
	_, err = svc.Confirm(ctx, f.manager, shared.OrderSheet.ID)
	if !errors.Is(err, ErrPreconditionNotMet) {
		t.Fatalf("Confirm: got %v, want ErrPreconditionNotMet", err)
	}
	sheet, err := svc.GetOrderSheet(ctx, f.manager, shared.OrderSheet.ID)
	if err != nil {
		t.Fatalf("GetOrderSheet: %v", err)
	}
	if sheet.Status != model.StatusSent {
		t.Errorf("Status = %s after failed confirm, want SENT", sheet.Status)
	}
	if _, err := f.deps.Store.GetSalesOrderByOrderSheet(ctx, sheet.ID); err == nil {
		t.Errorf("sales order created by failed confirm")
	}
}

func TestCutOff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "p1", "Sirloin", units.ModeKg, "0", "70000", "85000")
	list := f.priceList(t, "p1")
	shared, err := NewPriceListService(f.deps).Share(ctx, f.manager, list.ID, "Acme Co")
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	svc := NewOrderSheetService(f.deps)
	line := LineInput{ProductID: "p1", Qty: dec("3")}

	f.clock.Advance(25 * time.Hour)

	if _, err := svc.UpdateLineByToken(ctx, shared.Token.ID, line); !errors.Is(err, ErrPreconditionNotMet) {
		t.Errorf("guest edit after cut-off: got %v, want ErrPreconditionNotMet", err)
	}
	if _, err := svc.UpdateLine(ctx, UpdateLineInput{Principal: f.manager, ID: shared.OrderSheet.ID, Line: line}); err != nil {
		t.Errorf("staff edit after cut-off: %v", err)
	}
	if _, err := svc.Confirm(ctx, f.manager, shared.OrderSheet.ID); !errors.Is(err, ErrPreconditionNotMet) {
		t.Errorf("confirm after cut-off: got %v, want ErrPreconditionNotMet", err)
	}

	view, err := svc.ViewByToken(ctx, shared.Token.ID)
	if err != nil {
		t.Fatalf("ViewByToken: %v", err)
	}
	if !view.PastCutOff || view.Editable || view.Status != model.StatusSent {
		t.Errorf("view = past %v editable %v status %s", view.PastCutOff, view.Editable, view.Status)
	}

	if _, err := svc.ExtendCutOff(ctx, f.manager, shared.OrderSheet.ID, f.clock.Now().Add(time.Hour)); err != nil {
		t.Fatalf("ExtendCutOff: %v", err)
	}
	if _, err := svc.Confirm(ctx, f.manager, shared.OrderSheet.ID); err != nil {
		t.Errorf("confirm after extension: %v", err)
	}
}

func TestBoxLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "ribs", "Short ribs", units.ModeBox, "18.5", "10000", "12000")
	f.product(t, "tongue", "Tongue", units.ModeBox, "0", "5000", "7000")
	list := f.priceList(t, "ribs", "tongue")
	shared, err := NewPriceListService(f.deps).Share(ctx, f.manager, list.ID, "Acme Co")
	if err != nil {
		t.Fatalf("Share: %v", err)
	}

	result, err := NewOrderSheetService(f.deps).UpdateLinesByToken(ctx, shared.Token.ID, []LineInput{
		{ProductID: "ribs", Qty: dec("4"), Unit: units.ModeBox},
		{ProductID: "tongue", Qty: dec("2"), Unit: units.ModeBox},
	})
	if err != nil {
		t.Fatalf("UpdateLinesByToken: %v", err)
	}
	ribs := result.OrderSheet.Items[0]
	if !ribs.EstimatedKg.Equal(dec("74")) || !ribs.Amount.Equal(dec("888000")) {
		t.Errorf("ribs = %s kg / %s, want 74 / 888000", ribs.EstimatedKg, ribs.Amount)
	}
	tongue := result.OrderSheet.Items[1]
	if !tongue.EstimatedKg.IsZero() {
		t.Errorf("tongue weight = %s, want 0", tongue.EstimatedKg)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Code != model.WarningDataQuality || result.Warnings[0].ProductID != "tongue" {
		t.Errorf("warnings = %+v, want one DATA_QUALITY for tongue", result.Warnings)
	}
	if !result.OrderSheet.TotalsKg.Equal(dec("74")) {
		t.Errorf("TotalsKg = %s, want 74", result.OrderSheet.TotalsKg)
	}
}

func TestRecomputeIsStable(t *testing.T) {
	sheet := &model.OrderSheet{Items: []model.OrderSheetItem{
		{ProductID: "a", Unit: units.ModeKg, UnitPrice: dec("85000"), QtyRequested: dec("1.25")},
		{ProductID: "b", Unit: units.ModeBox, BoxWeight: dec("18.5"), UnitPrice: dec("12000"), QtyRequested: dec("3")},
	}}
	sheet.Recompute()
	kg, amount := sheet.TotalsKg, sheet.TotalsAmount
	sheet.Recompute()
	if !sheet.TotalsKg.Equal(kg) || !sheet.TotalsAmount.Equal(amount) {
		t.Errorf("totals drifted: %s/%s then %s/%s", kg, amount, sheet.TotalsKg, sheet.TotalsAmount)
	}
}

func TestEditTokenIsScopedToOneSheet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "p1", "Sirloin", units.ModeKg, "0", "70000", "85000")
	list := f.priceList(t, "p1")
	prices := NewPriceListService(f.deps)
	x, err := prices.Share(ctx, f.manager, list.ID, "X")
	if err != nil {
		t.Fatalf("Share X: %v", err)
	}
	y, err := prices.Share(ctx, f.manager, list.ID, "Y")
	if err != nil {
		t.Fatalf("Share Y: %v", err)
	}

	if _, err := f.deps.Tokens.Authorize(ctx, x.Token.ID, model.CapabilityEditOrderSheet, x.OrderSheet.ID); err != nil {
		t.Errorf("token X on X: %v", err)
	}
	if _, err := f.deps.Tokens.Authorize(ctx, x.Token.ID, model.CapabilityEditOrderSheet, y.OrderSheet.ID); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("token X on Y: got %v, want ErrTokenNotFound", err)
	}

	svc := NewOrderSheetService(f.deps)
	if _, err := svc.UpdateLineByToken(ctx, x.Token.ID, LineInput{ProductID: "p1", Qty: dec("7")}); err != nil {
		t.Fatalf("UpdateLineByToken: %v", err)
	}
	other, err := svc.GetOrderSheet(ctx, f.manager, y.OrderSheet.ID)
	if err != nil {
		t.Fatalf("GetOrderSheet Y: %v", err)
	}
	if !other.Items[0].QtyRequested.IsZero() {
		t.Errorf("edit through X leaked into Y")
	}
}

func TestGuestCannotAddProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "p1", "Sirloin", units.ModeKg, "0", "70000", "85000")
	f.product(t, "p2", "Brisket", units.ModeKg, "0", "40000", "52000")
	list := f.priceList(t, "p1")
	shared, err := NewPriceListService(f.deps).Share(ctx, f.manager, list.ID, "Acme Co")
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	svc := NewOrderSheetService(f.deps)

	if _, err := svc.UpdateLineByToken(ctx, shared.Token.ID, LineInput{ProductID: "p2", Qty: dec("1")}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("guest adds product: got %v, want ErrInvalidInput", err)
	}
	staff, err := svc.UpdateLine(ctx, UpdateLineInput{
		Principal: f.manager, ID: shared.OrderSheet.ID, Line: LineInput{ProductID: "p2", Qty: dec("1")},
	})
	if err != nil {
		t.Fatalf("staff adds product: %v", err)
	}
	if len(staff.OrderSheet.Items) != 2 || !staff.OrderSheet.Items[1].UnitPrice.Equal(dec("52000")) {
		t.Errorf("items = %+v", staff.OrderSheet.Items)
	}
	if _, err := svc.UpdateLine(ctx, UpdateLineInput{
		Principal: f.manager, ID: shared.OrderSheet.ID, Line: LineInput{ProductID: "p1", Qty: dec("1"), Unit: "crate"},
	}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown unit: got %v, want ErrInvalidInput", err)
	}
}

func TestSubmitByToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "p1", "Sirloin", units.ModeKg, "0", "70000", "85000")
	list := f.priceList(t, "p1")
	shared, err := NewPriceListService(f.deps).Share(ctx, f.manager, list.ID, "Acme Co")
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	svc := NewOrderSheetService(f.deps)

	if _, err := svc.SubmitByToken(ctx, shared.Token.ID, SubmitInput{}); !errors.Is(err, ErrPreconditionNotMet) {
		t.Errorf("empty submit: got %v, want ErrPreconditionNotMet", err)
	}
	result, err := svc.SubmitByToken(ctx, shared.Token.ID, SubmitInput{
		Lines:  []LineInput{{ProductID: "p1", Qty: dec("12")}},
		ShipTo: "12 Abay Ave",
	})
	if err != nil {
		t.Fatalf("SubmitByToken: %v", err)
	}
	if result.OrderSheet.SubmittedAt == nil || result.OrderSheet.ShipTo != "12 Abay Ave" {
		t.Errorf("sheet = submitted %v ship to %q", result.OrderSheet.SubmittedAt, result.OrderSheet.ShipTo)
	}

	if _, err := svc.Confirm(ctx, f.manager, shared.OrderSheet.ID); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if _, err := svc.UpdateLineByToken(ctx, shared.Token.ID, LineInput{ProductID: "p1", Qty: dec("1")}); !errors.Is(err, ErrPreconditionNotMet) {
		t.Errorf("edit after confirm: got %v, want ErrPreconditionNotMet", err)
	}
}

func TestCreateOrderSheetFromTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "p1", "Sirloin", units.ModeKg, "0", "70000", "85000")
	order := f.salesOrder(t, "p1", "10")

	f.product(t, "p1", "Sirloin", units.ModeKg, "0", "72000", "88000")
	svc := NewOrderSheetService(f.deps)
	created, err := svc.CreateOrderSheet(ctx, CreateOrderSheetInput{
		Principal:    f.manager,
		CustomerName: "Acme Co",
		CopyFrom:     &CopySource{Type: model.DocumentOrderSheet, ID: order.SourceOrderSheetID},
	})
	if err != nil {
		t.Fatalf("CreateOrderSheet: %v", err)
	}
	item := created.OrderSheet.Items[0]
	if !item.UnitPrice.Equal(dec("88000")) || !item.QtyRequested.IsZero() {
		t.Errorf("copied item = price %s qty %s, want 88000 / 0", item.UnitPrice, item.QtyRequested)
	}
}
