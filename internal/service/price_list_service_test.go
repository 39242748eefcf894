package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nurpe/orderflow/internal/model"
	"github.com/nurpe/orderflow/internal/units"
)

func TestShareCreatesSentOrderSheet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "p1", "Sirloin", units.ModeKg, "0", "70000", "85000")
	list := f.priceList(t, "p1")

	svc := NewPriceListService(f.deps)
	shared, err := svc.Share(ctx, f.manager, list.ID, "Acme Co")
	if err != nil {
		t.Fatalf("Share: %v", err)
	}

	sheet := shared.OrderSheet
	if sheet.CustomerName != "Acme Co" {
		t.Errorf("CustomerName = %q, want Acme Co", sheet.CustomerName)
	}
	if sheet.Status != model.StatusSent {
		t.Errorf("Status = %s, want SENT", sheet.Status)
	}
	if sheet.SourcePriceListID == nil || *sheet.SourcePriceListID != list.ID {
		t.Errorf("SourcePriceListID = %v, want %s", sheet.SourcePriceListID, list.ID)
	}
	if want := f.clock.Now().Add(24 * time.Hour); !sheet.CutOffAt.Equal(want) {
		t.Errorf("CutOffAt = %s, want %s", sheet.CutOffAt, want)
	}
	if len(sheet.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(sheet.Items))
	}
	item := sheet.Items[0]
	if !item.UnitPrice.Equal(dec("85000")) || !item.QtyRequested.IsZero() {
		t.Errorf("item = %+v, want unit price 85000 and qty 0", item)
	}
	if want := "https://orders.example.com/order/" + shared.Token.ID; shared.Link != want {
		t.Errorf("Link = %q, want %q", shared.Link, want)
	}
	if got := f.notifier.last(); got.Link != shared.Link || got.Recipient != "Acme Co" {
		t.Errorf("notification = %+v", got)
	}

	updated, err := NewOrderSheetService(f.deps).UpdateLineByToken(ctx, shared.Token.ID,
		LineInput{ProductID: "p1", Qty: dec("10"), Unit: units.ModeKg})
	if err != nil {
		t.Fatalf("UpdateLineByToken: %v", err)
	}
	line := updated.OrderSheet.Items[0]
	if !line.EstimatedKg.Equal(dec("10")) || !line.Amount.Equal(dec("850000")) {
		t.Errorf("line = %s kg / %s, want 10 kg / 850000", line.EstimatedKg, line.Amount)
	}
	if !updated.OrderSheet.TotalsAmount.Equal(dec("850000")) {
		t.Errorf("TotalsAmount = %s, want 850000", updated.OrderSheet.TotalsAmount)
	}
}

func TestShareWithoutRecipientUsesTitle(t *testing.T) {
	f := newFixture(t)
	f.product(t, "p1", "Sirloin", units.ModeKg, "0", "70000", "85000")
	list := f.priceList(t, "p1")

	shared, err := NewPriceListService(f.deps).Share(context.Background(), f.manager, list.ID, "  ")
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	if shared.OrderSheet.CustomerName != list.Title {
		t.Errorf("CustomerName = %q, want %q", shared.OrderSheet.CustomerName, list.Title)
	}
}

func TestFunnelCounters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "p1", "Sirloin", units.ModeKg, "0", "70000", "85000")
	list := f.priceList(t, "p1")
	svc := NewPriceListService(f.deps)
	sheets := NewOrderSheetService(f.deps)

	var last *ShareResult
	for i := 0; i < 3; i++ {
		shared, err := svc.Share(ctx, f.manager, list.ID, "Acme Co")
		if err != nil {
			t.Fatalf("Share #%d: %v", i+1, err)
		}
		last = shared
	}
	for i := 0; i < 5; i++ {
		if _, err := sheets.ViewByToken(ctx, last.Token.ID); err != nil {
			t.Fatalf("ViewByToken #%d: %v", i+1, err)
		}
	}

	stats, err := svc.Funnel(ctx, f.manager, list.ID)
	if err != nil {
		t.Fatalf("Funnel: %v", err)
	}
	if stats.ConversionCount != 3 {
		t.Errorf("ConversionCount = %d, want 3", stats.ConversionCount)
	}
	if stats.OrderSheetReach < 5 {
		t.Errorf("OrderSheetReach = %d, want >= 5", stats.OrderSheetReach)
	}
	if stats.ByStatus[model.StatusSent] != 3 || stats.Confirmed != 0 {
		t.Errorf("ByStatus = %v, Confirmed = %d", stats.ByStatus, stats.Confirmed)
	}

	view, err := sheets.GetOrderSheet(ctx, f.manager, last.OrderSheet.ID)
	if err != nil {
		t.Fatalf("GetOrderSheet: %v", err)
	}
	if view.ReachCount != 5 {
		t.Errorf("sheet ReachCount = %d, want 5", view.ReachCount)
	}
}

func TestPublishAndViewPriceList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "p1", "Sirloin", units.ModeKg, "0", "70000", "85000")
	svc := NewPriceListService(f.deps)

	validUntil := f.clock.Now().Add(24 * time.Hour)
	list, err := svc.CreatePriceList(ctx, CreatePriceListInput{
		Principal:  f.manager,
		Title:      "Weekly",
		ProductIDs: []string{"p1"},
		ValidUntil: &validUntil,
	})
	if err != nil {
		t.Fatalf("CreatePriceList: %v", err)
	}

	published, err := svc.PublishPriceList(ctx, f.manager, list.ID)
	if err != nil {
		t.Fatalf("PublishPriceList: %v", err)
	}
	if want := "https://orders.example.com/price-view/" + published.Token.ID; published.Link != want {
		t.Errorf("Link = %q, want %q", published.Link, want)
	}
	again, err := svc.PublishPriceList(ctx, f.manager, list.ID)
	if err != nil {
		t.Fatalf("PublishPriceList again: %v", err)
	}
	if again.Token.ID != published.Token.ID {
		t.Errorf("republish issued a new token")
	}

	view, err := svc.ViewPriceList(ctx, published.Token.ID)
	if err != nil {
		t.Fatalf("ViewPriceList: %v", err)
	}
	if view.ReachCount != 1 || view.Expired {
		t.Errorf("view = reach %d expired %v, want 1 false", view.ReachCount, view.Expired)
	}

	// Past validUntil the list is read-only but still viewable.
	f.clock.Advance(36 * time.Hour)
	view, err = svc.ViewPriceList(ctx, published.Token.ID)
	if err != nil {
		t.Fatalf("ViewPriceList after validUntil: %v", err)
	}
	if !view.Expired || view.EffectiveStatus != model.StatusExpired {
		t.Errorf("view = expired %v status %s, want EXPIRED", view.Expired, view.EffectiveStatus)
	}
	if _, err := svc.ShareByViewToken(ctx, published.Token.ID, "Late Guest"); !errors.Is(err, ErrPreconditionNotMet) {
		t.Errorf("ShareByViewToken on expired list: got %v, want ErrPreconditionNotMet", err)
	}

	// Past the grace period the link itself is gone.
	f.clock.Advance(48 * time.Hour)
	if _, err := svc.ViewPriceList(ctx, published.Token.ID); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("ViewPriceList after grace: got %v, want ErrTokenExpired", err)
	}
}

func TestShareByViewTokenCreatesGuestSheet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "p1", "Sirloin", units.ModeKg, "0", "70000", "85000")
	list := f.priceList(t, "p1")
	svc := NewPriceListService(f.deps)

	published, err := svc.PublishPriceList(ctx, f.manager, list.ID)
	if err != nil {
		t.Fatalf("PublishPriceList: %v", err)
	}
	shared, err := svc.ShareByViewToken(ctx, published.Token.ID, "Corner Cafe")
	if err != nil {
		t.Fatalf("ShareByViewToken: %v", err)
	}
	if !shared.OrderSheet.IsGuest || shared.OrderSheet.CustomerName != "Corner Cafe" {
		t.Errorf("sheet = guest %v customer %q", shared.OrderSheet.IsGuest, shared.OrderSheet.CustomerName)
	}
	if _, err := svc.ShareByViewToken(ctx, shared.Token.ID, "x"); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("edit token used as view token: got %v, want ErrTokenNotFound", err)
	}
}

func TestPriceEditsDoNotCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "p1", "Sirloin", units.ModeKg, "0", "70000", "85000")
	list := f.priceList(t, "p1")
	svc := NewPriceListService(f.deps)

	shared, err := svc.Share(ctx, f.manager, list.ID, "Acme Co")
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	_, err = svc.UpdatePriceList(ctx, UpdatePriceListInput{
		Principal:    f.manager,
		ID:           list.ID,
		SupplyPrices: map[string]decimal.Decimal{"p1": dec("90000")},
	})
	if err != nil {
		t.Fatalf("UpdatePriceList: %v", err)
	}
	f.product(t, "p1", "Sirloin", units.ModeKg, "0", "75000", "95000")

	sheet, err := NewOrderSheetService(f.deps).GetOrderSheet(ctx, f.manager, shared.OrderSheet.ID)
	if err != nil {
		t.Fatalf("GetOrderSheet: %v", err)
	}
	if !sheet.Items[0].UnitPrice.Equal(dec("85000")) {
		t.Errorf("shared sheet price = %s, want 85000", sheet.Items[0].UnitPrice)
	}
	got, err := svc.GetPriceList(ctx, f.manager, list.ID)
	if err != nil {
		t.Fatalf("GetPriceList: %v", err)
	}
	if !got.Items[0].SupplyPrice.Equal(dec("90000")) {
		t.Errorf("list price = %s, want 90000", got.Items[0].SupplyPrice)
	}
}

func TestUpdateValidUntilExtendsViewToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "p1", "Sirloin", units.ModeKg, "0", "70000", "85000")
	svc := NewPriceListService(f.deps)

	validUntil := f.clock.Now().Add(time.Hour)
	list, err := svc.CreatePriceList(ctx, CreatePriceListInput{
		Principal: f.manager, Title: "Flash", ProductIDs: []string{"p1"}, ValidUntil: &validUntil,
	})
	if err != nil {
		t.Fatalf("CreatePriceList: %v", err)
	}
	published, err := svc.PublishPriceList(ctx, f.manager, list.ID)
	if err != nil {
		t.Fatalf("PublishPriceList: %v", err)
	}

	later := f.clock.Now().Add(10 * 24 * time.Hour)
	if _, err := svc.UpdatePriceList(ctx, UpdatePriceListInput{Principal: f.manager, ID: list.ID, ValidUntil: &later}); err != nil {
		t.Fatalf("UpdatePriceList: %v", err)
	}
	f.clock.Advance(5 * 24 * time.Hour)
	if _, err := svc.ViewPriceList(ctx, published.Token.ID); err != nil {
		t.Errorf("ViewPriceList after extension: %v", err)
	}
}

func TestDuplicateAndDeletePriceList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "p1", "Sirloin", units.ModeKg, "0", "70000", "85000")
	list := f.priceList(t, "p1")
	svc := NewPriceListService(f.deps)

	published, err := svc.PublishPriceList(ctx, f.manager, list.ID)
	if err != nil {
		t.Fatalf("PublishPriceList: %v", err)
	}
	if _, err := svc.ViewPriceList(ctx, published.Token.ID); err != nil {
		t.Fatalf("ViewPriceList: %v", err)
	}

	dup, err := svc.DuplicatePriceList(ctx, f.manager, list.ID)
	if err != nil {
		t.Fatalf("DuplicatePriceList: %v", err)
	}
	if dup.ID == list.ID || dup.ReachCount != 0 || dup.ShareTokenID != nil || len(dup.Items) != 1 {
		t.Errorf("duplicate = %+v", dup.PriceList)
	}

	if err := svc.DeletePriceList(ctx, f.manager, list.ID); err != nil {
		t.Fatalf("DeletePriceList: %v", err)
	}
	if _, err := svc.ViewPriceList(ctx, published.Token.ID); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("view after delete: got %v, want ErrTokenNotFound", err)
	}
	if err := svc.DeletePriceList(ctx, f.manager, list.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestPriceListPermissions(t *testing.T) {
	f := newFixture(t)
	_, err := NewPriceListService(f.deps).CreatePriceList(context.Background(), CreatePriceListInput{
		Principal: f.keeper, Title: "x", ProductIDs: []string{"p1"},
	})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("warehouse create: got %v, want ErrPermissionDenied", err)
	}
}

func TestRecordViewRejectsUntrackedDocuments(t *testing.T) {
	f := newFixture(t)
	svc := NewPriceListService(f.deps)
	f.product(t, "p1", "Sirloin", units.ModeKg, "0", "70000", "85000")
	list := f.priceList(t, "p1")

	if err := svc.RecordView(context.Background(), model.DocumentPriceList, list.ID); err != nil {
		t.Fatalf("RecordView: %v", err)
	}
	if err := svc.RecordView(context.Background(), model.DocumentShipment, list.ID); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("RecordView shipment: got %v, want ErrInvalidInput", err)
	}
}
