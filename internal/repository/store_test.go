package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nurpe/orderflow/internal/db/dbtest"
	"github.com/nurpe/orderflow/internal/model"
)

func TestIncrementIsAtomic(t *testing.T) {
	store := NewStore(dbtest.Open(t))
	ctx := context.Background()

	list := &model.PriceList{ID: uuid.New(), Title: "Spring", Status: model.StatusActive}
	if err := store.CreatePriceList(ctx, list); err != nil {
		t.Fatalf("CreatePriceList: %v", err)
	}

	const viewers = 8
	var wg sync.WaitGroup
	errs := make(chan error, viewers)
	for i := 0; i < viewers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.IncrementPriceListReach(ctx, list.ID)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("IncrementPriceListReach: %v", err)
		}
	}

	got, err := store.GetPriceList(ctx, list.ID)
	if err != nil {
		t.Fatalf("GetPriceList: %v", err)
	}
	if got.ReachCount != viewers {
		t.Errorf("ReachCount = %d, want %d", got.ReachCount, viewers)
	}
}

func TestIncrementMissingRow(t *testing.T) {
	store := NewStore(dbtest.Open(t))
	err := store.IncrementOrderSheetReach(context.Background(), uuid.New())
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("got %v, want ErrRecordNotFound", err)
	}
}

func TestUpsertAllocationReplacesCell(t *testing.T) {
	store := NewStore(dbtest.Open(t))
	ctx := context.Background()

	soID, itemID, supplierID, poID := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	first := &model.Allocation{ID: uuid.New(), SalesOrderID: soID, SalesOrderItemID: itemID, SupplierOrgID: supplierID, PurchaseOrderID: poID, QtyKg: decimal.NewFromInt(60)}
	if err := store.UpsertAllocation(ctx, first); err != nil {
		t.Fatalf("UpsertAllocation: %v", err)
	}
	again := &model.Allocation{ID: uuid.New(), SalesOrderID: soID, SalesOrderItemID: itemID, SupplierOrgID: supplierID, PurchaseOrderID: poID, QtyKg: decimal.NewFromInt(40)}
	if err := store.UpsertAllocation(ctx, again); err != nil {
		t.Fatalf("UpsertAllocation again: %v", err)
	}

	allocations, err := store.ListAllocationsBySalesOrder(ctx, soID)
	if err != nil {
		t.Fatalf("ListAllocationsBySalesOrder: %v", err)
	}
	if len(allocations) != 1 {
		t.Fatalf("got %d cells, want 1", len(allocations))
	}
	if !allocations[0].QtyKg.Equal(decimal.NewFromInt(40)) {
		t.Errorf("QtyKg = %s, want 40", allocations[0].QtyKg)
	}

	if err := store.DeleteAllocation(ctx, itemID, supplierID); err != nil {
		t.Fatalf("DeleteAllocation: %v", err)
	}
	allocations, _ = store.ListAllocationsBySalesOrder(ctx, soID)
	if len(allocations) != 0 {
		t.Errorf("got %d cells after delete, want 0", len(allocations))
	}
}

func TestCreateShipmentDuplicate(t *testing.T) {
	store := NewStore(dbtest.Open(t))
	ctx := context.Background()
	soID := uuid.New()

	first := &model.Shipment{ID: uuid.New(), Status: model.StatusPreparing, SourceSalesOrderID: soID, OutboundStage: model.StageDocs}
	if err := store.CreateShipment(ctx, first); err != nil {
		t.Fatalf("CreateShipment: %v", err)
	}
	second := &model.Shipment{ID: uuid.New(), Status: model.StatusPreparing, SourceSalesOrderID: soID, OutboundStage: model.StageDocs}
	if err := store.CreateShipment(ctx, second); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second CreateShipment: got %v, want ErrDuplicate", err)
	}
}

func TestInTxRollsBack(t *testing.T) {
	store := NewStore(dbtest.Open(t))
	ctx := context.Background()
	sheetID := uuid.New()

	boom := errors.New("boom")
	err := store.InTx(ctx, func(tx *Store) error {
		sheet := &model.OrderSheet{ID: sheetID, Status: model.StatusDraft, CustomerName: "Acme", CutOffAt: time.Now().Add(time.Hour)}
		if err := tx.CreateOrderSheet(ctx, sheet); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx: got %v, want boom", err)
	}
	if _, err := store.GetOrderSheet(ctx, sheetID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("sheet survived rollback: %v", err)
	}
}

func TestCarrierProfileLastWriteWins(t *testing.T) {
	store := NewStore(dbtest.Open(t))
	ctx := context.Background()
	carrier := uuid.New()

	for _, driver := range []string{"Aidos", "Bolat"} {
		profile := &model.CarrierProfile{CarrierOrgID: carrier, DriverName: driver, VehicleNumber: "777ABC02"}
		if err := store.UpsertCarrierProfile(ctx, profile); err != nil {
			t.Fatalf("UpsertCarrierProfile(%s): %v", driver, err)
		}
	}
	got, err := store.GetCarrierProfile(ctx, carrier)
	if err != nil {
		t.Fatalf("GetCarrierProfile: %v", err)
	}
	if got.DriverName != "Bolat" {
		t.Errorf("DriverName = %q, want Bolat", got.DriverName)
	}
}

func TestTokensForDocument(t *testing.T) {
	store := NewStore(dbtest.Open(t))
	ctx := context.Background()
	docID := uuid.New()

	for _, id := range []string{"tok-a", "tok-b"} {
		token := &model.Token{ID: id, DocumentType: model.DocumentPriceList, DocumentID: docID, Capability: model.CapabilityViewPriceList}
		if err := store.CreateToken(ctx, token); err != nil {
			t.Fatalf("CreateToken: %v", err)
		}
	}
	other := &model.Token{ID: "tok-c", DocumentType: model.DocumentOrderSheet, DocumentID: uuid.New(), Capability: model.CapabilityEditOrderSheet}
	if err := store.CreateToken(ctx, other); err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	ids, err := store.DeleteTokensForDocument(ctx, model.DocumentPriceList, docID)
	if err != nil {
		t.Fatalf("DeleteTokensForDocument: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("deleted %v, want 2 ids", ids)
	}
	if _, err := store.GetToken(ctx, "tok-a"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("tok-a still present: %v", err)
	}
	if _, err := store.GetToken(ctx, "tok-c"); err != nil {
		t.Errorf("tok-c removed: %v", err)
	}
}
