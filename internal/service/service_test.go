package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nurpe/orderflow/internal/config"
	"github.com/nurpe/orderflow/internal/db/dbtest"
	"github.com/nurpe/orderflow/internal/lifecycle"
	"github.com/nurpe/orderflow/internal/model"
	"github.com/nurpe/orderflow/internal/notify"
	"github.com/nurpe/orderflow/internal/repository"
	"github.com/nurpe/orderflow/internal/token"
	"github.com/nurpe/orderflow/internal/units"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return nil
}

func (n *recordingNotifier) last() notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return notify.Message{}
	}
	return n.messages[len(n.messages)-1]
}

type fixture struct {
	deps     *Deps
	clock    *clock
	notifier *recordingNotifier
	manager  model.Principal
	keeper   model.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := &clock{now: time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)}
	store := repository.NewStore(dbtest.Open(t))
	notifier := &recordingNotifier{}
	deps := &Deps{
		Store:    store,
		Tokens:   token.NewService(store, nil, c.Now),
		Engine:   lifecycle.NewEngine(c.Now),
		Notifier: notifier,
		Links:    notify.NewLinks("https://orders.example.com"),
		Orders: config.OrdersConfig{
			PublicOrigin:      "https://orders.example.com",
			CutOff:            24 * time.Hour,
			PriceViewGrace:    48 * time.Hour,
			OutboundChecklist: []string{"temperature", "packaging"},
		},
		Log: zerolog.Nop(),
	}
	return &fixture{
		deps:     deps,
		clock:    c,
		notifier: notifier,
		manager:  model.Principal{UserID: uuid.New(), Name: "Dana", Role: model.UserRoleManager},
		keeper:   model.Principal{UserID: uuid.New(), Name: "Arman", Role: model.UserRoleWarehouse},
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) product(t *testing.T, id, name string, unit units.Mode, boxWeight, cost, supply string) model.Product {
	t.Helper()
	p := model.Product{
		ID:             id,
		Name:           name,
		Category:       "beef",
		Unit:           unit,
		BoxWeight:      dec(boxWeight),
		CostPrice:      dec(cost),
		WholesalePrice: dec(supply),
		SupplyPrice:    dec(supply),
		UpdatedAt:      f.clock.Now(),
	}
	if err := f.deps.Store.UpsertProduct(context.Background(), &p); err != nil {
		t.Fatalf("UpsertProduct: %v", err)
	}
	return p
}

func (f *fixture) organization(t *testing.T, name, kind string) model.Organization {
	t.Helper()
	org := model.Organization{ID: uuid.New(), Name: name, Type: kind}
	if err := f.deps.Store.UpsertOrganization(context.Background(), &org); err != nil {
		t.Fatalf("UpsertOrganization: %v", err)
	}
	return org
}

func (f *fixture) priceList(t *testing.T, productIDs ...string) *PriceListView {
	t.Helper()
	list, err := NewPriceListService(f.deps).CreatePriceList(context.Background(), CreatePriceListInput{
		Principal:  f.manager,
		Title:      "Spring beef",
		ProductIDs: productIDs,
	})
	if err != nil {
		t.Fatalf("CreatePriceList: %v", err)
	}
	return list
}

// salesOrder shares a list with one product, orders qty kg of it and
// confirms the sheet.
func (f *fixture) salesOrder(t *testing.T, productID, qty string) *model.SalesOrder {
	t.Helper()
	ctx := context.Background()
	list := f.priceList(t, productID)
	shared, err := NewPriceListService(f.deps).Share(ctx, f.manager, list.ID, "Acme Co")
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	sheets := NewOrderSheetService(f.deps)
	_, err = sheets.UpdateLineByToken(ctx, shared.Token.ID, LineInput{ProductID: productID, Qty: dec(qty), Unit: units.ModeKg})
	if err != nil {
		t.Fatalf("UpdateLineByToken: %v", err)
	}
	confirmed, err := sheets.Confirm(ctx, f.manager, shared.OrderSheet.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	return confirmed.SalesOrder
}
