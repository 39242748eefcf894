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
)

type PriceListService struct {
	*Deps
}

func NewPriceListService(deps *Deps) *PriceListService {
	return &PriceListService{Deps: deps}
}

// PriceListView is a price list with its validity evaluated at read time.
type PriceListView struct {
	*model.PriceList
	EffectiveStatus model.Status `json:"effective_status"`
	Expired         bool         `json:"expired"`
}

func (s *PriceListService) view(list *model.PriceList) *PriceListView {
	now := s.now()
	return &PriceListView{
		PriceList:       list,
		EffectiveStatus: list.EffectiveStatus(now),
		Expired:         list.Expired(now),
	}
}

type CreatePriceListInput struct {
	Principal    model.Principal
	Title        string
	ProductIDs   []string
	ValidUntil   *time.Time
	AdminComment string
}

func (s *PriceListService) CreatePriceList(ctx context.Context, input CreatePriceListInput) (*PriceListView, error) {
	if err := requireManager(input.Principal); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if len(input.ProductIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one product is required", ErrInvalidInput)
	}

	products, err := s.Store.ProductsByID(ctx, input.ProductIDs)
	if err != nil {
		return nil, err
	}
	items := make([]model.PriceListItem, 0, len(input.ProductIDs))
	seen := make(map[string]struct{}, len(input.ProductIDs))
	for _, id := range input.ProductIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		product, ok := products[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown product %q", ErrInvalidInput, id)
		}
		items = append(items, model.PriceListItemFromProduct(product))
	}

	list := &model.PriceList{
		ID:           uuid.New(),
		Title:        title,
		Status:       model.StatusActive,
		Items:        items,
		ValidUntil:   utcPtr(input.ValidUntil),
		AdminComment: input.AdminComment,
	}
	if err := s.Store.CreatePriceList(ctx, list); err != nil {
		return nil, err
	}
	return s.view(list), nil
}

type UpdatePriceListInput struct {
	Principal    model.Principal
	ID           uuid.UUID
	Title        *string
	ValidUntil   *time.Time
	AdminComment *string
	// SupplyPrices overrides the per-recipient price of individual items,
	// keyed by product id.
	SupplyPrices map[string]decimal.Decimal
}

// UpdatePriceList edits the list in place. Order sheets already shared from
// it keep the prices they were created with.
func (s *PriceListService) UpdatePriceList(ctx context.Context, input UpdatePriceListInput) (*PriceListView, error) {
	if err := requireManager(input.Principal); err != nil {
		return nil, err
	}
	var list *model.PriceList
	err := s.Store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		list, err = tx.LockPriceList(ctx, input.ID)
		if err != nil {
			return notFound(err)
		}
		if input.Title != nil {
			title := strings.TrimSpace(*input.Title)
			if title == "" {
				return fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
			}
			list.Title = title
		}
		if input.AdminComment != nil {
			list.AdminComment = *input.AdminComment
		}
		for productID, price := range input.SupplyPrices {
			if price.IsNegative() {
				return fmt.Errorf("%w: negative supply price for %q", ErrInvalidInput, productID)
			}
			found := false
			for i := range list.Items {
				if list.Items[i].ProductID == productID {
					list.Items[i].SupplyPrice = price
					found = true
				}
			}
			if !found {
				return fmt.Errorf("%w: product %q is not on the list", ErrInvalidInput, productID)
			}
		}
		if input.ValidUntil != nil {
			list.ValidUntil = utcPtr(input.ValidUntil)
			if list.ShareTokenID != nil {
				err := s.Tokens.With(tx).Extend(ctx, *list.ShareTokenID, s.viewExpiry(list.ValidUntil))
				if err != nil && !errors.Is(err, ErrTokenNotFound) {
					return err
				}
			}
		}
		return tx.SavePriceList(ctx, list)
	})
	if err != nil {
		return nil, err
	}
	return s.view(list), nil
}

// DuplicatePriceList clones the items of an existing list into a fresh one
// with zeroed counters and no share token.
func (s *PriceListService) DuplicatePriceList(ctx context.Context, principal model.Principal, id uuid.UUID) (*PriceListView, error) {
	if err := requireManager(principal); err != nil {
		return nil, err
	}
	source, err := s.Store.GetPriceList(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	items := make([]model.PriceListItem, len(source.Items))
	copy(items, source.Items)

	list := &model.PriceList{
		ID:           uuid.New(),
		Title:        source.Title + " (copy)",
		Status:       model.StatusActive,
		Items:        items,
		ValidUntil:   source.ValidUntil,
		AdminComment: source.AdminComment,
	}
	if err := s.Store.CreatePriceList(ctx, list); err != nil {
		return nil, err
	}
	return s.view(list), nil
}

// DeletePriceList removes the list and every token bound to it. Order sheets
// shared from it stay untouched.
func (s *PriceListService) DeletePriceList(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	if err := requireManager(principal); err != nil {
		return err
	}
	return s.Store.InTx(ctx, func(tx *repository.Store) error {
		if err := tx.DeletePriceList(ctx, id); err != nil {
			return notFound(err)
		}
		return s.Tokens.With(tx).Revoke(ctx, model.DocumentPriceList, id)
	})
}

func (s *PriceListService) GetPriceList(ctx context.Context, principal model.Principal, id uuid.UUID) (*PriceListView, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	list, err := s.Store.GetPriceList(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return s.view(list), nil
}

func (s *PriceListService) ListPriceLists(ctx context.Context, principal model.Principal) ([]*PriceListView, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	lists, err := s.Store.ListPriceLists(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]*PriceListView, 0, len(lists))
	for i := range lists {
		views = append(views, s.view(&lists[i]))
	}
	return views, nil
}

type PublishResult struct {
	Token *model.Token `json:"token"`
	Link  string       `json:"link"`
}

// PublishPriceList returns the public view link of the list, issuing the
// view token on first use. The token lives until validUntil plus the
// configured grace period.
func (s *PriceListService) PublishPriceList(ctx context.Context, principal model.Principal, id uuid.UUID) (*PublishResult, error) {
	if err := requireManager(principal); err != nil {
		return nil, err
	}
	var tok *model.Token
	err := s.Store.InTx(ctx, func(tx *repository.Store) error {
		list, err := tx.LockPriceList(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if list.Expired(s.now()) {
			return lifecycle.Unmet("price list is still valid")
		}
		tokens := s.Tokens.With(tx)
		if list.ShareTokenID != nil {
			tok, err = tokens.Resolve(ctx, *list.ShareTokenID, model.CapabilityViewPriceList)
			if err == nil {
				return nil
			}
			if !errors.Is(err, ErrTokenNotFound) && !errors.Is(err, ErrTokenExpired) {
				return err
			}
		}
		tok, err = tokens.Issue(ctx, model.DocumentPriceList, list.ID, model.CapabilityViewPriceList, s.viewExpiry(list.ValidUntil))
		if err != nil {
			return err
		}
		list.ShareTokenID = &tok.ID
		return tx.SavePriceList(ctx, list)
	})
	if err != nil {
		return nil, err
	}
	return &PublishResult{Token: tok, Link: s.Links.For(*tok)}, nil
}

// ViewPriceList resolves a public view token and counts the view. Expired
// lists stay readable.
func (s *PriceListService) ViewPriceList(ctx context.Context, tokenID string) (*PriceListView, error) {
	tok, err := s.Tokens.Resolve(ctx, tokenID, model.CapabilityViewPriceList)
	if err != nil {
		return nil, err
	}
	if err := s.Store.IncrementPriceListReach(ctx, tok.DocumentID); err != nil {
		return nil, hidden(err)
	}
	list, err := s.Store.GetPriceList(ctx, tok.DocumentID)
	if err != nil {
		return nil, hidden(err)
	}
	return s.view(list), nil
}

// RecordView bumps the reach counter of a price list or order sheet. Every
// call counts.
func (s *PriceListService) RecordView(ctx context.Context, docType model.DocumentType, id uuid.UUID) error {
	var err error
	switch docType {
	case model.DocumentPriceList:
		err = s.Store.IncrementPriceListReach(ctx, id)
	case model.DocumentOrderSheet:
		err = s.Store.IncrementOrderSheetReach(ctx, id)
	default:
		return fmt.Errorf("%w: views are not tracked for %s", ErrInvalidInput, docType)
	}
	return notFound(err)
}

type ShareResult struct {
	OrderSheet *model.OrderSheet `json:"order_sheet"`
	Token      *model.Token      `json:"token"`
	Link       string            `json:"link"`
	Warnings   []model.Warning   `json:"warnings,omitempty"`
}

// Share turns the list into a new order sheet for one recipient and hands
// out its edit link.
func (s *PriceListService) Share(ctx context.Context, principal model.Principal, priceListID uuid.UUID, recipientName string) (*ShareResult, error) {
	if err := requireManager(principal); err != nil {
		return nil, err
	}
	return s.share(ctx, priceListID, recipientName, principal.Actor(), false)
}

// ShareByViewToken lets a guest holding the public view link start their
// own order sheet.
func (s *PriceListService) ShareByViewToken(ctx context.Context, tokenID, recipientName string) (*ShareResult, error) {
	tok, err := s.Tokens.Resolve(ctx, tokenID, model.CapabilityViewPriceList)
	if err != nil {
		return nil, err
	}
	result, err := s.share(ctx, tok.DocumentID, recipientName, guestActor(recipientName), true)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrTokenNotFound
	}
	return result, err
}

func (s *PriceListService) share(ctx context.Context, priceListID uuid.UUID, recipientName string, actor model.Actor, guest bool) (*ShareResult, error) {
	var (
		sheet    *model.OrderSheet
		tok      *model.Token
		warnings []model.Warning
	)
	err := s.Store.InTx(ctx, func(tx *repository.Store) error {
		list, err := tx.GetPriceList(ctx, priceListID)
		if err != nil {
			return notFound(err)
		}
		now := s.now()
		if list.Expired(now) {
			return lifecycle.Unmet("price list is still valid")
		}

		customer := strings.TrimSpace(recipientName)
		if customer == "" {
			customer = list.Title
		}
		items := make([]model.OrderSheetItem, 0, len(list.Items))
		for _, item := range list.Items {
			items = append(items, model.OrderSheetItemFromPriceList(item))
		}
		sourceID := list.ID
		sheet = &model.OrderSheet{
			ID:                uuid.New(),
			CustomerName:      customer,
			IsGuest:           guest,
			CutOffAt:          now.Add(s.Orders.CutOff),
			SourcePriceListID: &sourceID,
			Items:             items,
		}
		warnings = sheet.Recompute()
		if err := s.Engine.Start(sheet, actor); err != nil {
			return err
		}
		if err := s.Engine.Transition(sheet, lifecycle.EventSend, actor); err != nil {
			return err
		}

		tok, err = s.Tokens.With(tx).Issue(ctx, model.DocumentOrderSheet, sheet.ID, model.CapabilityEditOrderSheet, nil)
		if err != nil {
			return err
		}
		sheet.InviteTokenID = &tok.ID
		if err := tx.CreateOrderSheet(ctx, sheet); err != nil {
			return err
		}
		return tx.IncrementPriceListConversion(ctx, list.ID)
	})
	if err != nil {
		return nil, err
	}

	link := s.notify(ctx, tok, sheet.CustomerName, fmt.Sprintf("Order form for %s is ready", sheet.CustomerName))
	return &ShareResult{OrderSheet: sheet, Token: tok, Link: link, Warnings: warnings}, nil
}

type FunnelStats struct {
	PriceListID     uuid.UUID              `json:"price_list_id"`
	ReachCount      int64                  `json:"reach_count"`
	ConversionCount int64                  `json:"conversion_count"`
	OrderSheetReach int64                  `json:"order_sheet_reach"`
	Confirmed       int64                  `json:"confirmed"`
	ByStatus        map[model.Status]int64 `json:"by_status"`
}

// Funnel reports the list's counters together with the reach and
// confirmations of the order sheets shared from it.
func (s *PriceListService) Funnel(ctx context.Context, principal model.Principal, id uuid.UUID) (*FunnelStats, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	list, err := s.Store.GetPriceList(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	rows, err := s.Store.OrderSheetFunnel(ctx, id)
	if err != nil {
		return nil, err
	}
	stats := &FunnelStats{
		PriceListID:     list.ID,
		ReachCount:      list.ReachCount,
		ConversionCount: list.ConversionCount,
		ByStatus:        make(map[model.Status]int64, len(rows)),
	}
	for _, row := range rows {
		stats.OrderSheetReach += row.Reach
		stats.ByStatus[row.Status] = row.Count
		if row.Status == model.StatusConfirmed {
			stats.Confirmed = row.Count
		}
	}
	return stats, nil
}

func (s *PriceListService) viewExpiry(validUntil *time.Time) *time.Time {
	if validUntil == nil {
		return nil
	}
	expiresAt := validUntil.Add(s.Orders.PriceViewGrace)
	return &expiresAt
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
