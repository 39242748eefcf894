package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nurpe/orderflow/internal/model"
	"github.com/nurpe/orderflow/internal/units"
)

// CatalogService maintains products and partner organizations. Price
// changes here reach new price lists and template copies only.
type CatalogService struct {
	*Deps
}

func NewCatalogService(deps *Deps) *CatalogService {
	return &CatalogService{Deps: deps}
}

func (s *CatalogService) UpsertProduct(ctx context.Context, principal model.Principal, product model.Product) (*model.Product, error) {
	if err := requireManager(principal); err != nil {
		return nil, err
	}
	product.ID = strings.TrimSpace(product.ID)
	product.Name = strings.TrimSpace(product.Name)
	if product.ID == "" || product.Name == "" {
		return nil, fmt.Errorf("%w: id and name are required", ErrInvalidInput)
	}
	mode, err := units.ParseMode(string(product.Unit))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	product.Unit = mode
	for name, v := range map[string]interface{ IsNegative() bool }{
		"box_weight":      product.BoxWeight,
		"cost_price":      product.CostPrice,
		"wholesale_price": product.WholesalePrice,
		"supply_price":    product.SupplyPrice,
	} {
		if v.IsNegative() {
			return nil, fmt.Errorf("%w: %s must not be negative", ErrInvalidInput, name)
		}
	}
	product.UpdatedAt = s.now()
	if err := s.Store.UpsertProduct(ctx, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// DeleteProduct removes the product from the catalog. Documents that already
// carry it keep their copy.
func (s *CatalogService) DeleteProduct(ctx context.Context, principal model.Principal, id string) error {
	if err := requireManager(principal); err != nil {
		return err
	}
	return notFound(s.Store.DeleteProduct(ctx, id))
}

func (s *CatalogService) ListProducts(ctx context.Context, principal model.Principal, category string) ([]model.Product, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	return s.Store.ListProducts(ctx, category)
}

func (s *CatalogService) UpsertOrganization(ctx context.Context, principal model.Principal, org model.Organization) (*model.Organization, error) {
	if err := requireManager(principal); err != nil {
		return nil, err
	}
	org.Name = strings.TrimSpace(org.Name)
	if org.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	switch org.Type {
	case model.OrganizationSupplier, model.OrganizationCarrier, model.OrganizationCustomer:
	default:
		return nil, fmt.Errorf("%w: unknown organization type %q", ErrInvalidInput, org.Type)
	}
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	if err := s.Store.UpsertOrganization(ctx, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

func (s *CatalogService) GetOrganization(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Organization, error) {
	if err := requireStaff(principal); err != nil {
		return nil, err
	}
	org, err := s.Store.GetOrganization(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return org, nil
}
