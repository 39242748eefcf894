package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/nurpe/orderflow/internal/model"
	"github.com/nurpe/orderflow/internal/units"
)

func TestUpsertProduct(t *testing.T) {
	f := newFixture(t)
	svc := NewCatalogService(f.deps)
	ctx := context.Background()

	got, err := svc.UpsertProduct(ctx, f.manager, model.Product{
		ID:          " p1 ",
		Name:        "Sirloin",
		Category:    "beef",
		SupplyPrice: dec("85000"),
	})
	if err != nil {
		t.Fatalf("UpsertProduct: %v", err)
	}
	if got.ID != "p1" || got.Unit != units.ModeKg {
		t.Errorf("product = %+v, want trimmed id and kg unit", got)
	}

	if _, err := svc.UpsertProduct(ctx, f.manager, model.Product{ID: "p1", Name: "Sirloin", Category: "beef", SupplyPrice: dec("90000")}); err != nil {
		t.Fatalf("UpsertProduct update: %v", err)
	}
	products, err := svc.ListProducts(ctx, f.keeper, "beef")
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(products) != 1 || !products[0].SupplyPrice.Equal(dec("90000")) {
		t.Errorf("products = %+v, want one product priced 90000", products)
	}
}

func TestUpsertProductValidation(t *testing.T) {
	f := newFixture(t)
	svc := NewCatalogService(f.deps)

	tests := []struct {
		name      string
		principal model.Principal
		product   model.Product
		want      error
	}{
		{"warehouse cannot edit", f.keeper, model.Product{ID: "p1", Name: "Sirloin"}, ErrPermissionDenied},
		{"missing name", f.manager, model.Product{ID: "p1"}, ErrInvalidInput},
		{"unknown unit", f.manager, model.Product{ID: "p1", Name: "Sirloin", Unit: "crate"}, ErrInvalidInput},
		{"negative price", f.manager, model.Product{ID: "p1", Name: "Sirloin", CostPrice: dec("-1")}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpsertProduct(context.Background(), tt.principal, tt.product)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDeleteProduct(t *testing.T) {
	f := newFixture(t)
	svc := NewCatalogService(f.deps)
	ctx := context.Background()
	f.product(t, "p1", "Sirloin", units.ModeKg, "0", "70000", "85000")

	if err := svc.DeleteProduct(ctx, f.manager, "p1"); err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}
	if err := svc.DeleteProduct(ctx, f.manager, "p1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestOrganizations(t *testing.T) {
	f := newFixture(t)
	svc := NewCatalogService(f.deps)
	ctx := context.Background()

	org, err := svc.UpsertOrganization(ctx, f.manager, model.Organization{Name: "Farm A", Type: model.OrganizationSupplier})
	if err != nil {
		t.Fatalf("UpsertOrganization: %v", err)
	}
	if org.ID == uuid.Nil {
		t.Fatal("organization id not assigned")
	}
	got, err := svc.GetOrganization(ctx, f.keeper, org.ID)
	if err != nil {
		t.Fatalf("GetOrganization: %v", err)
	}
	if got.Name != "Farm A" {
		t.Errorf("name = %q", got.Name)
	}

	if _, err := svc.GetOrganization(ctx, f.keeper, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing organization: got %v, want ErrNotFound", err)
	}
	if _, err := svc.UpsertOrganization(ctx, f.manager, model.Organization{Name: "X", Type: "BANK"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown type: got %v, want ErrInvalidInput", err)
	}
	if _, err := svc.GetOrganization(ctx, model.Principal{}, org.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("anonymous: got %v, want ErrPermissionDenied", err)
	}
}
