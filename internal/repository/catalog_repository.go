package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nurpe/orderflow/internal/model"
)

func (s *Store) UpsertProduct(ctx context.Context, product *model.Product) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "category", "unit", "box_weight",
				"cost_price", "wholesale_price", "supply_price", "updated_at",
			}),
		}).
		Create(product).Error
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&model.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product
	if err := s.get(ctx, &product, id); err != nil {
		return nil, err
	}
	return &product, nil
}

// ProductsByID loads the given products keyed by id. Unknown ids are absent
// from the result.
func (s *Store) ProductsByID(ctx context.Context, ids []string) (map[string]model.Product, error) {
	result := make(map[string]model.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var products []model.Product
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	for _, p := range products {
		result[p.ID] = p
	}
	return result, nil
}

func (s *Store) ListProducts(ctx context.Context, category string) ([]model.Product, error) {
	query := s.db.WithContext(ctx).Order("category ASC, name ASC")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	var products []model.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) UpsertOrganization(ctx context.Context, org *model.Organization) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(org).Error
}

func (s *Store) GetOrganization(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	var org model.Organization
	if err := s.get(ctx, &org, id); err != nil {
		return nil, err
	}
	if org.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &org, nil
}
