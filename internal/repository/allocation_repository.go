package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/nurpe/orderflow/internal/model"
)

// UpsertAllocation writes the (sales order line, supplier) cell, replacing
// any quantity recorded for the same cell before.
func (s *Store) UpsertAllocation(ctx context.Context, alloc *model.Allocation) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sales_order_item_id"}, {Name: "supplier_org_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"qty_kg", "purchase_order_id", "updated_at"}),
		}).
		Create(alloc).Error
}

func (s *Store) GetAllocation(ctx context.Context, salesOrderItemID, supplierOrgID uuid.UUID) (*model.Allocation, error) {
	var alloc model.Allocation
	err := s.db.WithContext(ctx).
		Where("sales_order_item_id = ? AND supplier_org_id = ?", salesOrderItemID, supplierOrgID).
		First(&alloc).Error
	if err != nil {
		return nil, err
	}
	return &alloc, nil
}

func (s *Store) DeleteAllocation(ctx context.Context, salesOrderItemID, supplierOrgID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("sales_order_item_id = ? AND supplier_org_id = ?", salesOrderItemID, supplierOrgID).
		Delete(&model.Allocation{}).Error
}

func (s *Store) ListAllocationsBySalesOrder(ctx context.Context, salesOrderID uuid.UUID) ([]model.Allocation, error) {
	var allocations []model.Allocation
	err := s.db.WithContext(ctx).
		Where("sales_order_id = ?", salesOrderID).
		Order("created_at ASC").
		Find(&allocations).Error
	if err != nil {
		return nil, err
	}
	return allocations, nil
}

func (s *Store) ListAllocationsByPurchaseOrder(ctx context.Context, purchaseOrderID uuid.UUID) ([]model.Allocation, error) {
	var allocations []model.Allocation
	err := s.db.WithContext(ctx).
		Where("purchase_order_id = ?", purchaseOrderID).
		Order("created_at ASC").
		Find(&allocations).Error
	if err != nil {
		return nil, err
	}
	return allocations, nil
}
