package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nurpe/orderflow/internal/model"
)

// Price lists

func (s *Store) CreatePriceList(ctx context.Context, list *model.PriceList) error {
	return s.create(ctx, list)
}

func (s *Store) GetPriceList(ctx context.Context, id uuid.UUID) (*model.PriceList, error) {
	var list model.PriceList
	if err := s.get(ctx, &list, id); err != nil {
		return nil, err
	}
	return &list, nil
}

func (s *Store) LockPriceList(ctx context.Context, id uuid.UUID) (*model.PriceList, error) {
	var list model.PriceList
	if err := s.lock(ctx, &list, id); err != nil {
		return nil, err
	}
	return &list, nil
}

func (s *Store) SavePriceList(ctx context.Context, list *model.PriceList) error {
	return s.save(ctx, list)
}

func (s *Store) DeletePriceList(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&model.PriceList{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Store) ListPriceLists(ctx context.Context) ([]model.PriceList, error) {
	var lists []model.PriceList
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&lists).Error; err != nil {
		return nil, err
	}
	return lists, nil
}

func (s *Store) IncrementPriceListReach(ctx context.Context, id uuid.UUID) error {
	return s.increment(ctx, &model.PriceList{}, id, "reach_count")
}

func (s *Store) IncrementPriceListConversion(ctx context.Context, id uuid.UUID) error {
	return s.increment(ctx, &model.PriceList{}, id, "conversion_count")
}

// Order sheets

func (s *Store) CreateOrderSheet(ctx context.Context, sheet *model.OrderSheet) error {
	return s.create(ctx, sheet)
}

func (s *Store) GetOrderSheet(ctx context.Context, id uuid.UUID) (*model.OrderSheet, error) {
	var sheet model.OrderSheet
	if err := s.get(ctx, &sheet, id); err != nil {
		return nil, err
	}
	return &sheet, nil
}

func (s *Store) LockOrderSheet(ctx context.Context, id uuid.UUID) (*model.OrderSheet, error) {
	var sheet model.OrderSheet
	if err := s.lock(ctx, &sheet, id); err != nil {
		return nil, err
	}
	return &sheet, nil
}

func (s *Store) SaveOrderSheet(ctx context.Context, sheet *model.OrderSheet) error {
	return s.save(ctx, sheet)
}

func (s *Store) IncrementOrderSheetReach(ctx context.Context, id uuid.UUID) error {
	return s.increment(ctx, &model.OrderSheet{}, id, "reach_count")
}

// Sales orders

func (s *Store) CreateSalesOrder(ctx context.Context, order *model.SalesOrder) error {
	return s.create(ctx, order)
}

func (s *Store) GetSalesOrder(ctx context.Context, id uuid.UUID) (*model.SalesOrder, error) {
	var order model.SalesOrder
	if err := s.get(ctx, &order, id); err != nil {
		return nil, err
	}
	return &order, nil
}

// LockSalesOrder serialises allocation writers of one sales order.
func (s *Store) LockSalesOrder(ctx context.Context, id uuid.UUID) (*model.SalesOrder, error) {
	var order model.SalesOrder
	if err := s.lock(ctx, &order, id); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Store) ListSalesOrders(ctx context.Context) ([]model.SalesOrder, error) {
	var orders []model.SalesOrder
	if err := s.db.WithContext(ctx).Order("confirmed_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) GetSalesOrderByOrderSheet(ctx context.Context, orderSheetID uuid.UUID) (*model.SalesOrder, error) {
	var order model.SalesOrder
	if err := s.db.WithContext(ctx).First(&order, "source_order_sheet_id = ?", orderSheetID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// Purchase orders

func (s *Store) CreatePurchaseOrder(ctx context.Context, order *model.PurchaseOrder) error {
	return s.create(ctx, order)
}

func (s *Store) GetPurchaseOrder(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	var order model.PurchaseOrder
	if err := s.get(ctx, &order, id); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Store) LockPurchaseOrder(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	var order model.PurchaseOrder
	if err := s.lock(ctx, &order, id); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Store) SavePurchaseOrder(ctx context.Context, order *model.PurchaseOrder) error {
	return s.save(ctx, order)
}

func (s *Store) ListPurchaseOrdersBySupplier(ctx context.Context, supplierOrgID uuid.UUID) ([]model.PurchaseOrder, error) {
	var orders []model.PurchaseOrder
	err := s.db.WithContext(ctx).
		Where("supplier_org_id = ?", supplierOrgID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) ListPurchaseOrdersBySalesOrder(ctx context.Context, salesOrderID uuid.UUID) ([]model.PurchaseOrder, error) {
	var orders []model.PurchaseOrder
	err := s.db.WithContext(ctx).
		Where("sales_order_id = ?", salesOrderID).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// Shipments

func (s *Store) CreateShipment(ctx context.Context, shipment *model.Shipment) error {
	return s.create(ctx, shipment)
}

func (s *Store) GetShipment(ctx context.Context, id uuid.UUID) (*model.Shipment, error) {
	var shipment model.Shipment
	if err := s.get(ctx, &shipment, id); err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (s *Store) LockShipment(ctx context.Context, id uuid.UUID) (*model.Shipment, error) {
	var shipment model.Shipment
	if err := s.lock(ctx, &shipment, id); err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (s *Store) SaveShipment(ctx context.Context, shipment *model.Shipment) error {
	return s.save(ctx, shipment)
}

func (s *Store) GetShipmentBySalesOrder(ctx context.Context, salesOrderID uuid.UUID) (*model.Shipment, error) {
	var shipment model.Shipment
	if err := s.db.WithContext(ctx).First(&shipment, "source_sales_order_id = ?", salesOrderID).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

// UpsertCarrierProfile keeps one profile per carrier; the latest submission
// wins.
func (s *Store) UpsertCarrierProfile(ctx context.Context, profile *model.CarrierProfile) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "carrier_org_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"company", "driver_name", "driver_phone", "vehicle_number", "vehicle_type_id", "updated_at",
			}),
		}).
		Create(profile).Error
}

func (s *Store) GetCarrierProfile(ctx context.Context, carrierOrgID uuid.UUID) (*model.CarrierProfile, error) {
	var profile model.CarrierProfile
	if err := s.db.WithContext(ctx).First(&profile, "carrier_org_id = ?", carrierOrgID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}
