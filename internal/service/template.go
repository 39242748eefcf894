package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nurpe/orderflow/internal/model"
	"github.com/nurpe/orderflow/internal/repository"
	"github.com/nurpe/orderflow/internal/units"
)

// TemplateRow is one product line copied from a past order with its
// quantity reset and its prices read from the catalog as of the copy.
type TemplateRow struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Category    string          `json:"category"`
	Unit        units.Mode      `json:"unit"`
	BoxWeight   decimal.Decimal `json:"box_weight"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Qty         decimal.Decimal `json:"qty"`
}

type sourceLine struct {
	productID string
	name      string
	category  string
	unit      units.Mode
	boxWeight decimal.Decimal
	unitPrice decimal.Decimal
}

// templateRows copies the product lines of an order sheet or purchase order.
// Order sheets are re-priced at the supply price, purchase orders at the
// cost price. Products gone from the catalog keep their old data and are
// flagged.
func templateRows(ctx context.Context, store *repository.Store, sourceType model.DocumentType, sourceID uuid.UUID) ([]TemplateRow, []model.Warning, error) {
	var lines []sourceLine
	switch sourceType {
	case model.DocumentOrderSheet:
		sheet, err := store.GetOrderSheet(ctx, sourceID)
		if err != nil {
			return nil, nil, notFound(err)
		}
		for _, item := range sheet.Items {
			lines = append(lines, sourceLine{
				productID: item.ProductID,
				name:      item.ProductName,
				category:  item.Category,
				unit:      item.Unit,
				boxWeight: item.BoxWeight,
				unitPrice: item.UnitPrice,
			})
		}
	case model.DocumentPurchaseOrder:
		order, err := store.GetPurchaseOrder(ctx, sourceID)
		if err != nil {
			return nil, nil, notFound(err)
		}
		for _, item := range order.Items {
			lines = append(lines, sourceLine{
				productID: item.ProductID,
				name:      item.ProductName,
				unit:      units.ModeKg,
				unitPrice: item.UnitPrice,
			})
		}
	default:
		return nil, nil, fmt.Errorf("%w: cannot copy from %s", ErrInvalidInput, sourceType)
	}

	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.productID)
	}
	products, err := store.ProductsByID(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	rows := make([]TemplateRow, 0, len(lines))
	var warnings []model.Warning
	for _, line := range lines {
		row := TemplateRow{
			ProductID:   line.productID,
			ProductName: line.name,
			Category:    line.category,
			Unit:        line.unit,
			BoxWeight:   line.boxWeight,
			UnitPrice:   line.unitPrice,
			Qty:         decimal.Zero,
		}
		product, ok := products[line.productID]
		if !ok {
			warnings = append(warnings, model.Warning{
				Code:      model.WarningDataQuality,
				ProductID: line.productID,
				Message:   fmt.Sprintf("%s is no longer in the catalog; previous price kept", line.name),
			})
			rows = append(rows, row)
			continue
		}
		row.ProductName = product.Name
		row.Category = product.Category
		row.BoxWeight = product.BoxWeight
		if sourceType == model.DocumentPurchaseOrder {
			row.UnitPrice = product.CostPrice
		} else {
			row.UnitPrice = product.SupplyPrice
		}
		if row.Unit == units.ModeBox && !row.BoxWeight.IsPositive() {
			warnings = append(warnings, model.Warning{
				Code:      model.WarningDataQuality,
				ProductID: line.productID,
				Message:   fmt.Sprintf("%s is ordered in boxes but has no box weight", row.ProductName),
			})
		}
		rows = append(rows, row)
	}
	return rows, warnings, nil
}
