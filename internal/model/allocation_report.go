package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SupplierAllocation struct {
	SupplierOrgID   uuid.UUID       `json:"supplier_org_id"`
	SupplierName    string          `json:"supplier_name"`
	PurchaseOrderID uuid.UUID       `json:"purchase_order_id"`
	QtyKg           decimal.Decimal `json:"qty_kg"`
}

type AllocationLine struct {
	SalesOrderItemID uuid.UUID            `json:"sales_order_item_id"`
	ProductID        string               `json:"product_id"`
	ProductName      string               `json:"product_name"`
	QtyKg            decimal.Decimal      `json:"qty_kg"`
	AllocatedKg      decimal.Decimal      `json:"allocated_kg"`
	RemainingKg      decimal.Decimal      `json:"remaining_kg"`
	FullyAllocated   bool                 `json:"fully_allocated"`
	OverAllocated    bool                 `json:"over_allocated"`
	Suppliers        []SupplierAllocation `json:"suppliers"`
}

type AllocationReport struct {
	SalesOrderID   uuid.UUID        `json:"sales_order_id"`
	CustomerName   string           `json:"customer_name"`
	Lines          []AllocationLine `json:"lines"`
	FullyAllocated bool             `json:"fully_allocated"`
	Warnings       []Warning        `json:"warnings,omitempty"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

// Line returns the report line of a sales order item.
func (r AllocationReport) Line(itemID uuid.UUID) (AllocationLine, bool) {
	for _, line := range r.Lines {
		if line.SalesOrderItemID == itemID {
			return line, true
		}
	}
	return AllocationLine{}, false
}

// BuildAllocationReport sums every allocation cell per sales order line.
// A line is fully allocated once the cells reach its quantity; exceeding it
// is flagged, never clamped.
func BuildAllocationReport(order *SalesOrder, allocations []Allocation, supplierNames map[uuid.UUID]string, now time.Time) AllocationReport {
	byItem := make(map[uuid.UUID][]Allocation, len(order.Items))
	for _, alloc := range allocations {
		byItem[alloc.SalesOrderItemID] = append(byItem[alloc.SalesOrderItemID], alloc)
	}

	report := AllocationReport{
		SalesOrderID:   order.ID,
		CustomerName:   order.CustomerName,
		Lines:          make([]AllocationLine, 0, len(order.Items)),
		FullyAllocated: true,
		GeneratedAt:    now,
	}
	for _, item := range order.Items {
		line := AllocationLine{
			SalesOrderItemID: item.ID,
			ProductID:        item.ProductID,
			ProductName:      item.ProductName,
			QtyKg:            item.QtyKg,
			AllocatedKg:      decimal.Zero,
		}
		for _, alloc := range byItem[item.ID] {
			line.AllocatedKg = line.AllocatedKg.Add(alloc.QtyKg)
			line.Suppliers = append(line.Suppliers, SupplierAllocation{
				SupplierOrgID:   alloc.SupplierOrgID,
				SupplierName:    supplierNames[alloc.SupplierOrgID],
				PurchaseOrderID: alloc.PurchaseOrderID,
				QtyKg:           alloc.QtyKg,
			})
		}
		line.FullyAllocated = line.AllocatedKg.GreaterThanOrEqual(item.QtyKg)
		line.OverAllocated = line.AllocatedKg.GreaterThan(item.QtyKg)
		line.RemainingKg = decimal.Max(item.QtyKg.Sub(line.AllocatedKg), decimal.Zero)
		if line.OverAllocated {
			report.Warnings = append(report.Warnings, Warning{
				Code:      WarningOverAllocation,
				ProductID: item.ProductID,
				ItemID:    item.ID.String(),
				Message: fmt.Sprintf("%s: %s kg allocated against %s kg ordered",
					item.ProductName, line.AllocatedKg.String(), item.QtyKg.String()),
			})
		}
		if !line.FullyAllocated {
			report.FullyAllocated = false
		}
		report.Lines = append(report.Lines, line)
	}
	return report
}
