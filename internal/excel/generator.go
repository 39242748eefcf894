package excel

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/nurpe/orderflow/internal/model"
)

const summarySheet = "Allocation"

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders the allocation report as a workbook: one summary sheet
// with every sales order line, then one sheet per supplier.
func (g *Generator) Generate(report model.AllocationReport) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if err := g.writeSummary(file, summarySheet, report); err != nil {
		return nil, err
	}

	used := map[string]struct{}{summarySheet: {}}
	for _, supplier := range suppliers(report) {
		name := buildSheetName(supplier.name, supplier.id, used)
		used[name] = struct{}{}
		if _, err := file.NewSheet(name); err != nil {
			return nil, err
		}
		if err := g.writeSupplier(file, name, report, supplier); err != nil {
			return nil, err
		}
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, report model.AllocationReport) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Sales order")
	set("B1", report.SalesOrderID.String())
	set("A2", "Customer")
	set("B2", report.CustomerName)
	set("A3", "Generated")
	set("B3", formatDateTime(report.GeneratedAt))
	set("A4", "Fully allocated")
	set("B4", yesNo(report.FullyAllocated))

	tableRow := 6
	headers := []string{"Product", "Ordered, kg", "Allocated, kg", "Remaining, kg", "Status", "Suppliers"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}

	for i, line := range report.Lines {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), line.ProductName)
		set(fmt.Sprintf("B%d", row), formatKg(line.QtyKg))
		set(fmt.Sprintf("C%d", row), formatKg(line.AllocatedKg))
		set(fmt.Sprintf("D%d", row), formatKg(line.RemainingKg))
		set(fmt.Sprintf("E%d", row), lineStatus(line))
		set(fmt.Sprintf("F%d", row), supplierSummary(line.Suppliers))
	}

	if len(report.Warnings) > 0 {
		row := tableRow + len(report.Lines) + 2
		set(fmt.Sprintf("A%d", row), "Warnings")
		for i, warning := range report.Warnings {
			set(fmt.Sprintf("A%d", row+1+i), warning.Message)
		}
	}

	_ = file.SetColWidth(sheet, "A", "A", 40)
	_ = file.SetColWidth(sheet, "B", "D", 16)
	_ = file.SetColWidth(sheet, "E", "E", 18)
	_ = file.SetColWidth(sheet, "F", "F", 48)
	return nil
}

func (g *Generator) writeSupplier(file *excelize.File, sheet string, report model.AllocationReport, supplier supplierRows) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Supplier")
	set("B1", supplier.name)
	set("A2", "Sales order")
	set("B2", report.SalesOrderID.String())
	set("A3", "Total, kg")
	set("B3", formatKg(supplier.total))

	tableRow := 5
	headers := []string{"Product", "Qty, kg", "Purchase order"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}
	for i, row := range supplier.rows {
		r := tableRow + 1 + i
		set(fmt.Sprintf("A%d", r), row.product)
		set(fmt.Sprintf("B%d", r), formatKg(row.qtyKg))
		set(fmt.Sprintf("C%d", r), row.purchaseOrderID.String())
	}

	_ = file.SetColWidth(sheet, "A", "A", 40)
	_ = file.SetColWidth(sheet, "B", "B", 14)
	_ = file.SetColWidth(sheet, "C", "C", 38)
	return nil
}

type supplierRow struct {
	product         string
	qtyKg           decimal.Decimal
	purchaseOrderID uuid.UUID
}

type supplierRows struct {
	id    uuid.UUID
	name  string
	total decimal.Decimal
	rows  []supplierRow
}

// suppliers regroups the report by supplier, ordered by name.
func suppliers(report model.AllocationReport) []supplierRows {
	byID := make(map[uuid.UUID]*supplierRows)
	for _, line := range report.Lines {
		for _, alloc := range line.Suppliers {
			s, ok := byID[alloc.SupplierOrgID]
			if !ok {
				s = &supplierRows{id: alloc.SupplierOrgID, name: alloc.SupplierName, total: decimal.Zero}
				byID[alloc.SupplierOrgID] = s
			}
			s.total = s.total.Add(alloc.QtyKg)
			s.rows = append(s.rows, supplierRow{
				product:         line.ProductName,
				qtyKg:           alloc.QtyKg,
				purchaseOrderID: alloc.PurchaseOrderID,
			})
		}
	}
	out := make([]supplierRows, 0, len(byID))
	for _, s := range byID {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].name != out[j].name {
			return out[i].name < out[j].name
		}
		return out[i].id.String() < out[j].id.String()
	})
	return out
}

func supplierSummary(allocs []model.SupplierAllocation) string {
	parts := make([]string, 0, len(allocs))
	for _, alloc := range allocs {
		parts = append(parts, fmt.Sprintf("%s: %s", alloc.SupplierName, formatKg(alloc.QtyKg)))
	}
	return strings.Join(parts, "; ")
}

func lineStatus(line model.AllocationLine) string {
	switch {
	case line.OverAllocated:
		return "Over-allocated"
	case line.FullyAllocated:
		return "Allocated"
	default:
		return "Open"
	}
}

func buildSheetName(name string, id uuid.UUID, used map[string]struct{}) string {
	base := strings.TrimSpace(name)
	if base == "" {
		base = id.String()
	}
	base = sanitizeSheetName(base)

	if len(base) > 31 {
		base = base[:31]
	}

	candidate := base
	counter := 2
	for {
		if _, exists := used[candidate]; !exists {
			return candidate
		}
		suffix := fmt.Sprintf("-%d", counter)
		trimmed := base
		if len(trimmed)+len(suffix) > 31 {
			trimmed = trimmed[:31-len(suffix)]
		}
		candidate = trimmed + suffix
		counter++
	}
}

func sanitizeSheetName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "Supplier"
	}

	replacer := strings.NewReplacer(
		"[", "-",
		"]", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"/", "-",
		"\\", "-",
	)
	value = strings.TrimSpace(replacer.Replace(value))
	if value == "" {
		return "Supplier"
	}
	return value
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatKg(value decimal.Decimal) string {
	return value.StringFixed(3)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
