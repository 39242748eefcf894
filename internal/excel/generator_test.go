package excel

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/nurpe/orderflow/internal/model"
)

func TestGenerateAllocationWorkbook(t *testing.T) {
	supplierA, supplierB := uuid.New(), uuid.New()
	po := uuid.New()
	report := model.AllocationReport{
		SalesOrderID: uuid.New(),
		CustomerName: "Acme Co",
		GeneratedAt:  time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC),
		Lines: []model.AllocationLine{
			{
				ProductName:   "Sirloin",
				QtyKg:         decimal.RequireFromString("100"),
				AllocatedKg:   decimal.RequireFromString("110"),
				RemainingKg:   decimal.Zero,
				OverAllocated: true,
				Suppliers: []model.SupplierAllocation{
					{SupplierOrgID: supplierB, SupplierName: "Farm B", PurchaseOrderID: po, QtyKg: decimal.RequireFromString("50")},
					{SupplierOrgID: supplierA, SupplierName: "Farm A", PurchaseOrderID: po, QtyKg: decimal.RequireFromString("60")},
				},
			},
		},
		Warnings: []model.Warning{{Code: model.WarningOverAllocation, Message: "Sirloin: 110 kg allocated against 100 kg ordered"}},
	}

	content, err := NewGenerator().Generate(report)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	file, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	want := []string{"Allocation", "Farm A", "Farm B"}
	if strings.Join(sheets, ",") != strings.Join(want, ",") {
		t.Fatalf("sheets = %v, want %v", sheets, want)
	}
	status, _ := file.GetCellValue("Allocation", "E7")
	if status != "Over-allocated" {
		t.Errorf("E7 = %q, want Over-allocated", status)
	}
	allocated, _ := file.GetCellValue("Allocation", "C7")
	if allocated != "110.000" {
		t.Errorf("C7 = %q, want 110.000", allocated)
	}
	total, _ := file.GetCellValue("Farm A", "B3")
	if total != "60.000" {
		t.Errorf("Farm A total = %q, want 60.000", total)
	}
}

func TestBuildSheetNameIsUnique(t *testing.T) {
	used := map[string]struct{}{"Farm: North": {}}
	id := uuid.New()
	first := buildSheetName("Farm: North", id, map[string]struct{}{})
	if first != "Farm- North" {
		t.Errorf("sanitized = %q", first)
	}
	used[first] = struct{}{}
	if got := buildSheetName("Farm: North", id, used); got != "Farm- North-2" {
		t.Errorf("second = %q, want Farm- North-2", got)
	}
	long := buildSheetName(strings.Repeat("x", 40), id, map[string]struct{}{})
	if len(long) != 31 {
		t.Errorf("len = %d, want 31", len(long))
	}
	if got := buildSheetName("  ", id, map[string]struct{}{}); got != id.String()[:31] {
		t.Errorf("blank name = %q", got)
	}
}
