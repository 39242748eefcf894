package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/nurpe/orderflow/internal/model"
)

// Generator renders dispatch notes with the built-in Helvetica face, so
// non-Latin text is transliterated by the font's code page.
type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

func (g *Generator) Generate(shipment model.Shipment, order model.SalesOrder) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 10, "Dispatch note", "", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Shipment %s, sales order %s", shortID(shipment.ID.String()), shortID(order.ID.String())), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	block(pdf, g.fontName, tr, "Customer", []string{
		order.CustomerName,
		fmt.Sprintf("Confirmed: %s", formatDate(order.ConfirmedAt)),
	})
	pdf.Ln(2)
	block(pdf, g.fontName, tr, "Carrier", []string{
		safeValue(shipment.Company),
		fmt.Sprintf("Vehicle: %s %s", safeValue(shipment.VehicleNumber), shipment.VehicleTypeID),
		fmt.Sprintf("Driver: %s, %s", safeValue(shipment.DriverName), safeValue(shipment.DriverPhone)),
		fmt.Sprintf("ETA: %s", formatTimePtr(shipment.EtaAt)),
	})
	pdf.Ln(4)

	headers := []string{"Product", "Qty, kg", "Price", "Amount"}
	colWidths := []float64{90, 30, 30, 30}
	drawTableRow(pdf, g.fontName, tr, headers, colWidths, true)
	for _, item := range order.Items {
		drawTableRow(pdf, g.fontName, tr, []string{
			item.ProductName,
			item.QtyKg.StringFixed(3),
			item.UnitPrice.StringFixed(2),
			item.Amount.StringFixed(2),
		}, colWidths, false)
	}
	drawTableRow(pdf, g.fontName, tr, []string{
		"Total",
		order.TotalsKg.StringFixed(3),
		"",
		order.TotalsAmount.StringFixed(2),
	}, colWidths, true)

	if shipment.IsModified {
		pdf.Ln(2)
		pdf.SetTextColor(200, 0, 0)
		pdf.MultiCell(0, 6, fmt.Sprintf("Details changed after dispatch on %s.", formatTimePtr(shipment.ModifiedAt)), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.Ln(6)
	pdf.SetFont(g.fontName, "", 11)
	signatureLine(pdf, g.fontName, "Released by", shipment.SignatureRef != "")
	signatureLine(pdf, g.fontName, "Received by", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func block(pdf *gofpdf.Fpdf, fontName string, tr func(string) string, title string, lines []string) {
	pdf.SetFont(fontName, "B", 11)
	pdf.CellFormat(0, 6, title, "", 1, "L", false, 0, "")
	pdf.SetFont(fontName, "", 10)
	for _, line := range lines {
		pdf.MultiCell(0, 5, tr(line), "", "L", false)
	}
}

func drawTableRow(pdf *gofpdf.Fpdf, fontName string, tr func(string) string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 10)
	for i, col := range cols {
		align := "L"
		if i > 0 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, tr(col), "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func signatureLine(pdf *gofpdf.Fpdf, fontName, label string, signed bool) {
	mark := ""
	if signed {
		mark = " (signed)"
	}
	pdf.SetFont(fontName, "", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("%s: ______________________%s", label, mark), "", 1, "L", false, 0, "")
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006")
}

func formatTimePtr(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006 15:04")
}
