// Package printer renders a single defect report as a printable PDF
// sheet.
package printer

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/htmmed/qctrack/internal/models"
)

const (
	pageWidth  = 210.0
	marginX    = 15.0
	contentW   = pageWidth - marginX*2
	labelW     = 42.0
	lineH      = 7.0
	sectionGap = 4.0
)

// RenderReport lays out one report as an A4 sheet: company header,
// product identity block, complaint text, quantity triptych, resolution
// block and signature lines.
func RenderReport(r *models.DefectReport, appearance *models.AppearanceSettings) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginX, 15, marginX)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	writeHeader(pdf, r, appearance)
	writeProductBlock(pdf, r)
	writeComplaintBlock(pdf, r)
	writeQuantityTriptych(pdf, r)
	writeResolutionBlock(pdf, r)
	writeSignatureBlocks(pdf)
	writeFooter(pdf, appearance)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering report sheet: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(pdf *gofpdf.Fpdf, r *models.DefectReport, appearance *models.AppearanceSettings) {
	company := ""
	if appearance != nil {
		company = appearance.CompanyName
	}
	if company == "" {
		company = models.DefaultAppearanceSettings().CompanyName
	}

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(contentW, 8, company, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(contentW, 8, "PRODUCT QUALITY DEFECT REPORT", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	meta := fmt.Sprintf("Report %s    Reported: %s    Status: %s", r.ID, r.ReportedDate, r.Status)
	pdf.CellFormat(contentW, 6, meta, "", 1, "C", false, 0, "")

	pdf.Ln(sectionGap)
	pdf.SetDrawColor(60, 60, 60)
	pdf.Line(marginX, pdf.GetY(), pageWidth-marginX, pdf.GetY())
	pdf.Ln(sectionGap)
}

func fieldRow(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(labelW, lineH, label, "1", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(contentW-labelW, lineH, value, "1", 1, "L", false, 0, "")
}

func writeProductBlock(pdf *gofpdf.Fpdf, r *models.DefectReport) {
	sectionTitle(pdf, "Product")
	fieldRow(pdf, "Brand", r.Brand)
	fieldRow(pdf, "Product line", r.ProductLine)
	fieldRow(pdf, "Device name", r.DeviceName)
	fieldRow(pdf, "Trade name", r.TradeName)
	fieldRow(pdf, "Product code", r.ProductCode)
	fieldRow(pdf, "Batch number", r.BatchNumber)
	fieldRow(pdf, "Distributor", r.Distributor)
	fieldRow(pdf, "Using unit", r.UsingUnit)
	pdf.Ln(sectionGap)
}

func writeComplaintBlock(pdf *gofpdf.Fpdf, r *models.DefectReport) {
	sectionTitle(pdf, "Complaint")
	pdf.SetFont("Arial", "", 9)
	text := r.ComplaintText
	if text == "" {
		text = "-"
	}
	pdf.MultiCell(contentW, 5.5, text, "1", "L", false)
	pdf.Ln(sectionGap)
}

func writeQuantityTriptych(pdf *gofpdf.Fpdf, r *models.DefectReport) {
	sectionTitle(pdf, "Quantities")
	colW := contentW / 3

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(colW, lineH, "Received", "1", 0, "C", false, 0, "")
	pdf.CellFormat(colW, lineH, "Defective", "1", 0, "C", false, 0, "")
	pdf.CellFormat(colW, lineH, "Exchanged", "1", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(colW, lineH, fmt.Sprintf("%d", r.QuantityReceived), "1", 0, "C", false, 0, "")
	pdf.CellFormat(colW, lineH, fmt.Sprintf("%d", r.QuantityDefective), "1", 0, "C", false, 0, "")
	pdf.CellFormat(colW, lineH, fmt.Sprintf("%d", r.QuantityExchanged), "1", 1, "C", false, 0, "")
	pdf.Ln(sectionGap)
}

func writeResolutionBlock(pdf *gofpdf.Fpdf, r *models.DefectReport) {
	sectionTitle(pdf, "Resolution")
	fieldRow(pdf, "Defect origin", r.DefectOrigin)
	fieldRow(pdf, "Exchange date", r.ExchangeDate)
	fieldRow(pdf, "Completed date", r.CompletedDate)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(contentW, lineH, "Root cause", "1", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.MultiCell(contentW, 5.5, orDash(r.RootCause), "1", "L", false)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(contentW, lineH, "Resolution", "1", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.MultiCell(contentW, 5.5, orDash(r.Resolution), "1", "L", false)
	pdf.Ln(sectionGap)
}

func writeSignatureBlocks(pdf *gofpdf.Fpdf) {
	colW := contentW / 3

	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(colW, lineH, "Reported by", "", 0, "C", false, 0, "")
	pdf.CellFormat(colW, lineH, "Reviewed by", "", 0, "C", false, 0, "")
	pdf.CellFormat(colW, lineH, "Approved by", "", 1, "C", false, 0, "")

	// Room for handwritten signatures.
	pdf.Ln(18)
	y := pdf.GetY()
	for i := 0; i < 3; i++ {
		x := marginX + float64(i)*colW + 8
		pdf.Line(x, y, x+colW-16, y)
	}
	pdf.Ln(2)
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(colW, 5, "Signature / date", "", 0, "C", false, 0, "")
	pdf.CellFormat(colW, 5, "Signature / date", "", 0, "C", false, 0, "")
	pdf.CellFormat(colW, 5, "Signature / date", "", 1, "C", false, 0, "")
}

func writeFooter(pdf *gofpdf.Fpdf, appearance *models.AppearanceSettings) {
	if appearance == nil || appearance.PrintFooter == "" {
		return
	}
	pdf.SetY(-18)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(contentW, 5, appearance.PrintFooter, "", 1, "C", false, 0, "")
}

func sectionTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(contentW, 6, title, "", 1, "L", false, 0, "")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
