// Package exporter moves defect reports and the product catalog in and
// out of spreadsheets.
package exporter

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/htmmed/qctrack/internal/models"
)

const reportSheet = "Defect Reports"

// reportHeaders is the fixed export column set, one column per report
// field in form order.
var reportHeaders = []string{
	"ID",
	"Reported Date",
	"Status",
	"Defect Origin",
	"Brand",
	"Product Line",
	"Device Name",
	"Trade Name",
	"Product Code",
	"Batch Number",
	"Distributor",
	"Using Unit",
	"Qty Received",
	"Qty Defective",
	"Qty Exchanged",
	"Exchange Date",
	"Complaint",
	"Root Cause",
	"Resolution",
	"Completed Date",
}

func reportRow(r *models.DefectReport) []string {
	return []string{
		r.ID,
		r.ReportedDate,
		r.Status,
		r.DefectOrigin,
		r.Brand,
		r.ProductLine,
		r.DeviceName,
		r.TradeName,
		r.ProductCode,
		r.BatchNumber,
		r.Distributor,
		r.UsingUnit,
		strconv.Itoa(r.QuantityReceived),
		strconv.Itoa(r.QuantityDefective),
		strconv.Itoa(r.QuantityExchanged),
		r.ExchangeDate,
		r.ComplaintText,
		r.RootCause,
		r.Resolution,
		r.CompletedDate,
	}
}

// Filename returns the download name for an export taken on the given
// date.
func Filename(exportDate time.Time) string {
	return fmt.Sprintf("defect-reports-%s.xlsx", exportDate.Format(models.DateLayout))
}

// ExportReports builds a workbook with one row per report. The caller
// owns closing the returned file.
func ExportReports(reports []*models.DefectReport) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(reportSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating header style: %w", err)
	}

	for i, header := range reportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(reportSheet, cell, header)
		f.SetCellStyle(reportSheet, cell, cell, headerStyle)
	}

	for rowIdx, r := range reports {
		for colIdx, value := range reportRow(r) {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(reportSheet, cell, value)
		}
	}

	for i := range reportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(reportSheet, col, col, 16)
	}

	return f, nil
}
