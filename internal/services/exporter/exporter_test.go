package exporter

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/htmmed/qctrack/internal/models"
)

func TestFilename(t *testing.T) {
	d := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, "defect-reports-2025-06-15.xlsx", Filename(d))
}

func TestExportReports(t *testing.T) {
	reports := []*models.DefectReport{
		{
			ID: "rp_a1", ReportedDate: "2025-06-01", Status: models.StatusNew,
			DefectOrigin: models.OriginProduction, Brand: models.BrandHTM,
			TradeName: "Sterile Pack A", ProductCode: "SP001",
			QuantityReceived: 100, QuantityDefective: 4, QuantityExchanged: 0,
			ComplaintText: "seal leak",
		},
		{
			ID: "rp_b2", ReportedDate: "2025-06-10", Status: models.StatusCompleted,
			DefectOrigin: models.OriginSupplier, Brand: models.BrandVMA,
			TradeName: "Infusion Set Std", ProductCode: "IV010",
			QuantityExchanged: 3, CompletedDate: "2025-06-12",
			RootCause: "supplier tubing batch", Resolution: "exchanged",
		},
	}

	f, err := ExportReports(reports)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Defect Reports")
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus one row per report")

	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "Reported Date", rows[0][1])
	assert.Len(t, rows[0], len(reportHeaders))

	assert.Equal(t, "rp_a1", rows[1][0])
	assert.Equal(t, "SP001", rows[1][8])
	assert.Equal(t, "100", rows[1][12])

	assert.Equal(t, "2025-06-12", rows[2][19])
}

func TestExportReportsEmptySetStillHasHeader(t *testing.T) {
	f, err := ExportReports(nil)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Defect Reports")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func catalogFile(t *testing.T, header []string, rows [][]string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue("Sheet1", cell, h)
	}
	for ri, row := range rows {
		for ci, v := range row {
			cell, _ := excelize.CoordinatesToCellName(ci+1, ri+2)
			f.SetCellValue("Sheet1", cell, v)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestImportCatalog(t *testing.T) {
	buf := catalogFile(t,
		[]string{"Product Code", "Trade Name", "Device", "Product Line", "Brand", "Registration No."},
		[][]string{
			{"SP001", "Sterile Pack A", "Sterile Pack", "Consumables", "HTM", "REG-01"},
			{"IV010", "Infusion Set Std", "Infusion Set", "Consumables", "VMA", ""},
		})

	products, err := ImportCatalog(buf)
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, models.Product{
		ProductCode:        "SP001",
		TradeName:          "Sterile Pack A",
		DeviceName:         "Sterile Pack",
		ProductLine:        "Consumables",
		Brand:              "HTM",
		RegistrationNumber: "REG-01",
	}, products[0])
}

func TestImportCatalogFuzzyHeaders(t *testing.T) {
	buf := catalogFile(t,
		[]string{"SKU", "product name", "DEVICE TYPE", "Category", "Manufacturer"},
		[][]string{{"MN100", "Vital Monitor X", "Patient Monitor", "Equipment", "VMA"}})

	products, err := ImportCatalog(buf)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "MN100", products[0].ProductCode)
	assert.Equal(t, "Vital Monitor X", products[0].TradeName)
	assert.Equal(t, "Patient Monitor", products[0].DeviceName)
	assert.Equal(t, "Equipment", products[0].ProductLine)
	assert.Equal(t, "VMA", products[0].Brand)
}

func TestImportCatalogSkipsRowsMissingIdentity(t *testing.T) {
	buf := catalogFile(t,
		[]string{"Code", "Trade Name"},
		[][]string{
			{"SP001", "Sterile Pack A"},
			{"", ""},
			{"", "   "},
			{"", "Loose Item"},
		})

	products, err := ImportCatalog(buf)
	require.NoError(t, err)
	require.Len(t, products, 2, "rows missing both code and trade name are skipped")
	assert.Equal(t, "Loose Item", products[1].TradeName)
	assert.Empty(t, products[1].ProductCode)
}

func TestImportCatalogNoValidRows(t *testing.T) {
	buf := catalogFile(t,
		[]string{"Code", "Trade Name"},
		[][]string{{"", ""}})

	_, err := ImportCatalog(buf)
	assert.ErrorIs(t, err, ErrNoValidRows)
}

func TestImportCatalogUnrecognizedHeaders(t *testing.T) {
	buf := catalogFile(t,
		[]string{"Foo", "Bar"},
		[][]string{{"x", "y"}})

	_, err := ImportCatalog(buf)
	assert.ErrorIs(t, err, ErrNoValidRows)
}

func TestImportCatalogGarbageInput(t *testing.T) {
	_, err := ImportCatalog(bytes.NewBufferString("not a spreadsheet"))
	assert.Error(t, err)
}
