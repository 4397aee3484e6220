package exporter

import (
	"errors"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/htmmed/qctrack/internal/models"
)

// ErrNoValidRows means a catalog import produced nothing: either the
// file had no recognizable columns or every row lacked both code and
// trade name. The whole import is rejected.
var ErrNoValidRows = errors.New("no valid catalog rows in file")

// headerSynonyms maps a product field to keywords matched
// case-insensitively as substrings of a header cell. The first field
// whose synonym hits claims the column.
var headerSynonyms = []struct {
	field    string
	keywords []string
}{
	{"product_code", []string{"product code", "code", "sku"}},
	{"trade_name", []string{"trade name", "trade", "product name"}},
	{"device_name", []string{"device"}},
	{"product_line", []string{"product line", "line", "category"}},
	{"brand", []string{"brand", "manufacturer"}},
	{"registration_number", []string{"registration", "license"}},
}

// mapHeaders assigns a column index to each recognized field.
func mapHeaders(header []string) map[string]int {
	cols := map[string]int{}
	for idx, cell := range header {
		label := strings.ToLower(strings.TrimSpace(cell))
		if label == "" {
			continue
		}
		for _, syn := range headerSynonyms {
			if _, taken := cols[syn.field]; taken {
				continue
			}
			for _, kw := range syn.keywords {
				if strings.Contains(label, kw) {
					cols[syn.field] = idx
					break
				}
			}
		}
	}
	return cols
}

func cellAt(row []string, idx int, ok bool) string {
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ImportCatalog parses a catalog spreadsheet. The first row is the
// header; columns are matched by keyword so exports from other systems
// load without reshaping. Rows missing both product code and trade name
// are skipped silently.
func ImportCatalog(r io.Reader) ([]models.Product, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoValidRows
	}

	cols := mapHeaders(rows[0])
	codeIdx, hasCode := cols["product_code"]
	tradeIdx, hasTrade := cols["trade_name"]
	deviceIdx, hasDevice := cols["device_name"]
	lineIdx, hasLine := cols["product_line"]
	brandIdx, hasBrand := cols["brand"]
	regIdx, hasReg := cols["registration_number"]

	var products []models.Product
	for _, row := range rows[1:] {
		code := cellAt(row, codeIdx, hasCode)
		trade := cellAt(row, tradeIdx, hasTrade)
		if code == "" && trade == "" {
			continue
		}
		products = append(products, models.Product{
			ProductCode:        code,
			TradeName:          trade,
			DeviceName:         cellAt(row, deviceIdx, hasDevice),
			ProductLine:        cellAt(row, lineIdx, hasLine),
			Brand:              cellAt(row, brandIdx, hasBrand),
			RegistrationNumber: cellAt(row, regIdx, hasReg),
		})
	}
	if len(products) == 0 {
		return nil, ErrNoValidRows
	}
	return products, nil
}
