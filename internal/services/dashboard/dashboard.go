// Package dashboard aggregates defect reports for the overview screens.
package dashboard

import (
	"sort"
	"strconv"
	"strings"

	"github.com/htmmed/qctrack/internal/models"
)

// TopTradeNameLimit caps the "most reported products" panel.
const TopTradeNameLimit = 5

// StatusBucket is one slice of the status breakdown.
type StatusBucket struct {
	Status  string `json:"status"`
	Count   int    `json:"count"`
	Percent string `json:"percent"`
}

// OriginBucket is one slice of the defect origin breakdown. Legacy
// spellings fold into their canonical origin before counting.
type OriginBucket struct {
	Origin  string `json:"origin"`
	Count   int    `json:"count"`
	Percent string `json:"percent"`
}

// BrandStats summarizes one brand's share of the filtered set.
type BrandStats struct {
	Brand                       string `json:"brand"`
	ReportCount                 int    `json:"report_count"`
	ExchangedQuantitySum        int    `json:"exchanged_quantity_sum"`
	UniqueDefectiveProductCodes int    `json:"unique_defective_product_codes"`
}

// NameCount pairs a directory value with its occurrence count.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Overview is the full dashboard payload for one filtered report set.
type Overview struct {
	Total         int            `json:"total"`
	Statuses      []StatusBucket `json:"statuses"`
	Origins       []OriginBucket `json:"origins"`
	Brands        []BrandStats   `json:"brands"`
	TradeNames    []NameCount    `json:"trade_names"`
	Distributors  []NameCount    `json:"distributors"`
	UsingUnits    []NameCount    `json:"using_units"`
	TopTradeNames []NameCount    `json:"top_trade_names"`
}

// counter tallies string values while remembering first-seen order.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: map[string]int{}}
}

func (c *counter) add(v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	if _, seen := c.counts[v]; !seen {
		c.order = append(c.order, v)
	}
	c.counts[v]++
}

// byCountDesc lists the counted values sorted by count descending, ties
// broken by first-seen order.
func (c *counter) byCountDesc() []NameCount {
	out := make([]NameCount, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, NameCount{Name: name, Count: c.counts[name]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// Aggregate builds the overview in a single pass over an already
// filtered report set.
func Aggregate(reports []*models.DefectReport) Overview {
	total := len(reports)

	statusCounts := map[string]int{}
	originCounts := map[string]int{}
	brandCounts := map[string]int{}
	brandExchanged := map[string]int{}
	brandCodes := map[string]map[string]struct{}{}
	trades := newCounter()
	distributors := newCounter()
	units := newCounter()

	for _, r := range reports {
		statusCounts[r.Status]++
		if o := models.NormalizeOrigin(r.DefectOrigin); o != "" {
			originCounts[o]++
		}

		brand := r.Brand
		if brand != models.BrandHTM && brand != models.BrandVMA {
			brand = models.BrandOther
		}
		brandCounts[brand]++
		brandExchanged[brand] += r.QuantityExchanged
		if r.ProductCode != "" {
			if brandCodes[brand] == nil {
				brandCodes[brand] = map[string]struct{}{}
			}
			brandCodes[brand][r.ProductCode] = struct{}{}
		}

		trades.add(r.TradeName)
		distributors.add(r.Distributor)
		units.add(r.UsingUnit)
	}

	ov := Overview{Total: total}

	for _, s := range models.StatusOrder {
		ov.Statuses = append(ov.Statuses, StatusBucket{
			Status:  s,
			Count:   statusCounts[s],
			Percent: FormatPercent(statusCounts[s], total),
		})
	}
	for _, o := range models.OriginOrder {
		ov.Origins = append(ov.Origins, OriginBucket{
			Origin:  o,
			Count:   originCounts[o],
			Percent: FormatPercent(originCounts[o], total),
		})
	}

	brands := []string{models.BrandHTM, models.BrandVMA, models.BrandOther}
	for _, b := range brands {
		if b == models.BrandOther && brandCounts[b] == 0 {
			continue
		}
		ov.Brands = append(ov.Brands, BrandStats{
			Brand:                       b,
			ReportCount:                 brandCounts[b],
			ExchangedQuantitySum:        brandExchanged[b],
			UniqueDefectiveProductCodes: len(brandCodes[b]),
		})
	}

	ov.TradeNames = trades.byCountDesc()
	ov.Distributors = distributors.byCountDesc()
	ov.UsingUnits = units.byCountDesc()

	top := ov.TradeNames
	if len(top) > TopTradeNameLimit {
		top = top[:TopTradeNameLimit]
	}
	ov.TopTradeNames = top

	return ov
}

// FormatPercent renders part/total as a percentage with one decimal
// place. An empty set yields "0", not a division error.
func FormatPercent(part, total int) string {
	if total == 0 {
		return "0"
	}
	return strconv.FormatFloat(float64(part)*100/float64(total), 'f', 1, 64)
}

// Drill-down helpers. Each narrows the same filtered set the overview
// was built from, so panel counts and drill-down rows always agree.

// ByStatus keeps reports with the given status.
func ByStatus(reports []*models.DefectReport, status string) []*models.DefectReport {
	out := []*models.DefectReport{}
	for _, r := range reports {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

// ByOrigin keeps reports whose normalized origin matches.
func ByOrigin(reports []*models.DefectReport, origin string) []*models.DefectReport {
	want := models.NormalizeOrigin(origin)
	out := []*models.DefectReport{}
	for _, r := range reports {
		if models.NormalizeOrigin(r.DefectOrigin) == want {
			out = append(out, r)
		}
	}
	return out
}

// ByBrand keeps reports for the given brand. Brands outside the known
// set group under Other, matching the overview.
func ByBrand(reports []*models.DefectReport, brand string) []*models.DefectReport {
	out := []*models.DefectReport{}
	for _, r := range reports {
		b := r.Brand
		if b != models.BrandHTM && b != models.BrandVMA {
			b = models.BrandOther
		}
		if b == brand {
			out = append(out, r)
		}
	}
	return out
}

// ByTradeName keeps reports with the given trade name.
func ByTradeName(reports []*models.DefectReport, name string) []*models.DefectReport {
	out := []*models.DefectReport{}
	for _, r := range reports {
		if r.TradeName == name {
			out = append(out, r)
		}
	}
	return out
}
