// Package cascade resolves product identity fields against the catalog.
//
// The identity fields form a chain, brand first and product code last.
// Choosing a value at one level narrows the candidate sets below it, and
// entering a trade name or product code that matches exactly one catalog
// entry fills in the remaining fields and locks the group.
package cascade

import (
	"sort"
	"strings"

	"github.com/htmmed/qctrack/internal/models"
)

// Levels in cascade order.
const (
	LevelBrand       = "brand"
	LevelProductLine = "product_line"
	LevelDeviceName  = "device_name"
	LevelTradeName   = "trade_name"
	LevelProductCode = "product_code"
)

// levelOrder positions each level in the chain. Lower means upstream.
var levelOrder = map[string]int{
	LevelBrand:       0,
	LevelProductLine: 1,
	LevelDeviceName:  2,
	LevelTradeName:   3,
	LevelProductCode: 4,
}

// Selection holds the current state of the identity fields on a report
// form. Locked selections came from an exact catalog match and are not
// narrowed further until the locking field is cleared.
type Selection struct {
	Brand       string `json:"brand"`
	ProductLine string `json:"product_line"`
	DeviceName  string `json:"device_name"`
	TradeName   string `json:"trade_name"`
	ProductCode string `json:"product_code"`
	Locked      bool   `json:"locked"`
	LockSource  string `json:"lock_source,omitempty"`
}

// Choices is the candidate set per level given the current selection.
type Choices struct {
	Brands       []string `json:"brands"`
	ProductLines []string `json:"product_lines"`
	DeviceNames  []string `json:"device_names"`
	TradeNames   []string `json:"trade_names"`
	ProductCodes []string `json:"product_codes"`
}

// Resolver answers cascade queries over a product catalog snapshot.
type Resolver struct {
	products []models.Product
	byCode   map[string]models.Product
}

// NewResolver builds a resolver over the given catalog. Product codes are
// keyed case-insensitively; when two entries collide on a folded code the
// later entry wins.
func NewResolver(products []models.Product) *Resolver {
	r := &Resolver{
		products: products,
		byCode:   make(map[string]models.Product, len(products)),
	}
	for _, p := range products {
		if p.ProductCode != "" {
			r.byCode[strings.ToLower(p.ProductCode)] = p
		}
	}
	return r
}

// matches reports whether the product fits every upstream constraint of
// the selection at or above the given level. The brand "Other" constrains
// nothing: its reports describe products outside the catalog.
func (r *Resolver) matches(p models.Product, sel Selection, below int) bool {
	if sel.Brand != "" && sel.Brand != models.BrandOther && below > levelOrder[LevelBrand] && p.Brand != sel.Brand {
		return false
	}
	if sel.ProductLine != "" && below > levelOrder[LevelProductLine] && p.ProductLine != sel.ProductLine {
		return false
	}
	if sel.DeviceName != "" && below > levelOrder[LevelDeviceName] && p.DeviceName != sel.DeviceName {
		return false
	}
	if sel.TradeName != "" && below > levelOrder[LevelTradeName] && p.TradeName != sel.TradeName {
		return false
	}
	return true
}

// Choices returns the deduplicated, ascending candidate values for every
// level under the current selection. Each level is constrained only by
// the levels above it, so a selected value always remains among its own
// level's candidates.
func (r *Resolver) Choices(sel Selection) Choices {
	brands := map[string]struct{}{}
	lines := map[string]struct{}{}
	devices := map[string]struct{}{}
	trades := map[string]struct{}{}
	codes := map[string]struct{}{}

	for _, p := range r.products {
		if p.Brand != "" {
			brands[p.Brand] = struct{}{}
		}
		if r.matches(p, sel, levelOrder[LevelProductLine]) && p.ProductLine != "" {
			lines[p.ProductLine] = struct{}{}
		}
		if r.matches(p, sel, levelOrder[LevelDeviceName]) && p.DeviceName != "" {
			devices[p.DeviceName] = struct{}{}
		}
		if r.matches(p, sel, levelOrder[LevelTradeName]) && p.TradeName != "" {
			trades[p.TradeName] = struct{}{}
		}
		if r.matches(p, sel, levelOrder[LevelProductCode]) && p.ProductCode != "" {
			codes[p.ProductCode] = struct{}{}
		}
	}

	// Reports can always be filed against a brand outside the catalog.
	brands[models.BrandOther] = struct{}{}

	return Choices{
		Brands:       sortedKeys(brands),
		ProductLines: sortedKeys(lines),
		DeviceNames:  sortedKeys(devices),
		TradeNames:   sortedKeys(trades),
		ProductCodes: sortedKeys(codes),
	}
}

// Select applies a value at a level and clears every downstream level.
// Selecting at or above the lock source also drops the lock. Unknown
// levels leave the selection untouched.
func (r *Resolver) Select(sel Selection, level, value string) Selection {
	pos, ok := levelOrder[level]
	if !ok {
		return sel
	}
	if sel.Locked && levelOrder[sel.LockSource] >= pos {
		sel.Locked = false
		sel.LockSource = ""
	}
	switch level {
	case LevelBrand:
		sel.Brand = value
	case LevelProductLine:
		sel.ProductLine = value
	case LevelDeviceName:
		sel.DeviceName = value
	case LevelTradeName:
		sel.TradeName = value
	case LevelProductCode:
		sel.ProductCode = value
	}
	for l, p := range levelOrder {
		if p > pos {
			sel = clearLevel(sel, l)
		}
	}
	return sel
}

// EnterTradeName records a typed trade name. When exactly one catalog
// entry under the current upstream constraints carries that trade name,
// the product code and the fields above are filled from it and the group
// locks with the trade name as lock source. Otherwise only downstream
// levels are cleared.
func (r *Resolver) EnterTradeName(sel Selection, name string) Selection {
	sel = r.Select(sel, LevelTradeName, name)
	if name == "" {
		return sel
	}
	var match *models.Product
	count := 0
	for i, p := range r.products {
		if p.TradeName != name {
			continue
		}
		if !r.matches(p, sel, levelOrder[LevelTradeName]) {
			continue
		}
		count++
		match = &r.products[i]
	}
	if count != 1 {
		return sel
	}
	sel = fillFrom(sel, *match)
	sel.Locked = true
	sel.LockSource = LevelTradeName
	return sel
}

// EnterProductCode records a typed product code. Codes match the catalog
// case-insensitively; on a hit the whole identity tuple is taken from
// the entry, the typed spelling is replaced by the canonical one, and
// the group locks with the product code as lock source.
func (r *Resolver) EnterProductCode(sel Selection, code string) Selection {
	sel = r.Select(sel, LevelProductCode, code)
	if code == "" {
		return sel
	}
	p, ok := r.byCode[strings.ToLower(code)]
	if !ok {
		return sel
	}
	sel = fillFrom(sel, p)
	sel.Locked = true
	sel.LockSource = LevelProductCode
	return sel
}

// Clear empties a level and every level below it. Clearing the lock
// source unlocks the group without altering the remaining values.
func (r *Resolver) Clear(sel Selection, level string) Selection {
	pos, ok := levelOrder[level]
	if !ok {
		return sel
	}
	if sel.Locked && levelOrder[sel.LockSource] >= pos {
		sel.Locked = false
		sel.LockSource = ""
	}
	for l, p := range levelOrder {
		if p >= pos {
			sel = clearLevel(sel, l)
		}
	}
	return sel
}

// Canonicalize resolves a report's identity fields against the catalog
// the same way the form would: a known product code wins, then a uniquely
// matching trade name. Unresolvable fields are kept as entered.
func (r *Resolver) Canonicalize(rep *models.DefectReport) {
	sel := Selection{
		Brand:       rep.Brand,
		ProductLine: rep.ProductLine,
		DeviceName:  rep.DeviceName,
		TradeName:   rep.TradeName,
	}
	if rep.ProductCode != "" {
		sel = r.EnterProductCode(sel, rep.ProductCode)
	} else if rep.TradeName != "" {
		sel = r.EnterTradeName(sel, rep.TradeName)
	} else {
		return
	}
	if !sel.Locked {
		return
	}
	rep.Brand = sel.Brand
	rep.ProductLine = sel.ProductLine
	rep.DeviceName = sel.DeviceName
	rep.TradeName = sel.TradeName
	rep.ProductCode = sel.ProductCode
}

func fillFrom(sel Selection, p models.Product) Selection {
	sel.Brand = p.Brand
	sel.ProductLine = p.ProductLine
	sel.DeviceName = p.DeviceName
	sel.TradeName = p.TradeName
	sel.ProductCode = p.ProductCode
	return sel
}

func clearLevel(sel Selection, level string) Selection {
	switch level {
	case LevelBrand:
		sel.Brand = ""
	case LevelProductLine:
		sel.ProductLine = ""
	case LevelDeviceName:
		sel.DeviceName = ""
	case LevelTradeName:
		sel.TradeName = ""
	case LevelProductCode:
		sel.ProductCode = ""
	}
	return sel
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
