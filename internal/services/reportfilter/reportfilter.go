// Package reportfilter narrows and pages defect report lists.
package reportfilter

import (
	"sort"
	"strings"

	"github.com/htmmed/qctrack/internal/models"
	"github.com/htmmed/qctrack/internal/services/permission"
)

// All matches every value of a criterion.
const All = "all"

// Criteria describes one list query. Zero values and the "all" sentinel
// leave the corresponding dimension unconstrained.
type Criteria struct {
	Search   string `json:"search"`
	Status   string `json:"status"`
	Origin   string `json:"origin"`
	Year     string `json:"year"`
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
}

// searchTarget lists the fields the free-text search scans.
func searchTarget(r *models.DefectReport) []string {
	return []string{
		r.ProductCode,
		r.TradeName,
		r.ProductLine,
		r.Distributor,
		r.UsingUnit,
		r.BatchNumber,
		r.ComplaintText,
		r.Brand,
	}
}

// Apply runs the full filter pipeline over the given reports: the
// caller's visible origins first, then free-text search, status, origin,
// year and reported-date range. Every stage is conjunctive. The input
// slice is not modified and the result preserves its order.
func Apply(reports []*models.DefectReport, c Criteria, rc permission.Capability) []*models.DefectReport {
	out := make([]*models.DefectReport, 0, len(reports))
	needle := strings.ToLower(strings.TrimSpace(c.Search))
	for _, r := range reports {
		if !rc.CanViewOrigin(r.DefectOrigin) {
			continue
		}
		if needle != "" && !matchesSearch(r, needle) {
			continue
		}
		if constrained(c.Status) && r.Status != c.Status {
			continue
		}
		if constrained(c.Origin) && models.NormalizeOrigin(r.DefectOrigin) != models.NormalizeOrigin(c.Origin) {
			continue
		}
		if constrained(c.Year) && r.ReportYear() != c.Year {
			continue
		}
		if c.DateFrom != "" && r.ReportedDate < c.DateFrom {
			continue
		}
		if c.DateTo != "" && r.ReportedDate > c.DateTo {
			continue
		}
		out = append(out, r)
	}
	return out
}

func constrained(v string) bool {
	return v != "" && v != All
}

func matchesSearch(r *models.DefectReport, needle string) bool {
	for _, f := range searchTarget(r) {
		if f != "" && strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// Page is one page of a filtered listing.
type Page struct {
	Reports    []*models.DefectReport `json:"reports"`
	Total      int                    `json:"total"`
	PageNumber int                    `json:"page"`
	PageSize   int                    `json:"page_size"`
	PageCount  int                    `json:"page_count"`
}

// Paginate slices the filtered set into a 1-indexed page. A page number
// past the end yields an empty page with the real totals so the caller
// can recover. A non-positive size disables paging.
func Paginate(reports []*models.DefectReport, number, size int) Page {
	if number < 1 {
		number = 1
	}
	p := Page{Total: len(reports), PageNumber: number, PageSize: size}
	if size <= 0 {
		p.Reports = reports
		p.PageNumber = 1
		p.PageCount = 1
		return p
	}
	p.PageCount = (len(reports) + size - 1) / size
	start := (number - 1) * size
	if start >= len(reports) {
		p.Reports = []*models.DefectReport{}
		return p
	}
	end := start + size
	if end > len(reports) {
		end = len(reports)
	}
	p.Reports = reports[start:end]
	return p
}

// Summary counts the filtered set by status.
type Summary struct {
	Total        int `json:"total"`
	New          int `json:"new"`
	InProgress   int `json:"in_progress"`
	CauseUnknown int `json:"cause_unknown"`
	Completed    int `json:"completed"`
}

// Summarize tallies statuses over an already filtered set.
func Summarize(reports []*models.DefectReport) Summary {
	s := Summary{Total: len(reports)}
	for _, r := range reports {
		switch r.Status {
		case models.StatusNew:
			s.New++
		case models.StatusInProgress:
			s.InProgress++
		case models.StatusCauseUnknown:
			s.CauseUnknown++
		case models.StatusCompleted:
			s.Completed++
		}
	}
	return s
}

// Years lists the distinct report years of the given set, descending,
// for populating the year filter. Reports without a parseable reported
// date are skipped.
func Years(reports []*models.DefectReport) []string {
	seen := map[string]struct{}{}
	for _, r := range reports {
		if y := r.ReportYear(); y != "" {
			seen[y] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for y := range seen {
		out = append(out, y)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}
