// Package models defines the QCTrack data model.
package models

import (
	"strings"
	"time"
)

// DateLayout is the wire format for user-facing dates (reported, completed,
// exchange). Dates are kept as strings so range filters reduce to
// lexicographic comparison.
const DateLayout = "2006-01-02"

// DraftIDPrefix marks a report that has not been persisted yet (new drafts
// and duplicates). The store strips it and assigns a real id on create.
const DraftIDPrefix = "draft-"

// DefectReport is one customer or field complaint about a product batch.
type DefectReport struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ReportedDate  string `json:"reported_date"`
	CompletedDate string `json:"completed_date,omitempty"`
	ExchangeDate  string `json:"exchange_date,omitempty"`

	// Product identity tuple. When ProductCode matches a catalog entry the
	// whole tuple must equal the catalog entry's tuple.
	ProductCode string `json:"product_code"`
	ProductLine string `json:"product_line"`
	TradeName   string `json:"trade_name"`
	DeviceName  string `json:"device_name,omitempty"`
	Brand       string `json:"brand"`

	BatchNumber string `json:"batch_number"`
	Distributor string `json:"distributor"`
	UsingUnit   string `json:"using_unit,omitempty"`

	QuantityReceived  int `json:"quantity_received"`
	QuantityDefective int `json:"quantity_defective"`
	QuantityExchanged int `json:"quantity_exchanged"`

	ComplaintText string `json:"complaint_text"`
	RootCause     string `json:"root_cause,omitempty"`
	Resolution    string `json:"resolution,omitempty"`

	Status       string `json:"status"`
	DefectOrigin string `json:"defect_origin"`

	Images      []string        `json:"images,omitempty"`
	ActivityLog []ActivityEntry `json:"activity_log,omitempty"`
}

// ActivityEntry is one item in a report's append-only activity trail.
// System entries (kind "log") record lifecycle transitions; "comment"
// entries are user-authored.
type ActivityEntry struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Author     string    `json:"author"`
	AuthorRole string    `json:"author_role"`
}

// Activity entry kinds.
const (
	ActivityKindLog     = "log"
	ActivityKindComment = "comment"
)

// Report status constants.
const (
	StatusNew          = "new"
	StatusInProgress   = "in_progress"
	StatusCauseUnknown = "cause_unknown"
	StatusCompleted    = "completed"
)

// ValidStatuses is the set of allowed status values.
var ValidStatuses = map[string]bool{
	StatusNew:          true,
	StatusInProgress:   true,
	StatusCauseUnknown: true,
	StatusCompleted:    true,
}

// StatusOrder lists statuses in display order.
var StatusOrder = []string{StatusNew, StatusInProgress, StatusCauseUnknown, StatusCompleted}

// Defect origin constants.
const (
	OriginProduction = "production"
	OriginSupplier   = "supplier"
	OriginMixed      = "mixed"
	OriginOther      = "other"
)

// Legacy origin spellings still present in older records. They aggregate
// into the same buckets as their current counterparts.
const (
	OriginLegacyManufacturing = "manufacturing" // -> production
	OriginLegacyCombined      = "combined"      // -> mixed
)

// ValidOrigins is the set of allowed (normalized) origin values.
var ValidOrigins = map[string]bool{
	OriginProduction: true,
	OriginSupplier:   true,
	OriginMixed:      true,
	OriginOther:      true,
}

// OriginOrder lists origins in display order.
var OriginOrder = []string{OriginProduction, OriginSupplier, OriginMixed, OriginOther}

// NormalizeOrigin folds legacy origin spellings into their current values.
// Unknown values pass through unchanged.
func NormalizeOrigin(origin string) string {
	switch strings.ToLower(strings.TrimSpace(origin)) {
	case OriginLegacyManufacturing, OriginProduction:
		return OriginProduction
	case OriginLegacyCombined, OriginMixed:
		return OriginMixed
	case OriginSupplier:
		return OriginSupplier
	case OriginOther:
		return OriginOther
	}
	return origin
}

// Brand constants.
const (
	BrandHTM   = "HTM"
	BrandVMA   = "VMA"
	BrandOther = "Other"
)

// ValidBrands is the set of allowed brand values.
var ValidBrands = map[string]bool{
	BrandHTM:   true,
	BrandVMA:   true,
	BrandOther: true,
}

// IsDraft reports whether the report carries a not-yet-persisted draft id.
func (r *DefectReport) IsDraft() bool {
	return r.ID == "" || strings.HasPrefix(r.ID, DraftIDPrefix)
}

// ReportPatch is a partial field update for a report. Nil fields are left
// untouched; the store applies set fields with last-write-wins semantics.
type ReportPatch struct {
	Status            *string `json:"status,omitempty"`
	DefectOrigin      *string `json:"defect_origin,omitempty"`
	RootCause         *string `json:"root_cause,omitempty"`
	Resolution        *string `json:"resolution,omitempty"`
	QuantityExchanged *int    `json:"quantity_exchanged,omitempty"`
	ExchangeDate      *string `json:"exchange_date,omitempty"`
	CompletedDate     *string `json:"completed_date,omitempty"`
}

// IsEmpty reports whether no field is set.
func (p ReportPatch) IsEmpty() bool {
	return p.Status == nil && p.DefectOrigin == nil && p.RootCause == nil &&
		p.Resolution == nil && p.QuantityExchanged == nil &&
		p.ExchangeDate == nil && p.CompletedDate == nil
}

// Apply writes the set fields onto r. Used by the embedded store and by the
// quick-edit path to build the post-patch state the lifecycle engine runs on.
func (p ReportPatch) Apply(r *DefectReport) {
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.DefectOrigin != nil {
		r.DefectOrigin = NormalizeOrigin(*p.DefectOrigin)
	}
	if p.RootCause != nil {
		r.RootCause = *p.RootCause
	}
	if p.Resolution != nil {
		r.Resolution = *p.Resolution
	}
	if p.QuantityExchanged != nil {
		r.QuantityExchanged = *p.QuantityExchanged
	}
	if p.ExchangeDate != nil {
		r.ExchangeDate = *p.ExchangeDate
	}
	if p.CompletedDate != nil {
		r.CompletedDate = *p.CompletedDate
	}
}

// Fields returns the set fields keyed by wire name, for stores that build
// partial update statements.
func (p ReportPatch) Fields() map[string]any {
	fields := make(map[string]any)
	if p.Status != nil {
		fields["status"] = *p.Status
	}
	if p.DefectOrigin != nil {
		fields["defect_origin"] = NormalizeOrigin(*p.DefectOrigin)
	}
	if p.RootCause != nil {
		fields["root_cause"] = *p.RootCause
	}
	if p.Resolution != nil {
		fields["resolution"] = *p.Resolution
	}
	if p.QuantityExchanged != nil {
		fields["quantity_exchanged"] = *p.QuantityExchanged
	}
	if p.ExchangeDate != nil {
		fields["exchange_date"] = *p.ExchangeDate
	}
	if p.CompletedDate != nil {
		fields["completed_date"] = *p.CompletedDate
	}
	return fields
}

// ReportYear extracts the calendar year ("2023") from ReportedDate, or ""
// when the date is missing or unparsable.
func (r *DefectReport) ReportYear() string {
	t, err := time.Parse(DateLayout, r.ReportedDate)
	if err != nil {
		return ""
	}
	return t.Format("2006")
}
