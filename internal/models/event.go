package models

import "time"

// Report event types pushed to live subscribers.
const (
	EventReportCreated      = "report.created"
	EventReportUpdated      = "report.updated"
	EventReportDeleted      = "report.deleted"
	EventReportBatchUpdated = "report.batch_updated"
)

// ReportEvent is one change notification on the report collection.
// Deleted and batch events carry ids only.
type ReportEvent struct {
	Type      string        `json:"type"`
	ReportID  string        `json:"report_id,omitempty"`
	ReportIDs []string      `json:"report_ids,omitempty"`
	Report    *DefectReport `json:"report,omitempty"`
	Actor     string        `json:"actor,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}
