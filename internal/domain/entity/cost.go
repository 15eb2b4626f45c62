package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CostEntry is one cost line on a trip, either operator-entered or generated
type CostEntry struct {
	ID                  string          `json:"id"`
	TripID              string          `json:"trip_id"`
	Category            string          `json:"category"`
	SubCategory         string          `json:"sub_category"`
	Amount              decimal.Decimal `json:"amount"`
	Currency            string          `json:"currency"`
	ReferenceNumber     string          `json:"reference_number"`
	Date                *time.Time      `json:"date"`
	Notes               string          `json:"notes,omitempty"`
	Attachments         []string        `json:"attachments,omitempty"`
	NoDocumentReason    string          `json:"no_document_reason,omitempty"`
	IsFlagged           bool            `json:"is_flagged"`
	FlagReason          string          `json:"flag_reason,omitempty"`
	IsResolved          bool            `json:"is_resolved"`
	InvestigationStatus string          `json:"investigation_status,omitempty"`
	InvestigationNotes  string          `json:"investigation_notes,omitempty"`
	FlaggedAt           *time.Time      `json:"flagged_at,omitempty"`
	FlaggedBy           string          `json:"flagged_by,omitempty"`
	ResolvedAt          *time.Time      `json:"resolved_at,omitempty"`
	ResolvedBy          string          `json:"resolved_by,omitempty"`
	IsSystemGenerated   bool            `json:"is_system_generated"`
	SystemCostType      SystemCostType  `json:"system_cost_type,omitempty"`
	CalculationTrace    string          `json:"calculation_trace,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// HasAttachments reports whether any document is attached
func (c *CostEntry) HasAttachments() bool {
	return len(c.Attachments) > 0
}

// IsUnresolvedFlag reports whether the entry blocks trip completion
func (c *CostEntry) IsUnresolvedFlag() bool {
	return c.IsFlagged && !c.IsResolved
}
