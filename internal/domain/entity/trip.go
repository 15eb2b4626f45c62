package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trip is a single logistics trip and the financial data attached to it
type Trip struct {
	ID                   string            `json:"id"`
	FleetNumber          string            `json:"fleet_number"`
	DriverName           string            `json:"driver_name"`
	ClientName           string            `json:"client_name"`
	ClientType           ClientType        `json:"client_type"`
	Route                string            `json:"route"`
	Description          string            `json:"description,omitempty"`
	StartDate            *time.Time        `json:"start_date,omitempty"`
	EndDate              *time.Time        `json:"end_date,omitempty"`
	DistanceKm           decimal.Decimal   `json:"distance_km"`
	PlannedDurationHours decimal.Decimal   `json:"planned_duration_hours"`
	BaseRevenue          decimal.Decimal   `json:"base_revenue"`
	RevenueCurrency      string            `json:"revenue_currency"`
	Status               TripStatus        `json:"status"`
	WorkflowStep         string            `json:"workflow_step"`
	ProofOfDelivery      []string          `json:"proof_of_delivery,omitempty"`
	Costs                []*CostEntry      `json:"costs,omitempty"`
	EditHistory          []*TripEditRecord `json:"edit_history,omitempty"`
	CreatedBy            string            `json:"created_by"`
	CompletedBy          string            `json:"completed_by,omitempty"`
	CompletedAt          *time.Time        `json:"completed_at,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// HasProofOfDelivery reports whether at least one non-empty proof reference exists
func (t *Trip) HasProofOfDelivery() bool {
	for _, ref := range t.ProofOfDelivery {
		if ref != "" {
			return true
		}
	}
	return false
}

// DurationHours returns the planned duration, falling back to the date span
func (t *Trip) DurationHours() decimal.Decimal {
	if t.PlannedDurationHours.IsPositive() {
		return t.PlannedDurationHours
	}
	if t.StartDate != nil && t.EndDate != nil && t.EndDate.After(*t.StartDate) {
		return decimal.NewFromFloat(t.EndDate.Sub(*t.StartDate).Hours())
	}
	return decimal.Zero
}

// TotalCosts sums every cost entry amount
func (t *Trip) TotalCosts() decimal.Decimal {
	total := decimal.Zero
	for _, c := range t.Costs {
		total = total.Add(c.Amount)
	}
	return total
}

// FlaggedCount returns the number of cost entries that were ever flagged
func (t *Trip) FlaggedCount() int {
	n := 0
	for _, c := range t.Costs {
		if c.IsFlagged {
			n++
		}
	}
	return n
}

// UnresolvedFlags returns the cost entries still blocking completion
func (t *Trip) UnresolvedFlags() []*CostEntry {
	var out []*CostEntry
	for _, c := range t.Costs {
		if c.IsUnresolvedFlag() {
			out = append(out, c)
		}
	}
	return out
}

// ManualCosts returns cost entries entered by operators
func (t *Trip) ManualCosts() []*CostEntry {
	var out []*CostEntry
	for _, c := range t.Costs {
		if !c.IsSystemGenerated {
			out = append(out, c)
		}
	}
	return out
}

// SystemCosts returns generated cost entries
func (t *Trip) SystemCosts() []*CostEntry {
	var out []*CostEntry
	for _, c := range t.Costs {
		if c.IsSystemGenerated {
			out = append(out, c)
		}
	}
	return out
}

// FindCost returns the cost entry with the given id, or nil
func (t *Trip) FindCost(id string) *CostEntry {
	for _, c := range t.Costs {
		if c.ID == id {
			return c
		}
	}
	return nil
}
