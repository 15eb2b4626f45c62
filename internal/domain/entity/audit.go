package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TripEditRecord captures one field change on a completed trip
type TripEditRecord struct {
	ID           string    `json:"id"`
	TripID       string    `json:"trip_id"`
	EditedBy     string    `json:"edited_by"`
	EditedAt     time.Time `json:"edited_at"`
	Reason       string    `json:"reason"`
	FieldChanged string    `json:"field_changed"`
	OldValue     string    `json:"old_value"`
	NewValue     string    `json:"new_value"`
	ChangeType   string    `json:"change_type"`
}

// TripDeletionRecord is the forensic record written before a trip is removed
type TripDeletionRecord struct {
	ID                string          `json:"id"`
	TripID            string          `json:"trip_id"`
	FleetNumber       string          `json:"fleet_number"`
	DeletedBy         string          `json:"deleted_by"`
	DeletedAt         time.Time       `json:"deleted_at"`
	Reason            string          `json:"reason"`
	TripData          string          `json:"trip_data"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalCosts        decimal.Decimal `json:"total_costs"`
	CostEntriesCount  int             `json:"cost_entries_count"`
	FlaggedItemsCount int             `json:"flagged_items_count"`
}

// Actor identifies the user performing an operation
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// IsAdmin reports whether the actor holds the administrative role
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// DisplayName returns the name used to stamp records
func (a Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}
