package entity

// TripStatus is the lifecycle status of a trip
type TripStatus string

const (
	TripStatusDraft     TripStatus = "draft"
	TripStatusActive    TripStatus = "active"
	TripStatusCompleted TripStatus = "completed"
	TripStatusInvoiced  TripStatus = "invoiced"
	TripStatusPaid      TripStatus = "paid"
	TripStatusCancelled TripStatus = "cancelled"
)

// statusRank orders the forward lifecycle. Cancelled sits outside it.
var statusRank = map[TripStatus]int{
	TripStatusDraft:     1,
	TripStatusActive:    2,
	TripStatusCompleted: 3,
	TripStatusInvoiced:  4,
	TripStatusPaid:      5,
}

// IsValid returns true if the status is a known trip status
func (s TripStatus) IsValid() bool {
	return s == TripStatusCancelled || statusRank[s] > 0
}

// String returns the string representation of the status
func (s TripStatus) String() string {
	return string(s)
}

// IsCompletedOrLater reports whether the trip has passed completion
func (s TripStatus) IsCompletedOrLater() bool {
	return statusRank[s] >= statusRank[TripStatusCompleted]
}

// CostsMutable reports whether cost entries may still be changed directly
func (s TripStatus) CostsMutable() bool {
	return s == TripStatusDraft || s == TripStatusActive
}

// CanTransitionTo reports whether moving to next keeps the lifecycle monotonic.
// Cancellation is only reachable from draft or active.
func (s TripStatus) CanTransitionTo(next TripStatus) bool {
	if next == TripStatusCancelled {
		return s == TripStatusDraft || s == TripStatusActive
	}
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	return ok && to > from
}

// ClientType distinguishes internal and external clients
type ClientType string

const (
	ClientTypeInternal ClientType = "internal"
	ClientTypeExternal ClientType = "external"
)

// Currency codes supported for revenue, costs and rate tables
const (
	CurrencyUSD = "USD"
	CurrencyZAR = "ZAR"
)

// Investigation status values for flagged cost entries
const (
	InvestigationPending  = "pending"
	InvestigationResolved = "resolved"
)

// Invoice payment status values
const (
	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"
)

// Edit record change types
const (
	ChangeTypeUpdate = "update"
	ChangeTypeDelete = "delete"
)

// Actor roles
const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleOperator = "operator"
)

// CategorySystemCosts is reserved for generator output
const CategorySystemCosts = "System Costs"

// SystemCostType identifies a generated cost line
type SystemCostType string

const (
	SystemCostRepair SystemCostType = "repair"
	SystemCostTyre   SystemCostType = "tyre"
	SystemCostGIT    SystemCostType = "git"
	SystemCostFuel   SystemCostType = "fuel"
	SystemCostDriver SystemCostType = "driver"
)

// ReasonOther is the open-ended reason that requires a comment
const ReasonOther = "Other (specify in comments)"

// TripEditReasons lists the standard justifications for editing a completed trip
var TripEditReasons = []string{
	"Correction of data entry error",
	"Client requested change",
	"Route modification due to operational requirements",
	"Revenue adjustment per contract amendment",
	"Distance correction based on actual route",
	"Driver change due to operational needs",
	"Date adjustment for accurate reporting",
	"Client type classification update",
	ReasonOther,
}

// TripDeletionReasons lists the standard justifications for deleting a trip
var TripDeletionReasons = []string{
	"Duplicate entry",
	"Trip cancelled before execution",
	"Data entry error - trip never occurred",
	"Merged with another trip record",
	"Client contract cancellation",
	"Regulatory compliance requirement",
	ReasonOther,
}

// Follow-up types recorded against an invoice
const (
	FollowUpReminder   = "reminder"
	FollowUpEscalation = "escalation"
)
