package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/trip-finance/internal/domain/entity"
	"github.com/garyjia/trip-finance/internal/domain/flagging"
	"github.com/garyjia/trip-finance/internal/domain/registry"
)

// Data is the accumulated trip data predicates are evaluated against
type Data struct {
	Trip    *entity.Trip
	Invoice *entity.Invoice
}

// CustomPredicate is a named check referenced from the registry by id.
// It returns a description of what is missing, or nil.
type CustomPredicate func(ctx context.Context, data Data) error

type fieldCheck func(data Data) bool

var fieldChecks = map[string]fieldCheck{
	"trip.id":           func(d Data) bool { return d.Trip != nil && d.Trip.ID != "" },
	"trip.fleet_number": func(d Data) bool { return d.Trip != nil && strings.TrimSpace(d.Trip.FleetNumber) != "" },
	"trip.driver_name":  func(d Data) bool { return d.Trip != nil && strings.TrimSpace(d.Trip.DriverName) != "" },
	"trip.client_name":  func(d Data) bool { return d.Trip != nil && strings.TrimSpace(d.Trip.ClientName) != "" },
	"trip.route":        func(d Data) bool { return d.Trip != nil && strings.TrimSpace(d.Trip.Route) != "" },
	"trip.start_date":   func(d Data) bool { return d.Trip != nil && d.Trip.StartDate != nil },
	"trip.end_date":     func(d Data) bool { return d.Trip != nil && d.Trip.EndDate != nil },
	"trip.distance_km":  func(d Data) bool { return d.Trip != nil && d.Trip.DistanceKm.IsPositive() },
	"trip.base_revenue": func(d Data) bool { return d.Trip != nil && d.Trip.BaseRevenue.IsPositive() },
	"trip.proof_of_delivery": func(d Data) bool {
		return d.Trip != nil && d.Trip.HasProofOfDelivery()
	},
	"invoice.invoice_number": func(d Data) bool {
		return d.Invoice != nil && strings.TrimSpace(d.Invoice.InvoiceNumber) != ""
	},
	"invoice.invoice_date":   func(d Data) bool { return d.Invoice != nil && !d.Invoice.InvoiceDate.IsZero() },
	"invoice.payment_date":   func(d Data) bool { return d.Invoice != nil && d.Invoice.PaymentDate != nil },
	"invoice.payment_method": func(d Data) bool { return d.Invoice != nil && d.Invoice.PaymentMethod != "" },
}

// Evaluator dispatches registry predicates to their implementations
type Evaluator struct {
	custom map[string]CustomPredicate
}

// NewEvaluator returns an evaluator with the built-in custom predicates registered
func NewEvaluator() *Evaluator {
	return &Evaluator{
		custom: map[string]CustomPredicate{
			registry.CustomCostsConsistent:      costsConsistent,
			registry.CustomSystemCostsGenerated: systemCostsGenerated,
		},
	}
}

// Register adds or replaces a custom predicate
func (e *Evaluator) Register(id string, fn CustomPredicate) {
	e.custom[id] = fn
}

// Unmet describes one predicate that did not hold
type Unmet struct {
	Condition string `json:"condition"`
	Detail    string `json:"detail,omitempty"`
}

// Evaluate checks p against data and returns nil when it holds
func (e *Evaluator) Evaluate(ctx context.Context, p registry.Predicate, data Data) *Unmet {
	switch p.Kind {
	case registry.PredicateRequiresFields:
		var missing []string
		for _, field := range p.Fields {
			check, ok := fieldChecks[field]
			if !ok || !check(data) {
				missing = append(missing, field)
			}
		}
		if len(missing) > 0 {
			return &Unmet{Condition: p.String(), Detail: "missing " + strings.Join(missing, ", ")}
		}
		return nil

	case registry.PredicateNoUnresolvedFlags:
		if data.Trip == nil {
			return &Unmet{Condition: p.String(), Detail: "no trip"}
		}
		if !flagging.CanCompleteTrip(data.Trip) {
			return &Unmet{
				Condition: p.String(),
				Detail:    fmt.Sprintf("%d flagged cost(s) awaiting resolution", len(data.Trip.UnresolvedFlags())),
			}
		}
		return nil

	case registry.PredicateCustom:
		fn, ok := e.custom[p.CustomID]
		if !ok {
			return &Unmet{Condition: p.String(), Detail: "predicate not registered"}
		}
		if err := fn(ctx, data); err != nil {
			return &Unmet{Condition: p.String(), Detail: err.Error()}
		}
		return nil

	default:
		return &Unmet{Condition: string(p.Kind), Detail: "unknown predicate kind"}
	}
}

func costsConsistent(_ context.Context, data Data) error {
	if data.Trip == nil {
		return fmt.Errorf("no trip")
	}
	for _, c := range data.Trip.Costs {
		switch {
		case c.IsFlagged != (c.FlagReason != ""):
			return fmt.Errorf("cost %s has inconsistent flag state", c.ID)
		case !c.IsSystemGenerated && !c.Amount.IsPositive():
			return fmt.Errorf("cost %s has a non-positive amount", c.ID)
		case !c.IsSystemGenerated && c.Category == entity.CategorySystemCosts:
			return fmt.Errorf("cost %s uses the reserved System Costs category", c.ID)
		}
	}
	return nil
}

var requiredSystemCosts = []entity.SystemCostType{
	entity.SystemCostRepair,
	entity.SystemCostTyre,
	entity.SystemCostGIT,
	entity.SystemCostFuel,
	entity.SystemCostDriver,
}

func systemCostsGenerated(_ context.Context, data Data) error {
	if data.Trip == nil {
		return fmt.Errorf("no trip")
	}
	present := make(map[entity.SystemCostType]bool)
	for _, c := range data.Trip.SystemCosts() {
		present[c.SystemCostType] = true
	}
	var missing []string
	for _, kind := range requiredSystemCosts {
		if !present[kind] {
			missing = append(missing, string(kind))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("system costs not generated: %s", strings.Join(missing, ", "))
	}
	return nil
}
