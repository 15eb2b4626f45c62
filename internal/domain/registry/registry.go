// Package registry holds the read-only configuration consulted by the trip engines:
// workflow steps, system cost rates, flag thresholds and approval limits.
package registry

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// StepID identifies a workflow step
type StepID string

const (
	StepCreateTrip          StepID = "create-trip"
	StepAddCosts            StepID = "add-costs"
	StepGenerateSystemCosts StepID = "generate-system-costs"
	StepResolveFlags        StepID = "resolve-flags"
	StepCompleteTrip        StepID = "complete-trip"
	StepSubmitInvoice       StepID = "submit-invoice"
	StepTrackPayment        StepID = "track-payment"
	StepReporting           StepID = "reporting"
)

// String returns the string representation of the step id
func (s StepID) String() string {
	return string(s)
}

// Custom predicate ids understood by the workflow engine
const (
	CustomCostsConsistent      = "costs_consistent"
	CustomSystemCostsGenerated = "system_costs_generated"
)

// WorkflowStep is one stage in the trip lifecycle
type WorkflowStep struct {
	ID         StepID      `json:"id"`
	Name       string      `json:"name"`
	Order      int         `json:"order"`
	Required   bool        `json:"required"`
	Validation []Predicate `json:"validation,omitempty"`
	Next       *Predicate  `json:"next,omitempty"`
}

// Registry is the full configuration set. Treat it as immutable once built.
type Registry struct {
	steps              []WorkflowStep
	rates              map[string]RateTable
	thresholds         Thresholds
	approvalLimits     map[string]decimal.Decimal
	highRiskCategories map[string]bool
	costCategories     map[string][]string
}

// Option customises a Registry at construction
type Option func(*Registry)

// WithSteps replaces the workflow steps
func WithSteps(steps []WorkflowStep) Option {
	return func(r *Registry) {
		r.steps = append([]WorkflowStep(nil), steps...)
	}
}

// WithRates sets or replaces the rate table for each given currency
func WithRates(tables ...RateTable) Option {
	return func(r *Registry) {
		for _, t := range tables {
			r.rates[t.Currency] = t
		}
	}
}

// WithThresholds replaces the flag thresholds
func WithThresholds(t Thresholds) Option {
	return func(r *Registry) {
		r.thresholds = t
	}
}

// WithApprovalLimits replaces the per-role approval limits
func WithApprovalLimits(limits map[string]decimal.Decimal) Option {
	return func(r *Registry) {
		r.approvalLimits = make(map[string]decimal.Decimal, len(limits))
		for role, limit := range limits {
			r.approvalLimits[role] = limit
		}
	}
}

// WithHighRiskCategories replaces the high-risk category set
func WithHighRiskCategories(categories ...string) Option {
	return func(r *Registry) {
		r.highRiskCategories = make(map[string]bool, len(categories))
		for _, c := range categories {
			r.highRiskCategories[c] = true
		}
	}
}

// New builds a registry from the defaults and the given options, then validates it
func New(opts ...Option) (*Registry, error) {
	r := &Registry{
		steps:          DefaultSteps(),
		rates:          defaultRates(),
		thresholds:     defaultThresholds(),
		approvalLimits: defaultApprovalLimits(),
		costCategories: defaultCostCategories(),
	}
	WithHighRiskCategories("Border Costs", "Non-Value-Added Costs")(r)

	for _, opt := range opts {
		opt(r)
	}

	sort.SliceStable(r.steps, func(i, j int) bool {
		return r.steps[i].Order < r.steps[j].Order
	})

	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Default returns the built-in registry
func Default() *Registry {
	r, err := New()
	if err != nil {
		panic(fmt.Sprintf("default registry: %v", err))
	}
	return r
}

func (r *Registry) validate() error {
	if len(r.steps) == 0 {
		return fmt.Errorf("registry: no workflow steps")
	}
	seen := make(map[StepID]bool, len(r.steps))
	for i, step := range r.steps {
		if step.ID == "" {
			return fmt.Errorf("registry: step %d has no id", i)
		}
		if seen[step.ID] {
			return fmt.Errorf("registry: duplicate step %s", step.ID)
		}
		seen[step.ID] = true
		if i > 0 && r.steps[i-1].Order == step.Order {
			return fmt.Errorf("registry: steps %s and %s share order %d", r.steps[i-1].ID, step.ID, step.Order)
		}
		for _, p := range step.Validation {
			if !p.IsValid() {
				return fmt.Errorf("registry: step %s has invalid predicate %q", step.ID, p.Kind)
			}
		}
		if step.Next != nil && !step.Next.IsValid() {
			return fmt.Errorf("registry: step %s has invalid next predicate %q", step.ID, step.Next.Kind)
		}
	}
	for currency, t := range r.rates {
		if t.Currency != currency {
			return fmt.Errorf("registry: rate table keyed %s declares currency %s", currency, t.Currency)
		}
	}
	return nil
}

// Steps returns the ordered workflow steps
func (r *Registry) Steps() []WorkflowStep {
	return append([]WorkflowStep(nil), r.steps...)
}

// StepCount returns the number of workflow steps
func (r *Registry) StepCount() int {
	return len(r.steps)
}

// StepAt returns the step at index i of the ordered list
func (r *Registry) StepAt(i int) (WorkflowStep, bool) {
	if i < 0 || i >= len(r.steps) {
		return WorkflowStep{}, false
	}
	return r.steps[i], true
}

// Step looks a step up by id
func (r *Registry) Step(id StepID) (WorkflowStep, bool) {
	i := r.StepIndex(id)
	if i < 0 {
		return WorkflowStep{}, false
	}
	return r.steps[i], true
}

// StepIndex returns the position of id in the ordered list, or -1
func (r *Registry) StepIndex(id StepID) int {
	for i, step := range r.steps {
		if step.ID == id {
			return i
		}
	}
	return -1
}

// Rates returns the rate table for currency
func (r *Registry) Rates(currency string) (RateTable, bool) {
	t, ok := r.rates[currency]
	return t, ok
}

// Currencies returns every currency with a rate table, sorted
func (r *Registry) Currencies() []string {
	out := make([]string, 0, len(r.rates))
	for c := range r.rates {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Thresholds returns the configured variance thresholds
func (r *Registry) Thresholds() Thresholds {
	return r.thresholds
}

// ApprovalLimit returns the approval limit configured for role
func (r *Registry) ApprovalLimit(role string) (decimal.Decimal, bool) {
	limit, ok := r.approvalLimits[role]
	return limit, ok
}

// IsHighRisk reports whether category always requires investigation
func (r *Registry) IsHighRisk(category string) bool {
	return r.highRiskCategories[category]
}

// HighRiskCategories returns the high-risk categories, sorted
func (r *Registry) HighRiskCategories() []string {
	out := make([]string, 0, len(r.highRiskCategories))
	for c := range r.highRiskCategories {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// SubCategories returns the known sub-categories of category
func (r *Registry) SubCategories(category string) ([]string, bool) {
	subs, ok := r.costCategories[category]
	return subs, ok
}
