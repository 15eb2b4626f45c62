// Package workflow sequences a trip through the configured workflow steps.
// Every transition is a pure function of an explicit Context.
package workflow

import (
	"context"
	"fmt"

	"github.com/garyjia/trip-finance/internal/domain/apperr"
	"github.com/garyjia/trip-finance/internal/domain/registry"
)

// Context is the per-trip workflow position plus the data it is judged on
type Context struct {
	StepIndex int
	Data      Data
}

// Report is the outcome of checking whether a step may be left
type Report struct {
	Step       registry.StepID `json:"step"`
	Required   bool            `json:"required"`
	CanProceed bool            `json:"can_proceed"`
	Terminal   bool            `json:"terminal"`
	Unmet      []Unmet         `json:"unmet,omitempty"`
}

// Engine wires the registry steps into a state machine
type Engine struct {
	registry  *registry.Registry
	evaluator *Evaluator
	machine   *Machine
}

// NewEngine builds the machine from the registry step order.
// Each step may advance to the next one and retreat to the previous one.
func NewEngine(reg *registry.Registry, evaluator *Evaluator) *Engine {
	if evaluator == nil {
		evaluator = NewEvaluator()
	}
	e := &Engine{registry: reg, evaluator: evaluator}

	builder := NewBuilder()
	steps := reg.Steps()
	for i, step := range steps {
		config := builder.Configure(step.ID)
		if i+1 < len(steps) {
			config.PermitIf(TriggerAdvance, steps[i+1].ID, e.guardFor(step))
		}
		if i > 0 {
			config.Permit(TriggerRetreat, steps[i-1].ID)
		}
	}
	e.machine = builder.Build()
	return e
}

// Start returns the context for a freshly created trip
func (e *Engine) Start(data Data) Context {
	return Context{StepIndex: 0, Data: data}
}

// Resume rebuilds a context from a persisted step id
func (e *Engine) Resume(step registry.StepID, data Data) (Context, error) {
	if step == "" {
		return e.Start(data), nil
	}
	i := e.registry.StepIndex(step)
	if i < 0 {
		return Context{}, fmt.Errorf("%w: %s", ErrUnknownStep, step)
	}
	return Context{StepIndex: i, Data: data}, nil
}

// CurrentStep returns the step the context is at
func (e *Engine) CurrentStep(wc Context) registry.WorkflowStep {
	step, _ := e.registry.StepAt(wc.StepIndex)
	return step
}

// IsTerminal reports whether the context is at the last step
func (e *Engine) IsTerminal(wc Context) bool {
	return wc.StepIndex >= e.registry.StepCount()-1
}

// IsAtOrPast reports whether the context has reached step
func (e *Engine) IsAtOrPast(wc Context, step registry.StepID) bool {
	i := e.registry.StepIndex(step)
	return i >= 0 && wc.StepIndex >= i
}

// CanProceed evaluates the current step against the context data
func (e *Engine) CanProceed(ctx context.Context, wc Context) Report {
	step := e.CurrentStep(wc)
	unmet := e.check(ctx, step, wc.Data)
	return Report{
		Step:       step.ID,
		Required:   step.Required,
		CanProceed: !e.IsTerminal(wc) && (!step.Required || len(unmet) == 0),
		Terminal:   e.IsTerminal(wc),
		Unmet:      unmet,
	}
}

// CanProceedFrom evaluates an arbitrary step against data
func (e *Engine) CanProceedFrom(ctx context.Context, stepID registry.StepID, data Data) (Report, error) {
	wc, err := e.Resume(stepID, data)
	if err != nil {
		return Report{}, err
	}
	return e.CanProceed(ctx, wc), nil
}

// Advance moves to the next step. On failure the returned context equals wc
// and the error is a GatingError naming the first unmet condition.
func (e *Engine) Advance(ctx context.Context, wc Context) (Context, error) {
	step := e.CurrentStep(wc)
	if e.IsTerminal(wc) {
		return wc, fmt.Errorf("%w: %s is the final step", ErrInvalidTransition, step.ID)
	}

	next, err := e.machine.Fire(ctx, step.ID, TriggerAdvance, wc.Data)
	if err != nil {
		return wc, err
	}
	return Context{StepIndex: e.registry.StepIndex(next), Data: wc.Data}, nil
}

// Retreat moves to the previous step without validation. It stops at the first step.
func (e *Engine) Retreat(wc Context) Context {
	step := e.CurrentStep(wc)
	prev, err := e.machine.Fire(context.Background(), step.ID, TriggerRetreat, wc.Data)
	if err != nil {
		return wc
	}
	return Context{StepIndex: e.registry.StepIndex(prev), Data: wc.Data}
}

func (e *Engine) guardFor(step registry.WorkflowStep) GuardFunc {
	return func(ctx context.Context, data Data) error {
		if !step.Required {
			return nil
		}
		unmet := e.check(ctx, step, data)
		if len(unmet) == 0 {
			return nil
		}
		return &apperr.GatingError{Step: string(step.ID), Condition: unmet[0].Condition, Detail: unmet[0].Detail}
	}
}

func (e *Engine) check(ctx context.Context, step registry.WorkflowStep, data Data) []Unmet {
	var unmet []Unmet
	for _, p := range step.Validation {
		if u := e.evaluator.Evaluate(ctx, p, data); u != nil {
			unmet = append(unmet, *u)
		}
	}
	if step.Next != nil {
		if u := e.evaluator.Evaluate(ctx, *step.Next, data); u != nil {
			unmet = append(unmet, *u)
		}
	}
	return unmet
}
