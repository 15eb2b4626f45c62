package workflow

import (
	"context"
	"fmt"

	"github.com/garyjia/trip-finance/internal/domain/registry"
)

// Machine holds the transition table. It keeps no per-trip state; every call
// takes the current step and returns the next one.
type Machine struct {
	configurations map[registry.StepID]*stepConfig
}

// CanFire reports whether any transition exists for trigger from step
func (m *Machine) CanFire(from registry.StepID, trigger Trigger) bool {
	config, exists := m.configurations[from]
	if !exists {
		return false
	}
	return len(config.transitions[trigger]) > 0
}

// Fire returns the step reached by trigger from the given step. Transitions are
// tried in order; the first whose guard passes wins. When every guard fails the
// last guard error is returned and the caller keeps its current step.
func (m *Machine) Fire(ctx context.Context, from registry.StepID, trigger Trigger, data Data) (registry.StepID, error) {
	config, exists := m.configurations[from]
	if !exists {
		return from, fmt.Errorf("%w: %s from %s (no configuration)", ErrInvalidTransition, trigger, from)
	}

	transitions := config.transitions[trigger]
	if len(transitions) == 0 {
		return from, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, trigger, from)
	}

	var lastErr error
	for _, t := range transitions {
		if t.guard == nil {
			return t.to, nil
		}
		if err := t.guard(ctx, data); err != nil {
			lastErr = err
			continue
		}
		return t.to, nil
	}
	return from, lastErr
}

// PermittedTriggers returns every trigger configured for step
func (m *Machine) PermittedTriggers(step registry.StepID) []Trigger {
	config, exists := m.configurations[step]
	if !exists {
		return []Trigger{}
	}
	triggers := make([]Trigger, 0, len(config.transitions))
	for trigger := range config.transitions {
		triggers = append(triggers, trigger)
	}
	return triggers
}
