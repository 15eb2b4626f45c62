package workflow

import (
	"context"
	"fmt"

	"github.com/garyjia/trip-finance/internal/domain/registry"
)

// GuardFunc evaluates whether a transition may fire. A non-nil error blocks it.
type GuardFunc func(ctx context.Context, data Data) error

// MachineBuilder builds a configured state machine
type MachineBuilder interface {
	// Configure returns the configuration for the given step
	Configure(step registry.StepID) StepConfiguration

	// Build freezes the configuration into a Machine
	Build() *Machine
}

// StepConfiguration configures transitions out of one step
type StepConfiguration interface {
	// Permit allows a trigger to move to the target step unconditionally
	Permit(trigger Trigger, to registry.StepID) StepConfiguration

	// PermitIf allows a trigger to move to the target step when the guard passes
	PermitIf(trigger Trigger, to registry.StepID, guard GuardFunc) StepConfiguration
}

type transition struct {
	to    registry.StepID
	guard GuardFunc
}

type stepConfig struct {
	transitions map[Trigger][]transition
}

type machineBuilder struct {
	configurations map[registry.StepID]*stepConfig
}

// NewBuilder creates a new machine builder
func NewBuilder() MachineBuilder {
	return &machineBuilder{
		configurations: make(map[registry.StepID]*stepConfig),
	}
}

// Configure returns the configuration for the given step
func (b *machineBuilder) Configure(step registry.StepID) StepConfiguration {
	if step == "" {
		panic("workflow: empty step id")
	}

	config, exists := b.configurations[step]
	if !exists {
		config = &stepConfig{transitions: make(map[Trigger][]transition)}
		b.configurations[step] = config
	}
	return config
}

// Build freezes the configuration into a Machine
func (b *machineBuilder) Build() *Machine {
	configsCopy := make(map[registry.StepID]*stepConfig, len(b.configurations))
	for step, config := range b.configurations {
		transitionsCopy := make(map[Trigger][]transition, len(config.transitions))
		for trigger, ts := range config.transitions {
			transitionsCopy[trigger] = append([]transition{}, ts...)
		}
		configsCopy[step] = &stepConfig{transitions: transitionsCopy}
	}
	return &Machine{configurations: configsCopy}
}

// Permit allows a trigger to move to the target step unconditionally
func (c *stepConfig) Permit(trigger Trigger, to registry.StepID) StepConfiguration {
	return c.PermitIf(trigger, to, nil)
}

// PermitIf allows a trigger to move to the target step when the guard passes
func (c *stepConfig) PermitIf(trigger Trigger, to registry.StepID, guard GuardFunc) StepConfiguration {
	if to == "" {
		panic(fmt.Sprintf("workflow: empty target step for trigger %s", trigger))
	}
	c.transitions[trigger] = append(c.transitions[trigger], transition{to: to, guard: guard})
	return c
}
