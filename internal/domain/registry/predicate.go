package registry

import (
	"fmt"
	"strings"
)

// PredicateKind tags the rule a Predicate evaluates
type PredicateKind string

const (
	PredicateRequiresFields    PredicateKind = "requires_fields"
	PredicateNoUnresolvedFlags PredicateKind = "no_unresolved_flags"
	PredicateCustom            PredicateKind = "custom"
)

// Predicate is a data-only gating rule. The workflow package dispatches on Kind.
type Predicate struct {
	Kind     PredicateKind `json:"kind" mapstructure:"kind"`
	Fields   []string      `json:"fields,omitempty" mapstructure:"fields"`
	CustomID string        `json:"custom_id,omitempty" mapstructure:"custom_id"`
}

// RequiresFields holds when every named field path is non-empty
func RequiresFields(fields ...string) Predicate {
	return Predicate{Kind: PredicateRequiresFields, Fields: fields}
}

// NoUnresolvedFlags holds when no cost entry is flagged and unresolved
func NoUnresolvedFlags() Predicate {
	return Predicate{Kind: PredicateNoUnresolvedFlags}
}

// Custom refers to a named predicate registered with the workflow engine
func Custom(id string) Predicate {
	return Predicate{Kind: PredicateCustom, CustomID: id}
}

// IsValid reports whether the predicate is well formed
func (p Predicate) IsValid() bool {
	switch p.Kind {
	case PredicateRequiresFields:
		return len(p.Fields) > 0
	case PredicateNoUnresolvedFlags:
		return true
	case PredicateCustom:
		return p.CustomID != ""
	default:
		return false
	}
}

// String renders the predicate as the condition shown to operators
func (p Predicate) String() string {
	switch p.Kind {
	case PredicateRequiresFields:
		return fmt.Sprintf("requires %s", strings.Join(p.Fields, ", "))
	case PredicateNoUnresolvedFlags:
		return "no unresolved flagged costs"
	case PredicateCustom:
		return p.CustomID
	default:
		return string(p.Kind)
	}
}
