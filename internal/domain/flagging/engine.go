// Package flagging decides whether cost entries need investigation and tracks
// how those investigations are resolved.
package flagging

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/garyjia/trip-finance/internal/domain/apperr"
	"github.com/garyjia/trip-finance/internal/domain/entity"
	"github.com/garyjia/trip-finance/internal/domain/registry"
	"github.com/garyjia/trip-finance/pkg/utils"
)

const missingDocumentationPrefix = "Missing documentation:"

// Intent carries what the operator asked for alongside the entry
type Intent struct {
	ManualFlag   bool
	ManualReason string
	Editing      bool
}

// Result is the outcome of evaluating one entry
type Result struct {
	IsFlagged           bool
	FlagReason          string
	InvestigationStatus string
}

// Rule is an additional flag rule consulted after the built-in ones.
// It returns a reason when the entry should be flagged.
type Rule interface {
	Name() string
	Check(entry *entity.CostEntry, thresholds registry.Thresholds) (string, bool)
}

// Engine evaluates flag rules against the configured registry
type Engine struct {
	registry *registry.Registry
	rules    []Rule
	validate *validator.Validate
}

// Option customises an Engine
type Option func(*Engine)

// WithRules appends extension rules
func WithRules(rules ...Rule) Option {
	return func(e *Engine) {
		e.rules = append(e.rules, rules...)
	}
}

// WithValidator replaces the struct validator
func WithValidator(v *validator.Validate) Option {
	return func(e *Engine) {
		e.validate = v
	}
}

// NewEngine creates a flag engine
func NewEngine(reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{registry: reg}
	for _, opt := range opts {
		opt(e)
	}
	if e.validate == nil {
		e.validate = utils.NewValidator()
	}
	return e
}

// Evaluate applies the rules in precedence order: high-risk category, manual
// flag, missing documentation, extension rules.
func (e *Engine) Evaluate(entry *entity.CostEntry, intent Intent) Result {
	if e.registry.IsHighRisk(entry.Category) {
		return flagged(fmt.Sprintf("High-risk category: %s - %s requires review", entry.Category, entry.SubCategory))
	}

	if reason := strings.TrimSpace(intent.ManualReason); intent.ManualFlag && reason != "" {
		return flagged(reason)
	}

	if !entry.IsSystemGenerated && !entry.HasAttachments() {
		return flagged(fmt.Sprintf("%s %s", missingDocumentationPrefix, strings.TrimSpace(entry.NoDocumentReason)))
	}

	for _, rule := range e.rules {
		if reason, hit := rule.Check(entry, e.registry.Thresholds()); hit && reason != "" {
			return flagged(reason)
		}
	}

	return Result{}
}

func flagged(reason string) Result {
	return Result{IsFlagged: true, FlagReason: reason, InvestigationStatus: entity.InvestigationPending}
}

// Apply validates a new entry and stamps the evaluation onto it
func (e *Engine) Apply(entry *entity.CostEntry, intent Intent, actor string, now time.Time) error {
	intent.Editing = false
	if err := e.Validate(entry, intent); err != nil {
		return err
	}
	stamp(entry, e.Evaluate(entry, intent), actor, now)
	return nil
}

// Reevaluate validates an edited entry and reconciles its flag with the previous version.
// Supplying a document for a pending missing-documentation flag resolves it; a new
// flag reason reopens the investigation; otherwise the flag history is carried over.
func (e *Engine) Reevaluate(previous, updated *entity.CostEntry, intent Intent, actor string, now time.Time) error {
	intent.Editing = true
	if err := e.Validate(updated, intent); err != nil {
		return err
	}

	res := e.Evaluate(updated, intent)
	switch {
	case !previous.IsFlagged:
		stamp(updated, res, actor, now)
	case IsMissingDocumentation(previous.FlagReason) && !previous.IsResolved && updated.HasAttachments():
		carry(updated, previous)
		if err := Resolve(updated, "Documentation supplied", actor, now); err != nil {
			return err
		}
	case res.IsFlagged && !IsMissingDocumentation(res.FlagReason) && res.FlagReason != previous.FlagReason:
		stamp(updated, res, actor, now)
	default:
		carry(updated, previous)
	}
	return nil
}

// Resolve records an investigation outcome. The flag itself stays set.
func Resolve(entry *entity.CostEntry, note, actor string, now time.Time) error {
	note = strings.TrimSpace(note)
	if note == "" {
		return apperr.Invalid("resolution_note", apperr.KindRequired, "Resolution comment is required for audit purposes")
	}
	if !entry.IsFlagged {
		return apperr.Conflict("cost entry %s is not flagged", entry.ID)
	}
	if entry.IsResolved {
		return apperr.Conflict("cost entry %s is already resolved", entry.ID)
	}

	entry.IsResolved = true
	entry.InvestigationStatus = entity.InvestigationResolved
	if entry.InvestigationNotes != "" {
		entry.InvestigationNotes += "\n\n"
	}
	entry.InvestigationNotes += "Resolution: " + note
	entry.ResolvedAt = &now
	entry.ResolvedBy = actor
	entry.UpdatedAt = now
	return nil
}

// CanCompleteTrip reports whether no cost entry is flagged and unresolved
func CanCompleteTrip(trip *entity.Trip) bool {
	for _, c := range trip.Costs {
		if c.IsUnresolvedFlag() {
			return false
		}
	}
	return true
}

// IsMissingDocumentation reports whether reason came from the documentation rule
func IsMissingDocumentation(reason string) bool {
	return strings.HasPrefix(reason, missingDocumentationPrefix)
}

func stamp(entry *entity.CostEntry, res Result, actor string, now time.Time) {
	entry.IsFlagged = res.IsFlagged
	entry.FlagReason = res.FlagReason
	entry.InvestigationStatus = res.InvestigationStatus
	entry.IsResolved = false
	entry.ResolvedAt = nil
	entry.ResolvedBy = ""
	if res.IsFlagged {
		entry.FlaggedAt = &now
		entry.FlaggedBy = actor
	} else {
		entry.FlaggedAt = nil
		entry.FlaggedBy = ""
	}
}

func carry(dst, src *entity.CostEntry) {
	dst.IsFlagged = src.IsFlagged
	dst.FlagReason = src.FlagReason
	dst.IsResolved = src.IsResolved
	dst.InvestigationStatus = src.InvestigationStatus
	dst.InvestigationNotes = src.InvestigationNotes
	dst.FlaggedAt = src.FlaggedAt
	dst.FlaggedBy = src.FlaggedBy
	dst.ResolvedAt = src.ResolvedAt
	dst.ResolvedBy = src.ResolvedBy
}
