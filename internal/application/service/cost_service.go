package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/garyjia/trip-finance/internal/application/port"
	"github.com/garyjia/trip-finance/internal/domain/apperr"
	"github.com/garyjia/trip-finance/internal/domain/costgen"
	"github.com/garyjia/trip-finance/internal/domain/entity"
	"github.com/garyjia/trip-finance/internal/domain/flagging"
	"github.com/garyjia/trip-finance/internal/domain/registry"
)

// CostInput carries an operator-entered cost line and the flag they asked for
type CostInput struct {
	Category         string          `json:"category"`
	SubCategory      string          `json:"sub_category"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	ReferenceNumber  string          `json:"reference_number"`
	Date             *time.Time      `json:"date"`
	Notes            string          `json:"notes"`
	Attachments      []string        `json:"attachments"`
	NoDocumentReason string          `json:"no_document_reason"`
	Flag             bool            `json:"flag"`
	FlagReason       string          `json:"flag_reason"`
}

// CostService manages the cost entries of a trip and their investigations
type CostService interface {
	AddCost(ctx context.Context, actor entity.Actor, tripID string, in CostInput) (*entity.CostEntry, error)
	UpdateCost(ctx context.Context, actor entity.Actor, tripID, costID string, in CostInput) (*entity.CostEntry, error)
	DeleteCost(ctx context.Context, actor entity.Actor, tripID, costID string) error
	AttachDocument(ctx context.Context, actor entity.Actor, tripID, costID string, upload Upload) (*entity.CostEntry, error)
	GenerateSystemCosts(ctx context.Context, actor entity.Actor, tripID string) ([]*entity.CostEntry, error)
	ResolveFlag(ctx context.Context, actor entity.Actor, tripID, costID, note string) (*entity.CostEntry, error)
	ListFlagged(ctx context.Context, investigationStatus string, limit, offset int) ([]*entity.CostEntry, error)
	Categories() map[string][]string
}

type costServiceImpl struct {
	trips     port.TripRepository
	costs     port.CostRepository
	documents *DocumentStore
	txManager port.TransactionManager
	registry  *registry.Registry
	flags     *flagging.Engine
	locks     *TripLocks
	metrics   port.Metrics
	logger    Logger
	now       Clock
}

// NewCostService creates a new CostService
func NewCostService(
	trips port.TripRepository,
	costs port.CostRepository,
	documents *DocumentStore,
	txManager port.TransactionManager,
	reg *registry.Registry,
	flags *flagging.Engine,
	locks *TripLocks,
	metrics port.Metrics,
	logger Logger,
) CostService {
	return &costServiceImpl{
		trips:     trips,
		costs:     costs,
		documents: documents,
		txManager: txManager,
		registry:  reg,
		flags:     flags,
		locks:     locks,
		metrics:   metricsOrNoop(metrics),
		logger:    logger,
		now:       time.Now,
	}
}

// AddCost validates the entry, evaluates its flag and stores it
func (s *costServiceImpl) AddCost(ctx context.Context, actor entity.Actor, tripID string, in CostInput) (*entity.CostEntry, error) {
	unlock := s.locks.Lock(tripID)
	defer unlock()

	now := s.now()
	entry := &entity.CostEntry{
		ID:        uuid.NewString(),
		TripID:    tripID,
		CreatedAt: now,
	}
	applyCostInput(entry, in, now)

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.mutableTrip(txCtx, tripID); err != nil {
			return err
		}
		if err := s.flags.Apply(entry, intentFor(in), actor.DisplayName(), now); err != nil {
			return err
		}
		s.warnAboveApprovalLimit(actor, entry)
		return s.costs.Create(txCtx, entry)
	})
	if err != nil {
		s.logger.Error("Failed to add cost", "error", err, "trip_id", tripID)
		return nil, err
	}

	if entry.IsFlagged {
		s.metrics.CostFlagged(entry.Category)
		s.logger.Info("Cost flagged", "trip_id", tripID, "cost_id", entry.ID, "reason", entry.FlagReason)
	}
	s.logger.Info("Cost added", "trip_id", tripID, "cost_id", entry.ID, "amount", entry.Amount.String())
	return entry, nil
}

// UpdateCost re-validates an edited entry and reconciles its flag history
func (s *costServiceImpl) UpdateCost(ctx context.Context, actor entity.Actor, tripID, costID string, in CostInput) (*entity.CostEntry, error) {
	unlock := s.locks.Lock(tripID)
	defer unlock()

	var updated *entity.CostEntry
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.mutableTrip(txCtx, tripID); err != nil {
			return err
		}
		previous, err := s.manualCost(txCtx, tripID, costID)
		if err != nil {
			return err
		}

		now := s.now()
		next := *previous
		applyCostInput(&next, in, now)
		if in.Attachments == nil {
			next.Attachments = previous.Attachments
		}
		if err := s.flags.Reevaluate(previous, &next, intentFor(in), actor.DisplayName(), now); err != nil {
			return err
		}
		updated = &next
		return s.costs.Update(txCtx, updated)
	})
	if err != nil {
		s.logger.Error("Failed to update cost", "error", err, "trip_id", tripID, "cost_id", costID)
		return nil, err
	}

	s.logger.Info("Cost updated", "trip_id", tripID, "cost_id", costID, "flagged", updated.IsFlagged)
	return updated, nil
}

// DeleteCost removes an operator entry. Generated entries only change through regeneration.
func (s *costServiceImpl) DeleteCost(ctx context.Context, actor entity.Actor, tripID, costID string) error {
	unlock := s.locks.Lock(tripID)
	defer unlock()

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.mutableTrip(txCtx, tripID); err != nil {
			return err
		}
		if _, err := s.manualCost(txCtx, tripID, costID); err != nil {
			return err
		}
		return s.costs.Delete(txCtx, costID)
	})
	if err != nil {
		s.logger.Error("Failed to delete cost", "error", err, "trip_id", tripID, "cost_id", costID)
		return err
	}

	s.logger.Info("Cost deleted", "trip_id", tripID, "cost_id", costID, "deleted_by", actor.DisplayName())
	return nil
}

// AttachDocument stores a receipt for an entry. A pending missing-documentation
// flag is resolved by it.
func (s *costServiceImpl) AttachDocument(ctx context.Context, actor entity.Actor, tripID, costID string, upload Upload) (*entity.CostEntry, error) {
	unlock := s.locks.Lock(tripID)
	defer unlock()

	var (
		updated *entity.CostEntry
		stored  *entity.Attachment
	)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.mutableTrip(txCtx, tripID); err != nil {
			return err
		}
		previous, err := s.manualCost(txCtx, tripID, costID)
		if err != nil {
			return err
		}

		now := s.now()
		stored, err = s.documents.store(txCtx, tripID, entity.AttachmentOwnerCost, costID, upload, actor, now)
		if err != nil {
			return err
		}

		next := *previous
		next.Attachments = append(append([]string(nil), previous.Attachments...), stored.ID)
		next.UpdatedAt = now
		if err := s.flags.Reevaluate(previous, &next, flagging.Intent{}, actor.DisplayName(), now); err != nil {
			return err
		}
		updated = &next
		return s.costs.Update(txCtx, updated)
	})
	if err != nil {
		s.documents.discard(ctx, stored)
		s.logger.Error("Failed to attach document", "error", err, "trip_id", tripID, "cost_id", costID)
		return nil, err
	}

	if updated.IsResolved {
		s.metrics.FlagResolved()
	}
	s.logger.Info("Document attached", "trip_id", tripID, "cost_id", costID, "attachments", len(updated.Attachments))
	return updated, nil
}

// GenerateSystemCosts replaces the trip's generated entries with a fresh set
func (s *costServiceImpl) GenerateSystemCosts(ctx context.Context, actor entity.Actor, tripID string) ([]*entity.CostEntry, error) {
	unlock := s.locks.Lock(tripID)
	defer unlock()

	var generated []*entity.CostEntry
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		trip, err := s.mutableTrip(txCtx, tripID)
		if err != nil {
			return err
		}
		rates, ok := s.registry.Rates(trip.RevenueCurrency)
		if !ok {
			return apperr.Invalid("revenue_currency", apperr.KindInvalid,
				fmt.Sprintf("No system cost rates configured for %s", trip.RevenueCurrency))
		}
		generated = costgen.Generate(costgen.InputForTrip(trip, rates, s.now()))
		return s.costs.ReplaceSystemCosts(txCtx, tripID, generated)
	})
	if err != nil {
		s.logger.Error("Failed to generate system costs", "error", err, "trip_id", tripID)
		return nil, err
	}

	s.logger.Info("System costs generated", "trip_id", tripID, "entries", len(generated), "generated_by", actor.DisplayName())
	return generated, nil
}

// ResolveFlag closes the investigation on a flagged entry
func (s *costServiceImpl) ResolveFlag(ctx context.Context, actor entity.Actor, tripID, costID, note string) (*entity.CostEntry, error) {
	unlock := s.locks.Lock(tripID)
	defer unlock()

	var entry *entity.CostEntry
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		trip, err := s.trips.GetByID(txCtx, tripID)
		if err != nil {
			return fmt.Errorf("get trip: %w", err)
		}
		if trip.Status == entity.TripStatusCancelled {
			return apperr.Conflict("trip %s is cancelled", tripID)
		}
		entry, err = s.tripCost(txCtx, tripID, costID)
		if err != nil {
			return err
		}
		if err := flagging.Resolve(entry, note, actor.DisplayName(), s.now()); err != nil {
			return err
		}
		return s.costs.Update(txCtx, entry)
	})
	if err != nil {
		s.logger.Error("Failed to resolve flag", "error", err, "trip_id", tripID, "cost_id", costID)
		return nil, err
	}

	s.metrics.FlagResolved()
	s.logger.Info("Flag resolved", "trip_id", tripID, "cost_id", costID, "resolved_by", entry.ResolvedBy)
	return entry, nil
}

// ListFlagged returns the investigation queue across trips
func (s *costServiceImpl) ListFlagged(ctx context.Context, investigationStatus string, limit, offset int) ([]*entity.CostEntry, error) {
	switch investigationStatus {
	case "", entity.InvestigationPending, entity.InvestigationResolved:
	default:
		return nil, apperr.Invalid("status", apperr.KindInvalid, fmt.Sprintf("unknown investigation status %q", investigationStatus))
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	entries, err := s.costs.ListFlagged(ctx, investigationStatus, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list flagged costs", "error", err)
		return nil, fmt.Errorf("list flagged: %w", err)
	}
	return entries, nil
}

// Categories returns the cost category catalogue
func (s *costServiceImpl) Categories() map[string][]string {
	return s.registry.CostCategories()
}

func (s *costServiceImpl) mutableTrip(ctx context.Context, tripID string) (*entity.Trip, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("get trip: %w", err)
	}
	if !trip.Status.CostsMutable() {
		return nil, apperr.Conflict("costs of trip %s are locked while it is %s", tripID, trip.Status)
	}
	return trip, nil
}

func (s *costServiceImpl) tripCost(ctx context.Context, tripID, costID string) (*entity.CostEntry, error) {
	entry, err := s.costs.GetByID(ctx, costID)
	if err != nil {
		return nil, fmt.Errorf("get cost: %w", err)
	}
	if entry.TripID != tripID {
		return nil, apperr.NotFound("cost entry", costID)
	}
	return entry, nil
}

func (s *costServiceImpl) manualCost(ctx context.Context, tripID, costID string) (*entity.CostEntry, error) {
	entry, err := s.tripCost(ctx, tripID, costID)
	if err != nil {
		return nil, err
	}
	if entry.IsSystemGenerated {
		return nil, apperr.Conflict("cost entry %s is system generated; regenerate system costs instead", costID)
	}
	return entry, nil
}

// warnAboveApprovalLimit logs entries larger than the actor's role may approve
func (s *costServiceImpl) warnAboveApprovalLimit(actor entity.Actor, entry *entity.CostEntry) {
	limit, ok := s.registry.ApprovalLimit(actor.Role)
	if ok && entry.Amount.GreaterThan(limit) {
		s.logger.Warn("Cost exceeds approval limit",
			"trip_id", entry.TripID, "amount", entry.Amount.String(), "limit", limit.String(), "role", actor.Role)
	}
}

func intentFor(in CostInput) flagging.Intent {
	return flagging.Intent{ManualFlag: in.Flag, ManualReason: strings.TrimSpace(in.FlagReason)}
}

func applyCostInput(entry *entity.CostEntry, in CostInput, now time.Time) {
	entry.Category = strings.TrimSpace(in.Category)
	entry.SubCategory = strings.TrimSpace(in.SubCategory)
	entry.Amount = in.Amount
	entry.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	entry.ReferenceNumber = strings.TrimSpace(in.ReferenceNumber)
	entry.Date = in.Date
	entry.Notes = strings.TrimSpace(in.Notes)
	entry.Attachments = in.Attachments
	entry.NoDocumentReason = strings.TrimSpace(in.NoDocumentReason)
	entry.UpdatedAt = now
}
