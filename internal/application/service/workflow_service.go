package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/trip-finance/internal/application/port"
	"github.com/garyjia/trip-finance/internal/domain/apperr"
	"github.com/garyjia/trip-finance/internal/domain/entity"
	"github.com/garyjia/trip-finance/internal/domain/registry"
	"github.com/garyjia/trip-finance/internal/domain/workflow"
)

// WorkflowState describes where a trip is in its workflow
type WorkflowState struct {
	TripID  string                  `json:"trip_id"`
	Status  entity.TripStatus       `json:"status"`
	Current registry.WorkflowStep   `json:"current"`
	Index   int                     `json:"index"`
	Steps   []registry.WorkflowStep `json:"steps"`
	Report  workflow.Report         `json:"report"`
}

// WorkflowService moves trips through the configured workflow steps
type WorkflowService interface {
	State(ctx context.Context, tripID string) (*WorkflowState, error)
	Advance(ctx context.Context, actor entity.Actor, tripID string) (*WorkflowState, error)
	Retreat(ctx context.Context, actor entity.Actor, tripID string) (*WorkflowState, error)
}

type workflowServiceImpl struct {
	loader    tripLoader
	trips     port.TripRepository
	txManager port.TransactionManager
	registry  *registry.Registry
	engine    *workflow.Engine
	locks     *TripLocks
	metrics   port.Metrics
	logger    Logger
	now       Clock
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(
	trips port.TripRepository,
	costs port.CostRepository,
	invoices port.InvoiceRepository,
	txManager port.TransactionManager,
	reg *registry.Registry,
	engine *workflow.Engine,
	locks *TripLocks,
	metrics port.Metrics,
	logger Logger,
) WorkflowService {
	return &workflowServiceImpl{
		loader:    tripLoader{trips: trips, costs: costs, invoices: invoices},
		trips:     trips,
		txManager: txManager,
		registry:  reg,
		engine:    engine,
		locks:     locks,
		metrics:   metricsOrNoop(metrics),
		logger:    logger,
		now:       time.Now,
	}
}

// State reports the current step and whether it may be left
func (s *workflowServiceImpl) State(ctx context.Context, tripID string) (*WorkflowState, error) {
	trip, inv, err := s.loader.load(ctx, tripID)
	if err != nil {
		return nil, err
	}
	wc, err := s.engine.Resume(registry.StepID(trip.WorkflowStep), workflow.Data{Trip: trip, Invoice: inv})
	if err != nil {
		return nil, err
	}
	return s.stateOf(ctx, trip, wc), nil
}

// Advance leaves the current step when its conditions hold and applies the
// status change tied to that step
func (s *workflowServiceImpl) Advance(ctx context.Context, actor entity.Actor, tripID string) (*WorkflowState, error) {
	unlock := s.locks.Lock(tripID)
	defer unlock()

	var (
		state    *WorkflowState
		from, to registry.StepID
	)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		trip, inv, err := s.loader.load(txCtx, tripID)
		if err != nil {
			return err
		}
		if trip.Status == entity.TripStatusCancelled {
			return apperr.Conflict("trip %s is cancelled", tripID)
		}

		wc, err := s.engine.Resume(registry.StepID(trip.WorkflowStep), workflow.Data{Trip: trip, Invoice: inv})
		if err != nil {
			return err
		}
		next, err := s.engine.Advance(txCtx, wc)
		if err != nil {
			return err
		}

		from, to = s.engine.CurrentStep(wc).ID, s.engine.CurrentStep(next).ID
		now := s.now()
		s.applyStatus(trip, inv, from, actor, now)
		trip.WorkflowStep = string(to)
		trip.UpdatedAt = now
		if err := s.trips.Update(txCtx, trip); err != nil {
			return fmt.Errorf("update trip: %w", err)
		}
		state = s.stateOf(txCtx, trip, next)
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to advance workflow", "error", err, "trip_id", tripID)
		return nil, err
	}

	s.metrics.WorkflowTransition(string(from), string(to))
	s.logger.Info("Workflow advanced", "trip_id", tripID, "from", from, "to", to, "status", state.Status, "by", actor.DisplayName())
	return state, nil
}

// Retreat returns to the previous step. Trips that are completed cannot go back
// before the completion step.
func (s *workflowServiceImpl) Retreat(ctx context.Context, actor entity.Actor, tripID string) (*WorkflowState, error) {
	unlock := s.locks.Lock(tripID)
	defer unlock()

	var (
		state    *WorkflowState
		from, to registry.StepID
	)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		trip, inv, err := s.loader.load(txCtx, tripID)
		if err != nil {
			return err
		}
		if trip.Status == entity.TripStatusCancelled {
			return apperr.Conflict("trip %s is cancelled", tripID)
		}

		wc, err := s.engine.Resume(registry.StepID(trip.WorkflowStep), workflow.Data{Trip: trip, Invoice: inv})
		if err != nil {
			return err
		}
		prev := s.engine.Retreat(wc)
		from, to = s.engine.CurrentStep(wc).ID, s.engine.CurrentStep(prev).ID
		if from == to {
			return apperr.Conflict("trip %s is at the first step", tripID)
		}
		if trip.Status.IsCompletedOrLater() {
			if limit := s.registry.StepIndex(registry.StepCompleteTrip); limit >= 0 && prev.StepIndex < limit {
				return apperr.Conflict("trip %s is %s; cannot return to %s", tripID, trip.Status, to)
			}
		}

		trip.WorkflowStep = string(to)
		trip.UpdatedAt = s.now()
		if err := s.trips.Update(txCtx, trip); err != nil {
			return fmt.Errorf("update trip: %w", err)
		}
		state = s.stateOf(txCtx, trip, prev)
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to retreat workflow", "error", err, "trip_id", tripID)
		return nil, err
	}

	s.metrics.WorkflowTransition(string(from), string(to))
	s.logger.Info("Workflow retreated", "trip_id", tripID, "from", from, "to", to, "by", actor.DisplayName())
	return state, nil
}

// applyStatus moves the trip status forward when leaving a milestone step
func (s *workflowServiceImpl) applyStatus(trip *entity.Trip, inv *entity.Invoice, leaving registry.StepID, actor entity.Actor, now time.Time) {
	var next entity.TripStatus
	switch leaving {
	case registry.StepCreateTrip:
		next = entity.TripStatusActive
	case registry.StepCompleteTrip:
		next = entity.TripStatusCompleted
	case registry.StepSubmitInvoice:
		next = entity.TripStatusInvoiced
	case registry.StepTrackPayment:
		if inv != nil && inv.IsPaid() {
			next = entity.TripStatusPaid
		}
	}
	if next == "" || !trip.Status.CanTransitionTo(next) {
		return
	}
	trip.Status = next
	if next == entity.TripStatusCompleted {
		trip.CompletedAt = &now
		trip.CompletedBy = actor.DisplayName()
	}
}

func (s *workflowServiceImpl) stateOf(ctx context.Context, trip *entity.Trip, wc workflow.Context) *WorkflowState {
	return &WorkflowState{
		TripID:  trip.ID,
		Status:  trip.Status,
		Current: s.engine.CurrentStep(wc),
		Index:   wc.StepIndex,
		Steps:   s.registry.Steps(),
		Report:  s.engine.CanProceed(ctx, wc),
	}
}
