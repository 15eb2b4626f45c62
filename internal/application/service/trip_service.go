package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/garyjia/trip-finance/internal/application/port"
	"github.com/garyjia/trip-finance/internal/domain/apperr"
	"github.com/garyjia/trip-finance/internal/domain/entity"
	"github.com/garyjia/trip-finance/internal/domain/registry"
	"github.com/garyjia/trip-finance/pkg/utils"
)

// TripRequest carries the operator-entered trip fields
type TripRequest struct {
	FleetNumber          string            `json:"fleet_number" validate:"required"`
	DriverName           string            `json:"driver_name"`
	ClientName           string            `json:"client_name" validate:"required"`
	ClientType           entity.ClientType `json:"client_type" validate:"omitempty,oneof=internal external"`
	Route                string            `json:"route" validate:"required"`
	Description          string            `json:"description"`
	StartDate            *time.Time        `json:"start_date"`
	EndDate              *time.Time        `json:"end_date"`
	DistanceKm           decimal.Decimal   `json:"distance_km" validate:"gte=0"`
	PlannedDurationHours decimal.Decimal   `json:"planned_duration_hours" validate:"gte=0"`
	BaseRevenue          decimal.Decimal   `json:"base_revenue" validate:"gte=0"`
	RevenueCurrency      string            `json:"revenue_currency" validate:"required"`
}

// TripDetail is a trip with everything attached to it
type TripDetail struct {
	Trip    *entity.Trip    `json:"trip"`
	Invoice *entity.Invoice `json:"invoice,omitempty"`
}

// TripService manages trips outside the audited paths
type TripService interface {
	Create(ctx context.Context, actor entity.Actor, req TripRequest) (*entity.Trip, error)
	Get(ctx context.Context, id string) (*TripDetail, error)
	List(ctx context.Context, filter port.TripFilter) ([]*entity.Trip, error)
	UpdateDraft(ctx context.Context, actor entity.Actor, id string, req TripRequest) (*entity.Trip, error)
	Cancel(ctx context.Context, actor entity.Actor, id string) (*entity.Trip, error)
	AttachProofOfDelivery(ctx context.Context, actor entity.Actor, id string, upload Upload) (*entity.Trip, error)
}

type tripServiceImpl struct {
	loader    tripLoader
	trips     port.TripRepository
	audits    port.AuditRepository
	documents *DocumentStore
	txManager port.TransactionManager
	registry  *registry.Registry
	locks     *TripLocks
	validate  *validator.Validate
	logger    Logger
	now       Clock
}

// NewTripService creates a new TripService
func NewTripService(
	trips port.TripRepository,
	costs port.CostRepository,
	invoices port.InvoiceRepository,
	audits port.AuditRepository,
	documents *DocumentStore,
	txManager port.TransactionManager,
	reg *registry.Registry,
	locks *TripLocks,
	logger Logger,
) TripService {
	return &tripServiceImpl{
		loader:    tripLoader{trips: trips, costs: costs, invoices: invoices},
		trips:     trips,
		audits:    audits,
		documents: documents,
		txManager: txManager,
		registry:  reg,
		locks:     locks,
		validate:  utils.NewValidator(),
		logger:    logger,
		now:       time.Now,
	}
}

// Create validates and stores a new draft trip positioned at the first workflow step
func (s *tripServiceImpl) Create(ctx context.Context, actor entity.Actor, req TripRequest) (*entity.Trip, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	now := s.now()
	trip := &entity.Trip{ID: uuid.NewString()}
	applyRequest(trip, req)
	if trip.ClientType == "" {
		trip.ClientType = entity.ClientTypeExternal
	}
	first, _ := s.registry.StepAt(0)
	trip.Status = entity.TripStatusDraft
	trip.WorkflowStep = string(first.ID)
	trip.CreatedBy = actor.DisplayName()
	trip.CreatedAt = now
	trip.UpdatedAt = now

	if err := s.trips.Create(ctx, trip); err != nil {
		s.logger.Error("Failed to create trip", "error", err, "fleet_number", trip.FleetNumber)
		return nil, fmt.Errorf("create trip: %w", err)
	}

	s.logger.Info("Trip created", "trip_id", trip.ID, "fleet_number", trip.FleetNumber, "created_by", trip.CreatedBy)
	return trip, nil
}

// Get returns the trip with its costs, edit history and invoice
func (s *tripServiceImpl) Get(ctx context.Context, id string) (*TripDetail, error) {
	trip, inv, err := s.loader.load(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.audits.ListEdits(ctx, id)
	if err != nil {
		s.logger.Error("Failed to list edit history", "error", err, "trip_id", id)
		return nil, fmt.Errorf("list edits: %w", err)
	}
	trip.EditHistory = history
	return &TripDetail{Trip: trip, Invoice: inv}, nil
}

// List returns trips matching filter
func (s *tripServiceImpl) List(ctx context.Context, filter port.TripFilter) ([]*entity.Trip, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperr.Invalid("status", apperr.KindInvalid, fmt.Sprintf("unknown trip status %q", filter.Status))
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	trips, err := s.trips.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list trips", "error", err)
		return nil, fmt.Errorf("list trips: %w", err)
	}
	return trips, nil
}

// UpdateDraft changes a trip that has not been completed. Completed trips go
// through the audited edit path instead.
func (s *tripServiceImpl) UpdateDraft(ctx context.Context, actor entity.Actor, id string, req TripRequest) (*entity.Trip, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	var trip *entity.Trip
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		trip, err = s.trips.GetByID(txCtx, id)
		if err != nil {
			return fmt.Errorf("get trip: %w", err)
		}
		if trip.Status.IsCompletedOrLater() {
			return apperr.Conflict("trip %s is %s; use the audited edit", id, trip.Status)
		}
		if trip.Status == entity.TripStatusCancelled {
			return apperr.Conflict("trip %s is cancelled", id)
		}
		applyRequest(trip, req)
		trip.UpdatedAt = s.now()
		return s.trips.Update(txCtx, trip)
	})
	if err != nil {
		s.logger.Error("Failed to update trip", "error", err, "trip_id", id)
		return nil, err
	}

	s.logger.Info("Trip updated", "trip_id", id, "updated_by", actor.DisplayName())
	return trip, nil
}

// Cancel moves a draft or active trip to cancelled
func (s *tripServiceImpl) Cancel(ctx context.Context, actor entity.Actor, id string) (*entity.Trip, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	var trip *entity.Trip
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		trip, err = s.trips.GetByID(txCtx, id)
		if err != nil {
			return fmt.Errorf("get trip: %w", err)
		}
		if !trip.Status.CanTransitionTo(entity.TripStatusCancelled) {
			return apperr.Conflict("trip %s cannot be cancelled from %s", id, trip.Status)
		}
		trip.Status = entity.TripStatusCancelled
		trip.UpdatedAt = s.now()
		return s.trips.Update(txCtx, trip)
	})
	if err != nil {
		s.logger.Error("Failed to cancel trip", "error", err, "trip_id", id)
		return nil, err
	}

	s.logger.Info("Trip cancelled", "trip_id", id, "cancelled_by", actor.DisplayName())
	return trip, nil
}

// AttachProofOfDelivery stores a delivery document and references it from the trip
func (s *tripServiceImpl) AttachProofOfDelivery(ctx context.Context, actor entity.Actor, id string, upload Upload) (*entity.Trip, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	var (
		trip   *entity.Trip
		stored *entity.Attachment
	)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		trip, err = s.trips.GetByID(txCtx, id)
		if err != nil {
			return fmt.Errorf("get trip: %w", err)
		}
		if trip.Status == entity.TripStatusCancelled {
			return apperr.Conflict("trip %s is cancelled", id)
		}
		stored, err = s.documents.store(txCtx, trip.ID, entity.AttachmentOwnerTrip, trip.ID, upload, actor, s.now())
		if err != nil {
			return err
		}
		trip.ProofOfDelivery = append(trip.ProofOfDelivery, stored.ID)
		trip.UpdatedAt = s.now()
		return s.trips.Update(txCtx, trip)
	})
	if err != nil {
		s.documents.discard(ctx, stored)
		s.logger.Error("Failed to attach proof of delivery", "error", err, "trip_id", id)
		return nil, err
	}

	s.logger.Info("Proof of delivery attached", "trip_id", id, "documents", len(trip.ProofOfDelivery))
	return trip, nil
}

func (s *tripServiceImpl) validateRequest(req TripRequest) error {
	return validateTripRequest(s.validate, s.registry, req)
}

func validateTripRequest(v *validator.Validate, reg *registry.Registry, req TripRequest) error {
	verr := apperr.NewValidationError()
	verr.Collect(v.Struct(req))
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		verr.Add("end_date", apperr.KindOutOfOrder, "End date cannot be before start date")
	}
	if req.RevenueCurrency != "" {
		if _, ok := reg.Rates(strings.ToUpper(req.RevenueCurrency)); !ok {
			verr.Add("revenue_currency", apperr.KindInvalid, fmt.Sprintf("Unsupported currency %s", req.RevenueCurrency))
		}
	}
	return verr.OrNil()
}

func applyRequest(trip *entity.Trip, req TripRequest) {
	trip.FleetNumber = strings.TrimSpace(req.FleetNumber)
	trip.DriverName = strings.TrimSpace(req.DriverName)
	trip.ClientName = strings.TrimSpace(req.ClientName)
	if req.ClientType != "" {
		trip.ClientType = req.ClientType
	}
	trip.Route = strings.TrimSpace(req.Route)
	trip.Description = strings.TrimSpace(req.Description)
	trip.StartDate = req.StartDate
	trip.EndDate = req.EndDate
	trip.DistanceKm = req.DistanceKm
	trip.PlannedDurationHours = req.PlannedDurationHours
	trip.BaseRevenue = req.BaseRevenue
	trip.RevenueCurrency = strings.ToUpper(req.RevenueCurrency)
}
