package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/garyjia/trip-finance/internal/application/port"
	"github.com/garyjia/trip-finance/internal/domain/audit"
	"github.com/garyjia/trip-finance/internal/domain/entity"
	"github.com/garyjia/trip-finance/internal/domain/registry"
	"github.com/garyjia/trip-finance/pkg/utils"
)

// EditResult is the outcome of an audited edit
type EditResult struct {
	Trip    *entity.Trip             `json:"trip"`
	Records []*entity.TripEditRecord `json:"records"`
}

// Reasons lists the standard justifications offered to operators
type Reasons struct {
	Edit     []string `json:"edit"`
	Deletion []string `json:"deletion"`
}

// AuditService records every change made to trips that have been completed
type AuditService interface {
	EditCompletedTrip(ctx context.Context, actor entity.Actor, tripID string, req TripRequest, j audit.Justification) (*EditResult, error)
	DeleteTrip(ctx context.Context, actor entity.Actor, tripID string, req audit.DeletionRequest) (*entity.TripDeletionRecord, error)
	History(ctx context.Context, tripID string) ([]*entity.TripEditRecord, error)
	DeletionRecords(ctx context.Context, limit, offset int) ([]*entity.TripDeletionRecord, error)
	Reasons() Reasons
}

type auditServiceImpl struct {
	loader    tripLoader
	trips     port.TripRepository
	audits    port.AuditRepository
	documents *DocumentStore
	txManager port.TransactionManager
	registry  *registry.Registry
	locks     *TripLocks
	validate  *validator.Validate
	metrics   port.Metrics
	logger    Logger
	now       Clock
}

// NewAuditService creates a new AuditService
func NewAuditService(
	trips port.TripRepository,
	costs port.CostRepository,
	invoices port.InvoiceRepository,
	audits port.AuditRepository,
	documents *DocumentStore,
	txManager port.TransactionManager,
	reg *registry.Registry,
	locks *TripLocks,
	metrics port.Metrics,
	logger Logger,
) AuditService {
	return &auditServiceImpl{
		loader:    tripLoader{trips: trips, costs: costs, invoices: invoices},
		trips:     trips,
		audits:    audits,
		documents: documents,
		txManager: txManager,
		registry:  reg,
		locks:     locks,
		validate:  utils.NewValidator(),
		metrics:   metricsOrNoop(metrics),
		logger:    logger,
		now:       time.Now,
	}
}

// EditCompletedTrip applies the editable fields of req to a completed trip and
// stores one record per changed field in the same transaction
func (s *auditServiceImpl) EditCompletedTrip(ctx context.Context, actor entity.Actor, tripID string, req TripRequest, j audit.Justification) (*EditResult, error) {
	if err := validateTripRequest(s.validate, s.registry, req); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(tripID)
	defer unlock()

	var result *EditResult
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		trip, err := s.trips.GetByID(txCtx, tripID)
		if err != nil {
			return fmt.Errorf("get trip: %w", err)
		}

		candidate := *trip
		applyRequest(&candidate, req)
		updated := *trip
		audit.ApplyEditable(&updated, &candidate)

		now := s.now()
		records, err := audit.RecordEdit(trip, trip, &updated, j, actor, now)
		if err != nil {
			return err
		}

		updated.UpdatedAt = now
		if err := s.trips.Update(txCtx, &updated); err != nil {
			return fmt.Errorf("update trip: %w", err)
		}
		for _, rec := range records {
			if err := s.audits.CreateEdit(txCtx, rec); err != nil {
				return fmt.Errorf("create edit record: %w", err)
			}
		}
		result = &EditResult{Trip: &updated, Records: records}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to edit completed trip", "error", err, "trip_id", tripID)
		return nil, err
	}

	for range result.Records {
		s.metrics.AuditRecorded("edit")
	}
	s.logger.Info("Completed trip edited", "trip_id", tripID, "fields", len(result.Records), "edited_by", actor.DisplayName())
	return result, nil
}

// DeleteTrip removes a trip. Completed trips need an administrator, a reason and
// the typed confirmation, and leave a deletion record that is written before the
// trip row is removed. Their documents stay so the record's references resolve.
// Earlier trips are deleted without a record and their documents are purged.
func (s *auditServiceImpl) DeleteTrip(ctx context.Context, actor entity.Actor, tripID string, req audit.DeletionRequest) (*entity.TripDeletionRecord, error) {
	unlock := s.locks.Lock(tripID)
	defer unlock()

	var (
		record  *entity.TripDeletionRecord
		costIDs []string
	)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		trip, _, err := s.loader.load(txCtx, tripID)
		if err != nil {
			return err
		}
		for _, c := range trip.Costs {
			costIDs = append(costIDs, c.ID)
		}

		if trip.Status.IsCompletedOrLater() {
			history, err := s.audits.ListEdits(txCtx, tripID)
			if err != nil {
				return fmt.Errorf("list edits: %w", err)
			}
			trip.EditHistory = history

			record, err = audit.RecordDeletion(trip, req, actor, s.now())
			if err != nil {
				return err
			}
			if err := s.audits.CreateDeletion(txCtx, record); err != nil {
				return fmt.Errorf("create deletion record: %w", err)
			}
		}

		if err := s.trips.Delete(txCtx, tripID); err != nil {
			return fmt.Errorf("delete trip: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to delete trip", "error", err, "trip_id", tripID, "actor", actor.ID)
		return nil, err
	}

	if record != nil {
		s.logger.Info("Trip documents retained for deletion record", "trip_id", tripID, "record_id", record.ID)
		s.metrics.AuditRecorded("deletion")
	} else {
		s.documents.purge(ctx, tripID, costIDs)
	}
	s.logger.Info("Trip deleted", "trip_id", tripID, "deleted_by", actor.DisplayName(), "audited", record != nil)
	return record, nil
}

// History returns the edit records of a trip, oldest first
func (s *auditServiceImpl) History(ctx context.Context, tripID string) ([]*entity.TripEditRecord, error) {
	records, err := s.audits.ListEdits(ctx, tripID)
	if err != nil {
		s.logger.Error("Failed to list edit history", "error", err, "trip_id", tripID)
		return nil, fmt.Errorf("list edits: %w", err)
	}
	return records, nil
}

// DeletionRecords returns the deletion records, newest first
func (s *auditServiceImpl) DeletionRecords(ctx context.Context, limit, offset int) ([]*entity.TripDeletionRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	records, err := s.audits.ListDeletions(ctx, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list deletion records", "error", err)
		return nil, fmt.Errorf("list deletions: %w", err)
	}
	return records, nil
}

// Reasons returns the standard edit and deletion reasons
func (s *auditServiceImpl) Reasons() Reasons {
	return Reasons{
		Edit:     append([]string(nil), entity.TripEditReasons...),
		Deletion: append([]string(nil), entity.TripDeletionReasons...),
	}
}
