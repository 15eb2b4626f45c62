package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/trip-finance/internal/application/port"
	"github.com/garyjia/trip-finance/internal/domain/apperr"
	"github.com/garyjia/trip-finance/internal/domain/entity"
	"github.com/garyjia/trip-finance/internal/infrastructure/persistence/sqlite"
)

const tripColumns = `id, fleet_number, driver_name, client_name, client_type, route, description,
	start_date, end_date, distance_km, planned_duration_hours, base_revenue, revenue_currency,
	status, workflow_step, proof_of_delivery, created_by, completed_by, completed_at,
	created_at, updated_at`

// TripRepository implements port.TripRepository
type TripRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTripRepository creates a new trip repository
func NewTripRepository(db *sql.DB, logger *zap.Logger) port.TripRepository {
	return &TripRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a trip row
func (r *TripRepository) Create(ctx context.Context, trip *entity.Trip) error {
	query := `INSERT INTO trips (` + tripColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		trip.ID,
		trip.FleetNumber,
		trip.DriverName,
		trip.ClientName,
		string(trip.ClientType),
		trip.Route,
		trip.Description,
		trip.StartDate,
		trip.EndDate,
		trip.DistanceKm,
		trip.PlannedDurationHours,
		trip.BaseRevenue,
		trip.RevenueCurrency,
		string(trip.Status),
		trip.WorkflowStep,
		encodeRefs(trip.ProofOfDelivery),
		trip.CreatedBy,
		trip.CompletedBy,
		trip.CompletedAt,
		trip.CreatedAt,
		trip.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create trip", zap.String("trip_id", trip.ID), zap.Error(err))
		return fmt.Errorf("failed to create trip: %w", err)
	}
	return nil
}

// GetByID retrieves a trip without its costs
func (r *TripRepository) GetByID(ctx context.Context, id string) (*entity.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = ?`

	trip, err := scanTrip(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("trip", id)
	}
	if err != nil {
		r.logger.Error("Failed to get trip", zap.String("trip_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return trip, nil
}

// List returns trips newest first
func (r *TripRepository) List(ctx context.Context, filter port.TripFilter) ([]*entity.Trip, error) {
	limit, offset := clampPage(filter.Limit, filter.Offset)
	query := `SELECT ` + tripColumns + ` FROM trips`
	args := []interface{}{}
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list trips", zap.Error(err))
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	var trips []*entity.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}

// Update overwrites every trip column
func (r *TripRepository) Update(ctx context.Context, trip *entity.Trip) error {
	query := `
		UPDATE trips SET
			fleet_number = ?, driver_name = ?, client_name = ?, client_type = ?, route = ?,
			description = ?, start_date = ?, end_date = ?, distance_km = ?, planned_duration_hours = ?,
			base_revenue = ?, revenue_currency = ?, status = ?, workflow_step = ?, proof_of_delivery = ?,
			completed_by = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		trip.FleetNumber,
		trip.DriverName,
		trip.ClientName,
		string(trip.ClientType),
		trip.Route,
		trip.Description,
		trip.StartDate,
		trip.EndDate,
		trip.DistanceKm,
		trip.PlannedDurationHours,
		trip.BaseRevenue,
		trip.RevenueCurrency,
		string(trip.Status),
		trip.WorkflowStep,
		encodeRefs(trip.ProofOfDelivery),
		trip.CompletedBy,
		trip.CompletedAt,
		trip.UpdatedAt,
		trip.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update trip", zap.String("trip_id", trip.ID), zap.Error(err))
		return fmt.Errorf("failed to update trip: %w", err)
	}
	return requireAffected(result, "trip", trip.ID)
}

// Delete removes a trip. Costs, invoice and follow-ups cascade; audit records stay.
func (r *TripRepository) Delete(ctx context.Context, id string) error {
	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, `DELETE FROM trips WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete trip", zap.String("trip_id", id), zap.Error(err))
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	return requireAffected(result, "trip", id)
}

func scanTrip(row rowScanner) (*entity.Trip, error) {
	var (
		trip                            entity.Trip
		clientType, status, pod         string
		startDate, endDate, completedAt sql.NullTime
	)
	err := row.Scan(
		&trip.ID,
		&trip.FleetNumber,
		&trip.DriverName,
		&trip.ClientName,
		&clientType,
		&trip.Route,
		&trip.Description,
		&startDate,
		&endDate,
		&trip.DistanceKm,
		&trip.PlannedDurationHours,
		&trip.BaseRevenue,
		&trip.RevenueCurrency,
		&status,
		&trip.WorkflowStep,
		&pod,
		&trip.CreatedBy,
		&trip.CompletedBy,
		&completedAt,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	trip.ClientType = entity.ClientType(clientType)
	trip.Status = entity.TripStatus(status)
	trip.ProofOfDelivery = decodeRefs(pod)
	trip.StartDate = timePtr(startDate)
	trip.EndDate = timePtr(endDate)
	trip.CompletedAt = timePtr(completedAt)
	return &trip, nil
}

func requireAffected(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return apperr.NotFound(resource, id)
	}
	return nil
}

// Verify interface compliance
var _ port.TripRepository = (*TripRepository)(nil)
