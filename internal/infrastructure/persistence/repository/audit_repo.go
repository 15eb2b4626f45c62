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

const deletionColumns = `id, trip_id, fleet_number, deleted_by, deleted_at, reason, trip_data,
	total_revenue, total_costs, cost_entries_count, flagged_items_count`

// AuditRepository implements port.AuditRepository
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit trail repository
func NewAuditRepository(db *sql.DB, logger *zap.Logger) port.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// CreateEdit appends an edit record
func (r *AuditRepository) CreateEdit(ctx context.Context, record *entity.TripEditRecord) error {
	query := `
		INSERT INTO trip_edit_records (
			id, trip_id, edited_by, edited_at, reason, field_changed, old_value, new_value, change_type
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		record.ID,
		record.TripID,
		record.EditedBy,
		record.EditedAt,
		record.Reason,
		record.FieldChanged,
		record.OldValue,
		record.NewValue,
		record.ChangeType,
	)
	if err != nil {
		r.logger.Error("Failed to create edit record",
			zap.String("trip_id", record.TripID),
			zap.String("field", record.FieldChanged),
			zap.Error(err))
		return fmt.Errorf("failed to create edit record: %w", err)
	}
	return nil
}

// ListEdits returns a trip's edit history in the order the edits were made
func (r *AuditRepository) ListEdits(ctx context.Context, tripID string) ([]*entity.TripEditRecord, error) {
	query := `
		SELECT id, trip_id, edited_by, edited_at, reason, field_changed, old_value, new_value, change_type
		FROM trip_edit_records
		WHERE trip_id = ?
		ORDER BY edited_at ASC, rowid ASC
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, tripID)
	if err != nil {
		r.logger.Error("Failed to list edit records", zap.String("trip_id", tripID), zap.Error(err))
		return nil, fmt.Errorf("failed to list edit records: %w", err)
	}
	defer rows.Close()

	var records []*entity.TripEditRecord
	for rows.Next() {
		var rec entity.TripEditRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.TripID,
			&rec.EditedBy,
			&rec.EditedAt,
			&rec.Reason,
			&rec.FieldChanged,
			&rec.OldValue,
			&rec.NewValue,
			&rec.ChangeType,
		); err != nil {
			return nil, fmt.Errorf("failed to scan edit record: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// CreateDeletion stores the snapshot taken before a trip is removed
func (r *AuditRepository) CreateDeletion(ctx context.Context, record *entity.TripDeletionRecord) error {
	query := `INSERT INTO trip_deletion_records (` + deletionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		record.ID,
		record.TripID,
		record.FleetNumber,
		record.DeletedBy,
		record.DeletedAt,
		record.Reason,
		record.TripData,
		record.TotalRevenue,
		record.TotalCosts,
		record.CostEntriesCount,
		record.FlaggedItemsCount,
	)
	if err != nil {
		r.logger.Error("Failed to create deletion record",
			zap.String("trip_id", record.TripID),
			zap.String("deleted_by", record.DeletedBy),
			zap.Error(err))
		return fmt.Errorf("failed to create deletion record: %w", err)
	}
	return nil
}

// GetDeletion retrieves the deletion record of a trip
func (r *AuditRepository) GetDeletion(ctx context.Context, tripID string) (*entity.TripDeletionRecord, error) {
	query := `SELECT ` + deletionColumns + ` FROM trip_deletion_records WHERE trip_id = ?`

	record, err := scanDeletion(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, tripID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("deletion record", tripID)
	}
	if err != nil {
		r.logger.Error("Failed to get deletion record", zap.String("trip_id", tripID), zap.Error(err))
		return nil, fmt.Errorf("failed to get deletion record: %w", err)
	}
	return record, nil
}

// ListDeletions returns deletion records, most recent first
func (r *AuditRepository) ListDeletions(ctx context.Context, limit, offset int) ([]*entity.TripDeletionRecord, error) {
	limit, offset = clampPage(limit, offset)
	query := `SELECT ` + deletionColumns + ` FROM trip_deletion_records
		ORDER BY deleted_at DESC, id ASC LIMIT ? OFFSET ?`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list deletion records", zap.Error(err))
		return nil, fmt.Errorf("failed to list deletion records: %w", err)
	}
	defer rows.Close()

	var records []*entity.TripDeletionRecord
	for rows.Next() {
		record, err := scanDeletion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deletion record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanDeletion(row rowScanner) (*entity.TripDeletionRecord, error) {
	var rec entity.TripDeletionRecord
	err := row.Scan(
		&rec.ID,
		&rec.TripID,
		&rec.FleetNumber,
		&rec.DeletedBy,
		&rec.DeletedAt,
		&rec.Reason,
		&rec.TripData,
		&rec.TotalRevenue,
		&rec.TotalCosts,
		&rec.CostEntriesCount,
		&rec.FlaggedItemsCount,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Verify interface compliance
var _ port.AuditRepository = (*AuditRepository)(nil)
