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

const costColumns = `id, trip_id, category, sub_category, amount, currency, reference_number, date,
	notes, attachments, no_document_reason, is_flagged, flag_reason, is_resolved,
	investigation_status, investigation_notes, flagged_at, flagged_by, resolved_at, resolved_by,
	is_system_generated, system_cost_type, calculation_trace, created_at, updated_at`

// CostRepository implements port.CostRepository
type CostRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCostRepository creates a new cost entry repository
func NewCostRepository(db *sql.DB, logger *zap.Logger) port.CostRepository {
	return &CostRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a cost entry
func (r *CostRepository) Create(ctx context.Context, cost *entity.CostEntry) error {
	if err := r.insert(ctx, sqlite.ExecutorFor(ctx, r.db), cost); err != nil {
		r.logger.Error("Failed to create cost entry",
			zap.String("trip_id", cost.TripID),
			zap.String("cost_id", cost.ID),
			zap.Error(err))
		return fmt.Errorf("failed to create cost entry: %w", err)
	}
	return nil
}

// GetByID retrieves a cost entry
func (r *CostRepository) GetByID(ctx context.Context, id string) (*entity.CostEntry, error) {
	query := `SELECT ` + costColumns + ` FROM cost_entries WHERE id = ?`

	cost, err := scanCost(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("cost entry", id)
	}
	if err != nil {
		r.logger.Error("Failed to get cost entry", zap.String("cost_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get cost entry: %w", err)
	}
	return cost, nil
}

// ListByTrip returns a trip's entries, operator entries first in entry order
func (r *CostRepository) ListByTrip(ctx context.Context, tripID string) ([]*entity.CostEntry, error) {
	query := `SELECT ` + costColumns + ` FROM cost_entries WHERE trip_id = ?
		ORDER BY is_system_generated ASC, created_at ASC, id ASC`
	return r.list(ctx, query, tripID)
}

// Update overwrites a cost entry
func (r *CostRepository) Update(ctx context.Context, cost *entity.CostEntry) error {
	query := `
		UPDATE cost_entries SET
			category = ?, sub_category = ?, amount = ?, currency = ?, reference_number = ?, date = ?,
			notes = ?, attachments = ?, no_document_reason = ?, is_flagged = ?, flag_reason = ?,
			is_resolved = ?, investigation_status = ?, investigation_notes = ?, flagged_at = ?,
			flagged_by = ?, resolved_at = ?, resolved_by = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		cost.Category,
		cost.SubCategory,
		cost.Amount,
		cost.Currency,
		cost.ReferenceNumber,
		cost.Date,
		cost.Notes,
		encodeRefs(cost.Attachments),
		cost.NoDocumentReason,
		boolInt(cost.IsFlagged),
		cost.FlagReason,
		boolInt(cost.IsResolved),
		cost.InvestigationStatus,
		cost.InvestigationNotes,
		cost.FlaggedAt,
		cost.FlaggedBy,
		cost.ResolvedAt,
		cost.ResolvedBy,
		cost.UpdatedAt,
		cost.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update cost entry", zap.String("cost_id", cost.ID), zap.Error(err))
		return fmt.Errorf("failed to update cost entry: %w", err)
	}
	return requireAffected(result, "cost entry", cost.ID)
}

// Delete removes a cost entry
func (r *CostRepository) Delete(ctx context.Context, id string) error {
	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, `DELETE FROM cost_entries WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete cost entry", zap.String("cost_id", id), zap.Error(err))
		return fmt.Errorf("failed to delete cost entry: %w", err)
	}
	return requireAffected(result, "cost entry", id)
}

// ReplaceSystemCosts swaps the generated entries of a trip. Callers run it
// inside WithTransaction so the delete and inserts commit together.
func (r *CostRepository) ReplaceSystemCosts(ctx context.Context, tripID string, costs []*entity.CostEntry) error {
	exec := sqlite.ExecutorFor(ctx, r.db)
	if _, err := exec.ExecContext(ctx,
		`DELETE FROM cost_entries WHERE trip_id = ? AND is_system_generated = 1`, tripID); err != nil {
		r.logger.Error("Failed to clear system costs", zap.String("trip_id", tripID), zap.Error(err))
		return fmt.Errorf("failed to clear system costs: %w", err)
	}
	for _, cost := range costs {
		if err := r.insert(ctx, exec, cost); err != nil {
			r.logger.Error("Failed to insert system cost",
				zap.String("trip_id", tripID),
				zap.String("type", string(cost.SystemCostType)),
				zap.Error(err))
			return fmt.Errorf("failed to insert system cost: %w", err)
		}
	}

	r.logger.Debug("System costs replaced", zap.String("trip_id", tripID), zap.Int("entries", len(costs)))
	return nil
}

// ListFlagged returns flagged entries across trips, oldest flag first
func (r *CostRepository) ListFlagged(ctx context.Context, investigationStatus string, limit, offset int) ([]*entity.CostEntry, error) {
	limit, offset = clampPage(limit, offset)
	query := `SELECT ` + costColumns + ` FROM cost_entries WHERE is_flagged = 1`
	args := []interface{}{}
	if investigationStatus != "" {
		query += ` AND investigation_status = ?`
		args = append(args, investigationStatus)
	}
	query += ` ORDER BY flagged_at ASC, id ASC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	return r.list(ctx, query, args...)
}

func (r *CostRepository) insert(ctx context.Context, exec sqlite.Executor, cost *entity.CostEntry) error {
	query := `INSERT INTO cost_entries (` + costColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := exec.ExecContext(ctx, query,
		cost.ID,
		cost.TripID,
		cost.Category,
		cost.SubCategory,
		cost.Amount,
		cost.Currency,
		cost.ReferenceNumber,
		cost.Date,
		cost.Notes,
		encodeRefs(cost.Attachments),
		cost.NoDocumentReason,
		boolInt(cost.IsFlagged),
		cost.FlagReason,
		boolInt(cost.IsResolved),
		cost.InvestigationStatus,
		cost.InvestigationNotes,
		cost.FlaggedAt,
		cost.FlaggedBy,
		cost.ResolvedAt,
		cost.ResolvedBy,
		boolInt(cost.IsSystemGenerated),
		string(cost.SystemCostType),
		cost.CalculationTrace,
		cost.CreatedAt,
		cost.UpdatedAt,
	)
	return err
}

func (r *CostRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.CostEntry, error) {
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list cost entries", zap.Error(err))
		return nil, fmt.Errorf("failed to list cost entries: %w", err)
	}
	defer rows.Close()

	var costs []*entity.CostEntry
	for rows.Next() {
		cost, err := scanCost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cost entry: %w", err)
		}
		costs = append(costs, cost)
	}
	return costs, rows.Err()
}

func scanCost(row rowScanner) (*entity.CostEntry, error) {
	var (
		cost                         entity.CostEntry
		attachments, systemType      string
		date, flaggedAt, resolvedAt  sql.NullTime
		flagged, resolved, generated bool
	)
	err := row.Scan(
		&cost.ID,
		&cost.TripID,
		&cost.Category,
		&cost.SubCategory,
		&cost.Amount,
		&cost.Currency,
		&cost.ReferenceNumber,
		&date,
		&cost.Notes,
		&attachments,
		&cost.NoDocumentReason,
		&flagged,
		&cost.FlagReason,
		&resolved,
		&cost.InvestigationStatus,
		&cost.InvestigationNotes,
		&flaggedAt,
		&cost.FlaggedBy,
		&resolvedAt,
		&cost.ResolvedBy,
		&generated,
		&systemType,
		&cost.CalculationTrace,
		&cost.CreatedAt,
		&cost.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	cost.Date = timePtr(date)
	cost.Attachments = decodeRefs(attachments)
	cost.IsFlagged = flagged
	cost.IsResolved = resolved
	cost.IsSystemGenerated = generated
	cost.SystemCostType = entity.SystemCostType(systemType)
	cost.FlaggedAt = timePtr(flaggedAt)
	cost.ResolvedAt = timePtr(resolvedAt)
	return &cost, nil
}

// Verify interface compliance
var _ port.CostRepository = (*CostRepository)(nil)
