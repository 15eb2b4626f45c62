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

// AttachmentRepository implements port.AttachmentRepository
type AttachmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAttachmentRepository creates a new attachment repository
func NewAttachmentRepository(db *sql.DB, logger *zap.Logger) port.AttachmentRepository {
	return &AttachmentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts attachment metadata
func (r *AttachmentRepository) Create(ctx context.Context, att *entity.Attachment) error {
	query := `
		INSERT INTO attachments (
			id, owner_type, owner_id, file_name, content_type, file_size, storage_path, uploaded_by, uploaded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		att.ID,
		att.OwnerType,
		att.OwnerID,
		att.FileName,
		att.ContentType,
		att.FileSize,
		att.StoragePath,
		att.UploadedBy,
		att.UploadedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create attachment",
			zap.String("owner_type", att.OwnerType),
			zap.String("owner_id", att.OwnerID),
			zap.String("file_name", att.FileName),
			zap.Error(err))
		return fmt.Errorf("failed to create attachment: %w", err)
	}

	r.logger.Debug("Attachment created",
		zap.String("attachment_id", att.ID),
		zap.String("storage_path", att.StoragePath))
	return nil
}

// GetByID retrieves attachment metadata
func (r *AttachmentRepository) GetByID(ctx context.Context, id string) (*entity.Attachment, error) {
	query := `
		SELECT id, owner_type, owner_id, file_name, content_type, file_size, storage_path, uploaded_by, uploaded_at
		FROM attachments WHERE id = ?
	`

	att, err := scanAttachment(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("attachment", id)
	}
	if err != nil {
		r.logger.Error("Failed to get attachment", zap.String("attachment_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	return att, nil
}

// ListByOwner returns the attachments of one cost entry, trip or invoice
func (r *AttachmentRepository) ListByOwner(ctx context.Context, ownerType, ownerID string) ([]*entity.Attachment, error) {
	query := `
		SELECT id, owner_type, owner_id, file_name, content_type, file_size, storage_path, uploaded_by, uploaded_at
		FROM attachments
		WHERE owner_type = ? AND owner_id = ?
		ORDER BY uploaded_at ASC, id ASC
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, ownerType, ownerID)
	if err != nil {
		r.logger.Error("Failed to list attachments",
			zap.String("owner_type", ownerType),
			zap.String("owner_id", ownerID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	var attachments []*entity.Attachment
	for rows.Next() {
		att, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, att)
	}
	return attachments, rows.Err()
}

// DeleteByOwner removes every attachment row of an owner
func (r *AttachmentRepository) DeleteByOwner(ctx context.Context, ownerType, ownerID string) error {
	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`DELETE FROM attachments WHERE owner_type = ? AND owner_id = ?`, ownerType, ownerID)
	if err != nil {
		r.logger.Error("Failed to delete attachments",
			zap.String("owner_type", ownerType),
			zap.String("owner_id", ownerID),
			zap.Error(err))
		return fmt.Errorf("failed to delete attachments: %w", err)
	}
	return nil
}

func scanAttachment(row rowScanner) (*entity.Attachment, error) {
	var att entity.Attachment
	err := row.Scan(
		&att.ID,
		&att.OwnerType,
		&att.OwnerID,
		&att.FileName,
		&att.ContentType,
		&att.FileSize,
		&att.StoragePath,
		&att.UploadedBy,
		&att.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	return &att, nil
}

// Verify interface compliance
var _ port.AttachmentRepository = (*AttachmentRepository)(nil)
