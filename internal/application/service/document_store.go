package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/trip-finance/internal/application/port"
	"github.com/garyjia/trip-finance/internal/domain/apperr"
	"github.com/garyjia/trip-finance/internal/domain/entity"
	"github.com/garyjia/trip-finance/pkg/utils"
)

// DefaultMaxUploadBytes caps a single uploaded document
const DefaultMaxUploadBytes int64 = 20 << 20

// Upload is a document received from a client
type Upload struct {
	FileName    string
	ContentType string
	Content     []byte
}

// DocumentStore keeps uploaded documents in one folder per trip and records
// their metadata
type DocumentStore struct {
	attachments port.AttachmentRepository
	storage     port.FileStorage
	folders     port.FolderManager
	maxBytes    int64
	logger      Logger
}

// NewDocumentStore creates a DocumentStore. storage and folders must share a base directory.
func NewDocumentStore(
	attachments port.AttachmentRepository,
	storage port.FileStorage,
	folders port.FolderManager,
	maxBytes int64,
	logger Logger,
) *DocumentStore {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &DocumentStore{
		attachments: attachments,
		storage:     storage,
		folders:     folders,
		maxBytes:    maxBytes,
		logger:      logger,
	}
}

// store writes the upload under the trip folder and records who owns it
func (d *DocumentStore) store(ctx context.Context, tripID, ownerType, ownerID string, upload Upload, actor entity.Actor, now time.Time) (*entity.Attachment, error) {
	name := strings.TrimSpace(utils.SanitizeString(upload.FileName))
	if name == "" {
		return nil, apperr.Invalid("file", apperr.KindRequired, "File name is required")
	}
	if len(upload.Content) == 0 {
		return nil, apperr.Invalid("file", apperr.KindRequired, "File is empty")
	}
	if int64(len(upload.Content)) > d.maxBytes {
		return nil, apperr.Invalid("file", apperr.KindInvalid, fmt.Sprintf("File exceeds %d bytes", d.maxBytes))
	}

	if _, err := d.folders.CreateFolder(ctx, tripID); err != nil {
		return nil, fmt.Errorf("create trip folder: %w", err)
	}

	att := &entity.Attachment{
		ID:          uuid.NewString(),
		OwnerType:   ownerType,
		OwnerID:     ownerID,
		FileName:    name,
		ContentType: upload.ContentType,
		FileSize:    int64(len(upload.Content)),
		UploadedBy:  actor.DisplayName(),
		UploadedAt:  now,
	}
	att.StoragePath = filepath.Join(d.folders.SanitizeName(tripID), att.ID+"_"+d.safeFileName(name))

	if err := d.storage.Save(ctx, att.StoragePath, upload.Content); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	if err := d.attachments.Create(ctx, att); err != nil {
		_ = d.storage.Delete(ctx, att.StoragePath)
		return nil, fmt.Errorf("record document: %w", err)
	}

	d.logger.Info("Document stored", "trip_id", tripID, "attachment_id", att.ID, "owner_type", ownerType, "size", att.FileSize)
	return att, nil
}

// Open returns the stored document and its metadata
func (d *DocumentStore) Open(ctx context.Context, attachmentID string) (*entity.Attachment, []byte, error) {
	att, err := d.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		return nil, nil, err
	}
	content, err := d.storage.Read(ctx, att.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("read document: %w", err)
	}
	return att, content, nil
}

// List returns the documents recorded for an owner
func (d *DocumentStore) List(ctx context.Context, ownerType, ownerID string) ([]*entity.Attachment, error) {
	return d.attachments.ListByOwner(ctx, ownerType, ownerID)
}

// discard removes the file of a document whose transaction did not commit.
// The attachment row is rolled back with the transaction.
func (d *DocumentStore) discard(ctx context.Context, att *entity.Attachment) {
	if att == nil {
		return
	}
	if err := d.storage.Delete(ctx, att.StoragePath); err != nil {
		d.logger.Warn("Failed to remove uncommitted document", "attachment_id", att.ID, "path", att.StoragePath, "error", err)
	}
}

// purge removes every document kept for a trip and its cost entries
func (d *DocumentStore) purge(ctx context.Context, tripID string, costIDs []string) {
	owners := [][2]string{{entity.AttachmentOwnerTrip, tripID}}
	for _, id := range costIDs {
		owners = append(owners, [2]string{entity.AttachmentOwnerCost, id})
	}
	for _, o := range owners {
		if err := d.attachments.DeleteByOwner(ctx, o[0], o[1]); err != nil {
			d.logger.Warn("Failed to remove attachment records", "trip_id", tripID, "owner_type", o[0], "owner_id", o[1], "error", err)
		}
	}
	if err := d.folders.Delete(ctx, tripID); err != nil {
		d.logger.Warn("Failed to remove trip documents", "trip_id", tripID, "error", err)
	}
}

func (d *DocumentStore) safeFileName(name string) string {
	ext := filepath.Ext(name)
	base := d.folders.SanitizeName(strings.TrimSuffix(name, ext))
	if base == "" {
		base = "document"
	}
	if ext = d.folders.SanitizeName(strings.TrimPrefix(ext, ".")); ext != "" {
		return base + "." + ext
	}
	return base
}
