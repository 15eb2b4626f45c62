package port

import (
	"context"

	"github.com/garyjia/trip-finance/internal/domain/entity"
)

// TripFilter narrows trip listings
type TripFilter struct {
	Status entity.TripStatus
	Limit  int
	Offset int
}

// TripRepository defines persistence operations for Trip.
// Trips are loaded without costs, invoice or edit history.
type TripRepository interface {
	Create(ctx context.Context, trip *entity.Trip) error
	GetByID(ctx context.Context, id string) (*entity.Trip, error)
	List(ctx context.Context, filter TripFilter) ([]*entity.Trip, error)
	Update(ctx context.Context, trip *entity.Trip) error
	Delete(ctx context.Context, id string) error
}

// CostRepository defines persistence operations for CostEntry
type CostRepository interface {
	Create(ctx context.Context, cost *entity.CostEntry) error
	GetByID(ctx context.Context, id string) (*entity.CostEntry, error)
	ListByTrip(ctx context.Context, tripID string) ([]*entity.CostEntry, error)
	Update(ctx context.Context, cost *entity.CostEntry) error
	Delete(ctx context.Context, id string) error

	// ReplaceSystemCosts removes the trip's generated entries and inserts costs
	ReplaceSystemCosts(ctx context.Context, tripID string, costs []*entity.CostEntry) error

	// ListFlagged returns flagged entries across trips, oldest flag first.
	// An empty status returns every flagged entry.
	ListFlagged(ctx context.Context, investigationStatus string, limit, offset int) ([]*entity.CostEntry, error)
}

// AuditRepository defines persistence operations for edit and deletion records
type AuditRepository interface {
	CreateEdit(ctx context.Context, record *entity.TripEditRecord) error
	ListEdits(ctx context.Context, tripID string) ([]*entity.TripEditRecord, error)
	CreateDeletion(ctx context.Context, record *entity.TripDeletionRecord) error
	GetDeletion(ctx context.Context, tripID string) (*entity.TripDeletionRecord, error)
	ListDeletions(ctx context.Context, limit, offset int) ([]*entity.TripDeletionRecord, error)
}

// InvoiceRepository defines persistence operations for Invoice and its follow-ups
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	GetByTripID(ctx context.Context, tripID string) (*entity.Invoice, error)
	Update(ctx context.Context, invoice *entity.Invoice) error
	ListUnpaid(ctx context.Context) ([]*entity.Invoice, error)

	// NextSequence reserves the next auto-assigned sequence for an invoice
	// number prefix. Values never repeat, even after invoices are deleted.
	NextSequence(ctx context.Context, prefix string) (int, error)

	CreateFollowUp(ctx context.Context, followUp *entity.FollowUp) error
	ListFollowUps(ctx context.Context, invoiceID string) ([]*entity.FollowUp, error)
}

// AttachmentRepository defines persistence operations for Attachment metadata
type AttachmentRepository interface {
	Create(ctx context.Context, att *entity.Attachment) error
	GetByID(ctx context.Context, id string) (*entity.Attachment, error)
	ListByOwner(ctx context.Context, ownerType, ownerID string) ([]*entity.Attachment, error)
	DeleteByOwner(ctx context.Context, ownerType, ownerID string) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
