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

const invoiceColumns = `id, trip_id, invoice_number, invoice_date, due_date, client_reference, currency,
	base_amount, additional_charges, discount, total_amount, validation_notes, proof_of_delivery,
	signed_invoice, final_arrival, final_offload, final_departure, payment_status, payment_date,
	payment_method, payment_reference, submitted_by, created_at, updated_at`

// InvoiceRepository implements port.InvoiceRepository
type InvoiceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *sql.DB, logger *zap.Logger) port.InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an invoice
func (r *InvoiceRepository) Create(ctx context.Context, invoice *entity.Invoice) error {
	query := `INSERT INTO invoices (` + invoiceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		invoice.ID,
		invoice.TripID,
		invoice.InvoiceNumber,
		invoice.InvoiceDate.UTC(),
		invoice.DueDate.UTC(),
		invoice.ClientReference,
		invoice.Currency,
		invoice.BaseAmount,
		invoice.AdditionalCharges,
		invoice.Discount,
		invoice.TotalAmount,
		invoice.ValidationNotes,
		encodeRefs(invoice.ProofOfDelivery),
		encodeRefs(invoice.SignedInvoice),
		utcPtr(invoice.FinalArrival),
		utcPtr(invoice.FinalOffload),
		utcPtr(invoice.FinalDeparture),
		invoice.PaymentStatus,
		utcPtr(invoice.PaymentDate),
		invoice.PaymentMethod,
		invoice.PaymentReference,
		invoice.SubmittedBy,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	)
	if isUniqueViolation(err) {
		r.logger.Warn("Invoice number or trip already invoiced",
			zap.String("trip_id", invoice.TripID),
			zap.String("invoice_number", invoice.InvoiceNumber))
		return apperr.Conflict("invoice %s already exists or trip %s is already invoiced", invoice.InvoiceNumber, invoice.TripID)
	}
	if err != nil {
		r.logger.Error("Failed to create invoice",
			zap.String("trip_id", invoice.TripID),
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.Error(err))
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	r.logger.Info("Invoice created",
		zap.String("invoice_id", invoice.ID),
		zap.String("invoice_number", invoice.InvoiceNumber))
	return nil
}

// GetByID retrieves an invoice without follow-ups
func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.getOne(ctx, "id", id)
}

// GetByTripID retrieves the invoice raised for a trip
func (r *InvoiceRepository) GetByTripID(ctx context.Context, tripID string) (*entity.Invoice, error) {
	return r.getOne(ctx, "trip_id", tripID)
}

func (r *InvoiceRepository) getOne(ctx context.Context, column, value string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE ` + column + ` = ?`

	invoice, err := scanInvoice(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("invoice", value)
	}
	if err != nil {
		r.logger.Error("Failed to get invoice", zap.String(column, value), zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return invoice, nil
}

// Update overwrites the mutable invoice fields
func (r *InvoiceRepository) Update(ctx context.Context, invoice *entity.Invoice) error {
	query := `
		UPDATE invoices SET
			client_reference = ?, validation_notes = ?, proof_of_delivery = ?, signed_invoice = ?,
			payment_status = ?, payment_date = ?, payment_method = ?, payment_reference = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		invoice.ClientReference,
		invoice.ValidationNotes,
		encodeRefs(invoice.ProofOfDelivery),
		encodeRefs(invoice.SignedInvoice),
		invoice.PaymentStatus,
		utcPtr(invoice.PaymentDate),
		invoice.PaymentMethod,
		invoice.PaymentReference,
		invoice.UpdatedAt,
		invoice.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update invoice", zap.String("invoice_id", invoice.ID), zap.Error(err))
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	return requireAffected(result, "invoice", invoice.ID)
}

// ListUnpaid returns unpaid invoices, oldest due date first
func (r *InvoiceRepository) ListUnpaid(ctx context.Context) ([]*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices
		WHERE payment_status != ?
		ORDER BY due_date ASC, invoice_number ASC`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, entity.PaymentStatusPaid)
	if err != nil {
		r.logger.Error("Failed to list unpaid invoices", zap.Error(err))
		return nil, fmt.Errorf("failed to list unpaid invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*entity.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

// NextSequence reserves the next auto-assigned sequence for an invoice number
// prefix. It starts past any number already stored under the prefix, including
// ones typed by hand, and never hands out a value twice.
func (r *InvoiceRepository) NextSequence(ctx context.Context, prefix string) (int, error) {
	query := `
		INSERT INTO invoice_sequences (prefix, last_seq)
		VALUES (?, (
			SELECT COALESCE(MAX(CAST(SUBSTR(invoice_number, ?) AS INTEGER)), 0) + 1
			FROM invoices WHERE invoice_number LIKE ?
		))
		ON CONFLICT(prefix) DO UPDATE SET last_seq = MAX(invoice_sequences.last_seq + 1, excluded.last_seq)
		RETURNING last_seq
	`

	var seq int
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query,
		prefix, len(prefix)+1, prefix+"%",
	).Scan(&seq)
	if err != nil {
		r.logger.Error("Failed to reserve invoice sequence", zap.String("prefix", prefix), zap.Error(err))
		return 0, fmt.Errorf("failed to reserve invoice sequence: %w", err)
	}
	return seq, nil
}

// CreateFollowUp appends a reminder or escalation to an invoice
func (r *InvoiceRepository) CreateFollowUp(ctx context.Context, followUp *entity.FollowUp) error {
	query := `
		INSERT INTO invoice_follow_ups (id, invoice_id, type, note, sent_by, delivered, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		followUp.ID,
		followUp.InvoiceID,
		followUp.Type,
		followUp.Note,
		followUp.SentBy,
		boolInt(followUp.Delivered),
		followUp.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create follow-up",
			zap.String("invoice_id", followUp.InvoiceID),
			zap.String("type", followUp.Type),
			zap.Error(err))
		return fmt.Errorf("failed to create follow-up: %w", err)
	}
	return nil
}

// ListFollowUps returns an invoice's follow-ups in the order they were sent
func (r *InvoiceRepository) ListFollowUps(ctx context.Context, invoiceID string) ([]*entity.FollowUp, error) {
	query := `
		SELECT id, invoice_id, type, note, sent_by, delivered, created_at
		FROM invoice_follow_ups
		WHERE invoice_id = ?
		ORDER BY created_at ASC, rowid ASC
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, invoiceID)
	if err != nil {
		r.logger.Error("Failed to list follow-ups", zap.String("invoice_id", invoiceID), zap.Error(err))
		return nil, fmt.Errorf("failed to list follow-ups: %w", err)
	}
	defer rows.Close()

	var followUps []*entity.FollowUp
	for rows.Next() {
		var f entity.FollowUp
		if err := rows.Scan(&f.ID, &f.InvoiceID, &f.Type, &f.Note, &f.SentBy, &f.Delivered, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan follow-up: %w", err)
		}
		followUps = append(followUps, &f)
	}
	return followUps, rows.Err()
}

func scanInvoice(row rowScanner) (*entity.Invoice, error) {
	var (
		inv                               entity.Invoice
		pod, signed                       string
		arrival, offload, departure, paid sql.NullTime
	)
	err := row.Scan(
		&inv.ID,
		&inv.TripID,
		&inv.InvoiceNumber,
		&inv.InvoiceDate,
		&inv.DueDate,
		&inv.ClientReference,
		&inv.Currency,
		&inv.BaseAmount,
		&inv.AdditionalCharges,
		&inv.Discount,
		&inv.TotalAmount,
		&inv.ValidationNotes,
		&pod,
		&signed,
		&arrival,
		&offload,
		&departure,
		&inv.PaymentStatus,
		&paid,
		&inv.PaymentMethod,
		&inv.PaymentReference,
		&inv.SubmittedBy,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.ProofOfDelivery = decodeRefs(pod)
	inv.SignedInvoice = decodeRefs(signed)
	inv.FinalArrival = timePtr(arrival)
	inv.FinalOffload = timePtr(offload)
	inv.FinalDeparture = timePtr(departure)
	inv.PaymentDate = timePtr(paid)
	return &inv, nil
}

// Verify interface compliance
var _ port.InvoiceRepository = (*InvoiceRepository)(nil)
