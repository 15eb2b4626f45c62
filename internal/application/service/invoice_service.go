package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/trip-finance/internal/application/port"
	"github.com/garyjia/trip-finance/internal/domain/apperr"
	"github.com/garyjia/trip-finance/internal/domain/entity"
	"github.com/garyjia/trip-finance/internal/domain/invoicing"
	"github.com/garyjia/trip-finance/internal/domain/registry"
	"github.com/garyjia/trip-finance/internal/domain/workflow"
)

// PaymentRequest records a received payment
type PaymentRequest struct {
	PaymentDate *time.Time `json:"payment_date"`
	Method      string     `json:"payment_method"`
	Reference   string     `json:"payment_reference"`
}

// InvoiceView is an invoice with its current aging
type InvoiceView struct {
	Invoice *entity.Invoice     `json:"invoice"`
	Aging   entity.PaymentAging `json:"aging"`
}

// InvoiceService raises invoices for completed trips and follows up on payment
type InvoiceService interface {
	Submit(ctx context.Context, actor entity.Actor, tripID string, req invoicing.SubmitRequest) (*entity.Invoice, error)
	Get(ctx context.Context, tripID string) (*InvoiceView, error)
	MarkPaid(ctx context.Context, actor entity.Actor, tripID string, req PaymentRequest) (*InvoiceView, error)
	SendReminder(ctx context.Context, actor entity.Actor, tripID, note string) (*entity.FollowUp, error)
	Escalate(ctx context.Context, actor entity.Actor, tripID, note string) (*entity.FollowUp, error)
	ListOutstanding(ctx context.Context) ([]*InvoiceView, error)
}

type invoiceServiceImpl struct {
	loader    tripLoader
	invoices  port.InvoiceRepository
	txManager port.TransactionManager
	engine    *workflow.Engine
	tracker   *invoicing.Tracker
	notifier  port.Notifier
	locks     *TripLocks
	metrics   port.Metrics
	logger    Logger
	now       Clock
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	trips port.TripRepository,
	costs port.CostRepository,
	invoices port.InvoiceRepository,
	txManager port.TransactionManager,
	engine *workflow.Engine,
	notifier port.Notifier,
	locks *TripLocks,
	metrics port.Metrics,
	logger Logger,
) InvoiceService {
	return &invoiceServiceImpl{
		loader:    tripLoader{trips: trips, costs: costs, invoices: invoices},
		invoices:  invoices,
		txManager: txManager,
		engine:    engine,
		tracker:   invoicing.NewTracker(engine),
		notifier:  notifier,
		locks:     locks,
		metrics:   metricsOrNoop(metrics),
		logger:    logger,
		now:       time.Now,
	}
}

// Submit raises the invoice for a trip at or past the submit-invoice step.
// An empty invoice number is assigned from the monthly sequence.
func (s *invoiceServiceImpl) Submit(ctx context.Context, actor entity.Actor, tripID string, req invoicing.SubmitRequest) (*entity.Invoice, error) {
	unlock := s.locks.Lock(tripID)
	defer unlock()

	var inv *entity.Invoice
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		trip, existing, err := s.loader.load(txCtx, tripID)
		if err != nil {
			return err
		}
		if trip.Status == entity.TripStatusCancelled {
			return apperr.Conflict("trip %s is cancelled", tripID)
		}
		wc, err := s.engine.Resume(registry.StepID(trip.WorkflowStep), workflow.Data{Trip: trip, Invoice: existing})
		if err != nil {
			return err
		}

		if strings.TrimSpace(req.InvoiceNumber) == "" && !req.InvoiceDate.IsZero() {
			seq, err := s.invoices.NextSequence(txCtx, invoicing.InvoiceNumberPrefix(req.InvoiceDate))
			if err != nil {
				return fmt.Errorf("reserve invoice number: %w", err)
			}
			req.InvoiceNumber = invoicing.InvoiceNumber(req.InvoiceDate, seq)
		}

		inv, err = s.tracker.Submit(wc, req, actor.DisplayName(), s.now())
		if err != nil {
			return err
		}
		return s.invoices.Create(txCtx, inv)
	})
	if err != nil {
		s.logger.Error("Failed to submit invoice", "error", err, "trip_id", tripID)
		return nil, err
	}

	s.metrics.InvoiceEvent("submitted")
	s.logger.Info("Invoice submitted", "trip_id", tripID, "invoice_number", inv.InvoiceNumber, "total", inv.TotalAmount.String())
	return inv, nil
}

// Get returns the trip's invoice with follow-ups and aging
func (s *invoiceServiceImpl) Get(ctx context.Context, tripID string) (*InvoiceView, error) {
	inv, err := s.invoices.GetByTripID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	followUps, err := s.invoices.ListFollowUps(ctx, inv.ID)
	if err != nil {
		s.logger.Error("Failed to list follow-ups", "error", err, "invoice_id", inv.ID)
		return nil, fmt.Errorf("list follow-ups: %w", err)
	}
	inv.FollowUps = followUps
	return &InvoiceView{Invoice: inv, Aging: invoicing.TrackPayment(inv, s.now())}, nil
}

// MarkPaid records the payment of a trip's invoice
func (s *invoiceServiceImpl) MarkPaid(ctx context.Context, actor entity.Actor, tripID string, req PaymentRequest) (*InvoiceView, error) {
	unlock := s.locks.Lock(tripID)
	defer unlock()

	var inv *entity.Invoice
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		inv, err = s.invoices.GetByTripID(txCtx, tripID)
		if err != nil {
			return err
		}
		if err := invoicing.MarkPaid(inv, req.PaymentDate, req.Method, req.Reference, s.now()); err != nil {
			return err
		}
		return s.invoices.Update(txCtx, inv)
	})
	if err != nil {
		s.logger.Error("Failed to mark invoice paid", "error", err, "trip_id", tripID)
		return nil, err
	}

	s.metrics.InvoiceEvent("paid")
	s.logger.Info("Invoice paid", "trip_id", tripID, "invoice_number", inv.InvoiceNumber, "recorded_by", actor.DisplayName())
	return &InvoiceView{Invoice: inv, Aging: invoicing.TrackPayment(inv, s.now())}, nil
}

// SendReminder records a payment reminder and notifies the finance team
func (s *invoiceServiceImpl) SendReminder(ctx context.Context, actor entity.Actor, tripID, note string) (*entity.FollowUp, error) {
	return s.followUp(ctx, actor, tripID, entity.FollowUpReminder, note)
}

// Escalate records an escalation. Escalating an invoice that is not overdue is
// allowed and logged.
func (s *invoiceServiceImpl) Escalate(ctx context.Context, actor entity.Actor, tripID, note string) (*entity.FollowUp, error) {
	return s.followUp(ctx, actor, tripID, entity.FollowUpEscalation, note)
}

// ListOutstanding returns every unpaid invoice with its aging
func (s *invoiceServiceImpl) ListOutstanding(ctx context.Context) ([]*InvoiceView, error) {
	invoices, err := s.invoices.ListUnpaid(ctx)
	if err != nil {
		s.logger.Error("Failed to list unpaid invoices", "error", err)
		return nil, fmt.Errorf("list unpaid: %w", err)
	}
	now := s.now()
	views := make([]*InvoiceView, 0, len(invoices))
	for _, inv := range invoices {
		views = append(views, &InvoiceView{Invoice: inv, Aging: invoicing.TrackPayment(inv, now)})
	}
	return views, nil
}

func (s *invoiceServiceImpl) followUp(ctx context.Context, actor entity.Actor, tripID, kind, note string) (*entity.FollowUp, error) {
	unlock := s.locks.Lock(tripID)
	defer unlock()

	trip, inv, err := s.loader.load(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, apperr.NotFound("invoice for trip", tripID)
	}
	if inv.IsPaid() {
		return nil, apperr.Conflict("invoice %s is already paid", inv.InvoiceNumber)
	}

	now := s.now()
	var f *entity.FollowUp
	if kind == entity.FollowUpEscalation {
		var overdue bool
		f, overdue, err = invoicing.Escalation(inv, note, actor.DisplayName(), now)
		if err == nil && !overdue {
			s.logger.Warn("Escalating invoice that is not overdue", "trip_id", tripID, "invoice_number", inv.InvoiceNumber)
		}
	} else {
		f, err = invoicing.Reminder(inv, note, actor.DisplayName(), now)
	}
	if err != nil {
		return nil, err
	}

	aging := invoicing.TrackPayment(inv, now)
	notice := port.PaymentNotice{
		Kind:          kind,
		InvoiceNumber: inv.InvoiceNumber,
		TripID:        trip.ID,
		FleetNumber:   trip.FleetNumber,
		ClientName:    trip.ClientName,
		Amount:        inv.TotalAmount.StringFixed(2),
		Currency:      inv.Currency,
		DueDate:       inv.DueDate.Format("2006-01-02"),
		Note:          f.Note,
		SentBy:        f.SentBy,
	}
	if aging.IsOverdue {
		notice.DaysOverdue = -aging.DaysTillDue
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyPayment(ctx, notice); err != nil {
			s.logger.Error("Failed to deliver payment follow-up", "error", err, "trip_id", tripID, "kind", kind)
		} else {
			f.Delivered = true
		}
	}

	if err := s.invoices.CreateFollowUp(ctx, f); err != nil {
		s.logger.Error("Failed to record follow-up", "error", err, "trip_id", tripID)
		return nil, fmt.Errorf("create follow-up: %w", err)
	}

	s.metrics.InvoiceEvent(kind)
	s.logger.Info("Payment follow-up recorded", "trip_id", tripID, "kind", kind, "delivered", f.Delivered)
	return f, nil
}
