package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/trip-finance/internal/application/service"
	"github.com/garyjia/trip-finance/internal/domain/entity"
)

// Invoices is the part of the invoice service the reminder sweep uses
type Invoices interface {
	ListOutstanding(ctx context.Context) ([]*service.InvoiceView, error)
	Get(ctx context.Context, tripID string) (*service.InvoiceView, error)
	SendReminder(ctx context.Context, actor entity.Actor, tripID, note string) (*entity.FollowUp, error)
}

// ReminderConfig holds the overdue sweep settings
type ReminderConfig struct {
	Interval time.Duration
	MinGap   time.Duration
}

// DefaultReminderConfig returns a daily sweep with a weekly reminder gap
func DefaultReminderConfig() ReminderConfig {
	return ReminderConfig{
		Interval: 24 * time.Hour,
		MinGap:   7 * 24 * time.Hour,
	}
}

// ReminderActor stamps follow-ups sent by the sweep
var ReminderActor = entity.Actor{ID: "system", Name: "Payment reminder sweep", Role: entity.RoleManager}

// ReminderWorker periodically sends reminders for overdue invoices
type ReminderWorker struct {
	config   ReminderConfig
	invoices Invoices
	logger   *zap.Logger
	now      func() time.Time

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
	sent      int
}

// NewReminderWorker creates a new ReminderWorker
func NewReminderWorker(config ReminderConfig, invoices Invoices, logger *zap.Logger) *ReminderWorker {
	defaults := DefaultReminderConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.MinGap <= 0 {
		config.MinGap = defaults.MinGap
	}
	return &ReminderWorker{
		config:   config,
		invoices: invoices,
		logger:   logger,
		now:      time.Now,
	}
}

// Name returns the worker name
func (w *ReminderWorker) Name() string {
	return "ReminderWorker"
}

// Start runs the sweep loop in the background
func (w *ReminderWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		return fmt.Errorf("reminder worker already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.isRunning = true

	go w.loop(runCtx, w.done)

	w.logger.Info("ReminderWorker started",
		zap.Duration("interval", w.config.Interval),
		zap.Duration("min_gap", w.config.MinGap))
	return nil
}

// Stop cancels the loop and waits for the current sweep to finish
func (w *ReminderWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	w.logger.Info("ReminderWorker stopped", zap.Int("reminders_sent", w.Sent()))
	return nil
}

// Sent returns the number of reminders sent since start
func (w *ReminderWorker) Sent() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sent
}

func (w *ReminderWorker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil {
				w.logger.Error("Reminder sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep sends one reminder per overdue invoice whose last follow-up is older
// than MinGap. It returns the number of reminders sent.
func (w *ReminderWorker) Sweep(ctx context.Context) (int, error) {
	views, err := w.invoices.ListOutstanding(ctx)
	if err != nil {
		return 0, fmt.Errorf("list outstanding invoices: %w", err)
	}

	now := w.now()
	sent := 0
	for _, view := range views {
		if ctx.Err() != nil {
			break
		}
		if !view.Aging.IsOverdue {
			continue
		}
		tripID := view.Invoice.TripID

		detail, err := w.invoices.Get(ctx, tripID)
		if err != nil {
			w.logger.Warn("Skipping invoice, failed to load follow-ups",
				zap.String("trip_id", tripID),
				zap.Error(err))
			continue
		}
		if last := lastFollowUp(detail.Invoice); last != nil && now.Sub(last.CreatedAt) < w.config.MinGap {
			continue
		}

		note := fmt.Sprintf("Automatic reminder: %d days overdue", -view.Aging.DaysTillDue)
		if _, err := w.invoices.SendReminder(ctx, ReminderActor, tripID, note); err != nil {
			w.logger.Error("Failed to send automatic reminder",
				zap.String("trip_id", tripID),
				zap.String("invoice_number", view.Invoice.InvoiceNumber),
				zap.Error(err))
			continue
		}
		sent++
	}

	w.mu.Lock()
	w.sent += sent
	w.mu.Unlock()

	if sent > 0 {
		w.logger.Info("Overdue reminders sent", zap.Int("count", sent), zap.Int("outstanding", len(views)))
	}
	return sent, nil
}

func lastFollowUp(inv *entity.Invoice) *entity.FollowUp {
	var last *entity.FollowUp
	for _, f := range inv.FollowUps {
		if last == nil || f.CreatedAt.After(last.CreatedAt) {
			last = f
		}
	}
	return last
}
