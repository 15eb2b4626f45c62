package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/trip-finance/internal/application/port"
	"github.com/garyjia/trip-finance/internal/domain/apperr"
	"github.com/garyjia/trip-finance/internal/domain/entity"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Clock returns the current time
type Clock func() time.Time

// TripLocks serializes writes per trip id
type TripLocks struct {
	mu    sync.Mutex
	locks map[string]*tripLock
}

type tripLock struct {
	mu   sync.Mutex
	refs int
}

// NewTripLocks creates an empty lock table
func NewTripLocks() *TripLocks {
	return &TripLocks{locks: make(map[string]*tripLock)}
}

// Lock blocks until the caller owns tripID and returns the release func
func (l *TripLocks) Lock(tripID string) func() {
	l.mu.Lock()
	lk, ok := l.locks[tripID]
	if !ok {
		lk = &tripLock{}
		l.locks[tripID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
	return func() {
		lk.mu.Unlock()
		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, tripID)
		}
		l.mu.Unlock()
	}
}

// tripLoader assembles the trip aggregate from its repositories
type tripLoader struct {
	trips    port.TripRepository
	costs    port.CostRepository
	invoices port.InvoiceRepository
}

// load returns the trip with its costs and, when present, its invoice
func (l tripLoader) load(ctx context.Context, tripID string) (*entity.Trip, *entity.Invoice, error) {
	trip, err := l.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, nil, fmt.Errorf("get trip: %w", err)
	}
	costs, err := l.costs.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, nil, fmt.Errorf("list costs: %w", err)
	}
	trip.Costs = costs

	if l.invoices == nil {
		return trip, nil, nil
	}
	inv, err := l.invoices.GetByTripID(ctx, tripID)
	if errors.Is(err, apperr.ErrNotFound) {
		return trip, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get invoice: %w", err)
	}
	return trip, inv, nil
}

// noopMetrics is used when no metrics sink is configured
type noopMetrics struct{}

func (noopMetrics) WorkflowTransition(from, to string) {}
func (noopMetrics) CostFlagged(category string)        {}
func (noopMetrics) FlagResolved()                      {}
func (noopMetrics) AuditRecorded(kind string)          {}
func (noopMetrics) InvoiceEvent(event string)          {}

func metricsOrNoop(m port.Metrics) port.Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}

func clockOrNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}
