package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/trip-finance/internal/application/port"
	"github.com/garyjia/trip-finance/internal/domain/entity"
	"github.com/garyjia/trip-finance/internal/domain/flagging"
	"github.com/garyjia/trip-finance/internal/domain/registry"
	"github.com/garyjia/trip-finance/internal/domain/workflow"
)

var (
	fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	operator = entity.Actor{ID: "u-1", Name: "Tendai", Role: entity.RoleOperator}
	admin    = entity.Actor{ID: "u-9", Name: "Admin", Role: entity.RoleAdmin}
)

type fakeRenderer struct {
	format port.ReportFormat
}

func (r fakeRenderer) Format() port.ReportFormat { return r.format }

func (r fakeRenderer) Render(report *port.TripReport) ([]byte, error) {
	return []byte(string(r.format) + ":" + report.Trip.ID), nil
}

type fixture struct {
	repo     *memRepo
	storage  *mockStorage
	reports  *mockStorage
	folders  *mockFolders
	tx       *mockTxManager
	notifier *mockNotifier
	metrics  *mockMetrics
	logger   *mockLogger
	reg      *registry.Registry
	now      time.Time

	tripSvc     TripService
	costSvc     CostService
	workflowSvc WorkflowService
	auditSvc    AuditService
	invoiceSvc  InvoiceService
	reportSvc   ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     newMemRepo(),
		storage:  newMockStorage(),
		reports:  newMockStorage(),
		folders:  &mockFolders{},
		tx:       &mockTxManager{},
		notifier: &mockNotifier{},
		metrics:  &mockMetrics{},
		logger:   &mockLogger{},
		reg:      registry.Default(),
		now:      fixedNow,
	}

	trips, costs := memTrips{f.repo}, memCosts{f.repo}
	audits, invoices := memAudits{f.repo}, memInvoices{f.repo}
	tx := f.tx
	locks := NewTripLocks()
	engine := workflow.NewEngine(f.reg, nil)
	docs := NewDocumentStore(memAttachments{f.repo}, f.storage, f.folders, 0, f.logger)
	clock := func() time.Time { return f.now }

	tripSvc := NewTripService(trips, costs, invoices, audits, docs, tx, f.reg, locks, f.logger).(*tripServiceImpl)
	tripSvc.now = clock
	costSvc := NewCostService(trips, costs, docs, tx, f.reg, flagging.NewEngine(f.reg), locks, f.metrics, f.logger).(*costServiceImpl)
	costSvc.now = clock
	workflowSvc := NewWorkflowService(trips, costs, invoices, tx, f.reg, engine, locks, f.metrics, f.logger).(*workflowServiceImpl)
	workflowSvc.now = clock
	auditSvc := NewAuditService(trips, costs, invoices, audits, docs, tx, f.reg, locks, f.metrics, f.logger).(*auditServiceImpl)
	auditSvc.now = clock
	invoiceSvc := NewInvoiceService(trips, costs, invoices, tx, engine, f.notifier, locks, f.metrics, f.logger).(*invoiceServiceImpl)
	invoiceSvc.now = clock
	reportSvc := NewReportService(trips, costs, invoices, engine, f.reports, f.logger,
		fakeRenderer{port.ReportFormatXLSX}, fakeRenderer{port.ReportFormatPDF}).(*reportServiceImpl)
	reportSvc.now = clock

	f.tripSvc, f.costSvc, f.workflowSvc = tripSvc, costSvc, workflowSvc
	f.auditSvc, f.invoiceSvc, f.reportSvc = auditSvc, invoiceSvc, reportSvc
	return f
}

func validTripRequest() TripRequest {
	start := fixedNow.Add(-72 * time.Hour)
	end := fixedNow.Add(-24 * time.Hour)
	return TripRequest{
		FleetNumber:     "21H",
		DriverName:      "Peter",
		ClientName:      "Acme Foods",
		Route:           "Harare - Johannesburg",
		StartDate:       &start,
		EndDate:         &end,
		DistanceKm:      decimal.NewFromInt(1100),
		BaseRevenue:     decimal.NewFromInt(3200),
		RevenueCurrency: "usd",
	}
}

// seedTrip stores a trip directly at the given status and step
func (f *fixture) seedTrip(t *testing.T, status entity.TripStatus, step registry.StepID) *entity.Trip {
	t.Helper()
	start := fixedNow.Add(-72 * time.Hour)
	trip := &entity.Trip{
		ID:              "trip-" + string(status),
		FleetNumber:     "21H",
		DriverName:      "Peter",
		ClientName:      "Acme Foods",
		ClientType:      entity.ClientTypeExternal,
		Route:           "Harare - Johannesburg",
		StartDate:       &start,
		DistanceKm:      decimal.NewFromInt(1100),
		BaseRevenue:     decimal.NewFromInt(3200),
		RevenueCurrency: entity.CurrencyUSD,
		Status:          status,
		WorkflowStep:    string(step),
		ProofOfDelivery: []string{"pod-1"},
		CreatedAt:       fixedNow,
		UpdatedAt:       fixedNow,
	}
	require.NoError(t, memTrips{f.repo}.Create(context.Background(), trip))
	return trip
}

func tollCost() CostInput {
	date := fixedNow.Add(-48 * time.Hour)
	return CostInput{
		Category:        "Tolls",
		SubCategory:     "Tolls BB to JHB",
		Amount:          decimal.NewFromInt(120),
		Currency:        "usd",
		ReferenceNumber: "TOLL-1",
		Date:            &date,
		Attachments:     []string{"receipt-1"},
	}
}
