package http

import (
	"context"
	"errors"

	"github.com/garyjia/trip-finance/internal/application/port"
	"github.com/garyjia/trip-finance/internal/application/service"
	"github.com/garyjia/trip-finance/internal/domain/audit"
	"github.com/garyjia/trip-finance/internal/domain/entity"
	"github.com/garyjia/trip-finance/internal/domain/invoicing"
)

var errNotStubbed = errors.New("not stubbed")

type fakeTrips struct {
	CreateFunc func(ctx context.Context, actor entity.Actor, req service.TripRequest) (*entity.Trip, error)
	GetFunc    func(ctx context.Context, id string) (*service.TripDetail, error)
	ListFunc   func(ctx context.Context, filter port.TripFilter) ([]*entity.Trip, error)
	AttachFunc func(ctx context.Context, actor entity.Actor, id string, upload service.Upload) (*entity.Trip, error)
}

func (f *fakeTrips) Create(ctx context.Context, actor entity.Actor, req service.TripRequest) (*entity.Trip, error) {
	if f.CreateFunc == nil {
		return nil, errNotStubbed
	}
	return f.CreateFunc(ctx, actor, req)
}

func (f *fakeTrips) Get(ctx context.Context, id string) (*service.TripDetail, error) {
	if f.GetFunc == nil {
		return nil, errNotStubbed
	}
	return f.GetFunc(ctx, id)
}

func (f *fakeTrips) List(ctx context.Context, filter port.TripFilter) ([]*entity.Trip, error) {
	if f.ListFunc == nil {
		return nil, errNotStubbed
	}
	return f.ListFunc(ctx, filter)
}

func (f *fakeTrips) UpdateDraft(ctx context.Context, actor entity.Actor, id string, req service.TripRequest) (*entity.Trip, error) {
	return nil, errNotStubbed
}

func (f *fakeTrips) Cancel(ctx context.Context, actor entity.Actor, id string) (*entity.Trip, error) {
	return nil, errNotStubbed
}

func (f *fakeTrips) AttachProofOfDelivery(ctx context.Context, actor entity.Actor, id string, upload service.Upload) (*entity.Trip, error) {
	if f.AttachFunc == nil {
		return nil, errNotStubbed
	}
	return f.AttachFunc(ctx, actor, id, upload)
}

type fakeCosts struct {
	AddCostFunc     func(ctx context.Context, actor entity.Actor, tripID string, in service.CostInput) (*entity.CostEntry, error)
	ListFlaggedFunc func(ctx context.Context, status string, limit, offset int) ([]*entity.CostEntry, error)
}

func (f *fakeCosts) AddCost(ctx context.Context, actor entity.Actor, tripID string, in service.CostInput) (*entity.CostEntry, error) {
	if f.AddCostFunc == nil {
		return nil, errNotStubbed
	}
	return f.AddCostFunc(ctx, actor, tripID, in)
}

func (f *fakeCosts) UpdateCost(ctx context.Context, actor entity.Actor, tripID, costID string, in service.CostInput) (*entity.CostEntry, error) {
	return nil, errNotStubbed
}

func (f *fakeCosts) DeleteCost(ctx context.Context, actor entity.Actor, tripID, costID string) error {
	return errNotStubbed
}

func (f *fakeCosts) AttachDocument(ctx context.Context, actor entity.Actor, tripID, costID string, upload service.Upload) (*entity.CostEntry, error) {
	return nil, errNotStubbed
}

func (f *fakeCosts) GenerateSystemCosts(ctx context.Context, actor entity.Actor, tripID string) ([]*entity.CostEntry, error) {
	return nil, errNotStubbed
}

func (f *fakeCosts) ResolveFlag(ctx context.Context, actor entity.Actor, tripID, costID, note string) (*entity.CostEntry, error) {
	return nil, errNotStubbed
}

func (f *fakeCosts) ListFlagged(ctx context.Context, status string, limit, offset int) ([]*entity.CostEntry, error) {
	if f.ListFlaggedFunc == nil {
		return nil, errNotStubbed
	}
	return f.ListFlaggedFunc(ctx, status, limit, offset)
}

func (f *fakeCosts) Categories() map[string][]string {
	return map[string][]string{"Border Costs": {"Gate fees"}}
}

type fakeWorkflow struct {
	AdvanceFunc func(ctx context.Context, actor entity.Actor, tripID string) (*service.WorkflowState, error)
}

func (f *fakeWorkflow) State(ctx context.Context, tripID string) (*service.WorkflowState, error) {
	return nil, errNotStubbed
}

func (f *fakeWorkflow) Advance(ctx context.Context, actor entity.Actor, tripID string) (*service.WorkflowState, error) {
	if f.AdvanceFunc == nil {
		return nil, errNotStubbed
	}
	return f.AdvanceFunc(ctx, actor, tripID)
}

func (f *fakeWorkflow) Retreat(ctx context.Context, actor entity.Actor, tripID string) (*service.WorkflowState, error) {
	return nil, errNotStubbed
}

type fakeAudit struct {
	DeleteTripFunc func(ctx context.Context, actor entity.Actor, tripID string, req audit.DeletionRequest) (*entity.TripDeletionRecord, error)
}

func (f *fakeAudit) EditCompletedTrip(ctx context.Context, actor entity.Actor, tripID string, req service.TripRequest, j audit.Justification) (*service.EditResult, error) {
	return nil, errNotStubbed
}

func (f *fakeAudit) DeleteTrip(ctx context.Context, actor entity.Actor, tripID string, req audit.DeletionRequest) (*entity.TripDeletionRecord, error) {
	if f.DeleteTripFunc == nil {
		return nil, errNotStubbed
	}
	return f.DeleteTripFunc(ctx, actor, tripID, req)
}

func (f *fakeAudit) History(ctx context.Context, tripID string) ([]*entity.TripEditRecord, error) {
	return nil, errNotStubbed
}

func (f *fakeAudit) DeletionRecords(ctx context.Context, limit, offset int) ([]*entity.TripDeletionRecord, error) {
	return nil, errNotStubbed
}

func (f *fakeAudit) Reasons() service.Reasons {
	return service.Reasons{Edit: []string{"Data entry error"}, Deletion: []string{"Duplicate trip"}}
}

type fakeInvoices struct {
	SendReminderFunc func(ctx context.Context, actor entity.Actor, tripID, note string) (*entity.FollowUp, error)
}

func (f *fakeInvoices) Submit(ctx context.Context, actor entity.Actor, tripID string, req invoicing.SubmitRequest) (*entity.Invoice, error) {
	return nil, errNotStubbed
}

func (f *fakeInvoices) Get(ctx context.Context, tripID string) (*service.InvoiceView, error) {
	return nil, errNotStubbed
}

func (f *fakeInvoices) MarkPaid(ctx context.Context, actor entity.Actor, tripID string, req service.PaymentRequest) (*service.InvoiceView, error) {
	return nil, errNotStubbed
}

func (f *fakeInvoices) SendReminder(ctx context.Context, actor entity.Actor, tripID, note string) (*entity.FollowUp, error) {
	if f.SendReminderFunc == nil {
		return nil, errNotStubbed
	}
	return f.SendReminderFunc(ctx, actor, tripID, note)
}

func (f *fakeInvoices) Escalate(ctx context.Context, actor entity.Actor, tripID, note string) (*entity.FollowUp, error) {
	return nil, errNotStubbed
}

func (f *fakeInvoices) ListOutstanding(ctx context.Context) ([]*service.InvoiceView, error) {
	return nil, nil
}

type fakeReports struct {
	GenerateFunc func(ctx context.Context, actor entity.Actor, tripID string, format port.ReportFormat) (*service.GeneratedReport, error)
}

func (f *fakeReports) Generate(ctx context.Context, actor entity.Actor, tripID string, format port.ReportFormat) (*service.GeneratedReport, error) {
	if f.GenerateFunc == nil {
		return nil, errNotStubbed
	}
	return f.GenerateFunc(ctx, actor, tripID, format)
}

// fakeTokens accepts "<role>-token" for the three known roles
type fakeTokens struct{}

func (fakeTokens) Parse(raw string) (entity.Actor, error) {
	switch raw {
	case "admin-token":
		return entity.Actor{ID: "u-admin", Name: "Ada", Role: entity.RoleAdmin}, nil
	case "operator-token":
		return entity.Actor{ID: "u-op", Name: "Otto", Role: entity.RoleOperator}, nil
	}
	return entity.Actor{}, errors.New("token is invalid")
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}
