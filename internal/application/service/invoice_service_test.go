package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/trip-finance/internal/domain/apperr"
	"github.com/garyjia/trip-finance/internal/domain/entity"
	"github.com/garyjia/trip-finance/internal/domain/invoicing"
	"github.com/garyjia/trip-finance/internal/domain/registry"
)

func submitRequest() invoicing.SubmitRequest {
	return invoicing.SubmitRequest{
		InvoiceDate:       fixedNow.Add(-24 * time.Hour),
		AdditionalCharges: decimal.NewFromInt(150),
		Discount:          decimal.NewFromInt(50),
	}
}

// submittedTrip seeds an invoiced trip whose invoice was raised at invoiceDate
func (f *fixture) submittedTrip(t *testing.T, invoiceDate time.Time) *entity.Trip {
	t.Helper()
	trip := f.seedTrip(t, entity.TripStatusInvoiced, registry.StepTrackPayment)
	req := submitRequest()
	req.InvoiceDate = invoiceDate
	_, err := f.invoiceSvc.Submit(context.Background(), operator, trip.ID, req)
	require.NoError(t, err)
	return trip
}

func TestInvoiceService_Submit(t *testing.T) {
	f := newFixture(t)
	trip := f.seedTrip(t, entity.TripStatusCompleted, registry.StepSubmitInvoice)
	f.repo.invoices["other"] = &entity.Invoice{ID: "inv-0", TripID: "other", InvoiceNumber: "INV-202603-001", InvoiceDate: fixedNow}

	inv, err := f.invoiceSvc.Submit(context.Background(), operator, trip.ID, submitRequest())

	require.NoError(t, err)
	assert.Equal(t, "INV-202603-002", inv.InvoiceNumber)
	assert.True(t, inv.TotalAmount.Equal(decimal.NewFromInt(3300)))
	assert.Equal(t, "USD", inv.Currency)
	assert.Equal(t, []string{"pod-1"}, inv.ProofOfDelivery)
	assert.Equal(t, "Tendai", inv.SubmittedBy)
	assert.Equal(t, entity.PaymentStatusUnpaid, inv.PaymentStatus)
	assert.Equal(t, []string{"submitted"}, f.metrics.invoices)
}

func TestInvoiceService_SubmitKeepsGivenNumber(t *testing.T) {
	f := newFixture(t)
	trip := f.seedTrip(t, entity.TripStatusCompleted, registry.StepSubmitInvoice)
	req := submitRequest()
	req.InvoiceNumber = " ACME-77 "

	inv, err := f.invoiceSvc.Submit(context.Background(), operator, trip.ID, req)

	require.NoError(t, err)
	assert.Equal(t, "ACME-77", inv.InvoiceNumber)
}

func TestInvoiceService_SubmitNeverReusesDeletedNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.seedTrip(t, entity.TripStatusCompleted, registry.StepSubmitInvoice)
	inv, err := f.invoiceSvc.Submit(ctx, operator, first.ID, submitRequest())
	require.NoError(t, err)
	require.Equal(t, "INV-202603-001", inv.InvoiceNumber)
	f.submittedTrip(t, fixedNow.Add(-24*time.Hour))
	require.NoError(t, memTrips{f.repo}.Delete(ctx, first.ID))

	trip := f.seedTrip(t, entity.TripStatusCompleted, registry.StepSubmitInvoice)
	inv, err = f.invoiceSvc.Submit(ctx, operator, trip.ID, submitRequest())

	require.NoError(t, err)
	assert.Equal(t, "INV-202603-003", inv.InvoiceNumber)
}

func TestInvoiceService_SubmitDuplicateNumberConflicts(t *testing.T) {
	f := newFixture(t)
	f.repo.invoices["other"] = &entity.Invoice{ID: "inv-0", TripID: "other", InvoiceNumber: "ACME-77", InvoiceDate: fixedNow}
	trip := f.seedTrip(t, entity.TripStatusCompleted, registry.StepSubmitInvoice)
	req := submitRequest()
	req.InvoiceNumber = "ACME-77"

	_, err := f.invoiceSvc.Submit(context.Background(), operator, trip.ID, req)

	assert.True(t, errors.Is(err, apperr.ErrConflict), "got %v", err)
	assert.Empty(t, f.metrics.invoices)
}

func TestInvoiceService_SubmitRejections(t *testing.T) {
	t.Run("before submit-invoice step", func(t *testing.T) {
		f := newFixture(t)
		trip := f.seedTrip(t, entity.TripStatusActive, registry.StepResolveFlags)

		_, err := f.invoiceSvc.Submit(context.Background(), operator, trip.ID, submitRequest())

		var gerr *apperr.GatingError
		require.True(t, errors.As(err, &gerr), "got %v", err)
		assert.Equal(t, string(registry.StepResolveFlags), gerr.Step)
		assert.Empty(t, f.repo.invoices)
	})

	t.Run("second invoice", func(t *testing.T) {
		f := newFixture(t)
		trip := f.submittedTrip(t, fixedNow)

		_, err := f.invoiceSvc.Submit(context.Background(), operator, trip.ID, submitRequest())

		assert.True(t, errors.Is(err, apperr.ErrConflict))
	})

	t.Run("missing invoice date", func(t *testing.T) {
		f := newFixture(t)
		trip := f.seedTrip(t, entity.TripStatusCompleted, registry.StepSubmitInvoice)
		req := submitRequest()
		req.InvoiceDate = time.Time{}

		_, err := f.invoiceSvc.Submit(context.Background(), operator, trip.ID, req)

		var verr *apperr.ValidationError
		require.True(t, errors.As(err, &verr), "got %v", err)
		assert.Equal(t, apperr.KindRequired, verr.KindOf("invoice_date"))
		assert.Equal(t, apperr.KindRequired, verr.KindOf("invoice_number"))
	})
}

func TestInvoiceService_MarkPaid(t *testing.T) {
	f := newFixture(t)
	trip := f.submittedTrip(t, fixedNow.Add(-10*24*time.Hour))
	paidOn := fixedNow.Add(-24 * time.Hour)

	_, err := f.invoiceSvc.MarkPaid(context.Background(), operator, trip.ID, PaymentRequest{Method: "EFT"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	view, err := f.invoiceSvc.MarkPaid(context.Background(), operator, trip.ID, PaymentRequest{
		PaymentDate: &paidOn,
		Method:      "EFT",
		Reference:   "BANK-991",
	})
	require.NoError(t, err)
	assert.True(t, view.Invoice.IsPaid())
	assert.Equal(t, 9, view.Aging.DaysSinceInvoice)
	assert.False(t, view.Aging.IsOverdue)

	_, err = f.invoiceSvc.MarkPaid(context.Background(), operator, trip.ID, PaymentRequest{PaymentDate: &paidOn, Method: "EFT"})
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	_, err = f.invoiceSvc.SendReminder(context.Background(), operator, trip.ID, "")
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestInvoiceService_SendReminder(t *testing.T) {
	t.Run("delivered", func(t *testing.T) {
		f := newFixture(t)
		trip := f.submittedTrip(t, fixedNow.Add(-40*24*time.Hour))

		fu, err := f.invoiceSvc.SendReminder(context.Background(), operator, trip.ID, " Called accounts ")

		require.NoError(t, err)
		assert.True(t, fu.Delivered)
		assert.Equal(t, "Called accounts", fu.Note)
		require.Len(t, f.notifier.notices, 1)
		notice := f.notifier.notices[0]
		assert.Equal(t, entity.FollowUpReminder, notice.Kind)
		assert.Equal(t, "21H", notice.FleetNumber)
		assert.Equal(t, "3300.00", notice.Amount)
		assert.Equal(t, 10, notice.DaysOverdue)

		view, err := f.invoiceSvc.Get(context.Background(), trip.ID)
		require.NoError(t, err)
		assert.Len(t, view.Invoice.FollowUps, 1)
		assert.True(t, view.Aging.IsOverdue)
	})

	t.Run("notifier failure is recorded undelivered", func(t *testing.T) {
		f := newFixture(t)
		trip := f.submittedTrip(t, fixedNow)
		f.notifier.err = errors.New("lark unavailable")

		fu, err := f.invoiceSvc.SendReminder(context.Background(), operator, trip.ID, "")

		require.NoError(t, err)
		assert.False(t, fu.Delivered)
		assert.Len(t, f.repo.followUps, 1)
	})

	t.Run("no invoice", func(t *testing.T) {
		f := newFixture(t)
		trip := f.seedTrip(t, entity.TripStatusCompleted, registry.StepSubmitInvoice)

		_, err := f.invoiceSvc.SendReminder(context.Background(), operator, trip.ID, "")

		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})
}

func TestInvoiceService_Escalate(t *testing.T) {
	f := newFixture(t)
	trip := f.submittedTrip(t, fixedNow)

	fu, err := f.invoiceSvc.Escalate(context.Background(), operator, trip.ID, "Client disputes toll charges")

	require.NoError(t, err)
	assert.Equal(t, entity.FollowUpEscalation, fu.Type)
	assert.Contains(t, f.logger.warnings, "Escalating invoice that is not overdue")
	assert.Equal(t, []string{"submitted", "escalation"}, f.metrics.invoices)
}

func TestInvoiceService_ListOutstanding(t *testing.T) {
	f := newFixture(t)
	f.submittedTrip(t, fixedNow.Add(-35*24*time.Hour))

	views, err := f.invoiceSvc.ListOutstanding(context.Background())

	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].Aging.IsOverdue)
	assert.Equal(t, 35, views[0].Aging.DaysSinceInvoice)
}
