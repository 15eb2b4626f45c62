package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/trip-finance/internal/application/port"
	"github.com/garyjia/trip-finance/internal/domain/apperr"
	"github.com/garyjia/trip-finance/internal/domain/entity"
	"github.com/garyjia/trip-finance/internal/domain/registry"
)

func TestTripService_Create(t *testing.T) {
	f := newFixture(t)

	trip, err := f.tripSvc.Create(context.Background(), operator, validTripRequest())

	require.NoError(t, err)
	assert.NotEmpty(t, trip.ID)
	assert.Equal(t, entity.TripStatusDraft, trip.Status)
	assert.Equal(t, string(registry.StepCreateTrip), trip.WorkflowStep)
	assert.Equal(t, entity.CurrencyUSD, trip.RevenueCurrency)
	assert.Equal(t, entity.ClientTypeExternal, trip.ClientType)
	assert.Equal(t, "Tendai", trip.CreatedBy)
	assert.Contains(t, f.repo.trips, trip.ID)
}

func TestTripService_CreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *TripRequest)
		field  string
		kind   apperr.Kind
	}{
		{name: "missing fleet", mutate: func(r *TripRequest) { r.FleetNumber = "" }, field: "fleet_number", kind: apperr.KindRequired},
		{name: "missing route", mutate: func(r *TripRequest) { r.Route = "" }, field: "route", kind: apperr.KindRequired},
		{name: "unsupported currency", mutate: func(r *TripRequest) { r.RevenueCurrency = "EUR" }, field: "revenue_currency", kind: apperr.KindInvalid},
		{name: "bad client type", mutate: func(r *TripRequest) { r.ClientType = "partner" }, field: "client_type", kind: apperr.KindInvalid},
		{
			name: "end before start",
			mutate: func(r *TripRequest) {
				r.EndDate, r.StartDate = r.StartDate, r.EndDate
			},
			field: "end_date",
			kind:  apperr.KindOutOfOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := validTripRequest()
			tt.mutate(&req)

			_, err := f.tripSvc.Create(context.Background(), operator, req)

			var verr *apperr.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.kind, verr.KindOf(tt.field))
			assert.Empty(t, f.repo.trips)
		})
	}
}

func TestTripService_Get(t *testing.T) {
	f := newFixture(t)
	trip := f.seedTrip(t, entity.TripStatusActive, registry.StepAddCosts)
	_, err := f.costSvc.AddCost(context.Background(), operator, trip.ID, tollCost())
	require.NoError(t, err)

	detail, err := f.tripSvc.Get(context.Background(), trip.ID)

	require.NoError(t, err)
	assert.Len(t, detail.Trip.Costs, 1)
	assert.Nil(t, detail.Invoice)
}

func TestTripService_GetMissing(t *testing.T) {
	f := newFixture(t)

	_, err := f.tripSvc.Get(context.Background(), "nope")

	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestTripService_List(t *testing.T) {
	f := newFixture(t)
	f.seedTrip(t, entity.TripStatusActive, registry.StepAddCosts)
	f.seedTrip(t, entity.TripStatusCompleted, registry.StepSubmitInvoice)

	trips, err := f.tripSvc.List(context.Background(), port.TripFilter{Status: entity.TripStatusCompleted})
	require.NoError(t, err)
	assert.Len(t, trips, 1)

	_, err = f.tripSvc.List(context.Background(), port.TripFilter{Status: "archived"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestTripService_UpdateDraft(t *testing.T) {
	t.Run("updates an active trip", func(t *testing.T) {
		f := newFixture(t)
		trip := f.seedTrip(t, entity.TripStatusActive, registry.StepAddCosts)
		req := validTripRequest()
		req.Route = "Harare - Durban"

		updated, err := f.tripSvc.UpdateDraft(context.Background(), operator, trip.ID, req)

		require.NoError(t, err)
		assert.Equal(t, "Harare - Durban", updated.Route)
		assert.Empty(t, f.repo.edits)
	})

	t.Run("completed trips need the audited edit", func(t *testing.T) {
		f := newFixture(t)
		trip := f.seedTrip(t, entity.TripStatusCompleted, registry.StepSubmitInvoice)

		_, err := f.tripSvc.UpdateDraft(context.Background(), operator, trip.ID, validTripRequest())

		assert.True(t, errors.Is(err, apperr.ErrConflict))
	})
}

func TestTripService_Cancel(t *testing.T) {
	tests := []struct {
		status  entity.TripStatus
		wantErr bool
	}{
		{status: entity.TripStatusDraft},
		{status: entity.TripStatusActive},
		{status: entity.TripStatusCompleted, wantErr: true},
		{status: entity.TripStatusPaid, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			f := newFixture(t)
			trip := f.seedTrip(t, tt.status, registry.StepAddCosts)

			cancelled, err := f.tripSvc.Cancel(context.Background(), operator, trip.ID)

			if tt.wantErr {
				assert.True(t, errors.Is(err, apperr.ErrConflict))
				assert.Equal(t, tt.status, f.repo.trips[trip.ID].Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, entity.TripStatusCancelled, cancelled.Status)
		})
	}
}

func TestTripService_AttachProofOfDelivery(t *testing.T) {
	f := newFixture(t)
	trip := f.seedTrip(t, entity.TripStatusActive, registry.StepCompleteTrip)

	updated, err := f.tripSvc.AttachProofOfDelivery(context.Background(), operator, trip.ID, Upload{
		FileName:    "signed pod.pdf",
		ContentType: "application/pdf",
		Content:     []byte("%PDF-1.4"),
	})

	require.NoError(t, err)
	require.Len(t, updated.ProofOfDelivery, 2)
	att := f.repo.attachments[updated.ProofOfDelivery[1]]
	require.NotNil(t, att)
	assert.Equal(t, entity.AttachmentOwnerTrip, att.OwnerType)
	assert.True(t, f.storage.Exists(context.Background(), att.StoragePath))
	assert.Contains(t, f.folders.created, trip.ID)
}

func TestTripService_AttachRemovesFileWhenUpdateFails(t *testing.T) {
	f := newFixture(t)
	trip := f.seedTrip(t, entity.TripStatusActive, registry.StepCompleteTrip)
	f.repo.updateTripFunc = func(ctx context.Context, trip *entity.Trip) error {
		return errors.New("database is locked")
	}

	_, err := f.tripSvc.AttachProofOfDelivery(context.Background(), operator, trip.ID, Upload{
		FileName: "pod.pdf",
		Content:  []byte("%PDF-1.4"),
	})

	require.Error(t, err)
	assert.Empty(t, f.storage.files)
}

func TestTripService_AttachEmptyDocument(t *testing.T) {
	f := newFixture(t)
	trip := f.seedTrip(t, entity.TripStatusActive, registry.StepCompleteTrip)

	_, err := f.tripSvc.AttachProofOfDelivery(context.Background(), operator, trip.ID, Upload{FileName: "pod.pdf"})

	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestTripLocks_Serializes(t *testing.T) {
	locks := NewTripLocks()
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("trip-1")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Empty(t, locks.locks)
}
