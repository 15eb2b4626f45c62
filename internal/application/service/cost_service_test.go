package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/trip-finance/internal/domain/apperr"
	"github.com/garyjia/trip-finance/internal/domain/entity"
	"github.com/garyjia/trip-finance/internal/domain/registry"
)

func TestCostService_AddCost(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(in *CostInput)
		wantFlag   bool
		wantReason string
	}{
		{
			name:   "documented cost is not flagged",
			mutate: func(in *CostInput) {},
		},
		{
			name: "missing receipt with reason",
			mutate: func(in *CostInput) {
				in.Attachments = nil
				in.NoDocumentReason = "Toll booth printer offline"
			},
			wantFlag:   true,
			wantReason: "Missing documentation: Toll booth printer offline",
		},
		{
			name: "high-risk category",
			mutate: func(in *CostInput) {
				in.Category = "Border Costs"
				in.SubCategory = "Gate Pass"
			},
			wantFlag:   true,
			wantReason: "High-risk category: Border Costs - Gate Pass requires review",
		},
		{
			name: "manual flag",
			mutate: func(in *CostInput) {
				in.Flag = true
				in.FlagReason = "Amount looks high"
			},
			wantFlag:   true,
			wantReason: "Amount looks high",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			trip := f.seedTrip(t, entity.TripStatusActive, registry.StepAddCosts)
			in := tollCost()
			tt.mutate(&in)

			entry, err := f.costSvc.AddCost(context.Background(), operator, trip.ID, in)

			require.NoError(t, err)
			assert.Equal(t, "USD", entry.Currency)
			assert.Equal(t, tt.wantFlag, entry.IsFlagged)
			assert.Equal(t, tt.wantReason, entry.FlagReason)
			if tt.wantFlag {
				assert.Equal(t, entity.InvestigationPending, entry.InvestigationStatus)
				assert.Equal(t, "Tendai", entry.FlaggedBy)
				assert.Equal(t, 1, f.metrics.flagged)
			}
			assert.Contains(t, f.repo.costs, entry.ID)
		})
	}
}

func TestCostService_AddCostValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *CostInput)
		field  string
		kind   apperr.Kind
	}{
		{name: "no document and no reason", mutate: func(in *CostInput) { in.Attachments = nil }, field: "documentation", kind: apperr.KindMissingDocumentation},
		{name: "zero amount", mutate: func(in *CostInput) { in.Amount = decimal.Zero }, field: "amount", kind: apperr.KindNotPositive},
		{name: "missing reference", mutate: func(in *CostInput) { in.ReferenceNumber = " " }, field: "reference_number", kind: apperr.KindRequired},
		{name: "missing date", mutate: func(in *CostInput) { in.Date = nil }, field: "date", kind: apperr.KindRequired},
		{name: "reserved category", mutate: func(in *CostInput) { in.Category = entity.CategorySystemCosts }, field: "category", kind: apperr.KindReserved},
		{name: "manual flag without reason", mutate: func(in *CostInput) { in.Flag = true }, field: "flag_reason", kind: apperr.KindRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			trip := f.seedTrip(t, entity.TripStatusActive, registry.StepAddCosts)
			in := tollCost()
			tt.mutate(&in)

			_, err := f.costSvc.AddCost(context.Background(), operator, trip.ID, in)

			var verr *apperr.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.kind, verr.KindOf(tt.field))
			assert.Empty(t, f.repo.costs)
		})
	}
}

func TestCostService_LockedTrip(t *testing.T) {
	f := newFixture(t)
	trip := f.seedTrip(t, entity.TripStatusCompleted, registry.StepSubmitInvoice)

	_, err := f.costSvc.AddCost(context.Background(), operator, trip.ID, tollCost())
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	_, err = f.costSvc.GenerateSystemCosts(context.Background(), operator, trip.ID)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestCostService_ApprovalLimitWarning(t *testing.T) {
	f := newFixture(t)
	trip := f.seedTrip(t, entity.TripStatusActive, registry.StepAddCosts)
	in := tollCost()
	in.Amount = decimal.NewFromInt(7500)

	_, err := f.costSvc.AddCost(context.Background(), operator, trip.ID, in)

	require.NoError(t, err)
	assert.Contains(t, f.logger.warnings, "Cost exceeds approval limit")
}

func TestCostService_UpdateCost(t *testing.T) {
	t.Run("keeps attachments when none are sent", func(t *testing.T) {
		f := newFixture(t)
		trip := f.seedTrip(t, entity.TripStatusActive, registry.StepAddCosts)
		entry, err := f.costSvc.AddCost(context.Background(), operator, trip.ID, tollCost())
		require.NoError(t, err)

		in := tollCost()
		in.Attachments = nil
		in.Amount = decimal.NewFromInt(140)
		updated, err := f.costSvc.UpdateCost(context.Background(), operator, trip.ID, entry.ID, in)

		require.NoError(t, err)
		assert.True(t, updated.Amount.Equal(decimal.NewFromInt(140)))
		assert.Equal(t, []string{"receipt-1"}, updated.Attachments)
		assert.False(t, updated.IsFlagged)
	})

	t.Run("new manual reason reopens the investigation", func(t *testing.T) {
		f := newFixture(t)
		trip := f.seedTrip(t, entity.TripStatusActive, registry.StepAddCosts)
		in := tollCost()
		in.Flag, in.FlagReason = true, "Duplicate receipt?"
		entry, err := f.costSvc.AddCost(context.Background(), operator, trip.ID, in)
		require.NoError(t, err)
		_, err = f.costSvc.ResolveFlag(context.Background(), operator, trip.ID, entry.ID, "Checked with driver")
		require.NoError(t, err)

		in.FlagReason = "Receipt date does not match route"
		updated, err := f.costSvc.UpdateCost(context.Background(), operator, trip.ID, entry.ID, in)

		require.NoError(t, err)
		assert.True(t, updated.IsFlagged)
		assert.False(t, updated.IsResolved)
		assert.Equal(t, "Receipt date does not match route", updated.FlagReason)
	})

	t.Run("cost from another trip", func(t *testing.T) {
		f := newFixture(t)
		trip := f.seedTrip(t, entity.TripStatusActive, registry.StepAddCosts)
		other := f.seedTrip(t, entity.TripStatusDraft, registry.StepCreateTrip)
		entry, err := f.costSvc.AddCost(context.Background(), operator, other.ID, tollCost())
		require.NoError(t, err)

		_, err = f.costSvc.UpdateCost(context.Background(), operator, trip.ID, entry.ID, tollCost())

		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})
}

func TestCostService_DeleteCost(t *testing.T) {
	f := newFixture(t)
	trip := f.seedTrip(t, entity.TripStatusActive, registry.StepGenerateSystemCosts)
	entry, err := f.costSvc.AddCost(context.Background(), operator, trip.ID, tollCost())
	require.NoError(t, err)
	generated, err := f.costSvc.GenerateSystemCosts(context.Background(), operator, trip.ID)
	require.NoError(t, err)
	require.NotEmpty(t, generated)

	err = f.costSvc.DeleteCost(context.Background(), operator, trip.ID, generated[0].ID)
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	require.NoError(t, f.costSvc.DeleteCost(context.Background(), operator, trip.ID, entry.ID))
	assert.NotContains(t, f.repo.costs, entry.ID)
}

func TestCostService_AttachDocumentResolvesMissingDocumentation(t *testing.T) {
	f := newFixture(t)
	trip := f.seedTrip(t, entity.TripStatusActive, registry.StepAddCosts)
	in := tollCost()
	in.Attachments = nil
	in.NoDocumentReason = "Lost receipt"
	entry, err := f.costSvc.AddCost(context.Background(), operator, trip.ID, in)
	require.NoError(t, err)
	require.True(t, entry.IsUnresolvedFlag())

	updated, err := f.costSvc.AttachDocument(context.Background(), operator, trip.ID, entry.ID, Upload{
		FileName:    "receipt.jpg",
		ContentType: "image/jpeg",
		Content:     []byte{0xff, 0xd8},
	})

	require.NoError(t, err)
	assert.Len(t, updated.Attachments, 1)
	assert.True(t, updated.IsFlagged)
	assert.True(t, updated.IsResolved)
	assert.Equal(t, entity.InvestigationResolved, updated.InvestigationStatus)
	assert.Contains(t, updated.InvestigationNotes, "Documentation supplied")
	assert.Equal(t, 1, f.metrics.resolved)
}

func TestCostService_AttachDocumentRemovesFileWhenCommitFails(t *testing.T) {
	f := newFixture(t)
	trip := f.seedTrip(t, entity.TripStatusActive, registry.StepAddCosts)
	entry, err := f.costSvc.AddCost(context.Background(), operator, trip.ID, tollCost())
	require.NoError(t, err)
	f.tx.withTransactionFunc = func(ctx context.Context, fn func(ctx context.Context) error) error {
		if err := fn(ctx); err != nil {
			return err
		}
		return errors.New("commit failed")
	}

	_, err = f.costSvc.AttachDocument(context.Background(), operator, trip.ID, entry.ID, Upload{
		FileName: "receipt.jpg",
		Content:  []byte{0xff, 0xd8},
	})

	require.Error(t, err)
	assert.Empty(t, f.storage.files)
}

func TestCostService_GenerateSystemCostsIsIdempotent(t *testing.T) {
	f := newFixture(t)
	trip := f.seedTrip(t, entity.TripStatusActive, registry.StepGenerateSystemCosts)
	_, err := f.costSvc.AddCost(context.Background(), operator, trip.ID, tollCost())
	require.NoError(t, err)

	first, err := f.costSvc.GenerateSystemCosts(context.Background(), operator, trip.ID)
	require.NoError(t, err)
	second, err := f.costSvc.GenerateSystemCosts(context.Background(), operator, trip.ID)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	assert.Len(t, f.repo.costs, len(second)+1)
	for _, c := range second {
		assert.True(t, c.IsSystemGenerated)
		assert.Equal(t, entity.CategorySystemCosts, c.Category)
		assert.Equal(t, "USD", c.Currency)
	}
}

func TestCostService_ResolveFlag(t *testing.T) {
	f := newFixture(t)
	trip := f.seedTrip(t, entity.TripStatusActive, registry.StepResolveFlags)
	in := tollCost()
	in.Category, in.SubCategory = "Border Costs", "Gate Pass"
	entry, err := f.costSvc.AddCost(context.Background(), operator, trip.ID, in)
	require.NoError(t, err)

	_, err = f.costSvc.ResolveFlag(context.Background(), operator, trip.ID, entry.ID, "  ")
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	resolved, err := f.costSvc.ResolveFlag(context.Background(), operator, trip.ID, entry.ID, "Receipt verified")
	require.NoError(t, err)
	assert.True(t, resolved.IsResolved)
	assert.Equal(t, "Tendai", resolved.ResolvedBy)
	assert.True(t, strings.HasSuffix(resolved.InvestigationNotes, "Resolution: Receipt verified"))

	_, err = f.costSvc.ResolveFlag(context.Background(), operator, trip.ID, entry.ID, "again")
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	queue, err := f.costSvc.ListFlagged(context.Background(), entity.InvestigationResolved, 0, 0)
	require.NoError(t, err)
	assert.Len(t, queue, 1)

	_, err = f.costSvc.ListFlagged(context.Background(), "closed", 0, 0)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}
