package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/trip-finance/internal/domain/apperr"
	"github.com/garyjia/trip-finance/internal/domain/entity"
)

func TestAuditRepository_ListEdits(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewAuditRepository(db, zap.NewNop())

	rows := sqlmock.NewRows([]string{"id", "trip_id", "edited_by", "edited_at", "reason", "field_changed", "old_value", "new_value", "change_type"}).
		AddRow("e-1", "trip-1", "Admin", repoNow, "Client correction", "route", "Harare - Beira", "Harare - Mutare", "update").
		AddRow("e-2", "trip-1", "Admin", repoNow, "Client correction", "base_revenue", "3200.00", "3500.00", "update")
	mock.ExpectQuery("FROM trip_edit_records WHERE trip_id = \\? ORDER BY edited_at ASC").
		WithArgs("trip-1").
		WillReturnRows(rows)

	records, err := repo.ListEdits(context.Background(), "trip-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "route", records[0].FieldChanged)
	assert.Equal(t, "3500.00", records[1].NewValue)
}

func TestAuditRepository_CreateDeletion(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewAuditRepository(db, zap.NewNop())

	mock.ExpectExec("INSERT INTO trip_deletion_records").
		WithArgs("d-1", "trip-1", "21H", "Admin", repoNow, "Duplicate entry", "{}", "3200", "45.5", 1, 1).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateDeletion(context.Background(), &entity.TripDeletionRecord{
		ID:                "d-1",
		TripID:            "trip-1",
		FleetNumber:       "21H",
		DeletedBy:         "Admin",
		DeletedAt:         repoNow,
		Reason:            "Duplicate entry",
		TripData:          "{}",
		TotalRevenue:      decimal.RequireFromString("3200"),
		TotalCosts:        decimal.RequireFromString("45.5"),
		CostEntriesCount:  1,
		FlaggedItemsCount: 1,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_GetDeletion(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewAuditRepository(db, zap.NewNop())

	mock.ExpectQuery("FROM trip_deletion_records WHERE trip_id = ?").
		WithArgs("trip-1").
		WillReturnRows(sqlmock.NewRows(columnList(deletionColumns)).
			AddRow("d-1", "trip-1", "21H", "Admin", repoNow, "Duplicate entry", "{}", "3200", "45.5", int64(1), int64(1)))

	record, err := repo.GetDeletion(context.Background(), "trip-1")
	require.NoError(t, err)
	assert.Equal(t, "21H", record.FleetNumber)
	assert.True(t, record.TotalCosts.Equal(decimal.RequireFromString("45.5")))
	assert.Equal(t, 1, record.FlaggedItemsCount)
}

func TestAuditRepository_GetDeletionMissing(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewAuditRepository(db, zap.NewNop())

	mock.ExpectQuery("FROM trip_deletion_records").
		WithArgs("trip-9").
		WillReturnRows(sqlmock.NewRows(columnList(deletionColumns)))

	_, err := repo.GetDeletion(context.Background(), "trip-9")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}
