package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/mypropai/manage-api/internal/apperr"
	"github.com/mypropai/manage-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendTransaction(t *testing.T) {
	txDate := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Active Lease", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("INSERT INTO lease_transactions").
			WithArgs("lease-1", txDate, models.TxRentPayment, "March rent", int64(150000)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "lease_id", "tx_date", "created_at"}).
				AddRow("tx-1", "lease-1", txDate, time.Now()))

		repo := NewLeaseRepository(db)
		transaction, err := repo.AppendTransaction(context.Background(), "lease-1", models.Transaction{
			Date:        txDate,
			Type:        models.TxRentPayment,
			Description: "March rent",
			AmountCents: 150000,
		})
		require.NoError(t, err)
		assert.Equal(t, "tx-1", transaction.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Terminated Lease", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("INSERT INTO lease_transactions").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("SELECT is_active FROM leases").
			WithArgs("lease-1").
			WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(false))

		repo := NewLeaseRepository(db)
		_, err = repo.AppendTransaction(context.Background(), "lease-1", models.Transaction{
			Date:        txDate,
			Type:        models.TxRentCharge,
			AmountCents: -150000,
		})
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindValidation))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown Lease", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("INSERT INTO lease_transactions").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("SELECT is_active FROM leases").
			WillReturnError(sql.ErrNoRows)

		repo := NewLeaseRepository(db)
		_, err = repo.AppendTransaction(context.Background(), "missing", models.Transaction{
			Type:        models.TxRentCharge,
			Date:        txDate,
			AmountCents: -150000,
		})
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})
}

func TestOriginateLease(t *testing.T) {
	params := OriginateLeaseParams{
		UnitID: "unit-1",
		Tenant: TenantInfo{FullName: "Dana Moore", Email: "dana@example.com"},
		StartDate:       time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC),
		RentAmountCents: 150000,
	}

	t.Run("Occupied Unit Conflicts", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT u.property_id, u.status, p.user_id").
			WithArgs("unit-1").
			WillReturnRows(sqlmock.NewRows([]string{"property_id", "status", "user_id"}).
				AddRow("prop-1", "Occupied", "user-1"))
		mock.ExpectRollback()

		repo := NewLeaseRepository(db)
		_, _, err = repo.OriginateLease(context.Background(), params)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindConflict))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown Unit", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT u.property_id, u.status, p.user_id").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		repo := NewLeaseRepository(db)
		_, _, err = repo.OriginateLease(context.Background(), params)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	t.Run("Vacant Unit Commits Tenant Lease And Occupancy", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		now := time.Now()
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT u.property_id, u.status, p.user_id").
			WithArgs("unit-1").
			WillReturnRows(sqlmock.NewRows([]string{"property_id", "status", "user_id"}).
				AddRow("prop-1", "Vacant", "user-1"))
		mock.ExpectQuery("INSERT INTO tenants").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow("tenant-1", now, now))
		mock.ExpectQuery("INSERT INTO leases").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow("lease-1", now, now))
		mock.ExpectExec("UPDATE units").
			WithArgs("unit-1", "lease-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewLeaseRepository(db)
		lease, tenant, err := repo.OriginateLease(context.Background(), params)
		require.NoError(t, err)
		assert.Equal(t, "lease-1", lease.ID)
		assert.Equal(t, "tenant-1", tenant.ID)
		assert.Equal(t, "prop-1", tenant.PropertyID)
		assert.True(t, lease.IsActive)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReplaceRecurringCharges(t *testing.T) {
	t.Run("Unchanged Template Keeps Its Row", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("lease-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery("SELECT id, lease_id, day_of_month").
			WithArgs("lease-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "lease_id", "day_of_month", "type", "description", "amount_cents"}).
				AddRow("rc-1", "lease-1", 1, "Rent Charge", "Monthly rent", int64(150000)).
				AddRow("rc-2", "lease-1", 1, "Other Charge", "Parking", int64(10000)))
		// Only the new template is inserted; the unchanged rent row stays,
		// so its posting markers are untouched.
		mock.ExpectQuery("INSERT INTO recurring_charges").
			WithArgs("lease-1", 5, models.RecurringOtherCharge, "Storage", int64(5000)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("rc-3"))
		mock.ExpectExec("DELETE FROM recurring_charges WHERE id = ANY").
			WithArgs(pq.Array([]string{"rc-2"})).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewLeaseRepository(db)
		result, err := repo.ReplaceRecurringCharges(context.Background(), "lease-1", []models.RecurringCharge{
			{Type: models.RecurringRentCharge, Description: "Monthly rent", AmountCents: 150000, DayOfMonth: 1},
			{Type: models.RecurringOtherCharge, Description: "Storage", AmountCents: 5000, DayOfMonth: 5},
		})
		require.NoError(t, err)
		require.Len(t, result, 2)
		assert.Equal(t, "rc-1", result[0].ID)
		assert.Equal(t, "rc-3", result[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown Lease", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("lease-404").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectRollback()

		repo := NewLeaseRepository(db)
		_, err = repo.ReplaceRecurringCharges(context.Background(), "lease-404", nil)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})
}

func TestTerminateLease(t *testing.T) {
	t.Run("Archives Lease And Vacates Unit", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE leases").
			WithArgs("lease-1").
			WillReturnRows(sqlmock.NewRows([]string{"unit_id"}).AddRow("unit-1"))
		mock.ExpectExec("UPDATE units").
			WithArgs("unit-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewLeaseRepository(db)
		require.NoError(t, repo.TerminateLease(context.Background(), "lease-1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Terminated", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE leases").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("SELECT EXISTS").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		repo := NewLeaseRepository(db)
		err = repo.TerminateLease(context.Background(), "lease-1")
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindConflict))
	})
}
