package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mypropai/manage-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRecurringCharge(t *testing.T) {
	postedOn := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	charge := DueCharge{
		LeaseID:           "lease-1",
		RecurringChargeID: "rc-1",
		Type:              models.RecurringRentCharge,
		Description:       "Monthly rent",
		AmountCents:       150000,
	}

	t.Run("First Posting Of The Day", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO recurring_charge_postings").
			WithArgs("lease-1", "rc-1", postedOn).
			WillReturnResult(sqlmock.NewResult(0, 1))
		// The ledger entry flips the sign: templates hold magnitudes,
		// charges debit.
		mock.ExpectExec("INSERT INTO lease_transactions").
			WithArgs("lease-1", postedOn, "Rent Charge", "Monthly rent", int64(-150000)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewLedgerRepository(db)
		posted, err := repo.PostRecurringCharge(context.Background(), charge, postedOn)
		require.NoError(t, err)
		assert.True(t, posted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rerun Same Day Skips", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO recurring_charge_postings").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		repo := NewLedgerRepository(db)
		posted, err := repo.PostRecurringCharge(context.Background(), charge, postedOn)
		require.NoError(t, err)
		assert.False(t, posted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListDueCharges(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT l.id, rc.id, rc.type, rc.description, rc.amount_cents").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"lease_id", "id", "type", "description", "amount_cents"}).
			AddRow("lease-1", "rc-1", "Rent Charge", "Monthly rent", int64(150000)).
			AddRow("lease-2", "rc-2", "Other Charge", "Parking", int64(10000)))

	repo := NewLedgerRepository(db)
	due, err := repo.ListDueCharges(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, models.RecurringRentCharge, due[0].Type)
	assert.Equal(t, int64(10000), due[1].AmountCents)
}

func TestListLateFeeCandidates(t *testing.T) {
	asOf := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// late_fee_grace_days is an integer and tx_date is timestamptz, which
	// has no integer addition. The query must cast the rent charge date to
	// date before comparing against the grace window.
	mock.ExpectQuery(regexp.QuoteMeta("MIN(tx.tx_date)::date AS due_date")).
		WithArgs(asOf).
		WillReturnRows(sqlmock.NewRows([]string{"id", "due_date", "rent_amount_cents", "balance_cents", "late_fee_type", "late_fee_amount"}).
			AddRow("lease-1", time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), int64(150000), int64(-150000), "Fixed", int64(7500)))

	repo := NewLedgerRepository(db)
	candidates, err := repo.ListLateFeeCandidates(context.Background(), asOf)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "lease-1", candidates[0].LeaseID)
	assert.Equal(t, models.LateFeeFixed, candidates[0].FeeType)
	assert.Equal(t, int64(-150000), candidates[0].BalanceCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostLateFee(t *testing.T) {
	postedOn := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	candidate := LateFeeCandidate{
		LeaseID:   "lease-1",
		DueDate:   time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		RentCents: 150000,
		FeeType:   models.LateFeePercentage,
		FeeAmount: 5,
	}

	t.Run("Percentage Fee", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO late_fee_assessments").
			WithArgs("lease-1", candidate.DueDate).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO lease_transactions").
			WithArgs("lease-1", postedOn, int64(-7500)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewLedgerRepository(db)
		posted, err := repo.PostLateFee(context.Background(), candidate, postedOn)
		require.NoError(t, err)
		assert.True(t, posted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Second Assessment Same Cycle Skips", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO late_fee_assessments").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		repo := NewLedgerRepository(db)
		posted, err := repo.PostLateFee(context.Background(), candidate, postedOn)
		require.NoError(t, err)
		assert.False(t, posted)
	})
}
