package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/mypropai/manage-api/internal/models"
	pkgerrors "github.com/pkg/errors"
)

// DueCharge is a recurring charge template joined with the active lease it
// belongs to, selected because its day of month matches the engine's run day.
type DueCharge struct {
	LeaseID           string
	RecurringChargeID string
	Type              models.RecurringChargeType
	Description       string
	AmountCents       int64
}

// LateFeeCandidate is an active lease with an overdue rent charge this
// month, an outstanding balance, and a late fee policy that applies.
type LateFeeCandidate struct {
	LeaseID      string
	DueDate      time.Time
	RentCents    int64
	BalanceCents int64
	FeeType      models.LateFeeType
	FeeAmount    int64
}

type LedgerRepository interface {
	ListDueCharges(ctx context.Context, dayOfMonth int) ([]DueCharge, error)
	PostRecurringCharge(ctx context.Context, charge DueCharge, postedOn time.Time) (posted bool, err error)
	ListLateFeeCandidates(ctx context.Context, asOf time.Time) ([]LateFeeCandidate, error)
	PostLateFee(ctx context.Context, candidate LateFeeCandidate, postedOn time.Time) (posted bool, err error)
}

type ledgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) ListDueCharges(ctx context.Context, dayOfMonth int) ([]DueCharge, error) {
	const query = `
		SELECT l.id, rc.id, rc.type, rc.description, rc.amount_cents
		FROM recurring_charges rc
		JOIN leases l ON l.id = rc.lease_id
		WHERE rc.day_of_month = $1 AND l.is_active
		ORDER BY l.id, rc.id`

	rows, err := r.db.QueryContext(ctx, query, dayOfMonth)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []DueCharge
	for rows.Next() {
		var c DueCharge
		if err := rows.Scan(&c.LeaseID, &c.RecurringChargeID, &c.Type, &c.Description, &c.AmountCents); err != nil {
			return nil, err
		}
		due = append(due, c)
	}
	return due, rows.Err()
}

// PostRecurringCharge writes the posting marker and the ledger entry in one
// transaction. The marker's primary key (lease, charge, day) makes the write
// idempotent: a rerun for the same calendar day finds the marker already
// present, inserts nothing, and reports posted=false.
func (r *ledgerRepository) PostRecurringCharge(ctx context.Context, charge DueCharge, postedOn time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, pkgerrors.Wrap(err, "failed to begin posting transaction")
	}
	defer tx.Rollback()

	const claim = `
		INSERT INTO recurring_charge_postings (lease_id, recurring_charge_id, posted_on)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`
	result, err := tx.ExecContext(ctx, claim, charge.LeaseID, charge.RecurringChargeID, postedOn)
	if err != nil {
		return false, pkgerrors.Wrap(err, "failed to claim posting")
	}
	claimed, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if claimed == 0 {
		return false, nil
	}

	// Charges debit the ledger regardless of how the template was stored.
	amount := -abs(charge.AmountCents)
	const insert = `
		INSERT INTO lease_transactions (lease_id, tx_date, type, description, amount_cents)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, insert, charge.LeaseID, postedOn, string(charge.Type), charge.Description, amount); err != nil {
		return false, pkgerrors.Wrap(err, "failed to append recurring charge")
	}

	if err := tx.Commit(); err != nil {
		return false, pkgerrors.Wrap(err, "failed to commit posting transaction")
	}
	return true, nil
}

// ListLateFeeCandidates finds active leases whose rent charge for the current
// month has aged past the grace period while the ledger still carries a
// negative balance.
func (r *ledgerRepository) ListLateFeeCandidates(ctx context.Context, asOf time.Time) ([]LateFeeCandidate, error) {
	const query = `
		SELECT l.id, due.due_date, l.rent_amount_cents, bal.balance_cents, l.late_fee_type, l.late_fee_amount
		FROM leases l
		JOIN LATERAL (
			SELECT MIN(tx.tx_date)::date AS due_date
			FROM lease_transactions tx
			WHERE tx.lease_id = l.id
			  AND tx.type = 'Rent Charge'
			  AND date_trunc('month', tx.tx_date) = date_trunc('month', $1::date)
		) due ON due.due_date IS NOT NULL
		JOIN LATERAL (
			SELECT COALESCE(SUM(tx.amount_cents), 0) AS balance_cents
			FROM lease_transactions tx
			WHERE tx.lease_id = l.id
		) bal ON TRUE
		WHERE l.is_active
		  AND l.late_fee_applies
		  AND due.due_date + l.late_fee_grace_days < $1::date
		  AND bal.balance_cents < 0
		ORDER BY l.id`

	rows, err := r.db.QueryContext(ctx, query, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []LateFeeCandidate
	for rows.Next() {
		var c LateFeeCandidate
		if err := rows.Scan(&c.LeaseID, &c.DueDate, &c.RentCents, &c.BalanceCents, &c.FeeType, &c.FeeAmount); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// PostLateFee mirrors PostRecurringCharge: the assessment marker keyed by
// (lease, due date) caps the fee at one per rent cycle.
func (r *ledgerRepository) PostLateFee(ctx context.Context, candidate LateFeeCandidate, postedOn time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, pkgerrors.Wrap(err, "failed to begin late fee transaction")
	}
	defer tx.Rollback()

	const claim = `
		INSERT INTO late_fee_assessments (lease_id, due_date)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`
	result, err := tx.ExecContext(ctx, claim, candidate.LeaseID, candidate.DueDate)
	if err != nil {
		return false, pkgerrors.Wrap(err, "failed to claim late fee assessment")
	}
	claimed, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if claimed == 0 {
		return false, nil
	}

	policy := models.LateFeePolicy{Applies: true, FeeType: candidate.FeeType, Amount: candidate.FeeAmount}
	fee := policy.FeeCents(candidate.RentCents)
	const insert = `
		INSERT INTO lease_transactions (lease_id, tx_date, type, description, amount_cents)
		VALUES ($1, $2, 'Late Fee', 'Late fee', $3)`
	if _, err := tx.ExecContext(ctx, insert, candidate.LeaseID, postedOn, -abs(fee)); err != nil {
		return false, pkgerrors.Wrap(err, "failed to append late fee")
	}

	if err := tx.Commit(); err != nil {
		return false, pkgerrors.Wrap(err, "failed to commit late fee transaction")
	}
	return true, nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
