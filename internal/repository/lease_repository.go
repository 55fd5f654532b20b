package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/mypropai/manage-api/internal/apperr"
	"github.com/mypropai/manage-api/internal/models"
	pkgerrors "github.com/pkg/errors"
)

// TenantInfo is the landlord-supplied identity for a new renter.
type TenantInfo struct {
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	ContactNotes string `json:"contact_notes"`
}

// OriginateLeaseParams is the input to the lease origination transaction.
type OriginateLeaseParams struct {
	UnitID               string
	Tenant               TenantInfo
	StartDate            time.Time
	EndDate              time.Time
	RentAmountCents      int64
	SecurityDepositCents int64
	LateFeePolicy        models.LateFeePolicy
	Notes                string
	RecurringCharges     []models.RecurringCharge
}

// TermUpdate carries a partial update of lease terms. Nil means "leave
// unchanged".
type TermUpdate struct {
	StartDate            *time.Time
	EndDate              *time.Time
	RentAmountCents      *int64
	SecurityDepositCents *int64
	Notes                *string
	LateFeeApplies       *bool
	LateFeeType          *models.LateFeeType
	LateFeeAmount        *int64
	LateFeeGraceDays     *int
}

// CommunicationUpdate carries a partial edit of a communication entry.
type CommunicationUpdate struct {
	Subject *string
	Notes   *string
	Status  *models.CommunicationStatus
}

type LeaseRepository interface {
	OriginateLease(ctx context.Context, params OriginateLeaseParams) (models.Lease, models.Tenant, error)
	GetLease(ctx context.Context, id string) (models.Lease, error)
	GetActiveLeaseByTenant(ctx context.Context, tenantID string) (models.Lease, error)
	AppendTransaction(ctx context.Context, leaseID string, t models.Transaction) (models.Transaction, error)
	UpdateLeaseTerms(ctx context.Context, leaseID string, update TermUpdate) error
	ReplaceRecurringCharges(ctx context.Context, leaseID string, charges []models.RecurringCharge) ([]models.RecurringCharge, error)
	TerminateLease(ctx context.Context, leaseID string) error

	AddCommunication(ctx context.Context, comm models.Communication) (models.Communication, error)
	UpdateCommunication(ctx context.Context, leaseID, commID string, update CommunicationUpdate) (models.Communication, error)
	DeleteCommunication(ctx context.Context, leaseID, commID string) error
}

type leaseRepository struct {
	db *sql.DB
}

func NewLeaseRepository(db *sql.DB) LeaseRepository {
	return &leaseRepository{db: db}
}

// OriginateLease creates the tenant and lease and flips the unit to Occupied
// in a single transaction, holding a row lock on the unit so two concurrent
// originations cannot both observe it vacant. Portal account creation is NOT
// part of this transaction; it is a best-effort step owned by the handler.
func (r *leaseRepository) OriginateLease(ctx context.Context, params OriginateLeaseParams) (models.Lease, models.Tenant, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Lease{}, models.Tenant{}, pkgerrors.Wrap(err, "failed to begin origination transaction")
	}
	defer tx.Rollback() // Rollback is a no-op if Commit() is called

	var (
		propertyID string
		ownerID    string
		status     models.UnitStatus
	)
	const lockUnit = `
		SELECT u.property_id, u.status, p.user_id
		FROM units u
		JOIN managed_properties p ON p.id = u.property_id
		WHERE u.id = $1
		FOR UPDATE OF u`
	err = tx.QueryRowContext(ctx, lockUnit, params.UnitID).Scan(&propertyID, &status, &ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Lease{}, models.Tenant{}, apperr.NotFound("unit not found")
		}
		return models.Lease{}, models.Tenant{}, err
	}
	if status != models.UnitStatusVacant {
		return models.Lease{}, models.Tenant{}, apperr.Conflict("unit is not vacant")
	}

	tenant := models.Tenant{
		PropertyID:   propertyID,
		UserID:       ownerID,
		FullName:     params.Tenant.FullName,
		Email:        params.Tenant.Email,
		Phone:        params.Tenant.Phone,
		ContactNotes: params.Tenant.ContactNotes,
	}
	const insertTenant = `
		INSERT INTO tenants (property_id, user_id, full_name, email, phone, contact_notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	err = tx.QueryRowContext(ctx, insertTenant,
		tenant.PropertyID, tenant.UserID, tenant.FullName, tenant.Email, tenant.Phone, tenant.ContactNotes,
	).Scan(&tenant.ID, &tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		return models.Lease{}, models.Tenant{}, pkgerrors.Wrap(err, "failed to create tenant")
	}

	lease := models.Lease{
		UnitID:               params.UnitID,
		TenantID:             tenant.ID,
		StartDate:            params.StartDate,
		EndDate:              params.EndDate,
		RentAmountCents:      params.RentAmountCents,
		SecurityDepositCents: params.SecurityDepositCents,
		LateFeePolicy:        params.LateFeePolicy,
		IsActive:             true,
		Notes:                params.Notes,
	}
	const insertLease = `
		INSERT INTO leases (unit_id, tenant_id, start_date, end_date, rent_amount_cents, security_deposit_cents,
		                    late_fee_applies, late_fee_type, late_fee_amount, late_fee_grace_days, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`
	err = tx.QueryRowContext(ctx, insertLease,
		lease.UnitID, lease.TenantID, lease.StartDate, lease.EndDate,
		lease.RentAmountCents, lease.SecurityDepositCents,
		lease.LateFeePolicy.Applies, lease.LateFeePolicy.FeeType, lease.LateFeePolicy.Amount, lease.LateFeePolicy.GraceDays,
		lease.Notes,
	).Scan(&lease.ID, &lease.CreatedAt, &lease.UpdatedAt)
	if err != nil {
		return models.Lease{}, models.Tenant{}, pkgerrors.Wrap(err, "failed to create lease")
	}

	for _, charge := range params.RecurringCharges {
		inserted, err := insertRecurringCharge(ctx, tx, lease.ID, charge)
		if err != nil {
			return models.Lease{}, models.Tenant{}, pkgerrors.Wrap(err, "failed to create recurring charge")
		}
		lease.RecurringCharges = append(lease.RecurringCharges, inserted)
	}

	const occupyUnit = `
		UPDATE units
		SET status = 'Occupied', current_lease_id = $2, updated_at = now()
		WHERE id = $1`
	if _, err := tx.ExecContext(ctx, occupyUnit, params.UnitID, lease.ID); err != nil {
		return models.Lease{}, models.Tenant{}, pkgerrors.Wrap(err, "failed to mark unit occupied")
	}

	if err := tx.Commit(); err != nil {
		return models.Lease{}, models.Tenant{}, pkgerrors.Wrap(err, "failed to commit origination transaction")
	}

	lease.Tenant = &tenant
	return lease, tenant, nil
}

func (r *leaseRepository) GetLease(ctx context.Context, id string) (models.Lease, error) {
	lease, err := r.leaseRow(ctx, `l.id = $1`, id)
	if err != nil {
		return models.Lease{}, err
	}
	return r.loadAggregate(ctx, lease)
}

func (r *leaseRepository) GetActiveLeaseByTenant(ctx context.Context, tenantID string) (models.Lease, error) {
	lease, err := r.leaseRow(ctx, `l.tenant_id = $1 AND l.is_active`, tenantID)
	if err != nil {
		return models.Lease{}, err
	}
	return r.loadAggregate(ctx, lease)
}

func (r *leaseRepository) leaseRow(ctx context.Context, where, arg string) (models.Lease, error) {
	query := `
		SELECT l.id, l.unit_id, l.tenant_id, l.start_date, l.end_date,
		       l.rent_amount_cents, l.security_deposit_cents,
		       l.late_fee_applies, l.late_fee_type, l.late_fee_amount, l.late_fee_grace_days,
		       l.is_active, l.notes, l.created_at, l.updated_at,
		       t.id, t.property_id, t.user_id, t.full_name, t.email, t.phone, t.contact_notes, t.created_at, t.updated_at
		FROM leases l
		JOIN tenants t ON t.id = l.tenant_id
		WHERE ` + where

	var (
		lease  models.Lease
		tenant models.Tenant
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&lease.ID, &lease.UnitID, &lease.TenantID, &lease.StartDate, &lease.EndDate,
		&lease.RentAmountCents, &lease.SecurityDepositCents,
		&lease.LateFeePolicy.Applies, &lease.LateFeePolicy.FeeType, &lease.LateFeePolicy.Amount, &lease.LateFeePolicy.GraceDays,
		&lease.IsActive, &lease.Notes, &lease.CreatedAt, &lease.UpdatedAt,
		&tenant.ID, &tenant.PropertyID, &tenant.UserID, &tenant.FullName, &tenant.Email, &tenant.Phone, &tenant.ContactNotes, &tenant.CreatedAt, &tenant.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Lease{}, apperr.NotFound("lease not found")
		}
		return models.Lease{}, err
	}
	lease.Tenant = &tenant
	return lease, nil
}

func (r *leaseRepository) loadAggregate(ctx context.Context, lease models.Lease) (models.Lease, error) {
	transactions, err := r.listTransactions(ctx, lease.ID)
	if err != nil {
		return models.Lease{}, pkgerrors.Wrap(err, "failed to load transactions")
	}
	lease.Transactions = transactions

	charges, err := listRecurringCharges(ctx, r.db, lease.ID)
	if err != nil {
		return models.Lease{}, pkgerrors.Wrap(err, "failed to load recurring charges")
	}
	lease.RecurringCharges = charges

	communications, err := r.listCommunications(ctx, lease.ID)
	if err != nil {
		return models.Lease{}, pkgerrors.Wrap(err, "failed to load communications")
	}
	lease.Communications = communications

	return lease, nil
}

func (r *leaseRepository) listTransactions(ctx context.Context, leaseID string) ([]models.Transaction, error) {
	const query = `
		SELECT id, lease_id, tx_date, type, description, amount_cents, created_at
		FROM lease_transactions
		WHERE lease_id = $1
		ORDER BY tx_date, created_at`

	rows, err := r.db.QueryContext(ctx, query, leaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.LeaseID, &t.Date, &t.Type, &t.Description, &t.AmountCents, &t.CreatedAt); err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

// queryer covers *sql.DB and *sql.Tx for reads that run in either scope.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func listRecurringCharges(ctx context.Context, q queryer, leaseID string) ([]models.RecurringCharge, error) {
	const query = `
		SELECT id, lease_id, day_of_month, type, description, amount_cents
		FROM recurring_charges
		WHERE lease_id = $1
		ORDER BY day_of_month, description`

	rows, err := q.QueryContext(ctx, query, leaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var charges []models.RecurringCharge
	for rows.Next() {
		var c models.RecurringCharge
		if err := rows.Scan(&c.ID, &c.LeaseID, &c.DayOfMonth, &c.Type, &c.Description, &c.AmountCents); err != nil {
			return nil, err
		}
		charges = append(charges, c)
	}
	return charges, rows.Err()
}

func (r *leaseRepository) listCommunications(ctx context.Context, leaseID string) ([]models.Communication, error) {
	const query = `
		SELECT id, lease_id, comm_date, subject, notes, category, status, author, attachment_url, attachment_id
		FROM lease_communications
		WHERE lease_id = $1
		ORDER BY comm_date DESC`

	rows, err := r.db.QueryContext(ctx, query, leaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var communications []models.Communication
	for rows.Next() {
		var c models.Communication
		if err := rows.Scan(&c.ID, &c.LeaseID, &c.Date, &c.Subject, &c.Notes, &c.Category, &c.Status, &c.Author, &c.AttachmentURL, &c.AttachmentID); err != nil {
			return nil, err
		}
		communications = append(communications, c)
	}
	return communications, rows.Err()
}

// AppendTransaction adds a ledger entry to an active lease. The ledger is
// append-only: nothing in this repository mutates or removes prior entries.
func (r *leaseRepository) AppendTransaction(ctx context.Context, leaseID string, t models.Transaction) (models.Transaction, error) {
	const query = `
		INSERT INTO lease_transactions (lease_id, tx_date, type, description, amount_cents)
		SELECT l.id, $2, $3, $4, $5
		FROM leases l
		WHERE l.id = $1 AND l.is_active
		RETURNING id, lease_id, tx_date, created_at`

	err := r.db.QueryRowContext(ctx, query, leaseID, t.Date, t.Type, t.Description, t.AmountCents).
		Scan(&t.ID, &t.LeaseID, &t.Date, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Transaction{}, r.classifyMissingLease(ctx, leaseID)
		}
		return models.Transaction{}, err
	}
	return t, nil
}

// classifyMissingLease distinguishes an absent lease from a terminated one.
func (r *leaseRepository) classifyMissingLease(ctx context.Context, leaseID string) error {
	var isActive bool
	err := r.db.QueryRowContext(ctx, `SELECT is_active FROM leases WHERE id = $1`, leaseID).Scan(&isActive)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("lease not found")
	}
	if err != nil {
		return err
	}
	return apperr.Validation("lease is not active")
}

func (r *leaseRepository) UpdateLeaseTerms(ctx context.Context, leaseID string, update TermUpdate) error {
	const query = `
		UPDATE leases
		SET start_date             = COALESCE($2, start_date),
		    end_date               = COALESCE($3, end_date),
		    rent_amount_cents      = COALESCE($4, rent_amount_cents),
		    security_deposit_cents = COALESCE($5, security_deposit_cents),
		    notes                  = COALESCE($6, notes),
		    late_fee_applies       = COALESCE($7, late_fee_applies),
		    late_fee_type          = COALESCE($8, late_fee_type),
		    late_fee_amount        = COALESCE($9, late_fee_amount),
		    late_fee_grace_days    = COALESCE($10, late_fee_grace_days),
		    updated_at             = now()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, leaseID,
		update.StartDate, update.EndDate, update.RentAmountCents, update.SecurityDepositCents, update.Notes,
		update.LateFeeApplies, update.LateFeeType, update.LateFeeAmount, update.LateFeeGraceDays,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.NotFound("lease not found")
	}
	return nil
}

// ReplaceRecurringCharges swaps the full template set in one transaction.
// Callers validate every entry first; by the time this runs the replacement
// is all-or-nothing at the storage level too. Templates identical to an
// existing row keep that row, so their posting markers survive and a charge
// already posted today is not posted again after the replacement.
func (r *leaseRepository) ReplaceRecurringCharges(ctx context.Context, leaseID string, charges []models.RecurringCharge) ([]models.RecurringCharge, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to begin replacement transaction")
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM leases WHERE id = $1)`, leaseID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFound("lease not found")
	}

	existing, err := listRecurringCharges(ctx, tx, leaseID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load recurring charges")
	}

	kept := make(map[string]bool, len(existing))
	result := make([]models.RecurringCharge, 0, len(charges))
	for _, charge := range charges {
		if match := matchRecurringCharge(existing, kept, charge); match != nil {
			kept[match.ID] = true
			result = append(result, *match)
			continue
		}
		c, err := insertRecurringCharge(ctx, tx, leaseID, charge)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to insert recurring charge")
		}
		result = append(result, c)
	}

	var removed []string
	for _, e := range existing {
		if !kept[e.ID] {
			removed = append(removed, e.ID)
		}
	}
	if len(removed) > 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM recurring_charges WHERE id = ANY($1)`, pq.Array(removed)); err != nil {
			return nil, pkgerrors.Wrap(err, "failed to clear recurring charges")
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to commit replacement transaction")
	}
	return result, nil
}

// matchRecurringCharge finds an existing row with the same fields as the
// incoming template that is not already claimed by an earlier entry.
func matchRecurringCharge(existing []models.RecurringCharge, kept map[string]bool, charge models.RecurringCharge) *models.RecurringCharge {
	for i := range existing {
		e := &existing[i]
		if kept[e.ID] {
			continue
		}
		if e.DayOfMonth == charge.DayOfMonth && e.Type == charge.Type &&
			e.Description == charge.Description && e.AmountCents == charge.AmountCents {
			return e
		}
	}
	return nil
}

func insertRecurringCharge(ctx context.Context, tx *sql.Tx, leaseID string, charge models.RecurringCharge) (models.RecurringCharge, error) {
	const query = `
		INSERT INTO recurring_charges (lease_id, day_of_month, type, description, amount_cents)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	charge.LeaseID = leaseID
	err := tx.QueryRowContext(ctx, query, leaseID, charge.DayOfMonth, charge.Type, charge.Description, charge.AmountCents).
		Scan(&charge.ID)
	return charge, err
}

// TerminateLease archives the lease and returns its unit to Vacant.
// Termination is terminal: the active-lease predicate in every ledger write
// refuses further entries.
func (r *leaseRepository) TerminateLease(ctx context.Context, leaseID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to begin termination transaction")
	}
	defer tx.Rollback()

	var unitID string
	const archive = `
		UPDATE leases
		SET is_active = FALSE, updated_at = now()
		WHERE id = $1 AND is_active
		RETURNING unit_id`
	err = tx.QueryRowContext(ctx, archive, leaseID).Scan(&unitID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.classifyTerminated(ctx, leaseID)
		}
		return err
	}

	const vacate = `
		UPDATE units
		SET status = 'Vacant', current_lease_id = NULL, updated_at = now()
		WHERE id = $1`
	if _, err := tx.ExecContext(ctx, vacate, unitID); err != nil {
		return pkgerrors.Wrap(err, "failed to vacate unit")
	}

	return tx.Commit()
}

func (r *leaseRepository) classifyTerminated(ctx context.Context, leaseID string) error {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM leases WHERE id = $1)`, leaseID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("lease not found")
	}
	return apperr.Conflict("lease is already terminated")
}

func (r *leaseRepository) AddCommunication(ctx context.Context, comm models.Communication) (models.Communication, error) {
	const query = `
		INSERT INTO lease_communications (lease_id, subject, notes, category, status, author, attachment_url, attachment_id)
		SELECT l.id, $2, $3, $4, $5, $6, $7, $8
		FROM leases l
		WHERE l.id = $1
		RETURNING id, comm_date`

	err := r.db.QueryRowContext(ctx, query,
		comm.LeaseID, comm.Subject, comm.Notes, comm.Category, comm.Status, comm.Author, comm.AttachmentURL, comm.AttachmentID,
	).Scan(&comm.ID, &comm.Date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Communication{}, apperr.NotFound("lease not found")
		}
		return models.Communication{}, err
	}
	return comm, nil
}

func (r *leaseRepository) UpdateCommunication(ctx context.Context, leaseID, commID string, update CommunicationUpdate) (models.Communication, error) {
	const query = `
		UPDATE lease_communications
		SET subject = COALESCE($3, subject),
		    notes   = COALESCE($4, notes),
		    status  = COALESCE($5, status)
		WHERE id = $2 AND lease_id = $1
		RETURNING id, lease_id, comm_date, subject, notes, category, status, author, attachment_url, attachment_id`

	var c models.Communication
	err := r.db.QueryRowContext(ctx, query, leaseID, commID, update.Subject, update.Notes, update.Status).Scan(
		&c.ID, &c.LeaseID, &c.Date, &c.Subject, &c.Notes, &c.Category, &c.Status, &c.Author, &c.AttachmentURL, &c.AttachmentID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Communication{}, apperr.NotFound("communication not found")
		}
		return models.Communication{}, err
	}
	return c, nil
}

func (r *leaseRepository) DeleteCommunication(ctx context.Context, leaseID, commID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM lease_communications WHERE id = $2 AND lease_id = $1`, leaseID, commID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.NotFound("communication not found")
	}
	return nil
}
