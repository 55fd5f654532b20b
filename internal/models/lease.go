package models

import (
	"fmt"
	"time"
)

// TransactionType enumerates the kinds of ledger entries a lease can carry.
type TransactionType string

const (
	TxRentCharge  TransactionType = "Rent Charge"
	TxRentPayment TransactionType = "Rent Payment"
	TxLateFee     TransactionType = "Late Fee"
	TxOtherCredit TransactionType = "Other Credit"
	TxOtherCharge TransactionType = "Other Charge"
)

// IsValidTransactionType reports whether t is a known ledger entry type.
func IsValidTransactionType(t TransactionType) bool {
	switch t {
	case TxRentCharge, TxRentPayment, TxLateFee, TxOtherCredit, TxOtherCharge:
		return true
	}
	return false
}

// Transaction is a single immutable ledger entry. Amounts are minor currency
// units (cents); negative = charge owed by the tenant, positive = payment or
// credit received.
type Transaction struct {
	ID          string          `json:"id" db:"id"`
	LeaseID     string          `json:"lease_id" db:"lease_id"`
	Date        time.Time       `json:"date" db:"tx_date"`
	Type        TransactionType `json:"type" db:"type"`
	Description string          `json:"description" db:"description"`
	AmountCents int64           `json:"amount_cents" db:"amount_cents"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// Balance sums a transaction sequence. More negative means more owed.
func Balance(transactions []Transaction) int64 {
	var total int64
	for _, t := range transactions {
		total += t.AmountCents
	}
	return total
}

// RecurringChargeType is the subset of transaction types that may be posted
// automatically.
type RecurringChargeType string

const (
	RecurringRentCharge  RecurringChargeType = "Rent Charge"
	RecurringLateFee     RecurringChargeType = "Late Fee"
	RecurringOtherCharge RecurringChargeType = "Other Charge"
)

func IsValidRecurringChargeType(t RecurringChargeType) bool {
	switch t {
	case RecurringRentCharge, RecurringLateFee, RecurringOtherCharge:
		return true
	}
	return false
}

// RecurringCharge is a template describing a charge posted automatically on a
// given day of each month. The amount is stored as a positive magnitude and
// always posted as a negative ledger entry. DayOfMonth is capped at 28 so the
// template fires in every month.
type RecurringCharge struct {
	ID          string              `json:"id" db:"id"`
	LeaseID     string              `json:"lease_id" db:"lease_id"`
	DayOfMonth  int                 `json:"day_of_month" db:"day_of_month"`
	Type        RecurringChargeType `json:"type" db:"type"`
	Description string              `json:"description" db:"description"`
	AmountCents int64               `json:"amount_cents" db:"amount_cents"`
}

// Validate checks a single template and names the offending field on failure.
func (c RecurringCharge) Validate() error {
	if c.DayOfMonth < 1 || c.DayOfMonth > 28 {
		return fmt.Errorf("day_of_month must be between 1 and 28, got %d", c.DayOfMonth)
	}
	if !IsValidRecurringChargeType(c.Type) {
		return fmt.Errorf("type %q is not a valid recurring charge type", c.Type)
	}
	if c.Description == "" {
		return fmt.Errorf("description is required")
	}
	if c.AmountCents <= 0 {
		return fmt.Errorf("amount_cents must be positive, got %d", c.AmountCents)
	}
	return nil
}

type LateFeeType string

const (
	LateFeeFixed      LateFeeType = "Fixed"
	LateFeePercentage LateFeeType = "Percentage"
)

// LateFeePolicy is the per-lease rule for assessing late fees. Amount is
// cents when FeeType is Fixed and a whole percentage of the monthly rent when
// FeeType is Percentage.
type LateFeePolicy struct {
	Applies   bool        `json:"applies" db:"late_fee_applies"`
	FeeType   LateFeeType `json:"fee_type" db:"late_fee_type"`
	Amount    int64       `json:"amount" db:"late_fee_amount"`
	GraceDays int         `json:"grace_days" db:"late_fee_grace_days"`
}

// FeeCents computes the late fee in cents for a lease with the given monthly
// rent.
func (p LateFeePolicy) FeeCents(rentCents int64) int64 {
	if p.FeeType == LateFeePercentage {
		return rentCents * p.Amount / 100
	}
	return p.Amount
}

// Lease binds a unit and a tenant for a term and owns the financial
// aggregate: the append-only transaction ledger, the recurring-charge
// templates, and the communications log. IsActive is terminal: once false, no
// further ledger writes occur.
type Lease struct {
	ID                   string        `json:"id" db:"id"`
	UnitID               string        `json:"unit_id" db:"unit_id"`
	TenantID             string        `json:"tenant_id" db:"tenant_id"`
	StartDate            time.Time     `json:"start_date" db:"start_date"`
	EndDate              time.Time     `json:"end_date" db:"end_date"`
	RentAmountCents      int64         `json:"rent_amount_cents" db:"rent_amount_cents"`
	SecurityDepositCents int64         `json:"security_deposit_cents" db:"security_deposit_cents"`
	LateFeePolicy        LateFeePolicy `json:"late_fee_policy"`
	IsActive             bool          `json:"is_active" db:"is_active"`
	Notes                string        `json:"notes,omitempty" db:"notes"`
	CreatedAt            time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at" db:"updated_at"`

	Tenant           *Tenant           `json:"tenant,omitempty"`
	Transactions     []Transaction     `json:"transactions,omitempty"`
	RecurringCharges []RecurringCharge `json:"recurring_charges,omitempty"`
	Communications   []Communication   `json:"communications,omitempty"`
}

// Balance is the sum of all ledger entries on the lease.
func (l Lease) Balance() int64 {
	return Balance(l.Transactions)
}
