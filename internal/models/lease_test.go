package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBalance(t *testing.T) {
	t.Run("Empty Ledger", func(t *testing.T) {
		assert.Equal(t, int64(0), Balance(nil))
	})

	t.Run("Charges And Payments", func(t *testing.T) {
		transactions := []Transaction{
			{Type: TxRentCharge, AmountCents: -150000},
			{Type: TxRentPayment, AmountCents: 150000},
			{Type: TxLateFee, AmountCents: -5000},
		}
		assert.Equal(t, int64(-5000), Balance(transactions))
	})

	t.Run("Order Does Not Matter", func(t *testing.T) {
		a := []Transaction{{AmountCents: -100}, {AmountCents: 250}, {AmountCents: -50}}
		b := []Transaction{{AmountCents: 250}, {AmountCents: -50}, {AmountCents: -100}}
		assert.Equal(t, Balance(a), Balance(b))
	})
}

func TestRecurringChargeValidate(t *testing.T) {
	valid := RecurringCharge{
		DayOfMonth:  1,
		Type:        RecurringRentCharge,
		Description: "Monthly rent",
		AmountCents: 150000,
	}
	assert.NoError(t, valid.Validate())

	t.Run("Day Out Of Range", func(t *testing.T) {
		for _, day := range []int{0, 29, 31, -1} {
			c := valid
			c.DayOfMonth = day
			err := c.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "day_of_month")
		}
	})

	t.Run("Invalid Type", func(t *testing.T) {
		c := valid
		c.Type = RecurringChargeType("Rent Payment")
		err := c.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "type")
	})

	t.Run("Missing Description", func(t *testing.T) {
		c := valid
		c.Description = ""
		assert.Error(t, c.Validate())
	})

	t.Run("Non Positive Amount", func(t *testing.T) {
		for _, amount := range []int64{0, -100} {
			c := valid
			c.AmountCents = amount
			err := c.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "amount_cents")
		}
	})
}

func TestLateFeePolicyFeeCents(t *testing.T) {
	fixed := LateFeePolicy{Applies: true, FeeType: LateFeeFixed, Amount: 7500}
	assert.Equal(t, int64(7500), fixed.FeeCents(150000))

	percentage := LateFeePolicy{Applies: true, FeeType: LateFeePercentage, Amount: 5}
	assert.Equal(t, int64(7500), percentage.FeeCents(150000))
}

func TestTransactionTypeValidation(t *testing.T) {
	for _, valid := range []TransactionType{TxRentCharge, TxRentPayment, TxLateFee, TxOtherCredit, TxOtherCharge} {
		assert.True(t, IsValidTransactionType(valid), string(valid))
	}
	assert.False(t, IsValidTransactionType(TransactionType("Refund")))
	assert.False(t, IsValidTransactionType(TransactionType("")))
}

func TestTenantUserLifecycle(t *testing.T) {
	now := time.Now()
	hash := "token-hash"
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	t.Run("Invited Account", func(t *testing.T) {
		user := TenantUser{InvitationTokenHash: &hash, InvitationExpires: &future}
		assert.False(t, user.IsActivated())
		assert.True(t, user.InvitationValid(now))
	})

	t.Run("Expired Invitation", func(t *testing.T) {
		user := TenantUser{InvitationTokenHash: &hash, InvitationExpires: &past}
		assert.False(t, user.InvitationValid(now))
	})

	t.Run("Activated Account", func(t *testing.T) {
		pw := "$2a$10$hash"
		user := TenantUser{PasswordHash: &pw}
		assert.True(t, user.IsActivated())
		assert.False(t, user.InvitationValid(now))
	})
}
