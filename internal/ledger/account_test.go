package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankcore/internal/money"
)

func testAccount(balance string) *Account {
	return &Account{
		ID:      uuid.New(),
		Number:  "RB-2026-000042",
		Balance: money.MustParse(balance),
		OwnerID: uuid.New(),
	}
}

func TestCreditIncreasesBalance(t *testing.T) {
	acc := testAccount("100.00")

	require.NoError(t, acc.Credit(money.MustParse("50.00")))
	assert.Equal(t, "150.00", acc.Balance.String())
}

func TestCreditRejectsNonPositive(t *testing.T) {
	acc := testAccount("100.00")

	assert.ErrorIs(t, acc.Credit(money.Zero()), ErrValidation)
	assert.ErrorIs(t, acc.Credit(money.MustParse("0.00").Sub(money.MustParse("1.00"))), ErrValidation)
	assert.Equal(t, "100.00", acc.Balance.String())
}

func TestDebitWithFeeSubtractsTotal(t *testing.T) {
	acc := testAccount("500.00")

	err := acc.DebitWithFee(money.MustParse("100.00"), money.MustParse("1.00"), func() error {
		return ErrInsufficientBalance
	})
	require.NoError(t, err)
	assert.Equal(t, "399.00", acc.Balance.String())
}

func TestDebitWithFeeInsufficientLeavesBalance(t *testing.T) {
	acc := testAccount("50.00")

	err := acc.DebitWithFee(money.MustParse("100.00"), money.MustParse("1.00"), func() error {
		return ErrInsufficientBalance
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, "50.00", acc.Balance.String())
}

func TestDebitWithFeeExactBalanceSucceeds(t *testing.T) {
	acc := testAccount("101.00")

	err := acc.DebitWithFee(money.MustParse("100.00"), money.MustParse("1.00"), func() error {
		return ErrInsufficientBalance
	})
	require.NoError(t, err)
	assert.Equal(t, "0.00", acc.Balance.String())
}

func TestSetBalanceRescales(t *testing.T) {
	acc := testAccount("0.00")
	acc.SetBalance(money.FromDecimal(money.MustParse("10.00").Decimal().Div(money.MustParse("3.00").Decimal())))
	assert.Equal(t, "3.33", acc.Balance.String())
}

func TestCloneDetachesCard(t *testing.T) {
	acc := testAccount("10.00")
	acc.Card = &Card{ID: uuid.New(), Number: "4000-0000-0000-0002", Type: CardCredit}

	cp := acc.Clone()
	cp.Card.Type = CardDebit
	cp.Balance = money.Zero()

	assert.Equal(t, CardCredit, acc.Card.Type)
	assert.Equal(t, "10.00", acc.Balance.String())
}
