package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"bankcore/internal/money"
)

func creditCardAccount() *Account {
	acc := testAccount("500.00")
	acc.Card = &Card{ID: uuid.New(), Number: "4000-0000-0000-0002", Type: CardCredit}
	return acc
}

func TestCreditCardPaysOnePercent(t *testing.T) {
	policy := NewCreditCardOnePercent()
	acc := creditCardAccount()

	for _, op := range []Operation{OpWithdraw, OpDeposit, OpTransfer} {
		fee := policy.FeeFor(op, acc, money.MustParse("100.00"))
		assert.Equal(t, "1.00", fee.String(), string(op))
	}
}

func TestFeeRoundsHalfUp(t *testing.T) {
	policy := NewCreditCardOnePercent()
	acc := creditCardAccount()

	// 1% of 50.50 = 0.505 -> 0.51
	assert.Equal(t, "0.51", policy.FeeFor(OpWithdraw, acc, money.MustParse("50.50")).String())
	// 1% of 49.40 = 0.494 -> 0.49
	assert.Equal(t, "0.49", policy.FeeFor(OpWithdraw, acc, money.MustParse("49.40")).String())
}

func TestNoCardPaysNothing(t *testing.T) {
	policy := NewCreditCardOnePercent()

	fee := policy.FeeFor(OpWithdraw, testAccount("500.00"), money.MustParse("100.00"))
	assert.True(t, fee.IsZero())
}

func TestDebitCardPaysNothing(t *testing.T) {
	policy := NewCreditCardOnePercent()
	acc := testAccount("500.00")
	acc.Card = &Card{ID: uuid.New(), Number: "4000-0000-0000-0010", Type: CardDebit}

	fee := policy.FeeFor(OpTransfer, acc, money.MustParse("100.00"))
	assert.True(t, fee.IsZero())
}

func TestNilAccountPaysNothing(t *testing.T) {
	policy := NewCreditCardOnePercent()
	assert.True(t, policy.FeeFor(OpDeposit, nil, money.MustParse("100.00")).IsZero())
}

func TestFeeIsDeterministic(t *testing.T) {
	policy := NewCreditCardOnePercent()
	acc := creditCardAccount()

	first := policy.FeeFor(OpTransfer, acc, money.MustParse("123.45"))
	second := policy.FeeFor(OpTransfer, acc, money.MustParse("123.45"))
	assert.True(t, first.Equal(second))
	assert.Equal(t, "1.23", first.String())
}
