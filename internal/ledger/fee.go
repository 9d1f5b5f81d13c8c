package ledger

import (
	"github.com/shopspring/decimal"

	"bankcore/internal/money"
)

// Operation identifies the money-moving operation a fee applies to.
type Operation string

const (
	OpWithdraw Operation = "WITHDRAW"
	OpDeposit  Operation = "DEPOSIT"
	OpTransfer Operation = "TRANSFER"
)

// FeePolicy computes the fee for an operation. Implementations must be
// pure: same inputs, same fee, no side effects. Services receive the
// policy by injection so schedules can be swapped without touching them.
type FeePolicy interface {
	FeeFor(op Operation, primary *Account, amount money.Money) money.Money
}

var oneHundred = decimal.NewFromInt(100)

// CreditCardPercentFee charges accounts holding a CREDIT card a fixed
// percentage on every operation; everyone else pays nothing.
type CreditCardPercentFee struct {
	Percent decimal.Decimal
}

// NewCreditCardOnePercent is the shipped schedule: 1%, rounded half-up
// to two decimals.
func NewCreditCardOnePercent() CreditCardPercentFee {
	return CreditCardPercentFee{Percent: decimal.NewFromInt(1)}
}

func (p CreditCardPercentFee) FeeFor(op Operation, primary *Account, amount money.Money) money.Money {
	if primary == nil || primary.CardType() != CardCredit {
		return money.Zero()
	}
	fee := amount.Decimal().Mul(p.Percent).Div(oneHundred)
	return money.FromDecimal(fee)
}

// ZeroFee charges nothing. Useful as a substitute schedule in tests.
type ZeroFee struct{}

func (ZeroFee) FeeFor(Operation, *Account, money.Money) money.Money { return money.Zero() }
