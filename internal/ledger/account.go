// Package ledger holds the account aggregate, the fee policy and the
// domain error taxonomy. Nothing in this package performs I/O; the
// aggregate mutates in memory and the store persists it afterwards.
package ledger

import (
	"fmt"

	"github.com/google/uuid"

	"bankcore/internal/money"
)

// CardType tags the card associated with an account. The fee policy
// consults it; nothing else in the core does.
type CardType string

const (
	CardDebit  CardType = "DEBIT"
	CardCredit CardType = "CREDIT"
)

// Card is the optional card attached to an account (at most one).
type Card struct {
	ID     uuid.UUID
	Number string
	Type   CardType
}

// Account is one ledger account. Balance is never negative after a
// committed operation. Version increments on every persist and serves as
// an optimistic conflict aid for back-ends without true row locks.
type Account struct {
	ID      uuid.UUID
	Number  string
	Balance money.Money
	Version int64
	OwnerID uuid.UUID
	Card    *Card
}

// OwnedBy reports whether the requester owns the account.
func (a *Account) OwnedBy(userID uuid.UUID) bool {
	return a.OwnerID == userID
}

// CardType returns the associated card's type, or "" when no card exists.
func (a *Account) CardType() CardType {
	if a.Card == nil {
		return ""
	}
	return a.Card.Type
}

// SetBalance stores v re-scaled to two decimals.
func (a *Account) SetBalance(v money.Money) {
	a.Balance = money.FromDecimal(v.Decimal())
}

// Credit increases the balance by amount. Amount must be strictly
// positive.
func (a *Account) Credit(amount money.Money) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: credit amount must be > 0", ErrValidation)
	}
	a.SetBalance(a.Balance.Add(amount))
	return nil
}

// DebitWithFee decreases the balance by amount+fee. When the balance
// cannot cover the total, onInsufficient supplies the error returned to
// the caller and the balance is left untouched.
func (a *Account) DebitWithFee(amount, fee money.Money, onInsufficient func() error) error {
	total := amount.Add(fee)
	if a.Balance.Cmp(total) < 0 {
		return onInsufficient()
	}
	a.SetBalance(a.Balance.Sub(total))
	return nil
}

// Clone returns a deep copy; stores hand copies out so callers never
// alias persisted state.
func (a *Account) Clone() *Account {
	cp := *a
	if a.Card != nil {
		card := *a.Card
		cp.Card = &card
	}
	return &cp
}
