package ledger

import (
	"time"

	"github.com/google/uuid"

	"bankcore/internal/money"
)

// TransactionType tags an audit record with the operation that produced it.
type TransactionType string

const (
	TxWithdraw TransactionType = "WITHDRAW"
	TxDeposit  TransactionType = "DEPOSIT"
	TxTransfer TransactionType = "TRANSFER"
)

// Transaction is the append-only audit record written when an operation
// commits. Records are never mutated or deleted. ToAccountID is nil for
// single-account operations.
type Transaction struct {
	ID            uuid.UUID
	Type          TransactionType
	Amount        money.Money
	Fee           money.Money
	OccurredAt    time.Time
	FromAccountID uuid.UUID
	ToAccountID   *uuid.UUID
}
