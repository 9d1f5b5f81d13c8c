// Package store owns durable account state and the append-only
// transaction log. It exposes exclusive per-account acquisition scoped to
// an atomic unit: everything mutated inside one unit commits together or
// not at all, and locks are released on every exit path.
package store

import (
	"context"

	"github.com/google/uuid"

	"bankcore/internal/ledger"
)

// Unit is one in-flight atomic unit of work. Handles returned by
// AcquireExclusive are private to the unit; mutations become visible to
// other callers only after the surrounding Atomic call commits.
type Unit interface {
	// AcquireExclusive blocks until the calling unit holds sole write
	// access to the account, bounded by the store's lock timeout.
	// Returns ledger.ErrNotFound or ledger.ErrLockTimeout.
	AcquireExclusive(ctx context.Context, id uuid.UUID) (*ledger.Account, error)

	// Persist stages the account's new state. The account must have been
	// acquired through this unit.
	Persist(ctx context.Context, acc *ledger.Account) error

	// AppendTransaction stages an immutable audit record.
	AppendTransaction(ctx context.Context, tx *ledger.Transaction) error
}

// Store is the durable account store contract consumed by the services.
type Store interface {
	// Atomic runs fn inside one atomic unit, committing its staged writes
	// when fn returns nil and discarding them otherwise.
	Atomic(ctx context.Context, fn func(Unit) error) error

	FindByNumber(ctx context.Context, number string) (*ledger.Account, error)
	FindAllOwnedBy(ctx context.Context, userID uuid.UUID) ([]*ledger.Account, error)
	FindAll(ctx context.Context) ([]*ledger.Account, error)

	// TransactionsFor returns the newest audit records referencing the
	// account, most recent first.
	TransactionsFor(ctx context.Context, accountID uuid.UUID, limit int) ([]*ledger.Transaction, error)
}
