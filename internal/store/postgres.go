package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bankcore/internal/ledger"
	"bankcore/internal/money"
)

// pgLockNotAvailable is the SQLSTATE raised when lock_timeout expires
// while waiting on a FOR UPDATE row lock.
const pgLockNotAvailable = "55P03"

// Postgres realizes the Store contract on row-level pessimistic locking:
// AcquireExclusive is SELECT ... FOR UPDATE inside the unit's transaction,
// so locks are held until commit or rollback and multi-row writes are
// atomic by construction.
type Postgres struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

func NewPostgres(db *pgxpool.Pool, lockTimeout time.Duration) *Postgres {
	return &Postgres{db: db, lockTimeout: lockTimeout}
}

func (s *Postgres) Atomic(ctx context.Context, fn func(Unit) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Bound every row-lock wait in this unit.
	if _, err := tx.Exec(ctx,
		fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds()),
	); err != nil {
		return err
	}

	if err := fn(&pgUnit{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const accountColumns = `
	a.id, a.number, a.balance::text, a.version, a.user_id,
	c.id, c.number, c.card_type`

const accountFrom = `
	FROM accounts a
	LEFT JOIN cards c ON c.account_id = a.id`

func scanAccount(row pgx.Row) (*ledger.Account, error) {
	var (
		acc      ledger.Account
		balance  string
		cardID   *uuid.UUID
		cardNum  *string
		cardType *string
	)
	err := row.Scan(&acc.ID, &acc.Number, &balance, &acc.Version, &acc.OwnerID,
		&cardID, &cardNum, &cardType)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	bal, err := money.Parse(balance)
	if err != nil {
		return nil, fmt.Errorf("stored balance for %s: %w", acc.ID, err)
	}
	acc.Balance = bal

	if cardID != nil {
		acc.Card = &ledger.Card{ID: *cardID, Number: *cardNum, Type: ledger.CardType(*cardType)}
	}
	return &acc, nil
}

func (s *Postgres) FindByNumber(ctx context.Context, number string) (*ledger.Account, error) {
	row := s.db.QueryRow(ctx,
		`SELECT`+accountColumns+accountFrom+` WHERE a.number = $1`, number)
	return scanAccount(row)
}

func (s *Postgres) FindAllOwnedBy(ctx context.Context, userID uuid.UUID) ([]*ledger.Account, error) {
	return s.queryAccounts(ctx,
		`SELECT`+accountColumns+accountFrom+` WHERE a.user_id = $1 ORDER BY a.number`, userID)
}

func (s *Postgres) FindAll(ctx context.Context) ([]*ledger.Account, error) {
	return s.queryAccounts(ctx,
		`SELECT`+accountColumns+accountFrom+` ORDER BY a.number`)
}

func (s *Postgres) queryAccounts(ctx context.Context, sql string, args ...any) ([]*ledger.Account, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ledger.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

func (s *Postgres) TransactionsFor(ctx context.Context, accountID uuid.UUID, limit int) ([]*ledger.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, type, amount::text, fee::text, occurred_at, from_account_id, to_account_id
		  FROM transactions
		 WHERE from_account_id = $1 OR to_account_id = $1
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT $2`,
		accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ledger.Transaction
	for rows.Next() {
		var (
			tx          ledger.Transaction
			amount, fee string
		)
		if err := rows.Scan(&tx.ID, &tx.Type, &amount, &fee,
			&tx.OccurredAt, &tx.FromAccountID, &tx.ToAccountID); err != nil {
			return nil, err
		}
		if tx.Amount, err = money.Parse(amount); err != nil {
			return nil, err
		}
		if tx.Fee, err = money.Parse(fee); err != nil {
			return nil, err
		}
		out = append(out, &tx)
	}
	return out, rows.Err()
}

type pgUnit struct {
	tx pgx.Tx
}

func (u *pgUnit) AcquireExclusive(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	row := u.tx.QueryRow(ctx,
		`SELECT`+accountColumns+accountFrom+` WHERE a.id = $1 FOR UPDATE OF a`, id)
	acc, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
			return nil, ledger.ErrLockTimeout
		}
		return nil, err
	}
	return acc, nil
}

func (u *pgUnit) Persist(ctx context.Context, acc *ledger.Account) error {
	// The row is held FOR UPDATE; the version predicate is a belt for
	// back-ends replaying this statement without a true row lock.
	tag, err := u.tx.Exec(ctx,
		`UPDATE accounts SET balance = $2::numeric, version = version + 1
		  WHERE id = $1 AND version = $3`,
		acc.ID, acc.Balance.String(), acc.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s: version conflict at persist", acc.ID)
	}
	acc.Version++
	return nil
}

// transactionAppendedPayload is the canonical event payload for audit
// records. No floats, stable field order via struct marshaling.
type transactionAppendedPayload struct {
	TransactionID string `json:"transaction_id"`
	Type          string `json:"type"`
	Amount        string `json:"amount"`
	Fee           string `json:"fee"`
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

func (u *pgUnit) AppendTransaction(ctx context.Context, tx *ledger.Transaction) error {
	if _, err := u.tx.Exec(ctx, `
		INSERT INTO transactions(id, type, amount, fee, occurred_at, from_account_id, to_account_id)
		VALUES($1, $2, $3::numeric, $4::numeric, $5, $6, $7)`,
		tx.ID, tx.Type, tx.Amount.String(), tx.Fee.String(),
		tx.OccurredAt, tx.FromAccountID, tx.ToAccountID); err != nil {
		return err
	}

	payload := transactionAppendedPayload{
		TransactionID: tx.ID.String(),
		Type:          string(tx.Type),
		Amount:        tx.Amount.String(),
		Fee:           tx.Fee.String(),
		FromAccountID: tx.FromAccountID.String(),
		OccurredAt:    tx.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
	if tx.ToAccountID != nil {
		payload.ToAccountID = tx.ToAccountID.String()
	}
	return insertEvent(ctx, u.tx, "TRANSACTION_APPENDED", "TRANSACTION", tx.ID.String(), payload)
}

// insertEvent is the single entry point for event_log inserts. Payloads
// are stored twice: as jsonb and as the RFC 8785 (JCS) canonical string
// the hash chain is computed over.
func insertEvent(ctx context.Context, tx pgx.Tx, eventType, aggregateType, aggregateID string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO event_log(event_id, event_type, aggregate_type, aggregate_id, payload_json, payload_canonical)
		VALUES($1, $2, $3, $4, $5::jsonb, $6)`,
		uuid.New(), eventType, aggregateType, aggregateID, json.RawMessage(raw), string(canon))
	return err
}
