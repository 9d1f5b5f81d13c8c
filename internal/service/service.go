// Package service orchestrates ledger operations: it acquires account
// locks through the store, applies aggregate mutations, consults the fee
// policy and commits results atomically. All domain failures surface as
// the error kinds in internal/ledger; nothing is retried here.
package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bankcore/internal/ledger"
	"bankcore/internal/money"
	"bankcore/internal/store"
)

type Service struct {
	store store.Store
	fees  ledger.FeePolicy
	log   *zap.Logger
	now   func() time.Time
}

func New(st store.Store, fees ledger.FeePolicy, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, fees: fees, log: log, now: time.Now}
}

// WithdrawResult reports a committed withdrawal.
type WithdrawResult struct {
	AccountID  uuid.UUID   `json:"account_id"`
	Withdrawn  money.Money `json:"withdrawn"`
	Fee        money.Money `json:"fee"`
	NewBalance money.Money `json:"new_balance"`
}

// DepositResult reports a committed deposit. Deposited is the gross
// amount the caller submitted; the balance grew by Deposited minus Fee.
type DepositResult struct {
	AccountID  uuid.UUID   `json:"account_id"`
	Deposited  money.Money `json:"deposited"`
	Fee        money.Money `json:"fee"`
	NewBalance money.Money `json:"new_balance"`
}

// TransferResult reports a committed transfer.
type TransferResult struct {
	FromAccountID  uuid.UUID   `json:"from_account_id"`
	ToAccountID    uuid.UUID   `json:"to_account_id"`
	Transferred    money.Money `json:"transferred"`
	Fee            money.Money `json:"fee"`
	FromNewBalance money.Money `json:"from_new_balance"`
	ToNewBalance   money.Money `json:"to_new_balance"`
}

// AccountSummary is the read-side projection of one account.
type AccountSummary struct {
	AccountID uuid.UUID       `json:"account_id"`
	Number    string          `json:"number"`
	CardType  ledger.CardType `json:"card_type,omitempty"`
	Balance   money.Money     `json:"balance"`
}

// Withdraw debits amount plus fee from the account after validating the
// amount, existence and ownership, in that order.
func (s *Service) Withdraw(ctx context.Context, accountID uuid.UUID, amount money.Money, requesterID uuid.UUID) (WithdrawResult, error) {
	s.log.Info("withdraw start",
		zap.Stringer("account_id", accountID),
		zap.Stringer("user_id", requesterID),
		zap.String("amount", amount.String()))

	if !amount.IsPositive() {
		return WithdrawResult{}, fmt.Errorf("%w: amount must be > 0", ledger.ErrValidation)
	}

	var res WithdrawResult
	err := s.store.Atomic(ctx, func(u store.Unit) error {
		acc, err := u.AcquireExclusive(ctx, accountID)
		if err != nil {
			return err
		}
		// Existence is checked before ownership so a forbidden request on
		// a missing account still reports not-found.
		if !acc.OwnedBy(requesterID) {
			s.log.Warn("withdraw forbidden",
				zap.Stringer("account_id", accountID),
				zap.Stringer("user_id", requesterID))
			return ledger.ErrForbidden
		}

		fee := s.fees.FeeFor(ledger.OpWithdraw, acc, amount)
		if err := acc.DebitWithFee(amount, fee, insufficient); err != nil {
			return err
		}
		if err := u.Persist(ctx, acc); err != nil {
			return err
		}
		if err := u.AppendTransaction(ctx, s.record(ledger.TxWithdraw, amount, fee, acc.ID, nil)); err != nil {
			return err
		}
		res = WithdrawResult{AccountID: acc.ID, Withdrawn: amount, Fee: fee, NewBalance: acc.Balance}
		return nil
	})
	if err != nil {
		return WithdrawResult{}, err
	}

	s.log.Info("withdraw done",
		zap.Stringer("account_id", res.AccountID),
		zap.String("fee", res.Fee.String()),
		zap.String("new_balance", res.NewBalance.String()))
	return res, nil
}

// Deposit credits the account with amount net of fee. The reported
// deposited amount stays gross even though the balance only grows by the
// net amount.
func (s *Service) Deposit(ctx context.Context, accountID uuid.UUID, amount money.Money, requesterID uuid.UUID) (DepositResult, error) {
	s.log.Info("deposit start",
		zap.Stringer("account_id", accountID),
		zap.Stringer("user_id", requesterID),
		zap.String("amount", amount.String()))

	if !amount.IsPositive() {
		return DepositResult{}, fmt.Errorf("%w: amount must be > 0", ledger.ErrValidation)
	}

	var res DepositResult
	err := s.store.Atomic(ctx, func(u store.Unit) error {
		acc, err := u.AcquireExclusive(ctx, accountID)
		if err != nil {
			return err
		}
		if !acc.OwnedBy(requesterID) {
			return ledger.ErrForbidden
		}

		fee := s.fees.FeeFor(ledger.OpDeposit, acc, amount)
		net := amount.Sub(fee)
		if !net.IsPositive() {
			return fmt.Errorf("%w: net amount must be > 0", ledger.ErrValidation)
		}
		if err := acc.Credit(net); err != nil {
			return err
		}
		if err := u.Persist(ctx, acc); err != nil {
			return err
		}
		if err := u.AppendTransaction(ctx, s.record(ledger.TxDeposit, amount, fee, acc.ID, nil)); err != nil {
			return err
		}
		res = DepositResult{AccountID: acc.ID, Deposited: amount, Fee: fee, NewBalance: acc.Balance}
		return nil
	})
	if err != nil {
		return DepositResult{}, err
	}

	s.log.Info("deposit done",
		zap.Stringer("account_id", res.AccountID),
		zap.String("fee", res.Fee.String()),
		zap.String("new_balance", res.NewBalance.String()))
	return res, nil
}

// Transfer moves amount from the requester's account to the account with
// the given number, debiting the fee from the source only. Both accounts
// are locked in ascending id order regardless of direction, so two
// transfers moving funds in opposite directions between the same pair
// cannot deadlock.
func (s *Service) Transfer(ctx context.Context, fromAccountID uuid.UUID, toAccountNumber string, amount money.Money, requesterID uuid.UUID) (TransferResult, error) {
	s.log.Info("transfer start",
		zap.Stringer("from_account_id", fromAccountID),
		zap.String("to_number", toAccountNumber),
		zap.String("amount", amount.String()),
		zap.Stringer("user_id", requesterID))

	dest, err := s.store.FindByNumber(ctx, toAccountNumber)
	if err != nil {
		return TransferResult{}, err
	}
	if fromAccountID == uuid.Nil {
		return TransferResult{}, fmt.Errorf("%w: source account id is required", ledger.ErrValidation)
	}
	if fromAccountID == dest.ID {
		return TransferResult{}, ledger.ErrSameAccount
	}
	if !amount.IsPositive() {
		return TransferResult{}, fmt.Errorf("%w: amount must be > 0", ledger.ErrValidation)
	}

	var res TransferResult
	err = s.store.Atomic(ctx, func(u store.Unit) error {
		first, second := lockOrder(fromAccountID, dest.ID)
		locked := make(map[uuid.UUID]*ledger.Account, 2)
		for _, id := range []uuid.UUID{first, second} {
			acc, err := u.AcquireExclusive(ctx, id)
			if err != nil {
				return err
			}
			locked[id] = acc
		}
		source, destination := locked[fromAccountID], locked[dest.ID]

		if !source.OwnedBy(requesterID) {
			return ledger.ErrForbidden
		}

		fee := s.fees.FeeFor(ledger.OpTransfer, source, amount)
		if err := source.DebitWithFee(amount, fee, insufficient); err != nil {
			return err
		}
		// The destination receives the nominal amount; the fee is charged
		// to the source only.
		if err := destination.Credit(amount); err != nil {
			return err
		}

		if err := u.Persist(ctx, source); err != nil {
			return err
		}
		if err := u.Persist(ctx, destination); err != nil {
			return err
		}
		if err := u.AppendTransaction(ctx, s.record(ledger.TxTransfer, amount, fee, source.ID, &destination.ID)); err != nil {
			return err
		}

		res = TransferResult{
			FromAccountID:  source.ID,
			ToAccountID:    destination.ID,
			Transferred:    amount,
			Fee:            fee,
			FromNewBalance: source.Balance,
			ToNewBalance:   destination.Balance,
		}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}

	s.log.Info("transfer done",
		zap.Stringer("from_account_id", res.FromAccountID),
		zap.Stringer("to_account_id", res.ToAccountID),
		zap.String("fee", res.Fee.String()))
	return res, nil
}

// ListMine returns summaries of the accounts owned by the requester.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) ([]AccountSummary, error) {
	accs, err := s.store.FindAllOwnedBy(ctx, userID)
	if err != nil {
		return nil, err
	}
	return summaries(accs), nil
}

// AllBalances returns every account. The identity collaborator decides
// who is an administrator; the flag arrives as an explicit parameter.
func (s *Service) AllBalances(ctx context.Context, requesterIsAdmin bool) ([]AccountSummary, error) {
	if !requesterIsAdmin {
		return nil, ledger.ErrForbidden
	}
	accs, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return summaries(accs), nil
}

// History returns the newest audit records for an account the requester
// owns. Ownership is checked under the account lock so it cannot race a
// concurrent re-assignment.
func (s *Service) History(ctx context.Context, accountID, requesterID uuid.UUID, limit int) ([]*ledger.Transaction, error) {
	err := s.store.Atomic(ctx, func(u store.Unit) error {
		acc, err := u.AcquireExclusive(ctx, accountID)
		if err != nil {
			return err
		}
		if !acc.OwnedBy(requesterID) {
			return ledger.ErrForbidden
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.store.TransactionsFor(ctx, accountID, limit)
}

func (s *Service) record(t ledger.TransactionType, amount, fee money.Money, from uuid.UUID, to *uuid.UUID) *ledger.Transaction {
	return &ledger.Transaction{
		ID:            uuid.New(),
		Type:          t,
		Amount:        amount,
		Fee:           fee,
		OccurredAt:    s.now(),
		FromAccountID: from,
		ToAccountID:   to,
	}
}

func insufficient() error { return ledger.ErrInsufficientBalance }

// lockOrder returns the two ids in ascending byte order: the total order
// all multi-account operations acquire locks in.
func lockOrder(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}

func summaries(accs []*ledger.Account) []AccountSummary {
	out := make([]AccountSummary, 0, len(accs))
	for _, acc := range accs {
		out = append(out, AccountSummary{
			AccountID: acc.ID,
			Number:    acc.Number,
			CardType:  acc.CardType(),
			Balance:   acc.Balance,
		})
	}
	return out
}
