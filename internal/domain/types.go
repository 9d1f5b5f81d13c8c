// Package domain defines the wire shapes of the HTTP surface. Money
// values cross the boundary as scale-2 decimal strings, never floats.
package domain

import "github.com/google/uuid"

type WithdrawRequest struct {
	Amount string `json:"amount"`
}

type DepositRequest struct {
	Amount string `json:"amount"`
}

type TransferRequest struct {
	FromAccountID   uuid.UUID `json:"from_account_id"`
	ToAccountNumber string    `json:"to_account_number"`
	Amount          string    `json:"amount"`
}

type TransactionResponse struct {
	ID            uuid.UUID  `json:"id"`
	Type          string     `json:"type"`
	Amount        string     `json:"amount"`
	Fee           string     `json:"fee"`
	OccurredAt    string     `json:"occurred_at"`
	FromAccountID uuid.UUID  `json:"from_account_id"`
	ToAccountID   *uuid.UUID `json:"to_account_id,omitempty"`
}
