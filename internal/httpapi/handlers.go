package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"bankcore/internal/domain"
	"bankcore/internal/ledger"
	"bankcore/internal/money"
	"bankcore/internal/service"
)

type Handlers struct {
	svc *service.Service
}

func NewHandlers(svc *service.Service) *Handlers { return &Handlers{svc: svc} }

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func httpStatusForErr(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	// Domain error kinds
	case errors.Is(err, ledger.ErrValidation), errors.Is(err, money.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrSameAccount):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrLockTimeout):
		// Retryable: the caller may repeat the whole operation.
		return http.StatusServiceUnavailable

	// Context / timeouts
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout

	default:
		return http.StatusInternalServerError
	}
}

func publicErrMessage(code int, err error) string {
	// Don't leak internals on 5xx.
	if code >= 500 && code != http.StatusServiceUnavailable {
		return "internal error"
	}
	return err.Error()
}

// requester extracts the authenticated user id injected by the upstream
// identity gateway. The core trusts this header; credential checks happen
// outside.
func requester(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.Header.Get("X-User-Id"))
	return id, err == nil
}

func isAdmin(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("X-Admin"), "true")
}

func (h *Handlers) respond(w http.ResponseWriter, v any, err error) {
	if err != nil {
		code := httpStatusForErr(err)
		writeErr(w, code, publicErrMessage(code, err))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ListAccounts handles GET /v1/accounts (the caller's own accounts).
func (h *Handlers) ListAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, ok := requester(r)
	if !ok {
		writeErr(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.svc.ListMine(ctx, userID)
	h.respond(w, out, err)
}

// AllBalances handles GET /v1/balances (administrators only).
func (h *Handlers) AllBalances(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.svc.AllBalances(ctx, isAdmin(r))
	h.respond(w, out, err)
}

// AccountOps routes POST /v1/accounts/{uuid}/withdraw|deposit and
// GET /v1/accounts/{uuid}/transactions.
func (h *Handlers) AccountOps(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/accounts/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}

	accID, err := uuid.Parse(parts[0])
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid account id")
		return
	}
	userID, ok := requester(r)
	if !ok {
		writeErr(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	switch {
	case parts[1] == "withdraw" && r.Method == http.MethodPost:
		var req domain.WithdrawRequest
		if err := decodeJSON(r, &req); err != nil {
			writeErr(w, http.StatusBadRequest, "invalid json")
			return
		}
		amount, err := money.Parse(req.Amount)
		if err != nil {
			h.respond(w, nil, err)
			return
		}
		out, err := h.svc.Withdraw(ctx, accID, amount, userID)
		h.respond(w, out, err)

	case parts[1] == "deposit" && r.Method == http.MethodPost:
		var req domain.DepositRequest
		if err := decodeJSON(r, &req); err != nil {
			writeErr(w, http.StatusBadRequest, "invalid json")
			return
		}
		amount, err := money.Parse(req.Amount)
		if err != nil {
			h.respond(w, nil, err)
			return
		}
		out, err := h.svc.Deposit(ctx, accID, amount, userID)
		h.respond(w, out, err)

	case parts[1] == "transactions" && r.Method == http.MethodGet:
		txs, err := h.svc.History(ctx, accID, userID, 50)
		if err != nil {
			h.respond(w, nil, err)
			return
		}
		out := make([]domain.TransactionResponse, 0, len(txs))
		for _, tx := range txs {
			out = append(out, domain.TransactionResponse{
				ID:            tx.ID,
				Type:          string(tx.Type),
				Amount:        tx.Amount.String(),
				Fee:           tx.Fee.String(),
				OccurredAt:    tx.OccurredAt.UTC().Format(time.RFC3339),
				FromAccountID: tx.FromAccountID,
				ToAccountID:   tx.ToAccountID,
			})
		}
		h.respond(w, out, nil)

	default:
		writeErr(w, http.StatusNotFound, "not found")
	}
}

// PostTransfer handles POST /v1/transfers.
func (h *Handlers) PostTransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req domain.TransferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	userID, ok := requester(r)
	if !ok {
		writeErr(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		h.respond(w, nil, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	out, err := h.svc.Transfer(ctx, req.FromAccountID, req.ToAccountNumber, amount, userID)
	h.respond(w, out, err)
}
