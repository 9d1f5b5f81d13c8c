package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"bankcore/internal/ledger"
	"bankcore/internal/money"
	"bankcore/internal/service"
	"bankcore/internal/store"
)

func TestHTTPStatusForErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", ledger.ErrValidation, http.StatusBadRequest},
		{"amount", money.ErrInvalidAmount, http.StatusBadRequest},
		{"notfound", ledger.ErrNotFound, http.StatusNotFound},
		{"forbidden", ledger.ErrForbidden, http.StatusForbidden},
		{"sameaccount", ledger.ErrSameAccount, http.StatusConflict},
		{"insufficient", ledger.ErrInsufficientBalance, http.StatusConflict},
		{"locktimeout", ledger.ErrLockTimeout, http.StatusServiceUnavailable},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"canceled", context.Canceled, http.StatusRequestTimeout},
		{"other", errors.New("x"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := httpStatusForErr(tc.err)
			if got != tc.want {
				t.Fatalf("got %d want %d", got, tc.want)
			}
		})
	}
}

func TestWrappedErrorsKeepTheirStatus(t *testing.T) {
	err := errors.Join(errors.New("op failed"), ledger.ErrInsufficientBalance)
	if got := httpStatusForErr(err); got != http.StatusConflict {
		t.Fatalf("got %d want %d", got, http.StatusConflict)
	}
}

func TestPublicErrMessageHidesInternals(t *testing.T) {
	msg := publicErrMessage(http.StatusInternalServerError, errors.New("pool exhausted at 10.0.0.1"))
	if msg != "internal error" {
		t.Fatalf("internal detail leaked: %q", msg)
	}
	if m := publicErrMessage(http.StatusConflict, ledger.ErrSameAccount); m != ledger.ErrSameAccount.Error() {
		t.Fatalf("domain message lost: %q", m)
	}
}

func testServer(t *testing.T) (http.Handler, *ledger.Account) {
	t.Helper()
	acc := &ledger.Account{
		ID:      uuid.New(),
		Number:  "RB-2026-000001",
		Balance: money.MustParse("100.00"),
		OwnerID: uuid.New(),
	}
	st := store.NewMemory(time.Second, acc)
	svc := service.New(st, ledger.NewCreditCardOnePercent(), nil)
	return Router(NewHandlers(svc)), acc
}

func TestWithdrawEndpoint(t *testing.T) {
	h, acc := testServer(t)

	req := httptest.NewRequest(http.MethodPost,
		"/v1/accounts/"+acc.ID.String()+"/withdraw",
		strings.NewReader(`{"amount":"40.00"}`))
	req.Header.Set("X-User-Id", acc.OwnerID.String())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body)
	}
	body := rec.Body.String()
	for _, want := range []string{`"withdrawn":"40.00"`, `"fee":"0.00"`, `"new_balance":"60.00"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %s: %s", want, body)
		}
	}
}

func TestWithdrawEndpointRequiresIdentity(t *testing.T) {
	h, acc := testServer(t)

	req := httptest.NewRequest(http.MethodPost,
		"/v1/accounts/"+acc.ID.String()+"/withdraw",
		strings.NewReader(`{"amount":"40.00"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}
}

func TestWithdrawEndpointRejectsBadAmount(t *testing.T) {
	h, acc := testServer(t)

	req := httptest.NewRequest(http.MethodPost,
		"/v1/accounts/"+acc.ID.String()+"/withdraw",
		strings.NewReader(`{"amount":"abc"}`))
	req.Header.Set("X-User-Id", acc.OwnerID.String())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}

func TestBalancesEndpointRequiresAdmin(t *testing.T) {
	h, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/balances", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/balances", nil)
	req.Header.Set("X-Admin", "true")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
}
