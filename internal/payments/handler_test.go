package payments

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/multilazos/multilazos/testing"
)

func newTestRouter(repo *mockRepository) (chi.Router, *mockIdempotency) {
	idem := newMockIdempotency()
	svc := NewService(repo, mockDirectory{repo: repo}, idem, nil)
	h := NewHandler(slog.Default(), svc)
	r := chi.NewRouter()
	r.Route("/payments", h.MountRoutes)
	r.Post("/installments/{id}/payments", h.AssignToInstallment)
	return r, idem
}

func TestHandlerCreatePayment(t *testing.T) {
	repo := newMockRepository()
	seedLedger(repo)
	r, _ := newTestRouter(repo)

	body := `{"sale_id": 10, "amount": "150.00", "paid_at": "2026-05-02"}`
	req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ID        int64  `json:"id"`
		Reference string `json:"reference"`
		PaidAt    string `json:"paid_at"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotZero(t, resp.ID)
	assert.NotEmpty(t, resp.Reference)
	assert.Equal(t, "2026-05-02", resp.PaidAt)
}

func TestHandlerCreatePaymentIdempotencyHeader(t *testing.T) {
	repo := newMockRepository()
	seedLedger(repo)
	r, _ := newTestRouter(repo)

	body := `{"sale_id": 10, "amount": "150.00"}`
	first := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(body))
	first.Header.Set("Idempotency-Key", "req-77")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, first)
	require.Equal(t, http.StatusCreated, rec.Code)

	second := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(body))
	second.Header.Set("Idempotency-Key", "req-77")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, second)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Len(t, repo.payments, 1)
}

func TestHandlerReplaceAllocationsBareArray(t *testing.T) {
	repo := newMockRepository()
	seedLedger(repo)
	r, _ := newTestRouter(repo)

	create := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(`{"sale_id": 10, "amount": "150.00"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, create)
	require.Equal(t, http.StatusCreated, rec.Code)

	var payment struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payment))

	put := httptest.NewRequest(http.MethodPut, "/payments/1/allocations",
		strings.NewReader(`[{"installment_id": 1, "amount": "100.00"}, {"installment_id": 2, "amount": "50.00"}]`))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, put)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var envelope struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 2, envelope.Count)
}

func TestHandlerReplaceAllocationsConflict(t *testing.T) {
	repo := newMockRepository()
	seedLedger(repo)
	r, _ := newTestRouter(repo)

	create := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(`{"sale_id": 10, "amount": "50.00"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, create)
	require.Equal(t, http.StatusCreated, rec.Code)

	put := httptest.NewRequest(http.MethodPut, "/payments/1/allocations",
		strings.NewReader(`[{"installment_id": 1, "amount": "80.00"}]`))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, put)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerAssignShortcut(t *testing.T) {
	repo := newMockRepository()
	seedLedger(repo)
	r, _ := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodPost, "/installments/2/payments",
		strings.NewReader(`{"amount": "100.00", "date": "2026-05-12"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, repo.payments, 1)
	assert.Len(t, repo.allocations[1], 1)
}

func TestHandlerAssignShortcutUnknownInstallment(t *testing.T) {
	repo := newMockRepository()
	seedLedger(repo)
	r, _ := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodPost, "/installments/999/payments",
		strings.NewReader(`{"amount": "100.00"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerDeletePayment(t *testing.T) {
	repo := newMockRepository()
	seedLedger(repo)
	r, _ := newTestRouter(repo)

	create := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(`{"sale_id": 10, "amount": "50.00"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, create)
	require.Equal(t, http.StatusCreated, rec.Code)

	del := httptest.NewRequest(http.MethodDelete, "/payments/1", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, del)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	del = httptest.NewRequest(http.MethodDelete, "/payments/1", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, del)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
