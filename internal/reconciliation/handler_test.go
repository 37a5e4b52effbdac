package reconciliation

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/multilazos/multilazos/testing"
)

type stubPDF struct {
	called bool
}

func (s *stubPDF) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	s.called = true
	return []byte("%PDF-1.4 stub"), nil
}

func newTestRouter(t *testing.T, pdf PDFRenderer) chi.Router {
	t.Helper()
	svc := NewService(&mockRepository{rows: seedRows()}, nil)
	h := NewHandler(slog.Default(), svc, pdf)
	r := chi.NewRouter()
	r.Route("/installment-status", h.MountRoutes)
	return r
}

func TestHandlerView(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/installment-status?status=partial", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var view View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, 1, view.Count)
	assert.Equal(t, StatusPartial, view.Results[0].Status)
}

func TestHandlerViewSpanishDateParams(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/installment-status?desde=2026-05-01&hasta=2026-05-31", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var view View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, 1, view.Count)
	assert.Equal(t, "2026-05-10", view.Results[0].DueDate)
}

func TestHandlerViewBadDate(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/installment-status?desde=05/01/2026", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerViewBadStatus(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/installment-status?status=overdue", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerExportCSV(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/installment-status/export.csv?sale_id=10", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "installment-status.csv")
	assert.Contains(t, rec.Body.String(), "installment_id")
	assert.Contains(t, rec.Body.String(), "totals")
}

func TestHandlerExportPDF(t *testing.T) {
	pdf := &stubPDF{}
	r := newTestRouter(t, pdf)

	req := httptest.NewRequest(http.MethodGet, "/installment-status/export.pdf", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, pdf.called)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
}

func TestHandlerExportPDFUnconfigured(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/installment-status/export.pdf", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
