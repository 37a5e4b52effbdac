package reconciliation

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/multilazos/multilazos/internal/platform/httpx"
)

// PDFRenderer converts an HTML document to PDF bytes.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Handler manages reconciliation view endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	pdf     PDFRenderer
}

// NewHandler builds Handler instance. pdf may be nil; the PDF endpoint then
// answers 503.
func NewHandler(logger *slog.Logger, service *Service, pdf PDFRenderer) *Handler {
	return &Handler{logger: logger, service: service, pdf: pdf}
}

// MountRoutes registers reconciliation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.view)
	r.Get("/export.csv", h.exportCSV)
	r.Get("/export.pdf", h.exportPDF)
}

func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	f := Filter{
		Query:  q.Get("q"),
		Status: Status(q.Get("status")),
	}
	f.SaleID, _ = strconv.ParseInt(q.Get("sale_id"), 10, 64)
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.PageSize, _ = strconv.Atoi(q.Get("page_size"))

	for _, name := range []string{"desde", "from"} {
		if raw := q.Get(name); raw != "" {
			t, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return f, err
			}
			f.From = t
			break
		}
	}
	for _, name := range []string{"hasta", "to"} {
		if raw := q.Get(name); raw != "" {
			t, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return f, err
			}
			f.To = t
			break
		}
	}
	return f, nil
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date filters must be yyyy-mm-dd")
		return
	}

	view, err := h.service.View(r.Context(), f)
	if err != nil {
		h.logger.Error("reconciliation view", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

// exportView assembles the view without pagination: exports always cover
// the whole filtered set.
func (h *Handler) exportView(r *http.Request) (*View, error) {
	f, err := parseFilter(r)
	if err != nil {
		return nil, err
	}
	f.Page = 1
	f.PageSize = 1 << 20
	return h.service.View(r.Context(), f)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	view, err := h.exportView(r)
	if err != nil {
		h.logger.Error("reconciliation csv export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="installment-status.csv"`)
	if err := WriteCSV(w, view); err != nil {
		h.logger.Error("write csv", slog.Any("error", err))
	}
}

func (h *Handler) exportPDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "PDF Unavailable", "PDF rendering is not configured")
		return
	}

	view, err := h.exportView(r)
	if err != nil {
		h.logger.Error("reconciliation pdf export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	html, err := RenderHTML(view)
	if err != nil {
		h.logger.Error("render report html", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	pdf, err := h.pdf.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("render pdf", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "PDF Rendering Failed", "the PDF converter did not respond")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="installment-status.pdf"`)
	_, _ = w.Write(pdf)
}
