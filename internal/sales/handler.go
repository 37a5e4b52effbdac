package sales

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/multilazos/multilazos/internal/platform/httpx"
)

// Handler manages sale endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers sale routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
}

type createSaleRequest struct {
	ClientName  string          `json:"client_name" validate:"required"`
	Kind        string          `json:"kind" validate:"required,oneof=cash credit"`
	SaleDate    string          `json:"sale_date" validate:"required"`
	TermMonths  int             `json:"term_months"`
	InterestPct decimal.Decimal `json:"interest_pct"`
	Subtotal    decimal.Decimal `json:"subtotal" validate:"required"`
}

type saleResponse struct {
	Sale
	SaleDate string `json:"sale_date"`
}

func toSaleResponse(s Sale) saleResponse {
	return saleResponse{Sale: s, SaleDate: s.SaleDate.Format("2006-01-02")}
}

type listEnvelope struct {
	Count   int `json:"count"`
	Results any `json:"results"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	saleDate, err := time.Parse("2006-01-02", req.SaleDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "sale_date must be yyyy-mm-dd")
		return
	}

	sale, err := h.service.CreateSale(r.Context(), CreateSaleInput{
		ClientName:  req.ClientName,
		Kind:        Kind(req.Kind),
		SaleDate:    saleDate,
		TermMonths:  req.TermMonths,
		InterestPct: req.InterestPct,
		Subtotal:    req.Subtotal,
	})
	if err != nil {
		h.logger.Error("create sale", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, toSaleResponse(*sale))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid sale id")
		return
	}

	sale, err := h.service.GetSale(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "sale not found")
			return
		}
		h.logger.Error("get sale", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, toSaleResponse(*sale))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	sales, count, err := h.service.ListSales(r.Context(), ListSalesRequest{
		ClientQuery: r.URL.Query().Get("search"),
		Kind:        Kind(r.URL.Query().Get("kind")),
		Page:        page,
		PageSize:    size,
	})
	if err != nil {
		h.logger.Error("list sales", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	results := make([]saleResponse, 0, len(sales))
	for _, s := range sales {
		results = append(results, toSaleResponse(s))
	}
	httpx.JSON(w, http.StatusOK, listEnvelope{Count: count, Results: results})
}
