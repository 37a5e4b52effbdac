package payments

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/multilazos/multilazos/internal/platform/httpx"
)

// Handler manages payment and allocation endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.delete)
	r.Get("/{id}/allocations", h.getAllocations)
	r.Put("/{id}/allocations", h.replaceAllocations)
}

type paymentResponse struct {
	Payment
	PaidAt string `json:"paid_at"`
}

func toPaymentResponse(p Payment) paymentResponse {
	return paymentResponse{Payment: p, PaidAt: p.PaidAt.Format("2006-01-02")}
}

type listEnvelope struct {
	Count   int `json:"count"`
	Results any `json:"results"`
}

type createPaymentRequest struct {
	SaleID int64           `json:"sale_id" validate:"required,gt=0"`
	PaidAt string          `json:"paid_at"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	var paidAt time.Time
	if req.PaidAt != "" {
		var err error
		if paidAt, err = time.Parse("2006-01-02", req.PaidAt); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "paid_at must be yyyy-mm-dd")
			return
		}
	}

	payment, err := h.service.Create(r.Context(), CreatePaymentInput{
		SaleID: req.SaleID,
		PaidAt: paidAt,
		Amount: req.Amount,
	}, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.logger.Error("create payment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, toPaymentResponse(*payment))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid payment id")
		return
	}

	payment, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPaymentResponse(*payment))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	saleID, _ := strconv.ParseInt(r.URL.Query().Get("sale_id"), 10, 64)

	payments, err := h.service.List(r.Context(), saleID)
	if err != nil {
		h.logger.Error("list payments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	results := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		results = append(results, toPaymentResponse(p))
	}
	httpx.JSON(w, http.StatusOK, listEnvelope{Count: len(results), Results: results})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid payment id")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete payment", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getAllocations(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid payment id")
		return
	}

	rows, err := h.service.Allocations(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if rows == nil {
		rows = []Allocation{}
	}
	httpx.JSON(w, http.StatusOK, listEnvelope{Count: len(rows), Results: rows})
}

type allocationRow struct {
	InstallmentID int64           `json:"installment_id" validate:"required,gt=0"`
	Amount        decimal.Decimal `json:"amount"`
}

func (h *Handler) replaceAllocations(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid payment id")
		return
	}

	var body []allocationRow
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}

	rows := make([]AllocationInput, 0, len(body))
	for _, row := range body {
		rows = append(rows, AllocationInput{InstallmentID: row.InstallmentID, Amount: row.Amount})
	}

	stored, err := h.service.ReplaceAllocations(r.Context(), id, rows)
	if err != nil {
		h.logger.Error("replace allocations", slog.Any("error", err), slog.Int64("payment_id", id))
		httpx.RespondError(w, err)
		return
	}
	if stored == nil {
		stored = []Allocation{}
	}
	httpx.JSON(w, http.StatusOK, listEnvelope{Count: len(stored), Results: stored})
}

type assignRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Date   string          `json:"date"`
}

// AssignToInstallment handles POST /installments/{id}/payments, the
// single-target shortcut the cashier modal uses.
func (h *Handler) AssignToInstallment(w http.ResponseWriter, r *http.Request) {
	installmentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid installment id")
		return
	}

	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	var paidAt time.Time
	if req.Date != "" {
		if paidAt, err = time.Parse("2006-01-02", req.Date); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be yyyy-mm-dd")
			return
		}
	}

	payment, err := h.service.AssignToInstallment(r.Context(), installmentID, req.Amount, paidAt)
	if err != nil {
		h.logger.Error("assign payment", slog.Any("error", err), slog.Int64("installment_id", installmentID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPaymentResponse(*payment))
}
