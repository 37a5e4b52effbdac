package installments

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

// Handler manages installment endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers installment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
}

type installmentResponse struct {
	Installment
	DueDate string `json:"due_date"`
}

func toResponse(i Installment) installmentResponse {
	return installmentResponse{Installment: i, DueDate: i.DueDate.Format("2006-01-02")}
}

type listEnvelope struct {
	Count   int `json:"count"`
	Results any `json:"results"`
}

// queryDate reads an ISO date query param under any of the given names.
// Spanish spellings (desde/hasta) are accepted alongside from/to.
func queryDate(r *http.Request, names ...string) (time.Time, error) {
	for _, name := range names {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		return time.Parse("2006-01-02", raw)
	}
	return time.Time{}, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	saleID, _ := strconv.ParseInt(r.URL.Query().Get("sale_id"), 10, 64)
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	from, err := queryDate(r, "desde", "from")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "desde must be yyyy-mm-dd")
		return
	}
	to, err := queryDate(r, "hasta", "to")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "hasta must be yyyy-mm-dd")
		return
	}

	items, count, err := h.service.List(r.Context(), ListRequest{
		SaleID:   saleID,
		From:     from,
		To:       to,
		Query:    r.URL.Query().Get("q"),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		h.logger.Error("list installments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	results := make([]installmentResponse, 0, len(items))
	for _, i := range items {
		results = append(results, toResponse(i))
	}
	httpx.JSON(w, http.StatusOK, listEnvelope{Count: count, Results: results})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid installment id")
		return
	}

	inst, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "installment not found")
			return
		}
		h.logger.Error("get installment", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, toResponse(*inst))
}

type updateRequest struct {
	DueDate   string          `json:"due_date" validate:"required"`
	Scheduled decimal.Decimal `json:"scheduled" validate:"required"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid installment id")
		return
	}

	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "due_date must be yyyy-mm-dd")
		return
	}

	inst, err := h.service.Update(r.Context(), id, UpdateInput{DueDate: dueDate, Scheduled: req.Scheduled})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "installment not found")
			return
		}
		h.logger.Error("update installment", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, toResponse(*inst))
}
