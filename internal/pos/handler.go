package pos

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/stockpit-erp/stockpit-erp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for point-of-sale transactions.
type Handler struct {
	logger          *slog.Logger
	service         *Service
	validate        *validator.Validate
	overridePINHash string
}

// NewHandler constructs the pos handler. overridePINHash is the bcrypt hash
// authorising out-of-window voids; empty disables the override path.
func NewHandler(logger *slog.Logger, service *Service, overridePINHash string) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), overridePINHash: overridePINHash}
}

// MountRoutes registers pos routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sales", h.handleRegisterSale)
	r.Get("/sales/{id}", h.handleGetSale)
	r.Post("/sales/{id}/void", h.handleVoidSale)
	r.Get("/sales/summary", h.handleDailySummary)
}

type registerSaleRequest struct {
	LocationID    int64   `json:"location_id" validate:"required,gt=0"`
	ProductID     int64   `json:"product_id" validate:"required,gt=0"`
	Quantity      int64   `json:"quantity" validate:"required,gt=0"`
	TotalAmount   float64 `json:"total_amount" validate:"required,gt=0"`
	PaymentMethod string  `json:"payment_method" validate:"omitempty,oneof=CASH TRANSFER"`
	ClientRef     string  `json:"client_ref" validate:"omitempty,max=100"`
}

type voidSaleRequest struct {
	OverridePIN string `json:"override_pin,omitempty"`
}

func (h *Handler) handleRegisterSale(w http.ResponseWriter, r *http.Request) {
	var req registerSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	id, err := h.service.RegisterSale(r.Context(), RegisterSaleInput{
		LocationID:    req.LocationID,
		ProductID:     req.ProductID,
		Quantity:      req.Quantity,
		TotalAmount:   req.TotalAmount,
		PaymentMethod: req.PaymentMethod,
		ClientRef:     req.ClientRef,
		ActorID:       actorID(r),
	})
	if err != nil {
		h.logger.Error("register sale failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"sale_id": id})
}

func (h *Handler) handleVoidSale(w http.ResponseWriter, r *http.Request) {
	saleID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || saleID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid sale id")
		return
	}
	var req voidSaleRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
			return
		}
	}
	override := false
	if req.OverridePIN != "" {
		if h.overridePINHash == "" {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "override is not enabled")
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(h.overridePINHash), []byte(req.OverridePIN)); err != nil {
			h.logger.Warn("void override rejected", slog.Int64("sale_id", saleID))
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "invalid override pin")
			return
		}
		override = true
	}
	if err := h.service.VoidSale(r.Context(), VoidSaleInput{SaleID: saleID, Override: override, ActorID: actorID(r)}); err != nil {
		h.logger.Error("void sale failed", slog.Int64("sale_id", saleID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "voided"})
}

func (h *Handler) handleGetSale(w http.ResponseWriter, r *http.Request) {
	saleID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || saleID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid sale id")
		return
	}
	sale, err := h.service.GetSale(r.Context(), saleID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	locationID, err := strconv.ParseInt(q.Get("location_id"), 10, 64)
	if err != nil || locationID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "location_id query parameter required")
		return
	}
	day, err := time.Parse("2006-01-02", q.Get("date"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	summary, err := h.service.GetDailySalesSummary(r.Context(), locationID, day)
	if err != nil {
		h.logger.Error("daily summary failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}
