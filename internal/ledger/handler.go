package ledger

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stockpit-erp/stockpit-erp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the stock ledger.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stock/{productID}", h.handleCurrentStock)
	r.Get("/stock", h.handleStockLevels)
	r.Get("/movements", h.handleListMovements)
	r.Post("/movements", h.handleAppendMovement)
	r.Post("/reprocess", h.handleReprocess)
}

type appendMovementRequest struct {
	ProductID     int64  `json:"product_id" validate:"required,gt=0"`
	Type          string `json:"type" validate:"required"`
	QuantityDelta int64  `json:"quantity_delta" validate:"required"`
	Notes         string `json:"notes" validate:"max=500"`
}

type reprocessRequest struct {
	OriginProductID int64  `json:"origin_product_id" validate:"required,gt=0"`
	OriginQty       int64  `json:"origin_qty" validate:"required,gt=0"`
	DestProductID   int64  `json:"dest_product_id" validate:"required,gt=0"`
	DestQty         int64  `json:"dest_qty" validate:"required,gt=0"`
	Notes           string `json:"notes" validate:"max=500"`
}

func (h *Handler) handleAppendMovement(w http.ResponseWriter, r *http.Request) {
	var req appendMovementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	id, err := h.service.AppendMovement(r.Context(), AppendMovementInput{
		ProductID:     req.ProductID,
		Type:          MovementType(req.Type),
		QuantityDelta: req.QuantityDelta,
		Notes:         req.Notes,
		ActorID:       actorID(r),
	})
	if err != nil {
		h.logger.Error("append movement failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"movement_id": id})
}

func (h *Handler) handleReprocess(w http.ResponseWriter, r *http.Request) {
	var req reprocessRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	err := h.service.Reprocess(r.Context(), ReprocessInput{
		OriginProductID: req.OriginProductID,
		OriginQty:       req.OriginQty,
		DestProductID:   req.DestProductID,
		DestQty:         req.DestQty,
		Notes:           req.Notes,
		ActorID:         actorID(r),
	})
	if err != nil {
		h.logger.Error("reprocess failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) handleCurrentStock(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product id")
		return
	}
	qty, err := h.service.GetCurrentStock(r.Context(), productID)
	if err != nil {
		h.logger.Error("get current stock failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"product_id": productID, "stock": qty})
}

func (h *Handler) handleStockLevels(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "ids query parameter required")
		return
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product id: "+part)
			return
		}
		ids = append(ids, id)
	}
	levels, err := h.service.GetStockLevels(r.Context(), ids)
	if err != nil {
		h.logger.Error("get stock levels failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"levels": levels})
}

func (h *Handler) handleListMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	productID, err := strconv.ParseInt(q.Get("product_id"), 10, 64)
	if err != nil || productID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "product_id query parameter required")
		return
	}
	filter := MovementFilter{ProductID: productID, Limit: 200}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid from date")
			return
		}
		filter.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid to date")
			return
		}
		filter.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	if raw := q.Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}
	movements, err := h.service.ListMovements(r.Context(), filter)
	if err != nil {
		h.logger.Error("list movements failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": movements})
}

// actorID resolves the acting user forwarded by the external authorization
// layer. Zero when absent.
func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}
