package revenue

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stockpit-erp/stockpit-erp/internal/platform/httpx"
)

// Handler exposes the consolidated revenue view.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the revenue handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers revenue routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/revenue/summary", h.handleSummary)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := time.Parse("2006-01-02", q.Get("from"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be YYYY-MM-DD")
		return
	}
	to, err := time.Parse("2006-01-02", q.Get("to"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be YYYY-MM-DD")
		return
	}
	summary, err := h.service.GetRevenueSummary(r.Context(), from, to)
	if err != nil {
		h.logger.Error("revenue summary failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
