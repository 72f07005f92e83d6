package closing

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/stockpit-erp/stockpit-erp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for end-of-day closing.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the closing handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers closing routes. Submissions get a tighter rate limit
// than the global one; a location closes once a day, bursts are operator error.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(httprate.LimitByIP(10, time.Minute)).Post("/closings", h.handleSubmitClosing)
	r.Get("/closings", h.handleGetClosing)
}

type closingRowRequest struct {
	ProductID         int64 `json:"product_id" validate:"required,gt=0"`
	QuantityCarried   int64 `json:"quantity_carried" validate:"gte=0"`
	ReportedTotalSold int64 `json:"reported_total_sold" validate:"gte=0"`
}

type submitClosingRequest struct {
	LocationID int64               `json:"location_id" validate:"required,gt=0"`
	Date       string              `json:"date" validate:"required,datetime=2006-01-02"`
	Notes      string              `json:"notes" validate:"omitempty,max=500"`
	Rows       []closingRowRequest `json:"rows" validate:"required,min=1,dive"`
}

func (h *Handler) handleSubmitClosing(w http.ResponseWriter, r *http.Request) {
	var req submitClosingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	day, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	input := SubmitClosingInput{
		LocationID: req.LocationID,
		Date:       day,
		Notes:      req.Notes,
		ActorID:    actorID(r),
	}
	for _, row := range req.Rows {
		input.Rows = append(input.Rows, ClosingRow(row))
	}
	result, err := h.service.SubmitClosing(r.Context(), input)
	if err != nil {
		h.logger.Error("closing submission failed",
			slog.Int64("location_id", req.LocationID),
			slog.String("date", req.Date),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) handleGetClosing(w http.ResponseWriter, r *http.Request) {
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
	records, err := h.service.GetClosing(r.Context(), locationID, day)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}
