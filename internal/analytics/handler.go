package analytics

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shopledger/shopledger/internal/platform/httpx"
	"github.com/shopledger/shopledger/internal/rbac"
	"github.com/shopledger/shopledger/internal/shared"
)

// Handler exposes the sales analytics as JSON endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers the analytics endpoints under /analytics.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny("view_reports"))
		r.Get("/trend", h.SalesTrend)
		r.Get("/top-products", h.TopProducts)
		r.Get("/slow-moving", h.SlowMoving)
	})
}

func (h *Handler) SalesTrend(w http.ResponseWriter, r *http.Request) {
	from, to, err := windowFromQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	points, err := h.service.SalesTrend(r.Context(), from, to)
	if err != nil {
		h.logger.Error("sales trend", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"trend": points})
}

func (h *Handler) TopProducts(w http.ResponseWriter, r *http.Request) {
	from, to, err := windowFromQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := h.service.TopProducts(r.Context(), from, to, limit)
	if err != nil {
		h.logger.Error("top products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": out})
}

func (h *Handler) SlowMoving(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	out, err := h.service.SlowMoving(r.Context(), days)
	if err != nil {
		h.logger.Error("slow moving", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": out})
}

func windowFromQuery(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	from, err := time.Parse("2006-01-02", q.Get("start_date"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid start_date", shared.ErrValidation)
	}
	to, err := time.Parse("2006-01-02", q.Get("end_date"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid end_date", shared.ErrValidation)
	}
	return from, to, nil
}
