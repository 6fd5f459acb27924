package products

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/shopledger/shopledger/internal/platform/httpx"
	"github.com/shopledger/shopledger/internal/rbac"
	"github.com/shopledger/shopledger/internal/shared"
)

// Handler exposes the product catalog as JSON endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     rbac.Middleware
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		rbac:     rbac,
	}
}

// MountRoutes registers the product endpoints under /products.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny("view_products"))
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Get("/code/{code}", h.GetByCode)
		r.Get("/restock", h.RestockReport)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("edit_products"))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/stock", h.AdjustStock)
	})
	// field-level grants authorize the patch body, not a blanket permission
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny("view_products"))
		r.Patch("/{id}", h.Patch)
	})
}

// Patch applies a partial update. Each submitted field is checked against
// the caller's field-level grants in one pass over the capability map.
func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var fields map[string]any
	if err := httpx.DecodeJSON(r, &fields); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid body", shared.ErrValidation))
		return
	}
	actorID := shared.ActorIDFromContext(r.Context())
	granted, err := h.rbac.Service.EffectivePermissions(r.Context(), actorID)
	if err != nil {
		h.logger.Error("resolve permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if err := rbac.AuthorizeFields(granted, fields, rbac.ProductFieldCapabilities); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Patch(r.Context(), id, fields, actorID)
	if err != nil {
		h.logger.Error("patch product", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	input, err := h.decodeInput(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("create product", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	input, err := h.decodeInput(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.logger.Error("update product", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id, shared.ActorIDFromContext(r.Context())); err != nil {
		h.logger.Error("delete product", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("get product", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// GetByCode looks a product up by its item code, the identifier printed on
// shelf labels and invoices.
func (h *Handler) GetByCode(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetByItemCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.logger.Error("get product by code", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	records, total, err := h.service.List(r.Context(), q.Get("search"), perPage, (page-1)*perPage)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"products":   records,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req AdjustStockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid body", shared.ErrValidation))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}
	p, err := h.service.AdjustStock(r.Context(), id, req.Delta, shared.ActorIDFromContext(r.Context()))
	if err != nil {
		h.logger.Error("adjust stock", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) RestockReport(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.RestockReport(r.Context())
	if err != nil {
		h.logger.Error("restock report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": records})
}

func (h *Handler) decodeInput(r *http.Request) (Input, error) {
	var req ProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return Input{}, fmt.Errorf("%w: invalid body", shared.ErrValidation)
	}
	if err := h.validate.Struct(req); err != nil {
		return Input{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	return Input{
		ItemCode:     req.ItemCode,
		Description:  req.Description,
		LocalName:    req.LocalName,
		Unit:         req.Unit,
		Price:        req.Price,
		Stock:        req.Stock,
		RestockLevel: req.RestockLevel,
		Locations:    req.Locations,
		Tags:         req.Tags,
		Notes:        req.Notes,
		ActorID:      shared.ActorIDFromContext(r.Context()),
	}, nil
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", shared.ErrValidation, raw)
	}
	return id, nil
}
