package ledger

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

// Handler exposes the ledger operations as JSON endpoints.
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

// MountRoutes registers the ledger endpoints under /customers.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny("view_customers"))
		r.Get("/{id}/transactions", h.ListTransactions)
		r.Get("/{id}/receivables", h.ListReceivables)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("edit_customers"))
		r.Post("/{id}/payment", h.RecordTransaction)
		r.Post("/{id}/receivable", h.RecordReceivable)
		r.Post("/{id}/link-invoice", h.LinkInvoice)
		r.Put("/transaction/{id}", h.UpdateTransaction)
		r.Delete("/transaction/{id}", h.DeleteTransaction)
		r.Put("/receivable/{id}", h.UpdateReceivable)
		r.Delete("/receivable/{id}", h.DeleteReceivable)
	})
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	records, err := h.service.Transactions(r.Context(), customerID)
	if err != nil {
		h.logger.Error("list transactions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": records})
}

func (h *Handler) ListReceivables(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	records, err := h.service.Receivables(r.Context(), customerID)
	if err != nil {
		h.logger.Error("list receivables", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"receivables": records})
}

func (h *Handler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req RecordTransactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid body", shared.ErrValidation))
		return
	}
	req.CustomerID = customerID
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}
	record, err := h.service.RecordTransaction(r.Context(), RecordTransactionInput{
		CustomerID: req.CustomerID,
		Amount:     req.Amount,
		Kind:       TransactionKind(req.Kind),
		Method:     req.Method,
		Reference:  req.Reference,
		Notes:      req.Notes,
		ActorID:    shared.ActorIDFromContext(r.Context()),
	})
	if err != nil {
		h.logger.Error("record transaction", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateTransactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid body", shared.ErrValidation))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}
	err = h.service.UpdateTransaction(r.Context(), id, UpdateTransactionInput{
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
		Notes:     req.Notes,
		ActorID:   shared.ActorIDFromContext(r.Context()),
	})
	if err != nil {
		h.logger.Error("update transaction", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteTransaction(r.Context(), id, shared.ActorIDFromContext(r.Context())); err != nil {
		h.logger.Error("delete transaction", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) RecordReceivable(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req RecordReceivableRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid body", shared.ErrValidation))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}
	record, err := h.service.RecordReceivable(r.Context(), RecordReceivableInput{
		CustomerID:       customerID,
		Amount:           req.Amount,
		AdditionalAmount: req.AdditionalAmount,
		Notes:            req.Notes,
		InvoiceID:        req.InvoiceID,
		ActorID:          shared.ActorIDFromContext(r.Context()),
	})
	if err != nil {
		h.logger.Error("record receivable", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) UpdateReceivable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateReceivableRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid body", shared.ErrValidation))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}
	err = h.service.UpdateReceivable(r.Context(), id, UpdateReceivableInput{
		Amount:           req.Amount,
		AdditionalAmount: req.AdditionalAmount,
		Notes:            req.Notes,
		ActorID:          shared.ActorIDFromContext(r.Context()),
	})
	if err != nil {
		h.logger.Error("update receivable", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) DeleteReceivable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteReceivable(r.Context(), id, shared.ActorIDFromContext(r.Context())); err != nil {
		h.logger.Error("delete receivable", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) LinkInvoice(w http.ResponseWriter, r *http.Request) {
	customerID, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req LinkInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid body", shared.ErrValidation))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}
	err = h.service.LinkInvoice(r.Context(), LinkInvoiceInput{
		InvoiceID:        req.InvoiceID,
		CustomerID:       customerID,
		AdditionalAmount: req.AdditionalAmount,
		Notes:            req.Notes,
		ActorID:          shared.ActorIDFromContext(r.Context()),
	})
	if err != nil {
		h.logger.Error("link invoice", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", shared.ErrValidation, raw)
	}
	return id, nil
}
