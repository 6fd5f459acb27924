package products

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopledger/shopledger/internal/shared"
)

// RepositoryPort abstracts persistence for the product service.
type RepositoryPort interface {
	Insert(ctx context.Context, p Product) (int64, error)
	Update(ctx context.Context, p Product) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (Product, error)
	GetByItemCode(ctx context.Context, code string) (Product, error)
	List(ctx context.Context, search string, limit, offset int) ([]Product, int, error)
	AdjustStock(ctx context.Context, id int64, delta int) (Product, error)
	ListBelowRestock(ctx context.Context) ([]Product, error)
}

// AuditPort records mutations for the audit trail.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns the product catalog.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Create adds a catalog item. Item codes are unique; a duplicate fails with
// a conflict error.
func (s *Service) Create(ctx context.Context, input Input) (Product, error) {
	p, err := productFromInput(input)
	if err != nil {
		return Product{}, err
	}
	id, err := s.repo.Insert(ctx, p)
	if err != nil {
		return Product{}, err
	}
	p.ID = id

	s.recordAudit(ctx, input.ActorID, "products:create", id, map[string]any{"item_code": p.ItemCode})
	return p, nil
}

// Update replaces a product's attributes, stock included.
func (s *Service) Update(ctx context.Context, id int64, input Input) (Product, error) {
	p, err := productFromInput(input)
	if err != nil {
		return Product{}, err
	}
	p.ID = id
	if err := s.repo.Update(ctx, p); err != nil {
		return Product{}, err
	}

	s.recordAudit(ctx, input.ActorID, "products:update", id, map[string]any{"item_code": p.ItemCode})
	return p, nil
}

// Delete removes a catalog item.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "products:delete", id, nil)
	return nil
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

// GetByItemCode returns the product carrying the code.
func (s *Service) GetByItemCode(ctx context.Context, code string) (Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Product{}, fmt.Errorf("%w: item code required", shared.ErrValidation)
	}
	return s.repo.GetByItemCode(ctx, code)
}

// List returns products matching the search term with the total count.
func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]Product, int, error) {
	return s.repo.List(ctx, strings.TrimSpace(search), limit, offset)
}

// AdjustStock applies a manual stock correction and returns the new state.
// Delta may be negative; the floor is not enforced.
func (s *Service) AdjustStock(ctx context.Context, id int64, delta int, actorID int64) (Product, error) {
	if delta == 0 {
		return Product{}, fmt.Errorf("%w: stock adjustment must be non-zero", shared.ErrValidation)
	}
	p, err := s.repo.AdjustStock(ctx, id, delta)
	if err != nil {
		return Product{}, err
	}

	s.recordAudit(ctx, actorID, "products:adjust_stock", id, map[string]any{
		"delta": delta,
		"stock": p.Stock,
	})
	return p, nil
}

// Patch applies a partial update from a field map. Callers authorize the
// fields before invoking; values arrive JSON-typed, so numbers are float64.
func (s *Service) Patch(ctx context.Context, id int64, fields map[string]any, actorID int64) (Product, error) {
	if len(fields) == 0 {
		return Product{}, fmt.Errorf("%w: no fields submitted", shared.ErrValidation)
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	for field, value := range fields {
		if err := applyField(&p, field, value); err != nil {
			return Product{}, err
		}
	}
	if _, err := productFromInput(Input{
		ItemCode:     p.ItemCode,
		Description:  p.Description,
		Unit:         p.Unit,
		Price:        p.Price,
		RestockLevel: p.RestockLevel,
	}); err != nil {
		return Product{}, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return Product{}, err
	}

	changed := make([]string, 0, len(fields))
	for field := range fields {
		changed = append(changed, field)
	}
	s.recordAudit(ctx, actorID, "products:patch", id, map[string]any{"fields": changed})
	return p, nil
}

// RestockReport lists products at or below their restock level.
func (s *Service) RestockReport(ctx context.Context) ([]Product, error) {
	return s.repo.ListBelowRestock(ctx)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, productID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "product",
		EntityID: strconv.FormatInt(productID, 10),
		Meta:     meta,
	})
}

func applyField(p *Product, field string, value any) error {
	switch field {
	case "item_code":
		return setString(&p.ItemCode, field, value)
	case "description":
		return setString(&p.Description, field, value)
	case "local_name":
		return setString(&p.LocalName, field, value)
	case "uom":
		return setString(&p.Unit, field, value)
	case "price":
		return setFloat(&p.Price, field, value)
	case "stock":
		return setInt(&p.Stock, field, value)
	case "restock_level":
		return setInt(&p.RestockLevel, field, value)
	case "stock_locations":
		return setString(&p.Locations, field, value)
	case "tags":
		return setString(&p.Tags, field, value)
	case "notes":
		return setString(&p.Notes, field, value)
	default:
		return fmt.Errorf("%w: unknown field %q", shared.ErrValidation, field)
	}
}

func setString(dst *string, field string, value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("%w: field %q must be a string", shared.ErrValidation, field)
	}
	*dst = s
	return nil
}

func setFloat(dst *float64, field string, value any) error {
	f, ok := value.(float64)
	if !ok {
		return fmt.Errorf("%w: field %q must be a number", shared.ErrValidation, field)
	}
	*dst = f
	return nil
}

func setInt(dst *int, field string, value any) error {
	f, ok := value.(float64)
	if !ok || f != float64(int(f)) {
		return fmt.Errorf("%w: field %q must be an integer", shared.ErrValidation, field)
	}
	*dst = int(f)
	return nil
}

func productFromInput(input Input) (Product, error) {
	code := strings.TrimSpace(input.ItemCode)
	if code == "" {
		return Product{}, fmt.Errorf("%w: item code required", shared.ErrValidation)
	}
	if strings.TrimSpace(input.Description) == "" {
		return Product{}, fmt.Errorf("%w: description required", shared.ErrValidation)
	}
	if strings.TrimSpace(input.Unit) == "" {
		return Product{}, fmt.Errorf("%w: unit of measure required", shared.ErrValidation)
	}
	if input.Price < 0 {
		return Product{}, fmt.Errorf("%w: price must be non-negative", shared.ErrValidation)
	}
	return Product{
		ItemCode:     code,
		Description:  strings.TrimSpace(input.Description),
		LocalName:    input.LocalName,
		Unit:         input.Unit,
		Price:        input.Price,
		Stock:        input.Stock,
		RestockLevel: input.RestockLevel,
		Locations:    input.Locations,
		Tags:         input.Tags,
		Notes:        input.Notes,
	}, nil
}
