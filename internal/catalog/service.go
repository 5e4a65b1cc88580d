package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/kopi-pos/internal/cache"
	"github.com/noah-isme/kopi-pos/internal/common"
	"github.com/noah-isme/kopi-pos/internal/db"
)

// ErrProductUnavailable is returned when a requested product is missing or switched off.
var ErrProductUnavailable = errors.New("catalog: product unavailable")

const uncategorized = "Other"

type queryProvider interface {
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]db.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (db.Product, error)
	ListMenuProducts(ctx context.Context, includeUnavailable bool) ([]db.Product, error)
	ListCategories(ctx context.Context) ([]db.Category, error)
	CreateProduct(ctx context.Context, arg db.CreateProductParams) (db.Product, error)
	UpdateProduct(ctx context.Context, arg db.UpdateProductParams) (db.Product, error)
	SetProductAvailability(ctx context.Context, id uuid.UUID, available bool) (db.Product, error)
}

// Service orchestrates menu queries and caching.
type Service struct {
	queries queryProvider
	cache   *cache.JSON
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries queryProvider
	Cache   *cache.JSON
}

// MenuSection groups products under their category for the ordering screen.
type MenuSection struct {
	CategoryID *string      `json:"categoryId,omitempty"`
	Category   string       `json:"category"`
	Products   []db.Product `json:"products"`
}

// ProductInput carries admin create and update fields.
type ProductInput struct {
	CategoryID  *uuid.UUID `json:"categoryId"`
	Name        string     `json:"name" validate:"required,max=120"`
	Description string     `json:"description" validate:"max=1000"`
	Price       int64      `json:"price" validate:"gte=0"`
	ImageURL    string     `json:"imageUrl" validate:"omitempty,url"`
	IsAvailable *bool      `json:"isAvailable"`
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	return &Service{queries: cfg.Queries, cache: cfg.Cache}, nil
}

// GetProductsByIDs loads the authoritative price list for checkout. It always
// reads the database and returns only available products, keyed by id.
func (s *Service) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]db.Product, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]db.Product{}, nil
	}
	rows, err := s.queries.GetProductsByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	out := make(map[uuid.UUID]db.Product, len(rows))
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

// GetProduct returns a single product, available or not.
func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (db.Product, error) {
	p, err := s.queries.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Product{}, common.NotFoundError("PRODUCT_NOT_FOUND", "product not found", err)
		}
		return db.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// ListMenu returns products grouped by category in category sort order.
func (s *Service) ListMenu(ctx context.Context, includeUnavailable bool) ([]MenuSection, error) {
	key := cache.KeyMenu(includeUnavailable)
	var cached []MenuSection
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	categories, err := s.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	products, err := s.queries.ListMenuProducts(ctx, includeUnavailable)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	byCategory := make(map[uuid.UUID][]db.Product, len(categories))
	var other []db.Product
	for _, p := range products {
		if p.CategoryID == nil {
			other = append(other, p)
			continue
		}
		byCategory[*p.CategoryID] = append(byCategory[*p.CategoryID], p)
	}

	sections := make([]MenuSection, 0, len(categories)+1)
	seen := make(map[uuid.UUID]struct{}, len(categories))
	for _, c := range categories {
		seen[c.ID] = struct{}{}
		items := byCategory[c.ID]
		if len(items) == 0 {
			continue
		}
		id := c.ID.String()
		sections = append(sections, MenuSection{CategoryID: &id, Category: c.Name, Products: items})
	}
	// products pointing at a deleted category fall through to the catch-all section
	for id, items := range byCategory {
		if _, ok := seen[id]; !ok {
			other = append(other, items...)
		}
	}
	if len(other) > 0 {
		sections = append(sections, MenuSection{Category: uncategorized, Products: other})
	}

	_ = s.cache.SetJSON(ctx, key, sections)
	return sections, nil
}

// ListCategories returns all categories.
func (s *Service) ListCategories(ctx context.Context) ([]db.Category, error) {
	rows, err := s.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if rows == nil {
		rows = []db.Category{}
	}
	return rows, nil
}

// CreateProduct inserts a product. New products are available unless stated otherwise.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (db.Product, error) {
	if err := in.normalize(); err != nil {
		return db.Product{}, err
	}
	available := true
	if in.IsAvailable != nil {
		available = *in.IsAvailable
	}
	p, err := s.queries.CreateProduct(ctx, db.CreateProductParams{
		CategoryID:  in.CategoryID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		ImageURL:    in.ImageURL,
		IsAvailable: available,
	})
	if err != nil {
		return db.Product{}, fmt.Errorf("create product: %w", err)
	}
	s.invalidate(ctx)
	return p, nil
}

// UpdateProduct replaces the editable fields of a product.
func (s *Service) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (db.Product, error) {
	if err := in.normalize(); err != nil {
		return db.Product{}, err
	}
	p, err := s.queries.UpdateProduct(ctx, db.UpdateProductParams{
		ID:          id,
		CategoryID:  in.CategoryID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		ImageURL:    in.ImageURL,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Product{}, common.NotFoundError("PRODUCT_NOT_FOUND", "product not found", err)
		}
		return db.Product{}, fmt.Errorf("update product: %w", err)
	}
	if in.IsAvailable != nil && *in.IsAvailable != p.IsAvailable {
		return s.SetAvailability(ctx, id, *in.IsAvailable)
	}
	s.invalidate(ctx)
	return p, nil
}

// SetAvailability toggles whether a product can be ordered.
func (s *Service) SetAvailability(ctx context.Context, id uuid.UUID, available bool) (db.Product, error) {
	p, err := s.queries.SetProductAvailability(ctx, id, available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Product{}, common.NotFoundError("PRODUCT_NOT_FOUND", "product not found", err)
		}
		return db.Product{}, fmt.Errorf("set availability: %w", err)
	}
	s.invalidate(ctx)
	return p, nil
}

func (s *Service) invalidate(ctx context.Context) {
	_ = s.cache.Delete(ctx, cache.KeyMenuAvailable, cache.KeyMenuAll)
}

func (in *ProductInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return badRequest("name", "name is required", nil)
	}
	if in.Price < 0 {
		return badRequest("price", "price must not be negative", nil)
	}
	return nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func badRequest(field, message string, err error) *common.AppError {
	return common.ValidationError("BAD_REQUEST", message, err).WithDetails(map[string]any{"field": field})
}
