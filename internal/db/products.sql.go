package db

import (
	"context"

	"github.com/google/uuid"
)

const productColumns = `id, category_id, name, description, price, image_url, is_available, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID,
		&p.CategoryID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.ImageURL,
		&p.IsAvailable,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

const getProductsByIDs = `-- name: GetProductsByIDs :many
SELECT ` + productColumns + `
FROM products
WHERE id = ANY($1::uuid[]) AND is_available
`

// GetProductsByIDs returns available products only. Unavailable or missing
// ids are simply absent from the result.
func (q *Queries) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error) {
	rows, err := q.db.Query(ctx, getProductsByIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const getProduct = `-- name: GetProduct :one
SELECT ` + productColumns + ` FROM products WHERE id = $1
`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, id))
}

const listMenuProducts = `-- name: ListMenuProducts :many
SELECT p.id, p.category_id, p.name, p.description, p.price, p.image_url, p.is_available, p.created_at, p.updated_at
FROM products p
LEFT JOIN categories c ON c.id = p.category_id
WHERE p.is_available OR $1::bool
ORDER BY c.sort_order NULLS LAST, c.name NULLS LAST, p.name
`

func (q *Queries) ListMenuProducts(ctx context.Context, includeUnavailable bool) ([]Product, error) {
	rows, err := q.db.Query(ctx, listMenuProducts, includeUnavailable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const countProducts = `-- name: CountProducts :one
SELECT count(*) FROM products
`

func (q *Queries) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countProducts).Scan(&n)
	return n, err
}

const createProduct = `-- name: CreateProduct :one
INSERT INTO products (category_id, name, description, price, image_url, is_available)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + productColumns

type CreateProductParams struct {
	CategoryID  *uuid.UUID
	Name        string
	Description string
	Price       int64
	ImageURL    string
	IsAvailable bool
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, createProduct,
		arg.CategoryID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.ImageURL,
		arg.IsAvailable,
	))
}

const updateProduct = `-- name: UpdateProduct :one
UPDATE products
SET category_id = $2, name = $3, description = $4, price = $5, image_url = $6, updated_at = now()
WHERE id = $1
RETURNING ` + productColumns

type UpdateProductParams struct {
	ID          uuid.UUID
	CategoryID  *uuid.UUID
	Name        string
	Description string
	Price       int64
	ImageURL    string
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, updateProduct,
		arg.ID,
		arg.CategoryID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.ImageURL,
	))
}

const setProductAvailability = `-- name: SetProductAvailability :one
UPDATE products SET is_available = $2, updated_at = now() WHERE id = $1
RETURNING ` + productColumns

func (q *Queries) SetProductAvailability(ctx context.Context, id uuid.UUID, available bool) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, setProductAvailability, id, available))
}

const listCategories = `-- name: ListCategories :many
SELECT id, name, sort_order FROM categories ORDER BY sort_order, name
`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.SortOrder); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const upsertCategory = `-- name: UpsertCategory :one
INSERT INTO categories (name, sort_order) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET sort_order = EXCLUDED.sort_order
RETURNING id, name, sort_order
`

func (q *Queries) UpsertCategory(ctx context.Context, name string, sortOrder int32) (Category, error) {
	var c Category
	err := q.db.QueryRow(ctx, upsertCategory, name, sortOrder).Scan(&c.ID, &c.Name, &c.SortOrder)
	return c, err
}
