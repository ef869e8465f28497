package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salesops_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const productNotFoundMessage = "product not found"

// Product is the database model for a catalog product.
type Product struct {
	ID          uuid.UUID `db:"id"`
	Code        string    `db:"code"`
	Name        string    `db:"name"`
	Description *string   `db:"description"`
	PriceCents  int64     `db:"price_cents"`
	Category    *string   `db:"category"`
	Stock       int       `db:"stock"`
	Active      bool      `db:"active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Repo implements the catalog repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new catalog repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const productColumns = `id, code, name, description, price_cents, category, stock, active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.Code, &p.Name, &p.Description, &p.PriceCents,
		&p.Category, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// GetByID retrieves a product by id regardless of its active flag. Quotation
// lines keep pointing at deactivated products, so reads stay unscoped and
// callers that hand out products for selection check Active themselves.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, apperr.NotFound(productNotFoundMessage)
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetByCode retrieves an active product by its scan code.
func (r *Repo) GetByCode(ctx context.Context, code string) (Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE code = $1 AND active = true`
	p, err := scanProduct(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, apperr.NotFound(productNotFoundMessage)
		}
		return Product{}, fmt.Errorf("get product by code: %w", err)
	}
	return p, nil
}

// ListActive retrieves all active products, optionally filtered by a name or
// code search term.
func (r *Repo) ListActive(ctx context.Context, search string) ([]Product, error) {
	var searchParam interface{}
	if search != "" {
		searchParam = "%" + search + "%"
	}

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE active = true
			AND ($1::text IS NULL OR name ILIKE $1 OR code ILIKE $1)
		ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query, searchParam)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

// CreateParams are the inputs for creating a product.
type CreateParams struct {
	Code        string
	Name        string
	Description *string
	PriceCents  int64
	Category    *string
	Stock       int
}

// Create inserts a new product.
func (r *Repo) Create(ctx context.Context, params CreateParams) (Product, error) {
	query := `
		INSERT INTO products (id, code, name, description, price_cents, category, stock, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true)
		RETURNING ` + productColumns

	p, err := scanProduct(r.pool.QueryRow(ctx, query,
		uuid.New(), params.Code, params.Name, params.Description,
		params.PriceCents, params.Category, params.Stock,
	))
	if err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

// UpdateParams are the inputs for updating a product. Nil fields are left
// unchanged.
type UpdateParams struct {
	ID          uuid.UUID
	Name        *string
	Description *string
	PriceCents  *int64
	Category    *string
	Stock       *int
	Active      *bool
}

// Update applies a partial update to a product.
func (r *Repo) Update(ctx context.Context, params UpdateParams) (Product, error) {
	query := `
		UPDATE products
		SET name = COALESCE($2, name),
			description = COALESCE($3, description),
			price_cents = COALESCE($4, price_cents),
			category = COALESCE($5, category),
			stock = COALESCE($6, stock),
			active = COALESCE($7, active),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + productColumns

	p, err := scanProduct(r.pool.QueryRow(ctx, query,
		params.ID, params.Name, params.Description, params.PriceCents,
		params.Category, params.Stock, params.Active,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, apperr.NotFound(productNotFoundMessage)
		}
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}
