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

// ── Domain Models ─────────────────────────────────────────────────────────────

// Quotation is the database model for a quotation header.
type Quotation struct {
	ID              uuid.UUID  `db:"id"`
	QuotationNumber string     `db:"quotation_number"`
	SalesmanID      uuid.UUID  `db:"salesman_id"`
	CustomerRef     *string    `db:"customer_ref"`
	CustomerName    string     `db:"customer_name"`
	CustomerEmail   *string    `db:"customer_email"`
	CustomerPhone   *string    `db:"customer_phone"`
	CustomerAddress *string    `db:"customer_address"`
	Status          string     `db:"status"`
	TaxRateBps      int        `db:"tax_rate_bps"`
	SubtotalCents   int64      `db:"subtotal_cents"`
	TaxCents        int64      `db:"tax_cents"`
	TotalCents      int64      `db:"total_cents"`
	ValidUntil      *time.Time `db:"valid_until"`
	Notes           *string    `db:"notes"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// QuotationItem is the database model for one quotation line.
type QuotationItem struct {
	ID              uuid.UUID `db:"id"`
	QuotationID     uuid.UUID `db:"quotation_id"`
	ProductRef      *string   `db:"product_ref"`
	ProductCode     string    `db:"product_code"`
	ProductName     string    `db:"product_name"`
	Quantity        float64   `db:"quantity"`
	UnitPriceCents  int64     `db:"unit_price_cents"`
	DiscountPercent float64   `db:"discount_percent"`
	LineTotalCents  int64     `db:"line_total_cents"`
	SortOrder       int       `db:"sort_order"`
	CreatedAt       time.Time `db:"created_at"`
}

// ListParams contains parameters for listing quotations.
type ListParams struct {
	SalesmanID uuid.UUID
	Status     *string
	Search     string
	Page       int
	PageSize   int
}

// ListResult contains the paginated result of listing quotations.
type ListResult struct {
	Items      []Quotation
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// ── Repository ────────────────────────────────────────────────────────────────

const quotationNotFoundMsg = "quotation not found"

// Repository provides database operations for quotations.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new quotation repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// NextQuotationNumber atomically generates the next quotation number.
func (r *Repository) NextQuotationNumber(ctx context.Context) (string, error) {
	var nextNum int
	query := `
		INSERT INTO quotation_counters (counter_year, last_number)
		VALUES ($1, 1)
		ON CONFLICT (counter_year) DO UPDATE SET last_number = quotation_counters.last_number + 1
		RETURNING last_number`

	year := time.Now().Year()
	if err := r.pool.QueryRow(ctx, query, year).Scan(&nextNum); err != nil {
		return "", fmt.Errorf("failed to generate quotation number: %w", err)
	}

	return fmt.Sprintf("QTN-%d-%04d", year, nextNum), nil
}

// CreateWithItems inserts a quotation and its line items in one transaction.
func (r *Repository) CreateWithItems(ctx context.Context, q *Quotation, items []QuotationItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	headerQuery := `
		INSERT INTO quotations (
			id, quotation_number, salesman_id,
			customer_ref, customer_name, customer_email, customer_phone, customer_address,
			status, tax_rate_bps, subtotal_cents, tax_cents, total_cents,
			valid_until, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	if _, err := tx.Exec(ctx, headerQuery,
		q.ID, q.QuotationNumber, q.SalesmanID,
		q.CustomerRef, q.CustomerName, q.CustomerEmail, q.CustomerPhone, q.CustomerAddress,
		q.Status, q.TaxRateBps, q.SubtotalCents, q.TaxCents, q.TotalCents,
		q.ValidUntil, q.Notes, q.CreatedAt, q.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert quotation: %w", err)
	}

	if err := r.insertItems(ctx, tx, items); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// UpdateWithItems updates a quotation header and replaces its line items.
// The update is scoped to the owning salesman.
func (r *Repository) UpdateWithItems(ctx context.Context, q *Quotation, items []QuotationItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	updateQuery := `
		UPDATE quotations SET
			customer_ref = $3, customer_name = $4, customer_email = $5,
			customer_phone = $6, customer_address = $7,
			status = $8, tax_rate_bps = $9,
			subtotal_cents = $10, tax_cents = $11, total_cents = $12,
			valid_until = $13, notes = $14, updated_at = $15
		WHERE id = $1 AND salesman_id = $2`

	result, err := tx.Exec(ctx, updateQuery,
		q.ID, q.SalesmanID,
		q.CustomerRef, q.CustomerName, q.CustomerEmail, q.CustomerPhone, q.CustomerAddress,
		q.Status, q.TaxRateBps, q.SubtotalCents, q.TaxCents, q.TotalCents,
		q.ValidUntil, q.Notes, q.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update quotation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(quotationNotFoundMsg)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM quotation_items WHERE quotation_id = $1`, q.ID); err != nil {
		return fmt.Errorf("failed to delete old quotation items: %w", err)
	}
	if err := r.insertItems(ctx, tx, items); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *Repository) insertItems(ctx context.Context, tx pgx.Tx, items []QuotationItem) error {
	itemQuery := `
		INSERT INTO quotation_items (
			id, quotation_id, product_ref, product_code, product_name,
			quantity, unit_price_cents, discount_percent, line_total_cents,
			sort_order, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	for _, item := range items {
		if _, err := tx.Exec(ctx, itemQuery,
			item.ID, item.QuotationID, item.ProductRef, item.ProductCode, item.ProductName,
			item.Quantity, item.UnitPriceCents, item.DiscountPercent, item.LineTotalCents,
			item.SortOrder, item.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert quotation item: %w", err)
		}
	}
	return nil
}

// GetByID retrieves a quotation by id. Ownership is checked by the service,
// not here, so an authorization failure can be told apart from a missing row.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Quotation, error) {
	var q Quotation
	query := `
		SELECT id, quotation_number, salesman_id,
			customer_ref, customer_name, customer_email, customer_phone, customer_address,
			status, tax_rate_bps, subtotal_cents, tax_cents, total_cents,
			valid_until, notes, created_at, updated_at
		FROM quotations WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&q.ID, &q.QuotationNumber, &q.SalesmanID,
		&q.CustomerRef, &q.CustomerName, &q.CustomerEmail, &q.CustomerPhone, &q.CustomerAddress,
		&q.Status, &q.TaxRateBps, &q.SubtotalCents, &q.TaxCents, &q.TotalCents,
		&q.ValidUntil, &q.Notes, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(quotationNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get quotation: %w", err)
	}
	return &q, nil
}

// GetItemsByQuotationID retrieves all items for a quotation in sort order.
func (r *Repository) GetItemsByQuotationID(ctx context.Context, quotationID uuid.UUID) ([]QuotationItem, error) {
	query := `
		SELECT id, quotation_id, product_ref, product_code, product_name,
			quantity, unit_price_cents, discount_percent, line_total_cents,
			sort_order, created_at
		FROM quotation_items WHERE quotation_id = $1
		ORDER BY sort_order ASC`

	rows, err := r.pool.Query(ctx, query, quotationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotation items: %w", err)
	}
	defer rows.Close()

	var items []QuotationItem
	for rows.Next() {
		var it QuotationItem
		if err := rows.Scan(
			&it.ID, &it.QuotationID, &it.ProductRef, &it.ProductCode, &it.ProductName,
			&it.Quantity, &it.UnitPriceCents, &it.DiscountPercent, &it.LineTotalCents,
			&it.SortOrder, &it.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan quotation item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quotation items: %w", err)
	}
	return items, nil
}

// UpdateStatus updates the status of a quotation owned by the salesman.
func (r *Repository) UpdateStatus(ctx context.Context, id, salesmanID uuid.UUID, status string) error {
	query := `UPDATE quotations SET status = $3, updated_at = $4 WHERE id = $1 AND salesman_id = $2`
	result, err := r.pool.Exec(ctx, query, id, salesmanID, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update quotation status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(quotationNotFoundMsg)
	}
	return nil
}

// ExpireIfSent moves a quotation from Sent to Expired. It reports whether a
// row actually changed, so an already accepted or rejected quotation is left
// alone.
func (r *Repository) ExpireIfSent(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `UPDATE quotations SET status = 'Expired', updated_at = $2 WHERE id = $1 AND status = 'Sent'`
	result, err := r.pool.Exec(ctx, query, id, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to expire quotation: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Delete removes a quotation (cascade deletes items).
func (r *Repository) Delete(ctx context.Context, id, salesmanID uuid.UUID) error {
	query := `DELETE FROM quotations WHERE id = $1 AND salesman_id = $2`
	result, err := r.pool.Exec(ctx, query, id, salesmanID)
	if err != nil {
		return fmt.Errorf("failed to delete quotation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(quotationNotFoundMsg)
	}
	return nil
}

// List retrieves the salesman's quotations with filtering and pagination.
func (r *Repository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	var statusParam interface{}
	if params.Status != nil {
		statusParam = *params.Status
	}

	var searchParam interface{}
	if params.Search != "" {
		searchParam = "%" + params.Search + "%"
	}

	baseQuery := `
		FROM quotations
		WHERE salesman_id = $1
			AND ($2::text IS NULL OR status = $2)
			AND ($3::text IS NULL OR quotation_number ILIKE $3 OR customer_name ILIKE $3)
	`
	args := []interface{}{params.SalesmanID, statusParam, searchParam}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count quotations: %w", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	offset := (params.Page - 1) * params.PageSize

	selectQuery := `
		SELECT id, quotation_number, salesman_id,
			customer_ref, customer_name, customer_email, customer_phone, customer_address,
			status, tax_rate_bps, subtotal_cents, tax_cents, total_cents,
			valid_until, notes, created_at, updated_at
		` + baseQuery + `
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`

	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotations: %w", err)
	}
	defer rows.Close()

	var items []Quotation
	for rows.Next() {
		var q Quotation
		if err := rows.Scan(
			&q.ID, &q.QuotationNumber, &q.SalesmanID,
			&q.CustomerRef, &q.CustomerName, &q.CustomerEmail, &q.CustomerPhone, &q.CustomerAddress,
			&q.Status, &q.TaxRateBps, &q.SubtotalCents, &q.TaxCents, &q.TotalCents,
			&q.ValidUntil, &q.Notes, &q.CreatedAt, &q.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan quotation: %w", err)
		}
		items = append(items, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quotations: %w", err)
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}
