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

const customerNotFoundMessage = "customer not found"

// Customer is the database model for a customer. The id is a sequential
// integer; it is exposed to the rest of the system as a string ref so the
// composition layer can synthesize refs for customers that are not
// persisted yet.
type Customer struct {
	ID                 int64      `db:"id"`
	Name               string     `db:"name"`
	Email              *string    `db:"email"`
	Phone              *string    `db:"phone"`
	Address            *string    `db:"address"`
	AssignedSalesmanID *uuid.UUID `db:"assigned_salesman_id"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

// Repo implements the customers repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new customers repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const customerColumns = `id, name, email, phone, address, assigned_salesman_id, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address,
		&c.AssignedSalesmanID, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

// ListAssigned retrieves the customers assigned to a salesman.
func (r *Repo) ListAssigned(ctx context.Context, salesmanID uuid.UUID) ([]Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE assigned_salesman_id = $1 ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query, salesmanID)
	if err != nil {
		return nil, fmt.Errorf("list assigned customers: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return customers, nil
}

// GetByID retrieves one customer.
func (r *Repo) GetByID(ctx context.Context, id int64) (Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	c, err := scanCustomer(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, apperr.NotFound(customerNotFoundMessage)
		}
		return Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

// CreateParams are the inputs for creating a customer.
type CreateParams struct {
	Name               string
	Email              *string
	Phone              *string
	Address            *string
	AssignedSalesmanID *uuid.UUID
}

// Create inserts a new customer.
func (r *Repo) Create(ctx context.Context, params CreateParams) (Customer, error) {
	query := `
		INSERT INTO customers (name, email, phone, address, assigned_salesman_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + customerColumns

	c, err := scanCustomer(r.pool.QueryRow(ctx, query,
		params.Name, params.Email, params.Phone, params.Address, params.AssignedSalesmanID,
	))
	if err != nil {
		return Customer{}, fmt.Errorf("create customer: %w", err)
	}
	return c, nil
}

// AssignSalesman moves a customer to a salesman.
func (r *Repo) AssignSalesman(ctx context.Context, id int64, salesmanID uuid.UUID) error {
	query := `UPDATE customers SET assigned_salesman_id = $2, updated_at = now() WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id, salesmanID)
	if err != nil {
		return fmt.Errorf("assign customer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(customerNotFoundMessage)
	}
	return nil
}
