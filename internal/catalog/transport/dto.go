package transport

import (
	"time"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// CreateProductRequest is the request body for creating a product.
type CreateProductRequest struct {
	Code        string  `json:"code" validate:"required,min=1,max=100"`
	Name        string  `json:"name" validate:"required,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	PriceCents  int64   `json:"priceCents" validate:"min=0"`
	Category    *string `json:"category" validate:"omitempty,max=100"`
	Stock       int     `json:"stock" validate:"min=0"`
}

// UpdateProductRequest is the request body for a partial product update.
type UpdateProductRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	PriceCents  *int64  `json:"priceCents" validate:"omitempty,min=0"`
	Category    *string `json:"category" validate:"omitempty,max=100"`
	Stock       *int    `json:"stock" validate:"omitempty,min=0"`
	Active      *bool   `json:"active"`
}

// ListProductsRequest defines the query parameters for listing products.
type ListProductsRequest struct {
	Search string `form:"search"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// ProductResponse is a catalog product.
type ProductResponse struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	PriceCents  int64     `json:"priceCents"`
	Category    *string   `json:"category,omitempty"`
	Stock       int       `json:"stock"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
