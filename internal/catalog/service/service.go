package service

import (
	"context"
	"encoding/json"
	"fmt"

	"salesops_backend/internal/catalog/repository"
	"salesops_backend/internal/catalog/transport"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

// Service implements catalog operations.
type Service struct {
	repo *repository.Repo
}

// New creates a new catalog service.
func New(repo *repository.Repo) *Service {
	return &Service{repo: repo}
}

// Get returns one active product.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.ProductResponse, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ProductResponse{}, err
	}
	return toResponse(p), nil
}

// GetByCode returns one active product by its scan code.
func (s *Service) GetByCode(ctx context.Context, code string) (transport.ProductResponse, error) {
	p, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return transport.ProductResponse{}, err
	}
	return toResponse(p), nil
}

// ListActive returns all active products matching the search term.
func (s *Service) ListActive(ctx context.Context, search string) ([]transport.ProductResponse, error) {
	products, err := s.repo.ListActive(ctx, search)
	if err != nil {
		return nil, err
	}

	out := make([]transport.ProductResponse, len(products))
	for i, p := range products {
		out[i] = toResponse(p)
	}
	return out, nil
}

// Create inserts a new product.
func (s *Service) Create(ctx context.Context, req transport.CreateProductRequest) (transport.ProductResponse, error) {
	p, err := s.repo.Create(ctx, repository.CreateParams{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Category:    req.Category,
		Stock:       req.Stock,
	})
	if err != nil {
		return transport.ProductResponse{}, err
	}
	return toResponse(p), nil
}

// Update applies a partial update to a product.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateProductRequest) (transport.ProductResponse, error) {
	p, err := s.repo.Update(ctx, repository.UpdateParams{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Category:    req.Category,
		Stock:       req.Stock,
		Active:      req.Active,
	})
	if err != nil {
		return transport.ProductResponse{}, err
	}
	return toResponse(p), nil
}

// qrLabel is the self-describing payload printed on product labels. Scanners
// reading it carry enough to resolve the product without a directory lookup.
type qrLabel struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Stock       int     `json:"stock"`
}

// QRLabelPNG renders the product's label QR code as a PNG image.
func (s *Service) QRLabelPNG(ctx context.Context, id uuid.UUID, size int) ([]byte, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	label := qrLabel{
		Code:  p.Code,
		Name:  p.Name,
		Price: float64(p.PriceCents) / 100,
		Stock: p.Stock,
	}
	if p.Description != nil {
		label.Description = *p.Description
	}
	if p.Category != nil {
		label.Category = *p.Category
	}

	payload, err := json.Marshal(label)
	if err != nil {
		return nil, fmt.Errorf("marshal label payload: %w", err)
	}

	png, err := qrcode.Encode(string(payload), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode label qr: %w", err)
	}
	return png, nil
}

func toResponse(p repository.Product) transport.ProductResponse {
	return transport.ProductResponse{
		ID:          p.ID,
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		Category:    p.Category,
		Stock:       p.Stock,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
