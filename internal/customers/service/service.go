package service

import (
	"context"
	"strconv"

	"salesops_backend/internal/customers/repository"
	"salesops_backend/internal/customers/transport"
	"salesops_backend/platform/phone"

	"github.com/google/uuid"
)

// Service implements customer operations.
type Service struct {
	repo        *repository.Repo
	phoneRegion string
}

// New creates a new customers service.
func New(repo *repository.Repo, phoneRegion string) *Service {
	return &Service{repo: repo, phoneRegion: phoneRegion}
}

// ListAssigned returns the customers assigned to a salesman.
func (s *Service) ListAssigned(ctx context.Context, salesmanID uuid.UUID) ([]transport.CustomerResponse, error) {
	customers, err := s.repo.ListAssigned(ctx, salesmanID)
	if err != nil {
		return nil, err
	}

	out := make([]transport.CustomerResponse, len(customers))
	for i, c := range customers {
		out[i] = toResponse(c)
	}
	return out, nil
}

// Create inserts a new customer, normalizing the phone number.
func (s *Service) Create(ctx context.Context, req transport.CreateCustomerRequest) (transport.CustomerResponse, error) {
	customerPhone := req.Phone
	if customerPhone != nil && *customerPhone != "" {
		normalized := phone.NormalizeE164(*customerPhone, s.phoneRegion)
		customerPhone = &normalized
	}

	c, err := s.repo.Create(ctx, repository.CreateParams{
		Name:               req.Name,
		Email:              req.Email,
		Phone:              customerPhone,
		Address:            req.Address,
		AssignedSalesmanID: req.AssignedSalesmanID,
	})
	if err != nil {
		return transport.CustomerResponse{}, err
	}
	return toResponse(c), nil
}

// Assign moves a customer to a salesman.
func (s *Service) Assign(ctx context.Context, customerID int64, salesmanID uuid.UUID) error {
	return s.repo.AssignSalesman(ctx, customerID, salesmanID)
}

func toResponse(c repository.Customer) transport.CustomerResponse {
	return transport.CustomerResponse{
		Ref:                strconv.FormatInt(c.ID, 10),
		Name:               c.Name,
		Email:              c.Email,
		Phone:              c.Phone,
		Address:            c.Address,
		AssignedSalesmanID: c.AssignedSalesmanID,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}
