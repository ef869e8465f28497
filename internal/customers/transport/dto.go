package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateCustomerRequest is the request body for creating a customer.
type CreateCustomerRequest struct {
	Name               string     `json:"name" validate:"required,min=1,max=200"`
	Email              *string    `json:"email" validate:"omitempty,email,max=200"`
	Phone              *string    `json:"phone" validate:"omitempty,max=30"`
	Address            *string    `json:"address" validate:"omitempty,max=500"`
	AssignedSalesmanID *uuid.UUID `json:"assignedSalesmanId"`
}

// AssignCustomerRequest moves a customer to a salesman.
type AssignCustomerRequest struct {
	SalesmanID uuid.UUID `json:"salesmanId" validate:"required"`
}

// CustomerResponse is a customer exposed to transport. Ref is the string
// form of the sequential customer id.
type CustomerResponse struct {
	Ref                string     `json:"ref"`
	Name               string     `json:"name"`
	Email              *string    `json:"email,omitempty"`
	Phone              *string    `json:"phone,omitempty"`
	Address            *string    `json:"address,omitempty"`
	AssignedSalesmanID *uuid.UUID `json:"assignedSalesmanId,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}
