package transport

import (
	"time"

	"github.com/google/uuid"
)

// Roles known to the application.
const (
	RoleSalesman = "salesman"
	RoleAdmin    = "admin"
)

// SignInRequest is the request body for signing in.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// CreateUserRequest is the request body for creating a user.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Role     string `json:"role" validate:"required,oneof=salesman admin"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// UserResponse is a user exposed to transport.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// SignInResponse carries the issued access token and the signed-in user.
type SignInResponse struct {
	AccessToken string       `json:"accessToken"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	User        UserResponse `json:"user"`
}
