package service

import (
	"context"
	"time"

	"salesops_backend/internal/auth/password"
	"salesops_backend/internal/auth/repository"
	"salesops_backend/internal/auth/transport"
	"salesops_backend/internal/config"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/httpkit"
	"salesops_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const invalidCredentialsMessage = "invalid credentials"

// Service implements authentication.
type Service struct {
	repo *repository.Repository
	cfg  *config.Config
	log  *logger.Logger
}

// New creates a new auth service.
func New(repo *repository.Repository, cfg *config.Config, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, log: log}
}

// SignIn verifies credentials and issues an access token. A missing user and
// a wrong password are indistinguishable to the caller.
func (s *Service) SignIn(ctx context.Context, req transport.SignInRequest) (*transport.SignInResponse, error) {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		s.log.AuthEvent("sign_in", req.Email, false, "unknown user")
		return nil, apperr.Unauthorized(invalidCredentialsMessage)
	}

	if err := password.Compare(user.PasswordHash, req.Password); err != nil {
		s.log.AuthEvent("sign_in", req.Email, false, "wrong password")
		return nil, apperr.Unauthorized(invalidCredentialsMessage)
	}

	expiresAt := time.Now().Add(s.cfg.AccessTokenTTL)
	claims := httpkit.AccessClaims{
		Name: user.Name,
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tokenObj.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to issue token", err)
	}

	s.log.AuthEvent("sign_in", req.Email, true, "")
	return &transport.SignInResponse{
		AccessToken: signed,
		ExpiresAt:   expiresAt,
		User:        toUserResponse(user),
	}, nil
}

// Me returns the calling user's profile.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*transport.UserResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// CreateUser provisions a new account.
func (s *Service) CreateUser(ctx context.Context, req transport.CreateUserRequest) (*transport.UserResponse, error) {
	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	user, err := s.repo.Create(ctx, req.Email, req.Name, req.Role, hash)
	if err != nil {
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

func toUserResponse(u repository.User) transport.UserResponse {
	return transport.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
