// Package auth provides the authentication module.
package auth

import (
	"salesops_backend/internal/auth/handler"
	"salesops_backend/internal/auth/repository"
	"salesops_backend/internal/auth/service"
	"salesops_backend/internal/config"
	apphttp "salesops_backend/internal/http"
	"salesops_backend/platform/logger"
	"salesops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the auth domain module.
type Module struct {
	handler *handler.Handler
}

// NewModule creates a new auth module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, cfg *config.Config, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cfg, log)
	h := handler.New(svc, val)

	return &Module{handler: h}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "auth"
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	public := ctx.V1.Group("/auth")
	m.handler.RegisterPublicRoutes(public)

	protected := ctx.Protected.Group("/auth")
	m.handler.RegisterRoutes(protected)

	m.handler.RegisterAdminRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
