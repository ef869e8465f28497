// Package customers provides the customer directory module.
package customers

import (
	"salesops_backend/internal/customers/handler"
	"salesops_backend/internal/customers/repository"
	"salesops_backend/internal/customers/service"
	apphttp "salesops_backend/internal/http"
	"salesops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the customers domain module.
type Module struct {
	handler *handler.Handler
	repo    *repository.Repo
}

// NewModule creates a new customers module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, phoneRegion string) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, phoneRegion)
	h := handler.New(svc, val)

	return &Module{handler: h, repo: repo}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "customers"
}

// Repository exposes the repository for the session directory adapter.
func (m *Module) Repository() *repository.Repo {
	return m.repo
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	customers := ctx.Protected.Group("/customers")
	m.handler.RegisterRoutes(customers)

	adminCustomers := ctx.Admin.Group("/customers")
	m.handler.RegisterAdminRoutes(adminCustomers)
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
