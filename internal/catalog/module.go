// Package catalog provides the product catalog module.
package catalog

import (
	"salesops_backend/internal/catalog/handler"
	"salesops_backend/internal/catalog/repository"
	"salesops_backend/internal/catalog/service"
	apphttp "salesops_backend/internal/http"
	"salesops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the catalog domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repo
}

// NewModule creates a new catalog module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc, repo: repo}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "catalog"
}

// Repository exposes the repository for the directory adapter.
func (m *Module) Repository() *repository.Repo {
	return m.repo
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	products := ctx.Protected.Group("/products")
	m.handler.RegisterRoutes(products)

	adminProducts := ctx.Admin.Group("/products")
	m.handler.RegisterAdminRoutes(adminProducts)
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
