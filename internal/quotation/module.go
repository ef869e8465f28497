// Package quotation provides the quotation composition and lifecycle module.
package quotation

import (
	apphttp "salesops_backend/internal/http"
	"salesops_backend/internal/quotation/handler"
	"salesops_backend/internal/quotation/repository"
	"salesops_backend/internal/quotation/resolver"
	"salesops_backend/internal/quotation/service"
	"salesops_backend/internal/quotation/session"
	"salesops_backend/internal/quotation/staging"
	"salesops_backend/platform/events"
	"salesops_backend/platform/logger"
	"salesops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps are the collaborators the quotation module is wired with.
type Deps struct {
	Pool        *pgxpool.Pool
	EventBus    events.Bus
	Validator   *validator.Validator
	Logger      *logger.Logger
	Scans       staging.ScanStore
	Handoffs    staging.HandoffStore
	Directory   resolver.Directory
	Customers   session.CustomerDirectory
	Expiry      service.ExpiryScheduler
	TaxRateBps  int
	PhoneRegion string
}

// Module represents the quotation domain module.
type Module struct {
	handler  *handler.Handler
	service  *service.Service
	sessions *session.Manager
}

// NewModule creates a new quotation module with all dependencies wired.
func NewModule(d Deps) *Module {
	repo := repository.New(d.Pool)
	res := resolver.New(d.Directory, d.Scans)
	sessions := session.NewManager(d.TaxRateBps, res, d.Directory, d.Customers, d.Scans, d.Handoffs, d.Logger)
	svc := service.New(repo, sessions, d.EventBus, d.Expiry, d.PhoneRegion, d.Logger)
	h := handler.New(svc, sessions, d.Handoffs, d.Validator)

	return &Module{handler: h, service: svc, sessions: sessions}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "quotation"
}

// Service returns the service layer for external use (the expiry worker).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	quotations := ctx.Protected.Group("/quotations")
	m.handler.RegisterRoutes(quotations)
	m.handler.RegisterHandoffRoutes(ctx.Protected)
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
