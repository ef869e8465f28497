// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"salesops_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Quotation Domain Events
// =============================================================================

// QuotationCreated is published when a quotation is first persisted.
type QuotationCreated struct {
	BaseEvent
	QuotationID  uuid.UUID `json:"quotationId"`
	SalesmanID   uuid.UUID `json:"salesmanId"`
	CustomerName string    `json:"customerName"`
	Status       string    `json:"status"`
	TotalCents   int64     `json:"totalCents"`
}

func (e QuotationCreated) EventName() string { return "quotations.created" }

// QuotationSent is published when a quotation is submitted to the customer.
type QuotationSent struct {
	BaseEvent
	QuotationID     uuid.UUID  `json:"quotationId"`
	QuotationNumber string     `json:"quotationNumber"`
	SalesmanID      uuid.UUID  `json:"salesmanId"`
	SalesmanName    string     `json:"salesmanName"`
	CustomerName    string     `json:"customerName"`
	CustomerEmail   string     `json:"customerEmail,omitempty"`
	TotalCents      int64      `json:"totalCents"`
	ValidUntil      *time.Time `json:"validUntil,omitempty"`
}

func (e QuotationSent) EventName() string { return "quotations.sent" }

// QuotationStatusChanged is published when a quotation status is updated.
type QuotationStatusChanged struct {
	BaseEvent
	QuotationID uuid.UUID `json:"quotationId"`
	SalesmanID  uuid.UUID `json:"salesmanId"`
	OldStatus   string    `json:"oldStatus"`
	NewStatus   string    `json:"newStatus"`
}

func (e QuotationStatusChanged) EventName() string { return "quotations.status_changed" }

// QuotationExpired is published by the worker when a sent quotation passes
// its valid-until date without a response.
type QuotationExpired struct {
	BaseEvent
	QuotationID uuid.UUID `json:"quotationId"`
	SalesmanID  uuid.UUID `json:"salesmanId"`
}

func (e QuotationExpired) EventName() string { return "quotations.expired" }

// QuotationDeleted is published when a quotation is removed.
type QuotationDeleted struct {
	BaseEvent
	QuotationID uuid.UUID `json:"quotationId"`
	SalesmanID  uuid.UUID `json:"salesmanId"`
}

func (e QuotationDeleted) EventName() string { return "quotations.deleted" }
