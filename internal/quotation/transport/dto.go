package transport

import (
	"time"

	"salesops_backend/internal/quotation/session"

	"github.com/google/uuid"
)

// QuotationStatus defines the lifecycle status of a quotation.
type QuotationStatus string

const (
	QuotationStatusDraft    QuotationStatus = "Draft"
	QuotationStatusSent     QuotationStatus = "Sent"
	QuotationStatusAccepted QuotationStatus = "Accepted"
	QuotationStatusRejected QuotationStatus = "Rejected"
	QuotationStatusExpired  QuotationStatus = "Expired"
)

// ── Session Requests ──────────────────────────────────────────────────────────

// ScanRequest carries one scanner payload.
type ScanRequest struct {
	Payload string `json:"payload" validate:"required"`
}

// ResolveCodeRequest carries a manually entered product code.
type ResolveCodeRequest struct {
	Code string `json:"code" validate:"required,min=1,max=100"`
}

// AddFromCatalogRequest identifies a directly selected catalog entry.
type AddFromCatalogRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

// UpdateLineFieldRequest applies one raw field edit to a line item.
type UpdateLineFieldRequest struct {
	Field string `json:"field" validate:"required,oneof=quantity unitPrice discountPercent productName"`
	Value string `json:"value"`
}

// SelectLineProductRequest binds a line to a catalog entry; an empty ref
// clears the line's product fields.
type SelectLineProductRequest struct {
	ProductRef string `json:"productRef"`
}

// SelectCustomerRequest binds a customer from the known set by ref.
type SelectCustomerRequest struct {
	Ref string `json:"ref" validate:"required"`
}

// UpdateDetailsRequest sets draft-level fields.
type UpdateDetailsRequest struct {
	ValidUntil *time.Time `json:"validUntil"`
	Notes      *string    `json:"notes"`
}

// HandoffRequest stages a customer handoff for a salesman's next session.
type HandoffRequest struct {
	SalesmanID uuid.UUID `json:"salesmanId" validate:"required"`
	Source     string    `json:"source" validate:"required,oneof=visit_target milestone"`
	Name       string    `json:"name" validate:"required,min=1,max=200"`
	Address    string    `json:"address" validate:"max=500"`
	City       string    `json:"city" validate:"max=100"`
	State      string    `json:"state" validate:"max=100"`
	Pincode    string    `json:"pincode" validate:"max=20"`
}

// ── Lifecycle Requests ────────────────────────────────────────────────────────

// SaveRequest finalizes the open session into a persisted quotation. The
// amounts live server-side in the session, so the body only chooses the
// target status.
type SaveRequest struct {
	Status QuotationStatus `json:"status" validate:"required,oneof=Draft Sent"`
}

// UpdateStatusRequest moves a persisted quotation to a new status.
type UpdateStatusRequest struct {
	Status QuotationStatus `json:"status" validate:"required,oneof=Draft Sent Accepted Rejected Expired"`
}

// ListRequest defines the query parameters for listing quotations.
type ListRequest struct {
	Status   string `form:"status" validate:"omitempty,oneof=Draft Sent Accepted Rejected Expired"`
	Search   string `form:"search"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// ItemResponse is one persisted quotation line.
type ItemResponse struct {
	ID              uuid.UUID `json:"id"`
	ProductRef      *string   `json:"productRef,omitempty"`
	ProductCode     string    `json:"productCode"`
	ProductName     string    `json:"productName"`
	Quantity        float64   `json:"quantity"`
	UnitPriceCents  int64     `json:"unitPriceCents"`
	DiscountPercent float64   `json:"discountPercent"`
	LineTotalCents  int64     `json:"lineTotalCents"`
}

// QuotationResponse is a persisted quotation with its items.
type QuotationResponse struct {
	ID              uuid.UUID       `json:"id"`
	QuotationNumber string          `json:"quotationNumber"`
	SalesmanID      uuid.UUID       `json:"salesmanId"`
	CustomerRef     *string         `json:"customerRef,omitempty"`
	CustomerName    string          `json:"customerName"`
	CustomerEmail   *string         `json:"customerEmail,omitempty"`
	CustomerPhone   *string         `json:"customerPhone,omitempty"`
	CustomerAddress *string         `json:"customerAddress,omitempty"`
	Status          QuotationStatus `json:"status"`
	TaxRateBps      int             `json:"taxRateBps"`
	SubtotalCents   int64           `json:"subtotalCents"`
	TaxCents        int64           `json:"taxCents"`
	TotalCents      int64           `json:"totalCents"`
	ValidUntil      *time.Time      `json:"validUntil,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	Items           []ItemResponse  `json:"items,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// ListResponse is a page of quotations.
type ListResponse struct {
	Items      []QuotationResponse `json:"items"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"pageSize"`
	TotalPages int                 `json:"totalPages"`
}

// SaveResponse reports the outcome of finalizing a session.
type SaveResponse struct {
	Quotation QuotationResponse `json:"quotation"`
}

// SessionResponse wraps the session snapshot.
type SessionResponse struct {
	Session session.Snapshot `json:"session"`
}
