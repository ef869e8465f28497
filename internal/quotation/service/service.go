package service

import (
	"context"
	"fmt"
	"time"

	"salesops_backend/internal/events"
	"salesops_backend/internal/quotation/draft"
	"salesops_backend/internal/quotation/repository"
	"salesops_backend/internal/quotation/session"
	"salesops_backend/internal/quotation/transport"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/logger"
	"salesops_backend/platform/phone"

	"github.com/google/uuid"
)

// ExpiryScheduler enqueues a delayed expiry check for a sent quotation.
type ExpiryScheduler interface {
	ScheduleExpiry(ctx context.Context, quotationID uuid.UUID, at time.Time) error
}

// Service implements the quotation lifecycle on top of the composition
// session manager and the repository.
type Service struct {
	repo        *repository.Repository
	sessions    *session.Manager
	eventBus    events.Bus
	expiry      ExpiryScheduler
	phoneRegion string
	log         *logger.Logger
}

// New creates the quotation lifecycle service. expiry may be nil when no
// background worker is wired.
func New(repo *repository.Repository, sessions *session.Manager, bus events.Bus, expiry ExpiryScheduler, phoneRegion string, log *logger.Logger) *Service {
	return &Service{
		repo:        repo,
		sessions:    sessions,
		eventBus:    bus,
		expiry:      expiry,
		phoneRegion: phoneRegion,
		log:         log,
	}
}

// savePlan is everything extracted from the session under its lock: the
// validated header fields, the filtered items and the edit target.
type savePlan struct {
	header    repository.Quotation
	items     []repository.QuotationItem
	editingID *uuid.UUID
}

// Save finalizes the salesman's open session into a persisted quotation.
// Validation happens before any store call: a session without a bound
// customer, or with no valid line, is rejected and nothing is written.
// On success the session is closed and its staging list cleared.
func (s *Service) Save(ctx context.Context, salesmanID uuid.UUID, salesmanName string, req transport.SaveRequest) (*transport.QuotationResponse, error) {
	var plan savePlan
	err := s.sessions.WithDraft(salesmanID, func(d *draft.Draft, editingID *uuid.UUID) error {
		p, err := s.buildPlan(salesmanID, d, req.Status)
		if err != nil {
			return err
		}
		p.editingID = editingID
		plan = *p
		return nil
	})
	if err != nil {
		return nil, err
	}

	q := plan.header
	now := time.Now()

	if plan.editingID == nil {
		number, err := s.repo.NextQuotationNumber(ctx)
		if err != nil {
			return nil, fmt.Errorf("generate quotation number: %w", err)
		}
		q.ID = uuid.New()
		q.QuotationNumber = number
		q.CreatedAt = now
		q.UpdatedAt = now
		for i := range plan.items {
			plan.items[i].QuotationID = q.ID
		}

		if err := s.repo.CreateWithItems(ctx, &q, plan.items); err != nil {
			return nil, err
		}

		s.eventBus.Publish(ctx, events.QuotationCreated{
			BaseEvent:    events.NewBaseEvent(),
			QuotationID:  q.ID,
			SalesmanID:   salesmanID,
			CustomerName: q.CustomerName,
			Status:       q.Status,
			TotalCents:   q.TotalCents,
		})
	} else {
		existing, err := s.repo.GetByID(ctx, *plan.editingID)
		if err != nil {
			return nil, err
		}
		if existing.SalesmanID != salesmanID {
			return nil, apperr.Forbidden("quotation belongs to another salesman")
		}

		q.ID = existing.ID
		q.QuotationNumber = existing.QuotationNumber
		q.CreatedAt = existing.CreatedAt
		q.UpdatedAt = now
		for i := range plan.items {
			plan.items[i].QuotationID = q.ID
		}

		if err := s.repo.UpdateWithItems(ctx, &q, plan.items); err != nil {
			return nil, err
		}
	}

	if q.Status == string(transport.QuotationStatusSent) {
		s.announceSent(ctx, &q, salesmanID, salesmanName)
	}

	if err := s.sessions.Close(ctx, salesmanID); err != nil {
		s.log.Warn("session close after save failed", "error", err, "salesman", salesmanID)
	}

	resp := toResponse(&q, plan.items)
	return &resp, nil
}

// buildPlan validates the draft and maps it to storage models. It runs under
// the session lock, so the draft cannot change while being mapped.
func (s *Service) buildPlan(salesmanID uuid.UUID, d *draft.Draft, status transport.QuotationStatus) (*savePlan, error) {
	if d.CustomerName == "" && d.CustomerRef == "" {
		return nil, apperr.Validation("a customer must be selected before saving")
	}

	now := time.Now()
	var items []repository.QuotationItem
	for _, line := range d.Lines {
		if line.ProductRef == "" || line.Quantity <= 0 {
			continue
		}
		ref := line.ProductRef
		items = append(items, repository.QuotationItem{
			ID:              uuid.New(),
			ProductRef:      &ref,
			ProductCode:     line.ProductCode,
			ProductName:     line.ProductName,
			Quantity:        line.Quantity,
			UnitPriceCents:  line.UnitPriceCents,
			DiscountPercent: line.DiscountPercent,
			LineTotalCents:  line.LineTotalCents,
			SortOrder:       len(items),
			CreatedAt:       now,
		})
	}
	if len(items) == 0 {
		return nil, apperr.Validation("a quotation needs at least one valid line item")
	}

	customerPhone := d.CustomerPhone
	if customerPhone != "" {
		customerPhone = phone.NormalizeE164(customerPhone, s.phoneRegion)
	}

	return &savePlan{
		header: repository.Quotation{
			SalesmanID:      salesmanID,
			CustomerRef:     nilIfEmpty(d.CustomerRef),
			CustomerName:    d.CustomerName,
			CustomerEmail:   nilIfEmpty(d.CustomerEmail),
			CustomerPhone:   nilIfEmpty(customerPhone),
			CustomerAddress: nilIfEmpty(d.CustomerAddress),
			Status:          string(status),
			TaxRateBps:      d.TaxRateBps(),
			SubtotalCents:   d.Totals.SubtotalCents,
			TaxCents:        d.Totals.TaxCents,
			TotalCents:      d.Totals.TotalCents,
			ValidUntil:      d.ValidUntil,
			Notes:           nilIfEmpty(d.Notes),
		},
		items: items,
	}, nil
}

func (s *Service) announceSent(ctx context.Context, q *repository.Quotation, salesmanID uuid.UUID, salesmanName string) {
	s.eventBus.Publish(ctx, events.QuotationSent{
		BaseEvent:       events.NewBaseEvent(),
		QuotationID:     q.ID,
		QuotationNumber: q.QuotationNumber,
		SalesmanID:      salesmanID,
		SalesmanName:    salesmanName,
		CustomerName:    q.CustomerName,
		CustomerEmail:   derefOrEmpty(q.CustomerEmail),
		TotalCents:      q.TotalCents,
		ValidUntil:      q.ValidUntil,
	})

	if s.expiry != nil && q.ValidUntil != nil && q.ValidUntil.After(time.Now()) {
		if err := s.expiry.ScheduleExpiry(ctx, q.ID, *q.ValidUntil); err != nil {
			s.log.Error("failed to schedule quotation expiry", "error", err, "quotation_id", q.ID)
		}
	}
}

// Get returns one quotation with its items. Reading another salesman's
// quotation is an authorization failure, not a missing record.
func (s *Service) Get(ctx context.Context, salesmanID, id uuid.UUID) (*transport.QuotationResponse, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.SalesmanID != salesmanID {
		return nil, apperr.Forbidden("quotation belongs to another salesman")
	}

	items, err := s.repo.GetItemsByQuotationID(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := toResponse(q, items)
	return &resp, nil
}

// OpenForEdit loads a persisted quotation into a fresh composition session.
// The ownership check happens before any session state changes.
func (s *Service) OpenForEdit(ctx context.Context, salesmanID, id uuid.UUID) (session.Snapshot, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return session.Snapshot{}, err
	}
	if q.SalesmanID != salesmanID {
		return session.Snapshot{}, apperr.Forbidden("quotation belongs to another salesman")
	}

	items, err := s.repo.GetItemsByQuotationID(ctx, id)
	if err != nil {
		return session.Snapshot{}, err
	}

	seed := session.Seed{
		CustomerName:    q.CustomerName,
		CustomerEmail:   derefOrEmpty(q.CustomerEmail),
		CustomerPhone:   derefOrEmpty(q.CustomerPhone),
		CustomerAddress: derefOrEmpty(q.CustomerAddress),
		ValidUntil:      q.ValidUntil,
		Notes:           derefOrEmpty(q.Notes),
	}
	for _, it := range items {
		seed.Items = append(seed.Items, session.SeedItem{
			ProductRef:      derefOrEmpty(it.ProductRef),
			ProductCode:     it.ProductCode,
			ProductName:     it.ProductName,
			Quantity:        it.Quantity,
			UnitPriceCents:  it.UnitPriceCents,
			DiscountPercent: it.DiscountPercent,
		})
	}

	return s.sessions.OpenForEdit(ctx, salesmanID, id, seed)
}

// List returns the salesman's quotations.
func (s *Service) List(ctx context.Context, salesmanID uuid.UUID, req transport.ListRequest) (*transport.ListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	params := repository.ListParams{
		SalesmanID: salesmanID,
		Search:     req.Search,
		Page:       page,
		PageSize:   pageSize,
	}
	if req.Status != "" {
		params.Status = &req.Status
	}

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	items := make([]transport.QuotationResponse, len(result.Items))
	for i := range result.Items {
		items[i] = toResponse(&result.Items[i], nil)
	}

	return &transport.ListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// UpdateStatus moves a quotation to a new status.
func (s *Service) UpdateStatus(ctx context.Context, salesmanID uuid.UUID, salesmanName string, id uuid.UUID, status transport.QuotationStatus) error {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if q.SalesmanID != salesmanID {
		return apperr.Forbidden("quotation belongs to another salesman")
	}
	if q.Status == string(status) {
		return nil
	}

	if err := s.repo.UpdateStatus(ctx, id, salesmanID, string(status)); err != nil {
		return err
	}

	s.eventBus.Publish(ctx, events.QuotationStatusChanged{
		BaseEvent:   events.NewBaseEvent(),
		QuotationID: id,
		SalesmanID:  salesmanID,
		OldStatus:   q.Status,
		NewStatus:   string(status),
	})

	if status == transport.QuotationStatusSent {
		q.Status = string(status)
		s.announceSent(ctx, q, salesmanID, salesmanName)
	}
	return nil
}

// Delete removes a quotation owned by the salesman.
func (s *Service) Delete(ctx context.Context, salesmanID, id uuid.UUID) error {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if q.SalesmanID != salesmanID {
		return apperr.Forbidden("quotation belongs to another salesman")
	}

	if err := s.repo.Delete(ctx, id, salesmanID); err != nil {
		return err
	}

	s.eventBus.Publish(ctx, events.QuotationDeleted{
		BaseEvent:   events.NewBaseEvent(),
		QuotationID: id,
		SalesmanID:  salesmanID,
	})
	return nil
}

// Expire moves a quotation from Sent to Expired. The background worker calls
// this when a valid-until deadline passes; a quotation that was accepted or
// rejected in the meantime is untouched.
func (s *Service) Expire(ctx context.Context, id uuid.UUID) error {
	changed, err := s.repo.ExpireIfSent(ctx, id)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	s.eventBus.Publish(ctx, events.QuotationExpired{
		BaseEvent:   events.NewBaseEvent(),
		QuotationID: id,
		SalesmanID:  q.SalesmanID,
	})
	s.log.Info("quotation expired", "quotation_id", id, "quotation_number", q.QuotationNumber)
	return nil
}

func toResponse(q *repository.Quotation, items []repository.QuotationItem) transport.QuotationResponse {
	resp := transport.QuotationResponse{
		ID:              q.ID,
		QuotationNumber: q.QuotationNumber,
		SalesmanID:      q.SalesmanID,
		CustomerRef:     q.CustomerRef,
		CustomerName:    q.CustomerName,
		CustomerEmail:   q.CustomerEmail,
		CustomerPhone:   q.CustomerPhone,
		CustomerAddress: q.CustomerAddress,
		Status:          transport.QuotationStatus(q.Status),
		TaxRateBps:      q.TaxRateBps,
		SubtotalCents:   q.SubtotalCents,
		TaxCents:        q.TaxCents,
		TotalCents:      q.TotalCents,
		ValidUntil:      q.ValidUntil,
		Notes:           q.Notes,
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
	}
	for _, it := range items {
		resp.Items = append(resp.Items, transport.ItemResponse{
			ID:              it.ID,
			ProductRef:      it.ProductRef,
			ProductCode:     it.ProductCode,
			ProductName:     it.ProductName,
			Quantity:        it.Quantity,
			UnitPriceCents:  it.UnitPriceCents,
			DiscountPercent: it.DiscountPercent,
			LineTotalCents:  it.LineTotalCents,
		})
	}
	return resp
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
