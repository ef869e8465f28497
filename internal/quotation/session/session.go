// Package session owns the quotation composition session: one per salesman,
// holding the draft ledger, the customer binding and the scan staging
// handle. Dialog visibility is modeled as an explicit state machine rather
// than independent boolean flags, and every mutation of a session runs under
// its mutex so the draft is only ever touched from one context at a time.
package session

import (
	"context"
	"sync"
	"time"

	"salesops_backend/internal/quotation/binding"
	"salesops_backend/internal/quotation/draft"
	"salesops_backend/internal/quotation/resolver"
	"salesops_backend/internal/quotation/staging"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
)

// State is the composition dialog state.
type State string

const (
	// StateClosed means no composition is in progress.
	StateClosed State = "Closed"
	// StateComposing means the composer is open.
	StateComposing State = "Composing"
	// StateComposingWithScanner means the composer is open with the scanner
	// dialog on top. The scanner can never be open on its own.
	StateComposingWithScanner State = "ComposingWithScanner"
)

// CustomerDirectory is the boundary to the customer list collaborator.
type CustomerDirectory interface {
	ListAssigned(ctx context.Context, salesmanID uuid.UUID) ([]binding.Customer, error)
}

// Session is one salesman's composition in progress.
type Session struct {
	mu        sync.Mutex
	salesman  uuid.UUID
	state     State
	draft     *draft.Draft
	book      *binding.Book
	editingID *uuid.UUID
	openedAt  time.Time
}

// Snapshot is a point-in-time view of a session, safe to hand to transport.
type Snapshot struct {
	State           State              `json:"state"`
	Lines           []draft.LineItem   `json:"lines"`
	Totals          draft.Totals       `json:"totals"`
	CustomerRef     string             `json:"customerRef,omitempty"`
	CustomerName    string             `json:"customerName,omitempty"`
	CustomerEmail   string             `json:"customerEmail,omitempty"`
	CustomerPhone   string             `json:"customerPhone,omitempty"`
	CustomerAddress string             `json:"customerAddress,omitempty"`
	ValidUntil      *time.Time         `json:"validUntil,omitempty"`
	Notes           string             `json:"notes,omitempty"`
	KnownCustomers  []binding.Customer `json:"knownCustomers"`
	EditingID       *uuid.UUID         `json:"editingId,omitempty"`
}

// Resolution reports the outcome of a product-identification event plus the
// refreshed session view.
type Resolution struct {
	Product       draft.ProductSnapshot `json:"product"`
	AlreadyStaged bool                  `json:"alreadyStaged"`
	Session       Snapshot              `json:"session"`
}

// Manager owns all live sessions and the collaborator handles they share.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session

	taxRateBps int
	resolver   *resolver.Resolver
	directory  resolver.Directory
	customers  CustomerDirectory
	scans      staging.ScanStore
	handoffs   staging.HandoffStore
	log        *logger.Logger
}

// NewManager creates a session manager.
func NewManager(
	taxRateBps int,
	res *resolver.Resolver,
	directory resolver.Directory,
	customers CustomerDirectory,
	scans staging.ScanStore,
	handoffs staging.HandoffStore,
	log *logger.Logger,
) *Manager {
	return &Manager{
		sessions:   make(map[uuid.UUID]*Session),
		taxRateBps: taxRateBps,
		resolver:   res,
		directory:  directory,
		customers:  customers,
		scans:      scans,
		handoffs:   handoffs,
		log:        log,
	}
}

// Open starts (or returns) the salesman's composition session. A freshly
// opened session consumes at most one staged handoff, in priority order, and
// binds the handed-off customer before the first snapshot is taken.
func (m *Manager) Open(ctx context.Context, salesmanID uuid.UUID) (Snapshot, error) {
	m.mu.Lock()
	if existing, ok := m.sessions[salesmanID]; ok {
		m.mu.Unlock()
		existing.mu.Lock()
		defer existing.mu.Unlock()
		return existing.snapshot(), nil
	}
	m.mu.Unlock()

	known, err := m.customers.ListAssigned(ctx, salesmanID)
	if err != nil {
		return Snapshot{}, err
	}

	s := &Session{
		salesman: salesmanID,
		state:    StateComposing,
		draft:    draft.New(m.taxRateBps),
		book:     binding.NewBook(known),
		openedAt: time.Now(),
	}

	// Register the session before consuming the handoff. The one-shot
	// consume must only happen for the session that wins the insertion
	// race; a loser that consumed first would drop the staged customer.
	// Holding s.mu across the consume makes concurrent callers wait and
	// observe the bound customer in their snapshot.
	s.mu.Lock()
	m.mu.Lock()
	if existing, ok := m.sessions[salesmanID]; ok {
		m.mu.Unlock()
		s.mu.Unlock()
		existing.mu.Lock()
		defer existing.mu.Unlock()
		return existing.snapshot(), nil
	}
	m.sessions[salesmanID] = s
	m.mu.Unlock()
	defer s.mu.Unlock()

	handoff, err := m.handoffs.Consume(ctx, salesmanID.String())
	if err != nil {
		m.mu.Lock()
		delete(m.sessions, salesmanID)
		m.mu.Unlock()
		return Snapshot{}, err
	}
	if handoff != nil {
		bound := s.book.ApplyHandoff(*handoff)
		s.applyBound(bound)
		m.log.Info("handoff consumed", "salesman", salesmanID, "source", string(handoff.Source), "customer", bound.Name)
	}

	return s.snapshot(), nil
}

// OpenForEdit starts a session preloaded from a persisted quotation. Any
// existing session for the salesman is replaced; its staging list survives.
func (m *Manager) OpenForEdit(ctx context.Context, salesmanID uuid.UUID, id uuid.UUID, seed Seed) (Snapshot, error) {
	known, err := m.customers.ListAssigned(ctx, salesmanID)
	if err != nil {
		return Snapshot{}, err
	}

	d := draft.New(m.taxRateBps)
	d.CustomerName = seed.CustomerName
	d.CustomerEmail = seed.CustomerEmail
	d.CustomerPhone = seed.CustomerPhone
	d.CustomerAddress = seed.CustomerAddress
	d.ValidUntil = seed.ValidUntil
	d.Notes = seed.Notes
	for i, item := range seed.Items {
		var line *draft.LineItem
		if i == 0 {
			line = &d.Lines[0]
		} else {
			line = d.AddBlankLine()
		}
		line.ProductRef = item.ProductRef
		line.ProductCode = item.ProductCode
		line.ProductName = item.ProductName
		line.Quantity = item.Quantity
		line.UnitPriceCents = item.UnitPriceCents
		line.DiscountPercent = item.DiscountPercent
	}
	// Totals are derived, never trusted from the persisted record.
	d.Recompute()

	s := &Session{
		salesman:  salesmanID,
		state:     StateComposing,
		draft:     d,
		book:      binding.NewBook(known),
		editingID: &id,
		openedAt:  time.Now(),
	}

	m.mu.Lock()
	m.sessions[salesmanID] = s
	m.mu.Unlock()

	return s.snapshot(), nil
}

// Seed is the persisted state loaded into a session for editing.
type Seed struct {
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CustomerAddress string
	ValidUntil      *time.Time
	Notes           string
	Items           []SeedItem
}

// SeedItem mirrors one persisted line item.
type SeedItem struct {
	ProductRef      string
	ProductCode     string
	ProductName     string
	Quantity        float64
	UnitPriceCents  int64
	DiscountPercent float64
}

// Close discards the salesman's session, resetting the draft and clearing
// the scan staging list. Results of lookups still in flight are simply never
// applied: once the session is gone every follow-up mutation is rejected.
func (m *Manager) Close(ctx context.Context, salesmanID uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[salesmanID]
	if ok {
		delete(m.sessions, salesmanID)
	}
	m.mu.Unlock()

	if !ok {
		return nil
	}

	s.mu.Lock()
	s.state = StateClosed
	s.draft.Reset()
	s.mu.Unlock()

	return m.scans.Clear(ctx, salesmanID.String())
}

// Snapshot returns the current session view.
func (m *Manager) Snapshot(salesmanID uuid.UUID) (Snapshot, error) {
	var snap Snapshot
	err := m.withSession(salesmanID, func(s *Session) error {
		snap = s.snapshot()
		return nil
	})
	return snap, err
}

// OpenScanner raises the scanner dialog. Opening it is only legal while the
// composer itself is open, which is what guarantees the old implicit
// "scan dialog implies composer" invariant.
func (m *Manager) OpenScanner(salesmanID uuid.UUID) (Snapshot, error) {
	var snap Snapshot
	err := m.withSession(salesmanID, func(s *Session) error {
		s.state = StateComposingWithScanner
		snap = s.snapshot()
		return nil
	})
	return snap, err
}

// CloseScanner lowers the scanner dialog, leaving the composer open.
func (m *Manager) CloseScanner(salesmanID uuid.UUID) (Snapshot, error) {
	var snap Snapshot
	err := m.withSession(salesmanID, func(s *Session) error {
		s.state = StateComposing
		snap = s.snapshot()
		return nil
	})
	return snap, err
}

// Scan handles a scanner payload. It requires the scanner dialog to be open.
// A code staged for the first time also appends a ledger line; re-scanning a
// known code is a staging no-op surfaced as confirmation, with no new line.
func (m *Manager) Scan(ctx context.Context, salesmanID uuid.UUID, payload string) (Resolution, error) {
	return m.resolve(ctx, salesmanID, resolver.Event{Kind: resolver.StructuredScan, Payload: payload}, true)
}

// ResolveCode handles manual code entry while the composer is open.
func (m *Manager) ResolveCode(ctx context.Context, salesmanID uuid.UUID, code string) (Resolution, error) {
	return m.resolve(ctx, salesmanID, resolver.Event{Kind: resolver.RawCode, Payload: code}, false)
}

// AddLineFromCatalog appends a line for a directly selected catalog entry.
func (m *Manager) AddLineFromCatalog(ctx context.Context, salesmanID uuid.UUID, entryID string) (Resolution, error) {
	return m.resolve(ctx, salesmanID, resolver.Event{Kind: resolver.DirectSelection, EntryID: entryID}, false)
}

func (m *Manager) resolve(ctx context.Context, salesmanID uuid.UUID, ev resolver.Event, requireScanner bool) (Resolution, error) {
	var res Resolution
	err := m.withSession(salesmanID, func(s *Session) error {
		if requireScanner && s.state != StateComposingWithScanner {
			return apperr.Conflict("scanner is not open")
		}

		resolution, err := m.resolver.Resolve(ctx, salesmanID.String(), ev)
		if err != nil {
			return err
		}

		if !resolution.AlreadyStaged {
			s.draft.AddLineFromProduct(resolution.Product)
		}

		res = Resolution{
			Product:       resolution.Product,
			AlreadyStaged: resolution.AlreadyStaged,
			Session:       s.snapshot(),
		}
		return nil
	})
	return res, err
}

// AddBlankLine appends an empty line to the draft.
func (m *Manager) AddBlankLine(salesmanID uuid.UUID) (Snapshot, error) {
	var snap Snapshot
	err := m.withSession(salesmanID, func(s *Session) error {
		s.draft.AddBlankLine()
		snap = s.snapshot()
		return nil
	})
	return snap, err
}

// UpdateLineField applies a raw field edit to a line.
func (m *Manager) UpdateLineField(salesmanID uuid.UUID, lineID int64, field, value string) (Snapshot, error) {
	var snap Snapshot
	err := m.withSession(salesmanID, func(s *Session) error {
		if err := s.draft.UpdateField(lineID, field, value); err != nil {
			return err
		}
		snap = s.snapshot()
		return nil
	})
	return snap, err
}

// SelectLineProduct binds a line to a catalog entry picked from the active
// dropdown, or clears the line's product fields when ref is empty.
func (m *Manager) SelectLineProduct(ctx context.Context, salesmanID uuid.UUID, lineID int64, ref string) (Snapshot, error) {
	var snap Snapshot
	err := m.withSession(salesmanID, func(s *Session) error {
		if ref == "" {
			if err := s.draft.SelectProduct(lineID, nil); err != nil {
				return err
			}
			snap = s.snapshot()
			return nil
		}

		product, err := m.directory.LookupByID(ctx, ref)
		if err != nil {
			return err
		}
		if err := s.draft.SelectProduct(lineID, &product); err != nil {
			return err
		}
		snap = s.snapshot()
		return nil
	})
	return snap, err
}

// RemoveLine removes a line; removing the sole remaining line is rejected.
func (m *Manager) RemoveLine(salesmanID uuid.UUID, lineID int64) (Snapshot, error) {
	var snap Snapshot
	err := m.withSession(salesmanID, func(s *Session) error {
		if err := s.draft.RemoveLine(lineID); err != nil {
			return err
		}
		snap = s.snapshot()
		return nil
	})
	return snap, err
}

// SelectCustomer binds a customer picked from the known set.
func (m *Manager) SelectCustomer(salesmanID uuid.UUID, ref string) (Snapshot, error) {
	var snap Snapshot
	err := m.withSession(salesmanID, func(s *Session) error {
		bound, err := s.book.SelectManual(ref)
		if err != nil {
			return err
		}
		s.applyBound(bound)
		snap = s.snapshot()
		return nil
	})
	return snap, err
}

// UpdateDetails sets the draft-level fields not derived from lines.
func (m *Manager) UpdateDetails(salesmanID uuid.UUID, validUntil *time.Time, notes *string) (Snapshot, error) {
	var snap Snapshot
	err := m.withSession(salesmanID, func(s *Session) error {
		if validUntil != nil {
			s.draft.ValidUntil = validUntil
		}
		if notes != nil {
			s.draft.Notes = *notes
		}
		snap = s.snapshot()
		return nil
	})
	return snap, err
}

// StagedProducts lists the session's scan staging entries.
func (m *Manager) StagedProducts(ctx context.Context, salesmanID uuid.UUID) ([]staging.StagedProduct, error) {
	var staged []staging.StagedProduct
	err := m.withSession(salesmanID, func(s *Session) error {
		list, err := m.scans.List(ctx, salesmanID.String())
		if err != nil {
			return err
		}
		staged = list
		return nil
	})
	return staged, err
}

// RemoveStaged drops one entry from the scan staging list.
func (m *Manager) RemoveStaged(ctx context.Context, salesmanID uuid.UUID, code string) error {
	return m.withSession(salesmanID, func(s *Session) error {
		return m.scans.Remove(ctx, salesmanID.String(), code)
	})
}

// WithDraft runs fn against the session's draft under the session lock.
// The lifecycle service uses this to validate and map the draft without the
// draft escaping its single mutation context.
func (m *Manager) WithDraft(salesmanID uuid.UUID, fn func(d *draft.Draft, editingID *uuid.UUID) error) error {
	return m.withSession(salesmanID, func(s *Session) error {
		return fn(s.draft, s.editingID)
	})
}

func (m *Manager) withSession(salesmanID uuid.UUID, fn func(s *Session) error) error {
	m.mu.Lock()
	s, ok := m.sessions[salesmanID]
	m.mu.Unlock()
	if !ok {
		return apperr.NotFound("no open composition session")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return apperr.NotFound("no open composition session")
	}
	return fn(s)
}

func (s *Session) applyBound(b binding.Bound) {
	s.draft.CustomerRef = b.Ref
	s.draft.CustomerName = b.Name
	s.draft.CustomerEmail = b.Email
	s.draft.CustomerPhone = b.Phone
	s.draft.CustomerAddress = b.Address
}

func (s *Session) snapshot() Snapshot {
	lines := append([]draft.LineItem(nil), s.draft.Lines...)
	return Snapshot{
		State:           s.state,
		Lines:           lines,
		Totals:          s.draft.Totals,
		CustomerRef:     s.draft.CustomerRef,
		CustomerName:    s.draft.CustomerName,
		CustomerEmail:   s.draft.CustomerEmail,
		CustomerPhone:   s.draft.CustomerPhone,
		CustomerAddress: s.draft.CustomerAddress,
		ValidUntil:      s.draft.ValidUntil,
		Notes:           s.draft.Notes,
		KnownCustomers:  s.book.Known(),
		EditingID:       s.editingID,
	}
}
