package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"salesops_backend/internal/quotation/binding"
	"salesops_backend/internal/quotation/draft"
	"salesops_backend/internal/quotation/resolver"
	"salesops_backend/internal/quotation/staging"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/logger"

	"github.com/google/uuid"
)

type memDirectory struct {
	products map[string]draft.ProductSnapshot
}

func (d *memDirectory) LookupByCode(ctx context.Context, code string) (draft.ProductSnapshot, error) {
	p, ok := d.products[code]
	if !ok {
		return draft.ProductSnapshot{}, apperr.NotFound("product not found")
	}
	return p, nil
}

func (d *memDirectory) LookupByID(ctx context.Context, id string) (draft.ProductSnapshot, error) {
	p, ok := d.products[id]
	if !ok {
		return draft.ProductSnapshot{}, apperr.NotFound("product not found")
	}
	return p, nil
}

type memCustomers struct {
	assigned []binding.Customer
}

func (c *memCustomers) ListAssigned(ctx context.Context, salesmanID uuid.UUID) ([]binding.Customer, error) {
	return c.assigned, nil
}

type memScans struct {
	lists map[string][]staging.StagedProduct
}

func newMemScans() *memScans {
	return &memScans{lists: make(map[string][]staging.StagedProduct)}
}

func (s *memScans) Add(ctx context.Context, owner string, p staging.StagedProduct) (bool, error) {
	for _, e := range s.lists[owner] {
		if e.Code == p.Code {
			return false, nil
		}
	}
	s.lists[owner] = append(s.lists[owner], p)
	return true, nil
}

func (s *memScans) List(ctx context.Context, owner string) ([]staging.StagedProduct, error) {
	return s.lists[owner], nil
}

func (s *memScans) Remove(ctx context.Context, owner, code string) error {
	entries := s.lists[owner]
	for i, e := range entries {
		if e.Code == code {
			s.lists[owner] = append(entries[:i], entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *memScans) Clear(ctx context.Context, owner string) error {
	delete(s.lists, owner)
	return nil
}

type memHandoffs struct {
	slots map[string]map[staging.HandoffSource]staging.Handoff
}

func newMemHandoffs() *memHandoffs {
	return &memHandoffs{slots: make(map[string]map[staging.HandoffSource]staging.Handoff)}
}

func (h *memHandoffs) Stage(ctx context.Context, owner string, ho staging.Handoff) error {
	if h.slots[owner] == nil {
		h.slots[owner] = make(map[staging.HandoffSource]staging.Handoff)
	}
	h.slots[owner][ho.Source] = ho
	return nil
}

func (h *memHandoffs) Consume(ctx context.Context, owner string) (*staging.Handoff, error) {
	for _, source := range []staging.HandoffSource{staging.SourceVisitTarget, staging.SourceMilestone} {
		if ho, ok := h.slots[owner][source]; ok {
			delete(h.slots[owner], source)
			return &ho, nil
		}
	}
	return nil, nil
}

type fixture struct {
	manager  *Manager
	scans    *memScans
	handoffs *memHandoffs
}

func newFixture(products map[string]draft.ProductSnapshot, customers []binding.Customer) *fixture {
	dir := &memDirectory{products: products}
	scans := newMemScans()
	handoffs := newMemHandoffs()
	res := resolver.New(dir, scans)
	m := NewManager(2000, res, dir, &memCustomers{assigned: customers}, scans, handoffs, logger.New("test"))
	return &fixture{manager: m, scans: scans, handoffs: handoffs}
}

func catalogFixture() map[string]draft.ProductSnapshot {
	return map[string]draft.ProductSnapshot{
		"SKU-1": {Ref: "p1", Code: "SKU-1", Name: "Panel", PriceCents: 10000},
		"p1":    {Ref: "p1", Code: "SKU-1", Name: "Panel", PriceCents: 10000},
		"SKU-2": {Ref: "p2", Code: "SKU-2", Name: "Inverter", PriceCents: 25000},
	}
}

func TestOpen_StartsComposingWithBlankLine(t *testing.T) {
	f := newFixture(catalogFixture(), nil)
	salesman := uuid.New()

	snap, err := f.manager.Open(context.Background(), salesman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.State != StateComposing {
		t.Fatalf("expected Composing, got %s", snap.State)
	}
	if len(snap.Lines) != 1 {
		t.Fatalf("expected 1 blank line, got %d", len(snap.Lines))
	}
}

func TestOpen_IsIdempotentForSameSalesman(t *testing.T) {
	f := newFixture(catalogFixture(), nil)
	salesman := uuid.New()
	ctx := context.Background()

	if _, err := f.manager.Open(ctx, salesman); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.manager.AddBlankLine(salesman); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, err := f.manager.Open(ctx, salesman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Lines) != 2 {
		t.Fatalf("reopening must keep session state, got %d lines", len(snap.Lines))
	}
}

func TestOpen_ConsumesHandoffOnce(t *testing.T) {
	f := newFixture(catalogFixture(), []binding.Customer{{Ref: "3", Name: "Acme"}})
	salesman := uuid.New()
	ctx := context.Background()

	err := f.handoffs.Stage(ctx, salesman.String(), staging.Handoff{Source: staging.SourceVisitTarget, Name: "Acme"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, err := f.manager.Open(ctx, salesman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.CustomerRef != "3" || snap.CustomerName != "Acme" {
		t.Fatalf("expected handoff binding, got ref=%q name=%q", snap.CustomerRef, snap.CustomerName)
	}

	if err := f.manager.Close(ctx, salesman); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap, err = f.manager.Open(ctx, salesman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.CustomerRef != "" {
		t.Fatalf("consumed handoff must not bind again, got ref %q", snap.CustomerRef)
	}
}

func TestOpen_VisitTargetHandoffWinsOverMilestone(t *testing.T) {
	f := newFixture(catalogFixture(), nil)
	salesman := uuid.New()
	ctx := context.Background()

	_ = f.handoffs.Stage(ctx, salesman.String(), staging.Handoff{Source: staging.SourceMilestone, Name: "Milestone Co"})
	_ = f.handoffs.Stage(ctx, salesman.String(), staging.Handoff{Source: staging.SourceVisitTarget, Name: "Visit Co"})

	snap, err := f.manager.Open(ctx, salesman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.CustomerName != "Visit Co" {
		t.Fatalf("expected visit-target handoff to win, got %q", snap.CustomerName)
	}
}

func TestScan_RequiresScannerDialog(t *testing.T) {
	f := newFixture(catalogFixture(), nil)
	salesman := uuid.New()
	ctx := context.Background()

	if _, err := f.manager.Open(ctx, salesman); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := f.manager.Scan(ctx, salesman, "SKU-1")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict while scanner closed, got %v", err)
	}

	if _, err := f.manager.OpenScanner(salesman); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := f.manager.Scan(ctx, salesman, "SKU-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Session.State != StateComposingWithScanner {
		t.Fatalf("expected ComposingWithScanner, got %s", res.Session.State)
	}
	// The blank starter line plus the scanned product.
	if len(res.Session.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(res.Session.Lines))
	}
}

func TestScan_DuplicateCodeAddsNoLine(t *testing.T) {
	f := newFixture(catalogFixture(), nil)
	salesman := uuid.New()
	ctx := context.Background()

	_, _ = f.manager.Open(ctx, salesman)
	_, _ = f.manager.OpenScanner(salesman)

	if _, err := f.manager.Scan(ctx, salesman, "SKU-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := f.manager.Scan(ctx, salesman, "SKU-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.AlreadyStaged {
		t.Fatal("expected duplicate scan to report already staged")
	}
	if len(res.Session.Lines) != 2 {
		t.Fatalf("duplicate scan must not add a line, got %d", len(res.Session.Lines))
	}
}

func TestResolveCode_AllowedWithoutScanner(t *testing.T) {
	f := newFixture(catalogFixture(), nil)
	salesman := uuid.New()
	ctx := context.Background()

	_, _ = f.manager.Open(ctx, salesman)

	res, err := f.manager.ResolveCode(ctx, salesman, "SKU-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Product.Name != "Inverter" {
		t.Fatalf("expected Inverter, got %q", res.Product.Name)
	}
}

func TestCloseScanner_KeepsComposerOpen(t *testing.T) {
	f := newFixture(catalogFixture(), nil)
	salesman := uuid.New()
	ctx := context.Background()

	_, _ = f.manager.Open(ctx, salesman)
	_, _ = f.manager.OpenScanner(salesman)

	snap, err := f.manager.CloseScanner(salesman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.State != StateComposing {
		t.Fatalf("expected Composing, got %s", snap.State)
	}
	if _, err := f.manager.AddBlankLine(salesman); err != nil {
		t.Fatalf("composer must stay usable after scanner closes: %v", err)
	}
}

func TestClose_RejectsLaterMutations(t *testing.T) {
	f := newFixture(catalogFixture(), nil)
	salesman := uuid.New()
	ctx := context.Background()

	_, _ = f.manager.Open(ctx, salesman)
	_, _ = f.manager.ResolveCode(ctx, salesman, "SKU-1")

	if err := f.manager.Close(ctx, salesman); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.manager.AddBlankLine(salesman); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected session-gone error, got %v", err)
	}
	if _, err := f.manager.Snapshot(salesman); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected session-gone error, got %v", err)
	}
	if len(f.scans.lists[salesman.String()]) != 0 {
		t.Fatalf("close must clear staging, got %d entries", len(f.scans.lists[salesman.String()]))
	}
}

func TestClose_UnopenedSessionIsNoop(t *testing.T) {
	f := newFixture(catalogFixture(), nil)
	if err := f.manager.Close(context.Background(), uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOpenForEdit_SeedsLinesAndRecomputesTotals(t *testing.T) {
	f := newFixture(catalogFixture(), nil)
	salesman := uuid.New()
	quotationID := uuid.New()
	validUntil := time.Now().Add(30 * 24 * time.Hour)

	snap, err := f.manager.OpenForEdit(context.Background(), salesman, quotationID, Seed{
		CustomerName: "Acme",
		ValidUntil:   &validUntil,
		Items: []SeedItem{
			{ProductCode: "SKU-1", ProductName: "Panel", Quantity: 2, UnitPriceCents: 10000},
			{ProductCode: "SKU-2", ProductName: "Inverter", Quantity: 1, UnitPriceCents: 25000, DiscountPercent: 10},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.EditingID == nil || *snap.EditingID != quotationID {
		t.Fatalf("expected editing id %s, got %v", quotationID, snap.EditingID)
	}
	if len(snap.Lines) != 2 {
		t.Fatalf("expected 2 seeded lines, got %d", len(snap.Lines))
	}
	// 20000 + 22500 = 42500 subtotal, 8500 tax.
	if snap.Totals.SubtotalCents != 42500 {
		t.Fatalf("expected subtotal 42500, got %d", snap.Totals.SubtotalCents)
	}
	if snap.Totals.TotalCents != 51000 {
		t.Fatalf("expected total 51000, got %d", snap.Totals.TotalCents)
	}
}

func TestOpenForEdit_ReplacesExistingSession(t *testing.T) {
	f := newFixture(catalogFixture(), nil)
	salesman := uuid.New()
	ctx := context.Background()

	_, _ = f.manager.Open(ctx, salesman)
	_, _ = f.manager.AddBlankLine(salesman)

	snap, err := f.manager.OpenForEdit(ctx, salesman, uuid.New(), Seed{
		Items: []SeedItem{{ProductName: "Panel", Quantity: 1, UnitPriceCents: 100}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Lines) != 1 {
		t.Fatalf("expected fresh session from seed, got %d lines", len(snap.Lines))
	}
}

func TestSelectCustomer_BindsIntoDraft(t *testing.T) {
	f := newFixture(catalogFixture(), []binding.Customer{
		{Ref: "3", Name: "Acme", Email: "acme@example.com"},
	})
	salesman := uuid.New()
	ctx := context.Background()

	_, _ = f.manager.Open(ctx, salesman)

	snap, err := f.manager.SelectCustomer(salesman, "3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.CustomerName != "Acme" || snap.CustomerEmail != "acme@example.com" {
		t.Fatalf("expected Acme binding, got name=%q email=%q", snap.CustomerName, snap.CustomerEmail)
	}

	if _, err := f.manager.SelectCustomer(salesman, "99"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not-found for unknown ref, got %v", err)
	}
}

func TestSelectLineProduct_EmptyRefClearsLine(t *testing.T) {
	f := newFixture(catalogFixture(), nil)
	salesman := uuid.New()
	ctx := context.Background()

	snap, _ := f.manager.Open(ctx, salesman)
	lineID := snap.Lines[0].ID

	snap, err := f.manager.SelectLineProduct(ctx, salesman, lineID, "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Lines[0].ProductName != "Panel" {
		t.Fatalf("expected Panel, got %q", snap.Lines[0].ProductName)
	}

	snap, err = f.manager.SelectLineProduct(ctx, salesman, lineID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Lines[0].ProductName != "" || snap.Lines[0].UnitPriceCents != 0 {
		t.Fatalf("expected cleared line, got %+v", snap.Lines[0])
	}
}

func TestUpdateDetails_PartialUpdate(t *testing.T) {
	f := newFixture(catalogFixture(), nil)
	salesman := uuid.New()
	ctx := context.Background()

	_, _ = f.manager.Open(ctx, salesman)

	validUntil := time.Now().Add(14 * 24 * time.Hour)
	snap, err := f.manager.UpdateDetails(salesman, &validUntil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.ValidUntil == nil || !snap.ValidUntil.Equal(validUntil) {
		t.Fatalf("expected valid-until set, got %v", snap.ValidUntil)
	}

	notes := "call before delivery"
	snap, err = f.manager.UpdateDetails(salesman, nil, &notes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Notes != notes {
		t.Fatalf("expected notes %q, got %q", notes, snap.Notes)
	}
	if snap.ValidUntil == nil {
		t.Fatal("nil valid-until must not clear the earlier value")
	}
}

func TestStagedProducts_ListAndRemove(t *testing.T) {
	f := newFixture(catalogFixture(), nil)
	salesman := uuid.New()
	ctx := context.Background()

	_, _ = f.manager.Open(ctx, salesman)
	_, _ = f.manager.ResolveCode(ctx, salesman, "SKU-1")
	_, _ = f.manager.ResolveCode(ctx, salesman, "SKU-2")

	staged, err := f.manager.StagedProducts(ctx, salesman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(staged) != 2 {
		t.Fatalf("expected 2 staged entries, got %d", len(staged))
	}

	if err := f.manager.RemoveStaged(ctx, salesman, "SKU-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	staged, _ = f.manager.StagedProducts(ctx, salesman)
	if len(staged) != 1 || staged[0].Code != "SKU-2" {
		t.Fatalf("expected only SKU-2 staged, got %+v", staged)
	}
}

func TestSessions_IsolatedPerSalesman(t *testing.T) {
	f := newFixture(catalogFixture(), nil)
	ctx := context.Background()
	first, second := uuid.New(), uuid.New()

	_, _ = f.manager.Open(ctx, first)
	_, _ = f.manager.Open(ctx, second)
	_, _ = f.manager.ResolveCode(ctx, first, "SKU-1")

	snap, err := f.manager.Snapshot(second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Lines) != 1 {
		t.Fatalf("second salesman's session leaked state, got %d lines", len(snap.Lines))
	}
}

type gatedHandoffs struct {
	inner    *memHandoffs
	mu       sync.Mutex
	consumes int
	entered  chan struct{}
	release  chan struct{}
}

func (g *gatedHandoffs) Stage(ctx context.Context, owner string, ho staging.Handoff) error {
	return g.inner.Stage(ctx, owner, ho)
}

func (g *gatedHandoffs) Consume(ctx context.Context, owner string) (*staging.Handoff, error) {
	g.mu.Lock()
	first := g.consumes == 0
	g.consumes++
	g.mu.Unlock()
	if first {
		g.entered <- struct{}{}
		<-g.release
	}
	return g.inner.Consume(ctx, owner)
}

func TestOpen_ConcurrentOpensShareOneHandoff(t *testing.T) {
	dir := &memDirectory{products: catalogFixture()}
	scans := newMemScans()
	handoffs := &gatedHandoffs{
		inner:   newMemHandoffs(),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	m := NewManager(2000, resolver.New(dir, scans), dir, &memCustomers{}, scans, handoffs, logger.New("test"))
	ctx := context.Background()
	salesman := uuid.New()

	err := handoffs.Stage(ctx, salesman.String(), staging.Handoff{Source: staging.SourceVisitTarget, Name: "Acme"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	type result struct {
		snap Snapshot
		err  error
	}
	results := make(chan result, 2)
	go func() {
		snap, err := m.Open(ctx, salesman)
		results <- result{snap, err}
	}()
	<-handoffs.entered
	go func() {
		snap, err := m.Open(ctx, salesman)
		results <- result{snap, err}
	}()
	time.Sleep(10 * time.Millisecond)
	close(handoffs.release)

	for i := 0; i < 2; i++ {
		r := <-results
		if r.err != nil {
			t.Fatalf("unexpected error: %v", r.err)
		}
		if r.snap.CustomerName != "Acme" {
			t.Fatalf("expected both opens to see the handoff customer, got %q", r.snap.CustomerName)
		}
	}
	if handoffs.consumes != 1 {
		t.Fatalf("expected exactly one consume, got %d", handoffs.consumes)
	}
}

type failingHandoffs struct {
	inner *memHandoffs
	fail  bool
}

func (h *failingHandoffs) Stage(ctx context.Context, owner string, ho staging.Handoff) error {
	return h.inner.Stage(ctx, owner, ho)
}

func (h *failingHandoffs) Consume(ctx context.Context, owner string) (*staging.Handoff, error) {
	if h.fail {
		h.fail = false
		return nil, apperr.Unavailable("handoff store unavailable")
	}
	return h.inner.Consume(ctx, owner)
}

func TestOpen_ConsumeFailureLeavesNoSession(t *testing.T) {
	dir := &memDirectory{products: catalogFixture()}
	scans := newMemScans()
	handoffs := &failingHandoffs{inner: newMemHandoffs(), fail: true}
	m := NewManager(2000, resolver.New(dir, scans), dir, &memCustomers{}, scans, handoffs, logger.New("test"))
	ctx := context.Background()
	salesman := uuid.New()

	err := handoffs.Stage(ctx, salesman.String(), staging.Handoff{Source: staging.SourceVisitTarget, Name: "Acme"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := m.Open(ctx, salesman); !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if _, err := m.AddBlankLine(salesman); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected no session after failed open, got %v", err)
	}

	snap, err := m.Open(ctx, salesman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.CustomerName != "Acme" {
		t.Fatalf("expected handoff to survive the failed open, got %q", snap.CustomerName)
	}
}
