package resolver

import (
	"context"
	"testing"

	"salesops_backend/internal/quotation/draft"
	"salesops_backend/internal/quotation/staging"
	"salesops_backend/platform/apperr"
)

type fakeDirectory struct {
	products map[string]draft.ProductSnapshot // keyed by code and by ref
	err      error
	calls    int
}

func (f *fakeDirectory) LookupByCode(ctx context.Context, code string) (draft.ProductSnapshot, error) {
	f.calls++
	if f.err != nil {
		return draft.ProductSnapshot{}, f.err
	}
	p, ok := f.products[code]
	if !ok {
		return draft.ProductSnapshot{}, apperr.NotFound("product not found")
	}
	return p, nil
}

func (f *fakeDirectory) LookupByID(ctx context.Context, id string) (draft.ProductSnapshot, error) {
	f.calls++
	if f.err != nil {
		return draft.ProductSnapshot{}, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return draft.ProductSnapshot{}, apperr.NotFound("product not found")
	}
	return p, nil
}

type fakeScanStore struct {
	staged map[string][]staging.StagedProduct
}

func newFakeScanStore() *fakeScanStore {
	return &fakeScanStore{staged: make(map[string][]staging.StagedProduct)}
}

func (f *fakeScanStore) Add(ctx context.Context, owner string, p staging.StagedProduct) (bool, error) {
	for _, e := range f.staged[owner] {
		if e.Code == p.Code {
			return false, nil
		}
	}
	f.staged[owner] = append(f.staged[owner], p)
	return true, nil
}

func (f *fakeScanStore) List(ctx context.Context, owner string) ([]staging.StagedProduct, error) {
	return f.staged[owner], nil
}

func (f *fakeScanStore) Remove(ctx context.Context, owner, code string) error {
	entries := f.staged[owner]
	for i, e := range entries {
		if e.Code == code {
			f.staged[owner] = append(entries[:i], entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeScanStore) Clear(ctx context.Context, owner string) error {
	delete(f.staged, owner)
	return nil
}

func TestResolve_StructuredScanSkipsDirectory(t *testing.T) {
	dir := &fakeDirectory{}
	r := New(dir, newFakeScanStore())

	payload := `{"code":"SKU-9","name":"Solar Panel","price":149.99,"category":"solar"}`
	res, err := r.Resolve(context.Background(), "owner", Event{Kind: StructuredScan, Payload: payload})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dir.calls != 0 {
		t.Fatalf("expected no directory lookups, got %d", dir.calls)
	}
	if res.Product.Name != "Solar Panel" {
		t.Fatalf("expected name Solar Panel, got %q", res.Product.Name)
	}
	if res.Product.PriceCents != 14999 {
		t.Fatalf("expected 14999 cents, got %d", res.Product.PriceCents)
	}
	if res.AlreadyStaged {
		t.Fatal("first scan must not report already staged")
	}
}

func TestResolve_CodeOnlyJSONFallsBackToDirectory(t *testing.T) {
	dir := &fakeDirectory{products: map[string]draft.ProductSnapshot{
		"SKU-9": {Ref: "p1", Code: "SKU-9", Name: "Solar Panel", PriceCents: 14999},
	}}
	r := New(dir, newFakeScanStore())

	res, err := r.Resolve(context.Background(), "owner", Event{Kind: StructuredScan, Payload: `{"code":"SKU-9"}`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dir.calls != 1 {
		t.Fatalf("expected 1 directory lookup, got %d", dir.calls)
	}
	if res.Product.Ref != "p1" {
		t.Fatalf("expected ref p1, got %q", res.Product.Ref)
	}
}

func TestResolve_PlainTextTreatedAsCode(t *testing.T) {
	dir := &fakeDirectory{products: map[string]draft.ProductSnapshot{
		"SKU-9": {Ref: "p1", Code: "SKU-9", Name: "Solar Panel", PriceCents: 14999},
	}}
	r := New(dir, newFakeScanStore())

	res, err := r.Resolve(context.Background(), "owner", Event{Kind: RawCode, Payload: " SKU-9 "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Product.Code != "SKU-9" {
		t.Fatalf("expected code SKU-9, got %q", res.Product.Code)
	}
}

func TestResolve_UnknownCodeIsNotFound(t *testing.T) {
	dir := &fakeDirectory{products: map[string]draft.ProductSnapshot{}}
	r := New(dir, newFakeScanStore())

	_, err := r.Resolve(context.Background(), "owner", Event{Kind: RawCode, Payload: "MISSING"})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestResolve_DirectoryOutageIsUnavailable(t *testing.T) {
	dir := &fakeDirectory{err: apperr.Unavailable("product directory unavailable")}
	store := newFakeScanStore()
	r := New(dir, store)

	_, err := r.Resolve(context.Background(), "owner", Event{Kind: RawCode, Payload: "SKU-9"})
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if len(store.staged["owner"]) != 0 {
		t.Fatalf("failed resolve must not stage, got %d entries", len(store.staged["owner"]))
	}
}

func TestResolve_DuplicateCodeReportsAlreadyStaged(t *testing.T) {
	dir := &fakeDirectory{products: map[string]draft.ProductSnapshot{
		"SKU-9": {Ref: "p1", Code: "SKU-9", Name: "Solar Panel", PriceCents: 14999},
	}}
	store := newFakeScanStore()
	r := New(dir, store)

	first, err := r.Resolve(context.Background(), "owner", Event{Kind: RawCode, Payload: "SKU-9"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.AlreadyStaged {
		t.Fatal("first scan reported already staged")
	}

	second, err := r.Resolve(context.Background(), "owner", Event{Kind: RawCode, Payload: "SKU-9"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.AlreadyStaged {
		t.Fatal("expected duplicate scan to report already staged")
	}
	if len(store.staged["owner"]) != 1 {
		t.Fatalf("expected 1 staged entry, got %d", len(store.staged["owner"]))
	}
}

func TestResolve_DirectSelectionLooksUpByID(t *testing.T) {
	dir := &fakeDirectory{products: map[string]draft.ProductSnapshot{
		"p1": {Ref: "p1", Code: "SKU-9", Name: "Solar Panel", PriceCents: 14999},
	}}
	r := New(dir, newFakeScanStore())

	res, err := r.Resolve(context.Background(), "owner", Event{Kind: DirectSelection, EntryID: "p1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Product.Code != "SKU-9" {
		t.Fatalf("expected code SKU-9, got %q", res.Product.Code)
	}
}

func TestResolve_EmptyPayloadRejected(t *testing.T) {
	r := New(&fakeDirectory{}, newFakeScanStore())

	_, err := r.Resolve(context.Background(), "owner", Event{Kind: RawCode, Payload: "   "})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeSnapshot_RequiresNameAndPrice(t *testing.T) {
	cases := []struct {
		payload string
		want    bool
	}{
		{`{"code":"A","name":"X","price":1}`, true},
		{`{"code":"A","name":"X"}`, false},
		{`{"code":"A","price":1}`, false},
		{`{"name":"  ","price":1}`, false},
		{`not json`, false},
	}
	for _, tc := range cases {
		_, ok := decodeSnapshot(tc.payload)
		if ok != tc.want {
			t.Fatalf("decodeSnapshot(%q) = %v, want %v", tc.payload, ok, tc.want)
		}
	}
}
