// Package resolver normalizes heterogeneous product-identification events
// (manual code entry, QR scans, direct catalog selection) into a canonical
// resolved product snapshot for the line-item ledger.
package resolver

import (
	"context"
	"encoding/json"
	"strings"

	"salesops_backend/internal/quotation/draft"
	"salesops_backend/internal/quotation/staging"
	"salesops_backend/platform/apperr"
)

// EventKind discriminates the product-identification input channels.
type EventKind int

const (
	// RawCode is plain text from manual entry or a basic scan.
	RawCode EventKind = iota
	// StructuredScan is a scan payload that may embed a full product snapshot.
	StructuredScan
	// DirectSelection is a catalog entry id chosen from an enumerated list.
	DirectSelection
)

// Event is one product-identification input.
type Event struct {
	Kind    EventKind
	Payload string // raw text or scan payload for RawCode/StructuredScan
	EntryID string // catalog id for DirectSelection
}

// Resolution is the outcome of a successful resolve.
type Resolution struct {
	Product draft.ProductSnapshot
	// AlreadyStaged reports that the code was staged before this event; the
	// event is a no-op on the staging list but still surfaced as confirmation.
	AlreadyStaged bool
}

// Directory is the external product directory boundary. Lookups return
// apperr.KindNotFound for a missing entry and apperr.KindUnavailable for a
// transport failure; the two are never conflated.
type Directory interface {
	LookupByCode(ctx context.Context, code string) (draft.ProductSnapshot, error)
	LookupByID(ctx context.Context, id string) (draft.ProductSnapshot, error)
}

// scanPayload is the self-describing snapshot format some QR labels embed.
// A payload carrying both a name and a price resolves without a directory
// round trip.
type scanPayload struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Price       *float64 `json:"price"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Stock       *int     `json:"stock"`
}

// Resolver turns identification events into resolved products, staging each
// newly seen code in the session's scan list.
type Resolver struct {
	directory Directory
	scans     staging.ScanStore
}

// New creates a resolver over the given directory and staging store.
func New(directory Directory, scans staging.ScanStore) *Resolver {
	return &Resolver{directory: directory, scans: scans}
}

// Resolve handles one identification event for the given owner (the staging
// list key). Failures never mutate staging or ledger state.
func (r *Resolver) Resolve(ctx context.Context, owner string, ev Event) (*Resolution, error) {
	switch ev.Kind {
	case RawCode, StructuredScan:
		return r.resolveScan(ctx, owner, ev.Payload)
	case DirectSelection:
		return r.resolveSelection(ctx, owner, ev.EntryID)
	default:
		return nil, apperr.BadRequest("unknown identification event")
	}
}

func (r *Resolver) resolveScan(ctx context.Context, owner, payload string) (*Resolution, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return nil, apperr.Validation("empty scan payload")
	}

	// Fast path: a self-describing snapshot skips the directory round trip.
	if snapshot, ok := decodeSnapshot(trimmed); ok {
		return r.stage(ctx, owner, snapshot)
	}

	code := extractCode(trimmed)
	product, err := r.directory.LookupByCode(ctx, code)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("no product with code " + code)
		}
		return nil, err
	}

	return r.stage(ctx, owner, product)
}

func (r *Resolver) resolveSelection(ctx context.Context, owner, entryID string) (*Resolution, error) {
	if strings.TrimSpace(entryID) == "" {
		return nil, apperr.Validation("missing catalog entry id")
	}

	product, err := r.directory.LookupByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	return r.stage(ctx, owner, product)
}

func (r *Resolver) stage(ctx context.Context, owner string, p draft.ProductSnapshot) (*Resolution, error) {
	added, err := r.scans.Add(ctx, owner, staging.StagedProduct{
		Ref:        p.Ref,
		Code:       p.Code,
		Name:       p.Name,
		PriceCents: p.PriceCents,
		Category:   p.Category,
	})
	if err != nil {
		return nil, err
	}

	return &Resolution{Product: p, AlreadyStaged: !added}, nil
}

// decodeSnapshot tries to parse a scan payload as an inline product record.
// Only payloads carrying both a name and a price qualify for the fast path.
func decodeSnapshot(payload string) (draft.ProductSnapshot, bool) {
	if !strings.HasPrefix(payload, "{") {
		return draft.ProductSnapshot{}, false
	}

	var p scanPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return draft.ProductSnapshot{}, false
	}
	if strings.TrimSpace(p.Name) == "" || p.Price == nil {
		return draft.ProductSnapshot{}, false
	}

	return draft.ProductSnapshot{
		Code:       strings.TrimSpace(p.Code),
		Name:       strings.TrimSpace(p.Name),
		PriceCents: toCents(*p.Price),
		Category:   p.Category,
	}, true
}

// extractCode pulls the product code from a payload that did not decode as a
// snapshot. A partial JSON object with a code field still yields its code;
// anything else is treated as the code itself.
func extractCode(payload string) string {
	if strings.HasPrefix(payload, "{") {
		var p scanPayload
		if err := json.Unmarshal([]byte(payload), &p); err == nil && strings.TrimSpace(p.Code) != "" {
			return strings.TrimSpace(p.Code)
		}
	}
	return payload
}

func toCents(units float64) int64 {
	if units < 0 {
		return 0
	}
	return int64(units*100 + 0.5)
}
