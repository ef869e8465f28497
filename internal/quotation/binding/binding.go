// Package binding resolves which customer a quotation is for. Three
// provenance paths feed it: an explicit picklist selection, a visit-target
// handoff and the legacy milestone handoff. Handoffs bind by name match;
// unknown names synthesize a transient record scoped to the session.
package binding

import (
	"strconv"
	"strings"

	"salesops_backend/internal/quotation/staging"
	"salesops_backend/platform/apperr"
)

// Customer is one selectable customer record. Ref is either a backend
// identifier or a session-local transient id; transient records carry no
// email and are never separately persisted.
type Customer struct {
	Ref       string `json:"ref"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	Transient bool   `json:"transient,omitempty"`
}

// Bound is the canonical customer tuple merged into the draft.
type Bound struct {
	Ref     string
	Name    string
	Email   string
	Phone   string
	Address string
}

// Book is the session's known-customer set plus the current binding.
type Book struct {
	known []Customer
	bound *Bound
}

// NewBook creates a book over the customers assigned to the salesman.
func NewBook(known []Customer) *Book {
	return &Book{known: append([]Customer(nil), known...)}
}

// Known returns the selectable customer set, including any transient record
// synthesized during this session.
func (b *Book) Known() []Customer {
	return b.known
}

// Bound returns the current binding, or nil when no customer is bound yet.
func (b *Book) Bound() *Bound {
	return b.bound
}

// ApplyHandoff binds the handed-off customer. A case-insensitive name match
// against the known set reuses the existing ref; otherwise a transient
// record is synthesized and appended to the known set so it shows up as a
// selectable option for the rest of the session.
func (b *Book) ApplyHandoff(h staging.Handoff) Bound {
	name := strings.TrimSpace(h.Name)
	for _, c := range b.known {
		if strings.EqualFold(strings.TrimSpace(c.Name), name) {
			b.bound = &Bound{Ref: c.Ref, Name: c.Name, Email: c.Email, Phone: c.Phone, Address: c.Address}
			return *b.bound
		}
	}

	transient := Customer{
		Ref:       strconv.FormatInt(b.nextTransientRef(), 10),
		Name:      name,
		Address:   joinAddress(h),
		Transient: true,
	}
	b.known = append(b.known, transient)
	b.bound = &Bound{Ref: transient.Ref, Name: transient.Name, Address: transient.Address}
	return *b.bound
}

// SelectManual binds an explicitly picked customer by ref, overriding any
// earlier handoff binding.
func (b *Book) SelectManual(ref string) (Bound, error) {
	for _, c := range b.known {
		if c.Ref == ref {
			b.bound = &Bound{Ref: c.Ref, Name: c.Name, Email: c.Email, Phone: c.Phone, Address: c.Address}
			return *b.bound, nil
		}
	}
	return Bound{}, apperr.NotFound("customer not found")
}

// nextTransientRef returns one greater than the largest integer ref in the
// known set, so a transient record can never collide with a real one while
// the draft is being composed.
func (b *Book) nextTransientRef() int64 {
	var max int64
	for _, c := range b.known {
		if n, err := strconv.ParseInt(c.Ref, 10, 64); err == nil && n > max {
			max = n
		}
	}
	return max + 1
}

func joinAddress(h staging.Handoff) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{h.Address, h.City, h.State, h.Pincode} {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, ", ")
}
