// Package adapters bridges module boundaries without introducing direct
// dependencies between domain modules.
package adapters

import (
	"context"
	"strconv"

	catalogrepo "salesops_backend/internal/catalog/repository"
	customersrepo "salesops_backend/internal/customers/repository"
	"salesops_backend/internal/quotation/binding"
	"salesops_backend/internal/quotation/draft"
	"salesops_backend/internal/quotation/resolver"
	"salesops_backend/internal/quotation/session"
	"salesops_backend/platform/apperr"

	"github.com/google/uuid"
)

const productNotSelectable = "product is no longer available"

// productStore is the slice of the catalog repository the adapter reads.
type productStore interface {
	GetByCode(ctx context.Context, code string) (catalogrepo.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (catalogrepo.Product, error)
}

// ProductDirectory adapts the catalog repository to the resolver's directory
// boundary. Missing entries stay KindNotFound; infrastructure failures are
// surfaced as KindUnavailable so callers can tell the two apart.
type ProductDirectory struct {
	repo productStore
}

// NewProductDirectory creates the catalog directory adapter.
func NewProductDirectory(repo productStore) *ProductDirectory {
	return &ProductDirectory{repo: repo}
}

// LookupByCode resolves a scan code against the catalog.
func (d *ProductDirectory) LookupByCode(ctx context.Context, code string) (draft.ProductSnapshot, error) {
	p, err := d.repo.GetByCode(ctx, code)
	if err != nil {
		return draft.ProductSnapshot{}, asDirectoryError(err)
	}
	return toSnapshot(p), nil
}

// LookupByID resolves a catalog id for selection. Deactivated products stay
// readable elsewhere for historical lines but cannot be picked onto new ones.
func (d *ProductDirectory) LookupByID(ctx context.Context, id string) (draft.ProductSnapshot, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return draft.ProductSnapshot{}, apperr.BadRequest("invalid product id")
	}

	p, err := d.repo.GetByID(ctx, productID)
	if err != nil {
		return draft.ProductSnapshot{}, asDirectoryError(err)
	}
	if !p.Active {
		return draft.ProductSnapshot{}, apperr.NotFound(productNotSelectable)
	}
	return toSnapshot(p), nil
}

func toSnapshot(p catalogrepo.Product) draft.ProductSnapshot {
	snap := draft.ProductSnapshot{
		Ref:        p.ID.String(),
		Code:       p.Code,
		Name:       p.Name,
		PriceCents: p.PriceCents,
	}
	if p.Category != nil {
		snap.Category = *p.Category
	}
	return snap
}

func asDirectoryError(err error) error {
	if apperr.GetKind(err) == apperr.KindNotFound {
		return err
	}
	return apperr.Unavailable("product directory unavailable")
}

// CustomerDirectory adapts the customers repository to the composition
// session's customer boundary.
type CustomerDirectory struct {
	repo *customersrepo.Repo
}

// NewCustomerDirectory creates the customers directory adapter.
func NewCustomerDirectory(repo *customersrepo.Repo) *CustomerDirectory {
	return &CustomerDirectory{repo: repo}
}

// ListAssigned returns the salesman's known customers in binding form.
func (d *CustomerDirectory) ListAssigned(ctx context.Context, salesmanID uuid.UUID) ([]binding.Customer, error) {
	customers, err := d.repo.ListAssigned(ctx, salesmanID)
	if err != nil {
		return nil, err
	}

	out := make([]binding.Customer, len(customers))
	for i, c := range customers {
		out[i] = binding.Customer{
			Ref:  strconv.FormatInt(c.ID, 10),
			Name: c.Name,
		}
		if c.Email != nil {
			out[i].Email = *c.Email
		}
		if c.Phone != nil {
			out[i].Phone = *c.Phone
		}
		if c.Address != nil {
			out[i].Address = *c.Address
		}
	}
	return out, nil
}

// Compile-time checks against the consuming boundaries.
var (
	_ resolver.Directory        = (*ProductDirectory)(nil)
	_ session.CustomerDirectory = (*CustomerDirectory)(nil)
)
