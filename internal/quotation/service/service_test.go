package service

import (
	"testing"

	"salesops_backend/internal/quotation/draft"
	"salesops_backend/internal/quotation/transport"
	"salesops_backend/platform/apperr"

	"github.com/google/uuid"
)

func composedDraft() *draft.Draft {
	d := draft.New(2000)
	d.CustomerRef = "3"
	d.CustomerName = "Acme Traders"
	d.Lines[0].ProductRef = "p1"
	d.Lines[0].ProductCode = "SKU-1"
	d.Lines[0].ProductName = "Panel"
	d.Lines[0].UnitPriceCents = 10000
	d.Recompute()
	return d
}

func TestBuildPlan_RequiresBoundCustomer(t *testing.T) {
	svc := &Service{phoneRegion: "IN"}
	d := composedDraft()
	d.CustomerRef = ""
	d.CustomerName = ""

	_, err := svc.buildPlan(uuid.New(), d, transport.QuotationStatusDraft)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBuildPlan_RequiresOneValidLine(t *testing.T) {
	svc := &Service{phoneRegion: "IN"}
	d := draft.New(2000)
	d.CustomerName = "Acme Traders"

	_, err := svc.buildPlan(uuid.New(), d, transport.QuotationStatusDraft)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for all-blank lines, got %v", err)
	}
}

func TestBuildPlan_FiltersUnresolvedAndZeroQuantityLines(t *testing.T) {
	svc := &Service{phoneRegion: "IN"}
	d := composedDraft()
	d.AddBlankLine()
	zeroQty := d.AddBlankLine()
	zeroQty.ProductRef = "p2"
	zeroQty.ProductName = "Inverter"
	zeroQty.Quantity = 0
	unresolved := d.AddBlankLine()
	unresolved.ProductName = "Hand-typed widget"
	unresolved.UnitPriceCents = 10000
	d.Recompute()

	plan, err := svc.buildPlan(uuid.New(), d, transport.QuotationStatusDraft)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.items) != 1 {
		t.Fatalf("expected 1 item after filtering, got %d", len(plan.items))
	}
	if plan.items[0].ProductName != "Panel" {
		t.Fatalf("expected Panel to survive, got %q", plan.items[0].ProductName)
	}
	if plan.items[0].SortOrder != 0 {
		t.Fatalf("expected sort order 0, got %d", plan.items[0].SortOrder)
	}
}

func TestBuildPlan_CarriesDerivedTotals(t *testing.T) {
	svc := &Service{phoneRegion: "IN"}
	d := composedDraft()

	plan, err := svc.buildPlan(uuid.New(), d, transport.QuotationStatusSent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if plan.header.SubtotalCents != 10000 {
		t.Fatalf("expected subtotal 10000, got %d", plan.header.SubtotalCents)
	}
	if plan.header.TaxCents != 2000 {
		t.Fatalf("expected tax 2000, got %d", plan.header.TaxCents)
	}
	if plan.header.TotalCents != 12000 {
		t.Fatalf("expected total 12000, got %d", plan.header.TotalCents)
	}
	if plan.header.Status != string(transport.QuotationStatusSent) {
		t.Fatalf("expected Sent status, got %q", plan.header.Status)
	}
	if plan.header.TaxRateBps != 2000 {
		t.Fatalf("expected tax rate 2000 bps, got %d", plan.header.TaxRateBps)
	}
}

func TestBuildPlan_NormalizesCustomerPhone(t *testing.T) {
	svc := &Service{phoneRegion: "IN"}
	d := composedDraft()
	d.CustomerPhone = "098765 43210"

	plan, err := svc.buildPlan(uuid.New(), d, transport.QuotationStatusDraft)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.header.CustomerPhone == nil || *plan.header.CustomerPhone != "+919876543210" {
		t.Fatalf("expected normalized phone, got %v", plan.header.CustomerPhone)
	}
}

func TestBuildPlan_EmptyOptionalFieldsBecomeNil(t *testing.T) {
	svc := &Service{phoneRegion: "IN"}
	d := composedDraft()
	d.CustomerRef = ""

	plan, err := svc.buildPlan(uuid.New(), d, transport.QuotationStatusDraft)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.header.CustomerRef != nil {
		t.Fatalf("expected nil customer ref, got %v", *plan.header.CustomerRef)
	}
	if plan.header.CustomerEmail != nil || plan.header.CustomerPhone != nil || plan.header.Notes != nil {
		t.Fatal("expected empty optionals to map to nil")
	}
	if plan.items[0].ProductRef == nil || *plan.items[0].ProductRef != "p1" {
		t.Fatalf("expected product ref p1 to be carried, got %v", plan.items[0].ProductRef)
	}
}

func TestBuildPlan_RejectsDraftWithOnlyUnresolvedLines(t *testing.T) {
	svc := &Service{phoneRegion: "IN"}
	d := draft.New(2000)
	d.CustomerName = "Acme Traders"
	if err := d.UpdateField(d.Lines[0].ID, draft.FieldProductName, "Hand-typed widget"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.UpdateField(d.Lines[0].ID, draft.FieldUnitPrice, "100"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.buildPlan(uuid.New(), d, transport.QuotationStatusSent)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for lines without a catalog link, got %v", err)
	}
}

func TestBuildPlan_AssignsSalesman(t *testing.T) {
	svc := &Service{phoneRegion: "IN"}
	salesman := uuid.New()

	plan, err := svc.buildPlan(salesman, composedDraft(), transport.QuotationStatusDraft)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.header.SalesmanID != salesman {
		t.Fatalf("expected salesman %s, got %s", salesman, plan.header.SalesmanID)
	}
}
