package draft

import (
	"math/rand"
	"testing"
)

func TestNew_StartsWithOneBlankLine(t *testing.T) {
	d := New(2000)

	if len(d.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(d.Lines))
	}
	if d.Lines[0].Quantity != 1 {
		t.Fatalf("expected quantity 1, got %v", d.Lines[0].Quantity)
	}
	if d.Totals.TotalCents != 0 {
		t.Fatalf("expected zero total, got %d", d.Totals.TotalCents)
	}
}

func TestAddLineFromProduct_RecomputesTotals(t *testing.T) {
	d := New(2000)
	d.AddLineFromProduct(ProductSnapshot{Ref: "p1", Code: "SKU-1", Name: "Widget", PriceCents: 27000})

	if d.Totals.SubtotalCents != 27000 {
		t.Fatalf("expected subtotal 27000, got %d", d.Totals.SubtotalCents)
	}
	if d.Totals.TaxCents != 5400 {
		t.Fatalf("expected tax 5400, got %d", d.Totals.TaxCents)
	}
	if d.Totals.TotalCents != 32400 {
		t.Fatalf("expected total 32400, got %d", d.Totals.TotalCents)
	}
}

func TestUpdateField_QuantityPriceDiscount(t *testing.T) {
	d := New(2000)
	line := d.Lines[0]

	if err := d.UpdateField(line.ID, FieldUnitPrice, "100"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.UpdateField(line.ID, FieldQuantity, "3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.UpdateField(line.ID, FieldDiscountPercent, "10"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 3 * 10000 * 0.9 = 27000
	if d.Lines[0].LineTotalCents != 27000 {
		t.Fatalf("expected line total 27000, got %d", d.Lines[0].LineTotalCents)
	}
	if d.Totals.TotalCents != 32400 {
		t.Fatalf("expected total 32400, got %d", d.Totals.TotalCents)
	}
}

func TestUpdateField_CommaDecimalSeparator(t *testing.T) {
	d := New(2000)
	line := d.Lines[0]

	if err := d.UpdateField(line.ID, FieldUnitPrice, "12,50"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Lines[0].UnitPriceCents != 1250 {
		t.Fatalf("expected 1250 cents, got %d", d.Lines[0].UnitPriceCents)
	}
}

func TestUpdateField_InvalidInputParsesToZero(t *testing.T) {
	d := New(2000)
	line := d.Lines[0]

	if err := d.UpdateField(line.ID, FieldUnitPrice, "100"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, raw := range []string{"", "abc", "-5"} {
		if err := d.UpdateField(line.ID, FieldQuantity, raw); err != nil {
			t.Fatalf("unexpected error for %q: %v", raw, err)
		}
		if d.Lines[0].Quantity != 0 {
			t.Fatalf("expected quantity 0 for input %q, got %v", raw, d.Lines[0].Quantity)
		}
		if d.Totals.TotalCents != 0 {
			t.Fatalf("expected zero total for input %q, got %d", raw, d.Totals.TotalCents)
		}
	}
}

func TestUpdateField_DiscountClampedAtHundred(t *testing.T) {
	d := New(2000)
	line := d.Lines[0]

	if err := d.UpdateField(line.ID, FieldUnitPrice, "50"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.UpdateField(line.ID, FieldDiscountPercent, "150"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.Lines[0].DiscountPercent != 100 {
		t.Fatalf("expected discount clamped to 100, got %v", d.Lines[0].DiscountPercent)
	}
	if d.Lines[0].LineTotalCents != 0 {
		t.Fatalf("expected zero line total at full discount, got %d", d.Lines[0].LineTotalCents)
	}
}

func TestUpdateField_UnknownFieldRejected(t *testing.T) {
	d := New(2000)
	if err := d.UpdateField(d.Lines[0].ID, "color", "red"); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestSelectProduct_ClearResetsPriceAndTotal(t *testing.T) {
	d := New(2000)
	line := d.Lines[0]

	snap := ProductSnapshot{Ref: "p1", Code: "SKU-1", Name: "Widget", PriceCents: 5000}
	if err := d.SelectProduct(line.ID, &snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Totals.SubtotalCents != 5000 {
		t.Fatalf("expected subtotal 5000, got %d", d.Totals.SubtotalCents)
	}

	if err := d.SelectProduct(line.ID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Lines[0].ProductName != "" || d.Lines[0].UnitPriceCents != 0 {
		t.Fatalf("expected cleared line, got name=%q price=%d", d.Lines[0].ProductName, d.Lines[0].UnitPriceCents)
	}
	if len(d.Lines) != 1 {
		t.Fatalf("clearing must not remove the line, got %d lines", len(d.Lines))
	}
	if d.Totals.TotalCents != 0 {
		t.Fatalf("expected zero total after clear, got %d", d.Totals.TotalCents)
	}
}

func TestRemoveLine_SoleLineRejected(t *testing.T) {
	d := New(2000)
	if err := d.UpdateField(d.Lines[0].ID, FieldUnitPrice, "10"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := d.Totals

	if err := d.RemoveLine(d.Lines[0].ID); err == nil {
		t.Fatal("expected removal of the sole line to be rejected")
	}
	if len(d.Lines) != 1 {
		t.Fatalf("expected 1 line after rejected removal, got %d", len(d.Lines))
	}
	if d.Totals != before {
		t.Fatalf("totals changed on rejected removal: %+v != %+v", d.Totals, before)
	}
}

func TestRemoveLine_RecomputesTotals(t *testing.T) {
	d := New(2000)
	d.AddLineFromProduct(ProductSnapshot{Ref: "p1", Name: "A", PriceCents: 10000})
	d.AddLineFromProduct(ProductSnapshot{Ref: "p2", Name: "B", PriceCents: 5000})

	removed := d.Lines[1]
	if err := d.RemoveLine(removed.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.Totals.SubtotalCents != 5000 {
		t.Fatalf("expected subtotal 5000, got %d", d.Totals.SubtotalCents)
	}
}

func TestLineIDs_StableAcrossRemoval(t *testing.T) {
	d := New(2000)
	second := d.AddLineFromProduct(ProductSnapshot{Ref: "p1", Name: "A", PriceCents: 100})
	third := d.AddLineFromProduct(ProductSnapshot{Ref: "p2", Name: "B", PriceCents: 200})
	secondID, thirdID := second.ID, third.ID

	if err := d.RemoveLine(secondID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.UpdateField(thirdID, FieldQuantity, "2"); err != nil {
		t.Fatalf("expected surviving line id to stay addressable: %v", err)
	}

	fourth := d.AddBlankLine()
	if fourth.ID == secondID || fourth.ID == thirdID {
		t.Fatalf("line id %d reused", fourth.ID)
	}
}

// Totals must always satisfy lineTotal = round(qty*price*(1-disc/100)),
// subtotal = sum of line totals, total = subtotal + tax, no matter what
// sequence of edits produced them.
func TestTotals_InvariantUnderRandomEdits(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	d := New(2000)

	for i := 0; i < 500; i++ {
		switch rng.Intn(5) {
		case 0:
			d.AddBlankLine()
		case 1:
			d.AddLineFromProduct(ProductSnapshot{Ref: "p", Name: "X", PriceCents: int64(rng.Intn(100000))})
		case 2:
			line := d.Lines[rng.Intn(len(d.Lines))]
			fields := []string{FieldQuantity, FieldUnitPrice, FieldDiscountPercent}
			values := []string{"0", "1", "2.5", "7", "abc", "", "99,9", "120"}
			_ = d.UpdateField(line.ID, fields[rng.Intn(len(fields))], values[rng.Intn(len(values))])
		case 3:
			line := d.Lines[rng.Intn(len(d.Lines))]
			_ = d.RemoveLine(line.ID)
		case 4:
			line := d.Lines[rng.Intn(len(d.Lines))]
			_ = d.SelectProduct(line.ID, &ProductSnapshot{Ref: "q", Name: "Y", PriceCents: int64(rng.Intn(50000))})
		}

		if len(d.Lines) < 1 {
			t.Fatalf("step %d: ledger dropped below one line", i)
		}

		var subtotal int64
		for _, line := range d.Lines {
			want := roundCents(line.Quantity * float64(line.UnitPriceCents) * (1 - line.DiscountPercent/100))
			if line.LineTotalCents != want {
				t.Fatalf("step %d: line %d total %d, want %d", i, line.ID, line.LineTotalCents, want)
			}
			subtotal += line.LineTotalCents
		}
		if d.Totals.SubtotalCents != subtotal {
			t.Fatalf("step %d: subtotal %d, want %d", i, d.Totals.SubtotalCents, subtotal)
		}
		wantTax := roundCents(float64(subtotal) * 2000 / 10000)
		if d.Totals.TaxCents != wantTax {
			t.Fatalf("step %d: tax %d, want %d", i, d.Totals.TaxCents, wantTax)
		}
		if d.Totals.TotalCents != subtotal+wantTax {
			t.Fatalf("step %d: total %d, want %d", i, d.Totals.TotalCents, subtotal+wantTax)
		}
	}
}

func TestReset_ReturnsToInitialShape(t *testing.T) {
	d := New(2000)
	d.AddLineFromProduct(ProductSnapshot{Ref: "p1", Name: "A", PriceCents: 100})
	d.CustomerName = "Acme"
	d.Reset()

	if len(d.Lines) != 1 || d.Lines[0].Quantity != 1 {
		t.Fatalf("expected single blank line after reset, got %+v", d.Lines)
	}
	if d.CustomerName != "" {
		t.Fatalf("expected customer cleared, got %q", d.CustomerName)
	}
	if d.TaxRateBps() != 2000 {
		t.Fatalf("tax rate lost on reset: %d", d.TaxRateBps())
	}
}
