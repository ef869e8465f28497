// Package draft holds the in-progress quotation being composed: its ordered
// line items, the customer binding fields and the derived totals. All
// mutations recompute the derived amounts synchronously before returning, so
// a draft is never observable with stale totals.
package draft

import (
	"math"
	"strconv"
	"strings"
	"time"

	"salesops_backend/platform/apperr"
)

// Field names accepted by UpdateField.
const (
	FieldQuantity        = "quantity"
	FieldUnitPrice       = "unitPrice"
	FieldDiscountPercent = "discountPercent"
	FieldProductName     = "productName"
)

// ProductSnapshot is the canonical resolved-product record handed to the
// ledger by the resolver or a direct catalog selection.
type ProductSnapshot struct {
	Ref        string // catalog identifier; empty only for unresolved lines
	Code       string
	Name       string
	PriceCents int64
	Category   string
}

// LineItem is one product line within the draft. ID is draft-scoped and
// stable across recomputation. LineTotalCents is derived and never set
// directly.
type LineItem struct {
	ID              int64   `json:"id"`
	ProductRef      string  `json:"productRef"`
	ProductCode     string  `json:"productCode"`
	ProductName     string  `json:"productName"`
	Quantity        float64 `json:"quantity"`
	UnitPriceCents  int64   `json:"unitPriceCents"`
	DiscountPercent float64 `json:"discountPercent"`
	LineTotalCents  int64   `json:"lineTotalCents"`
}

// Totals are the draft-level derived amounts. They are recomputed together
// whenever any line changes; partial updates are never observable. Amounts
// are integer cents, rounded once per recompute via roundCents.
type Totals struct {
	SubtotalCents int64 `json:"subtotalCents"`
	TaxCents      int64 `json:"taxCents"`
	TotalCents    int64 `json:"totalCents"`
}

// Draft is the quotation composition state for one session.
type Draft struct {
	CustomerRef     string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CustomerAddress string
	ValidUntil      *time.Time
	Notes           string

	Lines  []LineItem
	Totals Totals

	taxRateBps int
	nextLineID int64
}

// New creates an empty draft with a single blank line. The tax rate is in
// basis points (2000 = 20%).
func New(taxRateBps int) *Draft {
	d := &Draft{taxRateBps: taxRateBps}
	d.AddBlankLine()
	return d
}

// TaxRateBps returns the draft's tax rate in basis points.
func (d *Draft) TaxRateBps() int {
	return d.taxRateBps
}

// AddBlankLine appends an empty, unresolved line item. The new line has a
// zero total, so draft totals are unchanged.
func (d *Draft) AddBlankLine() *LineItem {
	d.nextLineID++
	d.Lines = append(d.Lines, LineItem{ID: d.nextLineID, Quantity: 1})
	return &d.Lines[len(d.Lines)-1]
}

// AddLineFromProduct appends a line for a resolved product with quantity 1
// and no discount, then recomputes totals.
func (d *Draft) AddLineFromProduct(p ProductSnapshot) *LineItem {
	d.nextLineID++
	d.Lines = append(d.Lines, LineItem{
		ID:             d.nextLineID,
		ProductRef:     p.Ref,
		ProductCode:    p.Code,
		ProductName:    p.Name,
		Quantity:       1,
		UnitPriceCents: p.PriceCents,
	})
	d.recompute()
	return &d.Lines[len(d.Lines)-1]
}

// UpdateField applies a raw edit to a line. Numeric fields parse the raw
// value as a number, with invalid or empty input parsing to zero; the line
// total and the draft totals are recomputed in the same call.
func (d *Draft) UpdateField(lineID int64, field, raw string) error {
	line := d.find(lineID)
	if line == nil {
		return apperr.NotFound("line item not found")
	}

	switch field {
	case FieldQuantity:
		line.Quantity = parseNumber(raw)
	case FieldUnitPrice:
		line.UnitPriceCents = toCents(parseNumber(raw))
	case FieldDiscountPercent:
		line.DiscountPercent = clampPercent(parseNumber(raw))
	case FieldProductName:
		line.ProductName = strings.TrimSpace(raw)
	default:
		return apperr.BadRequest("unknown line field: " + field)
	}

	d.recompute()
	return nil
}

// SelectProduct binds a line to a resolved product, or clears it when the
// snapshot is nil: product fields are emptied and the price and line total
// drop to zero, but the line itself remains.
func (d *Draft) SelectProduct(lineID int64, p *ProductSnapshot) error {
	line := d.find(lineID)
	if line == nil {
		return apperr.NotFound("line item not found")
	}

	if p == nil {
		line.ProductRef = ""
		line.ProductCode = ""
		line.ProductName = ""
		line.UnitPriceCents = 0
	} else {
		line.ProductRef = p.Ref
		line.ProductCode = p.Code
		line.ProductName = p.Name
		line.UnitPriceCents = p.PriceCents
	}

	d.recompute()
	return nil
}

// RemoveLine removes a line unless it is the only one remaining, in which
// case the operation is rejected and the ledger is unchanged.
func (d *Draft) RemoveLine(lineID int64) error {
	if len(d.Lines) <= 1 {
		return apperr.Validation("a quotation must keep at least one line item")
	}

	for i := range d.Lines {
		if d.Lines[i].ID == lineID {
			d.Lines = append(d.Lines[:i], d.Lines[i+1:]...)
			d.recompute()
			return nil
		}
	}
	return apperr.NotFound("line item not found")
}

// Recompute refreshes derived amounts after lines were written directly,
// as when a persisted quotation is loaded back into a draft for editing.
func (d *Draft) Recompute() {
	d.recompute()
}

// Reset discards all composition state, returning the draft to its initial
// single-blank-line shape.
func (d *Draft) Reset() {
	*d = Draft{taxRateBps: d.taxRateBps}
	d.AddBlankLine()
}

func (d *Draft) find(lineID int64) *LineItem {
	for i := range d.Lines {
		if d.Lines[i].ID == lineID {
			return &d.Lines[i]
		}
	}
	return nil
}

// recompute refreshes every line total and the draft totals in one pass.
// There is no partial or lazy path: any caller that may have changed an
// amount ends up here before returning.
func (d *Draft) recompute() {
	var subtotal int64
	for i := range d.Lines {
		line := &d.Lines[i]
		gross := line.Quantity * float64(line.UnitPriceCents)
		line.LineTotalCents = roundCents(gross * (1 - line.DiscountPercent/100))
		subtotal += line.LineTotalCents
	}

	d.Totals.SubtotalCents = subtotal
	d.Totals.TaxCents = roundCents(float64(subtotal) * float64(d.taxRateBps) / 10000)
	d.Totals.TotalCents = d.Totals.SubtotalCents + d.Totals.TaxCents
}

// roundCents rounds a float amount to the nearest cent.
func roundCents(v float64) int64 {
	return int64(math.Round(v))
}

// toCents converts a currency amount in units to integer cents.
func toCents(units float64) int64 {
	return roundCents(units * 100)
}

// parseNumber extracts a numeric value from free-form field input.
// Comma decimal separators are accepted; invalid or empty input parses to
// zero, and negative amounts are floored at zero.
func parseNumber(raw string) float64 {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if cleaned == "" {
		return 0
	}
	val, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || val < 0 {
		return 0
	}
	return val
}

func clampPercent(v float64) float64 {
	if v > 100 {
		return 100
	}
	return v
}
