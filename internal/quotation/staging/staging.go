// Package staging provides the session-scoped side stores of the quotation
// composer: the scanned-product staging list and the one-shot customer
// handoff slots. The composer depends on these interfaces, never on any
// ambient global state.
package staging

// StagedProduct is a recently scanned, not-yet-committed product entry.
type StagedProduct struct {
	Ref        string `json:"ref"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	PriceCents int64  `json:"priceCents"`
	Category   string `json:"category,omitempty"`
}

// HandoffSource identifies which screen staged the customer handoff.
type HandoffSource string

const (
	// SourceVisitTarget is the visit-target handoff, highest priority.
	SourceVisitTarget HandoffSource = "visit_target"
	// SourceMilestone is the legacy milestone handoff.
	SourceMilestone HandoffSource = "milestone"
)

// handoffPriority is the consumption order at session open.
var handoffPriority = []HandoffSource{SourceVisitTarget, SourceMilestone}

// Handoff is the customer context transferred out-of-band from another
// screen into the quotation composer.
type Handoff struct {
	Source  HandoffSource `json:"source"`
	Name    string        `json:"name"`
	Address string        `json:"address"`
	City    string        `json:"city"`
	State   string        `json:"state"`
	Pincode string        `json:"pincode"`
}
