// Package workflow composes the session controller, the navigator and
// the download reconciler into end-to-end batch runs: one executor per
// bot type, one generic runner enforcing the per-item loop contract.
package workflow

// ItemState is the caller-visible lifecycle of one work item. The
// executor trusts caller-supplied state and never re-derives it:
// terminal items are skipped without any portal interaction.
type ItemState string

const (
	ItemPending   ItemState = "pending"
	ItemCompleted ItemState = "completed"
	ItemFailed    ItemState = "failed"
)

// Terminal reports whether the item needs no further processing.
func (s ItemState) Terminal() bool {
	return s == ItemCompleted || s == ItemFailed
}

// Item is one batch row: immutable business identifiers plus a mutable
// outcome slot filled during the run.
type Item struct {
	// OrderNumber is the OdA number, the primary identifier.
	OrderNumber string

	// Position is the OdA position, optional.
	Position string

	// Date is the business date where the workflow needs one,
	// dd.mm.yyyy.
	Date string

	// TaxCode identifies the worker for upload rows.
	TaxCode string

	// Contract is the contract reference for detail extraction rows.
	Contract string

	// State is supplied by the caller and updated after processing.
	State ItemState

	// Result is the outcome slot, set exactly once per processed item.
	Result *Outcome
}

// ID is the identifier reported to the progress sink:
// order number, plus the position when present.
func (i *Item) ID() string {
	if i.Position != "" {
		return i.OrderNumber + "/" + i.Position
	}
	return i.OrderNumber
}

// finish records the outcome and moves the item to its terminal state.
func (i *Item) finish(outcome Outcome) {
	i.Result = &outcome
	if outcome.OK {
		i.State = ItemCompleted
	} else {
		i.State = ItemFailed
	}
}
