// Package escrow defines the held-funds record bridging bid acceptance and
// final release or refund.
package escrow

import (
	"time"

	"github.com/fundrail/ledger/id"
	"github.com/fundrail/ledger/types"
)

// Status is the lifecycle state of an escrow. Released and Refunded are
// terminal; there is no re-entry to Held, which is what guarantees funds
// cannot move twice for one escrow.
type Status string

const (
	StatusHeld     Status = "held"
	StatusReleased Status = "released"
	StatusRefunded Status = "refunded"
)

// Escrow holds an investor's funds for one invoice until release to the
// business or refund to the investor.
type Escrow struct {
	ID        id.ID         `json:"id"`
	InvoiceID id.ID         `json:"invoice_id"`
	Investor  types.Address `json:"investor"`
	Business  types.Address `json:"business"`
	Amount    types.Money   `json:"amount"`
	CreatedAt time.Time     `json:"created_at"`
	Status    Status        `json:"status"`
}

// New creates a Held escrow.
func New(escrowID, invoiceID id.ID, investor, business types.Address, amount types.Money, now time.Time) *Escrow {
	return &Escrow{
		ID:        escrowID,
		InvoiceID: invoiceID,
		Investor:  investor,
		Business:  business,
		Amount:    amount,
		CreatedAt: now.UTC(),
		Status:    StatusHeld,
	}
}

// IsTerminal reports whether the escrow reached a final state.
func (e *Escrow) IsTerminal() bool {
	return e.Status == StatusReleased || e.Status == StatusRefunded
}

// Release marks the held funds as paid out to the business. The engine
// checks Held status and performs the transfer before calling this.
func (e *Escrow) Release() {
	e.Status = StatusReleased
}

// Refund marks the held funds as returned to the investor.
func (e *Escrow) Refund() {
	e.Status = StatusRefunded
}
