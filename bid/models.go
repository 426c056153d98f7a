// Package bid defines investor bids and their per-invoice storage contract.
package bid

import (
	"time"

	"github.com/fundrail/ledger/id"
	"github.com/fundrail/ledger/types"
)

// Status is the lifecycle state of a bid. Withdrawn and Accepted are
// terminal; exactly one bid per invoice may reach Accepted.
type Status string

const (
	StatusPlaced    Status = "placed"
	StatusWithdrawn Status = "withdrawn"
	StatusAccepted  Status = "accepted"
)

// Bid is an investor's offer to fund a specific invoice.
type Bid struct {
	ID             id.ID         `json:"id"`
	InvoiceID      id.ID         `json:"invoice_id"`
	Investor       types.Address `json:"investor"`
	Amount         types.Money   `json:"amount"`
	ExpectedReturn types.Money   `json:"expected_return"`
	PlacedAt       time.Time     `json:"placed_at"`
	Status         Status        `json:"status"`
}

// New creates a Placed bid.
func New(bidID, invoiceID id.ID, investor types.Address, amount, expectedReturn types.Money, now time.Time) *Bid {
	return &Bid{
		ID:             bidID,
		InvoiceID:      invoiceID,
		Investor:       investor,
		Amount:         amount,
		ExpectedReturn: expectedReturn,
		PlacedAt:       now.UTC(),
		Status:         StatusPlaced,
	}
}

// Accept marks the bid accepted. Legality (bid placed, invoice verified,
// caller is the invoice's business) is enforced by the engine.
func (b *Bid) Accept() {
	b.Status = StatusAccepted
}

// Withdraw marks the bid withdrawn.
func (b *Bid) Withdraw() {
	b.Status = StatusWithdrawn
}
