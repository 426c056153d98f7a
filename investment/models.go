// Package investment defines the funding record created when a bid is
// accepted.
package investment

import (
	"time"

	"github.com/fundrail/ledger/id"
	"github.com/fundrail/ledger/types"
)

// Status is the lifecycle state of an investment.
type Status string

const (
	StatusActive    Status = "active"    // Funds in escrow or released, invoice not yet settled
	StatusWithdrawn Status = "withdrawn" // Invoice defaulted
	StatusCompleted Status = "completed" // Invoice settled, proceeds distributed
)

// Investment is the funding record, 1:1 with the accepted bid on an invoice.
type Investment struct {
	ID        id.ID         `json:"id"`
	InvoiceID id.ID         `json:"invoice_id"`
	Investor  types.Address `json:"investor"`
	Amount    types.Money   `json:"amount"`
	FundedAt  time.Time     `json:"funded_at"`
	Status    Status        `json:"status"`
}

// New creates an Active investment.
func New(investmentID, invoiceID id.ID, investor types.Address, amount types.Money, now time.Time) *Investment {
	return &Investment{
		ID:        investmentID,
		InvoiceID: invoiceID,
		Investor:  investor,
		Amount:    amount,
		FundedAt:  now.UTC(),
		Status:    StatusActive,
	}
}

// Complete marks the investment settled.
func (i *Investment) Complete() {
	i.Status = StatusCompleted
}

// Withdraw marks the investment written off after a default.
func (i *Investment) Withdraw() {
	i.Status = StatusWithdrawn
}
