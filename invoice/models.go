// Package invoice defines the financing invoice record and its
// status-partitioned storage contract.
//
// An invoice moves along exactly one path: Pending → Verified → Funded →
// Paid, with a single escape edge Funded → Defaulted. The transition methods
// below mutate fields only; legality of an edge is enforced by the engine
// before any mutator is called, so the status buckets and the status field
// can be updated together.
package invoice

import (
	"time"

	"github.com/fundrail/ledger/id"
	"github.com/fundrail/ledger/types"
)

// Status is the lifecycle state of an invoice.
type Status string

const (
	StatusPending   Status = "pending"   // Uploaded, awaiting verification
	StatusVerified  Status = "verified"  // Verified and open for bidding
	StatusFunded    Status = "funded"    // Funded by an investor
	StatusPaid      Status = "paid"      // Paid and settled
	StatusDefaulted Status = "defaulted" // Payment overdue, written off
)

// AllStatuses lists every status in lifecycle order. Snapshot and count
// operations iterate the buckets in this order.
var AllStatuses = []Status{
	StatusPending,
	StatusVerified,
	StatusFunded,
	StatusPaid,
	StatusDefaulted,
}

// Rating is a single investor rating attached to an invoice.
type Rating struct {
	Rater    types.Address `json:"rater"`
	Value    int           `json:"value"` // 1..5
	Feedback string        `json:"feedback,omitempty"`
	RatedAt  time.Time     `json:"rated_at"`
}

// Invoice is a financing request uploaded by a business.
type Invoice struct {
	types.Entity
	ID           id.ID         `json:"id"`
	Business     types.Address `json:"business"`
	Amount       types.Money   `json:"amount"`
	DueDate      time.Time     `json:"due_date"`
	Description  string        `json:"description"`
	Status       Status        `json:"status"`
	FundedAmount types.Money   `json:"funded_amount"`
	FundedAt     *time.Time    `json:"funded_at,omitempty"`
	Investor     types.Address `json:"investor,omitempty"`
	SettledAt    *time.Time    `json:"settled_at,omitempty"`

	// Rating aggregate. AverageRating is floor(sum/count); integer
	// truncation is intentional and load-bearing for downstream consumers.
	Ratings       []Rating `json:"ratings,omitempty"`
	AverageRating int      `json:"average_rating"`
	TotalRatings  int      `json:"total_ratings"`
}

// New creates a Pending invoice. Input validation happens in the engine
// before this constructor runs.
func New(invoiceID id.ID, business types.Address, amount types.Money, dueDate time.Time, description string, now time.Time) *Invoice {
	return &Invoice{
		Entity:       types.NewEntity(now),
		ID:           invoiceID,
		Business:     business,
		Amount:       amount,
		DueDate:      dueDate,
		Description:  description,
		Status:       StatusPending,
		FundedAmount: types.Zero(amount.Currency),
	}
}

// IsAvailableForFunding reports whether the invoice can accept a bid.
func (inv *Invoice) IsAvailableForFunding() bool {
	return inv.Status == StatusVerified && inv.FundedAmount.IsZero()
}

// IsOverdue reports whether the invoice is past its due date.
func (inv *Invoice) IsOverdue(now time.Time) bool {
	return now.After(inv.DueDate)
}

// Verify transitions the invoice to Verified.
func (inv *Invoice) Verify(now time.Time) {
	inv.Status = StatusVerified
	inv.Touch(now)
}

// MarkFunded records the funding investor and amount and transitions the
// invoice to Funded. funded_amount > 0 implies a non-zero investor; the
// engine only calls this after escrow creation succeeds.
func (inv *Invoice) MarkFunded(investor types.Address, amount types.Money, now time.Time) {
	at := now.UTC()
	inv.Status = StatusFunded
	inv.FundedAmount = amount
	inv.FundedAt = &at
	inv.Investor = investor
	inv.Touch(now)
}

// MarkPaid transitions the invoice to Paid and records the settlement time.
func (inv *Invoice) MarkPaid(now time.Time) {
	at := now.UTC()
	inv.Status = StatusPaid
	inv.SettledAt = &at
	inv.Touch(now)
}

// MarkDefaulted transitions the invoice to Defaulted.
func (inv *Invoice) MarkDefaulted(now time.Time) {
	inv.Status = StatusDefaulted
	inv.Touch(now)
}

// ──────────────────────────────────────────────────
// Ratings
// ──────────────────────────────────────────────────

// HasRatingFrom reports whether the given rater already rated this invoice.
func (inv *Invoice) HasRatingFrom(rater types.Address) bool {
	for _, r := range inv.Ratings {
		if r.Rater == rater {
			return true
		}
	}
	return false
}

// AddRating appends a rating and recomputes the integer average.
// Preconditions (status, rater identity, range, uniqueness) are checked by
// the engine.
func (inv *Invoice) AddRating(value int, feedback string, rater types.Address, now time.Time) {
	inv.Ratings = append(inv.Ratings, Rating{
		Rater:    rater,
		Value:    value,
		Feedback: feedback,
		RatedAt:  now.UTC(),
	})
	inv.TotalRatings = len(inv.Ratings)

	sum := 0
	for _, r := range inv.Ratings {
		sum += r.Value
	}
	inv.AverageRating = sum / inv.TotalRatings
	inv.Touch(now)
}

// HighestRating returns the highest rating value, or 0 if unrated.
func (inv *Invoice) HighestRating() int {
	highest := 0
	for _, r := range inv.Ratings {
		if r.Value > highest {
			highest = r.Value
		}
	}
	return highest
}

// LowestRating returns the lowest rating value, or 0 if unrated.
func (inv *Invoice) LowestRating() int {
	if len(inv.Ratings) == 0 {
		return 0
	}
	lowest := inv.Ratings[0].Value
	for _, r := range inv.Ratings[1:] {
		if r.Value < lowest {
			lowest = r.Value
		}
	}
	return lowest
}
