// Package audit defines the append-only audit trail: one immutable entry per
// state-changing operation, indexed for query by invoice, operation, actor,
// and day.
package audit

import (
	"time"

	"github.com/fundrail/ledger/id"
	"github.com/fundrail/ledger/types"
)

// Operation tags the kind of mutation an entry records.
type Operation string

const (
	OpInvoiceCreated       Operation = "invoice_created"
	OpInvoiceUploaded      Operation = "invoice_uploaded"
	OpInvoiceVerified      Operation = "invoice_verified"
	OpInvoiceFunded        Operation = "invoice_funded"
	OpInvoicePaid          Operation = "invoice_paid"
	OpInvoiceDefaulted     Operation = "invoice_defaulted"
	OpInvoiceStatusChanged Operation = "invoice_status_changed"
	OpInvoiceRated         Operation = "invoice_rated"
	OpBidPlaced            Operation = "bid_placed"
	OpBidAccepted          Operation = "bid_accepted"
	OpBidWithdrawn         Operation = "bid_withdrawn"
	OpEscrowCreated        Operation = "escrow_created"
	OpEscrowReleased       Operation = "escrow_released"
	OpEscrowRefunded       Operation = "escrow_refunded"
	OpPaymentProcessed     Operation = "payment_processed"
	OpSettlementCompleted  Operation = "settlement_completed"
)

// DayBucketSeconds groups entries into day buckets for the time index.
const DayBucketSeconds = 86_400

// Entry is one immutable audit record. Entries are never updated or deleted;
// the store exposes no mutation path after Append.
type Entry struct {
	ID          id.ID         `json:"id"`
	InvoiceID   id.ID         `json:"invoice_id"`
	Operation   Operation     `json:"operation"`
	Actor       types.Address `json:"actor"`
	Timestamp   time.Time     `json:"timestamp"`
	OldValue    string        `json:"old_value,omitempty"`
	NewValue    string        `json:"new_value,omitempty"`
	Amount      *types.Money  `json:"amount,omitempty"`
	Context     string        `json:"context,omitempty"`
	BlockHeight uint64        `json:"block_height"`
}

// DayBucket returns the day index the entry's timestamp falls into.
func (e *Entry) DayBucket() int64 {
	return e.Timestamp.Unix() / DayBucketSeconds
}

// Validate checks the entry against the current ledger time and height.
// An entry is corrupt when its timestamp or height is ahead of the ledger,
// when an amount-bearing operation carries no positive amount, or when a
// status change is missing either side of the transition.
func (e *Entry) Validate(now time.Time, height uint64) error {
	if e.Timestamp.After(now) {
		return &IntegrityError{EntryID: e.ID, Reason: "timestamp in the future"}
	}
	if e.BlockHeight > height {
		return &IntegrityError{EntryID: e.ID, Reason: "block height ahead of ledger"}
	}

	switch e.Operation {
	case OpInvoiceFunded, OpPaymentProcessed:
		if e.Amount == nil || !e.Amount.IsPositive() {
			return &IntegrityError{EntryID: e.ID, Reason: "amount-bearing operation without positive amount"}
		}
	case OpInvoiceStatusChanged:
		if e.OldValue == "" || e.NewValue == "" {
			return &IntegrityError{EntryID: e.ID, Reason: "status change missing old or new value"}
		}
	}

	return nil
}

// IntegrityError reports a corrupt or unresolvable audit entry.
type IntegrityError struct {
	EntryID id.ID
	Reason  string
}

func (e *IntegrityError) Error() string {
	return "audit: entry " + e.EntryID.String() + ": " + e.Reason
}

// QueryFilter selects audit entries. Nil fields match everything.
type QueryFilter struct {
	InvoiceID *id.ID
	Operation *Operation
	Actor     *types.Address
	Start     *time.Time
	End       *time.Time
}

// Matches reports whether the entry passes every set predicate.
func (f *QueryFilter) Matches(e *Entry) bool {
	if f.InvoiceID != nil && !e.InvoiceID.Equal(*f.InvoiceID) {
		return false
	}
	if f.Operation != nil && e.Operation != *f.Operation {
		return false
	}
	if f.Actor != nil && e.Actor != *f.Actor {
		return false
	}
	if f.Start != nil && e.Timestamp.Before(*f.Start) {
		return false
	}
	if f.End != nil && e.Timestamp.After(*f.End) {
		return false
	}
	return true
}

// Stats summarizes the whole audit trail.
type Stats struct {
	TotalEntries    int               `json:"total_entries"`
	OperationCounts map[Operation]int `json:"operation_counts"`
	UniqueActors    int               `json:"unique_actors"`
	OldestTimestamp time.Time         `json:"oldest_timestamp"`
	NewestTimestamp time.Time         `json:"newest_timestamp"`
}
