// Package backup defines point-in-time invoice snapshots used for disaster
// recovery. A backup captures every invoice verbatim; restore replays the
// snapshot over a cleared invoice book.
package backup

import (
	"time"

	"github.com/fundrail/ledger/id"
	"github.com/fundrail/ledger/invoice"
	"github.com/fundrail/ledger/types"
)

// Status describes whether a backup is eligible for restore.
type Status string

const (
	StatusActive    Status = "active"
	StatusArchived  Status = "archived"
	StatusCorrupted Status = "corrupted"
)

// DefaultRetention is how many active backups are kept before the oldest is
// archived.
const DefaultRetention = 5

// Backup is one snapshot of the invoice book.
type Backup struct {
	ID           id.ID             `json:"id"`
	CreatedAt    time.Time         `json:"created_at"`
	CreatedBy    types.Address     `json:"created_by"`
	Description  string            `json:"description"`
	Status       Status            `json:"status"`
	InvoiceCount int               `json:"invoice_count"`
	Invoices     []invoice.Invoice `json:"invoices"`
}

// New builds an active backup over a snapshot of invoices.
func New(backupID id.ID, createdBy types.Address, description string, snapshot []invoice.Invoice, now time.Time) *Backup {
	return &Backup{
		ID:           backupID,
		CreatedAt:    now,
		CreatedBy:    createdBy,
		Description:  description,
		Status:       StatusActive,
		InvoiceCount: len(snapshot),
		Invoices:     snapshot,
	}
}

// Validate checks the snapshot for internal consistency: the recorded count
// must match the stored invoices and every invoice must carry a positive
// amount.
func (b *Backup) Validate() error {
	if b.InvoiceCount != len(b.Invoices) {
		return &CorruptionError{BackupID: b.ID, Reason: "invoice count does not match snapshot"}
	}
	for i := range b.Invoices {
		if !b.Invoices[i].Amount.IsPositive() {
			return &CorruptionError{BackupID: b.ID, Reason: "snapshot contains non-positive invoice amount"}
		}
	}
	return nil
}

// CorruptionError reports a backup that failed validation.
type CorruptionError struct {
	BackupID id.ID
	Reason   string
}

func (e *CorruptionError) Error() string {
	return "backup: " + e.BackupID.String() + ": " + e.Reason
}
