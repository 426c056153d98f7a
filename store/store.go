// Package store defines the unified persistence contract the ledger engine
// runs against. Backends live under store/memory, store/mongo, and
// store/mysql; the engine never talks to a driver directly.
package store

import (
	"context"

	"github.com/fundrail/ledger/audit"
	"github.com/fundrail/ledger/backup"
	"github.com/fundrail/ledger/bid"
	"github.com/fundrail/ledger/escrow"
	"github.com/fundrail/ledger/id"
	"github.com/fundrail/ledger/investment"
	"github.com/fundrail/ledger/invoice"
	"github.com/fundrail/ledger/types"
	"github.com/fundrail/ledger/verification"
)

// Store is the unified storage interface for all ledger entities. All
// methods are declared explicitly rather than via embedded sub-interfaces to
// avoid naming conflicts.
type Store interface {
	// Invoice methods. UpdateInvoice takes the invoice's previous status so
	// backends can move it between status buckets atomically. DeleteAllInvoices
	// exists only so a backup restore can clear the book before replaying.
	CreateInvoice(ctx context.Context, inv *invoice.Invoice) error
	GetInvoice(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error)
	UpdateInvoice(ctx context.Context, inv *invoice.Invoice, prevStatus invoice.Status) error
	ListInvoicesByBusiness(ctx context.Context, business types.Address) ([]*invoice.Invoice, error)
	ListInvoicesByStatus(ctx context.Context, status invoice.Status) ([]*invoice.Invoice, error)
	CountInvoicesByStatus(ctx context.Context, status invoice.Status) (int, error)
	DeleteAllInvoices(ctx context.Context) error

	// Bid methods
	CreateBid(ctx context.Context, b *bid.Bid) error
	GetBid(ctx context.Context, bidID id.ID) (*bid.Bid, error)
	UpdateBid(ctx context.Context, b *bid.Bid) error
	ListBidsByInvoice(ctx context.Context, invoiceID id.ID) ([]*bid.Bid, error)

	// Investment methods. At most one investment exists per invoice.
	CreateInvestment(ctx context.Context, ivt *investment.Investment) error
	GetInvestmentByInvoice(ctx context.Context, invoiceID id.ID) (*investment.Investment, error)
	UpdateInvestment(ctx context.Context, ivt *investment.Investment) error

	// Escrow methods. At most one escrow exists per invoice.
	CreateEscrow(ctx context.Context, e *escrow.Escrow) error
	GetEscrow(ctx context.Context, escrowID id.ID) (*escrow.Escrow, error)
	GetEscrowByInvoice(ctx context.Context, invoiceID id.ID) (*escrow.Escrow, error)
	UpdateEscrow(ctx context.Context, e *escrow.Escrow) error

	// Audit methods. The trail is append-only; there is no update or delete.
	// Backends maintain four lookup indices: invoice, operation, actor, and
	// day bucket.
	AppendAuditEntry(ctx context.Context, e *audit.Entry) error
	GetAuditEntry(ctx context.Context, entryID id.ID) (*audit.Entry, error)
	ListAuditByInvoice(ctx context.Context, invoiceID id.ID) ([]*audit.Entry, error)
	ListAuditByOperation(ctx context.Context, op audit.Operation) ([]*audit.Entry, error)
	ListAuditByActor(ctx context.Context, actor types.Address) ([]*audit.Entry, error)
	ListAuditByDayBucket(ctx context.Context, bucket int64) ([]*audit.Entry, error)
	ListAuditAll(ctx context.Context) ([]*audit.Entry, error)
	CountAuditEntries(ctx context.Context) (int, error)

	// Backup methods. ListActiveBackups returns oldest first so retention
	// pruning can archive from the front.
	CreateBackup(ctx context.Context, b *backup.Backup) error
	GetBackup(ctx context.Context, backupID id.ID) (*backup.Backup, error)
	UpdateBackup(ctx context.Context, b *backup.Backup) error
	ListActiveBackups(ctx context.Context) ([]*backup.Backup, error)
	ListAllBackups(ctx context.Context) ([]*backup.Backup, error)

	// Verification methods. Records are keyed by business address;
	// PutVerification both creates and replaces.
	PutVerification(ctx context.Context, v *verification.BusinessVerification) error
	GetVerification(ctx context.Context, business types.Address) (*verification.BusinessVerification, error)
	ListVerificationsByStatus(ctx context.Context, status verification.Status) ([]*verification.BusinessVerification, error)

	// NextSequence atomically increments and returns the named counter.
	// Used to persist ID generator state across restarts.
	NextSequence(ctx context.Context, name string) (uint64, error)

	// SetAdmin stores the single admin address. GetAdmin returns the zero
	// address when none is set.
	SetAdmin(ctx context.Context, admin types.Address) error
	GetAdmin(ctx context.Context) (types.Address, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
