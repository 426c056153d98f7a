// Package plugin provides an extensible hook system for the ledger engine.
// Plugins observe lifecycle events; they never gate or roll back the
// operations that emit them.
package plugin

import (
	"context"

	"github.com/fundrail/ledger/backup"
	"github.com/fundrail/ledger/bid"
	"github.com/fundrail/ledger/escrow"
	"github.com/fundrail/ledger/invoice"
	"github.com/fundrail/ledger/types"
	"github.com/fundrail/ledger/verification"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the engine is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Invoice lifecycle hooks
// ──────────────────────────────────────────────────

// OnInvoiceUploaded is called when a business uploads an invoice.
type OnInvoiceUploaded interface {
	Plugin
	OnInvoiceUploaded(ctx context.Context, inv *invoice.Invoice) error
}

// OnInvoiceVerified is called when the admin verifies an invoice.
type OnInvoiceVerified interface {
	Plugin
	OnInvoiceVerified(ctx context.Context, inv *invoice.Invoice) error
}

// OnInvoiceSettled is called when an invoice is paid and the proceeds split.
type OnInvoiceSettled interface {
	Plugin
	OnInvoiceSettled(ctx context.Context, inv *invoice.Invoice, investorReturn, platformFee types.Money) error
}

// OnInvoiceDefaulted is called when a funded invoice is marked defaulted.
type OnInvoiceDefaulted interface {
	Plugin
	OnInvoiceDefaulted(ctx context.Context, inv *invoice.Invoice) error
}

// OnInvoiceRated is called when a rating lands on a funded or paid invoice.
type OnInvoiceRated interface {
	Plugin
	OnInvoiceRated(ctx context.Context, inv *invoice.Invoice, rating invoice.Rating) error
}

// ──────────────────────────────────────────────────
// Bid and escrow hooks
// ──────────────────────────────────────────────────

// OnBidPlaced is called when an investor places a bid.
type OnBidPlaced interface {
	Plugin
	OnBidPlaced(ctx context.Context, b *bid.Bid) error
}

// OnBidAccepted is called when the business accepts a bid and funds move
// into escrow.
type OnBidAccepted interface {
	Plugin
	OnBidAccepted(ctx context.Context, b *bid.Bid, esc *escrow.Escrow) error
}

// OnBidWithdrawn is called when an investor withdraws a placed bid.
type OnBidWithdrawn interface {
	Plugin
	OnBidWithdrawn(ctx context.Context, b *bid.Bid) error
}

// OnEscrowReleased is called when escrowed funds are released to the
// business.
type OnEscrowReleased interface {
	Plugin
	OnEscrowReleased(ctx context.Context, esc *escrow.Escrow) error
}

// OnEscrowRefunded is called when escrowed funds are returned to the
// investor.
type OnEscrowRefunded interface {
	Plugin
	OnEscrowRefunded(ctx context.Context, esc *escrow.Escrow) error
}

// ──────────────────────────────────────────────────
// KYC hooks
// ──────────────────────────────────────────────────

// OnKYCSubmitted is called when a business submits or resubmits KYC.
type OnKYCSubmitted interface {
	Plugin
	OnKYCSubmitted(ctx context.Context, v *verification.BusinessVerification) error
}

// OnBusinessReviewed is called when the admin verifies or rejects a
// business.
type OnBusinessReviewed interface {
	Plugin
	OnBusinessReviewed(ctx context.Context, v *verification.BusinessVerification) error
}

// ──────────────────────────────────────────────────
// Backup hooks
// ──────────────────────────────────────────────────

// OnBackupCreated is called when a snapshot is taken.
type OnBackupCreated interface {
	Plugin
	OnBackupCreated(ctx context.Context, b *backup.Backup) error
}

// OnBackupRestored is called after a snapshot is replayed over the invoice
// book.
type OnBackupRestored interface {
	Plugin
	OnBackupRestored(ctx context.Context, b *backup.Backup) error
}

// OnBackupArchived is called when a backup ages out of retention or is
// archived by the admin.
type OnBackupArchived interface {
	Plugin
	OnBackupArchived(ctx context.Context, b *backup.Backup) error
}
