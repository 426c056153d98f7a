// Package eventhook bridges ledger lifecycle events to an external event bus.
//
// It defines a local Publisher interface so the package does not depend on
// any particular broker. Callers inject a PublisherFunc adapter that bridges
// to their bus at wiring time.
package eventhook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fundrail/ledger/backup"
	"github.com/fundrail/ledger/bid"
	"github.com/fundrail/ledger/escrow"
	"github.com/fundrail/ledger/invoice"
	"github.com/fundrail/ledger/plugin"
	"github.com/fundrail/ledger/types"
	"github.com/fundrail/ledger/verification"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin             = (*Extension)(nil)
	_ plugin.OnInvoiceUploaded  = (*Extension)(nil)
	_ plugin.OnInvoiceVerified  = (*Extension)(nil)
	_ plugin.OnInvoiceSettled   = (*Extension)(nil)
	_ plugin.OnInvoiceDefaulted = (*Extension)(nil)
	_ plugin.OnInvoiceRated     = (*Extension)(nil)
	_ plugin.OnBidPlaced        = (*Extension)(nil)
	_ plugin.OnBidAccepted      = (*Extension)(nil)
	_ plugin.OnBidWithdrawn     = (*Extension)(nil)
	_ plugin.OnEscrowReleased   = (*Extension)(nil)
	_ plugin.OnEscrowRefunded   = (*Extension)(nil)
	_ plugin.OnKYCSubmitted     = (*Extension)(nil)
	_ plugin.OnBusinessReviewed = (*Extension)(nil)
	_ plugin.OnBackupCreated    = (*Extension)(nil)
	_ plugin.OnBackupRestored   = (*Extension)(nil)
	_ plugin.OnBackupArchived   = (*Extension)(nil)
)

// Publisher is the interface that event backends must implement.
// It is defined locally so the eventhook package does not import a broker
// client directly; callers inject the concrete publisher at wiring time.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// Event is the wire representation of a ledger lifecycle event.
type Event struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
}

// PublisherFunc is an adapter to use a plain function as a Publisher.
type PublisherFunc func(ctx context.Context, event *Event) error

// Publish implements Publisher.
func (f PublisherFunc) Publish(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// Extension bridges ledger lifecycle events to an event bus.
type Extension struct {
	publisher Publisher
	enabled   map[string]bool // nil = all enabled
	logger    *slog.Logger
}

// New creates an Extension that publishes events through the provided Publisher.
func New(p Publisher, opts ...Option) *Extension {
	e := &Extension{
		publisher: p,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "event-hook" }

// ──────────────────────────────────────────────────
// Invoice lifecycle hooks
// ──────────────────────────────────────────────────

// OnInvoiceUploaded implements plugin.OnInvoiceUploaded.
func (e *Extension) OnInvoiceUploaded(ctx context.Context, inv *invoice.Invoice) error {
	return e.publish(ctx, ActionInvoiceUploaded, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryFinancing,
		"business", inv.Business.String(),
		"amount", inv.Amount.Amount,
		"currency", inv.Amount.Currency,
		"due_date", inv.DueDate,
	)
}

// OnInvoiceVerified implements plugin.OnInvoiceVerified.
func (e *Extension) OnInvoiceVerified(ctx context.Context, inv *invoice.Invoice) error {
	return e.publish(ctx, ActionInvoiceVerified, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryFinancing,
		"business", inv.Business.String(),
	)
}

// OnInvoiceSettled implements plugin.OnInvoiceSettled.
func (e *Extension) OnInvoiceSettled(ctx context.Context, inv *invoice.Invoice, investorReturn, platformFee types.Money) error {
	return e.publish(ctx, ActionInvoiceSettled, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategorySettlement,
		"business", inv.Business.String(),
		"investor", inv.Investor.String(),
		"investor_return", investorReturn.Amount,
		"platform_fee", platformFee.Amount,
		"currency", investorReturn.Currency,
	)
}

// OnInvoiceDefaulted implements plugin.OnInvoiceDefaulted.
func (e *Extension) OnInvoiceDefaulted(ctx context.Context, inv *invoice.Invoice) error {
	return e.publish(ctx, ActionInvoiceDefaulted, SeverityWarning, OutcomeFailure,
		ResourceInvoice, inv.ID.String(), CategorySettlement,
		"business", inv.Business.String(),
		"investor", inv.Investor.String(),
		"funded_amount", inv.FundedAmount.Amount,
	)
}

// OnInvoiceRated implements plugin.OnInvoiceRated.
func (e *Extension) OnInvoiceRated(ctx context.Context, inv *invoice.Invoice, rating invoice.Rating) error {
	return e.publish(ctx, ActionInvoiceRated, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryFinancing,
		"rater", rating.Rater.String(),
		"rating", rating.Value,
		"average_rating", inv.AverageRating,
	)
}

// ──────────────────────────────────────────────────
// Bid and escrow hooks
// ──────────────────────────────────────────────────

// OnBidPlaced implements plugin.OnBidPlaced.
func (e *Extension) OnBidPlaced(ctx context.Context, b *bid.Bid) error {
	return e.publish(ctx, ActionBidPlaced, SeverityInfo, OutcomeSuccess,
		ResourceBid, b.ID.String(), CategoryFinancing,
		"invoice_id", b.InvoiceID.String(),
		"investor", b.Investor.String(),
		"amount", b.Amount.Amount,
		"expected_return", b.ExpectedReturn.Amount,
	)
}

// OnBidAccepted implements plugin.OnBidAccepted.
func (e *Extension) OnBidAccepted(ctx context.Context, b *bid.Bid, esc *escrow.Escrow) error {
	return e.publish(ctx, ActionBidAccepted, SeverityInfo, OutcomeSuccess,
		ResourceBid, b.ID.String(), CategoryFinancing,
		"invoice_id", b.InvoiceID.String(),
		"investor", b.Investor.String(),
		"escrow_id", esc.ID.String(),
		"amount", b.Amount.Amount,
	)
}

// OnBidWithdrawn implements plugin.OnBidWithdrawn.
func (e *Extension) OnBidWithdrawn(ctx context.Context, b *bid.Bid) error {
	return e.publish(ctx, ActionBidWithdrawn, SeverityInfo, OutcomeSuccess,
		ResourceBid, b.ID.String(), CategoryFinancing,
		"invoice_id", b.InvoiceID.String(),
		"investor", b.Investor.String(),
	)
}

// OnEscrowReleased implements plugin.OnEscrowReleased.
func (e *Extension) OnEscrowReleased(ctx context.Context, esc *escrow.Escrow) error {
	return e.publish(ctx, ActionEscrowReleased, SeverityInfo, OutcomeSuccess,
		ResourceEscrow, esc.ID.String(), CategoryEscrow,
		"invoice_id", esc.InvoiceID.String(),
		"business", esc.Business.String(),
		"amount", esc.Amount.Amount,
	)
}

// OnEscrowRefunded implements plugin.OnEscrowRefunded.
func (e *Extension) OnEscrowRefunded(ctx context.Context, esc *escrow.Escrow) error {
	return e.publish(ctx, ActionEscrowRefunded, SeverityWarning, OutcomeSuccess,
		ResourceEscrow, esc.ID.String(), CategoryEscrow,
		"invoice_id", esc.InvoiceID.String(),
		"investor", esc.Investor.String(),
		"amount", esc.Amount.Amount,
	)
}

// ──────────────────────────────────────────────────
// Verification hooks
// ──────────────────────────────────────────────────

// OnKYCSubmitted implements plugin.OnKYCSubmitted.
func (e *Extension) OnKYCSubmitted(ctx context.Context, v *verification.BusinessVerification) error {
	return e.publish(ctx, ActionKYCSubmitted, SeverityInfo, OutcomeSuccess,
		ResourceBusiness, v.Business.String(), CategoryCompliance,
		"status", string(v.Status),
	)
}

// OnBusinessReviewed implements plugin.OnBusinessReviewed.
func (e *Extension) OnBusinessReviewed(ctx context.Context, v *verification.BusinessVerification) error {
	outcome := OutcomeSuccess
	severity := SeverityInfo
	if v.Status == verification.StatusRejected {
		outcome = OutcomeFailure
		severity = SeverityWarning
	}
	return e.publish(ctx, ActionBusinessReviewed, severity, outcome,
		ResourceBusiness, v.Business.String(), CategoryCompliance,
		"status", string(v.Status),
		"rejection_reason", v.RejectionReason,
	)
}

// ──────────────────────────────────────────────────
// Backup hooks
// ──────────────────────────────────────────────────

// OnBackupCreated implements plugin.OnBackupCreated.
func (e *Extension) OnBackupCreated(ctx context.Context, b *backup.Backup) error {
	return e.publish(ctx, ActionBackupCreated, SeverityInfo, OutcomeSuccess,
		ResourceBackup, b.ID.String(), CategoryOperations,
		"invoice_count", b.InvoiceCount,
	)
}

// OnBackupRestored implements plugin.OnBackupRestored.
func (e *Extension) OnBackupRestored(ctx context.Context, b *backup.Backup) error {
	return e.publish(ctx, ActionBackupRestored, SeverityWarning, OutcomeSuccess,
		ResourceBackup, b.ID.String(), CategoryOperations,
		"invoice_count", b.InvoiceCount,
	)
}

// OnBackupArchived implements plugin.OnBackupArchived.
func (e *Extension) OnBackupArchived(ctx context.Context, b *backup.Backup) error {
	return e.publish(ctx, ActionBackupArchived, SeverityInfo, OutcomeSuccess,
		ResourceBackup, b.ID.String(), CategoryOperations,
		"invoice_count", b.InvoiceCount,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// publish builds and sends an event if the action is enabled.
func (e *Extension) publish(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	evt := &Event{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
	}

	if pubErr := e.publisher.Publish(ctx, evt); pubErr != nil {
		e.logger.Warn("eventhook: failed to publish event",
			"action", action,
			"resource_id", resourceID,
			"error", pubErr,
		)
		return pubErr
	}
	return nil
}
