package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/fundrail/ledger/audit"
	"github.com/fundrail/ledger/id"
	"github.com/fundrail/ledger/invoice"
	"github.com/fundrail/ledger/types"
	"github.com/fundrail/ledger/verification"
)

// ──────────────────────────────────────────────────
// Invoice Lifecycle
// ──────────────────────────────────────────────────

// UploadInvoice creates a Pending invoice for a verified business.
func (l *Ledger) UploadInvoice(ctx context.Context, business types.Address, amount types.Money, dueDate time.Time, description string) (*invoice.Invoice, error) {
	if err := l.authorizer.RequireCaller(ctx, business); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	if err := l.requireVerifiedBusiness(ctx, business); err != nil {
		return nil, err
	}

	now := l.clock.Now()
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !dueDate.After(now) {
		return nil, ErrInvalidDueDate
	}
	if description == "" {
		return nil, ErrInvalidDescription
	}

	inv := invoice.New(l.ids.Next(id.KindInvoice), business, amount, dueDate, description, now)
	if err := l.store.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	entry := l.newAuditEntry(inv.ID, audit.OpInvoiceUploaded, business)
	entry.NewValue = string(inv.Status)
	entry.Amount = &inv.Amount
	entry.Context = description
	if err := l.store.AppendAuditEntry(ctx, entry); err != nil {
		return nil, err
	}

	l.logger.Info("invoice uploaded",
		"invoice_id", inv.ID,
		"business", business,
		"amount", amount,
	)

	l.plugins.EmitInvoiceUploaded(ctx, inv)
	return inv, nil
}

// VerifyInvoice moves a Pending invoice to Verified, opening it for bids.
// Only the admin may verify.
func (l *Ledger) VerifyInvoice(ctx context.Context, admin types.Address, invoiceID id.ID) error {
	if err := l.requireAdmin(ctx, admin); err != nil {
		return err
	}

	inv, err := l.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if inv.Status != invoice.StatusPending {
		return ErrInvalidStatus
	}

	prev := inv.Status
	inv.Verify(l.clock.Now())
	if err := l.store.UpdateInvoice(ctx, inv, prev); err != nil {
		return err
	}

	if err := l.recordStatusChange(ctx, inv.ID, audit.OpInvoiceVerified, admin, prev, inv.Status); err != nil {
		return err
	}

	l.plugins.EmitInvoiceVerified(ctx, inv)
	return nil
}

// ──────────────────────────────────────────────────
// Invoice Queries
// ──────────────────────────────────────────────────

// GetInvoice retrieves an invoice by ID.
func (l *Ledger) GetInvoice(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	return l.store.GetInvoice(ctx, invoiceID)
}

// ListInvoicesByBusiness returns every invoice a business has uploaded.
func (l *Ledger) ListInvoicesByBusiness(ctx context.Context, business types.Address) ([]*invoice.Invoice, error) {
	return l.store.ListInvoicesByBusiness(ctx, business)
}

// ListInvoicesByStatus returns every invoice in the given lifecycle state.
func (l *Ledger) ListInvoicesByStatus(ctx context.Context, status invoice.Status) ([]*invoice.Invoice, error) {
	return l.store.ListInvoicesByStatus(ctx, status)
}

// ListAvailableInvoices returns verified invoices open for bidding.
func (l *Ledger) ListAvailableInvoices(ctx context.Context) ([]*invoice.Invoice, error) {
	return l.store.ListInvoicesByStatus(ctx, invoice.StatusVerified)
}

// CountInvoicesByStatus returns the number of invoices in a lifecycle state.
func (l *Ledger) CountInvoicesByStatus(ctx context.Context, status invoice.Status) (int, error) {
	return l.store.CountInvoicesByStatus(ctx, status)
}

// TotalInvoiceCount returns the number of invoices across all states.
func (l *Ledger) TotalInvoiceCount(ctx context.Context) (int, error) {
	total := 0
	for _, status := range invoice.AllStatuses {
		n, err := l.store.CountInvoicesByStatus(ctx, status)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// requireVerifiedBusiness rejects callers without a verified KYC record.
func (l *Ledger) requireVerifiedBusiness(ctx context.Context, business types.Address) error {
	v, err := l.store.GetVerification(ctx, business)
	if err != nil || v.Status != verification.StatusVerified {
		return ErrBusinessNotVerified
	}
	return nil
}
