package ledger

import (
	"context"
	"fmt"

	"github.com/fundrail/ledger/audit"
	"github.com/fundrail/ledger/bid"
	"github.com/fundrail/ledger/escrow"
	"github.com/fundrail/ledger/id"
	"github.com/fundrail/ledger/investment"
	"github.com/fundrail/ledger/invoice"
	"github.com/fundrail/ledger/types"
)

// PlaceBid records an investor's offer on a verified invoice.
func (l *Ledger) PlaceBid(ctx context.Context, investor types.Address, invoiceID id.ID, amount, expectedReturn types.Money) (*bid.Bid, error) {
	if err := l.authorizer.RequireCaller(ctx, investor); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	inv, err := l.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != invoice.StatusVerified {
		return nil, ErrInvalidStatus
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if amount.Currency != inv.Amount.Currency {
		return nil, ErrCurrencyMismatch
	}

	b := bid.New(l.ids.Next(id.KindBid), invoiceID, investor, amount, expectedReturn, l.clock.Now())
	if err := l.store.CreateBid(ctx, b); err != nil {
		return nil, err
	}

	entry := l.newAuditEntry(invoiceID, audit.OpBidPlaced, investor)
	entry.Amount = &b.Amount
	entry.Context = b.ID.String()
	if err := l.store.AppendAuditEntry(ctx, entry); err != nil {
		return nil, err
	}

	l.logger.Info("bid placed",
		"bid_id", b.ID,
		"invoice_id", invoiceID,
		"investor", investor,
		"amount", amount,
	)

	l.plugins.EmitBidPlaced(ctx, b)
	return b, nil
}

// GetBid retrieves a bid by ID.
func (l *Ledger) GetBid(ctx context.Context, bidID id.ID) (*bid.Bid, error) {
	return l.store.GetBid(ctx, bidID)
}

// ListBidsByInvoice returns every bid placed on an invoice, oldest first.
func (l *Ledger) ListBidsByInvoice(ctx context.Context, invoiceID id.ID) ([]*bid.Bid, error) {
	return l.store.ListBidsByInvoice(ctx, invoiceID)
}

// AcceptBid lets the invoice's business take an investor's offer. It holds
// the bid amount in escrow, marks the bid accepted, moves the invoice to
// Funded, and opens the investment record.
//
// All preconditions are checked before the first write, so a rejected call
// leaves no partial state behind.
func (l *Ledger) AcceptBid(ctx context.Context, business types.Address, invoiceID, bidID id.ID) error {
	if err := l.authorizer.RequireCaller(ctx, business); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	inv, err := l.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	b, err := l.store.GetBid(ctx, bidID)
	if err != nil {
		return err
	}

	if inv.Business != business {
		return ErrUnauthorized
	}
	if !b.InvoiceID.Equal(invoiceID) {
		return ErrBidMismatch
	}
	if inv.Status != invoice.StatusVerified || b.Status != bid.StatusPlaced {
		return ErrInvalidStatus
	}

	now := l.clock.Now()

	// Hold the bid amount in escrow.
	esc := escrow.New(l.ids.Next(id.KindEscrow), invoiceID, b.Investor, inv.Business, b.Amount, now)
	if err := l.store.CreateEscrow(ctx, esc); err != nil {
		return err
	}

	b.Accept()
	if err := l.store.UpdateBid(ctx, b); err != nil {
		return err
	}

	prev := inv.Status
	inv.MarkFunded(b.Investor, b.Amount, now)
	if err := l.store.UpdateInvoice(ctx, inv, prev); err != nil {
		return err
	}

	ivt := investment.New(l.ids.Next(id.KindInvestment), invoiceID, b.Investor, b.Amount, now)
	if err := l.store.CreateInvestment(ctx, ivt); err != nil {
		return err
	}

	accepted := l.newAuditEntry(invoiceID, audit.OpBidAccepted, business)
	accepted.Amount = &b.Amount
	accepted.Context = b.ID.String()
	if err := l.store.AppendAuditEntry(ctx, accepted); err != nil {
		return err
	}

	held := l.newAuditEntry(invoiceID, audit.OpEscrowCreated, business)
	held.Amount = &esc.Amount
	held.Context = esc.ID.String()
	if err := l.store.AppendAuditEntry(ctx, held); err != nil {
		return err
	}

	funded := l.newAuditEntry(invoiceID, audit.OpInvoiceFunded, b.Investor)
	funded.Amount = &b.Amount
	funded.NewValue = string(inv.Status)
	if err := l.store.AppendAuditEntry(ctx, funded); err != nil {
		return err
	}

	change := l.newAuditEntry(invoiceID, audit.OpInvoiceStatusChanged, business)
	change.OldValue = string(prev)
	change.NewValue = string(inv.Status)
	if err := l.store.AppendAuditEntry(ctx, change); err != nil {
		return err
	}

	l.logger.Info("bid accepted",
		"bid_id", b.ID,
		"invoice_id", invoiceID,
		"escrow_id", esc.ID,
		"investor", b.Investor,
		"amount", b.Amount,
	)

	l.plugins.EmitBidAccepted(ctx, b, esc)
	return nil
}

// WithdrawBid lets an investor pull a bid that has not been accepted.
func (l *Ledger) WithdrawBid(ctx context.Context, investor types.Address, bidID id.ID) error {
	if err := l.authorizer.RequireCaller(ctx, investor); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	b, err := l.store.GetBid(ctx, bidID)
	if err != nil {
		return err
	}
	if b.Investor != investor {
		return ErrNotBidder
	}
	if b.Status != bid.StatusPlaced {
		return ErrOperationNotAllowed
	}

	b.Withdraw()
	if err := l.store.UpdateBid(ctx, b); err != nil {
		return err
	}

	entry := l.newAuditEntry(b.InvoiceID, audit.OpBidWithdrawn, investor)
	entry.Amount = &b.Amount
	entry.Context = b.ID.String()
	if err := l.store.AppendAuditEntry(ctx, entry); err != nil {
		return err
	}

	l.plugins.EmitBidWithdrawn(ctx, b)
	return nil
}
