package ledger

import (
	"context"
	"fmt"

	"github.com/fundrail/ledger/audit"
	"github.com/fundrail/ledger/escrow"
	"github.com/fundrail/ledger/id"
	"github.com/fundrail/ledger/types"
)

// ReleaseEscrow pays the held funds out to the business. The transfer runs
// before any record changes; a failed transfer leaves the escrow Held.
func (l *Ledger) ReleaseEscrow(ctx context.Context, caller types.Address, invoiceID id.ID) error {
	if err := l.authorizer.RequireCaller(ctx, caller); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	esc, err := l.store.GetEscrowByInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if esc.Status != escrow.StatusHeld {
		return ErrEscrowTerminal
	}

	if err := l.transfer(ctx, esc.Investor, esc.Business, esc.Amount); err != nil {
		return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
	}

	esc.Release()
	if err := l.store.UpdateEscrow(ctx, esc); err != nil {
		return err
	}

	entry := l.newAuditEntry(invoiceID, audit.OpEscrowReleased, caller)
	entry.Amount = &esc.Amount
	entry.Context = esc.ID.String()
	if err := l.store.AppendAuditEntry(ctx, entry); err != nil {
		return err
	}

	l.logger.Info("escrow released",
		"escrow_id", esc.ID,
		"invoice_id", invoiceID,
		"business", esc.Business,
		"amount", esc.Amount,
	)

	l.plugins.EmitEscrowReleased(ctx, esc)
	return nil
}

// RefundEscrow returns the held funds to the investor, typically when
// verification falls through after funding.
func (l *Ledger) RefundEscrow(ctx context.Context, caller types.Address, invoiceID id.ID) error {
	if err := l.authorizer.RequireCaller(ctx, caller); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	esc, err := l.store.GetEscrowByInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if esc.Status != escrow.StatusHeld {
		return ErrEscrowTerminal
	}

	if err := l.transfer(ctx, esc.Business, esc.Investor, esc.Amount); err != nil {
		return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
	}

	esc.Refund()
	if err := l.store.UpdateEscrow(ctx, esc); err != nil {
		return err
	}

	entry := l.newAuditEntry(invoiceID, audit.OpEscrowRefunded, caller)
	entry.Amount = &esc.Amount
	entry.Context = esc.ID.String()
	if err := l.store.AppendAuditEntry(ctx, entry); err != nil {
		return err
	}

	l.logger.Info("escrow refunded",
		"escrow_id", esc.ID,
		"invoice_id", invoiceID,
		"investor", esc.Investor,
		"amount", esc.Amount,
	)

	l.plugins.EmitEscrowRefunded(ctx, esc)
	return nil
}

// EscrowStatus returns the current escrow state for an invoice.
func (l *Ledger) EscrowStatus(ctx context.Context, invoiceID id.ID) (escrow.Status, error) {
	esc, err := l.store.GetEscrowByInvoice(ctx, invoiceID)
	if err != nil {
		return "", err
	}
	return esc.Status, nil
}

// EscrowDetails returns the full escrow record for an invoice.
func (l *Ledger) EscrowDetails(ctx context.Context, invoiceID id.ID) (*escrow.Escrow, error) {
	return l.store.GetEscrowByInvoice(ctx, invoiceID)
}
