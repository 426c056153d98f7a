package ledger

import (
	"context"

	"github.com/fundrail/ledger/audit"
	"github.com/fundrail/ledger/id"
	"github.com/fundrail/ledger/invoice"
	"github.com/fundrail/ledger/types"
)

// HandleDefault writes off a funded invoice whose payment never arrived.
// The invoice moves to Defaulted and the investment is marked withdrawn.
// Only the admin may declare a default.
func (l *Ledger) HandleDefault(ctx context.Context, admin types.Address, invoiceID id.ID) error {
	if err := l.requireAdmin(ctx, admin); err != nil {
		return err
	}

	inv, err := l.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if inv.Status != invoice.StatusFunded {
		return ErrInvalidStatus
	}

	ivt, err := l.store.GetInvestmentByInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}

	prev := inv.Status
	inv.MarkDefaulted(l.clock.Now())
	if err := l.store.UpdateInvoice(ctx, inv, prev); err != nil {
		return err
	}

	ivt.Withdraw()
	if err := l.store.UpdateInvestment(ctx, ivt); err != nil {
		return err
	}

	if err := l.recordStatusChange(ctx, invoiceID, audit.OpInvoiceDefaulted, admin, prev, inv.Status); err != nil {
		return err
	}

	l.logger.Warn("invoice defaulted",
		"invoice_id", invoiceID,
		"business", inv.Business,
		"investor", inv.Investor,
		"funded_amount", inv.FundedAmount,
	)

	l.plugins.EmitInvoiceDefaulted(ctx, inv)
	return nil
}
