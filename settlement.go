package ledger

import (
	"context"
	"fmt"

	"github.com/fundrail/ledger/audit"
	"github.com/fundrail/ledger/id"
	"github.com/fundrail/ledger/invoice"
	"github.com/fundrail/ledger/types"
)

// Settlement is the outcome of splitting an invoice payment.
type Settlement struct {
	InvoiceID      id.ID       `json:"invoice_id"`
	Payment        types.Money `json:"payment"`
	InvestorReturn types.Money `json:"investor_return"`
	PlatformFee    types.Money `json:"platform_fee"`
}

// CalculateProfit splits a payment between the investor and the platform.
// The fee is taken from profit (payment minus investment) in basis points
// with integer truncation. When the payment is below the investment the
// profit is negative and so is the fee: the platform absorbs its share of
// the loss and the investor receives payment plus that share back.
func CalculateProfit(investmentAmount, paymentAmount types.Money, platformFeeBps int64) (investorReturn, platformFee types.Money) {
	profit := paymentAmount.Subtract(investmentAmount)
	platformFee = profit.MulBps(platformFeeBps)
	investorReturn = paymentAmount.Subtract(platformFee)
	return investorReturn, platformFee
}

// SettleInvoice records payment of a funded invoice, pays the investor
// their return, pays the platform its fee taken from profit at feeBps basis
// points, and closes the investment.
//
// Both transfers must succeed before any record changes; a failed transfer
// aborts the settlement with no partial state.
func (l *Ledger) SettleInvoice(ctx context.Context, invoiceID id.ID, payment types.Money, platform types.Address, feeBps int64) (*Settlement, error) {
	inv, err := l.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != invoice.StatusFunded {
		return nil, ErrInvalidStatus
	}
	if payment.Currency != inv.Amount.Currency {
		return nil, ErrCurrencyMismatch
	}

	ivt, err := l.store.GetInvestmentByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	investorReturn, platformFee := CalculateProfit(ivt.Amount, payment, feeBps)

	if err := l.transfer(ctx, inv.Business, inv.Investor, investorReturn); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
	}
	if err := l.transfer(ctx, inv.Business, platform, platformFee); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
	}

	now := l.clock.Now()
	prev := inv.Status
	inv.MarkPaid(now)
	if err := l.store.UpdateInvoice(ctx, inv, prev); err != nil {
		return nil, err
	}

	ivt.Complete()
	if err := l.store.UpdateInvestment(ctx, ivt); err != nil {
		return nil, err
	}

	processed := l.newAuditEntry(invoiceID, audit.OpPaymentProcessed, inv.Business)
	processed.Amount = &payment
	processed.NewValue = fmt.Sprintf("investor_return=%d platform_fee=%d", investorReturn.Amount, platformFee.Amount)
	if err := l.store.AppendAuditEntry(ctx, processed); err != nil {
		return nil, err
	}

	paid := l.newAuditEntry(invoiceID, audit.OpInvoicePaid, inv.Business)
	paid.OldValue = string(prev)
	paid.NewValue = string(inv.Status)
	if err := l.store.AppendAuditEntry(ctx, paid); err != nil {
		return nil, err
	}

	change := l.newAuditEntry(invoiceID, audit.OpInvoiceStatusChanged, inv.Business)
	change.OldValue = string(prev)
	change.NewValue = string(inv.Status)
	if err := l.store.AppendAuditEntry(ctx, change); err != nil {
		return nil, err
	}

	completed := l.newAuditEntry(invoiceID, audit.OpSettlementCompleted, inv.Business)
	completed.Amount = &investorReturn
	if err := l.store.AppendAuditEntry(ctx, completed); err != nil {
		return nil, err
	}

	l.logger.Info("invoice settled",
		"invoice_id", invoiceID,
		"payment", payment,
		"investor_return", investorReturn,
		"platform_fee", platformFee,
	)

	l.plugins.EmitInvoiceSettled(ctx, inv, investorReturn, platformFee)

	return &Settlement{
		InvoiceID:      invoiceID,
		Payment:        payment,
		InvestorReturn: investorReturn,
		PlatformFee:    platformFee,
	}, nil
}
