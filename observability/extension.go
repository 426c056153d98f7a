// Package observability provides a metrics extension for the ledger that
// records lifecycle event counts via a pluggable MetricFactory.
package observability

import (
	"context"

	"github.com/fundrail/ledger/backup"
	"github.com/fundrail/ledger/bid"
	"github.com/fundrail/ledger/escrow"
	"github.com/fundrail/ledger/invoice"
	"github.com/fundrail/ledger/plugin"
	"github.com/fundrail/ledger/types"
	"github.com/fundrail/ledger/verification"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin             = (*MetricsExtension)(nil)
	_ plugin.OnInit             = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceUploaded  = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceVerified  = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceSettled   = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceDefaulted = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceRated     = (*MetricsExtension)(nil)
	_ plugin.OnBidPlaced        = (*MetricsExtension)(nil)
	_ plugin.OnBidAccepted      = (*MetricsExtension)(nil)
	_ plugin.OnBidWithdrawn     = (*MetricsExtension)(nil)
	_ plugin.OnEscrowReleased   = (*MetricsExtension)(nil)
	_ plugin.OnEscrowRefunded   = (*MetricsExtension)(nil)
	_ plugin.OnKYCSubmitted     = (*MetricsExtension)(nil)
	_ plugin.OnBusinessReviewed = (*MetricsExtension)(nil)
	_ plugin.OnBackupCreated    = (*MetricsExtension)(nil)
	_ plugin.OnBackupRestored   = (*MetricsExtension)(nil)
	_ plugin.OnBackupArchived   = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a ledger plugin to automatically track financing metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Invoice metrics
	InvoiceUploaded  Counter
	InvoiceVerified  Counter
	InvoiceSettled   Counter
	InvoiceDefaulted Counter
	InvoiceRated     Counter
	InvoiceAmount    Histogram

	// Bid metrics
	BidPlaced    Counter
	BidAccepted  Counter
	BidWithdrawn Counter
	BidAmount    Histogram

	// Escrow metrics
	EscrowReleased Counter
	EscrowRefunded Counter

	// Settlement metrics
	InvestorReturn Histogram
	PlatformFee    Histogram

	// Verification metrics
	KYCSubmitted     Counter
	BusinessVerified Counter
	BusinessRejected Counter

	// Backup metrics
	BackupCreated  Counter
	BackupRestored Counter
	BackupArchived Counter
	BackupSize     Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Invoice metrics
		InvoiceUploaded:  factory.Counter("ledger.invoice.uploaded"),
		InvoiceVerified:  factory.Counter("ledger.invoice.verified"),
		InvoiceSettled:   factory.Counter("ledger.invoice.settled"),
		InvoiceDefaulted: factory.Counter("ledger.invoice.defaulted"),
		InvoiceRated:     factory.Counter("ledger.invoice.rated"),
		InvoiceAmount:    factory.Histogram("ledger.invoice.amount"),

		// Bid metrics
		BidPlaced:    factory.Counter("ledger.bid.placed"),
		BidAccepted:  factory.Counter("ledger.bid.accepted"),
		BidWithdrawn: factory.Counter("ledger.bid.withdrawn"),
		BidAmount:    factory.Histogram("ledger.bid.amount"),

		// Escrow metrics
		EscrowReleased: factory.Counter("ledger.escrow.released"),
		EscrowRefunded: factory.Counter("ledger.escrow.refunded"),

		// Settlement metrics
		InvestorReturn: factory.Histogram("ledger.settlement.investor_return"),
		PlatformFee:    factory.Histogram("ledger.settlement.platform_fee"),

		// Verification metrics
		KYCSubmitted:     factory.Counter("ledger.kyc.submitted"),
		BusinessVerified: factory.Counter("ledger.business.verified"),
		BusinessRejected: factory.Counter("ledger.business.rejected"),

		// Backup metrics
		BackupCreated:  factory.Counter("ledger.backup.created"),
		BackupRestored: factory.Counter("ledger.backup.restored"),
		BackupArchived: factory.Counter("ledger.backup.archived"),
		BackupSize:     factory.Histogram("ledger.backup.invoice_count"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Invoice lifecycle hooks
// ──────────────────────────────────────────────────

// OnInvoiceUploaded implements plugin.OnInvoiceUploaded.
func (m *MetricsExtension) OnInvoiceUploaded(_ context.Context, inv *invoice.Invoice) error {
	m.InvoiceUploaded.Inc()
	m.InvoiceAmount.Observe(float64(inv.Amount.Amount))
	return nil
}

// OnInvoiceVerified implements plugin.OnInvoiceVerified.
func (m *MetricsExtension) OnInvoiceVerified(_ context.Context, _ *invoice.Invoice) error {
	m.InvoiceVerified.Inc()
	return nil
}

// OnInvoiceSettled implements plugin.OnInvoiceSettled.
func (m *MetricsExtension) OnInvoiceSettled(_ context.Context, _ *invoice.Invoice, investorReturn, platformFee types.Money) error {
	m.InvoiceSettled.Inc()
	m.InvestorReturn.Observe(float64(investorReturn.Amount))
	m.PlatformFee.Observe(float64(platformFee.Amount))
	return nil
}

// OnInvoiceDefaulted implements plugin.OnInvoiceDefaulted.
func (m *MetricsExtension) OnInvoiceDefaulted(_ context.Context, _ *invoice.Invoice) error {
	m.InvoiceDefaulted.Inc()
	return nil
}

// OnInvoiceRated implements plugin.OnInvoiceRated.
func (m *MetricsExtension) OnInvoiceRated(_ context.Context, _ *invoice.Invoice, _ invoice.Rating) error {
	m.InvoiceRated.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Bid and escrow hooks
// ──────────────────────────────────────────────────

// OnBidPlaced implements plugin.OnBidPlaced.
func (m *MetricsExtension) OnBidPlaced(_ context.Context, b *bid.Bid) error {
	m.BidPlaced.Inc()
	m.BidAmount.Observe(float64(b.Amount.Amount))
	return nil
}

// OnBidAccepted implements plugin.OnBidAccepted.
func (m *MetricsExtension) OnBidAccepted(_ context.Context, _ *bid.Bid, _ *escrow.Escrow) error {
	m.BidAccepted.Inc()
	return nil
}

// OnBidWithdrawn implements plugin.OnBidWithdrawn.
func (m *MetricsExtension) OnBidWithdrawn(_ context.Context, _ *bid.Bid) error {
	m.BidWithdrawn.Inc()
	return nil
}

// OnEscrowReleased implements plugin.OnEscrowReleased.
func (m *MetricsExtension) OnEscrowReleased(_ context.Context, _ *escrow.Escrow) error {
	m.EscrowReleased.Inc()
	return nil
}

// OnEscrowRefunded implements plugin.OnEscrowRefunded.
func (m *MetricsExtension) OnEscrowRefunded(_ context.Context, _ *escrow.Escrow) error {
	m.EscrowRefunded.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Verification hooks
// ──────────────────────────────────────────────────

// OnKYCSubmitted implements plugin.OnKYCSubmitted.
func (m *MetricsExtension) OnKYCSubmitted(_ context.Context, _ *verification.BusinessVerification) error {
	m.KYCSubmitted.Inc()
	return nil
}

// OnBusinessReviewed implements plugin.OnBusinessReviewed.
func (m *MetricsExtension) OnBusinessReviewed(_ context.Context, v *verification.BusinessVerification) error {
	switch v.Status {
	case verification.StatusVerified:
		m.BusinessVerified.Inc()
	case verification.StatusRejected:
		m.BusinessRejected.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Backup hooks
// ──────────────────────────────────────────────────

// OnBackupCreated implements plugin.OnBackupCreated.
func (m *MetricsExtension) OnBackupCreated(_ context.Context, b *backup.Backup) error {
	m.BackupCreated.Inc()
	m.BackupSize.Observe(float64(b.InvoiceCount))
	return nil
}

// OnBackupRestored implements plugin.OnBackupRestored.
func (m *MetricsExtension) OnBackupRestored(_ context.Context, _ *backup.Backup) error {
	m.BackupRestored.Inc()
	return nil
}

// OnBackupArchived implements plugin.OnBackupArchived.
func (m *MetricsExtension) OnBackupArchived(_ context.Context, _ *backup.Backup) error {
	m.BackupArchived.Inc()
	return nil
}
