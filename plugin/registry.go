package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fundrail/ledger/backup"
	"github.com/fundrail/ledger/bid"
	"github.com/fundrail/ledger/escrow"
	"github.com/fundrail/ledger/invoice"
	"github.com/fundrail/ledger/types"
	"github.com/fundrail/ledger/verification"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery so emission never walks the full plugin list.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit             []OnInit
	onShutdown         []OnShutdown
	onInvoiceUploaded  []OnInvoiceUploaded
	onInvoiceVerified  []OnInvoiceVerified
	onInvoiceSettled   []OnInvoiceSettled
	onInvoiceDefaulted []OnInvoiceDefaulted
	onInvoiceRated     []OnInvoiceRated
	onBidPlaced        []OnBidPlaced
	onBidAccepted      []OnBidAccepted
	onBidWithdrawn     []OnBidWithdrawn
	onEscrowReleased   []OnEscrowReleased
	onEscrowRefunded   []OnEscrowRefunded
	onKYCSubmitted     []OnKYCSubmitted
	onBusinessReviewed []OnBusinessReviewed
	onBackupCreated    []OnBackupCreated
	onBackupRestored   []OnBackupRestored
	onBackupArchived   []OnBackupArchived
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnInvoiceUploaded); ok {
		r.onInvoiceUploaded = append(r.onInvoiceUploaded, v)
	}
	if v, ok := p.(OnInvoiceVerified); ok {
		r.onInvoiceVerified = append(r.onInvoiceVerified, v)
	}
	if v, ok := p.(OnInvoiceSettled); ok {
		r.onInvoiceSettled = append(r.onInvoiceSettled, v)
	}
	if v, ok := p.(OnInvoiceDefaulted); ok {
		r.onInvoiceDefaulted = append(r.onInvoiceDefaulted, v)
	}
	if v, ok := p.(OnInvoiceRated); ok {
		r.onInvoiceRated = append(r.onInvoiceRated, v)
	}
	if v, ok := p.(OnBidPlaced); ok {
		r.onBidPlaced = append(r.onBidPlaced, v)
	}
	if v, ok := p.(OnBidAccepted); ok {
		r.onBidAccepted = append(r.onBidAccepted, v)
	}
	if v, ok := p.(OnBidWithdrawn); ok {
		r.onBidWithdrawn = append(r.onBidWithdrawn, v)
	}
	if v, ok := p.(OnEscrowReleased); ok {
		r.onEscrowReleased = append(r.onEscrowReleased, v)
	}
	if v, ok := p.(OnEscrowRefunded); ok {
		r.onEscrowRefunded = append(r.onEscrowRefunded, v)
	}
	if v, ok := p.(OnKYCSubmitted); ok {
		r.onKYCSubmitted = append(r.onKYCSubmitted, v)
	}
	if v, ok := p.(OnBusinessReviewed); ok {
		r.onBusinessReviewed = append(r.onBusinessReviewed, v)
	}
	if v, ok := p.(OnBackupCreated); ok {
		r.onBackupCreated = append(r.onBackupCreated, v)
	}
	if v, ok := p.(OnBackupRestored); ok {
		r.onBackupRestored = append(r.onBackupRestored, v)
	}
	if v, ok := p.(OnBackupArchived); ok {
		r.onBackupArchived = append(r.onBackupArchived, v)
	}

	r.logger.Info("plugin registered", "name", p.Name())

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.emit(ctx, p.Name(), "OnInit", func() error {
			return p.OnInit(ctx, engine)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.emit(ctx, p.Name(), "OnShutdown", func() error {
			return p.OnShutdown(ctx)
		})
	}
}

// EmitInvoiceUploaded emits an invoice uploaded event.
func (r *Registry) EmitInvoiceUploaded(ctx context.Context, inv *invoice.Invoice) {
	r.mu.RLock()
	plugins := r.onInvoiceUploaded
	r.mu.RUnlock()

	for _, p := range plugins {
		r.emit(ctx, p.Name(), "OnInvoiceUploaded", func() error {
			return p.OnInvoiceUploaded(ctx, inv)
		})
	}
}

// EmitInvoiceVerified emits an invoice verified event.
func (r *Registry) EmitInvoiceVerified(ctx context.Context, inv *invoice.Invoice) {
	r.mu.RLock()
	plugins := r.onInvoiceVerified
	r.mu.RUnlock()

	for _, p := range plugins {
		r.emit(ctx, p.Name(), "OnInvoiceVerified", func() error {
			return p.OnInvoiceVerified(ctx, inv)
		})
	}
}

// EmitInvoiceSettled emits an invoice settled event.
func (r *Registry) EmitInvoiceSettled(ctx context.Context, inv *invoice.Invoice, investorReturn, platformFee types.Money) {
	r.mu.RLock()
	plugins := r.onInvoiceSettled
	r.mu.RUnlock()

	for _, p := range plugins {
		r.emit(ctx, p.Name(), "OnInvoiceSettled", func() error {
			return p.OnInvoiceSettled(ctx, inv, investorReturn, platformFee)
		})
	}
}

// EmitInvoiceDefaulted emits an invoice defaulted event.
func (r *Registry) EmitInvoiceDefaulted(ctx context.Context, inv *invoice.Invoice) {
	r.mu.RLock()
	plugins := r.onInvoiceDefaulted
	r.mu.RUnlock()

	for _, p := range plugins {
		r.emit(ctx, p.Name(), "OnInvoiceDefaulted", func() error {
			return p.OnInvoiceDefaulted(ctx, inv)
		})
	}
}

// EmitInvoiceRated emits an invoice rated event.
func (r *Registry) EmitInvoiceRated(ctx context.Context, inv *invoice.Invoice, rating invoice.Rating) {
	r.mu.RLock()
	plugins := r.onInvoiceRated
	r.mu.RUnlock()

	for _, p := range plugins {
		r.emit(ctx, p.Name(), "OnInvoiceRated", func() error {
			return p.OnInvoiceRated(ctx, inv, rating)
		})
	}
}

// EmitBidPlaced emits a bid placed event.
func (r *Registry) EmitBidPlaced(ctx context.Context, b *bid.Bid) {
	r.mu.RLock()
	plugins := r.onBidPlaced
	r.mu.RUnlock()

	for _, p := range plugins {
		r.emit(ctx, p.Name(), "OnBidPlaced", func() error {
			return p.OnBidPlaced(ctx, b)
		})
	}
}

// EmitBidAccepted emits a bid accepted event.
func (r *Registry) EmitBidAccepted(ctx context.Context, b *bid.Bid, esc *escrow.Escrow) {
	r.mu.RLock()
	plugins := r.onBidAccepted
	r.mu.RUnlock()

	for _, p := range plugins {
		r.emit(ctx, p.Name(), "OnBidAccepted", func() error {
			return p.OnBidAccepted(ctx, b, esc)
		})
	}
}

// EmitBidWithdrawn emits a bid withdrawn event.
func (r *Registry) EmitBidWithdrawn(ctx context.Context, b *bid.Bid) {
	r.mu.RLock()
	plugins := r.onBidWithdrawn
	r.mu.RUnlock()

	for _, p := range plugins {
		r.emit(ctx, p.Name(), "OnBidWithdrawn", func() error {
			return p.OnBidWithdrawn(ctx, b)
		})
	}
}

// EmitEscrowReleased emits an escrow released event.
func (r *Registry) EmitEscrowReleased(ctx context.Context, esc *escrow.Escrow) {
	r.mu.RLock()
	plugins := r.onEscrowReleased
	r.mu.RUnlock()

	for _, p := range plugins {
		r.emit(ctx, p.Name(), "OnEscrowReleased", func() error {
			return p.OnEscrowReleased(ctx, esc)
		})
	}
}

// EmitEscrowRefunded emits an escrow refunded event.
func (r *Registry) EmitEscrowRefunded(ctx context.Context, esc *escrow.Escrow) {
	r.mu.RLock()
	plugins := r.onEscrowRefunded
	r.mu.RUnlock()

	for _, p := range plugins {
		r.emit(ctx, p.Name(), "OnEscrowRefunded", func() error {
			return p.OnEscrowRefunded(ctx, esc)
		})
	}
}

// EmitKYCSubmitted emits a KYC submitted event.
func (r *Registry) EmitKYCSubmitted(ctx context.Context, v *verification.BusinessVerification) {
	r.mu.RLock()
	plugins := r.onKYCSubmitted
	r.mu.RUnlock()

	for _, p := range plugins {
		r.emit(ctx, p.Name(), "OnKYCSubmitted", func() error {
			return p.OnKYCSubmitted(ctx, v)
		})
	}
}

// EmitBusinessReviewed emits a business reviewed event.
func (r *Registry) EmitBusinessReviewed(ctx context.Context, v *verification.BusinessVerification) {
	r.mu.RLock()
	plugins := r.onBusinessReviewed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.emit(ctx, p.Name(), "OnBusinessReviewed", func() error {
			return p.OnBusinessReviewed(ctx, v)
		})
	}
}

// EmitBackupCreated emits a backup created event.
func (r *Registry) EmitBackupCreated(ctx context.Context, b *backup.Backup) {
	r.mu.RLock()
	plugins := r.onBackupCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		r.emit(ctx, p.Name(), "OnBackupCreated", func() error {
			return p.OnBackupCreated(ctx, b)
		})
	}
}

// EmitBackupRestored emits a backup restored event.
func (r *Registry) EmitBackupRestored(ctx context.Context, b *backup.Backup) {
	r.mu.RLock()
	plugins := r.onBackupRestored
	r.mu.RUnlock()

	for _, p := range plugins {
		r.emit(ctx, p.Name(), "OnBackupRestored", func() error {
			return p.OnBackupRestored(ctx, b)
		})
	}
}

// EmitBackupArchived emits a backup archived event.
func (r *Registry) EmitBackupArchived(ctx context.Context, b *backup.Backup) {
	r.mu.RLock()
	plugins := r.onBackupArchived
	r.mu.RUnlock()

	for _, p := range plugins {
		r.emit(ctx, p.Name(), "OnBackupArchived", func() error {
			return p.OnBackupArchived(ctx, b)
		})
	}
}

// emit calls a plugin hook with a timeout and logs failures. Plugins never
// block or fail the ledger pipeline.
func (r *Registry) emit(ctx context.Context, pluginName, hook string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin hook failed",
			"plugin", pluginName,
			"hook", hook,
			"error", err,
		)
	}
}

func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
