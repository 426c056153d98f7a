package ledger

import (
	"context"
	"log/slog"

	"github.com/fundrail/ledger/backup"
	"github.com/fundrail/ledger/id"
	"github.com/fundrail/ledger/plugin"
	"github.com/fundrail/ledger/store"
	"github.com/fundrail/ledger/types"
)

// idSequenceName is the persisted counter the ID generator resumes from.
const idSequenceName = "id_generator"

// TransferFunc moves funds between parties. The engine calls it when a bid
// is accepted, when escrow releases or refunds, and when settlement splits
// the proceeds. A non-nil error aborts the operation before any record is
// written.
type TransferFunc func(ctx context.Context, from, to types.Address, amount types.Money) error

// Authorizer checks that the caller named in an operation actually issued
// it. The default accepts every caller; hosts wire their auth layer in via
// WithAuthorizer.
type Authorizer interface {
	RequireCaller(ctx context.Context, caller types.Address) error
}

type allowAll struct{}

func (allowAll) RequireCaller(context.Context, types.Address) error { return nil }

// noopTransfer is the default transfer hook. Hosts that track balances
// externally replace it via WithTransfer.
func noopTransfer(context.Context, types.Address, types.Address, types.Money) error {
	return nil
}

// Ledger is the invoice financing engine. All state lives in the store; the
// engine owns validation, the lifecycle state machines, fee arithmetic, and
// the audit trail.
type Ledger struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	clock      Clock
	ids        id.Generator
	transfer   TransferFunc
	authorizer Authorizer

	// Configuration
	backupRetention int
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:           s,
		plugins:         plugin.NewRegistry(),
		logger:          slog.Default(),
		clock:           systemClock{},
		transfer:        noopTransfer,
		authorizer:      allowAll{},
		backupRetention: backup.DefaultRetention,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithClock sets the time source. Tests inject a fixed clock here.
func WithClock(c Clock) Option {
	return func(l *Ledger) {
		l.clock = c
	}
}

// WithIDGenerator sets the ID generator. When unset, Start seeds a sequence
// generator from the store's persisted counter.
func WithIDGenerator(g id.Generator) Option {
	return func(l *Ledger) {
		l.ids = g
	}
}

// WithTransfer sets the funds transfer hook.
func WithTransfer(fn TransferFunc) Option {
	return func(l *Ledger) {
		l.transfer = fn
	}
}

// WithAuthorizer sets the caller authorization hook.
func WithAuthorizer(a Authorizer) Option {
	return func(l *Ledger) {
		l.authorizer = a
	}
}

// WithBackupRetention sets how many active backups are kept before the
// oldest is archived.
func WithBackupRetention(n int) Option {
	return func(l *Ledger) {
		l.backupRetention = n
	}
}

// Start migrates the store, seeds the ID generator, and initializes plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return err
	}

	if l.ids == nil {
		// Each start claims a fresh epoch so counters never repeat across
		// restarts, without persisting every issued ID.
		epoch, err := l.store.NextSequence(ctx, idSequenceName)
		if err != nil {
			return err
		}
		l.ids = id.NewSequence(epoch << 32)
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("ledger started", "backup_retention", l.backupRetention)

	return nil
}

// Stop shuts down the Ledger.
func (l *Ledger) Stop() error {
	ctx := context.Background()
	l.plugins.EmitShutdown(ctx)

	return l.store.Close()
}

// Ping reports whether the backing store is reachable.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.store.Ping(ctx)
}
