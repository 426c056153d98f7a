package ledger

import (
	"context"
	"fmt"

	"github.com/fundrail/ledger/audit"
	"github.com/fundrail/ledger/id"
	"github.com/fundrail/ledger/invoice"
	"github.com/fundrail/ledger/types"
)

// newAuditEntry stamps a fresh entry with the ledger's current time and
// height. Callers fill in the operation-specific fields before appending.
func (l *Ledger) newAuditEntry(invoiceID id.ID, op audit.Operation, actor types.Address) *audit.Entry {
	return &audit.Entry{
		ID:          l.ids.Next(id.KindAudit),
		InvoiceID:   invoiceID,
		Operation:   op,
		Actor:       actor,
		Timestamp:   l.clock.Now(),
		BlockHeight: l.clock.Height(),
	}
}

// recordStatusChange appends the operation entry and its status-change
// companion. Every lifecycle transition produces both so the trail can be
// replayed either by operation or as a pure status history.
func (l *Ledger) recordStatusChange(ctx context.Context, invoiceID id.ID, op audit.Operation, actor types.Address, oldStatus, newStatus invoice.Status) error {
	entry := l.newAuditEntry(invoiceID, op, actor)
	entry.OldValue = string(oldStatus)
	entry.NewValue = string(newStatus)
	if err := l.store.AppendAuditEntry(ctx, entry); err != nil {
		return err
	}

	change := l.newAuditEntry(invoiceID, audit.OpInvoiceStatusChanged, actor)
	change.OldValue = string(oldStatus)
	change.NewValue = string(newStatus)
	return l.store.AppendAuditEntry(ctx, change)
}

// ──────────────────────────────────────────────────
// Audit Queries
// ──────────────────────────────────────────────────

// GetAuditEntry retrieves a single audit entry by ID.
func (l *Ledger) GetAuditEntry(ctx context.Context, entryID id.ID) (*audit.Entry, error) {
	return l.store.GetAuditEntry(ctx, entryID)
}

// InvoiceAuditTrail returns every entry touching an invoice, oldest first.
func (l *Ledger) InvoiceAuditTrail(ctx context.Context, invoiceID id.ID) ([]*audit.Entry, error) {
	return l.store.ListAuditByInvoice(ctx, invoiceID)
}

// QueryAuditLog returns entries matching the filter, oldest first, up to
// limit (0 means no limit). The scan starts from the most selective index
// the filter allows: invoice, then operation, then actor, then the day
// bucket when the time range fits inside one, then the full log.
func (l *Ledger) QueryAuditLog(ctx context.Context, filter audit.QueryFilter, limit int) ([]*audit.Entry, error) {
	var (
		candidates []*audit.Entry
		err        error
	)

	switch {
	case filter.InvoiceID != nil:
		candidates, err = l.store.ListAuditByInvoice(ctx, *filter.InvoiceID)
	case filter.Operation != nil:
		candidates, err = l.store.ListAuditByOperation(ctx, *filter.Operation)
	case filter.Actor != nil:
		candidates, err = l.store.ListAuditByActor(ctx, *filter.Actor)
	case filter.Start != nil && filter.End != nil &&
		filter.Start.Unix()/audit.DayBucketSeconds == filter.End.Unix()/audit.DayBucketSeconds:
		candidates, err = l.store.ListAuditByDayBucket(ctx, filter.Start.Unix()/audit.DayBucketSeconds)
	default:
		candidates, err = l.store.ListAuditAll(ctx)
	}
	if err != nil {
		return nil, err
	}

	result := make([]*audit.Entry, 0, len(candidates))
	for _, e := range candidates {
		if !filter.Matches(e) {
			continue
		}
		result = append(result, e)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// ValidateAuditTrail checks every entry against the current ledger time and
// height. It returns the number of entries checked and the first integrity
// violation found, wrapped in ErrIntegrity.
func (l *Ledger) ValidateAuditTrail(ctx context.Context) (int, error) {
	entries, err := l.store.ListAuditAll(ctx)
	if err != nil {
		return 0, err
	}

	now := l.clock.Now()
	height := l.clock.Height()
	for i, e := range entries {
		if err := e.Validate(now, height); err != nil {
			return i, fmt.Errorf("%w: %v", ErrIntegrity, err)
		}
	}
	return len(entries), nil
}

// ValidateInvoiceAuditTrail checks a single invoice's trail. Every entry the
// trail references must resolve by ID and pass the same checks
// ValidateAuditTrail applies to the whole log. Same return contract: the
// number of entries checked, or the index of the first violation and an
// ErrIntegrity wrap.
func (l *Ledger) ValidateInvoiceAuditTrail(ctx context.Context, invoiceID id.ID) (int, error) {
	entries, err := l.store.ListAuditByInvoice(ctx, invoiceID)
	if err != nil {
		return 0, err
	}

	now := l.clock.Now()
	height := l.clock.Height()
	for i, e := range entries {
		if _, err := l.store.GetAuditEntry(ctx, e.ID); err != nil {
			return i, fmt.Errorf("%w: entry %s does not resolve: %v", ErrIntegrity, e.ID, err)
		}
		if err := e.Validate(now, height); err != nil {
			return i, fmt.Errorf("%w: %v", ErrIntegrity, err)
		}
	}
	return len(entries), nil
}

// AuditStats summarizes the whole trail.
func (l *Ledger) AuditStats(ctx context.Context) (*audit.Stats, error) {
	entries, err := l.store.ListAuditAll(ctx)
	if err != nil {
		return nil, err
	}

	stats := &audit.Stats{
		TotalEntries:    len(entries),
		OperationCounts: make(map[audit.Operation]int),
	}
	actors := make(map[types.Address]struct{})
	for i, e := range entries {
		stats.OperationCounts[e.Operation]++
		actors[e.Actor] = struct{}{}
		if i == 0 || e.Timestamp.Before(stats.OldestTimestamp) {
			stats.OldestTimestamp = e.Timestamp
		}
		if i == 0 || e.Timestamp.After(stats.NewestTimestamp) {
			stats.NewestTimestamp = e.Timestamp
		}
	}
	stats.UniqueActors = len(actors)
	return stats, nil
}
