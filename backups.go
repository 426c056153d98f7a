package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/fundrail/ledger/audit"
	"github.com/fundrail/ledger/backup"
	"github.com/fundrail/ledger/id"
	"github.com/fundrail/ledger/invoice"
	"github.com/fundrail/ledger/types"
)

// CreateBackup snapshots every invoice into a new active backup. When the
// number of active backups exceeds the retention limit the oldest are
// archived. Admin only.
func (l *Ledger) CreateBackup(ctx context.Context, admin types.Address, description string) (*backup.Backup, error) {
	if err := l.requireAdmin(ctx, admin); err != nil {
		return nil, err
	}

	snapshot, err := l.snapshotInvoices(ctx)
	if err != nil {
		return nil, err
	}

	b := backup.New(l.ids.Next(id.KindBackup), admin, description, snapshot, l.clock.Now())
	if err := l.store.CreateBackup(ctx, b); err != nil {
		return nil, err
	}

	if err := l.pruneBackups(ctx); err != nil {
		return nil, err
	}

	l.logger.Info("backup created",
		"backup_id", b.ID,
		"invoice_count", b.InvoiceCount,
	)

	l.plugins.EmitBackupCreated(ctx, b)
	return b, nil
}

// RestoreBackup validates a backup, clears the invoice book, and replays the
// snapshot verbatim. A backup that fails validation is marked corrupted and
// the book is untouched. Admin only.
func (l *Ledger) RestoreBackup(ctx context.Context, admin types.Address, backupID id.ID) error {
	if err := l.requireAdmin(ctx, admin); err != nil {
		return err
	}

	b, err := l.store.GetBackup(ctx, backupID)
	if err != nil {
		return err
	}
	if b.Status != backup.StatusActive {
		return ErrBackupNotActive
	}

	if err := b.Validate(); err != nil {
		if markErr := l.markCorrupted(ctx, b); markErr != nil {
			return markErr
		}
		return fmt.Errorf("%w: %v", ErrBackupCorrupted, err)
	}

	if err := l.store.DeleteAllInvoices(ctx); err != nil {
		return err
	}
	for i := range b.Invoices {
		inv := b.Invoices[i]
		if err := l.store.CreateInvoice(ctx, &inv); err != nil {
			return err
		}

		entry := l.newAuditEntry(inv.ID, audit.OpInvoiceCreated, admin)
		entry.NewValue = string(inv.Status)
		entry.Context = "restored from backup " + b.ID.String()
		if err := l.store.AppendAuditEntry(ctx, entry); err != nil {
			return err
		}
	}

	l.logger.Info("backup restored",
		"backup_id", b.ID,
		"invoice_count", b.InvoiceCount,
	)

	l.plugins.EmitBackupRestored(ctx, b)
	return nil
}

// ValidateBackup checks a backup's internal consistency. A backup that
// fails is marked corrupted so it can never be restored.
func (l *Ledger) ValidateBackup(ctx context.Context, backupID id.ID) (bool, error) {
	b, err := l.store.GetBackup(ctx, backupID)
	if err != nil {
		return false, err
	}

	if err := b.Validate(); err != nil {
		var ce *backup.CorruptionError
		if errors.As(err, &ce) {
			l.logger.Error("backup failed validation",
				"backup_id", b.ID,
				"reason", ce.Reason,
			)
		}
		if markErr := l.markCorrupted(ctx, b); markErr != nil {
			return false, markErr
		}
		return false, nil
	}
	return true, nil
}

// ArchiveBackup takes a backup out of the restorable set. Admin only.
func (l *Ledger) ArchiveBackup(ctx context.Context, admin types.Address, backupID id.ID) error {
	if err := l.requireAdmin(ctx, admin); err != nil {
		return err
	}

	b, err := l.store.GetBackup(ctx, backupID)
	if err != nil {
		return err
	}

	b.Status = backup.StatusArchived
	if err := l.store.UpdateBackup(ctx, b); err != nil {
		return err
	}

	l.plugins.EmitBackupArchived(ctx, b)
	return nil
}

// ListBackups returns every backup, oldest first.
func (l *Ledger) ListBackups(ctx context.Context) ([]*backup.Backup, error) {
	return l.store.ListAllBackups(ctx)
}

// BackupDetails returns a single backup record.
func (l *Ledger) BackupDetails(ctx context.Context, backupID id.ID) (*backup.Backup, error) {
	return l.store.GetBackup(ctx, backupID)
}

// snapshotInvoices copies every invoice by value, iterating the status
// buckets in lifecycle order so snapshots are deterministic.
func (l *Ledger) snapshotInvoices(ctx context.Context) ([]invoice.Invoice, error) {
	snapshot := make([]invoice.Invoice, 0)
	for _, status := range invoice.AllStatuses {
		invs, err := l.store.ListInvoicesByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		for _, inv := range invs {
			snapshot = append(snapshot, *inv)
		}
	}
	return snapshot, nil
}

// pruneBackups archives the oldest active backups beyond the retention
// limit.
func (l *Ledger) pruneBackups(ctx context.Context) error {
	active, err := l.store.ListActiveBackups(ctx)
	if err != nil {
		return err
	}

	for len(active) > l.backupRetention {
		oldest := active[0]
		oldest.Status = backup.StatusArchived
		if err := l.store.UpdateBackup(ctx, oldest); err != nil {
			return err
		}
		l.logger.Info("backup archived by retention", "backup_id", oldest.ID)
		l.plugins.EmitBackupArchived(ctx, oldest)
		active = active[1:]
	}
	return nil
}

func (l *Ledger) markCorrupted(ctx context.Context, b *backup.Backup) error {
	b.Status = backup.StatusCorrupted
	return l.store.UpdateBackup(ctx, b)
}
