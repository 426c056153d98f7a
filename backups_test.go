package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/fundrail/ledger"
	"github.com/fundrail/ledger/backup"
	"github.com/fundrail/ledger/id"
	"github.com/fundrail/ledger/types"
)

// cmpID compares opaque IDs inside composite structures.
var cmpID = cmp.Comparer(func(a, b id.ID) bool { return a.Equal(b) })

func TestBackupRoundTrip(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)
	tl.verifiedBusiness(t, businessAddr)

	verified := tl.uploadVerified(t, types.USD(500_00))
	pending, err := tl.UploadInvoice(ctx, businessAddr, types.USD(300_00),
		tl.clock.Now().AddDate(0, 2, 0), "pending stock")
	if err != nil {
		t.Fatal(err)
	}

	// Snapshots are admin only.
	if _, err := tl.CreateBackup(ctx, businessAddr, "sneaky"); !errors.Is(err, ledger.ErrNotAdmin) {
		t.Fatalf("non-admin backup error = %v, want %v", err, ledger.ErrNotAdmin)
	}

	b, err := tl.CreateBackup(ctx, adminAddr, "nightly")
	if err != nil {
		t.Fatalf("create backup: %v", err)
	}
	if b.InvoiceCount != 2 {
		t.Fatalf("invoice count = %d, want 2", b.InvoiceCount)
	}
	if b.Status != backup.StatusActive {
		t.Fatalf("status = %v, want %v", b.Status, backup.StatusActive)
	}

	// Mutate the book after the snapshot.
	if _, err := tl.UploadInvoice(ctx, businessAddr, types.USD(900_00),
		tl.clock.Now().AddDate(0, 3, 0), "post-snapshot"); err != nil {
		t.Fatal(err)
	}

	if err := tl.RestoreBackup(ctx, adminAddr, b.ID); err != nil {
		t.Fatalf("restore: %v", err)
	}

	total, err := tl.TotalInvoiceCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Fatalf("total after restore = %d, want 2", total)
	}

	// Every snapshot invoice comes back verbatim.
	for _, invID := range []id.ID{verified.ID, pending.ID} {
		got, err := tl.GetInvoice(ctx, invID)
		if err != nil {
			t.Fatalf("restored invoice %v: %v", invID, err)
		}
		for i := range b.Invoices {
			if b.Invoices[i].ID.Equal(invID) {
				if diff := cmp.Diff(b.Invoices[i], *got, cmpID); diff != "" {
					t.Errorf("invoice %v mismatch (-snapshot +restored):\n%s", invID, diff)
				}
			}
		}
	}
}

func TestBackupRetention(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t, ledger.WithBackupRetention(2))
	tl.setupAdmin(t)

	var ids []id.ID
	for i := 0; i < 3; i++ {
		b, err := tl.CreateBackup(ctx, adminAddr, "rolling")
		if err != nil {
			t.Fatalf("backup %d: %v", i, err)
		}
		ids = append(ids, b.ID)
		tl.clock.advance(time.Hour)
	}

	all, err := tl.ListBackups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("len(backups) = %d, want 3", len(all))
	}

	// The oldest falls out of the restorable set.
	wantStatus := []backup.Status{backup.StatusArchived, backup.StatusActive, backup.StatusActive}
	for i, b := range all {
		if !b.ID.Equal(ids[i]) {
			t.Errorf("backup %d = %v, want %v", i, b.ID, ids[i])
		}
		if b.Status != wantStatus[i] {
			t.Errorf("backup %d status = %v, want %v", i, b.Status, wantStatus[i])
		}
	}

	if err := tl.RestoreBackup(ctx, adminAddr, ids[0]); !errors.Is(err, ledger.ErrBackupNotActive) {
		t.Errorf("restore archived error = %v, want %v", err, ledger.ErrBackupNotActive)
	}
}

func TestArchiveBackup(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)

	b, err := tl.CreateBackup(ctx, adminAddr, "to archive")
	if err != nil {
		t.Fatal(err)
	}
	if err := tl.ArchiveBackup(ctx, adminAddr, b.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}

	got, err := tl.BackupDetails(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != backup.StatusArchived {
		t.Fatalf("status = %v, want %v", got.Status, backup.StatusArchived)
	}
	if err := tl.RestoreBackup(ctx, adminAddr, b.ID); !errors.Is(err, ledger.ErrBackupNotActive) {
		t.Errorf("restore error = %v, want %v", err, ledger.ErrBackupNotActive)
	}
}

func TestCorruptedBackup(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)
	tl.verifiedBusiness(t, businessAddr)

	inv := tl.uploadVerified(t, types.USD(500_00))

	// Plant a backup whose recorded count disagrees with its snapshot.
	gen := id.NewRandom()
	tampered := backup.New(gen.Next(id.KindBackup), adminAddr, "tampered", nil, tl.clock.Now())
	tampered.InvoiceCount = 7
	if err := tl.store.CreateBackup(ctx, tampered); err != nil {
		t.Fatal(err)
	}

	if err := tl.RestoreBackup(ctx, adminAddr, tampered.ID); !errors.Is(err, ledger.ErrBackupCorrupted) {
		t.Fatalf("restore error = %v, want %v", err, ledger.ErrBackupCorrupted)
	}

	// The failed restore marks the backup and leaves the book alone.
	got, err := tl.BackupDetails(ctx, tampered.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != backup.StatusCorrupted {
		t.Fatalf("status = %v, want %v", got.Status, backup.StatusCorrupted)
	}
	if _, err := tl.GetInvoice(ctx, inv.ID); err != nil {
		t.Errorf("invoice book touched by failed restore: %v", err)
	}

	// Once corrupted it is out of the restorable set entirely.
	if err := tl.RestoreBackup(ctx, adminAddr, tampered.ID); !errors.Is(err, ledger.ErrBackupNotActive) {
		t.Errorf("second restore error = %v, want %v", err, ledger.ErrBackupNotActive)
	}
}

func TestValidateBackup(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)
	tl.verifiedBusiness(t, businessAddr)

	tl.uploadVerified(t, types.USD(500_00))

	good, err := tl.CreateBackup(ctx, adminAddr, "good")
	if err != nil {
		t.Fatal(err)
	}
	ok, err := tl.ValidateBackup(ctx, good.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("valid backup reported corrupt")
	}

	gen := id.NewRandom()
	bad := backup.New(gen.Next(id.KindBackup), adminAddr, "bad", nil, tl.clock.Now())
	bad.InvoiceCount = 1
	if err := tl.store.CreateBackup(ctx, bad); err != nil {
		t.Fatal(err)
	}

	ok, err = tl.ValidateBackup(ctx, bad.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("tampered backup reported valid")
	}
	got, err := tl.BackupDetails(ctx, bad.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != backup.StatusCorrupted {
		t.Errorf("status = %v, want %v", got.Status, backup.StatusCorrupted)
	}
}
