package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/fundrail/ledger"
	"github.com/fundrail/ledger/audit"
	"github.com/fundrail/ledger/id"
	"github.com/fundrail/ledger/types"
)

func TestQueryAuditLog(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)
	tl.verifiedBusiness(t, businessAddr)

	start := tl.clock.Now()
	first := tl.uploadVerified(t, types.USD(500_00))
	tl.clock.advance(time.Hour)
	second := tl.uploadVerified(t, types.USD(700_00))

	t.Run("by invoice", func(t *testing.T) {
		got, err := tl.QueryAuditLog(ctx, audit.QueryFilter{InvoiceID: &first.ID}, 0)
		if err != nil {
			t.Fatal(err)
		}
		for _, e := range got {
			if !e.InvoiceID.Equal(first.ID) {
				t.Errorf("entry %v touches invoice %v", e.ID, e.InvoiceID)
			}
		}
		// Upload, verify, and the status-change companion.
		if len(got) != 3 {
			t.Errorf("len = %d, want 3", len(got))
		}
	})

	t.Run("by operation", func(t *testing.T) {
		op := audit.OpInvoiceUploaded
		got, err := tl.QueryAuditLog(ctx, audit.QueryFilter{Operation: &op}, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Fatalf("len = %d, want 2", len(got))
		}
		wantIDs := []id.ID{first.ID, second.ID}
		for i, e := range got {
			if !e.InvoiceID.Equal(wantIDs[i]) {
				t.Errorf("entry %d invoice = %v, want %v", i, e.InvoiceID, wantIDs[i])
			}
		}
	})

	t.Run("by actor", func(t *testing.T) {
		got, err := tl.QueryAuditLog(ctx, audit.QueryFilter{Actor: &businessAddr}, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Errorf("len = %d, want 2 uploads", len(got))
		}
	})

	t.Run("combined filter", func(t *testing.T) {
		op := audit.OpInvoiceUploaded
		got, err := tl.QueryAuditLog(ctx, audit.QueryFilter{InvoiceID: &second.ID, Operation: &op}, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 {
			t.Fatalf("len = %d, want 1", len(got))
		}
	})

	t.Run("time range", func(t *testing.T) {
		end := start.Add(30 * time.Minute)
		got, err := tl.QueryAuditLog(ctx, audit.QueryFilter{Start: &start, End: &end}, 0)
		if err != nil {
			t.Fatal(err)
		}
		// Only the first invoice's entries land in the first half hour.
		for _, e := range got {
			if !e.InvoiceID.Equal(first.ID) {
				t.Errorf("entry outside range: %v at %v", e.Operation, e.Timestamp)
			}
		}
		if len(got) != 3 {
			t.Errorf("len = %d, want 3", len(got))
		}
	})

	t.Run("limit", func(t *testing.T) {
		got, err := tl.QueryAuditLog(ctx, audit.QueryFilter{}, 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Fatalf("len = %d, want 2", len(got))
		}
		if got[0].Operation != audit.OpInvoiceUploaded {
			t.Errorf("first entry = %v, want oldest first", got[0].Operation)
		}
	})
}

func TestValidateAuditTrail(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)
	tl.verifiedBusiness(t, businessAddr)
	tl.uploadVerified(t, types.USD(500_00))

	n, err := tl.ValidateAuditTrail(ctx)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if n != 3 {
		t.Fatalf("entries checked = %d, want 3", n)
	}

	// Plant an entry stamped ahead of the ledger clock.
	bad := &audit.Entry{
		ID:          id.NewRandom().Next(id.KindAudit),
		InvoiceID:   id.NewRandom().Next(id.KindInvoice),
		Operation:   audit.OpInvoiceCreated,
		Actor:       adminAddr,
		Timestamp:   tl.clock.Now().Add(48 * time.Hour),
		BlockHeight: tl.clock.Height(),
	}
	if err := tl.store.AppendAuditEntry(ctx, bad); err != nil {
		t.Fatal(err)
	}

	idx, err := tl.ValidateAuditTrail(ctx)
	if !errors.Is(err, ledger.ErrIntegrity) {
		t.Fatalf("error = %v, want %v", err, ledger.ErrIntegrity)
	}
	if idx != 3 {
		t.Errorf("violation index = %d, want 3", idx)
	}
}

func TestValidateInvoiceAuditTrail(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)
	tl.verifiedBusiness(t, businessAddr)

	first := tl.uploadVerified(t, types.USD(500_00))
	second := tl.uploadVerified(t, types.USD(700_00))

	n, err := tl.ValidateInvoiceAuditTrail(ctx, first.ID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	// Upload, verify, and the status-change companion.
	if n != 3 {
		t.Fatalf("entries checked = %d, want 3", n)
	}

	// Plant an entry for the first invoice stamped ahead of the ledger clock.
	bad := &audit.Entry{
		ID:          id.NewRandom().Next(id.KindAudit),
		InvoiceID:   first.ID,
		Operation:   audit.OpInvoiceCreated,
		Actor:       adminAddr,
		Timestamp:   tl.clock.Now().Add(48 * time.Hour),
		BlockHeight: tl.clock.Height(),
	}
	if err := tl.store.AppendAuditEntry(ctx, bad); err != nil {
		t.Fatal(err)
	}

	idx, err := tl.ValidateInvoiceAuditTrail(ctx, first.ID)
	if !errors.Is(err, ledger.ErrIntegrity) {
		t.Fatalf("error = %v, want %v", err, ledger.ErrIntegrity)
	}
	if idx != 3 {
		t.Errorf("violation index = %d, want 3", idx)
	}

	// The other invoice's trail is untouched.
	if n, err := tl.ValidateInvoiceAuditTrail(ctx, second.ID); err != nil || n != 3 {
		t.Errorf("second trail = (%d, %v), want (3, nil)", n, err)
	}
}

func TestAuditStats(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)
	tl.verifiedBusiness(t, businessAddr)

	inv := tl.uploadVerified(t, types.USD(500_00))
	tl.clock.advance(time.Hour)
	if _, err := tl.PlaceBid(ctx, investorAddr, inv.ID, types.USD(400_00), types.USD(480_00)); err != nil {
		t.Fatal(err)
	}

	stats, err := tl.AuditStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalEntries != 4 {
		t.Fatalf("total = %d, want 4", stats.TotalEntries)
	}
	wantCounts := map[audit.Operation]int{
		audit.OpInvoiceUploaded:      1,
		audit.OpInvoiceVerified:      1,
		audit.OpInvoiceStatusChanged: 1,
		audit.OpBidPlaced:            1,
	}
	if diff := cmp.Diff(wantCounts, stats.OperationCounts); diff != "" {
		t.Errorf("operation counts mismatch (-want +got):\n%s", diff)
	}
	// business, admin, investor
	if stats.UniqueActors != 3 {
		t.Errorf("unique actors = %d, want 3", stats.UniqueActors)
	}
	if !stats.NewestTimestamp.After(stats.OldestTimestamp) {
		t.Errorf("timestamps not ordered: oldest %v, newest %v", stats.OldestTimestamp, stats.NewestTimestamp)
	}
}

func TestGetAuditEntry(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)
	tl.verifiedBusiness(t, businessAddr)

	inv := tl.uploadVerified(t, types.USD(500_00))
	trail, err := tl.InvoiceAuditTrail(ctx, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(trail) == 0 {
		t.Fatal("empty trail")
	}

	got, err := tl.GetAuditEntry(ctx, trail[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Operation != audit.OpInvoiceUploaded {
		t.Errorf("operation = %v, want %v", got.Operation, audit.OpInvoiceUploaded)
	}
	if got.Actor != businessAddr {
		t.Errorf("actor = %v, want %v", got.Actor, businessAddr)
	}

	if _, err := tl.GetAuditEntry(ctx, id.NewRandom().Next(id.KindAudit)); !ledger.IsNotFound(err) {
		t.Errorf("error = %v, want a not-found error", err)
	}
}
