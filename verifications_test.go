package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/fundrail/ledger"
	"github.com/fundrail/ledger/types"
	"github.com/fundrail/ledger/verification"
)

func TestSetAdmin(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)

	// Bootstrap is open while no admin is set.
	if err := tl.SetAdmin(ctx, adminAddr, adminAddr); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	got, err := tl.Admin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != adminAddr {
		t.Fatalf("admin = %v, want %v", got, adminAddr)
	}

	// Once set, only the current admin may change it.
	if err := tl.SetAdmin(ctx, businessAddr, businessAddr); !errors.Is(err, ledger.ErrNotAdmin) {
		t.Errorf("takeover error = %v, want %v", err, ledger.ErrNotAdmin)
	}

	next := types.Address("acct_admin2")
	if err := tl.SetAdmin(ctx, adminAddr, next); err != nil {
		t.Fatalf("handover: %v", err)
	}
	got, err = tl.Admin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != next {
		t.Errorf("admin = %v, want %v", got, next)
	}
}

func TestKYCLifecycle(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)

	if err := tl.SubmitKYCApplication(ctx, businessAddr, "registration docs"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	pending, err := tl.ListPendingBusinesses(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]types.Address{businessAddr}, pending); diff != "" {
		t.Fatalf("pending mismatch (-want +got):\n%s", diff)
	}

	// A pending application may not be resubmitted.
	if err := tl.SubmitKYCApplication(ctx, businessAddr, "newer docs"); !errors.Is(err, ledger.ErrKYCAlreadyPending) {
		t.Errorf("resubmit while pending error = %v, want %v", err, ledger.ErrKYCAlreadyPending)
	}

	// Only the admin reviews.
	if err := tl.VerifyBusiness(ctx, businessAddr, businessAddr); !errors.Is(err, ledger.ErrNotAdmin) {
		t.Errorf("self-verify error = %v, want %v", err, ledger.ErrNotAdmin)
	}

	if err := tl.VerifyBusiness(ctx, adminAddr, businessAddr); err != nil {
		t.Fatalf("verify: %v", err)
	}

	v, err := tl.BusinessVerification(ctx, businessAddr)
	if err != nil {
		t.Fatal(err)
	}
	if v.Status != verification.StatusVerified {
		t.Fatalf("status = %v, want %v", v.Status, verification.StatusVerified)
	}
	if v.ReviewedBy != adminAddr || v.ReviewedAt == nil {
		t.Errorf("review record = %v/%v, want reviewer %v", v.ReviewedBy, v.ReviewedAt, adminAddr)
	}

	// A verified business may not reopen its application.
	if err := tl.SubmitKYCApplication(ctx, businessAddr, "again"); !errors.Is(err, ledger.ErrKYCAlreadyVerified) {
		t.Errorf("resubmit after verify error = %v, want %v", err, ledger.ErrKYCAlreadyVerified)
	}

	// Nor can it be reviewed twice.
	if err := tl.VerifyBusiness(ctx, adminAddr, businessAddr); !errors.Is(err, ledger.ErrInvalidKYCStatus) {
		t.Errorf("double review error = %v, want %v", err, ledger.ErrInvalidKYCStatus)
	}
}

func TestKYCRejectionAndResubmit(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)

	if err := tl.SubmitKYCApplication(ctx, businessAddr, "thin file"); err != nil {
		t.Fatal(err)
	}
	if err := tl.RejectBusiness(ctx, adminAddr, businessAddr, "missing registration"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	v, err := tl.BusinessVerification(ctx, businessAddr)
	if err != nil {
		t.Fatal(err)
	}
	if v.Status != verification.StatusRejected {
		t.Fatalf("status = %v, want %v", v.Status, verification.StatusRejected)
	}
	if v.RejectionReason != "missing registration" {
		t.Errorf("reason = %q", v.RejectionReason)
	}

	rejected, err := tl.ListRejectedBusinesses(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]types.Address{businessAddr}, rejected); diff != "" {
		t.Fatalf("rejected mismatch (-want +got):\n%s", diff)
	}

	// Rejection reopens the application path.
	tl.clock.advance(24 * time.Hour)
	if err := tl.SubmitKYCApplication(ctx, businessAddr, "full file"); err != nil {
		t.Fatalf("resubmit: %v", err)
	}

	v, err = tl.BusinessVerification(ctx, businessAddr)
	if err != nil {
		t.Fatal(err)
	}
	if v.Status != verification.StatusPending {
		t.Fatalf("status = %v, want %v", v.Status, verification.StatusPending)
	}
	if v.KYCData != "full file" || v.RejectionReason != "" || v.ReviewedAt != nil {
		t.Errorf("resubmitted record not reset: %+v", v)
	}

	if err := tl.VerifyBusiness(ctx, adminAddr, businessAddr); err != nil {
		t.Fatalf("verify resubmission: %v", err)
	}
	verified, err := tl.ListVerifiedBusinesses(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]types.Address{businessAddr}, verified); diff != "" {
		t.Fatalf("verified mismatch (-want +got):\n%s", diff)
	}
}

func TestReviewUnknownBusiness(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)

	err := tl.VerifyBusiness(ctx, adminAddr, types.Address("acct_nobody"))
	if !ledger.IsNotFound(err) {
		t.Errorf("error = %v, want a not-found error", err)
	}
}
