package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fundrail/ledger"
	"github.com/fundrail/ledger/escrow"
	"github.com/fundrail/ledger/types"
)

func TestReleaseEscrow(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)
	tl.verifiedBusiness(t, businessAddr)

	inv, _ := tl.fundedInvoice(t, types.USD(500_00), types.USD(400_00), types.USD(480_00))

	if err := tl.ReleaseEscrow(ctx, businessAddr, inv.ID); err != nil {
		t.Fatalf("release: %v", err)
	}

	want := []transferRecord{
		{from: investorAddr, to: businessAddr, amount: types.USD(400_00)},
	}
	if diff := cmp.Diff(want, tl.bank.transfers, cmp.AllowUnexported(transferRecord{})); diff != "" {
		t.Fatalf("transfers mismatch (-want +got):\n%s", diff)
	}

	status, err := tl.EscrowStatus(ctx, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if status != escrow.StatusReleased {
		t.Fatalf("status = %v, want %v", status, escrow.StatusReleased)
	}

	// Released escrow is terminal for both paths.
	if err := tl.ReleaseEscrow(ctx, businessAddr, inv.ID); !errors.Is(err, ledger.ErrEscrowTerminal) {
		t.Errorf("second release error = %v, want %v", err, ledger.ErrEscrowTerminal)
	}
	if err := tl.RefundEscrow(ctx, investorAddr, inv.ID); !errors.Is(err, ledger.ErrEscrowTerminal) {
		t.Errorf("refund after release error = %v, want %v", err, ledger.ErrEscrowTerminal)
	}
}

func TestRefundEscrow(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)
	tl.verifiedBusiness(t, businessAddr)

	inv, _ := tl.fundedInvoice(t, types.USD(500_00), types.USD(400_00), types.USD(480_00))

	if err := tl.RefundEscrow(ctx, investorAddr, inv.ID); err != nil {
		t.Fatalf("refund: %v", err)
	}

	want := []transferRecord{
		{from: businessAddr, to: investorAddr, amount: types.USD(400_00)},
	}
	if diff := cmp.Diff(want, tl.bank.transfers, cmp.AllowUnexported(transferRecord{})); diff != "" {
		t.Fatalf("transfers mismatch (-want +got):\n%s", diff)
	}

	status, err := tl.EscrowStatus(ctx, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if status != escrow.StatusRefunded {
		t.Fatalf("status = %v, want %v", status, escrow.StatusRefunded)
	}
}

func TestEscrowTransferFailureLeavesHeld(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)
	tl.verifiedBusiness(t, businessAddr)

	inv, _ := tl.fundedInvoice(t, types.USD(500_00), types.USD(400_00), types.USD(480_00))

	tl.bank.failNext = errors.New("network partition")
	if err := tl.ReleaseEscrow(ctx, businessAddr, inv.ID); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("error = %v, want %v", err, ledger.ErrInsufficientFunds)
	}

	status, err := tl.EscrowStatus(ctx, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if status != escrow.StatusHeld {
		t.Fatalf("status after failed transfer = %v, want %v", status, escrow.StatusHeld)
	}

	// The hold survives, so a retry succeeds.
	if err := tl.ReleaseEscrow(ctx, businessAddr, inv.ID); err != nil {
		t.Fatalf("retry release: %v", err)
	}
}

func TestEscrowDetails(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)
	tl.verifiedBusiness(t, businessAddr)

	inv, b := tl.fundedInvoice(t, types.USD(500_00), types.USD(400_00), types.USD(480_00))

	esc, err := tl.EscrowDetails(ctx, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !esc.InvoiceID.Equal(inv.ID) {
		t.Errorf("invoice = %v, want %v", esc.InvoiceID, inv.ID)
	}
	if esc.Investor != investorAddr || esc.Business != businessAddr {
		t.Errorf("parties = %v/%v, want %v/%v", esc.Investor, esc.Business, investorAddr, businessAddr)
	}
	if !esc.Amount.Equal(b.Amount) {
		t.Errorf("amount = %v, want %v", esc.Amount, b.Amount)
	}

	// No escrow exists before funding.
	fresh := tl.uploadVerified(t, types.USD(100_00))
	if _, err := tl.EscrowDetails(ctx, fresh.ID); !ledger.IsNotFound(err) {
		t.Errorf("error = %v, want a not-found error", err)
	}
}
