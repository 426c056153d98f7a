package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fundrail/ledger"
	"github.com/fundrail/ledger/investment"
	"github.com/fundrail/ledger/invoice"
	"github.com/fundrail/ledger/types"
)

func TestCalculateProfit(t *testing.T) {
	tests := []struct {
		name       string
		investment types.Money
		payment    types.Money
		feeBps     int64
		wantReturn types.Money
		wantFee    types.Money
	}{
		{
			name:       "positive profit",
			investment: types.USD(1000_00),
			payment:    types.USD(1200_00),
			feeBps:     1000,
			wantReturn: types.USD(1180_00),
			wantFee:    types.USD(20_00),
		},
		{
			name:       "zero profit",
			investment: types.USD(1000_00),
			payment:    types.USD(1000_00),
			feeBps:     1000,
			wantReturn: types.USD(1000_00),
			wantFee:    types.USD(0),
		},
		{
			name:       "loss shares the fee",
			investment: types.USD(1000_00),
			payment:    types.USD(900_00),
			feeBps:     1000,
			wantReturn: types.USD(910_00),
			wantFee:    types.USD(-10_00),
		},
		{
			name:       "fee truncates toward zero",
			investment: types.USD(1),
			payment:    types.USD(10_00),
			feeBps:     25,
			wantReturn: types.USD(9_98),
			wantFee:    types.USD(2),
		},
		{
			name:       "negative fee truncates toward zero",
			investment: types.USD(10_00),
			payment:    types.USD(1),
			feeBps:     25,
			wantReturn: types.USD(3),
			wantFee:    types.USD(-2),
		},
		{
			name:       "zero fee bps",
			investment: types.USD(500_00),
			payment:    types.USD(600_00),
			feeBps:     0,
			wantReturn: types.USD(600_00),
			wantFee:    types.USD(0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotReturn, gotFee := ledger.CalculateProfit(tt.investment, tt.payment, tt.feeBps)
			if !gotReturn.Equal(tt.wantReturn) {
				t.Errorf("investor return = %v, want %v", gotReturn, tt.wantReturn)
			}
			if !gotFee.Equal(tt.wantFee) {
				t.Errorf("platform fee = %v, want %v", gotFee, tt.wantFee)
			}
			if !gotReturn.Add(gotFee).Equal(tt.payment) {
				t.Errorf("return + fee = %v, want full payment %v", gotReturn.Add(gotFee), tt.payment)
			}
		})
	}
}

func TestSettleInvoiceTransfers(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)
	tl.verifiedBusiness(t, businessAddr)

	inv, _ := tl.fundedInvoice(t, types.USD(1200_00), types.USD(1000_00), types.USD(1180_00))

	stl, err := tl.SettleInvoice(ctx, inv.ID, types.USD(1200_00), platformAddr, 1000)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	// The investor is paid before the platform.
	want := []transferRecord{
		{from: businessAddr, to: investorAddr, amount: types.USD(1180_00)},
		{from: businessAddr, to: platformAddr, amount: types.USD(20_00)},
	}
	if diff := cmp.Diff(want, tl.bank.transfers, cmp.AllowUnexported(transferRecord{})); diff != "" {
		t.Fatalf("transfers mismatch (-want +got):\n%s", diff)
	}

	if !stl.Payment.Equal(types.USD(1200_00)) {
		t.Errorf("payment = %v, want 1200.00", stl.Payment)
	}
	if !stl.InvoiceID.Equal(inv.ID) {
		t.Errorf("settlement invoice = %v, want %v", stl.InvoiceID, inv.ID)
	}
}

func TestSettleInvoicePreconditions(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)
	tl.verifiedBusiness(t, businessAddr)

	t.Run("not funded", func(t *testing.T) {
		inv := tl.uploadVerified(t, types.USD(500_00))
		_, err := tl.SettleInvoice(ctx, inv.ID, types.USD(500_00), platformAddr, 500)
		if !errors.Is(err, ledger.ErrInvalidStatus) {
			t.Errorf("error = %v, want %v", err, ledger.ErrInvalidStatus)
		}
	})

	t.Run("currency mismatch", func(t *testing.T) {
		inv, _ := tl.fundedInvoice(t, types.USD(500_00), types.USD(400_00), types.USD(480_00))
		_, err := tl.SettleInvoice(ctx, inv.ID, types.EUR(500_00), platformAddr, 500)
		if !errors.Is(err, ledger.ErrCurrencyMismatch) {
			t.Errorf("error = %v, want %v", err, ledger.ErrCurrencyMismatch)
		}
	})

	t.Run("already settled", func(t *testing.T) {
		inv, _ := tl.fundedInvoice(t, types.USD(500_00), types.USD(400_00), types.USD(480_00))
		if _, err := tl.SettleInvoice(ctx, inv.ID, types.USD(500_00), platformAddr, 500); err != nil {
			t.Fatal(err)
		}
		_, err := tl.SettleInvoice(ctx, inv.ID, types.USD(500_00), platformAddr, 500)
		if !errors.Is(err, ledger.ErrInvalidStatus) {
			t.Errorf("error = %v, want %v", err, ledger.ErrInvalidStatus)
		}
	})
}

func TestSettleInvoiceTransferFailureAborts(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)
	tl.verifiedBusiness(t, businessAddr)

	inv, _ := tl.fundedInvoice(t, types.USD(500_00), types.USD(400_00), types.USD(480_00))

	tl.bank.failNext = errors.New("account frozen")
	_, err := tl.SettleInvoice(ctx, inv.ID, types.USD(500_00), platformAddr, 500)
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("error = %v, want %v", err, ledger.ErrInsufficientFunds)
	}

	// No record changed on the failed path.
	inv, err = tl.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if inv.Status != invoice.StatusFunded {
		t.Errorf("status = %v, want %v", inv.Status, invoice.StatusFunded)
	}
	ivt, err := tl.store.GetInvestmentByInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ivt.Status != investment.StatusActive {
		t.Errorf("investment status = %v, want %v", ivt.Status, investment.StatusActive)
	}

	// The next attempt succeeds.
	if _, err := tl.SettleInvoice(ctx, inv.ID, types.USD(500_00), platformAddr, 500); err != nil {
		t.Fatalf("retry settle: %v", err)
	}
}
