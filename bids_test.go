package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fundrail/ledger"
	"github.com/fundrail/ledger/bid"
	"github.com/fundrail/ledger/types"
)

func TestPlaceBidPreconditions(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)
	tl.verifiedBusiness(t, businessAddr)

	pending, err := tl.UploadInvoice(ctx, businessAddr, types.USD(500_00),
		tl.clock.Now().AddDate(0, 1, 0), "unverified stock")
	if err != nil {
		t.Fatal(err)
	}
	verified := tl.uploadVerified(t, types.USD(500_00))

	t.Run("pending invoice", func(t *testing.T) {
		_, err := tl.PlaceBid(ctx, investorAddr, pending.ID, types.USD(400_00), types.USD(480_00))
		if !errors.Is(err, ledger.ErrInvalidStatus) {
			t.Errorf("error = %v, want %v", err, ledger.ErrInvalidStatus)
		}
	})

	t.Run("zero amount", func(t *testing.T) {
		_, err := tl.PlaceBid(ctx, investorAddr, verified.ID, types.USD(0), types.USD(0))
		if !errors.Is(err, ledger.ErrInvalidAmount) {
			t.Errorf("error = %v, want %v", err, ledger.ErrInvalidAmount)
		}
	})

	t.Run("currency mismatch", func(t *testing.T) {
		_, err := tl.PlaceBid(ctx, investorAddr, verified.ID, types.EUR(400_00), types.EUR(480_00))
		if !errors.Is(err, ledger.ErrCurrencyMismatch) {
			t.Errorf("error = %v, want %v", err, ledger.ErrCurrencyMismatch)
		}
	})

	t.Run("verified invoice accepts the bid", func(t *testing.T) {
		_, err := tl.PlaceBid(ctx, investorAddr, verified.ID, types.USD(400_00), types.USD(480_00))
		if err != nil {
			t.Errorf("place bid on verified invoice: %v", err)
		}
	})
}

func TestAcceptBidPreconditions(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)
	tl.verifiedBusiness(t, businessAddr)

	inv := tl.uploadVerified(t, types.USD(500_00))
	other := tl.uploadVerified(t, types.USD(700_00))

	b, err := tl.PlaceBid(ctx, investorAddr, inv.ID, types.USD(400_00), types.USD(480_00))
	if err != nil {
		t.Fatal(err)
	}

	t.Run("wrong business", func(t *testing.T) {
		err := tl.AcceptBid(ctx, investorAddr, inv.ID, b.ID)
		if !errors.Is(err, ledger.ErrUnauthorized) {
			t.Errorf("error = %v, want %v", err, ledger.ErrUnauthorized)
		}
	})

	t.Run("bid from another invoice", func(t *testing.T) {
		err := tl.AcceptBid(ctx, businessAddr, other.ID, b.ID)
		if !errors.Is(err, ledger.ErrBidMismatch) {
			t.Errorf("error = %v, want %v", err, ledger.ErrBidMismatch)
		}
	})

	t.Run("withdrawn bid", func(t *testing.T) {
		withdrawn, err := tl.PlaceBid(ctx, investorAddr, other.ID, types.USD(600_00), types.USD(690_00))
		if err != nil {
			t.Fatal(err)
		}
		if err := tl.WithdrawBid(ctx, investorAddr, withdrawn.ID); err != nil {
			t.Fatal(err)
		}
		if err := tl.AcceptBid(ctx, businessAddr, other.ID, withdrawn.ID); !errors.Is(err, ledger.ErrInvalidStatus) {
			t.Errorf("error = %v, want %v", err, ledger.ErrInvalidStatus)
		}
	})

	t.Run("funded invoice takes no second bid", func(t *testing.T) {
		second, err := tl.PlaceBid(ctx, types.Address("acct_investor2"), inv.ID, types.USD(450_00), types.USD(490_00))
		if err != nil {
			t.Fatal(err)
		}
		if err := tl.AcceptBid(ctx, businessAddr, inv.ID, b.ID); err != nil {
			t.Fatalf("accept first bid: %v", err)
		}
		if err := tl.AcceptBid(ctx, businessAddr, inv.ID, second.ID); !errors.Is(err, ledger.ErrInvalidStatus) {
			t.Errorf("error = %v, want %v", err, ledger.ErrInvalidStatus)
		}
	})
}

func TestWithdrawBid(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)
	tl.verifiedBusiness(t, businessAddr)

	inv := tl.uploadVerified(t, types.USD(500_00))
	b, err := tl.PlaceBid(ctx, investorAddr, inv.ID, types.USD(400_00), types.USD(480_00))
	if err != nil {
		t.Fatal(err)
	}

	// Only the bidder may withdraw.
	if err := tl.WithdrawBid(ctx, businessAddr, b.ID); !errors.Is(err, ledger.ErrNotBidder) {
		t.Errorf("error = %v, want %v", err, ledger.ErrNotBidder)
	}

	if err := tl.WithdrawBid(ctx, investorAddr, b.ID); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	b, err = tl.GetBid(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != bid.StatusWithdrawn {
		t.Fatalf("status = %v, want %v", b.Status, bid.StatusWithdrawn)
	}

	// A withdrawn bid cannot be withdrawn again.
	if err := tl.WithdrawBid(ctx, investorAddr, b.ID); !errors.Is(err, ledger.ErrOperationNotAllowed) {
		t.Errorf("error = %v, want %v", err, ledger.ErrOperationNotAllowed)
	}
}

func TestListBidsByInvoice(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)
	tl.verifiedBusiness(t, businessAddr)

	inv := tl.uploadVerified(t, types.USD(500_00))

	first, err := tl.PlaceBid(ctx, investorAddr, inv.ID, types.USD(400_00), types.USD(480_00))
	if err != nil {
		t.Fatal(err)
	}
	tl.clock.advance(time.Hour)
	second, err := tl.PlaceBid(ctx, types.Address("acct_investor2"), inv.ID, types.USD(450_00), types.USD(490_00))
	if err != nil {
		t.Fatal(err)
	}

	bids, err := tl.ListBidsByInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(bids) != 2 {
		t.Fatalf("len(bids) = %d, want 2", len(bids))
	}
	if !bids[0].ID.Equal(first.ID) || !bids[1].ID.Equal(second.ID) {
		t.Errorf("bids out of placement order: %v, %v", bids[0].ID, bids[1].ID)
	}
}
