package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/fundrail/ledger"
	"github.com/fundrail/ledger/audit"
	"github.com/fundrail/ledger/bid"
	"github.com/fundrail/ledger/escrow"
	"github.com/fundrail/ledger/invoice"
	"github.com/fundrail/ledger/investment"
	"github.com/fundrail/ledger/store/memory"
	"github.com/fundrail/ledger/types"
)

var (
	adminAddr    = types.Address("acct_admin")
	businessAddr = types.Address("acct_business")
	investorAddr = types.Address("acct_investor")
	platformAddr = types.Address("acct_platform")
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	now    time.Time
	height uint64
}

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Height() uint64 { return c.height }

func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
	c.height++
}

// transferRecord captures one funds movement for assertions.
type transferRecord struct {
	from, to types.Address
	amount   types.Money
}

// fakeBank records transfers and can be primed to fail the next one.
type fakeBank struct {
	transfers []transferRecord
	failNext  error
}

func (b *fakeBank) transfer(_ context.Context, from, to types.Address, amount types.Money) error {
	if b.failNext != nil {
		err := b.failNext
		b.failNext = nil
		return err
	}
	b.transfers = append(b.transfers, transferRecord{from: from, to: to, amount: amount})
	return nil
}

// testLedger bundles a started engine with its test doubles.
type testLedger struct {
	*ledger.Ledger
	store *memory.Store
	clock *fakeClock
	bank  *fakeBank
}

func newTestLedger(t *testing.T, opts ...ledger.Option) *testLedger {
	t.Helper()

	mem := memory.New()
	clk := &fakeClock{
		now:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		height: 1000,
	}
	bank := &fakeBank{}

	opts = append([]ledger.Option{
		ledger.WithClock(clk),
		ledger.WithTransfer(bank.transfer),
	}, opts...)

	l := ledger.New(mem, opts...)
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = l.Stop() })

	return &testLedger{Ledger: l, store: mem, clock: clk, bank: bank}
}

// setupAdmin bootstraps the admin address.
func (tl *testLedger) setupAdmin(t *testing.T) {
	t.Helper()
	if err := tl.SetAdmin(context.Background(), adminAddr, adminAddr); err != nil {
		t.Fatalf("set admin: %v", err)
	}
}

// verifiedBusiness walks an address through KYC approval.
func (tl *testLedger) verifiedBusiness(t *testing.T, business types.Address) {
	t.Helper()
	ctx := context.Background()
	if err := tl.SubmitKYCApplication(ctx, business, "registration docs"); err != nil {
		t.Fatalf("submit kyc: %v", err)
	}
	if err := tl.VerifyBusiness(ctx, adminAddr, business); err != nil {
		t.Fatalf("verify business: %v", err)
	}
}

// uploadVerified creates an invoice and verifies it, returning the fresh record.
func (tl *testLedger) uploadVerified(t *testing.T, amount types.Money) *invoice.Invoice {
	t.Helper()
	ctx := context.Background()

	inv, err := tl.UploadInvoice(ctx, businessAddr, amount,
		tl.clock.Now().AddDate(0, 1, 0), "Q2 receivables")
	if err != nil {
		t.Fatalf("upload invoice: %v", err)
	}
	if err := tl.VerifyInvoice(ctx, adminAddr, inv.ID); err != nil {
		t.Fatalf("verify invoice: %v", err)
	}

	inv, err = tl.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	return inv
}

// fundedInvoice runs the happy path through bid acceptance.
func (tl *testLedger) fundedInvoice(t *testing.T, amount, bidAmount, expectedReturn types.Money) (*invoice.Invoice, *bid.Bid) {
	t.Helper()
	ctx := context.Background()

	inv := tl.uploadVerified(t, amount)
	b, err := tl.PlaceBid(ctx, investorAddr, inv.ID, bidAmount, expectedReturn)
	if err != nil {
		t.Fatalf("place bid: %v", err)
	}
	if err := tl.AcceptBid(ctx, businessAddr, inv.ID, b.ID); err != nil {
		t.Fatalf("accept bid: %v", err)
	}

	inv, err = tl.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	b, err = tl.GetBid(ctx, b.ID)
	if err != nil {
		t.Fatalf("get bid: %v", err)
	}
	return inv, b
}

func TestFullLifecycle(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)
	tl.verifiedBusiness(t, businessAddr)

	// Upload and verify.
	inv := tl.uploadVerified(t, types.USD(1200_00))
	if inv.Status != invoice.StatusVerified {
		t.Fatalf("status = %v, want %v", inv.Status, invoice.StatusVerified)
	}

	// Fund through a bid.
	b, err := tl.PlaceBid(ctx, investorAddr, inv.ID, types.USD(1000_00), types.USD(1180_00))
	if err != nil {
		t.Fatalf("place bid: %v", err)
	}
	if err := tl.AcceptBid(ctx, businessAddr, inv.ID, b.ID); err != nil {
		t.Fatalf("accept bid: %v", err)
	}

	inv, err = tl.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if inv.Status != invoice.StatusFunded {
		t.Fatalf("status = %v, want %v", inv.Status, invoice.StatusFunded)
	}
	if inv.Investor != investorAddr {
		t.Errorf("investor = %v, want %v", inv.Investor, investorAddr)
	}
	if !inv.FundedAmount.Equal(types.USD(1000_00)) {
		t.Errorf("funded amount = %v", inv.FundedAmount)
	}

	// Acceptance holds funds in escrow without moving them.
	if len(tl.bank.transfers) != 0 {
		t.Fatalf("transfers after accept = %d, want 0", len(tl.bank.transfers))
	}
	status, err := tl.EscrowStatus(ctx, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if status != escrow.StatusHeld {
		t.Fatalf("escrow status = %v, want %v", status, escrow.StatusHeld)
	}

	// Release pays the business.
	if err := tl.ReleaseEscrow(ctx, businessAddr, inv.ID); err != nil {
		t.Fatalf("release escrow: %v", err)
	}
	want := []transferRecord{
		{from: investorAddr, to: businessAddr, amount: types.USD(1000_00)},
	}
	if diff := cmp.Diff(want, tl.bank.transfers, cmp.AllowUnexported(transferRecord{})); diff != "" {
		t.Fatalf("transfers mismatch (-want +got):\n%s", diff)
	}

	// Settle: profit 200.00 at 1000 bps fee.
	tl.clock.advance(45 * 24 * time.Hour)
	stl, err := tl.SettleInvoice(ctx, inv.ID, types.USD(1200_00), platformAddr, 1000)
	if err != nil {
		t.Fatalf("settle invoice: %v", err)
	}
	if !stl.InvestorReturn.Equal(types.USD(1180_00)) {
		t.Errorf("investor return = %v, want 1180.00", stl.InvestorReturn)
	}
	if !stl.PlatformFee.Equal(types.USD(20_00)) {
		t.Errorf("platform fee = %v, want 20.00", stl.PlatformFee)
	}

	inv, err = tl.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if inv.Status != invoice.StatusPaid {
		t.Fatalf("status = %v, want %v", inv.Status, invoice.StatusPaid)
	}
	if inv.SettledAt == nil || !inv.SettledAt.Equal(tl.clock.Now()) {
		t.Errorf("settled at = %v, want %v", inv.SettledAt, tl.clock.Now())
	}

	ivt, err := tl.store.GetInvestmentByInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ivt.Status != investment.StatusCompleted {
		t.Errorf("investment status = %v, want %v", ivt.Status, investment.StatusCompleted)
	}

	// Rate the settled invoice.
	if err := tl.AddInvoiceRating(ctx, investorAddr, inv.ID, 5, "paid on time"); err != nil {
		t.Fatalf("add rating: %v", err)
	}

	// The audit trail records every step in order.
	trail, err := tl.InvoiceAuditTrail(ctx, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	var ops []audit.Operation
	for _, e := range trail {
		ops = append(ops, e.Operation)
	}
	wantOps := []audit.Operation{
		audit.OpInvoiceUploaded,
		audit.OpInvoiceVerified,
		audit.OpInvoiceStatusChanged,
		audit.OpBidPlaced,
		audit.OpBidAccepted,
		audit.OpEscrowCreated,
		audit.OpInvoiceFunded,
		audit.OpInvoiceStatusChanged,
		audit.OpEscrowReleased,
		audit.OpPaymentProcessed,
		audit.OpInvoicePaid,
		audit.OpInvoiceStatusChanged,
		audit.OpSettlementCompleted,
		audit.OpInvoiceRated,
	}
	if diff := cmp.Diff(wantOps, ops); diff != "" {
		t.Errorf("audit trail mismatch (-want +got):\n%s", diff)
	}
}

func TestUploadInvoiceValidation(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)
	tl.verifiedBusiness(t, businessAddr)

	dueDate := tl.clock.Now().AddDate(0, 1, 0)

	tests := []struct {
		name        string
		business    types.Address
		amount      types.Money
		dueDate     time.Time
		description string
		wantErr     error
	}{
		{"unverified business", types.Address("acct_stranger"), types.USD(100_00), dueDate, "goods", ledger.ErrBusinessNotVerified},
		{"zero amount", businessAddr, types.USD(0), dueDate, "goods", ledger.ErrInvalidAmount},
		{"negative amount", businessAddr, types.USD(-5_00), dueDate, "goods", ledger.ErrInvalidAmount},
		{"past due date", businessAddr, types.USD(100_00), tl.clock.Now().AddDate(0, -1, 0), "goods", ledger.ErrInvalidDueDate},
		{"empty description", businessAddr, types.USD(100_00), dueDate, "", ledger.ErrInvalidDescription},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tl.UploadInvoice(ctx, tt.business, tt.amount, tt.dueDate, tt.description)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("UploadInvoice() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestVerifyInvoiceTransitions(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)
	tl.verifiedBusiness(t, businessAddr)

	inv, err := tl.UploadInvoice(ctx, businessAddr, types.USD(500_00),
		tl.clock.Now().AddDate(0, 1, 0), "parts order")
	if err != nil {
		t.Fatal(err)
	}

	// Only the admin may verify.
	if err := tl.VerifyInvoice(ctx, businessAddr, inv.ID); !errors.Is(err, ledger.ErrNotAdmin) {
		t.Errorf("non-admin verify error = %v, want %v", err, ledger.ErrNotAdmin)
	}

	if err := tl.VerifyInvoice(ctx, adminAddr, inv.ID); err != nil {
		t.Fatalf("verify: %v", err)
	}

	// Verifying twice is a status conflict.
	if err := tl.VerifyInvoice(ctx, adminAddr, inv.ID); !errors.Is(err, ledger.ErrInvalidStatus) {
		t.Errorf("double verify error = %v, want %v", err, ledger.ErrInvalidStatus)
	}
}

func TestHandleDefault(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)
	tl.verifiedBusiness(t, businessAddr)

	inv, _ := tl.fundedInvoice(t, types.USD(800_00), types.USD(700_00), types.USD(780_00))

	// Only the admin may write off an invoice.
	if err := tl.HandleDefault(ctx, businessAddr, inv.ID); !errors.Is(err, ledger.ErrNotAdmin) {
		t.Errorf("non-admin default error = %v, want %v", err, ledger.ErrNotAdmin)
	}

	if err := tl.HandleDefault(ctx, adminAddr, inv.ID); err != nil {
		t.Fatalf("handle default: %v", err)
	}

	inv, err := tl.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if inv.Status != invoice.StatusDefaulted {
		t.Fatalf("status = %v, want %v", inv.Status, invoice.StatusDefaulted)
	}

	ivt, err := tl.store.GetInvestmentByInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ivt.Status != investment.StatusWithdrawn {
		t.Errorf("investment status = %v, want %v", ivt.Status, investment.StatusWithdrawn)
	}

	// A defaulted invoice cannot default again.
	if err := tl.HandleDefault(ctx, adminAddr, inv.ID); !errors.Is(err, ledger.ErrInvalidStatus) {
		t.Errorf("double default error = %v, want %v", err, ledger.ErrInvalidStatus)
	}

	// Nor can it settle.
	if _, err := tl.SettleInvoice(ctx, inv.ID, types.USD(800_00), platformAddr, 500); !errors.Is(err, ledger.ErrInvalidStatus) {
		t.Errorf("settle after default error = %v, want %v", err, ledger.ErrInvalidStatus)
	}
}

func TestHandleDefaultRequiresFunded(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)
	tl.verifiedBusiness(t, businessAddr)

	inv := tl.uploadVerified(t, types.USD(300_00))
	if err := tl.HandleDefault(ctx, adminAddr, inv.ID); !errors.Is(err, ledger.ErrInvalidStatus) {
		t.Errorf("default on verified invoice error = %v, want %v", err, ledger.ErrInvalidStatus)
	}
}

func TestListAvailableInvoices(t *testing.T) {
	ctx := context.Background()
	tl := newTestLedger(t)
	tl.setupAdmin(t)
	tl.verifiedBusiness(t, businessAddr)

	verified := tl.uploadVerified(t, types.USD(100_00))
	if _, err := tl.UploadInvoice(ctx, businessAddr, types.USD(200_00),
		tl.clock.Now().AddDate(0, 2, 0), "pending one"); err != nil {
		t.Fatal(err)
	}

	available, err := tl.ListAvailableInvoices(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(available) != 1 || !available[0].ID.Equal(verified.ID) {
		t.Fatalf("available = %v, want just %v", available, verified.ID)
	}

	total, err := tl.TotalInvoiceCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Errorf("total invoices = %d, want 2", total)
	}
}
