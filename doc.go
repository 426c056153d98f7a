// Package ledger provides a composable invoice financing engine for Go
// applications.
//
// Ledger is designed as a library, not a service. Import it directly into
// your Go application and wire it to your storage and payment layers. It
// provides:
//
//   - The full invoice lifecycle: upload, verification, funding, settlement
//   - A bid book where investors compete to fund verified invoices
//   - Escrow that holds investor funds until release or refund
//   - Settlement arithmetic that splits proceeds between investor and platform
//   - An append-only audit trail with per-invoice, per-operation, per-actor,
//     and per-day indices
//   - Invoice snapshots with retention, validation, and restore
//   - Business KYC gating who may upload invoices
//
// # Quick Start
//
// Create a ledger instance with your preferred store:
//
//	import (
//	    "github.com/fundrail/ledger"
//	    "github.com/fundrail/ledger/store/memory"
//	)
//
//	l := ledger.New(memory.New())
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
//	// Bootstrap the admin, verify a business, and take an invoice through
//	// its lifecycle.
//	_ = l.SetAdmin(ctx, admin, admin)
//	_ = l.SubmitKYCApplication(ctx, business, kycBlob)
//	_ = l.VerifyBusiness(ctx, admin, business)
//
//	inv, _ := l.UploadInvoice(ctx, business, ledger.USD(100_000), due, "Q3 receivables")
//	_ = l.VerifyInvoice(ctx, admin, inv.ID)
//
//	b, _ := l.PlaceBid(ctx, investor, inv.ID, ledger.USD(95_000), ledger.USD(100_000))
//	_ = l.AcceptBid(ctx, business, inv.ID, b.ID)
//	_ = l.ReleaseEscrow(ctx, business, inv.ID)
//
//	settlement, _ := l.SettleInvoice(ctx, inv.ID, ledger.USD(100_000), platform, 500)
//
// # Core Concepts
//
// Invoices move along exactly one path: Pending, Verified, Funded, Paid,
// with a single escape edge from Funded to Defaulted. Bids may only be
// placed on Verified invoices, and accepting a bid creates the escrow and
// the investment record in the same operation.
//
// Money is integer minor units with an explicit currency; the settlement
// split uses basis-point arithmetic with integer truncation.
//
// Every state-changing operation appends to the audit trail synchronously.
// Plugins observe the same events asynchronously and can never fail or
// block an operation.
//
// Stores are pluggable: store/memory for tests and embedding, store/mongo
// and store/mysql for persistence.
package ledger
