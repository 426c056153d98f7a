package mongo

import (
	"time"

	"github.com/fundrail/ledger/audit"
	"github.com/fundrail/ledger/backup"
	"github.com/fundrail/ledger/bid"
	"github.com/fundrail/ledger/escrow"
	"github.com/fundrail/ledger/id"
	"github.com/fundrail/ledger/investment"
	"github.com/fundrail/ledger/invoice"
	"github.com/fundrail/ledger/types"
	"github.com/fundrail/ledger/verification"
)

// ==================== Invoice models ====================

type invoiceModel struct {
	ID                   string        `bson:"_id"`
	Business             string        `bson:"business"`
	AmountCents          int64         `bson:"amount_cents"`
	AmountCurrency       string        `bson:"amount_currency"`
	DueDate              time.Time     `bson:"due_date"`
	Description          string        `bson:"description"`
	Status               string        `bson:"status"`
	FundedAmountCents    int64         `bson:"funded_amount_cents"`
	FundedAmountCurrency string        `bson:"funded_amount_currency"`
	FundedAt             *time.Time    `bson:"funded_at,omitempty"`
	Investor             string        `bson:"investor,omitempty"`
	SettledAt            *time.Time    `bson:"settled_at,omitempty"`
	Ratings              []ratingModel `bson:"ratings,omitempty"`
	AverageRating        int           `bson:"average_rating"`
	TotalRatings         int           `bson:"total_ratings"`
	CreatedAt            time.Time     `bson:"created_at"`
	UpdatedAt            time.Time     `bson:"updated_at"`
}

type ratingModel struct {
	Rater    string    `bson:"rater"`
	Value    int       `bson:"value"`
	Feedback string    `bson:"feedback,omitempty"`
	RatedAt  time.Time `bson:"rated_at"`
}

func toInvoiceModel(inv *invoice.Invoice) *invoiceModel {
	ratings := make([]ratingModel, len(inv.Ratings))
	for i, r := range inv.Ratings {
		ratings[i] = ratingModel{
			Rater:    r.Rater.String(),
			Value:    r.Value,
			Feedback: r.Feedback,
			RatedAt:  r.RatedAt,
		}
	}

	return &invoiceModel{
		ID:                   inv.ID.String(),
		Business:             inv.Business.String(),
		AmountCents:          inv.Amount.Amount,
		AmountCurrency:       inv.Amount.Currency,
		DueDate:              inv.DueDate,
		Description:          inv.Description,
		Status:               string(inv.Status),
		FundedAmountCents:    inv.FundedAmount.Amount,
		FundedAmountCurrency: inv.FundedAmount.Currency,
		FundedAt:             inv.FundedAt,
		Investor:             inv.Investor.String(),
		SettledAt:            inv.SettledAt,
		Ratings:              ratings,
		AverageRating:        inv.AverageRating,
		TotalRatings:         inv.TotalRatings,
		CreatedAt:            inv.CreatedAt,
		UpdatedAt:            inv.UpdatedAt,
	}
}

func fromInvoiceModel(m *invoiceModel) (*invoice.Invoice, error) {
	invID, err := id.ParseKind(m.ID, id.KindInvoice)
	if err != nil {
		return nil, err
	}

	ratings := make([]invoice.Rating, len(m.Ratings))
	for i, r := range m.Ratings {
		ratings[i] = invoice.Rating{
			Rater:    types.Address(r.Rater),
			Value:    r.Value,
			Feedback: r.Feedback,
			RatedAt:  r.RatedAt,
		}
	}
	if len(ratings) == 0 {
		ratings = nil
	}

	return &invoice.Invoice{
		ID:            invID,
		Business:      types.Address(m.Business),
		Amount:        types.New(m.AmountCents, m.AmountCurrency),
		DueDate:       m.DueDate,
		Description:   m.Description,
		Status:        invoice.Status(m.Status),
		FundedAmount:  types.New(m.FundedAmountCents, m.FundedAmountCurrency),
		FundedAt:      m.FundedAt,
		Investor:      types.Address(m.Investor),
		SettledAt:     m.SettledAt,
		Ratings:       ratings,
		AverageRating: m.AverageRating,
		TotalRatings:  m.TotalRatings,
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
	}, nil
}

// ==================== Bid models ====================

type bidModel struct {
	ID                     string    `bson:"_id"`
	InvoiceID              string    `bson:"invoice_id"`
	Investor               string    `bson:"investor"`
	AmountCents            int64     `bson:"amount_cents"`
	AmountCurrency         string    `bson:"amount_currency"`
	ExpectedReturnCents    int64     `bson:"expected_return_cents"`
	ExpectedReturnCurrency string    `bson:"expected_return_currency"`
	PlacedAt               time.Time `bson:"placed_at"`
	Status                 string    `bson:"status"`
}

func toBidModel(b *bid.Bid) *bidModel {
	return &bidModel{
		ID:                     b.ID.String(),
		InvoiceID:              b.InvoiceID.String(),
		Investor:               b.Investor.String(),
		AmountCents:            b.Amount.Amount,
		AmountCurrency:         b.Amount.Currency,
		ExpectedReturnCents:    b.ExpectedReturn.Amount,
		ExpectedReturnCurrency: b.ExpectedReturn.Currency,
		PlacedAt:               b.PlacedAt,
		Status:                 string(b.Status),
	}
}

func fromBidModel(m *bidModel) (*bid.Bid, error) {
	bidID, err := id.ParseKind(m.ID, id.KindBid)
	if err != nil {
		return nil, err
	}
	invID, err := id.ParseKind(m.InvoiceID, id.KindInvoice)
	if err != nil {
		return nil, err
	}

	return &bid.Bid{
		ID:             bidID,
		InvoiceID:      invID,
		Investor:       types.Address(m.Investor),
		Amount:         types.New(m.AmountCents, m.AmountCurrency),
		ExpectedReturn: types.New(m.ExpectedReturnCents, m.ExpectedReturnCurrency),
		PlacedAt:       m.PlacedAt,
		Status:         bid.Status(m.Status),
	}, nil
}

// ==================== Investment models ====================

type investmentModel struct {
	ID             string    `bson:"_id"`
	InvoiceID      string    `bson:"invoice_id"`
	Investor       string    `bson:"investor"`
	AmountCents    int64     `bson:"amount_cents"`
	AmountCurrency string    `bson:"amount_currency"`
	FundedAt       time.Time `bson:"funded_at"`
	Status         string    `bson:"status"`
}

func toInvestmentModel(ivt *investment.Investment) *investmentModel {
	return &investmentModel{
		ID:             ivt.ID.String(),
		InvoiceID:      ivt.InvoiceID.String(),
		Investor:       ivt.Investor.String(),
		AmountCents:    ivt.Amount.Amount,
		AmountCurrency: ivt.Amount.Currency,
		FundedAt:       ivt.FundedAt,
		Status:         string(ivt.Status),
	}
}

func fromInvestmentModel(m *investmentModel) (*investment.Investment, error) {
	ivtID, err := id.ParseKind(m.ID, id.KindInvestment)
	if err != nil {
		return nil, err
	}
	invID, err := id.ParseKind(m.InvoiceID, id.KindInvoice)
	if err != nil {
		return nil, err
	}

	return &investment.Investment{
		ID:        ivtID,
		InvoiceID: invID,
		Investor:  types.Address(m.Investor),
		Amount:    types.New(m.AmountCents, m.AmountCurrency),
		FundedAt:  m.FundedAt,
		Status:    investment.Status(m.Status),
	}, nil
}

// ==================== Escrow models ====================

type escrowModel struct {
	ID             string    `bson:"_id"`
	InvoiceID      string    `bson:"invoice_id"`
	Investor       string    `bson:"investor"`
	Business       string    `bson:"business"`
	AmountCents    int64     `bson:"amount_cents"`
	AmountCurrency string    `bson:"amount_currency"`
	CreatedAt      time.Time `bson:"created_at"`
	Status         string    `bson:"status"`
}

func toEscrowModel(e *escrow.Escrow) *escrowModel {
	return &escrowModel{
		ID:             e.ID.String(),
		InvoiceID:      e.InvoiceID.String(),
		Investor:       e.Investor.String(),
		Business:       e.Business.String(),
		AmountCents:    e.Amount.Amount,
		AmountCurrency: e.Amount.Currency,
		CreatedAt:      e.CreatedAt,
		Status:         string(e.Status),
	}
}

func fromEscrowModel(m *escrowModel) (*escrow.Escrow, error) {
	escID, err := id.ParseKind(m.ID, id.KindEscrow)
	if err != nil {
		return nil, err
	}
	invID, err := id.ParseKind(m.InvoiceID, id.KindInvoice)
	if err != nil {
		return nil, err
	}

	return &escrow.Escrow{
		ID:        escID,
		InvoiceID: invID,
		Investor:  types.Address(m.Investor),
		Business:  types.Address(m.Business),
		Amount:    types.New(m.AmountCents, m.AmountCurrency),
		CreatedAt: m.CreatedAt,
		Status:    escrow.Status(m.Status),
	}, nil
}

// ==================== Audit models ====================

type auditEntryModel struct {
	ID             string    `bson:"_id"`
	Seq            uint64    `bson:"seq"`
	InvoiceID      string    `bson:"invoice_id"`
	Operation      string    `bson:"operation"`
	Actor          string    `bson:"actor"`
	Timestamp      time.Time `bson:"timestamp"`
	DayBucket      int64     `bson:"day_bucket"`
	OldValue       string    `bson:"old_value,omitempty"`
	NewValue       string    `bson:"new_value,omitempty"`
	AmountCents    *int64    `bson:"amount_cents,omitempty"`
	AmountCurrency string    `bson:"amount_currency,omitempty"`
	Context        string    `bson:"context,omitempty"`
	BlockHeight    uint64    `bson:"block_height"`
}

func toAuditEntryModel(e *audit.Entry, seq uint64) *auditEntryModel {
	m := &auditEntryModel{
		ID:          e.ID.String(),
		Seq:         seq,
		InvoiceID:   e.InvoiceID.String(),
		Operation:   string(e.Operation),
		Actor:       e.Actor.String(),
		Timestamp:   e.Timestamp,
		DayBucket:   e.DayBucket(),
		OldValue:    e.OldValue,
		NewValue:    e.NewValue,
		Context:     e.Context,
		BlockHeight: e.BlockHeight,
	}
	if e.Amount != nil {
		cents := e.Amount.Amount
		m.AmountCents = &cents
		m.AmountCurrency = e.Amount.Currency
	}
	return m
}

func fromAuditEntryModel(m *auditEntryModel) (*audit.Entry, error) {
	entryID, err := id.ParseKind(m.ID, id.KindAudit)
	if err != nil {
		return nil, err
	}
	invID, err := id.ParseKind(m.InvoiceID, id.KindInvoice)
	if err != nil {
		return nil, err
	}

	e := &audit.Entry{
		ID:          entryID,
		InvoiceID:   invID,
		Operation:   audit.Operation(m.Operation),
		Actor:       types.Address(m.Actor),
		Timestamp:   m.Timestamp,
		OldValue:    m.OldValue,
		NewValue:    m.NewValue,
		Context:     m.Context,
		BlockHeight: m.BlockHeight,
	}
	if m.AmountCents != nil {
		amount := types.New(*m.AmountCents, m.AmountCurrency)
		e.Amount = &amount
	}
	return e, nil
}

// ==================== Backup models ====================

type backupModel struct {
	ID           string         `bson:"_id"`
	CreatedAt    time.Time      `bson:"created_at"`
	CreatedBy    string         `bson:"created_by"`
	Description  string         `bson:"description"`
	Status       string         `bson:"status"`
	InvoiceCount int            `bson:"invoice_count"`
	Invoices     []invoiceModel `bson:"invoices"`
}

func toBackupModel(b *backup.Backup) *backupModel {
	invoices := make([]invoiceModel, len(b.Invoices))
	for i := range b.Invoices {
		invoices[i] = *toInvoiceModel(&b.Invoices[i])
	}

	return &backupModel{
		ID:           b.ID.String(),
		CreatedAt:    b.CreatedAt,
		CreatedBy:    b.CreatedBy.String(),
		Description:  b.Description,
		Status:       string(b.Status),
		InvoiceCount: b.InvoiceCount,
		Invoices:     invoices,
	}
}

func fromBackupModel(m *backupModel) (*backup.Backup, error) {
	backupID, err := id.ParseKind(m.ID, id.KindBackup)
	if err != nil {
		return nil, err
	}

	invoices := make([]invoice.Invoice, len(m.Invoices))
	for i := range m.Invoices {
		inv, err := fromInvoiceModel(&m.Invoices[i])
		if err != nil {
			return nil, err
		}
		invoices[i] = *inv
	}

	return &backup.Backup{
		ID:           backupID,
		CreatedAt:    m.CreatedAt,
		CreatedBy:    types.Address(m.CreatedBy),
		Description:  m.Description,
		Status:       backup.Status(m.Status),
		InvoiceCount: m.InvoiceCount,
		Invoices:     invoices,
	}, nil
}

// ==================== Verification models ====================

type verificationModel struct {
	Business        string     `bson:"_id"`
	Status          string     `bson:"status"`
	KYCData         string     `bson:"kyc_data"`
	SubmittedAt     time.Time  `bson:"submitted_at"`
	ReviewedAt      *time.Time `bson:"reviewed_at,omitempty"`
	ReviewedBy      string     `bson:"reviewed_by,omitempty"`
	RejectionReason string     `bson:"rejection_reason,omitempty"`
}

func toVerificationModel(v *verification.BusinessVerification) *verificationModel {
	return &verificationModel{
		Business:        v.Business.String(),
		Status:          string(v.Status),
		KYCData:         v.KYCData,
		SubmittedAt:     v.SubmittedAt,
		ReviewedAt:      v.ReviewedAt,
		ReviewedBy:      v.ReviewedBy.String(),
		RejectionReason: v.RejectionReason,
	}
}

func fromVerificationModel(m *verificationModel) *verification.BusinessVerification {
	return &verification.BusinessVerification{
		Business:        types.Address(m.Business),
		Status:          verification.Status(m.Status),
		KYCData:         m.KYCData,
		SubmittedAt:     m.SubmittedAt,
		ReviewedAt:      m.ReviewedAt,
		ReviewedBy:      types.Address(m.ReviewedBy),
		RejectionReason: m.RejectionReason,
	}
}

// ==================== Counter and config models ====================

type sequenceModel struct {
	Name  string `bson:"_id"`
	Value uint64 `bson:"value"`
}

type configModel struct {
	Key   string `bson:"_id"`
	Value string `bson:"value"`
}
