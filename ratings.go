package ledger

import (
	"context"
	"fmt"

	"github.com/fundrail/ledger/audit"
	"github.com/fundrail/ledger/id"
	"github.com/fundrail/ledger/invoice"
	"github.com/fundrail/ledger/types"
)

// RatingStats summarizes the ratings on one invoice.
type RatingStats struct {
	AverageRating int `json:"average_rating"`
	TotalRatings  int `json:"total_ratings"`
	HighestRating int `json:"highest_rating"`
	LowestRating  int `json:"lowest_rating"`
}

// AddInvoiceRating lets the funding investor rate a funded or paid invoice.
// One rating per rater; values run 1 to 5.
func (l *Ledger) AddInvoiceRating(ctx context.Context, rater types.Address, invoiceID id.ID, value int, feedback string) error {
	if err := l.authorizer.RequireCaller(ctx, rater); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	inv, err := l.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if inv.Status != invoice.StatusFunded && inv.Status != invoice.StatusPaid {
		return ErrNotFunded
	}
	if inv.Investor != rater {
		return ErrNotRater
	}
	if value < 1 || value > 5 {
		return ErrInvalidRating
	}
	if inv.HasRatingFrom(rater) {
		return ErrAlreadyRated
	}

	inv.AddRating(value, feedback, rater, l.clock.Now())
	if err := l.store.UpdateInvoice(ctx, inv, inv.Status); err != nil {
		return err
	}

	entry := l.newAuditEntry(invoiceID, audit.OpInvoiceRated, rater)
	entry.NewValue = fmt.Sprintf("%d", value)
	entry.Context = feedback
	if err := l.store.AppendAuditEntry(ctx, entry); err != nil {
		return err
	}

	l.plugins.EmitInvoiceRated(ctx, inv, inv.Ratings[len(inv.Ratings)-1])
	return nil
}

// InvoiceRatingStats returns the rating aggregates for an invoice.
func (l *Ledger) InvoiceRatingStats(ctx context.Context, invoiceID id.ID) (*RatingStats, error) {
	inv, err := l.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	return &RatingStats{
		AverageRating: inv.AverageRating,
		TotalRatings:  inv.TotalRatings,
		HighestRating: inv.HighestRating(),
		LowestRating:  inv.LowestRating(),
	}, nil
}

// ListInvoicesRatedAbove returns invoices whose average rating exceeds the
// threshold. Only funded and paid invoices can carry ratings, so only those
// buckets are scanned.
func (l *Ledger) ListInvoicesRatedAbove(ctx context.Context, threshold int) ([]*invoice.Invoice, error) {
	result := make([]*invoice.Invoice, 0)
	for _, status := range []invoice.Status{invoice.StatusFunded, invoice.StatusPaid} {
		invs, err := l.store.ListInvoicesByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		for _, inv := range invs {
			if inv.TotalRatings > 0 && inv.AverageRating > threshold {
				result = append(result, inv)
			}
		}
	}
	return result, nil
}

// ListBusinessInvoicesRatedAbove is ListInvoicesRatedAbove restricted to one
// business.
func (l *Ledger) ListBusinessInvoicesRatedAbove(ctx context.Context, business types.Address, threshold int) ([]*invoice.Invoice, error) {
	invs, err := l.store.ListInvoicesByBusiness(ctx, business)
	if err != nil {
		return nil, err
	}

	result := make([]*invoice.Invoice, 0)
	for _, inv := range invs {
		if inv.TotalRatings > 0 && inv.AverageRating > threshold {
			result = append(result, inv)
		}
	}
	return result, nil
}

// CountRatedInvoices returns how many invoices carry at least one rating.
func (l *Ledger) CountRatedInvoices(ctx context.Context) (int, error) {
	count := 0
	for _, status := range []invoice.Status{invoice.StatusFunded, invoice.StatusPaid} {
		invs, err := l.store.ListInvoicesByStatus(ctx, status)
		if err != nil {
			return 0, err
		}
		for _, inv := range invs {
			if inv.TotalRatings > 0 {
				count++
			}
		}
	}
	return count, nil
}
