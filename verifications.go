package ledger

import (
	"context"
	"fmt"

	"github.com/fundrail/ledger/types"
	"github.com/fundrail/ledger/verification"
)

// ──────────────────────────────────────────────────
// Admin
// ──────────────────────────────────────────────────

// SetAdmin stores the admin address. Call once at bootstrap; changing the
// admin afterwards requires the current admin.
func (l *Ledger) SetAdmin(ctx context.Context, caller, admin types.Address) error {
	if err := l.authorizer.RequireCaller(ctx, caller); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	current, err := l.store.GetAdmin(ctx)
	if err != nil {
		return err
	}
	if !current.IsZero() && current != caller {
		return ErrNotAdmin
	}

	return l.store.SetAdmin(ctx, admin)
}

// Admin returns the stored admin address, or the zero address when unset.
func (l *Ledger) Admin(ctx context.Context) (types.Address, error) {
	return l.store.GetAdmin(ctx)
}

// requireAdmin rejects callers that are not the stored admin.
func (l *Ledger) requireAdmin(ctx context.Context, caller types.Address) error {
	if err := l.authorizer.RequireCaller(ctx, caller); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	admin, err := l.store.GetAdmin(ctx)
	if err != nil {
		return err
	}
	if admin.IsZero() || admin != caller {
		return ErrNotAdmin
	}
	return nil
}

// ──────────────────────────────────────────────────
// Business KYC
// ──────────────────────────────────────────────────

// SubmitKYCApplication opens (or, after a rejection, reopens) a business's
// verification. Pending and verified businesses may not resubmit.
func (l *Ledger) SubmitKYCApplication(ctx context.Context, business types.Address, kycData string) error {
	if err := l.authorizer.RequireCaller(ctx, business); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	now := l.clock.Now()

	v, err := l.store.GetVerification(ctx, business)
	switch {
	case err == nil:
		switch v.Status {
		case verification.StatusPending:
			return ErrKYCAlreadyPending
		case verification.StatusVerified:
			return ErrKYCAlreadyVerified
		case verification.StatusRejected:
			v.Resubmit(kycData, now)
		}
	case IsNotFound(err):
		v = verification.New(business, kycData, now)
	default:
		return err
	}

	if err := l.store.PutVerification(ctx, v); err != nil {
		return err
	}

	l.logger.Info("kyc submitted", "business", business)
	l.plugins.EmitKYCSubmitted(ctx, v)
	return nil
}

// VerifyBusiness approves a pending application. Admin only.
func (l *Ledger) VerifyBusiness(ctx context.Context, admin, business types.Address) error {
	if err := l.requireAdmin(ctx, admin); err != nil {
		return err
	}

	v, err := l.store.GetVerification(ctx, business)
	if err != nil {
		return err
	}
	if v.Status != verification.StatusPending {
		return ErrInvalidKYCStatus
	}

	v.Approve(admin, l.clock.Now())
	if err := l.store.PutVerification(ctx, v); err != nil {
		return err
	}

	l.logger.Info("business verified", "business", business, "admin", admin)
	l.plugins.EmitBusinessReviewed(ctx, v)
	return nil
}

// RejectBusiness turns down a pending application, recording the reason.
// The business may resubmit. Admin only.
func (l *Ledger) RejectBusiness(ctx context.Context, admin, business types.Address, reason string) error {
	if err := l.requireAdmin(ctx, admin); err != nil {
		return err
	}

	v, err := l.store.GetVerification(ctx, business)
	if err != nil {
		return err
	}
	if v.Status != verification.StatusPending {
		return ErrInvalidKYCStatus
	}

	v.Reject(admin, reason, l.clock.Now())
	if err := l.store.PutVerification(ctx, v); err != nil {
		return err
	}

	l.logger.Info("business rejected", "business", business, "admin", admin, "reason", reason)
	l.plugins.EmitBusinessReviewed(ctx, v)
	return nil
}

// BusinessVerification returns a business's KYC record.
func (l *Ledger) BusinessVerification(ctx context.Context, business types.Address) (*verification.BusinessVerification, error) {
	return l.store.GetVerification(ctx, business)
}

// ListVerifiedBusinesses returns the addresses of all verified businesses.
func (l *Ledger) ListVerifiedBusinesses(ctx context.Context) ([]types.Address, error) {
	return l.listBusinessesByStatus(ctx, verification.StatusVerified)
}

// ListPendingBusinesses returns the addresses awaiting review.
func (l *Ledger) ListPendingBusinesses(ctx context.Context) ([]types.Address, error) {
	return l.listBusinessesByStatus(ctx, verification.StatusPending)
}

// ListRejectedBusinesses returns the addresses turned down at review.
func (l *Ledger) ListRejectedBusinesses(ctx context.Context) ([]types.Address, error) {
	return l.listBusinessesByStatus(ctx, verification.StatusRejected)
}

func (l *Ledger) listBusinessesByStatus(ctx context.Context, status verification.Status) ([]types.Address, error) {
	records, err := l.store.ListVerificationsByStatus(ctx, status)
	if err != nil {
		return nil, err
	}

	result := make([]types.Address, 0, len(records))
	for _, v := range records {
		result = append(result, v.Business)
	}
	return result, nil
}
