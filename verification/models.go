// Package verification tracks business KYC applications. A business must be
// verified by the admin before it may upload invoices; a rejected business
// may resubmit, a pending or verified one may not.
package verification

import (
	"time"

	"github.com/fundrail/ledger/types"
)

// Status is the KYC review state of a business.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
)

// BusinessVerification is one business's KYC record, keyed by address. A
// resubmission overwrites the rejected record in place.
type BusinessVerification struct {
	Business        types.Address `json:"business"`
	Status          Status        `json:"status"`
	KYCData         string        `json:"kyc_data"`
	SubmittedAt     time.Time     `json:"submitted_at"`
	ReviewedAt      *time.Time    `json:"reviewed_at,omitempty"`
	ReviewedBy      types.Address `json:"reviewed_by,omitempty"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
}

// New builds a pending application.
func New(business types.Address, kycData string, now time.Time) *BusinessVerification {
	return &BusinessVerification{
		Business:    business,
		Status:      StatusPending,
		KYCData:     kycData,
		SubmittedAt: now,
	}
}

// Approve marks the application verified. No precondition checks; callers
// enforce review rules.
func (v *BusinessVerification) Approve(admin types.Address, now time.Time) {
	v.Status = StatusVerified
	v.ReviewedAt = &now
	v.ReviewedBy = admin
}

// Reject marks the application rejected, opening it for resubmission.
func (v *BusinessVerification) Reject(admin types.Address, reason string, now time.Time) {
	v.Status = StatusRejected
	v.ReviewedAt = &now
	v.ReviewedBy = admin
	v.RejectionReason = reason
}

// Resubmit replaces a rejected application's data and returns it to pending.
func (v *BusinessVerification) Resubmit(kycData string, now time.Time) {
	v.Status = StatusPending
	v.KYCData = kycData
	v.SubmittedAt = now
	v.ReviewedAt = nil
	v.ReviewedBy = ""
	v.RejectionReason = ""
}
