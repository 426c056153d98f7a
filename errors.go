package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("ledger: not found")
	ErrAlreadyExists = errors.New("ledger: already exists")
	ErrInvalidInput  = errors.New("ledger: invalid input")
	ErrUnauthorized  = errors.New("ledger: unauthorized")
	ErrNotAdmin      = errors.New("ledger: caller is not the admin")

	// Invoice errors
	ErrInvoiceNotFound    = errors.New("ledger: invoice not found")
	ErrInvalidStatus      = errors.New("ledger: operation not allowed in current status")
	ErrInvalidAmount      = errors.New("ledger: amount must be positive")
	ErrInvalidDueDate     = errors.New("ledger: due date must be in the future")
	ErrInvalidDescription = errors.New("ledger: description must not be empty")
	ErrCurrencyMismatch   = errors.New("ledger: currency does not match invoice")
	ErrNotFunded          = errors.New("ledger: invoice is not funded")

	// Rating errors
	ErrInvalidRating = errors.New("ledger: rating must be between 1 and 5")
	ErrAlreadyRated  = errors.New("ledger: rater has already rated this invoice")
	ErrNotRater      = errors.New("ledger: caller may not rate this invoice")

	// Bid errors
	ErrBidNotFound         = errors.New("ledger: bid not found")
	ErrOperationNotAllowed = errors.New("ledger: operation not allowed for bid in current status")
	ErrBidMismatch         = errors.New("ledger: bid does not belong to invoice")
	ErrNotBidder           = errors.New("ledger: caller did not place this bid")

	// Escrow and funds errors
	ErrEscrowNotFound     = errors.New("ledger: escrow not found")
	ErrEscrowTerminal     = errors.New("ledger: escrow already released or refunded")
	ErrInvestmentNotFound = errors.New("ledger: investment not found")
	ErrInsufficientFunds  = errors.New("ledger: funds transfer failed")

	// KYC errors
	ErrKYCNotFound         = errors.New("ledger: no verification record for business")
	ErrKYCAlreadyPending   = errors.New("ledger: verification already pending")
	ErrKYCAlreadyVerified  = errors.New("ledger: business already verified")
	ErrInvalidKYCStatus    = errors.New("ledger: verification is not pending review")
	ErrBusinessNotVerified = errors.New("ledger: business is not verified")

	// Audit errors
	ErrAuditEntryNotFound = errors.New("ledger: audit entry not found")
	ErrIntegrity          = errors.New("ledger: audit trail integrity violation")

	// Backup errors
	ErrBackupNotFound  = errors.New("ledger: backup not found")
	ErrBackupCorrupted = errors.New("ledger: backup failed validation")
	ErrBackupNotActive = errors.New("ledger: backup is not active")

	// Store errors
	ErrStoreNotReady     = errors.New("ledger: store not ready")
	ErrTransactionFailed = errors.New("ledger: transaction failed")
	ErrMigrationFailed   = errors.New("ledger: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("ledger: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvoiceNotFound) ||
		errors.Is(err, ErrBidNotFound) ||
		errors.Is(err, ErrEscrowNotFound) ||
		errors.Is(err, ErrInvestmentNotFound) ||
		errors.Is(err, ErrAuditEntryNotFound) ||
		errors.Is(err, ErrBackupNotFound) ||
		errors.Is(err, ErrKYCNotFound)
}

// IsValidation returns true if the error reflects rejected input rather than
// missing or conflicting state.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidDueDate) ||
		errors.Is(err, ErrInvalidDescription) ||
		errors.Is(err, ErrCurrencyMismatch) ||
		errors.Is(err, ErrInvalidRating) ||
		errors.As(err, &ve)
}

// IsStatusConflict returns true if the error means the entity exists but its
// lifecycle state forbids the operation.
func IsStatusConflict(err error) bool {
	return errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrNotFunded) ||
		errors.Is(err, ErrOperationNotAllowed) ||
		errors.Is(err, ErrEscrowTerminal) ||
		errors.Is(err, ErrKYCAlreadyPending) ||
		errors.Is(err, ErrKYCAlreadyVerified) ||
		errors.Is(err, ErrInvalidKYCStatus) ||
		errors.Is(err, ErrBackupNotActive)
}

// IsUnauthorized returns true if the caller lacks the right to perform the
// operation.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrNotAdmin) ||
		errors.Is(err, ErrNotBidder) ||
		errors.Is(err, ErrNotRater)
}
