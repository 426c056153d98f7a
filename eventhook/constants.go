package eventhook

// Action constants for published events.
const (
	// Invoice actions
	ActionInvoiceUploaded  = "invoice.uploaded"
	ActionInvoiceVerified  = "invoice.verified"
	ActionInvoiceSettled   = "invoice.settled"
	ActionInvoiceDefaulted = "invoice.defaulted"
	ActionInvoiceRated     = "invoice.rated"

	// Bid actions
	ActionBidPlaced    = "bid.placed"
	ActionBidAccepted  = "bid.accepted"
	ActionBidWithdrawn = "bid.withdrawn"

	// Escrow actions
	ActionEscrowReleased = "escrow.released"
	ActionEscrowRefunded = "escrow.refunded"

	// Verification actions
	ActionKYCSubmitted     = "kyc.submitted"
	ActionBusinessReviewed = "business.reviewed"

	// Backup actions
	ActionBackupCreated  = "backup.created"
	ActionBackupRestored = "backup.restored"
	ActionBackupArchived = "backup.archived"
)

// Resource constants for published events.
const (
	ResourceInvoice  = "invoice"
	ResourceBid      = "bid"
	ResourceEscrow   = "escrow"
	ResourceBusiness = "business"
	ResourceBackup   = "backup"
)

// Category constants for published events.
const (
	CategoryFinancing  = "financing"
	CategorySettlement = "settlement"
	CategoryEscrow     = "escrow"
	CategoryCompliance = "compliance"
	CategoryOperations = "operations"
)

// Severity levels for published events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for published events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
