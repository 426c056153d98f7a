// Package memory is the in-memory reference backend. It implements the full
// store contract with a single RWMutex and explicit derived indices, and is
// the backend the engine tests run against.
package memory

import (
	"context"
	"sync"

	"github.com/fundrail/ledger"
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

type Store struct {
	mu sync.RWMutex

	// Invoice storage plus status and business indices. The bucket slices
	// keep insertion order so listings are deterministic.
	invoices         map[string]*invoice.Invoice
	invoicesByStatus map[invoice.Status][]string
	invoicesByBiz    map[types.Address][]string

	// Bid storage
	bids          map[string]*bid.Bid
	bidsByInvoice map[string][]string

	// Investment storage, keyed by invoice
	investments map[string]*investment.Investment

	// Escrow storage plus the invoice index
	escrows         map[string]*escrow.Escrow
	escrowByInvoice map[string]string

	// Append-only audit log with four lookup indices. The index slices hold
	// positions into entries so every listing replays in append order.
	auditEntries []*audit.Entry
	auditByID    map[string]int
	auditByInv   map[string][]int
	auditByOp    map[audit.Operation][]int
	auditByActor map[types.Address][]int
	auditByDay   map[int64][]int

	// Backup storage. activeBackups is oldest first.
	backups       map[string]*backup.Backup
	backupOrder   []string
	activeBackups []string

	// KYC records keyed by business address
	verifications map[types.Address]*verification.BusinessVerification

	sequences map[string]uint64
	admin     types.Address
}

func New() *Store {
	return &Store{
		invoices:         make(map[string]*invoice.Invoice),
		invoicesByStatus: make(map[invoice.Status][]string),
		invoicesByBiz:    make(map[types.Address][]string),
		bids:             make(map[string]*bid.Bid),
		bidsByInvoice:    make(map[string][]string),
		investments:      make(map[string]*investment.Investment),
		escrows:          make(map[string]*escrow.Escrow),
		escrowByInvoice:  make(map[string]string),
		auditByID:        make(map[string]int),
		auditByInv:       make(map[string][]int),
		auditByOp:        make(map[audit.Operation][]int),
		auditByActor:     make(map[types.Address][]int),
		auditByDay:       make(map[int64][]int),
		backups:          make(map[string]*backup.Backup),
		verifications:    make(map[types.Address]*verification.BusinessVerification),
		sequences:        make(map[string]uint64),
	}
}

// Invoice Store implementation
func (s *Store) CreateInvoice(_ context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := inv.ID.String()
	if _, exists := s.invoices[key]; exists {
		return ledger.ErrAlreadyExists
	}
	s.invoices[key] = inv
	s.invoicesByStatus[inv.Status] = append(s.invoicesByStatus[inv.Status], key)
	s.invoicesByBiz[inv.Business] = append(s.invoicesByBiz[inv.Business], key)
	return nil
}

func (s *Store) GetInvoice(_ context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if inv, ok := s.invoices[invoiceID.String()]; ok {
		return inv, nil
	}
	return nil, ledger.ErrInvoiceNotFound
}

func (s *Store) UpdateInvoice(_ context.Context, inv *invoice.Invoice, prevStatus invoice.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := inv.ID.String()
	if _, exists := s.invoices[key]; !exists {
		return ledger.ErrInvoiceNotFound
	}
	s.invoices[key] = inv
	if inv.Status != prevStatus {
		s.invoicesByStatus[prevStatus] = removeKey(s.invoicesByStatus[prevStatus], key)
		s.invoicesByStatus[inv.Status] = append(s.invoicesByStatus[inv.Status], key)
	}
	return nil
}

func (s *Store) ListInvoicesByBusiness(_ context.Context, business types.Address) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.invoicesByBiz[business]
	result := make([]*invoice.Invoice, 0, len(keys))
	for _, key := range keys {
		result = append(result, s.invoices[key])
	}
	return result, nil
}

func (s *Store) ListInvoicesByStatus(_ context.Context, status invoice.Status) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.invoicesByStatus[status]
	result := make([]*invoice.Invoice, 0, len(keys))
	for _, key := range keys {
		result = append(result, s.invoices[key])
	}
	return result, nil
}

func (s *Store) CountInvoicesByStatus(_ context.Context, status invoice.Status) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.invoicesByStatus[status]), nil
}

func (s *Store) DeleteAllInvoices(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invoices = make(map[string]*invoice.Invoice)
	s.invoicesByStatus = make(map[invoice.Status][]string)
	s.invoicesByBiz = make(map[types.Address][]string)
	return nil
}

// Bid Store implementation
func (s *Store) CreateBid(_ context.Context, b *bid.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := b.ID.String()
	if _, exists := s.bids[key]; exists {
		return ledger.ErrAlreadyExists
	}
	s.bids[key] = b
	invKey := b.InvoiceID.String()
	s.bidsByInvoice[invKey] = append(s.bidsByInvoice[invKey], key)
	return nil
}

func (s *Store) GetBid(_ context.Context, bidID id.ID) (*bid.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.bids[bidID.String()]; ok {
		return b, nil
	}
	return nil, ledger.ErrBidNotFound
}

func (s *Store) UpdateBid(_ context.Context, b *bid.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := b.ID.String()
	if _, exists := s.bids[key]; !exists {
		return ledger.ErrBidNotFound
	}
	s.bids[key] = b
	return nil
}

func (s *Store) ListBidsByInvoice(_ context.Context, invoiceID id.ID) ([]*bid.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.bidsByInvoice[invoiceID.String()]
	result := make([]*bid.Bid, 0, len(keys))
	for _, key := range keys {
		result = append(result, s.bids[key])
	}
	return result, nil
}

// Investment Store implementation
func (s *Store) CreateInvestment(_ context.Context, ivt *investment.Investment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ivt.InvoiceID.String()
	if _, exists := s.investments[key]; exists {
		return ledger.ErrAlreadyExists
	}
	s.investments[key] = ivt
	return nil
}

func (s *Store) GetInvestmentByInvoice(_ context.Context, invoiceID id.ID) (*investment.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ivt, ok := s.investments[invoiceID.String()]; ok {
		return ivt, nil
	}
	return nil, ledger.ErrInvestmentNotFound
}

func (s *Store) UpdateInvestment(_ context.Context, ivt *investment.Investment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ivt.InvoiceID.String()
	if _, exists := s.investments[key]; !exists {
		return ledger.ErrInvestmentNotFound
	}
	s.investments[key] = ivt
	return nil
}

// Escrow Store implementation
func (s *Store) CreateEscrow(_ context.Context, e *escrow.Escrow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	invKey := e.InvoiceID.String()
	if _, exists := s.escrowByInvoice[invKey]; exists {
		return ledger.ErrAlreadyExists
	}
	key := e.ID.String()
	s.escrows[key] = e
	s.escrowByInvoice[invKey] = key
	return nil
}

func (s *Store) GetEscrow(_ context.Context, escrowID id.ID) (*escrow.Escrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.escrows[escrowID.String()]; ok {
		return e, nil
	}
	return nil, ledger.ErrEscrowNotFound
}

func (s *Store) GetEscrowByInvoice(_ context.Context, invoiceID id.ID) (*escrow.Escrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if key, ok := s.escrowByInvoice[invoiceID.String()]; ok {
		return s.escrows[key], nil
	}
	return nil, ledger.ErrEscrowNotFound
}

func (s *Store) UpdateEscrow(_ context.Context, e *escrow.Escrow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := e.ID.String()
	if _, exists := s.escrows[key]; !exists {
		return ledger.ErrEscrowNotFound
	}
	s.escrows[key] = e
	return nil
}

// Audit Store implementation
func (s *Store) AppendAuditEntry(_ context.Context, e *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := e.ID.String()
	if _, exists := s.auditByID[key]; exists {
		return ledger.ErrAlreadyExists
	}
	pos := len(s.auditEntries)
	s.auditEntries = append(s.auditEntries, e)
	s.auditByID[key] = pos
	invKey := e.InvoiceID.String()
	s.auditByInv[invKey] = append(s.auditByInv[invKey], pos)
	s.auditByOp[e.Operation] = append(s.auditByOp[e.Operation], pos)
	s.auditByActor[e.Actor] = append(s.auditByActor[e.Actor], pos)
	bucket := e.DayBucket()
	s.auditByDay[bucket] = append(s.auditByDay[bucket], pos)
	return nil
}

func (s *Store) GetAuditEntry(_ context.Context, entryID id.ID) (*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if pos, ok := s.auditByID[entryID.String()]; ok {
		return s.auditEntries[pos], nil
	}
	return nil, ledger.ErrAuditEntryNotFound
}

func (s *Store) ListAuditByInvoice(_ context.Context, invoiceID id.ID) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectAudit(s.auditByInv[invoiceID.String()]), nil
}

func (s *Store) ListAuditByOperation(_ context.Context, op audit.Operation) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectAudit(s.auditByOp[op]), nil
}

func (s *Store) ListAuditByActor(_ context.Context, actor types.Address) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectAudit(s.auditByActor[actor]), nil
}

func (s *Store) ListAuditByDayBucket(_ context.Context, bucket int64) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectAudit(s.auditByDay[bucket]), nil
}

func (s *Store) ListAuditAll(_ context.Context) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*audit.Entry, len(s.auditEntries))
	copy(result, s.auditEntries)
	return result, nil
}

func (s *Store) CountAuditEntries(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.auditEntries), nil
}

func (s *Store) collectAudit(positions []int) []*audit.Entry {
	result := make([]*audit.Entry, 0, len(positions))
	for _, pos := range positions {
		result = append(result, s.auditEntries[pos])
	}
	return result
}

// Backup Store implementation
func (s *Store) CreateBackup(_ context.Context, b *backup.Backup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := b.ID.String()
	if _, exists := s.backups[key]; exists {
		return ledger.ErrAlreadyExists
	}
	s.backups[key] = b
	s.backupOrder = append(s.backupOrder, key)
	if b.Status == backup.StatusActive {
		s.activeBackups = append(s.activeBackups, key)
	}
	return nil
}

func (s *Store) GetBackup(_ context.Context, backupID id.ID) (*backup.Backup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.backups[backupID.String()]; ok {
		return b, nil
	}
	return nil, ledger.ErrBackupNotFound
}

func (s *Store) UpdateBackup(_ context.Context, b *backup.Backup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := b.ID.String()
	if _, exists := s.backups[key]; !exists {
		return ledger.ErrBackupNotFound
	}
	s.backups[key] = b
	if b.Status != backup.StatusActive {
		s.activeBackups = removeKey(s.activeBackups, key)
	}
	return nil
}

func (s *Store) ListActiveBackups(_ context.Context) ([]*backup.Backup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*backup.Backup, 0, len(s.activeBackups))
	for _, key := range s.activeBackups {
		result = append(result, s.backups[key])
	}
	return result, nil
}

func (s *Store) ListAllBackups(_ context.Context) ([]*backup.Backup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*backup.Backup, 0, len(s.backupOrder))
	for _, key := range s.backupOrder {
		result = append(result, s.backups[key])
	}
	return result, nil
}

// Verification Store implementation
func (s *Store) PutVerification(_ context.Context, v *verification.BusinessVerification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.verifications[v.Business] = v
	return nil
}

func (s *Store) GetVerification(_ context.Context, business types.Address) (*verification.BusinessVerification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.verifications[business]; ok {
		return v, nil
	}
	return nil, ledger.ErrKYCNotFound
}

func (s *Store) ListVerificationsByStatus(_ context.Context, status verification.Status) ([]*verification.BusinessVerification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*verification.BusinessVerification, 0)
	for _, v := range s.verifications {
		if v.Status == status {
			result = append(result, v)
		}
	}
	return result, nil
}

// Sequence and admin storage
func (s *Store) NextSequence(_ context.Context, name string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sequences[name]++
	return s.sequences[name], nil
}

func (s *Store) SetAdmin(_ context.Context, admin types.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.admin = admin
	return nil
}

func (s *Store) GetAdmin(_ context.Context) (types.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.admin, nil
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}

func removeKey(keys []string, key string) []string {
	for i, k := range keys {
		if k == key {
			return append(keys[:i], keys[i+1:]...)
		}
	}
	return keys
}
