// Package mysql implements the ledger store on MySQL via database/sql.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"

	ledger "github.com/fundrail/ledger"
	"github.com/fundrail/ledger/audit"
	"github.com/fundrail/ledger/backup"
	"github.com/fundrail/ledger/bid"
	"github.com/fundrail/ledger/escrow"
	"github.com/fundrail/ledger/id"
	"github.com/fundrail/ledger/investment"
	"github.com/fundrail/ledger/invoice"
	ledgerstore "github.com/fundrail/ledger/store"
	"github.com/fundrail/ledger/types"
	"github.com/fundrail/ledger/verification"
)

// Connection pool settings.
const (
	connMaxLifetime = 1 * time.Minute
	maxOpenConns    = 0 // 0 is unlimited
	maxIdleConns    = 100
)

// adminConfigKey is the config row holding the admin address.
const adminConfigKey = "admin"

// duplicate key error number from the MySQL server.
const erDupEntry = 1062

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store on MySQL.
type Store struct {
	db *sql.DB
}

// New creates a new MySQL store on an existing connection pool. The
// connection must be opened with parseTime=true and clientFoundRows=true;
// use Open to get both set up correctly.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to MySQL with the pool settings the store expects.
func Open(dsn string) (*Store, error) {
	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger/mysql: parse dsn: %w", err)
	}
	cfg.ParseTime = true
	// Report matched rows, not changed rows, so no-op updates are not
	// mistaken for missing rows.
	cfg.ClientFoundRows = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("ledger/mysql: open: %w", err)
	}
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)

	return New(db), nil
}

// DB returns the underlying connection pool for direct access.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate creates the required tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	for _, ddl := range allTables {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ledger/mysql: migrate: %w", err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Invoice Store ====================

const invoiceColumns = `id, business, amount_cents, amount_currency, due_date,
	description, status, funded_amount_cents, funded_amount_currency,
	funded_at, investor, settled_at, ratings, average_rating, total_ratings,
	created_at, updated_at`

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	ratings, err := marshalRatings(inv.Ratings)
	if err != nil {
		return fmt.Errorf("ledger/mysql: marshal ratings: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ledger_invoices (`+invoiceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID.String(), inv.Business.String(),
		inv.Amount.Amount, inv.Amount.Currency,
		inv.DueDate.UTC(), inv.Description, string(inv.Status),
		inv.FundedAmount.Amount, inv.FundedAmount.Currency,
		nullTime(inv.FundedAt), inv.Investor.String(), nullTime(inv.SettledAt),
		ratings, inv.AverageRating, inv.TotalRatings,
		inv.CreatedAt.UTC(), inv.UpdatedAt.UTC())
	if err != nil {
		if isDuplicate(err) {
			return ledger.ErrAlreadyExists
		}
		return fmt.Errorf("ledger/mysql: create invoice: %w", err)
	}
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+invoiceColumns+` FROM ledger_invoices WHERE id = ?`,
		invoiceID.String())

	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("ledger/mysql: get invoice: %w", err)
	}
	return inv, nil
}

// UpdateInvoice replaces the stored row. The previous status is only needed
// by backends that maintain per-status buckets; here status is a plain
// indexed column, so the hint is unused.
func (s *Store) UpdateInvoice(ctx context.Context, inv *invoice.Invoice, _ invoice.Status) error {
	ratings, err := marshalRatings(inv.Ratings)
	if err != nil {
		return fmt.Errorf("ledger/mysql: marshal ratings: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE ledger_invoices SET
			business = ?, amount_cents = ?, amount_currency = ?, due_date = ?,
			description = ?, status = ?, funded_amount_cents = ?,
			funded_amount_currency = ?, funded_at = ?, investor = ?,
			settled_at = ?, ratings = ?, average_rating = ?, total_ratings = ?,
			created_at = ?, updated_at = ?
		WHERE id = ?`,
		inv.Business.String(), inv.Amount.Amount, inv.Amount.Currency,
		inv.DueDate.UTC(), inv.Description, string(inv.Status),
		inv.FundedAmount.Amount, inv.FundedAmount.Currency,
		nullTime(inv.FundedAt), inv.Investor.String(), nullTime(inv.SettledAt),
		ratings, inv.AverageRating, inv.TotalRatings,
		inv.CreatedAt.UTC(), inv.UpdatedAt.UTC(),
		inv.ID.String())
	if err != nil {
		return fmt.Errorf("ledger/mysql: update invoice: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrInvoiceNotFound
	}
	return nil
}

func (s *Store) ListInvoicesByBusiness(ctx context.Context, business types.Address) ([]*invoice.Invoice, error) {
	return s.listInvoices(ctx, `
		SELECT `+invoiceColumns+` FROM ledger_invoices
		WHERE business = ? ORDER BY created_at, id`, business.String())
}

func (s *Store) ListInvoicesByStatus(ctx context.Context, status invoice.Status) ([]*invoice.Invoice, error) {
	return s.listInvoices(ctx, `
		SELECT `+invoiceColumns+` FROM ledger_invoices
		WHERE status = ? ORDER BY created_at, id`, string(status))
}

func (s *Store) CountInvoicesByStatus(ctx context.Context, status invoice.Status) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_invoices WHERE status = ?`,
		string(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("ledger/mysql: count invoices: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteAllInvoices(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM ledger_invoices`); err != nil {
		return fmt.Errorf("ledger/mysql: delete all invoices: %w", err)
	}
	return nil
}

func (s *Store) listInvoices(ctx context.Context, query string, args ...any) ([]*invoice.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger/mysql: list invoices: %w", err)
	}
	defer rows.Close()

	var result []*invoice.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("ledger/mysql: scan invoice: %w", err)
		}
		result = append(result, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger/mysql: list invoices: %w", err)
	}
	return result, nil
}

// ==================== Bid Store ====================

const bidColumns = `id, invoice_id, investor, amount_cents, amount_currency,
	expected_return_cents, expected_return_currency, placed_at, status`

func (s *Store) CreateBid(ctx context.Context, b *bid.Bid) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_bids (`+bidColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID.String(), b.InvoiceID.String(), b.Investor.String(),
		b.Amount.Amount, b.Amount.Currency,
		b.ExpectedReturn.Amount, b.ExpectedReturn.Currency,
		b.PlacedAt.UTC(), string(b.Status))
	if err != nil {
		if isDuplicate(err) {
			return ledger.ErrAlreadyExists
		}
		return fmt.Errorf("ledger/mysql: create bid: %w", err)
	}
	return nil
}

func (s *Store) GetBid(ctx context.Context, bidID id.ID) (*bid.Bid, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+bidColumns+` FROM ledger_bids WHERE id = ?`, bidID.String())

	b, err := scanBid(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrBidNotFound
		}
		return nil, fmt.Errorf("ledger/mysql: get bid: %w", err)
	}
	return b, nil
}

func (s *Store) UpdateBid(ctx context.Context, b *bid.Bid) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ledger_bids SET
			invoice_id = ?, investor = ?, amount_cents = ?, amount_currency = ?,
			expected_return_cents = ?, expected_return_currency = ?,
			placed_at = ?, status = ?
		WHERE id = ?`,
		b.InvoiceID.String(), b.Investor.String(),
		b.Amount.Amount, b.Amount.Currency,
		b.ExpectedReturn.Amount, b.ExpectedReturn.Currency,
		b.PlacedAt.UTC(), string(b.Status),
		b.ID.String())
	if err != nil {
		return fmt.Errorf("ledger/mysql: update bid: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrBidNotFound
	}
	return nil
}

func (s *Store) ListBidsByInvoice(ctx context.Context, invoiceID id.ID) ([]*bid.Bid, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+bidColumns+` FROM ledger_bids
		WHERE invoice_id = ? ORDER BY placed_at, id`, invoiceID.String())
	if err != nil {
		return nil, fmt.Errorf("ledger/mysql: list bids: %w", err)
	}
	defer rows.Close()

	var result []*bid.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("ledger/mysql: scan bid: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger/mysql: list bids: %w", err)
	}
	return result, nil
}

// ==================== Investment Store ====================

func (s *Store) CreateInvestment(ctx context.Context, ivt *investment.Investment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_investments
			(id, invoice_id, investor, amount_cents, amount_currency, funded_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ivt.ID.String(), ivt.InvoiceID.String(), ivt.Investor.String(),
		ivt.Amount.Amount, ivt.Amount.Currency,
		ivt.FundedAt.UTC(), string(ivt.Status))
	if err != nil {
		if isDuplicate(err) {
			return ledger.ErrAlreadyExists
		}
		return fmt.Errorf("ledger/mysql: create investment: %w", err)
	}
	return nil
}

func (s *Store) GetInvestmentByInvoice(ctx context.Context, invoiceID id.ID) (*investment.Investment, error) {
	var (
		ivtID, invID, investor, currency, status string
		amount                                   int64
		fundedAt                                 time.Time
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, invoice_id, investor, amount_cents, amount_currency, funded_at, status
		FROM ledger_investments WHERE invoice_id = ?`, invoiceID.String()).
		Scan(&ivtID, &invID, &investor, &amount, &currency, &fundedAt, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrInvestmentNotFound
		}
		return nil, fmt.Errorf("ledger/mysql: get investment by invoice: %w", err)
	}

	parsedID, err := id.ParseKind(ivtID, id.KindInvestment)
	if err != nil {
		return nil, err
	}
	parsedInvID, err := id.ParseKind(invID, id.KindInvoice)
	if err != nil {
		return nil, err
	}

	return &investment.Investment{
		ID:        parsedID,
		InvoiceID: parsedInvID,
		Investor:  types.Address(investor),
		Amount:    types.New(amount, currency),
		FundedAt:  fundedAt,
		Status:    investment.Status(status),
	}, nil
}

func (s *Store) UpdateInvestment(ctx context.Context, ivt *investment.Investment) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ledger_investments SET
			invoice_id = ?, investor = ?, amount_cents = ?, amount_currency = ?,
			funded_at = ?, status = ?
		WHERE id = ?`,
		ivt.InvoiceID.String(), ivt.Investor.String(),
		ivt.Amount.Amount, ivt.Amount.Currency,
		ivt.FundedAt.UTC(), string(ivt.Status),
		ivt.ID.String())
	if err != nil {
		return fmt.Errorf("ledger/mysql: update investment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrInvestmentNotFound
	}
	return nil
}

// ==================== Escrow Store ====================

const escrowColumns = `id, invoice_id, investor, business, amount_cents,
	amount_currency, created_at, status`

func (s *Store) CreateEscrow(ctx context.Context, e *escrow.Escrow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_escrows (`+escrowColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.InvoiceID.String(), e.Investor.String(),
		e.Business.String(), e.Amount.Amount, e.Amount.Currency,
		e.CreatedAt.UTC(), string(e.Status))
	if err != nil {
		if isDuplicate(err) {
			return ledger.ErrAlreadyExists
		}
		return fmt.Errorf("ledger/mysql: create escrow: %w", err)
	}
	return nil
}

func (s *Store) GetEscrow(ctx context.Context, escrowID id.ID) (*escrow.Escrow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+escrowColumns+` FROM ledger_escrows WHERE id = ?`,
		escrowID.String())
	return s.scanEscrowRow(row)
}

func (s *Store) GetEscrowByInvoice(ctx context.Context, invoiceID id.ID) (*escrow.Escrow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+escrowColumns+` FROM ledger_escrows WHERE invoice_id = ?`,
		invoiceID.String())
	return s.scanEscrowRow(row)
}

func (s *Store) scanEscrowRow(row *sql.Row) (*escrow.Escrow, error) {
	e, err := scanEscrow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrEscrowNotFound
		}
		return nil, fmt.Errorf("ledger/mysql: get escrow: %w", err)
	}
	return e, nil
}

func (s *Store) UpdateEscrow(ctx context.Context, e *escrow.Escrow) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ledger_escrows SET
			invoice_id = ?, investor = ?, business = ?, amount_cents = ?,
			amount_currency = ?, created_at = ?, status = ?
		WHERE id = ?`,
		e.InvoiceID.String(), e.Investor.String(), e.Business.String(),
		e.Amount.Amount, e.Amount.Currency,
		e.CreatedAt.UTC(), string(e.Status),
		e.ID.String())
	if err != nil {
		return fmt.Errorf("ledger/mysql: update escrow: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrEscrowNotFound
	}
	return nil
}

// ==================== Audit Store ====================

const auditColumns = `id, invoice_id, operation, actor, ts, day_bucket,
	old_value, new_value, amount_cents, amount_currency, context, block_height`

func (s *Store) AppendAuditEntry(ctx context.Context, e *audit.Entry) error {
	var (
		amountCents    sql.NullInt64
		amountCurrency string
	)
	if e.Amount != nil {
		amountCents = sql.NullInt64{Int64: e.Amount.Amount, Valid: true}
		amountCurrency = e.Amount.Currency
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_audit_entries (`+auditColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.InvoiceID.String(), string(e.Operation),
		e.Actor.String(), e.Timestamp.UTC(), e.DayBucket(),
		e.OldValue, e.NewValue, amountCents, amountCurrency,
		e.Context, e.BlockHeight)
	if err != nil {
		if isDuplicate(err) {
			return ledger.ErrAlreadyExists
		}
		return fmt.Errorf("ledger/mysql: append audit entry: %w", err)
	}
	return nil
}

func (s *Store) GetAuditEntry(ctx context.Context, entryID id.ID) (*audit.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+auditColumns+` FROM ledger_audit_entries WHERE id = ?`,
		entryID.String())

	e, err := scanAuditEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrAuditEntryNotFound
		}
		return nil, fmt.Errorf("ledger/mysql: get audit entry: %w", err)
	}
	return e, nil
}

func (s *Store) ListAuditByInvoice(ctx context.Context, invoiceID id.ID) ([]*audit.Entry, error) {
	return s.listAudit(ctx, `WHERE invoice_id = ?`, invoiceID.String())
}

func (s *Store) ListAuditByOperation(ctx context.Context, op audit.Operation) ([]*audit.Entry, error) {
	return s.listAudit(ctx, `WHERE operation = ?`, string(op))
}

func (s *Store) ListAuditByActor(ctx context.Context, actor types.Address) ([]*audit.Entry, error) {
	return s.listAudit(ctx, `WHERE actor = ?`, actor.String())
}

func (s *Store) ListAuditByDayBucket(ctx context.Context, bucket int64) ([]*audit.Entry, error) {
	return s.listAudit(ctx, `WHERE day_bucket = ?`, bucket)
}

func (s *Store) ListAuditAll(ctx context.Context) ([]*audit.Entry, error) {
	return s.listAudit(ctx, ``)
}

func (s *Store) CountAuditEntries(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_audit_entries`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("ledger/mysql: count audit entries: %w", err)
	}
	return n, nil
}

// listAudit returns entries in append order.
func (s *Store) listAudit(ctx context.Context, where string, args ...any) ([]*audit.Entry, error) {
	query := `SELECT ` + auditColumns + ` FROM ledger_audit_entries `
	if where != "" {
		query += where + " "
	}
	query += `ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger/mysql: list audit entries: %w", err)
	}
	defer rows.Close()

	var result []*audit.Entry
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("ledger/mysql: scan audit entry: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger/mysql: list audit entries: %w", err)
	}
	return result, nil
}

// ==================== Backup Store ====================

const backupColumns = `id, created_at, created_by, description, status,
	invoice_count, invoices`

func (s *Store) CreateBackup(ctx context.Context, b *backup.Backup) error {
	invoices, err := json.Marshal(b.Invoices)
	if err != nil {
		return fmt.Errorf("ledger/mysql: marshal backup invoices: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ledger_backups (`+backupColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID.String(), b.CreatedAt.UTC(), b.CreatedBy.String(),
		b.Description, string(b.Status), b.InvoiceCount, invoices)
	if err != nil {
		if isDuplicate(err) {
			return ledger.ErrAlreadyExists
		}
		return fmt.Errorf("ledger/mysql: create backup: %w", err)
	}
	return nil
}

func (s *Store) GetBackup(ctx context.Context, backupID id.ID) (*backup.Backup, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+backupColumns+` FROM ledger_backups WHERE id = ?`,
		backupID.String())

	b, err := scanBackup(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrBackupNotFound
		}
		return nil, fmt.Errorf("ledger/mysql: get backup: %w", err)
	}
	return b, nil
}

func (s *Store) UpdateBackup(ctx context.Context, b *backup.Backup) error {
	invoices, err := json.Marshal(b.Invoices)
	if err != nil {
		return fmt.Errorf("ledger/mysql: marshal backup invoices: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE ledger_backups SET
			created_at = ?, created_by = ?, description = ?, status = ?,
			invoice_count = ?, invoices = ?
		WHERE id = ?`,
		b.CreatedAt.UTC(), b.CreatedBy.String(), b.Description,
		string(b.Status), b.InvoiceCount, invoices,
		b.ID.String())
	if err != nil {
		return fmt.Errorf("ledger/mysql: update backup: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrBackupNotFound
	}
	return nil
}

func (s *Store) ListActiveBackups(ctx context.Context) ([]*backup.Backup, error) {
	return s.listBackups(ctx, `
		SELECT `+backupColumns+` FROM ledger_backups
		WHERE status = ? ORDER BY created_at, id`, string(backup.StatusActive))
}

func (s *Store) ListAllBackups(ctx context.Context) ([]*backup.Backup, error) {
	return s.listBackups(ctx, `
		SELECT `+backupColumns+` FROM ledger_backups ORDER BY created_at, id`)
}

func (s *Store) listBackups(ctx context.Context, query string, args ...any) ([]*backup.Backup, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger/mysql: list backups: %w", err)
	}
	defer rows.Close()

	var result []*backup.Backup
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("ledger/mysql: scan backup: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger/mysql: list backups: %w", err)
	}
	return result, nil
}

// ==================== Verification Store ====================

const verificationColumns = `business, status, kyc_data, submitted_at,
	reviewed_at, reviewed_by, rejection_reason`

func (s *Store) PutVerification(ctx context.Context, v *verification.BusinessVerification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_verifications (`+verificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			status = VALUES(status), kyc_data = VALUES(kyc_data),
			submitted_at = VALUES(submitted_at), reviewed_at = VALUES(reviewed_at),
			reviewed_by = VALUES(reviewed_by),
			rejection_reason = VALUES(rejection_reason)`,
		v.Business.String(), string(v.Status), v.KYCData,
		v.SubmittedAt.UTC(), nullTime(v.ReviewedAt), v.ReviewedBy.String(),
		v.RejectionReason)
	if err != nil {
		return fmt.Errorf("ledger/mysql: put verification: %w", err)
	}
	return nil
}

func (s *Store) GetVerification(ctx context.Context, business types.Address) (*verification.BusinessVerification, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+verificationColumns+` FROM ledger_verifications
		WHERE business = ?`, business.String())

	v, err := scanVerification(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrKYCNotFound
		}
		return nil, fmt.Errorf("ledger/mysql: get verification: %w", err)
	}
	return v, nil
}

func (s *Store) ListVerificationsByStatus(ctx context.Context, status verification.Status) ([]*verification.BusinessVerification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+verificationColumns+` FROM ledger_verifications
		WHERE status = ? ORDER BY submitted_at, business`, string(status))
	if err != nil {
		return nil, fmt.Errorf("ledger/mysql: list verifications: %w", err)
	}
	defer rows.Close()

	var result []*verification.BusinessVerification
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, fmt.Errorf("ledger/mysql: scan verification: %w", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger/mysql: list verifications: %w", err)
	}
	return result, nil
}

// ==================== Sequence and config ====================

// NextSequence uses the LAST_INSERT_ID counter idiom so the increment and
// read happen in one round trip.
func (s *Store) NextSequence(ctx context.Context, name string) (uint64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_sequences (name, value)
		VALUES (?, LAST_INSERT_ID(1))
		ON DUPLICATE KEY UPDATE value = LAST_INSERT_ID(value + 1)`, name)
	if err != nil {
		return 0, fmt.Errorf("ledger/mysql: next sequence: %w", err)
	}
	v, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ledger/mysql: next sequence: %w", err)
	}
	return uint64(v), nil
}

func (s *Store) SetAdmin(ctx context.Context, admin types.Address) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_config (k, v) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE v = VALUES(v)`,
		adminConfigKey, admin.String())
	if err != nil {
		return fmt.Errorf("ledger/mysql: set admin: %w", err)
	}
	return nil
}

func (s *Store) GetAdmin(ctx context.Context) (types.Address, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT v FROM ledger_config WHERE k = ?`, adminConfigKey).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("ledger/mysql: get admin: %w", err)
	}
	return types.Address(v), nil
}

// ==================== Scan helpers ====================

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row scanner) (*invoice.Invoice, error) {
	var (
		invID, business, currency, description, status string
		fundedCurrency, investor                       string
		amount, fundedAmount                           int64
		dueDate, createdAt, updatedAt                  time.Time
		fundedAt, settledAt                            sql.NullTime
		ratings                                        sql.NullString
		averageRating, totalRatings                    int
	)
	err := row.Scan(&invID, &business, &amount, &currency, &dueDate,
		&description, &status, &fundedAmount, &fundedCurrency,
		&fundedAt, &investor, &settledAt, &ratings, &averageRating,
		&totalRatings, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	parsedID, err := id.ParseKind(invID, id.KindInvoice)
	if err != nil {
		return nil, err
	}

	inv := &invoice.Invoice{
		ID:            parsedID,
		Business:      types.Address(business),
		Amount:        types.New(amount, currency),
		DueDate:       dueDate,
		Description:   description,
		Status:        invoice.Status(status),
		FundedAmount:  types.New(fundedAmount, fundedCurrency),
		FundedAt:      timePtr(fundedAt),
		Investor:      types.Address(investor),
		SettledAt:     timePtr(settledAt),
		AverageRating: averageRating,
		TotalRatings:  totalRatings,
		Entity: types.Entity{
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		},
	}
	if ratings.Valid && ratings.String != "" {
		if err := json.Unmarshal([]byte(ratings.String), &inv.Ratings); err != nil {
			return nil, fmt.Errorf("unmarshal ratings: %w", err)
		}
	}
	return inv, nil
}

func scanBid(row scanner) (*bid.Bid, error) {
	var (
		bidID, invID, investor, currency, retCurrency, status string
		amount, expectedReturn                                int64
		placedAt                                              time.Time
	)
	err := row.Scan(&bidID, &invID, &investor, &amount, &currency,
		&expectedReturn, &retCurrency, &placedAt, &status)
	if err != nil {
		return nil, err
	}

	parsedID, err := id.ParseKind(bidID, id.KindBid)
	if err != nil {
		return nil, err
	}
	parsedInvID, err := id.ParseKind(invID, id.KindInvoice)
	if err != nil {
		return nil, err
	}

	return &bid.Bid{
		ID:             parsedID,
		InvoiceID:      parsedInvID,
		Investor:       types.Address(investor),
		Amount:         types.New(amount, currency),
		ExpectedReturn: types.New(expectedReturn, retCurrency),
		PlacedAt:       placedAt,
		Status:         bid.Status(status),
	}, nil
}

func scanEscrow(row scanner) (*escrow.Escrow, error) {
	var (
		escID, invID, investor, business, currency, status string
		amount                                             int64
		createdAt                                          time.Time
	)
	err := row.Scan(&escID, &invID, &investor, &business, &amount,
		&currency, &createdAt, &status)
	if err != nil {
		return nil, err
	}

	parsedID, err := id.ParseKind(escID, id.KindEscrow)
	if err != nil {
		return nil, err
	}
	parsedInvID, err := id.ParseKind(invID, id.KindInvoice)
	if err != nil {
		return nil, err
	}

	return &escrow.Escrow{
		ID:        parsedID,
		InvoiceID: parsedInvID,
		Investor:  types.Address(investor),
		Business:  types.Address(business),
		Amount:    types.New(amount, currency),
		CreatedAt: createdAt,
		Status:    escrow.Status(status),
	}, nil
}

func scanAuditEntry(row scanner) (*audit.Entry, error) {
	var (
		entryID, invID, operation, actor       string
		oldValue, newValue, amountCurrency, ec string
		ts                                     time.Time
		dayBucket                              int64
		amountCents                            sql.NullInt64
		blockHeight                            uint64
	)
	err := row.Scan(&entryID, &invID, &operation, &actor, &ts, &dayBucket,
		&oldValue, &newValue, &amountCents, &amountCurrency, &ec, &blockHeight)
	if err != nil {
		return nil, err
	}

	parsedID, err := id.ParseKind(entryID, id.KindAudit)
	if err != nil {
		return nil, err
	}
	parsedInvID, err := id.ParseKind(invID, id.KindInvoice)
	if err != nil {
		return nil, err
	}

	e := &audit.Entry{
		ID:          parsedID,
		InvoiceID:   parsedInvID,
		Operation:   audit.Operation(operation),
		Actor:       types.Address(actor),
		Timestamp:   ts,
		OldValue:    oldValue,
		NewValue:    newValue,
		Context:     ec,
		BlockHeight: blockHeight,
	}
	if amountCents.Valid {
		amount := types.New(amountCents.Int64, amountCurrency)
		e.Amount = &amount
	}
	return e, nil
}

func scanBackup(row scanner) (*backup.Backup, error) {
	var (
		backupID, createdBy, description, status string
		createdAt                                time.Time
		invoiceCount                             int
		invoices                                 []byte
	)
	err := row.Scan(&backupID, &createdAt, &createdBy, &description,
		&status, &invoiceCount, &invoices)
	if err != nil {
		return nil, err
	}

	parsedID, err := id.ParseKind(backupID, id.KindBackup)
	if err != nil {
		return nil, err
	}

	b := &backup.Backup{
		ID:           parsedID,
		CreatedAt:    createdAt,
		CreatedBy:    types.Address(createdBy),
		Description:  description,
		Status:       backup.Status(status),
		InvoiceCount: invoiceCount,
	}
	if len(invoices) > 0 {
		if err := json.Unmarshal(invoices, &b.Invoices); err != nil {
			return nil, fmt.Errorf("unmarshal backup invoices: %w", err)
		}
	}
	return b, nil
}

func scanVerification(row scanner) (*verification.BusinessVerification, error) {
	var (
		business, status, kycData, reviewedBy, reason string
		submittedAt                                   time.Time
		reviewedAt                                    sql.NullTime
	)
	err := row.Scan(&business, &status, &kycData, &submittedAt,
		&reviewedAt, &reviewedBy, &reason)
	if err != nil {
		return nil, err
	}

	return &verification.BusinessVerification{
		Business:        types.Address(business),
		Status:          verification.Status(status),
		KYCData:         kycData,
		SubmittedAt:     submittedAt,
		ReviewedAt:      timePtr(reviewedAt),
		ReviewedBy:      types.Address(reviewedBy),
		RejectionReason: reason,
	}, nil
}

// marshalRatings serializes ratings to a nullable JSON column.
func marshalRatings(ratings []invoice.Rating) (any, error) {
	if len(ratings) == 0 {
		return nil, nil
	}
	return json.Marshal(ratings)
}

// nullTime converts a *time.Time to a driver-friendly NULL-able value.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// timePtr converts a NULL-able scan result back to a *time.Time.
func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// isDuplicate reports whether the error is a MySQL duplicate key error.
func isDuplicate(err error) bool {
	var me *mysqldriver.MySQLError
	return errors.As(err, &me) && me.Number == erDupEntry
}
