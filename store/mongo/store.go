// Package mongo implements the ledger store on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

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

// Collection name constants.
const (
	colInvoices      = "ledger_invoices"
	colBids          = "ledger_bids"
	colInvestments   = "ledger_investments"
	colEscrows       = "ledger_escrows"
	colAuditEntries  = "ledger_audit_entries"
	colBackups       = "ledger_backups"
	colVerifications = "ledger_verifications"
	colSequences     = "ledger_sequences"
	colConfig        = "ledger_config"
)

// seqAuditEntries orders the append-only audit trail across writers.
const seqAuditEntries = "audit_entries"

// adminConfigKey is the config document holding the admin address.
const adminConfigKey = "admin"

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store on MongoDB.
type Store struct {
	db *mongo.Database
}

// New creates a new MongoDB store on the given database.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// DB returns the underlying database for direct access.
func (s *Store) DB() *mongo.Database { return s.db }

// Migrate creates indexes for all ledger collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.db.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("ledger/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Client().Disconnect(context.Background())
}

// ==================== Invoice Store ====================

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	m := toInvoiceModel(inv)
	_, err := s.db.Collection(colInvoices).InsertOne(ctx, m)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ledger.ErrAlreadyExists
		}
		return fmt.Errorf("ledger/mongo: create invoice: %w", err)
	}
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	var m invoiceModel
	err := s.db.Collection(colInvoices).
		FindOne(ctx, bson.M{"_id": invoiceID.String()}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, ledger.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("ledger/mongo: get invoice: %w", err)
	}
	return fromInvoiceModel(&m)
}

// UpdateInvoice replaces the stored document. The previous status is only
// needed by backends that maintain per-status buckets; here status is a
// plain indexed field, so the hint is unused.
func (s *Store) UpdateInvoice(ctx context.Context, inv *invoice.Invoice, _ invoice.Status) error {
	m := toInvoiceModel(inv)
	res, err := s.db.Collection(colInvoices).
		ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("ledger/mongo: update invoice: %w", err)
	}
	if res.MatchedCount == 0 {
		return ledger.ErrInvoiceNotFound
	}
	return nil
}

func (s *Store) ListInvoicesByBusiness(ctx context.Context, business types.Address) ([]*invoice.Invoice, error) {
	return s.listInvoices(ctx, bson.M{"business": business.String()})
}

func (s *Store) ListInvoicesByStatus(ctx context.Context, status invoice.Status) ([]*invoice.Invoice, error) {
	return s.listInvoices(ctx, bson.M{"status": string(status)})
}

func (s *Store) CountInvoicesByStatus(ctx context.Context, status invoice.Status) (int, error) {
	n, err := s.db.Collection(colInvoices).
		CountDocuments(ctx, bson.M{"status": string(status)})
	if err != nil {
		return 0, fmt.Errorf("ledger/mongo: count invoices: %w", err)
	}
	return int(n), nil
}

func (s *Store) DeleteAllInvoices(ctx context.Context) error {
	_, err := s.db.Collection(colInvoices).DeleteMany(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("ledger/mongo: delete all invoices: %w", err)
	}
	return nil
}

func (s *Store) listInvoices(ctx context.Context, filter bson.M) ([]*invoice.Invoice, error) {
	cursor, err := s.db.Collection(colInvoices).
		Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("ledger/mongo: list invoices: %w", err)
	}
	defer cursor.Close(ctx)

	var models []invoiceModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("ledger/mongo: list invoices decode: %w", err)
	}

	result := make([]*invoice.Invoice, len(models))
	for i := range models {
		inv, err := fromInvoiceModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = inv
	}
	return result, nil
}

// ==================== Bid Store ====================

func (s *Store) CreateBid(ctx context.Context, b *bid.Bid) error {
	m := toBidModel(b)
	_, err := s.db.Collection(colBids).InsertOne(ctx, m)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ledger.ErrAlreadyExists
		}
		return fmt.Errorf("ledger/mongo: create bid: %w", err)
	}
	return nil
}

func (s *Store) GetBid(ctx context.Context, bidID id.ID) (*bid.Bid, error) {
	var m bidModel
	err := s.db.Collection(colBids).
		FindOne(ctx, bson.M{"_id": bidID.String()}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, ledger.ErrBidNotFound
		}
		return nil, fmt.Errorf("ledger/mongo: get bid: %w", err)
	}
	return fromBidModel(&m)
}

func (s *Store) UpdateBid(ctx context.Context, b *bid.Bid) error {
	m := toBidModel(b)
	res, err := s.db.Collection(colBids).
		ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("ledger/mongo: update bid: %w", err)
	}
	if res.MatchedCount == 0 {
		return ledger.ErrBidNotFound
	}
	return nil
}

func (s *Store) ListBidsByInvoice(ctx context.Context, invoiceID id.ID) ([]*bid.Bid, error) {
	cursor, err := s.db.Collection(colBids).
		Find(ctx, bson.M{"invoice_id": invoiceID.String()},
			options.Find().SetSort(bson.D{{Key: "placed_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("ledger/mongo: list bids: %w", err)
	}
	defer cursor.Close(ctx)

	var models []bidModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("ledger/mongo: list bids decode: %w", err)
	}

	result := make([]*bid.Bid, len(models))
	for i := range models {
		b, err := fromBidModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = b
	}
	return result, nil
}

// ==================== Investment Store ====================

func (s *Store) CreateInvestment(ctx context.Context, ivt *investment.Investment) error {
	m := toInvestmentModel(ivt)
	_, err := s.db.Collection(colInvestments).InsertOne(ctx, m)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ledger.ErrAlreadyExists
		}
		return fmt.Errorf("ledger/mongo: create investment: %w", err)
	}
	return nil
}

func (s *Store) GetInvestmentByInvoice(ctx context.Context, invoiceID id.ID) (*investment.Investment, error) {
	var m investmentModel
	err := s.db.Collection(colInvestments).
		FindOne(ctx, bson.M{"invoice_id": invoiceID.String()}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, ledger.ErrInvestmentNotFound
		}
		return nil, fmt.Errorf("ledger/mongo: get investment by invoice: %w", err)
	}
	return fromInvestmentModel(&m)
}

func (s *Store) UpdateInvestment(ctx context.Context, ivt *investment.Investment) error {
	m := toInvestmentModel(ivt)
	res, err := s.db.Collection(colInvestments).
		ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("ledger/mongo: update investment: %w", err)
	}
	if res.MatchedCount == 0 {
		return ledger.ErrInvestmentNotFound
	}
	return nil
}

// ==================== Escrow Store ====================

func (s *Store) CreateEscrow(ctx context.Context, e *escrow.Escrow) error {
	m := toEscrowModel(e)
	_, err := s.db.Collection(colEscrows).InsertOne(ctx, m)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ledger.ErrAlreadyExists
		}
		return fmt.Errorf("ledger/mongo: create escrow: %w", err)
	}
	return nil
}

func (s *Store) GetEscrow(ctx context.Context, escrowID id.ID) (*escrow.Escrow, error) {
	var m escrowModel
	err := s.db.Collection(colEscrows).
		FindOne(ctx, bson.M{"_id": escrowID.String()}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, ledger.ErrEscrowNotFound
		}
		return nil, fmt.Errorf("ledger/mongo: get escrow: %w", err)
	}
	return fromEscrowModel(&m)
}

func (s *Store) GetEscrowByInvoice(ctx context.Context, invoiceID id.ID) (*escrow.Escrow, error) {
	var m escrowModel
	err := s.db.Collection(colEscrows).
		FindOne(ctx, bson.M{"invoice_id": invoiceID.String()}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, ledger.ErrEscrowNotFound
		}
		return nil, fmt.Errorf("ledger/mongo: get escrow by invoice: %w", err)
	}
	return fromEscrowModel(&m)
}

func (s *Store) UpdateEscrow(ctx context.Context, e *escrow.Escrow) error {
	m := toEscrowModel(e)
	res, err := s.db.Collection(colEscrows).
		ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("ledger/mongo: update escrow: %w", err)
	}
	if res.MatchedCount == 0 {
		return ledger.ErrEscrowNotFound
	}
	return nil
}

// ==================== Audit Store ====================

func (s *Store) AppendAuditEntry(ctx context.Context, e *audit.Entry) error {
	seq, err := s.NextSequence(ctx, seqAuditEntries)
	if err != nil {
		return fmt.Errorf("ledger/mongo: audit sequence: %w", err)
	}

	m := toAuditEntryModel(e, seq)
	_, err = s.db.Collection(colAuditEntries).InsertOne(ctx, m)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ledger.ErrAlreadyExists
		}
		return fmt.Errorf("ledger/mongo: append audit entry: %w", err)
	}
	return nil
}

func (s *Store) GetAuditEntry(ctx context.Context, entryID id.ID) (*audit.Entry, error) {
	var m auditEntryModel
	err := s.db.Collection(colAuditEntries).
		FindOne(ctx, bson.M{"_id": entryID.String()}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, ledger.ErrAuditEntryNotFound
		}
		return nil, fmt.Errorf("ledger/mongo: get audit entry: %w", err)
	}
	return fromAuditEntryModel(&m)
}

func (s *Store) ListAuditByInvoice(ctx context.Context, invoiceID id.ID) ([]*audit.Entry, error) {
	return s.listAudit(ctx, bson.M{"invoice_id": invoiceID.String()})
}

func (s *Store) ListAuditByOperation(ctx context.Context, op audit.Operation) ([]*audit.Entry, error) {
	return s.listAudit(ctx, bson.M{"operation": string(op)})
}

func (s *Store) ListAuditByActor(ctx context.Context, actor types.Address) ([]*audit.Entry, error) {
	return s.listAudit(ctx, bson.M{"actor": actor.String()})
}

func (s *Store) ListAuditByDayBucket(ctx context.Context, bucket int64) ([]*audit.Entry, error) {
	return s.listAudit(ctx, bson.M{"day_bucket": bucket})
}

func (s *Store) ListAuditAll(ctx context.Context) ([]*audit.Entry, error) {
	return s.listAudit(ctx, bson.M{})
}

func (s *Store) CountAuditEntries(ctx context.Context) (int, error) {
	n, err := s.db.Collection(colAuditEntries).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("ledger/mongo: count audit entries: %w", err)
	}
	return int(n), nil
}

// listAudit returns entries in append order.
func (s *Store) listAudit(ctx context.Context, filter bson.M) ([]*audit.Entry, error) {
	cursor, err := s.db.Collection(colAuditEntries).
		Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("ledger/mongo: list audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var models []auditEntryModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("ledger/mongo: list audit entries decode: %w", err)
	}

	result := make([]*audit.Entry, len(models))
	for i := range models {
		e, err := fromAuditEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// ==================== Backup Store ====================

func (s *Store) CreateBackup(ctx context.Context, b *backup.Backup) error {
	m := toBackupModel(b)
	_, err := s.db.Collection(colBackups).InsertOne(ctx, m)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ledger.ErrAlreadyExists
		}
		return fmt.Errorf("ledger/mongo: create backup: %w", err)
	}
	return nil
}

func (s *Store) GetBackup(ctx context.Context, backupID id.ID) (*backup.Backup, error) {
	var m backupModel
	err := s.db.Collection(colBackups).
		FindOne(ctx, bson.M{"_id": backupID.String()}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, ledger.ErrBackupNotFound
		}
		return nil, fmt.Errorf("ledger/mongo: get backup: %w", err)
	}
	return fromBackupModel(&m)
}

func (s *Store) UpdateBackup(ctx context.Context, b *backup.Backup) error {
	m := toBackupModel(b)
	res, err := s.db.Collection(colBackups).
		ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("ledger/mongo: update backup: %w", err)
	}
	if res.MatchedCount == 0 {
		return ledger.ErrBackupNotFound
	}
	return nil
}

func (s *Store) ListActiveBackups(ctx context.Context) ([]*backup.Backup, error) {
	return s.listBackups(ctx, bson.M{"status": string(backup.StatusActive)})
}

func (s *Store) ListAllBackups(ctx context.Context) ([]*backup.Backup, error) {
	return s.listBackups(ctx, bson.M{})
}

// listBackups returns backups oldest first so retention pruning can archive
// from the front.
func (s *Store) listBackups(ctx context.Context, filter bson.M) ([]*backup.Backup, error) {
	cursor, err := s.db.Collection(colBackups).
		Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("ledger/mongo: list backups: %w", err)
	}
	defer cursor.Close(ctx)

	var models []backupModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("ledger/mongo: list backups decode: %w", err)
	}

	result := make([]*backup.Backup, len(models))
	for i := range models {
		b, err := fromBackupModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = b
	}
	return result, nil
}

// ==================== Verification Store ====================

func (s *Store) PutVerification(ctx context.Context, v *verification.BusinessVerification) error {
	m := toVerificationModel(v)
	_, err := s.db.Collection(colVerifications).
		ReplaceOne(ctx, bson.M{"_id": m.Business}, m,
			options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("ledger/mongo: put verification: %w", err)
	}
	return nil
}

func (s *Store) GetVerification(ctx context.Context, business types.Address) (*verification.BusinessVerification, error) {
	var m verificationModel
	err := s.db.Collection(colVerifications).
		FindOne(ctx, bson.M{"_id": business.String()}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, ledger.ErrKYCNotFound
		}
		return nil, fmt.Errorf("ledger/mongo: get verification: %w", err)
	}
	return fromVerificationModel(&m), nil
}

func (s *Store) ListVerificationsByStatus(ctx context.Context, status verification.Status) ([]*verification.BusinessVerification, error) {
	cursor, err := s.db.Collection(colVerifications).
		Find(ctx, bson.M{"status": string(status)},
			options.Find().SetSort(bson.D{{Key: "submitted_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("ledger/mongo: list verifications: %w", err)
	}
	defer cursor.Close(ctx)

	var models []verificationModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("ledger/mongo: list verifications decode: %w", err)
	}

	result := make([]*verification.BusinessVerification, len(models))
	for i := range models {
		result[i] = fromVerificationModel(&models[i])
	}
	return result, nil
}

// ==================== Sequence and config ====================

func (s *Store) NextSequence(ctx context.Context, name string) (uint64, error) {
	var m sequenceModel
	err := s.db.Collection(colSequences).
		FindOneAndUpdate(ctx,
			bson.M{"_id": name},
			bson.M{"$inc": bson.M{"value": int64(1)}},
			options.FindOneAndUpdate().
				SetUpsert(true).
				SetReturnDocument(options.After)).
		Decode(&m)
	if err != nil {
		return 0, fmt.Errorf("ledger/mongo: next sequence: %w", err)
	}
	return m.Value, nil
}

func (s *Store) SetAdmin(ctx context.Context, admin types.Address) error {
	m := &configModel{Key: adminConfigKey, Value: admin.String()}
	_, err := s.db.Collection(colConfig).
		ReplaceOne(ctx, bson.M{"_id": adminConfigKey}, m,
			options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("ledger/mongo: set admin: %w", err)
	}
	return nil
}

func (s *Store) GetAdmin(ctx context.Context) (types.Address, error) {
	var m configModel
	err := s.db.Collection(colConfig).
		FindOne(ctx, bson.M{"_id": adminConfigKey}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return "", nil
		}
		return "", fmt.Errorf("ledger/mongo: get admin: %w", err)
	}
	return types.Address(m.Value), nil
}

// ==================== Helpers ====================

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all ledger collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colInvoices: {
			{Keys: bson.D{{Key: "business", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colBids: {
			{Keys: bson.D{{Key: "invoice_id", Value: 1}, {Key: "placed_at", Value: 1}}},
			{Keys: bson.D{{Key: "investor", Value: 1}}},
		},
		colInvestments: {
			{
				Keys:    bson.D{{Key: "invoice_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colEscrows: {
			{
				Keys:    bson.D{{Key: "invoice_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colAuditEntries: {
			{
				Keys:    bson.D{{Key: "seq", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "invoice_id", Value: 1}, {Key: "seq", Value: 1}}},
			{Keys: bson.D{{Key: "operation", Value: 1}, {Key: "seq", Value: 1}}},
			{Keys: bson.D{{Key: "actor", Value: 1}, {Key: "seq", Value: 1}}},
			{Keys: bson.D{{Key: "day_bucket", Value: 1}, {Key: "seq", Value: 1}}},
		},
		colBackups: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colVerifications: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "submitted_at", Value: 1}}},
		},
	}
}
