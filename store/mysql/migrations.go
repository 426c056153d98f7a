package mysql

// Table definitions. Indexes are declared inline because older MySQL
// releases reject CREATE INDEX IF NOT EXISTS.

const tableInvoices = `
CREATE TABLE IF NOT EXISTS ledger_invoices (
    id                     VARCHAR(80)  NOT NULL PRIMARY KEY,
    business               VARCHAR(255) NOT NULL,
    amount_cents           BIGINT       NOT NULL,
    amount_currency        VARCHAR(8)   NOT NULL,
    due_date               DATETIME(6)  NOT NULL,
    description            TEXT         NOT NULL,
    status                 VARCHAR(16)  NOT NULL,
    funded_amount_cents    BIGINT       NOT NULL DEFAULT 0,
    funded_amount_currency VARCHAR(8)   NOT NULL DEFAULT '',
    funded_at              DATETIME(6)  NULL,
    investor               VARCHAR(255) NOT NULL DEFAULT '',
    settled_at             DATETIME(6)  NULL,
    ratings                JSON         NULL,
    average_rating         INT          NOT NULL DEFAULT 0,
    total_ratings          INT          NOT NULL DEFAULT 0,
    created_at             DATETIME(6)  NOT NULL,
    updated_at             DATETIME(6)  NOT NULL,
    KEY idx_invoices_business (business, created_at),
    KEY idx_invoices_status (status, created_at)
);`

const tableBids = `
CREATE TABLE IF NOT EXISTS ledger_bids (
    id                       VARCHAR(80)  NOT NULL PRIMARY KEY,
    invoice_id               VARCHAR(80)  NOT NULL,
    investor                 VARCHAR(255) NOT NULL,
    amount_cents             BIGINT       NOT NULL,
    amount_currency          VARCHAR(8)   NOT NULL,
    expected_return_cents    BIGINT       NOT NULL,
    expected_return_currency VARCHAR(8)   NOT NULL,
    placed_at                DATETIME(6)  NOT NULL,
    status                   VARCHAR(16)  NOT NULL,
    KEY idx_bids_invoice (invoice_id, placed_at),
    KEY idx_bids_investor (investor)
);`

const tableInvestments = `
CREATE TABLE IF NOT EXISTS ledger_investments (
    id              VARCHAR(80)  NOT NULL PRIMARY KEY,
    invoice_id      VARCHAR(80)  NOT NULL,
    investor        VARCHAR(255) NOT NULL,
    amount_cents    BIGINT       NOT NULL,
    amount_currency VARCHAR(8)   NOT NULL,
    funded_at       DATETIME(6)  NOT NULL,
    status          VARCHAR(16)  NOT NULL,
    UNIQUE KEY idx_investments_invoice (invoice_id)
);`

const tableEscrows = `
CREATE TABLE IF NOT EXISTS ledger_escrows (
    id              VARCHAR(80)  NOT NULL PRIMARY KEY,
    invoice_id      VARCHAR(80)  NOT NULL,
    investor        VARCHAR(255) NOT NULL,
    business        VARCHAR(255) NOT NULL,
    amount_cents    BIGINT       NOT NULL,
    amount_currency VARCHAR(8)   NOT NULL,
    created_at      DATETIME(6)  NOT NULL,
    status          VARCHAR(16)  NOT NULL,
    UNIQUE KEY idx_escrows_invoice (invoice_id)
);`

const tableAuditEntries = `
CREATE TABLE IF NOT EXISTS ledger_audit_entries (
    id              VARCHAR(80)     NOT NULL PRIMARY KEY,
    seq             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
    invoice_id      VARCHAR(80)     NOT NULL,
    operation       VARCHAR(32)     NOT NULL,
    actor           VARCHAR(255)    NOT NULL,
    ts              DATETIME(6)     NOT NULL,
    day_bucket      BIGINT          NOT NULL,
    old_value       TEXT            NOT NULL,
    new_value       TEXT            NOT NULL,
    amount_cents    BIGINT          NULL,
    amount_currency VARCHAR(8)      NOT NULL DEFAULT '',
    context         TEXT            NOT NULL,
    block_height    BIGINT UNSIGNED NOT NULL,
    UNIQUE KEY idx_audit_seq (seq),
    KEY idx_audit_invoice (invoice_id, seq),
    KEY idx_audit_operation (operation, seq),
    KEY idx_audit_actor (actor, seq),
    KEY idx_audit_day (day_bucket, seq)
);`

const tableBackups = `
CREATE TABLE IF NOT EXISTS ledger_backups (
    id            VARCHAR(80)  NOT NULL PRIMARY KEY,
    created_at    DATETIME(6)  NOT NULL,
    created_by    VARCHAR(255) NOT NULL,
    description   TEXT         NOT NULL,
    status        VARCHAR(16)  NOT NULL,
    invoice_count INT          NOT NULL,
    invoices      LONGTEXT     NOT NULL,
    KEY idx_backups_status (status, created_at)
);`

const tableVerifications = `
CREATE TABLE IF NOT EXISTS ledger_verifications (
    business         VARCHAR(255) NOT NULL PRIMARY KEY,
    status           VARCHAR(16)  NOT NULL,
    kyc_data         TEXT         NOT NULL,
    submitted_at     DATETIME(6)  NOT NULL,
    reviewed_at      DATETIME(6)  NULL,
    reviewed_by      VARCHAR(255) NOT NULL DEFAULT '',
    rejection_reason TEXT         NOT NULL,
    KEY idx_verifications_status (status, submitted_at)
);`

const tableSequences = `
CREATE TABLE IF NOT EXISTS ledger_sequences (
    name  VARCHAR(64)     NOT NULL PRIMARY KEY,
    value BIGINT UNSIGNED NOT NULL
);`

const tableConfig = `
CREATE TABLE IF NOT EXISTS ledger_config (
    k VARCHAR(64) NOT NULL PRIMARY KEY,
    v TEXT        NOT NULL
);`

// allTables lists the DDL in creation order.
var allTables = []string{
	tableInvoices,
	tableBids,
	tableInvestments,
	tableEscrows,
	tableAuditEntries,
	tableBackups,
	tableVerifications,
	tableSequences,
	tableConfig,
}
