package postgres

import (
	"context"
	"fmt"

	"github.com/blackbunny/paranoia/internal/adapters/ports"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const createBankExchangesTable = `
CREATE TABLE IF NOT EXISTS bank_exchanges (
    id               UUID PRIMARY KEY,
    bank             TEXT        NOT NULL,
    transaction_type TEXT        NOT NULL,
    order_id         TEXT,
    request_data     TEXT        NOT NULL,
    response_data    TEXT,
    is_success       BOOLEAN     NOT NULL,
    response_code    TEXT,
    error            TEXT,
    elapsed_ms       BIGINT      NOT NULL,
    created_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bank_exchanges_order_id ON bank_exchanges (order_id);
`

const insertBankExchange = `
INSERT INTO bank_exchanges (
    id, bank, transaction_type, order_id, request_data, response_data,
    is_success, response_code, error, elapsed_ms, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// AuditRepository stores masked bank exchanges in the bank_exchanges table
type AuditRepository struct {
	db    execer
	newID func() uuid.UUID
}

// NewAuditRepository creates an audit repository on top of a pool or transaction
func NewAuditRepository(db execer) *AuditRepository {
	return &AuditRepository{db: db, newID: uuid.New}
}

// EnsureSchema creates the bank_exchanges table when it does not exist
func (r *AuditRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createBankExchangesTable); err != nil {
		return fmt.Errorf("create bank_exchanges: %w", err)
	}
	return nil
}

// Record implements ports.AuditRecorder
func (r *AuditRepository) Record(ctx context.Context, entry *ports.AuditEntry) error {
	_, err := r.db.Exec(ctx, insertBankExchange,
		r.newID(),
		entry.Bank,
		string(entry.TransactionType),
		nullText(entry.OrderID),
		entry.RequestData,
		nullText(entry.ResponseData),
		entry.IsSuccess,
		nullText(entry.ResponseCode),
		nullText(entry.Error),
		entry.Elapsed.Milliseconds(),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert bank exchange: %w", err)
	}
	return nil
}

var _ ports.AuditRecorder = (*AuditRepository)(nil)
