package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

const transactionColumns = `hash, from_address, function, asset, status, block_number, gas_used, revert_reason, created_at, updated_at`

// Insert adds a transaction. Hashes are stored lower-case.
func (s *TransactionStore) Insert(ctx context.Context, t *domain.Transaction) (err error) {
	start := time.Now()
	defer func() { observe("transactions.insert", start, err) }()
	if t == nil || t.Hash == "" {
		return storage.ErrInvalidInput
	}

	query := `INSERT INTO transactions (` + transactionColumns + `) VALUES (lower($1), $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = s.pool.Exec(ctx, query,
		t.Hash, t.From, t.Function, t.Asset, string(t.Status),
		t.BlockNumber, t.GasUsed, t.RevertReason, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// Get retrieves a transaction by hash.
func (s *TransactionStore) Get(ctx context.Context, hash string) (t *domain.Transaction, err error) {
	start := time.Now()
	defer func() { observe("transactions.get", start, err) }()

	t, err = scanTransaction(s.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE hash = lower($1)`, hash))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// UpdateStatus records the outcome of a transaction.
func (s *TransactionStore) UpdateStatus(ctx context.Context, hash string, status domain.TransactionStatus, receipt *domain.Receipt) (err error) {
	start := time.Now()
	defer func() { observe("transactions.update_status", start, err) }()

	var (
		block         int64
		gas, reason   string
		updateReceipt = receipt != nil
	)
	if receipt != nil {
		block, gas, reason = receipt.BlockNumber, receipt.GasUsed, receipt.RevertReason
	}

	query := `
		UPDATE transactions SET
			status = $2,
			block_number = CASE WHEN $3::boolean THEN $4::bigint ELSE block_number END,
			gas_used = CASE WHEN $3::boolean THEN $5::text ELSE gas_used END,
			revert_reason = CASE WHEN $3::boolean THEN $6::text ELSE revert_reason END,
			updated_at = now()
		WHERE hash = lower($1)
	`
	tag, err := s.pool.Exec(ctx, query, hash, string(status), updateReceipt, block, gas, reason)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListByAccount returns transactions sent from account, newest first.
func (s *TransactionStore) ListByAccount(ctx context.Context, from string, limit, offset int) (out []*domain.Transaction, err error) {
	start := time.Now()
	defer func() { observe("transactions.list_by_account", start, err) }()

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE lower(from_address) = lower($1) ORDER BY created_at DESC, hash ASC OFFSET $2`
	args := []any{from, offset}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out = []*domain.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t      domain.Transaction
		status string
	)
	err := row.Scan(&t.Hash, &t.From, &t.Function, &t.Asset, &status,
		&t.BlockNumber, &t.GasUsed, &t.RevertReason, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Status = domain.TransactionStatus(status)
	return &t, nil
}
