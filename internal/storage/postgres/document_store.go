package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/storage"
)

// DocumentStore implements storage.DocumentStore using PostgreSQL.
type DocumentStore struct {
	pool *Pool
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(pool *Pool) *DocumentStore {
	return &DocumentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DocumentStore = (*DocumentStore)(nil)

const documentColumns = `id, asset, kind, file_name, content_type, size, object_key, uploaded_by, uploaded_at`

// Insert adds a document.
func (s *DocumentStore) Insert(ctx context.Context, d *domain.Document) (err error) {
	start := time.Now()
	defer func() { observe("documents.insert", start, err) }()
	if d == nil || d.ID == "" {
		return storage.ErrInvalidInput
	}

	_, err = s.pool.Exec(ctx, `INSERT INTO documents (`+documentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.Asset, string(d.Kind), d.FileName, d.ContentType, d.Size, d.ObjectKey, d.UploadedBy, d.UploadedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// Get retrieves a document.
func (s *DocumentStore) Get(ctx context.Context, id string) (d *domain.Document, err error) {
	start := time.Now()
	defer func() { observe("documents.get", start, err) }()

	d, err = scanDocument(s.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

// ListByAsset returns documents of an asset, newest first.
func (s *DocumentStore) ListByAsset(ctx context.Context, asset string) (out []*domain.Document, err error) {
	start := time.Now()
	defer func() { observe("documents.list_by_asset", start, err) }()

	rows, err := s.pool.Query(ctx, `SELECT `+documentColumns+` FROM documents WHERE lower(asset) = lower($1) ORDER BY uploaded_at DESC`, asset)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out = []*domain.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

// Delete removes a document.
func (s *DocumentStore) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { observe("documents.delete", start, err) }()

	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var (
		d    domain.Document
		kind string
	)
	if err := row.Scan(&d.ID, &d.Asset, &kind, &d.FileName, &d.ContentType, &d.Size, &d.ObjectKey, &d.UploadedBy, &d.UploadedAt); err != nil {
		return nil, err
	}
	d.Kind = domain.DocumentKind(kind)
	return &d, nil
}
