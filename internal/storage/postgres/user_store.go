package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/storage"
)

// UserStore implements storage.UserStore using PostgreSQL.
type UserStore struct {
	pool *Pool
}

// NewUserStore creates a new UserStore.
func NewUserStore(pool *Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Compile-time interface check.
var _ storage.UserStore = (*UserStore)(nil)

const userColumns = `
	id, name, email, email_verified, password_hash, role, wallet, currency,
	pincode_enabled, pincode_verification_id, two_factor_enabled, two_factor_verification_id,
	secret_codes_confirmed, secret_code_verification_id, banned, ban_reason,
	kyc_verified_at, last_login_at, created_at, updated_at
`

// Create adds a user. Returns ErrDuplicateKey if the email or id exists.
func (s *UserStore) Create(ctx context.Context, u *domain.User) (err error) {
	start := time.Now()
	defer func() { observe("users.create", start, err) }()
	if u == nil || u.ID == "" || u.Email == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err = s.pool.Exec(ctx, query,
		u.ID, u.Name, u.Email, u.EmailVerified, u.PasswordHash, string(u.Role), u.Wallet, string(u.Currency),
		u.PincodeEnabled, u.PincodeVerificationID, u.TwoFactorEnabled, u.TwoFactorVerificationID,
		u.SecretCodesConfirmed, u.SecretCodeVerificationID, u.Banned, u.BanReason,
		u.KYCVerifiedAt, u.LastLoginAt, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user. Returns ErrNotFound if not exists.
func (s *UserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.getOne(ctx, "users.get_by_id", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail retrieves a user by case-insensitive email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx, "users.get_by_email", `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

// GetByWallet retrieves a user by wallet address.
func (s *UserStore) GetByWallet(ctx context.Context, wallet string) (*domain.User, error) {
	return s.getOne(ctx, "users.get_by_wallet", `SELECT `+userColumns+` FROM users WHERE lower(wallet) = lower($1) LIMIT 1`, wallet)
}

func (s *UserStore) getOne(ctx context.Context, op, query string, arg any) (u *domain.User, err error) {
	start := time.Now()
	defer func() { observe(op, start, err) }()
	u, err = scanUser(s.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// Update replaces the mutable fields of a user.
func (s *UserStore) Update(ctx context.Context, u *domain.User) (err error) {
	start := time.Now()
	defer func() { observe("users.update", start, err) }()
	if u == nil || u.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE users SET
			name = $2, email = $3, email_verified = $4, password_hash = $5, role = $6, wallet = $7, currency = $8,
			pincode_enabled = $9, pincode_verification_id = $10, two_factor_enabled = $11, two_factor_verification_id = $12,
			secret_codes_confirmed = $13, secret_code_verification_id = $14, banned = $15, ban_reason = $16,
			kyc_verified_at = $17, last_login_at = $18, updated_at = $19
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query,
		u.ID, u.Name, u.Email, u.EmailVerified, u.PasswordHash, string(u.Role), u.Wallet, string(u.Currency),
		u.PincodeEnabled, u.PincodeVerificationID, u.TwoFactorEnabled, u.TwoFactorVerificationID,
		u.SecretCodesConfirmed, u.SecretCodeVerificationID, u.Banned, u.BanReason,
		u.KYCVerifiedAt, u.LastLoginAt, u.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// List returns users newest first. A non-positive limit returns all.
func (s *UserStore) List(ctx context.Context, limit, offset int) (users []*domain.User, err error) {
	start := time.Now()
	defer func() { observe("users.list", start, err) }()

	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, id ASC OFFSET $1`
	args := []any{offset}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users = []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// scanUser scans a single row into User.
func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u        domain.User
		role     string
		currency string
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.EmailVerified, &u.PasswordHash, &role, &u.Wallet, &currency,
		&u.PincodeEnabled, &u.PincodeVerificationID, &u.TwoFactorEnabled, &u.TwoFactorVerificationID,
		&u.SecretCodesConfirmed, &u.SecretCodeVerificationID, &u.Banned, &u.BanReason,
		&u.KYCVerifiedAt, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Role = domain.UserRole(role)
	u.Currency = domain.Currency(currency)
	return &u, nil
}
