package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/pulseboard-api/internal/domain"
	"github.com/phrazzld/pulseboard-api/internal/store"
)

const accountColumns = `id, display_name, email, auth_method, password_hash,
	provider, provider_subject, push_token, created_at, updated_at`

const (
	authMethodLocal     = "local"
	authMethodFederated = "federated"
)

// AccountStore implements the store.AccountStore interface
// using a PostgreSQL database as the storage backend.
type AccountStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewAccountStore creates a new PostgreSQL implementation of the AccountStore interface.
// It accepts a database connection or transaction that should be managed by the caller.
func NewAccountStore(db store.DBTX, logger *slog.Logger) *AccountStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountStore{
		db:     db,
		logger: logger.With("component", "account_store"),
	}
}

// Ensure AccountStore implements store.AccountStore interface
var _ store.AccountStore = (*AccountStore)(nil)

// WithTx returns a store whose queries run in tx.
func (s *AccountStore) WithTx(tx *sql.Tx) *AccountStore {
	return &AccountStore{db: tx, logger: s.logger}
}

// Create implements store.AccountStore.Create
func (s *AccountStore) Create(ctx context.Context, account *domain.Account) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	var method string
	var passwordHash, provider, subject sql.NullString
	switch auth := account.Auth.(type) {
	case domain.LocalAuth:
		method = authMethodLocal
		passwordHash = sql.NullString{String: auth.PasswordHash, Valid: true}
	case domain.FederatedAuth:
		method = authMethodFederated
		provider = sql.NullString{String: auth.Provider, Valid: true}
		subject = sql.NullString{String: auth.SubjectID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, display_name, email, auth_method, password_hash,
			provider, provider_subject, push_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		account.ID,
		account.DisplayName,
		domain.NormalizeEmail(account.Email),
		method,
		passwordHash,
		provider,
		subject,
		nullString(account.PushToken),
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		s.logger.Debug("failed to insert account",
			"account_id", account.ID,
			"auth_method", method,
			"error", err)
		return MapError(err)
	}
	return nil
}

// GetByID implements store.AccountStore.GetByID
func (s *AccountStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.getOne(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

// GetByEmail implements store.AccountStore.GetByEmail
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.getOne(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE lower(email) = $1`,
		domain.NormalizeEmail(email))
}

// GetBySubject implements store.AccountStore.GetBySubject
func (s *AccountStore) GetBySubject(
	ctx context.Context,
	provider, subjectID string,
) (*domain.Account, error) {
	return s.getOne(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE provider = $1 AND provider_subject = $2`,
		provider, subjectID)
}

// LockByID implements store.AccountStore.LockByID. The row lock is held
// until the surrounding transaction commits or rolls back.
func (s *AccountStore) LockByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.getOne(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
}

// GetFollowing implements store.AccountStore.GetFollowing
func (s *AccountStore) GetFollowing(ctx context.Context, id uuid.UUID) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.club_id
		FROM accounts a
		LEFT JOIN account_follows f ON f.account_id = a.id
		WHERE a.id = $1
		ORDER BY f.club_id`, id)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	found := false
	following := []int64{}
	for rows.Next() {
		found = true
		var clubID sql.NullInt64
		if err := rows.Scan(&clubID); err != nil {
			return nil, MapError(err)
		}
		if clubID.Valid {
			following = append(following, clubID.Int64)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	if !found {
		return nil, store.ErrAccountNotFound
	}
	return following, nil
}

// AddFollowing implements store.AccountStore.AddFollowing
func (s *AccountStore) AddFollowing(ctx context.Context, id uuid.UUID, clubID int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO account_follows (account_id, club_id)
		VALUES ($1, $2)
		ON CONFLICT (account_id, club_id) DO NOTHING`, id, clubID)
	if err != nil {
		return false, MapError(err)
	}
	return changedOne(result)
}

// RemoveFollowing implements store.AccountStore.RemoveFollowing
func (s *AccountStore) RemoveFollowing(
	ctx context.Context,
	id uuid.UUID,
	clubID int64,
) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM account_follows WHERE account_id = $1 AND club_id = $2`, id, clubID)
	if err != nil {
		return false, MapError(err)
	}
	return changedOne(result)
}

// UpdatePushToken implements store.AccountStore.UpdatePushToken
func (s *AccountStore) UpdatePushToken(ctx context.Context, id uuid.UUID, token string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET push_token = $2, updated_at = NOW()
		WHERE id = $1`, id, token)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrAccountNotFound)
}

func (s *AccountStore) getOne(ctx context.Context, query string, args ...any) (*domain.Account, error) {
	account, err := scanAccount(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAccountNotFound
		}
		return nil, MapError(err)
	}

	following, err := s.followingOf(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	account.Following = following
	return account, nil
}

func (s *AccountStore) followingOf(ctx context.Context, id uuid.UUID) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT club_id FROM account_follows WHERE account_id = $1 ORDER BY club_id`, id)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	following := []int64{}
	for rows.Next() {
		var clubID int64
		if err := rows.Scan(&clubID); err != nil {
			return nil, MapError(err)
		}
		following = append(following, clubID)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return following, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var a domain.Account
	var method string
	var passwordHash, provider, subject, pushToken sql.NullString
	err := row.Scan(
		&a.ID,
		&a.DisplayName,
		&a.Email,
		&method,
		&passwordHash,
		&provider,
		&subject,
		&pushToken,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	switch method {
	case authMethodLocal:
		a.Auth = domain.LocalAuth{PasswordHash: passwordHash.String}
	case authMethodFederated:
		a.Auth = domain.FederatedAuth{Provider: provider.String, SubjectID: subject.String}
	default:
		return nil, fmt.Errorf("%w: unknown auth method %q", store.ErrInvalidEntity, method)
	}
	a.PushToken = pushToken.String
	return &a, nil
}

func changedOne(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
