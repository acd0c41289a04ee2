package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/pulseboard-api/internal/domain"
)

// AccountStore defines the interface for account persistence, including the
// account side of the follow relation.
type AccountStore interface {
	// Create saves a new account.
	// Returns ErrEmailExists if the normalized email is taken by any account,
	// and ErrSubjectExists if the federated subject is already bound.
	Create(ctx context.Context, account *domain.Account) error

	// GetByID retrieves an account, including its following set.
	// Returns ErrAccountNotFound if the account does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)

	// GetByEmail retrieves an account by email, compared case-insensitively.
	// Returns ErrAccountNotFound if the account does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)

	// GetBySubject retrieves a federated account by provider and subject id.
	// Returns ErrAccountNotFound if no account is bound to the subject.
	GetBySubject(ctx context.Context, provider, subjectID string) (*domain.Account, error)

	// LockByID retrieves an account and holds a write lock on it until the
	// surrounding transaction ends. Concurrent toggles by one account
	// serialize on this lock. Outside a transaction it behaves like GetByID.
	LockByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)

	// GetFollowing returns the account's following set sorted ascending.
	// Returns ErrAccountNotFound if the account does not exist.
	GetFollowing(ctx context.Context, id uuid.UUID) ([]int64, error)

	// AddFollowing inserts clubID into the account's following set.
	// It reports false when the club was already present (nothing written).
	AddFollowing(ctx context.Context, id uuid.UUID, clubID int64) (bool, error)

	// RemoveFollowing deletes clubID from the account's following set.
	// It reports false when the club was not present (nothing written).
	RemoveFollowing(ctx context.Context, id uuid.UUID, clubID int64) (bool, error)

	// UpdatePushToken replaces the account's push notification token.
	// Returns ErrAccountNotFound if the account does not exist.
	UpdatePushToken(ctx context.Context, id uuid.UUID, token string) error
}
