package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/pulseboard-api/internal/store"
)

// Transactor implements store.Transactor on a PostgreSQL connection pool.
// A transaction that fails with a serialization failure or deadlock is
// re-run according to its retry policy.
type Transactor struct {
	db       *sql.DB
	accounts *AccountStore
	clubs    *ClubStore
	retry    store.RetryPolicy
}

// Ensure Transactor implements store.Transactor interface
var _ store.Transactor = (*Transactor)(nil)

// NewTransactor creates a Transactor over db.
func NewTransactor(db *sql.DB, retry store.RetryPolicy, logger *slog.Logger) *Transactor {
	return &Transactor{
		db:       db,
		accounts: NewAccountStore(db, logger),
		clubs:    NewClubStore(db, logger),
		retry:    retry,
	}
}

// Accounts returns an account store whose statements run outside any transaction.
func (t *Transactor) Accounts() *AccountStore {
	return t.accounts
}

// Clubs returns a club store whose statements run outside any transaction.
func (t *Transactor) Clubs() *ClubStore {
	return t.clubs
}

// InTx implements store.Transactor.InTx
func (t *Transactor) InTx(ctx context.Context, fn func(ctx context.Context, s store.Stores) error) error {
	return store.WithConflictRetry(ctx, t.retry, func(ctx context.Context) error {
		err := store.RunInTransaction(ctx, t.db, func(ctx context.Context, tx *sql.Tx) error {
			return fn(ctx, store.Stores{
				Accounts: t.accounts.WithTx(tx),
				Clubs:    t.clubs.WithTx(tx),
			})
		})
		return MapError(err)
	})
}
