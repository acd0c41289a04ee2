package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/pulseboard-api/internal/domain"
	"github.com/phrazzld/pulseboard-api/internal/store"
)

// FaultFunc is consulted before every store operation; a non-nil return
// fails the operation with that error. Used to simulate partial failures.
type FaultFunc func(op string) error

type state struct {
	accounts map[uuid.UUID]domain.Account
	follows  map[uuid.UUID]map[int64]struct{}
	clubs    map[int64]domain.Club
}

func newState() *state {
	return &state{
		accounts: make(map[uuid.UUID]domain.Account),
		follows:  make(map[uuid.UUID]map[int64]struct{}),
		clubs:    make(map[int64]domain.Club),
	}
}

func (s *state) clone() *state {
	c := &state{
		accounts: maps.Clone(s.accounts),
		follows:  make(map[uuid.UUID]map[int64]struct{}, len(s.follows)),
		clubs:    maps.Clone(s.clubs),
	}
	for id, set := range s.follows {
		c.follows[id] = maps.Clone(set)
	}
	return c
}

type execFunc func(ctx context.Context, op string, f func(st *state) error) error

// DB is an in-memory database shared by the stores it hands out.
type DB struct {
	mu    sync.Mutex
	st    *state
	fault FaultFunc
}

// Ensure DB implements store.Transactor interface
var _ store.Transactor = (*DB)(nil)

// New creates an empty in-memory database.
func New() *DB {
	return &DB{st: newState()}
}

// SetFault installs f as the fault hook; nil removes it.
func (db *DB) SetFault(f FaultFunc) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.fault = f
}

// Accounts returns an account store whose operations each commit on their own.
func (db *DB) Accounts() *AccountStore {
	return &AccountStore{exec: db.autocommit}
}

// Clubs returns a club store whose operations each commit on their own.
func (db *DB) Clubs() *ClubStore {
	return &ClubStore{exec: db.autocommit}
}

// InTx implements store.Transactor. Transactions are fully serialized.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context, s store.Stores) error) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	work := db.st.clone()
	exec := func(ctx context.Context, op string, f func(st *state) error) error {
		if err := db.check(ctx, op); err != nil {
			return err
		}
		return f(work)
	}

	stores := store.Stores{
		Accounts: &AccountStore{exec: exec},
		Clubs:    &ClubStore{exec: exec, inTx: true},
	}
	if err := fn(ctx, stores); err != nil {
		return err
	}

	if err := checkContext(ctx); err != nil {
		return err
	}
	db.st = work
	return nil
}

func (db *DB) autocommit(ctx context.Context, op string, f func(st *state) error) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.check(ctx, op); err != nil {
		return err
	}
	work := db.st.clone()
	if err := f(work); err != nil {
		return err
	}
	db.st = work
	return nil
}

// check must be called with db.mu held.
func (db *DB) check(ctx context.Context, op string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if db.fault != nil {
		if err := db.fault(op); err != nil {
			return err
		}
	}
	return nil
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	return nil
}
