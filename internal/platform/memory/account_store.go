package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/pulseboard-api/internal/domain"
	"github.com/phrazzld/pulseboard-api/internal/store"
)

// AccountStore implements store.AccountStore in memory.
type AccountStore struct {
	exec execFunc
}

// Ensure AccountStore implements store.AccountStore interface
var _ store.AccountStore = (*AccountStore)(nil)

// Create implements store.AccountStore.Create
func (s *AccountStore) Create(ctx context.Context, account *domain.Account) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	return s.exec(ctx, "accounts.create", func(st *state) error {
		if _, exists := st.accounts[account.ID]; exists {
			return store.ErrDuplicate
		}
		for _, existing := range st.accounts {
			if domain.NormalizeEmail(existing.Email) == domain.NormalizeEmail(account.Email) {
				return store.ErrEmailExists
			}
			if fed, ok := account.Auth.(domain.FederatedAuth); ok {
				if other, ok := existing.Auth.(domain.FederatedAuth); ok && other == fed {
					return store.ErrSubjectExists
				}
			}
		}

		stored := *account
		stored.Following = nil
		st.accounts[account.ID] = stored
		st.follows[account.ID] = make(map[int64]struct{})
		return nil
	})
}

// GetByID implements store.AccountStore.GetByID
func (s *AccountStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.find(ctx, "accounts.get_by_id", func(a domain.Account) bool { return a.ID == id })
}

// GetByEmail implements store.AccountStore.GetByEmail
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	normalized := domain.NormalizeEmail(email)
	return s.find(ctx, "accounts.get_by_email", func(a domain.Account) bool {
		return domain.NormalizeEmail(a.Email) == normalized
	})
}

// GetBySubject implements store.AccountStore.GetBySubject
func (s *AccountStore) GetBySubject(ctx context.Context, provider, subjectID string) (*domain.Account, error) {
	want := domain.FederatedAuth{Provider: provider, SubjectID: subjectID}
	return s.find(ctx, "accounts.get_by_subject", func(a domain.Account) bool {
		fed, ok := a.Auth.(domain.FederatedAuth)
		return ok && fed == want
	})
}

// LockByID implements store.AccountStore.LockByID. Transactions already
// hold the database lock, so this is a plain read.
func (s *AccountStore) LockByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.find(ctx, "accounts.lock_by_id", func(a domain.Account) bool { return a.ID == id })
}

// GetFollowing implements store.AccountStore.GetFollowing
func (s *AccountStore) GetFollowing(ctx context.Context, id uuid.UUID) ([]int64, error) {
	var following []int64
	err := s.exec(ctx, "accounts.get_following", func(st *state) error {
		if _, ok := st.accounts[id]; !ok {
			return store.ErrAccountNotFound
		}
		following = followingOf(st, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return following, nil
}

// AddFollowing implements store.AccountStore.AddFollowing
func (s *AccountStore) AddFollowing(ctx context.Context, id uuid.UUID, clubID int64) (bool, error) {
	added := false
	err := s.exec(ctx, "accounts.add_following", func(st *state) error {
		if _, ok := st.accounts[id]; !ok {
			return store.ErrAccountNotFound
		}
		if _, ok := st.clubs[clubID]; !ok {
			return store.ErrClubNotFound
		}
		set := st.follows[id]
		if _, present := set[clubID]; present {
			return nil
		}
		set[clubID] = struct{}{}
		added = true
		return nil
	})
	return added, err
}

// RemoveFollowing implements store.AccountStore.RemoveFollowing
func (s *AccountStore) RemoveFollowing(ctx context.Context, id uuid.UUID, clubID int64) (bool, error) {
	removed := false
	err := s.exec(ctx, "accounts.remove_following", func(st *state) error {
		set, ok := st.follows[id]
		if !ok {
			return store.ErrAccountNotFound
		}
		if _, present := set[clubID]; !present {
			return nil
		}
		delete(set, clubID)
		removed = true
		return nil
	})
	return removed, err
}

// UpdatePushToken implements store.AccountStore.UpdatePushToken
func (s *AccountStore) UpdatePushToken(ctx context.Context, id uuid.UUID, token string) error {
	return s.exec(ctx, "accounts.update_push_token", func(st *state) error {
		account, ok := st.accounts[id]
		if !ok {
			return store.ErrAccountNotFound
		}
		account.PushToken = token
		st.accounts[id] = account
		return nil
	})
}

func (s *AccountStore) find(ctx context.Context, op string, match func(domain.Account) bool) (*domain.Account, error) {
	var found *domain.Account
	err := s.exec(ctx, op, func(st *state) error {
		for _, a := range st.accounts {
			if match(a) {
				account := a
				account.Following = followingOf(st, a.ID)
				found = &account
				return nil
			}
		}
		return store.ErrAccountNotFound
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func followingOf(st *state, id uuid.UUID) []int64 {
	ids := make([]int64, 0, len(st.follows[id]))
	for clubID := range st.follows[id] {
		ids = append(ids, clubID)
	}
	return domain.NormalizeClubIDs(ids)
}
