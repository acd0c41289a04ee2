package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/pulseboard-api/internal/domain"
	"github.com/phrazzld/pulseboard-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// TestifyMockAccountStore is a mock of store.AccountStore for use with testify/mock
type TestifyMockAccountStore struct {
	mock.Mock
}

var _ store.AccountStore = (*TestifyMockAccountStore)(nil)

// Create is a mock implementation of store.AccountStore.Create
func (m *TestifyMockAccountStore) Create(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// GetByID is a mock implementation of store.AccountStore.GetByID
func (m *TestifyMockAccountStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	args := m.Called(ctx, id)
	return accountArg(args, 0), args.Error(1)
}

// GetByEmail is a mock implementation of store.AccountStore.GetByEmail
func (m *TestifyMockAccountStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	args := m.Called(ctx, email)
	return accountArg(args, 0), args.Error(1)
}

// GetBySubject is a mock implementation of store.AccountStore.GetBySubject
func (m *TestifyMockAccountStore) GetBySubject(
	ctx context.Context,
	provider, subjectID string,
) (*domain.Account, error) {
	args := m.Called(ctx, provider, subjectID)
	return accountArg(args, 0), args.Error(1)
}

// LockByID is a mock implementation of store.AccountStore.LockByID
func (m *TestifyMockAccountStore) LockByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	args := m.Called(ctx, id)
	return accountArg(args, 0), args.Error(1)
}

// GetFollowing is a mock implementation of store.AccountStore.GetFollowing
func (m *TestifyMockAccountStore) GetFollowing(ctx context.Context, id uuid.UUID) ([]int64, error) {
	args := m.Called(ctx, id)
	following, _ := args.Get(0).([]int64)
	return following, args.Error(1)
}

// AddFollowing is a mock implementation of store.AccountStore.AddFollowing
func (m *TestifyMockAccountStore) AddFollowing(ctx context.Context, id uuid.UUID, clubID int64) (bool, error) {
	args := m.Called(ctx, id, clubID)
	return args.Bool(0), args.Error(1)
}

// RemoveFollowing is a mock implementation of store.AccountStore.RemoveFollowing
func (m *TestifyMockAccountStore) RemoveFollowing(ctx context.Context, id uuid.UUID, clubID int64) (bool, error) {
	args := m.Called(ctx, id, clubID)
	return args.Bool(0), args.Error(1)
}

// UpdatePushToken is a mock implementation of store.AccountStore.UpdatePushToken
func (m *TestifyMockAccountStore) UpdatePushToken(ctx context.Context, id uuid.UUID, token string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

func accountArg(args mock.Arguments, i int) *domain.Account {
	if account, ok := args.Get(i).(*domain.Account); ok {
		return account
	}
	return nil
}
