package mocks

import (
	"context"

	"github.com/phrazzld/pulseboard-api/internal/domain"
	"github.com/phrazzld/pulseboard-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// TestifyMockClubStore is a mock of store.ClubStore for use with testify/mock
type TestifyMockClubStore struct {
	mock.Mock
}

var _ store.ClubStore = (*TestifyMockClubStore)(nil)

// Create is a mock implementation of store.ClubStore.Create
func (m *TestifyMockClubStore) Create(ctx context.Context, club *domain.Club) error {
	args := m.Called(ctx, club)
	return args.Error(0)
}

// GetByID is a mock implementation of store.ClubStore.GetByID
func (m *TestifyMockClubStore) GetByID(ctx context.Context, clubID int64) (*domain.Club, error) {
	args := m.Called(ctx, clubID)
	if club, ok := args.Get(0).(*domain.Club); ok {
		return club, args.Error(1)
	}
	return nil, args.Error(1)
}

// List is a mock implementation of store.ClubStore.List
func (m *TestifyMockClubStore) List(ctx context.Context) ([]*domain.Club, error) {
	args := m.Called(ctx)
	clubs, _ := args.Get(0).([]*domain.Club)
	return clubs, args.Error(1)
}

// AdjustFollowerCount is a mock implementation of store.ClubStore.AdjustFollowerCount
func (m *TestifyMockClubStore) AdjustFollowerCount(ctx context.Context, clubID int64, delta int) (int, error) {
	args := m.Called(ctx, clubID, delta)
	return args.Int(0), args.Error(1)
}

// ReconcileFollowerCounts is a mock implementation of store.ClubStore.ReconcileFollowerCounts
func (m *TestifyMockClubStore) ReconcileFollowerCounts(ctx context.Context) ([]store.FollowerDrift, error) {
	args := m.Called(ctx)
	drifts, _ := args.Get(0).([]store.FollowerDrift)
	return drifts, args.Error(1)
}
