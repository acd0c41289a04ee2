package service_test

import (
	"context"
	"testing"

	"github.com/phrazzld/pulseboard-api/internal/domain"
	"github.com/phrazzld/pulseboard-api/internal/mocks"
	"github.com/phrazzld/pulseboard-api/internal/service"
	"github.com/phrazzld/pulseboard-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestClubService_ListClubs(t *testing.T) {
	ctx := context.Background()
	chess, err := domain.NewClub(1, "Chess", "Weekly games", domain.CategoryOther)
	require.NoError(t, err)

	clubs := new(mocks.TestifyMockClubStore)
	clubs.On("List", mock.Anything).Return([]*domain.Club{chess}, nil).Once()
	clubs.On("List", mock.Anything).Return(nil, store.ErrStoreUnavailable).Once()
	svc := service.NewClubService(clubs, nil)

	got, err := svc.ListClubs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []*domain.Club{chess}, got)

	_, err = svc.ListClubs(ctx)
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)
	clubs.AssertExpectations(t)
}

func TestClubService_GetClub(t *testing.T) {
	ctx := context.Background()
	chess, err := domain.NewClub(1, "Chess", "Weekly games", domain.CategoryOther)
	require.NoError(t, err)

	tests := []struct {
		name    string
		clubID  int64
		storeFn func(m *mocks.TestifyMockClubStore)
		wantErr error
	}{
		{
			name:   "found",
			clubID: 1,
			storeFn: func(m *mocks.TestifyMockClubStore) {
				m.On("GetByID", mock.Anything, int64(1)).Return(chess, nil)
			},
		},
		{
			name:   "missing",
			clubID: 2,
			storeFn: func(m *mocks.TestifyMockClubStore) {
				m.On("GetByID", mock.Anything, int64(2)).Return(nil, store.ErrClubNotFound)
			},
			wantErr: service.ErrClubNotFound,
		},
		{
			name:    "non-positive id",
			clubID:  0,
			storeFn: func(*mocks.TestifyMockClubStore) {},
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clubs := new(mocks.TestifyMockClubStore)
			tt.storeFn(clubs)

			got, err := service.NewClubService(clubs, nil).GetClub(ctx, tt.clubID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, chess, got)
			}
			clubs.AssertExpectations(t)
		})
	}
}

func TestClubService_CreateClub(t *testing.T) {
	ctx := context.Background()

	t.Run("creates with zero followers", func(t *testing.T) {
		clubs := new(mocks.TestifyMockClubStore)
		clubs.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Club) bool {
			return c.ClubID == 4 && c.Name == "Robotics" && c.FollowerCount == 0
		})).Return(nil)

		club, err := service.NewClubService(clubs, nil).
			CreateClub(ctx, 4, " Robotics ", "Build robots", domain.CategoryTechnical)
		require.NoError(t, err)
		assert.Equal(t, domain.CategoryTechnical, club.Category)
		clubs.AssertExpectations(t)
	})

	t.Run("invalid category never reaches the store", func(t *testing.T) {
		clubs := new(mocks.TestifyMockClubStore)
		_, err := service.NewClubService(clubs, nil).
			CreateClub(ctx, 4, "Robotics", "Build robots", domain.Category("Gaming"))
		assert.ErrorIs(t, err, domain.ErrInvalidCategory)
		clubs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate", func(t *testing.T) {
		clubs := new(mocks.TestifyMockClubStore)
		clubs.On("Create", mock.Anything, mock.Anything).Return(store.ErrClubExists)

		_, err := service.NewClubService(clubs, nil).
			CreateClub(ctx, 4, "Robotics", "Build robots", domain.CategoryTechnical)
		assert.ErrorIs(t, err, service.ErrDuplicateClub)
	})
}
