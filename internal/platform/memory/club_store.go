package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/phrazzld/pulseboard-api/internal/domain"
	"github.com/phrazzld/pulseboard-api/internal/store"
)

// ClubStore implements store.ClubStore in memory.
type ClubStore struct {
	exec execFunc
	inTx bool
}

// Ensure ClubStore implements store.ClubStore interface
var _ store.ClubStore = (*ClubStore)(nil)

// Create implements store.ClubStore.Create
func (s *ClubStore) Create(ctx context.Context, club *domain.Club) error {
	if err := club.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	return s.exec(ctx, "clubs.create", func(st *state) error {
		if _, exists := st.clubs[club.ClubID]; exists {
			return store.ErrClubExists
		}
		for _, existing := range st.clubs {
			if strings.EqualFold(existing.Name, club.Name) {
				return store.ErrClubExists
			}
		}
		st.clubs[club.ClubID] = *club
		return nil
	})
}

// GetByID implements store.ClubStore.GetByID
func (s *ClubStore) GetByID(ctx context.Context, clubID int64) (*domain.Club, error) {
	var found domain.Club
	err := s.exec(ctx, "clubs.get_by_id", func(st *state) error {
		club, ok := st.clubs[clubID]
		if !ok {
			return store.ErrClubNotFound
		}
		found = club
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

// List implements store.ClubStore.List
func (s *ClubStore) List(ctx context.Context) ([]*domain.Club, error) {
	var clubs []*domain.Club
	err := s.exec(ctx, "clubs.list", func(st *state) error {
		clubs = make([]*domain.Club, 0, len(st.clubs))
		for _, c := range st.clubs {
			club := c
			clubs = append(clubs, &club)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(clubs, func(a, b *domain.Club) int {
		return cmp.Compare(a.ClubID, b.ClubID)
	})
	return clubs, nil
}

// AdjustFollowerCount implements store.ClubStore.AdjustFollowerCount
func (s *ClubStore) AdjustFollowerCount(ctx context.Context, clubID int64, delta int) (int, error) {
	var count int
	err := s.exec(ctx, "clubs.adjust_follower_count", func(st *state) error {
		club, ok := st.clubs[clubID]
		if !ok {
			return store.ErrClubNotFound
		}
		if club.FollowerCount+delta < 0 {
			return store.ErrInvalidEntity
		}
		club.FollowerCount += delta
		st.clubs[clubID] = club
		count = club.FollowerCount
		return nil
	})
	return count, err
}

// ReconcileFollowerCounts implements store.ClubStore.ReconcileFollowerCounts
func (s *ClubStore) ReconcileFollowerCounts(ctx context.Context) ([]store.FollowerDrift, error) {
	if !s.inTx {
		return nil, store.ErrTxRequired
	}

	var drifts []store.FollowerDrift
	err := s.exec(ctx, "clubs.reconcile_follower_counts", func(st *state) error {
		actual := make(map[int64]int, len(st.clubs))
		for _, set := range st.follows {
			for clubID := range set {
				actual[clubID]++
			}
		}
		for id, club := range st.clubs {
			if club.FollowerCount == actual[id] {
				continue
			}
			drifts = append(drifts, store.FollowerDrift{
				ClubID:   id,
				Recorded: club.FollowerCount,
				Actual:   actual[id],
			})
			club.FollowerCount = actual[id]
			st.clubs[id] = club
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(drifts, func(a, b store.FollowerDrift) int {
		return cmp.Compare(a.ClubID, b.ClubID)
	})
	return drifts, nil
}
