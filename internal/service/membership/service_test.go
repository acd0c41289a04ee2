package membership_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pulseboard-api/internal/domain"
	"github.com/phrazzld/pulseboard-api/internal/metrics"
	"github.com/phrazzld/pulseboard-api/internal/platform/memory"
	"github.com/phrazzld/pulseboard-api/internal/service/membership"
	"github.com/phrazzld/pulseboard-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// toggleSpy counts toggles, unavailability and drift.
type toggleSpy struct {
	metrics.Nop
	mu          sync.Mutex
	toggles     map[string]int
	unavailable map[string]int
	drift       int
}

func newToggleSpy() *toggleSpy {
	return &toggleSpy{toggles: map[string]int{}, unavailable: map[string]int{}}
}

func (s *toggleSpy) RecordToggle(direction string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toggles[direction]++
}

func (s *toggleSpy) RecordStoreUnavailable(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable[op]++
}

func (s *toggleSpy) RecordFollowerDrift(clubs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drift += clubs
}

type fixture struct {
	db  *memory.DB
	svc *membership.Service
	spy *toggleSpy
}

func newFixture(t *testing.T, timeout time.Duration) *fixture {
	t.Helper()
	db := memory.New()
	spy := newToggleSpy()
	svc, err := membership.NewService(db, db.Accounts(), timeout, spy, nil)
	require.NoError(t, err)
	return &fixture{db: db, svc: svc, spy: spy}
}

func (f *fixture) account(t *testing.T, email string) uuid.UUID {
	t.Helper()
	a, err := domain.NewLocalAccount("Member", email, "hash")
	require.NoError(t, err)
	require.NoError(t, f.db.Accounts().Create(context.Background(), a))
	return a.ID
}

func (f *fixture) club(t *testing.T, id int64) {
	t.Helper()
	c, err := domain.NewClub(id, fmt.Sprintf("Club %d", id), "A club", domain.CategoryOther)
	require.NoError(t, err)
	require.NoError(t, f.db.Clubs().Create(context.Background(), c))
}

func (f *fixture) followerCount(t *testing.T, id int64) int {
	t.Helper()
	c, err := f.db.Clubs().GetByID(context.Background(), id)
	require.NoError(t, err)
	return c.FollowerCount
}

func TestNewService_RequiresStores(t *testing.T) {
	db := memory.New()
	_, err := membership.NewService(nil, db.Accounts(), 0, nil, nil)
	assert.Error(t, err)
	_, err = membership.NewService(db, nil, 0, nil, nil)
	assert.Error(t, err)
}

func TestToggleFollow(t *testing.T) {
	ctx := context.Background()

	t.Run("follow then unfollow restores the original state", func(t *testing.T) {
		f := newFixture(t, time.Second)
		id := f.account(t, "ada@example.com")
		f.club(t, 7)

		res, err := f.svc.ToggleFollow(ctx, id, 7)
		require.NoError(t, err)
		assert.Equal(t, []int64{7}, res.Following)
		assert.True(t, res.Followed)
		assert.Equal(t, 1, res.FollowerCount)
		assert.Equal(t, 1, f.followerCount(t, 7))

		res, err = f.svc.ToggleFollow(ctx, id, 7)
		require.NoError(t, err)
		assert.Empty(t, res.Following)
		assert.False(t, res.Followed)
		assert.Equal(t, 0, f.followerCount(t, 7))

		assert.Equal(t, 1, f.spy.toggles[metrics.DirectionFollow])
		assert.Equal(t, 1, f.spy.toggles[metrics.DirectionUnfollow])
	})

	t.Run("following set is returned sorted", func(t *testing.T) {
		f := newFixture(t, time.Second)
		id := f.account(t, "ada@example.com")
		for _, club := range []int64{30, 10, 20} {
			f.club(t, club)
			_, err := f.svc.ToggleFollow(ctx, id, club)
			require.NoError(t, err)
		}

		following, err := f.svc.GetFollowing(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []int64{10, 20, 30}, following)
	})

	t.Run("unknown club", func(t *testing.T) {
		f := newFixture(t, time.Second)
		id := f.account(t, "ada@example.com")

		_, err := f.svc.ToggleFollow(ctx, id, 404)
		assert.ErrorIs(t, err, membership.ErrClubNotFound)

		following, err := f.svc.GetFollowing(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, following)
	})

	t.Run("unknown account", func(t *testing.T) {
		f := newFixture(t, time.Second)
		f.club(t, 1)

		_, err := f.svc.ToggleFollow(ctx, uuid.New(), 1)
		assert.ErrorIs(t, err, membership.ErrUnauthorized)
		assert.Equal(t, 0, f.followerCount(t, 1))
	})

	t.Run("invalid club id", func(t *testing.T) {
		f := newFixture(t, time.Second)
		for _, clubID := range []int64{0, -3} {
			_, err := f.svc.ToggleFollow(ctx, uuid.New(), clubID)
			assert.ErrorIs(t, err, domain.ErrValidation)
		}
	})

	t.Run("failure after the membership write rolls back both changes", func(t *testing.T) {
		f := newFixture(t, time.Second)
		id := f.account(t, "ada@example.com")
		f.club(t, 5)
		boom := errors.New("write failed")
		f.db.SetFault(func(op string) error {
			if op == "clubs.adjust_follower_count" {
				return boom
			}
			return nil
		})

		_, err := f.svc.ToggleFollow(ctx, id, 5)
		assert.ErrorIs(t, err, boom)

		f.db.SetFault(nil)
		following, err := f.svc.GetFollowing(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, following)
		assert.Equal(t, 0, f.followerCount(t, 5))
		assert.Zero(t, f.spy.toggles[metrics.DirectionFollow])
	})

	t.Run("slow store times out as unavailable", func(t *testing.T) {
		f := newFixture(t, 20*time.Millisecond)
		id := f.account(t, "ada@example.com")
		f.club(t, 5)
		f.db.SetFault(func(string) error {
			time.Sleep(60 * time.Millisecond)
			return nil
		})

		_, err := f.svc.ToggleFollow(ctx, id, 5)
		assert.ErrorIs(t, err, store.ErrStoreUnavailable)
		assert.Equal(t, 1, f.spy.unavailable["toggle_follow"])

		f.db.SetFault(nil)
		assert.Equal(t, 0, f.followerCount(t, 5), "nothing committed")
	})

	t.Run("drifted counter rejects unfollow", func(t *testing.T) {
		f := newFixture(t, time.Second)
		id := f.account(t, "ada@example.com")
		f.club(t, 5)
		_, err := f.db.Accounts().AddFollowing(ctx, id, 5)
		require.NoError(t, err)

		_, err = f.svc.ToggleFollow(ctx, id, 5)
		assert.ErrorIs(t, err, membership.ErrCounterDrift)

		following, err := f.svc.GetFollowing(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []int64{5}, following, "rolled back")
	})
}

// staleFollows reports every follow-set write as a no-op.
type staleFollows struct {
	store.AccountStore
}

func (staleFollows) AddFollowing(context.Context, uuid.UUID, int64) (bool, error) {
	return false, nil
}

func (staleFollows) RemoveFollowing(context.Context, uuid.UUID, int64) (bool, error) {
	return false, nil
}

// staleTransactor hands fn a stores bundle whose follow writes never change anything.
type staleTransactor struct {
	inner store.Transactor
}

func (s staleTransactor) InTx(ctx context.Context, fn func(context.Context, store.Stores) error) error {
	return s.inner.InTx(ctx, func(ctx context.Context, st store.Stores) error {
		st.Accounts = staleFollows{st.Accounts}
		return fn(ctx, st)
	})
}

func TestToggleFollow_UnchangedFollowSetAborts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Second)
	id := f.account(t, "ada@example.com")
	f.club(t, 5)

	svc, err := membership.NewService(staleTransactor{f.db}, f.db.Accounts(), time.Second, f.spy, nil)
	require.NoError(t, err)

	_, err = svc.ToggleFollow(ctx, id, 5)
	assert.ErrorIs(t, err, membership.ErrCounterDrift)
	assert.Equal(t, 0, f.followerCount(t, 5), "count not adjusted without a follow change")
	assert.Empty(t, f.spy.toggles)
}

func TestToggleFollow_Concurrency(t *testing.T) {
	ctx := context.Background()

	t.Run("distinct accounts following one club all count", func(t *testing.T) {
		f := newFixture(t, 5*time.Second)
		f.club(t, 1)
		const n = 50
		ids := make([]uuid.UUID, n)
		for i := range ids {
			ids[i] = f.account(t, fmt.Sprintf("m%d@example.com", i))
		}

		var wg sync.WaitGroup
		errs := make(chan error, n)
		for _, id := range ids {
			wg.Add(1)
			go func(id uuid.UUID) {
				defer wg.Done()
				_, err := f.svc.ToggleFollow(ctx, id, 1)
				errs <- err
			}(id)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
		assert.Equal(t, n, f.followerCount(t, 1))
	})

	t.Run("same pair toggled an even number of times ends where it started", func(t *testing.T) {
		f := newFixture(t, 5*time.Second)
		f.club(t, 1)
		id := f.account(t, "ada@example.com")
		const n = 20

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.svc.ToggleFollow(ctx, id, 1)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		following, err := f.svc.GetFollowing(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, following)
		assert.Equal(t, 0, f.followerCount(t, 1))
	})
}

func TestGetFollowing(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown account", func(t *testing.T) {
		f := newFixture(t, time.Second)
		_, err := f.svc.GetFollowing(ctx, uuid.New())
		assert.ErrorIs(t, err, membership.ErrUnauthorized)
	})

	t.Run("store unavailable", func(t *testing.T) {
		f := newFixture(t, time.Second)
		id := f.account(t, "ada@example.com")
		f.db.SetFault(func(string) error { return store.ErrStoreUnavailable })

		_, err := f.svc.GetFollowing(ctx, id)
		assert.ErrorIs(t, err, store.ErrStoreUnavailable)
		assert.Equal(t, 1, f.spy.unavailable["get_following"])
	})
}

func TestReconcileFollowerCounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Second)
	a := f.account(t, "a@example.com")
	b := f.account(t, "b@example.com")
	f.club(t, 1)
	f.club(t, 2)

	_, err := f.svc.ToggleFollow(ctx, a, 1)
	require.NoError(t, err)
	_, err = f.db.Accounts().AddFollowing(ctx, b, 1)
	require.NoError(t, err)
	_, err = f.db.Clubs().AdjustFollowerCount(ctx, 2, 3)
	require.NoError(t, err)

	drifts, err := f.svc.ReconcileFollowerCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []store.FollowerDrift{
		{ClubID: 1, Recorded: 1, Actual: 2},
		{ClubID: 2, Recorded: 3, Actual: 0},
	}, drifts)
	assert.Equal(t, 2, f.followerCount(t, 1))
	assert.Equal(t, 0, f.followerCount(t, 2))
	assert.Equal(t, 2, f.spy.drift)

	drifts, err = f.svc.ReconcileFollowerCounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}
