package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/phrazzld/pulseboard-api/internal/domain"
	"github.com/phrazzld/pulseboard-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLocal(t *testing.T, email string) *domain.Account {
	t.Helper()
	a, err := domain.NewLocalAccount("Test", email, "hash")
	require.NoError(t, err)
	return a
}

func mustClub(t *testing.T, id int64, name string) *domain.Club {
	t.Helper()
	c, err := domain.NewClub(id, name, "desc", domain.CategoryOther)
	require.NoError(t, err)
	return c
}

func TestAccountStore_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	db := New()
	accounts := db.Accounts()

	alice := mustLocal(t, "alice@x.com")
	require.NoError(t, accounts.Create(ctx, alice))

	got, err := accounts.GetByEmail(ctx, "ALICE@x.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Empty(t, got.Following)

	err = accounts.Create(ctx, mustLocal(t, "Alice@X.com"))
	assert.ErrorIs(t, err, store.ErrEmailExists)

	_, err = accounts.GetByID(ctx, domain.Account{}.ID)
	assert.ErrorIs(t, err, store.ErrAccountNotFound)
}

func TestCreate_RejectsInvalidEntities(t *testing.T) {
	ctx := context.Background()
	db := New()

	account := mustLocal(t, "valid@x.com")
	account.Email = ""
	err := db.Accounts().Create(ctx, account)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.ErrorIs(t, err, domain.ErrValidation)

	club := mustClub(t, 4, "Valid")
	club.Name = ""
	err = db.Clubs().Create(ctx, club)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.ErrorIs(t, err, domain.ErrValidation)

	list, err := db.Clubs().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAccountStore_SubjectUniqueness(t *testing.T) {
	ctx := context.Background()
	accounts := New().Accounts()

	first, err := domain.NewFederatedAccount("A", "a@x.com", "google", "sub-1")
	require.NoError(t, err)
	require.NoError(t, accounts.Create(ctx, first))

	second, err := domain.NewFederatedAccount("B", "b@x.com", "google", "sub-1")
	require.NoError(t, err)
	assert.ErrorIs(t, accounts.Create(ctx, second), store.ErrSubjectExists)

	got, err := accounts.GetBySubject(ctx, "google", "sub-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = accounts.GetBySubject(ctx, "github", "sub-1")
	assert.ErrorIs(t, err, store.ErrAccountNotFound)
}

func TestAccountStore_FollowingSetSemantics(t *testing.T) {
	ctx := context.Background()
	db := New()
	accounts, clubs := db.Accounts(), db.Clubs()

	a := mustLocal(t, "a@x.com")
	require.NoError(t, accounts.Create(ctx, a))
	require.NoError(t, clubs.Create(ctx, mustClub(t, 7, "Chess")))

	added, err := accounts.AddFollowing(ctx, a.ID, 7)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = accounts.AddFollowing(ctx, a.ID, 7)
	require.NoError(t, err)
	assert.False(t, added, "second add is a no-op")

	following, err := accounts.GetFollowing(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, following)

	_, err = accounts.AddFollowing(ctx, a.ID, 99)
	assert.ErrorIs(t, err, store.ErrClubNotFound)

	removed, err := accounts.RemoveFollowing(ctx, a.ID, 7)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = accounts.RemoveFollowing(ctx, a.ID, 7)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestInTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	db := New()
	a := mustLocal(t, "a@x.com")
	require.NoError(t, db.Accounts().Create(ctx, a))
	require.NoError(t, db.Clubs().Create(ctx, mustClub(t, 1, "Drama")))

	boom := errors.New("boom")
	err := db.InTx(ctx, func(ctx context.Context, s store.Stores) error {
		if _, err := s.Accounts.AddFollowing(ctx, a.ID, 1); err != nil {
			return err
		}
		if _, err := s.Clubs.AdjustFollowerCount(ctx, 1, 1); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	following, err := db.Accounts().GetFollowing(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, following)

	club, err := db.Clubs().GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, club.FollowerCount)
}

func TestFaultInjectionAndCancellation(t *testing.T) {
	ctx := context.Background()
	db := New()
	require.NoError(t, db.Clubs().Create(ctx, mustClub(t, 1, "Drama")))

	injected := errors.New("disk on fire")
	db.SetFault(func(op string) error {
		if op == "clubs.adjust_follower_count" {
			return injected
		}
		return nil
	})
	_, err := db.Clubs().AdjustFollowerCount(ctx, 1, 1)
	assert.ErrorIs(t, err, injected)
	db.SetFault(nil)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = db.Clubs().GetByID(cancelled, 1)
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)
}

func TestClubStore(t *testing.T) {
	ctx := context.Background()
	db := New()
	clubs := db.Clubs()

	require.NoError(t, clubs.Create(ctx, mustClub(t, 9, "Poetry")))
	require.NoError(t, clubs.Create(ctx, mustClub(t, 2, "Football")))
	assert.ErrorIs(t, clubs.Create(ctx, mustClub(t, 9, "Other")), store.ErrClubExists)
	assert.ErrorIs(t, clubs.Create(ctx, mustClub(t, 3, "poetry")), store.ErrClubExists)

	list, err := clubs.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].ClubID)
	assert.Equal(t, int64(9), list[1].ClubID)

	_, err = clubs.AdjustFollowerCount(ctx, 2, -1)
	assert.ErrorIs(t, err, store.ErrInvalidEntity, "count can never go negative")

	_, err = clubs.ReconcileFollowerCounts(ctx)
	assert.ErrorIs(t, err, store.ErrTxRequired, "reconcile outside a transaction is rejected")
}

func TestReconcileFollowerCounts(t *testing.T) {
	ctx := context.Background()
	db := New()
	a := mustLocal(t, "a@x.com")
	require.NoError(t, db.Accounts().Create(ctx, a))

	drifted := mustClub(t, 1, "Drifted")
	drifted.FollowerCount = 5
	require.NoError(t, db.Clubs().Create(ctx, drifted))
	require.NoError(t, db.Clubs().Create(ctx, mustClub(t, 2, "Followed")))
	_, err := db.Accounts().AddFollowing(ctx, a.ID, 2)
	require.NoError(t, err)

	var drifts []store.FollowerDrift
	err = db.InTx(ctx, func(ctx context.Context, s store.Stores) error {
		var err error
		drifts, err = s.Clubs.ReconcileFollowerCounts(ctx)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []store.FollowerDrift{
		{ClubID: 1, Recorded: 5, Actual: 0},
		{ClubID: 2, Recorded: 0, Actual: 1},
	}, drifts)

	club, err := db.Clubs().GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, club.FollowerCount)
}
