// Package membership manages which clubs an account follows and keeps each
// club's follower count in step with the follow relation.
package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pulseboard-api/internal/domain"
	"github.com/phrazzld/pulseboard-api/internal/metrics"
	"github.com/phrazzld/pulseboard-api/internal/store"
)

// ToggleResult is the state after a committed toggle.
type ToggleResult struct {
	// Following is the account's following set, sorted ascending.
	Following []int64
	// Followed is true when the toggle added the club.
	Followed bool
	// FollowerCount is the club's follower count after the toggle.
	FollowerCount int
}

// Service implements follow toggling and follower-count maintenance.
type Service struct {
	tx        store.Transactor
	accounts  store.AccountStore
	opTimeout time.Duration
	metrics   metrics.Recorder
	logger    *slog.Logger
}

// NewService creates a membership Service. accounts serves reads that need
// no transaction.
func NewService(
	tx store.Transactor,
	accounts store.AccountStore,
	opTimeout time.Duration,
	rec metrics.Recorder,
	logger *slog.Logger,
) (*Service, error) {
	if tx == nil {
		return nil, errors.New("membership: transactor cannot be nil")
	}
	if accounts == nil {
		return nil, errors.New("membership: accounts store cannot be nil")
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		tx:        tx,
		accounts:  accounts,
		opTimeout: opTimeout,
		metrics:   rec,
		logger:    logger.With("component", "membership_service"),
	}, nil
}

// ToggleFollow adds clubID to the account's following set if absent and
// removes it otherwise, adjusting the club's follower count by the same
// amount in the same transaction. Either both changes commit or neither does.
func (s *Service) ToggleFollow(ctx context.Context, accountID uuid.UUID, clubID int64) (*ToggleResult, error) {
	if clubID <= 0 {
		return nil, domain.NewValidationError("clubId", "must be a positive integer", domain.ErrInvalidClubID)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var result ToggleResult
	err := s.tx.InTx(ctx, func(ctx context.Context, st store.Stores) error {
		account, err := st.Accounts.LockByID(ctx, accountID)
		if err != nil {
			if errors.Is(err, store.ErrAccountNotFound) {
				return ErrUnauthorized
			}
			return err
		}

		if _, err := st.Clubs.GetByID(ctx, clubID); err != nil {
			if errors.Is(err, store.ErrClubNotFound) {
				return ErrClubNotFound
			}
			return err
		}

		delta := 1
		var changed bool
		if account.IsFollowing(clubID) {
			delta = -1
			changed, err = st.Accounts.RemoveFollowing(ctx, accountID, clubID)
		} else {
			changed, err = st.Accounts.AddFollowing(ctx, accountID, clubID)
		}
		if err != nil {
			if errors.Is(err, store.ErrClubNotFound) {
				return ErrClubNotFound
			}
			return err
		}
		// The account row is locked, so the follow set must agree with the read above.
		if !changed {
			return fmt.Errorf("%w: follow set of account %s did not change for club %d",
				ErrCounterDrift, accountID, clubID)
		}

		count, err := st.Clubs.AdjustFollowerCount(ctx, clubID, delta)
		if err != nil {
			if errors.Is(err, store.ErrInvalidEntity) {
				return fmt.Errorf("%w: club %d", ErrCounterDrift, clubID)
			}
			return err
		}

		following, err := st.Accounts.GetFollowing(ctx, accountID)
		if err != nil {
			return err
		}

		result = ToggleResult{
			Following:     following,
			Followed:      delta > 0,
			FollowerCount: count,
		}
		return nil
	})
	if err != nil {
		return nil, s.failure("toggle_follow", err, "account_id", accountID, "club_id", clubID)
	}

	direction := metrics.DirectionUnfollow
	if result.Followed {
		direction = metrics.DirectionFollow
	}
	s.metrics.RecordToggle(direction)
	s.logger.Debug("toggled follow",
		"account_id", accountID,
		"club_id", clubID,
		"direction", direction,
		"follower_count", result.FollowerCount)

	return &result, nil
}

// GetFollowing returns the account's following set sorted ascending.
func (s *Service) GetFollowing(ctx context.Context, accountID uuid.UUID) ([]int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	following, err := s.accounts.GetFollowing(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, s.failure("get_following", err, "account_id", accountID)
	}
	return following, nil
}

// ReconcileFollowerCounts recomputes every club's follower count from the
// follow relation and corrects any drift. It runs under the caller's
// deadline rather than the per-operation timeout.
func (s *Service) ReconcileFollowerCounts(ctx context.Context) ([]store.FollowerDrift, error) {
	var drifts []store.FollowerDrift
	err := s.tx.InTx(ctx, func(ctx context.Context, st store.Stores) error {
		var err error
		drifts, err = st.Clubs.ReconcileFollowerCounts(ctx)
		return err
	})
	if err != nil {
		return nil, s.failure("reconcile_follower_counts", err)
	}

	s.metrics.RecordFollowerDrift(len(drifts))
	if len(drifts) > 0 {
		s.logger.Warn("corrected follower count drift", "clubs", len(drifts))
	} else {
		s.logger.Info("follower counts consistent")
	}
	return drifts, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

func (s *Service) failure(op string, err error, attrs ...any) error {
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrClubNotFound):
		return err
	case errors.Is(err, store.ErrStoreUnavailable):
		s.metrics.RecordStoreUnavailable(op)
		s.logger.Warn("store unavailable", append([]any{"operation", op, "error", err}, attrs...)...)
	default:
		s.logger.Error("membership operation failed", append([]any{"operation", op, "error", err}, attrs...)...)
	}
	return fmt.Errorf("%s: %w", op, err)
}
