package store

import (
	"context"

	"github.com/phrazzld/pulseboard-api/internal/domain"
)

// FollowerDrift records a club whose cached follower count disagreed with
// the membership rows and was corrected.
type FollowerDrift struct {
	ClubID   int64
	Recorded int
	Actual   int
}

// ClubStore defines the interface for club persistence.
type ClubStore interface {
	// Create saves a new club.
	// Returns ErrClubExists if the club id or name is taken.
	Create(ctx context.Context, club *domain.Club) error

	// GetByID retrieves a club by its external club id.
	// Returns ErrClubNotFound if the club does not exist.
	GetByID(ctx context.Context, clubID int64) (*domain.Club, error)

	// List returns all clubs ordered by club id.
	List(ctx context.Context) ([]*domain.Club, error)

	// AdjustFollowerCount atomically adds delta to the club's follower count
	// and returns the new value. Returns ErrClubNotFound if the club does not
	// exist and ErrInvalidEntity if the count would become negative.
	AdjustFollowerCount(ctx context.Context, clubID int64, delta int) (int, error)

	// ReconcileFollowerCounts recomputes every club's follower count from the
	// membership rows, corrects drifted clubs and returns what was corrected.
	// It must run inside a transaction.
	ReconcileFollowerCounts(ctx context.Context) ([]FollowerDrift, error)
}
