package membership

import "errors"

// Membership service errors.
var (
	// ErrUnauthorized indicates the caller's account no longer exists even
	// though its token is valid.
	ErrUnauthorized = errors.New("account not found for token")

	// ErrClubNotFound indicates the club being followed does not exist.
	ErrClubNotFound = errors.New("club not found")

	// ErrCounterDrift indicates an unfollow would drive a club's follower
	// count negative. The toggle is rolled back; reconciliation repairs the count.
	ErrCounterDrift = errors.New("club follower count out of sync")
)
