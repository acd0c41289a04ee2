package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/pulseboard-api/internal/domain"
	"github.com/phrazzld/pulseboard-api/internal/store"
)

const clubColumns = `club_id, name, description, category, follower_count, created_at, updated_at`

// ClubStore implements the store.ClubStore interface
// using a PostgreSQL database as the storage backend.
type ClubStore struct {
	db     store.DBTX
	logger *slog.Logger
	inTx   bool
}

// NewClubStore creates a new PostgreSQL implementation of the ClubStore interface.
func NewClubStore(db store.DBTX, logger *slog.Logger) *ClubStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClubStore{
		db:     db,
		logger: logger.With("component", "club_store"),
	}
}

// Ensure ClubStore implements store.ClubStore interface
var _ store.ClubStore = (*ClubStore)(nil)

// WithTx returns a store whose queries run in tx.
func (s *ClubStore) WithTx(tx *sql.Tx) *ClubStore {
	return &ClubStore{db: tx, logger: s.logger, inTx: true}
}

// Create implements store.ClubStore.Create
func (s *ClubStore) Create(ctx context.Context, club *domain.Club) error {
	if err := club.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clubs (club_id, name, description, category, follower_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		club.ClubID,
		club.Name,
		club.Description,
		string(club.Category),
		club.FollowerCount,
		club.CreatedAt,
		club.UpdatedAt,
	)
	if err != nil {
		s.logger.Debug("failed to insert club", "club_id", club.ClubID, "error", err)
		return MapError(err)
	}
	return nil
}

// GetByID implements store.ClubStore.GetByID
func (s *ClubStore) GetByID(ctx context.Context, clubID int64) (*domain.Club, error) {
	club, err := scanClub(s.db.QueryRowContext(ctx,
		`SELECT `+clubColumns+` FROM clubs WHERE club_id = $1`, clubID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrClubNotFound
		}
		return nil, MapError(err)
	}
	return club, nil
}

// List implements store.ClubStore.List
func (s *ClubStore) List(ctx context.Context) ([]*domain.Club, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+clubColumns+` FROM clubs ORDER BY club_id`)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	clubs := []*domain.Club{}
	for rows.Next() {
		club, err := scanClub(rows)
		if err != nil {
			return nil, MapError(err)
		}
		clubs = append(clubs, club)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return clubs, nil
}

// AdjustFollowerCount implements store.ClubStore.AdjustFollowerCount.
// The increment is applied by the database so concurrent adjustments from
// different transactions never lose an update.
func (s *ClubStore) AdjustFollowerCount(ctx context.Context, clubID int64, delta int) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		UPDATE clubs
		SET follower_count = follower_count + $2, updated_at = NOW()
		WHERE club_id = $1
		RETURNING follower_count`, clubID, delta).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, store.ErrClubNotFound
		}
		return 0, MapError(err)
	}
	return count, nil
}

// ReconcileFollowerCounts implements store.ClubStore.ReconcileFollowerCounts.
// The clubs table is locked against concurrent counter updates for the rest
// of the transaction, so toggles queue behind the pass and apply their delta
// to the corrected value.
func (s *ClubStore) ReconcileFollowerCounts(ctx context.Context) ([]store.FollowerDrift, error) {
	if !s.inTx {
		return nil, store.ErrTxRequired
	}

	if _, err := s.db.ExecContext(ctx, `LOCK TABLE clubs IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return nil, MapError(err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.club_id, c.follower_count, COUNT(f.account_id)::int
		FROM clubs c
		LEFT JOIN account_follows f ON f.club_id = c.club_id
		GROUP BY c.club_id, c.follower_count
		HAVING c.follower_count <> COUNT(f.account_id)
		ORDER BY c.club_id`)
	if err != nil {
		return nil, MapError(err)
	}

	drifts := []store.FollowerDrift{}
	for rows.Next() {
		var d store.FollowerDrift
		if err := rows.Scan(&d.ClubID, &d.Recorded, &d.Actual); err != nil {
			_ = rows.Close()
			return nil, MapError(err)
		}
		drifts = append(drifts, d)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, MapError(err)
	}
	_ = rows.Close()

	for _, d := range drifts {
		_, err := s.db.ExecContext(ctx, `
			UPDATE clubs SET follower_count = $2, updated_at = NOW()
			WHERE club_id = $1`, d.ClubID, d.Actual)
		if err != nil {
			return nil, MapError(err)
		}
		s.logger.Info("corrected follower count drift",
			"club_id", d.ClubID,
			"recorded", d.Recorded,
			"actual", d.Actual)
	}
	return drifts, nil
}

func scanClub(row rowScanner) (*domain.Club, error) {
	var c domain.Club
	var category string
	err := row.Scan(
		&c.ClubID,
		&c.Name,
		&c.Description,
		&category,
		&c.FollowerCount,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Category = domain.Category(category)
	return &c, nil
}
