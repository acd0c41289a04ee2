package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/pulseboard-api/internal/domain"
	"github.com/phrazzld/pulseboard-api/internal/store"
)

// ClubService provides read access to the club catalog and club creation.
type ClubService interface {
	// ListClubs returns every club ordered by club id.
	ListClubs(ctx context.Context) ([]*domain.Club, error)

	// GetClub retrieves a club by its id.
	GetClub(ctx context.Context, clubID int64) (*domain.Club, error)

	// CreateClub adds a club with zero followers.
	CreateClub(ctx context.Context, clubID int64, name, description string, category domain.Category) (*domain.Club, error)
}

// ClubServiceImpl implements the ClubService interface
type ClubServiceImpl struct {
	clubs  store.ClubStore
	logger *slog.Logger
}

// NewClubService creates a new ClubService
func NewClubService(clubs store.ClubStore, logger *slog.Logger) ClubService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClubServiceImpl{
		clubs:  clubs,
		logger: logger.With("component", "club_service"),
	}
}

// ListClubs returns all clubs
func (s *ClubServiceImpl) ListClubs(ctx context.Context) ([]*domain.Club, error) {
	clubs, err := s.clubs.List(ctx)
	if err != nil {
		s.logger.Error("failed to list clubs", "error", err)
		return nil, fmt.Errorf("failed to list clubs: %w", err)
	}
	return clubs, nil
}

// GetClub retrieves a club by its id
func (s *ClubServiceImpl) GetClub(ctx context.Context, clubID int64) (*domain.Club, error) {
	if clubID <= 0 {
		return nil, domain.NewValidationError("clubId", "must be a positive integer", domain.ErrInvalidClubID)
	}

	club, err := s.clubs.GetByID(ctx, clubID)
	if err != nil {
		if errors.Is(err, store.ErrClubNotFound) {
			return nil, ErrClubNotFound
		}
		s.logger.Error("failed to retrieve club",
			"error", err,
			"club_id", clubID)
		return nil, fmt.Errorf("failed to retrieve club: %w", err)
	}
	return club, nil
}

// CreateClub validates and stores a new club
func (s *ClubServiceImpl) CreateClub(
	ctx context.Context,
	clubID int64,
	name, description string,
	category domain.Category,
) (*domain.Club, error) {
	club, err := domain.NewClub(clubID, name, description, category)
	if err != nil {
		s.logger.Debug("rejected invalid club",
			"error", err,
			"club_id", clubID)
		return nil, err
	}

	if err := s.clubs.Create(ctx, club); err != nil {
		if errors.Is(err, store.ErrClubExists) {
			return nil, ErrDuplicateClub
		}
		s.logger.Error("failed to save club",
			"error", err,
			"club_id", clubID)
		return nil, fmt.Errorf("failed to create club: %w", err)
	}

	s.logger.Info("created club",
		"club_id", club.ClubID,
		"category", club.Category)
	return club, nil
}
