package domain

import (
	"strings"
	"time"
)

// Category is one of the fixed club categories.
type Category string

// Known club categories.
const (
	CategoryTechnical Category = "Technical"
	CategoryCultural  Category = "Cultural"
	CategorySports    Category = "Sports"
	CategoryLiterary  Category = "Literary"
	CategoryOther     Category = "Other"
)

// Categories lists every valid Category.
func Categories() []Category {
	return []Category{
		CategoryTechnical,
		CategoryCultural,
		CategorySports,
		CategoryLiterary,
		CategoryOther,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Club is a campus club that accounts can follow.
// FollowerCount caches the number of accounts following the club and is only
// changed together with the membership rows it counts.
type Club struct {
	ClubID        int64
	Name          string
	Description   string
	Category      Category
	FollowerCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewClub creates a club with zero followers.
func NewClub(clubID int64, name, description string, category Category) (*Club, error) {
	now := time.Now().UTC()
	club := &Club{
		ClubID:      clubID,
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Category:    category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := club.Validate(); err != nil {
		return nil, err
	}
	return club, nil
}

// Validate checks if the Club has valid data.
func (c *Club) Validate() error {
	if c.ClubID <= 0 {
		return ErrInvalidClubID
	}
	if c.Name == "" {
		return ErrEmptyClubName
	}
	if c.Description == "" {
		return ErrEmptyDescription
	}
	if !c.Category.Valid() {
		return ErrInvalidCategory
	}
	if c.FollowerCount < 0 {
		return NewValidationError("followerCount", "cannot be negative", nil)
	}
	return nil
}
