package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Password length policy. 72 bytes is the most bcrypt will hash.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

var emailValidator = validator.New()

// AuthKind names the variant of an AuthMethod.
type AuthKind string

// Supported authentication kinds.
const (
	AuthKindLocal     AuthKind = "local"
	AuthKindFederated AuthKind = "federated"
)

// AuthMethod is the closed set of ways an account can authenticate.
// The only implementations are LocalAuth and FederatedAuth.
type AuthMethod interface {
	Kind() AuthKind
	validate() error
}

// LocalAuth authenticates with a password checked against PasswordHash.
type LocalAuth struct {
	PasswordHash string
}

// Kind implements AuthMethod.
func (LocalAuth) Kind() AuthKind { return AuthKindLocal }

func (l LocalAuth) validate() error {
	if l.PasswordHash == "" {
		return ErrEmptyPasswordHash
	}
	return nil
}

// FederatedAuth authenticates through an external identity provider that
// vouches for SubjectID.
type FederatedAuth struct {
	Provider  string
	SubjectID string
}

// Kind implements AuthMethod.
func (FederatedAuth) Kind() AuthKind { return AuthKindFederated }

func (f FederatedAuth) validate() error {
	if f.Provider == "" {
		return ErrEmptyProvider
	}
	if f.SubjectID == "" {
		return ErrEmptySubjectID
	}
	return nil
}

// Account is a single end-user identity. The auth method is fixed at
// creation and never changes variant.
type Account struct {
	ID          uuid.UUID
	DisplayName string
	Email       string
	Auth        AuthMethod
	Following   []int64 // sorted, no duplicates
	PushToken   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewLocalAccount creates a password-authenticated account.
// The caller hashes the password; the plaintext never reaches the entity.
func NewLocalAccount(displayName, email, passwordHash string) (*Account, error) {
	return newAccount(displayName, email, LocalAuth{PasswordHash: passwordHash})
}

// NewFederatedAccount creates an account vouched for by an external provider.
func NewFederatedAccount(displayName, email, provider, subjectID string) (*Account, error) {
	return newAccount(displayName, email, FederatedAuth{Provider: provider, SubjectID: subjectID})
}

func newAccount(displayName, email string, auth AuthMethod) (*Account, error) {
	now := time.Now().UTC()
	account := &Account{
		ID:          uuid.New(),
		DisplayName: strings.TrimSpace(displayName),
		Email:       NormalizeEmail(email),
		Auth:        auth,
		Following:   []int64{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}
	return account, nil
}

// Validate checks if the Account has valid data.
func (a *Account) Validate() error {
	if a.ID == uuid.Nil {
		return ErrEmptyAccountID
	}
	if a.DisplayName == "" {
		return ErrEmptyDisplayName
	}
	if err := ValidateEmail(a.Email); err != nil {
		return err
	}
	if a.Auth == nil {
		return ErrMissingAuthMethod
	}
	return a.Auth.validate()
}

// IsFederated reports whether the account authenticates through a provider.
func (a *Account) IsFederated() bool {
	return a.Auth != nil && a.Auth.Kind() == AuthKindFederated
}

// IsFollowing reports whether clubID is in the account's following set.
func (a *Account) IsFollowing(clubID int64) bool {
	_, found := slices.BinarySearch(a.Following, clubID)
	return found
}

// NormalizeEmail returns the canonical form used for uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that email is present and well formed.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmptyEmail
	}
	if err := emailValidator.Var(email, "email"); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword enforces the password length policy on a plaintext password.
func ValidatePassword(password string) error {
	switch {
	case password == "":
		return ErrEmptyPassword
	case len(password) < MinPasswordLength:
		return ErrPasswordTooShort
	case len(password) > MaxPasswordLength:
		return ErrPasswordTooLong
	}
	return nil
}

// NormalizeClubIDs sorts ids and removes duplicates in place.
func NormalizeClubIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
