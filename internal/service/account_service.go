package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/pulseboard-api/internal/domain"
	"github.com/phrazzld/pulseboard-api/internal/store"
)

// AccountService provides operations on the caller's own account.
type AccountService interface {
	// GetProfile retrieves an account with its following set.
	GetProfile(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)

	// SavePushToken replaces the account's push notification token.
	SavePushToken(ctx context.Context, accountID uuid.UUID, token string) error
}

// AccountServiceImpl implements the AccountService interface
type AccountServiceImpl struct {
	accounts store.AccountStore
	logger   *slog.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(accounts store.AccountStore, logger *slog.Logger) AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountServiceImpl{
		accounts: accounts,
		logger:   logger.With("component", "account_service"),
	}
}

// GetProfile retrieves an account by its ID
func (s *AccountServiceImpl) GetProfile(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			s.logger.Debug("profile requested for missing account",
				"account_id", accountID)
			return nil, ErrAccountNotFound
		}
		s.logger.Error("failed to retrieve account",
			"error", err,
			"account_id", accountID)
		return nil, fmt.Errorf("failed to retrieve account: %w", err)
	}

	return account, nil
}

// SavePushToken stores the device push token for the account
func (s *AccountServiceImpl) SavePushToken(ctx context.Context, accountID uuid.UUID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.NewValidationError("token", "is required", domain.ErrEmptyPushToken)
	}

	err := s.accounts.UpdatePushToken(ctx, accountID, token)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		s.logger.Error("failed to save push token",
			"error", err,
			"account_id", accountID)
		return fmt.Errorf("failed to save push token: %w", err)
	}

	s.logger.Debug("saved push token", "account_id", accountID)
	return nil
}
