// Package identity registers accounts and authenticates them with a password
// or through an external identity provider, issuing session tokens on success.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/pulseboard-api/internal/domain"
	"github.com/phrazzld/pulseboard-api/internal/metrics"
	"github.com/phrazzld/pulseboard-api/internal/service/auth"
	"github.com/phrazzld/pulseboard-api/internal/store"
)

// dummyPassword is hashed once and compared against when the email is
// unknown, so unknown and wrong-password logins cost the same.
const dummyPassword = "pulseboard-timing-equalizer"

// Session is the result of a successful login.
type Session struct {
	Token   string
	Account *domain.Account
}

// Deps holds the collaborators of the identity service.
type Deps struct {
	Accounts store.AccountStore
	Hasher   auth.PasswordHasher
	Verifier auth.PasswordVerifier
	Tokens   auth.JWTService
	// Provider is nil when federated login is not configured.
	Provider FederatedIdentityProvider
	// ProviderName is the provider id stored on federated accounts.
	ProviderName     string
	OperationTimeout time.Duration
	Metrics          metrics.Recorder
	Logger           *slog.Logger
}

// Service implements account registration and authentication.
type Service struct {
	accounts     store.AccountStore
	hasher       auth.PasswordHasher
	verifier     auth.PasswordVerifier
	tokens       auth.JWTService
	provider     FederatedIdentityProvider
	providerName string
	opTimeout    time.Duration
	metrics      metrics.Recorder
	logger       *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewService creates an identity Service.
func NewService(d Deps) (*Service, error) {
	if d.Accounts == nil {
		return nil, errors.New("identity: accounts store cannot be nil")
	}
	if d.Hasher == nil || d.Verifier == nil {
		return nil, errors.New("identity: password hasher and verifier are required")
	}
	if d.Tokens == nil {
		return nil, errors.New("identity: token service cannot be nil")
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Nop{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.ProviderName == "" {
		d.ProviderName = "google"
	}

	return &Service{
		accounts:     d.Accounts,
		hasher:       d.Hasher,
		verifier:     d.Verifier,
		tokens:       d.Tokens,
		provider:     d.Provider,
		providerName: d.ProviderName,
		opTimeout:    d.OperationTimeout,
		metrics:      d.Metrics,
		logger:       d.Logger.With("component", "identity_service"),
	}, nil
}

// FederatedEnabled reports whether a federated identity provider is configured.
func (s *Service) FederatedEnabled() bool {
	return s.provider != nil
}

// Register creates a local account. The email must not be in use by any
// account, whatever its auth method.
func (s *Service) Register(ctx context.Context, displayName, email, password string) (*domain.Account, error) {
	account, err := s.register(ctx, displayName, email, password)
	s.metrics.RecordAuth(metrics.AuthRegister, outcome(err))
	return account, err
}

func (s *Service) register(ctx context.Context, displayName, email, password string) (*domain.Account, error) {
	if err := validateRegistration(displayName, email, password); err != nil {
		return nil, err
	}
	email = domain.NormalizeEmail(email)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.accounts.GetByEmail(ctx, email)
	switch {
	case err == nil:
		s.logger.Debug("registration rejected: email in use", "email", email)
		return nil, ErrDuplicateIdentity
	case !errors.Is(err, store.ErrAccountNotFound):
		return nil, s.storeFailure("register", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account, err := domain.NewLocalAccount(displayName, email, hash)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			s.logger.Debug("registration lost race on email", "email", email)
			return nil, ErrDuplicateIdentity
		}
		return nil, s.storeFailure("register", err)
	}

	s.logger.Info("registered account", "account_id", account.ID)
	return account, nil
}

// Login authenticates a local account by email and password. Failed attempts
// have no side effects; there is no lockout.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	session, err := s.login(ctx, email, password)
	s.metrics.RecordAuth(metrics.AuthLogin, outcome(err))
	return session, err
}

func (s *Service) login(ctx context.Context, email, password string) (*Session, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, domain.NewValidationError("email", "is required", domain.ErrEmptyEmail)
	}
	if password == "" {
		return nil, domain.NewValidationError("password", "is required", domain.ErrEmptyPassword)
	}

	lookupCtx, cancel := s.withTimeout(ctx)
	account, err := s.accounts.GetByEmail(lookupCtx, email)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			s.burnComparison(password)
			return nil, ErrInvalidCredentials
		}
		return nil, s.storeFailure("login", err)
	}

	if account.IsFederated() {
		s.logger.Debug("password login attempted on federated account", "account_id", account.ID)
		return nil, ErrWrongAuthMethod
	}
	local, ok := account.Auth.(domain.LocalAuth)
	if !ok {
		return nil, fmt.Errorf("account %s has no password credential", account.ID)
	}

	// bcrypt ignores input past its limit, so a longer password could match
	// a stored one that is a prefix of it.
	if len(password) > domain.MaxPasswordLength {
		s.burnComparison(password)
		return nil, ErrInvalidCredentials
	}

	if err := s.verifier.Compare(local.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}

	token, err := s.tokens.GenerateToken(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &Session{Token: token, Account: account}, nil
}

// FederatedLogin exchanges an authorization code with the identity provider
// and signs in the account bound to the returned subject, creating it on the
// first visit. Repeating the flow for one subject always yields one account.
func (s *Service) FederatedLogin(ctx context.Context, code string) (*Session, error) {
	session, err := s.federatedLogin(ctx, code)
	s.metrics.RecordAuth(metrics.AuthFederated, outcome(err))
	return session, err
}

func (s *Service) federatedLogin(ctx context.Context, code string) (*Session, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.NewValidationError("code", "is required", nil)
	}
	if s.provider == nil {
		return nil, fmt.Errorf("%w: federated login is not configured", ErrExternalAuth)
	}

	ident, err := s.provider.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("identity provider exchange failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrExternalAuth, err)
	}
	if ident == nil || ident.SubjectID == "" || ident.Email == "" {
		return nil, fmt.Errorf("%w: provider returned an incomplete identity", ErrExternalAuth)
	}
	provider := ident.Provider
	if provider == "" {
		provider = s.providerName
	}

	storeCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	account, err := s.resolveFederated(storeCtx, provider, ident)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.GenerateToken(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &Session{Token: token, Account: account}, nil
}

func (s *Service) resolveFederated(ctx context.Context, provider string, ident *FederatedIdentity) (*domain.Account, error) {
	account, err := s.accounts.GetBySubject(ctx, provider, ident.SubjectID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, store.ErrAccountNotFound) {
		return nil, s.storeFailure("federated_login", err)
	}

	_, err = s.accounts.GetByEmail(ctx, ident.Email)
	switch {
	case err == nil:
		s.logger.Info("federated login collides with existing account",
			"provider", provider)
		return nil, ErrIdentityCollision
	case !errors.Is(err, store.ErrAccountNotFound):
		return nil, s.storeFailure("federated_login", err)
	}

	account, err = domain.NewFederatedAccount(displayNameFor(ident), ident.Email, provider, ident.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalAuth, err)
	}

	err = s.accounts.Create(ctx, account)
	switch {
	case err == nil:
		s.logger.Info("created federated account",
			"account_id", account.ID,
			"provider", provider)
		return account, nil
	case errors.Is(err, store.ErrSubjectExists):
		winner, err := s.accounts.GetBySubject(ctx, provider, ident.SubjectID)
		if err != nil {
			return nil, s.storeFailure("federated_login", err)
		}
		return winner, nil
	case errors.Is(err, store.ErrEmailExists):
		return nil, ErrIdentityCollision
	default:
		return nil, s.storeFailure("federated_login", err)
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

func (s *Service) storeFailure(op string, err error) error {
	if errors.Is(err, store.ErrStoreUnavailable) {
		s.metrics.RecordStoreUnavailable(op)
		s.logger.Warn("store unavailable", "operation", op, "error", err)
	} else {
		s.logger.Error("store operation failed", "operation", op, "error", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Service) burnComparison(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err == nil {
			s.dummyHash = hash
		}
	})
	if s.dummyHash != "" {
		_ = s.verifier.Compare(s.dummyHash, password)
	}
}

func validateRegistration(displayName, email, password string) error {
	if strings.TrimSpace(displayName) == "" {
		return domain.NewValidationError("name", "is required", domain.ErrEmptyDisplayName)
	}
	if err := domain.ValidateEmail(domain.NormalizeEmail(email)); err != nil {
		return domain.NewValidationError("email", "must be a valid email address", err)
	}
	if err := domain.ValidatePassword(password); err != nil {
		return domain.NewValidationError("password",
			fmt.Sprintf("must be %d to %d characters", domain.MinPasswordLength, domain.MaxPasswordLength), err)
	}
	return nil
}

func displayNameFor(ident *FederatedIdentity) string {
	if name := strings.TrimSpace(ident.Name); name != "" {
		return name
	}
	local, _, _ := strings.Cut(ident.Email, "@")
	return local
}

// outcome labels err for the auth metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, domain.ErrValidation):
		return "invalid_request"
	case errors.Is(err, ErrDuplicateIdentity):
		return "duplicate"
	case errors.Is(err, ErrIdentityCollision):
		return "collision"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrWrongAuthMethod):
		return "wrong_method"
	case errors.Is(err, ErrExternalAuth):
		return "external_error"
	case errors.Is(err, store.ErrStoreUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
