package identity_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/pulseboard-api/internal/config"
	"github.com/phrazzld/pulseboard-api/internal/domain"
	"github.com/phrazzld/pulseboard-api/internal/metrics"
	"github.com/phrazzld/pulseboard-api/internal/platform/memory"
	"github.com/phrazzld/pulseboard-api/internal/service/auth"
	"github.com/phrazzld/pulseboard-api/internal/service/identity"
	"github.com/phrazzld/pulseboard-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-that-is-at-least-32-characters"

// mockProvider is a testify mock of FederatedIdentityProvider.
type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Exchange(ctx context.Context, code string) (*identity.FederatedIdentity, error) {
	args := m.Called(ctx, code)
	ident, _ := args.Get(0).(*identity.FederatedIdentity)
	return ident, args.Error(1)
}

// authSpy records auth outcomes.
type authSpy struct {
	metrics.Nop
	mu       sync.Mutex
	outcomes map[string][]string
}

func (s *authSpy) RecordAuth(method, outcome string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcomes == nil {
		s.outcomes = make(map[string][]string)
	}
	s.outcomes[method] = append(s.outcomes[method], outcome)
}

func (s *authSpy) get(method string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.outcomes[method]...)
}

type fixture struct {
	db       *memory.DB
	svc      *identity.Service
	tokens   auth.JWTService
	provider *mockProvider
	spy      *authSpy
}

func newFixture(t *testing.T, accounts store.AccountStore) *fixture {
	t.Helper()

	db := memory.New()
	if accounts == nil {
		accounts = db.Accounts()
	}
	tokens, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:            testSecret,
		TokenLifetimeMinutes: 60,
	})
	require.NoError(t, err)

	hasher := auth.NewBcrypt(bcrypt.MinCost)
	provider := &mockProvider{}
	spy := &authSpy{}
	svc, err := identity.NewService(identity.Deps{
		Accounts:         accounts,
		Hasher:           hasher,
		Verifier:         hasher,
		Tokens:           tokens,
		Provider:         provider,
		OperationTimeout: time.Second,
		Metrics:          spy,
	})
	require.NoError(t, err)

	return &fixture{db: db, svc: svc, tokens: tokens, provider: provider, spy: spy}
}

func TestNewService_RequiresCollaborators(t *testing.T) {
	_, err := identity.NewService(identity.Deps{})
	assert.Error(t, err)
}

func TestRegister(t *testing.T) {
	t.Run("creates a local account with a hashed password", func(t *testing.T) {
		f := newFixture(t, nil)
		account, err := f.svc.Register(context.Background(), "Ada", " Ada@Example.com ", "correct horse")
		require.NoError(t, err)

		assert.Equal(t, "ada@example.com", account.Email)
		assert.Equal(t, "Ada", account.DisplayName)
		local, ok := account.Auth.(domain.LocalAuth)
		require.True(t, ok)
		assert.NotEqual(t, "correct horse", local.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(local.PasswordHash), []byte("correct horse")))
		assert.Empty(t, account.Following)
		assert.Equal(t, []string{metrics.OutcomeSuccess}, f.spy.get(metrics.AuthRegister))
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		tests := []struct {
			name     string
			display  string
			email    string
			password string
			field    string
		}{
			{"missing name", "  ", "a@example.com", "password1", "name"},
			{"missing email", "Ada", "", "password1", "email"},
			{"malformed email", "Ada", "not-an-email", "password1", "email"},
			{"short password", "Ada", "a@example.com", "short", "password"},
			{"long password", "Ada", "a@example.com", string(make([]byte, 73)), "password"},
		}
		f := newFixture(t, nil)
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.svc.Register(context.Background(), tt.display, tt.email, tt.password)
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrValidation)
				var verr *domain.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.field, verr.Field)
			})
		}
	})

	t.Run("duplicate email differing only in case", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.svc.Register(context.Background(), "Ada", "ada@example.com", "password1")
		require.NoError(t, err)

		_, err = f.svc.Register(context.Background(), "Other", "ADA@example.com", "password2")
		assert.ErrorIs(t, err, identity.ErrDuplicateIdentity)
	})

	t.Run("email held by a federated account", func(t *testing.T) {
		f := newFixture(t, nil)
		fed, err := domain.NewFederatedAccount("Grace", "grace@example.com", "google", "sub-1")
		require.NoError(t, err)
		require.NoError(t, f.db.Accounts().Create(context.Background(), fed))

		_, err = f.svc.Register(context.Background(), "Grace", "grace@example.com", "password1")
		assert.ErrorIs(t, err, identity.ErrDuplicateIdentity)
	})

	t.Run("store unavailable", func(t *testing.T) {
		f := newFixture(t, nil)
		f.db.SetFault(func(string) error { return store.ErrStoreUnavailable })

		_, err := f.svc.Register(context.Background(), "Ada", "ada@example.com", "password1")
		assert.ErrorIs(t, err, store.ErrStoreUnavailable)
		assert.Equal(t, []string{"unavailable"}, f.spy.get(metrics.AuthRegister))
	})

	t.Run("concurrent registrations of one email create one account", func(t *testing.T) {
		f := newFixture(t, nil)
		const n = 8
		var wg sync.WaitGroup
		results := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.svc.Register(context.Background(), "Ada", "race@example.com", "password1")
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var created, duplicates int
		for err := range results {
			switch {
			case err == nil:
				created++
			case errors.Is(err, identity.ErrDuplicateIdentity):
				duplicates++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, created)
		assert.Equal(t, n-1, duplicates)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials issue a token for the account", func(t *testing.T) {
		f := newFixture(t, nil)
		account, err := f.svc.Register(ctx, "Ada", "ada@example.com", "password1")
		require.NoError(t, err)

		session, err := f.svc.Login(ctx, "ADA@example.com", "password1")
		require.NoError(t, err)
		assert.Equal(t, account.ID, session.Account.ID)

		claims, err := f.tokens.ValidateToken(ctx, session.Token)
		require.NoError(t, err)
		assert.Equal(t, account.ID, claims.AccountID)
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.svc.Register(ctx, "Ada", "ada@example.com", "password1")
		require.NoError(t, err)

		_, unknownErr := f.svc.Login(ctx, "nobody@example.com", "password1")
		_, wrongErr := f.svc.Login(ctx, "ada@example.com", "password2")
		assert.ErrorIs(t, unknownErr, identity.ErrInvalidCredentials)
		assert.ErrorIs(t, wrongErr, identity.ErrInvalidCredentials)
		assert.Equal(t, unknownErr.Error(), wrongErr.Error())
	})

	t.Run("repeated wrong passwords never lock the account", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.svc.Register(ctx, "Ada", "ada@example.com", "password1")
		require.NoError(t, err)

		for i := 0; i < 10; i++ {
			_, err := f.svc.Login(ctx, "ada@example.com", "wrong-password")
			require.ErrorIs(t, err, identity.ErrInvalidCredentials)
		}
		_, err = f.svc.Login(ctx, "ada@example.com", "password1")
		assert.NoError(t, err)

		outcomes := f.spy.get(metrics.AuthLogin)
		require.Len(t, outcomes, 11)
		assert.Equal(t, "invalid_credentials", outcomes[0])
		assert.Equal(t, metrics.OutcomeSuccess, outcomes[10])
	})

	t.Run("password longer than the bcrypt limit never matches", func(t *testing.T) {
		f := newFixture(t, nil)
		stored := strings.Repeat("a", domain.MaxPasswordLength)
		_, err := f.svc.Register(ctx, "Ada", "ada@example.com", stored)
		require.NoError(t, err)

		session, err := f.svc.Login(ctx, "ada@example.com", stored+"DIFFERENT-SUFFIX")
		assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
		assert.Nil(t, session)

		_, err = f.svc.Login(ctx, "ada@example.com", stored)
		assert.NoError(t, err)
	})

	t.Run("federated account cannot use a password", func(t *testing.T) {
		f := newFixture(t, nil)
		fed, err := domain.NewFederatedAccount("Grace", "grace@example.com", "google", "sub-1")
		require.NoError(t, err)
		require.NoError(t, f.db.Accounts().Create(ctx, fed))

		_, err = f.svc.Login(ctx, "grace@example.com", "anything1")
		assert.ErrorIs(t, err, identity.ErrWrongAuthMethod)
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.svc.Login(ctx, "", "password1")
		assert.ErrorIs(t, err, domain.ErrValidation)
		_, err = f.svc.Login(ctx, "ada@example.com", "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("store unavailable", func(t *testing.T) {
		f := newFixture(t, nil)
		f.db.SetFault(func(string) error { return store.ErrStoreUnavailable })
		_, err := f.svc.Login(ctx, "ada@example.com", "password1")
		assert.ErrorIs(t, err, store.ErrStoreUnavailable)
	})
}

func TestFederatedLogin(t *testing.T) {
	ctx := context.Background()
	grace := &identity.FederatedIdentity{
		Provider:  "google",
		SubjectID: "sub-123",
		Email:     "Grace@Example.com",
		Name:      "Grace Hopper",
	}

	t.Run("first visit creates a federated account", func(t *testing.T) {
		f := newFixture(t, nil)
		f.provider.On("Exchange", mock.Anything, "code-1").Return(grace, nil).Once()

		session, err := f.svc.FederatedLogin(ctx, "code-1")
		require.NoError(t, err)
		assert.Equal(t, "grace@example.com", session.Account.Email)
		assert.Equal(t, "Grace Hopper", session.Account.DisplayName)
		assert.Equal(t, domain.FederatedAuth{Provider: "google", SubjectID: "sub-123"}, session.Account.Auth)
		assert.NotEmpty(t, session.Token)
		f.provider.AssertExpectations(t)
	})

	t.Run("repeat visits reuse the same account", func(t *testing.T) {
		f := newFixture(t, nil)
		f.provider.On("Exchange", mock.Anything, mock.Anything).Return(grace, nil)

		first, err := f.svc.FederatedLogin(ctx, "code-1")
		require.NoError(t, err)
		second, err := f.svc.FederatedLogin(ctx, "code-2")
		require.NoError(t, err)
		assert.Equal(t, first.Account.ID, second.Account.ID)

		byEmail, err := f.db.Accounts().GetByEmail(ctx, "grace@example.com")
		require.NoError(t, err)
		assert.Equal(t, first.Account.ID, byEmail.ID)
	})

	t.Run("email held by a local account collides", func(t *testing.T) {
		f := newFixture(t, nil)
		local, err := f.svc.Register(ctx, "Grace", "grace@example.com", "password1")
		require.NoError(t, err)
		f.provider.On("Exchange", mock.Anything, "code-1").Return(grace, nil)

		_, err = f.svc.FederatedLogin(ctx, "code-1")
		assert.ErrorIs(t, err, identity.ErrIdentityCollision)

		stored, err := f.db.Accounts().GetByEmail(ctx, "grace@example.com")
		require.NoError(t, err)
		assert.Equal(t, local.ID, stored.ID)
		assert.Equal(t, domain.AuthKindLocal, stored.Auth.Kind(), "no merge")
	})

	t.Run("missing name falls back to the email local part", func(t *testing.T) {
		f := newFixture(t, nil)
		f.provider.On("Exchange", mock.Anything, "code-1").
			Return(&identity.FederatedIdentity{SubjectID: "sub-9", Email: "lin@example.com"}, nil)

		session, err := f.svc.FederatedLogin(ctx, "code-1")
		require.NoError(t, err)
		assert.Equal(t, "lin", session.Account.DisplayName)
		assert.Equal(t, domain.FederatedAuth{Provider: "google", SubjectID: "sub-9"}, session.Account.Auth)
	})

	t.Run("empty code", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.svc.FederatedLogin(ctx, "   ")
		assert.ErrorIs(t, err, domain.ErrValidation)
		f.provider.AssertNotCalled(t, "Exchange", mock.Anything, mock.Anything)
	})

	t.Run("exchange failure", func(t *testing.T) {
		f := newFixture(t, nil)
		f.provider.On("Exchange", mock.Anything, "bad").Return(nil, errors.New("invalid_grant"))

		_, err := f.svc.FederatedLogin(ctx, "bad")
		assert.ErrorIs(t, err, identity.ErrExternalAuth)
		assert.Equal(t, []string{"external_error"}, f.spy.get(metrics.AuthFederated))
	})

	t.Run("incomplete identity", func(t *testing.T) {
		f := newFixture(t, nil)
		f.provider.On("Exchange", mock.Anything, "code-1").
			Return(&identity.FederatedIdentity{Provider: "google", Email: "x@example.com"}, nil)

		_, err := f.svc.FederatedLogin(ctx, "code-1")
		assert.ErrorIs(t, err, identity.ErrExternalAuth)
	})

	t.Run("not configured", func(t *testing.T) {
		tokens, err := auth.NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 5})
		require.NoError(t, err)
		hasher := auth.NewBcrypt(bcrypt.MinCost)
		svc, err := identity.NewService(identity.Deps{
			Accounts: memory.New().Accounts(),
			Hasher:   hasher,
			Verifier: hasher,
			Tokens:   tokens,
		})
		require.NoError(t, err)
		assert.False(t, svc.FederatedEnabled())

		_, err = svc.FederatedLogin(ctx, "code-1")
		assert.ErrorIs(t, err, identity.ErrExternalAuth)
	})

	t.Run("losing the subject race reuses the winner", func(t *testing.T) {
		db := memory.New()
		racing := &racingAccounts{AccountStore: db.Accounts()}
		f := newFixture(t, racing)
		f.provider.On("Exchange", mock.Anything, "code-1").Return(grace, nil)

		session, err := f.svc.FederatedLogin(ctx, "code-1")
		require.NoError(t, err)
		require.NotNil(t, racing.winner)
		assert.Equal(t, racing.winner.ID, session.Account.ID)
	})
}

// racingAccounts simulates a concurrent request that binds the subject
// between the service's lookup and its insert.
type racingAccounts struct {
	store.AccountStore
	winner *domain.Account
}

func (r *racingAccounts) GetBySubject(ctx context.Context, provider, subjectID string) (*domain.Account, error) {
	if r.winner == nil {
		winner, err := domain.NewFederatedAccount("Winner", "winner@example.com", provider, subjectID)
		if err != nil {
			return nil, err
		}
		if err := r.AccountStore.Create(ctx, winner); err != nil {
			return nil, err
		}
		r.winner = winner
		return nil, store.ErrAccountNotFound
	}
	return r.AccountStore.GetBySubject(ctx, provider, subjectID)
}
