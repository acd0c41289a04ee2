// Package google implements federated login against Google's OpenID Connect
// endpoints: the authorization code is exchanged with x/oauth2 and the
// returned ID token is verified with go-oidc.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/phrazzld/pulseboard-api/internal/config"
	"github.com/phrazzld/pulseboard-api/internal/service/identity"
	"golang.org/x/oauth2"
)

// ProviderName is stored on accounts created through this provider.
const ProviderName = "google"

const defaultHTTPTimeout = 10 * time.Second

// Errors returned by Exchange.
var (
	ErrNoIDToken        = errors.New("token response has no id_token")
	ErrEmailNotVerified = errors.New("provider email is not verified")
)

// Provider is a long-lived identity.FederatedIdentityProvider. Discovery
// runs once in NewProvider; signing keys are fetched and cached by go-oidc.
type Provider struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
	client   *http.Client
	logger   *slog.Logger
}

// Ensure Provider implements identity.FederatedIdentityProvider interface
var _ identity.FederatedIdentityProvider = (*Provider)(nil)

// NewProvider discovers the issuer's endpoints and builds the OAuth client.
// A nil client uses a default HTTP client with a timeout.
func NewProvider(ctx context.Context, cfg config.GoogleConfig, client *http.Client, logger *slog.Logger) (*Provider, error) {
	if !cfg.Enabled() {
		return nil, errors.New("google: client id is not configured")
	}
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}

	oidcProvider, err := oidc.NewProvider(oidc.ClientContext(ctx, client), cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("google: discovery for %s failed: %w", cfg.IssuerURL, err)
	}

	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     oidcProvider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		verifier: oidcProvider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		client:   client,
		logger:   logger.With("component", "google_provider"),
	}, nil
}

// idTokenClaims are the profile claims read from a verified ID token.
type idTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// Exchange implements identity.FederatedIdentityProvider. The ID token's
// signature, issuer, audience and expiry are all checked before any claim
// is trusted.
func (p *Provider) Exchange(ctx context.Context, code string) (*identity.FederatedIdentity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, ErrNoIDToken
	}

	idToken, err := p.verifier.Verify(oidc.ClientContext(ctx, p.client), rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("id token verification failed: %w", err)
	}

	var claims idTokenClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to decode id token claims: %w", err)
	}
	if !claims.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	p.logger.Debug("verified federated identity", "issuer", idToken.Issuer)
	return &identity.FederatedIdentity{
		Provider:  ProviderName,
		SubjectID: idToken.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
	}, nil
}
