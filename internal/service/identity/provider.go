package identity

import "context"

// FederatedIdentity is what an identity provider vouches for after a
// successful authorization code exchange.
type FederatedIdentity struct {
	Provider  string
	SubjectID string
	Email     string
	Name      string
}

// FederatedIdentityProvider exchanges an OAuth authorization code for a
// verified identity. Implementations are long-lived and safe for concurrent use.
type FederatedIdentityProvider interface {
	Exchange(ctx context.Context, code string) (*FederatedIdentity, error)
}
