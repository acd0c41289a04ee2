package identity

import "errors"

// Identity service errors. Callers match them with errors.Is.
var (
	// ErrDuplicateIdentity indicates the email is already registered,
	// compared case-insensitively and regardless of auth method.
	ErrDuplicateIdentity = errors.New("an account with this email already exists")

	// ErrIdentityCollision indicates a federated identity whose email belongs
	// to an existing account bound to something else. Nothing is created or merged.
	ErrIdentityCollision = errors.New("email is already registered with another sign-in method")

	// ErrInvalidCredentials indicates an unknown email or a wrong password.
	// The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrWrongAuthMethod indicates a password login against a federated account.
	ErrWrongAuthMethod = errors.New("account uses a different sign-in method")

	// ErrExternalAuth indicates the identity provider rejected or failed the exchange.
	ErrExternalAuth = errors.New("external authentication failed")
)
