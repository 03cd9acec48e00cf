package services

import "context"

// IdentityAssertion is a provider-verified identity returned by a completed
// authorization.
type IdentityAssertion struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	DisplayName   string
	Picture       string
}

// CallbackParams are the query values a provider redirects back with.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// IdentityProvider drives a redirect-based authorization handshake with an
// external identity provider.
type IdentityProvider interface {
	Name() string
	// BeginAuthorization returns the provider consent URL to redirect to.
	BeginAuthorization(ctx context.Context) (string, error)
	// CompleteAuthorization turns callback params into a verified identity.
	CompleteAuthorization(ctx context.Context, cb CallbackParams) (*IdentityAssertion, error)
}
