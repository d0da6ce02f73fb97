package model

import "context"

// FederatedIdentity is a verified third-party account.
type FederatedIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Audience      string
}

// FederatedVerifier validates a Google credential.
type FederatedVerifier interface {
	Verify(ctx context.Context, credential string) (FederatedIdentity, error)
}
