package identity

import "context"

// Provider is the identity provider boundary. Implementations return
// *AuthError values carrying one of the Code constants.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (State, error)
	SignUp(ctx context.Context, email, password string) (State, error)
	SignOut(ctx context.Context, token string) error
	SetDisplayName(ctx context.Context, state State, name string) error
	// Verify checks a bearer token and returns the identity it belongs to.
	Verify(ctx context.Context, token string) (*Identity, error)
}
