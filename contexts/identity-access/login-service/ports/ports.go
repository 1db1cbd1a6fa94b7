package ports

import (
	"context"
	"time"
)

// Identity is what an external provider asserts about the caller.
type Identity struct {
	Provider       string
	ProviderUserID string
	Name           string
}

// IdentityVerifier validates a provider access token and returns the identity
// it belongs to.
type IdentityVerifier interface {
	VerifyAccessToken(ctx context.Context, accessToken string) (Identity, error)
}

// Account is the local account an identity maps to.
type Account struct {
	UserID  string
	Name    string
	Balance int64
	Created bool
}

// AccountDirectory resolves a verified identity to a local account, creating
// one on first login.
type AccountDirectory interface {
	ResolveAccount(ctx context.Context, identity Identity) (Account, error)
}

// TokenIssuer mints session tokens for resolved accounts.
type TokenIssuer interface {
	IssueToken(userID string, now time.Time) (token string, expiresAt time.Time, err error)
}

type Clock interface {
	Now() time.Time
}
