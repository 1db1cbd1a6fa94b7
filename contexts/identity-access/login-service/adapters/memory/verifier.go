package memory

import (
	"context"
	"sync"

	domainerrors "zerosum/contexts/identity-access/login-service/domain/errors"
	"zerosum/contexts/identity-access/login-service/ports"
)

// Verifier maps pre-registered access tokens to identities. Used by tests
// and DSN-less local runs where no real provider is reachable.
type Verifier struct {
	mu     sync.RWMutex
	tokens map[string]ports.Identity
}

func NewVerifier() *Verifier {
	return &Verifier{tokens: make(map[string]ports.Identity)}
}

func (v *Verifier) Register(accessToken string, identity ports.Identity) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tokens[accessToken] = identity
}

func (v *Verifier) VerifyAccessToken(_ context.Context, accessToken string) (ports.Identity, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	identity, ok := v.tokens[accessToken]
	if !ok {
		return ports.Identity{}, domainerrors.ErrInvalidCredentials
	}
	return identity, nil
}

var _ ports.IdentityVerifier = (*Verifier)(nil)
