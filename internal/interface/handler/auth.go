package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"servicelist-service/internal/domain/entity"
	"servicelist-service/internal/domain/repository"
)

var (
	errNoToken    = errors.New("missing bearer token")
	errNotAllowed = errors.New("not on the allowlist")
)

// IdentityVerifier validates a bearer token into a caller identity
type IdentityVerifier interface {
	Verify(ctx context.Context, rawToken string) (*entity.Identity, error)
}

// Authenticator resolves and authorizes callers for the checklist API
type Authenticator struct {
	verifier  IdentityVerifier
	allowlist repository.AllowlistRepository
}

// NewAuthenticator creates a new authenticator
func NewAuthenticator(verifier IdentityVerifier, allowlist repository.AllowlistRepository) *Authenticator {
	return &Authenticator{
		verifier:  verifier,
		allowlist: allowlist,
	}
}

// Identify validates the request's bearer token
func (a *Authenticator) Identify(r *http.Request) (*entity.Identity, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return nil, errNoToken
	}
	return a.verifier.Verify(r.Context(), strings.TrimSpace(token))
}

// Authorize validates the bearer token and requires an active allowlist entry
func (a *Authenticator) Authorize(r *http.Request) (*entity.Identity, error) {
	identity, err := a.Identify(r)
	if err != nil {
		return nil, err
	}

	entry, err := a.allowlist.Get(r.Context(), identity.UID)
	if err != nil {
		return nil, err
	}
	if entry == nil || !entry.Active {
		return nil, errNotAllowed
	}
	return identity, nil
}
