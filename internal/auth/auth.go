// Package auth verifies the bearer credential presented at the
// realtime handshake and resolves it to an identity. Credential
// issuance lives in the external identity service; this package only
// checks signatures and expiry.
package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pairwire/pairwire/internal/domain"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrExpiredCredential = errors.New("expired credential")
)

// Verifier resolves a raw credential to an identity.
type Verifier interface {
	Verify(credential string) (domain.Identity, error)
}

// CredentialFromRequest extracts the bearer credential from the
// Authorization header or, for browser WebSocket clients that cannot
// set headers, from the token query parameter.
func CredentialFromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		const prefix = "Bearer "
		if !strings.HasPrefix(h, prefix) {
			return "", ErrInvalidCredential
		}
		return h[len(prefix):], nil
	}
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok, nil
	}
	return "", ErrMissingCredential
}
