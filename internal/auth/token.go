package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/pairwire/pairwire/internal/domain"
)

const maxTokenLen = 8 * 1024

// TokenVerifier checks HS256-signed compact tokens
// (base64url(header).base64url(claims).base64url(sig)) issued by the
// identity service. Only the alg actually issued is accepted.
type TokenVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), now: time.Now}
}

type tokenClaims struct {
	Sub  string `json:"sub"`
	Name string `json:"name"`
	Exp  int64  `json:"exp"`
}

func (v *TokenVerifier) Verify(credential string) (domain.Identity, error) {
	if credential == "" {
		return domain.Identity{}, ErrMissingCredential
	}
	if len(credential) > maxTokenLen {
		return domain.Identity{}, ErrInvalidCredential
	}

	headerB64, claimsB64, sigB64, ok := splitToken(credential)
	if !ok {
		return domain.Identity{}, ErrInvalidCredential
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(headerB64)
	if err != nil {
		return domain.Identity{}, ErrInvalidCredential
	}
	var header struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return domain.Identity{}, ErrInvalidCredential
	}
	if header.Alg != "HS256" {
		return domain.Identity{}, ErrInvalidCredential
	}

	gotSig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil {
		return domain.Identity{}, ErrInvalidCredential
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(headerB64))
	mac.Write([]byte{'.'})
	mac.Write([]byte(claimsB64))
	if !hmac.Equal(gotSig, mac.Sum(nil)) {
		return domain.Identity{}, ErrInvalidCredential
	}

	claimsJSON, err := base64.RawURLEncoding.DecodeString(claimsB64)
	if err != nil {
		return domain.Identity{}, ErrInvalidCredential
	}
	var claims tokenClaims
	if err := json.Unmarshal(claimsJSON, &claims); err != nil {
		return domain.Identity{}, ErrInvalidCredential
	}
	if claims.Sub == "" {
		return domain.Identity{}, ErrInvalidCredential
	}
	if claims.Exp == 0 || v.now().Unix() >= claims.Exp {
		return domain.Identity{}, ErrExpiredCredential
	}

	name := claims.Name
	if name == "" {
		name = "guest"
	}
	ident, err := domain.NewIdentity(domain.UserID(claims.Sub), name)
	if err != nil {
		return domain.Identity{}, ErrInvalidCredential
	}
	return ident, nil
}

func splitToken(token string) (header, claims, sig string, ok bool) {
	first := strings.IndexByte(token, '.')
	if first < 0 {
		return "", "", "", false
	}
	last := strings.LastIndexByte(token, '.')
	if last == first {
		return "", "", "", false
	}
	header = token[:first]
	claims = token[first+1 : last]
	sig = token[last+1:]
	if header == "" || claims == "" || sig == "" {
		return "", "", "", false
	}
	return header, claims, sig, true
}
