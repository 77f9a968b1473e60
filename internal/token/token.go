// Package token implements the signing and verification of bearer
// tokens.  Both access and refresh tokens are HS256 JWTs carrying a
// subject and expiry; the codec itself is TTL-agnostic and callers pick
// a short TTL for access tokens and a long one for refresh tokens.
package token

import (
    "crypto/sha256" // SHA-256 hashing for refresh token storage
    "encoding/hex"  // hex encoding of digests
    "errors"
    "time"

    "github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
    "github.com/google/uuid"
)

// ErrInvalidToken is returned by Verify for every failure mode:
// malformed encoding, signature mismatch, missing subject, or expiry in
// the past.  Callers must not distinguish between them.
var ErrInvalidToken = errors.New("invalid token")

// Issued bundles a signed token string with its expiration time so
// callers can report the expiry without re-parsing the token.
type Issued struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// Codec signs and verifies tokens with a single symmetric secret held
// in process configuration.  It is stateless and safe for concurrent
// use.
type Codec struct {
    secret []byte
}

// NewCodec returns a Codec signing with the given secret.
func NewCodec(secret string) *Codec {
    return &Codec{secret: []byte(secret)}
}

// Issue builds and signs an HS256 JWT whose subject is the given
// account ID.  The JWT includes standard claims: subject (sub),
// expiration (exp) and issued at (iat).
func (c *Codec) Issue(subject uuid.UUID, ttl time.Duration) (Issued, error) {
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := jwt.MapClaims{
        "sub": subject.String(),
        "exp": exp.Unix(),
        "iat": now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString(c.secret)
    if err != nil {
        return Issued{}, err
    }
    return Issued{Token: signed, Exp: exp}, nil
}

// Verify parses and validates a token and returns its subject.  Expiry
// is checked against wall-clock time at the moment of the call, so a
// token can flip from valid to expired between two verifications;
// callers must treat every call as a fresh check and never cache a
// positive result.
func (c *Codec) Verify(raw string) (uuid.UUID, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        // Reject tokens signed with anything but HMAC.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidToken
        }
        return c.secret, nil
    })
    if err != nil || !tok.Valid {
        return uuid.Nil, ErrInvalidToken
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return uuid.Nil, ErrInvalidToken
    }
    sub, _ := claims["sub"].(string)
    id, err := uuid.Parse(sub)
    if err != nil {
        return uuid.Nil, ErrInvalidToken
    }
    return id, nil
}

// Hash returns the SHA-256 hex digest of a raw refresh token.  Only the
// hash is persisted, so a stolen sessions table cannot be replayed to
// mint new access tokens.
func Hash(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}
