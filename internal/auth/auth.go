// Package auth supplies the credential each virtual user presents to the target.
package auth

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Source says where a credential came from.
type Source string

const (
	SourceSupplied  Source = "supplied"
	SourceSynthetic Source = "synthetic"
)

// TokenProvider hands out one credential per virtual user.
type TokenProvider interface {
	Token(userID string) (string, error)
	Source() Source
}

// New returns a Supplied provider when token is set, otherwise a Synthetic one.
func New(token string) (TokenProvider, error) {
	if token != "" {
		return Supplied{Value: token}, nil
	}
	return NewSynthetic()
}

// Supplied hands every user the same externally provided token.
type Supplied struct {
	Value string
}

func (s Supplied) Token(string) (string, error) { return s.Value, nil }

func (s Supplied) Source() Source { return SourceSupplied }

// Synthetic signs a placeholder HS256 token per user with a key generated
// for this run only. The target is not expected to verify it.
type Synthetic struct {
	key    []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewSynthetic() (*Synthetic, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return &Synthetic{
		key:    key,
		ttl:    time.Hour,
		issuer: "chaosq",
		now:    time.Now,
	}, nil
}

func (s *Synthetic) Token(userID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   userID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token for %s: %w", userID, err)
	}
	return tok, nil
}

func (s *Synthetic) Source() Source { return SourceSynthetic }

// Verify parses a token minted by this provider. The dummy target can plug it
// in through dummy.ServerConfig.VerifyToken.
func (s *Synthetic) Verify(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}
