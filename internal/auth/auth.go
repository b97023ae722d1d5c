package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"svg-converter/internal/model"
)

// Claims carried by an api key. Role is informational; any valid key grants
// access to every protected endpoint.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks api keys signed with the shared HS256 secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret must not be empty")
	}

	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}, nil
}

// Verify returns model.ErrMissingCredential for an empty token and
// model.ErrInvalidCredential for anything that does not verify, including
// expired tokens.
func (v *Verifier) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, model.ErrMissingCredential
	}

	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidCredential, err)
	}
	if !parsed.Valid {
		return nil, model.ErrInvalidCredential
	}

	return claims, nil
}

// Issuer signs api keys. There is no login endpoint; keys are minted out of
// band with cmd/issue-token.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

func NewIssuer(secret string) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret must not be empty")
	}

	return &Issuer{secret: []byte(secret), now: time.Now}, nil
}

// Sign returns a token for role. A zero ttl produces a key that never expires.
func (i *Issuer) Sign(role string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		Role: strings.TrimSpace(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign api key: %w", err)
	}

	return signed, nil
}
