package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers malformed tokens, bad signatures, and wrong
	// signing algorithms. Callers must not distinguish these in
	// user-facing responses.
	ErrInvalidToken = errors.New("jwtx: invalid token")

	// ErrExpired reports a structurally valid token past its expiry (or
	// before its nbf). Kept separate from ErrInvalidToken for internal
	// logging only.
	ErrExpired = errors.New("jwtx: token expired")
)

// Codec signs and verifies HS256 tokens under a single symmetric secret.
// Each token kind gets its own Codec with its own secret, so a token signed
// for one kind can never verify under another kind's codec.
type Codec struct {
	secret []byte
	issuer string
}

// NewCodec builds a Codec. The secret comes from configuration; the codec
// never generates keys itself.
func NewCodec(secret, issuer string) *Codec {
	return &Codec{secret: []byte(secret), issuer: issuer}
}

// Sign produces the compact serialized token for claims.
func (c *Codec) Sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and the registered time claims, returning the
// claims on success.
func (c *Codec) Parse(raw string) (Claims, error) {
	return c.parse(raw, false)
}

// ParseAllowExpired verifies the signature but skips expiry validation. Used
// when revoking a refresh token: a token being revoked may already be past
// its expiry, and rejecting it would leave the persisted record unrevoked.
func (c *Codec) ParseAllowExpired(raw string) (Claims, error) {
	return c.parse(raw, true)
}

func (c *Codec) parse(raw string, allowExpired bool) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	if allowExpired {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) || errors.Is(err, jwt.ErrTokenNotValidYet) {
			return Claims{}, ErrExpired
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
