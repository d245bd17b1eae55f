package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind is the closed set of signed token kinds. Verification classifies a
// parsed token into exactly one Kind and callers match exhaustively, so a
// token of one kind can never slip through a check meant for another.
type Kind string

const (
	// KindAccess is a short-lived data-access token. Access tokens carry
	// no "type" claim; the presence of one disqualifies the token.
	KindAccess Kind = "access"

	// KindRefresh is a long-lived token backed by a persisted record.
	KindRefresh Kind = "refresh"

	// KindMFA is the intermediate token minted between password
	// verification and TOTP acceptance. It authenticates only to the MFA
	// verification and setup endpoints.
	KindMFA Kind = "mfa"

	// KindUnknown is any type claim value outside the closed set.
	KindUnknown Kind = "unknown"
)

// Claims are the JWT claims shared by all signed token kinds.
type Claims struct {
	jwt.RegisteredClaims

	// Role is carried on access tokens only (e.g. "ADMIN", "EMPLOYEE").
	Role string `json:"role,omitempty"`

	// TokenType discriminates refresh and mfa tokens. Access tokens omit
	// it entirely; see Classify.
	TokenType string `json:"type,omitempty"`
}

// Classify maps the type claim onto the closed Kind set. An absent type
// claim means access: this mirrors the stored token format, where only
// non-access kinds are stamped. A stricter scheme would stamp access tokens
// too, but existing tokens in the wild make that a migration, not a patch.
func (c Claims) Classify() Kind {
	switch c.TokenType {
	case "":
		return KindAccess
	case string(KindRefresh):
		return KindRefresh
	case string(KindMFA):
		return KindMFA
	default:
		return KindUnknown
	}
}

// NewAccessClaims builds claims for a data-access token.
func NewAccessClaims(subject, role, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: registered(subject, issuer, ttl, now),
		Role:             role,
	}
}

// NewRefreshClaims builds claims for a refresh token. The jti correlates the
// signed token with its persisted revocation record.
func NewRefreshClaims(subject, jti, issuer string, ttl time.Duration, now time.Time) Claims {
	rc := registered(subject, issuer, ttl, now)
	rc.ID = jti
	return Claims{
		RegisteredClaims: rc,
		TokenType:        string(KindRefresh),
	}
}

// NewMFAClaims builds claims for an MFA-intermediate token.
func NewMFAClaims(subject, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: registered(subject, issuer, ttl, now),
		TokenType:        string(KindMFA),
	}
}

func registered(subject, issuer string, ttl time.Duration, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}
