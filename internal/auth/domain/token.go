package domain

import "time"

// TokenPair is what a completed login returns: the short-lived access JWT
// and the long-lived refresh JWT.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    int64  `json:"expires_in"`           // access token lifetime, seconds
}

// RefreshToken models the persisted refresh token record. Rows are marked
// revoked rather than deleted, so revocations stay auditable.
type RefreshToken struct {
	ID        string
	JTI       string // matches the signed token's jti claim
	UserID    string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ResetToken models a persisted password-reset record. Only the SHA-256
// fingerprint of the opaque token is stored; once UsedAt is set the record is
// permanently inert even if the original token string is replayed.
type ResetToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// MFAEnrollment is returned when a user starts TOTP enrollment. The secret
// is shown exactly once; only its encrypted form is persisted.
type MFAEnrollment struct {
	Secret     string `json:"secret"`      // base32, for manual entry
	OTPAuthURL string `json:"otpauth_url"` // for QR rendering
	Issuer     string `json:"issuer"`
	Account    string `json:"account"`
}
