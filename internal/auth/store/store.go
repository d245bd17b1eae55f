package store

import (
	"context"
	"errors"

	"github.com/staffdeskhq/staffdesk/internal/auth/domain"
)

var (
	ErrNotFound = errors.New("store: not found")

	// ErrAlreadyExists is the typed unique-violation sentinel. The
	// bootstrap race handler matches on this rather than sniffing driver
	// error shapes.
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface the auth core consumes. Concrete
// drivers (sqlite today, postgres later) implement it. Sub-repositories keep
// the surface narrow and mockable.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens
	ResetTokens() ResetTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST Commit() or Rollback().
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, rolling back on error and
	// committing on nil. Preferred over Tx for multi-step operations.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used during login and the bootstrap race recovery.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id supplied by the app via ULID).
	// A duplicate email returns ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password hash, clears the temporal
	// password flag, and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error

	// UpdateMFASecret stores the encrypted secret envelope (nil clears it).
	UpdateMFASecret(ctx context.Context, userID string, encryptedSecret *string) error

	// EnableMFA / DisableMFA flip the mfa_enabled flag; DisableMFA also
	// clears the stored secret.
	EnableMFA(ctx context.Context, userID string) error
	DisableMFA(ctx context.Context, userID string) error

	// UpdateLoginAttempts persists a lockout policy decision.
	UpdateLoginAttempts(ctx context.Context, userID string, upd domain.LoginAttemptUpdate) error

	// IsEmpty reports whether any users exist (first-run bootstrap check).
	IsEmpty(ctx context.Context) (bool, error)
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByJTI looks a record up by the signed token's jti claim.
	GetRefreshTokenByJTI(ctx context.Context, jti string) (domain.RefreshToken, error)

	// RevokeRefreshToken sets revoked_at on an unrevoked record. Revoking
	// an already-revoked record is a no-op, preserving the original
	// revocation time.
	RevokeRefreshToken(ctx context.Context, jti string) error

	// RevokeAllForUser bulk-revokes every unrevoked record for a user
	// (password change, forced logout, compromise response).
	RevokeAllForUser(ctx context.Context, userID string) error

	// DeleteExpiredRefreshTokens is housekeeping. Revoked-but-unexpired
	// rows are retained as an audit trail.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}

type ResetTokens interface {
	CreateResetToken(ctx context.Context, t domain.ResetToken) error

	// GetResetTokenByHash looks a record up by token fingerprint.
	GetResetTokenByHash(ctx context.Context, hash string) (domain.ResetToken, error)

	// MarkResetTokenUsed sets used_at if not already set (idempotent).
	MarkResetTokenUsed(ctx context.Context, id string) error

	// ConsumeResetToken sets used_at like MarkResetTokenUsed but returns
	// ErrNotFound when the row is missing or already used, so racing
	// redemptions see exactly one winner.
	ConsumeResetToken(ctx context.Context, id string) error

	DeleteExpiredResetTokens(ctx context.Context) error
}
