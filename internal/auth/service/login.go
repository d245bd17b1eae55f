package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/staffdeskhq/staffdesk/internal/auth/domain"
	"github.com/staffdeskhq/staffdesk/internal/auth/store"
	"github.com/staffdeskhq/staffdesk/pkg/cryptox"
	"github.com/staffdeskhq/staffdesk/pkg/httpx"
	"github.com/staffdeskhq/staffdesk/pkg/jwtx"
	"github.com/staffdeskhq/staffdesk/pkg/slogx"
)

var (
	// ErrInvalidCredentials deliberately covers unknown email, wrong
	// password, and deactivated accounts so responses never leak which
	// one it was.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	ErrAccountLocked = errors.New("account_locked")

	// ErrResetTokenInvalid covers unknown, expired, and already-used reset
	// tokens. Same reasoning as ErrInvalidCredentials.
	ErrResetTokenInvalid = errors.New("invalid_reset_token")

	// ErrUnauthorized is the generic 401 sentinel for endpoints that accept
	// a bearer token directly (MFA setup).
	ErrUnauthorized = errors.New("unauthorized")
)

// LoginResult is the outcome of a password check. When MFARequired is set the
// caller only holds the intermediate MFA token; Tokens is nil until the TOTP
// step completes.
type LoginResult struct {
	MFARequired bool
	MFAToken    string
	Tokens      *domain.TokenPair
}

// AuthService drives the login, logout, and credential lifecycle flows. It
// composes the token and MFA services and owns the lockout bookkeeping.
type AuthService struct {
	Store   store.Store
	Tokens  *TokenService
	MFA     *MFAService
	Lockout LockoutPolicy

	// PasswordParams tunes the argon2id cost. Zero value means defaults.
	PasswordParams cryptox.Argon2Params
}

func (s *AuthService) hashParams() cryptox.Argon2Params {
	if s.PasswordParams == (cryptox.Argon2Params{}) {
		return cryptox.DefaultArgon2Params()
	}
	return s.PasswordParams
}

// Login verifies an email/password pair. Lockout state is checked before the
// password so a locked account gives no signal about password correctness.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	log := slogx.FromContext(ctx)
	now := time.Now().UTC()

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a hash anyway so response timing does not reveal
			// whether the email exists.
			_, _ = cryptox.HashPasswordParams(password, s.hashParams())
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !user.Active {
		return LoginResult{}, ErrInvalidCredentials
	}
	if s.Lockout.IsLocked(user, now) {
		return LoginResult{}, ErrAccountLocked
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			if ferr := s.registerFailedLogin(ctx, user, now); ferr != nil {
				log.Error("failed to persist login failure", slog.Any("error", ferr))
			}
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if err := s.resetLoginFailures(ctx, user, now); err != nil {
		log.Error("failed to reset login counters", slog.Any("error", err))
	}

	if user.MFAEnabled {
		mfaToken, err := s.Tokens.CreateMFAToken(user)
		if err != nil {
			return LoginResult{}, err
		}
		return LoginResult{MFARequired: true, MFAToken: mfaToken}, nil
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Tokens: &pair}, nil
}

// CompleteMFALogin exchanges an intermediate MFA token plus a valid TOTP code
// for the full token pair.
func (s *AuthService) CompleteMFALogin(ctx context.Context, mfaToken, code string) (domain.TokenPair, error) {
	claims, err := s.Tokens.VerifyMFAToken(mfaToken)
	if err != nil {
		return domain.TokenPair{}, err
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.TokenPair{}, err
	}
	if !user.Active {
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	if err := s.MFA.VerifyCode(ctx, user.ID, code); err != nil {
		return domain.TokenPair{}, err
	}
	return s.issuePair(ctx, user)
}

// Refresh exchanges a live refresh token for a new access token. The refresh
// token itself is not rotated; it stays valid until expiry or revocation.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	claims, err := s.Tokens.VerifyRefreshToken(ctx, refreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrTokenInvalid
		}
		return domain.TokenPair{}, err
	}
	if !user.Active {
		return domain.TokenPair{}, ErrTokenInvalid
	}

	access, err := s.Tokens.CreateAccessToken(user)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.Tokens.AccessTTL().Seconds()),
	}, nil
}

// Logout revokes the presented refresh token. Expired tokens are accepted so
// a late logout still clears the record.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.Tokens.RevokeRefreshToken(ctx, refreshToken)
}

// LogoutEverywhere revokes every live refresh token the user holds.
func (s *AuthService) LogoutEverywhere(ctx context.Context, userID string) error {
	return s.Tokens.RevokeAllForUser(ctx, userID)
}

// RequestPasswordReset issues a reset token for the account, if one exists.
// The cleartext token is returned for delivery (email in production); an
// unknown or inactive email yields an empty token and no error, so the
// endpoint response is identical either way.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	if !user.Active {
		return "", nil
	}
	return s.Tokens.CreateResetToken(ctx, user)
}

// ConfirmPasswordReset redeems a reset token: the password hash update and
// the single-use marking commit atomically, then every refresh token the
// user holds is revoked.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	record, err := s.Tokens.FindResetTokenRecord(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return err
	}
	now := time.Now().UTC()
	if record.UsedAt != nil || now.After(record.ExpiresAt) {
		return ErrResetTokenInvalid
	}

	hash, err := cryptox.HashPasswordParams(newPassword, s.hashParams())
	if err != nil {
		return err
	}

	// Consume the token inside the same transaction as the hash update. Two
	// racing confirmations both pass the read above; only the one that flips
	// used_at commits, the other rolls back.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, record.UserID, hash); err != nil {
			return err
		}
		return tx.ResetTokens().ConsumeResetToken(ctx, record.ID)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return err
	}

	// A reset implies the old credential may be compromised; invalidate all
	// existing sessions.
	return s.Tokens.RevokeAllForUser(ctx, record.UserID)
}

// ChangePassword verifies the current password before installing the new
// one. The update clears the temporary-password flag and revokes all refresh
// tokens so stale sessions cannot outlive the old credential.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := cryptox.VerifyPassword(currentPassword, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return ErrInvalidCredentials
		}
		return err
	}

	hash, err := cryptox.HashPasswordParams(newPassword, s.hashParams())
	if err != nil {
		return err
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return err
	}
	return s.Tokens.RevokeAllForUser(ctx, user.ID)
}

// AuthenticateForMFASetup resolves the user behind an Authorization header
// for the MFA setup endpoints. Both a full access token and an intermediate
// MFA token are accepted: a user forced into MFA enrollment at login only
// holds the latter. Refresh tokens are never accepted here.
func (s *AuthService) AuthenticateForMFASetup(ctx context.Context, authorization string) (domain.User, error) {
	raw := httpx.BearerToken(authorization)
	if raw == "" {
		return domain.User{}, ErrUnauthorized
	}

	claims, err := s.Tokens.VerifyAccessToken(raw)
	if err != nil {
		claims, err = s.Tokens.VerifyMFAToken(raw)
		if err != nil || claims.Classify() != jwtx.KindMFA {
			return domain.User{}, ErrUnauthorized
		}
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUnauthorized
		}
		return domain.User{}, err
	}
	if !user.Active {
		return domain.User{}, ErrUnauthorized
	}
	return user, nil
}

func (s *AuthService) issuePair(ctx context.Context, user domain.User) (domain.TokenPair, error) {
	access, err := s.Tokens.CreateAccessToken(user)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.Tokens.CreateRefreshToken(ctx, user)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.Tokens.AccessTTL().Seconds()),
	}, nil
}

func (s *AuthService) registerFailedLogin(ctx context.Context, user domain.User, now time.Time) error {
	upd := s.Lockout.OnFailedLogin(user, now)
	if err := s.Store.Users().UpdateLoginAttempts(ctx, user.ID, upd); err != nil {
		return fmt.Errorf("update login attempts: %w", err)
	}
	return nil
}

func (s *AuthService) resetLoginFailures(ctx context.Context, user domain.User, now time.Time) error {
	upd, needed := s.Lockout.OnSuccessfulLogin(user, now)
	if !needed {
		return nil
	}
	if err := s.Store.Users().UpdateLoginAttempts(ctx, user.ID, upd); err != nil {
		return fmt.Errorf("reset login attempts: %w", err)
	}
	return nil
}
