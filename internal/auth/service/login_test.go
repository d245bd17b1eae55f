package service

import (
	"context"
	"testing"
	"time"

	"github.com/staffdeskhq/staffdesk/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials return a token pair", func(t *testing.T) {
		st := newTestStore(t)
		auth := newTestAuthService(st)
		seedUser(t, st, "avery@example.com", seedOpts{password: "correct-password"})

		result, err := auth.Login(ctx, "avery@example.com", "correct-password")
		require.NoError(t, err)
		require.False(t, result.MFARequired)
		require.NotNil(t, result.Tokens)
		require.NotEmpty(t, result.Tokens.AccessToken)
		require.NotEmpty(t, result.Tokens.RefreshToken)
		require.Equal(t, "Bearer", result.Tokens.TokenType)

		claims, err := auth.Tokens.VerifyAccessToken(result.Tokens.AccessToken)
		require.NoError(t, err)
		require.Equal(t, "EMPLOYEE", claims.Role)
	})

	t.Run("unknown email rejected", func(t *testing.T) {
		st := newTestStore(t)
		auth := newTestAuthService(st)

		_, err := auth.Login(ctx, "nobody@example.com", "whatever")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		st := newTestStore(t)
		auth := newTestAuthService(st)
		seedUser(t, st, "avery@example.com", seedOpts{password: "correct-password"})

		_, err := auth.Login(ctx, "avery@example.com", "wrong-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("inactive account indistinguishable from bad credentials", func(t *testing.T) {
		st := newTestStore(t)
		auth := newTestAuthService(st)
		seedUser(t, st, "gone@example.com", seedOpts{password: "correct-password", inactive: true})

		_, err := auth.Login(ctx, "gone@example.com", "correct-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("mfa-enabled account gets intermediate token only", func(t *testing.T) {
		st := newTestStore(t)
		auth := newTestAuthService(st)
		seedUser(t, st, "avery@example.com", seedOpts{
			password:  "correct-password",
			mfaSecret: "JBSWY3DPEHPK3PXP",
		})

		result, err := auth.Login(ctx, "avery@example.com", "correct-password")
		require.NoError(t, err)
		require.True(t, result.MFARequired)
		require.NotEmpty(t, result.MFAToken)
		require.Nil(t, result.Tokens)

		// The intermediate token must not pass as an access token.
		_, err = auth.Tokens.VerifyAccessToken(result.MFAToken)
		require.ErrorIs(t, err, ErrTokenInvalid)
	})
}

func TestAuthService_Lockout(t *testing.T) {
	ctx := context.Background()

	t.Run("three failures lock the account", func(t *testing.T) {
		st := newTestStore(t)
		auth := newTestAuthService(st)
		u := seedUser(t, st, "avery@example.com", seedOpts{password: "correct-password"})

		for i := 0; i < 3; i++ {
			_, err := auth.Login(ctx, "avery@example.com", "wrong")
			require.ErrorIs(t, err, ErrInvalidCredentials)
		}

		got, err := st.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, 3, got.FailedLoginAttempts)
		require.NotNil(t, got.LockedUntil)

		// Correct password while locked still reports the lock.
		_, err = auth.Login(ctx, "avery@example.com", "correct-password")
		require.ErrorIs(t, err, ErrAccountLocked)
	})

	t.Run("success before threshold resets the counter", func(t *testing.T) {
		st := newTestStore(t)
		auth := newTestAuthService(st)
		u := seedUser(t, st, "avery@example.com", seedOpts{password: "correct-password"})

		for i := 0; i < 2; i++ {
			_, err := auth.Login(ctx, "avery@example.com", "wrong")
			require.ErrorIs(t, err, ErrInvalidCredentials)
		}

		_, err := auth.Login(ctx, "avery@example.com", "correct-password")
		require.NoError(t, err)

		got, err := st.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Zero(t, got.FailedLoginAttempts)
		require.Nil(t, got.LockedUntil)
	})

	t.Run("expired lock clears on next successful login", func(t *testing.T) {
		st := newTestStore(t)
		auth := newTestAuthService(st)
		u := seedUser(t, st, "avery@example.com", seedOpts{password: "correct-password"})

		// Simulate a lock that has already expired.
		past := time.Now().UTC().Add(-time.Minute)
		require.NoError(t, st.Users().UpdateLoginAttempts(ctx, u.ID, domain.LoginAttemptUpdate{
			FailedLoginAttempts: 3,
			LockedUntil:         &past,
			UpdatedAt:           time.Now().UTC(),
		}))

		result, err := auth.Login(ctx, "avery@example.com", "correct-password")
		require.NoError(t, err)
		require.NotNil(t, result.Tokens)

		got, err := st.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Zero(t, got.FailedLoginAttempts)
		require.Nil(t, got.LockedUntil)
	})
}

func TestAuthService_CompleteMFALogin(t *testing.T) {
	ctx := context.Background()
	const secret = "JBSWY3DPEHPK3PXP"

	setup := func(t *testing.T) (*AuthService, string) {
		st := newTestStore(t)
		auth := newTestAuthService(st)
		seedUser(t, st, "avery@example.com", seedOpts{
			password:  "correct-password",
			mfaSecret: secret,
		})

		result, err := auth.Login(ctx, "avery@example.com", "correct-password")
		require.NoError(t, err)
		require.True(t, result.MFARequired)
		return auth, result.MFAToken
	}

	t.Run("valid code completes the login", func(t *testing.T) {
		auth, mfaToken := setup(t)

		pair, err := auth.CompleteMFALogin(ctx, mfaToken, totpCodeNow(t, secret))
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.RefreshToken)
	})

	t.Run("wrong code rejected", func(t *testing.T) {
		auth, mfaToken := setup(t)

		_, err := auth.CompleteMFALogin(ctx, mfaToken, "000000")
		require.ErrorIs(t, err, ErrInvalidTOTPCode)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		auth, _ := setup(t)

		_, err := auth.CompleteMFALogin(ctx, "not-a-token", totpCodeNow(t, secret))
		require.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("access token rejected at the mfa step", func(t *testing.T) {
		auth, mfaToken := setup(t)

		pair, err := auth.CompleteMFALogin(ctx, mfaToken, totpCodeNow(t, secret))
		require.NoError(t, err)

		_, err = auth.CompleteMFALogin(ctx, pair.AccessToken, totpCodeNow(t, secret))
		require.ErrorIs(t, err, ErrTokenInvalid)
	})
}

func TestAuthService_RefreshAndLogout(t *testing.T) {
	ctx := context.Background()

	login := func(t *testing.T) (*AuthService, string, string) {
		st := newTestStore(t)
		auth := newTestAuthService(st)
		seedUser(t, st, "avery@example.com", seedOpts{password: "correct-password"})

		result, err := auth.Login(ctx, "avery@example.com", "correct-password")
		require.NoError(t, err)
		return auth, result.Tokens.AccessToken, result.Tokens.RefreshToken
	}

	t.Run("refresh issues a new access token and keeps the refresh token", func(t *testing.T) {
		auth, _, refresh := login(t)

		pair, err := auth.Refresh(ctx, refresh)
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)
		require.Equal(t, refresh, pair.RefreshToken)

		_, err = auth.Tokens.VerifyAccessToken(pair.AccessToken)
		require.NoError(t, err)
	})

	t.Run("access token cannot be used to refresh", func(t *testing.T) {
		auth, access, _ := login(t)

		_, err := auth.Refresh(ctx, access)
		require.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("logout revokes and replay is detected", func(t *testing.T) {
		auth, _, refresh := login(t)

		require.NoError(t, auth.Logout(ctx, refresh))

		_, err := auth.Refresh(ctx, refresh)
		require.ErrorIs(t, err, ErrTokenRevoked)

		// Logout again is a no-op, not an error.
		require.NoError(t, auth.Logout(ctx, refresh))
	})

	t.Run("logout everywhere revokes all sessions", func(t *testing.T) {
		st := newTestStore(t)
		auth := newTestAuthService(st)
		u := seedUser(t, st, "avery@example.com", seedOpts{password: "correct-password"})

		first, err := auth.Login(ctx, "avery@example.com", "correct-password")
		require.NoError(t, err)
		second, err := auth.Login(ctx, "avery@example.com", "correct-password")
		require.NoError(t, err)

		require.NoError(t, auth.LogoutEverywhere(ctx, u.ID))

		_, err = auth.Refresh(ctx, first.Tokens.RefreshToken)
		require.ErrorIs(t, err, ErrTokenRevoked)
		_, err = auth.Refresh(ctx, second.Tokens.RefreshToken)
		require.ErrorIs(t, err, ErrTokenRevoked)
	})
}

func TestAuthService_PasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("full reset flow", func(t *testing.T) {
		st := newTestStore(t)
		auth := newTestAuthService(st)
		seedUser(t, st, "avery@example.com", seedOpts{password: "old-password"})

		token, err := auth.RequestPasswordReset(ctx, "avery@example.com")
		require.NoError(t, err)
		require.NotEmpty(t, token)
		require.Len(t, token, 64, "reset token should be 32 hex-encoded bytes")

		require.NoError(t, auth.ConfirmPasswordReset(ctx, token, "new-password-123"))

		// Old password no longer works, new one does.
		_, err = auth.Login(ctx, "avery@example.com", "old-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = auth.Login(ctx, "avery@example.com", "new-password-123")
		require.NoError(t, err)
	})

	t.Run("reset token is single use", func(t *testing.T) {
		st := newTestStore(t)
		auth := newTestAuthService(st)
		seedUser(t, st, "avery@example.com", seedOpts{password: "old-password"})

		token, err := auth.RequestPasswordReset(ctx, "avery@example.com")
		require.NoError(t, err)

		require.NoError(t, auth.ConfirmPasswordReset(ctx, token, "new-password-123"))
		err = auth.ConfirmPasswordReset(ctx, token, "another-password")
		require.ErrorIs(t, err, ErrResetTokenInvalid)
	})

	t.Run("reset revokes existing sessions", func(t *testing.T) {
		st := newTestStore(t)
		auth := newTestAuthService(st)
		seedUser(t, st, "avery@example.com", seedOpts{password: "old-password"})

		result, err := auth.Login(ctx, "avery@example.com", "old-password")
		require.NoError(t, err)

		token, err := auth.RequestPasswordReset(ctx, "avery@example.com")
		require.NoError(t, err)
		require.NoError(t, auth.ConfirmPasswordReset(ctx, token, "new-password-123"))

		_, err = auth.Refresh(ctx, result.Tokens.RefreshToken)
		require.ErrorIs(t, err, ErrTokenRevoked)
	})

	t.Run("unknown email yields no token and no error", func(t *testing.T) {
		st := newTestStore(t)
		auth := newTestAuthService(st)

		token, err := auth.RequestPasswordReset(ctx, "nobody@example.com")
		require.NoError(t, err)
		require.Empty(t, token)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		st := newTestStore(t)
		auth := newTestAuthService(st)

		err := auth.ConfirmPasswordReset(ctx, "deadbeef", "new-password-123")
		require.ErrorIs(t, err, ErrResetTokenInvalid)
	})
}

func TestAuthService_ChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("changes password and revokes sessions", func(t *testing.T) {
		st := newTestStore(t)
		auth := newTestAuthService(st)
		u := seedUser(t, st, "avery@example.com", seedOpts{password: "old-password", temporal: true})

		result, err := auth.Login(ctx, "avery@example.com", "old-password")
		require.NoError(t, err)

		require.NoError(t, auth.ChangePassword(ctx, u.ID, "old-password", "new-password-123"))

		// Temporal flag cleared alongside the hash update.
		got, err := st.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.False(t, got.PasswordTemporal)

		_, err = auth.Refresh(ctx, result.Tokens.RefreshToken)
		require.ErrorIs(t, err, ErrTokenRevoked)

		_, err = auth.Login(ctx, "avery@example.com", "new-password-123")
		require.NoError(t, err)
	})

	t.Run("wrong current password rejected", func(t *testing.T) {
		st := newTestStore(t)
		auth := newTestAuthService(st)
		u := seedUser(t, st, "avery@example.com", seedOpts{password: "old-password"})

		err := auth.ChangePassword(ctx, u.ID, "not-the-password", "new-password-123")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAuthService_AuthenticateForMFASetup(t *testing.T) {
	ctx := context.Background()
	const secret = "JBSWY3DPEHPK3PXP"

	t.Run("accepts an access token", func(t *testing.T) {
		st := newTestStore(t)
		auth := newTestAuthService(st)
		u := seedUser(t, st, "avery@example.com", seedOpts{password: "correct-password"})

		result, err := auth.Login(ctx, "avery@example.com", "correct-password")
		require.NoError(t, err)

		got, err := auth.AuthenticateForMFASetup(ctx, "Bearer "+result.Tokens.AccessToken)
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
	})

	t.Run("accepts an intermediate mfa token", func(t *testing.T) {
		st := newTestStore(t)
		auth := newTestAuthService(st)
		u := seedUser(t, st, "avery@example.com", seedOpts{
			password:  "correct-password",
			mfaSecret: secret,
		})

		result, err := auth.Login(ctx, "avery@example.com", "correct-password")
		require.NoError(t, err)
		require.True(t, result.MFARequired)

		got, err := auth.AuthenticateForMFASetup(ctx, "Bearer "+result.MFAToken)
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
	})

	t.Run("rejects a refresh token", func(t *testing.T) {
		st := newTestStore(t)
		auth := newTestAuthService(st)
		seedUser(t, st, "avery@example.com", seedOpts{password: "correct-password"})

		result, err := auth.Login(ctx, "avery@example.com", "correct-password")
		require.NoError(t, err)

		_, err = auth.AuthenticateForMFASetup(ctx, "Bearer "+result.Tokens.RefreshToken)
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("rejects missing and malformed headers", func(t *testing.T) {
		st := newTestStore(t)
		auth := newTestAuthService(st)

		_, err := auth.AuthenticateForMFASetup(ctx, "")
		require.ErrorIs(t, err, ErrUnauthorized)

		_, err = auth.AuthenticateForMFASetup(ctx, "Basic dXNlcg==")
		require.ErrorIs(t, err, ErrUnauthorized)

		_, err = auth.AuthenticateForMFASetup(ctx, "Bearer garbage")
		require.ErrorIs(t, err, ErrUnauthorized)
	})
}
