package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/staffdeskhq/staffdesk/internal/auth/domain"
	"github.com/staffdeskhq/staffdesk/internal/auth/store"
	"github.com/staffdeskhq/staffdesk/internal/auth/store/drivers/sqlite"
	"github.com/staffdeskhq/staffdesk/pkg/cryptox"
	"github.com/staffdeskhq/staffdesk/pkg/idx"
	"github.com/staffdeskhq/staffdesk/pkg/totpx"
	"github.com/stretchr/testify/require"
)

// Shared fixtures for the store-backed service tests. Every test gets a
// fresh in-memory database with migrations applied.

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func testEncryptionKey() []byte {
	return bytes.Repeat([]byte{0x07}, cryptox.SecretKeySize)
}

func newTestTokenService(st store.Store) *TokenService {
	return NewTokenService(st, TokenConfig{
		Issuer:        "staffdesk-test",
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		MFASecret:     "mfa-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		MFATTL:        5 * time.Minute,
		ResetTTL:      time.Hour,
	})
}

func newTestAuthService(st store.Store) *AuthService {
	return &AuthService{
		Store:  st,
		Tokens: newTestTokenService(st),
		MFA: &MFAService{
			Store:         st,
			Issuer:        "StaffDesk",
			EncryptionKey: testEncryptionKey(),
			TOTP:          totpx.Options{},
		},
		Lockout: NewLockoutPolicy(3, 30*time.Minute),
	}
}

type seedOpts struct {
	password  string
	role      string
	inactive  bool
	temporal  bool
	mfaSecret string // plaintext TOTP secret; enables MFA when set
}

func seedUser(t *testing.T, st store.Store, email string, opts seedOpts) domain.User {
	t.Helper()

	if opts.password == "" {
		opts.password = "hunter2hunter2"
	}
	if opts.role == "" {
		opts.role = domain.RoleEmployee
	}

	hash, err := cryptox.HashPassword(opts.password)
	require.NoError(t, err)

	now := time.Now().UTC()
	u := domain.User{
		ID:               idx.New().String(),
		Email:            email,
		Name:             "Test User",
		PasswordHash:     hash,
		Role:             opts.role,
		PasswordTemporal: opts.temporal,
		Active:           !opts.inactive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))

	if opts.mfaSecret != "" {
		encrypted, err := cryptox.EncryptSecret(opts.mfaSecret, testEncryptionKey())
		require.NoError(t, err)
		require.NoError(t, st.Users().UpdateMFASecret(context.Background(), u.ID, &encrypted))
		require.NoError(t, st.Users().EnableMFA(context.Background(), u.ID))
	}

	got, err := st.Users().GetUserByID(context.Background(), u.ID)
	require.NoError(t, err)
	return got
}

func totpCodeNow(t *testing.T, secret string) string {
	t.Helper()
	code, err := totpx.GenerateAt(secret, time.Now().UTC(), totpx.Options{})
	require.NoError(t, err)
	return code
}
