package service

import (
	"context"
	"testing"

	"github.com/staffdeskhq/staffdesk/internal/auth/domain"
	"github.com/staffdeskhq/staffdesk/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestBootstrapService_ValidateBootstrapToken(t *testing.T) {
	t.Run("unconfigured deployment fails closed", func(t *testing.T) {
		svc := &BootstrapService{Token: ""}
		err := svc.ValidateBootstrapToken("anything")
		require.ErrorIs(t, err, ErrBootstrapUnconfigured)
	})

	t.Run("wrong token rejected", func(t *testing.T) {
		svc := &BootstrapService{Token: "expected-token"}
		require.ErrorIs(t, svc.ValidateBootstrapToken("wrong-token"), ErrBootstrapUnauthorized)
		require.ErrorIs(t, svc.ValidateBootstrapToken(""), ErrBootstrapUnauthorized)
		require.ErrorIs(t, svc.ValidateBootstrapToken("expected-token-extra"), ErrBootstrapUnauthorized)
	})

	t.Run("correct token accepted", func(t *testing.T) {
		svc := &BootstrapService{Token: "expected-token"}
		require.NoError(t, svc.ValidateBootstrapToken("expected-token"))
	})
}

func TestBootstrapService_BootstrapUser(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the initial admin", func(t *testing.T) {
		st := newTestStore(t)
		svc := &BootstrapService{Store: st, Token: "tok"}

		user, err := svc.BootstrapUser(ctx, "admin@example.com", "Admin", "super-secret-pw")
		require.NoError(t, err)
		require.Equal(t, domain.RoleAdmin, user.Role)
		require.True(t, user.Active)
		require.False(t, user.MFAEnabled)
		require.NotEmpty(t, user.ID)

		got, err := st.Users().GetUserByEmail(ctx, "admin@example.com")
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)
		require.NotEqual(t, "super-secret-pw", got.PasswordHash)
	})

	t.Run("custom hashing cost is honoured", func(t *testing.T) {
		st := newTestStore(t)
		svc := &BootstrapService{
			Store: st,
			Token: "tok",
			PasswordParams: cryptox.Argon2Params{
				Memory:      8 * 1024,
				Iterations:  1,
				Parallelism: 1,
				SaltLength:  16,
				KeyLength:   32,
			},
		}

		user, err := svc.BootstrapUser(ctx, "admin@example.com", "Admin", "super-secret-pw")
		require.NoError(t, err)
		require.Contains(t, user.PasswordHash, "m=8192,t=1,p=1")
		require.NoError(t, cryptox.VerifyPassword("super-secret-pw", user.PasswordHash))
	})

	t.Run("duplicate email resolves to the existing row", func(t *testing.T) {
		st := newTestStore(t)
		svc := &BootstrapService{Store: st, Token: "tok"}

		first, err := svc.BootstrapUser(ctx, "admin@example.com", "Admin", "super-secret-pw")
		require.NoError(t, err)

		// A racing second request must not error and must see the winner's
		// row, not a new one.
		second, err := svc.BootstrapUser(ctx, "admin@example.com", "Admin", "different-pw")
		require.NoError(t, err)
		require.Equal(t, first.ID, second.ID)
	})

	t.Run("is first run flips after bootstrap", func(t *testing.T) {
		st := newTestStore(t)
		svc := &BootstrapService{Store: st, Token: "tok"}

		empty, err := svc.IsFirstRun(ctx)
		require.NoError(t, err)
		require.True(t, empty)

		_, err = svc.BootstrapUser(ctx, "admin@example.com", "Admin", "super-secret-pw")
		require.NoError(t, err)

		empty, err = svc.IsFirstRun(ctx)
		require.NoError(t, err)
		require.False(t, empty)
	})
}
