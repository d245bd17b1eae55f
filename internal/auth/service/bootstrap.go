package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/staffdeskhq/staffdesk/internal/auth/domain"
	"github.com/staffdeskhq/staffdesk/internal/auth/store"
	"github.com/staffdeskhq/staffdesk/pkg/cryptox"
	"github.com/staffdeskhq/staffdesk/pkg/idx"
)

var (
	// ErrBootstrapUnconfigured means no bootstrap token is set on the
	// deployment, so the bootstrap surface is entirely disabled.
	ErrBootstrapUnconfigured = errors.New("bootstrap_unconfigured")

	ErrBootstrapUnauthorized = errors.New("bootstrap_unauthorized")
)

// BootstrapService provisions the first administrator of a fresh deployment.
// The flow is gated by a shared token from the environment rather than a
// user credential, since no users exist yet.
type BootstrapService struct {
	Store store.Store

	// Token is the expected bootstrap token. Empty disables bootstrap.
	Token string

	// PasswordParams tunes the argon2id cost. Zero value means defaults.
	PasswordParams cryptox.Argon2Params
}

// ValidateBootstrapToken checks the supplied token against the configured
// one in constant time. Unconfigured deployments fail closed.
func (s *BootstrapService) ValidateBootstrapToken(supplied string) error {
	if s.Token == "" {
		return ErrBootstrapUnconfigured
	}
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(s.Token)) != 1 {
		return ErrBootstrapUnauthorized
	}
	return nil
}

// BootstrapUser creates the initial admin account. The call is idempotent
// under concurrency: if two bootstrap requests race, the loser's unique
// violation resolves to the row the winner inserted.
func (s *BootstrapService) BootstrapUser(ctx context.Context, email, name, password string) (domain.User, error) {
	params := s.PasswordParams
	if params == (cryptox.Argon2Params{}) {
		params = cryptox.DefaultArgon2Params()
	}
	hash, err := cryptox.HashPasswordParams(password, params)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.Users().CreateUser(ctx, user)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrAlreadyExists) {
		return domain.User{}, err
	}

	// Lost the race: surface the existing row instead of an error. If the
	// row vanished in between, report the original conflict.
	existing, ferr := s.Store.Users().GetUserByEmail(ctx, email)
	if ferr != nil {
		if errors.Is(ferr, store.ErrNotFound) {
			return domain.User{}, err
		}
		return domain.User{}, ferr
	}
	return existing, nil
}

// IsFirstRun reports whether no users exist yet, which the readiness surface
// uses to advertise that bootstrap is still open.
func (s *BootstrapService) IsFirstRun(ctx context.Context) (bool, error) {
	return s.Store.Users().IsEmpty(ctx)
}
