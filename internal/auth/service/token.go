package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/staffdeskhq/staffdesk/internal/auth/domain"
	"github.com/staffdeskhq/staffdesk/internal/auth/store"
	"github.com/staffdeskhq/staffdesk/pkg/cryptox"
	"github.com/staffdeskhq/staffdesk/pkg/idx"
	"github.com/staffdeskhq/staffdesk/pkg/jwtx"
)

var (
	// ErrTokenInvalid covers bad signature, expiry, and wrong kind.
	// Callers must not tell these apart in user-facing responses; the
	// wrapped detail stays available for logging.
	ErrTokenInvalid = errors.New("invalid_token")

	// ErrTokenRevoked reports a refresh token whose persisted record has
	// been revoked.
	ErrTokenRevoked = errors.New("token_revoked")
)

// ResetTokenBytes is the entropy of a password-reset token before hex
// encoding.
const ResetTokenBytes = 32

// TokenConfig carries the per-kind signing secrets and TTLs. Each kind gets
// its own secret so a token can never verify under another kind's codec.
type TokenConfig struct {
	Issuer string

	AccessSecret  string
	RefreshSecret string
	MFASecret     string

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	MFATTL     time.Duration
	ResetTTL   time.Duration
}

// TokenService issues and verifies the four token kinds: access, refresh,
// mfa-intermediate, and password-reset. Refresh tokens are the only signed
// kind with persisted state; reset tokens are opaque random values stored
// only as fingerprints.
type TokenService struct {
	Store store.Store

	issuer       string
	access       *jwtx.Codec
	refreshCodec *jwtx.Codec
	mfa          *jwtx.Codec

	accessTTL  time.Duration
	refreshTTL time.Duration
	mfaTTL     time.Duration
	resetTTL   time.Duration
}

func NewTokenService(st store.Store, cfg TokenConfig) *TokenService {
	return &TokenService{
		Store:        st,
		issuer:       cfg.Issuer,
		access:       jwtx.NewCodec(cfg.AccessSecret, cfg.Issuer),
		refreshCodec: jwtx.NewCodec(cfg.RefreshSecret, cfg.Issuer),
		mfa:          jwtx.NewCodec(cfg.MFASecret, cfg.Issuer),
		accessTTL:    cfg.AccessTTL,
		refreshTTL:   cfg.RefreshTTL,
		mfaTTL:       cfg.MFATTL,
		resetTTL:     cfg.ResetTTL,
	}
}

// AccessTTL exposes the configured access token lifetime for response bodies.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// CreateAccessToken mints a stateless access token carrying the subject and
// role. There is no revocation path; the TTL is the only bound on exposure.
func (s *TokenService) CreateAccessToken(u domain.User) (string, error) {
	claims := jwtx.NewAccessClaims(u.ID, u.Role, s.issuer, s.accessTTL, time.Now().UTC())
	return s.access.Sign(claims)
}

// VerifyAccessToken verifies signature and expiry and requires the token to
// classify as an access token. Any token carrying a type claim - refresh,
// mfa, or unknown - is rejected.
func (s *TokenService) VerifyAccessToken(raw string) (jwtx.Claims, error) {
	claims, err := s.access.Parse(raw)
	if err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	switch claims.Classify() {
	case jwtx.KindAccess:
		return claims, nil
	case jwtx.KindRefresh, jwtx.KindMFA, jwtx.KindUnknown:
		return jwtx.Claims{}, fmt.Errorf("%w: not an access token", ErrTokenInvalid)
	default:
		return jwtx.Claims{}, fmt.Errorf("%w: not an access token", ErrTokenInvalid)
	}
}

// CreateRefreshToken mints a refresh token and inserts its persistence
// record in one step. The record is what makes revocation possible.
func (s *TokenService) CreateRefreshToken(ctx context.Context, u domain.User) (string, error) {
	now := time.Now().UTC()
	jti := uuid.NewString()

	claims := jwtx.NewRefreshClaims(u.ID, jti, s.issuer, s.refreshTTL, now)
	signed, err := s.refreshCodec.Sign(claims)
	if err != nil {
		return "", err
	}

	record := domain.RefreshToken{
		ID:        idx.New().String(),
		JTI:       jti,
		UserID:    u.ID,
		ExpiresAt: now.Add(s.refreshTTL),
	}
	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, record); err != nil {
		return "", err
	}
	return signed, nil
}

// VerifyRefreshToken verifies the signed token and checks the persisted
// record is present and unrevoked.
func (s *TokenService) VerifyRefreshToken(ctx context.Context, raw string) (jwtx.Claims, error) {
	claims, err := s.refreshCodec.Parse(raw)
	if err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.Classify() != jwtx.KindRefresh {
		return jwtx.Claims{}, fmt.Errorf("%w: not a refresh token", ErrTokenInvalid)
	}

	record, err := s.Store.RefreshTokens().GetRefreshTokenByJTI(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return jwtx.Claims{}, fmt.Errorf("%w: unknown jti", ErrTokenInvalid)
		}
		return jwtx.Claims{}, err
	}
	if record.RevokedAt != nil {
		return jwtx.Claims{}, ErrTokenRevoked
	}
	// The signed expiry already passed validation; the record check is
	// defense in depth against TTL drift between config changes.
	if time.Now().UTC().After(record.ExpiresAt) {
		return jwtx.Claims{}, fmt.Errorf("%w: record expired", ErrTokenInvalid)
	}
	return claims, nil
}

// RevokeRefreshToken marks the persisted record revoked. The token is parsed
// without expiry validation: a token being revoked may already have expired,
// and refusing it would leave the record active.
func (s *TokenService) RevokeRefreshToken(ctx context.Context, raw string) error {
	claims, err := s.refreshCodec.ParseAllowExpired(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.Classify() != jwtx.KindRefresh || claims.ID == "" {
		return fmt.Errorf("%w: not a refresh token", ErrTokenInvalid)
	}
	return s.Store.RefreshTokens().RevokeRefreshToken(ctx, claims.ID)
}

// RevokeAllForUser bulk-revokes every live refresh token for a user. Used on
// password change, forced logout, and compromise response.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID string) error {
	return s.Store.RefreshTokens().RevokeAllForUser(ctx, userID)
}

// CreateMFAToken mints the intermediate token issued after password
// verification but before a TOTP code is accepted. It carries no role and
// authenticates only to the MFA verification and setup endpoints.
func (s *TokenService) CreateMFAToken(u domain.User) (string, error) {
	claims := jwtx.NewMFAClaims(u.ID, s.issuer, s.mfaTTL, time.Now().UTC())
	return s.mfa.Sign(claims)
}

// VerifyMFAToken verifies signature, expiry, and the mfa type claim.
func (s *TokenService) VerifyMFAToken(raw string) (jwtx.Claims, error) {
	claims, err := s.mfa.Parse(raw)
	if err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.Classify() != jwtx.KindMFA {
		return jwtx.Claims{}, fmt.Errorf("%w: not an mfa token", ErrTokenInvalid)
	}
	return claims, nil
}

// CreateResetToken generates an opaque password-reset token, persists only
// its fingerprint, and returns the cleartext exactly once.
func (s *TokenService) CreateResetToken(ctx context.Context, u domain.User) (string, error) {
	token, err := cryptox.GenerateHexToken(ResetTokenBytes)
	if err != nil {
		return "", err
	}

	record := domain.ResetToken{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: cryptox.FingerprintToken(token),
		ExpiresAt: time.Now().UTC().Add(s.resetTTL),
	}
	if err := s.Store.ResetTokens().CreateResetToken(ctx, record); err != nil {
		return "", err
	}
	return token, nil
}

// FindResetTokenRecord hashes the supplied token and looks up its record.
// The caller still owns the expiry and single-use checks.
func (s *TokenService) FindResetTokenRecord(ctx context.Context, token string) (domain.ResetToken, error) {
	return s.Store.ResetTokens().GetResetTokenByHash(ctx, cryptox.FingerprintToken(token))
}

// MarkResetTokenUsed sets used_at on the record. Once set, the record is
// permanently inert even for a correctly replayed token string.
func (s *TokenService) MarkResetTokenUsed(ctx context.Context, recordID string) error {
	return s.Store.ResetTokens().MarkResetTokenUsed(ctx, recordID)
}
