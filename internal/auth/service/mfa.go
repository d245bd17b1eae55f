package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/staffdeskhq/staffdesk/internal/auth/domain"
	"github.com/staffdeskhq/staffdesk/internal/auth/store"
	"github.com/staffdeskhq/staffdesk/pkg/cryptox"
	"github.com/staffdeskhq/staffdesk/pkg/totpx"
)

var (
	ErrMFAAlreadyEnabled = errors.New("mfa_already_enabled")
	ErrMFANotEnabled     = errors.New("mfa_not_enabled")
	ErrMFANotEnrolled    = errors.New("mfa_not_enrolled")
	ErrInvalidTOTPCode   = errors.New("invalid_totp_code")

	// ErrPasswordChangeRequired blocks MFA enrollment while the user is still
	// on a temporary password. Binding a second factor to a credential the
	// user is forced to replace would wedge the account.
	ErrPasswordChangeRequired = errors.New("password_change_required")
)

// MFAService manages TOTP enrollment and verification. Secrets are stored
// encrypted with the service encryption key and only decrypted for the
// duration of a code check.
type MFAService struct {
	Store store.Store

	// Issuer is the label authenticator apps show next to the account.
	Issuer string

	// EncryptionKey is the 32-byte AES key protecting stored secrets.
	EncryptionKey []byte

	TOTP totpx.Options
}

// EnrollTOTP generates a fresh secret for the user, persists it encrypted,
// and returns the cleartext material for the authenticator app. Enrollment
// does not enable MFA; the user must confirm with a valid code first.
// Re-enrolling before activation replaces the pending secret.
func (s *MFAService) EnrollTOTP(ctx context.Context, userID string) (domain.MFAEnrollment, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.MFAEnrollment{}, err
	}
	if user.MFAEnabled {
		return domain.MFAEnrollment{}, ErrMFAAlreadyEnabled
	}
	if user.PasswordTemporal {
		return domain.MFAEnrollment{}, ErrPasswordChangeRequired
	}

	enrollment, err := totpx.Enroll(s.Issuer, user.Email, s.TOTP)
	if err != nil {
		return domain.MFAEnrollment{}, err
	}

	encrypted, err := cryptox.EncryptSecret(enrollment.Secret, s.EncryptionKey)
	if err != nil {
		return domain.MFAEnrollment{}, err
	}
	if err := s.Store.Users().UpdateMFASecret(ctx, user.ID, &encrypted); err != nil {
		return domain.MFAEnrollment{}, err
	}

	return domain.MFAEnrollment{
		Secret:     enrollment.Secret,
		OTPAuthURL: enrollment.OTPAuthURL,
		Issuer:     s.Issuer,
		Account:    user.Email,
	}, nil
}

// ActivateTOTP flips MFA on once the user proves possession of the enrolled
// secret by presenting a currently valid code.
func (s *MFAService) ActivateTOTP(ctx context.Context, userID, code string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.MFAEnabled {
		return ErrMFAAlreadyEnabled
	}
	if user.MFASecret == nil {
		return ErrMFANotEnrolled
	}

	if err := s.checkCode(*user.MFASecret, code); err != nil {
		return err
	}
	return s.Store.Users().EnableMFA(ctx, user.ID)
}

// VerifyCode checks a login-time TOTP code against the user's enabled secret.
func (s *MFAService) VerifyCode(ctx context.Context, userID, code string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.MFAEnabled || user.MFASecret == nil {
		return ErrMFANotEnabled
	}
	return s.checkCode(*user.MFASecret, code)
}

// DisableMFA turns MFA off and discards the stored secret. Callers are
// expected to have re-authenticated the user with a valid code first.
func (s *MFAService) DisableMFA(ctx context.Context, userID, code string) error {
	if err := s.VerifyCode(ctx, userID, code); err != nil {
		return err
	}
	return s.Store.Users().DisableMFA(ctx, userID)
}

func (s *MFAService) checkCode(encryptedSecret, code string) error {
	secret, err := cryptox.DecryptSecret(encryptedSecret, s.EncryptionKey)
	if err != nil {
		return fmt.Errorf("decrypt mfa secret: %w", err)
	}
	ok, err := totpx.VerifyAt(secret, code, time.Now().UTC(), s.TOTP)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidTOTPCode
	}
	return nil
}
