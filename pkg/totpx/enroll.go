package totpx

import (
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// SecretBytes is the entropy of a freshly generated TOTP secret.
const SecretBytes = 20

// Enrollment holds a freshly generated secret in both the base32 form for
// manual entry and the otpauth:// URL for QR rendering.
type Enrollment struct {
	Secret     string
	OTPAuthURL string
}

// Enroll generates a new random secret bound to the given issuer and account
// name. The secret is normalized so it round-trips through VerifyAt.
func Enroll(issuer, account string, opts Options) (Enrollment, error) {
	opts = opts.withDefaults()
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      opts.PeriodSeconds,
		SecretSize:  SecretBytes,
		Digits:      otp.Digits(opts.Digits),
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return Enrollment{}, err
	}
	secret, err := NormalizeSecret(key.Secret())
	if err != nil {
		return Enrollment{}, err
	}
	return Enrollment{Secret: secret, OTPAuthURL: key.URL()}, nil
}
