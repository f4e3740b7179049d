package security

import (
	"fmt"
	"strings"

	"github.com/pquerna/otp/totp"
)

// TOTPProvisioning holds the artifacts required to enroll an authenticator app.
type TOTPProvisioning struct {
	Secret string
	URL    string
}

// GenerateTOTPSecret creates a new TOTP secret and its otpauth provisioning URL
// for the supplied account label.
func GenerateTOTPSecret(issuer, accountName string) (*TOTPProvisioning, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}

	return &TOTPProvisioning{
		Secret: key.Secret(),
		URL:    key.URL(),
	}, nil
}

// ValidateTOTP reports whether the submitted code matches the secret for the
// current time step.
func ValidateTOTP(secret, code string) bool {
	secret = strings.TrimSpace(secret)
	code = strings.TrimSpace(code)
	if secret == "" || code == "" {
		return false
	}
	return totp.Validate(code, secret)
}
