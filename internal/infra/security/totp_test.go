package security

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

func TestGenerateTOTPSecret(t *testing.T) {
	provisioning, err := GenerateTOTPSecret("VitaLink Admin", "erin@myvitalink.app")
	if err != nil {
		t.Fatalf("GenerateTOTPSecret returned error: %v", err)
	}

	if provisioning.Secret == "" {
		t.Fatal("expected non-empty secret")
	}
	if !strings.HasPrefix(provisioning.URL, "otpauth://totp/") {
		t.Fatalf("unexpected provisioning URL: %q", provisioning.URL)
	}
	if !strings.Contains(provisioning.URL, "VitaLink") {
		t.Fatalf("issuer missing from URL: %q", provisioning.URL)
	}
}

func TestValidateTOTP(t *testing.T) {
	provisioning, err := GenerateTOTPSecret("VitaLink Admin", "erin@myvitalink.app")
	if err != nil {
		t.Fatalf("GenerateTOTPSecret returned error: %v", err)
	}

	code, err := totp.GenerateCode(provisioning.Secret, time.Now())
	if err != nil {
		t.Fatalf("GenerateCode returned error: %v", err)
	}

	if !ValidateTOTP(provisioning.Secret, code) {
		t.Fatal("expected current code to validate")
	}
	if !ValidateTOTP(provisioning.Secret, " "+code+" ") {
		t.Fatal("expected code with surrounding spaces to validate")
	}
	if ValidateTOTP(provisioning.Secret, "000000") {
		t.Fatal("expected fixed wrong code to fail")
	}
	if ValidateTOTP("", code) {
		t.Fatal("expected empty secret to fail")
	}
}
