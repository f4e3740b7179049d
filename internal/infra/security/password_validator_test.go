package security

import (
	"errors"
	"testing"
)

func TestPasswordValidatorViolations(t *testing.T) {
	validator := NewPasswordValidator(
		MinLengthRule(10),
		RequireLetterRule(),
		RequireDigitRule(),
		RequirePasswordStrengthRule(2),
	)

	assertViolation := func(password, expectedCode string) {
		t.Helper()
		err := validator.Validate(password)
		if err == nil {
			t.Fatalf("expected validation error for %s", expectedCode)
		}
		var vErr *PasswordValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected PasswordValidationError, got %T", err)
		}
		if vErr.Code != expectedCode {
			t.Fatalf("expected %s code, got %s", expectedCode, vErr.Code)
		}
	}

	assertViolation("Short1!", "min_length")
	assertViolation("1234567890123", "letter")
	assertViolation("purelyletters", "digit")
	assertViolation("password12", "weak_password")

	if err := validator.Validate("glacier-Otter-91"); err != nil {
		t.Fatalf("expected password to pass validation, got %v", err)
	}
}

func TestCustomPasswordValidator(t *testing.T) {
	validator := NewPasswordValidator(
		MinLengthRule(4),
		RequireSymbolRule(),
		RequireDifferentFrom("existing"),
	)

	if err := validator.Validate("existing"); err == nil {
		t.Fatal("expected validation error when new password equals comparator")
	}

	if err := validator.Validate("diff"); err == nil {
		t.Fatal("expected validation error for missing symbol")
	}

	if err := validator.Validate("diff!"); err != nil {
		t.Fatalf("expected password to pass custom validation, got %v", err)
	}
}
