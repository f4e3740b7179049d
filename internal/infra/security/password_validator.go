package security

import (
	"fmt"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// PasswordValidationError describes why a candidate password was refused.
// Code is a stable machine-readable identifier; Message is shown to the user.
type PasswordValidationError struct {
	Code    string
	Message string
}

func (e *PasswordValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordRule checks one aspect of the password policy.
type PasswordRule func(password string) error

// PasswordValidator runs candidate passwords through an ordered rule set.
// Onboarding and password reset share one validator so both surfaces enforce
// the same policy.
type PasswordValidator struct {
	rules []PasswordRule
}

// NewPasswordValidator constructs a validator from the given rules.
func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	copied := make([]PasswordRule, len(rules))
	copy(copied, rules)
	return &PasswordValidator{rules: copied}
}

// Validate returns the first rule violation, or nil when every rule passes.
func (v *PasswordValidator) Validate(password string) error {
	if v == nil {
		return fmt.Errorf("password validator not configured")
	}
	for _, rule := range v.rules {
		if err := rule(password); err != nil {
			return err
		}
	}
	return nil
}

// charProfile summarizes which character classes a password contains.
type charProfile struct {
	upper, lower, digit, symbol bool
}

func (p charProfile) classes() int {
	n := 0
	for _, present := range []bool{p.upper, p.lower, p.digit, p.symbol} {
		if present {
			n++
		}
	}
	return n
}

func profileOf(password string) charProfile {
	var p charProfile
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			p.upper = true
		case unicode.IsLower(r):
			p.lower = true
		case unicode.IsDigit(r):
			p.digit = true
		case unicode.IsSymbol(r) || unicode.IsPunct(r):
			p.symbol = true
		}
	}
	return p
}

// MinLengthRule refuses passwords shorter than min runes.
func MinLengthRule(min int) PasswordRule {
	return func(password string) error {
		if len([]rune(password)) < min {
			return &PasswordValidationError{
				Code:    "min_length",
				Message: fmt.Sprintf("password must be at least %d characters long", min),
			}
		}
		return nil
	}
}

// RequireCharacterClassesRule refuses passwords drawing on fewer than min of
// the four character classes (upper, lower, digit, symbol).
func RequireCharacterClassesRule(min int) PasswordRule {
	return func(password string) error {
		if min <= 0 {
			return nil
		}
		if profileOf(password).classes() < min {
			return &PasswordValidationError{
				Code:    "character_classes",
				Message: fmt.Sprintf("password must mix at least %d character types", min),
			}
		}
		return nil
	}
}

// RequireLetterRule refuses passwords without a letter.
func RequireLetterRule() PasswordRule {
	return func(password string) error {
		for _, r := range password {
			if unicode.IsLetter(r) {
				return nil
			}
		}
		return &PasswordValidationError{
			Code:    "letter",
			Message: "password must include at least one letter",
		}
	}
}

// RequireDigitRule refuses passwords without a digit.
func RequireDigitRule() PasswordRule {
	return func(password string) error {
		if !profileOf(password).digit {
			return &PasswordValidationError{
				Code:    "digit",
				Message: "password must include at least one digit",
			}
		}
		return nil
	}
}

// RequireSymbolRule refuses passwords without punctuation or a symbol.
func RequireSymbolRule() PasswordRule {
	return func(password string) error {
		if !profileOf(password).symbol {
			return &PasswordValidationError{
				Code:    "symbol",
				Message: "password must include at least one symbol",
			}
		}
		return nil
	}
}

// RequireDifferentFrom refuses reuse of the supplied previous password.
func RequireDifferentFrom(previous string) PasswordRule {
	return func(password string) error {
		if password == previous {
			return &PasswordValidationError{
				Code:    "different",
				Message: "new password must differ from the current one",
			}
		}
		return nil
	}
}

// RequirePasswordStrengthRule refuses passwords scoring below minScore on the
// zxcvbn scale (0 through 4). Known account context, like the email address,
// can be passed as userInputs so it is penalized.
func RequirePasswordStrengthRule(minScore int, userInputs ...string) PasswordRule {
	return func(password string) error {
		if minScore <= 0 {
			return nil
		}
		if minScore > 4 {
			minScore = 4
		}
		if zxcvbn.PasswordStrength(password, userInputs).Score < minScore {
			return &PasswordValidationError{
				Code:    "weak_password",
				Message: "password is too easy to guess, choose something stronger",
			}
		}
		return nil
	}
}
