package security

import (
	"fmt"
	"strings"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"

	"github.com/greenvalley/society-portal/internal/core/port"
	"github.com/greenvalley/society-portal/internal/infra/config"
)

const (
	defaultMinPasswordLength = 8
	maxStrengthScore         = 4
)

// PasswordValidationError represents a single password policy violation.
type PasswordValidationError struct {
	Code    string
	Message string
}

// Error implements error for PasswordValidationError.
func (e *PasswordValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordRule validates a password according to a specific policy rule.
type PasswordRule interface {
	Validate(password string) error
}

// PasswordRuleFunc adapts a function to be used as a PasswordRule.
type PasswordRuleFunc func(password string) error

// Validate executes the underlying rule function.
func (f PasswordRuleFunc) Validate(password string) error {
	return f(password)
}

// PasswordValidator applies a sequence of password rules.
type PasswordValidator struct {
	rules []PasswordRule
}

// NewPasswordValidator constructs a validator with the provided rules.
func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	copied := make([]PasswordRule, len(rules))
	copy(copied, rules)
	return &PasswordValidator{rules: copied}
}

// Validate executes all rules and returns the first encountered violation.
func (v *PasswordValidator) Validate(password string) error {
	if v == nil {
		return fmt.Errorf("password validator not configured")
	}
	for _, rule := range v.rules {
		if err := rule.Validate(password); err != nil {
			return err
		}
	}
	return nil
}

// MinLengthRule ensures the password has at least min characters.
func MinLengthRule(min int) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if len([]rune(password)) < min {
			return &PasswordValidationError{
				Code:    "min_length",
				Message: fmt.Sprintf("password must be at least %d characters long", min),
			}
		}
		return nil
	})
}

// RequireCharacterClassesRule ensures the password contains characters from at
// least min distinct classes (upper, lower, digit, symbol).
func RequireCharacterClassesRule(min int) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if min <= 0 {
			return nil
		}
		if characterClasses(password) >= min {
			return nil
		}
		return &PasswordValidationError{
			Code:    "character_classes",
			Message: fmt.Sprintf("password must include at least %d character types", min),
		}
	})
}

func characterClasses(password string) int {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsSymbol(r) || unicode.IsPunct(r):
			hasSymbol = true
		}
	}

	classes := 0
	for _, present := range []bool{hasUpper, hasLower, hasDigit, hasSymbol} {
		if present {
			classes++
		}
	}
	return classes
}

// RequireDifferentFrom ensures the new password differs from the provided comparator.
func RequireDifferentFrom(comparator string) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if comparator != "" && password == comparator {
			return &PasswordValidationError{
				Code:    "different",
				Message: "new password must be different from current password",
			}
		}
		return nil
	})
}

// RequirePasswordStrengthRule enforces a minimum zxcvbn score to reject weak passwords.
func RequirePasswordStrengthRule(minScore int, userInputs ...string) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if minScore <= 0 {
			return nil
		}
		if minScore > maxStrengthScore {
			minScore = maxStrengthScore
		}

		if PasswordStrength(password, userInputs...) >= minScore {
			return nil
		}

		return &PasswordValidationError{
			Code:    "weak_password",
			Message: "password is too weak; choose a more complex value",
		}
	})
}

// PasswordStrength returns the zxcvbn score (0..4) of password.
func PasswordStrength(password string, userInputs ...string) int {
	inputs := make([]string, 0, len(userInputs))
	for _, in := range userInputs {
		if in = strings.TrimSpace(in); in != "" {
			inputs = append(inputs, in)
		}
	}
	return zxcvbn.PasswordStrength(password, inputs).Score
}

// PasswordPolicy applies the configured length and strength rules.
type PasswordPolicy struct {
	minLength int
	minScore  int
}

// NewPasswordPolicy builds the policy from configuration. A zero strength score
// disables enforcement; the score is then only reported as a hint.
func NewPasswordPolicy(settings config.PasswordSettings) *PasswordPolicy {
	minLength := settings.MinLength
	if minLength <= 0 {
		minLength = defaultMinPasswordLength
	}
	return &PasswordPolicy{minLength: minLength, minScore: settings.MinStrengthScore}
}

// MinLength returns the configured minimum password length.
func (p *PasswordPolicy) MinLength() int {
	return p.minLength
}

// Validate checks password against the policy.
func (p *PasswordPolicy) Validate(password string, userInputs ...string) error {
	return NewPasswordValidator(
		MinLengthRule(p.minLength),
		RequirePasswordStrengthRule(p.minScore, userInputs...),
	).Validate(password)
}

// Strength returns the zxcvbn score of password.
func (p *PasswordPolicy) Strength(password string, userInputs ...string) int {
	return PasswordStrength(password, userInputs...)
}

var _ port.PasswordPolicy = (*PasswordPolicy)(nil)
