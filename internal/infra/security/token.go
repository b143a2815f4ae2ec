package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/greenvalley/society-portal/internal/core/port"
)

const (
	defaultTemporaryPasswordLength = 14
	temporaryPasswordMinScore      = 3
	temporaryPasswordAttempts      = 16

	// Ambiguous glyphs (0/O, 1/l/I) are left out; the value is read aloud or copied by hand.
	temporaryPasswordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789!@#$%&*?"
)

var errTemporaryPasswordExhausted = errors.New("temporary password: no candidate met the strength policy")

// TemporaryPasswordGenerator produces random one-time passwords for admin resets.
type TemporaryPasswordGenerator struct {
	length int
	rule   PasswordRule
}

// NewTemporaryPasswordGenerator returns a generator producing passwords of length
// characters (14 when length is not positive).
func NewTemporaryPasswordGenerator(length int) *TemporaryPasswordGenerator {
	if length <= 0 {
		length = defaultTemporaryPasswordLength
	}
	return &TemporaryPasswordGenerator{
		length: length,
		rule: NewPasswordValidator(
			MinLengthRule(length),
			RequireCharacterClassesRule(4),
			RequirePasswordStrengthRule(temporaryPasswordMinScore),
		),
	}
}

// Generate returns a password with all four character classes and a zxcvbn
// score of at least 3.
func (g *TemporaryPasswordGenerator) Generate() (string, error) {
	for i := 0; i < temporaryPasswordAttempts; i++ {
		candidate, err := randomString(temporaryPasswordAlphabet, g.length)
		if err != nil {
			return "", err
		}
		if g.rule.Validate(candidate) == nil {
			return candidate, nil
		}
	}
	return "", errTemporaryPasswordExhausted
}

func randomString(alphabet string, length int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate random index: %w", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}

var _ port.TemporaryPasswordGenerator = (*TemporaryPasswordGenerator)(nil)
