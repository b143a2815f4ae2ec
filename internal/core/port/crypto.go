package port

import (
	"time"

	"github.com/greenvalley/society-portal/internal/core/domain"
)

// PasswordHasher hashes and verifies secrets using the configured algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encoded string) (bool, error)
}

// PasswordPolicy enforces password rules. userInputs (name, email, phone) are
// penalised by the strength estimator.
type PasswordPolicy interface {
	Validate(password string, userInputs ...string) error
	// Strength returns the 0..4 strength estimate used for registration hints.
	Strength(password string, userInputs ...string) int
}

// TemporaryPasswordGenerator produces one-time passwords for admin resets.
type TemporaryPasswordGenerator interface {
	Generate() (string, error)
}

// SessionTokenManager signs and verifies session tokens.
type SessionTokenManager interface {
	Issue(session domain.Session) (token string, expiresAt time.Time, err error)
	Parse(token string) (domain.Session, error)
}
