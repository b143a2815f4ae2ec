package security

import (
	"strings"
	"testing"

	"github.com/greenvalley/society-portal/internal/infra/config"
)

func newTestHasher(t *testing.T) *Argon2Hasher {
	t.Helper()
	hasher, err := NewArgon2Hasher(Argon2Config{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewArgon2Hasher returned error: %v", err)
	}
	return hasher
}

func TestArgon2HashAndVerify(t *testing.T) {
	hasher := newTestHasher(t)
	password := "correct horse battery staple"

	encoded, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 5 {
		t.Fatalf("unexpected hash format: %q", encoded)
	}
	if parts[0] != argon2Variant || parts[1] != argon2Version {
		t.Fatalf("unexpected header: %s$%s", parts[0], parts[1])
	}
	if parts[2] != "m=8192,t=1,p=1" {
		t.Fatalf("parameters not embedded: %s", parts[2])
	}

	ok, err := hasher.Verify(password, encoded)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !ok {
		t.Fatal("Verify returned false for correct password")
	}

	ok, err = hasher.Verify("Tr0ub4dor&3", encoded)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if ok {
		t.Fatal("Verify returned true for incorrect password")
	}
}

func TestArgon2VerifyUsesEmbeddedParameters(t *testing.T) {
	encoded, err := newTestHasher(t).Hash("change-me-now")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	other, err := NewArgon2Hasher(Argon2Config{
		Memory:      16 * 1024,
		Iterations:  2,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewArgon2Hasher returned error: %v", err)
	}

	ok, err := other.Verify("change-me-now", encoded)
	if err != nil || !ok {
		t.Fatalf("expected hash produced with other parameters to verify, ok=%v err=%v", ok, err)
	}
}

func TestArgon2VerifyInvalidFormat(t *testing.T) {
	hasher := newTestHasher(t)
	if _, err := hasher.Verify("password", "invalid-format"); err == nil {
		t.Fatal("expected error for invalid format")
	}
	if _, err := hasher.Verify("password", "bcrypt$v=19$m=1,t=1,p=1$a$b"); err == nil {
		t.Fatal("expected error for unexpected variant")
	}
}

func TestArgon2VerifyEmptyInputs(t *testing.T) {
	ok, err := newTestHasher(t).Verify("", "")
	if err != nil {
		t.Fatalf("Verify returned error for empty inputs: %v", err)
	}
	if ok {
		t.Fatal("Verify should return false for empty inputs")
	}
}

func TestNewArgon2HasherRejectsWeakConfig(t *testing.T) {
	if _, err := NewArgon2Hasher(Argon2Config{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}); err == nil {
		t.Fatal("expected error for low memory")
	}
}

func TestArgon2ConfigFromSettingsFallsBack(t *testing.T) {
	cfg := Argon2ConfigFromSettings(config.Argon2Settings{Iterations: 5})
	if cfg.Iterations != 5 {
		t.Fatalf("expected configured iterations, got %d", cfg.Iterations)
	}
	if cfg.Memory != DefaultArgon2Config().Memory {
		t.Fatalf("expected default memory, got %d", cfg.Memory)
	}
}
