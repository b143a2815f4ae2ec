package security

import (
	"strings"
	"testing"
)

func TestTemporaryPasswordGenerator(t *testing.T) {
	generator := NewTemporaryPasswordGenerator(0)

	seen := make(map[string]struct{})
	for i := 0; i < 5; i++ {
		password, err := generator.Generate()
		if err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
		if len(password) != defaultTemporaryPasswordLength {
			t.Fatalf("expected %d characters, got %d", defaultTemporaryPasswordLength, len(password))
		}
		for _, r := range password {
			if !strings.ContainsRune(temporaryPasswordAlphabet, r) {
				t.Fatalf("unexpected character %q", r)
			}
		}
		if characterClasses(password) != 4 {
			t.Fatalf("expected all character classes in %q", password)
		}
		if score := PasswordStrength(password); score < temporaryPasswordMinScore {
			t.Fatalf("expected strong password, score %d", score)
		}
		if _, dup := seen[password]; dup {
			t.Fatalf("generated duplicate password %q", password)
		}
		seen[password] = struct{}{}
	}
}

func TestTemporaryPasswordGeneratorCustomLength(t *testing.T) {
	password, err := NewTemporaryPasswordGenerator(20).Generate()
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(password) != 20 {
		t.Fatalf("expected 20 characters, got %d", len(password))
	}
}
