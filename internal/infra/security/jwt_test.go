package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/greenvalley/society-portal/internal/core/domain"
)

var (
	sharedKeysOnce sync.Once
	sharedKeys     *EphemeralKeyProvider
	sharedKeysErr  error
)

func testKeyProvider(t *testing.T) *EphemeralKeyProvider {
	t.Helper()
	sharedKeysOnce.Do(func() {
		sharedKeys, sharedKeysErr = NewEphemeralKeyProvider()
	})
	if sharedKeysErr != nil {
		t.Fatalf("NewEphemeralKeyProvider returned error: %v", sharedKeysErr)
	}
	return sharedKeys
}

func newTestManager(t *testing.T, now func() time.Time) *SessionTokenManager {
	t.Helper()
	mgr, err := NewSessionTokenManager(testKeyProvider(t), SessionTokenOptions{
		Issuer:   "society-portal",
		Audience: "society-portal-web",
		TTL:      time.Hour,
		Now:      now,
	})
	if err != nil {
		t.Fatalf("NewSessionTokenManager returned error: %v", err)
	}
	return mgr
}

func TestSessionTokenRoundTrip(t *testing.T) {
	issued := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	mgr := newTestManager(t, func() time.Time { return issued })

	token, expiresAt, err := mgr.Issue(domain.Session{
		UserID:     "user-1",
		Role:       domain.RoleOwner,
		BuildingID: "building-1",
		FlatID:     "flat-1",
	})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if !expiresAt.Equal(issued.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", expiresAt)
	}

	session, err := mgr.Parse(token)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if session.UserID != "user-1" || session.Role != domain.RoleOwner {
		t.Fatalf("unexpected session %+v", session)
	}
	if session.BuildingID != "building-1" || session.FlatID != "flat-1" {
		t.Fatalf("placement not carried: %+v", session)
	}
	if !session.IssuedAt.Equal(issued) {
		t.Fatalf("unexpected issued at %v", session.IssuedAt)
	}
}

func TestSessionTokenExpired(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	mgr := newTestManager(t, clock)

	token, _, err := mgr.Issue(domain.Session{UserID: "user-1", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := mgr.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestSessionTokenRejectsOtherAudience(t *testing.T) {
	mgr := newTestManager(t, nil)
	other, err := NewSessionTokenManager(testKeyProvider(t), SessionTokenOptions{
		Issuer:   "society-portal",
		Audience: "someone-else",
	})
	if err != nil {
		t.Fatalf("NewSessionTokenManager returned error: %v", err)
	}

	token, _, err := other.Issue(domain.Session{UserID: "user-1", Role: domain.RoleOwner})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if _, err := mgr.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected audience mismatch to fail, got %v", err)
	}
}

func TestSessionTokenRejectsForeignKey(t *testing.T) {
	mgr := newTestManager(t, nil)

	foreign, err := NewEphemeralKeyProvider()
	if err != nil {
		t.Fatalf("NewEphemeralKeyProvider returned error: %v", err)
	}
	forger, err := NewSessionTokenManager(foreign, SessionTokenOptions{
		Issuer:   "society-portal",
		Audience: "society-portal-web",
	})
	if err != nil {
		t.Fatalf("NewSessionTokenManager returned error: %v", err)
	}

	token, _, err := forger.Issue(domain.Session{UserID: "user-1", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if _, err := mgr.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected signature mismatch to fail, got %v", err)
	}
	if _, err := mgr.Parse("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected garbage to fail, got %v", err)
	}
}

func TestFileKeyProviderLoadsDirectory(t *testing.T) {
	dir := t.TempDir()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey returned error: %v", err)
	}
	der := x509.MarshalPKCS1PrivateKey(key)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: der})
	if err := os.WriteFile(filepath.Join(dir, "2026-01.pem"), pemBytes, 0o600); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}

	provider, err := NewFileKeyProvider(dir)
	if err != nil {
		t.Fatalf("NewFileKeyProvider returned error: %v", err)
	}
	kid, signing, err := provider.SigningKey()
	if err != nil || kid != "2026-01" || signing == nil {
		t.Fatalf("unexpected signing key: kid=%s err=%v", kid, err)
	}
	if _, err := provider.VerificationKey("missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestNewKeyProviderRequiresDirectoryInProduction(t *testing.T) {
	if _, err := NewKeyProvider("production", ""); err == nil {
		t.Fatal("expected error without key directory in production")
	}
}
