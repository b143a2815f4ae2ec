package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const ephemeralKeyID = "ephemeral"

var ErrKeyNotFound = errors.New("key not found")

// KeyProvider supplies the RSA keys used to sign and verify session tokens.
type KeyProvider interface {
	SigningKey() (kid string, key *rsa.PrivateKey, err error)
	VerificationKey(kid string) (*rsa.PublicKey, error)
}

// FileKeyProvider reads PEM encoded RSA keys from a directory. The key id of a
// file is its name without extension. The first private key in name order signs.
type FileKeyProvider struct {
	keys       map[string]*rsa.PublicKey
	signingKID string
	signingKey *rsa.PrivateKey
}

// NewFileKeyProvider loads every key in keyDir.
func NewFileKeyProvider(keyDir string) (*FileKeyProvider, error) {
	files, err := os.ReadDir(keyDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read key directory: %w", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

	provider := &FileKeyProvider{keys: make(map[string]*rsa.PublicKey)}

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		path := filepath.Join(keyDir, file.Name())
		keyData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read key file %s: %w", path, err)
		}

		block, _ := pem.Decode(keyData)
		if block == nil {
			return nil, fmt.Errorf("failed to decode PEM block from %s", path)
		}

		kid := strings.TrimSuffix(file.Name(), filepath.Ext(file.Name()))
		private, public, err := parseRSAKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse key from file %s: %w", path, err)
		}
		if private != nil && provider.signingKey == nil {
			provider.signingKey = private
			provider.signingKID = kid
		}
		provider.keys[kid] = public
	}

	if provider.signingKey == nil {
		return nil, errors.New("no private key found for signing")
	}

	return provider, nil
}

func parseRSAKey(der []byte) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, &key.PublicKey, nil
	}
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		if rsaKey, ok := key.(*rsa.PrivateKey); ok {
			return rsaKey, &rsaKey.PublicKey, nil
		}
	}
	if key, err := x509.ParsePKCS1PublicKey(der); err == nil {
		return nil, key, nil
	}
	if key, err := x509.ParsePKIXPublicKey(der); err == nil {
		if rsaKey, ok := key.(*rsa.PublicKey); ok {
			return nil, rsaKey, nil
		}
	}
	return nil, nil, errors.New("not an RSA key")
}

// SigningKey returns the private key for signing tokens.
func (p *FileKeyProvider) SigningKey() (string, *rsa.PrivateKey, error) {
	return p.signingKID, p.signingKey, nil
}

// VerificationKey returns the public key registered under kid.
func (p *FileKeyProvider) VerificationKey(kid string) (*rsa.PublicKey, error) {
	key, ok := p.keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, kid)
	}
	return key, nil
}

// EphemeralKeyProvider holds a key generated at startup. Sessions do not survive
// a restart.
type EphemeralKeyProvider struct {
	key *rsa.PrivateKey
}

// NewEphemeralKeyProvider generates a fresh 2048-bit RSA key.
func NewEphemeralKeyProvider() (*EphemeralKeyProvider, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generate RSA key: %w", err)
	}
	return &EphemeralKeyProvider{key: key}, nil
}

func (p *EphemeralKeyProvider) SigningKey() (string, *rsa.PrivateKey, error) {
	return ephemeralKeyID, p.key, nil
}

func (p *EphemeralKeyProvider) VerificationKey(kid string) (*rsa.PublicKey, error) {
	if kid != ephemeralKeyID {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, kid)
	}
	return &p.key.PublicKey, nil
}

// NewKeyProvider loads keys from keyDir when set. Without a directory an
// ephemeral key is used, which production refuses.
func NewKeyProvider(env, keyDir string) (KeyProvider, error) {
	if strings.TrimSpace(keyDir) != "" {
		return NewFileKeyProvider(keyDir)
	}
	if env == "production" {
		return nil, errors.New("jwt key directory is required in production")
	}
	return NewEphemeralKeyProvider()
}
