package security

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fk00750/authguard/internal/core/domain"
)

// TokenKind distinguishes the two token purposes a key pair serves.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// ErrKeyUnavailable indicates key material could not be loaded. Every signing
// key is required at process start; this error is fatal at boot, never seen
// per request.
var ErrKeyUnavailable = errors.New("security: signing key unavailable")

// KeyPurpose selects one of the four fixed key pairs.
type KeyPurpose struct {
	Role domain.Role
	Kind TokenKind
}

// Key file names inside the key directory, one pair per (role, kind).
var keyFiles = map[KeyPurpose]string{
	{Role: domain.RoleUser, Kind: KindAccess}:   "user_access.pem",
	{Role: domain.RoleUser, Kind: KindRefresh}:  "user_refresh.pem",
	{Role: domain.RoleAdmin, Kind: KindAccess}:  "admin_access.pem",
	{Role: domain.RoleAdmin, Kind: KindRefresh}: "admin_refresh.pem",
}

// KeySet holds the four role- and purpose-scoped RSA key pairs. Loaded once
// at startup and immutable afterwards.
type KeySet struct {
	private map[KeyPurpose]*rsa.PrivateKey
}

// LoadKeySet reads the four PEM-encoded RSA private keys from dir. A missing
// or undecodable key fails the whole load.
func LoadKeySet(dir string) (*KeySet, error) {
	set := &KeySet{private: make(map[KeyPurpose]*rsa.PrivateKey, len(keyFiles))}

	for purpose, name := range keyFiles {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrKeyUnavailable, path, err)
		}

		key, err := parseRSAPrivateKey(data)
		if err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", ErrKeyUnavailable, path, err)
		}

		set.private[purpose] = key
	}

	return set, nil
}

// NewKeySet wraps pre-generated keys. Primarily for tests.
func NewKeySet(keys map[KeyPurpose]*rsa.PrivateKey) (*KeySet, error) {
	for purpose := range keyFiles {
		if keys[purpose] == nil {
			return nil, fmt.Errorf("%w: missing %s/%s key", ErrKeyUnavailable, purpose.Role, purpose.Kind)
		}
	}
	return &KeySet{private: keys}, nil
}

// SigningKey returns the private key for the given purpose.
func (s *KeySet) SigningKey(role domain.Role, kind TokenKind) (*rsa.PrivateKey, error) {
	key, ok := s.private[KeyPurpose{Role: role, Kind: kind}]
	if !ok || key == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrKeyUnavailable, role, kind)
	}
	return key, nil
}

// VerificationKey returns the public half for the given purpose. Consumed by
// the bearer-token gates; the issuer itself never verifies.
func (s *KeySet) VerificationKey(role domain.Role, kind TokenKind) (*rsa.PublicKey, error) {
	key, err := s.SigningKey(role, kind)
	if err != nil {
		return nil, err
	}
	return &key.PublicKey, nil
}

func parseRSAPrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("not an RSA private key")
	}
	return key, nil
}
