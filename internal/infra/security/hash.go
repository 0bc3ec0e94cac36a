package security

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/fk00750/authguard/internal/core/domain"
	"github.com/fk00750/authguard/internal/core/port"
	"github.com/fk00750/authguard/internal/repository"
)

const (
	// bcrypt cost 12 keeps single-hash latency in the tens of milliseconds
	// on current hardware while staying adaptive.
	bcryptCost = 12

	pepperBytes = 32
)

// ErrPepperMissing indicates an identity has a stored credential hash but no
// pepper. That state is unreachable through this engine, so it is reported as
// data corruption rather than a verification failure.
var ErrPepperMissing = errors.New("security: pepper missing for identity")

// PepperHasher keys the candidate password with the identity's pepper
// before running bcrypt. The pepper lives in a separate table from the hash,
// so a leak of the credential table alone is insufficient for an offline
// brute-force.
//
// The password is folded through HMAC-SHA256 under the pepper first; bcrypt
// caps its input at 72 bytes and would otherwise reject any password long
// enough to push the peppered input past that limit.
type PepperHasher struct {
	peppers port.PepperRepository
	cost    int
	now     func() time.Time
}

// NewPepperHasher constructs a PepperHasher over the given pepper store.
func NewPepperHasher(peppers port.PepperRepository) *PepperHasher {
	return &PepperHasher{peppers: peppers, cost: bcryptCost, now: time.Now}
}

// Hash produces a bcrypt hash of the pepper-keyed password, creating the
// identity's pepper on first use. The salt is embedded in the encoded hash.
func (h *PepperHasher) Hash(ctx context.Context, userID, password string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}

	pepper, err := h.peppers.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("lookup pepper: %w", err)
		}

		value, genErr := GenerateSecret(pepperBytes)
		if genErr != nil {
			return "", fmt.Errorf("generate pepper: %w", genErr)
		}
		created := domain.Pepper{UserID: userID, Value: value, CreatedAt: h.now().UTC()}
		if createErr := h.peppers.Create(ctx, created); createErr != nil {
			return "", fmt.Errorf("store pepper: %w", createErr)
		}
		pepper = &created
	}

	hash, err := bcrypt.GenerateFromPassword(pepperedPassword(password, pepper.Value), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	return string(hash), nil
}

// Verify rekeys the candidate under the stored pepper and compares against
// the stored hash. A missing pepper for a previously-hashed credential is
// corruption, not a wrong password, and surfaces as ErrPepperMissing.
func (h *PepperHasher) Verify(ctx context.Context, userID, candidate, storedHash string) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("user id is required")
	}

	pepper, err := h.peppers.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrPepperMissing
		}
		return false, fmt.Errorf("lookup pepper: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(storedHash), pepperedPassword(candidate, pepper.Value))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("compare password: %w", err)
	}

	return true, nil
}

// pepperedPassword folds a password through HMAC-SHA256 keyed by the pepper.
// The hex digest is 64 bytes, always inside bcrypt's 72-byte input limit.
func pepperedPassword(password, pepper string) []byte {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(password))
	return []byte(hex.EncodeToString(mac.Sum(nil)))
}
