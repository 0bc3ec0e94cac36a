package usecase

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fk00750/authguard/internal/core/domain"
	"github.com/fk00750/authguard/internal/core/port"
	"github.com/fk00750/authguard/internal/infra/security"
	"github.com/fk00750/authguard/internal/repository"
)

// testIssuer builds a token issuer over freshly generated keys.
func testIssuer(t *testing.T, accessTTL, refreshTTL time.Duration) *security.TokenIssuer {
	t.Helper()

	purposes := []security.KeyPurpose{
		{Role: domain.RoleUser, Kind: security.KindAccess},
		{Role: domain.RoleUser, Kind: security.KindRefresh},
		{Role: domain.RoleAdmin, Kind: security.KindAccess},
		{Role: domain.RoleAdmin, Kind: security.KindRefresh},
	}

	keys := make(map[security.KeyPurpose]*rsa.PrivateKey, len(purposes))
	for _, purpose := range purposes {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("generate RSA key: %v", err)
		}
		keys[purpose] = key
	}

	set, err := security.NewKeySet(keys)
	if err != nil {
		t.Fatalf("NewKeySet: %v", err)
	}

	return security.NewTokenIssuer(set, accessTTL, refreshTTL)
}

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]domain.User)}
}

func (m *memoryUsers) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return repository.ErrConflict
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := user
	return &copied, nil
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			copied := user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUsers) SetVerified(_ context.Context, id string, verified bool) error {
	return m.mutate(id, func(u *domain.User) { u.Verified = verified })
}

func (m *memoryUsers) SetTwoFactorEnabled(_ context.Context, id string, enabled bool) error {
	return m.mutate(id, func(u *domain.User) { u.TwoFactorEnabled = enabled })
}

func (m *memoryUsers) UpdatePasswordHash(_ context.Context, id string, hash string) error {
	return m.mutate(id, func(u *domain.User) { u.PasswordHash = hash })
}

func (m *memoryUsers) mutate(id string, fn func(*domain.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&user)
	m.users[id] = user
	return nil
}

type memoryTokens struct {
	mu     sync.Mutex
	byHash map[string]domain.RefreshToken
}

func newMemoryTokens() *memoryTokens {
	return &memoryTokens{byHash: make(map[string]domain.RefreshToken)}
}

func (m *memoryTokens) Put(_ context.Context, token domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteForOwner(token.UserID)
	m.byHash[token.TokenHash] = token
	return nil
}

func (m *memoryTokens) GetByHash(_ context.Context, hash string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.byHash[hash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := token
	return &copied, nil
}

func (m *memoryTokens) Replace(_ context.Context, oldHash string, token domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byHash[oldHash]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byHash, oldHash)
	m.deleteForOwner(token.UserID)
	m.byHash[token.TokenHash] = token
	return nil
}

func (m *memoryTokens) DeleteByHash(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byHash[hash]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byHash, hash)
	return nil
}

func (m *memoryTokens) DeleteForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteForOwner(userID)
	return nil
}

func (m *memoryTokens) deleteForOwner(userID string) {
	for hash, token := range m.byHash {
		if token.UserID == userID {
			delete(m.byHash, hash)
		}
	}
}

func (m *memoryTokens) countForOwner(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, token := range m.byHash {
		if token.UserID == userID {
			count++
		}
	}
	return count
}

type memoryOTPs struct {
	mu     sync.Mutex
	byCode map[string]domain.OTPChallenge
	now    func() time.Time
}

func newMemoryOTPs() *memoryOTPs {
	return &memoryOTPs{byCode: make(map[string]domain.OTPChallenge), now: time.Now}
}

func (m *memoryOTPs) Create(_ context.Context, userID, code string, ttl time.Duration) (*domain.OTPChallenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now().UTC()
	for existing, challenge := range m.byCode {
		if challenge.UserID != userID {
			continue
		}
		if !challenge.IsExpired(now) {
			return nil, repository.ErrConflict
		}
		delete(m.byCode, existing)
	}
	if holder, ok := m.byCode[code]; ok && holder.UserID != userID {
		return nil, repository.ErrCodeTaken
	}
	challenge := domain.OTPChallenge{
		UserID:    userID,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	m.byCode[code] = challenge
	return &challenge, nil
}

func (m *memoryOTPs) codeFor(userID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for code, challenge := range m.byCode {
		if challenge.UserID == userID {
			return code, true
		}
	}
	return "", false
}

func (m *memoryOTPs) Consume(_ context.Context, code string) (*domain.OTPChallenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	challenge, ok := m.byCode[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(m.byCode, code)
	return &challenge, nil
}

type memorySecrets struct {
	mu      sync.Mutex
	secrets map[string]domain.LinkSecret
}

func newMemorySecrets() *memorySecrets {
	return &memorySecrets{secrets: make(map[string]domain.LinkSecret)}
}

func (m *memorySecrets) Upsert(_ context.Context, secret domain.LinkSecret) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[secret.UserID] = secret
	return nil
}

func (m *memorySecrets) Get(_ context.Context, userID string) (*domain.LinkSecret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	secret, ok := m.secrets[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := secret
	return &copied, nil
}

func (m *memorySecrets) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.secrets, userID)
	return nil
}

type memoryResetKeys struct {
	mu   sync.Mutex
	keys map[string]domain.ResetKey
}

func newMemoryResetKeys() *memoryResetKeys {
	return &memoryResetKeys{keys: make(map[string]domain.ResetKey)}
}

func (m *memoryResetKeys) Upsert(_ context.Context, key domain.ResetKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key.UserID] = key
	return nil
}

func (m *memoryResetKeys) GetByUser(_ context.Context, userID string) (*domain.ResetKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.keys[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := key
	return &copied, nil
}

func (m *memoryResetKeys) GetByValue(_ context.Context, value string) (*domain.ResetKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range m.keys {
		if key.Value == value {
			copied := key
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryResetKeys) MarkVerified(_ context.Context, userID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.keys[userID]
	if !ok {
		return repository.ErrNotFound
	}
	key.Verified = true
	key.ExpiresAt = expiresAt
	m.keys[userID] = key
	return nil
}

func (m *memoryResetKeys) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, userID)
	return nil
}

// fakeHasher stands in for the peppered bcrypt hasher; hashes are
// deterministic and trivially reversible for assertions.
type fakeHasher struct{}

func (fakeHasher) Hash(_ context.Context, userID, password string) (string, error) {
	return fmt.Sprintf("h:%s:%s", userID, password), nil
}

func (fakeHasher) Verify(_ context.Context, userID, candidate, storedHash string) (bool, error) {
	return storedHash == fmt.Sprintf("h:%s:%s", userID, candidate), nil
}

type captureMailer struct {
	mu   sync.Mutex
	sent []port.Mail
	fail error
}

func (m *captureMailer) Send(_ context.Context, mail port.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, mail)
	return nil
}

func (m *captureMailer) last(t *testing.T) port.Mail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no mail was sent")
	}
	return m.sent[len(m.sent)-1]
}

type captureEvents struct {
	mu        sync.Mutex
	published []string
}

func (e *captureEvents) record(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.published = append(e.published, name)
	return nil
}

func (e *captureEvents) PublishUserRegistered(context.Context, domain.UserRegisteredEvent) error {
	return e.record("user.registered")
}

func (e *captureEvents) PublishUserVerified(context.Context, domain.UserVerifiedEvent) error {
	return e.record("user.verified")
}

func (e *captureEvents) PublishUserLoggedIn(context.Context, domain.UserLoggedInEvent) error {
	return e.record("user.logged_in")
}

func (e *captureEvents) PublishPasswordChanged(context.Context, domain.PasswordChangedEvent) error {
	return e.record("password.changed")
}

func (e *captureEvents) PublishPasswordResetRequested(context.Context, domain.PasswordResetRequestedEvent) error {
	return e.record("password.reset_requested")
}

func (e *captureEvents) PublishTwoFactorToggled(context.Context, domain.TwoFactorToggledEvent) error {
	return e.record("two_factor.toggled")
}
