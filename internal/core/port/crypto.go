package port

import "context"

// CredentialHasher hashes and verifies passwords with the per-identity pepper
// mixed in. Hash may lazily create the identity's pepper; Verify never
// mutates anything.
type CredentialHasher interface {
	Hash(ctx context.Context, userID, password string) (string, error)
	Verify(ctx context.Context, userID, candidate, storedHash string) (bool, error)
}

// RateLimitStore counts attempts inside a sliding window, keyed by scope and
// client identity. Lives outside the credential core; consumed by transport
// middleware only.
type RateLimitStore interface {
	Increment(ctx context.Context, scope, key string) (int, error)
}
