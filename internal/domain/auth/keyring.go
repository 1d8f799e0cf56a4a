package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alexedwards/argon2id"
	"github.com/cespare/xxhash/v2"
)

// Keyring verifies bearer tokens against a set of hashed stored keys.
//
// This is the production-intent Authenticator: keys are never stored in the
// clear, they expire, and they can be revoked. SHA-256 hashes get a direct
// map lookup (fast path for config-seeded keys); Argon2id PHC hashes are
// verified by iteration.
type Keyring struct {
	bySHA256   map[string]*StoredKey
	argonized  []*StoredKey
	identities map[string]*Identity
	logger     *slog.Logger
}

// NewKeyring builds a keyring from stored keys and their identities.
func NewKeyring(keys []StoredKey, identities []Identity, logger *slog.Logger) *Keyring {
	if logger == nil {
		logger = slog.Default()
	}

	k := &Keyring{
		bySHA256:   make(map[string]*StoredKey),
		identities: make(map[string]*Identity, len(identities)),
		logger:     logger,
	}

	for i := range identities {
		k.identities[identities[i].ID] = &identities[i]
	}

	for i := range keys {
		key := &keys[i]
		switch {
		case strings.HasPrefix(key.Hash, "$argon2id$"):
			k.argonized = append(k.argonized, key)
		case strings.HasPrefix(key.Hash, "sha256:"):
			k.bySHA256[strings.TrimPrefix(key.Hash, "sha256:")] = key
		default:
			logger.Warn("ignoring key with unrecognized hash format",
				"identity_id", key.IdentityID)
		}
	}

	return k
}

// Verify implements Authenticator. The raw token is never logged; debug
// lines carry an xxhash fingerprint instead.
func (k *Keyring) Verify(ctx context.Context, token string) (Result, error) {
	if len(token) < minTokenLength {
		return Result{}, nil
	}

	// Fast path: direct SHA-256 lookup.
	if key, ok := k.bySHA256[HashKey(token)]; ok {
		return k.resolve(key)
	}

	// Fallback: verify against each Argon2id hash.
	for _, key := range k.argonized {
		match, err := argon2id.ComparePasswordAndHash(token, key.Hash)
		if err != nil {
			continue
		}
		if match {
			return k.resolve(key)
		}
	}

	k.logger.Debug("bearer token not in keyring", "token_fp", Fingerprint(token))
	return Result{}, nil
}

// resolve checks revocation/expiry and maps the key to its identity.
func (k *Keyring) resolve(key *StoredKey) (Result, error) {
	if key.Revoked || key.IsExpired() {
		return Result{}, nil
	}
	identity, ok := k.identities[key.IdentityID]
	if !ok {
		return Result{}, fmt.Errorf("key references unknown identity %q", key.IdentityID)
	}
	return Result{Valid: true, UserID: identity.ID}, nil
}

// HashKey returns the SHA-256 hex hash of a raw key, the format used for
// config-seeded keyring entries (without the "sha256:" prefix).
func HashKey(rawKey string) string {
	hash := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(hash[:])
}

// HashKeyArgon2id returns an Argon2id hash of the raw key in PHC format.
// Uses OWASP minimum parameters.
func HashKeyArgon2id(rawKey string) (string, error) {
	return argon2id.CreateHash(rawKey, &argon2id.Params{
		Memory:      47 * 1024, // 47 MiB
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
}

// Fingerprint returns a short deterministic fingerprint of a token, safe to
// log. Not a credential hash: collision resistance doesn't matter here, only
// that the raw token never reaches the log stream.
func Fingerprint(token string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(token))
}

// Compile-time interface verification.
var _ Authenticator = (*Keyring)(nil)
