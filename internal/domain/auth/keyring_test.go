package auth

import (
	"context"
	"testing"
	"time"
)

func TestKeyring_SHA256Lookup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ring := NewKeyring(
		[]StoredKey{{Hash: "sha256:" + HashKey("raw-key-alpha"), IdentityID: "user_7"}},
		[]Identity{{ID: "user_7", Name: "Alpha"}},
		nil,
	)

	result, err := ring.Verify(ctx, "raw-key-alpha")
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if !result.Valid || result.UserID != "user_7" {
		t.Errorf("Verify() = %+v, want valid user_7", result)
	}

	miss, err := ring.Verify(ctx, "raw-key-other")
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if miss.Valid {
		t.Error("unknown key should not verify")
	}
}

func TestKeyring_Argon2idLookup(t *testing.T) {
	t.Parallel()

	hash, err := HashKeyArgon2id("raw-key-beta")
	if err != nil {
		t.Fatalf("HashKeyArgon2id() error: %v", err)
	}

	ring := NewKeyring(
		[]StoredKey{{Hash: hash, IdentityID: "user_8"}},
		[]Identity{{ID: "user_8", Name: "Beta"}},
		nil,
	)

	result, err := ring.Verify(context.Background(), "raw-key-beta")
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if !result.Valid || result.UserID != "user_8" {
		t.Errorf("Verify() = %+v, want valid user_8", result)
	}
}

func TestKeyring_RevokedAndExpired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	past := time.Now().UTC().Add(-time.Hour)

	ring := NewKeyring(
		[]StoredKey{
			{Hash: "sha256:" + HashKey("revoked-key-1"), IdentityID: "user_9", Revoked: true},
			{Hash: "sha256:" + HashKey("expired-key-1"), IdentityID: "user_9", ExpiresAt: &past},
		},
		[]Identity{{ID: "user_9", Name: "Gamma"}},
		nil,
	)

	for _, token := range []string{"revoked-key-1", "expired-key-1"} {
		result, err := ring.Verify(ctx, token)
		if err != nil {
			t.Fatalf("Verify(%q) error: %v", token, err)
		}
		if result.Valid {
			t.Errorf("Verify(%q) should not be valid", token)
		}
	}
}

func TestKeyring_DanglingIdentityIsError(t *testing.T) {
	t.Parallel()

	ring := NewKeyring(
		[]StoredKey{{Hash: "sha256:" + HashKey("orphan-key-1"), IdentityID: "ghost"}},
		nil,
		nil,
	)

	if _, err := ring.Verify(context.Background(), "orphan-key-1"); err == nil {
		t.Error("key referencing an unknown identity should surface an error")
	}
}

func TestKeyring_ShortTokenSkipsLookup(t *testing.T) {
	t.Parallel()

	ring := NewKeyring(nil, nil, nil)
	result, err := ring.Verify(context.Background(), "short")
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if result.Valid {
		t.Error("short token should never verify")
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	a := Fingerprint("token-one")
	b := Fingerprint("token-two")
	if a == b {
		t.Error("distinct tokens should fingerprint differently")
	}
	if len(a) != 16 {
		t.Errorf("fingerprint length = %d, want 16", len(a))
	}
	if a != Fingerprint("token-one") {
		t.Error("fingerprint must be deterministic")
	}
}

func TestStoredKey_IsExpired(t *testing.T) {
	t.Parallel()

	if (&StoredKey{}).IsExpired() {
		t.Error("nil ExpiresAt never expires")
	}

	future := time.Now().UTC().Add(time.Hour)
	if (&StoredKey{ExpiresAt: &future}).IsExpired() {
		t.Error("future expiry should not be expired")
	}

	past := time.Now().UTC().Add(-time.Hour)
	if !(&StoredKey{ExpiresAt: &past}).IsExpired() {
		t.Error("past expiry should be expired")
	}
}
