package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, 2)
	ctx := context.Background()

	blob, err := h.Hash(ctx, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if blob == "correct horse battery staple" {
		t.Fatal("hash must not be the plaintext")
	}
	if err := h.Verify(ctx, "correct horse battery staple", blob); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := h.Verify(ctx, "wrong password", blob); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Verify mismatch: got %v, want ErrInvalidCredentials", err)
	}
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, 2)
	if _, err := h.Hash(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestHashSaltsEachCall(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, 2)
	ctx := context.Background()
	a, err := h.Hash(ctx, "same input")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := h.Hash(ctx, "same input")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password must differ")
	}
}

func TestVerifyLegacyArgon2Blob(t *testing.T) {
	const (
		password    = "pa55word"
		memory      = 64 * 1024
		iterations  = 1
		parallelism = 2
	)
	salt := []byte("0123456789abcdef")
	key := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, 32)
	blob := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, memory, iterations, parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))

	h := NewHasher(bcrypt.MinCost, 2)
	ctx := context.Background()
	if err := h.Verify(ctx, password, blob); err != nil {
		t.Fatalf("Verify argon2id blob: %v", err)
	}
	if err := h.Verify(ctx, "not the password", blob); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("argon2id mismatch: got %v, want ErrInvalidCredentials", err)
	}
}

func TestVerifyMangledBlob(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, 2)
	ctx := context.Background()
	for _, blob := range []string{
		"",
		"$argon2id$v=19$m=65536,t=1,p=2$notbase64!!$x",
		"$argon2id$v=18$m=65536,t=1,p=2$c2FsdA$aGFzaA",
		"$argon2id$bogus",
		"not a hash at all",
	} {
		if err := h.Verify(ctx, "anything", blob); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("blob %q: got %v, want ErrInvalidCredentials", blob, err)
		}
	}
}

func TestHashRespectsContext(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, 1)
	// Occupy the only slot so the next call blocks on the semaphore.
	h.sem <- struct{}{}
	defer func() { <-h.sem }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.Hash(ctx, "secret"); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}
