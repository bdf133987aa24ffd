package auth

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Hasher performs one-way password hashing and verification. Hashing is
// CPU-bound by design, so a bounded semaphore caps how many hash or verify
// operations run at once; token validations never queue behind it.
type Hasher struct {
	cost int
	sem  chan struct{}
}

const defaultHashParallelism = 4

// NewHasher builds a Hasher with the given bcrypt cost. A cost of zero selects
// bcrypt.DefaultCost. maxParallel bounds concurrent hashing work.
func NewHasher(cost, maxParallel int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if maxParallel <= 0 {
		maxParallel = defaultHashParallelism
	}
	return &Hasher{cost: cost, sem: make(chan struct{}, maxParallel)}
}

func (h *Hasher) acquire(ctx context.Context) error {
	select {
	case h.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hasher) release() { <-h.sem }

// Hash derives a salted bcrypt digest from password. The returned blob is
// self-describing: algorithm, cost and salt are embedded, so the cost can be
// raised later without breaking verification of stored hashes.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", errors.New("auth: password is empty")
	}
	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	defer h.release()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify compares password against a stored hash blob. The blob's own tag
// selects the algorithm, which keeps verification working across hash-format
// migrations: bcrypt is current, argon2id blobs from earlier deployments still
// verify. Returns ErrInvalidCredentials on mismatch.
func (h *Hasher) Verify(ctx context.Context, password, blob string) error {
	if blob == "" {
		return ErrInvalidCredentials
	}
	if err := h.acquire(ctx); err != nil {
		return err
	}
	defer h.release()

	switch {
	case strings.HasPrefix(blob, "$argon2id$"):
		return verifyArgon2id(password, blob)
	default:
		if err := bcrypt.CompareHashAndPassword([]byte(blob), []byte(password)); err != nil {
			return ErrInvalidCredentials
		}
		return nil
	}
}

// verifyArgon2id re-derives the key using the parameters embedded in the PHC
// encoded blob ($argon2id$v=19$m=...,t=...,p=...$salt$hash) and compares in
// constant time.
func verifyArgon2id(password, blob string) error {
	parts := strings.Split(blob, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return ErrInvalidCredentials
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return ErrInvalidCredentials
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return ErrInvalidCredentials
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return ErrInvalidCredentials
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return ErrInvalidCredentials
	}

	got := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(want)))
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}
