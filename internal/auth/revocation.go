package auth

import (
	"context"
	"sync"
	"time"
)

// Blocklist records individually revoked tokens until their natural expiry.
// The raw token string is an opaque handle; no decoding is required to revoke.
// Implementations must support concurrent insert and lookup.
type Blocklist interface {
	// Revoke marks the token as revoked for ttl. Revoking an already revoked
	// token is a no-op that succeeds.
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// MemoryBlocklist is a process-local Blocklist. Entries carry the revoking
// token's remaining lifetime and self-expire, so memory stays bounded. Use the
// Redis-backed blocklist in multi-instance deployments, where logout must be
// observed by every instance.
type MemoryBlocklist struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
	stop    chan struct{}
}

const blocklistSweepInterval = time.Minute

// NewMemoryBlocklist starts a blocklist with a background janitor that prunes
// expired entries.
func NewMemoryBlocklist() *MemoryBlocklist {
	b := &MemoryBlocklist{
		entries: make(map[string]time.Time),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go b.janitor()
	return b
}

func (b *MemoryBlocklist) janitor() {
	ticker := time.NewTicker(blocklistSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			b.sweep()
		case <-b.stop:
			return
		}
	}
}

func (b *MemoryBlocklist) sweep() {
	now := b.now()
	b.mu.Lock()
	for token, expiry := range b.entries {
		if now.After(expiry) {
			delete(b.entries, token)
		}
	}
	b.mu.Unlock()
}

// Revoke records the token until now+ttl. Tokens that are already expired are
// dead weight, so a non-positive ttl is ignored.
func (b *MemoryBlocklist) Revoke(_ context.Context, token string, ttl time.Duration) error {
	if token == "" || ttl <= 0 {
		return nil
	}
	expiry := b.now().Add(ttl)
	b.mu.Lock()
	b.entries[token] = expiry
	b.mu.Unlock()
	return nil
}

// IsRevoked reports whether the token has an unexpired revocation entry.
func (b *MemoryBlocklist) IsRevoked(_ context.Context, token string) (bool, error) {
	b.mu.RLock()
	expiry, ok := b.entries[token]
	b.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return b.now().Before(expiry), nil
}

// Close stops the janitor goroutine.
func (b *MemoryBlocklist) Close() {
	close(b.stop)
}
