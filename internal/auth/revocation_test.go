package auth

import (
	"context"
	"testing"
	"time"
)

func TestMemoryBlocklistRevoke(t *testing.T) {
	b := NewMemoryBlocklist()
	defer b.Close()
	ctx := context.Background()

	revoked, err := b.IsRevoked(ctx, "tok-1")
	if err != nil || revoked {
		t.Fatalf("fresh token: revoked=%v err=%v", revoked, err)
	}

	if err := b.Revoke(ctx, "tok-1", time.Minute); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	revoked, err = b.IsRevoked(ctx, "tok-1")
	if err != nil || !revoked {
		t.Fatalf("after revoke: revoked=%v err=%v", revoked, err)
	}

	// Revoking again is a no-op that succeeds.
	if err := b.Revoke(ctx, "tok-1", time.Minute); err != nil {
		t.Fatalf("second Revoke: %v", err)
	}

	revoked, _ = b.IsRevoked(ctx, "tok-2")
	if revoked {
		t.Fatal("unrelated token reported revoked")
	}
}

func TestMemoryBlocklistEntriesExpire(t *testing.T) {
	b := NewMemoryBlocklist()
	defer b.Close()
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return clock }
	ctx := context.Background()

	if err := b.Revoke(ctx, "tok-1", 10*time.Minute); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	clock = clock.Add(9 * time.Minute)
	if revoked, _ := b.IsRevoked(ctx, "tok-1"); !revoked {
		t.Fatal("entry expired too early")
	}

	clock = clock.Add(2 * time.Minute)
	if revoked, _ := b.IsRevoked(ctx, "tok-1"); revoked {
		t.Fatal("entry survived past its ttl")
	}

	// Sweep drops the stale entry entirely.
	b.sweep()
	b.mu.RLock()
	_, present := b.entries["tok-1"]
	b.mu.RUnlock()
	if present {
		t.Fatal("sweep left an expired entry behind")
	}
}

func TestMemoryBlocklistIgnoresDeadTokens(t *testing.T) {
	b := NewMemoryBlocklist()
	defer b.Close()
	ctx := context.Background()

	if err := b.Revoke(ctx, "tok-1", 0); err != nil {
		t.Fatalf("Revoke ttl=0: %v", err)
	}
	if err := b.Revoke(ctx, "tok-2", -time.Minute); err != nil {
		t.Fatalf("Revoke negative ttl: %v", err)
	}
	if err := b.Revoke(ctx, "", time.Minute); err != nil {
		t.Fatalf("Revoke empty token: %v", err)
	}

	b.mu.RLock()
	n := len(b.entries)
	b.mu.RUnlock()
	if n != 0 {
		t.Fatalf("expected empty blocklist, have %d entries", n)
	}
}
