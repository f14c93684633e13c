package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryTRL is an in-process token revocation list for tests and
// single-instance development runs.
type MemoryTRL struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	clock   func() time.Time
}

// MemoryTRLOption configures a MemoryTRL instance.
type MemoryTRLOption func(*MemoryTRL)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) MemoryTRLOption {
	return func(trl *MemoryTRL) {
		if clock != nil {
			trl.clock = clock
		}
	}
}

func NewMemoryTRL(opts ...MemoryTRLOption) *MemoryTRL {
	trl := &MemoryTRL{
		revoked: make(map[string]time.Time),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(trl)
		}
	}
	return trl
}

func (t *MemoryTRL) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.revoked[jti] = t.clock().Add(ttl)
	return nil
}

func (t *MemoryTRL) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	t.mu.RLock()
	expiresAt, ok := t.revoked[jti]
	t.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if t.clock().After(expiresAt) {
		t.mu.Lock()
		delete(t.revoked, jti)
		t.mu.Unlock()
		return false, nil
	}
	return true, nil
}
