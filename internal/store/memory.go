package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const sweepInterval = 30 * time.Second

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryKV is an in-process correlation store with the same TTL semantics as
// RedisKV. Expired entries are invisible to reads immediately; a background
// sweeper reclaims the memory. Used in tests and redis-less development.
type MemoryKV struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryKV) Put(_ context.Context, kind Kind, messageID string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", kind, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[kind.Key(messageID)] = memoryEntry{
		payload:   payload,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryKV) Get(_ context.Context, kind Kind, messageID string, out any) error {
	key := kind.Key(messageID)

	s.mu.Lock()
	entry, ok := s.entries[key]
	if ok && !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal(entry.payload, out); err != nil {
		return fmt.Errorf("decode %s record: %w", kind, err)
	}
	return nil
}

func (s *MemoryKV) Take(_ context.Context, kind Kind, messageID string, out any) error {
	key := kind.Key(messageID)

	s.mu.Lock()
	entry, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
		if !s.now().Before(entry.expiresAt) {
			ok = false
		}
	}
	s.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal(entry.payload, out); err != nil {
		return fmt.Errorf("decode %s record: %w", kind, err)
	}
	return nil
}

func (s *MemoryKV) Delete(_ context.Context, kind Kind, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, kind.Key(messageID))
	return nil
}

func (s *MemoryKV) ListIDs(_ context.Context, kind Kind) ([]string, error) {
	prefix := kind.Prefix()

	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for key, entry := range s.entries {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if !s.now().Before(entry.expiresAt) {
			delete(s.entries, key)
			continue
		}
		ids = append(ids, strings.TrimPrefix(key, prefix))
	}
	return ids, nil
}

func (s *MemoryKV) FlushAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]memoryEntry)
	return nil
}

// StartSweeper runs a background goroutine that periodically evicts expired
// entries. Reads already treat expired entries as absent; the sweeper only
// bounds memory growth when nothing is polling.
func (s *MemoryKV) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if evicted := s.sweep(); evicted > 0 {
					slog.DebugContext(ctx, "swept expired store entries", "evicted", evicted)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *MemoryKV) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	cutoff := s.now()
	for key, entry := range s.entries {
		if !cutoff.Before(entry.expiresAt) {
			delete(s.entries, key)
			evicted++
		}
	}
	return evicted
}
