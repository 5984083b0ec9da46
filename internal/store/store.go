// Package store implements the correlation store: a TTL-keyed KV holding
// pending-send markers and buffered responses, keyed by message id.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist or has expired.
var ErrNotFound = errors.New("not found")

// Kind is a logical namespace within the shared physical store.
type Kind string

const (
	KindPending  Kind = "pending"
	KindResponse Kind = "response"
)

// Key returns the physical key for a message id within this namespace.
func (k Kind) Key(messageID string) string {
	return string(k) + "_" + messageID
}

// Prefix returns the physical key prefix for this namespace.
func (k Kind) Prefix() string {
	return string(k) + "_"
}

// KV is the correlation store contract. Every write carries an expiration;
// reads of expired keys behave as absent. Deletes are physical. Individual
// key operations are serialized; no cross-key transactions.
type KV interface {
	// Put JSON-serializes value and stores it under kind/messageID with the
	// given TTL, replacing any existing entry.
	Put(ctx context.Context, kind Kind, messageID string, value any, ttl time.Duration) error
	// Get decodes the stored entry into out. Returns ErrNotFound if the key
	// is absent or expired.
	Get(ctx context.Context, kind Kind, messageID string, out any) error
	// Delete removes the entry. Deleting an absent key is not an error.
	Delete(ctx context.Context, kind Kind, messageID string) error
	// Take atomically reads and deletes an entry. Returns ErrNotFound if the
	// key is absent or expired. Two concurrent takers of the same key never
	// both succeed.
	Take(ctx context.Context, kind Kind, messageID string, out any) error
	// ListIDs returns the message ids currently stored under kind.
	ListIDs(ctx context.Context, kind Kind) ([]string, error)
	// FlushAll wipes the entire store, all namespaces included.
	FlushAll(ctx context.Context) error
}
