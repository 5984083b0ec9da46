package service_test

import (
	"context"
	"time"

	"umbra.legal/relay/internal/model"
	"umbra.legal/relay/internal/store"
)

type mockForwarder struct {
	forwardFn func(ctx context.Context, webhookURL string, payload model.ForwardPayload) error
	calls     []forwardCall
}

type forwardCall struct {
	webhookURL string
	payload    model.ForwardPayload
}

func (m *mockForwarder) Forward(ctx context.Context, webhookURL string, payload model.ForwardPayload) error {
	m.calls = append(m.calls, forwardCall{webhookURL: webhookURL, payload: payload})
	if m.forwardFn != nil {
		return m.forwardFn(ctx, webhookURL, payload)
	}
	return nil
}

// mockKV wraps a MemoryKV and lets individual operations be overridden to
// inject store failures.
type mockKV struct {
	inner    *store.MemoryKV
	putFn    func(ctx context.Context, kind store.Kind, messageID string, value any, ttl time.Duration) error
	listFn   func(ctx context.Context, kind store.Kind) ([]string, error)
	takeFn   func(ctx context.Context, kind store.Kind, messageID string, out any) error
	deleteFn func(ctx context.Context, kind store.Kind, messageID string) error
}

func newMockKV() *mockKV {
	return &mockKV{inner: store.NewMemoryKV()}
}

func (m *mockKV) Put(ctx context.Context, kind store.Kind, messageID string, value any, ttl time.Duration) error {
	if m.putFn != nil {
		return m.putFn(ctx, kind, messageID, value, ttl)
	}
	return m.inner.Put(ctx, kind, messageID, value, ttl)
}

func (m *mockKV) Get(ctx context.Context, kind store.Kind, messageID string, out any) error {
	return m.inner.Get(ctx, kind, messageID, out)
}

func (m *mockKV) Delete(ctx context.Context, kind store.Kind, messageID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, kind, messageID)
	}
	return m.inner.Delete(ctx, kind, messageID)
}

func (m *mockKV) Take(ctx context.Context, kind store.Kind, messageID string, out any) error {
	if m.takeFn != nil {
		return m.takeFn(ctx, kind, messageID, out)
	}
	return m.inner.Take(ctx, kind, messageID, out)
}

func (m *mockKV) ListIDs(ctx context.Context, kind store.Kind) ([]string, error) {
	if m.listFn != nil {
		return m.listFn(ctx, kind)
	}
	return m.inner.ListIDs(ctx, kind)
}

func (m *mockKV) FlushAll(ctx context.Context) error {
	return m.inner.FlushAll(ctx)
}
