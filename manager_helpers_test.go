package lendconsole

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/lendconsole/internal/backendtest"
	"github.com/MrEthical07/lendconsole/store"
)

type navEvent struct {
	Route  string
	Notice string
}

type recordingNav struct {
	mu     sync.Mutex
	events []navEvent
}

func (n *recordingNav) Navigate(route, notice string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, navEvent{Route: route, Notice: notice})
}

func (n *recordingNav) Events() []navEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]navEvent(nil), n.events...)
}

func (n *recordingNav) Last() (navEvent, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.events) == 0 {
		return navEvent{}, false
	}
	return n.events[len(n.events)-1], true
}

// failingStore fails Set for failKey once armed.
type failingStore struct {
	store.Store
	failKey string
	armed   atomic.Bool
}

func (s *failingStore) Set(ctx context.Context, key, value string) error {
	if s.armed.Load() && key == s.failKey {
		return errors.New("disk full")
	}
	return s.Store.Set(ctx, key, value)
}

type testManager struct {
	*Manager
	srv   *backendtest.Server
	store *store.Memory
	nav   *recordingNav
}

type managerOption func(*Builder)

func withClock(now func() time.Time) managerOption {
	return func(b *Builder) { b.WithClock(now) }
}

func withSink(sink AuditSink) managerOption {
	return func(b *Builder) {
		b.config.Audit = AuditConfig{Enabled: true, BufferSize: 64}
		b.WithAuditSink(sink)
	}
}

func newTestManager(t testing.TB, srv *backendtest.Server, st *store.Memory, opts ...managerOption) *testManager {
	t.Helper()
	if srv == nil {
		srv = backendtest.New(t)
	}
	if st == nil {
		st = store.NewMemory()
	}
	nav := &recordingNav{}

	cfg := DefaultConfig()
	cfg.API.BaseURL = srv.URL
	cfg.API.Timeout = 5 * time.Second
	cfg.Store.Kind = StoreMemory

	b := New().WithConfig(cfg).WithStore(st).WithNavigator(nav)
	for _, opt := range opts {
		opt(b)
	}
	m, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return &testManager{Manager: m, srv: srv, store: st, nav: nav}
}

func mustLogin(t testing.TB, m *testManager, username string) Session {
	t.Helper()
	s, err := m.Login(context.Background(), username, "pw")
	if err != nil {
		t.Fatalf("Login(%s) failed: %v", username, err)
	}
	return s
}
