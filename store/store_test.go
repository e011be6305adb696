package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewRedis(rdb, RedisConfig{Prefix: "lc", Namespace: "ops"}), mr
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	rs, _ := newRedisStoreTest(t)
	return map[string]Store{
		"memory": NewMemory(),
		"file":   NewFile(filepath.Join(t.TempDir(), "nested", "session.json")),
		"redis":  rs,
	}
}

func TestStoreContract(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := s.Get(ctx, "auth_token"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound on empty store, got %v", err)
			}
			if err := s.Set(ctx, "auth_token", "t1"); err != nil {
				t.Fatalf("set: %v", err)
			}
			if err := s.Set(ctx, "current_user", `{"username":"alice"}`); err != nil {
				t.Fatalf("set profile: %v", err)
			}
			got, err := s.Get(ctx, "auth_token")
			if err != nil || got != "t1" {
				t.Fatalf("get = %q, %v", got, err)
			}
			if err := s.Set(ctx, "auth_token", "t2"); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			if got, _ := s.Get(ctx, "auth_token"); got != "t2" {
				t.Fatalf("overwrite not visible: %q", got)
			}

			if err := s.Remove(ctx, "auth_token"); err != nil {
				t.Fatalf("remove: %v", err)
			}
			if err := s.Remove(ctx, "auth_token"); err != nil {
				t.Fatalf("second remove must be a no-op: %v", err)
			}
			if _, err := s.Get(ctx, "auth_token"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after remove, got %v", err)
			}
			if got, err := s.Get(ctx, "current_user"); err != nil || got == "" {
				t.Fatalf("unrelated key disturbed: %q, %v", got, err)
			}
		})
	}
}

func TestStoreConcurrentWriters(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					key := fmt.Sprintf("k%d", i)
					if err := s.Set(ctx, key, key); err != nil {
						t.Errorf("set %s: %v", key, err)
					}
				}(i)
			}
			wg.Wait()
			for i := 0; i < 16; i++ {
				key := fmt.Sprintf("k%d", i)
				if got, err := s.Get(ctx, key); err != nil || got != key {
					t.Fatalf("get %s = %q, %v", key, got, err)
				}
			}
		})
	}
}

func TestFilePermissionsAndCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	f := NewFile(path)
	ctx := context.Background()

	if err := f.Set(ctx, "auth_token", "t1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("mode = %o, want 600", perm)
	}

	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if _, err := f.Get(ctx, "auth_token"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("corrupt document should read as empty, got %v", err)
	}
	if err := f.Set(ctx, "auth_token", "t2"); err != nil {
		t.Fatalf("set over corrupt file: %v", err)
	}
	if got, _ := f.Get(ctx, "auth_token"); got != "t2" {
		t.Fatalf("got %q", got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}

func TestRedisKeyLayoutAndTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	s := NewRedis(rdb, RedisConfig{Namespace: "branch-7", TTL: time.Hour})
	if err := s.Set(context.Background(), "auth_token", "t1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("lendctl:branch-7:auth_token") {
		t.Fatalf("expected namespaced key, have %v", mr.Keys())
	}
	if ttl := mr.TTL("lendctl:branch-7:auth_token"); ttl != time.Hour {
		t.Fatalf("ttl = %v", ttl)
	}
	mr.FastForward(2 * time.Hour)
	if _, err := s.Get(context.Background(), "auth_token"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestRedisUnavailable(t *testing.T) {
	s, mr := newRedisStoreTest(t)
	mr.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := s.Get(ctx, "auth_token"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from ping, got %v", err)
	}
}

func TestMemoryHonoursCancelledContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Set(ctx, "k", "v"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("value written despite cancelled context")
	}
}
