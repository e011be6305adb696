package lendconsole

import (
	"sync"
	"testing"
)

func TestBroadcastDeliversCurrentOnSubscribe(t *testing.T) {
	b := newBroadcast()
	b.publish(&Session{Username: "alice", Role: RoleAdmin})

	var got []*Session
	cancel := b.subscribe(func(s *Session) { got = append(got, s) })
	defer cancel()

	if len(got) != 1 || got[0] == nil || got[0].Username != "alice" {
		t.Fatalf("expected current value on subscribe, got %+v", got)
	}
}

func TestBroadcastSkipsUnchangedValues(t *testing.T) {
	b := newBroadcast()
	calls := 0
	cancel := b.subscribe(func(*Session) { calls++ })
	defer cancel()

	b.publish(nil)
	s := &Session{Username: "alice", Role: RoleAdmin, Token: "t1"}
	b.publish(s)
	b.publish(&Session{Username: "alice", Role: RoleAdmin, Token: "t1"})
	b.publish(&Session{Username: "alice", Role: RoleAdmin, Token: "t2"})
	b.publish(nil)
	b.publish(nil)

	// initial nil, t1, t2, nil
	if calls != 4 {
		t.Fatalf("expected 4 notifications, got %d", calls)
	}
}

func TestBroadcastPublishesCopies(t *testing.T) {
	b := newBroadcast()
	s := &Session{Username: "alice", Role: RoleAdmin}
	b.publish(s)
	s.Username = "mallory"

	if got := b.get(); got.Username != "alice" {
		t.Fatalf("published value changed through caller pointer: %+v", got)
	}
}

func TestBroadcastCancel(t *testing.T) {
	b := newBroadcast()
	calls := 0
	cancel := b.subscribe(func(*Session) { calls++ })
	cancel()
	cancel()

	b.publish(&Session{Username: "alice"})
	if calls != 1 {
		t.Fatalf("expected only the initial notification, got %d", calls)
	}
}

func TestBroadcastConcurrentPublishAndSubscribe(t *testing.T) {
	b := newBroadcast()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if j%2 == 0 {
					b.publish(&Session{Username: "alice", Token: string(rune('a' + i))})
				} else {
					b.publish(nil)
				}
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				cancel := b.subscribe(func(*Session) {})
				_ = b.get()
				cancel()
			}
		}()
	}
	wg.Wait()
}

func TestListenerMayReadManagerState(t *testing.T) {
	m := newTestManager(t, nil, nil)

	var seenRole bool
	cancel := m.Subscribe(func(s *Session) {
		if s != nil {
			seenRole = m.HasRole(RoleAdmin)
			if cur, ok := m.Current(); !ok || cur.Username != s.Username {
				t.Errorf("Current() inside listener = %+v, %v", cur, ok)
			}
		}
	})
	defer cancel()

	mustLogin(t, m, "alice")
	if !seenRole {
		t.Fatal("listener could not read role during notification")
	}
}
