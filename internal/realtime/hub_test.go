package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

type fakeSession struct {
	mu     sync.Mutex
	frames [][]byte
	fail   bool
}

func (s *fakeSession) Write(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("session closed")
	}
	s.frames = append(s.frames, b)
	return nil
}

func (s *fakeSession) types(t *testing.T) []string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.frames))
	for _, f := range s.frames {
		var env Envelope
		if err := json.Unmarshal(f, &env); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		out = append(out, env.Type)
	}
	return out
}

func TestPushReachesEverySessionOfRecipient(t *testing.T) {
	hub := NewHub()
	a, b := &fakeSession{}, &fakeSession{}
	hub.Register("u1", a)
	hub.Register("u1", b)

	hub.Push("u1", EventNotificationRead, map[string]string{"id": "n1"})

	for name, s := range map[string]*fakeSession{"A": a, "B": b} {
		got := s.types(t)
		if len(got) != 1 || got[0] != EventNotificationRead {
			t.Errorf("session %s frames=%v", name, got)
		}
	}
}

func TestPushIsScopedToRecipient(t *testing.T) {
	hub := NewHub()
	mine, theirs := &fakeSession{}, &fakeSession{}
	hub.Register("u1", mine)
	hub.Register("u2", theirs)

	hub.Push("u1", EventNotification, nil)

	if len(mine.types(t)) != 1 {
		t.Error("u1 session missed the push")
	}
	if len(theirs.types(t)) != 0 {
		t.Error("u2 session received a foreign push")
	}
}

func TestPushPreservesPerSessionOrder(t *testing.T) {
	hub := NewHub()
	s := &fakeSession{}
	hub.Register("u1", s)

	events := []string{EventNotification, EventNotificationRead, EventNotificationDeleted, EventAllRead, EventAllCleared}
	for _, ev := range events {
		hub.Push("u1", ev, nil)
	}

	got := s.types(t)
	if len(got) != len(events) {
		t.Fatalf("frames=%d want %d", len(got), len(events))
	}
	for i, ev := range events {
		if got[i] != ev {
			t.Fatalf("frame %d = %s, want %s", i, got[i], ev)
		}
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	hub := NewHub()
	s := &fakeSession{}
	hub.Register("u1", s)

	hub.Unregister("u1", s)
	hub.Unregister("u1", s)
	hub.Unregister("u2", s) // never registered

	if n := hub.SessionCount("u1"); n != 0 {
		t.Fatalf("sessions=%d", n)
	}

	hub.Push("u1", EventNotification, nil)
	if len(s.types(t)) != 0 {
		t.Error("unregistered session received a push")
	}
}

func TestFailedWriteIsDroppedNotRetried(t *testing.T) {
	hub := NewHub()
	dead, live := &fakeSession{fail: true}, &fakeSession{}
	hub.Register("u1", dead)
	hub.Register("u1", live)

	hub.Push("u1", EventNotification, nil)

	if len(live.types(t)) != 1 {
		t.Error("healthy session must still receive the push")
	}
}

func TestRegisterRacingFinalUnregisterStillReceives(t *testing.T) {
	// A Register landing while the recipient's last Unregister tears the
	// session set down must end up in the live registry, not in the torn-down
	// set, or the new session silently misses every push.
	for i := 0; i < 2000; i++ {
		hub := NewHub()
		old := &fakeSession{}
		hub.Register("u1", old)

		fresh := &fakeSession{}
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			hub.Unregister("u1", old)
		}()
		go func() {
			defer wg.Done()
			hub.Register("u1", fresh)
		}()
		wg.Wait()

		hub.Push("u1", EventNotification, nil)
		if len(fresh.types(t)) != 1 {
			t.Fatalf("iteration %d: registered session missed the push", i)
		}
	}
}

func TestConcurrentRegisterPushUnregister(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := &fakeSession{}
			hub.Register("u1", s)
			hub.Push("u1", EventNotification, nil)
			hub.Unregister("u1", s)
		}()
	}
	wg.Wait()

	if n := hub.SessionCount("u1"); n != 0 {
		t.Fatalf("sessions left=%d", n)
	}
}
