package realtime

import (
	"log"
	"sync"
)

// Session is one live connection of a recipient. *melody.Session satisfies
// it; tests use in-memory fakes. Write must be non-blocking or queue
// internally (melody queues frames per session), preserving per-session FIFO.
type Session interface {
	Write([]byte) error
}

// Hub maps recipient ids to their currently connected sessions and fans
// ledger mutations out to all of them. Sessions that are not connected simply
// miss pushes; the client's initial list fetch is the catch-up path.
//
// Locking is per recipient: registration and push enumeration for one
// recipient are mutually exclusive, unrelated recipients never contend.
type Hub struct {
	mu         sync.RWMutex
	recipients map[string]*sessionSet
}

type sessionSet struct {
	mu       sync.Mutex
	sessions map[Session]struct{}
	// gone is set under mu when the set is removed from the registry. A
	// Register that resolved the set before its removal must not insert into
	// it, or the session would be orphaned and miss every push.
	gone bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{recipients: make(map[string]*sessionSet)}
}

// Register adds a session to the recipient's live set.
func (h *Hub) Register(recipientID string, s Session) {
	for {
		h.mu.Lock()
		set, ok := h.recipients[recipientID]
		if !ok {
			set = &sessionSet{sessions: make(map[Session]struct{})}
			h.recipients[recipientID] = set
		}
		h.mu.Unlock()

		set.mu.Lock()
		if set.gone {
			// The recipient's last Unregister removed this set between the
			// two locks; resolve a fresh one.
			set.mu.Unlock()
			continue
		}
		set.sessions[s] = struct{}{}
		set.mu.Unlock()
		return
	}
}

// Unregister removes a session. Safe to call at any time, including for a
// session that was never registered or is mid-push; idempotent.
func (h *Hub) Unregister(recipientID string, s Session) {
	h.mu.RLock()
	set, ok := h.recipients[recipientID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	set.mu.Lock()
	delete(set.sessions, s)
	empty := len(set.sessions) == 0
	set.mu.Unlock()

	if empty {
		h.mu.Lock()
		// Re-check under the write lock; a concurrent Register may have
		// repopulated the set.
		set.mu.Lock()
		if len(set.sessions) == 0 {
			set.gone = true
			if h.recipients[recipientID] == set {
				delete(h.recipients, recipientID)
			}
		}
		set.mu.Unlock()
		h.mu.Unlock()
	}
}

// SessionCount returns how many sessions the recipient currently has.
func (h *Hub) SessionCount(recipientID string) int {
	h.mu.RLock()
	set, ok := h.recipients[recipientID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	set.mu.Lock()
	defer set.mu.Unlock()
	return len(set.sessions)
}

// Push delivers an event to every live session of the recipient. A failed
// write means the session is gone; the frame is dropped, never retried or
// buffered.
func (h *Hub) Push(recipientID, event string, data interface{}) {
	frame, err := Encode(event, data)
	if err != nil {
		log.Printf("realtime: encoding %s event failed: %v", event, err)
		return
	}

	h.mu.RLock()
	set, ok := h.recipients[recipientID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	set.mu.Lock()
	defer set.mu.Unlock()
	for s := range set.sessions {
		if err := s.Write(frame); err != nil {
			log.Printf("realtime: dropping %s frame for %s: %v", event, recipientID, err)
		}
	}
}
