package wallet

import (
	"sync"
)

// ConnectionState is the snapshot carried by the connection signal.
type ConnectionState struct {
	Address   string `json:"address,omitempty"`
	Connected bool   `json:"connected"`
}

// Signal is the process-scoped wallet connection signal: a single observable
// with one writer (the Bridge or an external connector event) and any number
// of subscriber readers. Subscribers receive the current state on subscribe
// and every subsequent change.
type Signal struct {
	mu     sync.RWMutex
	state  ConnectionState
	subs   map[int]chan ConnectionState
	nextID int
}

// NewSignal creates a disconnected signal.
func NewSignal() *Signal {
	return &Signal{subs: make(map[int]chan ConnectionState)}
}

// State returns the current connection state.
func (s *Signal) State() ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers a reader. The returned channel is buffered and never
// blocks the writer; a slow reader drops intermediate states, keeping only
// the latest. The cancel function must be called when done.
func (s *Signal) Subscribe() (<-chan ConnectionState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan ConnectionState, 1)
	ch <- s.state
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Set publishes a connected state for the given address. No-op when the state
// is unchanged, so republishing an existing connection never wakes readers.
func (s *Signal) Set(address string) {
	s.publish(ConnectionState{Address: address, Connected: address != ""})
}

// Clear publishes a disconnected state.
func (s *Signal) Clear() {
	s.publish(ConnectionState{})
}

func (s *Signal) publish(next ConnectionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if next == s.state {
		return
	}
	s.state = next

	for _, ch := range s.subs {
		// Keep only the latest state for readers that have not drained yet.
		select {
		case ch <- next:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- next:
			default:
			}
		}
	}
}
