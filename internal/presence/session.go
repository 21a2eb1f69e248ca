package presence

import (
	"context"
	"log"
	"sync"
)

// Session represents one authenticated connection to the realtime store. The
// store applies every registered disconnect write when the session ends, even
// on ungraceful termination, mirroring a server-side on-disconnect hook.
type Session struct {
	mu          sync.Mutex
	closed      bool
	disconnects []func(context.Context) error
}

// NewSession creates an open session.
func NewSession() *Session {
	return &Session{}
}

// RegisterOnDisconnect schedules a write to run when the session closes.
// Registration is acknowledged synchronously; once it returns, the write is
// guaranteed to fire on disconnect.
func (s *Session) RegisterOnDisconnect(write func(context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.disconnects = append(s.disconnects, write)
}

// Close ends the session and applies all registered disconnect writes in
// registration order. Idempotent.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	writes := s.disconnects
	s.disconnects = nil
	s.mu.Unlock()

	for _, write := range writes {
		if err := write(ctx); err != nil {
			log.Printf("Error applying disconnect write: %v", err)
		}
	}
}

// Closed reports whether the session has ended.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
