package session

import (
	"log/slog"
	"sync"
)

// Hub tracks live sessions so they can be closed on shutdown.
type Hub struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	register   chan *Session
	unregister chan *Session
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]*Session),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case s := <-h.register:
			h.mu.Lock()
			h.sessions[s.ID] = s
			h.mu.Unlock()
			slog.Info("session opened", "session", s.ID, "design", s.DesignID)
		case s := <-h.unregister:
			h.mu.Lock()
			delete(h.sessions, s.ID)
			h.mu.Unlock()
			slog.Info("session closed", "session", s.ID)
		case <-h.done:
			return
		}
	}
}

// Register adds s and arranges for it to be removed when its read pump ends.
// It reports false once the hub has stopped.
func (h *Hub) Register(s *Session) bool {
	select {
	case h.register <- s:
	case <-h.done:
		return false
	}
	s.unregister = func(s *Session) {
		select {
		case h.unregister <- s:
		case <-h.done:
		}
	}
	return true
}

// Count returns the number of live sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Stop closes every live session and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		sessions := make([]*Session, 0, len(h.sessions))
		for _, s := range h.sessions {
			sessions = append(sessions, s)
		}
		h.sessions = make(map[string]*Session)
		h.mu.Unlock()

		for _, s := range sessions {
			s.Close("server shutting down")
		}
	})
}
