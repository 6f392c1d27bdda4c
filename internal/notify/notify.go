// Package notify delivers an out-of-band signal when a previously-blocked
// terminal session completes — the case where polling read_output is the
// only other way a caller would find out. It is a pure addition: none of
// the session manager's documented behavior depends on it, and it is safe
// to leave a Manager's sinks empty.
package notify

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/sessiond/termsess/internal/session"
)

// Sink delivers one notification about a completed session.
type Sink interface {
	Notify(cs *session.CompletedSession) error
}

// Manager fans a session completion out to every registered Sink.
// Subscriptions are keyed by a generated uuid so they can be revoked
// individually — sessions themselves are keyed by OS pid, which is not a
// stable identity for a notification subscription (pids get reused).
type Manager struct {
	mu     sync.Mutex
	logger *slog.Logger
	sinks  map[string]Sink
}

func NewManager(logger *slog.Logger) *Manager {
	return &Manager{logger: logger, sinks: make(map[string]Sink)}
}

// Register adds a sink and returns its subscription id.
func (m *Manager) Register(sink Sink) string {
	id := uuid.New().String()
	m.mu.Lock()
	m.sinks[id] = sink
	m.mu.Unlock()
	return id
}

// Unregister removes a previously registered sink.
func (m *Manager) Unregister(id string) {
	m.mu.Lock()
	delete(m.sinks, id)
	m.mu.Unlock()
}

// OnSessionExit is wired directly to session.Manager.OnSessionExit. Only
// sessions the caller previously observed as blocked are worth pushing a
// notification for: a session that finished inside its own bounded wait
// was already delivered in full to the caller that invoked it.
func (m *Manager) OnSessionExit(wasBlocked bool, cs *session.CompletedSession) {
	if !wasBlocked {
		return
	}

	m.mu.Lock()
	sinks := make([]Sink, 0, len(m.sinks))
	for _, s := range m.sinks {
		sinks = append(sinks, s)
	}
	m.mu.Unlock()

	for _, s := range sinks {
		if err := s.Notify(cs); err != nil {
			m.logger.Warn("notification sink failed", "pid", cs.Pid, "err", err)
		}
	}
}
