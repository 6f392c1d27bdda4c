package session

import (
	"fmt"
	"sync"
	"time"
)

const defaultMaxCompleted = 100

// StoreStats is a point-in-time occupancy snapshot, consumed only by the
// housekeeping cron job — never surfaced as an MCP tool.
type StoreStats struct {
	ActiveCount        int
	CompletedCount     int
	OldestCompletedAge time.Duration
}

// Store is the in-memory session table: an active map keyed by pid and a
// bounded FIFO of completed sessions. There is no disk persistence —
// restarting the process starts from empty, same as spec.md's scoping
// of "no durable storage" for session state.
type Store struct {
	mu sync.Mutex

	active map[int]*Session

	completed      map[int]*CompletedSession
	completedOrder []int // pids in ended_at order, oldest first
	maxCompleted   int
}

func newStore(maxCompleted int) *Store {
	if maxCompleted <= 0 {
		maxCompleted = defaultMaxCompleted
	}
	return &Store{
		active:       make(map[int]*Session),
		completed:    make(map[int]*CompletedSession),
		maxCompleted: maxCompleted,
	}
}

func (st *Store) insertActive(s *Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, exists := st.active[s.Pid]; exists {
		return fmt.Errorf("session for pid %d already active", s.Pid)
	}
	st.active[s.Pid] = s
	return nil
}

func (st *Store) getActive(pid int) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.active[pid]
	return s, ok
}

func (st *Store) getCompleted(pid int) (*CompletedSession, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	cs, ok := st.completed[pid]
	return cs, ok
}

// promote moves a session from active to completed, evicting the oldest
// completed entry (by ended_at, i.e. insertion order here) once the
// bounded history overflows. This adopts spec.md's own recommended
// redesign over the original's smallest-pid eviction.
func (st *Store) promote(pid int, cs *CompletedSession) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.active, pid)
	st.completed[pid] = cs
	st.completedOrder = append(st.completedOrder, pid)
	if len(st.completedOrder) > st.maxCompleted {
		oldest := st.completedOrder[0]
		st.completedOrder = st.completedOrder[1:]
		delete(st.completed, oldest)
	}
}

func (st *Store) listActive() []*Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]*Session, 0, len(st.active))
	for _, s := range st.active {
		out = append(out, s)
	}
	return out
}

func (st *Store) listCompleted() []*CompletedSession {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]*CompletedSession, 0, len(st.completedOrder))
	for _, pid := range st.completedOrder {
		out = append(out, st.completed[pid])
	}
	return out
}

// takeNewOutput returns bytes written since the last call for an active
// session, advancing its cursor. ok is false when pid does not name an
// active session (including "no longer active, now completed").
func (st *Store) takeNewOutput(pid int) (out string, ok bool) {
	st.mu.Lock()
	s, found := st.active[pid]
	st.mu.Unlock()
	if !found {
		return "", false
	}
	return s.output.takeNew(), true
}

func (st *Store) stats() StoreStats {
	st.mu.Lock()
	defer st.mu.Unlock()
	stats := StoreStats{
		ActiveCount:    len(st.active),
		CompletedCount: len(st.completed),
	}
	if len(st.completedOrder) > 0 {
		oldest := st.completed[st.completedOrder[0]]
		stats.OldestCompletedAge = time.Since(oldest.EndedAt)
	}
	return stats
}
