package notify

import (
	"log/slog"
	"testing"

	"github.com/sessiond/termsess/internal/session"
)

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

type recordingSink struct {
	calls []int
}

func (r *recordingSink) Notify(cs *session.CompletedSession) error {
	r.calls = append(r.calls, cs.Pid)
	return nil
}

func newTestManager() *Manager {
	return NewManager(slog.New(slog.NewTextHandler(nopWriter{}, nil)))
}

func TestOnSessionExit_SkipsUnblockedSessions(t *testing.T) {
	m := newTestManager()
	sink := &recordingSink{}
	m.Register(sink)

	m.OnSessionExit(false, &session.CompletedSession{Pid: 1})
	if len(sink.calls) != 0 {
		t.Fatalf("expected no notification for an unblocked session, got %v", sink.calls)
	}
}

func TestOnSessionExit_NotifiesForBlockedSessions(t *testing.T) {
	m := newTestManager()
	sink := &recordingSink{}
	m.Register(sink)

	m.OnSessionExit(true, &session.CompletedSession{Pid: 42})
	if len(sink.calls) != 1 || sink.calls[0] != 42 {
		t.Fatalf("expected notification for pid 42, got %v", sink.calls)
	}
}

func TestUnregister_StopsFurtherNotifications(t *testing.T) {
	m := newTestManager()
	sink := &recordingSink{}
	id := m.Register(sink)
	m.Unregister(id)

	m.OnSessionExit(true, &session.CompletedSession{Pid: 7})
	if len(sink.calls) != 0 {
		t.Fatalf("expected no calls after unregister, got %v", sink.calls)
	}
}
