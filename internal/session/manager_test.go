package session

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, nil))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestExecute_FastCommandReturnsUnblocked(t *testing.T) {
	m := NewManager(testLogger(), 100)
	result := m.Execute(context.Background(), "echo hello", 2000, "")
	if result.Blocked {
		t.Fatal("expected fast command to be unblocked")
	}
	if !strings.Contains(result.Output, "hello") {
		t.Fatalf("expected output to contain 'hello', got %q", result.Output)
	}
}

func TestExecute_SlowCommandReturnsBlockedWithPid(t *testing.T) {
	m := NewManager(testLogger(), 100)
	result := m.Execute(context.Background(), "sleep 2", 200, "")
	if !result.Blocked {
		t.Fatal("expected slow command to be blocked")
	}
	if result.Pid <= 0 {
		t.Fatalf("expected positive pid, got %d", result.Pid)
	}
}

func TestReadOutput_DoubleDeliveryOnFirstReadAfterBlock(t *testing.T) {
	m := NewManager(testLogger(), 100)
	result := m.Execute(context.Background(), "echo partial; sleep 2", 200, "")
	if !result.Blocked {
		t.Fatal("expected command to still be running")
	}

	// The execute snapshot already contains "partial". Because that
	// snapshot never advanced the read cursor, the first read_output
	// call re-delivers it.
	text, found := m.ReadOutput(result.Pid, 100)
	if !found {
		t.Fatal("expected session to be found")
	}
	if !strings.Contains(text, "partial") {
		t.Fatalf("expected first read_output to redeliver 'partial', got %q", text)
	}

	_ = m.ForceTerminate(result.Pid)
}

func TestReadOutput_CompletedSessionReturnsSummary(t *testing.T) {
	m := NewManager(testLogger(), 100)
	result := m.Execute(context.Background(), "echo done", 2000, "")
	if result.Blocked {
		t.Fatal("expected command to complete within the bounded wait")
	}

	text, found := m.ReadOutput(result.Pid, 500)
	if !found {
		t.Fatal("expected completed session to be found")
	}
	if !strings.Contains(text, "Process completed with exit code") {
		t.Fatalf("expected completed summary, got %q", text)
	}
}

func TestReadOutput_UnknownPidNotFound(t *testing.T) {
	m := NewManager(testLogger(), 100)
	_, found := m.ReadOutput(999999, 50)
	if found {
		t.Fatal("expected unknown pid to not be found")
	}
}

func TestForceTerminate_UnknownPidReturnsFalse(t *testing.T) {
	m := NewManager(testLogger(), 100)
	if m.ForceTerminate(999999) {
		t.Fatal("expected force terminate of unknown pid to return false")
	}
}

func TestForceTerminate_StopsRunningSession(t *testing.T) {
	m := NewManager(testLogger(), 100)
	result := m.Execute(context.Background(), "sleep 10", 200, "")
	if !result.Blocked {
		t.Fatal("expected sleep to still be running")
	}
	if !m.ForceTerminate(result.Pid) {
		t.Fatal("expected force terminate to succeed")
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, active := m.store.getActive(result.Pid); !active {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("expected session to be promoted to completed after termination")
}

func TestListActive_ReflectsRunningSessions(t *testing.T) {
	m := NewManager(testLogger(), 100)
	result := m.Execute(context.Background(), "sleep 2", 200, "")
	if !result.Blocked {
		t.Fatal("expected sleep to still be running")
	}
	infos := m.ListActive()
	found := false
	for _, info := range infos {
		if info.Pid == result.Pid {
			found = true
			if !info.Blocked {
				t.Fatal("expected listed session to be marked blocked")
			}
		}
	}
	if !found {
		t.Fatal("expected active session to appear in ListActive")
	}
	_ = m.ForceTerminate(result.Pid)
}

func TestStore_EvictsOldestCompletedByEndedAt(t *testing.T) {
	st := newStore(2)
	now := time.Now()
	a := &CompletedSession{Pid: 100, EndedAt: now}
	b := &CompletedSession{Pid: 5, EndedAt: now.Add(time.Second)}
	c := &CompletedSession{Pid: 50, EndedAt: now.Add(2 * time.Second)}

	st.promote(a.Pid, a)
	st.promote(b.Pid, b)
	st.promote(c.Pid, c)

	if _, ok := st.getCompleted(a.Pid); ok {
		t.Fatal("expected oldest completed session (by ended_at) to be evicted, not the smallest pid")
	}
	if _, ok := st.getCompleted(b.Pid); !ok {
		t.Fatal("expected pid 5 to remain (smaller pid than evicted, but newer ended_at)")
	}
	if _, ok := st.getCompleted(c.Pid); !ok {
		t.Fatal("expected most recent completed session to remain")
	}
}
