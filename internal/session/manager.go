package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	defaultExecuteTimeout = 30 * time.Second
	defaultReadTimeout    = 5 * time.Second
	executePollInterval   = 100 * time.Millisecond
	exitDrainDelay        = 100 * time.Millisecond
	readPollInterval      = 300 * time.Millisecond
	terminateGrace        = 1 * time.Second
)

// ExecutionResult is what execute hands back to a caller: either the full
// output of a command that finished inside the bounded wait (Blocked
// false), or a pid and a partial output snapshot for one that did not
// (Blocked true). Pid is -1 when the command could not be spawned at all.
type ExecutionResult struct {
	Pid     int
	Output  string
	Blocked bool
}

// Manager owns the session Store and the goroutine that drives each
// child process from spawn to completion. It is the Go analogue of the
// teacher's tmux/PTY-backed Manager, generalized to a non-PTY, merged
// stdout+stderr child process per spec.md's non-goals.
type Manager struct {
	logger *slog.Logger
	store  *Store

	// OnSessionExit, when set, is invoked once per session after it is
	// promoted to completed. wasBlocked is true only for sessions the
	// caller previously saw as blocked=true — the scenario the
	// notification feature exists for.
	OnSessionExit func(wasBlocked bool, cs *CompletedSession)
}

// NewManager constructs a Manager with an empty Store bounded to
// maxCompleted completed sessions (spec.md's default is 100).
func NewManager(logger *slog.Logger, maxCompleted int) *Manager {
	return &Manager{
		logger: logger,
		store:  newStore(maxCompleted),
	}
}

// Execute spawns command under the platform shell and waits up to
// timeoutMs for it to finish, polling every 100ms. If the child exits
// within the window it returns the full output with Blocked=false; if
// not, it returns the pid and a non-cursor-advancing output snapshot with
// Blocked=true. That snapshot is intentionally not taken via
// takeNewOutput: the first subsequent read_output call will re-deliver
// the same bytes. This is a documented quirk of the original this was
// distilled from, not a bug — preserved rather than silently fixed.
func (m *Manager) Execute(ctx context.Context, command string, timeoutMs int, cwd string) ExecutionResult {
	if timeoutMs <= 0 {
		timeoutMs = int(defaultExecuteTimeout / time.Millisecond)
	}

	cmd := platformShellCommand(command)
	cmd.Dir = cwd

	buf := newOutputBuffer()
	cmd.Stdout = buf
	cmd.Stderr = buf

	if err := cmd.Start(); err != nil {
		m.logger.Warn("failed to start command", "command", command, "err", err)
		return ExecutionResult{Pid: -1, Output: fmt.Sprintf("Error executing command: %v", err)}
	}
	if cmd.Process == nil {
		return ExecutionResult{Pid: -1, Output: "Error: Failed to get process ID. The command could not be executed."}
	}

	sess := newSession(cmd.Process.Pid, command, cmd)
	sess.output = buf
	if err := m.store.insertActive(sess); err != nil {
		_ = cmd.Process.Kill()
		return ExecutionResult{Pid: -1, Output: fmt.Sprintf("Error executing command: %v", err)}
	}

	go m.collect(sess)

	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	for time.Now().Before(deadline) {
		select {
		case <-sess.done:
			time.Sleep(exitDrainDelay)
			return ExecutionResult{Pid: sess.Pid, Output: sess.output.snapshot(), Blocked: false}
		case <-time.After(executePollInterval):
		}
	}

	sess.markBlocked()
	return ExecutionResult{Pid: sess.Pid, Output: sess.output.snapshot(), Blocked: true}
}

// collect waits for the child to exit, then finalizes the session:
// builds its CompletedSession record, promotes it out of the active map,
// and notifies OnSessionExit. cmd.Wait blocks until the internal
// goroutine os/exec spawned to copy the shared stdout/stderr pipe into
// buf has finished, so by the time it returns the output is fully drained.
func (m *Manager) collect(sess *Session) {
	waitErr := sess.cmd.Wait()

	var exitCode *int
	if sess.cmd.ProcessState != nil {
		code := sess.cmd.ProcessState.ExitCode()
		if code >= 0 {
			exitCode = &code
		}
	}
	if exitCode == nil && waitErr == nil {
		zero := 0
		exitCode = &zero
	}

	completed := &CompletedSession{
		Pid:         sess.Pid,
		Command:     sess.Command,
		FinalOutput: sess.output.snapshot(),
		ExitCode:    exitCode,
		StartedAt:   sess.StartedAt,
		EndedAt:     time.Now(),
		wasBlocked:  sess.isBlocked(),
	}

	sess.mu.Lock()
	sess.status = StatusExited
	sess.exitCode = exitCode
	sess.mu.Unlock()
	close(sess.done)

	m.store.promote(sess.Pid, completed)

	if m.OnSessionExit != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Warn("session exit notification panicked", "pid", sess.Pid, "recover", r)
				}
			}()
			m.OnSessionExit(completed.wasBlocked, completed)
		}()
	}
}

// ReadOutput returns newly produced output for an active session (polling
// every 300ms until the deadline), the formatted summary for a completed
// one, or found=false if pid names neither.
func (m *Manager) ReadOutput(pid int, timeoutMs int) (text string, found bool) {
	if timeoutMs <= 0 {
		timeoutMs = int(defaultReadTimeout / time.Millisecond)
	}

	if _, active := m.store.getActive(pid); active {
		deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
		for {
			out, ok := m.store.takeNewOutput(pid)
			if !ok {
				// Promoted to completed while we were polling.
				break
			}
			if strings.TrimSpace(out) != "" {
				return out, true
			}
			if !time.Now().Before(deadline) {
				return out, true
			}
			time.Sleep(readPollInterval)
		}
	}

	if cs, ok := m.store.getCompleted(pid); ok {
		return formatCompletedSummary(cs), true
	}

	return "", false
}

// ForceTerminate requests termination of an active session: SIGINT on
// POSIX (falling back to Kill if unsupported), a direct terminate on
// Windows, each followed by a scheduled force-kill if the process has
// not exited within 1 second. Returns false if pid is not active.
func (m *Manager) ForceTerminate(pid int) bool {
	sess, ok := m.store.getActive(pid)
	if !ok {
		return false
	}

	sess.mu.Lock()
	cmd := sess.cmd
	sess.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return false
	}

	if err := signalInterrupt(cmd.Process); err != nil {
		m.logger.Debug("interrupt failed, falling back to kill", "pid", pid, "err", err)
		_ = cmd.Process.Kill()
		return true
	}

	go func() {
		select {
		case <-sess.done:
		case <-time.After(terminateGrace):
			_ = cmd.Process.Kill()
		}
	}()

	return true
}

// ListActive returns a snapshot of all running sessions.
func (m *Manager) ListActive() []ActiveInfo {
	sessions := m.store.listActive()
	now := time.Now()
	infos := make([]ActiveInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.info(now))
	}
	return infos
}

// ListCompleted returns a snapshot of all completed sessions still
// within the bounded history.
func (m *Manager) ListCompleted() []*CompletedSession {
	return m.store.listCompleted()
}

// Stats exposes store occupancy for the housekeeping job.
func (m *Manager) Stats() StoreStats {
	return m.store.stats()
}

func formatCompletedSummary(cs *CompletedSession) string {
	code := "unknown"
	if cs.ExitCode != nil {
		code = fmt.Sprintf("%d", *cs.ExitCode)
	}
	return fmt.Sprintf(
		"Process completed with exit code %s\nRuntime: %.2fs\nFinal output:\n%s",
		code, cs.Runtime().Seconds(), cs.FinalOutput,
	)
}
