// Package session implements the bounded-wait terminal session manager:
// spawning child processes, buffering their merged output, and tracking
// them through an active map and a bounded completed history.
package session

import (
	"os/exec"
	"sync"
	"time"
)

// Status is the lifecycle state of an active session.
type Status string

const (
	StatusRunning Status = "running"
	StatusExited  Status = "exited"
)

// Session is a running (or just-finished) child process and its
// accumulated output. It only ever lives on the active side of a Store;
// once the child exits it is replaced by a CompletedSession.
type Session struct {
	mu sync.Mutex

	Pid       int
	Command   string
	StartedAt time.Time
	status    Status
	blocked   bool
	exitCode  *int

	cmd    *exec.Cmd
	output *outputBuffer
	done   chan struct{}
}

func newSession(pid int, command string, cmd *exec.Cmd) *Session {
	return &Session{
		Pid:       pid,
		Command:   command,
		StartedAt: time.Now(),
		status:    StatusRunning,
		cmd:       cmd,
		output:    newOutputBuffer(),
		done:      make(chan struct{}),
	}
}

func (s *Session) markBlocked() {
	s.mu.Lock()
	s.blocked = true
	s.mu.Unlock()
}

func (s *Session) isBlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocked
}

// ActiveInfo is the public snapshot returned by list_sessions.
type ActiveInfo struct {
	Pid            int
	Command        string
	Blocked        bool
	RuntimeSeconds float64
	StartedAt      time.Time
}

func (s *Session) info(now time.Time) ActiveInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ActiveInfo{
		Pid:            s.Pid,
		Command:        s.Command,
		Blocked:        s.blocked,
		RuntimeSeconds: now.Sub(s.StartedAt).Seconds(),
		StartedAt:      s.StartedAt,
	}
}

// CompletedSession is the terminal record kept for a session whose child
// has exited. ExitCode is nil when the process could not report one
// (e.g. it was killed before the exit status was observable).
type CompletedSession struct {
	Pid         int
	Command     string
	FinalOutput string
	ExitCode    *int
	StartedAt   time.Time
	EndedAt     time.Time

	// wasBlocked records whether the session was ever handed back to a
	// caller with blocked=true. It is not part of the documented
	// completed-session attribute set; it only exists so the
	// notification hook can tell a session a caller walked away from
	// apart from one a caller was actively polling for.
	wasBlocked bool
}

// Runtime is the wall-clock duration the process ran for.
func (c *CompletedSession) Runtime() time.Duration {
	return c.EndedAt.Sub(c.StartedAt)
}
