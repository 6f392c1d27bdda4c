//go:build !windows

package session

import (
	"os"
	"syscall"
)

// signalInterrupt sends SIGINT, mirroring the original's
// process.send_signal(signal.SIGINT) path before the scheduled
// force-kill.
func signalInterrupt(p *os.Process) error {
	return p.Signal(syscall.SIGINT)
}
