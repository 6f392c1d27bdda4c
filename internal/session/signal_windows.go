//go:build windows

package session

import "os"

// signalInterrupt requests termination via the process handle, mirroring
// the original's process.terminate() path on win32 (Go's os.Process has
// no portable "interrupt" signal for Windows consoles we didn't create).
func signalInterrupt(p *os.Process) error {
	return p.Kill()
}
