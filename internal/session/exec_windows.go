//go:build windows

package session

import "os/exec"

// platformShellCommand builds the exec.Cmd that runs command through the
// platform shell, the Go-idiomatic equivalent of the original's
// subprocess.Popen(command, shell=True) on Windows.
func platformShellCommand(command string) *exec.Cmd {
	return exec.Command("cmd", "/C", command)
}
