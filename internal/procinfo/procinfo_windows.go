//go:build windows

package procinfo

import (
	"context"
	"encoding/csv"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// List shells out to "tasklist /fo csv" with a 10 second inner timeout,
// mirroring process_tools.py's win32 branch (subprocess.run(..., timeout=10)).
func List(ctx context.Context) ([]ProcessInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "tasklist", "/fo", "csv")
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("tasklist: %w", err)
	}

	r := csv.NewReader(strings.NewReader(string(out)))
	records, err := r.ReadAll()
	if err != nil || len(records) < 2 {
		return nil, nil
	}

	var rows []ProcessInfo
	for _, rec := range records[1:] {
		if len(rec) < 5 {
			continue
		}
		pid, err := strconv.Atoi(rec[1])
		if err != nil {
			continue
		}
		rows = append(rows, ProcessInfo{
			Pid:     pid,
			Command: rec[0],
			CPU:     "N/A",
			Memory:  rec[4],
		})
		if len(rows) >= maxRows {
			break
		}
	}
	return rows, nil
}

// Kill shells out to "taskkill /F /PID", mirroring process_tools.py's
// win32 branch (with a 5 second inner timeout).
func Kill(ctx context.Context, pid int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "taskkill", "/F", "/PID", strconv.Itoa(pid))
	out, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return ErrTimeout
	}
	if err != nil {
		msg := strings.ToLower(string(out))
		if strings.Contains(msg, "not found") {
			return ErrProcessNotFound
		}
		if strings.Contains(msg, "access is denied") {
			return ErrPermissionDenied
		}
		return fmt.Errorf("%s", strings.TrimSpace(string(out)))
	}
	return nil
}

// SuccessMessage is the literal text reported after a successful kill.
func SuccessMessage(pid int) string {
	return fmt.Sprintf("Successfully terminated process %d", pid)
}
