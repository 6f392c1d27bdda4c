// Package mcptools registers the terminal session manager's tool surface
// on an MCP server and translates between mcp-go's request/result types
// and the session/procinfo packages underneath. Handler bodies and their
// literal response strings are grounded in terminal_handlers.py and
// process_tools.py (Desktop Commander style), adapted from the Python
// dict-returning handlers to mcp-go's (*mcp.CallToolResult, error) idiom.
package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sessiond/termsess/internal/procinfo"
	"github.com/sessiond/termsess/internal/session"
)

// Handlers bundles the dependencies every tool handler needs.
type Handlers struct {
	Manager *session.Manager
	Filter  *session.AdmissionFilter
}

// Register adds every tool this package implements to s.
func Register(s *server.MCPServer, h *Handlers) {
	s.AddTool(
		mcp.NewTool("execute_command",
			mcp.WithDescription("Execute a shell command, waiting up to a bounded timeout for it to finish before returning control."),
			mcp.WithString("command", mcp.Required(), mcp.Description("The shell command to run")),
			mcp.WithNumber("timeout_ms", mcp.Description("Milliseconds to wait before returning control if the command is still running (default 30000)")),
			mcp.WithString("cwd", mcp.Description("Working directory to run the command in (optional)")),
			mcp.WithString("shell", mcp.Description("Informational only; the current implementation always runs commands through the platform default shell and ignores this value")),
		),
		h.executeCommand,
	)

	s.AddTool(
		mcp.NewTool("read_output",
			mcp.WithDescription("Read newly produced output from a session started by execute_command, polling up to a bounded timeout."),
			mcp.WithNumber("pid", mcp.Required(), mcp.Description("The PID returned by execute_command")),
			mcp.WithNumber("timeout_ms", mcp.Description("Milliseconds to poll for new output before giving up (default 5000)")),
		),
		h.readOutput,
	)

	s.AddTool(
		mcp.NewTool("force_terminate",
			mcp.WithDescription("Request termination of a running session."),
			mcp.WithNumber("pid", mcp.Required(), mcp.Description("The PID of the session to terminate")),
		),
		h.forceTerminate,
	)

	s.AddTool(
		mcp.NewTool("list_sessions",
			mcp.WithDescription("List all active terminal sessions."),
		),
		h.listSessions,
	)

	s.AddTool(
		mcp.NewTool("list_processes",
			mcp.WithDescription("List processes currently running on the system."),
		),
		h.listProcesses,
	)

	s.AddTool(
		mcp.NewTool("kill_process",
			mcp.WithDescription("Terminate an arbitrary OS process by PID."),
			mcp.WithNumber("pid", mcp.Required(), mcp.Description("The PID of the process to kill")),
		),
		h.killProcess,
	)
}

func (h *Handlers) executeCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	command, _ := stringArg(args, "command")
	command = strings.TrimSpace(command)
	if command == "" {
		return mcp.NewToolResultError("Error: Command cannot be empty"), nil
	}

	if h.Filter != nil {
		if result := h.Filter.Validate(command); !result.Valid {
			return mcp.NewToolResultError(fmt.Sprintf("Error: %s", result.Reason)), nil
		}
	}

	timeoutMs := intArgDefault(args, "timeout_ms", 0)
	cwd, _ := stringArg(args, "cwd")

	res := h.Manager.Execute(ctx, command, timeoutMs, cwd)
	if res.Pid == -1 {
		return mcp.NewToolResultError(res.Output), nil
	}

	if !res.Blocked {
		out := strings.TrimSpace(res.Output)
		if out == "" {
			out = "(no output)"
		}
		return mcp.NewToolResultText(out), nil
	}

	text := fmt.Sprintf("Command started with PID %d", res.Pid)
	if strings.TrimSpace(res.Output) != "" {
		text += fmt.Sprintf("\nInitial output:\n%s", res.Output)
	}
	text += "\nCommand is still running. Use read_output to get more output."
	return mcp.NewToolResultText(text), nil
}

func (h *Handlers) readOutput(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	pid, ok := pidArg(args)
	if !ok {
		return mcp.NewToolResultError("Error: PID must be an integer"), nil
	}
	timeoutMs := intArgDefault(args, "timeout_ms", 0)

	text, found := h.Manager.ReadOutput(pid, timeoutMs)
	if !found {
		return mcp.NewToolResultError(fmt.Sprintf("No session found for PID %d", pid)), nil
	}
	if strings.TrimSpace(text) == "" {
		return mcp.NewToolResultText("No new output available (timeout reached)"), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (h *Handlers) forceTerminate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	pid, ok := pidArg(args)
	if !ok {
		return mcp.NewToolResultError("Error: PID must be an integer"), nil
	}

	if h.Manager.ForceTerminate(pid) {
		return mcp.NewToolResultText(fmt.Sprintf("Successfully initiated termination of session %d", pid)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("No active session found for PID %d", pid)), nil
}

func (h *Handlers) listSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions := h.Manager.ListActive()
	if len(sessions) == 0 {
		return mcp.NewToolResultText("No active sessions"), nil
	}

	lines := make([]string, 0, len(sessions))
	for _, s := range sessions {
		lines = append(lines, fmt.Sprintf("PID: %d, Blocked: %t, Runtime: %.1fs", s.Pid, s.Blocked, s.RuntimeSeconds))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (h *Handlers) listProcesses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rows, err := procinfo.List(ctx)
	if err != nil {
		if err == procinfo.ErrTimeout {
			return mcp.NewToolResultError("Error: Process listing timed out"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Error listing processes: %v", err)), nil
	}
	if len(rows) == 0 {
		return mcp.NewToolResultText("No processes found or unable to list processes"), nil
	}

	lines := make([]string, 0, len(rows))
	for _, p := range rows {
		lines = append(lines, fmt.Sprintf("PID: %d, Command: %s, CPU: %s, Memory: %s", p.Pid, p.Command, p.CPU, p.Memory))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

// criticalPids mirrors process_tools.py's hardcoded safety check.
var criticalPids = map[int]bool{0: true, 1: true, 2: true, 4: true}

func (h *Handlers) killProcess(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	pid, ok := pidArg(args)
	if !ok {
		return mcp.NewToolResultError("Error: PID must be an integer"), nil
	}
	if pid <= 0 {
		return mcp.NewToolResultError("Error: Invalid PID"), nil
	}
	if criticalPids[pid] {
		return mcp.NewToolResultError(fmt.Sprintf("Error: Cannot kill system critical process %d", pid)), nil
	}

	if err := procinfo.Kill(ctx, pid); err != nil {
		switch {
		case err == procinfo.ErrProcessNotFound:
			return mcp.NewToolResultError(fmt.Sprintf("Process %d not found", pid)), nil
		case err == procinfo.ErrPermissionDenied:
			return mcp.NewToolResultError(fmt.Sprintf("Permission denied: cannot kill process %d", pid)), nil
		case err == procinfo.ErrTimeout:
			return mcp.NewToolResultError(fmt.Sprintf("Timeout while trying to kill process %d", pid)), nil
		default:
			return mcp.NewToolResultError(fmt.Sprintf("Error killing process: %v", err)), nil
		}
	}
	return mcp.NewToolResultText(procinfo.SuccessMessage(pid)), nil
}
