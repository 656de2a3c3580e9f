package orchestration

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

const defaultOutputFormat = "stream-json"

// Executor launches a headless child-agent binary and aggregates its
// streamed stdout into an ExecutionResult. Grounded on
// internal/captain/captain.go's executeSubagent (exec.CommandContext,
// workspace-scoped cmd.Dir) generalized from a single CombinedOutput()
// call to concurrent StdoutPipe/StderrPipe consumption, matching
// original_source's process_stream.
type Executor struct {
	BinaryPath string
}

func NewExecutor(binaryPath string) *Executor {
	if binaryPath == "" {
		binaryPath = "claude"
	}
	return &Executor{BinaryPath: binaryPath}
}

// Execute runs one prompt to completion inside ws, returning the
// aggregated result. On timeout or cancellation it kills the child,
// waits for the reaper, and returns only an error — partial events are
// discarded (spec §4.2).
func (e *Executor) Execute(ctx context.Context, ws WorkspaceConfig, prompt string, cfg ExecConfig) (*ExecutionResult, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	format := cfg.OutputFormat
	if format == "" {
		format = defaultOutputFormat
	}
	args := []string{"-p", prompt, "--output-format", format}
	if cfg.Verbose {
		args = append(args, "--verbose")
	}

	cmd := exec.CommandContext(ctx, e.BinaryPath, args...)
	cmd.Dir = ws.ProjectPath
	cmd.Env = buildChildEnv(ws, cfg.ExtraEnv)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, domain.Wrap(domain.KindExecution, "failed to open stdout pipe", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, domain.Wrap(domain.KindExecution, "failed to open stderr pipe", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, domain.Wrap(domain.KindExecution, "failed to start child process", err)
	}

	type stdoutResult struct {
		events []Event
		err    error
	}
	stdoutCh := make(chan stdoutResult, 1)
	stderrCh := make(chan []string, 1)

	go func() {
		events, err := readStdout(stdout)
		stdoutCh <- stdoutResult{events: events, err: err}
	}()
	go func() {
		stderrCh <- readStderr(stderr)
	}()

	out := <-stdoutCh
	events, parseErr := out.events, out.err
	stderrLines := <-stderrCh

	waitErr := cmd.Wait()
	duration := time.Since(start)

	if ctx.Err() != nil {
		return nil, domain.Wrap(domain.KindExecution, "execution timed out or was canceled", ctx.Err())
	}
	if parseErr != nil {
		return nil, parseErr
	}

	result := aggregate(events, duration)
	result.ExitCode = exitCodeOf(waitErr)

	if len(stderrLines) > 0 {
		result.Success = false
		if result.ErrorMessage == "" {
			result.ErrorMessage = stderrLines[0]
		}
	}
	if waitErr != nil {
		result.Success = false
		if result.ErrorMessage == "" {
			result.ErrorMessage = fmt.Sprintf("process exited with error: %v", waitErr)
		}
	}
	return result, nil
}

// HealthCheck runs the binary with --version and reports whether it
// exits successfully (spec §4.2).
func (e *Executor) HealthCheck(ctx context.Context) (bool, error) {
	cmd := exec.CommandContext(ctx, e.BinaryPath, "--version")
	if err := cmd.Run(); err != nil {
		return false, nil
	}
	return true, nil
}

func readStdout(stdout interface{ Read([]byte) (int, error) }) ([]Event, error) {
	var events []Event
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytesTrimSpace(line)) == 0 {
			continue
		}
		ev, err := parseEventLine(line)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func readStderr(stderr interface{ Read([]byte) (int, error) }) []string {
	var lines []string
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func bytesTrimSpace(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && isSpace(b[start]) {
		start++
	}
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func buildChildEnv(ws WorkspaceConfig, extra map[string]string) []string {
	env := os.Environ()
	for k, v := range extra {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	env = append(env,
		fmt.Sprintf("WORKSPACE_ID=%s", ws.WorkspaceID),
		fmt.Sprintf("WORKSPACE_NAME=%s", ws.WorkspaceName),
		fmt.Sprintf("TEMPLATE_NAME=%s", ws.TemplateName),
	)
	return env
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}
