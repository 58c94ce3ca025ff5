// Package scriptrunner executes user-supplied scripts in an external
// process. A run never surfaces an error to the caller: every failure mode
// (nonzero exit, timeout, launch failure) is normalized into a
// (success=false, log text) result so the interpretation layer can turn it
// into a lifecycle transition.
package scriptrunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// Runner executes script content with a configured interpreter and timeout.
type Runner struct {
	interpreter string
	timeout     time.Duration
	logger      *slog.Logger
}

// New creates a Runner that executes scripts with the given interpreter
// binary, bounding each run by timeout. If logger is nil, a default logger
// will be used.
func New(interpreter string, timeout time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		interpreter: interpreter,
		timeout:     timeout,
		logger:      logger.With(slog.String("component", "script_runner")),
	}
}

// Run writes the script content to a temporary file and executes it with the
// configured interpreter. env entries are added on top of the parent process
// environment. Returns whether the script exited zero, plus the combined
// captured output. Diagnostic text for timeouts, nonzero exits and launch
// failures is appended to the log under a SYSTEM marker.
func (r *Runner) Run(ctx context.Context, script string, env map[string]string) (bool, string) {
	scriptFile, err := os.CreateTemp("", "cadence-script-*")
	if err != nil {
		return false, fmt.Sprintf("--- SYSTEM ---\nFailed to stage script: %v", err)
	}
	scriptPath := scriptFile.Name()
	defer func() { _ = os.Remove(scriptPath) }()

	if _, err := scriptFile.WriteString(script); err != nil {
		_ = scriptFile.Close()
		return false, fmt.Sprintf("--- SYSTEM ---\nFailed to stage script: %v", err)
	}
	if err := scriptFile.Close(); err != nil {
		return false, fmt.Sprintf("--- SYSTEM ---\nFailed to stage script: %v", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.interpreter, scriptPath)
	cmd.Env = os.Environ()
	for key, value := range env {
		cmd.Env = append(cmd.Env, key+"="+value)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	logs := fmt.Sprintf("--- STDOUT ---\n%s\n--- STDERR ---\n%s", stdout.String(), stderr.String())

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		r.logger.Warn("script execution timed out",
			slog.Duration("timeout", r.timeout))
		return false, logs + fmt.Sprintf("\n--- SYSTEM ---\nScript execution timed out after %s.", r.timeout)
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return false, logs + fmt.Sprintf("\n--- SYSTEM ---\nScript failed with exit code: %d", exitErr.ExitCode())
		}
		// The process never started (bad interpreter, permissions, ...).
		return false, logs + fmt.Sprintf("\n--- SYSTEM ---\nAn unexpected error occurred: %v", runErr)
	}

	r.logger.Debug("script executed successfully",
		slog.Duration("elapsed", elapsed))
	return true, logs
}
