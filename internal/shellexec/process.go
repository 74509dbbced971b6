// Package shellexec runs the shell commands an agent run issues: it spawns
// each command in its own process group so a timeout or abort can tear down
// the whole tree, unions three independent signals to decide which files
// changed, and persists stdout/stderr/combined artifacts to disk with
// truncation.
package shellexec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/zace-run/zace/internal/agentcore"
)

// Options configures a single command execution.
type Options struct {
	Command          string
	WorkingDirectory string
	Timeout          time.Duration
	OutputLimitChars int
	Env              []string
}

// Outcome is the raw result of running a command, before artifact
// persistence or change detection are layered on.
type Outcome struct {
	Stdout         string
	Stderr         string
	ExitCode       *int
	Signal         string
	TimedOut       bool
	Aborted        bool
	LifecycleEvent agentcore.LifecycleEvent
	Duration       time.Duration
}

// Run spawns Command in its own process group under bash -c, and waits for
// it to finish, ctx to be canceled (abort), or Timeout to elapse.
// On timeout or abort it sends SIGTERM to the whole process group, waits up
// to one second, then sends SIGKILL, so a hung child can never outlive its
// parent step.
func Run(ctx context.Context, opts Options, logger *zap.Logger) (*Outcome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cmd := exec.Command("bash", "-c", opts.Command)
	cmd.Dir = opts.WorkingDirectory
	if len(opts.Env) > 0 {
		cmd.Env = opts.Env
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var timer *time.Timer
	var timeoutCh <-chan time.Time
	if opts.Timeout > 0 {
		timer = time.NewTimer(opts.Timeout)
		timeoutCh = timer.C
		defer timer.Stop()
	}

	outcome := &Outcome{LifecycleEvent: agentcore.LifecycleNone}

	select {
	case err := <-done:
		outcome.Duration = time.Since(start)
		outcome.ExitCode, outcome.Signal = exitInfo(err)
	case <-timeoutCh:
		logger.Warn("command timed out, tearing down process group",
			zap.String("command", opts.Command), zap.Duration("timeout", opts.Timeout))
		teardown(cmd, logger)
		<-done
		outcome.Duration = time.Since(start)
		outcome.TimedOut = true
		outcome.LifecycleEvent = agentcore.LifecycleTimeout
	case <-ctx.Done():
		logger.Info("command aborted, tearing down process group",
			zap.String("command", opts.Command))
		teardown(cmd, logger)
		<-done
		outcome.Duration = time.Since(start)
		outcome.Aborted = true
		outcome.LifecycleEvent = agentcore.LifecycleAbort
	}

	outcome.Stdout = stdout.String()
	outcome.Stderr = stderr.String()
	return outcome, nil
}

// teardown sends SIGTERM to the negative pgid (the whole process group),
// waits up to a second, then SIGKILLs anything still alive. Signal delivery
// to a process tree is an OS-level primitive; no example repo in the pack
// wraps it in a library, so it is built directly on os/exec + syscall.
func teardown(cmd *exec.Cmd, logger *zap.Logger) {
	if cmd.Process == nil {
		return
	}
	pgid := cmd.Process.Pid
	_ = syscall.Kill(-pgid, syscall.SIGTERM)

	grace := time.NewTimer(1 * time.Second)
	defer grace.Stop()
	<-grace.C

	if err := syscall.Kill(-pgid, syscall.Signal(0)); err == nil {
		logger.Warn("process group survived SIGTERM, sending SIGKILL", zap.Int("pgid", pgid))
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	}
}

func exitInfo(err error) (*int, string) {
	if err == nil {
		code := 0
		return &code, ""
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				sig := status.Signal().String()
				return nil, sig
			}
			code := status.ExitStatus()
			return &code, ""
		}
		code := exitErr.ExitCode()
		return &code, ""
	}
	return nil, ""
}
