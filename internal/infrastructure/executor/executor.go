// Package executor runs approved shell commands on the host.
package executor

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/doeshing/shai-agent/internal/domain"
	"github.com/doeshing/shai-agent/internal/ports"
)

// LocalExecutor runs commands through the host shell.
type LocalExecutor struct {
	shell     string
	maxOutput int64
	timeout   time.Duration
	grace     time.Duration
	logger    ports.Logger
}

// Option customises a LocalExecutor.
type Option func(*LocalExecutor)

// WithMaxOutput caps accumulated stdout and stderr, each.
func WithMaxOutput(n int64) Option {
	return func(e *LocalExecutor) {
		if n > 0 {
			e.maxOutput = n
		}
	}
}

// WithDefaults sets the timeout and grace window used when ExecOptions leaves them zero.
func WithDefaults(timeout, grace time.Duration) Option {
	return func(e *LocalExecutor) {
		if timeout > 0 {
			e.timeout = timeout
		}
		if grace > 0 {
			e.grace = grace
		}
	}
}

// NewLocalExecutor builds a new executor, shell defaults to /bin/sh.
func NewLocalExecutor(shell string, logger ports.Logger, opts ...Option) *LocalExecutor {
	if shell == "" {
		shell = "/bin/sh"
	}
	e := &LocalExecutor{
		shell:     shell,
		maxOutput: domain.DefaultMaxOutputBytes,
		timeout:   domain.DefaultCommandTimeout,
		grace:     domain.DefaultGracePeriod,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute implements ports.CommandExecutor. It never fails: start errors,
// timeouts and non-zero exits are all reported through the result. In
// interactive mode output is copied to opts.Stdout and opts.Stderr while it
// is produced.
func (e *LocalExecutor) Execute(ctx context.Context, command string, opts ports.ExecOptions) domain.ShellResult {
	if strings.TrimSpace(command) == "pwd" {
		return e.pwd(command, opts.Dir)
	}

	stream, err := e.Stream(ctx, command, opts)
	if err != nil {
		e.logger.Error("command failed to start", err, map[string]interface{}{"command": command})
		return domain.ShellResult{Command: command, Stderr: err.Error(), ExitCode: 1}
	}

	if opts.Interactive {
		for chunk := range stream.Chunks() {
			dst := opts.Stdout
			if chunk.Source == SourceStderr {
				dst = opts.Stderr
			}
			if dst != nil {
				_, _ = dst.Write(chunk.Data)
			}
		}
	}

	result := stream.Wait()
	e.logger.Info("command executed", map[string]interface{}{
		"command":     command,
		"exit_code":   result.ExitCode,
		"timed_out":   result.TimedOut,
		"duration_ms": result.Duration.Milliseconds(),
	})
	return result
}

// pwd answers a bare "pwd" from the known directory instead of the subprocess.
func (e *LocalExecutor) pwd(command, dir string) domain.ShellResult {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return domain.ShellResult{Command: command, Stderr: err.Error(), ExitCode: 1}
		}
		dir = wd
	}
	return domain.ShellResult{Command: command, Stdout: dir + "\n"}
}

var _ ports.CommandExecutor = (*LocalExecutor)(nil)
