package executor

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/doeshing/shai-agent/internal/domain"
	"github.com/doeshing/shai-agent/internal/ports"
)

// Source tags which stream a chunk came from.
type Source int

const (
	SourceStdout Source = iota
	SourceStderr
)

// Chunk is one slice of output as produced by the process.
type Chunk struct {
	Source Source
	Data   []byte
}

const chunkBuffer = 64

// Stream is a running command. Consume Chunks for live output, then call
// Wait for the final result. Wait discards chunks that were not consumed.
type Stream struct {
	command string
	chunks  chan Chunk
	exited  chan struct{}
	done    chan struct{}

	timedOut  atomic.Bool
	cancelled atomic.Bool

	stdout *limitedWriter
	stderr *limitedWriter

	result domain.ShellResult
}

// Stream starts command in its own process group and returns immediately.
// On timeout or context cancellation the group receives SIGTERM, and SIGKILL
// once the grace window has passed.
func (e *LocalExecutor) Stream(ctx context.Context, command string, opts ports.ExecOptions) (*Stream, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}
	grace := opts.Grace
	if grace <= 0 {
		grace = e.grace
	}

	s := &Stream{
		command: command,
		chunks:  make(chan Chunk, chunkBuffer),
		exited:  make(chan struct{}),
		done:    make(chan struct{}),
		stdout:  &limitedWriter{w: &bytes.Buffer{}, max: e.maxOutput},
		stderr:  &limitedWriter{w: &bytes.Buffer{}, max: e.maxOutput},
	}

	cmd := exec.Command(e.shell, "-c", command)
	cmd.Dir = opts.Dir
	cmd.Stdin = opts.Stdin
	cmd.Stdout = &chunkWriter{source: SourceStdout, out: s.chunks, acc: s.stdout}
	cmd.Stderr = &chunkWriter{source: SourceStderr, out: s.chunks, acc: s.stderr}
	cmd.WaitDelay = grace
	setupProcessGroup(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	go s.watch(ctx, cmd, timeout, grace)
	go s.supervise(cmd, start)
	return s, nil
}

// Chunks yields output in production order. The channel closes when the
// process has exited and all output was delivered.
func (s *Stream) Chunks() <-chan Chunk {
	return s.chunks
}

// Wait blocks until the command finished and returns its result.
func (s *Stream) Wait() domain.ShellResult {
	for range s.chunks {
	}
	<-s.done
	return s.result
}

func (s *Stream) supervise(cmd *exec.Cmd, start time.Time) {
	err := cmd.Wait()
	close(s.exited)
	close(s.chunks)

	result := domain.ShellResult{
		Command:   s.command,
		Stdout:    s.stdout.String(),
		Stderr:    s.stderr.String(),
		Truncated: s.stdout.truncated || s.stderr.truncated,
		Duration:  time.Since(start),
	}

	var exitErr *exec.ExitError
	switch {
	case s.timedOut.Load():
		result.TimedOut = true
		result.ExitCode = domain.TimeoutExitCode
		result.Stderr = appendLine(result.Stderr, domain.ErrCommandTimeout.Error())
	case s.cancelled.Load():
		result.ExitCode = 130
		result.Stderr = appendLine(result.Stderr, "command cancelled")
	case err == nil:
	case errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil:
		// a background child kept the pipes open after the shell exited
		result.ExitCode = cmd.ProcessState.ExitCode()
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		if result.ExitCode < 0 {
			result.ExitCode = 1
		}
	default:
		result.ExitCode = 1
		result.Stderr = appendLine(result.Stderr, err.Error())
	}

	s.result = result
	close(s.done)
}

func (s *Stream) watch(ctx context.Context, cmd *exec.Cmd, timeout, grace time.Duration) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.exited:
		return
	case <-ctx.Done():
		s.cancelled.Store(true)
	case <-timer.C:
		s.timedOut.Store(true)
	}

	_ = terminateGroup(cmd)

	kill := time.NewTimer(grace)
	defer kill.Stop()
	select {
	case <-s.exited:
	case <-kill.C:
		_ = killGroup(cmd)
	}
}

// chunkWriter forwards each write as a chunk and accumulates a capped copy.
type chunkWriter struct {
	source Source
	out    chan<- Chunk
	acc    *limitedWriter
	mu     sync.Mutex
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	data := append([]byte(nil), p...)
	_, _ = w.acc.Write(data)
	w.out <- Chunk{Source: w.source, Data: data}
	return len(p), nil
}

func appendLine(s, line string) string {
	if s != "" && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s + line
}
