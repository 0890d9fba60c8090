// Package runner launches the wallet tool and streams its sanitized output.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/modoterra/nockkeygen/pkg/core"
)

// DefaultStopTimeout bounds the wait between SIGTERM and SIGKILL.
const DefaultStopTimeout = 10 * time.Second

// Runner executes one invocation at a time per call to Run. A Runner holds no
// per-run state and may be shared between goroutines.
type Runner struct {
	Dir         string        // working directory; empty means the current one
	PTY         bool          // attach non-capturing runs to a pseudo-terminal
	StopTimeout time.Duration // grace period after SIGTERM on cancellation
	Logger      *slog.Logger
}

type stream struct {
	name string
	r    io.Reader
}

// Run starts the invocation, delivers every cleaned output line to sink in
// arrival order, then delivers exactly one Result, which it also returns.
// Cancelling ctx terminates the tool's process group.
func (r *Runner) Run(ctx context.Context, inv core.Invocation, sink core.Sink) core.Result {
	logger := r.logger().With("invocation", inv.ID(), "action", inv.Action())
	res := core.Result{
		InvocationID: inv.ID(),
		Action:       inv.Action(),
		StartedAt:    time.Now(),
	}

	if inv.Path() == "" {
		return r.finish(sink, logger, fail(res, core.FailureCode, "empty command"))
	}

	cmd := exec.Command(inv.Path(), inv.Args()...)
	cmd.Dir = r.Dir

	var stdout bytes.Buffer
	streams, cleanup, err := r.start(cmd, inv, &stdout)
	if err != nil {
		return r.finish(sink, logger, fail(res, core.FailureCode, err.Error()))
	}
	defer cleanup()

	logger.Info("tool started", "pid", cmd.Process.Pid, "command", inv.String(), "pty", r.PTY && !inv.Capture())

	exited := make(chan struct{})
	go r.watch(ctx, cmd.Process.Pid, exited, logger)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		readErr error
		seq     int
	)
	emit := func(text string) {
		mu.Lock()
		defer mu.Unlock()
		seq++
		sink.Line(core.OutputLine{
			InvocationID: inv.ID(),
			Seq:          seq,
			TsUnixMs:     time.Now().UnixMilli(),
			Text:         text,
		})
	}
	for _, s := range streams {
		wg.Add(1)
		go func(s stream) {
			defer wg.Done()
			if err := scanLines(s.r, emit); err != nil && !isTerminalEOF(err) {
				mu.Lock()
				if readErr == nil {
					readErr = fmt.Errorf("read %s: %w", s.name, err)
				}
				mu.Unlock()
			}
		}(s)
	}
	wg.Wait()
	waitErr := cmd.Wait()
	close(exited)

	res.Lines = seq
	if inv.Capture() {
		res.Stdout = stdout.Bytes()
	}

	exitCode := core.FailureCode
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	var exitErr *exec.ExitError
	switch {
	case readErr != nil:
		res = fail(res, core.FailureCode, readErr.Error())
	case waitErr == nil:
		res.Outcome = core.OutcomeSuccess
		res.ExitCode = 0
	case errors.As(waitErr, &exitErr):
		res = fail(res, exitCode, exitErr.Error())
	default:
		res = fail(res, core.FailureCode, waitErr.Error())
	}
	if ctx.Err() != nil && !res.Succeeded() {
		res.Diagnostic = "terminated: " + res.Diagnostic
	}
	return r.finish(sink, logger, res)
}

// start wires the process streams for the invocation's mode and starts it.
func (r *Runner) start(cmd *exec.Cmd, inv core.Invocation, stdout *bytes.Buffer) ([]stream, func(), error) {
	switch {
	case inv.Capture():
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		outPipe, err := cmd.StdoutPipe()
		if err != nil {
			return nil, nil, fmt.Errorf("stdout pipe: %w", err)
		}
		errPipe, err := cmd.StderrPipe()
		if err != nil {
			return nil, nil, fmt.Errorf("stderr pipe: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return nil, nil, fmt.Errorf("start %s: %w", inv.Path(), err)
		}
		return []stream{
			{name: "stdout", r: io.TeeReader(outPipe, stdout)},
			{name: "stderr", r: errPipe},
		}, func() {}, nil

	case r.PTY:
		ptmx, err := pty.Start(cmd)
		if err != nil {
			return nil, nil, fmt.Errorf("start %s: %w", inv.Path(), err)
		}
		return []stream{{name: "pty", r: ptmx}}, func() { ptmx.Close() }, nil

	default:
		// One pipe for both streams keeps the tool's own write order.
		pr, pw, err := os.Pipe()
		if err != nil {
			return nil, nil, fmt.Errorf("output pipe: %w", err)
		}
		cmd.Stdout = pw
		cmd.Stderr = pw
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		err = cmd.Start()
		pw.Close()
		if err != nil {
			pr.Close()
			return nil, nil, fmt.Errorf("start %s: %w", inv.Path(), err)
		}
		return []stream{{name: "output", r: pr}}, func() { pr.Close() }, nil
	}
}

func (r *Runner) finish(sink core.Sink, logger *slog.Logger, res core.Result) core.Result {
	res.EndedAt = time.Now()
	if res.Succeeded() {
		logger.Info("tool exited", "exit_code", 0, "lines", res.Lines, "duration", res.Duration())
	} else {
		logger.Warn("tool failed", "exit_code", res.ExitCode, "err", res.Diagnostic, "lines", res.Lines)
	}
	sink.Done(res)
	return res
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func fail(res core.Result, code int, diagnostic string) core.Result {
	res.Outcome = core.OutcomeFailure
	res.ExitCode = code
	res.Diagnostic = diagnostic
	return res
}

// isTerminalEOF reports the error a pty master returns once the child side
// has closed; it marks the end of the stream.
func isTerminalEOF(err error) bool {
	return errors.Is(err, syscall.EIO)
}
