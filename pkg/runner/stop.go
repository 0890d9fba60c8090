package runner

import (
	"context"
	"log/slog"
	"syscall"
	"time"
)

// watch terminates the process group of pid when ctx is cancelled before
// exited is closed: SIGTERM first, SIGKILL once the stop timeout elapses.
func (r *Runner) watch(ctx context.Context, pid int, exited <-chan struct{}, logger *slog.Logger) {
	select {
	case <-exited:
		return
	case <-ctx.Done():
	}

	timeout := r.StopTimeout
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}
	logger.Info("terminating tool", "pid", pid, "timeout", timeout)
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		logger.Warn("sigterm", "pid", pid, "err", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-exited:
	case <-timer.C:
		logger.Warn("tool ignored SIGTERM, killing", "pid", pid)
		if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
			logger.Warn("sigkill", "pid", pid, "err", err)
		}
	}
}
