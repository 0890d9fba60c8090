package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/modoterra/nockkeygen/pkg/config"
	"github.com/modoterra/nockkeygen/pkg/dispatch"
	"github.com/modoterra/nockkeygen/pkg/history"
	"github.com/modoterra/nockkeygen/pkg/logging"
	"github.com/modoterra/nockkeygen/pkg/runner"
)

// env is everything a command needs to run the wallet tool.
type env struct {
	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error
	store    *history.Store
	disp     *dispatch.Dispatcher
}

// loadConfig reads and validates the config file named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = "  • " + e.Error()
		}
		return nil, fmt.Errorf("%s: %d error(s)\n%s", configPath, len(errs), strings.Join(msgs, "\n"))
	}
	return cfg, nil
}

// setup loads the config, builds the logger and resolves the wallet tool.
// In TUI mode diagnostics go to the log file; otherwise to logOut.
func setup(tui bool, logOut io.Writer) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logOpts := logging.Options{Level: cfg.Log.Level, Journald: cfg.Log.Journald, Writer: logOut}
	if tui {
		logOpts.File = cfg.LogPath()
	}
	logger, closeLog, err := logging.New(logOpts)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, logger: logger, closeLog: closeLog}

	opts := dispatch.Options{
		Tool: cfg.Tool,
		Runner: &runner.Runner{
			Dir:         cfg.WorkDir(),
			PTY:         cfg.PTY,
			StopTimeout: cfg.StopTimeout(),
			Logger:      logger,
		},
		FileMode: cfg.FileMode(),
		Logger:   logger,
	}
	if path := cfg.HistoryPath(); path != "" {
		store, err := history.Open(path)
		if err != nil {
			logger.Warn("history unavailable", "path", path, "err", err)
		} else {
			logger.Debug("history enabled", "path", store.Path())
			e.store = store
			opts.Recorder = store
		}
	}

	e.disp, err = dispatch.New(opts)
	if err != nil {
		e.Close()
		if errors.Is(err, runner.ErrToolNotFound) {
			return nil, notFoundError(cfg.Tool)
		}
		return nil, err
	}
	logger.Info("wallet tool resolved", "path", e.disp.Tool())
	return e, nil
}

func notFoundError(tool string) error {
	name := tool
	if name == "" {
		name = config.DefaultTool
	}
	return fmt.Errorf("%s command not found in PATH. Please install Nockchain and make sure %s is available", name, name)
}

// Close releases the history database and the log file.
func (e *env) Close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.logger.Warn("close history", "err", err)
		}
	}
	if e.closeLog != nil {
		_ = e.closeLog()
	}
}
