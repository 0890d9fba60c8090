package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/modoterra/nockkeygen/internal/buildinfo"
	"github.com/modoterra/nockkeygen/pkg/config"
	"github.com/modoterra/nockkeygen/pkg/core"
	"github.com/modoterra/nockkeygen/pkg/dispatch"
	"github.com/modoterra/nockkeygen/pkg/history"
	"github.com/modoterra/nockkeygen/pkg/logging"
	"github.com/modoterra/nockkeygen/pkg/runner"
	tuimodel "github.com/modoterra/nockkeygen/pkg/tui/model"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "nockkeygen",
	Short:        "Key generation front-end for the Nockchain wallet",
	Long:         "nockkeygen runs nockchain-wallet keygen and export-keys, showing their output and saving exported keys to a file.",
	SilenceUsage: true,
	RunE:         runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "path to config.yaml")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

// --- Root: TUI ---

func runTUI(cmd *cobra.Command, _ []string) error {
	e, err := setup(true, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	app := tuimodel.New(tuimodel.Options{
		Context:    ctx,
		Dispatcher: e.disp,
		ExportPath: e.cfg.ExportPath(),
		Logger:     e.logger,
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()

	// The program can exit on a signal with tools still running.
	cancel()
	finishPending(e.disp, e.logger)
	return err
}

// finishPending handles events until no invocation is in flight, so every
// tool is reaped and completed exports are still saved.
func finishPending(d *dispatch.Dispatcher, logger *slog.Logger) {
	for d.Running() {
		upd := d.Handle(<-d.Events())
		if upd.Result != nil {
			logger.Info("finished after exit", "action", upd.Action, "result", upd.Result.Summary())
		}
	}
}

// --- Generate ---

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run nockchain-wallet keygen without the TUI",
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := setup(false, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer e.Close()

		return runHeadless(cmd, e.disp, e.disp.Generate)
	},
}

// --- Export ---

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Run nockchain-wallet export-keys and save the keys to a file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := setup(false, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer e.Close()

		dest := config.ExpandHome(exportOutput)
		if dest == "" {
			dest = e.cfg.ExportPath()
		}
		return runHeadless(cmd, e.disp, func(ctx context.Context) (dispatch.Update, error) {
			return e.disp.Export(ctx, dest)
		})
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "destination file (default from config, ~/keys.export)")
}

// runHeadless starts one operation and drives the dispatcher until it
// completes. Tool output goes to stdout, status lines to stderr.
func runHeadless(cmd *cobra.Command, d *dispatch.Dispatcher, start func(context.Context) (dispatch.Update, error)) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	upd, err := start(ctx)
	if err != nil {
		return err
	}
	printEntries(cmd, upd.Entries)

	var final dispatch.Update
	for d.Running() {
		upd := d.Handle(<-d.Events())
		printEntries(cmd, upd.Entries)
		if upd.Result != nil {
			final = upd
		}
	}

	switch {
	case final.Result == nil:
		return errors.New("operation ended without a result")
	case !final.Result.Succeeded():
		return fmt.Errorf("%s failed (%s)", final.Action.Title(), final.Result.Summary())
	case final.Notice != nil && final.Notice.Kind == dispatch.NoticePersistError:
		return errors.New("keys were exported but could not be saved")
	}
	return nil
}

func printEntries(cmd *cobra.Command, entries []dispatch.Entry) {
	for _, e := range entries {
		if e.Level == dispatch.LevelOutput {
			fmt.Fprintln(cmd.OutOrStdout(), e.Text)
		} else {
			fmt.Fprintln(cmd.ErrOrStderr(), e.Text)
		}
	}
}

// --- History ---

var (
	historyLimit  int
	historyJSON   bool
	historyAction string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded wallet tool runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path := cfg.HistoryPath()
		if path == "" {
			return errors.New("history is disabled in the config")
		}

		store, err := history.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()

		var only core.Action
		if historyAction != "" {
			if only, err = core.ParseAction(historyAction); err != nil {
				return err
			}
		}

		entries, err := store.List(cmd.Context(), historyLimit, only)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if historyJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		if len(entries) == 0 {
			fmt.Fprintln(out, "no runs recorded")
			return nil
		}
		printHistory(out, entries)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of runs to show (0 = all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
	historyCmd.Flags().StringVar(&historyAction, "action", "", "only show generate or export runs")
}

func printHistory(out io.Writer, entries []history.Entry) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tACTION\tOUTCOME\tEXIT\tLINES\tDESTINATION")
	for _, e := range entries {
		dest := e.Destination
		if dest == "" {
			dest = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			e.StartedAt.Local().Format(time.DateTime), e.Action, e.Outcome, e.ExitCode, e.Lines, dest)
	}
	tw.Flush()
}

// --- Config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the nockkeygen config file",
}

var (
	configInitTool  string
	configInitForce bool
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if _, err := os.Stat(configPath); err == nil && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
		}
		cfg, found, err := config.Generate(configInitTool)
		if err != nil {
			return err
		}
		if err := cfg.Save(configPath); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Generated %s\n", configPath)
		if found {
			fmt.Fprintf(out, "  tool: %s\n", cfg.Tool)
		} else {
			fmt.Fprintf(out, "  tool: %s (not found in PATH yet)\n", cfg.Tool)
		}
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		errs := config.Validate(cfg)
		if len(errs) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", configPath)
			return nil
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d error(s)\n", configPath, len(errs))
		for _, e := range errs {
			fmt.Fprintf(cmd.ErrOrStderr(), "  • %s\n", e)
		}
		return fmt.Errorf("%s is invalid", configPath)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configInitTool, "tool", config.DefaultTool, "wallet tool name or path")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}

// --- Doctor ---

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the wallet tool and local state are usable",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if _, err := os.Stat(configPath); err == nil {
			fmt.Fprintf(out, "config:   %s\n", configPath)
		} else {
			fmt.Fprintf(out, "config:   %s (absent, using defaults)\n", configPath)
		}

		tool, toolErr := runner.LookPath(cfg.Tool)
		if toolErr != nil {
			fmt.Fprintf(out, "tool:     %s NOT FOUND\n", cfg.Tool)
		} else {
			fmt.Fprintf(out, "tool:     %s\n", tool)
		}

		if path := cfg.HistoryPath(); path != "" {
			fmt.Fprintf(out, "history:  %s\n", path)
		} else {
			fmt.Fprintln(out, "history:  disabled")
		}
		fmt.Fprintf(out, "log:      %s\n", cfg.LogPath())
		fmt.Fprintf(out, "export:   %s (mode %04o)\n", cfg.ExportPath(), cfg.FileMode())

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
		defer cancel()
		st, err := logging.CheckJournal(ctx)
		switch {
		case err != nil:
			fmt.Fprintf(out, "journald: socket=%v (%v)\n", st.SocketAvailable, err)
		default:
			fmt.Fprintf(out, "journald: socket=%v unit=%s\n", st.SocketAvailable, st.UnitState)
		}

		if toolErr != nil {
			return notFoundError(cfg.Tool)
		}
		return nil
	},
}

// --- Version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "nockkeygen %s (%s) built %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.Date)
	},
}
