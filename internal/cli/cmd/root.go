package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mediakiller/internal/config"
	"mediakiller/internal/interrupt"
	"mediakiller/internal/logging"
)

const (
	ExitOK             = 0
	ExitCLIError       = 1
	ExitMissingDep     = 2
	ExitTranscodeError = 4
	ExitCancelled      = 130
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// app is the state shared by every command of one invocation.
type app struct {
	logger   hclog.Logger
	closeLog func() error
	ctl      *interrupt.Controller
}

func newRootCmd() *cobra.Command {
	a := &app{logger: hclog.NewNullLogger(), closeLog: func() error { return nil }}

	root := &cobra.Command{
		Use:   "mediakiller [presets...] [sources...]",
		Short: "Batch transcoder driven by presets",
		Long: "MediaKiller turns a set of source files and one or more presets into a queue of encoder " +
			"missions and runs them one at a time. Arguments ending in .toml, .yaml, .yml or .json are " +
			"presets; everything else is a source file or folder. Re-running the same command skips " +
			"missions whose targets already exist.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.closeLog()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExecute(cmd, args, runMode{})
		},
	}

	pf := root.PersistentFlags()
	pf.StringP(config.KeyOutput, "o", "", "Root folder for all targets")
	pf.String(config.KeyFFmpeg, "", "Encoder binary (overrides presets)")
	pf.String(config.KeyFFprobe, "", "Prober binary used to read durations")
	pf.String(config.KeyCacheFile, "", "Media info cache file")
	pf.BoolP(config.KeyVerbose, "v", false, "Debug logging, including encoder command lines")
	pf.Bool(config.KeyLogJSON, false, "Log as JSON")
	pf.String(config.KeyLogFile, "", "Append logs to this file instead of stderr")
	pf.String(config.KeyLogLevel, "", "Log level: trace, debug, info, warn, error")
	pf.BoolP(config.KeyForceOverwrite, "y", false, "Overwrite existing targets")
	pf.BoolP(config.KeyNoOverwrite, "n", false, "Never overwrite existing targets (beats -y)")
	pf.Bool(config.KeyNoUI, false, "Disable the TUI; print one line per mission")
	pf.Int(config.KeyProbeJobs, 0, "Concurrent duration probes")
	pf.Duration(config.KeyMissionTimeout, 0, "Stop any single mission after this long (0 disables)")

	bindRunFlags(root)

	root.AddCommand(a.newRunCmd())
	root.AddCommand(a.newPlanCmd())
	root.AddCommand(a.newScriptCmd())
	root.AddCommand(newPresetCmd())
	root.AddCommand(a.newCacheCmd())
	root.AddCommand(a.newDoctorCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

// bindRunFlags adds the flags shared by every command that builds missions.
func bindRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceP("preset", "p", nil, "Preset file (repeatable)")
	_ = cmd.RegisterFlagCompletionFunc("preset", completePresetFiles)
	cmd.ValidArgsFunction = completeInputs
}

// init loads configuration and builds the logger. It runs once per invocation.
func (a *app) init(cmd *cobra.Command) error {
	if err := config.Init(cmd.Root().PersistentFlags()); err != nil {
		return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("config: %w", err)}
	}
	quiet := !viper.GetBool(config.KeyNoUI) && isTerminal()
	logger, closeLog, err := logging.New(logging.Options{
		Verbose: viper.GetBool(config.KeyVerbose),
		JSON:    viper.GetBool(config.KeyLogJSON),
		File:    viper.GetString(config.KeyLogFile),
		Level:   viper.GetString(config.KeyLogLevel),
	}, quiet)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("log file: %w", err)}
	}
	a.logger = logger.With("session", uuid.NewString()[:8])
	a.closeLog = closeLog

	if ctl, ok := interrupt.FromContext(cmd.Context()); ok {
		a.ctl = ctl
	} else {
		a.ctl = interrupt.New(interrupt.DefaultWindow)
	}
	return nil
}

// Execute runs the CLI. ctx may carry an interrupt.Controller.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}
