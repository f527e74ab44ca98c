package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"mediakiller/internal/config"
	"mediakiller/internal/encoder"
	"mediakiller/internal/mediainfo"
	"mediakiller/internal/mission"
	"mediakiller/internal/model"
	"mediakiller/internal/pipeline"
	"mediakiller/internal/preset"
	"mediakiller/internal/progress"
	"mediakiller/internal/ui"
	"mediakiller/internal/util"
	"mediakiller/internal/util/deps"
	"mediakiller/internal/util/format"
)

type runMode struct {
	ForceTUI bool
}

func (a *app) newRunCmd() *cobra.Command {
	var mode runMode
	cmd := &cobra.Command{
		Use:           "run [presets...] [sources...]",
		Short:         "Run every mission derived from the presets and sources",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExecute(cmd, args, mode)
		},
	}
	bindRunFlags(cmd)
	cmd.Flags().BoolVar(&mode.ForceTUI, "tui", false, "Use the TUI even when stdout is not a terminal")
	return cmd
}

var presetExts = map[string]bool{".toml": true, ".yaml": true, ".yml": true, ".json": true}

// splitInputs sorts positional arguments into preset files and sources.
// An argument without extension names a preset when "<arg>.toml" exists.
func splitInputs(args, presetFlags []string) (presets, sources []string) {
	presets = append(presets, presetFlags...)
	for _, arg := range args {
		ext := strings.ToLower(filepath.Ext(arg))
		switch {
		case presetExts[ext]:
			presets = append(presets, arg)
		case ext == "" && util.FileExists(arg+".toml"):
			presets = append(presets, arg+".toml")
		default:
			sources = append(sources, arg)
		}
	}
	return presets, sources
}

// buildMissions loads presets and expands sources into missions.
func (a *app) buildMissions(cmd *cobra.Command, args []string) ([]mission.Mission, model.RunOptions, error) {
	flags, _ := cmd.Flags().GetStringSlice("preset")
	presetPaths, sources := splitInputs(args, flags)
	if len(presetPaths) == 0 {
		return nil, model.RunOptions{}, &ExitError{Code: ExitCLIError, Err: errors.New("no preset given (pass a .toml/.yaml/.json file or --preset)")}
	}
	if len(sources) == 0 {
		return nil, model.RunOptions{}, &ExitError{Code: ExitCLIError, Err: errors.New("no source files or folders given")}
	}
	presets, err := preset.LoadAll(presetPaths)
	if err != nil {
		return nil, model.RunOptions{}, &ExitError{Code: ExitCLIError, Err: err}
	}

	opts := config.RunOptions()
	missions, err := pipeline.Plan(presets, sources, opts)
	if err != nil {
		return nil, opts, &ExitError{Code: ExitCLIError, Err: err}
	}
	a.logger.Debug("missions planned", "presets", len(presets), "sources", len(sources), "missions", len(missions))
	if len(missions) == 0 {
		return nil, opts, &ExitError{Code: ExitCLIError, Err: errors.New("no source file matched the presets")}
	}
	return missions, opts, nil
}

// newProber resolves the prober and its encoder-banner fallback. Either may
// be missing; durations then fall back to the scheduler default.
func (a *app) newProber(opts model.RunOptions) *mediainfo.FFprobe {
	p := &mediainfo.FFprobe{Logger: a.logger.Named("probe")}
	if path, err := deps.FindFFprobe(opts.ProberPath); err == nil {
		p.Path = path
	} else {
		a.logger.Warn("prober unavailable", "error", err)
	}
	if path, err := deps.FindFFmpeg(opts.EncoderPath); err == nil {
		p.Fallback = path
	}
	return p
}

func (a *app) openCache(prober mediainfo.Prober) *mediainfo.Cache {
	store := mediainfo.NewFileStore(nil, viper.GetString(config.KeyCacheFile))
	store.Logger = a.logger.Named("mediainfo")
	cache := mediainfo.New(prober, store, mediainfo.WithLogger(a.logger.Named("mediainfo")))
	if err := cache.Load(); err != nil {
		a.logger.Warn("media cache unreadable, starting empty", "path", store.Path(), "error", err)
	}
	return cache
}

func (a *app) runExecute(cmd *cobra.Command, args []string, mode runMode) error {
	missions, opts, err := a.buildMissions(cmd, args)
	if err != nil {
		return err
	}
	if opts.OutputDir != "" {
		if err := util.EnsureDir(opts.OutputDir); err != nil {
			return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("failed to create output dir: %w", err)}
		}
	}

	cache := a.openCache(a.newProber(opts))
	defer func() {
		if err := cache.Save(); err != nil {
			a.logger.Warn("media cache not saved", "error", err)
		}
	}()

	events := make(chan progress.Event, 64)
	mgr := pipeline.New(
		pipeline.WithDurations(cache),
		pipeline.WithRunner(encoder.NewSupervisor(encoder.WithLogger(a.logger.Named("encoder")))),
		pipeline.WithEvents(events),
		pipeline.WithLogger(a.logger.Named("scheduler")),
		pipeline.WithForceStop(a.ctl.Force()),
		pipeline.WithProbeJobs(viper.GetInt(config.KeyProbeJobs)),
		pipeline.WithMissionTimeout(viper.GetDuration(config.KeyMissionTimeout)),
	)

	reports := make(chan pipeline.Report, 1)
	go func() {
		rep := mgr.Run(a.ctl.Context(), missions)
		close(events)
		reports <- rep
	}()

	out := cmd.OutOrStdout()
	useTUI := mode.ForceTUI || (!opts.NoUI && isTerminal())
	if useTUI {
		// The TUI reads keys in raw mode, so ctrl+c arrives as a key press.
		if err := ui.Run(context.Background(), events, len(missions), a.ctl.Cancel); err != nil {
			a.logger.Error("tui failed, continuing without it", "error", err)
			ui.Plain(out, events)
		}
	} else {
		ui.Plain(out, events)
	}
	for range events {
	}
	rep := <-reports

	printReport(out, rep, a.logger)
	return exitFor(rep)
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func printReport(w io.Writer, rep pipeline.Report, log hclog.Logger) {
	for _, o := range rep.Outcomes {
		if o.Status != pipeline.StatusFailed {
			continue
		}
		fmt.Fprintf(w, "failed: %s: %v\n", o.Source, o.Err)
		for _, line := range o.Result.Tail {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
	if len(rep.Cleaned) > 0 {
		fmt.Fprintf(w, "removed %d incomplete target(s)\n", len(rep.Cleaned))
	}
	if rep.CleanupErr != nil {
		log.Warn("some targets could not be removed", "error", rep.CleanupErr)
	}
	fmt.Fprintf(w, "%d target(s) written, %s total\n", len(rep.Targets), format.HumanizeBytes(rep.TotalBytes))
	fmt.Fprintln(w, rep.Summary())
	if rep.State == pipeline.StateCancelled {
		fmt.Fprintln(w, "Cancelled. Run the same command again to continue; finished targets are skipped.")
	}
}

func exitFor(rep pipeline.Report) error {
	switch {
	case rep.Err != nil:
		return &ExitError{Code: ExitCLIError, Err: rep.Err}
	case rep.State == pipeline.StateCancelled:
		return &ExitError{Code: ExitCancelled}
	case rep.Failed == 0:
		return nil
	}
	code := ExitMissingDep
	for _, o := range rep.Outcomes {
		if o.Status == pipeline.StatusFailed && !errors.Is(o.Err, pipeline.ErrEncoderMissing) {
			code = ExitTranscodeError
			break
		}
	}
	return &ExitError{Code: code, Err: fmt.Errorf("%d mission(s) failed", rep.Failed)}
}
