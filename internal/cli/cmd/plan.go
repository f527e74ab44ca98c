package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mediakiller/internal/mission"
	"mediakiller/internal/ui"
)

func (a *app) newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "plan [presets...] [sources...]",
		Short:         "Show each mission's command line and targets without running anything",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			missions, _, err := a.buildMissions(cmd, args)
			if err != nil {
				return err
			}
			printPlan(cmd.OutOrStdout(), missions)
			return nil
		},
	}
	bindRunFlags(cmd)
	return cmd
}

func printPlan(w io.Writer, missions []mission.Mission) {
	fmt.Fprintf(w, "Plan: %d mission(s)\n", len(missions))
	for i, m := range missions {
		fmt.Fprintf(w, "%s %s (preset %s)\n", ui.Counter(i, len(missions)), m.Source, m.Preset.DisplayName())
		fmt.Fprintf(w, "  $ %s\n", m.CommandLine())
		for _, t := range m.Targets() {
			fmt.Fprintf(w, "  -> %s\n", t)
		}
		if err := m.Validate(); err != nil {
			fmt.Fprintf(w, "  !! %v\n", err)
		}
	}
}

func (a *app) newScriptCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:           "script [presets...] [sources...]",
		Short:         "Write a shell script that runs every mission",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			missions, _, err := a.buildMissions(cmd, args)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return mission.WriteScript(cmd.OutOrStdout(), missions)
			}
			f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			if err := mission.WriteScript(f, missions); err != nil {
				_ = f.Close()
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			if err := f.Close(); err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			a.logger.Info("script written", "path", output, "missions", len(missions))
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d mission(s) to %s\n", len(missions), output)
			return nil
		},
	}
	bindRunFlags(cmd)
	cmd.Flags().StringVar(&output, "to", "", "Script file to write (default stdout)")
	return cmd
}
