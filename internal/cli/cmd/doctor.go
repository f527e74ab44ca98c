package cmd

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mediakiller/internal/config"
	"mediakiller/internal/util/deps"
	"mediakiller/internal/util/format"
)

func (a *app) newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "doctor",
		Short:         "Diagnose external dependencies (ffmpeg, ffprobe) and host resources",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			ff, ferr := deps.FindFFmpeg(viper.GetString(config.KeyFFmpeg))
			if ferr != nil {
				return &ExitError{Code: ExitMissingDep, Err: ferr}
			}
			fmt.Fprintf(w, "FFmpeg:  %s\n", ff)
			if fp, err := deps.FindFFprobe(viper.GetString(config.KeyFFprobe)); err == nil {
				fmt.Fprintf(w, "FFprobe: %s\n", fp)
			} else {
				fmt.Fprintf(w, "FFprobe: missing, durations will be read from ffmpeg output (%v)\n", err)
			}

			ctx := cmd.Context()
			cores, _ := cpu.CountsWithContext(ctx, true)
			model := runtime.GOARCH
			if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
				model = infos[0].ModelName
			}
			fmt.Fprintf(w, "CPU:     %s, %d logical cores\n", model, cores)
			if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
				fmt.Fprintf(w, "Memory:  %s available of %s\n",
					format.HumanizeBytes(int64(vm.Available)), format.HumanizeBytes(int64(vm.Total)))
			} else {
				a.logger.Debug("memory stats unavailable", "error", err)
			}
			out := viper.GetString(config.KeyOutput)
			if out == "" {
				out = "."
			}
			if du, err := disk.UsageWithContext(ctx, out); err == nil {
				fmt.Fprintf(w, "Disk:    %s free at %s\n", format.HumanizeBytes(int64(du.Free)), du.Path)
			}
			fmt.Fprintf(w, "Cache:   %s\n", viper.GetString(config.KeyCacheFile))
			return nil
		},
	}
}
