package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mediakiller/internal/config"
	"mediakiller/internal/mediainfo"
	"mediakiller/internal/util"
	"mediakiller/internal/util/format"
)

func (a *app) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the media info cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:           "clear",
		Short:         "Delete every cached duration",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := mediainfo.NewFileStore(nil, viper.GetString(config.KeyCacheFile))
			if err := mediainfo.New(nil, store).Clear(); err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", store.Path())
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "info",
		Short:         "Show where the cache lives and how many records it holds",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := mediainfo.NewFileStore(nil, viper.GetString(config.KeyCacheFile))
			cache := mediainfo.New(nil, store, mediainfo.WithLogger(a.logger))
			if err := cache.Load(); err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "File:    %s (%s)\n", store.Path(), format.HumanizeBytes(util.FileSize(store.Path())))
			fmt.Fprintf(w, "Records: %d (limit %d)\n", cache.Len(), mediainfo.MaxRecords)
			if recs := cache.Records(); len(recs) > 0 {
				fmt.Fprintf(w, "Newest:  %s\n", recs[0].LastUsed.Local().Format("2006-01-02 15:04"))
				fmt.Fprintf(w, "Oldest:  %s\n", recs[len(recs)-1].LastUsed.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	})
	return cmd
}
