package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"mediakiller/internal/preset"
)

func newPresetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage preset files",
	}
	var force bool
	newCmd := &cobra.Command{
		Use:           "new <file>",
		Short:         "Write a sample preset to file (.yaml is added when no extension is given)",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if filepath.Ext(path) == "" {
				path += ".yaml"
			}
			id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			if err := preset.WriteSample(path, id, force); err != nil {
				if errors.Is(err, preset.ErrExists) {
					err = fmt.Errorf("%w (use --force to replace it)", err)
				}
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sample preset written to %s\n", path)
			return nil
		},
	}
	newCmd.Flags().BoolVarP(&force, "force", "f", false, "Replace an existing file")
	cmd.AddCommand(newCmd)
	return cmd
}
