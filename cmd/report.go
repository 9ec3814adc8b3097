package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/signalnine/promptbench/internal/config"
	"github.com/signalnine/promptbench/internal/report"
)

var flagFormat string

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [run-dir]",
		Short: "Generate summary from stored results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runDir, err := resolveRunDir(args)
			if err != nil {
				return err
			}
			return report.Generate(runDir, flagFormat, os.Stdout)
		},
	}
	cmd.Flags().StringVar(&flagFormat, "format", "table", "output format (table, markdown, json)")
	return cmd
}

// resolveRunDir picks the explicit run dir or the latest one under the
// configured results dir.
func resolveRunDir(args []string) (string, error) {
	var runDir string
	if len(args) > 0 {
		runDir = args[0]
	} else {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return "", err
		}
		runDir = filepath.Join(cfg.Results.Dir, "latest")
	}
	resolved, err := filepath.EvalSymlinks(runDir)
	if err != nil {
		return "", fmt.Errorf("resolving run dir: %w", err)
	}
	return resolved, nil
}
