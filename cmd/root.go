package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/signalnine/promptbench/internal/config"
)

var (
	cfgFile     string
	flagNoColor bool
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "promptbench",
		Short: "Benchmark prompting strategies on math word problems",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagNoColor {
				color.NoColor = true
			}
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	root.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")
	root.AddCommand(newRunCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newPingCmd())
	return root
}
