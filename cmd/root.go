package cmd

import (
	"github.com/spf13/cobra"
)

var Version = "dev"

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "iba-monitor",
		Short:         "Industrial signal monitor with threshold alarms",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newCheckExprCommand(), newCheckSignalsCommand())
	return root
}

// Execute runs the CLI and exits with status 2 on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		processError(err)
	}
}
