// Command logtail runs the log-tailing agent described in SPEC_FULL.md:
// it follows a single file across rotation and truncation, frames it into
// newline-delimited records, and delivers batches to routed sinks under a
// durable checkpoint.
//
// Command layout adapted from five82-spindle/cmd/spindle: one
// newXCommand(...) factory per subcommand, wired together in root.go.
package main

import (
	"github.com/spf13/cobra"
)

const defaultConfigPath = "./logtail.conf"

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "logtail",
		Short:         "Follow a log file and deliver its records to routed sinks",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newRunCommand())
	root.AddCommand(newHistoryCommand())
	root.AddCommand(newValidateConfigCommand())

	return root
}

func configPathArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return defaultConfigPath
}
