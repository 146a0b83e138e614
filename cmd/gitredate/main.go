package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(2)
	}
}

type rootCmd struct {
	*cobra.Command
}

func newRootCmd() *rootCmd {
	c := &rootCmd{
		Command: &cobra.Command{
			Use:   "gitredate",
			Short: "rewrite the timestamps of a git commit history",
			Args:  cobra.NoArgs,
		},
	}

	c.AddCommand(
		newApplyCmd().Command,
		newShowCmd().Command,
		newServeCmd().Command,
	)

	return c
}

// fatal reports an error that left the repository untouched.
func fatal(err error) {
	color.Red("%v", err)
	os.Exit(2)
}
