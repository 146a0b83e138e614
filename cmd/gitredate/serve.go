package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/antonhoess/gitredate/cmd"
	"github.com/antonhoess/gitredate/svc"
)

type serveCmd struct {
	*cobra.Command

	configPath string
}

func newServeCmd() *serveCmd {
	c := &serveCmd{
		Command: &cobra.Command{
			Use:   "serve",
			Short: "run the redate service",
			Args:  cobra.NoArgs,
		},
	}

	c.Flags().StringVarP(&c.configPath, "config", "c", c.configPath, "path to the configuration")
	c.MarkFlagRequired("config")

	c.Run = func(*cobra.Command, []string) {
		c.runSvc()
	}

	return c
}

func (c *serveCmd) runSvc() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	config := cmd.GetOrPanic(svc.ParseConfigYAML(cmd.GetOrPanic(os.ReadFile(c.configPath))))

	s := cmd.GetOrPanic(svc.New(config))

	cmd.OrPanic(s.Start(ctx))
}
