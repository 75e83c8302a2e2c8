package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/outing-approval/pkg/configuration"
	"github.com/iota-uz/outing-approval/pkg/logging"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "outingctl",
		Short:         "Operator tools for the outing approval bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newSignCmd())
	cmd.AddCommand(newLookupCmd())
	cmd.AddCommand(newDecideCmd())
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func loadConfig() (*configuration.Configuration, *logrus.Logger, error) {
	if _, err := configuration.LoadEnv([]string{".env", ".env.local"}); err != nil {
		return nil, nil, err
	}
	conf, err := configuration.Parse()
	if err != nil {
		return nil, nil, err
	}
	return conf, logging.ConsoleLogger(conf.LogrusLogLevel()), nil
}
