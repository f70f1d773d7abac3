// Package cmd holds the command line interface of trackbook
package cmd

import (
	"bitwise74/trackbook/config"
	"bitwise74/trackbook/logger"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "trackbook",
	Short:         "Trackbook keeps a library of GPX tracks",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Setup(cmd.Flags()); err != nil {
			return err
		}

		return logger.Setup()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	config.Flags(rootCmd.PersistentFlags())
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
