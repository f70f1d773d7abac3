package cmd

import (
	"bitwise74/trackbook/db"
	"bitwise74/trackbook/repository"
	"fmt"

	"github.com/spf13/cobra"
)

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "Prints every label in use",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := db.New()
		if err != nil {
			return fmt.Errorf("failed to initialize database, %w", err)
		}

		// Listing labels never touches stored files
		labels, err := repository.NewTrackRepo(d, nil).ListUniqueLabels(cmd.Context())
		if err != nil {
			return err
		}

		for _, l := range labels {
			fmt.Fprintln(cmd.OutOrStdout(), l)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(labelsCmd)
}
