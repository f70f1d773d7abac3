package cmd

import (
	"bitwise74/trackbook/db"
	"bitwise74/trackbook/repository"
	"bitwise74/trackbook/service"
	"bitwise74/trackbook/storage"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var reconcileDryRun bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Removes stored files no track refers to and reports tracks without a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		d, err := db.New()
		if err != nil {
			return fmt.Errorf("failed to initialize database, %w", err)
		}

		store, err := storage.New(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize file storage, %w", err)
		}

		r := service.NewReconciler(repository.NewTrackRepo(d, store), viper.GetDuration("cleanup.grace"))
		r.DryRun = reconcileDryRun

		report, err := r.Run(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "orphan files: %d, removed: %d, tracks without file: %d\n",
			len(report.OrphanFiles), len(report.Removed), len(report.MissingFiles))

		for _, k := range report.MissingFiles {
			fmt.Fprintf(out, "missing\t%s\n", k)
		}

		return nil
	},
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "Only report what would be removed")
	rootCmd.AddCommand(reconcileCmd)
}
