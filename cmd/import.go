package cmd

import (
	"bitwise74/trackbook/db"
	"bitwise74/trackbook/repository"
	"bitwise74/trackbook/service"
	"bitwise74/trackbook/storage"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var importCmd = &cobra.Command{
	Use:   "import <file.gpx>...",
	Short: "Imports GPX files from disk",
	Args:  cobra.MinimumNArgs(1),
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

		tracks := service.NewTracks(repository.NewTrackRepo(d, store))

		failed := 0
		for _, path := range args {
			raw, err := os.ReadFile(path)
			if err != nil {
				zap.L().Error("Failed to read file", zap.String("file", path), zap.Error(err))
				failed++
				continue
			}

			res, err := tracks.Import(ctx, filepath.Base(path), raw)
			if err != nil {
				zap.L().Error("Failed to import file", zap.String("file", path), zap.Error(err))
				failed++
				continue
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", res.ID, res.Name, path)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d files could not be imported", failed, len(args))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
