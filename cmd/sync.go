package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/netops-tools/welcome-wizard/internal/utils"
	"github.com/netops-tools/welcome-wizard/pkg/library"
	"github.com/netops-tools/welcome-wizard/pkg/metrics"
)

// syncCmd pulls the device-type library into the import tables without a running server.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull the device-type library and refresh the import candidates",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("unknown command: '%s'. See 'welcome-wizard sync --help'", args[0])
		}

		db, path, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		lock, err := utils.NewSyncLock(path)
		if err != nil {
			return err
		}

		ctx := cmd.Context()

		client, err := newLibraryClient()
		if err != nil {
			return err
		}
		if err := db.CreateGitRepository(ctx, library.DefaultRepository); err != nil {
			return err
		}

		stats, err := library.NewSyncer(client, db, metrics.New()).WithLock(lock).Sync(ctx, library.DefaultRepository.Slug)
		if err != nil {
			return err
		}
		fmt.Printf("Manufacturers: +%d -%d\n", stats.ManufacturersAdded, stats.ManufacturersRemoved)
		fmt.Printf("Device types:  +%d -%d\n", stats.DeviceTypesAdded, stats.DeviceTypesRemoved)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
