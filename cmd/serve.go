package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/netops-tools/welcome-wizard/internal/server"
	"github.com/netops-tools/welcome-wizard/internal/utils"
	"github.com/netops-tools/welcome-wizard/pkg/auth"
	"github.com/netops-tools/welcome-wizard/pkg/jobs"
	"github.com/netops-tools/welcome-wizard/pkg/library"
	"github.com/netops-tools/welcome-wizard/pkg/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the wizard web interface and the job runner",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, path, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		utils.Log.WithField("path", path).Debug("Database opened")

		var users []auth.User
		if err := viper.UnmarshalKey("users", &users); err != nil {
			return fmt.Errorf("invalid users config: %w", err)
		}
		policy, err := auth.NewPolicy(users)
		if err != nil {
			return err
		}
		if !policy.Enabled() {
			utils.Log.Warn("No users configured, every request runs as an anonymous superuser")
		}

		m := metrics.New()
		client, err := newLibraryClient()
		if err != nil {
			return err
		}
		lock, err := utils.NewSyncLock(path)
		if err != nil {
			return err
		}
		syncer := library.NewSyncer(client, db, m).WithLock(lock)

		runner := jobs.NewRunner(db, jobs.Options{
			Workers:      viper.GetInt("jobs.workers"),
			PollInterval: viper.GetDuration("jobs.poll_interval"),
			Metrics:      m,
		})
		library.NewJobs(client, db, syncer).Register(runner)
		trigger := library.NewTrigger(db, runner, library.DefaultRepository)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runner.Start(ctx)
		defer runner.Stop()

		listen, _ := cmd.Flags().GetString("listen")
		if listen == "" {
			listen = viper.GetString("server.listen")
		}
		srv := server.New(db, policy, runner, trigger, m, server.Config{
			InventoryURL:      viper.GetString("inventory.url"),
			EnableLibrarySync: viper.GetBool("library.sync_enabled"),
		})
		return srv.Start(ctx, listen)
	},
}

func newLibraryClient() (*library.Client, error) {
	return library.NewClient(library.ClientConfig{
		APIURL:            viper.GetString("library.api_url"),
		RawURL:            viper.GetString("library.raw_url"),
		Token:             viper.GetString("library.token"),
		Proxy:             viper.GetString("library.proxy"),
		RequestsPerSecond: viper.GetFloat64("library.requests_per_second"),
		RetryMax:          viper.GetInt("library.retry_max"),
	})
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "b", "", "HTTP listen address (default from server.listen)")
}
