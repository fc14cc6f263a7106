package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/netops-tools/welcome-wizard/pkg/dashboard"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Refresh and print the onboarding checklist",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := cmd.Context()
		if err := dashboard.New(db).Reconcile(ctx); err != nil {
			return err
		}
		entries, err := db.ListStatusEntries(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "NAME\tCOMPLETED\tIGNORED\t")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t\n", e.Name, yesNo(e.Completed), yesNo(e.Ignored))
		}
		return w.Flush()
	},
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
