package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect background jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		db, _, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		results, err := db.ListJobResults(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No jobs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "CREATED\tJOB\tUSER\tSTATUS\tERROR\t")
		for _, j := range results {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
				j.CreatedAt.Local().Format("2006-01-02 15:04:05"), j.JobName, j.User, j.Status, j.Error)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsListCmd)
	jobsListCmd.Flags().IntP("limit", "n", 20, "Number of jobs to show")
}
