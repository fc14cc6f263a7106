package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Interact with the welcome-wizard database",
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Print the schema and open sqlite3 on the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		sqlitePath, err := exec.LookPath("sqlite3")
		if err != nil {
			return fmt.Errorf("sqlite3 not found in PATH, install it to use the db shell")
		}

		db, dbPath, err := openDB()
		if err != nil {
			return err
		}
		schema, err := db.Schema(cmd.Context())
		db.Close()
		if err != nil {
			return fmt.Errorf("read schema: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "--> %s\n", dbPath)
		for _, stmt := range schema {
			fmt.Fprintln(out, stmt)
		}
		fmt.Fprintln(out, "\n--> sqlite3 shell, Ctrl+D to exit")

		c := exec.CommandContext(cmd.Context(), sqlitePath, dbPath)
		c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
		return c.Run()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints row counts of the inventory, import and job tables.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "TABLE\tROWS\t")

		var total int
		for _, s := range stats {
			fmt.Fprintf(w, "%s\t%d\t\n", s.Table, s.Count)
			total += s.Count
		}

		fmt.Fprintln(w, " \t \t")
		fmt.Fprintf(w, "TOTAL\t%d\t\n", total)

		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(shellCmd)
	dbCmd.AddCommand(statsCmd)
}
