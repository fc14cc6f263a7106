package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/netops-tools/welcome-wizard/pkg/storage"
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Manage the local inventory tables",
}

var inventoryAddCmd = &cobra.Command{
	Use:   "add <category> <name>",
	Short: "Add a named row to an inventory category",
	Long: `Add a named row to one of: locations, manufacturers, circuit-types,
providers, rirs, cluster-types. Device types come from the import wizard.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, err := parseCategory(args[0])
		if err != nil {
			return err
		}
		db, _, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := db.CreateInventoryItem(cmd.Context(), category, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Added %s %q (%s)\n", category, args[1], id)
		return nil
	},
}

// parseCategory accepts table names with either dashes or underscores.
func parseCategory(arg string) (storage.Category, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(arg)), "-", "_")
	for _, c := range storage.Categories {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", arg)
}

func init() {
	rootCmd.AddCommand(inventoryCmd)
	inventoryCmd.AddCommand(inventoryAddCmd)
}
