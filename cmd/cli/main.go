// Admin CLI for Campus Confessions. Talks straight to the database, so it
// needs the same DATABASE_URL the server uses.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/campusconfessions/backend/internal/database"
)

var rootCmd = &cobra.Command{
	Use:   "confessions",
	Short: "Campus Confessions admin CLI",
	Long: `Campus Confessions admin CLI provides operational access to accounts
and content: promote admins, change subscription tiers, and inspect stats.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		godotenv.Load()
		if err := database.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		database.Close()
	},
}

func init() {
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(tierCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(announceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
