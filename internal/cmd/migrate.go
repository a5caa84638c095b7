package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pageza/foodgram/backend/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		return database.RunMigrations(db)
	},
}
