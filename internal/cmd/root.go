package cmd

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/pageza/foodgram/backend/config"
)

var (
	logLevel string
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "foodgram",
	Short: "foodgram - recipe sharing backend",
	Long: `foodgram serves the recipe sharing REST API and carries the
maintenance commands that go with it:
- serve the HTTP API
- migrate the database schema
- import the ingredient catalog and create tags`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig()
		if err != nil {
			return err
		}
		cfg = loaded

		level := cfg.LogLevel
		if cmd.Flags().Changed("log-level") || level == "" {
			level = logLevel
		}
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return err
		}
		log.SetLevel(parsed)
		return nil
	},
}

// Execute runs the root command. It is called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func init() {
	log.SetReportTimestamp(true)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd, migrateCmd, importIngredientsCmd, addTagCmd)
}
