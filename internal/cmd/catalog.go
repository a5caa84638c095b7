package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/service"
)

var (
	ingredientsFile string
	tagName         string
	tagSlug         string
)

var importIngredientsCmd = &cobra.Command{
	Use:   "import-ingredients",
	Short: "Load the ingredient catalog from a CSV file",
	Long: `Reads "name,measurement_unit" rows and inserts every ingredient that is
not in the catalog yet. Existing rows are left untouched, so the command can be
re-run safely.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(ingredientsFile)
		if err != nil {
			return fmt.Errorf("failed to open ingredients file: %w", err)
		}
		defer f.Close()

		db, err := database.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		n, err := service.NewIngredientService(db.DB).Import(cmd.Context(), f)
		if err != nil {
			return err
		}
		log.Info("ingredients imported", "file", ingredientsFile, "rows", n)
		return nil
	},
}

var addTagCmd = &cobra.Command{
	Use:   "add-tag",
	Short: "Create a recipe tag",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		tag, err := service.NewTagService(db.DB).Create(cmd.Context(), tagName, tagSlug)
		if err != nil {
			return err
		}
		log.Info("tag created", "id", tag.ID, "name", tag.Name, "slug", tag.Slug)
		return nil
	},
}

func init() {
	importIngredientsCmd.Flags().StringVarP(&ingredientsFile, "file", "f", "data/ingredients.csv", "CSV file with name,measurement_unit rows")

	addTagCmd.Flags().StringVar(&tagName, "name", "", "display name")
	addTagCmd.Flags().StringVar(&tagSlug, "slug", "", "url slug")
	_ = addTagCmd.MarkFlagRequired("name")
	_ = addTagCmd.MarkFlagRequired("slug")
}
