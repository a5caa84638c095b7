package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

const importBatchSize = 500

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type IngredientService struct {
	db *gorm.DB
}

func NewIngredientService(db *gorm.DB) *IngredientService {
	return &IngredientService{db: db}
}

// Search returns ingredients whose name starts with prefix, ignoring case.
// An empty prefix returns the whole catalog.
func (s *IngredientService) Search(ctx context.Context, prefix string) ([]types.IngredientResponse, error) {
	q := s.db.WithContext(ctx).Model(&models.Ingredient{})
	if prefix = strings.TrimSpace(prefix); prefix != "" {
		q = q.Where(`search_name LIKE ? ESCAPE '\'`, likeEscaper.Replace(models.FoldName(prefix))+"%")
	}

	var ingredients []models.Ingredient
	if err := q.Order("name, id").Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("failed to search ingredients: %w", err)
	}
	return lo.Map(ingredients, func(i models.Ingredient, _ int) types.IngredientResponse {
		return ingredientResponse(&i)
	}), nil
}

func (s *IngredientService) Get(ctx context.Context, id uint) (*types.IngredientResponse, error) {
	var ing models.Ingredient
	if err := s.db.WithContext(ctx).First(&ing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("ingredient %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get ingredient: %w", err)
	}
	resp := ingredientResponse(&ing)
	return &resp, nil
}

// Import loads "name,measurement_unit" rows. Rows already present are
// skipped. It returns the number of rows read.
func (s *IngredientService) Import(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true

	var (
		batch []models.Ingredient
		total int
		line  int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			CreateInBatches(&batch, importBatchSize).Error
		if err != nil {
			return fmt.Errorf("failed to import ingredients: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return total, fmt.Errorf("line %d: %w", line, err)
		}

		name, unit := strings.TrimSpace(record[0]), strings.TrimSpace(record[1])
		if name == "" || unit == "" {
			return total, fmt.Errorf("line %d: %w", line, validationError("ingredient", "name and measurement unit are required"))
		}

		batch = append(batch, models.Ingredient{Name: name, MeasurementUnit: unit})
		total++
		if len(batch) >= importBatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}

	log.Info("ingredients imported", "rows", total)
	return total, nil
}
