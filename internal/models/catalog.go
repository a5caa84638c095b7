package models

import (
	"golang.org/x/text/cases"
	"gorm.io/gorm"
)

type Tag struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `gorm:"size:32;uniqueIndex;not null" json:"name"`
	Slug string `gorm:"size:32;uniqueIndex;not null" json:"slug"`
}

type Ingredient struct {
	ID              uint   `gorm:"primarykey" json:"id"`
	Name            string `gorm:"size:128;not null;uniqueIndex:idx_ingredient_name_unit" json:"name"`
	MeasurementUnit string `gorm:"size:64;not null;uniqueIndex:idx_ingredient_name_unit" json:"measurement_unit"`
	// SearchName is the Unicode case-folded name used for prefix search
	SearchName string `gorm:"size:128;not null;index" json:"-"`
}

// FoldName case-folds s the same way SearchName is stored.
func FoldName(s string) string {
	return cases.Fold().String(s)
}

func (i *Ingredient) BeforeSave(tx *gorm.DB) error {
	i.SearchName = FoldName(i.Name)
	return nil
}
