package config

import (
	"fmt"
	"os"

	"github.com/BartekS5/totesys-etl/pkg/models"
)

// LoadMapping reads the dimension mapping file at filePath. An empty
// path selects the built-in dimensions.
func LoadMapping(filePath string) (*models.DimensionMapping, error) {
	if filePath == "" {
		return &models.DimensionMapping{Version: "builtin", Dimensions: models.DefaultDimensions()}, nil
	}

	bytes, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file '%s': %w", filePath, err)
	}

	mapping, err := models.LoadMapping(bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mapping file '%s': %w", filePath, err)
	}
	return mapping, nil
}
