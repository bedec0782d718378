package car

import (
	_ "embed"
	"fmt"

	"github.com/hitoshi/rentacar/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed seed/cars.yaml
var seedCatalogYAML []byte

type seedCatalog struct {
	Cars []struct {
		Make  string `yaml:"make"`
		Model string `yaml:"model"`
		Color string `yaml:"color"`
	} `yaml:"cars"`
}

// ParseSeedCatalog はYAML形式の車両カタログを解析する。
func ParseSeedCatalog(data []byte) ([]model.CarInput, error) {
	var catalog seedCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse seed catalog: %w", err)
	}

	inputs := make([]model.CarInput, 0, len(catalog.Cars))
	for i, c := range catalog.Cars {
		in := model.CarInput{Make: c.Make, Model: c.Model, Color: c.Color}
		if in.Make == "" || in.Model == "" || in.Color == "" {
			return nil, fmt.Errorf("seed catalog entry %d is incomplete", i)
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// DefaultSeedCatalog は組み込みの初期カタログを返す。
func DefaultSeedCatalog() ([]model.CarInput, error) {
	return ParseSeedCatalog(seedCatalogYAML)
}
