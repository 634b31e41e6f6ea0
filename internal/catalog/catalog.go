// Package catalog holds the reference tables that drive classification and
// scoring: venue aliases, the health threshold ladder and exercise constants.
//
// A Catalog is loaded once at process start and never mutated afterwards.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"courtstats/internal/core"
	"courtstats/internal/validation"
)

//go:embed default.yaml
var defaultYAML []byte

type (
	Catalog struct {
		FallbackVenue string   `yaml:"fallback_venue" validate:"required"`
		Venues        []Venue  `yaml:"venues" validate:"required,dive"`
		Health        Health   `yaml:"health"`
		Exercise      Exercise `yaml:"exercise"`
	}

	// Venue maps one canonical venue name to the aliases found in titles.
	Venue struct {
		Name    string   `yaml:"name" validate:"required"`
		Aliases []string `yaml:"aliases" validate:"required,min=1,dive,required"`
	}

	Health struct {
		WeeksPerYear float64 `yaml:"weeks_per_year" validate:"gt=0"`
		Levels       []Level `yaml:"levels" validate:"required,min=1,dive"`
	}

	// Level is one rung of the health ladder.
	Level struct {
		Level      core.HealthLevel `yaml:"level" validate:"required"`
		MinPerWeek float64          `yaml:"min_per_week" validate:"gte=0"`
		Gauge      int              `yaml:"gauge" validate:"gte=0,max=100"`
		Comment    string           `yaml:"comment"`
	}

	Exercise struct {
		HoursPerActivity float64 `yaml:"hours_per_activity" validate:"gt=0"`
		CaloriesPerHour  float64 `yaml:"calories_per_hour" validate:"gt=0"`
		CaloriesPerKgFat float64 `yaml:"calories_per_kg_fat" validate:"gt=0"`
	}
)

var ErrUnorderedLevels = errors.New("health levels must be listed by strictly decreasing min_per_week and end at 0")

// Default returns the built-in catalog.
func Default() Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog file. An empty path yields the built-in catalog.
func Load(path string) (Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return Catalog{}, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog. Aliases are lower-cased and
// stripped of whitespace so they compare directly against normalised titles.
func Parse(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("decode yaml: %w", err)
	}
	for i := range c.Venues {
		for j, a := range c.Venues[i].Aliases {
			c.Venues[i].Aliases[j] = strings.ToLower(stripSpaces(a))
		}
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

func (c Catalog) Validate() error {
	if err := validation.Get().Struct(c); err != nil {
		return err
	}
	levels := c.Health.Levels
	for i := 1; i < len(levels); i++ {
		if levels[i].MinPerWeek >= levels[i-1].MinPerWeek {
			return ErrUnorderedLevels
		}
	}
	if levels[len(levels)-1].MinPerWeek != 0 {
		return ErrUnorderedLevels
	}
	return nil
}

// Marshal renders the catalog back to YAML.
func (c Catalog) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// LevelFor walks the ladder top-down and returns the first rung whose
// threshold perWeek reaches.
func (h Health) LevelFor(perWeek float64) Level {
	for _, l := range h.Levels {
		if perWeek >= l.MinPerWeek {
			return l
		}
	}
	return h.Levels[len(h.Levels)-1]
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}
