/*
 * file: catalog.go
 * package: config
 * description:
 *     Loads human-facing plugin display metadata (name/category overrides)
 *     from a YAML file, grounded on obrien-tchaleu-ludo-king-go's
 *     yaml.v3-driven server Config in cmd/server/main.go. The registry
 *     itself only ever learns MinPlayers/MaxPlayers from a Plugin's own
 *     methods; this file only overrides cosmetic fields an operator wants
 *     to rename without a rebuild.
 */
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// CatalogEntry overrides the display name/category the registry would
// otherwise take from a Plugin's own Name()/Category().
type CatalogEntry struct {
	GameID   string `yaml:"game_id"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
}

// Catalog is the top-level shape of the catalog YAML file.
type Catalog struct {
	Games []CatalogEntry `yaml:"games"`
}

// LoadCatalog reads and parses a catalog file. An empty path is not an
// error: it means no overrides are configured.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return Catalog{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, err
	}
	var cat Catalog
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return Catalog{}, err
	}
	return cat, nil
}

// Overrides indexes the catalog by game id for O(1) lookup at registry
// construction time.
func (c Catalog) Overrides() map[string]CatalogEntry {
	out := make(map[string]CatalogEntry, len(c.Games))
	for _, entry := range c.Games {
		out[entry.GameID] = entry
	}
	return out
}
