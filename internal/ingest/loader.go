// ABOUTME: Loads restaurant records from YAML or JSON files for indexing
// ABOUTME: Accepts a bare list or a document with a top-level restaurants key
package ingest

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/ummati/ummati/internal/models"
	"gopkg.in/yaml.v3"
)

// restaurantFile is the wrapped document layout
type restaurantFile struct {
	Restaurants []models.Restaurant `yaml:"restaurants"`
}

// LoadFile reads restaurants from path. JSON is valid YAML, so both decode
// through the same path.
func LoadFile(path string) ([]models.Restaurant, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	restaurants, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return restaurants, nil
}

// Load decodes restaurants from r
func Load(r io.Reader) ([]models.Restaurant, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("no restaurants found")
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("invalid restaurant file: %w", err)
	}

	var restaurants []models.Restaurant
	root := &node
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}

	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&restaurants); err != nil {
			return nil, fmt.Errorf("invalid restaurant list: %w", err)
		}
	case yaml.MappingNode:
		var wrapped restaurantFile
		if err := root.Decode(&wrapped); err != nil {
			return nil, fmt.Errorf("invalid restaurant document: %w", err)
		}
		restaurants = wrapped.Restaurants
	default:
		return nil, fmt.Errorf("expected a list of restaurants or a restaurants key")
	}

	if len(restaurants) == 0 {
		return nil, fmt.Errorf("no restaurants found")
	}
	return restaurants, nil
}

// StableID derives a deterministic ID from name and address so reloading a
// file replaces records instead of duplicating them
func StableID(r models.Restaurant) string {
	key := strings.ToLower(strings.TrimSpace(r.Name)) + "|" + strings.ToLower(strings.TrimSpace(r.Address))
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("ummati:restaurant:"+key)).String()
}
