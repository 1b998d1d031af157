// ABOUTME: Vector index abstraction over the hosted and local restaurant indexes
// ABOUTME: Open selects a backend from configuration
package index

import (
	"context"
	"fmt"

	"github.com/ummati/ummati/internal/charm"
	"github.com/ummati/ummati/internal/config"
	"github.com/ummati/ummati/internal/models"
)

// Index answers nearest-neighbour queries over restaurant vectors
type Index interface {
	// Query returns up to topK matches ordered by descending similarity,
	// each carrying its decoded restaurant metadata
	Query(ctx context.Context, vector []float32, topK int) ([]models.Match, error)
	Close() error
}

// Open connects to the backend named by cfg.IndexBackend
func Open(ctx context.Context, cfg *config.Config) (Index, error) {
	switch cfg.IndexBackend {
	case config.BackendPinecone:
		idx, err := NewPineconeIndex(ctx, PineconeConfig{
			APIKey:    cfg.PineconeKey,
			IndexName: cfg.PineconeIndex,
			Namespace: cfg.PineconeNamespace,
		})
		if err != nil {
			return nil, err
		}
		return idx, nil
	case config.BackendLocal:
		idx, err := OpenLocal(cfg)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.IndexBackend)
	}
}

// OpenLocal opens the charm-backed local index, which also supports writes
func OpenLocal(cfg *config.Config) (*LocalIndex, error) {
	client, err := charm.NewClient(&charm.Config{
		Host:     cfg.CharmHost,
		DBName:   cfg.CharmDBName,
		AutoSync: cfg.AutoSync,
	})
	if err != nil {
		return nil, err
	}
	li := NewLocalIndex(client, cfg.PineconeNamespace)
	li.closer = client
	return li, nil
}
