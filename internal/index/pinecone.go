// ABOUTME: Pinecone adapter for the hosted restaurant index
// ABOUTME: Queries one namespace with metadata included and decodes matches
package index

import (
	"context"
	"fmt"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"github.com/ummati/ummati/internal/models"
)

// PineconeConfig identifies a hosted index namespace
type PineconeConfig struct {
	APIKey    string
	IndexName string
	Namespace string
	// Host skips the DescribeIndex lookup when set
	Host string
}

// PineconeIndex is a read-only connection to one Pinecone namespace
type PineconeIndex struct {
	conn      *pinecone.IndexConnection
	namespace string
}

// NewPineconeIndex resolves the index host and opens a namespaced connection
func NewPineconeIndex(ctx context.Context, cfg PineconeConfig) (*PineconeIndex, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Pinecone API key is required")
	}

	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("creating pinecone client: %w", err)
	}

	host := cfg.Host
	if host == "" {
		desc, err := pc.DescribeIndex(ctx, cfg.IndexName)
		if err != nil {
			return nil, fmt.Errorf("describing index %s: %w", cfg.IndexName, err)
		}
		host = desc.Host
	}

	conn, err := pc.Index(pinecone.NewIndexConnParams{
		Host:      host,
		Namespace: cfg.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to index %s: %w", cfg.IndexName, err)
	}

	return &PineconeIndex{conn: conn, namespace: cfg.Namespace}, nil
}

// Query asks Pinecone for the topK nearest vectors with metadata
func (p *PineconeIndex) Query(ctx context.Context, vector []float32, topK int) ([]models.Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	res, err := p.conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("querying namespace %s: %w", p.namespace, err)
	}
	return matchesFromScored(res.Matches), nil
}

// Close releases the index connection
func (p *PineconeIndex) Close() error {
	return p.conn.Close()
}

// matchesFromScored keeps Pinecone's order and decodes each metadata struct
func matchesFromScored(scored []*pinecone.ScoredVector) []models.Match {
	matches := make([]models.Match, 0, len(scored))
	for _, sv := range scored {
		if sv == nil || sv.Vector == nil {
			continue
		}

		md := map[string]any{}
		if sv.Vector.Metadata != nil {
			md = sv.Vector.Metadata.AsMap()
		}

		r := models.RestaurantFromMetadata(md)
		r.ID = sv.Vector.Id
		matches = append(matches, models.Match{
			ID:         sv.Vector.Id,
			Score:      float64(sv.Score),
			Restaurant: r,
		})
	}
	return matches
}
