// Package source holds the data-source implementations the cache can poll:
// the proxy-manager HTTP API, its SQLite database, or a static YAML file.
package source

import (
	"context"

	"github.com/MrSnakeDoc/proxydeck/internal/domain"
)

// NullReader serves an empty record set. Used when no source is configured
// so the rest of the service still runs.
type NullReader struct{}

func (NullReader) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	return []domain.RawRecord{}, nil
}
