// Package redis persists the last published snapshot so a restarted
// instance can serve known data before its first poll completes. All
// writes are best effort; the in-memory snapshot is the source of truth.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/proxydeck/internal/domain"
)

// Mirror stores exactly one value: the current snapshot, replaced
// wholesale on every change.
type Mirror struct {
	client *redis.Client
}

func NewMirror(client *redis.Client) *Mirror {
	return &Mirror{client: client}
}

// SaveSnapshot replaces the persisted snapshot. No TTL: stale data plus a
// stale updated_at beats no data after a restart.
func (m *Mirror) SaveSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := m.client.Set(ctx, SnapshotKey(), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the persisted snapshot, or (nil, nil) when none
// exists yet.
func (m *Mirror) LoadSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	data, err := m.client.Get(ctx, SnapshotKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
