// Package marker records that the index write path has completed for a run
// label. Exists and Set are separate calls; two runs racing between them can
// both see the marker absent.
package marker

import (
	"context"
	"fmt"

	"github.com/IshaanNene/PriceHound/internal/config"
)

// Marker is a completion flag keyed by a run label.
type Marker interface {
	// Exists reports whether the marker is present.
	Exists(ctx context.Context) (bool, error)

	// Set creates the marker. Setting an existing marker is not an error.
	Set(ctx context.Context) error

	// Clear removes the marker. Clearing a missing marker is not an error.
	Clear(ctx context.Context) error

	// Location describes where the marker lives, for logs and the CLI.
	Location() string

	// Close releases backend resources.
	Close() error
}

// New creates the marker backend selected by cfg.Type.
func New(cfg *config.MarkerConfig) (Marker, error) {
	switch cfg.Type {
	case "file":
		return NewFileMarker(cfg.Dir, cfg.Label), nil
	case "redis":
		return NewRedisMarker(cfg.RedisAddr, cfg.RedisDB, cfg.KeyPrefix, cfg.Label), nil
	case "memory":
		return NewMemoryMarker(cfg.Label), nil
	default:
		return nil, fmt.Errorf("unknown marker type %q", cfg.Type)
	}
}
