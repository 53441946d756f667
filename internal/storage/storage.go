// Package storage writes dataset rows to files or a database.
package storage

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/IshaanNene/PriceHound/internal/config"
	"github.com/IshaanNene/PriceHound/internal/dataset"
)

// Storage is the interface for all storage backends.
type Storage interface {
	// Store persists a batch of rows.
	Store(rows []dataset.Row) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// New creates the export backend selected by cfg.Type.
func New(cfg *config.ExportConfig, logger zerolog.Logger) (Storage, error) {
	kind := strings.TrimSpace(cfg.Type)
	if kind == "mongodb" {
		return NewMongoStorage(cfg.MongoURI, cfg.Database, cfg.Collection, logger)
	}
	s, err := NewFileStorage(kind, cfg.OutputPath, logger)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return s, nil
}

// Open creates one backend per comma-separated type in cfg.Type, fanned out
// through a MultiStorage when there is more than one.
func Open(cfg *config.ExportConfig, logger zerolog.Logger) (Storage, error) {
	kinds := strings.Split(cfg.Type, ",")

	backends := make([]Storage, 0, len(kinds))
	for _, kind := range kinds {
		c := *cfg
		c.Type = strings.TrimSpace(kind)
		s, err := New(&c, logger)
		if err != nil {
			for _, b := range backends {
				_ = b.Close()
			}
			return nil, err
		}
		backends = append(backends, s)
	}
	if len(backends) == 1 {
		return backends[0], nil
	}
	return NewMultiStorage(backends, logger), nil
}
