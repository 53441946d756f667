package fetcher

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/IshaanNene/PriceHound/internal/config"
	"github.com/IshaanNene/PriceHound/internal/types"
)

// Fetcher is the interface for all page fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the content at the given request's URL. A non-2xx
	// status is returned as a *types.FetchError.
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// New creates the fetcher selected by cfg.Fetcher.Type.
func New(cfg *config.Config, logger zerolog.Logger) (Fetcher, error) {
	switch cfg.Fetcher.Type {
	case "http":
		return NewHTTPFetcher(&cfg.Fetcher, logger)
	case "browser":
		return NewBrowserFetcher(&cfg.Fetcher, logger, WithMaxPages(cfg.Detail.Concurrency))
	default:
		return nil, fmt.Errorf("unknown fetcher type %q", cfg.Fetcher.Type)
	}
}
