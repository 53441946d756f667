package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/rs/zerolog"
	"github.com/temoto/robotstxt"
)

// RobotsChecker fetches and caches robots.txt per scheme+host.
// A robots.txt that cannot be fetched or parsed allows everything.
type RobotsChecker struct {
	client *http.Client
	logger zerolog.Logger

	mu    sync.Mutex
	cache map[string]*robotstxt.RobotsData
}

// NewRobotsChecker creates a checker that fetches with client.
func NewRobotsChecker(client *http.Client, logger zerolog.Logger) *RobotsChecker {
	return &RobotsChecker{
		client: client,
		logger: logger,
		cache:  make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether userAgent may fetch u.
func (rc *RobotsChecker) Allowed(ctx context.Context, u *url.URL, userAgent string) bool {
	base := u.Scheme + "://" + u.Host

	rc.mu.Lock()
	robots, ok := rc.cache[base]
	rc.mu.Unlock()

	if !ok {
		robots = rc.fetch(ctx, base)
		rc.mu.Lock()
		rc.cache[base] = robots
		rc.mu.Unlock()
	}
	if robots == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return robots.TestAgent(path, userAgent)
}

func (rc *RobotsChecker) fetch(ctx context.Context, base string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	resp, err := rc.client.Do(req)
	if err != nil {
		rc.logger.Debug().Err(err).Str("host", base).Msg("robots.txt unavailable, allowing all")
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil
	}
	robots, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		rc.logger.Warn().Err(err).Str("host", base).Msg("robots.txt unparseable, allowing all")
		return nil
	}
	return robots
}
