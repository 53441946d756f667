package fetcher

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/IshaanNene/PriceHound/internal/config"
	"github.com/IshaanNene/PriceHound/internal/types"
)

func testFetcherConfig() *config.FetcherConfig {
	cfg := config.DefaultConfig().Fetcher
	cfg.RequestTimeout = 2 * time.Second
	cfg.RatePerSecond = 0
	return &cfg
}

func newTestFetcher(t *testing.T, mutate func(*config.FetcherConfig)) *HTTPFetcher {
	t.Helper()
	cfg := testFetcherConfig()
	if mutate != nil {
		mutate(cfg)
	}
	f, err := NewHTTPFetcher(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func mustRequest(t *testing.T, rawURL string) *types.Request {
	t.Helper()
	req, err := types.NewRequest(rawURL, types.TagListing)
	require.NoError(t, err)
	return req
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body><div class=card>one</div></body></html>"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, nil)
	resp, err := f.Fetch(context.Background(), mustRequest(t, srv.URL))
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())

	doc, err := resp.Document()
	require.NoError(t, err)
	assert.Equal(t, "one", doc.Find("div.card").Text())
}

func TestFetchNon2xxIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher(t, nil)
	_, err := f.Fetch(context.Background(), mustRequest(t, srv.URL))

	var fe *types.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	f := newTestFetcher(t, func(c *config.FetcherConfig) { c.RequestTimeout = 50 * time.Millisecond })
	start := time.Now()
	_, err := f.Fetch(context.Background(), mustRequest(t, srv.URL))

	var fe *types.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Zero(t, fe.StatusCode)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), time.Second)
}

func TestFetchDecompresses(t *testing.T) {
	const page = "<html><body><span>compressed</span></body></html>"

	tests := []struct {
		encoding string
		encode   func([]byte) []byte
	}{
		{"gzip", func(b []byte) []byte {
			var buf bytes.Buffer
			zw := gzip.NewWriter(&buf)
			_, _ = zw.Write(b)
			_ = zw.Close()
			return buf.Bytes()
		}},
		{"br", func(b []byte) []byte {
			var buf bytes.Buffer
			bw := brotli.NewWriter(&buf)
			_, _ = bw.Write(b)
			_ = bw.Close()
			return buf.Bytes()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Encoding", tt.encoding)
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				_, _ = w.Write(tt.encode([]byte(page)))
			}))
			defer srv.Close()

			resp, err := newTestFetcher(t, nil).Fetch(context.Background(), mustRequest(t, srv.URL))
			require.NoError(t, err)
			assert.Equal(t, page, string(resp.Body))
		})
	}
}

func TestFetchConvertsCharset(t *testing.T) {
	encoded, err := charmap.Windows1254.NewEncoder().String("<p>Buton Sayısı</p>")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=windows-1254")
		_, _ = w.Write([]byte(encoded))
	}))
	defer srv.Close()

	resp, err := newTestFetcher(t, nil).Fetch(context.Background(), mustRequest(t, srv.URL))
	require.NoError(t, err)
	assert.Equal(t, "<p>Buton Sayısı</p>", string(resp.Body))
}

func TestFetchRespectsRobots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
			return
		}
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, func(c *config.FetcherConfig) { c.RespectRobotsTxt = true })

	_, err := f.Fetch(context.Background(), mustRequest(t, srv.URL+"/private/list"))
	assert.ErrorIs(t, err, types.ErrBlocked)

	_, err = f.Fetch(context.Background(), mustRequest(t, srv.URL+"/public"))
	assert.NoError(t, err)
}

func TestUserAgentRotation(t *testing.T) {
	f := newTestFetcher(t, func(c *config.FetcherConfig) { c.UserAgents = []string{"a", "b"} })
	first, second, third := f.nextUserAgent(), f.nextUserAgent(), f.nextUserAgent()
	assert.NotEqual(t, first, second)
	assert.Equal(t, first, third)
}

func TestNewSelectsHTTPFetcher(t *testing.T) {
	cfg := config.DefaultConfig()
	f, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "http", f.Type())
}
