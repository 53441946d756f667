package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dario.cat/mergo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/PriceHound/internal/config"
	"github.com/IshaanNene/PriceHound/internal/types"
)

const listingHTML = `<html><body>
<div class="selected-order"> Çok   Satanlar </div>
<div class="p-card-chldrn-cntnr card-border"><a href="/p/1">
  <h3 class="prdct-desc-cntnr-ttl-w"><span class="prdct-desc-cntnr-ttl">SteelSeries</span><span class="prdct-desc-cntnr-name">Rival 3</span></h3>
  <div class="prc-box-dscntd">1.299 TL</div><span class="ratingCount">(250)</span>
</a></div>
<div class="p-card-chldrn-cntnr card-border"><a href="/p/2">
  <h3 class="prdct-desc-cntnr-ttl-w"><span class="prdct-desc-cntnr-ttl">Steelseries</span><span class="prdct-desc-cntnr-name">Aerox 5</span></h3>
  <div class="prc-box-dscntd">45,90 TL</div><span class="ratingCount">(12)</span>
</a></div>
</body></html>`

const detailHTML = `<html><body><ul>
<li class="detail-attr-item"><span title="Mouse Hassasiyeti (Dpi)">Mouse Hassasiyeti (Dpi)</span><span class="attribute-value"><div class="attr-name attr-name-w">8500</div></span></li>
</ul></body></html>`

func shopServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/list":
			fmt.Fprint(w, listingHTML)
		case "/p/1":
			fmt.Fprint(w, detailHTML)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// writeConfig writes a config for an in-memory index and returns its path.
func writeConfig(t *testing.T, baseURL string) string {
	return writeBackendConfig(t, baseURL, "memory")
}

// writeBackendConfig writes a config for the given index backend with a file
// marker next to the config file. The Elasticsearch address is never dialled
// by the marker commands.
func writeBackendConfig(t *testing.T, baseURL, backend string) string {
	t.Helper()
	t.Chdir(t.TempDir())

	dir := t.TempDir()
	yaml := fmt.Sprintf(`
source:
  url: %[1]s/list
  base_url: %[1]s
fetcher:
  rate_per_second: 0
  request_timeout: 2s
index:
  backend: %[3]s
  address: http://127.0.0.1:1
marker:
  type: file
  dir: %[2]s
logging:
  level: error
`, baseURL, filepath.Join(dir, "flags"), backend)

	path := filepath.Join(dir, "pricehound.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func execute(args ...string) (string, error) {
	cmd := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRunScrapesOnceThenSearches(t *testing.T) {
	srv := shopServer(t)
	cfgPath := writeConfig(t, srv.URL)

	out, err := execute("run", "--config", cfgPath, "steelseries")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Indexed 2 product(s) from 1 page(s)")
	assert.Contains(t, out, `2 match(es) for "steelseries"`)
	assert.Contains(t, out, "SteelSeries Rival 3")
	assert.Contains(t, out, "45.9")
	assert.Equal(t, 1, strings.Count(out, "warning! number of rate is below 100"))
	assert.Contains(t, out, "Sort option: Çok Satanlar")
	assert.Contains(t, out, "All completed in")

	// the in-memory index keeps its marker in memory, so a new process
	// indexes again and finds the same products
	assert.NoFileExists(t, filepath.Join(filepath.Dir(cfgPath), "flags", "indexing_done_81.flag"))
	out, err = execute("run", "--config", cfgPath, "steelseries")
	require.NoError(t, err, out)
	assert.NotContains(t, out, "present, searching existing index")
	assert.Contains(t, out, "Indexed 2 product(s)")
	assert.Contains(t, out, `2 match(es) for "steelseries"`)
	assert.Contains(t, out, "SteelSeries Rival 3")

	out, err = execute("search", "--config", cfgPath, "steelseries")
	require.NoError(t, err, out)
	assert.Contains(t, out, "0 match(es)", "a fresh in-memory index is empty, not missing")
}

func TestMarkerCommands(t *testing.T) {
	srv := shopServer(t)
	cfgPath := writeBackendConfig(t, srv.URL, "elasticsearch")

	out, err := execute("marker", "status", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, `marker "indexing_done_81": absent`)

	out, err = execute("marker", "set", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, `marker "indexing_done_81" set`)
	assert.FileExists(t, filepath.Join(filepath.Dir(cfgPath), "flags", "indexing_done_81.flag"))

	out, err = execute("marker", "status", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "present")

	out, err = execute("marker", "clear", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "cleared")

	out, err = execute("marker", "status", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, `marker "indexing_done_81": absent`)

	_, err = execute("marker", "set", "--config", cfgPath)
	require.NoError(t, err)
	out, err = execute("marker", "status", "--config", cfgPath, "--label", "other")
	require.NoError(t, err)
	assert.Contains(t, out, `marker "other": absent`)
}

func TestRunWithoutDataFails(t *testing.T) {
	srv := shopServer(t)
	cfgPath := writeConfig(t, srv.URL)

	_, err := execute("run", "--config", cfgPath, "--url", srv.URL+"/missing")
	assert.ErrorIs(t, err, types.ErrNoData)
}

func TestScrapeExports(t *testing.T) {
	srv := shopServer(t)
	cfgPath := writeConfig(t, srv.URL)
	outDir := t.TempDir()

	out, err := execute("scrape", "--config", cfgPath, "--export", "csv,json", "--output", outDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Exported 2 row(s)")
	assert.Contains(t, out, "dpi=8500")

	b, err := os.ReadFile(filepath.Join(outDir, "products.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "title,price,rating_count,dpi,rgb_lighting,mouse_type,button_count", lines[0])
	assert.Equal(t, "SteelSeries Rival 3,1299,250,8500,0,,0", lines[1])
	assert.FileExists(t, filepath.Join(outDir, "products.json"))
}

func TestIndexCommands(t *testing.T) {
	srv := shopServer(t)
	cfgPath := writeConfig(t, srv.URL)

	out, err := execute("index", "ensure", "--config", cfgPath, "--index", "mice")
	require.NoError(t, err)
	assert.Contains(t, out, `Index "mice" ready.`)

	out, err = execute("index", "count", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "0\n", out)

	_, err = execute("index", "ensure", "--config", cfgPath, "--index", "Mice")
	assert.Error(t, err, "index names must be lowercase")
}

func TestOverridesMerge(t *testing.T) {
	cfg := config.DefaultConfig()
	o := &options{size: 3, indexBackend: "memory", export: "XLSX"}
	require.NoError(t, mergo.Merge(cfg, o.overrides(), mergo.WithOverride))

	assert.Equal(t, 3, cfg.Search.Size)
	assert.Equal(t, "memory", cfg.Index.Backend)
	assert.Equal(t, "xlsx", cfg.Export.Type)
	assert.Equal(t, 100, cfg.Search.MinRatings, "unset flags keep config values")
	assert.Len(t, cfg.Source.Fields, 6)
	assert.True(t, cfg.Index.Refresh)
}

func TestVersionAndConfig(t *testing.T) {
	out, err := execute("version")
	require.NoError(t, err)
	assert.Contains(t, out, "PriceHound "+config.Version)

	srv := shopServer(t)
	cfgPath := writeConfig(t, srv.URL)
	out, err = execute("config", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Backend:           memory")
}
