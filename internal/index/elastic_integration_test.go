package index

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/IshaanNene/PriceHound/internal/config"
	"github.com/IshaanNene/PriceHound/internal/types"
)

func startElasticsearch(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Elasticsearch container in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		Started: true,
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "docker.elastic.co/elasticsearch/elasticsearch:8.13.4",
			ExposedPorts: []string{"9200/tcp"},
			Env: map[string]string{
				"discovery.type":         "single-node",
				"xpack.security.enabled": "false",
				"ES_JAVA_OPTS":           "-Xms512m -Xmx512m",
			},
			WaitingFor: wait.ForHTTP("/_cluster/health?wait_for_status=yellow").
				WithPort("9200/tcp").
				WithStartupTimeout(3 * time.Minute),
		},
	})
	if err != nil {
		t.Skipf("Elasticsearch container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.PortEndpoint(ctx, "9200/tcp", "http")
	require.NoError(t, err)
	return endpoint
}

func TestElasticsearchContainer(t *testing.T) {
	addr := startElasticsearch(t)
	ctx := context.Background()

	cfg := config.DefaultConfig()
	cfg.Index.Address = addr
	b := NewElasticBackend(&cfg.Index, zerolog.Nop())

	require.NoError(t, b.EnsureSchema(ctx))
	require.NoError(t, b.EnsureSchema(ctx))

	_, err := b.WriteBatch(ctx, []types.Document{
		doc("SteelSeries Rival 3", types.FloatPtr(1299), types.StringPtr("(250)")),
		doc("Steelseries Aerox 5 Wireless", types.FloatPtr(45), types.StringPtr("(12)")),
		doc("SteelSeries Prime", nil, nil),
		doc("Logitech G102", types.FloatPtr(600), nil),
	})
	require.NoError(t, err)

	n, err := b.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	res, err := b.Search(ctx, QueryFromConfig(&cfg.Search, "stelseries"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total, "fuzzy match with the priceless product filtered out")
	assert.Equal(t, map[string]int64{"low": 1, "mid": 0, "high": 1}, bucketCounts(res))

	require.NoError(t, b.Drop(ctx))
}
