package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/IshaanNene/PriceHound/internal/config"
	"github.com/IshaanNene/PriceHound/internal/logging"
	"github.com/IshaanNene/PriceHound/internal/types"
)

// ElasticBackend talks to Elasticsearch over its REST API.
type ElasticBackend struct {
	client  *resty.Client
	index   string
	refresh bool
	logger  zerolog.Logger
}

// NewElasticBackend creates a client for the index at cfg.Address.
func NewElasticBackend(cfg *config.IndexConfig, logger zerolog.Logger) *ElasticBackend {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.Address, "/"))
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("Accept", "application/json")

	return &ElasticBackend{
		client:  client,
		index:   cfg.Name,
		refresh: cfg.Refresh,
		logger:  logging.Component(logger, "elasticsearch").With().Str("index", cfg.Name).Logger(),
	}
}

func (b *ElasticBackend) Name() string { return "elasticsearch" }

func (b *ElasticBackend) EnsureSchema(ctx context.Context) error {
	resp, err := b.client.R().SetContext(ctx).Head("/" + b.index)
	if err != nil {
		return b.unreachable(err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return b.checkExisting(ctx)
	case http.StatusNotFound:
	default:
		return b.statusError("HEAD", resp)
	}

	resp, err = b.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(MappingBody()).
		Put("/" + b.index)
	if err != nil {
		return b.unreachable(err)
	}
	if resp.StatusCode() == http.StatusBadRequest && strings.Contains(resp.String(), "resource_already_exists_exception") {
		// Another run created it between HEAD and PUT.
		return b.checkExisting(ctx)
	}
	if resp.IsError() {
		return b.statusError("PUT", resp)
	}

	b.logger.Info().Msg("index created")
	return nil
}

func (b *ElasticBackend) checkExisting(ctx context.Context) error {
	resp, err := b.client.R().SetContext(ctx).Get("/" + b.index + "/_mapping")
	if err != nil {
		return b.unreachable(err)
	}
	if resp.IsError() {
		return b.statusError("GET _mapping", resp)
	}

	var mappings map[string]struct {
		Mappings struct {
			Properties map[string]map[string]any `json:"properties"`
		} `json:"mappings"`
	}
	if err := json.Unmarshal(resp.Body(), &mappings); err != nil {
		return &types.StorageError{Backend: b.Name(), Err: fmt.Errorf("decode mapping: %w", err)}
	}

	// An alias resolves to one concrete index whose name may differ.
	props := map[string]map[string]any{}
	if m, ok := mappings[b.index]; ok {
		props = m.Mappings.Properties
	} else {
		for _, m := range mappings {
			props = m.Mappings.Properties
			break
		}
	}

	if err := checkMapping(b.index, props); err != nil {
		return err
	}
	b.logger.Debug().Msg("index exists with matching mapping")
	return nil
}

func (b *ElasticBackend) WriteBatch(ctx context.Context, docs []types.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	action, _ := json.Marshal(map[string]any{"index": map[string]any{"_index": b.index}})
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		buf.Write(action)
		buf.WriteByte('\n')
		if err := enc.Encode(doc); err != nil {
			return 0, &types.StorageError{Backend: b.Name(), Err: fmt.Errorf("encode document: %w", err)}
		}
	}

	req := b.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-ndjson").
		SetBody(buf.Bytes())
	if b.refresh {
		req.SetQueryParam("refresh", "true")
	}
	resp, err := req.Post("/_bulk")
	if err != nil {
		return 0, b.unreachable(err)
	}
	if resp.IsError() {
		return 0, b.statusError("POST _bulk", resp)
	}

	var out struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return 0, &types.StorageError{Backend: b.Name(), Err: fmt.Errorf("decode bulk response: %w", err)}
	}

	written := 0
	var firstErr error
	for _, item := range out.Items {
		for _, res := range item {
			if res.Error == nil && res.Status >= 200 && res.Status < 300 {
				written++
				continue
			}
			if firstErr == nil && res.Error != nil {
				firstErr = fmt.Errorf("%s: %s", res.Error.Type, res.Error.Reason)
			}
		}
	}

	b.logger.Debug().Int("sent", len(docs)).Int("written", written).Msg("bulk write")
	if out.Errors || written < len(docs) {
		if firstErr == nil {
			firstErr = fmt.Errorf("%d of %d documents rejected", len(docs)-written, len(docs))
		}
		return written, &types.StorageError{Backend: b.Name(), Err: fmt.Errorf("bulk write: %w", firstErr)}
	}
	return written, nil
}

func (b *ElasticBackend) Count(ctx context.Context) (int64, error) {
	resp, err := b.client.R().SetContext(ctx).Get("/" + b.index + "/_count")
	if err != nil {
		return 0, b.unreachable(err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return 0, nil
	}
	if resp.IsError() {
		return 0, b.statusError("GET _count", resp)
	}

	var out struct {
		Count int64 `json:"count"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return 0, &types.StorageError{Backend: b.Name(), Err: fmt.Errorf("decode count: %w", err)}
	}
	return out.Count, nil
}

type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string         `json:"_id"`
			Score  float64        `json:"_score"`
			Source types.Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]struct {
		Buckets []struct {
			Key      string   `json:"key"`
			From     *float64 `json:"from"`
			To       *float64 `json:"to"`
			DocCount int64    `json:"doc_count"`
		} `json:"buckets"`
	} `json:"aggregations"`
}

func (b *ElasticBackend) Search(ctx context.Context, q Query) (*SearchResult, error) {
	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(q.Body()).
		Post("/" + b.index + "/_search")
	if err != nil {
		return nil, b.unreachable(err)
	}
	if resp.IsError() {
		return nil, b.statusError("POST _search", resp)
	}

	var out esSearchResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, &types.StorageError{Backend: b.Name(), Err: fmt.Errorf("decode search response: %w", err)}
	}

	res := &SearchResult{Total: out.Hits.Total.Value}
	for _, h := range out.Hits.Hits {
		res.Hits = append(res.Hits, Hit{ID: h.ID, Score: h.Score, Document: h.Source})
	}
	for _, bk := range out.Aggregations[PriceAggregation].Buckets {
		res.Buckets = append(res.Buckets, Bucket{Key: bk.Key, From: bk.From, To: bk.To, Count: bk.DocCount})
	}

	b.logger.Debug().Str("query", q.Text).Int64("total", res.Total).Int("hits", len(res.Hits)).Msg("search")
	return res, nil
}

func (b *ElasticBackend) Drop(ctx context.Context) error {
	resp, err := b.client.R().SetContext(ctx).Delete("/" + b.index)
	if err != nil {
		return b.unreachable(err)
	}
	if resp.IsError() && resp.StatusCode() != http.StatusNotFound {
		return b.statusError("DELETE", resp)
	}
	return nil
}

func (b *ElasticBackend) Close() error { return nil }

func (b *ElasticBackend) unreachable(err error) error {
	return fmt.Errorf("%w: %v", types.ErrIndexUnreachable, err)
}

func (b *ElasticBackend) statusError(op string, resp *resty.Response) error {
	body := resp.String()
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return &types.StorageError{
		Backend: b.Name(),
		Err:     fmt.Errorf("%s %s: status %d: %s", op, b.index, resp.StatusCode(), body),
	}
}
