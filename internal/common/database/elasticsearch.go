package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"qualification-workers/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

type ElasticsearchClient struct {
	Client *elasticsearch.Client
}

func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}

	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticsearchClient{Client: es}, nil
}

func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}

	return nil
}

// inventoryMapping indexes properties and projects side by side. Projects keep
// their unit models nested so a price range can match a single unit model.
// Zone and status are trimmed and lower-cased at index and query time.
const inventoryMapping = `{
  "mappings": {
    "properties": {
      "id":              {"type": "keyword"},
      "tenant_id":       {"type": "keyword"},
      "kind":            {"type": "keyword"},
      "name":            {"type": "text"},
      "project_id":      {"type": "keyword"},
      "project_name":    {"type": "text"},
      "title":           {"type": "text"},
      "property_type":   {"type": "keyword", "normalizer": "folded"},
      "price":           {"type": "long"},
      "zone":            {"type": "keyword", "normalizer": "folded"},
      "bedrooms":        {"type": "integer"},
      "bathrooms":       {"type": "integer"},
      "area_m2":         {"type": "float"},
      "status":          {"type": "keyword", "normalizer": "folded"},
      "available_units": {"type": "integer"},
      "unit_models": {
        "type": "nested",
        "properties": {
          "id":              {"type": "keyword"},
          "title":           {"type": "text"},
          "property_type":   {"type": "keyword", "normalizer": "folded"},
          "price":           {"type": "long"},
          "bedrooms":        {"type": "integer"},
          "bathrooms":       {"type": "integer"},
          "area_m2":         {"type": "float"},
          "available_units": {"type": "integer"}
        }
      }
    }
  },
  "settings": {
    "analysis": {
      "normalizer": {
        "folded": {"type": "custom", "filter": ["trim", "lowercase"]}
      }
    }
  }
}`

// EnsureInventoryIndex creates the inventory index when it does not exist yet.
func (c *ElasticsearchClient) EnsureInventoryIndex(ctx context.Context, index string) error {
	exists, err := c.Client.Indices.Exists([]string{index}, c.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", index, err)
	}
	defer exists.Body.Close()

	if exists.StatusCode == 200 {
		return nil
	}

	res, err := c.Client.Indices.Create(index,
		c.Client.Indices.Create.WithContext(ctx),
		c.Client.Indices.Create.WithBody(strings.NewReader(inventoryMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("create index %s: %s", index, res.Status())
	}
	return nil
}
