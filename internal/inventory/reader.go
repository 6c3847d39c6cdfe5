package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"qualification-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

// Reader lists a tenant's currently available inventory.
type Reader interface {
	ListAvailable(ctx context.Context, tenantID string) ([]models.InventoryItem, error)
}

// Filter narrows a read to the candidates for one prospect. The zero value
// reads every available item.
type Filter struct {
	Zones    []string
	MaxPrice int64
}

// CandidateReader is a Reader that can apply a Filter in the store itself.
// The result is a superset of what Match accepts for the same zones and budget.
type CandidateReader interface {
	Reader
	ListCandidates(ctx context.Context, tenantID string, f Filter) ([]models.InventoryItem, error)
}

// ESReader reads inventory documents from an Elasticsearch index. Documents
// are either standalone properties or projects holding nested unit models;
// projects are flattened into one item per unit model.
type ESReader struct {
	client   *elasticsearch.Client
	index    string
	pageSize int
}

// NewESReader returns a reader that pages through results pageSize hits at a
// time until the index has no more.
func NewESReader(client *elasticsearch.Client, index string, pageSize int) *ESReader {
	if pageSize <= 0 {
		pageSize = 500
	}
	return &ESReader{client: client, index: index, pageSize: pageSize}
}

type searchHit struct {
	ID     string          `json:"_id"`
	Source json.RawMessage `json:"_source"`
	Sort   []interface{}   `json:"sort"`
}

type searchResponse struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

func (r *ESReader) buildQuery(tenantID string, f Filter, after []interface{}) map[string]interface{} {
	filters := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"tenant_id": tenantID}},
		map[string]interface{}{"terms": map[string]interface{}{"status": []string{"active", "available"}}},
	}
	if zones := zoneTerms(f.Zones); len(zones) > 0 {
		filters = append(filters, map[string]interface{}{"terms": map[string]interface{}{"zone": zones}})
	}
	if f.MaxPrice > 0 {
		filters = append(filters, map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []interface{}{
					map[string]interface{}{"range": map[string]interface{}{"price": map[string]interface{}{"lte": f.MaxPrice}}},
					map[string]interface{}{"nested": map[string]interface{}{
						"path":            "unit_models",
						"ignore_unmapped": true,
						"query": map[string]interface{}{
							"range": map[string]interface{}{"unit_models.price": map[string]interface{}{"lte": f.MaxPrice}},
						},
					}},
				},
				"minimum_should_match": 1,
			},
		})
	}

	query := map[string]interface{}{
		"size": r.pageSize,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		},
		"sort": []interface{}{
			map[string]interface{}{"id": map[string]interface{}{"order": "asc", "missing": "_last"}},
		},
	}
	if len(after) > 0 {
		query["search_after"] = after
	}
	return query
}

// ListAvailable returns every available item of the tenant.
func (r *ESReader) ListAvailable(ctx context.Context, tenantID string) ([]models.InventoryItem, error) {
	return r.ListCandidates(ctx, tenantID, Filter{})
}

// ListCandidates returns the tenant's available items in the given zones with
// a price, or a unit model price, within MaxPrice.
func (r *ESReader) ListCandidates(ctx context.Context, tenantID string, f Filter) ([]models.InventoryItem, error) {
	items := make([]models.InventoryItem, 0)
	var after []interface{}
	for {
		hits, err := r.search(ctx, r.buildQuery(tenantID, f, after))
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			decoded, err := decodeHit(hit)
			if err != nil {
				return nil, err
			}
			items = append(items, decoded...)
		}

		if len(hits) < r.pageSize {
			return items, nil
		}
		after = hits[len(hits)-1].Sort
		if len(after) == 0 {
			return nil, fmt.Errorf("inventory search: page of %d hits without sort values", len(hits))
		}
	}
}

func (r *ESReader) search(ctx context.Context, query map[string]interface{}) ([]searchHit, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("encode inventory query: %w", err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("inventory search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("inventory search: %s", res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode inventory response: %w", err)
	}
	return parsed.Hits.Hits, nil
}

func decodeHit(hit searchHit) ([]models.InventoryItem, error) {
	var head struct {
		Kind models.InventoryKind `json:"kind"`
	}
	if err := json.Unmarshal(hit.Source, &head); err != nil {
		return nil, fmt.Errorf("decode inventory document %s: %w", hit.ID, err)
	}

	if head.Kind == models.KindProject {
		var project models.Project
		if err := json.Unmarshal(hit.Source, &project); err != nil {
			return nil, fmt.Errorf("decode project %s: %w", hit.ID, err)
		}
		if project.ID == "" {
			project.ID = hit.ID
		}
		return project.Items(), nil
	}

	var item models.InventoryItem
	if err := json.Unmarshal(hit.Source, &item); err != nil {
		return nil, fmt.Errorf("decode inventory item %s: %w", hit.ID, err)
	}
	if item.ID == "" {
		item.ID = hit.ID
	}
	return []models.InventoryItem{item}, nil
}

// zoneTerms lower-cases and trims zones to match the index normalizer.
func zoneTerms(zones []string) []string {
	set := normalizeZones(zones)
	out := make([]string, 0, len(set))
	for z := range set {
		out = append(out, z)
	}
	sort.Strings(out)
	return out
}
