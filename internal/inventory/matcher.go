package inventory

import (
	"context"

	"qualification-workers/internal/common/logger"
	"qualification-workers/internal/common/metrics"
	"qualification-workers/internal/models"
)

// Matcher reads a tenant's inventory and matches it. Read failures degrade to
// an empty result so the intake flow still reaches its terminal step.
type Matcher struct {
	reader Reader
	opts   Options
	logger logger.Logger
}

func NewMatcher(reader Reader, opts Options, log logger.Logger) *Matcher {
	return &Matcher{
		reader: reader,
		opts:   opts,
		logger: log.WithFields(map[string]interface{}{"component": "inventory-matcher"}),
	}
}

func (m *Matcher) MatchForTenant(ctx context.Context, tenantID string, capacity models.CapacityEstimate, criteria Criteria) []MatchResult {
	if !capacity.Eligible() {
		return []MatchResult{}
	}

	items, err := m.read(ctx, tenantID, capacity, criteria)
	if err != nil {
		m.logger.Warn("inventory read failed, returning no matches", map[string]interface{}{
			"tenantId": tenantID,
			"error":    err.Error(),
		})
		metrics.InventoryReadFailures.WithLabelValues(tenantID).Inc()
		return []MatchResult{}
	}

	matches := Match(capacity, criteria, items, m.opts)
	metrics.InventoryMatches.WithLabelValues(tenantID).Observe(float64(len(matches)))

	m.logger.Debug("inventory matched", map[string]interface{}{
		"tenantId":   tenantID,
		"candidates": len(items),
		"matches":    len(matches),
	})
	return matches
}

// read pushes the zone and budget filter down when the reader supports it.
// Match still applies the full predicate to whatever comes back.
func (m *Matcher) read(ctx context.Context, tenantID string, capacity models.CapacityEstimate, criteria Criteria) ([]models.InventoryItem, error) {
	if cr, ok := m.reader.(CandidateReader); ok {
		return cr.ListCandidates(ctx, tenantID, Filter{
			Zones:    criteria.Zones,
			MaxPrice: capacity.MaxPropertyPrice,
		})
	}
	return m.reader.ListAvailable(ctx, tenantID)
}
