// Package tenants reads per-tenant intake configuration with a Redis read-through cache.
package tenants

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"qualification-workers/internal/common/logger"
	"qualification-workers/internal/common/metrics"
	"qualification-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

var ErrTenantNotFound = errors.New("tenant not found")

// Reader returns the configuration an intake session needs for a tenant and form.
type Reader interface {
	GetTenantConfig(ctx context.Context, tenantID, formID string) (*models.TenantConfig, error)
}

type Store struct {
	db       *sql.DB
	redis    *redis.Client
	cacheTTL time.Duration
	logger   logger.Logger
}

func NewStore(db *sql.DB, rdb *redis.Client, cacheTTL time.Duration, log logger.Logger) *Store {
	return &Store{
		db:       db,
		redis:    rdb,
		cacheTTL: cacheTTL,
		logger:   log.WithFields(map[string]interface{}{"component": "tenant-store"}),
	}
}

func CacheKey(tenantID, formID string) string {
	return fmt.Sprintf("tenant:config:%s:%s", tenantID, formID)
}

const tenantQuery = `SELECT id, name, plan, plan_expires_at, zones, requirements FROM tenants WHERE id = $1`

const formQuery = `SELECT requirements FROM intake_forms WHERE id = $1 AND tenant_id = $2`

func (s *Store) GetTenantConfig(ctx context.Context, tenantID, formID string) (*models.TenantConfig, error) {
	key := CacheKey(tenantID, formID)

	val, err := s.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var cfg models.TenantConfig
		if jsonErr := json.Unmarshal([]byte(val), &cfg); jsonErr == nil {
			metrics.TenantConfigCache.WithLabelValues("hit").Inc()
			return &cfg, nil
		}
		s.logger.Warn("discarding unreadable cached tenant config", map[string]interface{}{"key": key})
	case !errors.Is(err, redis.Nil):
		s.logger.Warn("tenant config cache unavailable", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
	metrics.TenantConfigCache.WithLabelValues("miss").Inc()

	cfg, err := s.load(ctx, tenantID, formID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(cfg)
	if err == nil {
		if err := s.redis.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
			s.logger.Warn("failed to cache tenant config", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
	return cfg, nil
}

func (s *Store) load(ctx context.Context, tenantID, formID string) (*models.TenantConfig, error) {
	var (
		cfg       models.TenantConfig
		plan      string
		expiresAt sql.NullTime
		zones     []byte
		reqs      []byte
	)
	err := s.db.QueryRowContext(ctx, tenantQuery, tenantID).Scan(
		&cfg.TenantID, &cfg.Name, &plan, &expiresAt, &zones, &reqs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrTenantNotFound, tenantID)
		}
		return nil, fmt.Errorf("load tenant %s: %w", tenantID, err)
	}

	cfg.Plan = models.Plan(plan)
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		cfg.PlanExpiresAt = &t
	}
	if len(zones) > 0 {
		if err := json.Unmarshal(zones, &cfg.Zones); err != nil {
			return nil, fmt.Errorf("decode tenant zones: %w", err)
		}
	}
	// Missing requirement config leaves every flag unset, which resolves to required.
	if len(reqs) > 0 {
		if err := json.Unmarshal(reqs, &cfg.Requirements); err != nil {
			return nil, fmt.Errorf("decode tenant requirements: %w", err)
		}
	}

	if formID == "" {
		return &cfg, nil
	}
	cfg.FormID = formID

	var formReqs []byte
	err = s.db.QueryRowContext(ctx, formQuery, formID, tenantID).Scan(&formReqs)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.Debug("form not found, using tenant requirements", map[string]interface{}{
			"tenantId": tenantID,
			"formId":   formID,
		})
	case err != nil:
		return nil, fmt.Errorf("load form %s: %w", formID, err)
	case len(formReqs) > 0:
		var fr models.DocumentRequirements
		if err := json.Unmarshal(formReqs, &fr); err != nil {
			return nil, fmt.Errorf("decode form requirements: %w", err)
		}
		cfg.FormRequirements = &fr
	}
	return &cfg, nil
}

// Invalidate drops the cached config so the next session reads fresh values.
// Sessions already past their snapshot keep the values they read.
func (s *Store) Invalidate(ctx context.Context, tenantID, formID string) error {
	return s.redis.Del(ctx, CacheKey(tenantID, formID)).Err()
}
