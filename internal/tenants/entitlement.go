package tenants

import (
	"time"

	"qualification-workers/internal/common/errors"
	"qualification-workers/internal/models"
)

var matchingPlans = map[models.Plan]bool{
	models.PlanPro:        true,
	models.PlanEnterprise: true,
}

// CheckMatchingEntitlement returns nil when the tenant's plan includes inventory
// matching at now, and a PLAN_* StandardError otherwise.
func CheckMatchingEntitlement(cfg models.TenantConfig, now time.Time) error {
	if !matchingPlans[cfg.Plan] {
		return errors.NewPlanNotEntitledError(string(cfg.Plan))
	}
	if cfg.PlanExpiresAt != nil && !now.Before(*cfg.PlanExpiresAt) {
		return errors.NewPlanExpiredError("expired at " + cfg.PlanExpiresAt.Format(time.RFC3339))
	}
	return nil
}

// MatchingEntitled is the boolean form of CheckMatchingEntitlement.
func MatchingEntitled(cfg models.TenantConfig, now time.Time) bool {
	return CheckMatchingEntitlement(cfg, now) == nil
}
