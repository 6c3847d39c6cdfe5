// internal/workers/qualification/validate-plan/models.go
package validateplan

import "time"

type Input struct {
	TenantID string `json:"tenantId"`
}

// Output represents the tenant's plan after validation
type Output struct {
	IsEntitled    bool       `json:"isEntitled"`
	Plan          string     `json:"plan"`
	PlanExpiresAt *time.Time `json:"planExpiresAt,omitempty"`
}
