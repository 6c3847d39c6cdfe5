// internal/models/tenant.go
package models

import "time"

type Plan string

const (
	PlanFree       Plan = "free"
	PlanBasic      Plan = "basic"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// TenantConfig is the tenant configuration the intake flow reads.
// FormRequirements is nil when the form carries no override record.
type TenantConfig struct {
	TenantID         string                `json:"tenantId"`
	Name             string                `json:"name"`
	Plan             Plan                  `json:"plan"`
	PlanExpiresAt    *time.Time            `json:"planExpiresAt,omitempty"`
	Zones            []string              `json:"zones"`
	Requirements     DocumentRequirements  `json:"requirements"`
	FormID           string                `json:"formId,omitempty"`
	FormRequirements *DocumentRequirements `json:"formRequirements,omitempty"`
}
