// internal/workers/prospect/create-prospect/models.go
package createprospect

import "qualification-workers/internal/models"

type Input struct {
	TenantID      string                   `json:"tenantId"`
	SessionID     string                   `json:"sessionId"`
	Contact       models.Contact           `json:"contact"`
	MonthlyIncome float64                  `json:"monthlyIncome"`
	Preferences   models.Preferences       `json:"preferences"`
	Capacity      *models.CapacityEstimate `json:"capacity,omitempty"`
}

type Output struct {
	ProspectID string `json:"prospectId"`
	Status     string `json:"status"`
}
