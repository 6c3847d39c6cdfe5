// internal/workers/inventory/match-inventory/models.go
package matchinventory

import (
	"qualification-workers/internal/inventory"
	"qualification-workers/internal/models"
)

type Input struct {
	TenantID    string                  `json:"tenantId"`
	FormID      string                  `json:"formId,omitempty"`
	Capacity    models.CapacityEstimate `json:"capacity"`
	Preferences models.Preferences      `json:"preferences"`
}

type Output struct {
	Matches        []inventory.MatchResult `json:"matches"`
	MatchCount     int                     `json:"matchCount"`
	MatchingStatus string                  `json:"matchingStatus"`
	Notice         string                  `json:"notice,omitempty"`
}
