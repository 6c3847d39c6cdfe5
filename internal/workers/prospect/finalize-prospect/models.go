// internal/workers/prospect/finalize-prospect/models.go
package finalizeprospect

import "qualification-workers/internal/models"

type Input struct {
	TenantID        string                                     `json:"tenantId"`
	ProspectID      string                                     `json:"prospectId"`
	Capacity        models.CapacityEstimate                    `json:"capacity"`
	WantsValidation bool                                       `json:"wantsValidation"`
	Documents       map[models.DocumentSlot]models.ArtifactRef `json:"documents,omitempty"`
}

type Output struct {
	ProspectID string `json:"prospectId"`
	Status     string `json:"status"`
	Finalized  bool   `json:"finalized"`
}
