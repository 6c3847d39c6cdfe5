// internal/workers/qualification/resolve-document-requirements/models.go
package resolvedocumentrequirements

import "qualification-workers/internal/qualification/requirements"

type Input struct {
	TenantID string `json:"tenantId"`
	FormID   string `json:"formId,omitempty"`
}

type Output struct {
	Requirements  requirements.Resolved `json:"requirements"`
	RequiredSlots []string              `json:"requiredSlots"`
	// Defaulted is set when no tenant config could be read and every slot is required.
	Defaulted bool `json:"defaulted"`
}
