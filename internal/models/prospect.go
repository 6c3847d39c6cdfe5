// internal/models/prospect.go
package models

import "time"

type ProspectStatus string

const (
	ProspectContacted           ProspectStatus = "contacted"
	ProspectCompleted           ProspectStatus = "completed"
	ProspectValidationRequested ProspectStatus = "validation_requested"
)

type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Preferences are the search criteria collected on the first intake step.
type Preferences struct {
	PropertyType string   `json:"propertyType,omitempty"`
	Zones        []string `json:"zones"`
	Bedrooms     *int     `json:"bedrooms,omitempty"`
	Bathrooms    *int     `json:"bathrooms,omitempty"`
}

type Prospect struct {
	ID              string                       `json:"id"`
	TenantID        string                       `json:"tenantId"`
	SessionID       string                       `json:"sessionId"`
	Contact         Contact                      `json:"contact"`
	MonthlyIncome   float64                      `json:"monthlyIncome"`
	Preferences     Preferences                  `json:"preferences"`
	Capacity        CapacityEstimate             `json:"capacity"`
	Documents       map[DocumentSlot]ArtifactRef `json:"documents,omitempty"`
	WantsValidation bool                         `json:"wantsValidation"`
	Status          ProspectStatus               `json:"status"`
	CreatedAt       time.Time                    `json:"createdAt"`
	UpdatedAt       time.Time                    `json:"updatedAt"`
}
