// internal/workers/intake/advance-intake/models.go
package advanceintake

import (
	"qualification-workers/internal/intake"
	"qualification-workers/internal/models"
)

type Action string

const (
	ActionStart       Action = "start"
	ActionPreferences Action = "preferences"
	ActionIncome      Action = "income"
	ActionContact     Action = "contact"
	ActionDecide      Action = "decide"
	ActionAttach      Action = "attach"
	ActionSign        Action = "sign"
	ActionAdvance     Action = "advance"
	ActionBack        Action = "back"
	ActionResults     Action = "results"
)

// Input drives one intake action. Only the fields the action reads are
// required; the schema enforces which.
type Input struct {
	Action          Action              `json:"action"`
	SessionID       string              `json:"sessionId,omitempty"`
	TenantID        string              `json:"tenantId,omitempty"`
	FormID          string              `json:"formId,omitempty"`
	Preferences     *models.Preferences `json:"preferences,omitempty"`
	MonthlyIncome   *float64            `json:"monthlyIncome,omitempty"`
	Contact         *models.Contact     `json:"contact,omitempty"`
	WantsValidation *bool               `json:"wantsValidation,omitempty"`
	Document        *models.File        `json:"document,omitempty"`
	Signature       *SignatureInput     `json:"signature,omitempty"`
}

type SignatureInput struct {
	FullName     string `json:"fullName"`
	IDNumber     string `json:"idNumber"`
	SignaturePNG []byte `json:"signaturePng"`
}

type Output struct {
	SessionID string          `json:"sessionId"`
	Step      intake.Step     `json:"step"`
	Session   *intake.Session `json:"session"`
	Outcome   *intake.Outcome `json:"outcome,omitempty"`
}
