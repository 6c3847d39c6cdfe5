// internal/models/documents.go
package models

import "time"

// DocumentSlot names one of the four document requirements.
type DocumentSlot string

const (
	SlotIDDocument          DocumentSlot = "id_document"
	SlotIncomeRegistration  DocumentSlot = "income_registration"
	SlotPayStub             DocumentSlot = "pay_stub"
	SlotCreditAuthorization DocumentSlot = "credit_authorization"
)

// DocumentSlots lists every slot in presentation order.
var DocumentSlots = []DocumentSlot{
	SlotIDDocument,
	SlotIncomeRegistration,
	SlotPayStub,
	SlotCreditAuthorization,
}

func (s DocumentSlot) Valid() bool {
	for _, slot := range DocumentSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// DocumentRequirements is a tenant or form level requirement record.
// A nil flag is unset and falls through to the next level.
type DocumentRequirements struct {
	IDDocument          *bool `json:"idDocument,omitempty"`
	IncomeRegistration  *bool `json:"incomeRegistration,omitempty"`
	PayStub             *bool `json:"payStub,omitempty"`
	CreditAuthorization *bool `json:"creditAuthorization,omitempty"`
}

// Flag returns the configured flag for slot, or nil when unset.
func (r *DocumentRequirements) Flag(slot DocumentSlot) *bool {
	if r == nil {
		return nil
	}
	switch slot {
	case SlotIDDocument:
		return r.IDDocument
	case SlotIncomeRegistration:
		return r.IncomeRegistration
	case SlotPayStub:
		return r.PayStub
	case SlotCreditAuthorization:
		return r.CreditAuthorization
	}
	return nil
}

// File is an uploaded or generated document waiting to be stored.
type File struct {
	Slot        DocumentSlot `json:"slot"`
	Name        string       `json:"name"`
	ContentType string       `json:"contentType"`
	Content     []byte       `json:"content"`
}

// ArtifactRef points at a document held by the custody store.
type ArtifactRef struct {
	Slot        DocumentSlot `json:"slot"`
	Location    string       `json:"location"`
	FileName    string       `json:"fileName"`
	ContentType string       `json:"contentType,omitempty"`
	Size        int64        `json:"size"`
	Signed      bool         `json:"signed,omitempty"`
	StoredAt    time.Time    `json:"storedAt"`
}
