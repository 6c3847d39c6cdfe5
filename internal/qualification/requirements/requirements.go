// Package requirements resolves which document slots a tenant's intake form requires.
package requirements

import "qualification-workers/internal/models"

// Resolved is the effective requirement set with every flag decided.
type Resolved struct {
	IDDocument          bool `json:"idDocument"`
	IncomeRegistration  bool `json:"incomeRegistration"`
	PayStub             bool `json:"payStub"`
	CreditAuthorization bool `json:"creditAuthorization"`
}

// Resolve merges form over tenant over the require-everything default. A nil
// form means the form carries no override record.
func Resolve(tenant models.DocumentRequirements, form *models.DocumentRequirements) Resolved {
	pick := func(slot models.DocumentSlot) bool {
		if v := form.Flag(slot); v != nil {
			return *v
		}
		if v := tenant.Flag(slot); v != nil {
			return *v
		}
		return true
	}

	return Resolved{
		IDDocument:          pick(models.SlotIDDocument),
		IncomeRegistration:  pick(models.SlotIncomeRegistration),
		PayStub:             pick(models.SlotPayStub),
		CreditAuthorization: pick(models.SlotCreditAuthorization),
	}
}

// ForTenant resolves the requirements carried by a tenant config.
func ForTenant(cfg models.TenantConfig) Resolved {
	return Resolve(cfg.Requirements, cfg.FormRequirements)
}

// Requires reports whether slot is mandatory.
func (r Resolved) Requires(slot models.DocumentSlot) bool {
	switch slot {
	case models.SlotIDDocument:
		return r.IDDocument
	case models.SlotIncomeRegistration:
		return r.IncomeRegistration
	case models.SlotPayStub:
		return r.PayStub
	case models.SlotCreditAuthorization:
		return r.CreditAuthorization
	}
	return false
}

// Required lists mandatory slots in presentation order.
func (r Resolved) Required() []models.DocumentSlot {
	out := make([]models.DocumentSlot, 0, len(models.DocumentSlots))
	for _, slot := range models.DocumentSlots {
		if r.Requires(slot) {
			out = append(out, slot)
		}
	}
	return out
}

// Missing lists mandatory slots with no attached artifact.
func (r Resolved) Missing(attached map[models.DocumentSlot]models.ArtifactRef) []models.DocumentSlot {
	var out []models.DocumentSlot
	for _, slot := range r.Required() {
		if _, ok := attached[slot]; !ok {
			out = append(out, slot)
		}
	}
	return out
}

// Satisfied reports whether every mandatory slot has an artifact.
func (r Resolved) Satisfied(attached map[models.DocumentSlot]models.ArtifactRef) bool {
	return len(r.Missing(attached)) == 0
}
