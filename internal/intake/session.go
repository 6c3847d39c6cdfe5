package intake

import (
	"sync"
	"time"

	"qualification-workers/internal/inventory"
	"qualification-workers/internal/models"
	"qualification-workers/internal/qualification/requirements"
)

// Session is one prospect's pass through the intake flow. It is scoped to a
// single actor and snapshotted to the session store after every change.
type Session struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	FormID   string `json:"formId,omitempty"`
	Step     Step   `json:"step"`

	Preferences     models.Preferences      `json:"preferences"`
	MonthlyIncome   float64                 `json:"monthlyIncome"`
	Contact         models.Contact          `json:"contact"`
	Capacity        models.CapacityEstimate `json:"capacity"`
	WantsValidation *bool                   `json:"wantsValidation,omitempty"`

	Documents    map[models.DocumentSlot]models.ArtifactRef `json:"documents,omitempty"`
	Requirements *requirements.Resolved                     `json:"requirements,omitempty"`

	ProspectID       string `json:"prospectId,omitempty"`
	SavedInitialData bool   `json:"savedInitialData"`
	SavedFinalData   bool   `json:"savedFinalData"`

	Matches        []inventory.MatchResult `json:"matches,omitempty"`
	MatchesLoaded  bool                    `json:"matchesLoaded"`
	MatchingStatus string                  `json:"matchingStatus,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Session) clone() *Session {
	c := *s
	c.Preferences.Zones = append([]string(nil), s.Preferences.Zones...)
	if s.WantsValidation != nil {
		v := *s.WantsValidation
		c.WantsValidation = &v
	}
	if s.Documents != nil {
		c.Documents = make(map[models.DocumentSlot]models.ArtifactRef, len(s.Documents))
		for k, v := range s.Documents {
			c.Documents[k] = v
		}
	}
	if s.Requirements != nil {
		r := *s.Requirements
		c.Requirements = &r
	}
	c.Matches = append([]inventory.MatchResult(nil), s.Matches...)
	return &c
}

// resetFrom clears the save flags and derived results of every checkpoint at
// or after target, so re-advancing repeats the write.
func (s *Session) resetFrom(target Step) {
	if target.Before(StepResults) {
		s.SavedFinalData = false
		s.Matches = nil
		s.MatchesLoaded = false
		s.MatchingStatus = ""
	}
	if target.Before(StepValidationDecision) {
		s.SavedInitialData = false
	}
}

// entry guards one live session.
type entry struct {
	mu       sync.Mutex
	session  *Session
	inFlight bool
	// target is the step an in-flight forward transition is moving to.
	target Step
	// lastSeen is guarded by Service.mu.
	lastSeen time.Time
}

// begin marks a write in flight; the caller must hold e.mu.
func (e *entry) begin(target Step) error {
	if e.inFlight {
		return ErrBusy
	}
	e.inFlight = true
	e.target = target
	return nil
}

func (e *entry) end() {
	e.inFlight = false
	e.target = ""
}
