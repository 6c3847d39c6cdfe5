// Package intake drives a prospect through the qualification flow: preferences,
// income, contact, the validation decision, optional document collection and
// results. Transitions are guarded by an explicit table; the two persistence
// checkpoints run with retries and the final one is single-flight per session.
package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"qualification-workers/internal/common/config"
	"qualification-workers/internal/common/logger"
	"qualification-workers/internal/common/metrics"
	"qualification-workers/internal/documents"
	"qualification-workers/internal/inventory"
	"qualification-workers/internal/models"
	"qualification-workers/internal/prospects"
	"qualification-workers/internal/qualification/affordability"
	"qualification-workers/internal/qualification/requirements"
	"qualification-workers/internal/tenants"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

var (
	ErrSessionNotFound = errors.New("intake session not found")
	ErrBusy            = errors.New("intake session has a write in flight")
	ErrPersistence     = errors.New("prospect could not be saved")
)

const EventProspectFinalized = "prospect.finalized"

// Notice explains a domain-zero result. Neither case is an error.
type Notice string

const (
	NoticeNone             Notice = ""
	NoticeNoPreApproval    Notice = "no_pre_approval"
	NoticeNoInventoryMatch Notice = "no_inventory_match"
)

// Matching status recorded on the session when results are computed.
const (
	MatchingOK                = "ok"
	MatchingIneligible        = "ineligible"
	MatchingNotEntitled       = "not_entitled"
	MatchingTenantUnavailable = "tenant_unavailable"
)

// Outcome is what the results step renders.
type Outcome struct {
	SessionID      string                  `json:"sessionId"`
	ProspectID     string                  `json:"prospectId"`
	Capacity       models.CapacityEstimate `json:"capacity"`
	Eligible       bool                    `json:"eligible"`
	Matches        []inventory.MatchResult `json:"matches"`
	MatchingStatus string                  `json:"matchingStatus"`
	Notice         Notice                  `json:"notice,omitempty"`
}

type Options struct {
	IncomeFloor    float64
	SaveAttempts   int
	RetryBaseDelay time.Duration
	// IdleTTL evicts in-memory sessions untouched for this long. Zero keeps them.
	IdleTTL time.Duration
}

func OptionsFromConfig(cfg config.IntakeConfig) Options {
	return Options{
		IncomeFloor:    cfg.IncomeFloor,
		SaveAttempts:   cfg.SaveAttempts,
		RetryBaseDelay: config.GetDuration(cfg.RetryBaseDelay),
		IdleTTL:        time.Duration(cfg.SessionTTL) * time.Second,
	}
}

// MatchFinder returns ranked matches for a tenant; it never fails.
type MatchFinder interface {
	MatchForTenant(ctx context.Context, tenantID string, capacity models.CapacityEstimate, criteria inventory.Criteria) []inventory.MatchResult
}

// EventPublisher receives prospect lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, tenantID string, data interface{}) (string, error)
}

type Dependencies struct {
	Prospects prospects.Store
	Tenants   tenants.Reader
	Matcher   MatchFinder
	Custody   documents.Custody
	Signer    *documents.Signer
	Sessions  SessionStore
	// Events is optional.
	Events EventPublisher
	// Estimate defaults to the standard bracket table.
	Estimate func(monthlyIncome float64) models.CapacityEstimate
}

type Service struct {
	opts   Options
	deps   Dependencies
	logger logger.Logger
	tracer trace.Tracer

	mu        sync.Mutex
	sessions  map[string]*entry
	lastSweep time.Time
	finals    singleflight.Group

	now   func() time.Time
	newID func() string
}

func NewService(opts Options, deps Dependencies, log logger.Logger) *Service {
	if opts.SaveAttempts < 1 {
		opts.SaveAttempts = 2
	}
	if deps.Estimate == nil {
		deps.Estimate = affordability.Estimate
	}
	return &Service{
		opts:     opts,
		deps:     deps,
		logger:   log.WithFields(map[string]interface{}{"component": "intake-service"}),
		tracer:   otel.Tracer("qualification-workers/intake"),
		sessions: make(map[string]*entry),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// ==========================
// Session lifecycle
// ==========================

func (s *Service) Start(ctx context.Context, tenantID, formID string) (*Session, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, invalid(StepPreferences, "tenantId", "is required")
	}

	now := s.now().UTC()
	sess := &Session{
		ID:        s.newID(),
		TenantID:  tenantID,
		FormID:    formID,
		Step:      StepPreferences,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sweepLocked(now)
	s.sessions[sess.ID] = &entry{session: sess, lastSeen: now}
	s.mu.Unlock()

	snapshot := sess.clone()
	s.persist(ctx, snapshot)

	s.logger.Info("intake session started", map[string]interface{}{
		"sessionId": sess.ID,
		"tenantId":  tenantID,
		"formId":    formID,
	})
	return snapshot, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	e, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.clone(), nil
}

// Forget drops the in-memory copy; the next access restores the stored snapshot.
func (s *Service) Forget(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Service) lookup(ctx context.Context, id string) (*entry, error) {
	now := s.now().UTC()
	s.mu.Lock()
	s.sweepLocked(now)
	e, ok := s.sessions[id]
	if ok {
		e.lastSeen = now
	}
	s.mu.Unlock()
	if ok {
		return e, nil
	}

	if s.deps.Sessions == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess, err := s.deps.Sessions.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[id]; ok {
		existing.lastSeen = now
		return existing, nil
	}
	e = &entry{session: sess, lastSeen: now}
	s.sessions[id] = e
	return e, nil
}

// sweepLocked drops sessions idle for longer than IdleTTL. Their snapshots
// expire from the session store on the same schedule, and a session that is
// still stored is restored on its next access. Entries with a write in flight
// are kept. The caller must hold s.mu.
func (s *Service) sweepLocked(now time.Time) {
	if s.opts.IdleTTL <= 0 || now.Sub(s.lastSweep) < s.opts.IdleTTL/4 {
		return
	}
	s.lastSweep = now

	evicted := 0
	for id, e := range s.sessions {
		if now.Sub(e.lastSeen) < s.opts.IdleTTL || !e.mu.TryLock() {
			continue
		}
		busy := e.inFlight
		e.mu.Unlock()
		if busy {
			continue
		}
		delete(s.sessions, id)
		evicted++
	}
	if evicted > 0 {
		s.logger.Debug("evicted idle intake sessions", map[string]interface{}{
			"evicted":   evicted,
			"remaining": len(s.sessions),
		})
	}
}

func (s *Service) persist(ctx context.Context, snapshot *Session) {
	if s.deps.Sessions == nil {
		return
	}
	if err := s.deps.Sessions.Save(ctx, snapshot); err != nil {
		s.logger.Warn("failed to snapshot intake session", map[string]interface{}{
			"sessionId": snapshot.ID,
			"error":     err.Error(),
		})
	}
}

// ==========================
// Step data
// ==========================

// edit applies fn to the session when it is at step and no write is in flight.
func (s *Service) edit(ctx context.Context, id string, step Step, fn func(*Session) error) (*Session, error) {
	e, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.inFlight {
		e.mu.Unlock()
		return nil, ErrBusy
	}
	if e.session.Step != step {
		current := e.session.Step
		e.mu.Unlock()
		return nil, invalid(current, "", fmt.Sprintf("%s data cannot be edited at this step", step))
	}
	if err := fn(e.session); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.session.UpdatedAt = s.now().UTC()
	snapshot := e.session.clone()
	e.mu.Unlock()

	s.persist(ctx, snapshot)
	return snapshot, nil
}

func (s *Service) SetPreferences(ctx context.Context, id string, prefs models.Preferences) (*Session, error) {
	return s.edit(ctx, id, StepPreferences, func(sess *Session) error {
		prefs.PropertyType = strings.TrimSpace(prefs.PropertyType)
		sess.Preferences = prefs
		return nil
	})
}

func (s *Service) SetIncome(ctx context.Context, id string, monthlyIncome float64) (*Session, error) {
	return s.edit(ctx, id, StepIncome, func(sess *Session) error {
		sess.MonthlyIncome = monthlyIncome
		return nil
	})
}

func (s *Service) SetContact(ctx context.Context, id string, contact models.Contact) (*Session, error) {
	return s.edit(ctx, id, StepContact, func(sess *Session) error {
		sess.Contact = models.Contact{
			Name:  strings.TrimSpace(contact.Name),
			Email: strings.TrimSpace(contact.Email),
			Phone: strings.TrimSpace(contact.Phone),
		}
		return nil
	})
}

func (s *Service) Decide(ctx context.Context, id string, wantsValidation bool) (*Session, error) {
	return s.edit(ctx, id, StepValidationDecision, func(sess *Session) error {
		sess.WantsValidation = &wantsValidation
		return nil
	})
}

// AttachDocument stores f with the custody service and fills its slot.
func (s *Service) AttachDocument(ctx context.Context, id string, f models.File) (*Session, error) {
	if !f.Slot.Valid() {
		return nil, invalid(StepDocuments, "slot", fmt.Sprintf("unknown document slot %q", f.Slot))
	}
	return s.storeDocument(ctx, id, f, false)
}

// SignCreditAuthorization produces the signed credit authorization and stores
// it in the same slot a direct upload would fill.
func (s *Service) SignCreditAuthorization(ctx context.Context, id string, req documents.SignatureRequest) (*Session, error) {
	f, err := s.deps.Signer.Sign(req)
	if err != nil {
		if errors.Is(err, documents.ErrInvalidSignature) {
			return nil, invalid(StepDocuments, "signature", err.Error())
		}
		return nil, err
	}
	return s.storeDocument(ctx, id, f, true)
}

func (s *Service) storeDocument(ctx context.Context, id string, f models.File, signed bool) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "intake.StoreDocument", trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.String("document.slot", string(f.Slot)),
	))
	defer span.End()

	e, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.session.Step != StepDocuments {
		current := e.session.Step
		e.mu.Unlock()
		return nil, invalid(current, "documents", "documents can only be attached at the documents step")
	}
	if err := e.begin(StepDocuments); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	tenantID, prospectID := e.session.TenantID, e.session.ProspectID
	e.mu.Unlock()

	ref, storeErr := s.deps.Custody.Store(ctx, tenantID, prospectID, f)

	e.mu.Lock()
	e.end()
	if storeErr == nil {
		ref.Signed = signed
		if e.session.Documents == nil {
			e.session.Documents = make(map[models.DocumentSlot]models.ArtifactRef)
		}
		e.session.Documents[f.Slot] = ref
		e.session.UpdatedAt = s.now().UTC()
	}
	snapshot := e.session.clone()
	e.mu.Unlock()

	if storeErr != nil {
		span.RecordError(storeErr)
		span.SetStatus(codes.Error, "document store failed")
		s.logger.Warn("document store failed", map[string]interface{}{
			"sessionId": id,
			"slot":      string(f.Slot),
			"error":     storeErr.Error(),
		})
		return nil, storeErr
	}

	s.persist(ctx, snapshot)
	return snapshot, nil
}

// ==========================
// Transitions
// ==========================

// Advance moves the session forward when the current step's guard holds,
// running the step's checkpoint first. A failed checkpoint leaves the session
// and its data where it was.
func (s *Service) Advance(ctx context.Context, id string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "intake.Advance", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	e, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	sess := e.session
	from := sess.Step
	if e.inFlight {
		e.mu.Unlock()
		metrics.IntakeTransitions.WithLabelValues(string(from), "", "busy").Inc()
		return nil, ErrBusy
	}

	t, ok := transitions[from]
	if !ok {
		e.mu.Unlock()
		return nil, invalid(from, "", "no forward transition from this step")
	}
	if err := t.guard(sess, s.opts); err != nil {
		e.mu.Unlock()
		metrics.IntakeTransitions.WithLabelValues(string(from), "", "validation").Inc()
		return nil, err
	}

	target := t.next(sess)
	switch from {
	case StepPreferences:
		sess.Preferences.Zones = cleanZones(sess.Preferences.Zones)
	case StepIncome:
		sess.Capacity = s.deps.Estimate(sess.MonthlyIncome)
	}
	span.SetAttributes(attribute.String("intake.from", string(from)), attribute.String("intake.to", string(target)))

	cp := t.checkpointFor(target)
	if cp == checkpointNone && target != StepDocuments {
		sess.Step = target
		sess.UpdatedAt = s.now().UTC()
		snapshot := sess.clone()
		e.mu.Unlock()

		s.persist(ctx, snapshot)
		metrics.IntakeTransitions.WithLabelValues(string(from), string(target), "ok").Inc()
		return snapshot, nil
	}

	if err := e.begin(target); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.mu.Unlock()

	runErr := s.runTransition(ctx, e, cp, target)

	e.mu.Lock()
	e.end()
	if runErr == nil {
		e.session.Step = target
		e.session.UpdatedAt = s.now().UTC()
	}
	snapshot := e.session.clone()
	e.mu.Unlock()

	s.persist(ctx, snapshot)

	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "transition failed")
		metrics.IntakeTransitions.WithLabelValues(string(from), string(target), "persistence_error").Inc()
		s.logger.Error("intake transition failed", map[string]interface{}{
			"sessionId": id,
			"from":      string(from),
			"to":        string(target),
			"error":     runErr.Error(),
		})
		return nil, runErr
	}

	metrics.IntakeTransitions.WithLabelValues(string(from), string(target), "ok").Inc()
	s.logger.Info("intake advanced", map[string]interface{}{
		"sessionId": id,
		"from":      string(from),
		"to":        string(target),
	})
	return snapshot, nil
}

func (s *Service) runTransition(ctx context.Context, e *entry, cp checkpoint, target Step) error {
	switch cp {
	case checkpointInitial:
		if err := s.saveInitial(ctx, e); err != nil {
			return err
		}
	case checkpointFinal:
		if err := s.saveFinal(ctx, e); err != nil {
			return err
		}
	}

	switch target {
	case StepDocuments:
		s.snapshotRequirements(ctx, e)
	case StepResults:
		s.loadMatches(ctx, e)
	}
	return nil
}

// Back moves to the previous step and resets every checkpoint at or after it.
func (s *Service) Back(ctx context.Context, id string) (*Session, error) {
	e, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	from := e.session.Step
	if e.inFlight {
		e.mu.Unlock()
		metrics.IntakeTransitions.WithLabelValues(string(from), "", "busy").Inc()
		return nil, ErrBusy
	}

	target, ok := previous(e.session)
	if !ok {
		snapshot := e.session.clone()
		e.mu.Unlock()
		return snapshot, nil
	}
	e.session.resetFrom(target)
	e.session.Step = target
	e.session.UpdatedAt = s.now().UTC()
	snapshot := e.session.clone()
	e.mu.Unlock()

	s.persist(ctx, snapshot)
	metrics.IntakeTransitions.WithLabelValues(string(from), string(target), "back").Inc()
	return snapshot, nil
}

// EnterResults is the catch-up for the final save. It joins a primary save
// that is still in flight, writes when the session reached results without
// one, and otherwise does nothing.
func (s *Service) EnterResults(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "intake.EnterResults", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	e, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	switch {
	case e.inFlight && e.target == StepResults:
		e.mu.Unlock()
		return s.saveFinal(ctx, e)
	case e.inFlight:
		e.mu.Unlock()
		return ErrBusy
	case e.session.Step != StepResults:
		current := e.session.Step
		e.mu.Unlock()
		return invalid(current, "", "results have not been reached")
	case e.session.SavedFinalData && e.session.MatchesLoaded:
		e.mu.Unlock()
		return nil
	}
	if err := e.begin(StepResults); err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()

	err = s.saveFinal(ctx, e)
	if err == nil {
		e.mu.Lock()
		loaded := e.session.MatchesLoaded
		e.mu.Unlock()
		if !loaded {
			s.loadMatches(ctx, e)
		}
	}

	e.mu.Lock()
	e.end()
	snapshot := e.session.clone()
	e.mu.Unlock()
	s.persist(ctx, snapshot)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "catch-up save failed")
	}
	return err
}

// Results returns the outcome of a session at the results step.
func (s *Service) Results(ctx context.Context, id string) (*Outcome, error) {
	e, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	sess := e.session
	if sess.Step != StepResults {
		return nil, invalid(sess.Step, "", "results have not been reached")
	}

	out := &Outcome{
		SessionID:      sess.ID,
		ProspectID:     sess.ProspectID,
		Capacity:       sess.Capacity,
		Eligible:       sess.Capacity.Eligible(),
		Matches:        append([]inventory.MatchResult{}, sess.Matches...),
		MatchingStatus: sess.MatchingStatus,
	}
	switch {
	case !out.Eligible:
		out.Notice = NoticeNoPreApproval
	case len(out.Matches) == 0:
		out.Notice = NoticeNoInventoryMatch
	}
	return out, nil
}

// ==========================
// Checkpoints
// ==========================

func (s *Service) saveInitial(ctx context.Context, e *entry) error {
	e.mu.Lock()
	if e.session.SavedInitialData {
		e.mu.Unlock()
		metrics.ProspectSaves.WithLabelValues("initial", "skipped").Inc()
		return nil
	}
	sess := e.session
	req := prospects.NewProspect{
		TenantID:      sess.TenantID,
		SessionID:     sess.ID,
		Contact:       sess.Contact,
		MonthlyIncome: sess.MonthlyIncome,
		Preferences:   sess.Preferences,
		Capacity:      sess.Capacity,
	}
	e.mu.Unlock()

	var prospectID string
	err := retry(ctx, s.opts.SaveAttempts, s.opts.RetryBaseDelay, func(ctx context.Context) error {
		id, err := s.deps.Prospects.CreateProspect(ctx, req)
		if err != nil {
			return err
		}
		prospectID = id
		return nil
	})
	if err != nil {
		metrics.ProspectSaves.WithLabelValues("initial", "failed").Inc()
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	e.mu.Lock()
	e.session.ProspectID = prospectID
	e.session.SavedInitialData = true
	e.mu.Unlock()

	metrics.ProspectSaves.WithLabelValues("initial", "ok").Inc()
	return nil
}

// saveFinal writes the final record at most once per session until a back
// navigation clears SavedFinalData. Concurrent callers share one write.
func (s *Service) saveFinal(ctx context.Context, e *entry) error {
	e.mu.Lock()
	id := e.session.ID
	e.mu.Unlock()

	_, err, _ := s.finals.Do(id, func() (interface{}, error) {
		e.mu.Lock()
		if e.session.SavedFinalData {
			e.mu.Unlock()
			metrics.ProspectSaves.WithLabelValues("final", "skipped").Inc()
			return nil, nil
		}
		sess := e.session
		prospectID, tenantID := sess.ProspectID, sess.TenantID
		wants := sess.WantsValidation != nil && *sess.WantsValidation
		req := prospects.FinalizeRequest{
			Capacity:        sess.Capacity,
			WantsValidation: wants,
		}
		if wants {
			req.Documents = make(map[models.DocumentSlot]models.ArtifactRef, len(sess.Documents))
			for slot, ref := range sess.Documents {
				req.Documents[slot] = ref
			}
		}
		e.mu.Unlock()

		if prospectID == "" {
			metrics.ProspectSaves.WithLabelValues("final", "failed").Inc()
			return nil, fmt.Errorf("%w: session %s has no prospect record", ErrPersistence, id)
		}

		err := retry(ctx, s.opts.SaveAttempts, s.opts.RetryBaseDelay, func(ctx context.Context) error {
			return s.deps.Prospects.FinalizeProspect(ctx, prospectID, req)
		})
		if err != nil {
			metrics.ProspectSaves.WithLabelValues("final", "failed").Inc()
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}

		e.mu.Lock()
		e.session.SavedFinalData = true
		e.mu.Unlock()
		metrics.ProspectSaves.WithLabelValues("final", "ok").Inc()

		s.publishFinalized(ctx, tenantID, id, prospectID, req)
		return nil, nil
	})
	return err
}

func (s *Service) publishFinalized(ctx context.Context, tenantID, sessionID, prospectID string, req prospects.FinalizeRequest) {
	if s.deps.Events == nil {
		return
	}

	slots := make([]string, 0, len(req.Documents))
	for _, slot := range models.DocumentSlots {
		if _, ok := req.Documents[slot]; ok {
			slots = append(slots, string(slot))
		}
	}
	data := map[string]interface{}{
		"prospectId":      prospectID,
		"sessionId":       sessionID,
		"status":          string(req.Status()),
		"wantsValidation": req.WantsValidation,
		"capacity":        req.Capacity,
		"documents":       slots,
	}
	if _, err := s.deps.Events.Publish(ctx, EventProspectFinalized, tenantID, data); err != nil {
		s.logger.Warn("failed to publish prospect event", map[string]interface{}{
			"prospectId": prospectID,
			"error":      err.Error(),
		})
	}
}

// snapshotRequirements resolves the document requirements on entry to the
// documents step. Tenant config failures fall back to requiring every slot.
func (s *Service) snapshotRequirements(ctx context.Context, e *entry) {
	e.mu.Lock()
	tenantID, formID := e.session.TenantID, e.session.FormID
	e.mu.Unlock()

	resolved := requirements.Resolve(models.DocumentRequirements{}, nil)
	cfg, err := s.deps.Tenants.GetTenantConfig(ctx, tenantID, formID)
	if err != nil {
		s.logger.Warn("tenant config unavailable, requiring every document", map[string]interface{}{
			"tenantId": tenantID,
			"formId":   formID,
			"error":    err.Error(),
		})
	} else {
		resolved = requirements.ForTenant(*cfg)
	}

	e.mu.Lock()
	e.session.Requirements = &resolved
	e.mu.Unlock()
}

// loadMatches runs inventory matching once on entry to results. It never
// fails: every problem ends in an empty match list with a status.
func (s *Service) loadMatches(ctx context.Context, e *entry) {
	e.mu.Lock()
	tenantID, formID := e.session.TenantID, e.session.FormID
	capacity := e.session.Capacity
	criteria := inventory.CriteriaFromPreferences(e.session.Preferences)
	e.mu.Unlock()

	matches := []inventory.MatchResult{}
	status := MatchingOK

	if !capacity.Eligible() {
		s.setMatches(e, matches, MatchingIneligible)
		return
	}

	switch cfg, err := s.deps.Tenants.GetTenantConfig(ctx, tenantID, formID); {
	case err != nil:
		status = MatchingTenantUnavailable
		s.logger.Warn("tenant config unavailable, skipping matching", map[string]interface{}{
			"tenantId": tenantID,
			"error":    err.Error(),
		})
	case !tenants.MatchingEntitled(*cfg, s.now()):
		status = MatchingNotEntitled
	default:
		matches = s.deps.Matcher.MatchForTenant(ctx, tenantID, capacity, criteria)
	}

	s.setMatches(e, matches, status)
}

func (s *Service) setMatches(e *entry, matches []inventory.MatchResult, status string) {
	e.mu.Lock()
	e.session.Matches = matches
	e.session.MatchesLoaded = true
	e.session.MatchingStatus = status
	e.mu.Unlock()
}
