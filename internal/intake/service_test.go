package intake

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"qualification-workers/internal/common/logger"
	"qualification-workers/internal/documents"
	"qualification-workers/internal/inventory"
	"qualification-workers/internal/models"
	"qualification-workers/internal/prospects"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fakes
// ==========================

type fakeProspects struct {
	mu          sync.Mutex
	creates     []prospects.NewProspect
	finalizes   []prospects.FinalizeRequest
	createFails int
	finalFails  int
	started     chan struct{}
	release     chan struct{}
}

func (f *fakeProspects) CreateProspect(_ context.Context, p prospects.NewProspect) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createFails > 0 {
		f.createFails--
		return "", errors.New("connection reset")
	}
	f.creates = append(f.creates, p)
	return "prospect-" + p.SessionID, nil
}

func (f *fakeProspects) FinalizeProspect(_ context.Context, _ string, req prospects.FinalizeRequest) error {
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finalFails > 0 {
		f.finalFails--
		return errors.New("connection reset")
	}
	f.finalizes = append(f.finalizes, req)
	return nil
}

func (f *fakeProspects) GetProspect(context.Context, string) (*models.Prospect, error) {
	return nil, prospects.ErrProspectNotFound
}

func (f *fakeProspects) finalizeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.finalizes)
}

type fakeTenants struct {
	mu  sync.Mutex
	cfg *models.TenantConfig
	err error
}

func (f *fakeTenants) GetTenantConfig(context.Context, string, string) (*models.TenantConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c := *f.cfg
	return &c, nil
}

func (f *fakeTenants) set(cfg *models.TenantConfig) {
	f.mu.Lock()
	f.cfg = cfg
	f.mu.Unlock()
}

type fakeMatcher struct {
	mu      sync.Mutex
	calls   int
	results []inventory.MatchResult
}

func (f *fakeMatcher) MatchForTenant(context.Context, string, models.CapacityEstimate, inventory.Criteria) []inventory.MatchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.results
}

type fakeCustody struct {
	mu     sync.Mutex
	stored []models.File
	err    error
}

func (f *fakeCustody) Store(_ context.Context, tenantID, prospectID string, file models.File) (models.ArtifactRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.ArtifactRef{}, f.err
	}
	f.stored = append(f.stored, file)
	return models.ArtifactRef{
		Slot:     file.Slot,
		Location: "custody://" + tenantID + "/" + prospectID + "/" + string(file.Slot),
		FileName: file.Name,
		Size:     int64(len(file.Content)),
	}, nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (f *fakeEvents) Publish(_ context.Context, eventType, _ string, _ interface{}) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
	return "msg-1", f.err
}

type testEnv struct {
	svc       *Service
	prospects *fakeProspects
	tenants   *fakeTenants
	matcher   *fakeMatcher
	custody   *fakeCustody
	events    *fakeEvents
	store     *RedisSessionStore
	redis     *miniredis.Miniredis
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func proTenant() *models.TenantConfig {
	return &models.TenantConfig{
		TenantID: "tenant-1",
		Plan:     models.PlanPro,
		Zones:    []string{"A", "B"},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := &testEnv{
		prospects: &fakeProspects{},
		tenants:   &fakeTenants{cfg: proTenant()},
		matcher: &fakeMatcher{results: []inventory.MatchResult{{
			Item:           models.InventoryItem{ID: "p-1", Price: 150000, Zone: "A", Status: "active"},
			BudgetHeadroom: 40000,
		}}},
		custody: &fakeCustody{},
		events:  &fakeEvents{},
		store:   NewRedisSessionStore(rdb, time.Hour),
		redis:   mr,
	}

	env.svc = NewService(Options{IncomeFloor: 1, SaveAttempts: 2, RetryBaseDelay: time.Millisecond}, Dependencies{
		Prospects: env.prospects,
		Tenants:   env.tenants,
		Matcher:   env.matcher,
		Custody:   env.custody,
		Signer:    documents.NewSigner("credit-authorization-v1"),
		Sessions:  env.store,
		Events:    env.events,
	}, logger.NewTestLogger(t))

	var n int
	env.svc.newID = func() string {
		n++
		return "session-" + string(rune('0'+n))
	}
	return env
}

// toDecision drives a new session up to the validation decision.
func (env *testEnv) toDecision(t *testing.T, income float64) *Session {
	t.Helper()
	ctx := context.Background()

	sess, err := env.svc.Start(ctx, "tenant-1", "form-1")
	require.NoError(t, err)

	_, err = env.svc.SetPreferences(ctx, sess.ID, models.Preferences{
		PropertyType: "apartment",
		Zones:        []string{" A ", ""},
		Bedrooms:     intPtr(2),
	})
	require.NoError(t, err)
	_, err = env.svc.Advance(ctx, sess.ID)
	require.NoError(t, err)

	_, err = env.svc.SetIncome(ctx, sess.ID, income)
	require.NoError(t, err)
	_, err = env.svc.Advance(ctx, sess.ID)
	require.NoError(t, err)

	_, err = env.svc.SetContact(ctx, sess.ID, models.Contact{Name: "Ana Pérez", Email: "ana@example.com", Phone: "+507 6123-4567"})
	require.NoError(t, err)
	sess, err = env.svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, StepValidationDecision, sess.Step)
	return sess
}

func signaturePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func pdf(slot models.DocumentSlot) models.File {
	return models.File{Slot: slot, Name: string(slot) + ".pdf", ContentType: "application/pdf", Content: []byte("%PDF")}
}

// ==========================
// Happy paths
// ==========================

func TestService_DeclineValidation_GoesStraightToResults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := env.toDecision(t, 3200)

	assert.Equal(t, []string{"A"}, sess.Preferences.Zones, "blank zones are dropped")
	assert.True(t, sess.SavedInitialData)
	assert.Equal(t, "prospect-"+sess.ID, sess.ProspectID)
	assert.Equal(t, int64(190000), sess.Capacity.MaxPropertyPrice)

	_, err := env.svc.Decide(ctx, sess.ID, false)
	require.NoError(t, err)
	sess, err = env.svc.Advance(ctx, sess.ID)
	require.NoError(t, err)

	assert.Equal(t, StepResults, sess.Step)
	assert.True(t, sess.SavedFinalData)
	assert.Nil(t, sess.Requirements, "documents step was skipped")

	require.Len(t, env.prospects.finalizes, 1)
	final := env.prospects.finalizes[0]
	assert.Empty(t, final.Documents)
	assert.False(t, final.WantsValidation)
	assert.Equal(t, models.ProspectCompleted, final.Status())
	assert.Equal(t, models.CapacityEstimate{
		MaxPropertyPrice: 190000, MonthlyPayment: 1080, DownPaymentPercent: 0.10, DownPaymentAmount: 19000,
	}, final.Capacity)

	out, err := env.svc.Results(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, out.Eligible)
	assert.Equal(t, NoticeNone, out.Notice)
	assert.Equal(t, MatchingOK, out.MatchingStatus)
	require.Len(t, out.Matches, 1)
	assert.Equal(t, 1, env.matcher.calls)

	assert.Equal(t, []string{EventProspectFinalized}, env.events.events)
}

func TestService_ValidationFlow_CollectsRequiredDocuments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cfg := proTenant()
	cfg.Requirements = models.DocumentRequirements{PayStub: boolPtr(false)}
	env.tenants.set(cfg)

	sess := env.toDecision(t, 3200)
	_, err := env.svc.Decide(ctx, sess.ID, true)
	require.NoError(t, err)
	sess, err = env.svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, StepDocuments, sess.Step)
	require.NotNil(t, sess.Requirements)
	assert.False(t, sess.Requirements.PayStub)

	_, err = env.svc.Advance(ctx, sess.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.svc.AttachDocument(ctx, sess.ID, pdf(models.SlotIDDocument))
	require.NoError(t, err)
	_, err = env.svc.AttachDocument(ctx, sess.ID, pdf(models.SlotIncomeRegistration))
	require.NoError(t, err)

	_, err = env.svc.Advance(ctx, sess.ID)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, StepDocuments, vErr.Step)
	assert.Contains(t, vErr.Reason, "credit_authorization")

	sess, err = env.svc.SignCreditAuthorization(ctx, sess.ID, documents.SignatureRequest{
		FullName: "Ana Pérez", IDNumber: "8-123-456", SignaturePNG: signaturePNG(t),
	})
	require.NoError(t, err)
	assert.True(t, sess.Documents[models.SlotCreditAuthorization].Signed)

	sess, err = env.svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StepResults, sess.Step)

	require.Len(t, env.prospects.finalizes, 1)
	final := env.prospects.finalizes[0]
	assert.Len(t, final.Documents, 3)
	assert.Equal(t, models.ProspectValidationRequested, final.Status())
	assert.Len(t, env.custody.stored, 3)
}

// ==========================
// Guards
// ==========================

func TestService_Guards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess, err := env.svc.Start(ctx, "tenant-1", "")
	require.NoError(t, err)

	_, err = env.svc.SetPreferences(ctx, sess.ID, models.Preferences{Zones: []string{"  "}})
	require.NoError(t, err)
	_, err = env.svc.Advance(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrValidation)

	got, err := env.svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StepPreferences, got.Step)

	_, err = env.svc.SetIncome(ctx, sess.ID, 3000)
	assert.ErrorIs(t, err, ErrValidation, "income cannot be edited at preferences")

	_, err = env.svc.SetPreferences(ctx, sess.ID, models.Preferences{Zones: []string{"A"}})
	require.NoError(t, err)
	_, err = env.svc.Advance(ctx, sess.ID)
	require.NoError(t, err)

	_, err = env.svc.SetIncome(ctx, sess.ID, 0.5)
	require.NoError(t, err)
	_, err = env.svc.Advance(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.svc.SetIncome(ctx, sess.ID, 500)
	require.NoError(t, err)
	sess, err = env.svc.Advance(ctx, sess.ID)
	require.NoError(t, err, "a zero estimate still advances")
	assert.False(t, sess.Capacity.Eligible())

	tests := []struct {
		name    string
		contact models.Contact
		field   string
	}{
		{"missing name", models.Contact{Email: "a@b.co", Phone: "61234567"}, "name"},
		{"bad email", models.Contact{Name: "Ana", Email: "not-an-email", Phone: "61234567"}, "email"},
		{"short phone", models.Contact{Name: "Ana", Email: "a@b.co", Phone: "123-45"}, "phone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.SetContact(ctx, sess.ID, tt.contact)
			require.NoError(t, err)
			_, err = env.svc.Advance(ctx, sess.ID)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
	assert.Empty(t, env.prospects.creates)

	_, err = env.svc.Start(ctx, " ", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestService_ZeroCapacity_NoPreApproval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := env.toDecision(t, 500)

	_, err := env.svc.Decide(ctx, sess.ID, false)
	require.NoError(t, err)
	_, err = env.svc.Advance(ctx, sess.ID)
	require.NoError(t, err)

	out, err := env.svc.Results(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, out.Eligible)
	assert.Equal(t, NoticeNoPreApproval, out.Notice)
	assert.Equal(t, MatchingIneligible, out.MatchingStatus)
	assert.Empty(t, out.Matches)
	assert.Equal(t, 0, env.matcher.calls)
	assert.Len(t, env.prospects.finalizes, 1, "a zero estimate is still saved")
}

func TestService_PlanNotEntitled_NoMatching(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cfg := proTenant()
	cfg.Plan = models.PlanBasic
	env.tenants.set(cfg)

	sess := env.toDecision(t, 3200)
	_, err := env.svc.Decide(ctx, sess.ID, false)
	require.NoError(t, err)
	_, err = env.svc.Advance(ctx, sess.ID)
	require.NoError(t, err)

	out, err := env.svc.Results(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, MatchingNotEntitled, out.MatchingStatus)
	assert.Equal(t, NoticeNoInventoryMatch, out.Notice)
	assert.Equal(t, 0, env.matcher.calls)
}

func TestService_TenantConfigUnavailable_RequiresEveryDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := env.toDecision(t, 3200)

	env.tenants.mu.Lock()
	env.tenants.err = errors.New("postgres down")
	env.tenants.mu.Unlock()

	_, err := env.svc.Decide(ctx, sess.ID, true)
	require.NoError(t, err)
	sess, err = env.svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentSlots, sess.Requirements.Required())
}

// ==========================
// Persistence checkpoints
// ==========================

func TestService_InitialSave_RetriesThenSucceeds(t *testing.T) {
	env := newTestEnv(t)
	env.prospects.createFails = 1

	sess := env.toDecision(t, 3200)
	assert.True(t, sess.SavedInitialData)
	assert.Len(t, env.prospects.creates, 1)
}

func TestService_InitialSave_FailureKeepsDataOnStep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.prospects.createFails = 2

	sess, err := env.svc.Start(ctx, "tenant-1", "")
	require.NoError(t, err)
	_, _ = env.svc.SetPreferences(ctx, sess.ID, models.Preferences{Zones: []string{"A"}})
	_, _ = env.svc.Advance(ctx, sess.ID)
	_, _ = env.svc.SetIncome(ctx, sess.ID, 4000)
	_, _ = env.svc.Advance(ctx, sess.ID)
	_, _ = env.svc.SetContact(ctx, sess.ID, models.Contact{Name: "Ana", Email: "ana@example.com", Phone: "61234567"})

	_, err = env.svc.Advance(ctx, sess.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)

	got, err := env.svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StepContact, got.Step)
	assert.Equal(t, "Ana", got.Contact.Name)
	assert.False(t, got.SavedInitialData)

	got, err = env.svc.Advance(ctx, sess.ID)
	require.NoError(t, err, "try again succeeds")
	assert.Equal(t, StepValidationDecision, got.Step)
}

func TestService_FinalSave_FailureStaysOnDecision(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := env.toDecision(t, 3200)
	env.prospects.finalFails = 2

	_, err := env.svc.Decide(ctx, sess.ID, false)
	require.NoError(t, err)
	_, err = env.svc.Advance(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrPersistence)

	got, err := env.svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StepValidationDecision, got.Step)
	assert.False(t, got.SavedFinalData)
	assert.Empty(t, env.events.events)
}

func TestService_BackFromResults_ResetsFinalSave(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := env.toDecision(t, 3200)

	_, _ = env.svc.Decide(ctx, sess.ID, false)
	_, err := env.svc.Advance(ctx, sess.ID)
	require.NoError(t, err)

	back, err := env.svc.Back(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StepValidationDecision, back.Step)
	assert.False(t, back.SavedFinalData)
	assert.True(t, back.SavedInitialData)
	assert.Empty(t, back.Matches)

	_, err = env.svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, env.prospects.finalizeCount(), "re-advancing writes again")
	assert.Equal(t, 2, env.matcher.calls)
}

func TestService_BackToContact_ResetsInitialSave(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := env.toDecision(t, 3200)

	back, err := env.svc.Back(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StepContact, back.Step)
	assert.False(t, back.SavedInitialData)
	assert.Equal(t, sess.ProspectID, back.ProspectID)

	_, err = env.svc.SetContact(ctx, sess.ID, models.Contact{Name: "Ana P.", Email: "ana@example.com", Phone: "61234567"})
	require.NoError(t, err)
	_, err = env.svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, env.prospects.creates, 2)
	assert.Equal(t, "Ana P.", env.prospects.creates[1].Contact.Name)
}

func TestService_BackAtFirstStep_NoOp(t *testing.T) {
	env := newTestEnv(t)
	sess, err := env.svc.Start(context.Background(), "tenant-1", "")
	require.NoError(t, err)

	got, err := env.svc.Back(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StepPreferences, got.Step)
}

func TestService_RequirementToggledOff_DoesNotBlockOnReentry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := env.toDecision(t, 3200)

	_, _ = env.svc.Decide(ctx, sess.ID, true)
	_, err := env.svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	for _, slot := range []models.DocumentSlot{models.SlotIDDocument, models.SlotIncomeRegistration, models.SlotCreditAuthorization} {
		_, err = env.svc.AttachDocument(ctx, sess.ID, pdf(slot))
		require.NoError(t, err)
	}
	_, err = env.svc.Advance(ctx, sess.ID)
	require.ErrorIs(t, err, ErrValidation, "pay stub still required")

	cfg := proTenant()
	cfg.Requirements = models.DocumentRequirements{PayStub: boolPtr(false)}
	env.tenants.set(cfg)

	_, err = env.svc.Back(ctx, sess.ID)
	require.NoError(t, err)
	_, err = env.svc.Advance(ctx, sess.ID)
	require.NoError(t, err)

	got, err := env.svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StepResults, got.Step)
}

// ==========================
// Concurrency
// ==========================

func TestService_FinalSave_SingleFlightWithCatchUp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := env.toDecision(t, 3200)
	_, _ = env.svc.Decide(ctx, sess.ID, false)

	env.prospects.started = make(chan struct{}, 1)
	env.prospects.release = make(chan struct{})

	advanceDone := make(chan error, 1)
	go func() {
		_, err := env.svc.Advance(ctx, sess.ID)
		advanceDone <- err
	}()
	<-env.prospects.started

	_, err := env.svc.Advance(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrBusy)
	_, err = env.svc.Back(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrBusy)
	_, err = env.svc.SetContact(ctx, sess.ID, models.Contact{})
	assert.ErrorIs(t, err, ErrBusy)

	catchUpDone := make(chan error, 1)
	go func() {
		catchUpDone <- env.svc.EnterResults(ctx, sess.ID)
	}()

	close(env.prospects.release)
	require.NoError(t, <-advanceDone)
	require.NoError(t, <-catchUpDone)

	assert.Equal(t, 1, env.prospects.finalizeCount())
	require.NoError(t, env.svc.EnterResults(ctx, sess.ID))
	assert.Equal(t, 1, env.prospects.finalizeCount())
}

func TestService_EnterResults_CatchesUpRestoredSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.Save(ctx, &Session{
		ID:               "restored-1",
		TenantID:         "tenant-1",
		Step:             StepResults,
		Capacity:         models.CapacityEstimate{MaxPropertyPrice: 190000, MonthlyPayment: 1080, DownPaymentPercent: 0.1, DownPaymentAmount: 19000},
		WantsValidation:  boolPtr(false),
		ProspectID:       "prospect-9",
		SavedInitialData: true,
	}))

	require.NoError(t, env.svc.EnterResults(ctx, "restored-1"))
	require.NoError(t, env.svc.EnterResults(ctx, "restored-1"))
	assert.Equal(t, 1, env.prospects.finalizeCount())

	out, err := env.svc.Results(ctx, "restored-1")
	require.NoError(t, err)
	assert.Len(t, out.Matches, 1)
	assert.Equal(t, 1, env.matcher.calls)
}

func TestService_EnterResults_BeforeResults(t *testing.T) {
	env := newTestEnv(t)
	sess, err := env.svc.Start(context.Background(), "tenant-1", "")
	require.NoError(t, err)

	err = env.svc.EnterResults(context.Background(), sess.ID)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, env.prospects.finalizeCount())
}

// ==========================
// Documents & sessions
// ==========================

func TestService_AttachDocument_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := env.toDecision(t, 3200)

	_, err := env.svc.AttachDocument(ctx, sess.ID, pdf(models.SlotIDDocument))
	assert.ErrorIs(t, err, ErrValidation, "not at documents yet")

	_, _ = env.svc.Decide(ctx, sess.ID, true)
	_, err = env.svc.Advance(ctx, sess.ID)
	require.NoError(t, err)

	_, err = env.svc.AttachDocument(ctx, sess.ID, models.File{Slot: "selfie", Content: []byte("x")})
	assert.ErrorIs(t, err, ErrValidation)

	env.custody.err = documents.ErrCustodyUnauthorized
	_, err = env.svc.AttachDocument(ctx, sess.ID, pdf(models.SlotIDDocument))
	assert.ErrorIs(t, err, documents.ErrCustodyUnauthorized)

	got, err := env.svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Documents)

	_, err = env.svc.SignCreditAuthorization(ctx, sess.ID, documents.SignatureRequest{FullName: "Ana"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestService_RestoresFromSessionStore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := env.toDecision(t, 3200)

	env.svc.Forget(sess.ID)

	got, err := env.svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StepValidationDecision, got.Step)
	assert.Equal(t, sess.ProspectID, got.ProspectID)
	assert.Equal(t, sess.Capacity, got.Capacity)

	_, err = env.svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestService_EventFailureDoesNotBlockResults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.events.err = errors.New("sns throttled")
	sess := env.toDecision(t, 3200)

	_, _ = env.svc.Decide(ctx, sess.ID, false)
	got, err := env.svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StepResults, got.Step)
}

func TestService_EvictsIdleSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	env.svc.now = func() time.Time { return clock }
	env.svc.opts.IdleTTL = time.Hour

	idle := env.toDecision(t, 3200)
	writing, err := env.svc.Start(ctx, "tenant-1", "")
	require.NoError(t, err)

	env.svc.mu.Lock()
	env.svc.sessions[writing.ID].inFlight = true
	env.svc.mu.Unlock()

	clock = clock.Add(30 * time.Minute)
	_, err = env.svc.Get(ctx, idle.ID)
	require.NoError(t, err)

	clock = clock.Add(90 * time.Minute)
	fresh, err := env.svc.Start(ctx, "tenant-1", "")
	require.NoError(t, err)

	env.svc.mu.Lock()
	_, idleKept := env.svc.sessions[idle.ID]
	_, writingKept := env.svc.sessions[writing.ID]
	_, freshKept := env.svc.sessions[fresh.ID]
	remaining := len(env.svc.sessions)
	env.svc.mu.Unlock()

	assert.False(t, idleKept, "idle session is evicted")
	assert.True(t, writingKept, "a session with a write in flight is kept")
	assert.True(t, freshKept)
	assert.Equal(t, 2, remaining)

	got, err := env.svc.Get(ctx, idle.ID)
	require.NoError(t, err, "an evicted session is restored from its snapshot")
	assert.Equal(t, StepValidationDecision, got.Step)
	assert.Equal(t, idle.ProspectID, got.ProspectID)
}

func TestService_EvictionDisabledWithoutIdleTTL(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	env.svc.now = func() time.Time { return clock }

	first, err := env.svc.Start(ctx, "tenant-1", "")
	require.NoError(t, err)
	clock = clock.Add(48 * time.Hour)
	_, err = env.svc.Start(ctx, "tenant-1", "")
	require.NoError(t, err)

	env.svc.mu.Lock()
	_, kept := env.svc.sessions[first.ID]
	env.svc.mu.Unlock()
	assert.True(t, kept)
}
