package intake

import (
	"context"
	"testing"
	"time"

	"qualification-workers/internal/models"
	"qualification-workers/internal/qualification/requirements"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSessionStore_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := NewRedisSessionStore(rdb, 30*time.Minute)
	ctx := context.Background()

	resolved := requirements.Resolve(models.DocumentRequirements{PayStub: boolPtr(false)}, nil)
	in := &Session{
		ID:              "s-1",
		TenantID:        "t-1",
		Step:            StepDocuments,
		Preferences:     models.Preferences{Zones: []string{"A"}, Bedrooms: intPtr(3)},
		MonthlyIncome:   3200,
		WantsValidation: boolPtr(true),
		Requirements:    &resolved,
		Documents: map[models.DocumentSlot]models.ArtifactRef{
			models.SlotIDDocument: {Slot: models.SlotIDDocument, Location: "custody://x"},
		},
		ProspectID:       "p-1",
		SavedInitialData: true,
	}
	require.NoError(t, store.Save(ctx, in))

	assert.True(t, mr.Exists("intake:session:s-1"))
	assert.Equal(t, 30*time.Minute, mr.TTL("intake:session:s-1"))

	out, err := store.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, StepDocuments, out.Step)
	assert.Equal(t, 3, *out.Preferences.Bedrooms)
	assert.True(t, *out.WantsValidation)
	assert.False(t, out.Requirements.PayStub)
	assert.True(t, out.Requirements.IDDocument)
	assert.Equal(t, "custody://x", out.Documents[models.SlotIDDocument].Location)

	require.NoError(t, store.Delete(ctx, "s-1"))
	_, err = store.Load(ctx, "s-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisSessionStore_Expires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := NewRedisSessionStore(rdb, time.Minute)
	require.NoError(t, store.Save(context.Background(), &Session{ID: "s-2", Step: StepIncome}))

	mr.FastForward(2 * time.Minute)
	_, err := store.Load(context.Background(), "s-2")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisSessionStore_CorruptSnapshot(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	require.NoError(t, mr.Set("intake:session:bad", "{not json"))
	_, err := NewRedisSessionStore(rdb, time.Minute).Load(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}
