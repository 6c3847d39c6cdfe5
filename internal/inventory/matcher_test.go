package inventory

import (
	"context"
	"errors"
	"testing"

	"qualification-workers/internal/common/logger"
	"qualification-workers/internal/models"

	"github.com/stretchr/testify/assert"
)

type stubReader struct {
	items []models.InventoryItem
	err   error
	calls int
}

func (s *stubReader) ListAvailable(_ context.Context, _ string) ([]models.InventoryItem, error) {
	s.calls++
	return s.items, s.err
}

func TestMatcher_MatchForTenant(t *testing.T) {
	reader := &stubReader{items: []models.InventoryItem{
		property("p-1", 500000, "A", 2, 1),
		property("p-2", 700000, "A", 2, 1),
	}}
	m := NewMatcher(reader, Options{}, logger.NewTestLogger(t))

	got := m.MatchForTenant(context.Background(), "t-1", capacityOf(600000), Criteria{Zones: []string{"A"}})
	assert.Equal(t, []string{"p-1"}, ids(got))
}

func TestMatcher_ReaderFailureYieldsEmpty(t *testing.T) {
	reader := &stubReader{err: errors.New("es down")}
	m := NewMatcher(reader, Options{}, logger.NewTestLogger(t))

	got := m.MatchForTenant(context.Background(), "t-1", capacityOf(600000), Criteria{})
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 1, reader.calls)
}

func TestMatcher_IneligibleSkipsRead(t *testing.T) {
	reader := &stubReader{}
	m := NewMatcher(reader, Options{}, logger.NewNoOpLogger())

	got := m.MatchForTenant(context.Background(), "t-1", models.CapacityEstimate{}, Criteria{})
	assert.Empty(t, got)
	assert.Zero(t, reader.calls)
}

type stubCandidateReader struct {
	stubReader
	filters []Filter
}

func (s *stubCandidateReader) ListCandidates(_ context.Context, _ string, f Filter) ([]models.InventoryItem, error) {
	s.filters = append(s.filters, f)
	return s.items, s.err
}

func TestMatcher_PushesZonesAndBudgetToReader(t *testing.T) {
	reader := &stubCandidateReader{stubReader: stubReader{items: []models.InventoryItem{
		property("p-1", 500000, "A", 2, 1),
		property("p-2", 550000, "B", 2, 1),
	}}}
	m := NewMatcher(reader, Options{}, logger.NewTestLogger(t))

	got := m.MatchForTenant(context.Background(), "t-1", capacityOf(600000), Criteria{Zones: []string{"A"}})
	assert.Equal(t, []string{"p-1"}, ids(got), "the full predicate still runs on candidates")
	assert.Zero(t, reader.calls, "ListAvailable is not used when candidates can be filtered")
	assert.Equal(t, []Filter{{Zones: []string{"A"}, MaxPrice: 600000}}, reader.filters)
}

func TestMatcher_FindsMatchBeyondFirstPage(t *testing.T) {
	docs := make([]map[string]interface{}, 0, 9)
	for i := 1; i <= 8; i++ {
		docs = append(docs, propertyDoc(i, "B", 100000))
	}
	docs = append(docs, propertyDoc(9, "A", 150000))
	client, bodies := pagedIndex(t, docs)

	m := NewMatcher(NewESReader(client, "inventory", 8), Options{Limit: 2}, logger.NewTestLogger(t))
	got := m.MatchForTenant(context.Background(), "t-1", capacityOf(190000), Criteria{Zones: []string{"A"}})

	assert.Equal(t, []string{"p-09"}, ids(got))
	assert.Len(t, *bodies, 2)
}
