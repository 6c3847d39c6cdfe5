// internal/workers/prospect/create-prospect/handler_test.go
package createprospect

import (
	"context"
	"database/sql"
	stderrors "errors"
	"regexp"
	"testing"
	"time"

	"qualification-workers/internal/common/errors"
	"qualification-workers/internal/common/logger"
	"qualification-workers/internal/models"
	"qualification-workers/internal/prospects"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T, db *sql.DB) *Handler {
	return NewHandler(&Config{Timeout: 5 * time.Second}, prospects.NewPostgresStore(db), logger.NewTestLogger(t))
}

func createInput() *Input {
	return &Input{
		TenantID:      "t-1",
		SessionID:     "s-1",
		Contact:       models.Contact{Name: "Ana", Email: "ana@example.com", Phone: "61234567"},
		MonthlyIncome: 3200,
		Preferences:   models.Preferences{Zones: []string{"A"}},
	}
}

var upsertPattern = regexp.QuoteMeta("INSERT INTO prospects")

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(upsertPattern).
		WithArgs(sqlmock.AnyArg(), "t-1", "s-1", "Ana", "ana@example.com", "61234567", 3200.0,
			sqlmock.AnyArg(), []byte(`{"maxPropertyPrice":190000,"monthlyPayment":1080,"downPaymentPercent":0.1,"downPaymentAmount":19000}`),
			"contacted").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p-1"))

	output, err := createTestHandler(t, db).Execute(context.Background(), createInput())
	require.NoError(t, err)
	assert.Equal(t, "p-1", output.ProspectID)
	assert.Equal(t, "contacted", output.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_UsesProvidedCapacity(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	input := createInput()
	input.Capacity = &models.CapacityEstimate{}

	mock.ExpectQuery(upsertPattern).
		WithArgs(sqlmock.AnyArg(), "t-1", "s-1", "Ana", "ana@example.com", "61234567", 3200.0,
			sqlmock.AnyArg(), []byte(`{"maxPropertyPrice":0,"monthlyPayment":0,"downPaymentPercent":0,"downPaymentAmount":0}`),
			"contacted").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p-2"))

	output, err := createTestHandler(t, db).Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "p-2", output.ProspectID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_DatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(upsertPattern).WillReturnError(stderrors.New("connection reset by peer"))

	_, err = createTestHandler(t, db).Execute(context.Background(), createInput())
	require.Error(t, err)

	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeProspectSaveFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.Equal(t, "s-1", stdErr.Metadata["sessionId"])
}

func TestInputSchema(t *testing.T) {
	valid := `{"tenantId":"t-1","sessionId":"s-1","contact":{"name":"Ana","email":"ana@example.com","phone":"61234567"}}`
	assert.NoError(t, inputSchema.Validate(valid))

	assert.Error(t, inputSchema.Validate(`{"tenantId":"t-1","sessionId":"s-1"}`))
	assert.Error(t, inputSchema.Validate(`{"tenantId":"t-1","sessionId":"s-1","contact":{"name":"Ana","email":"nope","phone":"61234567"}}`))
	assert.Error(t, inputSchema.Validate(`{"tenantId":"t-1","sessionId":"s-1","contact":{"name":"Ana","email":"a@b.co","phone":"123"}}`))
}
