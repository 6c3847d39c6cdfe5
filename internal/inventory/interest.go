package inventory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// InterestWriter records that a prospect flagged interest in an item.
type InterestWriter interface {
	RecordInterest(ctx context.Context, prospectID, itemID string) (bool, error)
}

type PostgresInterestWriter struct {
	db *sql.DB
}

func NewPostgresInterestWriter(db *sql.DB) *PostgresInterestWriter {
	return &PostgresInterestWriter{db: db}
}

const insertInterestQuery = `INSERT INTO prospect_interests (id, prospect_id, item_id)
VALUES ($1, $2, $3)
ON CONFLICT (prospect_id, item_id) DO NOTHING`

// RecordInterest is idempotent on the (prospect, item) pair. It reports
// whether a new record was written.
func (w *PostgresInterestWriter) RecordInterest(ctx context.Context, prospectID, itemID string) (bool, error) {
	res, err := w.db.ExecContext(ctx, insertInterestQuery, uuid.NewString(), prospectID, itemID)
	if err != nil {
		return false, fmt.Errorf("record interest: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record interest: %w", err)
	}
	return n > 0, nil
}
