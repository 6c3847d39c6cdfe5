// Package prospects persists prospect records at the intake checkpoints.
package prospects

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"qualification-workers/internal/models"

	"github.com/google/uuid"
)

var ErrProspectNotFound = errors.New("prospect not found")

// NewProspect is the payload written at the contact checkpoint.
type NewProspect struct {
	TenantID      string                  `json:"tenantId"`
	SessionID     string                  `json:"sessionId"`
	Contact       models.Contact          `json:"contact"`
	MonthlyIncome float64                 `json:"monthlyIncome"`
	Preferences   models.Preferences      `json:"preferences"`
	Capacity      models.CapacityEstimate `json:"capacity"`
}

// FinalizeRequest is the payload written at the final checkpoint.
type FinalizeRequest struct {
	Documents       map[models.DocumentSlot]models.ArtifactRef `json:"documents"`
	Capacity        models.CapacityEstimate                    `json:"capacity"`
	WantsValidation bool                                       `json:"wantsValidation"`
}

// Status is the lifecycle status a finalize request moves the prospect to.
func (r FinalizeRequest) Status() models.ProspectStatus {
	if r.WantsValidation {
		return models.ProspectValidationRequested
	}
	return models.ProspectCompleted
}

// Store is the persistence collaborator of the intake flow.
type Store interface {
	CreateProspect(ctx context.Context, p NewProspect) (string, error)
	FinalizeProspect(ctx context.Context, prospectID string, req FinalizeRequest) error
	GetProspect(ctx context.Context, prospectID string) (*models.Prospect, error)
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const upsertProspectQuery = `INSERT INTO prospects
  (id, tenant_id, session_id, name, email, phone, monthly_income, preferences, capacity, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (session_id) DO UPDATE SET
  name = EXCLUDED.name,
  email = EXCLUDED.email,
  phone = EXCLUDED.phone,
  monthly_income = EXCLUDED.monthly_income,
  preferences = EXCLUDED.preferences,
  capacity = EXCLUDED.capacity,
  status = EXCLUDED.status,
  updated_at = NOW()
RETURNING id`

// CreateProspect creates the prospect or, when the session already created
// one, updates it in place. Repeats therefore never duplicate the entity.
func (s *PostgresStore) CreateProspect(ctx context.Context, p NewProspect) (string, error) {
	prefs, err := json.Marshal(p.Preferences)
	if err != nil {
		return "", fmt.Errorf("encode preferences: %w", err)
	}
	capacity, err := json.Marshal(p.Capacity)
	if err != nil {
		return "", fmt.Errorf("encode capacity: %w", err)
	}

	var id string
	err = s.db.QueryRowContext(ctx, upsertProspectQuery,
		uuid.NewString(),
		p.TenantID,
		p.SessionID,
		p.Contact.Name,
		p.Contact.Email,
		p.Contact.Phone,
		p.MonthlyIncome,
		prefs,
		capacity,
		string(models.ProspectContacted),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert prospect: %w", err)
	}
	return id, nil
}

const finalizeProspectQuery = `UPDATE prospects
SET documents = $2, capacity = $3, wants_validation = $4, status = $5, updated_at = NOW()
WHERE id = $1`

// FinalizeProspect is a plain keyed UPDATE, so an identical repeat is harmless.
func (s *PostgresStore) FinalizeProspect(ctx context.Context, prospectID string, req FinalizeRequest) error {
	docs := req.Documents
	if docs == nil {
		docs = map[models.DocumentSlot]models.ArtifactRef{}
	}
	docsJSON, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode documents: %w", err)
	}
	capacity, err := json.Marshal(req.Capacity)
	if err != nil {
		return fmt.Errorf("encode capacity: %w", err)
	}

	res, err := s.db.ExecContext(ctx, finalizeProspectQuery,
		prospectID, docsJSON, capacity, req.WantsValidation, string(req.Status()))
	if err != nil {
		return fmt.Errorf("finalize prospect: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalize prospect: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrProspectNotFound, prospectID)
	}
	return nil
}

const getProspectQuery = `SELECT id, tenant_id, session_id, name, email, phone, monthly_income,
  preferences, capacity, documents, wants_validation, status, created_at, updated_at
FROM prospects WHERE id = $1`

func (s *PostgresStore) GetProspect(ctx context.Context, prospectID string) (*models.Prospect, error) {
	var (
		p                         models.Prospect
		status                    string
		prefs, capacity, docsJSON []byte
	)
	err := s.db.QueryRowContext(ctx, getProspectQuery, prospectID).Scan(
		&p.ID, &p.TenantID, &p.SessionID,
		&p.Contact.Name, &p.Contact.Email, &p.Contact.Phone,
		&p.MonthlyIncome, &prefs, &capacity, &docsJSON,
		&p.WantsValidation, &status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrProspectNotFound, prospectID)
		}
		return nil, fmt.Errorf("get prospect: %w", err)
	}
	p.Status = models.ProspectStatus(status)

	if err := json.Unmarshal(prefs, &p.Preferences); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	if err := json.Unmarshal(capacity, &p.Capacity); err != nil {
		return nil, fmt.Errorf("decode capacity: %w", err)
	}
	if len(docsJSON) > 0 {
		if err := json.Unmarshal(docsJSON, &p.Documents); err != nil {
			return nil, fmt.Errorf("decode documents: %w", err)
		}
	}
	return &p, nil
}
