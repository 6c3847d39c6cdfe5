package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"qualification-workers/internal/common/config"

	_ "github.com/lib/pq"
)

type PostgresClient struct {
	DB *sql.DB
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

func (c *PostgresClient) GetDB() *sql.DB {
	return c.DB
}

// schemaStatements create the tables the prospect, tenant and interest
// stores rely on. Every statement is idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		plan          TEXT NOT NULL DEFAULT 'free',
		plan_expires_at TIMESTAMPTZ,
		zones         JSONB NOT NULL DEFAULT '[]',
		requirements  JSONB
	)`,
	`CREATE TABLE IF NOT EXISTS intake_forms (
		id            TEXT PRIMARY KEY,
		tenant_id     TEXT NOT NULL REFERENCES tenants(id),
		requirements  JSONB
	)`,
	`CREATE TABLE IF NOT EXISTS prospects (
		id                TEXT PRIMARY KEY,
		tenant_id         TEXT NOT NULL,
		session_id        TEXT NOT NULL UNIQUE,
		name              TEXT NOT NULL,
		email             TEXT NOT NULL,
		phone             TEXT NOT NULL,
		monthly_income    NUMERIC NOT NULL,
		preferences       JSONB NOT NULL,
		capacity          JSONB NOT NULL,
		documents         JSONB NOT NULL DEFAULT '{}',
		wants_validation  BOOLEAN NOT NULL DEFAULT FALSE,
		status            TEXT NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS prospect_interests (
		id            TEXT PRIMARY KEY,
		prospect_id   TEXT NOT NULL,
		item_id       TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (prospect_id, item_id)
	)`,
}

// EnsureSchema applies schemaStatements in a single transaction.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return tx.Commit()
}
