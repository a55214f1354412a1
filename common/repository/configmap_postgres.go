package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xhhao/redisconnector/common/db"
	"github.com/xhhao/redisconnector/common/models"
)

// ConfigMapSchema creates the config_map table
const ConfigMapSchema = `
	CREATE TABLE IF NOT EXISTS config_map (
		name       TEXT PRIMARY KEY,
		uid        UUID NOT NULL,
		data       JSONB NOT NULL DEFAULT '{}'::jsonb,
		version    BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// uniqueViolation is the Postgres SQLSTATE for a duplicate key
const uniqueViolation = "23505"

// PostgresConfigMapStore persists documents in the config_map table
type PostgresConfigMapStore struct {
	db *db.DB
}

// NewPostgresConfigMapStore creates a new store
func NewPostgresConfigMapStore(db *db.DB) *PostgresConfigMapStore {
	return &PostgresConfigMapStore{db: db}
}

// EnsureSchema creates the backing table if it does not exist
func (r *PostgresConfigMapStore) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, ConfigMapSchema); err != nil {
		return fmt.Errorf("failed to create config_map table: %w", err)
	}
	return nil
}

// Fetch retrieves a document by name
func (r *PostgresConfigMapStore) Fetch(ctx context.Context, name string) (*models.ConfigMap, error) {
	query := `
		SELECT name, uid, data, version, created_at, updated_at
		FROM config_map
		WHERE name = $1
	`

	cm := &models.ConfigMap{}
	err := r.db.QueryRow(ctx, query, name).Scan(
		&cm.Name,
		&cm.UID,
		&cm.Data,
		&cm.Version,
		&cm.CreatedAt,
		&cm.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get config map: %w", err)
	}

	if cm.Data == nil {
		cm.Data = map[string]string{}
	}
	return cm, nil
}

// Create inserts a new document at version 1
func (r *PostgresConfigMapStore) Create(ctx context.Context, cm *models.ConfigMap) error {
	query := `
		INSERT INTO config_map (name, uid, data, version)
		VALUES ($1, $2, $3, 1)
		RETURNING version, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query, cm.Name, cm.UID, cm.Data).Scan(
		&cm.Version,
		&cm.CreatedAt,
		&cm.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s already exists", ErrConflict, cm.Name)
		}
		return fmt.Errorf("failed to create config map: %w", err)
	}

	return nil
}

// Update performs an optimistic lock update (CAS on version)
func (r *PostgresConfigMapStore) Update(ctx context.Context, cm *models.ConfigMap) error {
	query := `
		UPDATE config_map
		SET data = $3, version = version + 1, updated_at = NOW()
		WHERE name = $1 AND version = $2
		RETURNING version, updated_at
	`

	err := r.db.QueryRow(ctx, query, cm.Name, cm.Version, cm.Data).Scan(
		&cm.Version,
		&cm.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the row is gone or the version moved on
		if _, ferr := r.Fetch(ctx, cm.Name); errors.Is(ferr, ErrNotFound) {
			return ferr
		}
		return fmt.Errorf("%w: %s at version %d", ErrConflict, cm.Name, cm.Version)
	}
	if err != nil {
		return fmt.Errorf("failed to update config map: %w", err)
	}

	return nil
}
