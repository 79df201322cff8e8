package sso

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/platinummonkey/cove/pkg/apperr"
)

// Storage persists SSO configurations, one per organization.
type Storage interface {
	FindByOrg(ctx context.Context, orgID string) (*Config, error)
	Upsert(ctx context.Context, orgID string, update ConfigUpdate) (*Config, error)
	Delete(ctx context.Context, orgID string) error
}

// PostgresStorage implements Storage using PostgreSQL
type PostgresStorage struct {
	db *sql.DB
}

// NewPostgresStorage creates a new PostgresStorage
func NewPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

// FindByOrg retrieves the organization's SSO configuration
func (s *PostgresStorage) FindByOrg(ctx context.Context, orgID string) (*Config, error) {
	query := `
		SELECT id, team_id, issuer, client_id, active, creation_time
		FROM sso_configs
		WHERE team_id = $1
	`
	config := &Config{}
	err := s.db.QueryRowContext(ctx, query, orgID).Scan(
		&config.ID, &config.OrgID, &config.Issuer, &config.ClientID, &config.Active, &config.CreationTime,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("no SSO configuration for organization %s", orgID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get SSO configuration: %w", err)
	}
	return config, nil
}

// Upsert creates or replaces the organization's SSO configuration
func (s *PostgresStorage) Upsert(ctx context.Context, orgID string, update ConfigUpdate) (*Config, error) {
	config := &Config{
		ID:       uuid.NewString(),
		OrgID:    orgID,
		Issuer:   update.Issuer,
		ClientID: update.ClientID,
		Active:   update.Active,
	}
	query := `
		INSERT INTO sso_configs (id, team_id, issuer, client_id, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (team_id) DO UPDATE
		SET issuer = EXCLUDED.issuer, client_id = EXCLUDED.client_id, active = EXCLUDED.active
		RETURNING id, creation_time
	`
	err := s.db.QueryRowContext(ctx, query,
		config.ID, config.OrgID, config.Issuer, config.ClientID, config.Active,
	).Scan(&config.ID, &config.CreationTime)
	if err != nil {
		return nil, fmt.Errorf("failed to store SSO configuration: %w", err)
	}
	return config, nil
}

// Delete removes the organization's SSO configuration
func (s *PostgresStorage) Delete(ctx context.Context, orgID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sso_configs WHERE team_id = $1`, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete SSO configuration: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.NotFound("no SSO configuration for organization %s", orgID)
	}
	return nil
}

// MemoryStorage is an in-memory Storage for tests
type MemoryStorage struct {
	mu      sync.Mutex
	configs map[string]*Config
}

// NewMemoryStorage creates a new MemoryStorage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{configs: map[string]*Config{}}
}

// FindByOrg retrieves the organization's SSO configuration
func (s *MemoryStorage) FindByOrg(ctx context.Context, orgID string) (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	config, ok := s.configs[orgID]
	if !ok {
		return nil, apperr.NotFound("no SSO configuration for organization %s", orgID)
	}
	copy := *config
	return &copy, nil
}

// Upsert creates or replaces the organization's SSO configuration
func (s *MemoryStorage) Upsert(ctx context.Context, orgID string, update ConfigUpdate) (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	config, ok := s.configs[orgID]
	if !ok {
		config = &Config{ID: uuid.NewString(), OrgID: orgID}
		s.configs[orgID] = config
	}
	config.Issuer = update.Issuer
	config.ClientID = update.ClientID
	config.Active = update.Active
	copy := *config
	return &copy, nil
}

// Delete removes the organization's SSO configuration
func (s *MemoryStorage) Delete(ctx context.Context, orgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[orgID]; !ok {
		return apperr.NotFound("no SSO configuration for organization %s", orgID)
	}
	delete(s.configs, orgID)
	return nil
}
