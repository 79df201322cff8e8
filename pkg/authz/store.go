package authz

import (
	"context"
	"database/sql"
	"fmt"
)

// RelationshipStore persists subject-to-resource edges.
type RelationshipStore interface {
	AddEdge(ctx context.Context, userID, relation string, kind ResourceKind, resourceID string) error
	RemoveEdge(ctx context.Context, userID, relation string, kind ResourceKind, resourceID string) error
	RelationsFor(ctx context.Context, userID string, kind ResourceKind, resourceID string) ([]string, error)
	RemoveAllForResource(ctx context.Context, kind ResourceKind, resourceID string) error
}

// PostgresRelationshipStore implements RelationshipStore using PostgreSQL
type PostgresRelationshipStore struct {
	db *sql.DB
}

// NewPostgresRelationshipStore creates a new PostgresRelationshipStore
func NewPostgresRelationshipStore(db *sql.DB) *PostgresRelationshipStore {
	return &PostgresRelationshipStore{db: db}
}

// AddEdge inserts a relationship edge. Re-adding an existing edge is a no-op.
func (s *PostgresRelationshipStore) AddEdge(ctx context.Context, userID, relation string, kind ResourceKind, resourceID string) error {
	query := `
		INSERT INTO relationships (user_id, relation, resource_kind, resource_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, relation, resource_kind, resource_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, userID, relation, kind, resourceID); err != nil {
		return fmt.Errorf("failed to add relationship edge: %w", err)
	}
	return nil
}

// RemoveEdge deletes a relationship edge. Removing a missing edge is a no-op.
func (s *PostgresRelationshipStore) RemoveEdge(ctx context.Context, userID, relation string, kind ResourceKind, resourceID string) error {
	query := `
		DELETE FROM relationships
		WHERE user_id = $1 AND relation = $2 AND resource_kind = $3 AND resource_id = $4
	`
	if _, err := s.db.ExecContext(ctx, query, userID, relation, kind, resourceID); err != nil {
		return fmt.Errorf("failed to remove relationship edge: %w", err)
	}
	return nil
}

// RelationsFor returns all relations the user holds on the resource.
func (s *PostgresRelationshipStore) RelationsFor(ctx context.Context, userID string, kind ResourceKind, resourceID string) ([]string, error) {
	query := `
		SELECT relation
		FROM relationships
		WHERE user_id = $1 AND resource_kind = $2 AND resource_id = $3
	`
	rows, err := s.db.QueryContext(ctx, query, userID, kind, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationship edges: %w", err)
	}
	defer rows.Close()

	var relations []string
	for rows.Next() {
		var relation string
		if err := rows.Scan(&relation); err != nil {
			return nil, fmt.Errorf("failed to scan relationship edge: %w", err)
		}
		relations = append(relations, relation)
	}

	return relations, rows.Err()
}

// RemoveAllForResource deletes every edge pointing at the resource.
func (s *PostgresRelationshipStore) RemoveAllForResource(ctx context.Context, kind ResourceKind, resourceID string) error {
	query := `DELETE FROM relationships WHERE resource_kind = $1 AND resource_id = $2`
	if _, err := s.db.ExecContext(ctx, query, kind, resourceID); err != nil {
		return fmt.Errorf("failed to remove relationships: %w", err)
	}
	return nil
}
