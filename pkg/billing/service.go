package billing

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresService implements the billing Service interface using PostgreSQL
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

// FindUncancelledSubscription returns the live subscription for an organization
func (s *PostgresService) FindUncancelledSubscription(ctx context.Context, orgID string) (*Subscription, error) {
	query := `
		SELECT id, org_id, plan, status, current_period_start, current_period_end,
		       canceled_at, created_at, updated_at
		FROM subscriptions
		WHERE org_id = $1 AND status != $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	sub := &Subscription{}
	err := s.db.QueryRowContext(ctx, query, orgID, SubscriptionStatusCanceled).Scan(
		&sub.ID, &sub.OrgID, &sub.Plan, &sub.Status,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.CanceledAt,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}

	return sub, nil
}

// CancelSubscriptions cancels every live subscription of an organization
func (s *PostgresService) CancelSubscriptions(ctx context.Context, orgID string) error {
	query := `
		UPDATE subscriptions
		SET status = $1, canceled_at = NOW()
		WHERE org_id = $2 AND status != $1
	`
	if _, err := s.db.ExecContext(ctx, query, SubscriptionStatusCanceled, orgID); err != nil {
		return fmt.Errorf("failed to cancel subscriptions: %w", err)
	}
	return nil
}
