package users

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/platinummonkey/cove/pkg/apperr"
)

// PostgresService implements the Service interface using PostgreSQL
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

// FindUserByID retrieves a user by ID
func (s *PostgresService) FindUserByID(ctx context.Context, userID string) (*User, error) {
	query := `
		SELECT id, name, email, avatar_url, organization_id, blocked, verification_time, created_at
		FROM users
		WHERE id = $1
	`
	user := &User{}
	var email, avatarURL, organizationID sql.NullString
	var verificationTime sql.NullTime
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&user.ID, &user.Name, &email, &avatarURL, &organizationID,
		&user.Blocked, &verificationTime, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("user %s not found", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if email.Valid {
		user.Email = email.String
	}
	if avatarURL.Valid {
		user.AvatarURL = avatarURL.String
	}
	if organizationID.Valid {
		user.OrganizationID = organizationID.String
	}
	if verificationTime.Valid {
		t := verificationTime.Time
		user.VerificationTime = &t
	}

	return user, nil
}

// DeleteUser deletes a user account
func (s *PostgresService) DeleteUser(ctx context.Context, actorID, userID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.NotFound("user %s not found", userID)
	}

	return nil
}

// MarkUserVerified records the verification time for a user
func (s *PostgresService) MarkUserVerified(ctx context.Context, userID string) error {
	query := `UPDATE users SET verification_time = NOW() WHERE id = $1 AND verification_time IS NULL`
	if _, err := s.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}
	return nil
}

// MayCreateOrganization reports whether the account may create organizations
func (s *PostgresService) MayCreateOrganization(ctx context.Context, user *User) (bool, error) {
	if user.Blocked {
		return false, nil
	}
	return !user.IsOrganizationOwned(), nil
}

// MayJoinOrganization reports whether the account may join other organizations
func (s *PostgresService) MayJoinOrganization(ctx context.Context, user *User) (bool, error) {
	if user.Blocked {
		return false, nil
	}
	return !user.IsOrganizationOwned(), nil
}
