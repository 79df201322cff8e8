package orgs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/platinummonkey/cove/pkg/apperr"
)

// MergeFunc merges a partial settings update onto the current settings.
type MergeFunc func(current, partial *OrganizationSettings) *OrganizationSettings

// Store is the relational membership store. Transaction runs fn against a
// Store bound to one transaction; calling Transaction on an already-bound
// Store joins the open transaction instead of nesting a new one.
type Store interface {
	Transaction(ctx context.Context, fn func(s Store) error) error

	CreateTeam(ctx context.Context, name string) (*Organization, error)
	FindTeamByID(ctx context.Context, orgID string) (*Organization, error)
	UpdateTeam(ctx context.Context, orgID string, update TeamUpdate) (*Organization, error)
	DeleteTeam(ctx context.Context, orgID string) error
	FindTeamsByUser(ctx context.Context, userID string) ([]*Organization, error)
	FindTeams(ctx context.Context, req ListOrganizationsRequest) (*ListOrganizationsResponse, error)

	FindMembersByTeam(ctx context.Context, orgID string) ([]*OrgMember, error)
	FindTeamMembership(ctx context.Context, userID, orgID string) (*OrgMember, error)
	AddMemberToTeam(ctx context.Context, userID, orgID string) (alreadyMember bool, err error)
	SetTeamMemberRole(ctx context.Context, userID, orgID string, role OrgRole) error
	RemoveMemberFromTeam(ctx context.Context, userID, orgID string) error

	FindGenericInviteByTeamID(ctx context.Context, orgID string) (*MembershipInvite, error)
	FindTeamMembershipInviteByID(ctx context.Context, inviteID string) (*MembershipInvite, error)
	ResetGenericInvite(ctx context.Context, orgID string) (*MembershipInvite, error)
	PruneInvalidatedInvites(ctx context.Context, olderThan time.Duration) (int64, error)

	HasActiveSSO(ctx context.Context, orgID string) (bool, error)

	FindOrgSettings(ctx context.Context, orgID string) (*OrganizationSettings, error)
	SetOrgSettings(ctx context.Context, orgID string, partial *OrganizationSettings, merge MergeFunc) (*OrganizationSettings, error)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
	q  querier
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, q: db}
}

// Transaction runs fn against a Store bound to one transaction. When the
// receiver is already transaction-bound, fn joins the open transaction and
// commit/rollback stays with the outermost caller.
func (s *PostgresStore) Transaction(ctx context.Context, fn func(s Store) error) error {
	if _, bound := s.q.(*sql.Tx); bound {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&PostgresStore{db: s.db, q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateTeam inserts a new organization row
func (s *PostgresStore) CreateTeam(ctx context.Context, name string) (*Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.BadRequest("organization name cannot be empty")
	}

	org := &Organization{ID: uuid.NewString(), Name: name}
	query := `
		INSERT INTO teams (id, name)
		VALUES ($1, $2)
		RETURNING creation_time
	`
	if err := s.q.QueryRowContext(ctx, query, org.ID, org.Name).Scan(&org.CreationTime); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}
	return org, nil
}

// FindTeamByID retrieves an organization by ID
func (s *PostgresStore) FindTeamByID(ctx context.Context, orgID string) (*Organization, error) {
	query := `
		SELECT id, name, creation_time, maintenance_mode, maintenance_notification
		FROM teams
		WHERE id = $1
	`
	return s.scanTeam(s.q.QueryRowContext(ctx, query, orgID), orgID)
}

func (s *PostgresStore) scanTeam(row *sql.Row, orgID string) (*Organization, error) {
	org := &Organization{}
	var notificationJSON []byte
	err := row.Scan(&org.ID, &org.Name, &org.CreationTime, &org.MaintenanceMode, &notificationJSON)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("organization %s not found", orgID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	if len(notificationJSON) > 0 {
		org.MaintenanceNotification = &MaintenanceNotification{}
		if err := json.Unmarshal(notificationJSON, org.MaintenanceNotification); err != nil {
			return nil, fmt.Errorf("failed to unmarshal maintenance notification: %w", err)
		}
	}

	return org, nil
}

// UpdateTeam applies a partial update to an organization row
func (s *PostgresStore) UpdateTeam(ctx context.Context, orgID string, update TeamUpdate) (*Organization, error) {
	setClauses := []string{}
	args := []interface{}{}
	argPos := 1

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperr.BadRequest("organization name cannot be empty")
		}
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argPos))
		args = append(args, name)
		argPos++
	}
	if update.MaintenanceMode != nil {
		setClauses = append(setClauses, fmt.Sprintf("maintenance_mode = $%d", argPos))
		args = append(args, *update.MaintenanceMode)
		argPos++
	}
	if update.MaintenanceNotification != nil {
		notificationJSON, err := json.Marshal(update.MaintenanceNotification)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal maintenance notification: %w", err)
		}
		setClauses = append(setClauses, fmt.Sprintf("maintenance_notification = $%d", argPos))
		args = append(args, notificationJSON)
		argPos++
	}

	if len(setClauses) == 0 {
		return s.FindTeamByID(ctx, orgID)
	}

	args = append(args, orgID)
	query := fmt.Sprintf(`
		UPDATE teams SET %s WHERE id = $%d
		RETURNING id, name, creation_time, maintenance_mode, maintenance_notification
	`, strings.Join(setClauses, ", "), argPos)

	return s.scanTeam(s.q.QueryRowContext(ctx, query, args...), orgID)
}

// DeleteTeam removes an organization row
func (s *PostgresStore) DeleteTeam(ctx context.Context, orgID string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.NotFound("organization %s not found", orgID)
	}
	return nil
}

// FindTeamsByUser lists the organizations a user belongs to
func (s *PostgresStore) FindTeamsByUser(ctx context.Context, userID string) ([]*Organization, error) {
	query := `
		SELECT t.id, t.name, t.creation_time, t.maintenance_mode, t.maintenance_notification
		FROM teams t
		JOIN team_memberships m ON t.id = m.team_id
		WHERE m.user_id = $1
		ORDER BY t.creation_time DESC
	`
	rows, err := s.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	return scanTeams(rows)
}

func scanTeams(rows *sql.Rows) ([]*Organization, error) {
	var orgs []*Organization
	for rows.Next() {
		org := &Organization{}
		var notificationJSON []byte
		if err := rows.Scan(&org.ID, &org.Name, &org.CreationTime, &org.MaintenanceMode, &notificationJSON); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		if len(notificationJSON) > 0 {
			org.MaintenanceNotification = &MaintenanceNotification{}
			if err := json.Unmarshal(notificationJSON, org.MaintenanceNotification); err != nil {
				return nil, fmt.Errorf("failed to unmarshal maintenance notification: %w", err)
			}
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

// FindTeams lists organizations installation-wide with search and pagination
func (s *PostgresStore) FindTeams(ctx context.Context, req ListOrganizationsRequest) (*ListOrganizationsResponse, error) {
	orderBy := "creation_time"
	if req.OrderBy == "name" {
		orderBy = "name"
	}
	orderDir := "DESC"
	if strings.EqualFold(req.OrderDir, "asc") {
		orderDir = "ASC"
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	search := "%" + strings.ToLower(req.SearchTerm) + "%"

	var total int
	countQuery := `SELECT COUNT(*) FROM teams WHERE LOWER(name) LIKE $1`
	if err := s.q.QueryRowContext(ctx, countQuery, search).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count organizations: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, name, creation_time, maintenance_mode, maintenance_notification
		FROM teams
		WHERE LOWER(name) LIKE $1
		ORDER BY %s %s
		LIMIT $2 OFFSET $3
	`, orderBy, orderDir)

	rows, err := s.q.QueryContext(ctx, query, search, limit, req.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	orgs, err := scanTeams(rows)
	if err != nil {
		return nil, err
	}
	return &ListOrganizationsResponse{Total: total, Rows: orgs}, nil
}

// FindMembersByTeam lists all members of an organization
func (s *PostgresStore) FindMembersByTeam(ctx context.Context, orgID string) ([]*OrgMember, error) {
	query := `
		SELECT m.user_id, m.team_id, m.role, m.creation_time, u.name, u.email, u.avatar_url
		FROM team_memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.team_id = $1
		ORDER BY m.creation_time ASC
	`
	rows, err := s.q.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*OrgMember
	for rows.Next() {
		member := &OrgMember{}
		var email, avatarURL sql.NullString
		if err := rows.Scan(
			&member.UserID, &member.OrgID, &member.Role, &member.MemberSince,
			&member.Name, &email, &avatarURL,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		if email.Valid {
			member.PrimaryEmail = email.String
		}
		if avatarURL.Valid {
			member.AvatarURL = avatarURL.String
		}
		members = append(members, member)
	}

	return members, rows.Err()
}

// FindTeamMembership retrieves a single membership
func (s *PostgresStore) FindTeamMembership(ctx context.Context, userID, orgID string) (*OrgMember, error) {
	query := `
		SELECT user_id, team_id, role, creation_time
		FROM team_memberships
		WHERE user_id = $1 AND team_id = $2
	`
	member := &OrgMember{}
	err := s.q.QueryRowContext(ctx, query, userID, orgID).Scan(
		&member.UserID, &member.OrgID, &member.Role, &member.MemberSince,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("membership for user %s in organization %s not found", userID, orgID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return member, nil
}

// AddMemberToTeam upserts a membership row with the member role. It reports
// whether the user was already a member.
func (s *PostgresStore) AddMemberToTeam(ctx context.Context, userID, orgID string) (bool, error) {
	query := `
		INSERT INTO team_memberships (user_id, team_id, role)
		VALUES ($1, $2, 'member')
		ON CONFLICT (user_id, team_id) DO NOTHING
	`
	result, err := s.q.ExecContext(ctx, query, userID, orgID)
	if err != nil {
		return false, fmt.Errorf("failed to add member: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 0, nil
}

// SetTeamMemberRole updates the role on a membership row
func (s *PostgresStore) SetTeamMemberRole(ctx context.Context, userID, orgID string, role OrgRole) error {
	query := `UPDATE team_memberships SET role = $1 WHERE user_id = $2 AND team_id = $3`
	result, err := s.q.ExecContext(ctx, query, role, userID, orgID)
	if err != nil {
		return fmt.Errorf("failed to set member role: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.NotFound("membership for user %s in organization %s not found", userID, orgID)
	}
	return nil
}

// RemoveMemberFromTeam deletes a membership row
func (s *PostgresStore) RemoveMemberFromTeam(ctx context.Context, userID, orgID string) error {
	query := `DELETE FROM team_memberships WHERE user_id = $1 AND team_id = $2`
	result, err := s.q.ExecContext(ctx, query, userID, orgID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.NotFound("membership for user %s in organization %s not found", userID, orgID)
	}
	return nil
}

// FindGenericInviteByTeamID retrieves the current non-revoked generic invite,
// or nil when none exists.
func (s *PostgresStore) FindGenericInviteByTeamID(ctx context.Context, orgID string) (*MembershipInvite, error) {
	query := `
		SELECT id, team_id, role, creation_time, invalidation_time
		FROM team_membership_invites
		WHERE team_id = $1 AND invalidation_time = ''
		ORDER BY creation_time DESC
		LIMIT 1
	`
	invite, err := s.scanInvite(s.q.QueryRowContext(ctx, query, orgID))
	if apperr.HasCode(err, apperr.CodeNotFound) {
		return nil, nil
	}
	return invite, err
}

// FindTeamMembershipInviteByID retrieves an invite by its ID
func (s *PostgresStore) FindTeamMembershipInviteByID(ctx context.Context, inviteID string) (*MembershipInvite, error) {
	query := `
		SELECT id, team_id, role, creation_time, invalidation_time
		FROM team_membership_invites
		WHERE id = $1
	`
	return s.scanInvite(s.q.QueryRowContext(ctx, query, inviteID))
}

func (s *PostgresStore) scanInvite(row *sql.Row) (*MembershipInvite, error) {
	invite := &MembershipInvite{}
	err := row.Scan(&invite.ID, &invite.OrgID, &invite.Role, &invite.CreationTime, &invite.InvalidationTime)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("invite not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	return invite, nil
}

// ResetGenericInvite revokes any current generic invite and issues a fresh one
func (s *PostgresStore) ResetGenericInvite(ctx context.Context, orgID string) (*MembershipInvite, error) {
	var invite *MembershipInvite
	err := s.Transaction(ctx, func(tx Store) error {
		ptx := tx.(*PostgresStore)

		invalidate := `
			UPDATE team_membership_invites
			SET invalidation_time = NOW()::text
			WHERE team_id = $1 AND invalidation_time = ''
		`
		if _, err := ptx.q.ExecContext(ctx, invalidate, orgID); err != nil {
			return fmt.Errorf("failed to invalidate invites: %w", err)
		}

		invite = &MembershipInvite{ID: uuid.NewString(), OrgID: orgID, Role: RoleMember}
		insert := `
			INSERT INTO team_membership_invites (id, team_id, role, invalidation_time)
			VALUES ($1, $2, $3, '')
			RETURNING creation_time
		`
		if err := ptx.q.QueryRowContext(ctx, insert, invite.ID, invite.OrgID, invite.Role).Scan(&invite.CreationTime); err != nil {
			return fmt.Errorf("failed to create invite: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invite, nil
}

// PruneInvalidatedInvites deletes revoked invites older than the given age
func (s *PostgresStore) PruneInvalidatedInvites(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `
		DELETE FROM team_membership_invites
		WHERE invalidation_time != '' AND creation_time < NOW() - $1::interval
	`
	result, err := s.q.ExecContext(ctx, query, fmt.Sprintf("%d seconds", int(olderThan.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("failed to prune invites: %w", err)
	}
	return result.RowsAffected()
}

// HasActiveSSO reports whether the organization has an active single-sign-on
// configuration.
func (s *PostgresStore) HasActiveSSO(ctx context.Context, orgID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM sso_configs WHERE team_id = $1 AND active)`
	var active bool
	if err := s.q.QueryRowContext(ctx, query, orgID).Scan(&active); err != nil {
		return false, fmt.Errorf("failed to check SSO status: %w", err)
	}
	return active, nil
}

// FindOrgSettings retrieves the settings record of an organization. A missing
// row yields empty settings.
func (s *PostgresStore) FindOrgSettings(ctx context.Context, orgID string) (*OrganizationSettings, error) {
	query := `SELECT settings FROM team_settings WHERE team_id = $1`
	var settingsJSON []byte
	err := s.q.QueryRowContext(ctx, query, orgID).Scan(&settingsJSON)
	if err == sql.ErrNoRows {
		return &OrganizationSettings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	settings := &OrganizationSettings{}
	if err := json.Unmarshal(settingsJSON, settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	return settings, nil
}

// SetOrgSettings merges the partial update onto the stored settings and
// persists the result, all within one transaction.
func (s *PostgresStore) SetOrgSettings(ctx context.Context, orgID string, partial *OrganizationSettings, merge MergeFunc) (*OrganizationSettings, error) {
	var merged *OrganizationSettings
	err := s.Transaction(ctx, func(tx Store) error {
		current, err := tx.FindOrgSettings(ctx, orgID)
		if err != nil {
			return err
		}
		merged = merge(current, partial)

		mergedJSON, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("failed to marshal settings: %w", err)
		}

		ptx := tx.(*PostgresStore)
		upsert := `
			INSERT INTO team_settings (team_id, settings)
			VALUES ($1, $2)
			ON CONFLICT (team_id) DO UPDATE SET settings = EXCLUDED.settings
		`
		if _, err := ptx.q.ExecContext(ctx, upsert, orgID, mergedJSON); err != nil {
			return fmt.Errorf("failed to store settings: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}
