package orgs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/cove/pkg/apperr"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgresStore_CreateTeam(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts and returns creation time", func(t *testing.T) {
		store, mock := newMockStore(t)
		created := time.Now().UTC()
		mock.ExpectQuery("INSERT INTO teams").
			WithArgs(sqlmock.AnyArg(), "Acme").
			WillReturnRows(sqlmock.NewRows([]string{"creation_time"}).AddRow(created))

		org, err := store.CreateTeam(ctx, "  Acme  ")
		require.NoError(t, err)
		assert.Equal(t, "Acme", org.Name)
		assert.NotEmpty(t, org.ID)
		assert.Equal(t, created, org.CreationTime)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects empty name", func(t *testing.T) {
		store, _ := newMockStore(t)
		_, err := store.CreateTeam(ctx, "   ")
		assert.True(t, apperr.HasCode(err, apperr.CodeBadRequest))
	})
}

func TestPostgresStore_FindTeamByID(t *testing.T) {
	ctx := context.Background()
	columns := []string{"id", "name", "creation_time", "maintenance_mode", "maintenance_notification"}

	t.Run("found with notification", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT id, name, creation_time, maintenance_mode, maintenance_notification").
			WithArgs("org-1").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("org-1", "Acme", time.Now(), true, []byte(`{"enabled":true,"message":"upgrade"}`)))

		org, err := store.FindTeamByID(ctx, "org-1")
		require.NoError(t, err)
		assert.True(t, org.MaintenanceMode)
		require.NotNil(t, org.MaintenanceNotification)
		assert.Equal(t, "upgrade", org.MaintenanceNotification.Message)
	})

	t.Run("not found", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT id, name, creation_time").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(columns))

		_, err := store.FindTeamByID(ctx, "missing")
		assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
	})
}

func TestPostgresStore_DeleteTeam(t *testing.T) {
	ctx := context.Background()

	t.Run("deleted", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec("DELETE FROM teams").
			WithArgs("org-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.DeleteTeam(ctx, "org-1"))
	})

	t.Run("missing row is not found", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec("DELETE FROM teams").
			WithArgs("missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.DeleteTeam(ctx, "missing")
		assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
	})
}

func TestPostgresStore_AddMemberToTeam(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh membership", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec("INSERT INTO team_memberships").
			WithArgs("u1", "org-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		already, err := store.AddMemberToTeam(ctx, "u1", "org-1")
		require.NoError(t, err)
		assert.False(t, already)
	})

	t.Run("conflict reports already member", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec("INSERT INTO team_memberships").
			WithArgs("u1", "org-1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		already, err := store.AddMemberToTeam(ctx, "u1", "org-1")
		require.NoError(t, err)
		assert.True(t, already)
	})
}

func TestPostgresStore_SetTeamMemberRole(t *testing.T) {
	ctx := context.Background()

	t.Run("updated", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec("UPDATE team_memberships SET role").
			WithArgs(RoleOwner, "u1", "org-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.SetTeamMemberRole(ctx, "u1", "org-1", RoleOwner))
	})

	t.Run("missing membership is not found", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec("UPDATE team_memberships SET role").
			WithArgs(RoleOwner, "ghost", "org-1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.SetTeamMemberRole(ctx, "ghost", "org-1", RoleOwner)
		assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
	})
}

func TestPostgresStore_FindGenericInviteByTeamID(t *testing.T) {
	ctx := context.Background()
	columns := []string{"id", "team_id", "role", "creation_time", "invalidation_time"}

	t.Run("current invite", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT id, team_id, role, creation_time, invalidation_time").
			WithArgs("org-1").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("inv-1", "org-1", "member", time.Now(), ""))

		invite, err := store.FindGenericInviteByTeamID(ctx, "org-1")
		require.NoError(t, err)
		require.NotNil(t, invite)
		assert.Equal(t, "inv-1", invite.ID)
		assert.True(t, invite.Valid())
	})

	t.Run("no invite yields nil without error", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT id, team_id, role, creation_time, invalidation_time").
			WithArgs("org-1").
			WillReturnRows(sqlmock.NewRows(columns))

		invite, err := store.FindGenericInviteByTeamID(ctx, "org-1")
		require.NoError(t, err)
		assert.Nil(t, invite)
	})
}

func TestPostgresStore_ResetGenericInvite(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE team_membership_invites").
		WithArgs("org-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO team_membership_invites").
		WithArgs(sqlmock.AnyArg(), "org-1", RoleMember).
		WillReturnRows(sqlmock.NewRows([]string{"creation_time"}).AddRow(time.Now()))
	mock.ExpectCommit()

	invite, err := store.ResetGenericInvite(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, "org-1", invite.OrgID)
	assert.Equal(t, RoleMember, invite.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Transaction(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM teams").
			WithArgs("org-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.Transaction(ctx, func(tx Store) error {
			return tx.DeleteTeam(ctx, "org-1")
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		sentinel := errors.New("boom")
		err := store.Transaction(ctx, func(tx Store) error {
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested call joins the open transaction", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM teams").
			WithArgs("org-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.Transaction(ctx, func(tx Store) error {
			return tx.Transaction(ctx, func(inner Store) error {
				return inner.DeleteTeam(ctx, "org-1")
			})
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_SetOrgSettings(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT settings FROM team_settings").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"settings"}).
			AddRow([]byte(`{"workspaceSharingDisabled":true}`)))
	mock.ExpectExec("INSERT INTO team_settings").
		WithArgs("org-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	merged, err := store.SetOrgSettings(context.Background(), "org-1",
		&OrganizationSettings{DefaultWorkspaceImage: strPtr("docker.io/library/ubuntu:22.04")},
		mergeSettings,
	)
	require.NoError(t, err)
	require.NotNil(t, merged.WorkspaceSharingDisabled)
	assert.True(t, *merged.WorkspaceSharingDisabled)
	assert.Equal(t, "docker.io/library/ubuntu:22.04", *merged.DefaultWorkspaceImage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindOrgSettings_MissingRow(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT settings FROM team_settings").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"settings"}))

	settings, err := store.FindOrgSettings(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, &OrganizationSettings{}, settings)
}

func TestPostgresStore_HasActiveSSO(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	active, err := store.HasActiveSSO(context.Background(), "org-1")
	require.NoError(t, err)
	assert.True(t, active)
}
