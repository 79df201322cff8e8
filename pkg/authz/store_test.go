package authz

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRelationshipStoreAddEdge(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresRelationshipStore(db)

	t.Run("inserts edge", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO relationships`).
			WithArgs("user-1", "owner", ResourceOrganization, "org-1").
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := store.AddEdge(context.Background(), "user-1", "owner", ResourceOrganization, "org-1")
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("conflict is not an error", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO relationships`).
			WithArgs("user-1", "owner", ResourceOrganization, "org-1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.AddEdge(context.Background(), "user-1", "owner", ResourceOrganization, "org-1")
		require.NoError(t, err)
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO relationships`).
			WithArgs("user-1", "owner", ResourceOrganization, "org-1").
			WillReturnError(fmt.Errorf("connection refused"))

		err := store.AddEdge(context.Background(), "user-1", "owner", ResourceOrganization, "org-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to add relationship edge")
	})
}

func TestPostgresRelationshipStoreRelationsFor(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresRelationshipStore(db)

	rows := sqlmock.NewRows([]string{"relation"}).AddRow("owner").AddRow("member")
	mock.ExpectQuery(`SELECT relation`).
		WithArgs("user-1", ResourceOrganization, "org-1").
		WillReturnRows(rows)

	relations, err := store.RelationsFor(context.Background(), "user-1", ResourceOrganization, "org-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"owner", "member"}, relations)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRelationshipStoreRemoveAllForResource(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresRelationshipStore(db)

	mock.ExpectExec(`DELETE FROM relationships WHERE resource_kind = \$1 AND resource_id = \$2`).
		WithArgs(ResourceOrganization, "org-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	err = store.RemoveAllForResource(context.Background(), ResourceOrganization, "org-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
