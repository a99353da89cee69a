package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"shoplist/internal/common"
	"shoplist/internal/domain/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGroupMockDB(t *testing.T) (*pgGroupRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp),
		sqlmock.ValueConverterOption(passthroughConverter{}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &pgGroupRepository{db: db}, mock
}

func groupRows(groups ...*model.Group) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "name", "slug", "hashed_password", "owner_id", "created_at", "updated_at"})
	for _, g := range groups {
		rows.AddRow(g.ID, g.Name, g.Slug, g.HashedPassword, g.OwnerID, g.CreatedAt, g.UpdatedAt)
	}
	return rows
}

func TestGroupRepository_FindAll_AttachesMembersInJoinOrder(t *testing.T) {
	repo, mock := newGroupMockDB(t)

	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM groups ORDER BY created_at, id`).
		WillReturnRows(groupRows(
			&model.Group{ID: "g1", Name: "Groceries", Slug: "groceries", HashedPassword: "h", OwnerID: "u1", CreatedAt: now, UpdatedAt: now},
		))
	mock.ExpectQuery(`SELECT group_id, user_id FROM group_members`).
		WillReturnRows(sqlmock.NewRows([]string{"group_id", "user_id"}).
			AddRow("g1", "u1").
			AddRow("g1", "u2"))

	groups, err := repo.FindAll(context.Background())

	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"u1", "u2"}, groups[0].MemberIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepository_FindByID_NotFound(t *testing.T) {
	repo, mock := newGroupMockDB(t)

	mock.ExpectQuery(`SELECT .+ FROM groups WHERE id`).
		WithArgs("missing").
		WillReturnRows(groupRows())

	_, err := repo.FindByID(context.Background(), "missing")

	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepository_AddMember_Duplicate(t *testing.T) {
	repo, mock := newGroupMockDB(t)

	mock.ExpectExec(`INSERT INTO group_members`).
		WithArgs("g1", "u2").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.AddMember(context.Background(), nil, "g1", "u2")

	assert.True(t, errors.Is(err, common.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepository_Delete_RemovesMembershipsFirst(t *testing.T) {
	repo, mock := newGroupMockDB(t)

	mock.ExpectExec(`DELETE FROM group_members WHERE group_id`).
		WithArgs("g1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM groups WHERE id`).
		WithArgs("g1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), nil, "g1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepository_DeleteByOwner_WithinTx(t *testing.T) {
	repo, mock := newGroupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM group_members\s+WHERE group_id IN`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM groups WHERE owner_id`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM group_members WHERE user_id`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := repo.db.Begin()
	require.NoError(t, err)
	require.NoError(t, repo.DeleteByOwner(context.Background(), tx, "u1"))
	require.NoError(t, repo.RemoveMemberEverywhere(context.Background(), tx, "u1"))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}
