package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shoplist/internal/common"
	"shoplist/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type GroupRepository interface {
	Create(ctx context.Context, tx *sql.Tx, group *model.Group) error
	FindByID(ctx context.Context, id string) (*model.Group, error)
	// FindAll enumerates every group in a stable order (creation order).
	FindAll(ctx context.Context) ([]*model.Group, error)
	// FindByUser returns groups where the user is owner or member, newest first.
	FindByUser(ctx context.Context, userID string) ([]*model.Group, error)
	SearchByName(ctx context.Context, userID, query string, limit int) ([]*model.Group, error)
	AddMember(ctx context.Context, tx *sql.Tx, groupID, userID string) error
	RemoveMember(ctx context.Context, tx *sql.Tx, groupID, userID string) error
	Delete(ctx context.Context, tx *sql.Tx, id string) error
	DeleteByOwner(ctx context.Context, tx *sql.Tx, ownerID string) error
	RemoveMemberEverywhere(ctx context.Context, tx *sql.Tx, userID string) error
}

type pgGroupRepository struct {
	db *sql.DB
}

func NewPgGroupRepository(db *sql.DB) GroupRepository {
	return &pgGroupRepository{db: db}
}

const groupColumns = `id, name, slug, hashed_password, owner_id, created_at, updated_at`

func scanGroup(row interface{ Scan(...interface{}) error }) (*model.Group, error) {
	group := &model.Group{}
	err := row.Scan(&group.ID, &group.Name, &group.Slug, &group.HashedPassword, &group.OwnerID, &group.CreatedAt, &group.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return group, nil
}

func (r *pgGroupRepository) exec(ctx context.Context, tx *sql.Tx, query string, args ...interface{}) (sql.Result, error) {
	if tx != nil {
		return tx.ExecContext(ctx, query, args...)
	}
	return r.db.ExecContext(ctx, query, args...)
}

func (r *pgGroupRepository) Create(ctx context.Context, tx *sql.Tx, group *model.Group) error {
	query := `INSERT INTO groups (id, name, slug, hashed_password, owner_id)
	          VALUES ($1, $2, $3, $4, $5)`
	_, err := r.exec(ctx, tx, query, group.ID, group.Name, group.Slug, group.HashedPassword, group.OwnerID)
	if err != nil {
		return fmt.Errorf("pgGroupRepository.Create: %w", err)
	}
	return nil
}

func (r *pgGroupRepository) FindByID(ctx context.Context, id string) (*model.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE id = $1`
	group, err := scanGroup(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgGroupRepository.FindByID: %w", err)
	}
	if err := r.attachMembers(ctx, []*model.Group{group}); err != nil {
		return nil, err
	}
	return group, nil
}

func (r *pgGroupRepository) FindAll(ctx context.Context) ([]*model.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups ORDER BY created_at, id`
	return r.queryGroups(ctx, query)
}

func (r *pgGroupRepository) FindByUser(ctx context.Context, userID string) ([]*model.Group, error) {
	query := `SELECT DISTINCT g.id, g.name, g.slug, g.hashed_password, g.owner_id, g.created_at, g.updated_at
	          FROM groups g
	          LEFT JOIN group_members m ON m.group_id = g.id
	          WHERE g.owner_id = $1 OR m.user_id = $1
	          ORDER BY g.created_at DESC`
	return r.queryGroups(ctx, query, userID)
}

func (r *pgGroupRepository) SearchByName(ctx context.Context, userID, query string, limit int) ([]*model.Group, error) {
	stmt := `SELECT DISTINCT g.id, g.name, g.slug, g.hashed_password, g.owner_id, g.created_at, g.updated_at
	         FROM groups g
	         LEFT JOIN group_members m ON m.group_id = g.id
	         WHERE g.name ILIKE '%' || $2 || '%' AND (g.owner_id = $1 OR m.user_id = $1)
	         ORDER BY g.created_at DESC
	         LIMIT $3`
	return r.queryGroups(ctx, stmt, userID, query, limit)
}

func (r *pgGroupRepository) queryGroups(ctx context.Context, query string, args ...interface{}) ([]*model.Group, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgGroupRepository.queryGroups: %w", err)
	}
	defer rows.Close()

	groups := make([]*model.Group, 0)
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("pgGroupRepository.queryGroups: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgGroupRepository.queryGroups: %w", err)
	}
	if err := r.attachMembers(ctx, groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// attachMembers loads the member id lists for the given groups in join
// order, in a single query.
func (r *pgGroupRepository) attachMembers(ctx context.Context, groups []*model.Group) error {
	if len(groups) == 0 {
		return nil
	}

	byID := make(map[string]*model.Group, len(groups))
	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		g.MemberIDs = []string{}
		byID[g.ID] = g
		ids = append(ids, g.ID)
	}

	query := `SELECT group_id, user_id FROM group_members WHERE group_id = ANY($1) ORDER BY position`
	rows, err := r.db.QueryContext(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("pgGroupRepository.attachMembers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var groupID, userID string
		if err := rows.Scan(&groupID, &userID); err != nil {
			return fmt.Errorf("pgGroupRepository.attachMembers: %w", err)
		}
		if g, ok := byID[groupID]; ok {
			g.MemberIDs = append(g.MemberIDs, userID)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("pgGroupRepository.attachMembers: %w", err)
	}
	return nil
}

func (r *pgGroupRepository) AddMember(ctx context.Context, tx *sql.Tx, groupID, userID string) error {
	query := `INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)`
	_, err := r.exec(ctx, tx, query, groupID, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Already a member
			return fmt.Errorf("user is already a member of group: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgGroupRepository.AddMember: %w", err)
	}
	return nil
}

func (r *pgGroupRepository) RemoveMember(ctx context.Context, tx *sql.Tx, groupID, userID string) error {
	query := `DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`
	if _, err := r.exec(ctx, tx, query, groupID, userID); err != nil {
		return fmt.Errorf("pgGroupRepository.RemoveMember: %w", err)
	}
	return nil
}

func (r *pgGroupRepository) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := r.exec(ctx, tx, `DELETE FROM group_members WHERE group_id = $1`, id); err != nil {
		return fmt.Errorf("pgGroupRepository.Delete: %w", err)
	}
	if _, err := r.exec(ctx, tx, `DELETE FROM groups WHERE id = $1`, id); err != nil {
		return fmt.Errorf("pgGroupRepository.Delete: %w", err)
	}
	return nil
}

func (r *pgGroupRepository) DeleteByOwner(ctx context.Context, tx *sql.Tx, ownerID string) error {
	query := `DELETE FROM group_members
	          WHERE group_id IN (SELECT id FROM groups WHERE owner_id = $1)`
	if _, err := r.exec(ctx, tx, query, ownerID); err != nil {
		return fmt.Errorf("pgGroupRepository.DeleteByOwner: %w", err)
	}
	if _, err := r.exec(ctx, tx, `DELETE FROM groups WHERE owner_id = $1`, ownerID); err != nil {
		return fmt.Errorf("pgGroupRepository.DeleteByOwner: %w", err)
	}
	return nil
}

func (r *pgGroupRepository) RemoveMemberEverywhere(ctx context.Context, tx *sql.Tx, userID string) error {
	query := `DELETE FROM group_members WHERE user_id = $1`
	if _, err := r.exec(ctx, tx, query, userID); err != nil {
		return fmt.Errorf("pgGroupRepository.RemoveMemberEverywhere: %w", err)
	}
	return nil
}
