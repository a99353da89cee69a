package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"shoplist/internal/common"
	"shoplist/internal/domain/model"
	"shoplist/internal/domain/repository"
)

const searchLimit = 20

// TokenRevoker invalidates all outstanding bearer tokens for a user.
type TokenRevoker interface {
	Revoke(ctx context.Context, userID string) error
}

type UserService struct {
	userRepo  repository.UserRepository
	groupRepo repository.GroupRepository
	revoker   TokenRevoker
	db        *sql.DB // For transactions
}

func NewUserService(
	userRepo repository.UserRepository,
	groupRepo repository.GroupRepository,
	revoker TokenRevoker,
	db *sql.DB,
) *UserService {
	return &UserService{userRepo: userRepo, groupRepo: groupRepo, revoker: revoker, db: db}
}

// Search returns up to 20 users whose name or username contains the query,
// case-insensitively. A blank query yields an empty list, never all users.
func (s *UserService) Search(ctx context.Context, query string) ([]*model.User, error) {
	if strings.TrimSpace(query) == "" {
		return []*model.User{}, nil
	}
	users, err := s.userRepo.Search(ctx, query, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

// DeleteSelf removes the user's account. The cascade (delete owned groups,
// pull memberships, delete the user row) runs in one transaction so no group
// is ever left pointing at a missing owner.
func (s *UserService) DeleteSelf(ctx context.Context, userID string) error {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.NewError(common.ErrNotFound, "User not found")
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.groupRepo.DeleteByOwner(ctx, tx, userID); err != nil {
		return fmt.Errorf("failed to delete owned groups: %w", err)
	}
	if err := s.groupRepo.RemoveMemberEverywhere(ctx, tx, userID); err != nil {
		return fmt.Errorf("failed to remove memberships: %w", err)
	}
	if err := s.userRepo.Delete(ctx, tx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Best effort: the record is gone either way, and GetCurrentUser already
	// rejects unresolvable identities.
	if err := s.revoker.Revoke(ctx, userID); err != nil {
		log.Printf("failed to revoke tokens for deleted user %s: %v", userID, err)
	}
	return nil
}
