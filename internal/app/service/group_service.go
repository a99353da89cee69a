package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"shoplist/internal/common"
	"shoplist/internal/common/security"
	"shoplist/internal/domain/model"
	"shoplist/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type GroupService struct {
	groupRepo repository.GroupRepository
	userRepo  repository.UserRepository
	db        *sql.DB // For transactions
}

func NewGroupService(groupRepo repository.GroupRepository, userRepo repository.UserRepository, db *sql.DB) *GroupService {
	return &GroupService{groupRepo: groupRepo, userRepo: userRepo, db: db}
}

type CreateGroupRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type AddMemberRequest struct {
	MemberID string `json:"memberId"`
}

type JoinGroupRequest struct {
	Password string `json:"password"`
}

type LeaveGroupRequest struct {
	GroupID string `json:"groupId"`
}

// MyGroups lists every group the user owns or belongs to, newest first.
func (s *GroupService) MyGroups(ctx context.Context, userID string) ([]*model.GroupDetail, error) {
	groups, err := s.groupRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return s.expandAll(ctx, groups)
}

// AllGroups is the unexpanded administrative browse view.
func (s *GroupService) AllGroups(ctx context.Context) ([]*model.Group, error) {
	groups, err := s.groupRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

func (s *GroupService) Create(ctx context.Context, userID string, req CreateGroupRequest) (*model.GroupDetail, error) {
	if req.Name == "" || req.Password == "" {
		return nil, common.NewError(common.ErrValidation, "Please provide group name and password")
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	group := &model.Group{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Slug:           slug.Make(req.Name),
		HashedPassword: hashedPassword,
		OwnerID:        userID,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.groupRepo.Create(ctx, tx, group); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	// The creator is the owner and the first member.
	if err := s.groupRepo.AddMember(ctx, tx, group.ID, userID); err != nil {
		return nil, fmt.Errorf("failed to add owner as member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	group.MemberIDs = []string{userID}
	return s.expand(ctx, group)
}

func (s *GroupService) Delete(ctx context.Context, userID, groupID string) error {
	group, err := s.findGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.OwnerID != userID {
		return common.NewError(common.ErrForbidden, "Not authorized to delete this group")
	}
	if err := s.groupRepo.Delete(ctx, nil, groupID); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return nil
}

func (s *GroupService) AddMember(ctx context.Context, userID, groupID, memberID string) (*model.GroupDetail, error) {
	if memberID == "" {
		return nil, common.NewError(common.ErrValidation, "Please provide member ID")
	}

	group, err := s.findGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.OwnerID != userID {
		return nil, common.NewError(common.ErrForbidden, "Not authorized to add members")
	}

	if _, err := s.userRepo.FindByID(ctx, memberID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewError(common.ErrNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if group.HasMember(memberID) {
		return nil, common.NewError(common.ErrConflict, "User is already a member")
	}

	if err := s.groupRepo.AddMember(ctx, nil, groupID, memberID); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.NewError(common.ErrConflict, "User is already a member")
		}
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	return s.reload(ctx, groupID)
}

func (s *GroupService) RemoveMember(ctx context.Context, userID, groupID, memberID string) (*model.GroupDetail, error) {
	group, err := s.findGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.OwnerID != userID {
		return nil, common.NewError(common.ErrForbidden, "Not authorized to remove members")
	}
	if memberID == group.OwnerID {
		return nil, common.NewError(common.ErrValidation, "Cannot remove the group owner")
	}

	if err := s.groupRepo.RemoveMember(ctx, nil, groupID, memberID); err != nil {
		return nil, fmt.Errorf("failed to remove member: %w", err)
	}

	return s.reload(ctx, groupID)
}

// Join scans every group in creation order and admits the caller to the
// first one whose stored hash matches the presented password. Collisions
// across groups resolve to the earliest-created match; that first-match
// behavior is part of the API contract.
func (s *GroupService) Join(ctx context.Context, userID, password string) (*model.GroupDetail, error) {
	if password == "" {
		return nil, common.NewError(common.ErrValidation, "Please provide group password")
	}

	groups, err := s.groupRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	var matched *model.Group
	for _, group := range groups {
		if security.CheckPasswordHash(password, group.HashedPassword) {
			matched = group
			break
		}
	}
	if matched == nil {
		return nil, common.NewError(common.ErrNotFound, "Invalid group password")
	}

	if matched.HasMember(userID) {
		return nil, common.NewError(common.ErrConflict, "You are already a member of this group")
	}

	if err := s.groupRepo.AddMember(ctx, nil, matched.ID, userID); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.NewError(common.ErrConflict, "You are already a member of this group")
		}
		return nil, fmt.Errorf("failed to join group: %w", err)
	}

	return s.reload(ctx, matched.ID)
}

func (s *GroupService) Leave(ctx context.Context, userID, groupID string) error {
	if groupID == "" {
		return common.NewError(common.ErrValidation, "Please provide group ID")
	}

	group, err := s.findGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.OwnerID == userID {
		return common.NewError(common.ErrValidation, "Owner cannot leave the group. Delete it instead.")
	}

	if err := s.groupRepo.RemoveMember(ctx, nil, groupID, userID); err != nil {
		return fmt.Errorf("failed to leave group: %w", err)
	}
	return nil
}

// Search returns up to 20 of the caller's groups whose name contains the
// query case-insensitively. A blank query yields an empty list.
func (s *GroupService) Search(ctx context.Context, userID, query string) ([]*model.GroupDetail, error) {
	if strings.TrimSpace(query) == "" {
		return []*model.GroupDetail{}, nil
	}
	groups, err := s.groupRepo.SearchByName(ctx, userID, query, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search groups: %w", err)
	}
	return s.expandAll(ctx, groups)
}

func (s *GroupService) findGroup(ctx context.Context, groupID string) (*model.Group, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewError(common.ErrNotFound, "Group not found")
		}
		return nil, fmt.Errorf("failed to find group: %w", err)
	}
	return group, nil
}

func (s *GroupService) reload(ctx context.Context, groupID string) (*model.GroupDetail, error) {
	group, err := s.findGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.expand(ctx, group)
}

// expand resolves the owner and member references to their public fields.
func (s *GroupService) expand(ctx context.Context, group *model.Group) (*model.GroupDetail, error) {
	details, err := s.expandAll(ctx, []*model.Group{group})
	if err != nil {
		return nil, err
	}
	return details[0], nil
}

func (s *GroupService) expandAll(ctx context.Context, groups []*model.Group) ([]*model.GroupDetail, error) {
	idSet := make(map[string]struct{})
	ids := make([]string, 0)
	for _, g := range groups {
		for _, id := range append([]string{g.OwnerID}, g.MemberIDs...) {
			if _, seen := idSet[id]; !seen {
				idSet[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to expand group members: %w", err)
	}
	byID := make(map[string]model.UserSummary, len(users))
	for _, u := range users {
		byID[u.ID] = u.Summary()
	}

	summary := func(id string) model.UserSummary {
		if u, ok := byID[id]; ok {
			return u
		}
		return model.UserSummary{ID: id}
	}

	details := make([]*model.GroupDetail, 0, len(groups))
	for _, g := range groups {
		members := make([]model.UserSummary, 0, len(g.MemberIDs))
		for _, id := range g.MemberIDs {
			members = append(members, summary(id))
		}
		details = append(details, &model.GroupDetail{
			ID:        g.ID,
			Name:      g.Name,
			Slug:      g.Slug,
			Owner:     summary(g.OwnerID),
			Members:   members,
			CreatedAt: g.CreatedAt,
		})
	}
	return details, nil
}
