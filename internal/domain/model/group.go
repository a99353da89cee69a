package model

import (
	"time"
)

// Group is a password-gated shared list with exactly one owner. The owner is
// also kept in the member list, and member order reflects join order.
type Group struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	HashedPassword string    `json:"-"` // Join secret, never serialized
	OwnerID        string    `json:"owner_id"`
	MemberIDs      []string  `json:"member_ids"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (g *Group) HasMember(userID string) bool {
	for _, id := range g.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// GroupDetail is a Group with owner and members expanded to their public
// fields, returned by every membership-mutating operation.
type GroupDetail struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Slug      string        `json:"slug"`
	Owner     UserSummary   `json:"owner"`
	Members   []UserSummary `json:"members"`
	CreatedAt time.Time     `json:"created_at"`
}
