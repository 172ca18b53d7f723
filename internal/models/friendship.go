package models

import (
	"time"
)

// FriendshipStatus represents the status of a friendship edge.
type FriendshipStatus string

const (
	// FriendshipStatusPending marks a request awaiting the addressee's answer.
	FriendshipStatusPending FriendshipStatus = "pending"
	// FriendshipStatusAccepted marks a mutual friendship.
	FriendshipStatusAccepted FriendshipStatus = "accepted"
)

// Friendship is a directional edge from requester to addressee. A pending edge
// is a friend request; an accepted edge is a symmetric friendship regardless
// of direction. Rejected requests are deleted.
type Friendship struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	RequesterID uint             `gorm:"not null;uniqueIndex:idx_friendship_users" json:"requester_id"`
	AddresseeID uint             `gorm:"not null;uniqueIndex:idx_friendship_users;index" json:"addressee_id"`
	Status      FriendshipStatus `gorm:"type:varchar(20);default:'pending';index:idx_friendships_status" json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`

	Requester User `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	Addressee User `gorm:"foreignKey:AddresseeID" json:"addressee,omitempty"`
}

// TableName specifies the table name for GORM
func (Friendship) TableName() string {
	return "friendships"
}
