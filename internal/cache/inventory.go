package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix    = "user:%d"
	FriendsKeyPrefix = "user:%d:friends"
)

const (
	UserTTL    = 5 * time.Minute
	FriendsTTL = 2 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func FriendsKey(userID uint) string {
	return fmt.Sprintf(FriendsKeyPrefix, userID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidateUser drops the cached profile for userID.
func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidateFriends drops the cached friend ID lists of both users.
func InvalidateFriends(ctx context.Context, userIDs ...uint) {
	for _, id := range userIDs {
		Invalidate(ctx, FriendsKey(id))
	}
}
