package notifications

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"

	"schoolmates/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	conversationChannelPrefix = "chat:conv:"
	userChannelPrefix         = "notifications:user:"
)

// Notifier publishes realtime payloads into Redis channels so every instance
// can deliver them to its local connections. A nil client disables it.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether a Redis client is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishConversation sends payload to a conversation's channel.
func (n *Notifier) PublishConversation(ctx context.Context, conversationID uint, payload []byte) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, ConversationChannel(conversationID), payload).Err()
}

// PublishUser sends payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload []byte) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// Subscribe listens on every conversation and user channel and calls
// onMessage for each payload until ctx is cancelled. It returns once the
// subscription is confirmed by Redis.
func (n *Notifier) Subscribe(ctx context.Context, onMessage func(channel, payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, conversationChannelPrefix+"*", userChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe realtime channels: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in realtime subscriber",
								"channel", msg.Channel, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// ConversationChannel derives the Redis channel name for a conversation.
func ConversationChannel(conversationID uint) string {
	return conversationChannelPrefix + strconv.FormatUint(uint64(conversationID), 10)
}

// parseChannel splits a realtime channel into its prefix and id.
func parseChannel(channel string) (prefix string, id uint, ok bool) {
	for _, p := range []string{conversationChannelPrefix, userChannelPrefix} {
		if rest, found := strings.CutPrefix(channel, p); found {
			n, err := strconv.ParseUint(rest, 10, 64)
			if err != nil || n == 0 {
				return "", 0, false
			}
			return p, uint(n), true
		}
	}
	return "", 0, false
}
