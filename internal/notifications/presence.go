package notifications

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"schoolmates/internal/middleware"
	"schoolmates/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	presenceOnlineSetKey  = "ws:online_users"
	presenceLastSeenKeyNS = "ws:last_seen:"
	presenceLastSeenTTL   = 90 * time.Second
)

// Presence maps each user to at most one live connection. The newest
// connection takes the slot; a superseded connection closing leaves it alone.
// With Redis configured the slots are mirrored so other instances can answer
// IsOnline.
type Presence struct {
	mu    sync.RWMutex
	slots map[uint]*Client

	rdb         *redis.Client
	lastSeenTTL time.Duration
}

// NewPresence creates a registry. rdb may be nil.
func NewPresence(rdb *redis.Client) *Presence {
	return &Presence{
		slots:       make(map[uint]*Client),
		rdb:         rdb,
		lastSeenTTL: presenceLastSeenTTL,
	}
}

func lastSeenKey(userID uint) string {
	return presenceLastSeenKeyNS + strconv.FormatUint(uint64(userID), 10)
}

// Register stores c as its user's connection and returns the client it replaced, if any.
func (p *Presence) Register(ctx context.Context, c *Client) *Client {
	p.mu.Lock()
	prev := p.slots[c.UserID]
	p.slots[c.UserID] = c
	observability.OnlineUsers.Set(float64(len(p.slots)))
	p.mu.Unlock()

	p.mirrorOnline(ctx, c.UserID)
	return prev
}

// Unregister clears c's slot only if it still holds c, and reports whether it did.
func (p *Presence) Unregister(ctx context.Context, c *Client) bool {
	p.mu.Lock()
	cur, ok := p.slots[c.UserID]
	if !ok || cur != c {
		p.mu.Unlock()
		return false
	}
	delete(p.slots, c.UserID)
	observability.OnlineUsers.Set(float64(len(p.slots)))
	p.mu.Unlock()

	p.mirrorOffline(ctx, c.UserID)
	return true
}

// Lookup returns the connection holding userID's slot.
func (p *Presence) Lookup(userID uint) (*Client, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.slots[userID]
	return c, ok
}

// IsOnline reports whether userID is connected here or, with Redis, on
// another instance that refreshed its heartbeat recently.
func (p *Presence) IsOnline(ctx context.Context, userID uint) bool {
	if _, ok := p.Lookup(userID); ok {
		return true
	}
	if p.rdb == nil {
		return false
	}
	n, err := p.rdb.Exists(ctx, lastSeenKey(userID)).Result()
	if err != nil {
		return false
	}
	return n > 0
}

// OnlineUserIDs returns the locally connected user ids in ascending order.
func (p *Presence) OnlineUserIDs() []uint {
	p.mu.RLock()
	ids := make([]uint, 0, len(p.slots))
	for id := range p.slots {
		ids = append(ids, id)
	}
	p.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SendToUser queues ev on userID's local connection.
func (p *Presence) SendToUser(userID uint, ev Event) bool {
	c, ok := p.Lookup(userID)
	if !ok {
		return false
	}
	return c.SendEvent(ev)
}

// Touch refreshes userID's heartbeat in the Redis mirror.
func (p *Presence) Touch(ctx context.Context, userID uint) {
	if p.rdb == nil {
		return
	}
	if err := p.rdb.Set(ctx, lastSeenKey(userID), time.Now().Unix(), p.lastSeenTTL).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "presence heartbeat failed", "user_id", userID, "error", err.Error())
	}
}

func (p *Presence) mirrorOnline(ctx context.Context, userID uint) {
	if p.rdb == nil {
		return
	}
	pipe := p.rdb.TxPipeline()
	pipe.SAdd(ctx, presenceOnlineSetKey, strconv.FormatUint(uint64(userID), 10))
	pipe.Set(ctx, lastSeenKey(userID), time.Now().Unix(), p.lastSeenTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		middleware.Logger.WarnContext(ctx, "presence mirror failed", "user_id", userID, "error", err.Error())
	}
}

func (p *Presence) mirrorOffline(ctx context.Context, userID uint) {
	if p.rdb == nil {
		return
	}
	pipe := p.rdb.TxPipeline()
	pipe.SRem(ctx, presenceOnlineSetKey, strconv.FormatUint(uint64(userID), 10))
	pipe.Del(ctx, lastSeenKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		middleware.Logger.WarnContext(ctx, "presence mirror failed", "user_id", userID, "error", err.Error())
	}
}

// Reap removes mirrored users whose heartbeat expired, typically because the
// instance holding them died, and returns their ids.
func (p *Presence) Reap(ctx context.Context) []uint {
	if p.rdb == nil {
		return nil
	}
	members, err := p.rdb.SMembers(ctx, presenceOnlineSetKey).Result()
	if err != nil {
		middleware.Logger.WarnContext(ctx, "presence reap failed", "error", err.Error())
		return nil
	}

	var stale []uint
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			_ = p.rdb.SRem(ctx, presenceOnlineSetKey, m).Err()
			continue
		}
		userID := uint(id)
		if _, local := p.Lookup(userID); local {
			continue
		}
		n, err := p.rdb.Exists(ctx, lastSeenKey(userID)).Result()
		if err != nil || n > 0 {
			continue
		}
		if err := p.rdb.SRem(ctx, presenceOnlineSetKey, m).Err(); err == nil {
			stale = append(stale, userID)
		}
	}
	return stale
}

// StartReaper runs Reap every interval until ctx is cancelled, passing each
// batch of stale ids to onStale.
func (p *Presence) StartReaper(ctx context.Context, interval time.Duration, onStale func([]uint)) {
	if p.rdb == nil || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if stale := p.Reap(ctx); len(stale) > 0 && onStale != nil {
					onStale(stale)
				}
			}
		}
	}()
}
