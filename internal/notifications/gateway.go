package notifications

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"schoolmates/internal/middleware"
	"schoolmates/internal/observability"
)

// relayEnvelope wraps an event crossing Redis so echo suppression survives
// the hop.
type relayEnvelope struct {
	Type        string          `json:"type"`
	ExcludeConn string          `json:"exclude_conn,omitempty"`
	Event       json.RawMessage `json:"event"`
}

// Gateway maps conversation ids to subscribed connections. Join, Leave,
// LeaveAll and Publish are the only mutation surface.
type Gateway struct {
	mu     sync.RWMutex
	topics map[uint]map[*Client]struct{}
	joined map[*Client]map[uint]struct{}

	presence *Presence
	notifier *Notifier

	relayMu sync.RWMutex
	relay   bool
}

// NewGateway creates a gateway. notifier may be nil for single-instance use.
func NewGateway(presence *Presence, notifier *Notifier) *Gateway {
	return &Gateway{
		topics:   make(map[uint]map[*Client]struct{}),
		joined:   make(map[*Client]map[uint]struct{}),
		presence: presence,
		notifier: notifier,
	}
}

// Presence returns the registry used for user-addressed events.
func (g *Gateway) Presence() *Presence { return g.presence }

// Join subscribes c to a conversation and reports whether it was newly added.
func (g *Gateway) Join(conversationID uint, c *Client) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	subs, ok := g.topics[conversationID]
	if !ok {
		subs = make(map[*Client]struct{})
		g.topics[conversationID] = subs
	}
	if _, exists := subs[c]; exists {
		return false
	}
	subs[c] = struct{}{}

	convs, ok := g.joined[c]
	if !ok {
		convs = make(map[uint]struct{})
		g.joined[c] = convs
	}
	convs[conversationID] = struct{}{}
	return true
}

// Leave unsubscribes c from a conversation.
func (g *Gateway) Leave(conversationID uint, c *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.leaveLocked(conversationID, c)
}

func (g *Gateway) leaveLocked(conversationID uint, c *Client) {
	if subs, ok := g.topics[conversationID]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(g.topics, conversationID)
		}
	}
	if convs, ok := g.joined[c]; ok {
		delete(convs, conversationID)
		if len(convs) == 0 {
			delete(g.joined, c)
		}
	}
}

// LeaveAll removes c from every conversation and returns the ids it left.
func (g *Gateway) LeaveAll(c *Client) []uint {
	g.mu.Lock()
	defer g.mu.Unlock()

	convs := g.joined[c]
	left := make([]uint, 0, len(convs))
	for id := range convs {
		left = append(left, id)
	}
	for _, id := range left {
		g.leaveLocked(id, c)
	}
	sort.Slice(left, func(i, j int) bool { return left[i] < left[j] })
	return left
}

// Subscribers returns the connections joined to a conversation.
func (g *Gateway) Subscribers(conversationID uint) []*Client {
	g.mu.RLock()
	defer g.mu.RUnlock()

	subs := g.topics[conversationID]
	out := make([]*Client, 0, len(subs))
	for c := range subs {
		out = append(out, c)
	}
	return out
}

// IsSubscribed reports whether c has joined the conversation.
func (g *Gateway) IsSubscribed(conversationID uint, c *Client) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.topics[conversationID][c]
	return ok
}

func (g *Gateway) relaying() bool {
	g.relayMu.RLock()
	defer g.relayMu.RUnlock()
	return g.relay
}

// Publish sends ev to every subscriber of the conversation except exclude,
// which may be nil. With Redis wired the event is relayed so subscribers on
// every instance receive it.
func (g *Gateway) Publish(ctx context.Context, conversationID uint, ev Event, exclude *Client) error {
	data, err := ev.Marshal()
	if err != nil {
		return err
	}
	excludeID := ""
	if exclude != nil {
		excludeID = exclude.ID
	}

	if g.relaying() {
		env, err := json.Marshal(relayEnvelope{Type: ev.Type, ExcludeConn: excludeID, Event: data})
		if err != nil {
			return err
		}
		err = g.notifier.PublishConversation(ctx, conversationID, env)
		if err == nil {
			return nil
		}
		middleware.Logger.WarnContext(ctx, "realtime relay failed, delivering locally",
			"conversation_id", conversationID, "error", err.Error())
	}

	g.deliver(conversationID, ev.Type, data, excludeID)
	return nil
}

func (g *Gateway) deliver(conversationID uint, eventType string, data []byte, excludeID string) {
	for _, c := range g.Subscribers(conversationID) {
		if excludeID != "" && c.ID == excludeID {
			continue
		}
		if c.TrySend(data) {
			observability.WebSocketEvents.WithLabelValues("out", eventType).Inc()
		}
	}
}

// NotifyUser sends ev to the connection holding userID's presence slot, on
// whichever instance that is.
func (g *Gateway) NotifyUser(ctx context.Context, userID uint, ev Event) error {
	if !g.relaying() {
		g.presence.SendToUser(userID, ev)
		return nil
	}

	data, err := ev.Marshal()
	if err != nil {
		return err
	}
	env, err := json.Marshal(relayEnvelope{Type: ev.Type, Event: data})
	if err != nil {
		return err
	}
	if err := g.notifier.PublishUser(ctx, userID, env); err != nil {
		middleware.Logger.WarnContext(ctx, "realtime relay failed, delivering locally",
			"user_id", userID, "error", err.Error())
		g.presence.SendToUser(userID, ev)
	}
	return nil
}

// Start subscribes to the Redis channels and switches Publish and NotifyUser
// to relay mode. Without a notifier it is a no-op.
func (g *Gateway) Start(ctx context.Context) error {
	if !g.notifier.Enabled() {
		return nil
	}
	if err := g.notifier.Subscribe(ctx, g.handleRelay); err != nil {
		return err
	}
	g.relayMu.Lock()
	g.relay = true
	g.relayMu.Unlock()

	go func() {
		<-ctx.Done()
		g.relayMu.Lock()
		g.relay = false
		g.relayMu.Unlock()
	}()
	return nil
}

func (g *Gateway) handleRelay(channel, payload string) {
	prefix, id, ok := parseChannel(channel)
	if !ok {
		middleware.Logger.Warn("invalid realtime channel", "channel", channel)
		return
	}

	var env relayEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		middleware.Logger.Warn("invalid realtime payload", "channel", channel, "error", err.Error())
		return
	}

	switch prefix {
	case conversationChannelPrefix:
		g.deliver(id, env.Type, env.Event, env.ExcludeConn)
	case userChannelPrefix:
		if c, ok := g.presence.Lookup(id); ok && c.TrySend(env.Event) {
			observability.WebSocketEvents.WithLabelValues("out", env.Type).Inc()
		}
	}
}

// Shutdown closes every subscribed and registered client.
func (g *Gateway) Shutdown(_ context.Context) error {
	g.mu.Lock()
	clients := make(map[*Client]struct{}, len(g.joined))
	for c := range g.joined {
		clients[c] = struct{}{}
	}
	g.topics = make(map[uint]map[*Client]struct{})
	g.joined = make(map[*Client]map[uint]struct{})
	g.mu.Unlock()

	for _, id := range g.presence.OnlineUserIDs() {
		if c, ok := g.presence.Lookup(id); ok {
			clients[c] = struct{}{}
		}
	}

	// The write pump sends the close frame once the client is closed.
	for c := range clients {
		c.Close()
	}
	return nil
}
