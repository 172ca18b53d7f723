package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func drain(c *Client) []Event {
	var out []Event
	for {
		select {
		case raw := <-c.Send:
			var ev Event
			if err := json.Unmarshal(raw, &ev); err == nil {
				out = append(out, ev)
			}
		default:
			return out
		}
	}
}

func eventTypes(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}

func TestClientTrySendBackpressure(t *testing.T) {
	c := NewClient(nil, 1)
	for i := 0; i < sendBufferSize; i++ {
		require.True(t, c.TrySend([]byte(`{}`)))
	}
	assert.False(t, c.TrySend([]byte(`{}`)))

	c.Close()
	c.Close()
	assert.False(t, c.TrySend([]byte(`{}`)))
}

func TestClientIDsAreUnique(t *testing.T) {
	a, b := NewClient(nil, 1), NewClient(nil, 1)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestPresenceLastConnectionWins(t *testing.T) {
	p := NewPresence(nil)
	ctx := context.Background()

	first := NewClient(nil, 7)
	second := NewClient(nil, 7)

	assert.Nil(t, p.Register(ctx, first))
	assert.Same(t, first, p.Register(ctx, second))

	got, ok := p.Lookup(7)
	require.True(t, ok)
	assert.Same(t, second, got)

	assert.False(t, p.Unregister(ctx, first), "superseded connection must not clear the slot")
	assert.True(t, p.IsOnline(ctx, 7))

	assert.True(t, p.Unregister(ctx, second))
	assert.False(t, p.IsOnline(ctx, 7))
	assert.False(t, p.Unregister(ctx, second))
}

func TestPresenceOnlineUserIDs(t *testing.T) {
	p := NewPresence(nil)
	ctx := context.Background()
	for _, id := range []uint{9, 2, 5} {
		p.Register(ctx, NewClient(nil, id))
	}
	assert.Equal(t, []uint{2, 5, 9}, p.OnlineUserIDs())
}

func TestPresenceRedisMirror(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()

	local := NewPresence(rdb)
	remote := NewPresence(rdb)

	c := NewClient(nil, 3)
	local.Register(ctx, c)

	isMember, err := rdb.SIsMember(ctx, presenceOnlineSetKey, "3").Result()
	require.NoError(t, err)
	assert.True(t, isMember)
	assert.True(t, mr.TTL(lastSeenKey(3)) > 0)
	assert.True(t, remote.IsOnline(ctx, 3))

	local.Unregister(ctx, c)
	assert.False(t, remote.IsOnline(ctx, 3))
	assert.False(t, mr.Exists(lastSeenKey(3)))
}

func TestPresenceReapRemovesStaleUsers(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	p := NewPresence(rdb)

	require.NoError(t, rdb.SAdd(ctx, presenceOnlineSetKey, "44").Err())
	p.Register(ctx, NewClient(nil, 45))
	mr.FastForward(2 * presenceLastSeenTTL)

	stale := p.Reap(ctx)
	assert.Equal(t, []uint{44}, stale)

	isMember, err := rdb.SIsMember(ctx, presenceOnlineSetKey, "44").Result()
	require.NoError(t, err)
	assert.False(t, isMember)

	isMember, err = rdb.SIsMember(ctx, presenceOnlineSetKey, "45").Result()
	require.NoError(t, err)
	assert.True(t, isMember, "locally connected users are never reaped")
}

func TestGatewayJoinLeave(t *testing.T) {
	g := NewGateway(NewPresence(nil), nil)
	a, b := NewClient(nil, 1), NewClient(nil, 2)

	assert.True(t, g.Join(10, a))
	assert.False(t, g.Join(10, a))
	g.Join(10, b)
	g.Join(11, a)
	assert.Len(t, g.Subscribers(10), 2)

	g.Leave(10, b)
	assert.False(t, g.IsSubscribed(10, b))

	assert.Equal(t, []uint{10, 11}, g.LeaveAll(a))
	assert.Empty(t, g.Subscribers(10))
	assert.Empty(t, g.Subscribers(11))
	assert.Empty(t, g.LeaveAll(a))
}

func TestGatewayPublishExcludesSender(t *testing.T) {
	g := NewGateway(NewPresence(nil), nil)
	ctx := context.Background()
	sender, peer, outsider := NewClient(nil, 1), NewClient(nil, 2), NewClient(nil, 3)
	g.Join(5, sender)
	g.Join(5, peer)
	g.Join(6, outsider)

	require.NoError(t, g.Publish(ctx, 5, Event{Type: EventNewMessage}, nil))
	require.NoError(t, g.Publish(ctx, 5, Event{Type: EventTypingIndicator}, sender))

	assert.Equal(t, []string{EventNewMessage}, eventTypes(drain(sender)))
	assert.Equal(t, []string{EventNewMessage, EventTypingIndicator}, eventTypes(drain(peer)))
	assert.Empty(t, drain(outsider))
}

func TestGatewayNotifyUserLocal(t *testing.T) {
	p := NewPresence(nil)
	g := NewGateway(p, nil)
	c := NewClient(nil, 8)
	p.Register(context.Background(), c)

	require.NoError(t, g.NotifyUser(context.Background(), 8, Event{Type: EventFriendRequestReceived}))
	require.NoError(t, g.NotifyUser(context.Background(), 9, Event{Type: EventFriendRequestReceived}))
	assert.Equal(t, []string{EventFriendRequestReceived}, eventTypes(drain(c)))
}

func TestGatewayRelayAcrossInstances(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	left := NewGateway(NewPresence(rdb), NewNotifier(rdb))
	right := NewGateway(NewPresence(rdb), NewNotifier(rdb))
	require.NoError(t, left.Start(ctx))
	require.NoError(t, right.Start(ctx))

	sender := NewClient(nil, 1)
	peer := NewClient(nil, 2)
	left.Join(4, sender)
	right.Join(4, peer)
	right.Presence().Register(ctx, peer)

	require.NoError(t, left.Publish(ctx, 4, Event{Type: EventTypingIndicator}, sender))
	require.NoError(t, left.NotifyUser(ctx, 2, Event{Type: EventFriendRequestAccepted}))

	var got []Event
	assert.Eventually(t, func() bool {
		got = append(got, drain(peer)...)
		return len(got) == 2
	}, testEventuallyTimeout, testPollInterval)
	assert.ElementsMatch(t, []string{EventTypingIndicator, EventFriendRequestAccepted}, eventTypes(got))

	assert.Never(t, func() bool {
		return len(drain(sender)) > 0
	}, 10*testPollInterval, testPollInterval)
}

func TestNotifierDisabledIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.PublishUser(context.Background(), 1, []byte("x")))
	assert.NoError(t, n.Subscribe(context.Background(), func(string, string) {}))
}

func TestChannels(t *testing.T) {
	assert.Equal(t, "notifications:user:100", UserChannel(100))
	assert.Equal(t, "chat:conv:5", ConversationChannel(5))

	prefix, id, ok := parseChannel("chat:conv:12")
	assert.True(t, ok)
	assert.Equal(t, conversationChannelPrefix, prefix)
	assert.Equal(t, uint(12), id)

	_, _, ok = parseChannel("chat:conv:abc")
	assert.False(t, ok)
	_, _, ok = parseChannel("game:room:1")
	assert.False(t, ok)
}
