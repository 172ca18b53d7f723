package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb, err := NewClient(mr.Addr())
	require.NoError(t, err)
	SetClient(rdb)
	t.Cleanup(func() {
		SetClient(nil)
		_ = rdb.Close()
	})
	return mr
}

func TestAside_CachesFetchedValue(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func() ([]uint, error) {
		calls++
		return []uint{1, 2, 3}, nil
	}

	got, err := Aside(ctx, FriendsKey(9), time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2, 3}, got)

	got, err = Aside(ctx, FriendsKey(9), time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2, 3}, got)
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists("user:9:friends"))

	InvalidateFriends(ctx, 9)
	assert.False(t, mr.Exists("user:9:friends"))

	_, err = Aside(ctx, FriendsKey(9), time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestAside_FetchErrorNotCached(t *testing.T) {
	mr := setupMiniredis(t)

	_, err := Aside(context.Background(), UserKey(5), time.Minute, func() (string, error) {
		return "", errors.New("boom")
	})
	assert.Error(t, err)
	assert.False(t, mr.Exists(UserKey(5)))
}

func TestAside_WithoutClient(t *testing.T) {
	SetClient(nil)
	got, err := Aside(context.Background(), "k", time.Minute, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestInitRedis_Unreachable(t *testing.T) {
	InitRedis("127.0.0.1:1")
	assert.Nil(t, GetClient())

	InitRedis("")
	assert.Nil(t, GetClient())
}

func TestInitRedis_URL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	InitRedis("redis://" + mr.Addr())
	t.Cleanup(func() { SetClient(nil) })
	require.NotNil(t, GetClient())
	assert.NoError(t, GetClient().Ping(context.Background()).Err())
}
