package biz_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/catalog-chat/internal/chat/biz"
	errs "github.com/kart-io/catalog-chat/pkg/errors"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisSessionStore(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	s := biz.NewRedisSessionStore(rdb, "catalog-chat:", time.Minute)

	err := s.Append(ctx, "s1", biz.UserTurn("early"))
	assert.True(t, errors.Is(err, errs.ErrSessionNotFound))

	sess, err := s.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, sess.Turns)

	require.NoError(t, s.Append(ctx, "s1", biz.UserTurn("A"), biz.AssistantTurn("B £4.74")))
	require.NoError(t, s.Append(ctx, "s1", biz.UserTurn("C")))

	sess, err = s.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []biz.Turn{biz.UserTurn("A"), biz.AssistantTurn("B £4.74"), biz.UserTurn("C")}, sess.Turns)

	other, err := s.GetOrCreate(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, other.Turns)

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRedisSessionStore_Expiry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	s := biz.NewRedisSessionStore(rdb, "catalog-chat:", time.Minute)

	_, err := s.GetOrCreate(ctx, "old")
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, "old", biz.UserTurn("hi"), biz.AssistantTurn("hello")))
	_, err = s.GetOrCreate(ctx, "idle")
	require.NoError(t, err)

	mr.FastForward(30 * time.Second)
	// 写入会刷新过期时间
	require.NoError(t, s.Append(ctx, "old", biz.UserTurn("still here")))

	mr.FastForward(45 * time.Second)
	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "只剩 old，idle 已过期")

	mr.FastForward(2 * time.Minute)
	n, err = s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	err = s.Append(ctx, "old", biz.UserTurn("late"))
	assert.True(t, errors.Is(err, errs.ErrSessionNotFound), "过期会话不能继续追加")

	sess, err := s.GetOrCreate(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, sess.Turns)
}

func TestRedisSessionStore_NoTTL(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	s := biz.NewRedisSessionStore(rdb, "catalog-chat:", 0)

	_, err := s.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, "s1", biz.UserTurn("a")))

	mr.FastForward(24 * time.Hour)
	sess, err := s.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []biz.Turn{biz.UserTurn("a")}, sess.Turns)
}

func TestRedisSessionStore_Unavailable(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	s := biz.NewRedisSessionStore(rdb, "catalog-chat:", time.Minute)

	err := s.Append(context.Background(), "s1", biz.UserTurn("a"), biz.AssistantTurn("b"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrSession))
	assert.False(t, errors.Is(err, errs.ErrSessionNotFound))
}
