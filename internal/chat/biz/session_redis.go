package biz

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/catalog-chat/pkg/errors"
	"github.com/kart-io/catalog-chat/pkg/utils/json"
)

var _ SessionStore = (*RedisSessionStore)(nil)

// appendScript 在标记键存在时追加消息，并同时刷新标记键与消息列表的过期时间。
// KEYS[1] 标记键，KEYS[2] 消息列表；ARGV[1] 过期毫秒数（0 表示不过期），其余为消息。
var appendScript = goredis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
if #ARGV > 1 then
	redis.call("RPUSH", KEYS[2], unpack(ARGV, 2))
end
local ttl = tonumber(ARGV[1])
if ttl > 0 then
	redis.call("PEXPIRE", KEYS[1], ttl)
	redis.call("PEXPIRE", KEYS[2], ttl)
end
return 1
`)

// RedisSessionStore 基于 Redis 的会话存储。
//
// 会话是否存在只由标记键 <prefix>session:{id} 决定，消息保存在
// <prefix>turns:{id} 列表中，两个键共用 hash tag，可在集群中同槽执行脚本。
// ttl > 0 时，每次 Append 同时刷新两个键的过期时间，过期的会话等同于不存在。
type RedisSessionStore struct {
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisSessionStore 创建 Redis 会话存储。
func NewRedisSessionStore(rdb goredis.UniversalClient, prefix string, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisSessionStore) markerKey(id string) string { return s.prefix + "session:{" + id + "}" }

func (s *RedisSessionStore) turnsKey(id string) string { return s.prefix + "turns:{" + id + "}" }

// GetOrCreate 返回会话，不存在时创建标记键。
func (s *RedisSessionStore) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	created, err := s.rdb.SetNX(ctx, s.markerKey(id), 1, s.ttl).Result()
	if err != nil {
		return nil, errors.ErrSession.WithCause(err)
	}
	if created {
		// 新会话不继承残留的消息列表
		if err := s.rdb.Del(ctx, s.turnsKey(id)).Err(); err != nil {
			return nil, errors.ErrSession.WithCause(err)
		}
		return &Session{ID: id, Turns: []Turn{}}, nil
	}

	raw, err := s.rdb.LRange(ctx, s.turnsKey(id), 0, -1).Result()
	if err != nil {
		return nil, errors.ErrSession.WithCause(err)
	}

	turns := make([]Turn, 0, len(raw))
	for _, item := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, errors.ErrSession.WithCause(err)
		}
		turns = append(turns, t)
	}
	return &Session{ID: id, Turns: turns}, nil
}

// Append 用一次脚本调用追加全部消息。
func (s *RedisSessionStore) Append(ctx context.Context, id string, turns ...Turn) error {
	args := make([]any, 0, len(turns)+1)
	args = append(args, s.ttl.Milliseconds())
	for _, turn := range turns {
		data, err := json.Marshal(turn)
		if err != nil {
			return errors.ErrSession.WithCause(err)
		}
		args = append(args, string(data))
	}

	ok, err := appendScript.Run(ctx, s.rdb, []string{s.markerKey(id), s.turnsKey(id)}, args...).Int()
	if err != nil {
		return errors.ErrSession.WithCause(err)
	}
	if ok == 0 {
		return errors.ErrSessionNotFound.WithMessagef("session %q not created", id)
	}
	return nil
}

// Len 统计未过期的标记键数量。
func (s *RedisSessionStore) Len(ctx context.Context) (int, error) {
	n := 0
	iter := s.rdb.Scan(ctx, 0, s.prefix+"session:*", 256).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, errors.ErrSession.WithCause(err)
	}
	return n, nil
}
