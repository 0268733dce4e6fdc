package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyToken        = "auth_token"
	keyRole         = "user_role"
	keyRenewalCount = "refresh_count"
	keyIdentityHint = "user_email"
)

// RedisStore persists session state in Redis. Token, role and renewal count share
// a TTL; the identity hint does not expire. Writes and clears run in MULTI/EXEC.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns a store under prefix. ttl bounds the token slot; zero
// means no expiry.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "gsc"
	}
	return &RedisStore{redis: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(name string) string {
	return s.prefix + ":" + name
}

func (s *RedisStore) Save(ctx context.Context, st State) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(keyToken), st.Token, s.ttl)
		pipe.Set(ctx, s.key(keyRole), st.Role, s.ttl)
		pipe.Set(ctx, s.key(keyRenewalCount), st.RenewalCount, s.ttl)
		if st.IdentityHint != "" {
			pipe.Set(ctx, s.key(keyIdentityHint), st.IdentityHint, 0)
		} else {
			pipe.Del(ctx, s.key(keyIdentityHint))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (State, bool, error) {
	vals, err := s.redis.MGet(ctx,
		s.key(keyToken),
		s.key(keyRole),
		s.key(keyRenewalCount),
		s.key(keyIdentityHint),
	).Result()
	if err != nil {
		return State{}, false, fmt.Errorf("load session: %w", err)
	}

	token, _ := vals[0].(string)
	if token == "" {
		return State{}, false, nil
	}

	st := State{Token: token}
	st.Role, _ = vals[1].(string)
	st.IdentityHint, _ = vals[3].(string)
	if raw, ok := vals[2].(string); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return State{}, false, errors.New("load session: corrupt renewal count")
		}
		st.RenewalCount = n
	}
	return st, true, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(keyToken), s.key(keyRole), s.key(keyRenewalCount), s.key(keyIdentityHint))
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
