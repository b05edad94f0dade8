package directory

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/gaspardpetit/dispatchd/internal/dispatch"
)

const loadKeyPrefix = "dispatchd:load:"

// reserveScript performs the conditional increment server-side so the
// capacity check and the increment are a single atomic step even with
// multiple dispatchd replicas sharing one Redis.
var reserveScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local max = tonumber(ARGV[1])
if cur >= max then
  return -1
end
return redis.call('INCR', KEYS[1])
`)

// releaseScript decrements the counter floored at zero.
var releaseScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
if cur <= 0 then
  redis.call('SET', KEYS[1], '0')
  return 0
end
return redis.call('DECR', KEYS[1])
`)

// RedisLoads implements dispatch.LoadAccessor backed by a Redis instance, for
// deployments running more than one dispatchd replica against the same
// operator pool. Maximum loads are resolved through the directory at reserve
// time.
type RedisLoads struct {
	client redis.UniversalClient
	dir    dispatch.Directory
}

// NewRedisLoads connects to the given Redis URL and returns a load accessor.
func NewRedisLoads(addr string, dir dispatch.Directory) (*RedisLoads, error) {
	opts, err := parseRedisURL(addr)
	if err != nil {
		return nil, err
	}
	c := redis.NewUniversalClient(opts)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisLoads{client: c, dir: dir}, nil
}

// parseRedisURL parses addr into UniversalOptions. If no scheme is present,
// addr is treated as a plain host:port string.
func parseRedisURL(addr string) (*redis.UniversalOptions, error) {
	if !strings.Contains(addr, "://") {
		return &redis.UniversalOptions{Addrs: []string{addr}}, nil
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("redis: invalid URL scheme: %s", u.Scheme)
	}
	opts := &redis.UniversalOptions{Addrs: strings.Split(u.Host, ",")}
	if u.User != nil {
		opts.Username = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			opts.Password = pw
		}
	}
	if u.Path != "" && u.Path != "/" {
		db, err := strconv.Atoi(strings.TrimPrefix(u.Path, "/"))
		if err != nil {
			return nil, fmt.Errorf("redis: invalid db: %v", err)
		}
		opts.DB = db
	}
	if u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}

// CurrentLoad implements dispatch.LoadAccessor.
func (r *RedisLoads) CurrentLoad(ctx context.Context, id string) (int, error) {
	n, err := r.client.Get(ctx, loadKeyPrefix+id).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

// TryReserve implements dispatch.LoadAccessor.
func (r *RedisLoads) TryReserve(ctx context.Context, id string) (bool, error) {
	max, err := r.dir.MaxLoad(ctx, id)
	if err != nil {
		return false, err
	}
	n, err := reserveScript.Run(ctx, r.client, []string{loadKeyPrefix + id}, max).Int()
	if err != nil {
		return false, err
	}
	return n >= 0, nil
}

// Release implements dispatch.LoadAccessor.
func (r *RedisLoads) Release(ctx context.Context, id string) error {
	return releaseScript.Run(ctx, r.client, []string{loadKeyPrefix + id}).Err()
}

// Close releases the underlying Redis connection.
func (r *RedisLoads) Close() error { return r.client.Close() }
