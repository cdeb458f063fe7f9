package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

const (
	keyPrefix   = "leadflow:session:"
	activityKey = "leadflow:session-activity"
)

// RedisStore keeps contexts in Redis. The inactivity window is enforced
// against LastActivity, with the key TTL at twice the window as a safety
// net: the grace period lets the sweeper read an idle session one last time
// and emit its summary before Redis drops the data. A sorted set indexed by
// LastActivity makes the sweep a single range query.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time

	// onExpire, when set, receives every context discarded by expiry so the
	// caller can emit a session summary before the data is gone.
	onExpire func(*Context)
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl, now: time.Now}
}

// OnExpire registers a callback invoked for every expired session. Must be
// called before the store is shared.
func (s *RedisStore) OnExpire(fn func(*Context)) { s.onExpire = fn }

// WithClock overrides the time source, for tests.
func (s *RedisStore) WithClock(now func() time.Time) *RedisStore {
	s.now = now
	return s
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Context, error) {
	raw, err := s.rdb.Get(ctx, keyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		s.rdb.ZRem(ctx, activityKey, sessionID)
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var c Context
	if err := json.Unmarshal(raw, &c); err != nil {
		// unparsable state must never crash a conversation; the caller
		// starts over with a fresh session
		log.Warn().Str("session_id", sessionID).Err(err).Msg("discarding corrupted session data")
		s.remove(ctx, sessionID)
		return nil, ErrCorrupted
	}
	if c.LeadData == nil {
		c.LeadData = make(LeadData)
	}
	if c.EscalationExecuted == nil {
		c.EscalationExecuted = make(map[string]bool)
	}
	if c.Expired(s.now(), s.ttl) {
		s.remove(ctx, sessionID)
		if s.onExpire != nil {
			s.onExpire(&c)
		}
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *RedisStore) Put(ctx context.Context, c *Context) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.rdb.Set(ctx, keyPrefix+c.SessionID, raw, 2*s.ttl).Err(); err != nil {
		return fmt.Errorf("redis put session: %w", err)
	}
	z := &redis.Z{Score: float64(c.LastActivity.Unix()), Member: c.SessionID}
	if err := s.rdb.ZAdd(ctx, activityKey, z).Err(); err != nil {
		return fmt.Errorf("redis index session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, keyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	s.rdb.ZRem(ctx, activityKey, sessionID)
	return nil
}

// Sweep evicts every session idle past the window, invoking the expiry
// callback for each so abandoned conversations still reach analytics.
// Returns the number of sessions discarded.
func (s *RedisStore) Sweep() int {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := strconv.FormatInt(s.now().Add(-s.ttl).Unix(), 10)
	ids, err := s.rdb.ZRangeByScore(ctx, activityKey, &redis.ZRangeBy{Min: "-inf", Max: cutoff}).Result()
	if err != nil {
		log.Warn().Err(err).Msg("session sweep failed")
		return 0
	}

	removed := 0
	for _, id := range ids {
		raw, err := s.rdb.Get(ctx, keyPrefix+id).Bytes()
		switch {
		case err == redis.Nil:
			// the key TTL already dropped the data, only the index is left
		case err != nil:
			log.Warn().Err(err).Str("session_id", id).Msg("session sweep read failed")
			continue
		default:
			var c Context
			if jerr := json.Unmarshal(raw, &c); jerr == nil && s.onExpire != nil {
				s.onExpire(&c)
			}
			removed++
		}
		s.remove(ctx, id)
	}
	return removed
}

func (s *RedisStore) remove(ctx context.Context, sessionID string) {
	s.rdb.Del(ctx, keyPrefix+sessionID)
	s.rdb.ZRem(ctx, activityKey, sessionID)
}
