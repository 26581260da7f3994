package db

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"dutchAuction/config"
	"dutchAuction/game"
	"dutchAuction/state"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// RedisClient is the global Redis client instance
	RedisClient *redis.Client
)

// InitRedis initializes the Redis client connection
func InitRedis(addr, password string, db int) error {
	log.Info("🔌 Connecting to Redis...", zap.String("addr", addr))

	if addr == "" {
		addr = config.DefaultRedisAddr
	}

	RedisClient = redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := RedisClient.Ping(ctx).Err(); err != nil {
		RedisClient.Close()
		RedisClient = nil
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("✅ Redis connected", zap.String("addr", addr))
	return nil
}

// CloseRedis closes the Redis connection
func CloseRedis() error {
	if RedisClient != nil {
		log.Info("🔌 Closing Redis connection...")
		err := RedisClient.Close()
		RedisClient = nil
		return err
	}
	return nil
}

/* =========================
   SESSION SNAPSHOTS
   Redis Keys: auction:{runId}:session      -> JSON snapshot
               auction:{runId}:participants -> Hash{name: participant JSON}
   Channel:    auction:{runId}:events       -> JSON snapshot per change
========================= */

func sessionKey(runID string) string      { return fmt.Sprintf(config.RedisSessionKey, runID) }
func participantsKey(runID string) string { return fmt.Sprintf(config.RedisParticipantsKey, runID) }
func eventsChannel(runID string) string   { return fmt.Sprintf(config.RedisEventsChannel, runID) }

// participantFields encodes the participant hash. An empty map still clears
// the hash, so departed participants disappear.
func participantFields(users map[string]state.Participant) (map[string]interface{}, error) {
	fields := make(map[string]interface{}, len(users))
	for name, p := range users {
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal participant %s: %w", name, err)
		}
		fields[name] = data
	}
	return fields, nil
}

// StoreSession writes the snapshot, replaces the participant hash and
// publishes the snapshot on the run's events channel.
func StoreSession(ctx context.Context, s game.Session) error {
	if RedisClient == nil {
		return nil
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	fields, err := participantFields(s.Users)
	if err != nil {
		return err
	}

	_, err = RedisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(s.RunID), data, config.RedisSnapshotTTL)
		pipe.Del(ctx, participantsKey(s.RunID))
		if len(fields) > 0 {
			pipe.HSet(ctx, participantsKey(s.RunID), fields)
			pipe.Expire(ctx, participantsKey(s.RunID), config.RedisSnapshotTTL)
		}
		pipe.Publish(ctx, eventsChannel(s.RunID), data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// GetSession retrieves the last stored snapshot, or nil if none exists.
func GetSession(ctx context.Context, runID string) (*game.Session, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("Redis not initialized")
	}

	data, err := RedisClient.Get(ctx, sessionKey(runID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var s game.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

// GetParticipants reads the participant hash.
func GetParticipants(ctx context.Context, runID string) (map[string]state.Participant, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("Redis not initialized")
	}

	data, err := RedisClient.HGetAll(ctx, participantsKey(runID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}

	out := make(map[string]state.Participant, len(data))
	for name, raw := range data {
		var p state.Participant
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			log.Warn("⚠️  Failed to unmarshal participant", zap.String("name", name), zap.Error(err))
			continue
		}
		out[name] = p
	}
	return out, nil
}

// TouchSession extends the TTL of the run's keys.
func TouchSession(ctx context.Context, runID string) error {
	if RedisClient == nil {
		return nil
	}
	_, err := RedisClient.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Expire(ctx, sessionKey(runID), config.RedisSnapshotTTL)
		pipe.Expire(ctx, participantsKey(runID), config.RedisSnapshotTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to refresh session ttl: %w", err)
	}
	return nil
}

// SessionMirror is a game.Publisher that copies snapshots to Redis off the
// engine's lock. Only the newest pending snapshot is kept.
type SessionMirror struct {
	mu      sync.Mutex
	pending *game.Session
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
	store   func(ctx context.Context, s game.Session) error
}

func NewSessionMirror() *SessionMirror {
	m := &SessionMirror{
		wake:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
		store: StoreSession,
	}
	go m.run()
	return m
}

func (m *SessionMirror) Publish(s game.Session) {
	m.mu.Lock()
	m.pending = &s
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Close flushes the pending snapshot and stops the worker.
func (m *SessionMirror) Close() {
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
	<-m.done
}

func (m *SessionMirror) run() {
	defer close(m.done)
	for {
		select {
		case <-m.wake:
			m.flush()
		case <-m.stop:
			m.flush()
			return
		}
	}
}

func (m *SessionMirror) flush() {
	m.mu.Lock()
	s := m.pending
	m.pending = nil
	m.mu.Unlock()

	if s == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.MirrorTimeout)
	defer cancel()
	if err := m.store(ctx, *s); err != nil {
		log.Error("❌ Failed to mirror session to Redis", zap.Error(err))
	}
}

/* =========================
   HEALTH CHECK
========================= */

// HealthCheck performs a Redis health check
func HealthCheck(ctx context.Context) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	return RedisClient.Ping(ctx).Err()
}
