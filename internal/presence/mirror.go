package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Zaroscript/polaris-travel-blog-sub000/pkg/log"
)

// Mirror publishes presence transitions to an external store so other
// services can answer "is this user online" without a connection to
// this process. The in-memory registry stays authoritative for
// routing; the mirror is write-only on the hot path and is never
// consulted for delivery.
type Mirror interface {
	Online(ctx context.Context, identity string) error
	Offline(ctx context.Context, identity string) error
	Close() error
}

// RedisMirrorConfig holds connection settings for the redis mirror.
type RedisMirrorConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// KeyTTL bounds how long a crashed process can leave an identity
	// marked online.
	KeyTTL time.Duration `mapstructure:"key_ttl"`
}

type redisMirror struct {
	client *redis.Client
	keyTTL time.Duration
}

// NewRedisMirror connects to redis and returns a presence mirror.
func NewRedisMirror(cfg RedisMirrorConfig) (Mirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.KeyTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &redisMirror{client: client, keyTTL: ttl}, nil
}

// presence key: presence:user:{identity} -> "1" with TTL
func presenceKey(identity string) string {
	return "presence:user:" + identity
}

func (m *redisMirror) Online(ctx context.Context, identity string) error {
	return m.client.Set(ctx, presenceKey(identity), "1", m.keyTTL).Err()
}

func (m *redisMirror) Offline(ctx context.Context, identity string) error {
	return m.client.Del(ctx, presenceKey(identity)).Err()
}

func (m *redisMirror) Close() error {
	return m.client.Close()
}

// NopMirror is used when no external presence store is configured.
type NopMirror struct{}

func (NopMirror) Online(context.Context, string) error  { return nil }
func (NopMirror) Offline(context.Context, string) error { return nil }
func (NopMirror) Close() error                          { return nil }

// LogMirrorError records a mirror failure without affecting the
// connection lifecycle that triggered it.
func LogMirrorError(ctx context.Context, op, identity string, err error) {
	if err == nil {
		return
	}
	l := log.Ctx(ctx)
	l.Warn().Err(err).Str("op", op).Str(log.FieldUserID, identity).Msg("presence mirror update failed")
}
