package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/presence"
	pkgconfig "github.com/Zaroscript/polaris-travel-blog-sub000/pkg/config"
	"github.com/Zaroscript/polaris-travel-blog-sub000/pkg/log"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Auth      AuthConfig
	Mongo     MongoConfig
	Presence  PresenceConfig
	Log       log.Config
}

type ServerConfig struct {
	Host string
	Port int
}

type WebSocketConfig struct {
	// AllowedOrigin admits cross-origin upgrades from exactly this
	// origin; empty allows same-origin only.
	AllowedOrigin  string        `mapstructure:"allowed_origin"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type AuthConfig struct {
	// Secret signs and verifies bearer credentials. Externally
	// supplied; the server refuses to start without one.
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
	Issuer   string        `mapstructure:"issuer"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type PresenceConfig struct {
	// MirrorEnabled publishes online/offline transitions to redis for
	// external consumers. Routing always uses the in-process registry.
	MirrorEnabled bool                       `mapstructure:"mirror_enabled"`
	Redis         presence.RedisMirrorConfig `mapstructure:"redis"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8084)
	v.SetDefault("websocket.allowed_origin", "")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.issuer", "polaris")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "polaris")
	v.SetDefault("presence.mirror_enabled", false)
	v.SetDefault("presence.redis.address", "localhost:6379")
	v.SetDefault("presence.redis.password", "")
	v.SetDefault("presence.redis.db", 0)
	v.SetDefault("presence.redis.key_ttl", "5m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "polaris-server")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("websocket.allowed_origin", "ALLOWED_ORIGIN")
	v.BindEnv("auth.secret", "JWT_SECRET")
	v.BindEnv("mongo.uri", "MONGO_URI")
	v.BindEnv("mongo.database", "MONGO_DATABASE")
	v.BindEnv("presence.redis.address", "REDIS_ADDRESS")
	v.BindEnv("presence.redis.password", "REDIS_PASSWORD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Auth.TokenTTL = parseDuration(v, "auth.token_ttl", 24*time.Hour)
	cfg.Presence.Redis.KeyTTL = parseDuration(v, "presence.redis.key_ttl", 5*time.Minute)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
