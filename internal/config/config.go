package config

import (
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/Ackberry/cinetune/pkg/config"
	"github.com/Ackberry/cinetune/pkg/database"
	"github.com/Ackberry/cinetune/pkg/feed"
)

type Config struct {
	Server    ServerConfig
	Database  database.Config
	Redis     RedisConfig
	Feed      feed.Config
	Auth      AuthConfig
	Catalog   CatalogConfig
	WebSocket WebSocketConfig
	Chat      ChatConfig
	Cache     CacheConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type AuthConfig struct {
	Secret          string
	AccessDuration  time.Duration `mapstructure:"access_duration"`
	RefreshDuration time.Duration `mapstructure:"refresh_duration"`
	Issuer          string
}

type CatalogConfig struct {
	TMDBBaseURL         string `mapstructure:"tmdb_base_url"`
	TMDBAccessToken     string `mapstructure:"tmdb_access_token"`
	SpotifyTokenURL     string `mapstructure:"spotify_token_url"`
	SpotifyAPIURL       string `mapstructure:"spotify_api_url"`
	SpotifyClientID     string `mapstructure:"spotify_client_id"`
	SpotifyClientSecret string `mapstructure:"spotify_client_secret"`
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type ChatConfig struct {
	HistoryLimit int `mapstructure:"history_limit"`
}

type CacheConfig struct {
	TTL    time.Duration `mapstructure:"ttl"`
	Prefix string
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "cinetune")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "cinetune")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "cinetune.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("feed.driver", "redis")
	v.SetDefault("feed.kafka.brokers", "localhost:9092")
	v.SetDefault("feed.kafka.partitions", 8)
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.access_duration", "15m")
	v.SetDefault("auth.refresh_duration", "168h")
	v.SetDefault("auth.issuer", "cinetune")
	v.SetDefault("catalog.tmdb_base_url", "https://api.themoviedb.org/3")
	v.SetDefault("catalog.spotify_token_url", "https://accounts.spotify.com/api/token")
	v.SetDefault("catalog.spotify_api_url", "https://api.spotify.com/v1")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("chat.history_limit", 50)
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.prefix", "catalog")
	v.SetDefault("log.level", "info")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("feed.driver", "FEED_DRIVER")
	v.BindEnv("feed.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("auth.secret", "JWT_SECRET")
	v.BindEnv("catalog.tmdb_access_token", "TMDB_ACCESS_TOKEN")
	v.BindEnv("catalog.spotify_client_id", "SPOTIFY_CLIENT_ID")
	v.BindEnv("catalog.spotify_client_secret", "SPOTIFY_CLIENT_SECRET")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.Auth.AccessDuration = parseDuration(v, "auth.access_duration", 15*time.Minute)
	cfg.Auth.RefreshDuration = parseDuration(v, "auth.refresh_duration", 168*time.Hour)
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Cache.TTL = parseDuration(v, "cache.ttl", 5*time.Minute)

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
