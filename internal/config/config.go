package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"vanish/pkg/sealer"
)

const EnvironmentProduction = "production"

type Config struct {
	Environment string
	Server      ServerConfig
	Redis       RedisConfig
	Log         LogConfig
	RateLimit   RateLimitConfig
	Room        RoomConfig
	Matchmaking MatchmakingConfig
	Realtime    RealtimeConfig
	Encryption  EncryptionConfig
}

type ServerConfig struct {
	Port         int
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level    string
	Encoding string
	File     string
}

type RateLimitConfig struct {
	Window        time.Duration
	MaxRequests   int
	BlockDuration time.Duration
}

type RoomConfig struct {
	MinTTL          time.Duration
	MaxTTL          time.Duration
	DefaultTTL      time.Duration // private rooms
	DefaultGroupTTL time.Duration // rooms with more than two participants
	RandomTTL       time.Duration
	DestroyDelay    time.Duration
}

type MatchmakingConfig struct {
	LockTTL  time.Duration
	QueueTTL time.Duration
	MatchTTL time.Duration
}

type RealtimeConfig struct {
	HistorySize int64
}

type EncryptionConfig struct {
	Key    string
	Cipher string
}

func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnvAsInt("SERVER_PORT", 8080),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Log: LogConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: getEnv("LOG_ENCODING", "json"),
			File:     getEnv("LOG_FILE", ""),
		},
		RateLimit: RateLimitConfig{
			Window:        getEnvAsDuration("RATE_LIMIT_WINDOW", 10*time.Second),
			MaxRequests:   getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 10),
			BlockDuration: getEnvAsDuration("RATE_LIMIT_BLOCK_DURATION", 60*time.Second),
		},
		Room: RoomConfig{
			MinTTL:          getEnvAsDuration("ROOM_MIN_TTL", time.Minute),
			MaxTTL:          getEnvAsDuration("ROOM_MAX_TTL", 20*time.Minute),
			DefaultTTL:      getEnvAsDuration("ROOM_DEFAULT_TTL", 10*time.Minute),
			DefaultGroupTTL: getEnvAsDuration("ROOM_DEFAULT_GROUP_TTL", 15*time.Minute),
			RandomTTL:       getEnvAsDuration("ROOM_RANDOM_TTL", 10*time.Minute),
			DestroyDelay:    getEnvAsDuration("ROOM_DESTROY_DELAY", 2*time.Second),
		},
		Matchmaking: MatchmakingConfig{
			LockTTL:  getEnvAsDuration("MATCHMAKING_LOCK_TTL", 5*time.Second),
			QueueTTL: getEnvAsDuration("MATCHMAKING_QUEUE_TTL", time.Hour),
			MatchTTL: getEnvAsDuration("MATCHMAKING_MATCH_TTL", 60*time.Second),
		},
		Realtime: RealtimeConfig{
			HistorySize: int64(getEnvAsInt("REALTIME_HISTORY_SIZE", 100)),
		},
		Encryption: EncryptionConfig{
			Key:    getEnv("ENCRYPTION_KEY", ""),
			Cipher: getEnv("ENCRYPTION_CIPHER", sealer.CipherAESGCM),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvironmentProduction
}

// EncryptionKey returns the parsed message key. Outside production a missing
// key falls back to sealer.DevelopmentKey; the bool reports that fallback.
func (c *Config) EncryptionKey() ([]byte, bool, error) {
	if c.Encryption.Key == "" {
		if c.IsProduction() {
			return nil, false, fmt.Errorf("ENCRYPTION_KEY must be set in production")
		}
		return []byte(sealer.DevelopmentKey), true, nil
	}
	key, err := sealer.ParseKey(c.Encryption.Key)
	return key, false, err
}

func (c *Config) validate() error {
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis address must be set")
	}
	if c.RateLimit.Window <= 0 || c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("rate limit window and max requests must be positive")
	}
	if c.RateLimit.BlockDuration <= c.RateLimit.Window {
		return fmt.Errorf("rate limit block duration (%s) must be longer than the window (%s)",
			c.RateLimit.BlockDuration, c.RateLimit.Window)
	}
	if c.Room.MinTTL <= 0 || c.Room.MinTTL > c.Room.MaxTTL {
		return fmt.Errorf("room TTL bounds are invalid: min %s, max %s", c.Room.MinTTL, c.Room.MaxTTL)
	}
	for name, ttl := range map[string]time.Duration{
		"ROOM_DEFAULT_TTL":       c.Room.DefaultTTL,
		"ROOM_DEFAULT_GROUP_TTL": c.Room.DefaultGroupTTL,
		"ROOM_RANDOM_TTL":        c.Room.RandomTTL,
	} {
		if ttl < c.Room.MinTTL || ttl > c.Room.MaxTTL {
			return fmt.Errorf("%s must be within [%s, %s]", name, c.Room.MinTTL, c.Room.MaxTTL)
		}
	}
	if c.Room.DestroyDelay < 0 {
		return fmt.Errorf("room destroy delay must not be negative")
	}
	if c.Matchmaking.LockTTL <= 0 || c.Matchmaking.QueueTTL <= 0 || c.Matchmaking.MatchTTL <= 0 {
		return fmt.Errorf("matchmaking TTLs must be positive")
	}
	if c.Realtime.HistorySize <= 0 {
		return fmt.Errorf("realtime history size must be positive")
	}
	if _, _, err := c.EncryptionKey(); err != nil {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
