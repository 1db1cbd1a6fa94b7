package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is centralized process configuration. Keep infra values here and
// pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	PostgresDSN string
	RedisAddr   string

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	FacebookGraphURL string

	SettleInterval time.Duration
	RelayInterval  time.Duration
	SettleBatch    int

	EnableDeadlineSettler  bool
	EnableOutboxRelay      bool
	EnableProfileConsumer  bool
	EnableRankingIndex     bool
	LeaderboardDefaultSize int
}

// Load reads process configuration from the environment, with a best-effort
// .env file for local development.
func Load() (Config, error) {
	_ = godotenv.Load()

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "zerosum"
	}
	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-only-secret"
	}
	issuer := os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = service
	}

	return Config{
		ServiceName: service,
		HTTPPort:    port,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),

		JWTSecret: secret,
		JWTIssuer: issuer,
		JWTTTL:    envDuration("JWT_TTL", 24*time.Hour),

		FacebookGraphURL: os.Getenv("FACEBOOK_GRAPH_URL"),

		SettleInterval: envDuration("SETTLE_INTERVAL", 15*time.Second),
		RelayInterval:  envDuration("RELAY_INTERVAL", 2*time.Second),
		SettleBatch:    envInt("SETTLE_BATCH", 50),

		EnableDeadlineSettler:  envBool("ENABLE_DEADLINE_SETTLER", true),
		EnableOutboxRelay:      envBool("ENABLE_OUTBOX_RELAY", true),
		EnableProfileConsumer:  envBool("ENABLE_PROFILE_CONSUMER", true),
		EnableRankingIndex:     envBool("ENABLE_RANKING_INDEX", true),
		LeaderboardDefaultSize: envInt("LEADERBOARD_SIZE", 50),
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
