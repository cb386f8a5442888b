// Package config centraliza o carregamento de configurações da aplicação.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/rpgmem/ffcertificate-sub002/internal/core/domain"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Challenge ChallengeConfig
	Audit     AuditConfig
	RateLimit domain.RateLimitSettings
}

type ServerConfig struct {
	Port              string
	TrustForwardedFor bool
	// AuthUserHeader é o cabeçalho em que o proxy de autenticação grava o id
	// do usuário logado. Vazio desliga os limites por usuário.
	AuthUserHeader    string
	ShutdownTimeout   time.Duration
	ReadHeaderTimeout time.Duration
}

type StorageConfig struct {
	Type      string
	Redis     RedisConfig
	OpTimeout time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// DatabaseConfig é opcional; sem URL os colaboradores persistentes ficam em memória.
type DatabaseConfig struct {
	URL string
}

type ChallengeConfig struct {
	Salt string
}

type AuditConfig struct {
	HashSalt      string
	DegradedEvery time.Duration
}

func Load() (Config, error) {
	_ = godotenv.Load()

	server, err := buildServerConfig()
	if err != nil {
		return Config{}, err
	}

	redisConfig, err := buildRedisConfig()
	if err != nil {
		return Config{}, err
	}

	opTimeout, err := durationEnv("STORAGE_OP_TIMEOUT", 250*time.Millisecond)
	if err != nil {
		return Config{}, err
	}

	degradedEvery, err := durationEnv("AUDIT_DEGRADED_EVERY", time.Minute)
	if err != nil {
		return Config{}, err
	}

	rateLimit, err := buildRateLimitSettings()
	if err != nil {
		return Config{}, err
	}
	if err := rateLimit.Validate(); err != nil {
		return Config{}, err
	}

	salt := os.Getenv("CHALLENGE_SALT")
	if strings.TrimSpace(salt) == "" {
		return Config{}, fmt.Errorf("CHALLENGE_SALT is required")
	}

	return Config{
		Server: server,
		Storage: StorageConfig{
			Type:      strings.ToLower(getEnv("STORAGE_TYPE", "redis")),
			Redis:     redisConfig,
			OpTimeout: opTimeout,
		},
		Database:  DatabaseConfig{URL: strings.TrimSpace(os.Getenv("DATABASE_URL"))},
		Challenge: ChallengeConfig{Salt: salt},
		Audit: AuditConfig{
			HashSalt:      getEnv("AUDIT_HASH_SALT", salt),
			DegradedEvery: degradedEvery,
		},
		RateLimit: rateLimit,
	}, nil
}

func buildServerConfig() (ServerConfig, error) {
	trust, err := boolEnv("TRUST_X_FORWARDED_FOR", false)
	if err != nil {
		return ServerConfig{}, err
	}
	shutdown, err := durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return ServerConfig{}, err
	}
	readHeader, err := durationEnv("READ_HEADER_TIMEOUT", 5*time.Second)
	if err != nil {
		return ServerConfig{}, err
	}
	return ServerConfig{
		Port:              getEnv("SERVER_PORT", "8080"),
		TrustForwardedFor: trust,
		AuthUserHeader:    strings.TrimSpace(getEnv("AUTH_USER_HEADER", "")),
		ShutdownTimeout:   shutdown,
		ReadHeaderTimeout: readHeader,
	}, nil
}

func buildRedisConfig() (RedisConfig, error) {
	host := getEnv("REDIS_HOST", "localhost")
	port, err := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	return RedisConfig{
		Host:     host,
		Port:     port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}, nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func intEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func listEnv(key string) []string {
	return domain.ParseList(os.Getenv(key))
}
