package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Gateway modes select the trust-source backend once at startup.
const (
	GatewayLocal  = "local"
	GatewayRemote = "remote"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr    string
	Logging Logging
	Gateway Gateway
	Storage Storage
	Redis   RedisConfig
	Engine  Engine
	Audit   Audit
}

// Logging controls the slog handler.
type Logging struct {
	Level  string
	Format string
	File   string
}

// Gateway configures the trust-source registry.
type Gateway struct {
	Mode        string
	RegistryURL string
	Timeout     time.Duration
	RPS         float64
	SeedFile    string
}

// Storage configures the Postgres-backed record store and audit outbox.
type Storage struct {
	DatabaseURL string
}

// RedisConfig configures the shared result cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Engine tunes the verification pipeline.
type Engine struct {
	ResultCacheTTL        time.Duration
	CrossVerifyTimeout    time.Duration
	MaxCrossVerifyTimeout time.Duration
	CollectorConcurrency  int
}

// Audit configures where audit events go.
type Audit struct {
	KafkaBrokers []string
	KafkaTopic   string
	BufferSize   int
	// CachedSampleRate is the share of cache-hit events that are recorded.
	CachedSampleRate float64
}

// DefaultResultCacheTTL is how long a successful verification is reused.
var DefaultResultCacheTTL = 5 * time.Minute

// DefaultCrossVerifyTimeout bounds a cross-verification request with no timeout of its own.
var DefaultCrossVerifyTimeout = 30 * time.Second

// DefaultMaxCrossVerifyTimeout is the largest timeout a caller may ask for.
var DefaultMaxCrossVerifyTimeout = 2 * time.Minute

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var errs []string
	dur := func(key string, def time.Duration) time.Duration {
		raw := os.Getenv(key)
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Sprintf("%s: invalid duration %q", key, raw))
			return def
		}
		return d
	}
	integer := func(key string, def int) int {
		raw := os.Getenv(key)
		if raw == "" {
			return def
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Sprintf("%s: invalid integer %q", key, raw))
			return def
		}
		return n
	}

	cfg := Server{
		Addr: envOr("TRUSTBOARD_ADDR", ":8080"),
		Logging: Logging{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "json"),
			File:   os.Getenv("LOG_FILE"),
		},
		Gateway: Gateway{
			Mode:        strings.ToLower(envOr("GATEWAY_MODE", GatewayLocal)),
			RegistryURL: os.Getenv("REGISTRY_URL"),
			Timeout:     dur("REGISTRY_TIMEOUT", 5*time.Second),
			SeedFile:    os.Getenv("SEED_FILE"),
		},
		Storage: Storage{DatabaseURL: os.Getenv("DATABASE_URL")},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Engine: Engine{
			ResultCacheTTL:        dur("RESULT_CACHE_TTL", DefaultResultCacheTTL),
			CrossVerifyTimeout:    dur("CROSS_VERIFY_TIMEOUT", DefaultCrossVerifyTimeout),
			MaxCrossVerifyTimeout: dur("CROSS_VERIFY_MAX_TIMEOUT", DefaultMaxCrossVerifyTimeout),
			CollectorConcurrency:  integer("COLLECTOR_CONCURRENCY", 4),
		},
		Audit: Audit{
			KafkaBrokers: splitList(os.Getenv("AUDIT_KAFKA_BROKERS")),
			KafkaTopic:   envOr("AUDIT_KAFKA_TOPIC", "trustboard.audit"),
			BufferSize:   integer("AUDIT_BUFFER_SIZE", 256),
		},
	}

	rps := 20.0
	if raw := os.Getenv("REGISTRY_RPS"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			errs = append(errs, fmt.Sprintf("REGISTRY_RPS: invalid rate %q", raw))
		} else {
			rps = v
		}
	}
	cfg.Gateway.RPS = rps

	cfg.Audit.CachedSampleRate = 0.1
	if raw := os.Getenv("AUDIT_CACHED_SAMPLE_RATE"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 1 {
			errs = append(errs, fmt.Sprintf("AUDIT_CACHED_SAMPLE_RATE: invalid rate %q", raw))
		} else {
			cfg.Audit.CachedSampleRate = v
		}
	}

	if cfg.Engine.CrossVerifyTimeout > cfg.Engine.MaxCrossVerifyTimeout {
		errs = append(errs, "CROSS_VERIFY_TIMEOUT must not exceed CROSS_VERIFY_MAX_TIMEOUT")
	}

	switch cfg.Gateway.Mode {
	case GatewayLocal:
	case GatewayRemote:
		if cfg.Gateway.RegistryURL == "" {
			errs = append(errs, "REGISTRY_URL is required when GATEWAY_MODE=remote")
		}
	default:
		errs = append(errs, fmt.Sprintf("GATEWAY_MODE: unknown mode %q", cfg.Gateway.Mode))
	}

	if len(errs) > 0 {
		return cfg, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
