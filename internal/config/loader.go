package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "dealforge.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "DEALFORGE_PORT")
	setString(&cfg.Server.CORSOrigin, "DEALFORGE_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "DEALFORGE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "DEALFORGE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "DEALFORGE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "DEALFORGE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "DEALFORGE_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.LiteLLM.URL, "LITELLM_URL")
	setString(&cfg.LiteLLM.MasterKey, "LITELLM_MASTER_KEY")
	setString(&cfg.SMTP.Host, "DEALFORGE_SMTP_HOST")
	setInt(&cfg.SMTP.Port, "DEALFORGE_SMTP_PORT")
	setString(&cfg.SMTP.From, "DEALFORGE_SMTP_FROM")
	setString(&cfg.SMTP.Password, "DEALFORGE_SMTP_PASSWORD")
	setString(&cfg.Slack.WebhookURL, "DEALFORGE_SLACK_WEBHOOK")
	setString(&cfg.Discord.WebhookURL, "DEALFORGE_DISCORD_WEBHOOK")
	setString(&cfg.Logging.Level, "DEALFORGE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "DEALFORGE_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "DEALFORGE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "DEALFORGE_BREAKER_TIMEOUT")
	setInt64(&cfg.Cache.MaxSizeMB, "DEALFORGE_CACHE_SIZE_MB")
	setString(&cfg.Cache.KVBucket, "DEALFORGE_CACHE_KV_BUCKET")
	setInt(&cfg.Negotiation.MaxRounds, "DEALFORGE_MAX_ROUNDS")
	setFloat64(&cfg.Negotiation.ConfidenceThreshold, "DEALFORGE_CONFIDENCE_THRESHOLD")
	setString(&cfg.Negotiation.ClassifyModel, "DEALFORGE_CLASSIFY_MODEL")
	setString(&cfg.Negotiation.ComposeModel, "DEALFORGE_COMPOSE_MODEL")
	setDuration(&cfg.Negotiation.BrandReferenceTTL, "DEALFORGE_BRAND_REFERENCE_TTL")
}

// validate checks that required fields are set. A failure here is fatal at
// startup, never per-call.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Negotiation.MaxRounds < 1 {
		return errors.New("negotiation.max_rounds must be >= 1")
	}
	if cfg.Negotiation.ConfidenceThreshold < 0 || cfg.Negotiation.ConfidenceThreshold > 1 {
		return errors.New("negotiation.confidence_threshold must be in [0, 1]")
	}
	if len(cfg.Negotiation.RateCard) == 0 {
		return errors.New("negotiation.rate_card must not be empty")
	}
	for _, tier := range cfg.Negotiation.RateCard {
		if _, err := decimal.NewFromString(tier.CPM); err != nil {
			return fmt.Errorf("negotiation.rate_card: invalid cpm %q: %w", tier.CPM, err)
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
