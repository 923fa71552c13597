// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Kafka, Redis, Postgres, GitHub, LLM, Digest, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Environment string         `yaml:"environment"`
	Server      ServerConfig   `yaml:"server"`
	Worker      WorkerConfig   `yaml:"worker"`
	Kafka       KafkaConfig    `yaml:"kafka"`
	Redis       RedisConfig    `yaml:"redis"`
	Postgres    PostgresConfig `yaml:"postgres"`
	GitHub      GitHubConfig   `yaml:"github"`
	LLM         LLMConfig      `yaml:"llm"`
	Digest      DigestConfig   `yaml:"digest"`
	Logging     LoggingConfig  `yaml:"logging"`
	Metrics     MetricsConfig  `yaml:"metrics"`
}

// IsProduction reports whether the process runs in production mode. The scan
// trigger only enforces bearer authentication in production, and rendered
// documents get a "-DEV" filename suffix everywhere else.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ServerConfig holds the scan-trigger HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	TriggerSecret   string        `yaml:"triggerSecret"`
}

// WorkerConfig holds the worker service's health/metrics HTTP port.
type WorkerConfig struct {
	Port int `yaml:"port"`
}

// KafkaConfig holds Kafka broker and topic settings for the work queue.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
	// SigningSecret is the shared HMAC key used to sign and verify every
	// message envelope on the work topic.
	SigningSecret string `yaml:"signingSecret"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	Work string `yaml:"work"`
}

// RedisConfig holds Redis connection parameters for the result buckets.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
}

// PostgresConfig holds PostgreSQL connection parameters for the run ledger.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// GitHubConfig holds the repository host connection parameters.
type GitHubConfig struct {
	BaseURL string        `yaml:"baseUrl"`
	Token   string        `yaml:"token"`
	Owner   string        `yaml:"owner"`
	Repo    string        `yaml:"repo"`
	Timeout time.Duration `yaml:"timeout"`
}

// LLMConfig holds the language-model service settings. The same provider
// backs the URL classifier, the item summarizers, and the digest generator.
type LLMConfig struct {
	APIKey string `yaml:"apiKey"`
	// Model is used for URL classification and per-item summaries.
	Model string `yaml:"model"`
	// DigestModel is used for the final digest synthesis.
	DigestModel string `yaml:"digestModel"`
	MaxTokens   int    `yaml:"maxTokens"`
}

// DigestConfig controls the scan window, work-queue naming, and placement of
// the rendered digest document.
type DigestConfig struct {
	// Queue is the logical run-queue name; bucket keys are derived from it
	// plus a per-run identifier.
	Queue string `yaml:"queue"`
	// SummaryName is the filename prefix of the rendered digest document.
	// It is also excluded from scanning so the pipeline never re-summarizes
	// its own output.
	SummaryName string `yaml:"summaryName"`
	// ExcludedTerms lists additional filename substrings to skip during
	// change discovery (e.g. weekly/monthly digest prefixes).
	ExcludedTerms []string `yaml:"excludedTerms"`
	// Folder is the repository path the rendered document is written under.
	Folder string `yaml:"folder"`
	// Extension is the tracked content extension, ".md" by default.
	Extension string `yaml:"extension"`
	// Window is the trailing change-discovery interval.
	Window time.Duration `yaml:"window"`
	// RunTimeout is the wall-clock budget for a whole scan or synthesis run.
	RunTimeout time.Duration `yaml:"runTimeout"`
}

// ExclusionTerms returns every filename substring that disqualifies a changed
// file from scanning: the digest's own summary-name prefix plus any
// configured extra terms.
func (d DigestConfig) ExclusionTerms() []string {
	terms := make([]string, 0, len(d.ExcludedTerms)+1)
	if d.SummaryName != "" {
		terms = append(terms, d.SummaryName)
	}
	terms = append(terms, d.ExcludedTerms...)
	return terms
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// defaultConfig returns a Config with defaults suitable for local development.
func defaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
		},
		Worker: WorkerConfig{
			Port: 8081,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "notedigest-workers",
			Topics: KafkaTopics{
				Work: "digest-work",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "notedigest",
			User:            "notedigest",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		GitHub: GitHubConfig{
			BaseURL: "https://api.github.com",
			Timeout: 30 * time.Second,
		},
		LLM: LLMConfig{
			Model:       "gemini-2.5-flash",
			DigestModel: "gemini-2.5-pro",
			MaxTokens:   4000,
		},
		Digest: DigestConfig{
			Queue:       "daily-note-queue",
			SummaryName: "Daily Summary",
			Folder:      "summaries/daily",
			Extension:   ".md",
			Window:      24 * time.Hour,
			RunTimeout:  5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads ND_* environment variables and overrides the
// corresponding config fields. Secrets are expected to arrive this way in
// deployed environments rather than living in the YAML file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ND_ENVIRONMENT"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("ND_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ND_TRIGGER_SECRET"); v != "" {
		cfg.Server.TriggerSecret = v
	}
	if v := os.Getenv("ND_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("ND_KAFKA_SIGNING_SECRET"); v != "" {
		cfg.Kafka.SigningSecret = v
	}
	if v := os.Getenv("ND_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("ND_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("ND_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("ND_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("ND_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("ND_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("ND_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("ND_GITHUB_TOKEN"); v != "" {
		cfg.GitHub.Token = v
	}
	if v := os.Getenv("ND_GITHUB_OWNER"); v != "" {
		cfg.GitHub.Owner = v
	}
	if v := os.Getenv("ND_GITHUB_REPO"); v != "" {
		cfg.GitHub.Repo = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("ND_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("ND_LLM_DIGEST_MODEL"); v != "" {
		cfg.LLM.DigestModel = v
	}
	if v := os.Getenv("ND_DIGEST_QUEUE"); v != "" {
		cfg.Digest.Queue = v
	}
	if v := os.Getenv("ND_DIGEST_SUMMARY_NAME"); v != "" {
		cfg.Digest.SummaryName = v
	}
	if v := os.Getenv("ND_DIGEST_EXCLUDED_TERMS"); v != "" {
		cfg.Digest.ExcludedTerms = strings.Split(v, ",")
	}
	if v := os.Getenv("ND_DIGEST_FOLDER"); v != "" {
		cfg.Digest.Folder = v
	}
	if v := os.Getenv("ND_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
	if v := os.Getenv("ND_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ND_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
