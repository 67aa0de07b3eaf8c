// Package config loads service configuration from an optional YAML file with
// CHAINAUDIT_* environment variables taking precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	liststr "chainaudit/pkg/platform/strings"
)

const envPrefix = "CHAINAUDIT_"

const (
	DefaultAddr             = ":8080"
	DefaultEnv              = "development"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultRegistryFile     = "configs/registry.yaml"
	DefaultLedgerKind       = LedgerMemory
	DefaultLedgerEncoding   = "json"
	DefaultKafkaTopic       = "chainaudit.entries"
	DefaultAsyncBuffer      = 1024
	DefaultAsyncWorkers     = 4
	DefaultBreakerFailures  = 5
	DefaultBreakerCooldown  = 30 * time.Second
	DefaultLockWait         = 5 * time.Second
	DefaultLockTTL          = 30 * time.Second
	DefaultShutdownTimeout  = 10 * time.Second
	DefaultTracingSampling  = 1.0
	DefaultRedisPoolSize    = 10
	DefaultRedisDialTimeout = 5 * time.Second
)

// Ledger backends.
const (
	LedgerMemory = "memory"
	LedgerKafka  = "kafka"
)

// Audit policies.
const (
	FailurePolicyLog       = "log"
	FailurePolicyPropagate = "propagate"
	PatchPolicySkip        = "skip"
	PatchPolicyAudit       = "audit"
)

var (
	ErrMissingPostgresDSN  = errors.New("CHAINAUDIT_POSTGRES_DSN is required")
	ErrMissingKafkaBrokers = errors.New("CHAINAUDIT_KAFKA_BROKERS is required for the kafka ledger")
	ErrUnknownLedger       = errors.New("ledger kind must be memory or kafka")
	ErrUnknownEncoding     = errors.New("ledger encoding must be json or cbor")
	ErrUnknownPolicy       = errors.New("unknown policy")
	ErrInvalidNumber       = errors.New("must be a valid number")
)

type Server struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type Postgres struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
}

// Redis is optional. An empty URL keeps record locks in process.
type Redis struct {
	URL          string        `koanf:"url"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type Kafka struct {
	Brokers           []string `koanf:"brokers"`
	Topic             string   `koanf:"topic"`
	Partitions        int32    `koanf:"partitions"`
	ReplicationFactor int16    `koanf:"replication_factor"`
}

type Ledger struct {
	Kind            string        `koanf:"kind"`
	Encoding        string        `koanf:"encoding"`
	BreakerFailures int           `koanf:"breaker_failures"`
	BreakerCooldown time.Duration `koanf:"breaker_cooldown"`
}

type Audit struct {
	RegistryFile  string        `koanf:"registry_file"`
	FailurePolicy string        `koanf:"failure_policy"`
	PatchPolicy   string        `koanf:"patch_policy"`
	Async         bool          `koanf:"async"`
	AsyncBuffer   int           `koanf:"async_buffer"`
	AsyncWorkers  int           `koanf:"async_workers"`
	LockWait      time.Duration `koanf:"lock_wait"`
	LockTTL       time.Duration `koanf:"lock_ttl"`
}

type Sentry struct {
	DSN         string  `koanf:"dsn"`
	SampleRate  float64 `koanf:"sample_rate"`
	Environment string  `koanf:"environment"`
}

type Tracing struct {
	Enabled      bool    `koanf:"enabled"`
	OTLPEndpoint string  `koanf:"otlp_endpoint"`
	SamplingRate float64 `koanf:"sampling_rate"`
	Insecure     bool    `koanf:"insecure"`
}

type Config struct {
	Env      string   `koanf:"env"`
	Server   Server   `koanf:"server"`
	Log      Log      `koanf:"log"`
	Postgres Postgres `koanf:"postgres"`
	Redis    Redis    `koanf:"redis"`
	Kafka    Kafka    `koanf:"kafka"`
	Ledger   Ledger   `koanf:"ledger"`
	Audit    Audit    `koanf:"audit"`
	Sentry   Sentry   `koanf:"sentry"`
	Tracing  Tracing  `koanf:"tracing"`
}

// Default returns the configuration used when neither file nor environment
// set a value.
func Default() Config {
	return Config{
		Env:    DefaultEnv,
		Server: Server{Addr: DefaultAddr, ShutdownTimeout: DefaultShutdownTimeout},
		Log:    Log{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Postgres: Postgres{
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Redis: Redis{
			PoolSize:     DefaultRedisPoolSize,
			DialTimeout:  DefaultRedisDialTimeout,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: Kafka{Topic: DefaultKafkaTopic, Partitions: 6, ReplicationFactor: 1},
		Ledger: Ledger{
			Kind:            DefaultLedgerKind,
			Encoding:        DefaultLedgerEncoding,
			BreakerFailures: DefaultBreakerFailures,
			BreakerCooldown: DefaultBreakerCooldown,
		},
		Audit: Audit{
			RegistryFile:  DefaultRegistryFile,
			FailurePolicy: FailurePolicyLog,
			PatchPolicy:   PatchPolicySkip,
			AsyncBuffer:   DefaultAsyncBuffer,
			AsyncWorkers:  DefaultAsyncWorkers,
			LockWait:      DefaultLockWait,
			LockTTL:       DefaultLockTTL,
		},
		Tracing: Tracing{SamplingRate: DefaultTracingSampling},
	}
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result. Every problem found is returned.
func Load(path string) (Config, []error) {
	cfg := Default()
	if path != "" {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cfg, []error{fmt.Errorf("failed to load config file %s: %w", path, err)}
		}
		if err := k.Unmarshal("", &cfg); err != nil {
			return cfg, []error{fmt.Errorf("failed to decode config file %s: %w", path, err)}
		}
	}

	env := envReader{}
	env.str("ENV", &cfg.Env)
	env.str("ADDR", &cfg.Server.Addr)
	env.duration("SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	env.str("LOG_LEVEL", &cfg.Log.Level)
	env.str("LOG_FORMAT", &cfg.Log.Format)
	env.str("POSTGRES_DSN", &cfg.Postgres.DSN)
	env.str("REDIS_URL", &cfg.Redis.URL)
	env.list("KAFKA_BROKERS", &cfg.Kafka.Brokers)
	env.str("KAFKA_TOPIC", &cfg.Kafka.Topic)
	env.str("LEDGER_KIND", &cfg.Ledger.Kind)
	env.str("LEDGER_ENCODING", &cfg.Ledger.Encoding)
	env.integer("BREAKER_FAILURES", &cfg.Ledger.BreakerFailures)
	env.duration("BREAKER_COOLDOWN", &cfg.Ledger.BreakerCooldown)
	env.str("REGISTRY_FILE", &cfg.Audit.RegistryFile)
	env.str("FAILURE_POLICY", &cfg.Audit.FailurePolicy)
	env.str("PATCH_POLICY", &cfg.Audit.PatchPolicy)
	env.boolean("ASYNC", &cfg.Audit.Async)
	env.integer("ASYNC_BUFFER", &cfg.Audit.AsyncBuffer)
	env.integer("ASYNC_WORKERS", &cfg.Audit.AsyncWorkers)
	env.str("SENTRY_DSN", &cfg.Sentry.DSN)
	env.boolean("TRACING_ENABLED", &cfg.Tracing.Enabled)
	env.str("OTLP_ENDPOINT", &cfg.Tracing.OTLPEndpoint)
	cfg.Kafka.Brokers = liststr.DedupeAndTrim(cfg.Kafka.Brokers)

	errs := append(env.errs, cfg.Validate()...)
	return cfg, errs
}

// Validate reports every invalid or missing setting.
func (c Config) Validate() []error {
	var errs []error
	if c.Postgres.DSN == "" {
		errs = append(errs, ErrMissingPostgresDSN)
	}
	switch c.Ledger.Kind {
	case LedgerMemory:
	case LedgerKafka:
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, ErrMissingKafkaBrokers)
		}
	default:
		errs = append(errs, fmt.Errorf("%q: %w", c.Ledger.Kind, ErrUnknownLedger))
	}
	if c.Ledger.Encoding != "json" && c.Ledger.Encoding != "cbor" {
		errs = append(errs, fmt.Errorf("%q: %w", c.Ledger.Encoding, ErrUnknownEncoding))
	}
	if c.Audit.FailurePolicy != FailurePolicyLog && c.Audit.FailurePolicy != FailurePolicyPropagate {
		errs = append(errs, fmt.Errorf("failure_policy %q: %w", c.Audit.FailurePolicy, ErrUnknownPolicy))
	}
	if c.Audit.PatchPolicy != PatchPolicySkip && c.Audit.PatchPolicy != PatchPolicyAudit {
		errs = append(errs, fmt.Errorf("patch_policy %q: %w", c.Audit.PatchPolicy, ErrUnknownPolicy))
	}
	if c.Audit.Async && (c.Audit.AsyncBuffer <= 0 || c.Audit.AsyncWorkers <= 0) {
		errs = append(errs, errors.New("async_buffer and async_workers must be positive"))
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		errs = append(errs, fmt.Errorf("tracing sampling_rate must be between 0 and 1, got %f", c.Tracing.SamplingRate))
	}
	return errs
}

// LogSummary returns the effective settings with credentials masked.
func (c Config) LogSummary() map[string]string {
	return map[string]string{
		"env":            c.Env,
		"addr":           c.Server.Addr,
		"postgres_dsn":   maskURL(c.Postgres.DSN),
		"redis_url":      maskURL(c.Redis.URL),
		"kafka_brokers":  strings.Join(c.Kafka.Brokers, ","),
		"ledger":         c.Ledger.Kind + "/" + c.Ledger.Encoding,
		"registry_file":  c.Audit.RegistryFile,
		"failure_policy": c.Audit.FailurePolicy,
		"patch_policy":   c.Audit.PatchPolicy,
		"async":          strconv.FormatBool(c.Audit.Async),
		"sentry":         strconv.FormatBool(c.Sentry.DSN != ""),
		"tracing":        strconv.FormatBool(c.Tracing.Enabled),
	}
}

func maskURL(raw string) string {
	if raw == "" {
		return "<not set>"
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}

// envReader applies CHAINAUDIT_* overrides and collects parse errors.
type envReader struct {
	errs []error
}

func (e *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) list(key string, dst *[]string) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	*dst = liststr.SplitList(v)
}

func (e *envReader) integer(key string, dst *int) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s%s: %w", envPrefix, key, ErrInvalidNumber))
		return
	}
	*dst = n
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
		return
	}
	*dst = d
}

func (e *envReader) boolean(key string, dst *bool) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		*dst = true
	case "false", "0", "no", "off":
		*dst = false
	default:
		e.errs = append(e.errs, fmt.Errorf("%s%s: %q is not a boolean", envPrefix, key, v))
	}
}
