package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
server:
  addr: ":9090"
postgres:
  dsn: postgres://audit:secret@db:5432/audit
ledger:
  kind: kafka
  encoding: cbor
  breaker_cooldown: 45s
kafka:
  brokers: ["k1:9092", "k2:9092"]
audit:
  patch_policy: audit
  async: true
`)

	cfg, errs := Load(path)
	require.Empty(t, errs)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, LedgerKafka, cfg.Ledger.Kind)
	assert.Equal(t, "cbor", cfg.Ledger.Encoding)
	assert.Equal(t, 45*time.Second, cfg.Ledger.BreakerCooldown)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "audit", cfg.Audit.PatchPolicy)
	assert.True(t, cfg.Audit.Async)

	// Unset keys keep their defaults.
	assert.Equal(t, DefaultKafkaTopic, cfg.Kafka.Topic)
	assert.Equal(t, DefaultAsyncBuffer, cfg.Audit.AsyncBuffer)
	assert.Equal(t, "log", cfg.Audit.FailurePolicy)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "postgres:\n  dsn: postgres://file/db\n")
	t.Setenv("CHAINAUDIT_POSTGRES_DSN", "postgres://env/db")
	t.Setenv("CHAINAUDIT_KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("CHAINAUDIT_ASYNC", "yes")
	t.Setenv("CHAINAUDIT_BREAKER_FAILURES", "9")

	cfg, errs := Load(path)
	require.Empty(t, errs)
	assert.Equal(t, "postgres://env/db", cfg.Postgres.DSN)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Audit.Async)
	assert.Equal(t, 9, cfg.Ledger.BreakerFailures)
}

func TestLoad_CollectsErrors(t *testing.T) {
	t.Setenv("CHAINAUDIT_LEDGER_KIND", "kafka")
	t.Setenv("CHAINAUDIT_FAILURE_POLICY", "retry")
	t.Setenv("CHAINAUDIT_ASYNC_BUFFER", "lots")

	_, errs := Load("")
	require.Len(t, errs, 4)
	assert.ErrorIs(t, errs[0], ErrInvalidNumber)
	assert.ErrorIs(t, errs[1], ErrMissingPostgresDSN)
	assert.ErrorIs(t, errs[2], ErrMissingKafkaBrokers)
	assert.ErrorIs(t, errs[3], ErrUnknownPolicy)
}

func TestLoad_MissingFile(t *testing.T) {
	_, errs := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Len(t, errs, 1)
}

func TestLogSummary_MasksCredentials(t *testing.T) {
	cfg := Default()
	cfg.Postgres.DSN = "postgres://audit:secret@db:5432/audit"
	cfg.Sentry.DSN = "https://key@sentry.example/1"

	summary := cfg.LogSummary()
	assert.Contains(t, summary["postgres_dsn"], "@db:5432/audit")
	assert.Equal(t, "<not set>", summary["redis_url"])
	assert.Equal(t, "true", summary["sentry"])
	assert.NotContains(t, summary["postgres_dsn"], "secret")
}
