package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allEnvVars = []string{
	"SWS_PORT", "SWS_HOST", "SWS_READ_TIMEOUT", "SWS_WRITE_TIMEOUT", "SWS_SHUTDOWN_TIMEOUT", "SWS_CORS_ENABLED",
	"SWS_DATABASE_URL", "SWS_DATABASE_SCHEMA", "SWS_DB_MAX_OPEN_CONNS", "SWS_DB_MAX_IDLE_CONNS",
	"SWS_DB_MAX_CONN_LIFETIME", "SWS_DB_MAX_CONN_IDLE_TIME", "SWS_DB_DEBUG",
	"SWS_REDIS_URL", "SWS_REDIS_PASSWORD", "SWS_REDIS_DB", "SWS_REDIS_POOL_SIZE",
	"SWS_LOG_LEVEL", "SWS_LOG_FORMAT",
	"SWS_OBJECT_STORE_BACKEND", "SWS_OBJECT_STORE_LOCAL_ROOT", "SWS_OBJECT_STORE_GCS_BUCKET",
	"SWS_MODEL_API_KEY", "SWS_MODEL_BASE_URL", "SWS_MODEL_NAME", "SWS_MODEL_TIMEOUT",
	"SWS_PIPELINE_WORKERS", "SWS_CONVERT_TIMEOUT", "SWS_CONVERTER_BINARY", "SWS_CONVERTER_PROFILE_DIR",
	"SWS_AUTO_REVIEW_ON_READY",
	"SWS_AI_BATCH_SIZE_MIN", "SWS_AI_BATCH_SIZE_MAX", "SWS_AI_CONCURRENCY", "SWS_AI_MAX_RETRIES",
	"SWS_AI_DOC_CHAR_CAP", "SWS_AI_BLOCK_TEXT_CAP",
	"SWS_OTLP_ENDPOINT", "SWS_SERVICE_NAME", "SWS_TRACING_ENABLED",
}

func clearEnv() {
	for _, key := range allEnvVars {
		os.Unsetenv(key)
	}
}

func TestConfig_Load_DefaultValues(t *testing.T) {
	clearEnv()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.True(t, cfg.Server.CORS)

	assert.Equal(t, "public", cfg.Database.Schema)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, 1, cfg.Database.MaxIdleConns)
	assert.False(t, cfg.Database.Debug)

	assert.Equal(t, "redis://localhost:6379", cfg.Redis.URL)
	assert.Equal(t, 10, cfg.Redis.PoolSize)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	assert.Equal(t, "local", cfg.ObjectStore.Backend)
	assert.Equal(t, "./data/objects", cfg.ObjectStore.LocalRoot)

	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, "soffice", cfg.Pipeline.ConverterBinary)
	assert.True(t, cfg.Pipeline.AutoReviewReady)

	assert.Equal(t, 5, cfg.AI.BatchSizeMin)
	assert.Equal(t, 7, cfg.AI.BatchSizeMax)
	assert.Equal(t, 3, cfg.AI.Concurrency)
	assert.Equal(t, 3, cfg.AI.MaxRetries)

	assert.Equal(t, "sws-review-engine", cfg.Observability.ServiceName)
	assert.False(t, cfg.Observability.Enabled)
}

func TestConfig_Load_CustomValues(t *testing.T) {
	clearEnv()
	defer clearEnv()

	os.Setenv("SWS_PORT", "9090")
	os.Setenv("SWS_HOST", "127.0.0.1")
	os.Setenv("SWS_DATABASE_URL", "postgres://u:p@db:5432/sws?sslmode=disable")
	os.Setenv("SWS_DB_MAX_OPEN_CONNS", "50")
	os.Setenv("SWS_OBJECT_STORE_BACKEND", "gcs")
	os.Setenv("SWS_OBJECT_STORE_GCS_BUCKET", "sws-plan-documents")
	os.Setenv("SWS_PIPELINE_WORKERS", "8")
	os.Setenv("SWS_AI_CONCURRENCY", "10")
	os.Setenv("SWS_TRACING_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "postgres://u:p@db:5432/sws?sslmode=disable", cfg.Database.DSN)
	assert.Equal(t, 50, cfg.Database.MaxOpenConns)
	assert.Equal(t, "gcs", cfg.ObjectStore.Backend)
	assert.Equal(t, "sws-plan-documents", cfg.ObjectStore.GCSBucket)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, 10, cfg.AI.Concurrency)
	assert.True(t, cfg.Observability.Enabled)
}

func TestConfig_Load_InvalidDurationFallsBackToDefault(t *testing.T) {
	clearEnv()
	defer clearEnv()

	os.Setenv("SWS_READ_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestConfig_Validate_RejectsOutOfRangePort(t *testing.T) {
	clearEnv()
	defer clearEnv()

	os.Setenv("SWS_PORT", "70000")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
}

func TestConfig_Validate_RejectsEmptyDSN(t *testing.T) {
	cfg := &Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{DSN: "", MaxOpenConns: 1},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		ObjectStore: ObjectStoreConfig{Backend: "local"},
		Pipeline:    PipelineConfig{Workers: 1},
		AI:          AIConfig{BatchSizeMin: 1, BatchSizeMax: 1, Concurrency: 1},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DSN is required")
}

func TestConfig_Validate_RejectsInvalidLogLevel(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Logging.Level = "verbose"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestConfig_Validate_RejectsGCSBackendWithoutBucket(t *testing.T) {
	cfg := validBaseConfig()
	cfg.ObjectStore.Backend = "gcs"
	cfg.ObjectStore.GCSBucket = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GCS_BUCKET is required")
}

func TestConfig_Validate_RejectsUnknownObjectStoreBackend(t *testing.T) {
	cfg := validBaseConfig()
	cfg.ObjectStore.Backend = "s3"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid object store backend")
}

func TestConfig_Validate_RejectsInvertedAIBatchBounds(t *testing.T) {
	cfg := validBaseConfig()
	cfg.AI.BatchSizeMin = 10
	cfg.AI.BatchSizeMax = 3

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid AI batch size bounds")
}

func TestConfig_Validate_AcceptsWellFormedConfig(t *testing.T) {
	cfg := validBaseConfig()
	assert.NoError(t, cfg.Validate())
}

func validBaseConfig() *Config {
	return &Config{
		Server:      ServerConfig{Port: 8080},
		Database:    DatabaseConfig{DSN: "postgres://localhost/sws", MaxOpenConns: 10},
		Logging:     LoggingConfig{Level: "info", Format: "json"},
		ObjectStore: ObjectStoreConfig{Backend: "local"},
		Pipeline:    PipelineConfig{Workers: 4},
		AI:          AIConfig{BatchSizeMin: 5, BatchSizeMax: 7, Concurrency: 3},
	}
}
