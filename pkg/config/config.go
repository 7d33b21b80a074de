package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Auth configuration
	Auth AuthConfig `mapstructure:"auth"`

	// Embedding request defaults
	Embedding EmbeddingConfig `mapstructure:"embedding"`

	// Backend configuration (one section per backend kind)
	Backends BackendsConfig `mapstructure:"backends"`

	// Cache configuration
	Cache CacheConfig `mapstructure:"cache"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// Alert configuration
	Alert AlertConfig `mapstructure:"alert"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// AuthConfig holds the optional shared-secret authorization policy.
// An empty APIKey disables the check entirely.
type AuthConfig struct {
	// APIKey is the bearer credential callers must present.
	// Excluded from serialization to prevent accidental exposure.
	APIKey string `mapstructure:"api_key" json:"-" yaml:"-"`
}

// EmbeddingConfig holds request-level defaults applied when a caller omits
// batching or parallelism parameters.
type EmbeddingConfig struct {
	BatchSizeDefault int `mapstructure:"batch_size_default"`
	ThreadsDefault   int `mapstructure:"threads_default"`
}

// BackendsConfig groups the per-kind backend sections.
type BackendsConfig struct {
	Sparse SparseBackendConfig `mapstructure:"sparse"`
	Dense  DenseBackendConfig  `mapstructure:"dense"`
	Multi  MultiBackendConfig  `mapstructure:"multi"`
}

// SparseBackendConfig configures the in-process BM25 backend.
type SparseBackendConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
	// K1 and B are the BM25 term-saturation and length-normalization knobs.
	K1 float64 `mapstructure:"k1"`
	B  float64 `mapstructure:"b"`
	// AvgDocLen is the assumed average document length after tokenization.
	AvgDocLen float64 `mapstructure:"avg_doc_len"`
}

// DenseBackendConfig configures the dedicated dense backend.
type DenseBackendConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Provider string `mapstructure:"provider"` // embedeverything, openai
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key" json:"-" yaml:"-"`
	BaseURL  string `mapstructure:"base_url"`
	// Dimensions declares the expected output dimensionality. Zero means
	// "learn from the first embedding produced at load time".
	Dimensions int `mapstructure:"dimensions"`
	// Normalize requests unit-length output vectors.
	Normalize bool `mapstructure:"normalize"`
}

// MultiBackendConfig configures the multi-functional (BGE-M3-style) backend,
// reached over HTTP.
type MultiBackendConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Endpoint       string `mapstructure:"endpoint"`
	Model          string `mapstructure:"model"`
	APIKey         string `mapstructure:"api_key" json:"-" yaml:"-"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// CacheConfig holds the optional dense embedding cache configuration.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path"`
}

// AlertConfig holds configuration for alerting
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password" json:"-" yaml:"-"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")

	// Embedding defaults
	viper.SetDefault("embedding.batch_size_default", 256)
	viper.SetDefault("embedding.threads_default", 1)

	// Backend defaults. Sparse BM25 is the baseline capability and is
	// enabled unless explicitly switched off.
	viper.SetDefault("backends.sparse.enabled", true)
	viper.SetDefault("backends.sparse.model", "bm25")
	viper.SetDefault("backends.sparse.k1", 1.2)
	viper.SetDefault("backends.sparse.b", 0.75)
	viper.SetDefault("backends.sparse.avg_doc_len", 256.0)

	viper.SetDefault("backends.dense.enabled", true)
	viper.SetDefault("backends.dense.provider", "embedeverything")
	viper.SetDefault("backends.dense.model", "all-MiniLM-L6-v2")
	viper.SetDefault("backends.dense.normalize", false)

	viper.SetDefault("backends.multi.enabled", false)
	viper.SetDefault("backends.multi.model", "bge-m3")
	viper.SetDefault("backends.multi.timeout_seconds", 30)

	// Cache defaults
	viper.SetDefault("cache.enabled", false)

	// Telemetry defaults
	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetDefault("telemetry.parquet_path", fmt.Sprintf("%s/.vectorgate/telemetry", home))
	}
}

// overrideWithEnv overrides config with environment variables. The flat
// variable names match the ones the Python services used, so existing
// deployments keep working.
func overrideWithEnv(config *Config) {
	if key := os.Getenv("API_KEY"); key != "" {
		config.Auth.APIKey = key
	}
	if v := os.Getenv("BATCH_SIZE_DEFAULT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Embedding.BatchSizeDefault = n
		}
	}
	if v := os.Getenv("THREADS_DEFAULT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Embedding.ThreadsDefault = n
		}
	}

	if model := os.Getenv("DENSE_MODEL"); model != "" {
		config.Backends.Dense.Model = model
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && config.Backends.Dense.Provider == "openai" {
		config.Backends.Dense.APIKey = key
	}

	if endpoint := os.Getenv("MULTI_ENDPOINT"); endpoint != "" {
		config.Backends.Multi.Endpoint = endpoint
		config.Backends.Multi.Enabled = true
	}
	if key := os.Getenv("MULTI_API_KEY"); key != "" {
		config.Backends.Multi.APIKey = key
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			config.Server.Port = n
		}
	}

	// Telemetry settings
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
}

// Validate checks configuration invariants that would otherwise only
// surface as confusing startup failures.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Embedding.BatchSizeDefault <= 0 {
		return fmt.Errorf("batch_size_default must be positive, got %d", c.Embedding.BatchSizeDefault)
	}
	if c.Embedding.ThreadsDefault <= 0 {
		return fmt.Errorf("threads_default must be positive, got %d", c.Embedding.ThreadsDefault)
	}
	if c.Backends.Multi.Enabled && c.Backends.Multi.Endpoint == "" {
		return fmt.Errorf("backends.multi.endpoint is required when the multi backend is enabled")
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return fmt.Errorf("cache.path is required when the cache is enabled")
	}
	return nil
}
