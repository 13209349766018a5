// Package config provides unified configuration for the Meridian router.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration for the router process.
type Config struct {
	// DataDir is the base directory for all data files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// HTTP configuration
	HTTP HTTPConfig `json:"http" yaml:"http"`

	// Catalog configuration
	Catalog CatalogConfig `json:"catalog" yaml:"catalog"`

	// WriteBuffer configuration
	WriteBuffer WriteBufferConfig `json:"write_buffer" yaml:"write_buffer"`

	// Router pipeline configuration
	Router RouterConfig `json:"router" yaml:"router"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	// Addr is the listen address for the write API
	Addr string `json:"addr" yaml:"addr"`

	// ReadTimeout is the HTTP read timeout
	ReadTimeout time.Duration `json:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the HTTP write timeout
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the HTTP idle timeout
	IdleTimeout time.Duration `json:"idle_timeout" yaml:"idle_timeout"`

	// MaxBodyBytes caps the size of a single write request body
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes"`
}

// CatalogConfig holds schema catalog configuration.
type CatalogConfig struct {
	// Path is the SQLite catalog database path
	Path string `json:"path" yaml:"path"`

	// Topic is the topic name the router publishes under
	Topic string `json:"topic" yaml:"topic"`

	// QueryPool is the query pool name new namespaces are assigned to
	QueryPool string `json:"query_pool" yaml:"query_pool"`
}

// WriteBufferConfig holds write buffer configuration.
type WriteBufferConfig struct {
	// Dir is the directory for per-shard segment files
	Dir string `json:"dir" yaml:"dir"`

	// Shards is the number of write buffer shards
	Shards int `json:"shards" yaml:"shards"`
}

// RouterConfig holds pipeline configuration.
type RouterConfig struct {
	// PartitionTemplate is the strftime template for partition keys
	PartitionTemplate string `json:"partition_template" yaml:"partition_template"`

	// CacheShards is the number of namespace cache partitions
	CacheShards int `json:"cache_shards" yaml:"cache_shards"`

	// AutocreateNamespaces enables namespace autocreation on first write
	AutocreateNamespaces bool `json:"autocreate_namespaces" yaml:"autocreate_namespaces"`

	// AutocreateRetention is the retention assigned to autocreated namespaces
	AutocreateRetention string `json:"autocreate_retention" yaml:"autocreate_retention"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data/meridian",
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
			MaxBodyBytes: 16 * 1024 * 1024,
		},
		Catalog: CatalogConfig{
			Path:      "",
			Topic:     "meridian-writes",
			QueryPool: "meridian-shared",
		},
		WriteBuffer: WriteBufferConfig{
			Dir:    "",
			Shards: 4,
		},
		Router: RouterConfig{
			PartitionTemplate:    "%Y-%m-%d",
			CacheShards:          10,
			AutocreateNamespaces: false,
			AutocreateRetention:  "inf",
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/meridian"
	}
	if c.Catalog.Path == "" {
		c.Catalog.Path = filepath.Join(c.DataDir, "catalog.db")
	}
	if c.WriteBuffer.Dir == "" {
		c.WriteBuffer.Dir = filepath.Join(c.DataDir, "writebuffer")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("http.max_body_bytes must be positive, got %d", c.HTTP.MaxBodyBytes)
	}
	if c.Catalog.Topic == "" {
		return fmt.Errorf("catalog.topic is required")
	}
	if c.Catalog.QueryPool == "" {
		return fmt.Errorf("catalog.query_pool is required")
	}
	if c.WriteBuffer.Shards < 1 {
		return fmt.Errorf("write_buffer.shards must be at least 1, got %d", c.WriteBuffer.Shards)
	}
	if c.Router.CacheShards < 1 {
		return fmt.Errorf("router.cache_shards must be at least 1, got %d", c.Router.CacheShards)
	}
	if c.Router.PartitionTemplate == "" {
		return fmt.Errorf("router.partition_template is required")
	}
	return nil
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.DataDir,
		c.WriteBuffer.Dir,
		filepath.Dir(c.Catalog.Path),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv applies environment variable overrides to the configuration.
// Environment variables use the MERIDIAN_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("MERIDIAN_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	if v := os.Getenv("MERIDIAN_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("MERIDIAN_HTTP_MAX_BODY_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.HTTP.MaxBodyBytes = n
		}
	}
	if v := os.Getenv("MERIDIAN_HTTP_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.ReadTimeout = d
		}
	}
	if v := os.Getenv("MERIDIAN_HTTP_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.WriteTimeout = d
		}
	}

	if v := os.Getenv("MERIDIAN_CATALOG_PATH"); v != "" {
		cfg.Catalog.Path = v
	}
	if v := os.Getenv("MERIDIAN_CATALOG_TOPIC"); v != "" {
		cfg.Catalog.Topic = v
	}
	if v := os.Getenv("MERIDIAN_CATALOG_QUERY_POOL"); v != "" {
		cfg.Catalog.QueryPool = v
	}

	if v := os.Getenv("MERIDIAN_WRITE_BUFFER_DIR"); v != "" {
		cfg.WriteBuffer.Dir = v
	}
	if v := os.Getenv("MERIDIAN_WRITE_BUFFER_SHARDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WriteBuffer.Shards = n
		}
	}

	if v := os.Getenv("MERIDIAN_PARTITION_TEMPLATE"); v != "" {
		cfg.Router.PartitionTemplate = v
	}
	if v := os.Getenv("MERIDIAN_CACHE_SHARDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Router.CacheShards = n
		}
	}
	if v := os.Getenv("MERIDIAN_AUTOCREATE_NAMESPACES"); v != "" {
		cfg.Router.AutocreateNamespaces = v == "true" || v == "1"
	}
	if v := os.Getenv("MERIDIAN_AUTOCREATE_RETENTION"); v != "" {
		cfg.Router.AutocreateRetention = v
	}
}
