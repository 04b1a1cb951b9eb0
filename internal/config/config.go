// Package config loads the typed configuration tree for the MCP server:
// environment variables override file values, file values override
// defaults, with an optional debounced hot-reload watch.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Database holds the relational storage adapter's connection parameters.
type Database struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// KVCache holds the distributed KV adapter's connection parameters.
type KVCache struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// VectorIndex holds the vector index adapter's connection parameters.
type VectorIndex struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	Scheme string `mapstructure:"scheme"`
	APIKey string `mapstructure:"api_key"`
}

// EmbeddingModel holds the embedding collaborator's connection parameters.
type EmbeddingModel struct {
	Endpoint   string `mapstructure:"endpoint"`
	Dimensions int    `mapstructure:"dimensions"`
	Offline    bool   `mapstructure:"offline"`
	ModelPath  string `mapstructure:"model_path"`
}

// CategoryTTLs maps a cache category to its L2 TTL.
type CategoryTTLs map[string]time.Duration

// Cache holds multi-level cache tuning (§4.C).
type Cache struct {
	L1Capacity   int           `mapstructure:"l1_capacity"`
	L1TTL        time.Duration `mapstructure:"l1_ttl"`
	CategoryTTLs CategoryTTLs  `mapstructure:"category_ttls"`
}

// DefaultCategoryTTLs returns the per-category L2 TTLs named in §4.C.
func DefaultCategoryTTLs() CategoryTTLs {
	return CategoryTTLs{
		"tool_catalog":    30 * time.Second,
		"vector_search":   120 * time.Second,
		"error_solutions": 600 * time.Second,
		"stats":           10 * time.Second,
		"db_query":        60 * time.Second,
	}
}

// Pool holds the dynamic pool controller's tuning knobs (§4.D).
type Pool struct {
	Min                int           `mapstructure:"min"`
	Max                int           `mapstructure:"max"`
	MinOverflow        int           `mapstructure:"min_overflow"`
	MaxOverflow        int           `mapstructure:"max_overflow"`
	SampleInterval     time.Duration `mapstructure:"sample_interval_s"`
	Cooldown           time.Duration `mapstructure:"cooldown_s"`
	HighUtilThreshold  float64       `mapstructure:"high_util_threshold"`
	LowUtilThreshold   float64       `mapstructure:"low_util_threshold"`
	ResizeStepUp       float64       `mapstructure:"resize_step_up"`
	ResizeStepDown     float64       `mapstructure:"resize_step_down"`
	LeakThreshold      time.Duration `mapstructure:"leak_threshold_s"`
}

// API holds the server core's auth/rate-limit/admission settings (§4.J).
type API struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	APIKeys        []string `mapstructure:"api_keys"`
	AllowedIPs     []string `mapstructure:"allowed_ips"`
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps"`
	MaxConnections int      `mapstructure:"max_connections"`
	CORSEnabled    bool     `mapstructure:"cors_enabled"`
}

// Logging holds leveled structured logging settings (§4.A).
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// AI holds the optional AI-assisted tool group's credentials. An empty
// APIKey means the group is never registered (§4.H).
type AI struct {
	APIKey string `mapstructure:"api_key"`
}

// Config is the full typed configuration tree.
type Config struct {
	Database       Database       `mapstructure:"database"`
	KVCache        KVCache        `mapstructure:"kv_cache"`
	VectorIndex    VectorIndex    `mapstructure:"vector_index"`
	EmbeddingModel EmbeddingModel `mapstructure:"embedding_model"`
	Cache          Cache          `mapstructure:"cache"`
	Pool           Pool           `mapstructure:"pool"`
	API            API            `mapstructure:"api"`
	Logging        Logging        `mapstructure:"logging"`
	AI             AI             `mapstructure:"ai"`
	HotReload      bool           `mapstructure:"config_hot_reload"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "mcp")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")

	v.SetDefault("kv_cache.host", "localhost")
	v.SetDefault("kv_cache.port", 6379)
	v.SetDefault("kv_cache.db", 0)

	v.SetDefault("vector_index.host", "localhost")
	v.SetDefault("vector_index.port", 8080)
	v.SetDefault("vector_index.scheme", "http")

	v.SetDefault("embedding_model.dimensions", 384)
	v.SetDefault("embedding_model.offline", false)

	v.SetDefault("cache.l1_capacity", 2000)
	v.SetDefault("cache.l1_ttl", "30s")

	v.SetDefault("pool.min", 5)
	v.SetDefault("pool.max", 50)
	v.SetDefault("pool.min_overflow", 0)
	v.SetDefault("pool.max_overflow", 10)
	v.SetDefault("pool.sample_interval_s", "60s")
	v.SetDefault("pool.cooldown_s", "120s")
	v.SetDefault("pool.high_util_threshold", 0.80)
	v.SetDefault("pool.low_util_threshold", 0.20)
	v.SetDefault("pool.resize_step_up", 1.2)
	v.SetDefault("pool.resize_step_down", 0.8)
	v.SetDefault("pool.leak_threshold_s", "300s")

	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8443)
	v.SetDefault("api.rate_limit_rps", 100)
	v.SetDefault("api.max_connections", 1000)
	v.SetDefault("api.cors_enabled", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("config_hot_reload", false)
}

// envBindings maps the fixed environment variables named in spec §6 onto
// the typed tree's dotted viper keys.
var envBindings = map[string]string{
	"DB_HOST":            "database.host",
	"DB_PORT":            "database.port",
	"DB_USER":            "database.user",
	"DB_PASSWORD":        "database.password",
	"DB_NAME":            "database.name",
	"KV_HOST":            "kv_cache.host",
	"KV_PORT":            "kv_cache.port",
	"KV_PASSWORD":        "kv_cache.password",
	"VECTOR_HOST":        "vector_index.host",
	"VECTOR_PORT":        "vector_index.port",
	"API_KEYS":           "api.api_keys",
	"ALLOWED_IPS":        "api.allowed_ips",
	"RATE_LIMIT":         "api.rate_limit_rps",
	"MAX_CONNECTIONS":    "api.max_connections",
	"LOG_LEVEL":          "logging.level",
	"CONFIG_HOT_RELOAD":  "config_hot_reload",
	"ANTHROPIC_API_KEY":  "ai.api_key",
}

func bindEnv(v *viper.Viper) error {
	for env, key := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind env %s: %w", env, err)
		}
	}
	return nil
}

// Load reads configuration from an optional file at path (may be empty),
// layering environment variable overrides on top, and validates the
// result. path may point to a YAML, JSON, or TOML file; viper infers the
// format from its extension.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// API_KEYS / ALLOWED_IPS arrive as a single comma-separated env string;
	// viper does not auto-split those when bound via BindEnv.
	if keys := v.GetString("api.api_keys"); keys != "" && len(cfg.API.APIKeys) == 0 {
		cfg.API.APIKeys = splitCSV(keys)
	}
	if ips := v.GetString("api.allowed_ips"); ips != "" && len(cfg.API.AllowedIPs) == 0 {
		cfg.API.AllowedIPs = splitCSV(ips)
	}
	if len(cfg.Cache.CategoryTTLs) == 0 {
		cfg.Cache.CategoryTTLs = DefaultCategoryTTLs()
	}
	return cfg, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks invariants that would otherwise surface as a confusing
// runtime failure deep inside a component constructor.
func Validate(cfg *Config) error {
	if cfg.Pool.Min <= 0 {
		return fmt.Errorf("pool.min must be > 0")
	}
	if cfg.Pool.Max < cfg.Pool.Min {
		return fmt.Errorf("pool.max (%d) must be >= pool.min (%d)", cfg.Pool.Max, cfg.Pool.Min)
	}
	if cfg.Cache.L1Capacity <= 0 {
		return fmt.Errorf("cache.l1_capacity must be > 0")
	}
	if cfg.API.Port <= 0 {
		return fmt.Errorf("api.port must be > 0")
	}
	return nil
}

// Watcher reloads Config from a file on change, debounced by 1s, and
// reverts to the last-good config on validation failure.
type Watcher struct {
	mu      sync.RWMutex
	current *Config
	path    string
	watcher *fsnotify.Watcher
	onErr   func(error)
}

// NewWatcher starts watching path for changes and applying them to an
// in-memory Config, debounced per spec §4.A (1s, revert on failure).
func NewWatcher(path string, initial *Config, onErr func(error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	w := &Watcher{current: initial, path: path, watcher: fw, onErr: onErr}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	var timer *time.Timer
	reload := func() {
		next, err := Load(w.path)
		if err != nil {
			if w.onErr != nil {
				w.onErr(fmt.Errorf("config reload reverted: %w", err))
			}
			return
		}
		w.mu.Lock()
		w.current = next
		w.mu.Unlock()
	}

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(time.Second, reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.onErr != nil {
				w.onErr(err)
			}
		}
	}
}

// Current returns the most recently applied valid configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Close stops the underlying filesystem watch.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
