package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the investigation engine.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Mode      string          `yaml:"mode"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Graph     GraphConfig     `yaml:"graph"`
	Runbooks  RunbooksConfig  `yaml:"runbooks"`
	Reasoner  ReasonerConfig  `yaml:"reasoner"`
	Registry  RegistryConfig  `yaml:"registry"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// TelemetryConfig configures the log/metrics evidence source.
type TelemetryConfig struct {
	BaseURL    string        `yaml:"baseURL"`
	APIKey     string        `yaml:"apiKey"`
	AppKey     string        `yaml:"appKey"`
	SearchPath string        `yaml:"searchPath"`
	Timeout    time.Duration `yaml:"timeout"`
	TopN       int           `yaml:"topN"`
}

// GraphConfig configures the dependency-graph connector.
type GraphConfig struct {
	URI      string        `yaml:"uri"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Database string        `yaml:"database"`
	Depth    int           `yaml:"depth"`
	Timeout  time.Duration `yaml:"timeout"`
}

// RunbooksConfig configures the historical-runbook store.
type RunbooksConfig struct {
	URI        string        `yaml:"uri"`
	Database   string        `yaml:"database"`
	Collection string        `yaml:"collection"`
	Timeout    time.Duration `yaml:"timeout"`
}

// ReasonerConfig configures the LLM reasoning connector.
type ReasonerConfig struct {
	APIKey    string        `yaml:"apiKey"`
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"maxTokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// RegistryConfig points at the static service-profile registry.
type RegistryConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig controls Redis-backed caching of graph and runbook lookups.
type CacheConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	DialTimeout time.Duration `yaml:"dialTimeout"`
	GraphTTL    time.Duration `yaml:"graphTTL"`
	RunbooksTTL time.Duration `yaml:"runbooksTTL"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Live reports whether the engine should attempt real connector backends.
func (c *Config) Live() bool {
	return strings.EqualFold(c.Mode, "live")
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("ARIA_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":4000",
			MetricsAddress:  ":2112",
			CORSOrigins:     []string{"http://localhost:3000"},
			GracefulTimeout: 10 * time.Second,
		},
		Mode: "degraded",
		Telemetry: TelemetryConfig{
			SearchPath: "/api/v2/logs/events/search",
			Timeout:    10 * time.Second,
			TopN:       8,
		},
		Graph: GraphConfig{
			Database: "neo4j",
			Depth:    2,
			Timeout:  10 * time.Second,
		},
		Runbooks: RunbooksConfig{
			Database:   "aria",
			Collection: "runbooks",
			Timeout:    5 * time.Second,
		},
		Reasoner: ReasonerConfig{
			Model:     "claude-sonnet-4-5",
			MaxTokens: 1200,
			Timeout:   30 * time.Second,
		},
		Registry: RegistryConfig{Path: "configs/profiles/default.yaml"},
		Cache: CacheConfig{
			Enabled:     false,
			DialTimeout: 2 * time.Second,
			GraphTTL:    5 * time.Minute,
			RunbooksTTL: 10 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ARIA_MODE"); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv("ARIA_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("ARIA_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("ARIA_CORS_ORIGINS"); v != "" {
		origins := make([]string, 0)
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSOrigins = origins
	}
	if v := os.Getenv("ARIA_TELEMETRY_BASE_URL"); v != "" {
		cfg.Telemetry.BaseURL = v
	}
	if v := os.Getenv("ARIA_TELEMETRY_API_KEY"); v != "" {
		cfg.Telemetry.APIKey = v
	}
	if v := os.Getenv("ARIA_TELEMETRY_APP_KEY"); v != "" {
		cfg.Telemetry.AppKey = v
	}
	if v := os.Getenv("ARIA_GRAPH_URI"); v != "" {
		cfg.Graph.URI = v
	}
	if v := os.Getenv("ARIA_GRAPH_USERNAME"); v != "" {
		cfg.Graph.Username = v
	}
	if v := os.Getenv("ARIA_GRAPH_PASSWORD"); v != "" {
		cfg.Graph.Password = v
	}
	if v := os.Getenv("ARIA_GRAPH_DATABASE"); v != "" {
		cfg.Graph.Database = v
	}
	if v := os.Getenv("ARIA_RUNBOOKS_URI"); v != "" {
		cfg.Runbooks.URI = v
	}
	if v := os.Getenv("ARIA_REASONER_API_KEY"); v != "" {
		cfg.Reasoner.APIKey = v
	}
	if v := os.Getenv("ARIA_REASONER_MODEL"); v != "" {
		cfg.Reasoner.Model = v
	}
	if v := os.Getenv("ARIA_REGISTRY_PATH"); v != "" {
		cfg.Registry.Path = v
	}
	if v := os.Getenv("ARIA_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("ARIA_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("ARIA_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("ARIA_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("ARIA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ARIA_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
}

// TelemetryLive reports whether live telemetry credentials are present.
func (c *Config) TelemetryLive() bool {
	return c.Live() && c.Telemetry.BaseURL != "" && c.Telemetry.APIKey != ""
}

// GraphLive reports whether live graph credentials are present.
func (c *Config) GraphLive() bool {
	return c.Live() && c.Graph.URI != "" && c.Graph.Password != ""
}

// RunbooksLive reports whether a live runbook store is configured.
func (c *Config) RunbooksLive() bool {
	return c.Live() && c.Runbooks.URI != ""
}

// ReasonerLive reports whether the reasoning connector may be used.
func (c *Config) ReasonerLive() bool {
	return c.Live() && c.Reasoner.APIKey != "" && c.Reasoner.Model != ""
}
