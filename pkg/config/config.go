package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" env:"APP_ENV"`
	Server      struct {
		Port            int           `yaml:"port" env:"PORT" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" env:"LOG_LEVEL" default:"info"`
		Format string `yaml:"format" env:"LOG_FORMAT" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Cache struct {
		Backend       string        `yaml:"backend" env:"CACHE_BACKEND" default:"memory"`
		TTL           time.Duration `yaml:"ttl" default:"5m"`
		MemoryMaxSize int           `yaml:"memory_max_size" default:"512"`
		Redis         struct {
			Host     string `yaml:"host" env:"REDIS_HOST" default:"localhost"`
			Port     int    `yaml:"port" env:"REDIS_PORT" default:"6379"`
			Password string `yaml:"password" env:"REDIS_PASSWORD"`
			DB       int    `yaml:"db" env:"REDIS_DB"`
			Prefix   string `yaml:"prefix" default:"regime"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	HTTP struct {
		Timeout time.Duration `yaml:"timeout" default:"8s"`
		RPS     float64       `yaml:"rps" default:"2"`
		Burst   int           `yaml:"burst" default:"4"`
		Breaker struct {
			ConsecutiveFailures uint32        `yaml:"consecutive_failures" default:"3"`
			OpenTimeout         time.Duration `yaml:"open_timeout" default:"60s"`
			Interval            time.Duration `yaml:"interval" default:"60s"`
		} `yaml:"breaker"`
	} `yaml:"http"`
	Providers struct {
		CoinGecko ProviderConfig `yaml:"coingecko" envPrefix:"COINGECKO_"`
		Yahoo     ProviderConfig `yaml:"yahoo" envPrefix:"YAHOO_"`
		Metals    ProviderConfig `yaml:"metals" envPrefix:"METALS_"`
	} `yaml:"providers"`
	Engine struct {
		RecencyWindow  time.Duration `yaml:"recency_window" default:"720h"`
		Stride         int           `yaml:"stride" default:"7"`
		ExtremeLimit   int           `yaml:"extreme_limit" default:"10"`
		RequestTimeout time.Duration `yaml:"request_timeout" default:"10s"`
		DefaultRange   string        `yaml:"default_range" default:"max"`
	} `yaml:"engine"`
	Indicators []IndicatorConfig `yaml:"indicators"`
}

// Source kinds understood by the provider adapters.
const (
	SourceMarketChart = "market_chart"
	SourceSpot        = "spot"
	SourceChart       = "chart"
)

// Formula and classifier kinds.
const (
	FormulaWeighted     = "weighted"
	FormulaQuotient     = "quotient"
	ClassifierBands     = "bands"
	ClassifierThreshold = "threshold"
)

// ProviderConfig describes one upstream quote/metrics API.
type ProviderConfig struct {
	BaseURL      string `yaml:"base_url" env:"BASE_URL"`
	APIKey       string `yaml:"api_key" env:"API_KEY"`
	APIKeyHeader string `yaml:"api_key_header"`
}

// IndicatorConfig is the full parameter set for one indicator run by the engine.
type IndicatorConfig struct {
	Name       string           `yaml:"name"`
	Title      string           `yaml:"title"`
	Scalar     string           `yaml:"scalar"`
	Precision  int              `yaml:"precision"`
	Formula    FormulaConfig    `yaml:"formula"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Labels     LabelsConfig     `yaml:"labels"`
	Sources    []SourceConfig   `yaml:"sources"`
}

type FormulaConfig struct {
	Kind        string       `yaml:"kind"` // weighted | quotient
	Terms       []TermConfig `yaml:"terms"`
	Numerator   []TermConfig `yaml:"numerator"`
	Denominator []TermConfig `yaml:"denominator"`
	Scale       float64      `yaml:"scale"`
}

type TermConfig struct {
	Field  string  `yaml:"field"`
	Weight float64 `yaml:"weight"`
}

type ClassifierConfig struct {
	Kind      string  `yaml:"kind"` // bands | threshold
	Threshold float64 `yaml:"threshold"`
}

type LabelsConfig struct {
	Upper string `yaml:"upper"`
	Lower string `yaml:"lower"`
}

// SourceConfig binds one raw input field to a provider series.
type SourceConfig struct {
	Field    string  `yaml:"field"`
	Provider string  `yaml:"provider"` // coingecko | yahoo | metals
	Kind     string  `yaml:"kind"`     // market_chart | spot | chart
	ID       string  `yaml:"id"`
	Series   string  `yaml:"series"`
	Primary  bool    `yaml:"primary"`
	Fallback float64 `yaml:"fallback"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, fills defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" && c.Cache.Backend != "layered" {
		return fmt.Errorf("cache.backend must be 'memory', 'redis' or 'layered', got '%s'", c.Cache.Backend)
	}
	if c.Engine.Stride < 1 {
		return fmt.Errorf("engine.stride must be >= 1")
	}
	if c.Engine.ExtremeLimit < 1 {
		return fmt.Errorf("engine.extreme_limit must be >= 1")
	}
	if len(c.Indicators) == 0 {
		return fmt.Errorf("indicators cannot be empty")
	}
	seen := make(map[string]bool, len(c.Indicators))
	for _, ic := range c.Indicators {
		if seen[ic.Name] {
			return fmt.Errorf("indicator %q declared twice", ic.Name)
		}
		seen[ic.Name] = true
		if err := ic.Validate(); err != nil {
			return fmt.Errorf("indicator %q: %w", ic.Name, err)
		}
	}
	return nil
}

// Validate checks a single indicator definition.
func (ic IndicatorConfig) Validate() error {
	if ic.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch ic.Scalar {
	case "":
		return fmt.Errorf("scalar is required")
	case "date", "regime":
		return fmt.Errorf("scalar %q collides with a response key", ic.Scalar)
	}
	if ic.Precision < 0 || ic.Precision > 6 {
		return fmt.Errorf("precision must be between 0 and 6")
	}
	switch ic.Formula.Kind {
	case FormulaWeighted:
		if len(ic.Formula.Terms) == 0 {
			return fmt.Errorf("weighted formula needs terms")
		}
	case FormulaQuotient:
		if len(ic.Formula.Numerator) == 0 || len(ic.Formula.Denominator) == 0 {
			return fmt.Errorf("quotient formula needs numerator and denominator")
		}
	default:
		return fmt.Errorf("formula.kind must be 'weighted' or 'quotient', got '%s'", ic.Formula.Kind)
	}
	switch ic.Classifier.Kind {
	case ClassifierBands:
	case ClassifierThreshold:
		if ic.Classifier.Threshold == 0 {
			return fmt.Errorf("threshold classifier needs a non-zero threshold")
		}
	default:
		return fmt.Errorf("classifier.kind must be 'bands' or 'threshold', got '%s'", ic.Classifier.Kind)
	}
	if len(ic.Sources) == 0 {
		return fmt.Errorf("sources cannot be empty")
	}
	primaries := 0
	for _, s := range ic.Sources {
		if s.Field == "" || s.ID == "" {
			return fmt.Errorf("source needs field and id")
		}
		switch s.Kind {
		case SourceMarketChart, SourceSpot, SourceChart:
		default:
			return fmt.Errorf("source %s: unknown kind '%s'", s.Field, s.Kind)
		}
		switch s.Provider {
		case "coingecko", "yahoo", "metals":
		default:
			return fmt.Errorf("source %s: unknown provider '%s'", s.Field, s.Provider)
		}
		if s.Primary {
			primaries++
			if s.Kind == SourceSpot {
				return fmt.Errorf("source %s: a spot source cannot be primary", s.Field)
			}
		}
	}
	if primaries != 1 {
		return fmt.Errorf("exactly one primary source required, got %d", primaries)
	}
	return nil
}
