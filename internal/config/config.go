package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Census    CensusConfig    `yaml:"census" mapstructure:"census"`
	WalkScore WalkScoreConfig `yaml:"walkscore" mapstructure:"walkscore"`
	Score     ScoreConfig     `yaml:"score" mapstructure:"score"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// CensusConfig configures the Census ACS data provider.
type CensusConfig struct {
	Key        string  `yaml:"key" mapstructure:"key"`
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	Year       int     `yaml:"year" mapstructure:"year"`
	Dataset    string  `yaml:"dataset" mapstructure:"dataset"`
	RateLimit  float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TablesPath string  `yaml:"tables_path" mapstructure:"tables_path"`
}

// WalkScoreConfig configures the Walk Score data provider.
type WalkScoreConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ScoreConfig configures bulk zone scoring.
type ScoreConfig struct {
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
	MinScore    float64 `yaml:"min_score" mapstructure:"min_score"`
	Limit       int     `yaml:"limit" mapstructure:"limit"`
}

// BracketConfig discretizes a continuous quantity into ordered buckets.
type BracketConfig struct {
	Interval float64 `yaml:"interval" mapstructure:"interval"`
	Max      int     `yaml:"max" mapstructure:"max"`
}

// RentBedroomsConfig holds the assumed bedroom count per rental unit size.
type RentBedroomsConfig struct {
	Studio    float64 `yaml:"studio" mapstructure:"studio"`
	OneBed    float64 `yaml:"one_bed" mapstructure:"one_bed"`
	TwoBed    float64 `yaml:"two_bed" mapstructure:"two_bed"`
	ThreePlus float64 `yaml:"three_plus" mapstructure:"three_plus"`
}

// MetricsConfig holds the keyword sets and bracket parameters the metric
// layer compares against. Zero values fall back to metric.DefaultConfig.
type MetricsConfig struct {
	TransportModes  []string `yaml:"transport_modes" mapstructure:"transport_modes"`
	EducationLevels []string `yaml:"education_levels" mapstructure:"education_levels"`
	RaceCategories  []string `yaml:"race_categories" mapstructure:"race_categories"`

	AgeBracket     BracketConfig      `yaml:"age_bracket" mapstructure:"age_bracket"`
	CommuteBracket BracketConfig      `yaml:"commute_bracket" mapstructure:"commute_bracket"`
	RentBracket    BracketConfig      `yaml:"rent_bracket" mapstructure:"rent_bracket"`
	RentBedrooms   RentBedroomsConfig `yaml:"rent_bedrooms" mapstructure:"rent_bedrooms"`

	MaleLabel       string   `yaml:"male_label" mapstructure:"male_label"`
	FemaleLabel     string   `yaml:"female_label" mapstructure:"female_label"`
	NoEarningsLabel string   `yaml:"no_earnings_label" mapstructure:"no_earnings_label"`
	FamilyLabels    []string `yaml:"family_labels" mapstructure:"family_labels"`
	SingleLabels    []string `yaml:"single_labels" mapstructure:"single_labels"`
}

// RetryConfig configures retries for the data providers.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// .env is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ZONEFIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("walkscore.key", "ZONEFIT_WALKSCORE_KEY", "WALKSCORE_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind walkscore key")
	}
	if err := v.BindEnv("census.key", "ZONEFIT_CENSUS_KEY", "CENSUS_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind census key")
	}

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("census.base_url", "https://api.census.gov/data")
	v.SetDefault("census.year", 2022)
	v.SetDefault("census.dataset", "acs/acs5")
	v.SetDefault("census.rate_limit", 5.0)
	v.SetDefault("walkscore.base_url", "https://api.walkscore.com")
	v.SetDefault("walkscore.rate_limit", 2.0)
	v.SetDefault("score.concurrency", 8)
	v.SetDefault("score.min_score", 0.5)
	v.SetDefault("score.limit", 0)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 10000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "fetch":
		if c.Census.BaseURL == "" {
			errs = append(errs, "census.base_url is required")
		}
		if c.Census.Year <= 0 {
			errs = append(errs, "census.year must be > 0")
		}
	case "fetch-walkscore":
		if c.WalkScore.Key == "" {
			errs = append(errs, "walkscore.key is required (set WALKSCORE_KEY)")
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
	case "score":
		if c.Score.Concurrency < 0 {
			errs = append(errs, "score.concurrency must be >= 0")
		}
		if c.Score.MinScore < 0 || c.Score.MinScore > 1 {
			errs = append(errs, "score.min_score must be between 0 and 1")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s: %s", mode, strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
