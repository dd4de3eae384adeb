package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Geocode    GeocodeConfig    `yaml:"geocode" mapstructure:"geocode"`
	Match      MatchConfig      `yaml:"match" mapstructure:"match"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the facility database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SalesforceConfig holds Salesforce JWT auth settings and the query pace.
type SalesforceConfig struct {
	ClientID  string  `yaml:"client_id" mapstructure:"client_id"`
	Username  string  `yaml:"username" mapstructure:"username"`
	KeyPath   string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL  string  `yaml:"login_url" mapstructure:"login_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// GeocodeConfig configures the two geocoding providers. Kartverket is the
// free national registry and tolerates a faster pace than the metered
// Mapbox plan.
type GeocodeConfig struct {
	MapboxToken   string  `yaml:"mapbox_token" mapstructure:"mapbox_token"`
	KartverketRPS float64 `yaml:"kartverket_rps" mapstructure:"kartverket_rps"`
	MapboxRPS     float64 `yaml:"mapbox_rps" mapstructure:"mapbox_rps"`
}

// MatchConfig holds the matcher thresholds. The values are empirically
// chosen; they are configuration so a market rollout can tune them
// without a code change.
type MatchConfig struct {
	NormalizedThreshold   float64 `yaml:"normalized_threshold" mapstructure:"normalized_threshold"`
	TokenThreshold        float64 `yaml:"token_threshold" mapstructure:"token_threshold"`
	TokenResultCutoff     int     `yaml:"token_result_cutoff" mapstructure:"token_result_cutoff"`
	NormalizedSearchLimit int     `yaml:"normalized_search_limit" mapstructure:"normalized_search_limit"`
	TokenSearchRPS        float64 `yaml:"token_search_rps" mapstructure:"token_search_rps"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RESOLVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.rate_limit", 4.0)
	v.SetDefault("geocode.kartverket_rps", 2.0)
	v.SetDefault("geocode.mapbox_rps", 1.0)
	v.SetDefault("match.normalized_threshold", 0.65)
	v.SetDefault("match.token_threshold", 0.55)
	v.SetDefault("match.token_result_cutoff", 100)
	v.SetDefault("match.normalized_search_limit", 25)
	v.SetDefault("match.token_search_rps", 5.0)

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
