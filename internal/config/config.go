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
	Profile ProfileConfig `yaml:"profile" mapstructure:"profile"`
	Scoring ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
	Input   InputConfig   `yaml:"input" mapstructure:"input"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ProfileConfig selects the weight tables and category taxonomy.
type ProfileConfig struct {
	Name string `yaml:"name" mapstructure:"name"` // built-in profile
	Path string `yaml:"path" mapstructure:"path"` // YAML file, overrides Name
}

// ScoringConfig tunes the scoring engine. Unset values defer to the profile.
type ScoringConfig struct {
	Threshold   *float64 `yaml:"threshold" mapstructure:"threshold"` // nil uses the profile's
	Imputation  string   `yaml:"imputation" mapstructure:"imputation"`
	Concurrency int      `yaml:"concurrency" mapstructure:"concurrency"`
}

// InputConfig controls how survey files are parsed.
type InputConfig struct {
	Delimiter string `yaml:"delimiter" mapstructure:"delimiter"` // empty sniffs
	Encoding  string `yaml:"encoding" mapstructure:"encoding"`
	Sheet     string `yaml:"sheet" mapstructure:"sheet"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RateLimit      float64  `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second, 0 disables
	RateBurst      int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxUploadMB    int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
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
	v.SetEnvPrefix("KELAYAKAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// No default, so an unset threshold stays nil; bind the env var explicitly.
	_ = v.BindEnv("scoring.threshold")

	// Defaults
	v.SetDefault("profile.name", "rumah-sehat")
	v.SetDefault("profile.path", "")
	v.SetDefault("scoring.imputation", "")
	v.SetDefault("scoring.concurrency", 4)
	v.SetDefault("input.delimiter", "")
	v.SetDefault("input.encoding", "utf-8")
	v.SetDefault("input.sheet", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 10)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_upload_mb", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the settings a command depends on. mode is "score" for the
// batch commands or "serve" for the HTTP API.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "score":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server.rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
			errs = append(errs, "server.rate_burst must be >= 1 when rate_limit is set")
		}
		if c.Server.MaxUploadMB < 1 {
			errs = append(errs, "server.max_upload_mb must be >= 1")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Profile.Name == "" && c.Profile.Path == "" {
		errs = append(errs, "profile.name or profile.path is required")
	}
	if t := c.Scoring.Threshold; t != nil && (*t < 0 || *t > 100) {
		errs = append(errs, "scoring.threshold must be between 0 and 100")
	}
	if c.Scoring.Concurrency < 1 || c.Scoring.Concurrency > 64 {
		errs = append(errs, "scoring.concurrency must be between 1 and 64")
	}
	if _, err := c.Input.DelimiterRune(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DelimiterRune returns the configured CSV delimiter, or 0 to sniff. The
// words "tab" and "\t" name a tab.
func (c InputConfig) DelimiterRune() (rune, error) {
	switch c.Delimiter {
	case "":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	}
	r := []rune(c.Delimiter)
	if len(r) != 1 {
		return 0, eris.Errorf("input.delimiter must be a single character, got %q", c.Delimiter)
	}
	return r[0], nil
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
