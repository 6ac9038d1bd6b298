// Package config loads engine settings from a config file, a .env file and
// DAO_ prefixed environment variables.
//
// Example:
//
//	cfg, err := config.Load(config.WithEnvFile(".env"))
//	if err != nil {
//	    return err
//	}
//	rt, err := config.Bootstrap(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	users, err := dao.CreateProxy[UserDao](rt.Engine)
package config

import (
	"os"
	"strings"
	"time"

	"github.com/friendsofgo/errors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/nrfta/go-dao"
	"github.com/nrfta/go-dao/dialect"
	"github.com/nrfta/go-dao/templates"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "DAO"

// Config is the engine configuration. Environment variables use the
// upper-cased key path joined by underscores, e.g. DAO_DATABASE_HOST.
type Config struct {
	// Dialect is mysql, postgres or sqlite.
	Dialect string `mapstructure:"dialect"`

	// DSN, when set, is used as is and Database is ignored.
	DSN      string         `mapstructure:"dsn"`
	Database dialect.Config `mapstructure:"database"`

	// TemplateDir holds the SQL template files. Empty disables templates.
	TemplateDir     string        `mapstructure:"template_dir"`
	TemplatePattern string        `mapstructure:"template_pattern"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	// Watch starts the background refresh after the first load.
	Watch bool `mapstructure:"watch"`

	DefaultPageSize int `mapstructure:"default_page_size"`
	MaxPageSize     int `mapstructure:"max_page_size"`

	LogLevel string `mapstructure:"log_level"`
}

var defaults = map[string]any{
	"dialect":           "mysql",
	"dsn":               "",
	"database.host":     "localhost",
	"database.port":     0,
	"database.user":     "",
	"database.password": "",
	"database.database": "",
	"database.sslmode":  "",
	"template_dir":      "",
	"template_pattern":  "*.sql",
	"refresh_interval":  templates.DefaultRefreshInterval,
	"watch":             false,
	"default_page_size": dao.DefaultPageSize,
	"max_page_size":     dao.DefaultMaxPageSize,
	"log_level":         "info",
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	file    string
	envFile string
}

// WithFile reads a config file. The format follows the file extension.
func WithFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.file = path
	}
}

// WithEnvFile loads a .env file into the process environment first. A
// missing file is ignored. Variables already set are not overridden.
func WithEnvFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.envFile = path
	}
}

// Load reads the configuration. Environment variables win over the config
// file, which wins over the defaults.
func Load(opts ...LoadOption) (*Config, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "load env file %s", o.envFile)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if o.file != "" {
		v.SetConfigFile(o.file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", o.file)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values Load cannot default.
func (c *Config) Validate() error {
	if _, err := dialect.ByName(c.Dialect); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log_level")
	}
	if c.DefaultPageSize < 0 || c.MaxPageSize < 0 {
		return errors.New("page sizes must not be negative")
	}
	if c.MaxPageSize > 0 && c.DefaultPageSize > c.MaxPageSize {
		return errors.Errorf("default_page_size %d exceeds max_page_size %d", c.DefaultPageSize, c.MaxPageSize)
	}
	return nil
}

// SQLDialect returns the configured dialect.
func (c *Config) SQLDialect() (*dialect.Dialect, error) {
	return dialect.ByName(c.Dialect)
}

// DataSourceName returns DSN when set and otherwise builds one from Database.
func (c *Config) DataSourceName() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	d, err := c.SQLDialect()
	if err != nil {
		return "", err
	}
	return d.DSN(c.Database)
}

// PageConfig returns the page size defaults.
func (c *Config) PageConfig() *dao.PageConfig {
	return dao.NewPageConfig().
		WithDefaultSize(c.DefaultPageSize).
		WithMaxSize(c.MaxPageSize)
}

// Logger returns a logrus logger at the configured level.
func (c *Config) Logger() *logrus.Logger {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	return logger
}

// Registry returns a template registry over TemplateDir, or nil when no
// directory is configured. The registry is not loaded yet.
func (c *Config) Registry(logger logrus.FieldLogger) *templates.Registry {
	if c.TemplateDir == "" {
		return nil
	}
	return templates.NewRegistry(
		templates.NewDirSource(c.TemplateDir, logger),
		templates.WithPattern(c.TemplatePattern),
		templates.WithLogger(logger),
	)
}
