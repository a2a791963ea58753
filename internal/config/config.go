// Package config defines the data structures related to configuration and
// includes functions for loading, defaulting and validating it.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/loan-compare/internal/eligibility"
	"github.com/iwvelando/loan-compare/pkg/constants"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for loan-compare.
type Configuration struct {
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging,omitempty"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server,omitempty"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database,omitempty"`
	Dataset  DatasetConfig  `mapstructure:"dataset" yaml:"dataset,omitempty"`
	Policy   PolicyConfig   `mapstructure:"policy" yaml:"policy,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level,omitempty"`           // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format,omitempty"`         // json, console
	OutputFile string `mapstructure:"outputFile" yaml:"outputFile,omitempty"` // optional file output
}

// ServerConfig defines runtime parameters for the HTTP server.
type ServerConfig struct {
	Address      string        `mapstructure:"address" yaml:"address"`
	MaxBodySize  string        `mapstructure:"maxBodySize" yaml:"maxBodySize"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout" yaml:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout" yaml:"writeTimeout"`
	// AdminToken protects the admin routes when non-empty.
	AdminToken string        `mapstructure:"adminToken" yaml:"adminToken,omitempty"`
	SessionTTL time.Duration `mapstructure:"sessionTTL" yaml:"sessionTTL"`

	maxBodySizeBytes int64
}

// DatabaseConfig points at the PostgreSQL store. An empty DSN selects the
// in-memory store seeded from the dataset file.
type DatabaseConfig struct {
	DSN           string `mapstructure:"dsn" yaml:"dsn,omitempty"`
	MaxConns      int32  `mapstructure:"maxConns" yaml:"maxConns,omitempty"`
	MinConns      int32  `mapstructure:"minConns" yaml:"minConns,omitempty"`
	MigrationsDir string `mapstructure:"migrationsDir" yaml:"migrationsDir,omitempty"`
}

// DatasetConfig locates the YAML seed for the in-memory store.
type DatasetConfig struct {
	Path string `mapstructure:"path" yaml:"path,omitempty"`
}

// PolicyConfig carries product-policy inputs that are not stored per rule.
type PolicyConfig struct {
	BonusIncomeFactor float64 `mapstructure:"bonusIncomeFactor" yaml:"bonusIncomeFactor"`
	ExtraIncomeFactor float64 `mapstructure:"extraIncomeFactor" yaml:"extraIncomeFactor"`
	HistoryLimit      int     `mapstructure:"historyLimit" yaml:"historyLimit"`
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. Any key may be overridden from the environment, e.g.
// LOANCOMPARE_DATABASE_DSN.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	if err := configuration.normalize(); err != nil {
		return nil, err
	}
	return &configuration, nil
}

// Default returns the configuration used when no file is given.
func Default() *Configuration {
	v := viper.New()
	setDefaults(v)
	var configuration Configuration
	// Defaults are well-formed; decoding them cannot fail.
	_ = v.Unmarshal(&configuration)
	_ = configuration.normalize()
	return &configuration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("server.address", constants.DefaultServerAddress)
	v.SetDefault("server.maxBodySize", "256K")
	v.SetDefault("server.readTimeout", "10s")
	v.SetDefault("server.writeTimeout", "30s")
	v.SetDefault("server.adminToken", "")
	v.SetDefault("server.sessionTTL", constants.DefaultSessionTTL)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.maxConns", 0)
	v.SetDefault("database.minConns", 0)
	v.SetDefault("database.migrationsDir", "migrations")
	v.SetDefault("dataset.path", "")
	v.SetDefault("policy.bonusIncomeFactor", 0)
	v.SetDefault("policy.extraIncomeFactor", 0)
	v.SetDefault("policy.historyLimit", constants.DefaultHistoryLimit)
}

func (c *Configuration) normalize() error {
	if c.Server.Address == "" {
		c.Server.Address = constants.DefaultServerAddress
	}
	size, err := ParseSize(c.Server.MaxBodySize)
	if err != nil {
		return err
	}
	if size <= 0 {
		size = constants.DefaultMaxBodySizeBytes
	}
	c.Server.maxBodySizeBytes = size

	if c.Policy.HistoryLimit <= 0 {
		c.Policy.HistoryLimit = constants.DefaultHistoryLimit
	}
	if c.Policy.HistoryLimit > constants.MaxHistoryLimit {
		c.Policy.HistoryLimit = constants.MaxHistoryLimit
	}
	if c.Policy.BonusIncomeFactor < 0 || c.Policy.ExtraIncomeFactor < 0 {
		return fmt.Errorf("policy income factors must not be negative")
	}
	return nil
}

// MaxBodySizeBytes returns the configured request body limit in bytes.
func (s ServerConfig) MaxBodySizeBytes() int64 {
	if s.maxBodySizeBytes <= 0 {
		return constants.DefaultMaxBodySizeBytes
	}
	return s.maxBodySizeBytes
}

// EnginePolicy converts the policy section into the engine's form.
func (p PolicyConfig) EnginePolicy() eligibility.Policy {
	return eligibility.Policy{
		BonusIncomeFactor: p.BonusIncomeFactor,
		ExtraIncomeFactor: p.ExtraIncomeFactor,
	}
}

// UsesDatabase reports whether the PostgreSQL store is configured.
func (d DatabaseConfig) UsesDatabase() bool {
	return strings.TrimSpace(d.DSN) != ""
}

// Validate returns warnings for values that are usable but probably wrong.
func (c *Configuration) Validate() []string {
	var warnings []string

	if c.Policy.BonusIncomeFactor > 1 {
		warnings = append(warnings, fmt.Sprintf("policy.bonusIncomeFactor %.2f counts more than the full bonus income", c.Policy.BonusIncomeFactor))
	}
	if c.Policy.ExtraIncomeFactor > 1 {
		warnings = append(warnings, fmt.Sprintf("policy.extraIncomeFactor %.2f counts more than the full extra income", c.Policy.ExtraIncomeFactor))
	}
	if !c.Database.UsesDatabase() && c.Dataset.Path == "" {
		warnings = append(warnings, "neither database.dsn nor dataset.path is set; the store starts empty")
	}
	if c.Database.MinConns > 0 && c.Database.MaxConns > 0 && c.Database.MinConns > c.Database.MaxConns {
		warnings = append(warnings, fmt.Sprintf("database.minConns %d exceeds database.maxConns %d", c.Database.MinConns, c.Database.MaxConns))
	}
	if c.Server.SessionTTL <= 0 {
		warnings = append(warnings, "server.sessionTTL is not positive; sessions are never expired")
	}
	if c.Server.AdminToken == "" {
		warnings = append(warnings, "server.adminToken is empty; admin routes are unauthenticated")
	}

	return warnings
}
