package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/adfharrison1/wqdb/pkg/storage"
)

// EnvPrefix is the prefix of environment variables overriding the config,
// e.g. WQDB_PORT or WQDB_DATA_DIR.
const EnvPrefix = "WQDB"

// ConfigName is the config file name looked up without extension
const ConfigName = "wqdb"

// Config is the server configuration
type Config struct {
	Port            string        `mapstructure:"port"`
	DataFile        string        `mapstructure:"data_file"`
	DataDir         string        `mapstructure:"data_dir"`
	MaxMemoryMB     int           `mapstructure:"max_memory_mb"`
	BackgroundSave  time.Duration `mapstructure:"background_save"` // 0 disables
	TransactionSave bool          `mapstructure:"transaction_save"`
	IndexWorkers    int           `mapstructure:"index_workers"` // 0 means one per CPU
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// SetDefaults registers the default value of every setting
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("data_file", "wqdb_data"+storage.FileExtension)
	v.SetDefault("data_dir", ".")
	v.SetDefault("max_memory_mb", 1024)
	v.SetDefault("background_save", time.Duration(0))
	v.SetDefault("transaction_save", false)
	v.SetDefault("index_workers", 0)
	v.SetDefault("shutdown_timeout", 30*time.Second)
}

// New returns a viper instance with defaults and environment overrides set up.
// cfgFile, when not empty, is the config file to read; otherwise wqdb.yaml is
// looked up in the working directory and in ~/.config/wqdb.
func New(cfgFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", ConfigName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile reads the config file if there is one. A missing file is not an
// error unless it was named explicitly.
func ReadFile(v *viper.Viper, explicit bool) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if !explicit && errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("failed to read config: %w", err)
}

// Load decodes and validates the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if c.DataFile == "" {
		return fmt.Errorf("data_file cannot be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}
	if c.MaxMemoryMB <= 0 {
		return fmt.Errorf("max_memory_mb must be positive, got %d", c.MaxMemoryMB)
	}
	if c.BackgroundSave < 0 {
		return fmt.Errorf("background_save cannot be negative")
	}
	if c.BackgroundSave > 0 && c.TransactionSave {
		return fmt.Errorf("background_save and transaction_save cannot both be enabled")
	}
	if c.IndexWorkers < 0 {
		return fmt.Errorf("index_workers cannot be negative")
	}
	return nil
}

// DataFilePath returns the snapshot path. Relative data files live in the
// data directory.
func (c *Config) DataFilePath() string {
	if filepath.IsAbs(c.DataFile) {
		return c.DataFile
	}
	return filepath.Join(c.DataDir, c.DataFile)
}

// StorageOptions converts the configuration into storage engine options
func (c *Config) StorageOptions() []storage.StorageOption {
	options := []storage.StorageOption{
		storage.WithDataDir(c.DataDir),
		storage.WithMaxMemory(c.MaxMemoryMB),
		storage.WithIndexWorkers(c.IndexWorkers),
	}
	if c.BackgroundSave > 0 {
		options = append(options, storage.WithBackgroundSave(c.BackgroundSave))
	} else {
		options = append(options, storage.WithTransactionSave(c.TransactionSave))
	}
	return options
}

// fileConfig is the YAML form of Config, with durations written as "5m"
type fileConfig struct {
	Port            string `yaml:"port"`
	DataFile        string `yaml:"data_file"`
	DataDir         string `yaml:"data_dir"`
	MaxMemoryMB     int    `yaml:"max_memory_mb"`
	BackgroundSave  string `yaml:"background_save"`
	TransactionSave bool   `yaml:"transaction_save"`
	IndexWorkers    int    `yaml:"index_workers"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// YAML renders the configuration as YAML that can be read back as a config file
func (c *Config) YAML() (string, error) {
	out, err := yaml.Marshal(fileConfig{
		Port:            c.Port,
		DataFile:        c.DataFile,
		DataDir:         c.DataDir,
		MaxMemoryMB:     c.MaxMemoryMB,
		BackgroundSave:  c.BackgroundSave.String(),
		TransactionSave: c.TransactionSave,
		IndexWorkers:    c.IndexWorkers,
		ShutdownTimeout: c.ShutdownTimeout.String(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	return string(out), nil
}
