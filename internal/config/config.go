package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	DataDir string `mapstructure:"data_dir"`

	// Workers bounds the per-query row-level worker pool; 0 means one
	// worker per CPU.
	Workers int `mapstructure:"workers"`

	// ColumnCache is the decoded-column LRU entry count.
	ColumnCache int `mapstructure:"column_cache"`

	// DefaultCompression is applied to columns created without an explicit
	// choice: none, rle or dictionary.
	DefaultCompression string `mapstructure:"default_compression"`

	LogLevel string `mapstructure:"log_level"`
}

func Default() *Config {
	return &Config{
		DataDir:            "data",
		Workers:            0,
		ColumnCache:        128,
		DefaultCompression: "none",
		LogLevel:           "info",
	}
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	def := Default()
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("workers", def.Workers)
	v.SetDefault("column_cache", def.ColumnCache)
	v.SetDefault("default_compression", def.DefaultCompression)
	v.SetDefault("log_level", def.LogLevel)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
